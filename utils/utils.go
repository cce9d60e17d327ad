package utils

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeString trims surrounding Unicode whitespace and byte order marks.
func NormalizeString(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// OptionalString returns nil for a blank value.
func OptionalString(s string) *string {
	s = NormalizeString(s)
	if s == "" {
		return nil
	}
	return &s
}

// ParseTeamSize parses the team size field. Anything that is not a positive
// integer yields nil. A positive value too large for int comes back as
// math.MaxInt so range checks still reject it.
func ParseTeamSize(s string) *int {
	s = NormalizeString(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		n = math.MaxInt
		return &n
	}
	if err != nil || n < 1 {
		return nil
	}
	return &n
}

// CharCount counts characters, not bytes.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
