package service

import (
	"errors"
	"fmt"

	"cs-portal/model"
	"cs-portal/utils"
)

var (
	ErrEmptyQuery         = errors.New("query is empty")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSubmissionInFlight = errors.New("a submission is already pending")
)

// BuildRequest trims and validates the form and produces the wire request.
// A team size that is not a positive integer is dropped, not rejected.
func BuildRequest(input model.FormInput) (model.ClassifyRequest, error) {
	query := utils.NormalizeString(input.Query)
	if query == "" {
		return model.ClassifyRequest{}, ErrEmptyQuery
	}
	if n := utils.CharCount(query); n > model.MaxQueryLength {
		return model.ClassifyRequest{}, fmt.Errorf("%w: query is %d characters, limit is %d", ErrInvalidInput, n, model.MaxQueryLength)
	}

	company := utils.OptionalString(input.CompanyName)
	if company != nil && utils.CharCount(*company) > model.MaxCompanyNameLength {
		return model.ClassifyRequest{}, fmt.Errorf("%w: company name is limited to %d characters", ErrInvalidInput, model.MaxCompanyNameLength)
	}

	teamSize := utils.ParseTeamSize(input.TeamSize)
	if teamSize != nil && *teamSize > model.MaxTeamSize {
		return model.ClassifyRequest{}, fmt.Errorf("%w: team size must be between %d and %d", ErrInvalidInput, model.MinTeamSize, model.MaxTeamSize)
	}

	return model.ClassifyRequest{
		Query:       query,
		CompanyName: company,
		TeamSize:    teamSize,
	}, nil
}
