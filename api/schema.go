package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// submitSchema describes the JSON submit body. Lengths and ranges are left
// to the form service, which applies them after trimming.
const submitSchema = `{
  "type": "object",
  "required": ["query"],
  "properties": {
    "query":        {"type": "string", "minLength": 1},
    "company_name": {"type": ["string", "null"]},
    "team_size":    {"type": ["integer", "string", "null"]}
  }
}`

var submitSchemaLoader = gojsonschema.NewStringLoader(submitSchema)

// errMalformedBody marks a body that is not JSON at all, as opposed to JSON
// that fails the schema.
type errMalformedBody struct {
	err error
}

func (e *errMalformedBody) Error() string {
	return fmt.Sprintf("malformed request body: %v", e.err)
}

func (e *errMalformedBody) Unwrap() error {
	return e.err
}

// validateSubmitBody returns the schema violations of body, or an
// *errMalformedBody when body cannot be parsed.
func validateSubmitBody(body []byte) ([]string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, &errMalformedBody{err: errors.New("empty body")}
	}

	result, err := gojsonschema.Validate(submitSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, &errMalformedBody{err: err}
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return errs, nil
}
