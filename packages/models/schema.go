package models

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed request.schema.json
var requestSchema []byte

// ErrInvalidRequest marks a request document that fails schema validation.
var ErrInvalidRequest = errors.New("invalid request document")

var requestSchemaLoader = gojsonschema.NewBytesLoader(requestSchema)

// ValidateRequestDocument checks a JSON request document against the
// request schema and reports every violation.
func ValidateRequestDocument(doc []byte) error {
	result, err := gojsonschema.Validate(requestSchemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
}
