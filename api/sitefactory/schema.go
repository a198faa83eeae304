package sitefactory

import (
	"context"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// OpenAPIDocument returns the bundled OpenAPI document describing the endpoints this package calls.
func OpenAPIDocument() []byte {
	return append([]byte(nil), openAPIDocument...)
}

// schemaValidator checks response bodies against the bundled document.
type schemaValidator struct {
	doc *openapi3.T
}

var loadSchemaDocument = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load OpenAPI document")
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, errors.Wrap(err, "invalid OpenAPI document")
	}
	return doc, nil
})

func loadSchemaValidator() (*schemaValidator, error) {
	doc, err := loadSchemaDocument()
	if err != nil {
		return nil, err
	}
	return &schemaValidator{doc: doc}, nil
}

// validate checks body against the response schema of method and path template.
// Operations or status codes the document does not describe are accepted.
func (v *schemaValidator) validate(method, pathTemplate string, status int, body []byte) error {
	item := v.doc.Paths.Find(pathTemplate)
	if item == nil {
		return nil
	}
	op := item.GetOperation(method)
	if op == nil || op.Responses == nil {
		return nil
	}
	ref := op.Responses.Status(status)
	if ref == nil || ref.Value == nil {
		return nil
	}
	media := ref.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return errors.Mark(
			errors.Wrapf(err, "%s %s %d: body is not JSON", method, pathTemplate, status),
			ErrSchemaViolation,
		)
	}

	if err := media.Schema.Value.VisitJSON(decoded); err != nil {
		return errors.Mark(
			errors.Wrapf(err, "%s %s %d", method, pathTemplate, status),
			ErrSchemaViolation,
		)
	}
	return nil
}
