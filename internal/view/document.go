package view

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hpungsan/vellum/internal/errors"
)

const documentSchemaURL = "vellum://schema/document.json"

// documentSchema only asserts the two fields the store depends on. The node
// map's internal shape is the rendering layer's concern.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["root", "elements"],
  "properties": {
    "root": {"type": "string", "minLength": 1},
    "elements": {"type": "object"}
  }
}`

var compileDocumentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(documentSchemaURL, strings.NewReader(documentSchema)); err != nil {
		return nil, fmt.Errorf("add document schema: %w", err)
	}
	return compiler.Compile(documentSchemaURL)
})

// ParseDocument decodes a version payload and sanity-checks its required
// top-level fields. Numbers decode as json.Number so they round-trip exactly.
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.NewInvalidDocument([]string{fmt.Sprintf("invalid JSON: %v", err)})
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.NewInvalidDocument([]string{"invalid JSON: trailing data after document"})
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.NewInvalidDocument([]string{"document must be a JSON object"})
	}

	schema, err := compileDocumentSchema()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := schema.Validate(obj); err != nil {
		return nil, errors.NewInvalidDocument(schemaProblems(err))
	}
	return Document(obj), nil
}

// EncodeDocument serializes doc as the on-disk payload and returns the
// re-parsed form, so callers hold exactly what a later load will read.
func EncodeDocument(doc Document) ([]byte, Document, error) {
	if doc == nil {
		return nil, nil, errors.NewInvalidDocument([]string{"document is required"})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, nil, errors.NewInvalidDocument([]string{fmt.Sprintf("cannot encode document: %v", err)})
	}
	data = append(data, '\n')
	parsed, err := ParseDocument(data)
	if err != nil {
		return nil, nil, err
	}
	return data, parsed, nil
}

// schemaProblems flattens a validation error tree into leaf messages.
func schemaProblems(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	var problems []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			problems = append(problems, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return problems
}
