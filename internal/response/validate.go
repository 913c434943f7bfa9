// Package response turns a decoded endpoint reply into work items.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"hwbot/internal/failure"
)

// ItemsField is the top-level key carrying the work items.
const ItemsField = "homeworks"

// WorkItem is one tracked item from a single response.
type WorkItem struct {
	Name   string
	Status string
}

const shapeSchema = `{
	"type": "object",
	"required": ["homeworks"],
	"properties": {
		"homeworks": {"type": "array"}
	}
}`

// The mem:// URL keeps locations in error text independent of the working
// directory.
var schema = jsonschema.MustCompileString("mem://response.json", shapeSchema)

// Decode parses a raw body into the generic value Validate expects.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, failure.Wrap(failure.MalformedResponse, "response.Decode", err)
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, failure.Newf(failure.MalformedResponse, "response.Decode", "trailing data after JSON value")
	}
	return v, nil
}

// Validate checks the top-level shape of raw and returns its items in order.
// Items are admitted as-is; missing names or statuses are left for the tracker.
func Validate(raw any) ([]WorkItem, error) {
	if err := schema.Validate(raw); err != nil {
		return nil, classifySchemaError(err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, failure.New(failure.MalformedResponse, "response.Validate")
	}
	list, ok := m[ItemsField].([]any)
	if !ok {
		return nil, failure.Newf(failure.MalformedResponse, "response.Validate", "%s is not a list", ItemsField)
	}
	out := make([]WorkItem, 0, len(list))
	for _, it := range list {
		out = append(out, itemFrom(it))
	}
	return out, nil
}

func itemFrom(v any) WorkItem {
	m, ok := v.(map[string]any)
	if !ok {
		return WorkItem{}
	}
	name, _ := m["homework_name"].(string)
	status, _ := m["status"].(string)
	return WorkItem{Name: name, Status: status}
}

// classifySchemaError maps the failing keyword to a failure kind:
// a missing items field is MissingField, every other violation is
// MalformedResponse.
func classifySchemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return failure.Wrap(failure.MalformedResponse, "response.Validate", err)
	}
	kind := failure.MissingField
	for _, leaf := range leaves(ve) {
		if !strings.HasSuffix(leaf.KeywordLocation, "/required") {
			kind = failure.MalformedResponse
			break
		}
	}
	if kind == failure.MissingField {
		return failure.Newf(kind, "response.Validate", "%s field is absent", ItemsField)
	}
	return failure.Wrap(kind, "response.Validate", err)
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
