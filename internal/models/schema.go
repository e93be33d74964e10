package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const requestSchemaURL = "https://github.com/Mirai3103/remote-grader/schemas/request.json"

// ValidationError lists every leaf schema violation of a request.
type ValidationError struct {
	Causes []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Causes, "; ")
}

// GenerateRequestSchema produces the JSON Schema of the worker request.
func GenerateRequestSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	s := r.Reflect(&Request{})
	s.ID = requestSchemaURL
	s.Title = "Grader request"
	s.Description = "Submission source plus ordered test snippets"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal request schema: %w", err)
	}
	return data, nil
}

var (
	compileOnce    sync.Once
	compiledSchema *sjsonschema.Schema
	compileErr     error
)

func requestSchema() (*sjsonschema.Schema, error) {
	compileOnce.Do(func() {
		data, err := GenerateRequestSchema()
		if err != nil {
			compileErr = err
			return
		}
		doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal request schema: %w", err)
			return
		}
		c := sjsonschema.NewCompiler()
		if err := c.AddResource(requestSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(requestSchemaURL)
	})
	return compiledSchema, compileErr
}

// DecodeRequest parses and validates a raw request. Absent fields keep
// their zero values: an empty submission and no tests.
func DecodeRequest(data []byte) (Request, error) {
	var req Request

	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	sch, err := requestSchema()
	if err != nil {
		return req, err
	}
	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return req, fmt.Errorf("validate request: %w", err)
		}
		var causes []string
		for _, cause := range flattenValidationErrors(ve) {
			causes = append(causes, fmt.Sprintf("/%s: %v", strings.Join(cause.InstanceLocation, "/"), cause.ErrorKind))
		}
		return req, &ValidationError{Causes: causes}
	}

	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
