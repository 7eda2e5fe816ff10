package backend

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type contractSchemas struct {
	summary *jsonschema.Schema
	quiz    *jsonschema.Schema
}

func compileSchemas() (contractSchemas, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	load := func(name string) (*jsonschema.Schema, error) {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		return compiler.Compile(name)
	}

	summary, err := load("summary.schema.json")
	if err != nil {
		return contractSchemas{}, err
	}
	quiz, err := load("quiz.schema.json")
	if err != nil {
		return contractSchemas{}, err
	}
	return contractSchemas{summary: summary, quiz: quiz}, nil
}

func validatePayload(schema *jsonschema.Schema, body []byte) error {
	if schema == nil {
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var doc interface{}
	if err := decoder.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
