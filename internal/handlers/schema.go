package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const uploadBatchSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["records"],
	"properties": {
		"records": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["bucket", "key"],
				"properties": {
					"bucket": {"type": "string", "minLength": 1},
					"key": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

func compileUploadSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("upload-batch.json", uploadBatchSchema)
}

func validateAgainst(schema *jsonschema.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
