package agent

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// generateSchema creates a JSON schema parameter object from a Go struct
// using its json and jsonschema tags. Required fields carry
// jsonschema:"required"; enums carry repeated enum= entries.
func generateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to convert schema to map: %w", err)
	}

	// Providers reject unknown schema keywords at the top level.
	delete(schemaMap, "$schema")
	delete(schemaMap, "$id")
	delete(schemaMap, "additionalProperties")

	return schemaMap, nil
}

// mustSchema panics on reflection failure; tool argument types are fixed at
// compile time, so failure here is a programming error.
func mustSchema[T any]() map[string]any {
	schema, err := generateSchema[T]()
	if err != nil {
		panic(err)
	}
	return schema
}
