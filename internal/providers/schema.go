package providers

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects T into a JSON schema suitable for ResponseFormat.
// Struct fields follow encoding/json tags; jsonschema tags add descriptions and enums.
func SchemaFor[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	var v T
	data, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil
	}
	// Chat APIs reject meta keys inside response_format.
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema
}

// JSONResponse builds a ResponseFormat for T under the given name.
func JSONResponse[T any](name string) *ResponseFormat {
	return &ResponseFormat{Name: name, Schema: SchemaFor[T]()}
}
