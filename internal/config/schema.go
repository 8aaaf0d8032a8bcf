package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	functionsSchemaOnce sync.Once
	functionsSchemaJSON []byte
	functionsSchemaErr  error
)

// FunctionsJSONSchema returns the JSON Schema for FunctionsConfig, so a
// deployment can validate its function/variant definitions. Reflected over
// the declarative FunctionSpec/VariantSpec shapes in config_functions.go.
func FunctionsJSONSchema() ([]byte, error) {
	functionsSchemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			FieldNameTag: "yaml",
		}
		schema := r.Reflect(&FunctionsConfig{})
		functionsSchemaJSON, functionsSchemaErr = json.MarshalIndent(schema, "", "  ")
	})
	return functionsSchemaJSON, functionsSchemaErr
}
