package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/KishoreAkashYS/chargebee-cpf/model"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ContractSchema returns a JSON-Schema description of model.ExtractedContract
// as a generic map. It is derived from the struct definition by reflection so
// the prompt and the validator can never drift apart. No field is required and
// unknown keys are not rejected; a pointer field accepts null.
func ContractSchema() map[string]any {
	return structSchema(reflect.TypeOf(model.ExtractedContract{}))
}

func structSchema(t reflect.Type) map[string]any {
	props := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		props[name] = fieldSchema(f.Type)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func fieldSchema(t reflect.Type) map[string]any {
	switch t.Kind() {
	case reflect.Pointer:
		s := fieldSchema(t.Elem())
		if typ, ok := s["type"].(string); ok {
			s["type"] = []string{typ, "null"}
		}
		return s
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Slice:
		return map[string]any{
			"type":  "array",
			"items": fieldSchema(t.Elem()),
		}
	case reflect.Struct:
		return structSchema(t)
	default:
		return map[string]any{}
	}
}

// ValidateAgainstSchema validates raw JSON against a schema map. Type
// mismatches fail; missing keys and unknown keys pass.
func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
