package toolexec

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// schemaReflector generates each tool's parameter schema from its Go args
// struct rather than a hand-written literal, grounded in
// kadirpekel-hector's pkg/tool/functiontool/schema.go: the `json` tag names
// each property, and `jsonschema:"description=...,required"` supplies the
// description and required-field marking the model-facing schema needs.
var schemaReflector = &jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	DoNotReference:             true,
}

// GenerateSchema reflects T into the `{type, properties, required}` object
// shape every tool's Schema() advertises to the Provider Transport. Exported
// so tools living outside this package (e.g. agentloop's Task tool) can
// generate their schema the same way instead of hand-writing JSON.
func GenerateSchema[T any]() json.RawMessage {
	schema := schemaReflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("toolexec: reflect schema for %T: %v", *new(T), err))
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("toolexec: decode reflected schema for %T: %v", *new(T), err))
	}
	delete(m, "$schema")
	delete(m, "$id")

	out, err := json.Marshal(m)
	if err != nil {
		panic(fmt.Sprintf("toolexec: marshal reflected schema for %T: %v", *new(T), err))
	}
	return json.RawMessage(out)
}
