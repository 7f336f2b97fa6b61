// Package elicitation validates and normalizes the flat JSON Schemas MCP
// elicitation windows use to collect structured input from a user through
// the client.
package elicitation

import (
	"fmt"
	"sort"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/mcperrors"
)

// primitiveTypes are the JSON Schema types an elicitation property may use.
var primitiveTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
}

// Validate enforces the structural rules an MCP elicitation schema must
// satisfy: an object root, and properties that are either const/enum,
// primitive-typed, a $ref to a primitive/enum $def, or a oneOf/anyOf union
// of such branches (plus, optionally, a {"type":"null"} branch).
func Validate(schema jsonvalue.Object) error {
	if jsonvalue.GetString(schema, "type") != "object" {
		return mcperrors.NewValidation("", "root schema must have type \"object\"")
	}

	properties, _ := schema["properties"].(jsonvalue.Object)
	for name, raw := range properties {
		prop, ok := raw.(jsonvalue.Object)
		if !ok {
			return mcperrors.NewValidation(name, "property schema must be an object")
		}
		if err := validateProperty(name, prop, schema); err != nil {
			return err
		}
	}
	return nil
}

func validateProperty(name string, prop jsonvalue.Object, root jsonvalue.Object) error {
	if _, ok := prop["const"]; ok {
		return nil
	}
	if _, ok := prop["enum"]; ok {
		return nil
	}
	if ref, ok := prop["$ref"].(string); ok {
		return validateRef(name, ref, root)
	}
	if branches, ok := prop["oneOf"].([]interface{}); ok {
		return validateUnion(name, branches, root)
	}
	if branches, ok := prop["anyOf"].([]interface{}); ok {
		return validateUnion(name, branches, root)
	}

	if !typeIsPrimitive(prop["type"]) {
		return mcperrors.NewValidation(name, "type must be string, number, integer, or boolean")
	}
	return nil
}

func validateUnion(name string, branches []interface{}, root jsonvalue.Object) error {
	for _, raw := range branches {
		branch, ok := raw.(jsonvalue.Object)
		if !ok {
			return mcperrors.NewValidation(name, "oneOf/anyOf branch must be an object")
		}
		if _, ok := branch["const"]; ok {
			continue
		}
		if _, ok := branch["enum"]; ok {
			continue
		}
		// A {"type":"null"} branch only makes the property nullable.
		if s, _ := branch["type"].(string); s == "null" {
			continue
		}
		if !typeIsPrimitive(branch["type"]) {
			return mcperrors.NewValidation(name, "oneOf/anyOf branch must be const, enum, or a primitive type")
		}
	}
	return nil
}

func validateRef(name, ref string, root jsonvalue.Object) error {
	const prefix = "#/$defs/"
	if len(ref) <= len(prefix) || ref[:len(prefix)] != prefix {
		return mcperrors.NewValidation(name, fmt.Sprintf("$ref %q must point at #/$defs/<name>", ref))
	}
	defName := ref[len(prefix):]

	defs, _ := root["$defs"].(jsonvalue.Object)
	target, ok := defs[defName].(jsonvalue.Object)
	if !ok {
		return mcperrors.NewValidation(name, fmt.Sprintf("$ref target %q not found in $defs", defName))
	}
	if _, ok := target["enum"]; ok {
		return nil
	}
	if !typeIsPrimitive(target["type"]) {
		return mcperrors.NewValidation(name, fmt.Sprintf("$ref target %q must be an enum or a primitive type", defName))
	}
	return nil
}

// typeIsPrimitive reports whether a JSON Schema "type" value (string or
// array-of-type, with "null" filtered out) names only primitive types.
func typeIsPrimitive(rawType interface{}) bool {
	switch t := rawType.(type) {
	case string:
		return primitiveTypes[t]
	case []interface{}:
		saw := false
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return false
			}
			if s == "null" {
				continue
			}
			if !primitiveTypes[s] {
				return false
			}
			saw = true
		}
		return saw
	default:
		return false
	}
}

// admitsNull reports whether a property's type declaration allows null,
// either via an array-of-type form or a oneOf/anyOf union containing a null
// branch.
func admitsNull(prop jsonvalue.Object) bool {
	if arr, ok := prop["type"].([]interface{}); ok {
		for _, e := range arr {
			if s, _ := e.(string); s == "null" {
				return true
			}
		}
	}
	for _, key := range []string{"oneOf", "anyOf"} {
		branches, ok := prop[key].([]interface{})
		if !ok {
			continue
		}
		for _, raw := range branches {
			branch, ok := raw.(jsonvalue.Object)
			if !ok {
				continue
			}
			if s, _ := branch["type"].(string); s == "null" {
				return true
			}
		}
	}
	return false
}

// Normalize returns a new schema with type:"object" defaulted, required
// recomputed per the "default ⇒ optional" law (a property is required iff
// it has no default, is not nullable:true, and does not admit null via its
// type array or oneOf/anyOf union), and every other keyword preserved. The
// result is validated before being returned.
func Normalize(schema jsonvalue.Object) (jsonvalue.Object, error) {
	out, _ := jsonvalue.DeepCopy(schema).(jsonvalue.Object)
	if out == nil {
		out = jsonvalue.Object{}
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}

	properties, _ := out["properties"].(jsonvalue.Object)
	required := make([]string, 0, len(properties))
	for _, name := range sortedKeys(properties) {
		prop, ok := properties[name].(jsonvalue.Object)
		if !ok {
			continue
		}
		if _, hasDefault := prop["default"]; hasDefault {
			continue
		}
		if jsonvalue.GetBool(prop, "nullable") {
			continue
		}
		if admitsNull(prop) {
			continue
		}
		required = append(required, name)
	}
	out["required"] = toInterfaceSlice(required)

	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

func sortedKeys(obj jsonvalue.Object) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
