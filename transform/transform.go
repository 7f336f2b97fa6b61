// Package transform implements the tool transformation engine: deriving a
// new Tool from an existing one by renaming, hiding, defaulting, retyping,
// or annotating its arguments while preserving behavioral equivalence for
// every argument the caller doesn't touch.
package transform

import (
	"context"
	"fmt"
	"sort"

	"github.com/0xeb/fastmcpp-sub002/jsonvalue"
	"github.com/0xeb/fastmcpp-sub002/mcperrors"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// ArgTransform is a declarative rewrite rule for one argument of a source
// tool. Every field is optional; the zero value leaves the argument
// untouched.
type ArgTransform struct {
	// Name is the argument's new external name. Empty means unchanged.
	Name string
	// Description, TypeSchema, and Examples override the corresponding
	// schema keywords for the external property. TypeSchema is merged
	// shallowly over the original property schema, with TypeSchema's keys
	// winning.
	Description string
	TypeSchema  jsonvalue.Object
	Examples    []interface{}
	// DefaultValue, if set, is substituted when the caller omits the
	// argument (HasDefault distinguishes "no default" from "default is
	// JSON null").
	DefaultValue interface{}
	HasDefault   bool
	// Required explicitly overrides whether the external schema marks this
	// argument required. RequiredSet distinguishes "not overridden" from
	// "overridden to false".
	Required    bool
	RequiredSet bool
	// Hide removes the argument from the external schema entirely; every
	// invocation passes DefaultValue for it when HasDefault is set, and
	// omits it otherwise.
	Hide bool
}

// validate enforces the construction-time invariants: hide+required is a
// semantic conflict, and a hidden argument with no default must already
// have been optional in the source schema.
func (r ArgTransform) validate(argName string, sourceRequired bool) error {
	if r.Hide && r.RequiredSet && r.Required {
		return mcperrors.NewValidation(argName, "hide and required cannot both be set")
	}
	if r.Hide && !r.HasDefault && sourceRequired {
		return mcperrors.NewValidation(argName, "hidden argument with no default must be optional in the source tool")
	}
	return nil
}

// TransformedTool is a Tool derived from a source Tool via a set of
// ArgTransforms. It keeps the source tool alive (by value, since
// protocol.Tool holds only a name/schema/function, all safe to copy) so
// invocation can always fall back to it.
type TransformedTool struct {
	source     protocol.Tool
	transforms map[string]ArgTransform
	schema     jsonvalue.Object
	tool       protocol.Tool
}

// Options configures New: a new name/title/description for the derived
// tool, defaulting to the source's.
type Options struct {
	Name        string
	Title       string
	Description string
}

// New derives a TransformedTool from source using the given per-argument
// transforms (keyed by the *source* argument name). It rejects any
// transform referencing an argument absent from source's input schema, and
// any transform combining hide with required.
func New(source protocol.Tool, transforms map[string]ArgTransform, opts Options) (*TransformedTool, error) {
	properties, _ := source.InputSchema["properties"].(jsonvalue.Object)
	sourceRequired := map[string]bool{}
	for _, name := range jsonvalue.StringSlice(source.InputSchema["required"]) {
		sourceRequired[name] = true
	}

	for argName, rule := range transforms {
		if _, ok := properties[argName]; !ok {
			return nil, mcperrors.NewValidation(argName, "transform references an argument not present in the source schema")
		}
		if err := rule.validate(argName, sourceRequired[argName]); err != nil {
			return nil, err
		}
	}

	schema, err := deriveSchema(source, properties, sourceRequired, transforms)
	if err != nil {
		return nil, err
	}

	t := &TransformedTool{source: source, transforms: copyTransforms(transforms), schema: schema}

	tool := source
	tool.Name = firstNonEmpty(opts.Name, source.Name)
	tool.Title = firstNonEmpty(opts.Title, source.Title)
	tool.Description = firstNonEmpty(opts.Description, source.Description)
	tool.InputSchema = schema
	tool.Fn = t.Invoke
	t.tool = tool

	return t, nil
}

// Tool returns the derived external Tool: name/title/description as passed
// to New, schema as computed by deriveSchema, and Fn wired to Invoke.
func (t *TransformedTool) Tool() protocol.Tool {
	return t.tool
}

// InputSchema returns the derived external schema.
func (t *TransformedTool) InputSchema() jsonvalue.Object {
	return t.schema
}

// Invoke builds the underlying arguments from the caller-supplied external
// arguments and calls the source tool's function, per spec §4.3:
//  1. hidden arguments are set to their default value, if they have one
//  2. renamed/overridden arguments are read from their external key, or
//     default to DefaultValue if the caller omitted them
//  3. arguments with no transform entry pass through unchanged
func (t *TransformedTool) Invoke(ctx context.Context, args jsonvalue.Object) (interface{}, error) {
	internal := jsonvalue.Object{}

	for argName, rule := range t.transforms {
		if rule.Hide {
			if rule.HasDefault {
				internal[argName] = rule.DefaultValue
			}
			continue
		}
		externalKey := firstNonEmpty(rule.Name, argName)
		if v, present := args[externalKey]; present {
			internal[argName] = v
		} else if rule.HasDefault {
			internal[argName] = rule.DefaultValue
		}
	}

	properties, _ := t.source.InputSchema["properties"].(jsonvalue.Object)
	for argName := range properties {
		if _, transformed := t.transforms[argName]; transformed {
			continue
		}
		if v, present := args[argName]; present {
			internal[argName] = v
		}
	}

	if t.source.Fn == nil {
		return nil, fmt.Errorf("transformed tool %q has no underlying function", t.source.Name)
	}
	return t.source.Fn(ctx, internal)
}

// deriveSchema computes the external input schema per spec §4.3's
// per-property rules.
func deriveSchema(source protocol.Tool, properties jsonvalue.Object, sourceRequired map[string]bool, transforms map[string]ArgTransform) (jsonvalue.Object, error) {
	out := jsonvalue.Object{"type": "object"}
	outProps := jsonvalue.Object{}
	var required []string

	for argName, rawProp := range properties {
		prop, _ := rawProp.(jsonvalue.Object)
		rule, hasRule := transforms[argName]

		if hasRule && rule.Hide {
			continue
		}

		externalKey := argName
		externalProp, _ := jsonvalue.DeepCopy(prop).(jsonvalue.Object)
		if externalProp == nil {
			externalProp = jsonvalue.Object{}
		}
		isRequired := sourceRequired[argName]

		if hasRule {
			if rule.Name != "" {
				externalKey = rule.Name
			}
			for k, v := range rule.TypeSchema {
				externalProp[k] = v
			}
			if rule.Description != "" {
				externalProp["description"] = rule.Description
			}
			if rule.Examples != nil {
				externalProp["examples"] = rule.Examples
			}

			switch {
			case rule.RequiredSet:
				isRequired = rule.Required
			case rule.HasDefault:
				isRequired = false
			}
		}

		outProps[externalKey] = externalProp
		if isRequired {
			required = append(required, externalKey)
		}
	}

	sort.Strings(required)
	out["properties"] = outProps
	out["required"] = toInterfaceSlice(required)
	if additional, ok := source.InputSchema["additionalProperties"]; ok {
		out["additionalProperties"] = additional
	}
	return out, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func copyTransforms(in map[string]ArgTransform) map[string]ArgTransform {
	out := make(map[string]ArgTransform, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

