// Package format provides the pluggable value-to-text Formatter invoked for
// every interpolation (spec.md sections 4.5/6), generalizing
// hayeah-mustache's Compiler.WithValueStringer/ValueStringer builder option
// (e.g. New().WithValueStringer(toJSONString)) from a runtime compiler
// setting to a compile-time selection.
package format

import (
	"encoding/json"
	"fmt"
)

// Name identifies one registered Formatter, selected via
// model.TemplateSpec.Formatter.
type Name string

const (
	Default Name = "default"
	JSON    Name = "json"
)

// Formatter renders any into the scalar textual form that gets written (then
// optionally escaped) for a VarNode.
type Formatter interface {
	Format(v any) (string, error)
	FuncName() string
}

type defaultFormatter struct{}

// DefaultString is the default formatter of spec.md section 6 (the ":auto"
// choice): booleans print as "true"/"false", nil
// (from an unwrapped nullable) prints as "", everything else uses its
// canonical textual form (fmt's %v, which for numeric types matches Go's
// standard decimal rendering).
func DefaultString(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	switch b := v.(type) {
	case bool:
		if b {
			return "true", nil
		}
		return "false", nil
	case string:
		return b, nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func (defaultFormatter) Format(v any) (string, error) { return DefaultString(v) }
func (defaultFormatter) FuncName() string              { return "format.DefaultString" }

type jsonFormatter struct{}

// JSONString formats v as a JSON scalar; used when a model.TemplateSpec asks
// for JSON output instead of plain text (spec.md section 6, "formatter").
func JSONString(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (jsonFormatter) Format(v any) (string, error) { return JSONString(v) }
func (jsonFormatter) FuncName() string              { return "format.JSONString" }

// For resolves name to its Formatter, defaulting to Default per spec.md
// section 6's ":auto" rule.
func For(name Name) Formatter {
	switch name {
	case JSON:
		return jsonFormatter{}
	default:
		return defaultFormatter{}
	}
}
