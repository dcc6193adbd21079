// Package escape provides the pluggable text-to-text escaper applied after
// formatting for escaped interpolations (spec.md sections 4.5/6). The HTML
// escaper is grounded directly on the teacher's use of
// html/template.HTMLEscape in mustache.go's renderElement; the pluggability
// itself (multiple named escapers selected by configuration) generalizes
// hayeah-mustache's Compiler.WithEscapeMode/EscapeMode builder option from a
// runtime compiler setting to a compile-time selection baked into generated
// code.
package escape

import (
	"bytes"
	"html/template"
)

// Name identifies one registered Escaper, selected via
// model.TemplateSpec.ContentType.
type Name string

const (
	HTML Name = "html"
	Raw  Name = "raw"
)

// Escaper escapes s for the output content type it names.
type Escaper interface {
	Escape(s string) string
	// FuncName is the package-qualified function the emitter calls from
	// generated code (e.g. "escape.HTMLString").
	FuncName() string
}

type htmlEscaper struct{}

func (htmlEscaper) Escape(s string) string {
	var buf bytes.Buffer
	template.HTMLEscape(&buf, []byte(s))
	return buf.String()
}

func (htmlEscaper) FuncName() string { return "escape.HTMLString" }

// HTMLString is the function generated HTML-escaping code calls; kept as a
// package-level function (rather than only a method) so generated code can
// reference it without constructing an Escaper value.
func HTMLString(s string) string {
	var buf bytes.Buffer
	template.HTMLEscape(&buf, []byte(s))
	return buf.String()
}

type rawEscaper struct{}

func (rawEscaper) Escape(s string) string { return s }
func (rawEscaper) FuncName() string       { return "escape.RawString" }

// RawString performs no escaping; it exists so raw and escaped interpolation
// can share the same generated call shape.
func RawString(s string) string { return s }

// For resolves name to its Escaper, defaulting to HTML per spec.md section
// 6's ":auto" -> HTML rule.
func For(name Name) Escaper {
	switch name {
	case Raw:
		return rawEscaper{}
	default:
		return htmlEscaper{}
	}
}
