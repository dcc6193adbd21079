package model

import "reflect"

// TemplateSpec is the Go-native substitute for the external annotation
// surface enumerated in spec.md section 6. Each field corresponds 1:1 to one
// of the spec's "Recognized options on the model's template declaration".
type TemplateSpec struct {
	// Model is the zero value of the model type; its reflect.Type is what
	// gets introspected into a Descriptor.
	Model any
	// Path is the resource identifier of the template; "" = not set.
	Path string
	// Inline is an inline template literal; "" = not set.
	Inline string
	// RendererName names the generated Renderer; ":auto" or "" means
	// "<ModelName>Renderer".
	RendererName string
	// ContentType selects the escaper; ":auto" or "" means HTML.
	ContentType string
	// Formatter selects the value formatter; ":auto" or "" means the
	// default formatter (format.DefaultString, which formats nil as "").
	Formatter string
	// Charset is the template source encoding; ":default" or "" means the
	// host default (UTF-8).
	Charset string
	// Partials maps partial name to either inline template text or, if the
	// value has the form "path:<resource>", a path to resolve via the
	// configured loader.
	Partials map[string]string
	// PathMapping is an ordered list of (prefix, replacement) rules applied
	// to template/partial paths before resource lookup.
	PathMapping []PathMappingRule
	// PartialDepthLimit bounds recursive partial/parent resolution; 0 means
	// use the loader's default.
	PartialDepthLimit int
	// Interfaces declares additional interfaces the generated Renderer must
	// implement, enforced with a compile-time assertion in the generated
	// file (spec.md section 6's "interfaces" annotation option). Go has no
	// "implements" declaration the way the option's originating annotation
	// surface does; `var _ Iface = (*Renderer)(nil)` is the idiomatic
	// equivalent, catching a missing method at generated-code compile time
	// rather than at first use.
	Interfaces []InterfaceRef
}

// InterfaceRef names one interface type a generated Renderer is asserted to
// implement, for TemplateSpec.Interfaces.
type InterfaceRef struct {
	// ImportPath is the interface's package import path; "" means the
	// interface lives in the generated file's own package.
	ImportPath string
	// PackageAlias is the local identifier the import is bound to; required
	// when ImportPath is set.
	PackageAlias string
	// TypeName is the interface's exported identifier.
	TypeName string
}

// QualifiedName returns the interface's reference expression as it appears
// in generated code.
func (ir InterfaceRef) QualifiedName() string {
	if ir.PackageAlias == "" {
		return ir.TypeName
	}
	return ir.PackageAlias + "." + ir.TypeName
}

// PathMappingRule rewrites any resource path beginning with Prefix by
// substituting Replacement for it.
type PathMappingRule struct {
	Prefix      string
	Replacement string
}

const Auto = ":auto"

// ModelType returns the reflect.Type of ts.Model, dereferencing at most one
// pointer indirection (a TemplateSpec may register either T{} or (*T)(nil)).
func (ts TemplateSpec) ModelType() reflect.Type {
	t := reflect.TypeOf(ts.Model)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// RendererTypeName resolves the ":auto" default for RendererName.
func (ts TemplateSpec) RendererTypeName() string {
	if ts.RendererName != "" && ts.RendererName != Auto {
		return ts.RendererName
	}
	t := ts.ModelType()
	if t == nil {
		return "Renderer"
	}
	return t.Name() + "Renderer"
}

// EffectiveCharset resolves the ":default"/"" default for Charset.
func (ts TemplateSpec) EffectiveCharset() string {
	if ts.Charset == "" || ts.Charset == ":default" {
		return "UTF-8"
	}
	return ts.Charset
}
