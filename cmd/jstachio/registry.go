package main

import "github.com/jstachio-go/jstachio/model"

// registry maps a manifest entry's "model" key to a constructor for that
// model's zero value. Go has no annotation processor to discover
// TemplateSpec-bearing types from a YAML manifest (spec.md section 6), so
// each example/test binary that wants to drive this CLI registers its
// model types here before calling Execute.
var registry = map[string]func() any{}

// Register associates name with a zero-value constructor for a model type,
// for later lookup by a manifest entry's "model" field.
func Register(name string, zero func() any) {
	registry[name] = zero
}

func buildSpec(e manifestEntry) (model.TemplateSpec, error) {
	zero, ok := registry[e.Model]
	if !ok {
		return model.TemplateSpec{}, &unknownModelError{Name: e.Model}
	}
	ts := model.TemplateSpec{
		Model:             zero(),
		Path:              e.Path,
		Inline:            e.Inline,
		RendererName:      e.Renderer,
		ContentType:       e.ContentType,
		Formatter:         e.Formatter,
		Charset:           e.Charset,
		Partials:          e.Partials,
		PartialDepthLimit: e.PartialDepthLimit,
	}
	for _, r := range e.PathMapping {
		ts.PathMapping = append(ts.PathMapping, model.PathMappingRule{Prefix: r.Prefix, Replacement: r.Replacement})
	}
	for _, ir := range e.Interfaces {
		ts.Interfaces = append(ts.Interfaces, model.InterfaceRef{ImportPath: ir.ImportPath, PackageAlias: ir.PackageAlias, TypeName: ir.TypeName})
	}
	return ts, nil
}

type unknownModelError struct {
	Name string
}

func (e *unknownModelError) Error() string {
	return "jstachio: no model registered under name " + e.Name
}
