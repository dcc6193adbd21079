// Package model defines the compile-time type descriptor of spec.md section
// 3 and the Go-native substitute for the external annotation surface of
// spec.md section 6 (Go has no annotation processor, so a model's template
// declaration is an explicit TemplateSpec value instead of a source
// annotation).
package model

import (
	"reflect"
	"strings"
)

// Kind classifies a type descriptor for name-resolution and formattability
// purposes (spec.md section 3, "Type descriptor").
type Kind int

const (
	KindInvalid Kind = iota
	KindRecord
	KindMap
	KindIterable
	KindArray
	KindBool
	KindNumeric
	KindString
	KindLambda
	KindNullable
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindMap:
		return "map"
	case KindIterable:
		return "iterable"
	case KindArray:
		return "array"
	case KindBool:
		return "boolean"
	case KindNumeric:
		return "numeric"
	case KindString:
		return "stringish"
	case KindLambda:
		return "lambda"
	case KindNullable:
		return "nullable"
	default:
		return "invalid"
	}
}

// Formattable reports whether a value of this kind may be the terminal type
// of a VarNode (spec.md section 3's "allow-set of formattable types").
func (k Kind) Formattable() bool {
	switch k {
	case KindBool, KindNumeric, KindString, KindNullable:
		return true
	}
	return false
}

// Member is one named field, zero-argument accessor method, or pseudo-member
// (loop metadata such as "-index") reachable from a Descriptor.
type Member struct {
	Name     string
	Elem     *Descriptor // result type descriptor
	ViaField bool        // true for a struct field, false for a zero-arg method
	Index    []int       // reflect.Value.FieldByIndex path, when ViaField
	GoName   string      // actual Go field identifier, when ViaField (may differ from Name via a `mustache:"..."` tag)
	Method   string      // method name, when !ViaField
}

// Descriptor is the flattened member map plus classification for one Go
// type, built once per type and shared across all templates in one
// compilation (spec.md section 3, "Lifecycle").
type Descriptor struct {
	GoType  reflect.Type
	Kind    Kind
	Members map[string]Member
	Elem    *Descriptor // element descriptor for KindIterable/KindArray/KindNullable
	Lambda  LambdaShape
}

// LambdaShape records which calling convention a lambda member supports, per
// spec.md section 4.4 ("Lambdas accept either zero arguments ... or the
// section's raw body string plus optional current-element").
type LambdaShape int

const (
	LambdaNone LambdaShape = iota
	LambdaZeroArg
	LambdaBodyText
	LambdaBodyTextAndRender
)

// Catalog is the process-lifetime cache of Descriptors built during one
// compilation invocation. Each Descriptor is built on the first Describe of
// its type and not changed afterwards; the catalog itself grows as new types
// are described, and Describe is not safe for concurrent use.
type Catalog struct {
	byType map[reflect.Type]*Descriptor
}

func NewCatalog() *Catalog {
	return &Catalog{byType: map[reflect.Type]*Descriptor{}}
}

// Describe returns the Descriptor for t, building and caching it on first
// use. Grounded on observeinc-mustache's lookup_struct/lookup_map/
// lookup_array/truth, adapted from per-render reflect.Value lookups to a
// one-time reflect.Type walk.
func (c *Catalog) Describe(t reflect.Type) *Descriptor {
	if d, ok := c.byType[t]; ok {
		return d
	}
	d := &Descriptor{GoType: t}
	c.byType[t] = d // insert before recursing, to break self-referential types
	c.fill(d, t)
	return d
}

func (c *Catalog) fill(d *Descriptor, t reflect.Type) {
	switch t.Kind() {
	case reflect.Ptr:
		d.Kind = KindNullable
		d.Elem = c.Describe(t.Elem())
	case reflect.Bool:
		d.Kind = KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		d.Kind = KindNumeric
	case reflect.String:
		d.Kind = KindString
	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice {
			d.Kind = KindIterable
		} else {
			d.Kind = KindArray
		}
		d.Elem = c.Describe(t.Elem())
	case reflect.Map:
		d.Kind = KindMap
		d.Elem = c.Describe(t.Elem())
		d.Members = map[string]Member{}
	case reflect.Func:
		d.Kind = KindLambda
		d.Lambda = lambdaShape(t)
	case reflect.Struct:
		d.Kind = KindRecord
		d.Members = map[string]Member{}
		c.fillStructMembers(d, t)
	case reflect.Interface:
		// An interface-typed field can't be classified further at compile
		// time; treat as a nullable of itself so "present/absent" sections
		// still type-check, matching spec.md's nullable(T) handling.
		d.Kind = KindNullable
		d.Elem = &Descriptor{GoType: t, Kind: KindRecord, Members: map[string]Member{}}
	default:
		d.Kind = KindInvalid
	}
}

func lambdaShape(t reflect.Type) LambdaShape {
	switch {
	case t.NumIn() == 0:
		return LambdaZeroArg
	case t.NumIn() == 1 && t.In(0).Kind() == reflect.String:
		return LambdaBodyText
	case t.NumIn() == 2 && t.In(0).Kind() == reflect.String:
		return LambdaBodyTextAndRender
	default:
		return LambdaNone
	}
}

// fillStructMembers enumerates exported fields and zero-argument,
// single-return methods, mirroring lookup_struct's field-then-method search
// order (field wins on a name collision, matching mustache.go's lookup,
// which checks methods before the struct-field fallthrough only when no
// field matched -- here we keep fields first since a struct literal with
// both a field and identically-named method is a compile error in Go, so
// order only matters for embedded-field promotion, which reflect already
// resolves).
func (c *Catalog) fillStructMembers(d *Descriptor, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		name := fieldName(f)
		d.Members[name] = Member{
			Name:     name,
			Elem:     c.Describe(f.Type),
			ViaField: true,
			Index:    f.Index,
			GoName:   f.Name,
		}
	}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
			continue // only zero-argument, single-return accessors qualify
		}
		if _, exists := d.Members[m.Name]; exists {
			continue
		}
		d.Members[m.Name] = Member{
			Name:   m.Name,
			Elem:   c.Describe(m.Type.Out(0)),
			Method: m.Name,
		}
	}
}

// fieldName returns the template-visible name for a struct field: the value
// of a `mustache:"name"` tag if present (matching the tag lookup in
// observeinc-mustache's lookup_struct), else the Go field name.
func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("mustache"); ok {
		tag = strings.TrimSpace(strings.SplitN(tag, ",", 2)[0])
		if tag != "" {
			return tag
		}
	}
	return f.Name
}
