package parse

import (
	"testing"

	"github.com/jstachio-go/jstachio/ast"
)

func TestSourceFlatVarsAndText(t *testing.T) {
	tmpl, err := Source("t", "Hi {{name}}, you are {{{rawAge}}}.")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if len(tmpl.Nodes) != 5 {
		t.Fatalf("got %d nodes, want 5: %+v", len(tmpl.Nodes), tmpl.Nodes)
	}
	v, ok := tmpl.Nodes[1].(*ast.Var)
	if !ok || !v.Escaped || v.PathExpr.String() != "name" {
		t.Fatalf("node 1 = %+v", tmpl.Nodes[1])
	}
	raw, ok := tmpl.Nodes[3].(*ast.Var)
	if !ok || raw.Escaped || raw.PathExpr.String() != "rawAge" {
		t.Fatalf("node 3 = %+v", tmpl.Nodes[3])
	}
}

func TestSourceSectionNesting(t *testing.T) {
	tmpl, err := Source("t", "{{#outer}}{{#inner}}{{.}}{{/inner}}{{/outer}}")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if len(tmpl.Nodes) != 1 {
		t.Fatalf("got %d top nodes", len(tmpl.Nodes))
	}
	outer, ok := tmpl.Nodes[0].(*ast.Section)
	if !ok || outer.PathExpr.String() != "outer" {
		t.Fatalf("got %+v", tmpl.Nodes[0])
	}
	inner, ok := outer.Children[0].(*ast.Section)
	if !ok || inner.PathExpr.String() != "inner" {
		t.Fatalf("got %+v", outer.Children[0])
	}
	dotVar, ok := inner.Children[0].(*ast.Var)
	if !ok || !dotVar.PathExpr.IsDot() {
		t.Fatalf("got %+v", inner.Children[0])
	}
}

func TestSourceMismatchedCloseIsStructureError(t *testing.T) {
	_, err := Source("t", "{{#a}}x{{/b}}")
	if err == nil {
		t.Fatal("expected a StructureError")
	}
	if _, ok := err.(*StructureError); !ok {
		t.Fatalf("got %T, want *StructureError", err)
	}
}

func TestSourceUnclosedSectionIsStructureError(t *testing.T) {
	_, err := Source("t", "{{#a}}x")
	if err == nil {
		t.Fatal("expected a StructureError")
	}
	if _, ok := err.(*StructureError); !ok {
		t.Fatalf("got %T, want *StructureError", err)
	}
}

func TestSourceParentWithBlockOverride(t *testing.T) {
	tmpl, err := Source("t", "{{<layout}}{{$title}}Custom{{/title}}{{/layout}}")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	p, ok := tmpl.Nodes[0].(*ast.Parent)
	if !ok || p.Name != "layout" {
		t.Fatalf("got %+v", tmpl.Nodes[0])
	}
	override, ok := p.Overrides["title"]
	if !ok || len(override) != 1 {
		t.Fatalf("got overrides %+v", p.Overrides)
	}
	text, ok := override[0].(*ast.Text)
	if !ok || text.Literal != "Custom" {
		t.Fatalf("got %+v", override[0])
	}
}

func TestSourceBlockParsesAsDefaultBodyOutsideInclusion(t *testing.T) {
	// A block tag at the top level is how a parent-definition resource
	// declares its own default slot content (spec.md section 4.3); the
	// loader parses a parent's resource text the same way it parses any
	// other template, so this must not be a structural error.
	tmpl, err := Source("t", "{{$title}}Default{{/title}}")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	b, ok := tmpl.Nodes[0].(*ast.Block)
	if !ok || b.Name != "title" {
		t.Fatalf("got %+v", tmpl.Nodes[0])
	}
	text, ok := b.Children[0].(*ast.Text)
	if !ok || text.Literal != "Default" {
		t.Fatalf("got %+v", b.Children[0])
	}
}

func TestSourceDuplicateTopLevelBlockIsStructureError(t *testing.T) {
	// Two top-level {{$title}} blocks model a parent-definition resource
	// declaring the same default slot twice; this must be rejected the same
	// way a duplicate override at a {{<parent}} inclusion site already is.
	_, err := Source("t", "{{$title}}a{{/title}}{{$title}}b{{/title}}")
	if err == nil {
		t.Fatal("expected a StructureError")
	}
	if _, ok := err.(*StructureError); !ok {
		t.Fatalf("got %T, want *StructureError", err)
	}
}

func TestSourcePartialRecordsName(t *testing.T) {
	tmpl, err := Source("t", "{{>widget}}")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if _, ok := tmpl.Partials["widget"]; !ok {
		t.Fatalf("got partials %+v", tmpl.Partials)
	}
	part, ok := tmpl.Nodes[0].(*ast.Partial)
	if !ok || part.Name != "widget" {
		t.Fatalf("got %+v", tmpl.Nodes[0])
	}
}
