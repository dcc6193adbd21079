package loader

import (
	"os"
	"testing"

	"github.com/jstachio-go/jstachio/ast"
)

func TestLoadInlineNoPartials(t *testing.T) {
	tmpl, err := Load(Options{Inline: "Hello {{Name}}"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tmpl.Nodes) != 2 {
		t.Fatalf("got %d nodes", len(tmpl.Nodes))
	}
}

func TestLoadInlinesPartial(t *testing.T) {
	provider := &StaticProvider{Templates: map[string]string{
		"greeting": "Hi, {{Name}}!",
	}}
	tmpl, err := Load(Options{
		Inline:   "Before {{>greeting}} After",
		Provider: provider,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var partial *ast.Partial
	for _, n := range tmpl.Nodes {
		if p, ok := n.(*ast.Partial); ok {
			partial = p
		}
	}
	if partial == nil {
		t.Fatal("missing partial node")
	}
	if len(partial.Resolved) == 0 {
		t.Fatal("partial was not inlined: Resolved is empty")
	}
}

func TestLoadUnresolvablePartialRendersEmptyNotFatal(t *testing.T) {
	tmpl, err := Load(Options{Inline: "X{{>missing}}Y"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var partial *ast.Partial
	for _, n := range tmpl.Nodes {
		if p, ok := n.(*ast.Partial); ok {
			partial = p
		}
	}
	if partial == nil {
		t.Fatal("missing partial node")
	}
	if len(partial.Resolved) != 0 {
		t.Fatalf("expected an unresolved partial to inline as empty, got %+v", partial.Resolved)
	}
}

func TestLoadPartialIndentationPropagation(t *testing.T) {
	provider := &StaticProvider{Templates: map[string]string{
		"lines": "one\ntwo\n",
	}}
	tmpl, err := Load(Options{
		Inline:   "  {{>lines}}\n",
		Provider: provider,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var partial *ast.Partial
	for _, n := range tmpl.Nodes {
		if p, ok := n.(*ast.Partial); ok {
			partial = p
		}
	}
	if partial == nil {
		t.Fatal("missing partial node")
	}
	text, ok := partial.Resolved[0].(*ast.Text)
	if !ok {
		t.Fatalf("got %+v", partial.Resolved[0])
	}
	want := "  one\n  two\n"
	if text.Literal != want {
		t.Fatalf("got %q, want %q", text.Literal, want)
	}
}

func TestLoadStandalonePartialRestoresConsumedTrailingNewline(t *testing.T) {
	provider := &StaticProvider{Templates: map[string]string{
		"p": "line1\nline2",
	}}
	tmpl, err := Load(Options{
		Inline:   "  {{>p}}\n",
		Provider: provider,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var partial *ast.Partial
	for _, n := range tmpl.Nodes {
		if p, ok := n.(*ast.Partial); ok {
			partial = p
		}
	}
	if partial == nil {
		t.Fatal("missing partial node")
	}
	text, ok := partial.Resolved[0].(*ast.Text)
	if !ok {
		t.Fatalf("got %+v", partial.Resolved[0])
	}
	want := "  line1\n  line2\n"
	if text.Literal != want {
		t.Fatalf("got %q, want %q", text.Literal, want)
	}
}

func TestLoadParentWithBlockOverrideInlines(t *testing.T) {
	provider := &StaticProvider{Templates: map[string]string{
		"layout": "<{{$title}}Default{{/title}}>",
	}}
	tmpl, err := Load(Options{
		Inline:   "{{<layout}}{{$title}}Custom{{/title}}{{/layout}}",
		Provider: provider,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	parent, ok := tmpl.Nodes[0].(*ast.Parent)
	if !ok {
		t.Fatalf("got %+v", tmpl.Nodes[0])
	}
	// Resolved should contain the override text "Custom", not "Default".
	foundCustom := false
	for _, n := range parent.Resolved {
		if b, ok := n.(*ast.Block); ok {
			for _, c := range b.Children {
				if txt, ok := c.(*ast.Text); ok && txt.Literal == "Custom" {
					foundCustom = true
				}
			}
		}
	}
	if !foundCustom {
		t.Fatalf("expected the block override to replace the parent's default, got %+v", parent.Resolved)
	}
}

func TestLoadNoPathOrInlineIsIOError(t *testing.T) {
	_, err := Load(Options{})
	if err == nil {
		t.Fatal("expected an IOError")
	}
	if _, ok := err.(*IOError); !ok {
		t.Fatalf("got %T, want *IOError", err)
	}
}

func TestFileProviderSearchesExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/hello.mustache", "hi")
	fp := &FileProvider{Roots: []string{dir}}
	data, ok, err := fp.Get("hello")
	if err != nil || !ok || data != "hi" {
		t.Fatalf("got data=%q ok=%v err=%v", data, ok, err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
}
