package ast

import "testing"

func TestUnparseTextAndVar(t *testing.T) {
	nodes := []Node{
		&Text{Literal: "Hi "},
		&Var{PathExpr: Path{"Name"}, Escaped: true},
		&Text{Literal: "!"},
	}
	got := Unparse(nodes)
	want := "Hi {{Name}}!"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUnparseRawVar(t *testing.T) {
	nodes := []Node{&Var{PathExpr: Path{"Raw"}, Escaped: false}}
	if got, want := Unparse(nodes), "{{{Raw}}}"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUnparseSectionRoundTripsTags(t *testing.T) {
	nodes := []Node{
		&Section{PathExpr: Path{"Items"}, Children: []Node{&Text{Literal: "x"}}},
	}
	if got, want := Unparse(nodes), "{{#Items}}x{{/Items}}"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUnparseInvertedRoundTripsTags(t *testing.T) {
	nodes := []Node{
		&Inverted{PathExpr: Path{"Items"}, Children: []Node{&Text{Literal: "none"}}},
	}
	if got, want := Unparse(nodes), "{{^Items}}none{{/Items}}"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUnparsePartialPrefersResolvedContent(t *testing.T) {
	nodes := []Node{&Partial{Name: "widget", Resolved: []Node{&Text{Literal: "resolved"}}}}
	if got, want := Unparse(nodes), "resolved"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUnparseUnresolvedPartialFallsBackToTag(t *testing.T) {
	nodes := []Node{&Partial{Name: "widget"}}
	if got, want := Unparse(nodes), "{{>widget}}"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
