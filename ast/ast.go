// Package ast defines the block-structured Mustache template AST described
// in spec.md section 3.
package ast

import "github.com/jstachio-go/jstachio/token"

// Path is a non-empty ordered sequence of identifiers forming a dotted-name
// expression. The special forms "." (current element) and "@context"
// (ambient per-request context) are represented as single-element Paths
// whose sole segment is Dot or AtContext.
type Path []string

const (
	Dot       = "."
	AtContext = "@context"
)

func (p Path) String() string {
	s := ""
	for i, seg := range p {
		if i > 0 {
			s += "."
		}
		s += seg
	}
	return s
}

func (p Path) IsDot() bool       { return len(p) == 1 && p[0] == Dot }
func (p Path) IsAtContext() bool { return len(p) > 0 && p[0] == AtContext }

// ContextKey returns the key passed to runtime.ContextProvider.Context for
// an "@context"-headed path: the remaining dotted segments joined back
// together, or "" for a bare "{{@context}}".
func (p Path) ContextKey() string {
	if !p.IsAtContext() || len(p) < 2 {
		return ""
	}
	return Path(p[1:]).String()
}

// Node is any AST node produced by the parser.
type Node interface {
	Span() token.Span
}

// Text is a run of literal template text.
type Text struct {
	Literal string
	At      token.Span
}

func (n *Text) Span() token.Span { return n.At }

// Var is an interpolation, escaped unless Escaped is false.
type Var struct {
	PathExpr Path
	Escaped  bool
	At       token.Span
}

func (n *Var) Span() token.Span { return n.At }

// Section is a non-inverted {{#name}}...{{/name}} block.
type Section struct {
	PathExpr Path
	Children []Node
	At       token.Span
}

func (n *Section) Span() token.Span { return n.At }

// Inverted is a {{^name}}...{{/name}} block.
type Inverted struct {
	PathExpr Path
	Children []Node
	At       token.Span
}

func (n *Inverted) Span() token.Span { return n.At }

// Partial is a {{>name}} inclusion. Before loader resolution, Resolved is
// nil; after resolution it holds the inlined, already-parsed body.
type Partial struct {
	Name     string
	Indent   string
	Resolved []Node
	At       token.Span
	// StandaloneNewline is true when this tag occupied a standalone line and
	// the standalone rule consumed that line's trailing newline; the loader
	// restores it after the partial's own content if that content doesn't
	// already end in one.
	StandaloneNewline bool
}

func (n *Partial) Span() token.Span { return n.At }

// Block is a {{$name}}...{{/name}} named hole, either the default body
// inside a parent template or an override body at an inclusion site.
type Block struct {
	Name     string
	Children []Node
	At       token.Span
}

func (n *Block) Span() token.Span { return n.At }

// Parent is a {{<name}}...{{/name}} inheritance inclusion. Overrides maps
// block name to the including site's override children. Resolved is filled
// in by the loader once the parent template is loaded and its BlockNodes are
// rewritten per spec.md section 4.3.
type Parent struct {
	Name      string
	Overrides map[string][]Node
	Resolved  []Node
	At        token.Span
}

func (n *Parent) Span() token.Span { return n.At }

// Template is a fully-parsed (and, after loader resolution, fully-inlined)
// template body plus the metadata spec.md section 3 requires it to carry.
type Template struct {
	Source   string // resource identifier or "<inline>"
	Charset  string
	Nodes    []Node
	Partials map[string]struct{} // names referenced, for diagnostics
}
