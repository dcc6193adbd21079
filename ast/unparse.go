package ast

import "strings"

// Unparse reconstructs an approximate Mustache source rendering of nodes.
// It is used solely to recover the "raw body text" spec.md section 4.4
// requires be handed to a section lambda: the reconstruction is
// semantically equivalent to the original source but is not guaranteed
// byte-identical. Tags are always written with the default "{{ }}"
// delimiters (raw variables as "{{{name}}}"), resolved partials and blocks
// appear as their content, and whitespace trimmed by the standalone-line
// rule is not restored.
func Unparse(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		unparseNode(&b, n)
	}
	return b.String()
}

func unparseNode(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Text:
		b.WriteString(v.Literal)
	case *Var:
		if v.Escaped {
			b.WriteString("{{" + v.PathExpr.String() + "}}")
		} else {
			b.WriteString("{{{" + v.PathExpr.String() + "}}}")
		}
	case *Section:
		b.WriteString("{{#" + v.PathExpr.String() + "}}")
		b.WriteString(Unparse(v.Children))
		b.WriteString("{{/" + v.PathExpr.String() + "}}")
	case *Inverted:
		b.WriteString("{{^" + v.PathExpr.String() + "}}")
		b.WriteString(Unparse(v.Children))
		b.WriteString("{{/" + v.PathExpr.String() + "}}")
	case *Partial:
		if v.Resolved != nil {
			b.WriteString(Unparse(v.Resolved))
		} else {
			b.WriteString("{{>" + v.Name + "}}")
		}
	case *Block:
		b.WriteString(Unparse(v.Children))
	case *Parent:
		b.WriteString(Unparse(v.Resolved))
	}
}
