// Package resolve implements the context-stack type resolver of spec.md
// section 4.4: it walks an ast.Template in pre-order over a stack of typed
// context frames and annotates every VarNode/SectionNode/InvertedNode with a
// resolved accessor chain. Grounded on observeinc-mustache's lookup.go
// (lookup/lookup_struct/lookup_map/lookup_array/truth), adapted from
// per-render reflect.Value lookups over live data to compile-time
// model.Descriptor lookups over static types, and on mustache.go's lookup,
// whose dotted-head-then-singleton-chain recursion is the source for the
// "dotted heads never fall through to a parent frame after the first hit"
// rule.
package resolve

import (
	"fmt"

	"github.com/jstachio-go/jstachio/ast"
	"github.com/jstachio-go/jstachio/model"
	"github.com/jstachio-go/jstachio/token"
)

// ResolveError is raised for an unknown name at the current stack, a
// non-formattable type at a variable, or wrong lambda arity. Unknown
// partials are not reported here: the loader inlines them as empty.
type ResolveError struct {
	Span    token.Span
	Message string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("error: %s: %s", e.Span, e.Message)
}

// FrameBinding describes how a frame's value is produced from the enclosing
// frame (spec.md section 3, Context frame: "a binding").
type FrameBinding int

const (
	BindModel FrameBinding = iota // frame 0: the model itself
	BindLoopElement
	BindFieldOrMethod
	BindLambdaResult
	BindAtContext
)

// Frame is one entry of the compile-time context stack.
type Frame struct {
	Descriptor *model.Descriptor
	Binding    FrameBinding
	// HasIndexMeta is true for loop frames, which additionally expose
	// "-index"/"-first"/"-last" pseudo-members (spec.md section 4.4/6).
	HasIndexMeta bool
}

// Expr is a resolved accessor chain: which frame it is rooted at, the
// sequence of member accessors from that frame's Descriptor down to the
// terminal type, and how emission should treat the terminal value.
type Expr struct {
	FrameIndex int
	Accessors  []model.Member
	EndsIn     EndsIn
	Terminal   *model.Descriptor
	// IsIndexMeta is non-empty when PathExpr resolved to "-index"/"-first"/
	// "-last" rather than a Descriptor member.
	IsIndexMeta string // "", "index", "first", or "last"
	// AtContext is true when the path's head was "@context": resolution
	// never walks the model stack and the access is a dynamic, possibly-
	// missing lookup performed at render time (spec.md section 4.5).
	AtContext bool
}

// EndsIn classifies what kind of value an Expr ultimately produces.
type EndsIn int

const (
	EndsInValue EndsIn = iota
	EndsInIterable
	EndsInLambda
	EndsInBoolean
	EndsInNullable
	EndsInRecord
	EndsInMap
)

// Resolver walks one ast.Template's nodes over a context stack rooted at a
// model.Descriptor, annotating nodes via the returned maps (ast nodes are
// immutable value-free trees so annotations live alongside the tree rather
// than inside it, unlike the teacher's mutable-element style).
type Resolver struct {
	stack []Frame
	// Vars/Sections/Inverted map each ast node pointer to its resolved
	// expression, keyed by identity since Path alone is ambiguous across
	// repeated template fragments (e.g. an inlined partial used twice).
	Vars     map[*ast.Var]Expr
	Sections map[*ast.Section]Expr
	Inverted map[*ast.Inverted]Expr
}

// Resolve type-checks tmpl against modelType, returning a Resolver whose
// Vars/Sections/Inverted maps hold every resolved expression.
func Resolve(catalog *model.Catalog, tmpl *ast.Template, modelType *model.Descriptor) (*Resolver, error) {
	r := &Resolver{
		stack:    []Frame{{Descriptor: modelType, Binding: BindModel}},
		Vars:     map[*ast.Var]Expr{},
		Sections: map[*ast.Section]Expr{},
		Inverted: map[*ast.Inverted]Expr{},
	}
	if err := r.walk(tmpl.Nodes); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolver) walk(nodes []ast.Node) error {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Text:
			// nothing to resolve
		case *ast.Var:
			expr, err := r.resolvePath(v.PathExpr, v.Span())
			if err != nil {
				return err
			}
			if !expr.AtContext && expr.EndsIn != EndsInLambda && expr.IsIndexMeta == "" {
				if expr.Terminal == nil || !expr.Terminal.Kind.Formattable() {
					kind := model.KindInvalid
					if expr.Terminal != nil {
						kind = expr.Terminal.Kind
					}
					return &ResolveError{Span: v.Span(), Message: fmt.Sprintf("%q is not formattable (kind %s)", v.PathExpr, kind)}
				}
			}
			r.Vars[v] = expr
		case *ast.Section:
			expr, err := r.resolvePath(v.PathExpr, v.Span())
			if err != nil {
				return err
			}
			r.Sections[v] = expr
			if err := r.walkSectionBody(v.Children, expr, v.Span()); err != nil {
				return err
			}
		case *ast.Inverted:
			expr, err := r.resolvePath(v.PathExpr, v.Span())
			if err != nil {
				return err
			}
			r.Inverted[v] = expr
			// Inverted bodies execute in the unchanged frame (spec.md
			// section 4.4).
			if err := r.walk(v.Children); err != nil {
				return err
			}
		case *ast.Partial:
			if err := r.walk(v.Resolved); err != nil {
				return err
			}
		case *ast.Parent:
			if err := r.walk(v.Resolved); err != nil {
				return err
			}
		case *ast.Block:
			if err := r.walk(v.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

// walkSectionBody pushes whatever new frame (if any) expr's terminal implies
// and walks the section's children under it, per spec.md section 4.4's
// per-Kind section classification.
func (r *Resolver) walkSectionBody(children []ast.Node, expr Expr, span token.Span) error {
	switch expr.EndsIn {
	case EndsInIterable:
		r.stack = append(r.stack, Frame{Descriptor: expr.Terminal, Binding: BindLoopElement, HasIndexMeta: true})
		defer r.pop()
		return r.walk(children)
	case EndsInBoolean:
		// Truthiness gate: no new frame value, body entered iff true.
		return r.walk(children)
	case EndsInNullable:
		r.stack = append(r.stack, Frame{Descriptor: expr.Terminal, Binding: BindFieldOrMethod})
		defer r.pop()
		return r.walk(children)
	case EndsInRecord, EndsInMap:
		r.stack = append(r.stack, Frame{Descriptor: expr.Terminal, Binding: BindFieldOrMethod})
		defer r.pop()
		return r.walk(children)
	case EndsInLambda:
		// Lambda sections re-render their raw body text as an inline
		// template in the *current* context at emission time (spec.md
		// section 4.4); the AST children are still type-checked here so a
		// lambda section's nested {{vars}} are validated against the
		// unchanged top frame, matching the "lambda-re-parse" semantics.
		// Only a lambda that accepts the section's raw text can be used in
		// section position; a zero-arg lambda has nowhere to receive it and
		// is valid only at a {{var}} position.
		if expr.Terminal != nil && expr.Terminal.Lambda == model.LambdaZeroArg {
			return &ResolveError{Span: span, Message: "a zero-argument lambda cannot be used as a section; it does not accept the section's body text"}
		}
		return r.walk(children)
	default:
		return r.walk(children)
	}
}

func (r *Resolver) pop() {
	r.stack = r.stack[:len(r.stack)-1]
}

// resolvePath implements spec.md section 4.4's three-step algorithm.
func (r *Resolver) resolvePath(p ast.Path, span token.Span) (Expr, error) {
	if len(p) == 0 {
		return Expr{}, &ResolveError{Span: span, Message: "empty path"}
	}
	if p.IsAtContext() {
		return Expr{AtContext: true, EndsIn: EndsInValue}, nil
	}
	if p.IsDot() {
		top := r.stack[len(r.stack)-1]
		return exprFromDescriptor(len(r.stack)-1, nil, top.Descriptor), nil
	}

	head := p[0]
	frameIdx := -1
	var headMember model.Member
	var indexMeta string
	for i := len(r.stack) - 1; i >= 0; i-- {
		f := r.stack[i]
		if f.HasIndexMeta && (head == "-index" || head == "-first" || head == "-last") {
			frameIdx = i
			indexMeta = head[1:]
			break
		}
		if f.Descriptor != nil && f.Descriptor.Members != nil {
			if m, ok := f.Descriptor.Members[head]; ok {
				frameIdx = i
				headMember = m
				break
			}
		}
	}
	if frameIdx < 0 {
		return Expr{}, &ResolveError{Span: span, Message: fmt.Sprintf("unknown name %q at current context stack", head)}
	}
	if indexMeta != "" {
		if len(p) != 1 {
			return Expr{}, &ResolveError{Span: span, Message: fmt.Sprintf("%q cannot be used as a path prefix", head)}
		}
		endsIn := EndsInValue
		return Expr{FrameIndex: frameIdx, EndsIn: endsIn, IsIndexMeta: indexMeta}, nil
	}

	// Dotted heads never fall through to a parent frame after the first
	// hit: subsequent segments resolve only against headMember's own type,
	// per spec.md section 4.4 step 2 (grounded on mustache.go's lookup,
	// which recurses into a singleton []interface{}{v} chain for the
	// remainder of a dotted name).
	accessors := []model.Member{headMember}
	cur := headMember.Elem
	for _, seg := range p[1:] {
		if cur == nil || cur.Members == nil {
			return Expr{}, &ResolveError{Span: span, Message: fmt.Sprintf("segment %q of %q has no members to resolve against", seg, p)}
		}
		m, ok := cur.Members[seg]
		if !ok {
			return Expr{}, &ResolveError{Span: span, Message: fmt.Sprintf("unknown member %q", seg)}
		}
		accessors = append(accessors, m)
		cur = m.Elem
	}
	return exprFromDescriptor(frameIdx, accessors, cur), nil
}

func exprFromDescriptor(frameIdx int, accessors []model.Member, d *model.Descriptor) Expr {
	e := Expr{FrameIndex: frameIdx, Accessors: accessors, Terminal: d}
	if d == nil {
		e.EndsIn = EndsInValue
		return e
	}
	switch d.Kind {
	case model.KindIterable, model.KindArray:
		e.EndsIn = EndsInIterable
		e.Terminal = d.Elem
	case model.KindBool:
		e.EndsIn = EndsInBoolean
	case model.KindNullable:
		e.EndsIn = EndsInNullable
		e.Terminal = d.Elem
	case model.KindLambda:
		e.EndsIn = EndsInLambda
	case model.KindMap:
		e.EndsIn = EndsInMap
	case model.KindRecord:
		e.EndsIn = EndsInRecord
	default:
		e.EndsIn = EndsInValue
	}
	return e
}
