// Package codegen lowers a resolved ast.Template into the Go source of a
// type implementing runtime.Renderer[M] (spec.md section 4.5, "Code
// emitter"). Output is assembled with a bytes.Buffer, identical to
// dingo-generator's text+gofmt emission idiom, then passed through
// go/format.Source before being handed back to the driver for writing.
package codegen

import (
	"bytes"
	"fmt"
	goformat "go/format"
	"sort"
	"strconv"
	"strings"

	"github.com/jstachio-go/jstachio/ast"
	"github.com/jstachio-go/jstachio/escape"
	"github.com/jstachio-go/jstachio/format"
	"github.com/jstachio-go/jstachio/model"
	"github.com/jstachio-go/jstachio/resolve"
)

// Result is one generated renderer source file plus the metadata the driver
// needs to write and report on it.
type Result struct {
	PackageName  string
	RendererName string
	Source       []byte
}

// frame mirrors one entry of resolve.Resolver's context stack during
// emission: the Go expression that currently holds that frame's value, plus
// loop-metadata expressions when the frame was pushed for an iterable
// section.
type frame struct {
	expr         string
	descriptor   *model.Descriptor
	hasIndexMeta bool
	idxVar       string
	lenExpr      string
}

type emitter struct {
	buf      bytes.Buffer
	ts       model.TemplateSpec
	resolver *resolve.Resolver
	escaper  escape.Escaper
	fmtr     format.Formatter
	pkg      string
	modelRef string // how the model type is referenced from generated code, e.g. "mypkg.Person"
	frames   []frame
	depth    int
	err      error
	// usesFormatting is set once any formatted/escaped write is emitted, so
	// writeHeader can decide whether the generated file actually needs the
	// escape/format imports (a template with no interpolation, e.g. plain
	// text or a bare boolean section, needs neither).
	usesFormatting bool
}

// Generate emits the Go source of ts's renderer type. tmpl must already be
// fully inlined (loader.Load's output) and resolver must be the result of
// resolve.Resolve against tmpl and ts's model type.
func Generate(pkg string, ts model.TemplateSpec, tmpl *ast.Template, resolver *resolve.Resolver, modelImportPath, modelPkgName string) (*Result, error) {
	e := &emitter{
		ts:       ts,
		resolver: resolver,
		escaper:  escape.For(escape.Name(ts.ContentType)),
		fmtr:     format.For(format.Name(ts.Formatter)),
		pkg:      pkg,
	}
	modelTypeName := ts.ModelType().Name()
	if modelPkgName != "" {
		e.modelRef = modelPkgName + "." + modelTypeName
	} else {
		e.modelRef = modelTypeName
	}

	rendererName := ts.RendererTypeName()
	e.frames = []frame{{expr: "m", descriptor: describeModel(ts)}}

	// The body is emitted first so usesFormatting is known by the time the
	// header (and its import list) is written; the header is assembled into
	// its own buffer and prepended afterward.
	e.writeAccessors(rendererName)
	e.writeExecute(rendererName, tmpl.Nodes)
	e.writeWrite(rendererName)

	if e.err != nil {
		return nil, e.err
	}

	var header bytes.Buffer
	e.writeHeader(&header, rendererName, modelImportPath, modelPkgName)

	full := append(header.Bytes(), e.buf.Bytes()...)
	out, err := goformat.Source(full)
	if err != nil {
		return nil, fmt.Errorf("codegen: generated source for %s did not gofmt: %w\n%s", rendererName, err, full)
	}
	return &Result{PackageName: pkg, RendererName: rendererName, Source: out}, nil
}

func describeModel(ts model.TemplateSpec) *model.Descriptor {
	c := model.NewCatalog()
	return c.Describe(ts.ModelType())
}

func (e *emitter) writeHeader(buf *bytes.Buffer, rendererName, modelImportPath, modelPkgName string) {
	fmt.Fprintf(buf, "// Code generated by jstachio. DO NOT EDIT.\n\n")
	fmt.Fprintf(buf, "package %s\n\n", e.pkg)
	fmt.Fprintf(buf, "import (\n")
	fmt.Fprintf(buf, "\t%q\n", "reflect")
	if modelImportPath != "" {
		fmt.Fprintf(buf, "\t%s %q\n", modelPkgName, modelImportPath)
	}
	if e.usesFormatting {
		fmt.Fprintf(buf, "\t%q\n", "github.com/jstachio-go/jstachio/escape")
		fmt.Fprintf(buf, "\t%q\n", "github.com/jstachio-go/jstachio/format")
	}
	fmt.Fprintf(buf, "\t%q\n", "github.com/jstachio-go/jstachio/runtime")
	for _, ir := range e.ts.Interfaces {
		if ir.ImportPath == "" {
			continue
		}
		fmt.Fprintf(buf, "\t%s %q\n", ir.PackageAlias, ir.ImportPath)
	}
	fmt.Fprintf(buf, ")\n\n")
	fmt.Fprintf(buf, "// %s renders %s (spec.md section 6, \"generated renderer contract\").\n", rendererName, e.modelRef)
	fmt.Fprintf(buf, "type %s struct{}\n\n", rendererName)
	for _, ir := range e.ts.Interfaces {
		fmt.Fprintf(buf, "var _ %s = (*%s)(nil)\n\n", ir.QualifiedName(), rendererName)
	}
}

func (e *emitter) writeAccessors(rendererName string) {
	fmt.Fprintf(&e.buf, "func (%s) TemplateCharset() string { return %q }\n\n", rendererName, e.ts.EffectiveCharset())
	fmt.Fprintf(&e.buf, "func (%s) SupportsType(t reflect.Type) bool {\n", rendererName)
	fmt.Fprintf(&e.buf, "\treturn t == reflect.TypeOf((*%s)(nil)).Elem()\n", e.modelRef)
	fmt.Fprintf(&e.buf, "}\n\n")
}

func (e *emitter) writeWrite(rendererName string) {
	fmt.Fprintf(&e.buf, "func (r %s) Write(m %s, out runtime.ByteSink) error {\n", rendererName, e.modelRef)
	fmt.Fprintf(&e.buf, "\tif out.Charset() != r.TemplateCharset() {\n")
	fmt.Fprintf(&e.buf, "\t\treturn &runtime.UnsupportedCharsetFailure{Renderer: %q, TemplateCharset: r.TemplateCharset(), SinkCharset: out.Charset()}\n", rendererName)
	fmt.Fprintf(&e.buf, "\t}\n")
	fmt.Fprintf(&e.buf, "\treturn r.Execute(m, out)\n")
	fmt.Fprintf(&e.buf, "}\n\n")
}

func (e *emitter) writeExecute(rendererName string, nodes []ast.Node) {
	fmt.Fprintf(&e.buf, "func (r %s) Execute(m %s, out runtime.Sink) error {\n", rendererName, e.modelRef)
	e.emitNodes(nodes)
	fmt.Fprintf(&e.buf, "\treturn nil\n")
	fmt.Fprintf(&e.buf, "}\n\n")
}

func (e *emitter) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// emitNodes lowers a node list, coalescing consecutive Text nodes into a
// single literal write (spec.md section 4.5, "coalesces adjacent literal
// text into a single write").
func (e *emitter) emitNodes(nodes []ast.Node) {
	i := 0
	for i < len(nodes) {
		if t, ok := nodes[i].(*ast.Text); ok {
			var sb strings.Builder
			sb.WriteString(t.Literal)
			j := i + 1
			for j < len(nodes) {
				t2, ok := nodes[j].(*ast.Text)
				if !ok {
					break
				}
				sb.WriteString(t2.Literal)
				j++
			}
			e.emitLiteral(sb.String())
			i = j
			continue
		}
		e.emitNode(nodes[i])
		i++
	}
}

func (e *emitter) emitLiteral(s string) {
	if s == "" {
		return
	}
	fmt.Fprintf(&e.buf, "\tif err := runtime.StringWriter(out, %s); err != nil {\n\t\treturn err\n\t}\n", strconv.Quote(s))
}

func (e *emitter) emitNode(n ast.Node) {
	switch v := n.(type) {
	case *ast.Var:
		e.emitVar(v)
	case *ast.Section:
		e.emitSection(v)
	case *ast.Inverted:
		e.emitInverted(v)
	case *ast.Block:
		e.emitNodes(v.Children)
	case *ast.Partial:
		e.emitNodes(v.Resolved)
	case *ast.Parent:
		e.emitNodes(v.Resolved)
	}
}

func (e *emitter) emitVar(v *ast.Var) {
	expr, ok := e.resolver.Vars[v]
	if !ok {
		e.fail(fmt.Errorf("codegen: %s: no resolved expression for %s", v.Span(), v.PathExpr))
		return
	}
	if expr.AtContext {
		e.emitAtContextVar(v, expr)
		return
	}
	if expr.IsIndexMeta != "" {
		e.emitIndexMetaVar(expr)
		return
	}
	if expr.EndsIn == resolve.EndsInLambda {
		e.emitLambdaVar(v, expr)
		return
	}
	if expr.EndsIn == resolve.EndsInNullable {
		e.emitNullableVar(v, expr)
		return
	}
	valExpr := e.accessExpr(expr)
	e.emitFormattedWrite(valExpr, v.Escaped)
}

// emitNullableVar guards a bare {{var}}/{{{var}}} over a nullable-of-
// formattable field the same way emitNullableSection guards a section: a nil
// pointer must render as the empty string (spec.md section 4.5, "of null
// ... emits the empty string"), not format.DefaultString's %v rendering of
// the pointer itself (its address, or "<nil>" for a nil pointer).
func (e *emitter) emitNullableVar(v *ast.Var, expr resolve.Expr) {
	base := e.accessExpr(expr)
	depth := e.depth
	e.depth++
	ptrVar := fmt.Sprintf("v%d", depth)
	fmt.Fprintf(&e.buf, "\tif %s := %s; %s != nil {\n", ptrVar, base, ptrVar)
	e.emitFormattedWrite("*"+ptrVar, v.Escaped)
	fmt.Fprintf(&e.buf, "\t}\n")
	e.depth--
}

func (e *emitter) emitFormattedWrite(valExpr string, escaped bool) {
	e.usesFormatting = true
	escFunc := e.escaper.FuncName()
	if !escaped {
		escFunc = "escape.RawString"
	}
	fmt.Fprintf(&e.buf, "\tif s, err := %s(%s); err != nil {\n\t\treturn err\n\t} else if err := runtime.StringWriter(out, %s(s)); err != nil {\n\t\treturn err\n\t}\n", e.fmtr.FuncName(), valExpr, escFunc)
}

func (e *emitter) emitAtContextVar(v *ast.Var, expr resolve.Expr) {
	e.usesFormatting = true
	key := v.PathExpr.ContextKey()
	escFunc := e.escaper.FuncName()
	if !v.Escaped {
		escFunc = "escape.RawString"
	}
	fmt.Fprintf(&e.buf, "\tif cp, ok := any(m).(runtime.ContextProvider); ok {\n")
	fmt.Fprintf(&e.buf, "\t\tif val, ok2 := cp.Context(%q); ok2 {\n", key)
	fmt.Fprintf(&e.buf, "\t\t\tif s, err := %s(val); err != nil {\n\t\t\t\treturn err\n\t\t\t} else if err := runtime.StringWriter(out, %s(s)); err != nil {\n\t\t\t\treturn err\n\t\t\t}\n", e.fmtr.FuncName(), escFunc)
	fmt.Fprintf(&e.buf, "\t\t}\n\t}\n")
}

func (e *emitter) emitIndexMetaVar(expr resolve.Expr) {
	fr := e.frames[expr.FrameIndex]
	var valExpr string
	switch expr.IsIndexMeta {
	case "index":
		valExpr = fr.idxVar
	case "first":
		valExpr = fmt.Sprintf("(%s == 0)", fr.idxVar)
	case "last":
		valExpr = fmt.Sprintf("(%s == %s-1)", fr.idxVar, fr.lenExpr)
	}
	e.emitFormattedWrite(valExpr, true)
}

func (e *emitter) emitLambdaVar(v *ast.Var, expr resolve.Expr) {
	fnExpr := e.accessExpr(expr)
	callExpr := fmt.Sprintf("%s()", fnExpr)
	e.emitFormattedWrite(callExpr, v.Escaped)
}

// accessExpr renders expr's Go chain rooted at its frame.
func (e *emitter) accessExpr(expr resolve.Expr) string {
	base := e.frames[expr.FrameIndex].expr
	for _, m := range expr.Accessors {
		if m.ViaField {
			base = base + "." + m.GoName
		} else {
			base = base + "." + m.Method + "()"
		}
	}
	return base
}

func (e *emitter) emitSection(v *ast.Section) {
	expr, ok := e.resolver.Sections[v]
	if !ok {
		e.fail(fmt.Errorf("codegen: %s: no resolved expression for section %s", v.Span(), v.PathExpr))
		return
	}
	if expr.IsIndexMeta == "first" || expr.IsIndexMeta == "last" {
		e.emitIndexMetaSection(v, expr)
		return
	}
	if expr.IsIndexMeta == "index" {
		e.emitNodes(v.Children) // "-index" is always present; render unconditionally
		return
	}
	switch expr.EndsIn {
	case resolve.EndsInIterable:
		e.emitLoopSection(v, expr)
	case resolve.EndsInBoolean:
		base := e.accessExpr(expr)
		fmt.Fprintf(&e.buf, "\tif %s {\n", base)
		e.emitNodes(v.Children)
		fmt.Fprintf(&e.buf, "\t}\n")
	case resolve.EndsInNullable:
		e.emitNullableSection(v, expr)
	case resolve.EndsInRecord, resolve.EndsInMap:
		e.pushValueFrame(expr)
		e.emitNodes(v.Children)
		e.popFrame()
	case resolve.EndsInLambda:
		e.emitLambdaSection(v, expr)
	default:
		e.emitNodes(v.Children)
	}
}

func (e *emitter) emitIndexMetaSection(v *ast.Section, expr resolve.Expr) {
	fr := e.frames[expr.FrameIndex]
	var cond string
	if expr.IsIndexMeta == "first" {
		cond = fmt.Sprintf("%s == 0", fr.idxVar)
	} else {
		cond = fmt.Sprintf("%s == %s-1", fr.idxVar, fr.lenExpr)
	}
	fmt.Fprintf(&e.buf, "\tif %s {\n", cond)
	e.emitNodes(v.Children)
	fmt.Fprintf(&e.buf, "\t}\n")
}

func (e *emitter) emitInverted(v *ast.Inverted) {
	expr, ok := e.resolver.Inverted[v]
	if !ok {
		e.fail(fmt.Errorf("codegen: %s: no resolved expression for inverted section %s", v.Span(), v.PathExpr))
		return
	}
	switch expr.EndsIn {
	case resolve.EndsInIterable:
		base := e.accessExpr(expr)
		fmt.Fprintf(&e.buf, "\tif len(%s) == 0 {\n", base)
		e.emitNodes(v.Children)
		fmt.Fprintf(&e.buf, "\t}\n")
	case resolve.EndsInBoolean:
		base := e.accessExpr(expr)
		fmt.Fprintf(&e.buf, "\tif !(%s) {\n", base)
		e.emitNodes(v.Children)
		fmt.Fprintf(&e.buf, "\t}\n")
	case resolve.EndsInNullable:
		base := e.accessExpr(expr)
		fmt.Fprintf(&e.buf, "\tif %s == nil {\n", base)
		e.emitNodes(v.Children)
		fmt.Fprintf(&e.buf, "\t}\n")
	case resolve.EndsInRecord, resolve.EndsInMap:
		// Always present (spec.md section 8/9b: an empty map is not falsy),
		// so the inverted body never fires.
	default:
		// Unknown/value kinds are treated as always-present.
	}
}

func (e *emitter) emitLoopSection(v *ast.Section, expr resolve.Expr) {
	base := e.accessExpr(expr)
	depth := e.depth
	e.depth++
	itemVar := fmt.Sprintf("item%d", depth)
	idxVar := fmt.Sprintf("idx%d", depth)
	lenVar := fmt.Sprintf("n%d", depth)
	fmt.Fprintf(&e.buf, "\t%s := %s\n", lenVar, base)
	fmt.Fprintf(&e.buf, "\tfor %s, %s := range %s {\n", idxVar, itemVar, lenVar)
	e.frames = append(e.frames, frame{
		expr:         itemVar,
		descriptor:   expr.Terminal,
		hasIndexMeta: true,
		idxVar:       idxVar,
		lenExpr:      "len(" + lenVar + ")",
	})
	e.emitNodes(v.Children)
	e.popFrame()
	fmt.Fprintf(&e.buf, "\t}\n")
	e.depth--
}

func (e *emitter) emitNullableSection(v *ast.Section, expr resolve.Expr) {
	base := e.accessExpr(expr)
	depth := e.depth
	e.depth++
	ptrVar := fmt.Sprintf("v%d", depth)
	fmt.Fprintf(&e.buf, "\tif %s := %s; %s != nil {\n", ptrVar, base, ptrVar)
	e.frames = append(e.frames, frame{expr: "(*" + ptrVar + ")", descriptor: expr.Terminal})
	e.emitNodes(v.Children)
	e.popFrame()
	fmt.Fprintf(&e.buf, "\t}\n")
	e.depth--
}

func (e *emitter) pushValueFrame(expr resolve.Expr) {
	base := e.accessExpr(expr)
	e.frames = append(e.frames, frame{expr: base, descriptor: expr.Terminal})
}

func (e *emitter) popFrame() {
	e.frames = e.frames[:len(e.frames)-1]
}

// emitLambdaSection lowers a lambda section (spec.md section 4.4): the
// section's reconstructed raw body text is passed to the lambda, and the
// returned string is re-rendered as an inline template against the current
// frame's direct members (runtime.RenderMiniTemplate).
func (e *emitter) emitLambdaSection(v *ast.Section, expr resolve.Expr) {
	fnExpr := e.accessExpr(expr)
	rawText := ast.Unparse(v.Children)
	cur := e.frames[len(e.frames)-1]
	lookupVar := fmt.Sprintf("lookup%d", e.depth)
	e.depth++
	fmt.Fprintf(&e.buf, "\t%s := %s\n", lookupVar, e.lookupClosure(cur))
	switch expr.Terminal.Lambda {
	case model.LambdaBodyTextAndRender:
		fmt.Fprintf(&e.buf, "\tif lres, err := %s(%s, func(s string) string {\n", fnExpr, strconv.Quote(rawText))
		fmt.Fprintf(&e.buf, "\t\trendered, _ := runtime.RenderMiniTemplate(s, %s)\n\t\treturn rendered\n\t}); err == nil {\n", lookupVar)
		fmt.Fprintf(&e.buf, "\t\tif rendered, err := runtime.RenderMiniTemplate(lres, %s); err == nil {\n", lookupVar)
		fmt.Fprintf(&e.buf, "\t\t\tif err := runtime.StringWriter(out, rendered); err != nil {\n\t\t\t\treturn err\n\t\t\t}\n\t\t}\n\t}\n")
	case model.LambdaBodyText:
		fmt.Fprintf(&e.buf, "\tif lres := %s(%s); true {\n", fnExpr, strconv.Quote(rawText))
		fmt.Fprintf(&e.buf, "\t\tif rendered, err := runtime.RenderMiniTemplate(lres, %s); err == nil {\n", lookupVar)
		fmt.Fprintf(&e.buf, "\t\t\tif err := runtime.StringWriter(out, rendered); err != nil {\n\t\t\t\treturn err\n\t\t\t}\n\t\t}\n\t}\n")
	default:
		// resolve.Resolve rejects a zero-argument lambda in section position
		// before codegen ever sees one (it has no parameter to receive the
		// section's body text), so this is unreachable in practice.
		e.fail(fmt.Errorf("codegen: %s: lambda section requires a text-accepting lambda, got shape %v", v.Span(), expr.Terminal.Lambda))
	}
	e.depth--
}

// lookupClosure builds a runtime.ContextLookup literal enumerating fr's
// direct members by name, used to evaluate a lambda's re-rendered result
// against the section's current context (spec.md section 4.4).
func (e *emitter) lookupClosure(fr frame) string {
	var b strings.Builder
	b.WriteString("func(key string) (any, bool) {\n\t\tswitch key {\n")
	if fr.descriptor != nil && fr.descriptor.Members != nil {
		names := make([]string, 0, len(fr.descriptor.Members))
		for name := range fr.descriptor.Members {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m := fr.descriptor.Members[name]
			var accessExpr string
			if m.ViaField {
				accessExpr = fr.expr + "." + m.GoName
			} else {
				accessExpr = fr.expr + "." + m.Method + "()"
			}
			fmt.Fprintf(&b, "\t\tcase %q:\n\t\t\treturn %s, true\n", name, accessExpr)
		}
	}
	b.WriteString("\t\t}\n\t\treturn nil, false\n\t}")
	return b.String()
}
