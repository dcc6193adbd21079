package codegen

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jstachio-go/jstachio/loader"
	"github.com/jstachio-go/jstachio/model"
	"github.com/jstachio-go/jstachio/resolve"
)

type widget struct {
	Name     string
	Tags     []string
	Child    *widget
	Wrap     func(string) string
	Nickname *string
}

func generate(t *testing.T, src string) *Result {
	t.Helper()
	tmpl, err := loader.Load(loader.Options{Inline: src})
	if err != nil {
		t.Fatalf("loader.Load: %v", err)
	}
	c := model.NewCatalog()
	d := c.Describe(reflect.TypeOf(widget{}))
	r, err := resolve.Resolve(c, tmpl, d)
	if err != nil {
		t.Fatalf("resolve.Resolve: %v", err)
	}
	ts := model.TemplateSpec{Model: widget{}}
	res, err := Generate("gen", ts, tmpl, r, "", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func TestGenerateProducesRendererType(t *testing.T) {
	res := generate(t, "Hi {{Name}}")
	if res.RendererName != "widgetRenderer" {
		t.Fatalf("got RendererName %q", res.RendererName)
	}
	src := string(res.Source)
	if !strings.Contains(src, "type widgetRenderer struct{}") {
		t.Fatalf("missing renderer type decl: %s", src)
	}
	if !strings.Contains(src, "func (r widgetRenderer) Execute(m widget, out runtime.Sink) error {") {
		t.Fatalf("missing Execute signature: %s", src)
	}
	if !strings.Contains(src, `format.DefaultString(m.Name)`) {
		t.Fatalf("missing formatted field access: %s", src)
	}
	if !strings.Contains(src, "escape.HTMLString") {
		t.Fatalf("expected default HTML escaping: %s", src)
	}
}

func TestGenerateCoalescesLiteralText(t *testing.T) {
	res := generate(t, "a b c {{Name}} d e f")
	src := string(res.Source)
	if !strings.Contains(src, `runtime.StringWriter(out, "a b c ")`) {
		t.Fatalf("expected coalesced leading literal: %s", src)
	}
	if !strings.Contains(src, `runtime.StringWriter(out, " d e f")`) {
		t.Fatalf("expected coalesced trailing literal: %s", src)
	}
}

func TestGenerateLoopSectionEmitsRangeAndIndexMeta(t *testing.T) {
	res := generate(t, "{{#Tags}}{{.}}-{{-index}}{{/Tags}}")
	src := string(res.Source)
	if !strings.Contains(src, "for idx0, item0 := range n0 {") {
		t.Fatalf("expected a range loop over Tags: %s", src)
	}
	if !strings.Contains(src, "format.DefaultString(idx0)") {
		t.Fatalf("expected {{-index}} to write the loop counter: %s", src)
	}
}

func TestGenerateNullableSectionGuardsNilPointer(t *testing.T) {
	res := generate(t, "{{#Child}}{{Name}}{{/Child}}")
	src := string(res.Source)
	if !strings.Contains(src, "if v0 := m.Child; v0 != nil {") {
		t.Fatalf("expected a nil guard for Child: %s", src)
	}
	if !strings.Contains(src, "(*v0).Name") {
		t.Fatalf("expected the pushed frame to access Name off the dereferenced pointer: %s", src)
	}
}

func TestGenerateNullableVarGuardsNilPointerBeforeFormatting(t *testing.T) {
	res := generate(t, "{{Nickname}}")
	src := string(res.Source)
	if !strings.Contains(src, "if v0 := m.Nickname; v0 != nil {") {
		t.Fatalf("expected a nil guard for Nickname: %s", src)
	}
	if !strings.Contains(src, "format.DefaultString(*v0)") {
		t.Fatalf("expected the formatted write to dereference the pointer, not format the pointer itself: %s", src)
	}
}

func TestGenerateInvertedIterableChecksLength(t *testing.T) {
	res := generate(t, "{{^Tags}}none{{/Tags}}")
	src := string(res.Source)
	if !strings.Contains(src, "if len(m.Tags) == 0 {") {
		t.Fatalf("expected a zero-length check: %s", src)
	}
}

func TestGenerateRawInterpolationSkipsEscaping(t *testing.T) {
	res := generate(t, "{{{Name}}}")
	src := string(res.Source)
	if !strings.Contains(src, "escape.RawString(s)") {
		t.Fatalf("expected raw interpolation to use escape.RawString: %s", src)
	}
}

func TestGenerateOmitsEscapeAndFormatImportsWhenUnused(t *testing.T) {
	res := generate(t, "plain text, no tags, {{#Tags}}{{/Tags}}")
	src := string(res.Source)
	if strings.Contains(src, `"github.com/jstachio-go/jstachio/escape"`) {
		t.Fatalf("expected no escape import for an interpolation-free template: %s", src)
	}
	if strings.Contains(src, `"github.com/jstachio-go/jstachio/format"`) {
		t.Fatalf("expected no format import for an interpolation-free template: %s", src)
	}
	if !strings.Contains(src, `"github.com/jstachio-go/jstachio/runtime"`) {
		t.Fatalf("expected the runtime import to still be present: %s", src)
	}
}

func TestGenerateIncludesEscapeAndFormatImportsWhenUsed(t *testing.T) {
	res := generate(t, "Hi {{Name}}")
	src := string(res.Source)
	if !strings.Contains(src, `"github.com/jstachio-go/jstachio/escape"`) {
		t.Fatalf("expected an escape import once a formatted write is emitted: %s", src)
	}
	if !strings.Contains(src, `"github.com/jstachio-go/jstachio/format"`) {
		t.Fatalf("expected a format import once a formatted write is emitted: %s", src)
	}
}

func TestGenerateBodyTextLambdaSectionCallsWithRawText(t *testing.T) {
	res := generate(t, "{{#Wrap}}hello {{Name}}{{/Wrap}}")
	src := string(res.Source)
	if !strings.Contains(src, `m.Wrap("hello {{Name}}")`) {
		t.Fatalf("expected the lambda to be called with the reconstructed raw body text: %s", src)
	}
	if !strings.Contains(src, "runtime.RenderMiniTemplate(lres, lookup0)") {
		t.Fatalf("expected the lambda's result to be re-rendered against a lookup closure: %s", src)
	}
}

func TestGenerateInterfacesEmitsCompileTimeAssertion(t *testing.T) {
	tmpl, err := loader.Load(loader.Options{Inline: "hi"})
	if err != nil {
		t.Fatalf("loader.Load: %v", err)
	}
	c := model.NewCatalog()
	d := c.Describe(reflect.TypeOf(widget{}))
	r, err := resolve.Resolve(c, tmpl, d)
	if err != nil {
		t.Fatalf("resolve.Resolve: %v", err)
	}
	ts := model.TemplateSpec{
		Model: widget{},
		Interfaces: []model.InterfaceRef{
			{ImportPath: "io", PackageAlias: "io", TypeName: "Closer"},
		},
	}
	res, err := Generate("gen", ts, tmpl, r, "", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	src := string(res.Source)
	if !strings.Contains(src, `"io"`) {
		t.Fatalf("expected the interface's own import: %s", src)
	}
	if !strings.Contains(src, "var _ io.Closer = (*widgetRenderer)(nil)") {
		t.Fatalf("expected a compile-time interface assertion: %s", src)
	}
}

func TestGenerateWriteChecksCharsetBeforeExecute(t *testing.T) {
	res := generate(t, "hi")
	src := string(res.Source)
	if !strings.Contains(src, "out.Charset() != r.TemplateCharset()") {
		t.Fatalf("expected a charset guard in Write: %s", src)
	}
	if !strings.Contains(src, "UnsupportedCharsetFailure") {
		t.Fatalf("expected UnsupportedCharsetFailure on mismatch: %s", src)
	}
}
