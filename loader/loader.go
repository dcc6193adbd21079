// Package loader resolves template and partial text from an inline string, a
// named resource, or a remapped partial, and performs the eager recursive
// partial/parent inlining of spec.md section 4.3. The Provider/FileProvider/
// StaticProvider split is a direct generalization of the teacher's
// partials.go PartialProvider/FileProvider/StaticProvider, extended with
// path-mapping rules. Template text is used as the provider returns it; no
// charset decoding is performed.
package loader

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/jstachio-go/jstachio/ast"
	"github.com/jstachio-go/jstachio/parse"
)

// DefaultPartialDepthLimit bounds recursive partial/parent resolution to
// break cycles, per spec.md section 4.3.
const DefaultPartialDepthLimit = 64

// IOError is raised when the top-level template resource cannot be found,
// when no template source is configured, and when partial/parent resolution
// exceeds the depth limit.
type IOError struct {
	Name    string
	Message string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("error: %s: %s", e.Name, e.Message)
}

// Rule is an ordered (prefix, replacement) path-mapping rule, applied to
// template/partial paths before resource lookup (spec.md section 6).
type Rule struct {
	Prefix      string
	Replacement string
}

func applyRules(rules []Rule, p string) string {
	for _, r := range rules {
		if strings.HasPrefix(p, r.Prefix) {
			return r.Replacement + strings.TrimPrefix(p, r.Prefix)
		}
	}
	return p
}

// Provider supplies template bytes by name: a partial name, or a resource
// path. It is the generalization of partials.go's PartialProvider (Get
// returned *Template there; here it returns the template text, since
// parsing now happens once per resolved template rather than per Get).
type Provider interface {
	// Get returns the text of the named resource. A provider that cannot
	// find name returns ("", false, nil). The loader reports that as an
	// IOError for the top-level template; a partial or parent that is not
	// found inlines as an empty template and is not an error.
	Get(name string) (data string, ok bool, err error)
}

// FileProvider resolves resources from a filesystem, searching each listed
// root path for name followed by each listed extension -- the same search
// order as the teacher's partials.go FileProvider.
type FileProvider struct {
	Roots       []string
	Extensions  []string
	PathMapping []Rule
}

func (fp *FileProvider) Get(name string) (string, bool, error) {
	name = applyRules(fp.PathMapping, name)
	roots := fp.Roots
	if len(roots) == 0 {
		roots = []string{""}
	}
	exts := fp.Extensions
	if len(exts) == 0 {
		exts = []string{"", ".mustache", ".stache"}
	}
	for _, root := range roots {
		for _, ext := range exts {
			full := path.Join(root, name+ext)
			data, err := os.ReadFile(full)
			if err == nil {
				return string(data), true, nil
			}
		}
	}
	return "", false, nil
}

var _ Provider = (*FileProvider)(nil)

// StaticProvider resolves resources from an in-memory map of name to
// template text, mirroring the teacher's StaticProvider. Used by tests; the
// CLI uses FileProvider, and its "partials:" entries become
// Options.PartialOverrides.
type StaticProvider struct {
	Templates map[string]string
}

func (sp *StaticProvider) Get(name string) (string, bool, error) {
	data, ok := sp.Templates[name]
	return data, ok, nil
}

var _ Provider = (*StaticProvider)(nil)

// Options configures one Load call.
type Options struct {
	// Inline, if non-empty, is used verbatim as the top-level template text,
	// bypassing Provider/Path entirely (spec.md section 4.3, resolution
	// order step 1).
	Inline string
	// Path is the resource identifier of the top-level template, used if
	// Inline is empty (resolution order step 2).
	Path string
	// DefaultName is synthesized ("<ModelSimpleName>.mustache") and tried if
	// both Inline and Path are empty (resolution order step 3).
	DefaultName string
	// Provider resolves the top-level template's Path/DefaultName, and any
	// partial/parent name not present in PartialOverrides.
	Provider Provider
	// PartialOverrides redirects specific partial names to inline text or,
	// if the value starts with "path:", to a path resolved via Provider.
	PartialOverrides map[string]string
	// PathMapping rules are applied to the top-level Path/DefaultName and to
	// any partial path resolved through Provider.
	PathMapping []Rule
	// DepthLimit bounds recursive partial/parent resolution.
	DepthLimit int
}

// Load resolves opts into a fully-parsed, fully-inlined ast.Template: every
// ast.Partial and ast.Parent node in the result has its Resolved field
// filled in (spec.md section 3, Template: "a fully inlined tree containing
// no unresolved ParentNodes").
func Load(opts Options) (*ast.Template, error) {
	limit := opts.DepthLimit
	if limit <= 0 {
		limit = DefaultPartialDepthLimit
	}
	l := &loading{opts: opts, limit: limit}

	text, name, err := l.topLevelText()
	if err != nil {
		return nil, err
	}
	tmpl, err := parse.Source(name, text)
	if err != nil {
		return nil, err
	}
	if err := l.inline(tmpl.Nodes, 0); err != nil {
		return nil, err
	}
	return tmpl, nil
}

type loading struct {
	opts  Options
	limit int
}

func (l *loading) topLevelText() (text, name string, err error) {
	if l.opts.Inline != "" {
		return l.opts.Inline, "<inline>", nil
	}
	p := l.opts.Path
	if p == "" {
		p = l.opts.DefaultName
	}
	if p == "" {
		return "", "", &IOError{Name: "<template>", Message: "no path, inline text, or default name was configured"}
	}
	p = applyRules(l.opts.PathMapping, p)
	if l.opts.Provider == nil {
		return "", "", &IOError{Name: p, Message: "no resource provider configured"}
	}
	data, ok, err := l.opts.Provider.Get(p)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", &IOError{Name: p, Message: "resource not found"}
	}
	return data, p, nil
}

// inline walks nodes in place, recursively resolving every ast.Partial and
// ast.Parent, per spec.md section 4.3.
func (l *loading) inline(nodes []ast.Node, depth int) error {
	if depth > l.limit {
		return &IOError{Name: "<partial>", Message: "partial/parent resolution depth limit exceeded"}
	}
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Section:
			if err := l.inline(v.Children, depth); err != nil {
				return err
			}
		case *ast.Inverted:
			if err := l.inline(v.Children, depth); err != nil {
				return err
			}
		case *ast.Block:
			if err := l.inline(v.Children, depth); err != nil {
				return err
			}
		case *ast.Partial:
			text, err := l.partialText(v.Name)
			if err != nil {
				return err
			}
			body, err := parse.Source(v.Name, text)
			if err != nil {
				return err
			}
			if err := l.inline(body.Nodes, depth+1); err != nil {
				return err
			}
			resolved := indentNodes(body.Nodes, v.Indent)
			if v.StandaloneNewline && !lastLiteralEndsInNewline(resolved) {
				resolved = appendTrailingNewline(resolved)
			}
			v.Resolved = resolved
		case *ast.Parent:
			text, err := l.partialText(v.Name)
			if err != nil {
				return err
			}
			body, err := parse.Source(v.Name, text)
			if err != nil {
				return err
			}
			if err := l.inline(body.Nodes, depth+1); err != nil {
				return err
			}
			for name, override := range v.Overrides {
				if err := l.inline(override, depth); err != nil {
					return err
				}
				_ = name
			}
			v.Resolved = applyBlockOverrides(body.Nodes, v.Overrides)
		}
	}
	return nil
}

// partialText resolves a partial/parent name through PartialOverrides first,
// falling back to Provider, matching spec.md section 4.3's "a partial-mapping
// table ... may redirect to an inline template or an alternate path".
func (l *loading) partialText(name string) (string, error) {
	if override, ok := l.opts.PartialOverrides[name]; ok {
		if rest, isPath := strings.CutPrefix(override, "path:"); isPath {
			return l.providerText(rest)
		}
		return override, nil
	}
	return l.providerText(name)
}

func (l *loading) providerText(name string) (string, error) {
	mapped := applyRules(l.opts.PathMapping, name)
	if l.opts.Provider == nil {
		return "", nil // spec.md 4.3: unresolvable partial renders as empty, not fatal, when no provider is configured
	}
	data, ok, err := l.opts.Provider.Get(mapped)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return data, nil
}

// applyBlockOverrides rewrites each ast.Block in parentNodes: if overrides
// contains that block's name, the override's children replace the default;
// otherwise the default is kept (spec.md section 4.3).
func applyBlockOverrides(parentNodes []ast.Node, overrides map[string][]ast.Node) []ast.Node {
	out := make([]ast.Node, len(parentNodes))
	for i, n := range parentNodes {
		if b, ok := n.(*ast.Block); ok {
			if replacement, has := overrides[b.Name]; has {
				out[i] = &ast.Block{Name: b.Name, Children: replacement, At: b.At}
				continue
			}
		}
		out[i] = n
	}
	return out
}

// indentNodes prefixes every line of a partial's rendered text with indent,
// per spec.md section 4.5's indentation-propagation rule. Since indentation
// must apply to the partial's literal text after any nested partials have
// already been inlined, this walks only ast.Text nodes (nested Section/
// Inverted/Var nodes carry their own indentation forward unchanged; their
// *contents*, once rendered, are already covered by recursively indenting
// their Text children here).
func indentNodes(nodes []ast.Node, indent string) []ast.Node {
	if indent == "" {
		return nodes
	}
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		switch v := n.(type) {
		case *ast.Text:
			out[i] = &ast.Text{Literal: indentText(v.Literal, indent), At: v.At}
		case *ast.Section:
			out[i] = &ast.Section{PathExpr: v.PathExpr, Children: indentNodes(v.Children, indent), At: v.At}
		case *ast.Inverted:
			out[i] = &ast.Inverted{PathExpr: v.PathExpr, Children: indentNodes(v.Children, indent), At: v.At}
		case *ast.Partial:
			out[i] = &ast.Partial{Name: v.Name, Indent: indent + v.Indent, Resolved: indentNodes(v.Resolved, indent), At: v.At, StandaloneNewline: v.StandaloneNewline}
		default:
			out[i] = n
		}
	}
	return out
}

// lastLiteralEndsInNewline reports whether the last ast.Text node reachable
// at the end of nodes already ends in "\n". Only a trailing Text node is
// inspected: a partial ending in a Var/Section counts as not ending in a
// newline, so appendTrailingNewline adds one after it.
func lastLiteralEndsInNewline(nodes []ast.Node) bool {
	if len(nodes) == 0 {
		return false
	}
	last, ok := nodes[len(nodes)-1].(*ast.Text)
	if !ok {
		return false
	}
	return strings.HasSuffix(last.Literal, "\n")
}

// appendTrailingNewline restores the newline a standalone partial tag's own
// line consumed from the host template, which the partial's own content
// rarely supplies (spec.md section 8's indentation scenario: a partial body
// with no trailing newline of its own still produces one in the host's
// output, since the tag's line always ends in one).
func appendTrailingNewline(nodes []ast.Node) []ast.Node {
	if len(nodes) == 0 {
		return []ast.Node{&ast.Text{Literal: "\n"}}
	}
	if last, ok := nodes[len(nodes)-1].(*ast.Text); ok {
		out := make([]ast.Node, len(nodes))
		copy(out, nodes)
		out[len(out)-1] = &ast.Text{Literal: last.Literal + "\n", At: last.At}
		return out
	}
	return append(append([]ast.Node{}, nodes...), &ast.Text{Literal: "\n"})
}

// indentText prefixes every line of s with indent, except a final trailing
// newline (spec.md section 8: "each line of a partial's output (except a
// trailing newline) is prefixed").
func indentText(s, indent string) string {
	if s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		if i == len(lines)-1 && lines[i] == "" {
			continue // don't indent the empty tail after a trailing newline
		}
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}
