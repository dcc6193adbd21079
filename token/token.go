// Package token implements the Mustache tokenizer: a channel-driven scanner
// that turns template source into a stream of tagged tokens with source
// spans, following the state-machine design of spec.md section 4.1.
package token

import "fmt"

// Pos is a byte offset into the original input text from which a token or
// AST node was parsed.
type Pos int

// Span locates a token within a named source (a template file or resource
// identifier) by line and column, 1-based.
type Span struct {
	File   string
	Line   int
	Column int
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Type enumerates the kinds of tokens the tokenizer emits.
type Type int

const (
	Invalid Type = iota
	Text
	Interpolation
	RawInterpolation
	SectionOpen
	InvertedOpen
	SectionClose // also used for the wire syntax {{/name}} that closes a ParentOpen or BlockOpen frame; the parser disambiguates by stack top
	PartialInclude
	ParentOpen
	ParentClose // unused by the scanner: {{/name}} is always lexed as SectionClose, per the comment above
	BlockOpen
	BlockClose // unused by the scanner, for the same reason
	Comment
	DelimiterChange
	EOF
	Error
)

var typeNames = [...]string{
	Invalid:          "Invalid",
	Text:              "Text",
	Interpolation:     "Interpolation",
	RawInterpolation:  "RawInterpolation",
	SectionOpen:       "SectionOpen",
	InvertedOpen:      "InvertedOpen",
	SectionClose:      "SectionClose",
	PartialInclude:    "PartialInclude",
	ParentOpen:        "ParentOpen",
	ParentClose:       "ParentClose",
	BlockOpen:         "BlockOpen",
	BlockClose:        "BlockClose",
	Comment:           "Comment",
	DelimiterChange:   "DelimiterChange",
	EOF:               "EOF",
	Error:             "Error",
}

func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return "Type(" + fmt.Sprint(int(t)) + ")"
}

// Token is a single scanned unit of the template source.
type Token struct {
	Type Type
	Span Span
	// Name is the tag's identifier (path text) for tag tokens; unused for
	// Text/Comment/EOF/Error.
	Name string
	// Text is the literal text for Text tokens, the error message for Error
	// tokens, or the comment body for Comment tokens.
	Text string
	// Indent is the whitespace preceding a standalone PartialInclude tag on
	// its line, recorded for indentation propagation at emission time.
	Indent string
	// StandaloneNewline records, for a standalone PartialInclude, whether the
	// rule consumed a trailing newline from the following Text token. The
	// partial's own content rarely ends in a newline, so without this the
	// newline that terminated the tag's line is simply lost from the output.
	StandaloneNewline bool
	// OpenDelim/CloseDelim carry the new delimiters for a DelimiterChange
	// token.
	OpenDelim, CloseDelim string
}

// SyntaxError is the fatal-error kind raised by the tokenizer: malformed
// tags, unclosed tags at EOF, mismatched braces, empty identifiers. The
// characters of an identifier are not validated.
type SyntaxError struct {
	Span    Span
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("error: %s: %s", e.Span, e.Message)
}
