package token

import "strings"

// standaloneEligible reports whether a tag of this Type participates in the
// Mustache "standalone line" whitespace rule (spec.md section 4.1): when such
// a tag is the only non-whitespace content on its line, the line's
// indentation and trailing newline are removed from the surrounding Text
// tokens. Interpolation/RawInterpolation never qualify.
func standaloneEligible(t Type) bool {
	switch t {
	case SectionOpen, InvertedOpen, SectionClose, PartialInclude, ParentOpen, ParentClose, BlockOpen, BlockClose, Comment, DelimiterChange:
		return true
	}
	return false
}

// Collect drains a token channel into a slice and applies the standalone-line
// rule and partial-indentation capture as a post-process over the flat
// stream, ahead of parsing. This keeps the scanner itself (lex.go) a small,
// direct generalization of the teacher's lexer, with the Mustache-specific
// whitespace rule isolated to one pass.
func Collect(tokens <-chan Token) ([]Token, error) {
	var raw []Token
	for t := range tokens {
		if t.Type == Error {
			return nil, &SyntaxError{Span: t.Span, Message: t.Text}
		}
		raw = append(raw, t)
	}
	applyStandaloneRule(raw)
	return raw, nil
}

func applyStandaloneRule(toks []Token) {
	for i := range toks {
		if !standaloneEligible(toks[i].Type) {
			continue
		}
		// Another tag directly beside this one shares its line, so the line
		// holds more than this tag.
		if i > 0 && toks[i-1].Type != Text {
			continue
		}
		if i+1 < len(toks) && toks[i+1].Type != Text && toks[i+1].Type != EOF {
			continue
		}
		before := -1
		if i > 0 && toks[i-1].Type == Text {
			before = i - 1
		}
		after := -1
		if i+1 < len(toks) && toks[i+1].Type == Text {
			after = i + 1
		}

		beforeText := ""
		if before >= 0 {
			beforeText = toks[before].Text
		}
		afterText := ""
		if after >= 0 {
			afterText = toks[after].Text
		}

		lastNL := strings.LastIndexByte(beforeText, '\n')
		linePrefix := beforeText[lastNL+1:]
		if strings.TrimSpace(linePrefix) != "" {
			continue // preceding text on this line is non-whitespace
		}
		nlIdx := strings.IndexByte(afterText, '\n')
		var lineSuffix string
		var hasTrailingNewline bool
		if nlIdx >= 0 {
			lineSuffix = afterText[:nlIdx]
			hasTrailingNewline = true
		} else {
			lineSuffix = afterText
		}
		if strings.TrimSpace(lineSuffix) != "" {
			continue // following text on this line is non-whitespace
		}
		if before < 0 && after < 0 {
			continue
		}
		// It's a standalone line: strip the line's indentation from the
		// preceding Text token (recording it on PartialInclude for
		// indentation propagation, spec.md section 4.1) and strip the
		// trailing newline + indentation from the following Text token.
		if toks[i].Type == PartialInclude {
			toks[i].Indent = linePrefix
			toks[i].StandaloneNewline = hasTrailingNewline
		}
		if before >= 0 {
			toks[before].Text = beforeText[:lastNL+1]
			if toks[before].Text == "" {
				toks[before].Type = Text // no-op, keep as empty text; parser ignores empty text
			}
		}
		if after >= 0 {
			if hasTrailingNewline {
				toks[after].Text = afterText[nlIdx+1:]
			} else {
				toks[after].Text = ""
			}
		}
	}
}
