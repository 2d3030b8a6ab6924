// Package model defines the core data structures for the smsledger application.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternKind distinguishes literal substring patterns from regular expressions.
type PatternKind string

// Pattern kind constants.
const (
	PatternLiteral PatternKind = "literal"
	PatternRegex   PatternKind = "regex"
)

// Pattern is a user-supplied match pattern, either a case-insensitive literal
// substring or a regular expression. The variant is decided once, at parse
// time, by the /pattern/flags convention.
type Pattern struct {
	Kind  PatternKind
	Value string
	Flags string
}

// ParsePattern interprets a raw pattern string. Strings delimited as
// /pattern/flags become regex patterns; everything else is a literal.
func ParsePattern(raw string) Pattern {
	if len(raw) >= 2 && strings.HasPrefix(raw, "/") {
		if end := strings.LastIndex(raw, "/"); end > 0 {
			return Pattern{
				Kind:  PatternRegex,
				Value: raw[1:end],
				Flags: raw[end+1:],
			}
		}
	}
	return Pattern{Kind: PatternLiteral, Value: raw}
}

// Compile builds the regexp for a regex pattern, translating the supported
// flags (i, m, s) to Go inline flags.
func (p Pattern) Compile() (*regexp.Regexp, error) {
	if p.Kind != PatternRegex {
		return nil, fmt.Errorf("pattern %q is not a regex", p.Value)
	}

	var inline strings.Builder
	for _, f := range p.Flags {
		switch f {
		case 'i', 'm', 's':
			inline.WriteRune(f)
		}
	}

	expr := p.Value
	if inline.Len() > 0 {
		expr = "(?" + inline.String() + ")" + expr
	}

	return regexp.Compile(expr)
}

// Match reports whether the pattern matches the given text. Literal patterns
// match as case-insensitive substrings. An invalid regex returns an error and
// never panics.
func (p Pattern) Match(text string) (bool, error) {
	if p.Kind == PatternLiteral {
		return strings.Contains(strings.ToLower(text), strings.ToLower(p.Value)), nil
	}

	re, err := p.Compile()
	if err != nil {
		return false, fmt.Errorf("invalid pattern %q: %w", p.Value, err)
	}
	return re.MatchString(text), nil
}
