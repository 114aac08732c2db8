package pattern

import (
	"strconv"
	"strings"
)

// maxFieldWidth bounds min/max widths so a typo cannot request a huge pad.
const maxFieldWidth = 4096

// TokenKind distinguishes literal text from conversion specifiers.
type TokenKind int

const (
	Literal TokenKind = iota
	Specifier
)

// Token is one lexical unit of a pattern.
//
// For literals Text is the unescaped text (%% becomes %). For specifiers
// Text is the raw source slice, so joining every Text reconstructs the
// pattern modulo the %% escape.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int

	Name      string
	Options   []string // every block split on top-level commas
	Blocks    []string // raw contents of each {...} block
	MinWidth  int
	MaxWidth  int
	LeftAlign bool
}

// Field returns the width/alignment part of a specifier.
func (t Token) Field() FieldSpec {
	return FieldSpec{MinWidth: t.MinWidth, MaxWidth: t.MaxWidth, LeftAlign: t.LeftAlign}
}

// Resolver reports whether a specifier name is known.
type Resolver interface {
	Has(name string) bool
}

// Tokenize scans pattern left to right. Specifier names resolve to the
// longest known prefix of the letter run after the width; letters past that
// prefix are literal text.
func Tokenize(pattern string, names Resolver) ([]Token, error) {
	var (
		toks     []Token
		lit      strings.Builder
		litStart int
	)
	flush := func() {
		if lit.Len() == 0 {
			return
		}
		toks = append(toks, Token{Kind: Literal, Text: lit.String(), Offset: litStart})
		lit.Reset()
	}
	addLit := func(at int, s string) {
		if lit.Len() == 0 {
			litStart = at
		}
		lit.WriteString(s)
	}

	n := len(pattern)
	i := 0
	for i < n {
		c := pattern[i]
		if c != '%' {
			addLit(i, pattern[i:i+1])
			i++
			continue
		}
		if i+1 < n && pattern[i+1] == '%' {
			addLit(i, "%")
			i += 2
			continue
		}

		start := i
		i++
		tok := Token{Kind: Specifier, Offset: start}

		if i < n && pattern[i] == '-' {
			tok.LeftAlign = true
			i++
		}
		if j := scanDigits(pattern, i); j > i {
			w, ok := parseWidth(pattern[i:j])
			if !ok {
				return nil, &SyntaxError{Pattern: pattern, Offset: i, Reason: InvalidWidth, Text: pattern[i:j]}
			}
			tok.MinWidth = w
			i = j
		}
		if i < n && pattern[i] == '.' {
			j := scanDigits(pattern, i+1)
			w, ok := parseWidth(pattern[i+1 : j])
			if j == i+1 || !ok || w == 0 {
				return nil, &SyntaxError{Pattern: pattern, Offset: i, Reason: InvalidWidth, Text: pattern[i:j]}
			}
			tok.MaxWidth = w
			i = j
		}

		j := i
		for j < n && isLetter(pattern[j]) {
			j++
		}
		run := pattern[i:j]
		name := longestKnownPrefix(run, names)
		if name == "" {
			text := run
			if text == "" {
				text = pattern[start:min(j+1, n)]
			}
			return nil, &SyntaxError{Pattern: pattern, Offset: start, Reason: UnknownSpecifier, Text: text}
		}
		tok.Name = name
		i += len(name)

		// Option blocks bind only when the name consumed the whole run.
		if len(name) == len(run) {
			for i < n && pattern[i] == '{' {
				end, err := scanBlock(pattern, i)
				if err != nil {
					return nil, err
				}
				block := pattern[i+1 : end]
				tok.Blocks = append(tok.Blocks, block)
				tok.Options = append(tok.Options, splitOptions(block)...)
				i = end + 1
			}
		}

		tok.Text = pattern[start:i]
		flush()
		toks = append(toks, tok)
	}
	flush()
	return toks, nil
}

// scanBlock returns the index of the brace closing the one at open.
func scanBlock(pattern string, open int) (int, error) {
	depth := 0
	for k := open; k < len(pattern); k++ {
		switch pattern[k] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return k, nil
			}
		}
	}
	return 0, &SyntaxError{Pattern: pattern, Offset: open, Reason: UnterminatedOptionBrace, Text: pattern[open:]}
}

// splitOptions splits on commas that are not inside nested braces.
func splitOptions(block string) []string {
	var out []string
	depth, last := 0, 0
	for k := 0; k < len(block); k++ {
		switch block[k] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(block[last:k]))
				last = k + 1
			}
		}
	}
	return append(out, strings.TrimSpace(block[last:]))
}

func longestKnownPrefix(run string, names Resolver) string {
	for k := len(run); k > 0; k-- {
		if names.Has(run[:k]) {
			return run[:k]
		}
	}
	return ""
}

func scanDigits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

func parseWidth(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	w, err := strconv.Atoi(s)
	if err != nil || w > maxFieldWidth {
		return 0, false
	}
	return w, true
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
