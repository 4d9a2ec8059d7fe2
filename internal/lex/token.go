package lex

import (
	"strings"
	"unicode"
)

// Source is the text a token stream was produced from, tokens keep a pointer to it
// so that diagnostics can show the surrounding lines.
type Source struct {
	Name  string
	Lines []string
}

func NewSource(name string, text string) *Source {
	return &Source{
		Name:  name,
		Lines: strings.Split(text, "\n"),
	}
}

// Line returns the 1-based line n, or "" if n is out of range.
func (s *Source) Line(n int) string {
	if s == nil || n < 1 || n > len(s.Lines) {
		return ""
	}
	return s.Lines[n-1]
}

// A Token is never mutated once the lexer has returned it, passes that rewrite
// tokens build new ones.
type Token struct {
	Text    string
	Line    int //1-based
	Column  int //0-based
	MaxLine int
	Keyword Keyword

	Source *Source //nil for synthesized tokens
}

// Synthetic creates a token that has no position, it is used to build output fragments.
func Synthetic(text string) Token {
	return Token{Text: text, Keyword: KeywordOf(text)}
}

// SyntheticAt creates a token with the position of another token.
func SyntheticAt(text string, pos Token) Token {
	return Token{
		Text:    text,
		Line:    pos.Line,
		Column:  pos.Column,
		MaxLine: pos.MaxLine,
		Keyword: KeywordOf(text),
		Source:  pos.Source,
	}
}

func (t Token) WithText(text string) Token {
	t.Text = text
	t.Keyword = KeywordOf(text)
	return t
}

func (t Token) Is(text string) bool {
	return t.Text == text
}

func (t Token) IsZero() bool {
	return t.Text == "" && t.Source == nil && t.Line == 0
}

// IsDocString reports whether the token is a triple-quoted string literal.
func (t Token) IsDocString() bool {
	return strings.HasPrefix(t.Text, `"""`) || strings.HasPrefix(t.Text, `'''`)
}

func (t Token) IsIdentifier() bool {
	return IsIdentifier(t.Text)
}

// IsIdentifier reports whether s is a valid identifier of the host runtime.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func TokenTexts(tokens []Token) []string {
	texts := make([]string, len(tokens))
	for i, tok := range tokens {
		texts[i] = tok.Text
	}
	return texts
}

// Synthetics converts each text to a synthesized token.
func Synthetics(texts ...string) []Token {
	tokens := make([]Token, len(texts))
	for i, text := range texts {
		tokens[i] = Synthetic(text)
	}
	return tokens
}
