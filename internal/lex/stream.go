package lex

import (
	"strings"
)

const EXHAUSTED_STREAM_MSG = "invalid syntax: the expression wasn't properly closed. no tokens remaining"

// ExhaustedError is the panic value of Stream.Next when no tokens remain, it is recovered
// at the compilation boundary and reported as a terminal error anchored to Last.
type ExhaustedError struct {
	Last Token
}

func (e *ExhaustedError) Error() string {
	return EXHAUSTED_STREAM_MSG
}

// A Stream is a cursor over a token slice. Copies share the backing slice and have
// an independent position, the slice is never mutated.
type Stream struct {
	tokens []Token
	pos    int
}

func NewStream(tokens []Token) *Stream {
	return &Stream{tokens: tokens}
}

func (s *Stream) Tokens() []Token {
	return s.tokens
}

// Rest returns the tokens that have not been consumed yet.
func (s *Stream) Rest() []Token {
	return s.tokens[s.pos:]
}

func (s *Stream) Len() int {
	return len(s.tokens)
}

func (s *Stream) Pos() int {
	return s.pos
}

func (s *Stream) SetPos(pos int) {
	s.pos = max(0, min(pos, len(s.tokens)))
}

func (s *Stream) Backtrack() {
	s.SetPos(s.pos - 1)
}

func (s *Stream) HasNext() bool {
	return s.pos < len(s.tokens)
}

func (s *Stream) Peek() (Token, bool) {
	if s.pos < len(s.tokens) {
		return s.tokens[s.pos], true
	}
	return Token{}, false
}

// PeekIs reports whether the next token is text.
func (s *Stream) PeekIs(text string) bool {
	tok, ok := s.Peek()
	return ok && tok.Text == text
}

// Next consumes the next token, it panics with an *ExhaustedError if the stream is finished.
func (s *Stream) Next() Token {
	if s.pos < len(s.tokens) {
		tok := s.tokens[s.pos]
		s.pos++
		return tok
	}
	panic(&ExhaustedError{Last: s.Last()})
}

func (s *Stream) TryNext() (Token, bool) {
	if s.pos < len(s.tokens) {
		tok := s.tokens[s.pos]
		s.pos++
		return tok, true
	}
	return Token{}, false
}

// Last returns the last consumed token, or the last token of the stream if nothing was consumed.
func (s *Stream) Last() Token {
	switch {
	case len(s.tokens) == 0:
		return Token{}
	case s.pos == 0:
		return s.tokens[0]
	default:
		return s.tokens[s.pos-1]
	}
}

// LastToken returns the final token of the backing slice.
func (s *Stream) LastToken() Token {
	if len(s.tokens) == 0 {
		return Token{}
	}
	return s.tokens[len(s.tokens)-1]
}

func (s *Stream) Copy() *Stream {
	return &Stream{tokens: s.tokens, pos: s.pos}
}

func (s *Stream) Join() string {
	return Join(s.tokens)
}

// Join re-serializes tokens, a space is inserted only where two word tokens would otherwise fuse.
func Join(tokens []Token) string {
	var buf strings.Builder
	prev := ""

	for _, tok := range tokens {
		if tok.Text == "" {
			continue
		}
		if prev != "" && endsWithWordRune(prev) && startsWithWordRune(tok.Text) {
			buf.WriteByte(' ')
		}
		buf.WriteString(tok.Text)
		prev = tok.Text
	}

	return buf.String()
}

// JoinTexts is Join for raw texts.
func JoinTexts(texts ...string) string {
	return Join(Synthetics(texts...))
}

func endsWithWordRune(s string) bool {
	r := []rune(s)
	return isWordRune(r[len(r)-1])
}

func startsWithWordRune(s string) bool {
	for _, r := range s {
		return isWordRune(r)
	}
	return false
}
