package lex

import (
	"fmt"
	"slices"
	"strings"
)

const ESCAPE = `\`

// ErrorHandler receives the structural errors found by the scanning primitives.
type ErrorHandler func(msg string, tok Token)

type ScanOptions struct {
	Stops []string

	//report an error if no stop token is found.
	ErrorIfNotFound bool

	//consume the token following the stop token and return it as Next.
	Advance bool

	//tokens that end the scan as a non-match when found at depth zero.
	Unallowed []string
}

type ScanResult struct {
	Found bool

	//stop token (or the token after it if Advance is set), zero if not found.
	Next Token

	//tokens read before the stop token.
	Tokens []Token
}

// ScanUntil consumes tokens until one of the stop tokens is found at bracket depth zero.
// Round, square and curly brackets are counted independently, curly brackets are not counted
// when "{" is a stop token. An escape makes the following token plain content.
func ScanUntil(s *Stream, opts ScanOptions, onError ErrorHandler) ScanResult {
	var (
		roundDepth, squareDepth, curlyDepth int
		lastRound, lastSquare, lastCurly    Token
		buf                                 []Token
		current                             Token
	)

	first, _ := s.Peek()
	lastRound, lastSquare, lastCurly = first, first, first
	current = first

	curlyIsStop := slices.Contains(opts.Stops, "{")

	for s.HasNext() {
		current = s.Next()

		if current.Text == ESCAPE {
			escaped, ok := s.TryNext()
			if !ok {
				onError("cannot escape here", current)
				return ScanResult{Tokens: buf}
			}
			buf = append(buf, escaped)
			continue
		}

		atTopLevel := roundDepth == 0 && squareDepth == 0 && curlyDepth == 0

		if atTopLevel && slices.Contains(opts.Unallowed, current.Text) {
			if opts.Advance && s.HasNext() {
				s.Next()
			}
			return ScanResult{Tokens: buf}
		}

		if atTopLevel && slices.Contains(opts.Stops, current.Text) {
			next := current
			if opts.Advance && s.HasNext() {
				next = s.Next()
			}
			return ScanResult{Found: true, Next: next, Tokens: buf}
		}

		switch current.Text {
		case "(":
			lastRound = current
			roundDepth++
		case ")":
			lastRound = current
			roundDepth--
		case "[":
			lastSquare = current
			squareDepth++
		case "]":
			lastSquare = current
			squareDepth--
		case "{":
			if !curlyIsStop {
				lastCurly = current
				curlyDepth++
			}
		case "}":
			if !curlyIsStop {
				lastCurly = current
				curlyDepth--
			}
		}

		buf = append(buf, current)
	}

	anchor := func(tok Token) Token {
		if tok.IsZero() {
			return s.LastToken()
		}
		return tok
	}

	if roundDepth != 0 {
		onError("unbalanced brackets ()", anchor(lastRound))
	}
	if squareDepth != 0 {
		onError("unbalanced brackets []", anchor(lastSquare))
	}
	if curlyDepth != 0 {
		onError("unbalanced brackets {}", anchor(lastCurly))
	}

	if opts.ErrorIfNotFound {
		onError("expecting character(s) "+quoteAll(opts.Stops), anchor(current))
	}

	return ScanResult{Tokens: buf}
}

// ScanUntilStop is ScanUntil for a single stop token with default options.
func ScanUntilStop(s *Stream, stop string, onError ErrorHandler) ScanResult {
	return ScanUntil(s, ScanOptions{Stops: []string{stop}, ErrorIfNotFound: true}, onError)
}

// GetUntil consumes tokens until the stop token regardless of brackets. An escape
// makes the following token plain content.
func GetUntil(s *Stream, stop string, onError ErrorHandler) ScanResult {
	var buf []Token
	last := s.Last()

	for s.HasNext() {
		tok := s.Next()
		last = tok

		if tok.Text == ESCAPE {
			if escaped, ok := s.TryNext(); ok {
				buf = append(buf, escaped)
				last = escaped
			}
			continue
		}

		if tok.Text == stop {
			return ScanResult{Found: true, Next: tok, Tokens: buf}
		}
		buf = append(buf, tok)
	}

	onError(fmt.Sprintf("expecting character %q", stop), last)
	return ScanResult{Tokens: buf}
}

// GetSameLevelParenthesis consumes a bracketed region whose opening bracket has already been
// consumed and returns the tokens strictly between the brackets. If the region is never closed
// an error is reported at the last bracket seen and every remaining token is returned.
func GetSameLevelParenthesis(s *Stream, open, close string, onError ErrorHandler) ([]Token, bool) {
	lastParen, ok := s.Peek()
	if !ok {
		onError(fmt.Sprintf("unbalanced parenthesis %q", open+close), s.LastToken())
		return nil, false
	}

	depth := 1
	var buf []Token

	for s.HasNext() {
		tok := s.Next()

		switch tok.Text {
		case open:
			lastParen = tok
			depth++
		case close:
			lastParen = tok
			depth--
		}

		if depth == 0 {
			return buf, true
		}
		buf = append(buf, tok)
	}

	onError(fmt.Sprintf("unbalanced parenthesis %q", open+close), lastParen)
	return buf, false
}

func quoteAll(stops []string) string {
	quoted := make([]string, len(stops))
	for i, s := range stops {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, " or ")
}
