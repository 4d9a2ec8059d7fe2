package lex

import (
	"slices"
	"strings"
)

const COMMENT_INTRODUCER = '#'

var (
	//second characters that can follow a leading character in a compound operator.
	SIMPLE_FUSIONS = map[string][]string{
		"+": {"+", "="},
		"-": {"-", "="},
		"!": {"="},
		"|": {"|", "="},
		"&": {"&", "="},
		":": {"="},
		"^": {"="},
		"%": {"="},
		"=": {"="},
	}

	//leading characters that can be doubled and then followed by '='.
	DOUBLING_FUSIONS = map[string][]string{
		"*": {"*", "="},
		"/": {"/", "="},
		">": {">", "="},
		"<": {"<", "=", "-"},
	}

	STRING_PREFIXES = []string{"f", "r", "b", "fr", "br", "rf", "rb"}

	//token-level rewrites of dialect spellings.
	SPELLING_REPLACEMENTS = map[string]string{
		"||": "or",
		"&&": "and",
		"!":  "not",
		"?":  PRINT_RETURN_NAME,
	}
)

// Tokenize converts source text to a token stream: a raw character pass, a pass fusing
// compound operators and string literals, and a pass normalizing dialect spellings.
// Malformed literals are consumed on a best-effort basis, no error is reported at this layer.
func Tokenize(name string, text string) *Stream {
	src := NewSource(name, text)

	raw, maxLine := scanRaw(text)
	tokens := normalize(fuse(raw))

	for i := range tokens {
		tokens[i].MaxLine = maxLine
		tokens[i].Source = src
		tokens[i].Keyword = KeywordOf(tokens[i].Text)
	}

	return NewStream(tokens)
}

// TokenizeLine tokenizes a single line without attaching a source, it is used by the preprocessor.
func TokenizeLine(line string) []Token {
	raw, _ := scanRaw(line)
	tokens := normalize(fuse(raw))
	for i := range tokens {
		tokens[i].Keyword = KeywordOf(tokens[i].Text)
	}
	return tokens
}

type rawToken struct {
	buf    []rune
	line   int
	column int
}

func scanRaw(text string) (tokens []Token, lastLine int) {
	line := 1
	column := 0

	current := &rawToken{line: line}
	pending := []*rawToken{current}

	start := func(line, column int, initial ...rune) {
		current = &rawToken{line: line, column: column, buf: initial}
		pending = append(pending, current)
	}

	inComment := false
	inDoubleQuoted := false
	inSingleQuoted := false
	lastSymbol := false

	for _, r := range text {
		if inComment {
			if r == '\n' {
				inComment = false
				line++
				column = 0
				start(line, 0)
				continue
			}
			column++
			continue
		}

		inString := inDoubleQuoted || inSingleQuoted

		switch {
		case r == ' ' || r == '\t' || r == '\r':
			if inString {
				current.buf = append(current.buf, r)
			} else {
				start(line, column+1)
			}
		case r == COMMENT_INTRODUCER:
			if inString {
				current.buf = append(current.buf, r)
			} else {
				inComment = true
			}
		case r == '\n':
			line++
			column = 0

			if !inString {
				start(line, 0)
				continue
			}
			current.buf = append(current.buf, r)
		case r == '"':
			switch {
			case inDoubleQuoted:
				current.buf = append(current.buf, r)
				inDoubleQuoted = false
				//a word following the literal starts a new token.
				lastSymbol = true
			case inSingleQuoted:
				current.buf = append(current.buf, r)
			default:
				start(line, column, r)
				inDoubleQuoted = true
			}
		case r == '\'':
			switch {
			case inSingleQuoted:
				current.buf = append(current.buf, r)
				inSingleQuoted = false
				lastSymbol = true
			case inDoubleQuoted:
				current.buf = append(current.buf, r)
			default:
				start(line, column, r)
				inSingleQuoted = true
			}
		default:
			switch {
			case inString:
				current.buf = append(current.buf, r)
			case isWordRune(r):
				if lastSymbol {
					lastSymbol = false
					start(line, column, r)
				} else {
					current.buf = append(current.buf, r)
				}
			default:
				lastSymbol = true
				start(line, column, r)
			}
		}

		column++
	}

	for _, p := range pending {
		if len(p.buf) == 0 {
			continue
		}
		tokens = append(tokens, Token{
			Text:   string(p.buf),
			Line:   p.line,
			Column: p.column,
		})
	}

	return tokens, line
}

// fuse merges consecutive raw tokens into compound operators, prefixed string literals
// and triple-quoted string delimiters.
func fuse(raw []Token) []Token {
	var tokens []Token

	textAt := func(i int) string {
		if i < len(raw) {
			return raw[i].Text
		}
		return ""
	}

	for i := 0; i < len(raw); i++ {
		tok := raw[i]
		next := textAt(i + 1)

		if seconds, ok := SIMPLE_FUSIONS[tok.Text]; ok {
			if next != "" && slices.Contains(seconds, next) {
				tok.Text += next
				i++
			}
			tokens = append(tokens, tok)
			continue
		}

		if seconds, ok := DOUBLING_FUSIONS[tok.Text]; ok {
			if next != "" && slices.Contains(seconds, next) {
				tok.Text += next
				i++
				if next == tok.Text[:1] && textAt(i+1) == "=" {
					tok.Text += "="
					i++
				}
			}
			tokens = append(tokens, tok)
			continue
		}

		if slices.Contains(STRING_PREFIXES, tok.Text) {
			if isQuoted(next) {
				tok.Text += next
				i++
			}
			tokens = append(tokens, tok)
			continue
		}

		if tok.Text == `""` || tok.Text == `''` {
			quote := tok.Text[:1]
			if strings.HasPrefix(next, quote) {
				tok.Text += next
				i++
			} else if len(tokens) > 0 && strings.HasSuffix(tokens[len(tokens)-1].Text, quote) {
				tokens[len(tokens)-1].Text += tok.Text
				continue
			}
		}

		tokens = append(tokens, tok)
	}

	return tokens
}

func normalize(tokens []Token) []Token {
	result := make([]Token, 0, len(tokens))

	for i, tok := range tokens {
		if replacement, ok := SPELLING_REPLACEMENTS[tok.Text]; ok {
			tok.Text = replacement
		}
		result = append(result, tok)

		//a bare super reference is called without arguments.
		if tok.Text == "super" && i+1 < len(tokens) && tokens[i+1].Text != "(" {
			result = append(result, SyntheticAt("(", tok), SyntheticAt(")", tok))
		}
	}

	return result
}

func isQuoted(s string) bool {
	return strings.HasPrefix(s, `"`) || strings.HasPrefix(s, `'`)
}
