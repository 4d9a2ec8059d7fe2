package consteval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrFormattedStringLiteral = errors.New("formatted string literals are not constant")
	ErrInvalidStringLiteral   = errors.New("invalid string literal")
)

func isStringLiteral(text string) bool {
	_, body := splitStringPrefix(text)
	return len(body) >= 2 && (body[0] == '"' || body[0] == '\'')
}

func splitStringPrefix(text string) (prefix, body string) {
	i := strings.IndexAny(text, `"'`)
	if i < 0 || i > 2 {
		return "", text
	}
	return strings.ToLower(text[:i]), text[i:]
}

// decodeStringLiteral returns the value of a (possibly prefixed) string literal.
func decodeStringLiteral(text string) (string, error) {
	prefix, body := splitStringPrefix(text)
	if strings.Contains(prefix, "f") {
		return "", ErrFormattedStringLiteral
	}

	quote := body[:1]
	if strings.HasPrefix(body, strings.Repeat(quote, 3)) && len(body) >= 6 {
		quote = strings.Repeat(quote, 3)
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", fmt.Errorf("%w: %s", ErrInvalidStringLiteral, text)
	}
	content := body[len(quote) : len(body)-len(quote)]

	if strings.Contains(prefix, "r") {
		return content, nil
	}
	return unescape(content)
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}

		i++
		switch e := s[i]; e {
		case '\n':
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'x', 'u', 'U':
			size := map[byte]int{'x': 2, 'u': 4, 'U': 8}[e]
			if i+1+size > len(s) {
				return "", fmt.Errorf("%w: truncated \\%c escape", ErrInvalidStringLiteral, e)
			}
			code, err := strconv.ParseUint(s[i+1:i+1+size], 16, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return "", fmt.Errorf("%w: invalid \\%c escape", ErrInvalidStringLiteral, e)
			}
			b.WriteRune(rune(code))
			i += size
		case '0', '1', '2', '3', '4', '5', '6', '7':
			end := i + 1
			for end < len(s) && end < i+3 && s[end] >= '0' && s[end] <= '7' {
				end++
			}
			code, _ := strconv.ParseUint(s[i:end], 8, 32)
			b.WriteRune(rune(code))
			i = end - 1
		default:
			//unknown escapes are kept as is
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}

	return b.String(), nil
}
