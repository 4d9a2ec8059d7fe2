package preprocess

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thatsOven/opal-lang/internal/lex"
)

// Signals are statements the preprocessor inserts to drive the statement compiler:
// __OPALSIG[KIND](arguments) followed by a kind specific suffix.
const (
	EMBED_INFER_SIGNAL   = "EMBED_INFER"   //(indent).<raw tokens>;
	EMBED_ENCODED_SIGNAL = "EMBED_ENCODED" //(indent,"<escaped line>")
	PUSH_NAME_SIGNAL     = "PUSH_NAME"     //("name","kind")
	POP_NAME_SIGNAL      = "POP_NAME"      //()
	TABS_ADD_SIGNAL      = "TABS_ADD"      //(count)
	CDEF_SIGNAL          = "CDEF"          //()
)

func signal(kind string, args string) string {
	return lex.SIGNAL_NAME + "[" + kind + "](" + args + ")\n"
}

func PushNameSignal(name string, kind string) string {
	return signal(PUSH_NAME_SIGNAL, strconv.Quote(name)+","+strconv.Quote(kind))
}

func PopNameSignal() string {
	return signal(POP_NAME_SIGNAL, "")
}

func TabsAddSignal(count string) string {
	return signal(TABS_ADD_SIGNAL, count)
}

func CdefSignal() string {
	return signal(CDEF_SIGNAL, "")
}

// EmbedSignal embeds a line of host code verbatim, indent is the number of leading
// whitespace characters of the line.
func EmbedSignal(line string) string {
	stripped := strings.TrimLeft(line, " \t")
	indent := len(line) - len(stripped)
	return signal(EMBED_ENCODED_SIGNAL, strconv.Itoa(indent)+`,"`+EncodeText(strings.TrimRight(stripped, " \t\r"))+`"`)
}

// EncodeText escapes every character of text so that the result can be placed in a string
// literal without being altered by any later pass.
func EncodeText(text string) string {
	var b strings.Builder
	b.Grow(6 * utf8.RuneCountInString(text))

	for _, r := range text {
		if r > 0xFFFF {
			fmt.Fprintf(&b, `\U%08x`, r)
		} else {
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return b.String()
}
