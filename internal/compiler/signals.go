package compiler

import (
	"fmt"

	"github.com/thatsOven/opal-lang/internal/consteval"
	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/lex"
	"github.com/thatsOven/opal-lang/internal/preprocess"
)

// compileSignal handles a signal inserted by the preprocessor: __OPALSIG[KIND](arguments).
// baseDepth is the depth of the name stack at the start of the enclosing block, a block cannot
// pop the frames of the enclosing blocks.
func (c *Compiler) compileSignal(s *lex.Stream, sc *scope, kw lex.Token, baseDepth int) {
	if c.manualSignals {
		c.warning(`"__OPALSIG" is meant for internal use. please do not use it in production`, kw)
	}

	if next := s.Next(); next.Text != "[" {
		c.error(`invalid syntax: expecting "[" after "__OPALSIG"`, next)
	}
	kind := lex.Join(c.sameLevel(s, "[", "]"))

	if next := s.Next(); next.Text != "(" {
		c.error(fmt.Sprintf("invalid syntax: expecting \"(\" after \"__OPALSIG[%s]\"", kind), next)
	}
	args := lex.Join(c.sameLevel(s, "(", ")"))

	switch kind {
	case preprocess.EMBED_INFER_SIGNAL:
		indent := c.signalInt(kind, args, kw)

		if next := peekOrLast(s); next.Text != "." {
			c.error(fmt.Sprintf("invalid syntax: expecting \".\" after \"__OPALSIG[%s](%s)\"", kind, args), next)
		} else {
			s.Next()
		}

		code := lex.GetUntil(s, ";", c.error).Tokens
		c.line(sc.tabs+indent, lex.Join(code))
	case preprocess.EMBED_ENCODED_SIGNAL:
		value, err := consteval.Eval(args)
		if err != nil || !isTupleOf(value, consteval.INT_VALUE, consteval.STRING_VALUE) {
			c.error(fmt.Sprintf("invalid arguments for %q signal", kind), kw)
			return
		}
		c.line(sc.tabs+int(value.Items[0].Int), value.Items[1].Str)
	case preprocess.PUSH_NAME_SIGNAL:
		value, err := consteval.Eval(args)
		if err != nil || !isTupleOf(value, consteval.STRING_VALUE, consteval.STRING_VALUE) {
			c.error(fmt.Sprintf("invalid arguments for %q signal", kind), kw)
			return
		}

		frameKind, ok := diag.ParseFrameKind(value.Items[1].Str)
		if !ok {
			c.error(fmt.Sprintf("invalid arguments for %q signal: unknown scope kind %q", kind, value.Items[1].Str), kw)
			return
		}
		c.names.Push(diag.Frame{Kind: frameKind, Name: value.Items[0].Str})
	case preprocess.POP_NAME_SIGNAL:
		if c.names.Depth() <= baseDepth {
			c.error(`"POP_NAME" signal without matching "PUSH_NAME"`, kw)
			return
		}
		c.names.Pop()
	case preprocess.TABS_ADD_SIGNAL:
		sc.tabs += c.signalInt(kind, args, kw)
	case preprocess.CDEF_SIGNAL:
		c.setModifier(CDEF_MODIFIER, kw)
		c.modifierSeq++
	default:
		c.error(fmt.Sprintf("unknown signal %q", kind), kw)
	}
}

func (c *Compiler) signalInt(kind string, args string, kw lex.Token) int {
	n, ok := consteval.EvalInt(args)
	if !ok {
		c.error(fmt.Sprintf("expecting an integer for %q signal", kind), kw)
		return 0
	}
	return int(n)
}

func isTupleOf(value consteval.Value, kinds ...consteval.Kind) bool {
	if value.Kind != consteval.TUPLE_VALUE || len(value.Items) != len(kinds) {
		return false
	}
	for i, kind := range kinds {
		if value.Items[i].Kind != kind {
			return false
		}
	}
	return true
}
