package compiler

import (
	"fmt"

	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/lex"
)

type accessorKind uint8

const (
	GETTER_ACCESSOR accessorKind = iota
	SETTER_ACCESSOR
	DELETER_ACCESSOR
)

var (
	ACCESSOR_DECORATORS = [...]string{GETTER_ACCESSOR: "getter", SETTER_ACCESSOR: "setter", DELETER_ACCESSOR: "deleter"}
	ACCESSOR_KEYWORDS   = [...]string{GETTER_ACCESSOR: "get", SETTER_ACCESSOR: "set", DELETER_ACCESSOR: "delete"}
)

const DEFAULT_SETTER_PARAM = "value"

// accessorStatement returns the handler of an accessor defined outside of a property statement: get<name> {...}.
func accessorStatement(kind accessorKind) statementHandler {
	return func(c *Compiler, s *lex.Stream, sc *scope) {
		c.compileAccessor(s, sc, kind, "")
	}
}

// compileAccessor compiles an accessor method of the property named property, the name is read
// from the stream if property is empty.
func (c *Compiler) compileAccessor(s *lex.Stream, sc *scope, kind accessorKind, property string) {
	kw := s.Last()
	standalone := property == ""

	if standalone {
		if next := peekOrLast(s); next.Text != "<" {
			c.error(fmt.Sprintf("expecting \"<\" after %s outside of a \"property\" statement", ACCESSOR_DECORATORS[kind]), next)
			property = s.Next().Text
		} else {
			s.Next()
			property = lex.Join(c.sameLevel(s, "<", ">"))
		}
	}

	abstract := c.mods.Take(ABSTRACT_MODIFIER)

	c.line(sc.tabs, "@"+property+"."+ACCESSOR_DECORATORS[kind])
	if abstract {
		c.line(sc.tabs, "@abstractmethod")
	}

	symbols := sc.symbols.Copy()
	c.declare(symbols, lex.SyntheticAt(THIS_PARAM_NAME, kw), DYNAMIC_TYPE)
	params := THIS_PARAM_NAME

	if kind == SETTER_ACCESSOR {
		param := lex.SyntheticAt(DEFAULT_SETTER_PARAM, kw)

		if s.PeekIs("(") {
			s.Next()
			args := c.sameLevel(s, "(", ")")
			if len(args) > 1 {
				c.error("only one argument should be passed to a setter", args[0])
			}
			if len(args) != 0 {
				param = args[0]
			}
		}

		params += "," + param.Text
		c.declare(symbols, param, DYNAMIC_TYPE)
	}

	c.begin(sc.tabs, "def "+property+"("+params+"):")

	if abstract {
		c.expectDirectNext(s, ";", "abstract property method definition")
		c.write("pass\n")
		return
	}

	c.expectDirectNext(s, "{", "property method definition")
	body := c.sameLevel(s, "{", "}")

	if len(body) == 0 {
		c.write("pass\n")
		return
	}
	c.write("\n")

	frameName := ACCESSOR_KEYWORDS[kind]
	if standalone {
		frameName = fmt.Sprintf("%s<%s>", frameName, property)
	}

	frame := &diag.Frame{Kind: diag.FUNCTION_FRAME, Name: frameName, ReturnType: DYNAMIC_TYPE}
	c.compileBody(body, &scope{tabs: sc.tabs + 1, symbols: symbols}, frame)
}

func (c *Compiler) compileProperty(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.rejectStatementModifiers("property", kw, STATIC_MODIFIER)

	value := c.untilStop(s, "{")
	body := c.sameLevel(s, "{", "}")
	static := c.mods.Take(STATIC_MODIFIER)

	if len(value) == 0 {
		c.error("expecting a property name", kw)
		return
	}
	if len(value) > 1 {
		c.error("property name should contain only one token", value[0])
	}

	name := value[0]
	c.declare(sc.symbols, name, DYNAMIC_TYPE)

	if len(body) == 0 {
		return
	}

	c.line(sc.tabs, name.Text+"=property()")

	c.names.Push(diag.Frame{Kind: diag.PROPERTY_FRAME, Name: name.Text})
	defer c.names.Pop()

	if static {
		prev := c.static
		c.static = true
		defer func() {
			c.static = prev
		}()
	}

	c.compilePropertyBody(lex.NewStream(body), sc, name.Text)
}

func (c *Compiler) compilePropertyBody(s *lex.Stream, sc *scope, property string) {
	var last lex.Token

	for s.HasNext() {
		tok := s.Next()
		last = tok

		if tok.IsDocString() {
			c.line(sc.tabs, tok.Text)
			continue
		}

		switch tok.Keyword {
		case lex.KW_GET:
			c.compileAccessor(s, sc, GETTER_ACCESSOR, property)
		case lex.KW_SET:
			c.compileAccessor(s, sc, SETTER_ACCESSOR, property)
		case lex.KW_DELETE:
			c.compileAccessor(s, sc, DELETER_ACCESSOR, property)
		case lex.KW_ABSTRACT:
			c.compileAbstract(s, sc)
		default:
			c.error(`invalid identifier in "property" statement body`, tok)
		}
	}

	if c.mods.Take(ABSTRACT_MODIFIER) {
		c.error(fmt.Sprintf("%s is not applied to any statement", ABSTRACT_MODIFIER.display()), last)
	}
}
