package compiler

import (
	"fmt"

	"github.com/thatsOven/opal-lang/internal/consteval"
	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/lex"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

func discardErrors(string, lex.Token) {}

// compileDo compiles both do-while forms: do {...} while cond; and do cond {...}.
func (c *Compiler) compileDo(s *lex.Stream, sc *scope) {
	c.rejectStatementModifiers("do", s.Last())

	var condition, body []lex.Token

	if s.PeekIs("{") {
		s.Next()
		body = c.sameLevel(s, "{", "}")

		if next := peekOrLast(s); next.Text != "while" {
			c.warning(`expecting "while" after a do-while loop. ignoring`, next)
		} else {
			s.Next()
		}
		condition = c.untilStop(s, ";")
	} else {
		condition = c.untilStop(s, "{")
		body = c.sameLevel(s, "{", "}")
	}

	check := "if not(" + lex.Join(condition) + "):break"

	c.line(sc.tabs, "while True:")
	c.compileBody(body, sc.nested(compoundLoop([]string{check})), nil)
	c.line(sc.tabs+1, check)
}

func (c *Compiler) compileRepeat(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.rejectStatementModifiers("repeat", kw, UNCHECKED_MODIFIER)

	count := c.untilStop(s, "{")
	body := c.sameLevel(s, "{", "}")
	value := lex.Join(count)
	unchecked := c.mods.Take(UNCHECKED_MODIFIER)

	var header string

	switch n, constant := consteval.EvalInt(value); {
	case !constant && unchecked:
		header = fmt.Sprintf("for _ in range(%s):", value)
	case !constant:
		header = fmt.Sprintf("for _ in range(abs(int(%s))):", value)
	case n == 0:
		anchor := kw
		if len(count) != 0 {
			anchor = count[0]
		}
		c.warning(`a 0-times "repeat" statement is being used`, anchor)
		return
	case n > 0:
		header = fmt.Sprintf("for _ in range(%s):", value)
	default:
		header = fmt.Sprintf("for _ in range(%d,0,-1):", -n)
	}

	c.begin(sc.tabs, header)
	if len(body) == 0 {
		c.write("pass\n")
		return
	}
	c.write("\n")
	c.compileBody(body, sc.nested(genericLoop), nil)
}

// compileFor compiles C-style for loops (two semicolons in the header) and for-in loops.
func (c *Compiler) compileFor(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.rejectStatementModifiers("for", kw)

	header := lex.ScanUntil(s.Copy(), lex.ScanOptions{Stops: []string{"{"}}, discardErrors).Tokens
	semicolons := 0
	for _, tok := range header {
		if tok.Text == ";" {
			semicolons++
		}
	}

	switch semicolons {
	case 2:
		c.compileCFor(s, sc)
	case 0:
		c.compileForIn(s, sc)
	default:
		c.error("invalid syntax: using an unrecognized amount of semicolons in a for loop", kw)
		c.untilStop(s, "{")
		c.sameLevel(s, "{", "}")
	}
}

func (c *Compiler) compileCFor(s *lex.Stream, sc *scope) {
	declare := func(name lex.Token) {
		if !sc.symbols.Has(name.Text) {
			c.declare(sc.symbols, name, DYNAMIC_TYPE)
		}
	}

	parenthesized := s.PeekIs("(")
	if parenthesized {
		s.Next()
	}

	if s.PeekIs(";") {
		s.Next()
	} else {
		for _, line := range c.assignmentChain(c.untilStop(s, ";"), declare) {
			c.line(sc.tabs, line)
		}
	}

	condition := lex.Synthetics("True")
	if s.PeekIs(";") {
		s.Next()
	} else if tokens := c.untilStop(s, ";"); len(tokens) != 0 {
		condition = tokens
	}

	var increments []string
	if s.PeekIs("{") {
		s.Next()
	} else {
		var tokens []lex.Token
		if parenthesized {
			tokens = c.untilStop(s, ")")
			c.expectDirectNext(s, "{", "for loop")
		} else {
			tokens = c.untilStop(s, "{")
		}
		increments = c.assignmentChain(tokens, declare)
	}

	body := c.sameLevel(s, "{", "}")
	c.begin(sc.tabs, joinAfter("while", condition))

	if len(body) == 0 {
		if len(increments) == 0 {
			c.write(":pass\n")
			return
		}
		c.write(":\n")
	} else {
		c.write(":\n")
		c.compileBody(body, sc.nested(compoundLoop(increments)), nil)
	}

	for _, line := range increments {
		c.line(sc.tabs+1, line)
	}
}

func (c *Compiler) compileForIn(s *lex.Stream, sc *scope) {
	variables := c.untilStop(s, "in")

	names := variables
	if len(names) > 1 && names[0].Text == "(" && names[len(names)-1].Text == ")" {
		names = names[1 : len(names)-1]
	}

	stream := lex.NewStream(names)
	for stream.HasNext() {
		c.declare(sc.symbols, stream.Next(), DYNAMIC_TYPE)

		next, ok := stream.TryNext()
		if !ok {
			break
		}
		if next.Text != "," {
			c.error(`invalid syntax: expecting "," after variable name in a for loop`, next)
		}
	}

	iterable := c.untilStop(s, "{")
	body := c.sameLevel(s, "{", "}")

	header := append(lex.Synthetics("for"), variables...)
	header = append(header, lex.Synthetic("in"))
	header = append(header, iterable...)

	c.begin(sc.tabs, lex.Join(header))
	if len(body) == 0 {
		c.write(":pass\n")
		return
	}
	c.write(":\n")
	c.compileBody(body, sc.nested(genericLoop), nil)
}

// matchHasFound reports whether the body of a match statement has a "found" clause.
func matchHasFound(body []lex.Token) bool {
	s := lex.NewStream(body)

	for s.HasNext() {
		switch s.Next().Text {
		case "case":
			lex.ScanUntilStop(s, "{", discardErrors)
			lex.GetSameLevelParenthesis(s, "{", "}", discardErrors)
		case "default":
			if next, ok := s.TryNext(); ok && next.Text != "{" {
				lex.GetUntil(s, "{", discardErrors)
			}
			lex.GetSameLevelParenthesis(s, "{", "}", discardErrors)
		case "found":
			return true
		}
	}
	return false
}

// compileMatch compiles a match statement: a structural match, or a chain of comparisons
// when an operator is given (match:(op) value {...}).
func (c *Compiler) compileMatch(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.rejectStatementModifiers("match", kw)

	var op []lex.Token
	hasOperator := false

	if s.PeekIs(":") {
		colon := s.Next()
		if next := s.Next(); next.Text != "(" {
			c.error(`invalid syntax: expecting "(" after "match:"`, next)
		}

		op = c.sameLevel(s, "(", ")")
		if len(op) == 0 {
			op = []lex.Token{lex.SyntheticAt("==", colon)}
		}
		hasOperator = true
	} else if c.profile.OperatorMatchOnly {
		op = lex.Synthetics("==")
		hasOperator = true
	}

	value := c.untilStop(s, "{")
	body := c.sameLevel(s, "{", "}")
	if len(body) == 0 {
		return
	}

	m := matchStatement{
		value:       value,
		op:          op,
		hasOperator: hasOperator,
	}
	if matchHasFound(body) {
		m.matchedVar = fmt.Sprintf("%s%d", opalconsts.MATCHED_VAR, sc.tabs)
		c.line(sc.tabs, m.matchedVar+"=False")
	}

	if !hasOperator {
		c.line(sc.tabs, joinAfter("match", value)+":")
	}

	c.names.Push(diag.Frame{Kind: diag.CONDITIONAL_FRAME})
	c.compileMatchBody(lex.NewStream(body), sc, m)
	c.names.Pop()

	if m.matchedVar != "" {
		c.line(sc.tabs, "del "+m.matchedVar)
	}
}

type matchStatement struct {
	value       []lex.Token
	op          []lex.Token
	hasOperator bool
	matchedVar  string //set if the statement has a "found" clause
}

func (c *Compiler) compileMatchBody(s *lex.Stream, sc *scope, m matchStatement) {
	keyword := "if"
	defaultMet, foundMet := false, false

	after := ""
	if m.matchedVar != "" {
		after = m.matchedVar + "=True"
	}
	caseScope := &scope{tabs: sc.tabs + 1, loop: sc.loop, symbols: sc.symbols}

	for s.HasNext() {
		tok := s.Next()

		if tok.IsDocString() {
			c.line(sc.tabs, tok.Text)
			continue
		}

		switch tok.Text {
		case "case":
			if foundMet {
				c.error(`cannot use "case" after "found" in a "match" statement`, tok)
			}

			if !m.hasOperator {
				c.compileHeaderBlock(s, caseScope, "case", blockOptions{after: after})
				continue
			}

			if defaultMet {
				c.error(`cannot use "case" after "default" in a "match" statement with an operator`, tok)
			}

			comparison := append(append(lex.Synthetics(keyword), m.value...), m.op...)
			c.compileHeaderBlock(s, sc, lex.Join(comparison), blockOptions{after: after})
			keyword = "elif"
		case "default":
			if foundMet {
				c.error(`cannot use "default" after "found" in a "match" statement`, tok)
			}

			if m.hasOperator {
				if keyword == "if" {
					c.error(`cannot use "default" before any "case" in a "match" statement with an operator`, tok)
				}
				c.compileSimpleBlock(s, sc, "else", "default", nil)
			} else {
				c.compileSimpleBlock(s, caseScope, "case _", "default", nil)
			}
			defaultMet = true
		case "found":
			c.compileSimpleBlock(s, sc, "if "+m.matchedVar, "found", nil)
			foundMet = true
		default:
			c.error(`invalid identifier in "match" statement body`, tok)
		}
	}
}
