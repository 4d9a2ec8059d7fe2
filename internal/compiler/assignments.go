package compiler

import (
	"fmt"

	"github.com/thatsOven/opal-lang/internal/lex"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

// inlineIncDec rewrites x++ and x-- as x+=1 and x-=1.
func inlineIncDec(tokens []lex.Token) []lex.Token {
	result := make([]lex.Token, 0, len(tokens))

	for _, tok := range tokens {
		switch tok.Text {
		case "++":
			result = append(result, tok.WithText("+="), lex.SyntheticAt("1", tok))
		case "--":
			result = append(result, tok.WithText("-="), lex.SyntheticAt("1", tok))
		default:
			result = append(result, tok)
		}
	}
	return result
}

// assignmentTargets returns the assigned expressions of a statement: the comma separated expressions
// before the first assignment operator, or the whole statement if there is no assignment operator.
func assignmentTargets(expr []lex.Token) []string {
	var (
		targets []string
		depth   int
		start   int
		end     = len(expr)
	)

loop:
	for i, tok := range expr {
		switch tok.Text {
		case "(", "[", "{":
			depth++
			continue
		case ")", "]", "}":
			depth--
			continue
		}

		if depth != 0 {
			continue
		}

		switch {
		case isAssignmentOperator(tok.Text):
			end = i
			break loop
		case tok.Text == ",":
			targets = append(targets, lex.Join(expr[start:i]))
			start = i + 1
		}
	}

	if start < end {
		targets = append(targets, lex.Join(expr[start:end]))
	}
	return targets
}

// compileAssignment compiles a statement starting with a known symbol. The assigned variables
// are checked against their declared type after the statement.
func (c *Compiler) compileAssignment(s *lex.Stream, sc *scope, autoCheck bool) {
	expr := inlineIncDec(c.untilStop(s, ";"))
	c.emitAssignment(sc, expr, assignmentTargets(expr), autoCheck)
}

func (c *Compiler) emitAssignment(sc *scope, expr []lex.Token, targets []string, autoCheck bool) {
	if c.mods.Take(UNCHECKED_MODIFIER) {
		c.line(sc.tabs, lex.Join(expr))

		//the next checks compare against the type of the new value
		for _, target := range targets {
			if sc.symbols[target] == AUTO_TYPE {
				c.captureAutoType(sc, target, target)
			}
		}
		return
	}

	if autoCheck {
		for _, target := range targets {
			if _, ok := c.autoTypes[target]; ok || sc.symbols[target] != AUTO_TYPE {
				continue
			}
			c.captureAutoType(sc, target, target)
		}
	}

	c.line(sc.tabs, lex.Join(expr))

	for _, target := range targets {
		typ, ok := sc.symbols[target]
		if !ok || typ == DYNAMIC_TYPE || typ == CLASS_TYPE {
			continue
		}

		if typ != AUTO_TYPE {
			c.line(sc.tabs, fmt.Sprintf("%s=%s(%s,%s)", target, opalconsts.CHECK_TYPE_FN, target, typ))
		} else if autoCheck {
			c.line(sc.tabs, fmt.Sprintf("%s=%s(%s,%s%s)", target, opalconsts.CHECK_TYPE_FN, target, opalconsts.AUTOMATIC_TYPE_VAR, target))
		}
	}
}

// compileTypeConversion compiles a statement that does not start with a keyword or a known symbol,
// the only valid form is a type conversion: (type) <- assignment or type <- assignment.
func (c *Compiler) compileTypeConversion(s *lex.Stream, sc *scope, first lex.Token) {
	typ := first.Text
	if first.Text == "(" {
		typ = lex.Join(c.sameLevel(s, "(", ")"))
	}

	arrow, ok := s.TryNext()
	if !ok || arrow.Text != "<-" {
		c.reportUnknownStatement(first, sc.symbols)
		return
	}
	typ = hostType(typ)

	expr := inlineIncDec(c.untilStop(s, ";"))
	targets := assignmentTargets(expr)

	converted := false
	for _, target := range targets {
		if !sc.symbols.Has(target) {
			continue
		}
		converted = true

		if c.opts.TypeMode == NO_TYPE_MODE {
			continue
		}
		sc.symbols[target] = typ

		switch typ {
		case AUTO_TYPE:
			delete(c.autoTypes, target)
		case DYNAMIC_TYPE:
		default:
			c.line(sc.tabs, target+":"+typ)
		}
	}

	if !converted {
		c.warning("cannot find any variables to convert. it is recommended to remove the type conversion", arrow)
	}

	c.emitAssignment(sc, expr, targets, false)

	for _, target := range targets {
		if sc.symbols[target] == AUTO_TYPE {
			c.captureAutoType(sc, target, target)
		}
	}
}

// captureAutoType stores the type of the current value of an auto-typed variable, the following
// checked assignments compare against it. ref is the expression reading the variable.
func (c *Compiler) captureAutoType(sc *scope, name string, ref string) {
	c.line(sc.tabs, fmt.Sprintf("%s%s=type(%s)", opalconsts.AUTOMATIC_TYPE_VAR, name, ref))
	c.autoTypes[name] = struct{}{}
}

// assignmentChain compiles a comma separated list of assignments (header of a C-style for loop,
// members of an enum) and returns the generated lines. onName is called for each assigned name.
func (c *Compiler) assignmentChain(tokens []lex.Token, onName func(name lex.Token)) []string {
	var lines []string
	s := lex.NewStream(inlineIncDec(tokens))
	stops := append([]string{","}, ASSIGNMENT_OPERATORS...)

	for s.HasNext() {
		target := s.Next()

		var op lex.Token
		next, ok := s.Peek()

		switch {
		case !ok:
			onName(target)
			return lines
		case next.Text == "," || isAssignmentOperator(next.Text):
			onName(target)
			op = s.Next()
		default:
			//complex target (attribute, subscript) or bare expression
			s.Backtrack()
			result := lex.ScanUntil(s, lex.ScanOptions{Stops: stops}, c.error)
			if !result.Found || result.Next.Text == "," {
				if len(result.Tokens) != 0 {
					lines = append(lines, lex.Join(result.Tokens))
				}
				continue
			}
			target = lex.SyntheticAt(lex.Join(result.Tokens), target)
			op = result.Next
		}

		if op.Text == "," {
			continue
		}

		if !s.HasNext() {
			c.error(fmt.Sprintf("invalid syntax: expecting a value after %q", op.Text), op)
			return lines
		}

		value := lex.ScanUntil(s, lex.ScanOptions{Stops: []string{","}}, c.error)
		lines = append(lines, target.Text+op.Text+lex.Join(value.Tokens))
	}

	return lines
}
