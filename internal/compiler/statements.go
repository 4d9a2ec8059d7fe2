package compiler

import (
	"errors"
	"fmt"

	"github.com/thatsOven/opal-lang/internal/comptime"
	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/lex"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

// passthroughStatement returns the handler of a statement copied until the semicolon,
// keyword is the host spelling of the statement.
func passthroughStatement(keyword string) statementHandler {
	return func(c *Compiler, s *lex.Stream, sc *scope) {
		rest := c.untilStop(s, ";")
		c.line(sc.tabs, joinAfter(keyword, rest))
	}
}

// prefixStatement returns the handler of a keyword prefixing the next statement.
func prefixStatement(keyword string) statementHandler {
	return func(c *Compiler, s *lex.Stream, sc *scope) {
		c.begin(sc.tabs, keyword+" ")
	}
}

func incDecStatement(op string) statementHandler {
	return func(c *Compiler, s *lex.Stream, sc *scope) {
		c.rejectStatementModifiers(op+op, s.Last())
		target := c.untilStop(s, ";")
		c.line(sc.tabs, lex.Join(target)+op+"=1")
	}
}

func (c *Compiler) compileReturn(s *lex.Stream, sc *scope) {
	kw := s.Last()

	frame, inFn := c.names.Lookfor(diag.FUNCTION_FRAME)
	nativeFn := false
	if !inFn && c.profile.NativeTypedParams {
		frame, inFn = c.names.Lookfor(diag.COMPILED_FUNCTION_FRAME)
		nativeFn = inFn
	}
	if !inFn {
		c.error(`cannot use "return" outside of a function`, kw)
	}

	c.rejectStatementModifiers("return", kw, UNCHECKED_MODIFIER)

	if s.PeekIs(";") {
		s.Next()
		c.mods.Take(UNCHECKED_MODIFIER)
		c.line(sc.tabs, "return")
		return
	}

	value := c.untilStop(s, ";")
	unchecked := c.mods.Take(UNCHECKED_MODIFIER)

	if nativeFn || unchecked || !inFn || isUncheckedType(frame.ReturnType) || frame.ReturnType == "" || c.opts.TypeMode == NO_TYPE_MODE {
		c.line(sc.tabs, joinAfter("return", value))
		return
	}

	tokens := append(lex.Synthetics("return", opalconsts.CHECK_TYPE_FN, "(", "("), value...)
	tokens = append(tokens, lex.Synthetics(")", ",", frame.ReturnType, ")")...)
	c.line(sc.tabs, lex.Join(tokens))
}

func (c *Compiler) compileBreak(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.expectSemicolonAfter(s, kw, "break")
	c.rejectStatementModifiers("break", kw)

	if !sc.loop.InLoop() {
		c.error(`cannot use "break" outside of a loop`, kw)
		return
	}
	c.line(sc.tabs, "break")
}

func (c *Compiler) compileContinue(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.expectSemicolonAfter(s, kw, "continue")
	c.rejectStatementModifiers("continue", kw)

	if !sc.loop.InLoop() {
		c.error(`cannot use "continue" outside of a loop`, kw)
		return
	}

	//the continuation of the loop would be skipped otherwise
	for _, line := range sc.loop.Continuation {
		c.line(sc.tabs, line)
	}
	c.line(sc.tabs, "continue")
}

func (c *Compiler) expectSemicolonAfter(s *lex.Stream, kw lex.Token, statement string) {
	next, ok := s.Peek()
	switch {
	case !ok:
		c.error(fmt.Sprintf("expecting \";\" after %q", statement), kw)
	case next.Text != ";":
		c.error(fmt.Sprintf("expecting \";\" after %q", statement), next)
	default:
		s.Next()
	}
}

func (c *Compiler) compileIgnore(s *lex.Stream, sc *scope) {
	c.rejectStatementModifiers("ignore", s.Last())
	exceptions := c.untilStop(s, ";")
	c.line(sc.tabs, lex.Join(append(append(lex.Synthetics("except"), exceptions...), lex.Synthetic(":pass"))))
}

func (c *Compiler) compilePrintReturn(s *lex.Stream, sc *scope) {
	c.rejectStatementModifiers("?", s.Last())
	value := c.untilStop(s, ";")
	c.line(sc.tabs, opalconsts.PRINT_RETURN_FN+"("+lex.Join(value)+")")
}

func (c *Compiler) compileNot(s *lex.Stream, sc *scope) {
	kw := s.Last()
	target := c.untilStop(s, ";")
	c.rejectModifiers("inline boolean inversions", kw)

	tokens := append(append([]lex.Token{}, target...), lex.Synthetics("=", "not")...)
	tokens = append(tokens, target...)
	c.line(sc.tabs, lex.Join(tokens))
}

func (c *Compiler) compileGlobal(s *lex.Stream, sc *scope) {
	if kw := s.Last(); s.PeekIs(":") {
		s.Next()
		c.setModifier(GLOBAL_MODIFIER, kw)
		c.modifierSeq++
		return
	}
	passthroughStatement("global")(c, s, sc)
}

func (c *Compiler) compileUnchecked(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.expectModifierColon(s, "unchecked")
	c.setModifier(UNCHECKED_MODIFIER, kw)
	c.modifierSeq++
}

func (c *Compiler) compileInline(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.expectModifierColon(s, "inline")
	c.setModifier(INLINE_MODIFIER, kw)
	c.modifierSeq++
}

func (c *Compiler) compileAbstract(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.expectModifierColon(s, "abstract")
	c.setModifier(ABSTRACT_MODIFIER, kw)
	c.modifierSeq++
	c.requirePrelude(ABSTRACT_PRELUDE)
}

func (c *Compiler) expectModifierColon(s *lex.Stream, modifier string) {
	next := peekOrLast(s)
	if next.Text != ":" {
		c.error(fmt.Sprintf("expecting \":\" after %q", modifier), next)
		return
	}
	s.Next()
}

// compileStatic handles both the static modifier and static blocks.
func (c *Compiler) compileStatic(s *lex.Stream, sc *scope) {
	kw := s.Last()

	switch next := peekOrLast(s); next.Text {
	case ":":
		s.Next()
		c.setModifier(STATIC_MODIFIER, kw)
		c.modifierSeq++
	case "{":
		s.Next()
		body := c.sameLevel(s, "{", "}")
		if len(body) == 0 {
			return
		}
		c.compileStaticBody(body, &scope{tabs: sc.tabs, loop: sc.loop, symbols: sc.symbols}, nil)
	default:
		c.error(`expecting ":" or "{" after "static"`, next)
	}
}

// compileStaticBody compiles body with the static context enabled.
func (c *Compiler) compileStaticBody(body []lex.Token, sc *scope, frame *diag.Frame) {
	prev := c.static
	c.static = true
	defer func() {
		c.static = prev
	}()
	c.compileBody(body, sc, frame)
}

func (c *Compiler) compilePackage(s *lex.Stream, sc *scope) {
	c.rejectStatementModifiers("package", s.Last())
	name := lex.Join(c.untilStop(s, ":"))

	c.lastPackage = name
	c.begin(sc.tabs, "from "+name+" ")
}

func (c *Compiler) compileImport(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.rejectStatementModifiers("import", kw)
	imports := c.untilStop(s, ";")

	tabs := sc.tabs
	if c.lastPackage != "" {
		//the line was started by the package statement
		tabs = 0
	}

	if len(imports) == 1 && imports[0].Text == "*" {
		if c.lastPackage == "" {
			c.error(`cannot use "import *" if no package is defined`, kw)
			return
		}
		c.addImport(c.lastPackage)
		c.declareModuleMembers(c.lastPackage, kw, sc.symbols)

		c.lastPackage = ""
		c.line(tabs, "import *")
		return
	}

	stream := lex.NewStream(imports)
	for stream.HasNext() {
		name := stream.Next()
		if c.lastPackage == "" {
			c.addImport(name.Text)
		}

		//a dotted module name binds its first component
		if result := lex.ScanUntil(stream, lex.ScanOptions{Stops: []string{"as", ","}}, c.error); result.Found {
			stream.Backtrack()
		}

		next, ok := stream.TryNext()
		if !ok {
			c.declare(sc.symbols, name, DYNAMIC_TYPE)
			break
		}

		if next.Text == "as" {
			name = stream.Next()
			next, ok = stream.TryNext()
		}

		c.declare(sc.symbols, name, DYNAMIC_TYPE)

		if !ok {
			break
		}
		if next.Text != "," {
			c.error("invalid syntax: modules should be separated by commas", next)
		}
	}

	if c.lastPackage != "" {
		c.addImport(c.lastPackage)
		c.lastPackage = ""
	}

	c.line(tabs, "import "+lex.Join(imports))
}

// declareModuleMembers declares the callable members of a host module imported with "import *".
func (c *Compiler) declareModuleMembers(module string, kw lex.Token, symbols SymbolTable) {
	if c.config.Runner == nil {
		c.warning(fmt.Sprintf("cannot list the members of %q: comptime evaluation is disabled. declare the used members with \"use\"", module), kw)
		return
	}

	members, err := c.config.Runner.ModuleCallables(c.ctx, module)
	if err != nil {
		var exception *comptime.ExceptionError
		if errors.As(err, &exception) {
			c.error(fmt.Sprintf("cannot import module %q:\n%s", module, exception.Error()), kw)
		} else {
			c.warning(fmt.Sprintf("cannot list the members of %q: %s", module, err), kw)
		}
		return
	}

	for _, member := range members {
		c.declare(symbols, lex.SyntheticAt(member, kw), DYNAMIC_TYPE)
	}
}

func (c *Compiler) compileUse(s *lex.Stream, sc *scope) {
	c.rejectStatementModifiers("use", s.Last())
	identifiers := lex.NewStream(c.untilStop(s, ";"))

	for identifiers.HasNext() {
		c.declare(sc.symbols, identifiers.Next(), DYNAMIC_TYPE)

		next, ok := identifiers.TryNext()
		if !ok {
			break
		}
		if next.Text != "," {
			c.error(`invalid syntax: expecting ","`, next)
		}
	}
}

func (c *Compiler) compileMain(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.rejectStatementModifiers("main", kw)

	if !s.PeekIs("(") {
		c.compileSimpleBlock(s, sc, c.profile.MainGuard, "main", conditionalFrame())
		return
	}

	s.Next()
	if next := s.Next(); next.Text != ")" {
		c.error("invalid syntax: brackets should be closed", next)
	}

	if c.mainDefined {
		c.error("main function can only be defined once", kw)
		return
	}
	c.mainDefined = true

	frame := &diag.Frame{Kind: c.profile.MainFnFrame, Name: "main", ReturnType: DYNAMIC_TYPE}
	c.compileSimpleBlock(s, &scope{tabs: sc.tabs, symbols: sc.symbols.Copy()}, c.profile.MainFnHeader, "main()", frame)
}
