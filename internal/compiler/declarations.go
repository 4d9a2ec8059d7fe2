package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/lex"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

const (
	THIS_PARAM_NAME = "this"
)

type parameter struct {
	name  string
	typ   string
	mode  string //"", "*" or "**"
	deflt string
}

// hostParamsString renders parameters as a host signature, unchecked types are omitted.
func hostParamsString(params []parameter) string {
	list := make([]string, len(params))

	for i, p := range params {
		s := p.mode + p.name
		if typ := hostType(p.typ); !isUncheckedType(typ) {
			s += ":" + typ
		}
		if p.deflt != "" {
			s += "=" + p.deflt
		}
		list[i] = s
	}
	return strings.Join(list, ",")
}

// nativeParamsString renders parameters as a native signature.
func nativeParamsString(params []parameter) string {
	list := make([]string, len(params))

	for i, p := range params {
		s := p.typ + " " + p.name
		if p.deflt != "" {
			s += "=" + p.deflt
		}
		list[i] = s
	}
	return strings.Join(list, ",")
}

func (c *Compiler) parseParameters(args []lex.Token) []parameter {
	var params []parameter
	s := lex.NewStream(args)

	for s.HasNext() {
		tok := s.Next()
		p := parameter{typ: DYNAMIC_TYPE}

		if tok.Text == "*" || tok.Text == "**" {
			p.mode = tok.Text
			tok = s.Next()
		}
		p.name = tok.Text

		if s.PeekIs(":") {
			colon := s.Next()
			result := lex.ScanUntil(s, lex.ScanOptions{Stops: []string{"=", ","}}, c.error)
			if result.Found {
				s.Backtrack()
			}
			p.typ = lex.Join(result.Tokens)

			switch p.typ {
			case AUTO_TYPE:
				c.error(`"auto" cannot be used as a parameter type`, colon)
				p.typ = DYNAMIC_TYPE
			case "":
				p.typ = DYNAMIC_TYPE
			}
		}

		next, ok := s.TryNext()
		if !ok {
			params = append(params, p)
			break
		}

		if next.Text == "=" {
			result := lex.ScanUntil(s, lex.ScanOptions{Stops: []string{","}}, c.error)
			p.deflt = lex.Join(result.Tokens)
			params = append(params, p)
			if !result.Found {
				break
			}
			continue
		}

		params = append(params, p)
		if next.Text != "," {
			c.error("invalid syntax: arguments should be separated by commas", next)
		}
	}

	return params
}

// compileNew compiles the declaration of a function, a class, a record or variables.
func (c *Compiler) compileNew(s *lex.Stream, sc *scope) {
	kind := s.Next()

	switch kind.Text {
	case "function", "staticmethod", "classmethod", "method":
		c.compileFunction(s, sc, kind)
	case "record":
		c.compileRecord(s, sc, kind)
	case "class":
		c.compileClass(s, sc, kind)
	default:
		c.compileVariables(s, sc, kind)
	}
}

func (c *Compiler) rejectUncheckedDeclaration(kind lex.Token) {
	if c.mods.Take(UNCHECKED_MODIFIER) {
		c.error(`"unchecked" flag is not effective on functions, methods, records and classes`, kind)
	}
}

// parseSignature reads the name and the parameters of a function or a record.
func (c *Compiler) parseSignature(s *lex.Stream, withThis bool) (name lex.Token, params []parameter, ok bool) {
	name = s.Next()

	next := peekOrLast(s)
	if next.Text != "(" {
		c.error(`expecting character "("`, next)
		return name, nil, false
	}
	s.Next()

	args := c.sameLevel(s, "(", ")")
	if withThis {
		this := []lex.Token{lex.SyntheticAt(THIS_PARAM_NAME, name)}
		if len(args) != 0 {
			this = append(this, lex.SyntheticAt(",", name))
		}
		args = append(this, args...)
	}

	return name, c.parseParameters(args), true
}

func (c *Compiler) compileFunction(s *lex.Stream, sc *scope, kind lex.Token) {
	hasThis := kind.Text == "classmethod" || kind.Text == "method"

	var decorators []string
	switch kind.Text {
	case "staticmethod":
		decorators = append(decorators, "@staticmethod")
	case "classmethod":
		decorators = append(decorators, "@classmethod")
	case "function":
		if top, ok := c.names.Top(); ok && top.Kind == diag.NAMESPACE_FRAME {
			decorators = append(decorators, "@staticmethod")
		}
	}
	if kind.Text != "function" && c.mods.Has(ABSTRACT_MODIFIER) {
		decorators = append(decorators, "@abstractmethod")
	}

	c.rejectUncheckedDeclaration(kind)

	name, params, ok := c.parseSignature(s, hasThis)
	if !ok {
		c.mods.Take(ABSTRACT_MODIFIER)
		return
	}

	if c.mods.Take(ABSTRACT_MODIFIER) {
		c.compileAbstractFunction(s, sc, kind, name, decorators, params)
		return
	}

	c.declare(sc.symbols, name, DYNAMIC_TYPE)

	peek, ok := s.Peek()
	if !ok {
		c.error(`invalid syntax: expecting "{" or type identifier`, s.Last())
		return
	}

	returnType := DYNAMIC_TYPE
	if peek.Text == "{" {
		s.Next()
	} else {
		returnType = lex.Join(c.untilStop(s, "{"))
		if returnType == AUTO_TYPE {
			c.error(`"auto" cannot be used as a return type`, peek)
			returnType = DYNAMIC_TYPE
		}
	}

	native := c.profile.NativeTypedParams && !hasThis && kind.Text == "function" && len(decorators) == 0 &&
		slices.Contains(NATIVE_FN_TYPES, returnType) &&
		!slices.ContainsFunc(params, func(p parameter) bool {
			return p.mode != "" || !slices.Contains(NATIVE_FN_TYPES, p.typ)
		})

	frame := &diag.Frame{Kind: diag.FUNCTION_FRAME, Name: name.Text}

	if native {
		keyword := "cpdef"
		if c.mods.Take(CDEF_MODIFIER) {
			keyword = "cdef"
		}
		if c.mods.Take(INLINE_MODIFIER) {
			keyword += " inline"
		}
		c.begin(sc.tabs, keyword+" "+returnType+" "+name.Text+"("+nativeParamsString(params)+"):")
		frame.Kind = diag.COMPILED_FUNCTION_FRAME
	} else {
		if c.mods.Take(INLINE_MODIFIER) && c.profile.InlineHint {
			c.error(`"inline" flag can only be used on optimizable functions`, kind)
		}
		if c.mods.Take(CDEF_MODIFIER) {
			c.error("$cdef can only be used on classes and optimizable functions", kind)
		}

		returnType = hostType(returnType)
		frame.ReturnType = returnType

		for _, decorator := range decorators {
			c.line(sc.tabs, decorator)
		}

		header := "def " + name.Text + "(" + hostParamsString(params) + ")"
		if returnType != DYNAMIC_TYPE {
			header += "->" + returnType
		}
		c.begin(sc.tabs, header+":")
	}

	body := c.sameLevel(s, "{", "}")
	if len(body) == 0 {
		c.write("pass\n")
		c.mods.Take(STATIC_MODIFIER)
		if c.mods.Take(GLOBAL_MODIFIER) {
			c.globalAlias(sc.tabs, name.Text)
		}
		return
	}
	c.write("\n")

	symbols := sc.symbols.Copy()
	for _, p := range params {
		if native || c.opts.TypeMode == NO_TYPE_MODE {
			symbols[p.name] = DYNAMIC_TYPE
		} else {
			symbols[p.name] = p.typ
		}
	}
	bodyScope := &scope{tabs: sc.tabs + 1, symbols: symbols}

	//parameter annotations are not enforced by the native compiler on regular functions
	if c.profile.Native && !native && c.opts.TypeMode != NO_TYPE_MODE {
		for _, p := range params {
			if p.mode != "" || p.name == THIS_PARAM_NAME || isUncheckedType(p.typ) {
				continue
			}
			typ := hostType(p.typ)
			c.line(bodyScope.tabs, fmt.Sprintf("%s=%s(%s,%s)", p.name, opalconsts.CHECK_TYPE_FN, p.name, typ))
		}
	}

	glob := c.mods.Take(GLOBAL_MODIFIER)
	if c.mods.Take(STATIC_MODIFIER) {
		c.compileStaticBody(body, bodyScope, frame)
	} else {
		c.compileBody(body, bodyScope, frame)
	}

	if glob {
		c.globalAlias(sc.tabs, name.Text)
	}
}

// compileAbstractFunction compiles an abstract function, it has no body.
func (c *Compiler) compileAbstractFunction(s *lex.Stream, sc *scope, kind lex.Token, name lex.Token, decorators []string, params []parameter) {
	if c.mods.Take(STATIC_MODIFIER) {
		c.error(`cannot use "static" flag on an abstract method`, kind)
	}
	if c.mods.Take(CDEF_MODIFIER) {
		c.error("cannot use $cdef on an abstract method", kind)
	}

	c.declare(sc.symbols, name, DYNAMIC_TYPE)

	peek, ok := s.Peek()
	if !ok {
		c.error(`invalid syntax: expecting ";" or type identifier`, s.Last())
		return
	}

	returnType := DYNAMIC_TYPE
	if peek.Text == ";" {
		s.Next()
	} else {
		result := lex.ScanUntil(s, lex.ScanOptions{Stops: []string{";", "{"}, ErrorIfNotFound: true}, c.error)
		if len(result.Tokens) != 0 {
			returnType = lex.Join(result.Tokens)
		}

		if result.Found && result.Next.Text == "{" {
			c.sameLevel(s, "{", "}")
			c.warning("abstract methods cannot have a body, it is ignored", result.Next)
		}

		if returnType == AUTO_TYPE {
			c.error(`"auto" cannot be used as a return type`, peek)
			returnType = DYNAMIC_TYPE
		}
	}
	returnType = hostType(returnType)

	for _, decorator := range decorators {
		c.line(sc.tabs, decorator)
	}

	header := "def " + name.Text + "(" + hostParamsString(params) + ")"
	if returnType != DYNAMIC_TYPE {
		header += "->" + returnType
	}
	c.line(sc.tabs, header+":pass")

	if c.mods.Take(GLOBAL_MODIFIER) {
		c.globalAlias(sc.tabs, name.Text)
	}
}

func (c *Compiler) compileRecord(s *lex.Stream, sc *scope, kind lex.Token) {
	if c.mods.Take(ABSTRACT_MODIFIER) {
		c.error("cannot create abstract record", kind)
	}
	if c.mods.Take(CDEF_MODIFIER) {
		c.error("cannot use $cdef on record", kind)
	}
	c.rejectUncheckedDeclaration(kind)

	name, params, ok := c.parseSignature(s, false)
	if !ok {
		return
	}

	if c.mods.Take(STATIC_MODIFIER) {
		c.error(`cannot use "static" flag on a record`, kind)
	}

	c.declare(sc.symbols, name, CLASS_TYPE)

	parents := ""
	switch next, ok := s.Peek(); {
	case !ok:
		c.error(`expecting ";" after record definition`, s.Last())
	case next.Text == "<-":
		s.Next()
		parents = "(" + lex.Join(c.untilStop(s, ";")) + ")"
	case next.Text == ";":
		s.Next()
	default:
		c.error(`expecting ";" or "<-" after record definition`, next)
	}

	c.line(sc.tabs, "class "+name.Text+parents+":")
	initParams := THIS_PARAM_NAME
	if len(params) != 0 {
		initParams += "," + hostParamsString(params)
	}
	c.line(sc.tabs+1, "def __init__("+initParams+"):")
	if len(params) == 0 {
		c.line(sc.tabs+2, "pass")
	}

	for _, p := range params {
		if typ := hostType(p.typ); isUncheckedType(typ) {
			c.line(sc.tabs+2, fmt.Sprintf("this.%s=%s", p.name, p.name))
		} else {
			c.line(sc.tabs+2, fmt.Sprintf("this.%s:%s=%s", p.name, typ, p.name))
		}
	}

	if c.mods.Take(GLOBAL_MODIFIER) {
		c.globalAlias(sc.tabs, name.Text)
	}
}

func (c *Compiler) compileClass(s *lex.Stream, sc *scope, kind lex.Token) {
	c.requirePrelude(OBJECT_BASE_PRELUDE)
	c.rejectUncheckedDeclaration(kind)

	name := s.Next()
	abstract := c.mods.Take(ABSTRACT_MODIFIER)

	bases := ""
	if s.PeekIs(":") {
		s.Next()
		bases = lex.Join(lex.GetUntil(s, "{", c.error).Tokens)
		if abstract {
			bases += "," + opalconsts.ABSTRACT_BASE
		}
		bases += "," + opalconsts.OBJECT_BASE
	} else {
		c.expectDirectNext(s, "{", "class definition")
		if abstract {
			bases = opalconsts.ABSTRACT_BASE + "," + opalconsts.OBJECT_BASE
		}
	}

	c.declare(sc.symbols, name, CLASS_TYPE)

	if c.mods.Take(INLINE_MODIFIER) && c.profile.InlineHint {
		c.error(`"inline" flag can only be used on optimizable functions`, kind)
	}
	if c.mods.Take(CDEF_MODIFIER) {
		c.error("$cdef can only be used on classes and optimizable functions", kind)
	}

	if bases == "" {
		bases = opalconsts.OBJECT_BASE
	}
	c.begin(sc.tabs, "class "+name.Text+"("+bases+"):")

	body := c.sameLevel(s, "{", "}")
	if len(body) == 0 {
		c.write("pass\n")
		c.mods.Take(STATIC_MODIFIER)
		if c.mods.Take(GLOBAL_MODIFIER) {
			c.globalAlias(sc.tabs, name.Text)
		}
		return
	}
	c.write("\n")

	c.compileClassBody(body, sc, &diag.Frame{Kind: diag.CLASS_FRAME, Name: name.Text}, name.Text)
}

// compileClassBody compiles the body of a class or of a namespace, the static and global modifiers
// apply to the whole body.
func (c *Compiler) compileClassBody(body []lex.Token, sc *scope, frame *diag.Frame, name string) {
	bodyScope := &scope{tabs: sc.tabs + 1, symbols: sc.symbols.Copy()}

	glob := c.mods.Take(GLOBAL_MODIFIER)
	if c.mods.Take(STATIC_MODIFIER) {
		c.compileStaticBody(body, bodyScope, frame)
	} else {
		c.compileBody(body, bodyScope, frame)
	}

	if glob {
		c.globalAlias(sc.tabs, name)
	}
}

func (c *Compiler) compileNamespace(s *lex.Stream, sc *scope) {
	kw := s.Last()
	name := s.Next()
	c.declare(sc.symbols, name, CLASS_TYPE)
	open := s.Next()

	if c.mods.Take(ABSTRACT_MODIFIER) {
		c.error("cannot create abstract namespace", kw)
	}
	c.rejectStatementModifiers("namespace", kw, STATIC_MODIFIER, GLOBAL_MODIFIER)

	if open.Text != "{" {
		c.error(`invalid syntax: expecting "{" after namespace definition`, open)
		c.mods.Take(STATIC_MODIFIER)
		c.mods.Take(GLOBAL_MODIFIER)
		return
	}

	c.requirePrelude(NAMESPACE_BASE_PRELUDE)

	body := c.sameLevel(s, "{", "}")
	c.begin(sc.tabs, "class "+name.Text+"("+opalconsts.NAMESPACE_BASE+"):")

	if len(body) == 0 {
		c.write("pass\n")
		c.mods.Take(STATIC_MODIFIER)
		if c.mods.Take(GLOBAL_MODIFIER) {
			c.globalAlias(sc.tabs, name.Text)
		}
		return
	}
	c.write("\n")

	c.compileClassBody(body, sc, &diag.Frame{Kind: diag.NAMESPACE_FRAME, Name: name.Text}, name.Text)
}

func (c *Compiler) compileVariables(s *lex.Stream, sc *scope, typeTok lex.Token) {
	typ := typeTok.Text
	if typ == "(" {
		typ = lex.Join(c.sameLevel(s, "(", ")"))
	}

	native := false
	if c.profile.NativeLocals && (c.mods.Has(STATIC_MODIFIER) || c.static) &&
		c.names.LookforBeforeFn(diag.CLASS_FRAME, diag.NAMESPACE_FRAME) &&
		!c.mods.Has(UNCHECKED_MODIFIER) && !c.mods.Has(GLOBAL_MODIFIER) && slices.Contains(NATIVE_TYPES, typ) {

		switch {
		case sc.loop.InLoop():
			c.note("consider moving these declarations outside of a loop so they can be automatically optimized", typeTok)
		case !c.names.LookforBeforeFn(diag.CONDITIONAL_FRAME):
			c.note("consider moving these declarations outside of a conditional so they can be automatically optimized", typeTok)
		default:
			native = true
		}
	}
	c.mods.Take(STATIC_MODIFIER)

	if !native {
		typ = hostType(typ)
	}

	unchecked := c.mods.Take(UNCHECKED_MODIFIER)
	if unchecked && isUncheckedType(typ) {
		c.error(`"unchecked" flag is not effective on "auto" and "dynamic" typing`, typeTok)
	}
	glob := c.mods.Take(GLOBAL_MODIFIER)
	if c.mods.Take(INLINE_MODIFIER) {
		c.error(`"inline" flag is not effective on variables declarations`, typeTok)
	}

	declarations := lex.NewStream(c.untilStop(s, ";"))
	name, ok := declarations.TryNext()
	if !ok {
		c.error("invalid syntax: expecting a variable name", typeTok)
		return
	}

	declaredType := typ
	if native {
		declaredType = DYNAMIC_TYPE
	}

	annotate := func(name lex.Token) {
		if native {
			c.line(sc.tabs, "cdef "+typ+" "+name.Text)
		} else {
			c.line(sc.tabs, name.Text+":"+typ)
		}
	}

	for {
		c.declare(sc.symbols, name, declaredType)

		next, ok := declarations.TryNext()
		if !ok {
			if !isUncheckedType(typ) {
				annotate(name)
			}
			if typ == AUTO_TYPE {
				c.error("auto-typed variables cannot be defined without being assigned", name)
			}
			return
		}

		switch next.Text {
		case "=":
			result := lex.ScanUntil(declarations, lex.ScanOptions{Stops: []string{","}, Advance: true}, c.error)
			value := lex.Join(result.Tokens)

			switch {
			case native:
				c.line(sc.tabs, "cdef "+typ+" "+name.Text+"="+value)
			case unchecked || isUncheckedType(typ) || c.opts.TypeMode == NO_TYPE_MODE:
				if glob {
					c.line(sc.tabs, fmt.Sprintf("globals()['%s']=%s", name.Text, value))
				} else {
					c.line(sc.tabs, name.Text+"="+value)
				}
			default:
				checked := fmt.Sprintf("%s(%s,%s)", opalconsts.CHECK_TYPE_FN, value, typ)
				if glob {
					c.line(sc.tabs, fmt.Sprintf("globals()['%s']=%s", name.Text, checked))
				} else {
					c.line(sc.tabs, name.Text+":"+typ+"="+checked)
				}
			}

			if typ == AUTO_TYPE && c.opts.TypeMode != NO_TYPE_MODE {
				ref := name.Text
				if glob {
					ref = fmt.Sprintf("globals()['%s']", name.Text)
				}
				c.captureAutoType(sc, name.Text, ref)
			}

			if !result.Found || result.Next.Text == "," {
				return
			}
			name = result.Next
		case ",":
			if !unchecked && !isUncheckedType(typ) {
				annotate(name)
			}
			if typ == AUTO_TYPE {
				c.error("auto-typed variables cannot be defined without being assigned", name)
			}

			name, ok = declarations.TryNext()
			if !ok {
				return
			}
		default:
			c.error(`invalid syntax: expecting "," or "="`, next)
			return
		}
	}
}
