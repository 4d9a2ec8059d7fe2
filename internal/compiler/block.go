package compiler

import (
	"context"
	"fmt"

	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/lex"
	"github.com/thatsOven/opal-lang/internal/utils"
)

const (
	MAX_SUGGESTION_DISTANCE = 2
)

type statementHandler func(c *Compiler, s *lex.Stream, sc *scope)

var statementHandlers [lex.KEYWORD_COUNT]statementHandler

func init() {
	statementHandlers = [lex.KEYWORD_COUNT]statementHandler{
		lex.KW_NEW:          (*Compiler).compileNew,
		lex.KW_PROPERTY:     (*Compiler).compileProperty,
		lex.KW_GET:          accessorStatement(GETTER_ACCESSOR),
		lex.KW_SET:          accessorStatement(SETTER_ACCESSOR),
		lex.KW_DELETE:       accessorStatement(DELETER_ACCESSOR),
		lex.KW_NAMESPACE:    (*Compiler).compileNamespace,
		lex.KW_PACKAGE:      (*Compiler).compilePackage,
		lex.KW_IMPORT:       (*Compiler).compileImport,
		lex.KW_ASYNC:        prefixStatement("async"),
		lex.KW_AWAIT:        prefixStatement("await"),
		lex.KW_USE:          (*Compiler).compileUse,
		lex.KW_UNCHECKED:    (*Compiler).compileUnchecked,
		lex.KW_RETURN:       (*Compiler).compileReturn,
		lex.KW_BREAK:        (*Compiler).compileBreak,
		lex.KW_CONTINUE:     (*Compiler).compileContinue,
		lex.KW_DECORATOR:    passthroughStatement("@"),
		lex.KW_THROW:        passthroughStatement("raise"),
		lex.KW_SUPER:        passthroughStatement("super"),
		lex.KW_DEL:          passthroughStatement("del"),
		lex.KW_ASSERT:       passthroughStatement("assert"),
		lex.KW_YIELD:        passthroughStatement("yield"),
		lex.KW_EXTERNAL:     passthroughStatement("nonlocal"),
		lex.KW_GLOBAL:       (*Compiler).compileGlobal,
		lex.KW_PRINT_RETURN: (*Compiler).compilePrintReturn,
		lex.KW_NOT:          (*Compiler).compileNot,
		lex.KW_INCREMENT:    incDecStatement("+"),
		lex.KW_DECREMENT:    incDecStatement("-"),
		lex.KW_MAIN:         (*Compiler).compileMain,
		lex.KW_TRY:          simpleBlockStatement("try", "try", 0),
		lex.KW_CATCH:        headerBlockStatement("except", blockOptions{}),
		lex.KW_SUCCESS:      simpleBlockStatement("else", "success", 0),
		lex.KW_ELSE:         simpleBlockStatement("else", "else", diag.CONDITIONAL_FRAME),
		lex.KW_IF:           headerBlockStatement("if", blockOptions{frame: conditionalFrame()}),
		lex.KW_ELIF:         headerBlockStatement("elif", blockOptions{frame: conditionalFrame()}),
		lex.KW_WHILE:        headerBlockStatement("while", blockOptions{loop: &genericLoop}),
		lex.KW_WITH:         headerBlockStatement("with", blockOptions{}),
		lex.KW_DO:           (*Compiler).compileDo,
		lex.KW_FOR:          (*Compiler).compileFor,
		lex.KW_REPEAT:       (*Compiler).compileRepeat,
		lex.KW_MATCH:        (*Compiler).compileMatch,
		lex.KW_ENUM:         (*Compiler).compileEnum,
		lex.KW_ABSTRACT:     (*Compiler).compileAbstract,
		lex.KW_IGNORE:       (*Compiler).compileIgnore,
		lex.KW_STATIC:       (*Compiler).compileStatic,
		lex.KW_INLINE:       (*Compiler).compileInline,
	}
}

// isPrefixStatement reports whether the statement introduced by kw only prefixes or decorates the
// statement following it, pending modifiers then apply to the next statement.
func isPrefixStatement(kw lex.Keyword) bool {
	switch kw {
	case lex.KW_DECORATOR, lex.KW_ASYNC, lex.KW_AWAIT, lex.KW_PACKAGE:
		return true
	}
	return false
}

// compileBlock compiles the statements of s.
func (c *Compiler) compileBlock(s *lex.Stream, sc *scope) {
	//indentation signals only affect the rest of the block
	local := *sc
	sc = &local

	baseDepth := c.names.Depth()
	var last lex.Token

	for s.HasNext() {
		tok := s.Next()
		last = tok

		if tok.IsDocString() {
			c.line(sc.tabs, tok.Text)
			continue
		}

		if tok.Keyword == lex.KW_SIGNAL {
			c.compileSignal(s, sc, tok, baseDepth)
			continue
		}

		seq := c.modifierSeq

		switch handler := statementHandlers[tok.Keyword]; {
		case handler != nil:
			handler(c, s, sc)
		case sc.symbols.Has(tok.Text):
			s.Backtrack()
			c.compileAssignment(s, sc, true)
		default:
			c.compileTypeConversion(s, sc, tok)
		}

		if c.modifierSeq == seq && !isPrefixStatement(tok.Keyword) {
			c.rejectModifiers("this statement", tok)
		}
	}

	if c.mods.Any() {
		for _, m := range c.mods.Pending() {
			c.error(fmt.Sprintf("%s is not applied to any statement", m.display()), last)
		}
		c.mods.Clear()
	}

	if depth := c.names.Depth(); depth > baseDepth {
		c.warning(fmt.Sprintf("%d scope(s) opened in this block were not closed", depth-baseDepth), last)
		c.names.Truncate(baseDepth)
	}
}

// compileBody compiles the statements of a braced body, frame is pushed on the name stack during
// the compilation if it is not nil.
func (c *Compiler) compileBody(body []lex.Token, sc *scope, frame *diag.Frame) {
	if frame != nil {
		c.names.Push(*frame)
		defer c.names.Pop()
	}
	c.compileBlock(lex.NewStream(body), sc)
}

func conditionalFrame() *diag.Frame {
	return &diag.Frame{Kind: diag.CONDITIONAL_FRAME}
}

// simpleBlockStatement returns the handler of a keyword directly followed by a braced body.
func simpleBlockStatement(header string, what string, frameKind diag.FrameKind) statementHandler {
	return func(c *Compiler, s *lex.Stream, sc *scope) {
		var frame *diag.Frame
		if frameKind != 0 {
			frame = &diag.Frame{Kind: frameKind}
		}
		c.compileSimpleBlock(s, sc, header, what, frame)
	}
}

func (c *Compiler) compileSimpleBlock(s *lex.Stream, sc *scope, header string, what string, frame *diag.Frame) {
	c.expectDirectNext(s, "{", fmt.Sprintf("%q", what))
	body := c.sameLevel(s, "{", "}")

	c.begin(sc.tabs, header)
	if len(body) == 0 {
		c.write(":pass\n")
		return
	}
	c.write(":\n")
	c.compileBody(body, sc.nested(sc.loop), frame)
}

type blockOptions struct {
	header    []lex.Token //if set the opening brace has already been consumed
	hasHeader bool
	loop      *LoopMarker //loop of the body, defaults to the enclosing loop
	after     string      //line inserted at the start of the body
	frame     *diag.Frame
}

// headerBlockStatement returns the handler of a keyword followed by an expression and a braced body.
func headerBlockStatement(keyword string, opts blockOptions) statementHandler {
	return func(c *Compiler, s *lex.Stream, sc *scope) {
		c.compileHeaderBlock(s, sc, keyword, opts)
	}
}

func (c *Compiler) compileHeaderBlock(s *lex.Stream, sc *scope, keyword string, opts blockOptions) {
	loop := sc.loop
	if opts.loop != nil {
		loop = *opts.loop
	}

	header := opts.header
	if !opts.hasHeader {
		header = c.untilStop(s, "{")
	}
	body := c.sameLevel(s, "{", "}")

	c.begin(sc.tabs, joinAfter(keyword, header))

	if opts.after != "" {
		c.write(":\n")
		c.line(sc.tabs+1, opts.after)
	} else {
		if len(body) == 0 {
			c.write(":pass\n")
			return
		}
		c.write(":\n")
	}

	c.compileBody(body, sc.nested(loop), opts.frame)
}

// joinAfter joins text and the tokens as if text was the first token.
func joinAfter(text string, tokens []lex.Token) string {
	return lex.Join(append([]lex.Token{lex.Synthetic(text)}, tokens...))
}

func (c *Compiler) untilStop(s *lex.Stream, stop string) []lex.Token {
	return lex.ScanUntilStop(s, stop, c.error).Tokens
}

func (c *Compiler) sameLevel(s *lex.Stream, open, close string) []lex.Token {
	tokens, _ := lex.GetSameLevelParenthesis(s, open, close, c.error)
	return tokens
}

// expectDirectNext consumes the next token, it should be expected. If it is not the tokens are
// skipped until expected is found.
func (c *Compiler) expectDirectNext(s *lex.Stream, expected string, after string) {
	next := s.Next()
	if next.Text != expected {
		c.error(fmt.Sprintf("invalid syntax: expecting %q directly after %s", expected, after), next)
		lex.GetUntil(s, expected, c.error)
	}
}

// peekText returns the text of the next token, or "" at the end of the stream.
func peekText(s *lex.Stream) string {
	tok, ok := s.Peek()
	if !ok {
		return ""
	}
	return tok.Text
}

// peekOrLast returns the next token, or the last token of the stream if there is none.
func peekOrLast(s *lex.Stream) lex.Token {
	tok, ok := s.Peek()
	if !ok {
		return s.LastToken()
	}
	return tok
}

// reportUnknownStatement reports an unknown statement, suggesting the closest keyword or symbol.
func (c *Compiler) reportUnknownStatement(tok lex.Token, symbols SymbolTable) {
	msg := "unknown statement or identifier"

	candidates := append(lex.StatementKeywords(), symbols.Names()...)
	maxDistance := min(MAX_SUGGESTION_DISTANCE, len(tok.Text)/2)

	if closest, _, ok := utils.FindClosestString(context.Background(), candidates, tok.Text, maxDistance); ok && closest != tok.Text {
		msg += fmt.Sprintf(". did you mean %q?", closest)
	}
	c.error(msg, tok)
}
