package compiler

import (
	"fmt"
	"maps"
	"slices"

	"github.com/thatsOven/opal-lang/internal/lex"
)

// Declared types that are not concrete types.
const (
	DYNAMIC_TYPE = "dynamic"
	AUTO_TYPE    = "auto"
	CLASS_TYPE   = "class"
)

var (
	ASSIGNMENT_OPERATORS = []string{"+=", "-=", "**=", "//=", "*=", "/=", "%=", "&=", "|=", "^=", ">>=", "<<=", "@=", "="}

	//types a static declaration can turn into a native variable.
	NATIVE_TYPES = []string{
		"short", "int", "long", "long long", "float", "bint",
		"double", "long double", "list", "object", "str",
		"tuple", "dict", "range", "bytes", "bytearray", "complex",
	}

	//types allowed in the signature of a function compiled with a native calling convention.
	NATIVE_FN_TYPES = append(slices.Clone(NATIVE_TYPES), "void", "bool")

	NATIVE_TO_HOST_TYPES = map[string]string{
		"short":       "int",
		"long":        "int",
		"long long":   "int",
		"double":      "float",
		"long double": "float",
		"void":        "None",
		"bint":        "bool",
	}
)

func isAssignmentOperator(s string) bool {
	return slices.Contains(ASSIGNMENT_OPERATORS, s)
}

func isUncheckedType(typ string) bool {
	return typ == DYNAMIC_TYPE || typ == AUTO_TYPE
}

// hostType converts a native type to the equivalent host type.
func hostType(typ string) string {
	if converted, ok := NATIVE_TO_HOST_TYPES[typ]; ok {
		return converted
	}
	return typ
}

// A SymbolTable maps the identifiers known in a scope to their declared type. Function and
// class bodies work on a copy, the statements of a block share the table of the block.
type SymbolTable map[string]string

func (t SymbolTable) Copy() SymbolTable {
	return maps.Clone(t)
}

func (t SymbolTable) Has(name string) bool {
	_, ok := t[name]
	return ok
}

func (t SymbolTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// declare adds a symbol, every symbol is dynamic in the "none" type mode.
func (c *Compiler) declare(symbols SymbolTable, name lex.Token, typ string) {
	if !name.IsIdentifier() {
		c.error(fmt.Sprintf("invalid identifier name %q", name.Text), name)
		return
	}

	if typ == AUTO_TYPE {
		delete(c.autoTypes, name.Text)
	}

	if c.opts.TypeMode == NO_TYPE_MODE {
		symbols[name.Text] = DYNAMIC_TYPE
	} else {
		symbols[name.Text] = typ
	}
}

type LoopKind uint8

const (
	NO_LOOP LoopKind = iota
	GENERIC_LOOP
	COMPOUND_LOOP //the loop runs continuation lines before each new iteration
)

// A LoopMarker describes the innermost loop enclosing a statement.
type LoopMarker struct {
	Kind         LoopKind
	Continuation []string //unindented lines, only for COMPOUND_LOOP
}

var (
	genericLoop = LoopMarker{Kind: GENERIC_LOOP}
)

func compoundLoop(continuation []string) LoopMarker {
	return LoopMarker{Kind: COMPOUND_LOOP, Continuation: continuation}
}

func (l LoopMarker) InLoop() bool {
	return l.Kind != NO_LOOP
}

// scope is the compilation context of a block.
type scope struct {
	tabs    int
	loop    LoopMarker
	symbols SymbolTable
}

// nested returns the scope of a block nested in s, sharing its symbols.
func (s *scope) nested(loop LoopMarker) *scope {
	return &scope{tabs: s.tabs + 1, loop: loop, symbols: s.symbols}
}
