package compiler

import (
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/thatsOven/opal-lang/internal/lex"
)

// A Modifier is a one-shot flag set by a modifier statement (abstract:, static:, ...) and
// consumed by the statement that follows it.
type Modifier uint

const (
	ABSTRACT_MODIFIER Modifier = iota
	STATIC_MODIFIER
	UNCHECKED_MODIFIER
	INLINE_MODIFIER
	CDEF_MODIFIER
	GLOBAL_MODIFIER

	MODIFIER_COUNT
)

var MODIFIER_NAMES = [MODIFIER_COUNT]string{
	ABSTRACT_MODIFIER:  "abstract",
	STATIC_MODIFIER:    "static",
	UNCHECKED_MODIFIER: "unchecked",
	INLINE_MODIFIER:    "inline",
	CDEF_MODIFIER:      "cdef",
	GLOBAL_MODIFIER:    "global",
}

func (m Modifier) String() string {
	return MODIFIER_NAMES[m]
}

// display returns the way diagnostics refer to the modifier.
func (m Modifier) display() string {
	if m == CDEF_MODIFIER {
		return "$cdef"
	}
	return fmt.Sprintf("%q flag", m.String())
}

type PendingModifiers struct {
	set *bitset.BitSet
}

func newPendingModifiers() PendingModifiers {
	return PendingModifiers{set: bitset.New(uint(MODIFIER_COUNT))}
}

// Set marks m as pending, it returns true if m was already pending.
func (p PendingModifiers) Set(m Modifier) (alreadySet bool) {
	alreadySet = p.set.Test(uint(m))
	p.set.Set(uint(m))
	return
}

func (p PendingModifiers) Has(m Modifier) bool {
	return p.set.Test(uint(m))
}

// Take consumes m and reports whether it was pending.
func (p PendingModifiers) Take(m Modifier) bool {
	if !p.set.Test(uint(m)) {
		return false
	}
	p.set.Clear(uint(m))
	return true
}

func (p PendingModifiers) Any() bool {
	return p.set.Any()
}

func (p PendingModifiers) Clear() {
	p.set.ClearAll()
}

// Pending returns the pending modifiers in declaration order.
func (p PendingModifiers) Pending() []Modifier {
	var mods []Modifier
	for i, ok := p.set.NextSet(0); ok; i, ok = p.set.NextSet(i + 1) {
		mods = append(mods, Modifier(i))
	}
	return mods
}

// rejectModifiers consumes every pending modifier not listed in allowed and reports it
// as not effective on target ("\"match\" statement", "inline boolean inversions", ...).
func (c *Compiler) rejectModifiers(target string, tok lex.Token, allowed ...Modifier) {
	for _, m := range c.mods.Pending() {
		if slices.Contains(allowed, m) {
			continue
		}
		c.mods.Take(m)
		c.error(fmt.Sprintf("%s is not effective on %s", m.display(), target), tok)
	}
}

// rejectStatementModifiers is rejectModifiers for a statement keyword.
func (c *Compiler) rejectStatementModifiers(statement string, tok lex.Token, allowed ...Modifier) {
	c.rejectModifiers(fmt.Sprintf("%q statement", statement), tok, allowed...)
}

// setModifier handles a modifier statement.
func (c *Compiler) setModifier(m Modifier, tok lex.Token) {
	if c.mods.Set(m) {
		c.error(fmt.Sprintf("%q flag was used twice. remove this flag", m.String()), tok)
	}
}

// Prelude flags: each prelude is added to the output at most once per compilation.
type prelude uint

const (
	ABSTRACT_PRELUDE prelude = iota
	OBJECT_BASE_PRELUDE
	NAMESPACE_BASE_PRELUDE
	INT_ENUM_PRELUDE
	PRINT_RETURN_PRELUDE

	PRELUDE_COUNT
)
