package compiler

import (
	"fmt"
	"strings"

	"github.com/thatsOven/opal-lang/internal/lex"
)

const INT_ENUM_BASE = "IntEnum"

// compileEnum compiles named enums (an IntEnum class) and anonymous enums (variables of the
// enclosing scope). Members are numbered from zero in order, explicit assignments override
// the number of a member.
func (c *Compiler) compileEnum(s *lex.Stream, sc *scope) {
	kw := s.Last()
	c.rejectStatementModifiers("enum", kw, GLOBAL_MODIFIER)

	value := c.untilStop(s, "{")
	body := c.sameLevel(s, "{", "}")
	glob := c.mods.Take(GLOBAL_MODIFIER)

	tabs := sc.tabs

	if len(value) == 0 {
		if glob {
			c.error(`"global" flag cannot be used on an anonymous "enum" statement`, kw)
			glob = false
		}
		if len(body) == 0 {
			return
		}
	} else {
		if len(value) > 1 {
			c.error("enum name should contain only one token", value[0])
		}
		c.requirePrelude(INT_ENUM_PRELUDE)
		c.declare(sc.symbols, value[0], DYNAMIC_TYPE)

		c.begin(sc.tabs, "class "+value[0].Text+"("+INT_ENUM_BASE+"):")
		if len(body) == 0 {
			c.write("pass\n")
			if glob {
				c.globalAlias(sc.tabs, value[0].Text)
			}
			return
		}
		c.write("\n")
		tabs++
	}

	var members []string
	assignments := c.assignmentChain(body, func(name lex.Token) {
		members = append(members, name.Text)
	})

	if len(members) != 0 {
		targets := strings.Join(members, ",")
		if len(members) == 1 {
			targets += ","
		}
		c.line(tabs, fmt.Sprintf("%s=range(%d)", targets, len(members)))
	}

	for _, line := range assignments {
		c.line(tabs, line)
	}

	if len(members) == 0 && len(assignments) == 0 && tabs != sc.tabs {
		c.line(tabs, "pass")
	}

	if glob {
		c.globalAlias(sc.tabs, value[0].Text)
	}
}
