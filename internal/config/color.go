package config

import (
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorEnv is what the environment variables say about color support.
type ColorEnv struct {
	Force     bool //FORCE_COLOR
	NoColor   bool //NO_COLOR
	TrueColor bool //COLORTERM=truecolor
	Term256   bool //TERM contains 256color
}

func DetectColorEnv(lookup func(string) (string, bool)) ColorEnv {
	var env ColorEnv

	isSet := func(name string) bool {
		s, ok := lookup(name)
		return ok && len(s) != 0 && s != "false" && s != "0"
	}

	env.Force = isSet("FORCE_COLOR")
	env.NoColor = isSet("NO_COLOR")

	colorterm, _ := lookup("COLORTERM")
	env.TrueColor = colorterm == "truecolor"

	termName, _ := lookup("TERM")
	env.Term256 = strings.Contains(termName, "256color")
	return env
}

func (e ColorEnv) ShouldColorize() bool {
	return !e.NoColor && (e.Force || e.TrueColor || e.Term256)
}

// ShouldColorize reports whether output written to the file descriptor fd should be colorized.
func ShouldColorize(mode ColorMode, fd uintptr) bool {
	switch mode {
	case ALWAYS_COLOR:
		return true
	case NEVER_COLOR:
		return false
	}
	if NO_COLOR {
		return false
	}
	return FORCE_COLOR || (SHOULD_COLORIZE && term.IsTerminal(int(fd)))
}

// ColorProfile returns the termenv profile matching the environment.
func ColorProfile(colorize bool) termenv.Profile {
	switch {
	case !colorize:
		return termenv.Ascii
	case TRUECOLOR_COLORTERM:
		return termenv.TrueColor
	case TERM_256COLOR_CAPABLE:
		return termenv.ANSI256
	}
	return termenv.ANSI
}
