//go:build unix

package config

import (
	"os"
)

const (
	UNIX = true
)

func targetSpecificInit() {
	// HOME

	HOME, err := os.UserHomeDir()
	if err == nil {
		if HOME[len(HOME)-1] != '/' {
			HOME += "/"
		}
		USER_HOME = HOME
	}

	env := DetectColorEnv(os.LookupEnv)

	FORCE_COLOR = env.Force
	TRUECOLOR_COLORTERM = env.TrueColor
	TERM_256COLOR_CAPABLE = env.Term256
	NO_COLOR = env.NoColor
	SHOULD_COLORIZE = env.ShouldColorize()
}
