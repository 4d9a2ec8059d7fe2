//go:build !unix

package config

import "os"

const (
	UNIX = false
)

func targetSpecificInit() {
	if home, err := os.UserHomeDir(); err == nil {
		USER_HOME = home + string(os.PathSeparator)
	}

	env := DetectColorEnv(os.LookupEnv)

	FORCE_COLOR = env.Force
	NO_COLOR = env.NoColor
	TRUECOLOR_COLORTERM = env.TrueColor
	SHOULD_COLORIZE = env.ShouldColorize()
}
