package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

// Option strings accepted by $args and by the CLI.
const (
	STATIC_OPTION        = "--static"
	NO_STATIC_OPTION     = "--nostatic"
	DISABLE_NOTES_OPTION = "--disable-notes"
	REQUIRE_OPTION       = "--require"
	NO_COMPILE_OPTION    = "--nocompile"
	COMPILE_ONLY_OPTION  = "--compile-only"
	MODULE_OPTION        = "--module"
	TYPE_MODE_OPTION     = "--type-mode"
)

var (
	CURRENT_VERSION = semver.New(opalconsts.VERSION_YEAR, opalconsts.VERSION_MONTH, opalconsts.VERSION_DAY, "", "")
)

type TypeMode uint8

const (
	HYBRID_TYPE_MODE TypeMode = iota
	CHECK_TYPE_MODE
	FORCE_TYPE_MODE
	NO_TYPE_MODE
)

var TYPE_MODE_NAMES = [...]string{
	HYBRID_TYPE_MODE: "hybrid",
	CHECK_TYPE_MODE:  "check",
	FORCE_TYPE_MODE:  "force",
	NO_TYPE_MODE:     "none",
}

func (m TypeMode) String() string {
	if int(m) >= len(TYPE_MODE_NAMES) {
		return "?"
	}
	return TYPE_MODE_NAMES[m]
}

func ParseTypeMode(s string) (TypeMode, bool) {
	index := slices.Index(TYPE_MODE_NAMES[:], strings.ToLower(s))
	if index < 0 {
		return 0, false
	}
	return TypeMode(index), true
}

// checkImport returns the line importing the runtime type checker, or "" in the "none" mode.
func (m TypeMode) checkImport() string {
	switch m {
	case HYBRID_TYPE_MODE:
		return opalconsts.HYBRID_CHECK_IMPORT
	case CHECK_TYPE_MODE:
		return opalconsts.STRICT_CHECK_IMPORT
	case FORCE_TYPE_MODE:
		return opalconsts.FORCE_CHECK_IMPORT
	}
	return ""
}

type Options struct {
	Static       bool
	DisableNotes bool
	NoCompile    bool //the program must not be compiled to a native extension
	CompileOnly  bool //the program must not be run or compiled to host code
	Module       bool
	TypeMode     TypeMode
}

// ConfigError is a fatal configuration problem: the program cannot be compiled with
// the current options or by the current compiler version.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

// ApplyArgs applies the option strings in args and returns the remaining arguments.
func (o *Options) ApplyArgs(args []string) ([]string, error) {
	var (
		rest         []string
		forbidStatic bool
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case STATIC_OPTION:
			o.Static = true
		case DISABLE_NOTES_OPTION:
			o.DisableNotes = true
		case NO_STATIC_OPTION:
			forbidStatic = true
		case NO_COMPILE_OPTION:
			o.NoCompile = true
		case COMPILE_ONLY_OPTION:
			o.CompileOnly = true
		case MODULE_OPTION:
			o.Module = true
		case REQUIRE_OPTION, TYPE_MODE_OPTION:
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value after %s", arg)
			}
			i++
			value := args[i]

			if arg == TYPE_MODE_OPTION {
				mode, ok := ParseTypeMode(value)
				if !ok {
					return nil, &ConfigError{Msg: fmt.Sprintf("invalid type mode %q, valid modes are: %s", value, strings.Join(TYPE_MODE_NAMES[:], ", "))}
				}
				o.TypeMode = mode
				continue
			}

			if err := CheckRequiredVersion(value); err != nil {
				return nil, err
			}
		default:
			rest = append(rest, arg)
		}
	}

	if forbidStatic && o.Static {
		return nil, &ConfigError{Msg: `This program cannot be compiled with the "--static" flag.`}
	}
	return rest, nil
}

// CheckRequiredVersion returns a *ConfigError if the compiler is older than required.
func CheckRequiredVersion(required string) error {
	version, err := semver.NewVersion(required)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", required, err)
	}

	if CURRENT_VERSION.LessThan(version) {
		return &ConfigError{
			Msg: fmt.Sprintf("This program requires opal v%s or newer, but an older version is installed (%s)",
				strings.TrimSpace(required), opalconsts.VERSION_STRING),
		}
	}
	return nil
}
