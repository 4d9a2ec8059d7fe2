package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"
	"github.com/thatsOven/opal-lang/internal/compiler"
	"github.com/thatsOven/opal-lang/internal/comptime"
	"github.com/thatsOven/opal-lang/internal/config"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

// compileFlags are the flags shared by the subcommands that compile a program,
// they override the configuration files.
type compileFlags struct {
	static       bool
	noStatic     bool
	disableNotes bool
	typeMode     string
	require      string
	noComptime   bool
	logLevel     string
	debug        bool
	dir          string
	color        string
}

func registerCompileFlags(flags *flag.FlagSet) *compileFlags {
	f := &compileFlags{}

	flags.BoolVar(&f.static, "static", false, "declare every variable as static")
	flags.BoolVar(&f.noStatic, "nostatic", false, "fail if the program is compiled with -static")
	flags.BoolVar(&f.disableNotes, "disable-notes", false, "do not print notes")
	flags.StringVar(&f.typeMode, "type-mode", "", "type checking mode: "+strings.Join(compiler.TYPE_MODE_NAMES[:], ", "))
	flags.StringVar(&f.require, "require", "", "fail if the compiler is older than the given version")
	flags.BoolVar(&f.noComptime, "no-comptime", false, "disable comptime blocks and the member listing of 'import *'")
	flags.StringVar(&f.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&f.debug, "debug", false, "shorthand for -log-level=debug")
	flags.StringVar(&f.dir, "dir", "", "value of the "+opalconsts.HOME_DIR_CONST+" constant, defaults to the directory of the input file")
	flags.StringVar(&f.color, "color", "", "colorize the diagnostics: auto, always or never")

	return f
}

// optionStrings returns the compiler option strings equivalent to the flags.
func (f *compileFlags) optionStrings() []string {
	var args []string
	if f.static {
		args = append(args, compiler.STATIC_OPTION)
	}
	if f.noStatic {
		args = append(args, compiler.NO_STATIC_OPTION)
	}
	if f.disableNotes {
		args = append(args, compiler.DISABLE_NOTES_OPTION)
	}
	if f.typeMode != "" {
		args = append(args, compiler.TYPE_MODE_OPTION, f.typeMode)
	}
	if f.require != "" {
		args = append(args, compiler.REQUIRE_OPTION, f.require)
	}
	return args
}

// compilation holds what is needed to compile one input file.
type compilation struct {
	input    string //absolute path
	top      string
	compiler *compiler.Compiler
	settings config.Settings
	logger   zerolog.Logger
	runner   *comptime.PythonRunner //nil if comptime is disabled
	fs       billy.Filesystem
}

type compilationParams struct {
	input   string
	flags   *compileFlags
	profile *compiler.TargetProfile

	//diagnostics are written to diagnostics, what comptime code prints is written to out.
	diagnostics io.Writer
	out         io.Writer
	logOut      io.Writer
	colorFd     uintptr
}

func newCompilation(params compilationParams) (*compilation, error) {
	fs := osfs.New("/")

	input, err := filepath.Abs(params.input)
	if err != nil {
		return nil, err
	}
	sourceDir := filepath.Dir(input)

	settings, err := config.Load(fs, sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load the configuration: %w", err)
	}

	f := params.flags

	if f.color != "" {
		settings.Color, err = config.ParseColorMode(f.color)
		if err != nil {
			return nil, err
		}
	}
	if f.logLevel != "" {
		settings.LogLevel, err = zerolog.ParseLevel(f.logLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	if f.debug {
		settings.LogLevel = zerolog.DebugLevel
	}
	if f.noComptime {
		settings.Comptime = false
	}

	opts := settings.CompilerOptions()
	if _, err := opts.ApplyArgs(f.optionStrings()); err != nil {
		return nil, err
	}

	colorize := config.ShouldColorize(settings.Color, params.colorFd)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: params.logOut, NoColor: !colorize}).
		Level(settings.LogLevel).
		With().Timestamp().Logger()

	homeDir := f.dir
	if homeDir == "" {
		homeDir = sourceDir
	}
	homeDirLiteral := `"` + strings.ReplaceAll(homeDir, `\`, `\\`) + `"`

	workDir, err := os.Getwd()
	if err != nil {
		workDir = sourceDir
	}

	c := &compilation{
		input:    input,
		top:      "new dynamic " + opalconsts.HOME_DIR_CONST + "=" + homeDirLiteral + ";",
		settings: settings,
		logger:   logger,
		fs:       fs,
	}

	var runner comptime.Runner
	if settings.Comptime {
		c.runner = comptime.NewPythonRunner(comptime.PythonRunnerConfig{
			Python:      settings.Python,
			RuntimePath: settings.RuntimePath,
			Timeout:     settings.ComptimeTimeout,
			Stdout:      params.out,
			Logger:      logger,
		})
		runner = c.runner
	}

	c.compiler = compiler.New(compiler.Config{
		Profile:     params.profile,
		Options:     opts,
		Filesystem:  fs,
		WorkDir:     workDir,
		PreConsts:   map[string]string{opalconsts.HOME_DIR_CONST: homeDirLiteral},
		Runner:      runner,
		Diagnostics: params.diagnostics,
		Colorize:    colorize,
		Logger:      logger,
	})

	logger.Debug().Strs("config-files", settings.Sources).Str("input", input).Msg("compilation prepared")
	return c, nil
}

// compile compiles the input file, ok is false if an error was reported.
func (c *compilation) compile(ctx context.Context) (output string, ok bool, err error) {
	output, err = c.compiler.CompileFile(ctx, c.input, c.top)
	if err != nil {
		return "", false, err
	}
	return output, !c.compiler.HadError(), nil
}

// printCompilationError prints an error returned by newCompilation or compile.
func printCompilationError(err error, errW io.Writer) {
	var configErr *compiler.ConfigError
	if errors.As(err, &configErr) {
		fmt.Fprintln(errW, configErr.Msg)
		return
	}
	fmt.Fprintln(errW, err)
}

// defaultOutputPath returns the output path for input: its base name without extensions,
// with the extension of the profile, in the current directory.
func defaultOutputPath(input string, profile *compiler.TargetProfile) string {
	name := filepath.Base(input)
	if index := strings.IndexByte(name, '.'); index >= 0 {
		name = name[:index]
	}

	if profile.Native {
		//the name of a native module must be a valid identifier
		for _, char := range opalconsts.ILLEGAL_MODULE_NAME_CHARS {
			name = strings.ReplaceAll(name, char, "_")
		}
	}
	return name + profile.FileExtension
}
