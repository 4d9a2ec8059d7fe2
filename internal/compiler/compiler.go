// Package compiler implements the statement compiler: it drives the preprocessor and the lexer,
// then lowers the token stream to host code (or native-extension code) while tracking the
// lexical context, the symbols of each scope and the enclosing loop.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/thatsOven/opal-lang/internal/comptime"
	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/lex"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
	"github.com/thatsOven/opal-lang/internal/preprocess"
)

const (
	LOG_SRC            = "compiler"
	COMPTIME_UNIT_NAME = "<comptime>"
)

var (
	PRELUDE_TEXTS = [PRELUDE_COUNT]string{
		ABSTRACT_PRELUDE:       opalconsts.ABSTRACT_IMPORT,
		OBJECT_BASE_PRELUDE:    opalconsts.OBJECT_BASE_IMPORT,
		NAMESPACE_BASE_PRELUDE: opalconsts.NAMESPACE_BASE_IMPORT,
		INT_ENUM_PRELUDE:       opalconsts.INT_ENUM_IMPORT,
		PRINT_RETURN_PRELUDE:   opalconsts.PRINT_RETURN_IMPORT,
	}
)

type Config struct {
	Profile *TargetProfile //defaults to HOST_PROFILE
	Options Options

	Filesystem billy.Filesystem //defaults to the OS filesystem
	WorkDir    string           //directory include paths are relative to
	PreConsts  map[string]string

	//Runner executes comptime blocks and lists the members of modules imported with "import *",
	//comptime blocks are disabled if nil.
	Runner comptime.Runner

	Diagnostics io.Writer //defaults to io.Discard
	Colorize    bool
	Logger      zerolog.Logger
}

// A Compiler compiles units one at a time, all the state of a compilation is reset when a new one starts.
type Compiler struct {
	config  Config
	profile *TargetProfile
	fs      billy.Filesystem
	logger  zerolog.Logger

	names    *diag.NameStack
	reporter *diag.Reporter

	//state of the current compilation
	ctx           context.Context
	opts          Options
	fatalErr      error
	static        bool
	mods          PendingModifiers
	modifierSeq   int
	preludeFlags  *bitset.BitSet
	preludes      []string
	mainDefined   bool
	autoTypes     map[string]struct{}
	imports       []string
	lastPackage   string
	manualSignals bool
	out           strings.Builder
}

func New(config Config) *Compiler {
	profile := config.Profile
	if profile == nil {
		profile = HOST_PROFILE
	}
	fs := config.Filesystem
	if fs == nil {
		fs = osfs.New("/")
	}

	names := &diag.NameStack{}

	c := &Compiler{
		config:  config,
		profile: profile,
		fs:      fs,
		logger:  diag.ChildLoggerForSource(config.Logger, LOG_SRC),
		names:   names,
		reporter: diag.NewReporter(diag.ReporterConfig{
			Out:       config.Diagnostics,
			Colorize:  config.Colorize,
			Notes:     !config.Options.DisableNotes,
			NameStack: names,
		}),
	}
	c.reset(context.Background())
	return c
}

func (c *Compiler) Profile() *TargetProfile {
	return c.profile
}

// Options returns the options of the last compilation, $args directives included.
func (c *Compiler) Options() Options {
	return c.opts
}

// HadError reports whether the last compilation reported an error.
func (c *Compiler) HadError() bool {
	return c.reporter.HadError()
}

func (c *Compiler) Diagnostics() []diag.Diagnostic {
	return c.reporter.Diagnostics()
}

// Imports returns the top level modules imported by the last compiled unit.
func (c *Compiler) Imports() []string {
	return slices.Clone(c.imports)
}

func (c *Compiler) reset(ctx context.Context) {
	c.ctx = ctx
	c.opts = c.config.Options
	c.fatalErr = nil
	c.static = c.opts.Static
	c.mods = newPendingModifiers()
	c.modifierSeq = 0
	c.preludeFlags = bitset.New(uint(PRELUDE_COUNT))
	c.preludes = nil
	c.mainDefined = false
	c.autoTypes = map[string]struct{}{}
	c.imports = nil
	c.lastPackage = ""
	c.manualSignals = true
	c.out.Reset()

	c.names.Reset()
	c.reporter.Reset()
	c.reporter.SetNotes(!c.opts.DisableNotes)
}

// Compile compiles source, the output is empty if an error was reported. The returned error
// is a *ConfigError if the program cannot be compiled with the current options.
func (c *Compiler) Compile(ctx context.Context, source string) (string, error) {
	return c.compile(ctx, source, opalconsts.MAIN_UNIT_NAME, 0)
}

// CompileFile compiles the file at path, top is some source code inserted before the content
// of the file (for example declarations of constants).
func (c *Compiler) CompileFile(ctx context.Context, path string, top string) (string, error) {
	content, err := util.ReadFile(c.fs, path)
	if err != nil {
		return "", fmt.Errorf("cannot read %q: %w", path, err)
	}

	source := top + "\n" + string(content)
	return c.compile(ctx, source, path, strings.Count(top, "\n")+1)
}

func (c *Compiler) compile(ctx context.Context, source string, unit string, lineOffset int) (output string, finalErr error) {
	start := time.Now()

	c.reset(ctx)
	c.reporter.SetLineOffset(lineOffset)
	c.names.Push(diag.Frame{Kind: diag.FILE_FRAME, Name: unit})

	c.logger.Debug().Str("unit", unit).Str("profile", c.profile.Name).Msg("compilation started")
	defer func() {
		c.logger.Debug().Str("unit", unit).Dur("duration", time.Since(start)).Bool("failed", c.HadError()).Msg("compilation ended")
	}()

	var evaluator preprocess.Evaluator
	if c.config.Runner != nil {
		evaluator = fragmentEvaluator{compiler: c}
	}

	pre := preprocess.New(preprocess.Config{
		Filesystem: c.fs,
		WorkDir:    c.config.WorkDir,
		Reporter:   c.reporter,
		Evaluator:  evaluator,
		HandleArgs: c.handleArgs,
		Logger:     c.config.Logger,
		NativeMode: func() bool { return c.profile.NativeFiles },
		PreConsts:  c.config.PreConsts,
	})

	processed := pre.Process(source)
	if c.fatalErr != nil {
		return "", c.fatalErr
	}
	if err := c.profile.checkOptions(c.opts); err != nil {
		return "", err
	}
	c.reporter.SetNotes(!c.opts.DisableNotes)
	c.manualSignals = !pre.EmittedSignals()

	stream := lex.Tokenize(unit, processed)

	if slices.ContainsFunc(stream.Tokens(), func(t lex.Token) bool { return t.Keyword == lex.KW_PRINT_RETURN }) {
		c.requirePrelude(PRINT_RETURN_PRELUDE)
	}

	c.compileRoot(stream)
	if c.HadError() {
		return "", nil
	}
	return c.assemble(), nil
}

// compileRoot compiles the top level block, an error is reported if the token stream ends in
// the middle of a statement.
func (c *Compiler) compileRoot(stream *lex.Stream) {
	defer func() {
		e := recover()
		if e == nil {
			return
		}
		exhausted, isExhausted := e.(*lex.ExhaustedError)
		if !isExhausted {
			panic(e)
		}
		c.error(lex.EXHAUSTED_STREAM_MSG, exhausted.Last)
	}()

	c.compileBlock(stream, &scope{symbols: SymbolTable{}})
}

func (c *Compiler) assemble() string {
	var out strings.Builder

	if c.profile.Prelude != "" {
		out.WriteString(c.profile.Prelude)
		out.WriteByte('\n')
	}

	if checkImport := c.opts.TypeMode.checkImport(); checkImport != "" {
		out.WriteString(checkImport)
		out.WriteByte('\n')
	}

	for _, prelude := range c.preludes {
		out.WriteString(prelude)
		out.WriteByte('\n')
	}

	out.WriteString(c.out.String())

	if c.mainDefined {
		out.WriteString(c.profile.MainCall)
		out.WriteByte('\n')
	}
	return out.String()
}

// handleArgs applies the options of an $args directive to the current compilation.
func (c *Compiler) handleArgs(args []string) error {
	rest, err := c.opts.ApplyArgs(args)

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		if c.fatalErr == nil {
			c.fatalErr = err
		}
		return nil
	}
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		c.logger.Debug().Strs("args", rest).Msg("ignored unknown options")
	}
	c.static = c.static || c.opts.Static
	return nil
}

func (c *Compiler) requirePrelude(p prelude) {
	if c.preludeFlags.Test(uint(p)) {
		return
	}
	c.preludeFlags.Set(uint(p))
	c.preludes = append(c.preludes, PRELUDE_TEXTS[p])
}

func (c *Compiler) addImport(module string) {
	if i := strings.IndexByte(module, '.'); i >= 0 {
		module = module[:i]
	}
	if module != "" && !slices.Contains(c.imports, module) {
		c.imports = append(c.imports, module)
	}
}

func (c *Compiler) error(msg string, tok lex.Token) {
	c.reporter.Error(msg, tok)
}

func (c *Compiler) warning(msg string, tok lex.Token) {
	c.reporter.Warning(msg, tok)
}

func (c *Compiler) note(msg string, tok lex.Token) {
	c.reporter.Note(msg, tok)
}

func indent(tabs int) string {
	return strings.Repeat(" ", max(0, tabs))
}

// line writes an indented line.
func (c *Compiler) line(tabs int, text string) {
	c.out.WriteString(indent(tabs))
	c.out.WriteString(text)
	c.out.WriteByte('\n')
}

// begin writes indented text that the caller completes.
func (c *Compiler) begin(tabs int, text string) {
	c.out.WriteString(indent(tabs))
	c.out.WriteString(text)
}

func (c *Compiler) write(text string) {
	c.out.WriteString(text)
}

// globalAlias writes the line exposing name at the module level.
func (c *Compiler) globalAlias(tabs int, name string) {
	c.line(tabs, fmt.Sprintf("globals()['%s']=%s", name, name))
}

// fragmentEvaluator compiles comptime fragments with a nested compiler and runs them.
type fragmentEvaluator struct {
	compiler *Compiler
}

func (e fragmentEvaluator) Evaluate(fragment string) (string, error) {
	parent := e.compiler

	config := parent.config
	config.Profile = HOST_PROFILE
	config.Options = parent.opts
	config.Options.NoCompile = false
	config.Options.CompileOnly = false
	config.Filesystem = parent.fs

	nested := New(config)
	code, err := nested.compile(parent.ctx, fragment, COMPTIME_UNIT_NAME, 0)
	if err != nil {
		return "", err
	}
	if nested.HadError() {
		return "", preprocess.ErrFragmentNotCompiled
	}

	result, err := parent.config.Runner.Run(parent.ctx, code, opalconsts.COMPTIME_BLOCK_FN)
	if err != nil {
		return "", err
	}
	if !result.HasValue {
		return "", nil
	}
	return result.Value, nil
}
