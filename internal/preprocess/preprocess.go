// Package preprocess implements the line level directive pass that runs before tokenization:
// file inclusion, constants, macros, compile-time blocks and native-extension directives.
package preprocess

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/thatsOven/opal-lang/internal/consteval"
	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/lex"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

const (
	DIRECTIVE_INTRODUCER = "$"
	LOG_SRC              = "preprocess"

	COMPTIME_FRAGMENT_START = "global:new function " + opalconsts.COMPTIME_BLOCK_FN + "(){\n"
	COMPTIME_FRAGMENT_END   = "}\n"
)

var (
	// ErrFragmentNotCompiled is returned by an Evaluator when the comptime fragment did not compile,
	// the problems have already been reported.
	ErrFragmentNotCompiled = errors.New("comptime fragment did not compile")
)

// An Evaluator compiles and runs a comptime fragment, it returns the text the block exported,
// or "" if nothing was exported.
type Evaluator interface {
	Evaluate(fragment string) (string, error)
}

// ArgsHandler applies the option strings of an $args directive.
type ArgsHandler func(args []string) error

type Macro struct {
	Name string
	Args string //comma separated formal list, empty if the macro has no arguments
	Body string
}

func (m *Macro) add(text string) {
	m.Body += text
}

type Config struct {
	Filesystem billy.Filesystem
	WorkDir    string //relative paths are resolved against it

	Reporter    *diag.Reporter
	Evaluator   Evaluator //nil disables comptime blocks
	HandleArgs  ArgsHandler
	Logger      zerolog.Logger
	NativeMode  func() bool
	PreConsts   map[string]string
	MaxIncludes int //maximum include depth, defaults to DEFAULT_MAX_INCLUDE_DEPTH
}

const DEFAULT_MAX_INCLUDE_DEPTH = 64

type Preprocessor struct {
	fs         billy.Filesystem
	workDir    string
	reporter   *diag.Reporter
	evaluator  Evaluator
	handleArgs ArgsHandler
	logger     zerolog.Logger
	nativeMode func() bool
	maxDepth   int

	seed      map[string]string
	preConsts map[string]string
	consts    map[string]string
	macros    map[string]*Macro

	includeStack  []string
	emittedSignal bool
}

func New(config Config) *Preprocessor {
	maxDepth := config.MaxIncludes
	if maxDepth <= 0 {
		maxDepth = DEFAULT_MAX_INCLUDE_DEPTH
	}
	nativeMode := config.NativeMode
	if nativeMode == nil {
		nativeMode = func() bool { return false }
	}

	p := &Preprocessor{
		fs:         config.Filesystem,
		workDir:    config.WorkDir,
		reporter:   config.Reporter,
		evaluator:  config.Evaluator,
		handleArgs: config.HandleArgs,
		logger:     diag.ChildLoggerForSource(config.Logger, LOG_SRC),
		nativeMode: nativeMode,
		maxDepth:   maxDepth,
		seed:       config.PreConsts,
	}
	p.Reset()
	return p
}

// Reset forgets the macros and the constants, the $pdefine constants are reset to the seed.
func (p *Preprocessor) Reset() {
	p.macros = map[string]*Macro{}
	p.consts = map[string]string{}
	p.preConsts = map[string]string{}
	for k, v := range p.seed {
		p.preConsts[k] = v
	}
	p.includeStack = nil
	p.emittedSignal = false
}

// EmittedSignals reports whether the last Process call inserted compiler signals.
func (p *Preprocessor) EmittedSignals() bool {
	return p.emittedSignal
}

func (p *Preprocessor) Macro(name string) (*Macro, bool) {
	m, ok := p.macros[name]
	return m, ok
}

func (p *Preprocessor) Const(name string) (string, bool) {
	c, ok := p.consts[name]
	return c, ok
}

func (p *Preprocessor) PreConst(name string) (string, bool) {
	c, ok := p.preConsts[name]
	return c, ok
}

// Process runs the directive pass over the source of a unit and replaces the $define constants.
func (p *Preprocessor) Process(source string) string {
	return ReplaceConsts(p.process(source), p.consts)
}

// block being recorded by the line loop.
type recording struct {
	macro    *Macro
	comptime *strings.Builder
	export   *strings.Builder

	//lines of the opening directives
	macroLine, comptimeLine, exportLine int
}

func (r *recording) active() bool {
	return r.macro != nil || r.comptime != nil || r.export != nil
}

func (p *Preprocessor) process(source string) string {
	var (
		result   strings.Builder
		rec      recording
		hostCode bool
	)

	//text that is either added to the output or to the macro being recorded.
	emit := func(text string) {
		if rec.macro != nil {
			rec.macro.add(text)
		} else {
			result.WriteString(text)
		}
	}

	for i, line := range strings.Split(source, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimLeft(line, " \t")

		if strings.TrimSpace(line) == "" {
			result.WriteByte('\n')
			continue
		}

		if !strings.HasPrefix(trimmed, DIRECTIVE_INTRODUCER) {
			if hostCode {
				p.emittedSignal = true
				line = strings.TrimSuffix(EmbedSignal(line), "\n")
			}

			if !rec.active() {
				result.WriteString(line)
				result.WriteByte('\n')
				continue
			}

			result.WriteByte('\n')
			switch {
			case rec.macro != nil:
				rec.macro.add(line + "\n")
			case rec.export != nil:
				rec.export.WriteString(line + "\n")
			default:
				rec.comptime.WriteString(line + "\n")
			}
			continue
		}

		result.WriteByte('\n')

		tokens := lex.TokenizeLine(trimmed[len(DIRECTIVE_INTRODUCER):])
		stream := lex.NewStream(tokens)
		directive, ok := stream.TryNext()
		if !ok {
			p.reporter.LineError("unknown or incomplete precompiler instruction", lineNo)
			continue
		}
		rest := lex.Join(stream.Rest())

		onError := func(msg string, _ lex.Token) {
			p.reporter.LineError(msg, lineNo)
		}

		switch directive.Text {
		case "include":
			path, ok := p.evalPath(rest, lineNo)
			if !ok {
				continue
			}
			isNative := strings.HasSuffix(path, opalconsts.NATIVE_FILE_EXTENSION)
			if isNative && !p.nativeMode() {
				continue
			}
			p.include(&result, path, lineNo)
		case "includeDirectory":
			dir, ok := p.evalPath(rest, lineNo)
			if !ok {
				continue
			}
			p.includeDirectory(&result, dir, lineNo)
		case "define", "pdefine":
			name, ok := stream.TryNext()
			if !ok {
				p.reporter.LineError("unknown or incomplete precompiler instruction", lineNo)
				continue
			}
			content := lex.Join(stream.Rest())

			if directive.Text == "define" {
				p.consts[name.Text] = content
			} else {
				p.preConsts[name.Text] = content
			}
		case "macro":
			if rec.macro != nil {
				p.reporter.LineError("found recursive macro definition", lineNo)
				continue
			}

			name, ok := stream.TryNext()
			if !ok {
				p.reporter.LineError("unknown or incomplete precompiler instruction", lineNo)
				continue
			}

			macro := &Macro{Name: name.Text}
			if stream.PeekIs("(") {
				stream.Next()
				args, _ := lex.GetSameLevelParenthesis(stream, "(", ")", onError)
				macro.Args = lex.Join(args)
			}
			rec.macro = macro
			rec.macroLine = lineNo
		case "comptime":
			if rec.comptime != nil {
				p.reporter.LineError("cannot use comptime block inside another comptime block", lineNo)
				continue
			}
			rec.comptime = &strings.Builder{}
			rec.comptimeLine = lineNo
		case "export":
			if rec.comptime == nil {
				p.reporter.LineError("cannot use $export outside of a comptime block", lineNo)
				continue
			}
			rec.comptime.WriteString(`return "` + EncodeText(rest) + "\";\n")
		case "exportBlock":
			if rec.comptime == nil {
				p.reporter.LineError("cannot use $exportBlock outside of a comptime block", lineNo)
				continue
			}
			rec.export = &strings.Builder{}
			rec.exportLine = lineNo
		case "end":
			switch {
			case rec.macro != nil:
				if rec.macro.Body == "" {
					p.reporter.LineWarning(fmt.Sprintf("the %q macro is being saved as empty", rec.macro.Name), lineNo)
				}
				p.macros[rec.macro.Name] = rec.macro
				p.logger.Debug().Str("macro", rec.macro.Name).Int("line", lineNo).Msg("macro recorded")
				rec.macro = nil
			case rec.export != nil:
				export := rec.export.String()
				rec.export = nil
				if export == "" {
					p.reporter.LineWarning("empty export block", lineNo)
					continue
				}
				replaced := ReplaceConsts(strings.TrimSpace(export), p.allConsts())
				rec.comptime.WriteString(`return "` + EncodeText(replaced) + "\";\n")
			case rec.comptime != nil:
				code := rec.comptime.String()
				rec.comptime = nil
				if code == "" {
					p.reporter.LineWarning("empty comptime block", lineNo)
					continue
				}
				p.evaluate(&result, code, lineNo)
			default:
				p.reporter.LineError("$end found with no macro definition, comptime block or export block", lineNo)
			}
		case "call":
			name, ok := stream.TryNext()
			if !ok {
				p.reporter.LineError("unknown or incomplete precompiler instruction", lineNo)
				continue
			}
			macro, ok := p.macros[name.Text]
			if !ok {
				p.reporter.LineError(fmt.Sprintf("trying to call undefined macro %q", name.Text), lineNo)
				continue
			}

			p.emittedSignal = true
			buf := PushNameSignal(name.Text, diag.MACRO_FRAME.String())

			if stream.PeekIs("(") {
				stream.Next()
				args, _ := lex.GetSameLevelParenthesis(stream, "(", ")", onError)

				if len(args) != 0 {
					actuals := lex.Join(args)
					switch {
					case macro.Args == "":
						p.reporter.LineError(fmt.Sprintf("macro %q takes no arguments", name.Text), lineNo)
						continue
					case actuals == macro.Args:
						buf += "new dynamic " + macro.Args + ";"
					default:
						buf += "new dynamic " + macro.Args + ";" + macro.Args + "=" + actuals + ";"
					}
				}
			}

			buf += macro.Body + PopNameSignal()
			p.logger.Debug().Str("macro", name.Text).Int("line", lineNo).Msg("macro called")
			emit(buf)
		case "nocompile":
			hostCode = true
		case "restore":
			hostCode = false
		case "args":
			args, err := consteval.EvalStringList(rest)
			if err != nil {
				p.reporter.LineError(err.Error(), lineNo)
				continue
			}
			if p.handleArgs == nil {
				continue
			}
			if err := p.handleArgs(args); err != nil {
				p.reporter.LineError(err.Error(), lineNo)
			}
		case "cy":
			if !p.nativeMode() {
				continue
			}
			arg, ok1 := stream.TryNext()
			val, ok2 := stream.TryNext()
			if !ok1 || !ok2 {
				p.reporter.LineError("unknown or incomplete precompiler instruction", lineNo)
				continue
			}
			result.WriteString("@cython." + arg.Text + "(" + val.Text + ");\n")
		case "tabcontext":
			p.emittedSignal = true
			emit(TabsAddSignal(rest))
		case "embed":
			p.emittedSignal = true
			rawRest := strings.TrimSpace(strings.TrimPrefix(trimmed[len(DIRECTIVE_INTRODUCER):], directive.Text))
			emit(EmbedSignal(rawRest))
		case "cdef":
			p.emittedSignal = true
			emit(CdefSignal())
		default:
			p.reporter.LineError("unknown or incomplete precompiler instruction", lineNo)
		}
	}

	//the recorded bodies are dropped
	if rec.macro != nil {
		p.reporter.LineError(fmt.Sprintf("unterminated $macro block: %q has no $end", rec.macro.Name), rec.macroLine)
	}
	if rec.export != nil {
		p.reporter.LineError("unterminated $exportBlock block: no $end found", rec.exportLine)
	}
	if rec.comptime != nil {
		p.reporter.LineError("unterminated $comptime block: no $end found", rec.comptimeLine)
	}

	out := result.String()
	return strings.TrimSuffix(out, "\n")
}

func (p *Preprocessor) allConsts() map[string]string {
	merged := make(map[string]string, len(p.preConsts)+len(p.consts))
	for k, v := range p.preConsts {
		merged[k] = v
	}
	for k, v := range p.consts {
		merged[k] = v
	}
	return merged
}

// evalPath evaluates the path expression of an include directive.
func (p *Preprocessor) evalPath(expr string, line int) (string, bool) {
	path, err := consteval.EvalString(ReplaceConsts(strings.TrimSpace(expr), p.allConsts()))
	if err != nil {
		p.reporter.LineError(err.Error(), line)
		return "", false
	}
	if !filepath.IsAbs(path) && p.workDir != "" {
		path = filepath.Join(p.workDir, path)
	}
	return filepath.Clean(path), true
}

func (p *Preprocessor) include(result *strings.Builder, path string, line int) {
	if len(p.includeStack) >= p.maxDepth {
		p.reporter.LineError(fmt.Sprintf("maximum include depth (%d) reached while including %q", p.maxDepth, path), line)
		return
	}

	for _, included := range p.includeStack {
		if included == path {
			p.reporter.LineError(fmt.Sprintf("recursive inclusion of %q", path), line)
			return
		}
	}

	content, err := util.ReadFile(p.fs, path)
	if err != nil {
		p.reporter.LineError(fmt.Sprintf("cannot read %q: %s", path, err), line)
		return
	}

	start := time.Now()
	p.emittedSignal = true
	result.WriteString(PushNameSignal(filepath.Base(path), diag.FILE_FRAME.String()))

	if isHostFile(path) {
		for _, line := range strings.Split(string(content), "\n") {
			result.WriteString(EmbedSignal(line))
		}
	} else {
		p.includeStack = append(p.includeStack, path)
		result.WriteString(p.process(string(content)))
		result.WriteByte('\n')
		p.includeStack = p.includeStack[:len(p.includeStack)-1]
	}

	result.WriteString(PopNameSignal())
	p.logger.Debug().Str("file", path).Dur("duration", time.Since(start)).Msg("included")
}

func isHostFile(path string) bool {
	return strings.HasSuffix(path, opalconsts.HOST_FILE_EXTENSION) || strings.HasSuffix(path, opalconsts.NATIVE_FILE_EXTENSION)
}

func (p *Preprocessor) evaluate(result *strings.Builder, code string, line int) {
	if p.evaluator == nil {
		p.reporter.LineError("comptime evaluation is disabled", line)
		return
	}

	fragment := COMPTIME_FRAGMENT_START + ReplaceConsts(strings.TrimSpace(code), p.allConsts()) + COMPTIME_FRAGMENT_END

	start := time.Now()
	exported, err := p.evaluator.Evaluate(fragment)
	p.logger.Debug().Int("line", line).Dur("duration", time.Since(start)).Err(err).Msg("comptime block evaluated")

	switch {
	case errors.Is(err, ErrFragmentNotCompiled):
		p.reporter.MarkFailed()
	case err != nil:
		p.reporter.LineError("comptime block threw an exception:\n"+err.Error(), line)
	case exported != "":
		result.WriteString(exported)
		result.WriteByte('\n')
	}
}

// ReplaceConsts replaces the tokens of each line that are constant names, lines without any
// constant are kept as is.
func ReplaceConsts(text string, consts map[string]string) string {
	if len(consts) == 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		tokens := lex.TokenizeLine(line)
		found := false

		for j, tok := range tokens {
			if value, ok := consts[tok.Text]; ok {
				found = true
				tokens[j] = tok.WithText(value)
			}
		}

		if found {
			lines[i] = lex.Join(tokens)
		}
	}
	return strings.Join(lines, "\n")
}
