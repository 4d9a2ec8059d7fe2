package main

import (
	"os"
	"strconv"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
	"github.com/thatsOven/opal-lang/internal/compiler"
)

var (
	predictSourceFiles = predict.Files("*.opal")
	predictAnyFile     = predict.Files("*")

	completer = CreateCompleter(func(c *Completer) *complete.Command {
		compileFlags := func(extra map[string]complete.Predictor) map[string]complete.Predictor {
			flags := map[string]complete.Predictor{
				"static":        complete.PredictFunc(c.predictSourceFileAfterSwitch),
				"nostatic":      complete.PredictFunc(c.predictSourceFileAfterSwitch),
				"disable-notes": complete.PredictFunc(c.predictSourceFileAfterSwitch),
				"no-comptime":   complete.PredictFunc(c.predictSourceFileAfterSwitch),
				"debug":         complete.PredictFunc(c.predictSourceFileAfterSwitch),
				"type-mode":     predict.Set(compiler.TYPE_MODE_NAMES[:]),
				"require":       predict.Nothing,
				"log-level":     predict.Set{"trace", "debug", "info", "warn", "error"},
				"dir":           predict.Dirs("*"),
				"color":         predict.Set{"auto", "always", "never"},
			}
			for name, predictor := range extra {
				flags[name] = predictor
			}
			return flags
		}

		return &complete.Command{
			Sub: map[string]*complete.Command{
				PYCOMPILE_SUBCMD: {
					Flags: compileFlags(nil),
					Args:  predictAnyFile,
				},
				PYXCOMPILE_SUBCMD: {
					Flags: compileFlags(nil),
					Args:  predictAnyFile,
				},
				CHECK_SUBCMD: {
					Flags: compileFlags(map[string]complete.Predictor{
						"json":   complete.PredictFunc(c.predictSourceFileAfterSwitch),
						"native": complete.PredictFunc(c.predictSourceFileAfterSwitch),
					}),
					Args: predictSourceFiles,
				},
				RUN_SUBCMD: {
					Flags: compileFlags(nil),
					Args:  predictSourceFiles,
				},
				WATCH_SUBCMD: {
					Flags: compileFlags(map[string]complete.Predictor{
						"native":  complete.PredictFunc(c.predictSourceFileAfterSwitch),
						"o":       predictAnyFile,
						"pattern": predict.Set{DEFAULT_WATCH_PATTERN, "**/*.opal"},
					}),
					Args: predictSourceFiles,
				},
				VERSION_SUBCMD:               {},
				HELP_SUBCMD:                  {},
				INSTALL_COMPLETIONS_SUBCMD:   {},
				UNINSTALL_COMPLETIONS_SUBCMD: {},
			},
		}
	})
)

type Completer struct {
	*complete.Command
	currentCompLine  string
	currentCompPoint int //-1 if not retrieved
}

func CreateCompleter(create func(c *Completer) *complete.Command) *Completer {
	c := &Completer{}
	c.Command = create(c)
	return c
}

func (c *Completer) Complete(name string) {
	c.currentCompLine = os.Getenv("COMP_LINE")
	c.currentCompPoint, _ = strconv.Atoi(os.Getenv("COMP_POINT")) //ignore error because .Complete will also check the value

	if c.currentCompPoint > len(c.currentCompLine) {
		c.currentCompPoint = len(c.currentCompLine)
	}

	c.Command.Complete(name)
}

func (c *Completer) beforeCursorPoint() string {
	if c.currentCompPoint < 0 {
		return ""
	}
	return c.currentCompLine[:c.currentCompPoint]
}

// predictSourceFileAfterSwitch predicts source files after a boolean flag.
func (c *Completer) predictSourceFileAfterSwitch(prefix string) (results []string) {
	s := c.beforeCursorPoint()
	if s == "" {
		return
	}

	switch s[len(s)-1] {
	case '=':
		//The flag is a switch, it does not accept any value.
		return
	default:
		return predictSourceFiles.Predict(prefix)
	}
}
