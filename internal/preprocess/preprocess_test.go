package preprocess

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thatsOven/opal-lang/internal/diag"
)

type fakeEvaluator struct {
	fragments []string
	result    string
	err       error
}

func (e *fakeEvaluator) Evaluate(fragment string) (string, error) {
	e.fragments = append(e.fragments, fragment)
	return e.result, e.err
}

type testSetup struct {
	fs        billy.Filesystem
	out       *bytes.Buffer
	reporter  *diag.Reporter
	native    bool
	evaluator Evaluator
	args      [][]string
	preConsts map[string]string
}

func newTestPreprocessor(t *testing.T, setup *testSetup, files map[string]string) *Preprocessor {
	t.Helper()

	if setup.fs == nil {
		setup.fs = memfs.New()
	}
	for path, content := range files {
		require.NoError(t, util.WriteFile(setup.fs, path, []byte(content), 0o644))
	}

	setup.out = bytes.NewBuffer(nil)
	setup.reporter = diag.NewReporter(diag.ReporterConfig{Out: setup.out})

	return New(Config{
		Filesystem: setup.fs,
		WorkDir:    "/proj",
		Reporter:   setup.reporter,
		Evaluator:  setup.evaluator,
		HandleArgs: func(args []string) error {
			setup.args = append(setup.args, args)
			if len(args) > 0 && args[0] == "--bad" {
				return errors.New("bad option")
			}
			return nil
		},
		Logger:     zerolog.Nop(),
		NativeMode: func() bool { return setup.native },
		PreConsts:  setup.preConsts,
	})
}

func TestProcessConstants(t *testing.T) {

	t.Run("define", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		out := p.Process("$define SIZE 10\nnew int x = SIZE;\nnew int y = 1;")
		assert.Equal(t, "\nnew int x=10;\nnew int y = 1;", out)
		assert.False(t, setup.reporter.HadError())

		value, ok := p.Const("SIZE")
		assert.True(t, ok)
		assert.Equal(t, "10", value)
	})

	t.Run("directive lines keep the line count", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		source := "a;\n  $define X 1\n\nb;"
		out := p.Process(source)
		assert.Equal(t, strings.Count(source, "\n"), strings.Count(out, "\n"))
	})

	t.Run("pdefine constants are only used by directives", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, map[string]string{"/proj/lib/a.opal": "a;"})

		out := p.Process("$pdefine DIR \"lib\"\n$include DIR + \"/a.opal\"\nDIR;")
		assert.False(t, setup.reporter.HadError(), setup.out.String())
		assert.Contains(t, out, PushNameSignal("a.opal", "file"))
		assert.True(t, strings.HasSuffix(out, "\nDIR;"))
	})

	t.Run("reset restores the seed", func(t *testing.T) {
		setup := &testSetup{preConsts: map[string]string{"HOME_DIR": `"/home"`}}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$pdefine HOME_DIR \"/other\"\n$define A 1\n$macro m\nx;\n$end")
		value, _ := p.PreConst("HOME_DIR")
		assert.Equal(t, `"/other"`, value)

		p.Reset()
		value, _ = p.PreConst("HOME_DIR")
		assert.Equal(t, `"/home"`, value)

		_, ok := p.Const("A")
		assert.False(t, ok)
		_, ok = p.Macro("m")
		assert.False(t, ok)
	})
}

func TestProcessMacros(t *testing.T) {
	source := "$macro swap(a, b)\na, b = b, a;\n$end\n$call swap(x, y)\n$call swap(a, b)"

	t.Run("argument rebinding", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		out := p.Process(source)
		require.False(t, setup.reporter.HadError(), setup.out.String())

		macro, ok := p.Macro("swap")
		require.True(t, ok)
		assert.Equal(t, "a,b", macro.Args)
		assert.Equal(t, "a, b = b, a;\n", macro.Body)

		push := PushNameSignal("swap", "macro")
		pop := PopNameSignal()

		expected := "\n\n\n\n" +
			push + "new dynamic a,b;a,b=x,y;a, b = b, a;\n" + pop +
			"\n" +
			push + "new dynamic a,b;a, b = b, a;\n" + strings.TrimSuffix(pop, "\n")
		assert.Equal(t, expected, out)
		assert.True(t, p.EmittedSignals())
	})

	t.Run("macro without arguments", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		out := p.Process("$macro hello\nprint(1);\n$end\n$call hello")
		assert.Contains(t, out, PushNameSignal("hello", "macro")+"print(1);\n"+strings.TrimSuffix(PopNameSignal(), "\n"))
	})

	t.Run("call inside a macro definition", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$macro a\nx;\n$end\n$macro b\n$call a\ny;\n$end")
		macro, ok := p.Macro("b")
		require.True(t, ok)
		assert.Equal(t, PushNameSignal("a", "macro")+"x;\n"+PopNameSignal()+"y;\n", macro.Body)
	})

	t.Run("errors", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$call nope\n$macro m\n$macro n\n$end\n$end\n$macro e\n$end")
		assert.True(t, setup.reporter.HadError())

		output := setup.out.String()
		assert.Contains(t, output, "error (line 1): trying to call undefined macro \"nope\"\n")
		assert.Contains(t, output, "error (line 3): found recursive macro definition\n")
		assert.Contains(t, output, "error (line 5): $end found with no macro definition, comptime block or export block\n")
		assert.Contains(t, output, "warning (line 7): the \"e\" macro is being saved as empty\n")
	})

	t.Run("macro without $end", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("x;\n$macro m\nnew dynamic x = 1;\n")
		assert.True(t, setup.reporter.HadError())
		assert.Contains(t, setup.out.String(), "error (line 2): unterminated $macro block: \"m\" has no $end\n")

		_, ok := p.Macro("m")
		assert.False(t, ok)

		diagnostics := setup.reporter.Diagnostics()
		require.Len(t, diagnostics, 1)
		assert.Equal(t, 2, diagnostics[0].Line)
	})

	t.Run("arguments passed to a macro without formals", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$macro m\nx;\n$end\n$call m(1)")
		assert.Contains(t, setup.out.String(), `macro "m" takes no arguments`)
	})
}

func TestProcessIncludes(t *testing.T) {

	t.Run("include", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, map[string]string{"/proj/lib.opal": "$define N 3\nnew int y = N;"})

		out := p.Process("$include \"lib.opal\"\nN;")
		require.False(t, setup.reporter.HadError(), setup.out.String())

		assert.Equal(t, "\n"+PushNameSignal("lib.opal", "file")+"\nnew int y=3;\n"+PopNameSignal()+"3;", out)
	})

	t.Run("host files are embedded", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, map[string]string{"/proj/h.py": "def f():\n    return 1"})

		out := p.Process(`$include "h.py"`)
		require.False(t, setup.reporter.HadError(), setup.out.String())

		assert.Contains(t, out, EmbedSignal("def f():"))
		assert.Contains(t, out, `__OPALSIG[EMBED_ENCODED](4,"`+EncodeText("return 1")+`")`)
	})

	t.Run("native files are skipped in host mode", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, map[string]string{"/proj/n.pyx": "cdef int x"})

		out := p.Process(`$include "n.pyx"`)
		assert.Equal(t, "", out)

		setup.native = true
		out = p.Process(`$include "n.pyx"`)
		assert.Contains(t, out, PushNameSignal("n.pyx", "file"))
	})

	t.Run("recursive inclusion", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, map[string]string{
			"/proj/a.opal": "$include \"b.opal\"",
			"/proj/b.opal": "x;\n$include \"a.opal\"",
		})

		p.Process(`$include "a.opal"`)
		assert.True(t, setup.reporter.HadError())
		assert.Contains(t, setup.out.String(), "error (line 2): recursive inclusion of \"/proj/a.opal\"")
	})

	t.Run("missing file", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		p.Process(`$include "missing.opal"`)
		assert.True(t, setup.reporter.HadError())
		assert.Contains(t, setup.out.String(), `cannot read "/proj/missing.opal"`)
	})

	t.Run("invalid path expression", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		p.Process(`$include open("x")`)
		assert.True(t, setup.reporter.HadError())
	})

	t.Run("include directory", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, map[string]string{
			"/proj/lib/f10.opal":   "ten;",
			"/proj/lib/f2.opal":    "two;",
			"/proj/lib/h.py":       "pass",
			"/proj/lib/n.pyx":      "pass",
			"/proj/lib/notes.txt":  "ignored",
			"/proj/lib/sub/x.opal": "ignored;",
		})

		out := p.Process(`$includeDirectory "lib"`)
		require.False(t, setup.reporter.HadError(), setup.out.String())

		i10 := strings.Index(out, PushNameSignal("f10.opal", "file"))
		i2 := strings.Index(out, PushNameSignal("f2.opal", "file"))
		iPy := strings.Index(out, PushNameSignal("h.py", "file"))

		assert.True(t, i2 >= 0 && i10 > i2, "natural order")
		assert.True(t, iPy > i10)
		assert.NotContains(t, out, "n.pyx")
		assert.NotContains(t, out, "ignored")
		assert.NotContains(t, out, "notes.txt")
	})
}

func TestProcessComptime(t *testing.T) {

	t.Run("export", func(t *testing.T) {
		evaluator := &fakeEvaluator{result: "new int z = 3;"}
		setup := &testSetup{evaluator: evaluator}
		p := newTestPreprocessor(t, setup, nil)

		out := p.Process("$comptime\nnew int a = 1;\n$export new int z = 3;\n$end\nz;")
		require.False(t, setup.reporter.HadError(), setup.out.String())

		require.Len(t, evaluator.fragments, 1)
		assert.Equal(t,
			COMPTIME_FRAGMENT_START+"new int a = 1;\nreturn \""+EncodeText("new int z=3;")+"\";"+COMPTIME_FRAGMENT_END,
			evaluator.fragments[0],
		)
		assert.Equal(t, "\n\n\n\nnew int z = 3;\nz;", out)
	})

	t.Run("export block", func(t *testing.T) {
		evaluator := &fakeEvaluator{}
		setup := &testSetup{evaluator: evaluator}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$define V 2\n$comptime\n$exportBlock\nnew int v = V;\n$end\n$end")
		require.False(t, setup.reporter.HadError(), setup.out.String())

		require.Len(t, evaluator.fragments, 1)
		assert.Contains(t, evaluator.fragments[0], `return "`+EncodeText("new int v=2;")+`";`)
	})

	t.Run("exception", func(t *testing.T) {
		setup := &testSetup{evaluator: &fakeEvaluator{err: errors.New("Traceback: boom")}}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$comptime\nx;\n$end")
		assert.True(t, setup.reporter.HadError())
		assert.Contains(t, setup.out.String(), "error (line 3): comptime block threw an exception:\nTraceback: boom\n")
	})

	t.Run("fragment not compiled", func(t *testing.T) {
		setup := &testSetup{evaluator: &fakeEvaluator{err: ErrFragmentNotCompiled}}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$comptime\nx;\n$end")
		assert.True(t, setup.reporter.HadError())
		assert.Empty(t, setup.out.String())
	})

	t.Run("disabled", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$comptime\nx;\n$end")
		assert.Contains(t, setup.out.String(), "error (line 3): comptime evaluation is disabled\n")
	})

	t.Run("comptime block without $end", func(t *testing.T) {
		evaluator := &fakeEvaluator{}
		setup := &testSetup{evaluator: evaluator}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$comptime\n$export x\n")
		assert.True(t, setup.reporter.HadError())
		assert.Contains(t, setup.out.String(), "error (line 1): unterminated $comptime block: no $end found\n")
		assert.Empty(t, evaluator.fragments)
	})

	t.Run("export block without $end", func(t *testing.T) {
		evaluator := &fakeEvaluator{}
		setup := &testSetup{evaluator: evaluator}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$comptime\nx;\n$exportBlock\ny;")
		assert.True(t, setup.reporter.HadError())

		output := setup.out.String()
		assert.Contains(t, output, "error (line 3): unterminated $exportBlock block: no $end found\n")
		assert.Contains(t, output, "error (line 1): unterminated $comptime block: no $end found\n")
		assert.Empty(t, evaluator.fragments)
	})

	t.Run("misuse", func(t *testing.T) {
		evaluator := &fakeEvaluator{}
		setup := &testSetup{evaluator: evaluator}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$export x\n$exportBlock\n$comptime\n$comptime\n$end\n$comptime\n$exportBlock\n$end\n$end")

		output := setup.out.String()
		assert.Contains(t, output, "error (line 1): cannot use $export outside of a comptime block\n")
		assert.Contains(t, output, "error (line 2): cannot use $exportBlock outside of a comptime block\n")
		assert.Contains(t, output, "error (line 4): cannot use comptime block inside another comptime block\n")
		assert.Contains(t, output, "warning (line 5): empty comptime block\n")
		assert.Contains(t, output, "warning (line 8): empty export block\n")
		assert.Empty(t, evaluator.fragments)
	})
}

func TestProcessOtherDirectives(t *testing.T) {

	t.Run("nocompile and restore", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		out := p.Process("$nocompile\n  x = {}\n$restore\ny;")
		assert.Equal(t, "\n"+EmbedSignal("  x = {}")+"\ny;", out)
		assert.True(t, p.EmittedSignals())
	})

	t.Run("args", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		p.Process(`$args ["--static", "--type-mode", "none"]`)
		assert.Equal(t, [][]string{{"--static", "--type-mode", "none"}}, setup.args)
		assert.False(t, setup.reporter.HadError())

		p.Process(`$args ["--bad"]`)
		assert.Contains(t, setup.out.String(), "error (line 1): bad option\n")

		p.Process(`$args 1`)
		assert.Len(t, setup.args, 2)
	})

	t.Run("cy", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		assert.Equal(t, "", p.Process("$cy boundscheck False"))

		setup.native = true
		assert.Equal(t, "\n@cython.boundscheck(False);", p.Process("$cy boundscheck False"))
	})

	t.Run("signals", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)
		assert.False(t, p.EmittedSignals())

		out := p.Process("$tabcontext 2\n$cdef\n$embed print( 'a  b' )")
		assert.Equal(t, "\n"+TabsAddSignal("2")+"\n"+CdefSignal()+"\n"+strings.TrimSuffix(EmbedSignal("print( 'a  b' )"), "\n"), out)
		assert.True(t, p.EmittedSignals())
	})

	t.Run("unknown directive", func(t *testing.T) {
		setup := &testSetup{}
		p := newTestPreprocessor(t, setup, nil)

		p.Process("$frobnicate\n$")
		assert.Contains(t, setup.out.String(), "error (line 1): unknown or incomplete precompiler instruction\n")
		assert.Contains(t, setup.out.String(), "error (line 2): unknown or incomplete precompiler instruction\n")
	})
}

func TestReplaceConsts(t *testing.T) {
	consts := map[string]string{"A": "1", "B": "x + y"}

	assert.Equal(t, "f(1,x + y);", ReplaceConsts("f(A, B);", consts))
	assert.Equal(t, "g( C );", ReplaceConsts("g( C );", consts))
	assert.Equal(t, "  a\n1;", ReplaceConsts("  a\nA;", consts))
	assert.Equal(t, "A", ReplaceConsts("A", nil))
}

func TestEncodeText(t *testing.T) {
	assert.Equal(t, `\u0061\u0022\u00e9`, EncodeText(`a"é`))
	assert.Equal(t, `\U0001f600`, EncodeText("😀"))
}
