package compiler

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/lex"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

type testCompilation struct {
	profile  *TargetProfile
	typeMode TypeMode
	options  *Options
	files    map[string]string
}

func newTestCompiler(t *testing.T, setup testCompilation) (*Compiler, *bytes.Buffer) {
	t.Helper()

	fs := memfs.New()
	for path, content := range setup.files {
		require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
	}

	opts := Options{TypeMode: setup.typeMode}
	if setup.options != nil {
		opts = *setup.options
	}

	diagnostics := bytes.NewBuffer(nil)
	c := New(Config{
		Profile:     setup.profile,
		Options:     opts,
		Filesystem:  fs,
		WorkDir:     "/proj",
		Diagnostics: diagnostics,
		Logger:      zerolog.Nop(),
	})
	return c, diagnostics
}

// compileUntyped compiles source with the host profile and no type checks.
func compileUntyped(t *testing.T, source string) (string, *Compiler) {
	t.Helper()
	return compileWith(t, testCompilation{typeMode: NO_TYPE_MODE}, source)
}

func compileWith(t *testing.T, setup testCompilation, source string) (string, *Compiler) {
	t.Helper()

	c, _ := newTestCompiler(t, setup)
	output, err := c.Compile(context.Background(), source)
	require.NoError(t, err)
	return output, c
}

func messages(c *Compiler) []string {
	var msgs []string
	for _, d := range c.Diagnostics() {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func messagesOfSeverity(c *Compiler, severity diag.Severity) []string {
	var msgs []string
	for _, d := range c.Diagnostics() {
		if d.Severity == severity.String() {
			msgs = append(msgs, d.Message)
		}
	}
	return msgs
}

func TestCompileVariables(t *testing.T) {

	t.Run("untyped declaration", func(t *testing.T) {
		output, c := compileUntyped(t, "new int x = 5;")
		assert.False(t, c.HadError())
		assert.Equal(t, "x=5\n", output)
	})

	t.Run("checked declaration", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "new int x = 1, y;")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+
			"x:int=_OPAL_CHECK_TYPE_(1,int)\n"+
			"y:int\n", output)
	})

	t.Run("native types are converted to host types", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "new long x = 1;")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+"x:int=_OPAL_CHECK_TYPE_(1,int)\n", output)
	})

	t.Run("assignments of typed variables are checked", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "new int x = 1;\nx = 2;")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+
			"x:int=_OPAL_CHECK_TYPE_(1,int)\n"+
			"x=2\n"+
			"x=_OPAL_CHECK_TYPE_(x,int)\n", output)
	})

	t.Run("auto typed variables keep their first type", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "new auto y = 1;\ny = 2;\ny = 3;")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+
			"y=1\n"+
			"_OPAL_AUTOMATIC_TYPE_y=type(y)\n"+
			"y=2\n"+
			"y=_OPAL_CHECK_TYPE_(y,_OPAL_AUTOMATIC_TYPE_y)\n"+
			"y=3\n"+
			"y=_OPAL_CHECK_TYPE_(y,_OPAL_AUTOMATIC_TYPE_y)\n", output)
	})

	t.Run("auto type is captured at the declaration", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "use x;\nnew auto y = 1;\nmatch:(==) x {\n case 1 { y = 2; }\n default { y = 3; }\n}")
		assert.False(t, c.HadError())

		capture := "_OPAL_AUTOMATIC_TYPE_y=type(y)\n"
		assert.Equal(t, 1, strings.Count(output, capture))
		assert.Contains(t, output, "y=1\n"+capture+"if x==1:\n")
		assert.Equal(t, 2, strings.Count(output, "y=_OPAL_CHECK_TYPE_(y,_OPAL_AUTOMATIC_TYPE_y)\n"))
	})

	t.Run("unchecked assignment of an auto typed variable", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "new auto y = 1;\nunchecked: y = 2;\ny = 3;")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+
			"y=1\n"+
			"_OPAL_AUTOMATIC_TYPE_y=type(y)\n"+
			"y=2\n"+
			"_OPAL_AUTOMATIC_TYPE_y=type(y)\n"+
			"y=3\n"+
			"y=_OPAL_CHECK_TYPE_(y,_OPAL_AUTOMATIC_TYPE_y)\n", output)
	})

	t.Run("global auto typed variable", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "global: new auto y = 1;")
		assert.False(t, c.HadError())
		assert.Contains(t, output, "globals()['y']=1\n_OPAL_AUTOMATIC_TYPE_y=type(globals()['y'])\n")
	})

	t.Run("unchecked assignment", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "new int x = 1;\nunchecked: x = 2;")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+
			"x:int=_OPAL_CHECK_TYPE_(1,int)\n"+
			"x=2\n", output)
	})

	t.Run("inline increment", func(t *testing.T) {
		output, c := compileUntyped(t, "new dynamic i = 0;\ni++;")
		assert.False(t, c.HadError())
		assert.Equal(t, "i=0\ni+=1\n", output)
	})

	t.Run("global declaration", func(t *testing.T) {
		output, c := compileUntyped(t, "global: new int x = 1;")
		assert.False(t, c.HadError())
		assert.Equal(t, "globals()['x']=1\n", output)
	})

	t.Run("auto variable without value", func(t *testing.T) {
		_, c := compileUntyped(t, "new auto x;")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), "auto-typed variables cannot be defined without being assigned")
	})

	t.Run("missing separator", func(t *testing.T) {
		_, c := compileUntyped(t, "new int x y;")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `invalid syntax: expecting "," or "="`)
	})

	t.Run("unchecked on a dynamic declaration", func(t *testing.T) {
		_, c := compileUntyped(t, "unchecked: new dynamic x = 1;")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `"unchecked" flag is not effective on "auto" and "dynamic" typing`)
	})
}

func TestCompileTypeConversion(t *testing.T) {

	t.Run("known variable", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "new dynamic x = 1;\n(int) <- x = 2;")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+
			"x=1\n"+
			"x:int\n"+
			"x=2\n"+
			"x=_OPAL_CHECK_TYPE_(x,int)\n", output)
	})

	t.Run("no known variable", func(t *testing.T) {
		output, c := compileUntyped(t, "int <- y = 2;")
		assert.False(t, c.HadError())
		assert.Equal(t, "y=2\n", output)
		assert.Contains(t, messagesOfSeverity(c, diag.WARNING), "cannot find any variables to convert. it is recommended to remove the type conversion")
	})

	t.Run("unknown statement with suggestion", func(t *testing.T) {
		output, c := compileUntyped(t, "use print;\npritn(1);")
		assert.True(t, c.HadError())
		assert.Empty(t, output)
		assert.Contains(t, messages(c), `unknown statement or identifier. did you mean "print"?`)
	})
}

func TestCompileEnum(t *testing.T) {

	t.Run("named enum", func(t *testing.T) {
		output, c := compileUntyped(t, "enum Color { RED, GREEN, BLUE = 5 }")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.INT_ENUM_IMPORT+"\n"+
			"class Color(IntEnum):\n"+
			" RED,GREEN,BLUE=range(3)\n"+
			" BLUE=5\n", output)
	})

	t.Run("anonymous enum with a single member", func(t *testing.T) {
		output, c := compileUntyped(t, "enum { A }")
		assert.False(t, c.HadError())
		assert.Equal(t, "A,=range(1)\n", output)
	})

	t.Run("empty named enum", func(t *testing.T) {
		output, c := compileUntyped(t, "enum E {}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.INT_ENUM_IMPORT+"\nclass E(IntEnum):pass\n", output)
	})

	t.Run("name with several tokens", func(t *testing.T) {
		_, c := compileUntyped(t, "enum A B { X }")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), "enum name should contain only one token")
	})
}

func TestCompileLoops(t *testing.T) {

	t.Run("C-style for loop", func(t *testing.T) {
		output, c := compileUntyped(t, "for (i = 0; i < 3; i++) {\n if i == 1 {\n  continue;\n }\n}")
		assert.False(t, c.HadError())
		assert.Equal(t,
			"i=0\n"+
				"while i<3:\n"+
				" if i==1:\n"+
				"  i+=1\n"+
				"  continue\n"+
				" i+=1\n", output)
	})

	t.Run("C-style for loop without parentheses and condition", func(t *testing.T) {
		output, c := compileUntyped(t, "for i = 0;; i++ {}")
		assert.False(t, c.HadError())
		assert.Equal(t, "i=0\nwhile True:\n i+=1\n", output)
	})

	t.Run("for-in loop", func(t *testing.T) {
		output, c := compileUntyped(t, "use items, print;\nfor k, v in items {\n print(k);\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "for k,v in items:\n print(k)\n", output)
	})

	t.Run("for loop with one semicolon", func(t *testing.T) {
		_, c := compileUntyped(t, "for i = 0; i < 3 {}")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), "invalid syntax: using an unrecognized amount of semicolons in a for loop")
	})

	t.Run("do-while loop", func(t *testing.T) {
		output, c := compileUntyped(t, "use a, x;\ndo {\n a();\n} while x;")
		assert.False(t, c.HadError())
		assert.Equal(t, "while True:\n a()\n if not(x):break\n", output)
	})

	t.Run("continue in a do-while loop checks the condition", func(t *testing.T) {
		output, c := compileUntyped(t, "use x;\ndo x {\n continue;\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "while True:\n if not(x):break\n continue\n if not(x):break\n", output)
	})

	t.Run("while loop", func(t *testing.T) {
		output, c := compileUntyped(t, "use x;\nwhile x {\n break;\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "while x:\n break\n", output)
	})

	t.Run("break outside of a loop", func(t *testing.T) {
		output, c := compileUntyped(t, "break;")
		assert.True(t, c.HadError())
		assert.Empty(t, output)
		assert.Contains(t, messages(c), `cannot use "break" outside of a loop`)
	})

	t.Run("break in a function defined in a loop", func(t *testing.T) {
		_, c := compileUntyped(t, "use x;\nwhile x {\n new function f() {\n  break;\n }\n}")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `cannot use "break" outside of a loop`)
	})
}

func TestCompileRepeat(t *testing.T) {

	t.Run("constant count", func(t *testing.T) {
		output, c := compileUntyped(t, "use a;\nrepeat 3 {\n a();\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "for _ in range(3):\n a()\n", output)
	})

	t.Run("negative constant count", func(t *testing.T) {
		output, c := compileUntyped(t, "use a;\nrepeat -2 {\n a();\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "for _ in range(2,0,-1):\n a()\n", output)
	})

	t.Run("zero count", func(t *testing.T) {
		output, c := compileUntyped(t, "use a;\nrepeat 0 {\n a();\n}")
		assert.False(t, c.HadError())
		assert.Empty(t, output)
		assert.Contains(t, messagesOfSeverity(c, diag.WARNING), `a 0-times "repeat" statement is being used`)
	})

	t.Run("variable count", func(t *testing.T) {
		output, c := compileUntyped(t, "use n;\nrepeat n {}")
		assert.False(t, c.HadError())
		assert.Equal(t, "for _ in range(abs(int(n))):pass\n", output)
	})

	t.Run("unchecked variable count", func(t *testing.T) {
		output, c := compileUntyped(t, "use n;\nunchecked: repeat n {}")
		assert.False(t, c.HadError())
		assert.Equal(t, "for _ in range(n):pass\n", output)
	})
}

func TestCompileMatch(t *testing.T) {

	t.Run("operator match", func(t *testing.T) {
		output, c := compileUntyped(t, "use a, b, x;\nmatch:(==) x {\n case 1 { a(); }\n default { b(); }\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "if x==1:\n a()\nelse:\n b()\n", output)
	})

	t.Run("operator match with several cases", func(t *testing.T) {
		output, c := compileUntyped(t, "use a, x;\nmatch:() x {\n case 1 { a(); }\n case 2 { a(); }\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "if x==1:\n a()\nelif x==2:\n a()\n", output)
	})

	t.Run("structural match", func(t *testing.T) {
		output, c := compileUntyped(t, "use a, x;\nmatch x {\n case 1 { a(); }\n default { a(); }\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "match x:\n case 1:\n  a()\n case _:\n  a()\n", output)
	})

	t.Run("found clause", func(t *testing.T) {
		output, c := compileUntyped(t, "use a, x;\nmatch x {\n case 1 { a(); }\n found { a(); }\n}")
		assert.False(t, c.HadError())
		assert.Equal(t,
			"_OPAL_MATCHED_0=False\n"+
				"match x:\n"+
				" case 1:\n"+
				"  _OPAL_MATCHED_0=True\n"+
				"  a()\n"+
				"if _OPAL_MATCHED_0:\n"+
				" a()\n"+
				"del _OPAL_MATCHED_0\n", output)
	})

	t.Run("native profile compares by default", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{profile: NATIVE_PROFILE, typeMode: NO_TYPE_MODE},
			"use a, x;\nmatch x {\n case 1 { a(); }\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.NATIVE_PRELUDE+"\n"+"if x==1:\n a()\n", output)
	})

	t.Run("case after found", func(t *testing.T) {
		_, c := compileUntyped(t, "use a, x;\nmatch x {\n found { a(); }\n case 1 { a(); }\n}")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `cannot use "case" after "found" in a "match" statement`)
	})

	t.Run("invalid clause", func(t *testing.T) {
		_, c := compileUntyped(t, "use x;\nmatch x {\n other { }\n}")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `invalid identifier in "match" statement body`)
	})
}

func TestCompileFunctions(t *testing.T) {

	t.Run("function with typed parameters", func(t *testing.T) {
		output, c := compileUntyped(t, "new function add(a: int, b: int = 2) int {\n return a + b;\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "def add(a:int,b:int=2)->int:\n return a+b\n", output)
	})

	t.Run("checked return value", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "new function f() int {\n return 1;\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+"def f()->int:\n return _OPAL_CHECK_TYPE_((1),int)\n", output)
	})

	t.Run("empty function", func(t *testing.T) {
		output, c := compileUntyped(t, "new function f() {}")
		assert.False(t, c.HadError())
		assert.Equal(t, "def f():pass\n", output)
	})

	t.Run("global function", func(t *testing.T) {
		output, c := compileUntyped(t, "global: new function f() {}")
		assert.False(t, c.HadError())
		assert.Equal(t, "def f():pass\nglobals()['f']=f\n", output)
	})

	t.Run("native function", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{profile: NATIVE_PROFILE, typeMode: NO_TYPE_MODE},
			"new function sq(x: int) int {\n return x * x;\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.NATIVE_PRELUDE+"\n"+"cpdef int sq(int x):\n return x*x\n", output)
	})

	t.Run("native function with cdef and inline", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{profile: NATIVE_PROFILE, typeMode: NO_TYPE_MODE},
			"$cdef\ninline: new function f() void {}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.NATIVE_PRELUDE+"\n"+"cdef inline void f():pass\n", output)
	})

	t.Run("parameters of regular functions are checked in native code", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{profile: NATIVE_PROFILE},
			"new function f(x: int, *args) {\n return x;\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.NATIVE_PRELUDE+"\n"+opalconsts.HYBRID_CHECK_IMPORT+"\n"+
			"def f(x:int,*args):\n"+
			" x=_OPAL_CHECK_TYPE_(x,int)\n"+
			" return x\n", output)
	})

	t.Run("inline on a regular function", func(t *testing.T) {
		_, c := compileWith(t, testCompilation{profile: NATIVE_PROFILE, typeMode: NO_TYPE_MODE},
			"inline: new function f(*args) {}")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `"inline" flag can only be used on optimizable functions`)
	})

	t.Run("return outside of a function", func(t *testing.T) {
		_, c := compileUntyped(t, "return 1;")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `cannot use "return" outside of a function`)
	})

	t.Run("auto return type", func(t *testing.T) {
		_, c := compileUntyped(t, "new function f() auto {}")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `"auto" cannot be used as a return type`)
	})

	t.Run("missing parameters", func(t *testing.T) {
		_, c := compileUntyped(t, "new function f {}")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `expecting character "("`)
	})
}

func TestCompileClasses(t *testing.T) {

	t.Run("class with a method", func(t *testing.T) {
		output, c := compileUntyped(t, "new class Point {\n new method norm() {\n  return 0;\n }\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.OBJECT_BASE_IMPORT+"\n"+
			"class Point(OpalObject):\n"+
			" def norm(this):\n"+
			"  return 0\n", output)
	})

	t.Run("class with bases", func(t *testing.T) {
		output, c := compileUntyped(t, "use Base;\nnew class A : Base {}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.OBJECT_BASE_IMPORT+"\n"+"class A(Base,OpalObject):pass\n", output)
	})

	t.Run("abstract class", func(t *testing.T) {
		output, c := compileUntyped(t, "abstract: new class Shape {\n abstract: new method area() float;\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.ABSTRACT_IMPORT+"\n"+opalconsts.OBJECT_BASE_IMPORT+"\n"+
			"class Shape(_ABSTRACT_BASE_CLASS_,OpalObject):\n"+
			" @abstractmethod\n"+
			" def area(this)->float:pass\n", output)
	})

	t.Run("static and class methods", func(t *testing.T) {
		output, c := compileUntyped(t, "new class A {\n new staticmethod s() {}\n new classmethod c() {}\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.OBJECT_BASE_IMPORT+"\n"+
			"class A(OpalObject):\n"+
			" @staticmethod\n"+
			" def s():pass\n"+
			" @classmethod\n"+
			" def c(this):pass\n", output)
	})

	t.Run("record", func(t *testing.T) {
		output, c := compileUntyped(t, "new record Pair(a, b: int);")
		assert.False(t, c.HadError())
		assert.Equal(t,
			"class Pair:\n"+
				" def __init__(this,a,b:int):\n"+
				"  this.a=a\n"+
				"  this.b:int=b\n", output)
	})

	t.Run("record without fields", func(t *testing.T) {
		output, c := compileUntyped(t, "new record Empty();")
		assert.False(t, c.HadError())
		assert.Equal(t, "class Empty:\n def __init__(this):\n  pass\n", output)
	})

	t.Run("abstract record", func(t *testing.T) {
		_, c := compileUntyped(t, "abstract: new record R(a);")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), "cannot create abstract record")
	})

	t.Run("namespace", func(t *testing.T) {
		output, c := compileUntyped(t, "namespace Util {\n new function f() {\n  return 1;\n }\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.NAMESPACE_BASE_IMPORT+"\n"+
			"class Util(OpalNamespace):\n"+
			" @staticmethod\n"+
			" def f():\n"+
			"  return 1\n", output)
	})

	t.Run("property", func(t *testing.T) {
		output, c := compileUntyped(t, "new class A {\n property x {\n  get { return 1; }\n  set(v) { this._x = v; }\n }\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.OBJECT_BASE_IMPORT+"\n"+
			"class A(OpalObject):\n"+
			" x=property()\n"+
			" @x.getter\n"+
			" def x(this):\n"+
			"  return 1\n"+
			" @x.setter\n"+
			" def x(this,v):\n"+
			"  this._x=v\n", output)
	})

	t.Run("accessor outside of a property", func(t *testing.T) {
		output, c := compileUntyped(t, "delete<x> {}")
		assert.False(t, c.HadError())
		assert.Equal(t, "@x.deleter\ndef x(this):pass\n", output)
	})
}

func TestCompileModifiers(t *testing.T) {

	t.Run("modifier used twice", func(t *testing.T) {
		_, c := compileUntyped(t, "global: global: new int x = 1;")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `"global" flag was used twice. remove this flag`)
	})

	t.Run("modifier not applied to any statement", func(t *testing.T) {
		_, c := compileUntyped(t, "new int x = 1;\ninline:")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `"inline" flag is not applied to any statement`)
	})

	t.Run("modifier not effective on a statement", func(t *testing.T) {
		_, c := compileUntyped(t, "unchecked: use a;")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `"unchecked" flag is not effective on "use" statement`)
	})

	t.Run("modifiers are consumed by the next statement", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "new int x = 1;\nunchecked: x = 2;\nx = 3;")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+
			"x:int=_OPAL_CHECK_TYPE_(1,int)\n"+
			"x=2\n"+
			"x=3\n"+
			"x=_OPAL_CHECK_TYPE_(x,int)\n", output)
	})

	t.Run("static native locals", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{profile: NATIVE_PROFILE, typeMode: NO_TYPE_MODE}, "static: new int x = 1;")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.NATIVE_PRELUDE+"\n"+"cdef int x=1\n", output)
	})

	t.Run("static block", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{profile: NATIVE_PROFILE, typeMode: NO_TYPE_MODE}, "static {\n new int x;\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.NATIVE_PRELUDE+"\n"+"cdef int x\n", output)
	})

	t.Run("static declarations in a loop are not optimized", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{profile: NATIVE_PROFILE, typeMode: NO_TYPE_MODE},
			"use x;\nwhile x {\n static: new int y = 1;\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.NATIVE_PRELUDE+"\n"+"while x:\n y=1\n", output)
		assert.Contains(t, messagesOfSeverity(c, diag.NOTE),
			"consider moving these declarations outside of a loop so they can be automatically optimized")
	})
}

func TestCompileMain(t *testing.T) {

	t.Run("main function", func(t *testing.T) {
		output, c := compileUntyped(t, "use a;\nmain() {\n a();\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "def _OPAL_MAIN_FUNCTION_():\n a()\n"+`if __name__=="__main__":_OPAL_MAIN_FUNCTION_()`+"\n", output)
	})

	t.Run("main block", func(t *testing.T) {
		output, c := compileUntyped(t, "use a;\nmain {\n a();\n}")
		assert.False(t, c.HadError())
		assert.Equal(t, "if __name__=='__main__':\n a()\n", output)
	})

	t.Run("native main function", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{profile: NATIVE_PROFILE, typeMode: NO_TYPE_MODE}, "main() {}")
		assert.False(t, c.HadError())
		assert.Equal(t, opalconsts.NATIVE_PRELUDE+"\n"+
			"cpdef void _OPAL_MAIN_FUNCTION_():pass\n"+
			`if"_OPAL_RUN_AS_MAIN_"in _ENVIRON_:_OPAL_MAIN_FUNCTION_()`+"\n", output)
	})

	t.Run("main defined twice", func(t *testing.T) {
		_, c := compileUntyped(t, "main() {}\nmain() {}")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), "main function can only be defined once")
	})
}

func TestCompileImports(t *testing.T) {

	t.Run("package import", func(t *testing.T) {
		output, c := compileUntyped(t, "package os: import path;")
		assert.False(t, c.HadError())
		assert.Equal(t, "from os import path\n", output)
		assert.Equal(t, []string{"os"}, c.Imports())
	})

	t.Run("aliases and dotted modules", func(t *testing.T) {
		output, c := compileUntyped(t, "import numpy as np, os.path;\nnp = 1;\nos = 2;")
		assert.False(t, c.HadError())
		assert.Equal(t, "import numpy as np,os.path\nnp=1\nos=2\n", output)
		assert.Equal(t, []string{"numpy", "os"}, c.Imports())
	})

	t.Run("import * without package", func(t *testing.T) {
		_, c := compileUntyped(t, "import *;")
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `cannot use "import *" if no package is defined`)
	})

	t.Run("import * without comptime", func(t *testing.T) {
		output, c := compileUntyped(t, "package math: import *;")
		assert.False(t, c.HadError())
		assert.Equal(t, "from math import *\n", output)
		assert.Len(t, messagesOfSeverity(c, diag.WARNING), 1)
	})
}

func TestCompileDirectives(t *testing.T) {

	t.Run("macro call", func(t *testing.T) {
		output, c := compileUntyped(t, "use print;\n$macro show(v)\nprint(v);\n$end\n$call show(5)")
		assert.False(t, c.HadError())
		assert.Equal(t, "v=5\nprint(v)\n", output)
		assert.Empty(t, messagesOfSeverity(c, diag.WARNING))
	})

	t.Run("args directive changes the type mode", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{}, "$args [\"--type-mode\", \"none\"]\nnew int x = 1;")
		assert.False(t, c.HadError())
		assert.Equal(t, "x=1\n", output)
		assert.Equal(t, NO_TYPE_MODE, c.Options().TypeMode)
	})

	t.Run("args directive effects do not persist", func(t *testing.T) {
		c, _ := newTestCompiler(t, testCompilation{})
		_, err := c.Compile(context.Background(), "$args [\"--type-mode\", \"none\"]")
		require.NoError(t, err)

		output, err := c.Compile(context.Background(), "new int x = 1;")
		require.NoError(t, err)
		assert.Equal(t, opalconsts.HYBRID_CHECK_IMPORT+"\n"+"x:int=_OPAL_CHECK_TYPE_(1,int)\n", output)
	})

	t.Run("invalid type mode", func(t *testing.T) {
		c, _ := newTestCompiler(t, testCompilation{})
		_, err := c.Compile(context.Background(), "$args [\"--type-mode\", \"bogus\"]")

		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr)
	})

	t.Run("program that cannot be compiled natively", func(t *testing.T) {
		c, _ := newTestCompiler(t, testCompilation{profile: NATIVE_PROFILE})
		_, err := c.Compile(context.Background(), "$args [\"--nocompile\"]")

		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr)
	})

	t.Run("embedded host code", func(t *testing.T) {
		output, c := compileUntyped(t, "$nocompile\nif True:\n    pass\n$restore")
		assert.False(t, c.HadError())
		assert.Equal(t, "if True:\n    pass\n", output)
	})

	t.Run("tab context", func(t *testing.T) {
		output, c := compileUntyped(t, "new dynamic x = 0;\n$tabcontext 2\nx = 1;")
		assert.False(t, c.HadError())
		assert.Equal(t, "x=0\n  x=1\n", output)
	})

	t.Run("included file", func(t *testing.T) {
		output, c := compileWith(t, testCompilation{typeMode: NO_TYPE_MODE, files: map[string]string{
			"/proj/lib.opal": "new int y = 2;",
		}}, "$include \"lib.opal\"\ny = 3;")
		assert.False(t, c.HadError())
		assert.Equal(t, "y=2\ny=3\n", output)
	})
}

func TestCompileSignals(t *testing.T) {

	t.Run("manual signal", func(t *testing.T) {
		_, c := compileUntyped(t, `__OPALSIG[PUSH_NAME]("x","macro")`)
		assert.False(t, c.HadError())
		assert.Contains(t, messagesOfSeverity(c, diag.WARNING), `"__OPALSIG" is meant for internal use. please do not use it in production`)
		assert.Contains(t, messagesOfSeverity(c, diag.WARNING), "1 scope(s) opened in this block were not closed")
	})

	t.Run("pop without push", func(t *testing.T) {
		_, c := compileUntyped(t, `__OPALSIG[POP_NAME]()`)
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `"POP_NAME" signal without matching "PUSH_NAME"`)
	})

	t.Run("unknown signal", func(t *testing.T) {
		_, c := compileUntyped(t, `__OPALSIG[OTHER]()`)
		assert.True(t, c.HadError())
		assert.Contains(t, messages(c), `unknown signal "OTHER"`)
	})
}

func TestCompileErrors(t *testing.T) {

	t.Run("exhausted stream", func(t *testing.T) {
		output, c := compileUntyped(t, "new")
		assert.True(t, c.HadError())
		assert.Empty(t, output)
		assert.Contains(t, messages(c), lex.EXHAUSTED_STREAM_MSG)
	})

	t.Run("several errors are reported", func(t *testing.T) {
		_, c := compileUntyped(t, "break;\ncontinue;")
		assert.Equal(t, []string{
			`cannot use "break" outside of a loop`,
			`cannot use "continue" outside of a loop`,
		}, messages(c))
	})

	t.Run("errors are reset between compilations", func(t *testing.T) {
		c, _ := newTestCompiler(t, testCompilation{typeMode: NO_TYPE_MODE})

		_, err := c.Compile(context.Background(), "break;")
		require.NoError(t, err)
		assert.True(t, c.HadError())

		output, err := c.Compile(context.Background(), "new int x = 1;")
		require.NoError(t, err)
		assert.False(t, c.HadError())
		assert.Equal(t, "x=1\n", output)
	})

	t.Run("diagnostics are written", func(t *testing.T) {
		c, diagnostics := newTestCompiler(t, testCompilation{typeMode: NO_TYPE_MODE})
		_, err := c.Compile(context.Background(), "break;")
		require.NoError(t, err)
		assert.Contains(t, diagnostics.String(), `cannot use "break" outside of a loop`)
	})
}

func TestCompileFile(t *testing.T) {
	c, _ := newTestCompiler(t, testCompilation{typeMode: NO_TYPE_MODE, files: map[string]string{
		"/proj/main.opal": "x = 1;",
	}})

	output, err := c.CompileFile(context.Background(), "/proj/main.opal", "new dynamic x;")
	require.NoError(t, err)
	assert.False(t, c.HadError())
	assert.Equal(t, "x=1\n", output)

	_, err = c.CompileFile(context.Background(), "/proj/missing.opal", "")
	assert.Error(t, err)
}
