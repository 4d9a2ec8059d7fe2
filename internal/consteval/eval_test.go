package consteval

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	testCases := []struct {
		expr string
		repr string
	}{
		{"1", "1"},
		{"0x10", "16"},
		{"1_000", "1000"},
		{"1.5", "1.5"},
		{".5", "0.5"},
		{"1e3", "1000.0"},
		{"-3", "-3"},
		{"- -3", "3"},
		{"+3", "3"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"7 // 2", "3"},
		{"-7 // 2", "-4"},
		{"-7 % 3", "2"},
		{"7 / 2", "3.5"},
		{"2 ** 10", "1024"},
		{"2 ** -1", "0.5"},
		{"-2 ** 2", "-4"},
		{"True + 1", "2"},
		{"None", "None"},
		{`"a" + 'b'`, "'ab'"},
		{`"ab" * 3`, "'ababab'"},
		{`"a" "b"`, "'ab'"},
		{`"""doc"""`, "'doc'"},
		{`r"a\nb"`, `'a\\nb'`},
		{`"a\tb"`, "'a\tb'"},
		{`"\x41é\101"`, "'Aé" + "A'"},
		{`"\q"`, `'\\q'`},
		{"[1, 2, 3]", "[1, 2, 3]"},
		{"[]", "[]"},
		{"[1,]", "[1]"},
		{"(1,)", "(1,)"},
		{"()", "()"},
		{`"a", 1`, "('a', 1)"},
		{"[1] + [2]", "[1, 2]"},
		{"[1, 2][-1]", "2"},
		{`"abc"[1]`, "'b'"},
		{"1 < 2", "True"},
		{`"a" == "b"`, "False"},
		{"1 != 1.0", "False"},
		{"not 0", "True"},
		{"!1", "False"},
		{"0 or 5", "5"},
		{"1 && 0", "0"},
		{"str(12)", "'12'"},
		{"int('42')", "42"},
		{"int(3.9)", "3"},
		{"abs(-4)", "4"},
		{`len("abc")`, "3"},
		{`basename("a/b/c.opal")`, "'c.opal'"},
		{`os.path.basename("a/b/")`, "''"},
		{`dirname("a/b/c.opal")`, "'a/b'"},
		{`os.path.dirname("a")`, "''"},
		{`os.path.dirname("/a")`, "'/'"},
		{`os.path.normpath("a/./b/../c")`, "'" + filepath.Clean("a/c") + "'"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.expr, func(t *testing.T) {
			value, err := Eval(testCase.expr)
			require.NoError(t, err)
			assert.Equal(t, testCase.repr, value.Repr())
		})
	}

	t.Run("path join", func(t *testing.T) {
		sep := string(filepath.Separator)

		value, err := Eval(`os.path.join("a", "b", "c.opal")`)
		require.NoError(t, err)
		assert.Equal(t, "a"+sep+"b"+sep+"c.opal", value.Str)

		value, err = Eval(`join("a/", "b")`)
		require.NoError(t, err)
		assert.Equal(t, "a/b", value.Str)

		value, err = Eval(`join("a", "/abs", "b")`)
		require.NoError(t, err)
		assert.Equal(t, "/abs"+sep+"b", value.Str)
	})

	errorCases := []string{
		"",
		"x",
		"print(1)",
		"1 +",
		"(1",
		"[1, 2",
		"1 / 0",
		"1 // 0",
		`"a" - "b"`,
		`f"{x}"`,
		`"\x4"`,
		"1 2",
		"[1][3]",
		`int("abc")`,
		`"a" < 1`,
	}

	for _, expr := range errorCases {
		t.Run("error: "+expr, func(t *testing.T) {
			_, err := Eval(expr)
			var evalErr *EvalError
			assert.ErrorAs(t, err, &evalErr)
		})
	}
}

func TestEvalString(t *testing.T) {
	s, err := EvalString(`"lib" + "/" + "x.opal"`)
	require.NoError(t, err)
	assert.Equal(t, "lib/x.opal", s)

	_, err = EvalString("1")
	assert.Error(t, err)
}

func TestEvalInt(t *testing.T) {
	i, ok := EvalInt("3 * 4")
	assert.True(t, ok)
	assert.EqualValues(t, 12, i)

	i, ok = EvalInt("-2.5")
	assert.True(t, ok)
	assert.EqualValues(t, -2, i)

	i, ok = EvalInt(`"7"`)
	assert.True(t, ok)
	assert.EqualValues(t, 7, i)

	_, ok = EvalInt("len(values)")
	assert.False(t, ok)

	_, ok = EvalInt("[1]")
	assert.False(t, ok)
}

func TestEvalStringList(t *testing.T) {
	list, err := EvalStringList(`["--static", "--type-mode", "check"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"--static", "--type-mode", "check"}, list)

	list, err = EvalStringList(`"a", "b"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	_, err = EvalStringList(`["a", 1]`)
	assert.Error(t, err)

	_, err = EvalStringList(`"a"`)
	assert.Error(t, err)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "abc", String("abc").String())
	assert.Equal(t, "'abc'", String("abc").Repr())
	assert.Equal(t, "2.0", Float(2).Repr())
	assert.Equal(t, "0.25", Float(0.25).Repr())
	assert.Equal(t, "(1,)", Tuple(Int(1)).Repr())
	assert.Equal(t, "['a', None]", List(String("a"), None()).Repr())
}
