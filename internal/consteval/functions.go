package consteval

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type Function func(args []Value) (Value, error)

// FUNCTIONS are the only callables a constant expression can use.
var FUNCTIONS = map[string]Function{
	"os.path.join":     pathJoin,
	"join":             pathJoin,
	"os.path.dirname":  stringFunction(pathDirname),
	"dirname":          stringFunction(pathDirname),
	"os.path.basename": stringFunction(pathBasename),
	"basename":         stringFunction(pathBasename),
	"os.path.abspath":  stringFunction(pathAbs),
	"os.path.normpath": stringFunction(filepath.Clean),

	"str": func(args []Value) (Value, error) {
		if len(args) == 0 {
			return String(""), nil
		}
		if len(args) > 1 {
			return None(), errors.New("expected at most 1 argument")
		}
		return String(args[0].String()), nil
	},
	"int": func(args []Value) (Value, error) {
		if len(args) == 0 {
			return Int(0), nil
		}
		if len(args) > 1 {
			return None(), errors.New("expected at most 1 argument")
		}
		i, err := args[0].ToInt()
		if err != nil {
			return None(), err
		}
		return Int(i), nil
	},
	"abs": func(args []Value) (Value, error) {
		if len(args) != 1 {
			return None(), errors.New("expected exactly 1 argument")
		}
		v := args[0]
		switch v.Kind {
		case INT_VALUE, BOOL_VALUE:
			return Int(max(v.asInt(), -v.asInt())), nil
		case FLOAT_VALUE:
			return Float(max(v.Float, -v.Float)), nil
		}
		return None(), fmt.Errorf("bad operand type for abs(): '%s'", v.Kind)
	},
	"len": func(args []Value) (Value, error) {
		if len(args) != 1 {
			return None(), errors.New("expected exactly 1 argument")
		}
		switch v := args[0]; v.Kind {
		case STRING_VALUE:
			return Int(int64(len([]rune(v.Str)))), nil
		case LIST_VALUE, TUPLE_VALUE:
			return Int(int64(len(v.Items))), nil
		default:
			return None(), fmt.Errorf("object of type '%s' has no len()", v.Kind)
		}
	},
}

func stringFunction(fn func(string) string) Function {
	return func(args []Value) (Value, error) {
		if len(args) != 1 || args[0].Kind != STRING_VALUE {
			return None(), errors.New("expected exactly 1 string argument")
		}
		return String(fn(args[0].Str)), nil
	}
}

func isSeparator(b byte) bool {
	return b == '/' || b == filepath.Separator
}

// pathJoin joins like the host runtime does: no cleaning, an absolute element
// discards everything before it.
func pathJoin(args []Value) (Value, error) {
	if len(args) == 0 {
		return None(), errors.New("expected at least 1 argument")
	}

	result := ""
	for i, arg := range args {
		if arg.Kind != STRING_VALUE {
			return None(), fmt.Errorf("argument %d must be a string, not '%s'", i, arg.Kind)
		}
		elem := arg.Str

		switch {
		case i == 0 || filepath.IsAbs(elem) || strings.HasPrefix(elem, "/"):
			result = elem
		case result == "" || isSeparator(result[len(result)-1]):
			result += elem
		default:
			result += string(filepath.Separator) + elem
		}
	}
	return String(result), nil
}

func lastSeparator(p string) int {
	for i := len(p) - 1; i >= 0; i-- {
		if isSeparator(p[i]) {
			return i
		}
	}
	return -1
}

func pathDirname(p string) string {
	head := p[:lastSeparator(p)+1]

	trimmed := strings.TrimRight(head, "/"+string(filepath.Separator))
	if trimmed == "" {
		return head
	}
	return trimmed
}

func pathBasename(p string) string {
	return p[lastSeparator(p)+1:]
}

func pathAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
