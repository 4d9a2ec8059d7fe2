package consteval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind uint8

const (
	NONE_VALUE Kind = iota
	BOOL_VALUE
	INT_VALUE
	FLOAT_VALUE
	STRING_VALUE
	LIST_VALUE
	TUPLE_VALUE
)

var kindNames = [...]string{
	NONE_VALUE:   "NoneType",
	BOOL_VALUE:   "bool",
	INT_VALUE:    "int",
	FLOAT_VALUE:  "float",
	STRING_VALUE: "str",
	LIST_VALUE:   "list",
	TUPLE_VALUE:  "tuple",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Value is the result of a constant expression.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Items []Value
}

func None() Value                { return Value{Kind: NONE_VALUE} }
func Bool(b bool) Value          { return Value{Kind: BOOL_VALUE, Bool: b} }
func Int(i int64) Value          { return Value{Kind: INT_VALUE, Int: i} }
func Float(f float64) Value      { return Value{Kind: FLOAT_VALUE, Float: f} }
func String(s string) Value      { return Value{Kind: STRING_VALUE, Str: s} }
func List(items ...Value) Value  { return Value{Kind: LIST_VALUE, Items: items} }
func Tuple(items ...Value) Value { return Value{Kind: TUPLE_VALUE, Items: items} }

func (v Value) IsNumber() bool {
	return v.Kind == INT_VALUE || v.Kind == FLOAT_VALUE || v.Kind == BOOL_VALUE
}

func (v Value) asFloat() float64 {
	switch v.Kind {
	case INT_VALUE:
		return float64(v.Int)
	case BOOL_VALUE:
		if v.Bool {
			return 1
		}
		return 0
	}
	return v.Float
}

func (v Value) asInt() int64 {
	if v.Kind == BOOL_VALUE {
		if v.Bool {
			return 1
		}
		return 0
	}
	return v.Int
}

// ToInt converts the value the way the host runtime's int() does.
func (v Value) ToInt() (int64, error) {
	switch v.Kind {
	case INT_VALUE, BOOL_VALUE:
		return v.asInt(), nil
	case FLOAT_VALUE:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return 0, fmt.Errorf("cannot convert float %v to integer", v.Float)
		}
		return int64(v.Float), nil
	case STRING_VALUE:
		i, err := strconv.ParseInt(strings.TrimSpace(strings.ReplaceAll(v.Str, "_", "")), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid literal for int(): %q", v.Str)
		}
		return i, nil
	}
	return 0, fmt.Errorf("int() argument must be a string or a number, not '%s'", v.Kind)
}

func (v Value) Truthy() bool {
	switch v.Kind {
	case NONE_VALUE:
		return false
	case BOOL_VALUE:
		return v.Bool
	case INT_VALUE:
		return v.Int != 0
	case FLOAT_VALUE:
		return v.Float != 0
	case STRING_VALUE:
		return v.Str != ""
	}
	return len(v.Items) != 0
}

// String returns the text the host runtime's str() would produce.
func (v Value) String() string {
	if v.Kind == STRING_VALUE {
		return v.Str
	}
	return v.Repr()
}

func (v Value) Repr() string {
	switch v.Kind {
	case NONE_VALUE:
		return "None"
	case BOOL_VALUE:
		if v.Bool {
			return "True"
		}
		return "False"
	case INT_VALUE:
		return strconv.FormatInt(v.Int, 10)
	case FLOAT_VALUE:
		if v.Float == math.Trunc(v.Float) && math.Abs(v.Float) < 1e16 {
			return strconv.FormatFloat(v.Float, 'f', 1, 64)
		}
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case STRING_VALUE:
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`).Replace(v.Str) + "'"
	}

	parts := make([]string, len(v.Items))
	for i, item := range v.Items {
		parts[i] = item.Repr()
	}

	if v.Kind == LIST_VALUE {
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
