// Package consteval evaluates the constant expressions found in preprocessor directives and
// compile-time arguments: string and number literals, arithmetic, lists, tuples and a fixed set
// of path functions. Nothing else can be evaluated.
package consteval

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/thatsOven/opal-lang/internal/lex"
)

type EvalError struct {
	Expr string
	Msg  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("cannot evaluate %q: %s", e.Expr, e.Msg)
}

// Eval evaluates a constant expression, a top-level comma creates a tuple.
func Eval(expr string) (Value, error) {
	tokens := lex.TokenizeLine(strings.TrimSpace(expr))
	if len(tokens) == 0 {
		return None(), &EvalError{Expr: expr, Msg: "empty expression"}
	}

	p := &parser{tokens: tokens, expr: expr}

	value, err := p.tuple()
	if err != nil {
		return None(), err
	}
	if p.pos < len(p.tokens) {
		return None(), p.errorf("unexpected token %q", p.tokens[p.pos].Text)
	}
	return value, nil
}

// EvalString evaluates an expression that must produce a string, for example a path.
func EvalString(expr string) (string, error) {
	value, err := Eval(expr)
	if err != nil {
		return "", err
	}
	if value.Kind != STRING_VALUE {
		return "", &EvalError{Expr: expr, Msg: "expected a string, got " + value.Kind.String()}
	}
	return value.Str, nil
}

// EvalInt evaluates an expression and converts its value like int() does, ok is false if the
// expression is not constant.
func EvalInt(expr string) (int64, bool) {
	value, err := Eval(expr)
	if err != nil {
		return 0, false
	}
	i, err := value.ToInt()
	if err != nil {
		return 0, false
	}
	return i, true
}

// EvalStringList evaluates a list or tuple of strings.
func EvalStringList(expr string) ([]string, error) {
	value, err := Eval(expr)
	if err != nil {
		return nil, err
	}
	if value.Kind != LIST_VALUE && value.Kind != TUPLE_VALUE {
		return nil, &EvalError{Expr: expr, Msg: "expected a list, got " + value.Kind.String()}
	}

	list := make([]string, len(value.Items))
	for i, item := range value.Items {
		if item.Kind != STRING_VALUE {
			return nil, &EvalError{Expr: expr, Msg: fmt.Sprintf("element %d is not a string", i)}
		}
		list[i] = item.Str
	}
	return list, nil
}

type parser struct {
	tokens []lex.Token
	pos    int
	expr   string
}

func (p *parser) errorf(format string, args ...any) error {
	return &EvalError{Expr: p.expr, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos].Text
	}
	return ""
}

func (p *parser) accept(text string) bool {
	if p.peek() == text && p.pos < len(p.tokens) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if !p.accept(text) {
		if p.pos >= len(p.tokens) {
			return p.errorf("expecting %q at the end of the expression", text)
		}
		return p.errorf("expecting %q, found %q", text, p.peek())
	}
	return nil
}

func (p *parser) tuple() (Value, error) {
	first, err := p.or()
	if err != nil || p.peek() != "," {
		return first, err
	}

	items := []Value{first}
	for p.accept(",") {
		if p.pos >= len(p.tokens) || p.peek() == ")" {
			break
		}
		item, err := p.or()
		if err != nil {
			return None(), err
		}
		items = append(items, item)
	}
	return Tuple(items...), nil
}

func (p *parser) or() (Value, error) {
	left, err := p.and()
	if err != nil {
		return None(), err
	}
	for p.accept("or") {
		right, err := p.and()
		if err != nil {
			return None(), err
		}
		if !left.Truthy() {
			left = right
		}
	}
	return left, nil
}

func (p *parser) and() (Value, error) {
	left, err := p.not()
	if err != nil {
		return None(), err
	}
	for p.accept("and") {
		right, err := p.not()
		if err != nil {
			return None(), err
		}
		if left.Truthy() {
			left = right
		}
	}
	return left, nil
}

func (p *parser) not() (Value, error) {
	if p.accept("not") {
		operand, err := p.not()
		if err != nil {
			return None(), err
		}
		return Bool(!operand.Truthy()), nil
	}
	return p.comparison()
}

func (p *parser) comparison() (Value, error) {
	left, err := p.sum()
	if err != nil {
		return None(), err
	}

	switch op := p.peek(); op {
	case "==", "!=", "<", "<=", ">", ">=":
		p.pos++
		right, err := p.sum()
		if err != nil {
			return None(), err
		}
		return compare(p, op, left, right)
	}
	return left, nil
}

func (p *parser) sum() (Value, error) {
	left, err := p.term()
	if err != nil {
		return None(), err
	}

	for {
		op := p.peek()
		if op != "+" && op != "-" {
			return left, nil
		}
		p.pos++

		right, err := p.term()
		if err != nil {
			return None(), err
		}
		left, err = binary(p, op, left, right)
		if err != nil {
			return None(), err
		}
	}
}

func (p *parser) term() (Value, error) {
	left, err := p.unary()
	if err != nil {
		return None(), err
	}

	for {
		op := p.peek()
		if op != "*" && op != "/" && op != "//" && op != "%" {
			return left, nil
		}
		p.pos++

		right, err := p.unary()
		if err != nil {
			return None(), err
		}
		left, err = binary(p, op, left, right)
		if err != nil {
			return None(), err
		}
	}
}

func (p *parser) unary() (Value, error) {
	negate := false
	for {
		switch p.peek() {
		case "-":
			negate = !negate
		case "+", "--", "++":
			//doubled signs are fused by the lexer and cancel out
		default:
			operand, err := p.power()
			if err != nil || !negate {
				return operand, err
			}
			return negateValue(p, operand)
		}
		p.pos++
	}
}

func (p *parser) power() (Value, error) {
	base, err := p.postfix()
	if err != nil {
		return None(), err
	}
	if p.accept("**") {
		exponent, err := p.unary()
		if err != nil {
			return None(), err
		}
		return binary(p, "**", base, exponent)
	}
	return base, nil
}

func (p *parser) postfix() (Value, error) {
	value, err := p.atom()
	if err != nil {
		return None(), err
	}

	for p.accept("[") {
		index, err := p.or()
		if err != nil {
			return None(), err
		}
		if err := p.expect("]"); err != nil {
			return None(), err
		}
		value, err = indexValue(p, value, index)
		if err != nil {
			return None(), err
		}
	}
	return value, nil
}

func (p *parser) atom() (Value, error) {
	if p.pos >= len(p.tokens) {
		return None(), p.errorf("unexpected end of expression")
	}
	tok := p.tokens[p.pos]
	p.pos++

	switch {
	case tok.Text == "(":
		if p.accept(")") {
			return Tuple(), nil
		}
		value, err := p.tuple()
		if err != nil {
			return None(), err
		}
		return value, p.expect(")")
	case tok.Text == "[":
		var items []Value
		for !p.accept("]") {
			item, err := p.or()
			if err != nil {
				return None(), err
			}
			items = append(items, item)
			if !p.accept(",") {
				if err := p.expect("]"); err != nil {
					return None(), err
				}
				break
			}
		}
		return List(items...), nil
	case tok.Text == "." && isDigits(p.peek()):
		return parseNumber(p, "0."+p.tokens[p.advance()].Text)
	case tok.Text != "" && tok.Text[0] >= '0' && tok.Text[0] <= '9':
		text := tok.Text
		if p.peek() == "." && p.pos+1 < len(p.tokens) && isDigits(p.tokens[p.pos+1].Text) {
			text += "." + p.tokens[p.pos+1].Text
			p.pos += 2
		}
		return parseNumber(p, text)
	case isStringLiteral(tok.Text):
		s, err := decodeStringLiteral(tok.Text)
		if err != nil {
			return None(), p.errorf("%s", err)
		}
		//implicit concatenation of adjacent literals
		for p.pos < len(p.tokens) && isStringLiteral(p.peek()) {
			next, err := decodeStringLiteral(p.tokens[p.advance()].Text)
			if err != nil {
				return None(), p.errorf("%s", err)
			}
			s += next
		}
		return String(s), nil
	case lex.IsIdentifier(tok.Text):
		return p.name(tok.Text)
	}

	return None(), p.errorf("unexpected token %q", tok.Text)
}

func (p *parser) advance() int {
	p.pos++
	return p.pos - 1
}

func (p *parser) name(first string) (Value, error) {
	switch first {
	case "True":
		return Bool(true), nil
	case "False":
		return Bool(false), nil
	case "None":
		return None(), nil
	}

	name := first
	for p.peek() == "." && p.pos+1 < len(p.tokens) && lex.IsIdentifier(p.tokens[p.pos+1].Text) {
		name += "." + p.tokens[p.pos+1].Text
		p.pos += 2
	}

	fn, ok := FUNCTIONS[name]
	if !ok || !p.accept("(") {
		return None(), p.errorf("name %q is not defined", name)
	}

	var args []Value
	for !p.accept(")") {
		arg, err := p.or()
		if err != nil {
			return None(), err
		}
		args = append(args, arg)
		if !p.accept(",") {
			if err := p.expect(")"); err != nil {
				return None(), err
			}
			break
		}
	}

	result, err := fn(args)
	if err != nil {
		return None(), p.errorf("%s(): %s", name, err)
	}
	return result, nil
}

func parseNumber(p *parser, text string) (Value, error) {
	clean := strings.ReplaceAll(text, "_", "")

	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		return Int(i), nil
	}
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return Float(f), nil
	}
	return None(), p.errorf("invalid number %q", text)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func negateValue(p *parser, v Value) (Value, error) {
	switch v.Kind {
	case INT_VALUE, BOOL_VALUE:
		return Int(-v.asInt()), nil
	case FLOAT_VALUE:
		return Float(-v.Float), nil
	}
	return None(), p.errorf("bad operand type for unary -: '%s'", v.Kind)
}

func binary(p *parser, op string, left, right Value) (Value, error) {
	if left.IsNumber() && right.IsNumber() {
		return arithmetic(p, op, left, right)
	}

	switch {
	case op == "+" && left.Kind == STRING_VALUE && right.Kind == STRING_VALUE:
		return String(left.Str + right.Str), nil
	case op == "+" && left.Kind == right.Kind && (left.Kind == LIST_VALUE || left.Kind == TUPLE_VALUE):
		items := append(append([]Value{}, left.Items...), right.Items...)
		return Value{Kind: left.Kind, Items: items}, nil
	case op == "*" && left.Kind == STRING_VALUE && right.Kind == INT_VALUE:
		return String(strings.Repeat(left.Str, int(max(0, right.Int)))), nil
	case op == "*" && left.Kind == INT_VALUE && right.Kind == STRING_VALUE:
		return String(strings.Repeat(right.Str, int(max(0, left.Int)))), nil
	}

	return None(), p.errorf("unsupported operand types for %s: '%s' and '%s'", op, left.Kind, right.Kind)
}

func arithmetic(p *parser, op string, left, right Value) (Value, error) {
	bothInts := left.Kind != FLOAT_VALUE && right.Kind != FLOAT_VALUE

	if bothInts {
		a, b := left.asInt(), right.asInt()
		switch op {
		case "+":
			return Int(a + b), nil
		case "-":
			return Int(a - b), nil
		case "*":
			return Int(a * b), nil
		case "//", "%":
			if b == 0 {
				return None(), p.errorf("integer division or modulo by zero")
			}
			q, r := a/b, a%b
			//floor semantics
			if r != 0 && (r < 0) != (b < 0) {
				q--
				r += b
			}
			if op == "//" {
				return Int(q), nil
			}
			return Int(r), nil
		case "**":
			if b >= 0 {
				result := int64(1)
				for i := int64(0); i < b; i++ {
					result *= a
				}
				return Int(result), nil
			}
		}
	}

	a, b := left.asFloat(), right.asFloat()
	switch op {
	case "+":
		return Float(a + b), nil
	case "-":
		return Float(a - b), nil
	case "*":
		return Float(a * b), nil
	case "/":
		if b == 0 {
			return None(), p.errorf("division by zero")
		}
		return Float(a / b), nil
	case "//":
		if b == 0 {
			return None(), p.errorf("float floor division by zero")
		}
		return Float(math.Floor(a / b)), nil
	case "%":
		if b == 0 {
			return None(), p.errorf("float modulo")
		}
		return Float(a - b*math.Floor(a/b)), nil
	case "**":
		return Float(math.Pow(a, b)), nil
	}
	return None(), p.errorf("unsupported operator %s", op)
}

func compare(p *parser, op string, left, right Value) (Value, error) {
	var cmp int

	switch {
	case left.IsNumber() && right.IsNumber():
		a, b := left.asFloat(), right.asFloat()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	case left.Kind == STRING_VALUE && right.Kind == STRING_VALUE:
		cmp = strings.Compare(left.Str, right.Str)
	case op == "==" || op == "!=":
		equal := left.Repr() == right.Repr()
		return Bool(equal == (op == "==")), nil
	default:
		return None(), p.errorf("'%s' not supported between '%s' and '%s'", op, left.Kind, right.Kind)
	}

	switch op {
	case "==":
		return Bool(cmp == 0), nil
	case "!=":
		return Bool(cmp != 0), nil
	case "<":
		return Bool(cmp < 0), nil
	case "<=":
		return Bool(cmp <= 0), nil
	case ">":
		return Bool(cmp > 0), nil
	default:
		return Bool(cmp >= 0), nil
	}
}

func indexValue(p *parser, container, index Value) (Value, error) {
	if index.Kind != INT_VALUE {
		return None(), p.errorf("indices must be integers")
	}

	var length int
	switch container.Kind {
	case STRING_VALUE:
		length = len([]rune(container.Str))
	case LIST_VALUE, TUPLE_VALUE:
		length = len(container.Items)
	default:
		return None(), p.errorf("'%s' object is not subscriptable", container.Kind)
	}

	i := int(index.Int)
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return None(), p.errorf("index out of range")
	}

	if container.Kind == STRING_VALUE {
		return String(string([]rune(container.Str)[i])), nil
	}
	return container.Items[i], nil
}
