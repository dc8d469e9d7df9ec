// Package calc evaluates the exam calculator's expressions with a small
// recursive-descent parser over a fixed grammar:
//
//	expr   = term { ("+" | "-") term }
//	term   = unary { ("*" | "/") unary }
//	unary  = "-" unary | "+" unary | primary
//	primary = number | "PI" | func "(" expr ")" | "(" expr ")"
//	func   = "sin" | "cos" | "tan" | "log" | "sqrt"
package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const maxExprLen = 256

var (
	ErrSyntax       = errors.New("syntax error")
	ErrDivideByZero = errors.New("division by zero")
	ErrNotFinite    = errors.New("result is not a finite number")
	ErrTooLong      = errors.New("expression too long")
)

var funcs = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"log":  math.Log10,
	"sqrt": math.Sqrt,
}

// Eval parses and evaluates expr. Angles are in radians, log is base 10.
func Eval(expr string) (float64, error) {
	if len(expr) > maxExprLen {
		return 0, ErrTooLong
	}
	p := &parser{src: expr}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, p.src[p.pos], p.pos)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	return v, nil
}

// Format renders a result the way the calculator display shows it.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			p.pos++
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (p *parser) term() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			r, err := p.unary()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			p.pos++
			r, err := p.unary()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, ErrDivideByZero
			}
			v /= r
		default:
			return v, nil
		}
	}
}

func (p *parser) unary() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.nested(p.unary)
		return -v, err
	case '+':
		p.pos++
		return p.nested(p.unary)
	}
	return p.primary()
}

// nested bounds recursion so input like "------…" cannot exhaust the stack.
func (p *parser) nested(f func() (float64, error)) (float64, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxExprLen {
		return 0, fmt.Errorf("%w: nesting too deep", ErrSyntax)
	}
	return f()
}

func (p *parser) primary() (float64, error) {
	c := p.peek()
	switch {
	case c == 0:
		return 0, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	case c == '(':
		p.pos++
		v, err := p.nested(p.expr)
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("%w: missing )", ErrSyntax)
		}
		p.pos++
		return v, nil
	case c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case isLetter(c):
		return p.ident()
	}
	return 0, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, c, p.pos)
}

func (p *parser) number() (float64, error) {
	start := p.pos
	dots := 0
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' {
			dots++
		} else if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	lit := p.src[start:p.pos]
	if dots > 1 || lit == "." {
		return 0, fmt.Errorf("%w: bad number %q", ErrSyntax, lit)
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrSyntax, lit)
	}
	return v, nil
}

func (p *parser) ident() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "PI" {
		return math.Pi, nil
	}
	fn, ok := funcs[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown name %q", ErrSyntax, name)
	}
	if p.peek() != '(' {
		return 0, fmt.Errorf("%w: %s needs (", ErrSyntax, name)
	}
	p.pos++
	arg, err := p.nested(p.expr)
	if err != nil {
		return 0, err
	}
	if p.peek() != ')' {
		return 0, fmt.Errorf("%w: missing )", ErrSyntax)
	}
	p.pos++
	return fn(arg), nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
