// Package calc evaluates plain arithmetic: numbers, + - * /, unary signs and
// parentheses. Nothing else is accepted, so arbitrary input is safe to feed in.
package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	ErrSyntax         = errors.New("syntax error")
	ErrDivisionByZero = errors.New("division by zero")
	ErrEmpty          = errors.New("empty expression")
	ErrOverflow       = errors.New("result out of range")
)

// Eval parses and evaluates expr.
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = ("+" | "-") factor | number | "(" expr ")"
func Eval(expr string) (float64, error) {
	toks, err := lex(expr)
	if err != nil {
		return 0, err
	}
	if len(toks) == 0 {
		return 0, ErrEmpty
	}

	p := &parser{toks: toks}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, fmt.Errorf("%w: unexpected %q", ErrSyntax, p.toks[p.pos].text)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrOverflow
	}
	return v, nil
}

// Format renders a result the way it should be spoken: integers without a
// fractional part.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	text  string
	value float64
}

func lex(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+' || c == '-' || c == '*' || c == '/':
			toks = append(toks, token{kind: tokOp, text: string(c)})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
		case isDigit(c) || c == '.':
			j := i
			for j < len(s) && (isDigit(s[j]) || s[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(s[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, s[i:j])
			}
			toks = append(toks, token{kind: tokNumber, text: s[i:j], value: v})
			i = j
		default:
			return nil, fmt.Errorf("%w: unsupported character %q", ErrSyntax, c)
		}
	}
	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return v, nil
		}
		p.pos++
		rhs, err := p.term()
		if err != nil {
			return 0, err
		}
		if t.text == "+" {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

func (p *parser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return v, nil
		}
		p.pos++
		rhs, err := p.factor()
		if err != nil {
			return 0, err
		}
		if t.text == "*" {
			v *= rhs
			continue
		}
		if rhs == 0 {
			return 0, ErrDivisionByZero
		}
		v /= rhs
	}
}

func (p *parser) factor() (float64, error) {
	t, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}

	switch {
	case t.kind == tokOp && (t.text == "+" || t.text == "-"):
		p.pos++
		v, err := p.factor()
		if err != nil {
			return 0, err
		}
		if t.text == "-" {
			return -v, nil
		}
		return v, nil
	case t.kind == tokNumber:
		p.pos++
		return t.value, nil
	case t.kind == tokLParen:
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if t, ok := p.peek(); !ok || t.kind != tokRParen {
			return 0, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		p.pos++
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
	}
}
