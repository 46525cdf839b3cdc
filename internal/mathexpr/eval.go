package mathexpr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	ErrEmpty          = errors.New("empty expression")
	ErrSyntax         = errors.New("malformed expression")
	ErrDivisionByZero = errors.New("division by zero")
	ErrNotFinite      = errors.New("result is not a finite number")
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPow
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind  tokenKind
	value float64
	pos   int
}

// Evaluate computes a canonical expression with the usual precedence:
// parentheses, then ** (right-associative, tighter than unary minus),
// then * and /, then + and -. Only numeric literals are accepted.
func Evaluate(expr string) (float64, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 1 {
		return 0, ErrEmpty
	}

	p := &parser{tokens: tokens}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return 0, fmt.Errorf("%w: unexpected token at %d", ErrSyntax, tok.pos)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	if v == 0 {
		v = 0 // drop negative zero
	}
	return v, nil
}

// Format renders a result in its shortest decimal form: 5, 2.5, 0.125.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tokenize(s string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ':
			i++
		case isDigit(c) || c == '.':
			start := i
			for i < len(s) && isDigit(s[i]) {
				i++
			}
			if i < len(s) && s[i] == '.' {
				i++
				for i < len(s) && isDigit(s[i]) {
					i++
				}
			}
			lit := s[start:i]
			if lit == "." {
				return nil, fmt.Errorf("%w: stray '.' at %d", ErrSyntax, start)
			}
			v, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, lit)
			}
			tokens = append(tokens, token{kind: tokNumber, value: v, pos: start})
		case c == '*':
			if i+1 < len(s) && s[i+1] == '*' {
				tokens = append(tokens, token{kind: tokPow, pos: i})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokStar, pos: i})
			i++
		case c == '/':
			if i+1 < len(s) && s[i+1] == '/' {
				return nil, fmt.Errorf("%w: floor division is not supported", ErrSyntax)
			}
			tokens = append(tokens, token{kind: tokSlash, pos: i})
			i++
		case c == '+':
			tokens = append(tokens, token{kind: tokPlus, pos: i})
			i++
		case c == '-':
			tokens = append(tokens, token{kind: tokMinus, pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", ErrSyntax, c)
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(s)}), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// expr := term (('+' | '-') term)*
func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case tokMinus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

// term := unary (('*' | '/') unary)*
func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().kind {
		case tokStar:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case tokSlash:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left /= right
		default:
			return left, nil
		}
	}
}

// unary := ('+' | '-') unary | power
func (p *parser) parseUnary() (float64, error) {
	switch p.peek().kind {
	case tokPlus:
		p.next()
		return p.parseUnary()
	case tokMinus:
		p.next()
		v, err := p.parseUnary()
		return -v, err
	default:
		return p.parsePower()
	}
}

// power := primary ('**' unary)?
func (p *parser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	if p.peek().kind != tokPow {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if base == 0 && exp < 0 {
		return 0, ErrDivisionByZero
	}
	return math.Pow(base, exp), nil
}

// primary := number | '(' expr ')'
func (p *parser) parsePrimary() (float64, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return tok.value, nil
	case tokLParen:
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, fmt.Errorf("%w: missing ')' at %d", ErrSyntax, closing.pos)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unexpected token at %d", ErrSyntax, tok.pos)
	}
}
