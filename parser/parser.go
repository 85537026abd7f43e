// Package parser implements the recursive-descent grammar for the
// rate-expression mini-language (spec §2 item 7, §4.1, §6), producing a
// rate.Node tree, and its inverse, Format, a deterministic pretty-printer
// used to satisfy the parse/format/parse round-trip property (spec §8
// property 5).
package parser

import (
	"fmt"
	"math"

	"github.com/molsim/rebop/rate"
)

var (
	posInf   = math.Inf(1)
	nanValue = math.NaN()
)

// ParseError reports a malformed rate expression, with the byte offset of
// the offending token (spec §4.1, §7).
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rebop/parser: offset %d: %s", e.Offset, e.Message)
}

// parser is a recursive-descent parser over a pre-lexed token stream.
// Precedence, loosest to tightest (spec §4.1): `+ -`, `* /`, unary `-`,
// `^` (right-associative), function call and grouping.
type parser struct {
	tokens []token
	pos    int
}

// Parse parses a rate expression and returns its AST root.
func Parse(src string) (rate.Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: toks}
	n, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, &ParseError{Offset: p.cur().offset, Message: "unexpected trailing input"}
	}
	return n, nil
}

func (p *parser) cur() token { return p.tokens[p.pos] }

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseAdditive() (rate.Node, error) {
	x, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().kind {
		case tokPlus:
			p.advance()
			y, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			x = &rate.Binary{Op: rate.OpAdd, X: x, Y: y}
		case tokMinus:
			p.advance()
			y, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			x = &rate.Binary{Op: rate.OpSub, X: x, Y: y}
		default:
			return x, nil
		}
	}
}

func (p *parser) parseMultiplicative() (rate.Node, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().kind {
		case tokStar:
			p.advance()
			y, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			x = &rate.Binary{Op: rate.OpMul, X: x, Y: y}
		case tokSlash:
			p.advance()
			y, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			x = &rate.Binary{Op: rate.OpDiv, X: x, Y: y}
		default:
			return x, nil
		}
	}
}

func (p *parser) parseUnary() (rate.Node, error) {
	if p.cur().kind == tokMinus {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &rate.Unary{X: x}, nil
	}
	// A redundant leading '+' is accepted as a no-op, matching common
	// mini-language leniency; it is not emitted by Format.
	if p.cur().kind == tokPlus {
		p.advance()
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (rate.Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokCaret {
		p.advance()
		y, err := p.parseUnary() // right-associative; allows 2^-1
		if err != nil {
			return nil, err
		}
		return &rate.Binary{Op: rate.OpPow, X: x, Y: y}, nil
	}
	return x, nil
}

func (p *parser) parsePrimary() (rate.Node, error) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		return &rate.Number{Value: t.num}, nil
	case tokQuotedIdent:
		p.advance()
		return &rate.Ident{Name: t.text, Quoted: true}, nil
	case tokIdent:
		p.advance()
		if p.cur().kind == tokLParen {
			return p.parseCall(t)
		}
		return &rate.Ident{Name: t.text}, nil
	case tokLParen:
		p.advance()
		inner, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, &ParseError{Offset: p.cur().offset, Message: "expected ')'"}
		}
		p.advance()
		return inner, nil
	case tokEOF:
		return nil, &ParseError{Offset: t.offset, Message: "unexpected end of expression"}
	default:
		return nil, &ParseError{Offset: t.offset, Message: "unexpected token " + quoteTok(t)}
	}
}

func (p *parser) parseCall(name token) (rate.Node, error) {
	arity, ok := rate.FunctionArity[name.text]
	if !ok {
		return nil, &ParseError{Offset: name.offset, Message: "unknown function " + name.text}
	}
	p.advance() // consume '('
	var args []rate.Node
	if p.cur().kind != tokRParen {
		for {
			arg, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if p.cur().kind != tokRParen {
		return nil, &ParseError{Offset: p.cur().offset, Message: "expected ')' in call to " + name.text}
	}
	closeOffset := p.cur().offset
	p.advance()
	if len(args) != arity {
		return nil, &ParseError{Offset: closeOffset, Message: fmt.Sprintf(
			"function %s takes %d argument(s), got %d", name.text, arity, len(args))}
	}
	return &rate.Call{Func: name.text, Args: args}, nil
}

func quoteTok(t token) string {
	if t.text != "" {
		return fmt.Sprintf("%q", t.text)
	}
	return "<eof>"
}
