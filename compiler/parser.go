package compiler

import (
	"strconv"

	"github.com/chazu/prima/pkg/bytecode"
	"github.com/chazu/prima/pkg/coord"
)

// ---------------------------------------------------------------------------
// Parser: one operation per line, opname (dim=digits)*
// ---------------------------------------------------------------------------

// maxWeight is the largest DSL weight; larger values clamp to it.
const maxWeight = 10

// Parser parses sigil source into a Source. It keeps going after an error
// so that every bad line is reported.
type Parser struct {
	lexer    *Lexer
	curToken Token
	errors   []*AssemblyError
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) atLineEnd() bool {
	return p.curTokenIs(TokenNewline) || p.curTokenIs(TokenEOF)
}

// errorAt records an assembly error at tok.
func (p *Parser) errorAt(tok Token, err error) {
	lit := tok.Literal
	if tok.Type == TokenNewline || tok.Type == TokenEOF {
		lit = ""
	}
	p.errors = append(p.errors, &AssemblyError{Pos: tok.Pos, Token: lit, Err: err})
}

// Errors returns accumulated assembly errors in source order.
func (p *Parser) Errors() []*AssemblyError {
	return p.errors
}

// skipLine advances to the end of the current line.
func (p *Parser) skipLine() {
	for !p.atLineEnd() {
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseSource parses the whole input. Lines with errors are left out of the
// result; check Errors before using it.
func (p *Parser) ParseSource() *Source {
	src := &Source{}
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenNewline) {
			p.nextToken()
			continue
		}
		if st := p.parseStatement(); st != nil {
			src.Statements = append(src.Statements, st)
		}
	}
	return src
}

// parseStatement parses one operation line and leaves the parser at the
// line's end.
func (p *Parser) parseStatement() *Statement {
	before := len(p.errors)

	if !p.curTokenIs(TokenIdentifier) {
		p.errorAt(p.curToken, ErrUnexpectedToken)
		p.skipLine()
		return nil
	}

	st := &Statement{Pos: p.curToken.Pos, Name: p.curToken.Literal}
	op, ok := bytecode.OpcodeByName(st.Name)
	if !ok {
		p.errorAt(p.curToken, ErrUnknownOperation)
	}
	st.Op = op
	p.nextToken()

	st.Weights = p.parseWeights()
	if len(p.errors) > before {
		return nil
	}
	return st
}

// parseWeights parses dim=digits pairs up to the end of the line.
func (p *Parser) parseWeights() []Weight {
	var ws []Weight
	for !p.atLineEnd() {
		w, ok := p.parseWeight()
		if !ok {
			p.skipLine()
			break
		}
		ws = append(ws, w)
	}
	return ws
}

func (p *Parser) parseWeight() (Weight, bool) {
	if !p.curTokenIs(TokenIdentifier) {
		p.errorAt(p.curToken, ErrUnexpectedToken)
		return Weight{}, false
	}
	dimTok := p.curToken
	dim, ok := coord.DimByName(dimTok.Literal)
	if !ok {
		p.errorAt(dimTok, ErrUnknownDimension)
		return Weight{}, false
	}
	p.nextToken()

	if !p.curTokenIs(TokenEquals) {
		p.errorAt(dimTok, ErrMalformedWeight)
		return Weight{}, false
	}
	p.nextToken()

	if !p.curTokenIs(TokenInteger) {
		p.errorAt(dimTok, ErrMalformedWeight)
		return Weight{}, false
	}
	value, err := strconv.Atoi(p.curToken.Literal)
	if err != nil || value > maxWeight {
		value = maxWeight
	}
	p.nextToken()

	return Weight{Pos: dimTok.Pos, Dim: dim, Value: value}, true
}
