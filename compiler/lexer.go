package compiler

import (
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for sigil source
// ---------------------------------------------------------------------------

// Lexer tokenizes sigil source. Spaces, tabs and carriage returns separate
// tokens; a '#' starts a comment that runs to the end of the line.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // column of ch (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) atEOF() bool {
	return l.ch == 0 && l.pos >= len(l.input)
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipBlanksAndComments()

	pos := l.position()

	switch {
	case l.atEOF():
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '\n':
		l.readChar()
		return Token{Type: TokenNewline, Literal: "\n", Pos: pos}

	case l.ch == '=':
		l.readChar()
		return Token{Type: TokenEquals, Literal: "=", Pos: pos}

	case l.ch >= '0' && l.ch <= '9':
		return l.readWhile(TokenInteger, pos, func(r rune) bool { return r >= '0' && r <= '9' })

	case IsIdentChar(l.ch):
		return l.readWhile(TokenIdentifier, pos, IsIdentChar)

	default:
		// Consume the rest of the run so a stray word yields one error
		// token.
		start := l.pos
		l.readChar()
		tok := l.readWhile(TokenError, pos, func(r rune) bool {
			return r != ' ' && r != '\t' && r != '\r' && r != '\n' && r != '#' && r != '='
		})
		tok.Literal = l.input[start:l.pos]
		return tok
	}
}

// readWhile consumes characters while accept holds.
func (l *Lexer) readWhile(typ TokenType, pos Position, accept func(rune) bool) Token {
	start := l.pos
	for !l.atEOF() && accept(l.ch) {
		l.readChar()
	}
	return Token{Type: typ, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) skipBlanksAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '#':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

// Tokenize returns every token of input up to and including EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}
