package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestTokenizeEmptySourceYieldsEOF(t *testing.T) {
	toks, err := Tokenize("")
	be.Err(t, err, nil)
	be.Equal(t, 1, len(toks))
	be.Equal(t, EOF, toks[0].Type)
}

func TestTokenizeKeywordsAndIdents(t *testing.T) {
	toks, err := Tokenize("if x then end")
	be.Err(t, err, nil)
	want := []TokenType{IF, IDENT, THEN, END, EOF}
	be.Equal(t, len(want), len(toks))
	for i, tt := range want {
		be.Equal(t, tt, toks[i].Type)
	}
	be.Equal(t, "x", toks[1].Literal)
}

func TestTokenizeNumberLiteral(t *testing.T) {
	toks, err := Tokenize("3.5")
	be.Err(t, err, nil)
	be.Equal(t, NUMBER, toks[0].Type)
	be.Equal(t, 3.5, toks[0].NumVal)
}

func TestTokenizeStringLiteral(t *testing.T) {
	toks, err := Tokenize(`"hello world"`)
	be.Err(t, err, nil)
	be.Equal(t, STRING, toks[0].Type)
	be.Equal(t, "hello world", toks[0].Literal)
}

func TestTokenizeUnterminatedStringIsError(t *testing.T) {
	_, err := Tokenize(`"hello`)
	be.True(t, err != nil)
}

func TestTokenizeOperators(t *testing.T) {
	toks, err := Tokenize(":= == ~= <= >= < > + - * / % ^ ~")
	be.Err(t, err, nil)
	want := []TokenType{DECLARE, EQ, NOT_EQ, LE, GE, LT, GT, PLUS, MINUS, STAR, SLASH, PERCENT, CARET, TILDE, EOF}
	be.Equal(t, len(want), len(toks))
	for i, tt := range want {
		be.Equal(t, tt, toks[i].Type)
	}
}

func TestTokenizeCommentIsSkippedByParserButEmittedByLexer(t *testing.T) {
	toks, err := Tokenize("x -- a trailing comment\ny")
	be.Err(t, err, nil)
	var kinds []TokenType
	for _, tok := range toks {
		kinds = append(kinds, tok.Type)
	}
	be.True(t, len(kinds) >= 3)
	be.Equal(t, []TokenType{IDENT, COMMENT, IDENT, EOF}, kinds)
	prog := parseOrFail(t, "x -- a trailing comment\ny")
	be.Equal(t, 2, len(prog.Body))
}

func TestTokenizeBooleanLiterals(t *testing.T) {
	toks, err := Tokenize("true false")
	be.Err(t, err, nil)
	be.Equal(t, TRUE, toks[0].Type)
	be.Equal(t, FALSE, toks[1].Type)
}

func TestTokenizeIllegalCharacterIsError(t *testing.T) {
	_, err := Tokenize("@")
	be.True(t, err != nil)
}

func TestTokenizeErrorTruncatesStreamWithTrailingEOF(t *testing.T) {
	toks, err := Tokenize(":")
	be.True(t, err != nil)
	be.Equal(t, 2, len(toks))
	be.Equal(t, ILLEGAL, toks[0].Type)
	be.Equal(t, EOF, toks[len(toks)-1].Type)
}

func TestTokenizeUnterminatedStringTruncatesStreamWithTrailingEOF(t *testing.T) {
	toks, err := Tokenize(`"hello`)
	be.True(t, err != nil)
	be.Equal(t, EOF, toks[len(toks)-1].Type)
}

func TestTokenizePositionsAdvanceAcrossLines(t *testing.T) {
	toks, err := Tokenize("x\ny")
	be.Err(t, err, nil)
	be.Equal(t, 1, toks[0].Start.Line)
	be.Equal(t, 2, toks[1].Start.Line)
}
