package main

import (
	"fmt"
	"strings"
)

// CompileError is a single diagnostic from any compiler stage (lex, parse,
// or codegen), carrying the position it occurred at.
type CompileError struct {
	Line    int
	Column  int
	Message string
}

func (e CompileError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// ErrorList accumulates CompileErrors for a single compiler stage. The
// lexer and parser stop at their first error; code generation keeps
// collecting, but Compile reports only the first. ErrorList gives those
// errors a uniform shape and string rendering across lexer, parser, and
// codegen (cli.go's check command prints a parse ErrorList via String).
type ErrorList struct {
	errs []CompileError
}

func NewErrorList() *ErrorList {
	return &ErrorList{}
}

func (el *ErrorList) Add(pos Position, message string) {
	el.errs = append(el.errs, CompileError{Line: pos.Line, Column: pos.Column, Message: message})
}

func (el *ErrorList) Addf(pos Position, format string, args ...any) {
	el.Add(pos, fmt.Sprintf(format, args...))
}

func (el *ErrorList) HasErrors() bool {
	return len(el.errs) > 0
}

func (el *ErrorList) First() *CompileError {
	if len(el.errs) == 0 {
		return nil
	}
	return &el.errs[0]
}

func (el *ErrorList) All() []CompileError {
	return el.errs
}

func (el *ErrorList) String() string {
	lines := make([]string, len(el.errs))
	for i, e := range el.errs {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}
