package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func parseOrFail(t *testing.T, src string) *Program {
	t.Helper()
	prog, errs := ParseProgram(append([]byte(src), 0))
	be.Equal(t, false, errs.HasErrors())
	return prog
}

func TestParseAssignAndLocal(t *testing.T) {
	prog := parseOrFail(t, "x := 1\nlocal y := 2\n")
	be.Equal(t, 2, len(prog.Body))

	a := prog.Body[0].(*AssignStmt)
	be.Equal(t, "x", a.Name)
	be.Equal(t, false, a.Local)

	b := prog.Body[1].(*AssignStmt)
	be.Equal(t, "y", b.Name)
	be.Equal(t, true, b.Local)
}

func TestParsePrintAndPrintln(t *testing.T) {
	prog := parseOrFail(t, `print "a"` + "\n" + `println "b"`)
	be.Equal(t, 2, len(prog.Body))
	be.Equal(t, false, prog.Body[0].(*PrintStmt).Ln)
	be.Equal(t, true, prog.Body[1].(*PrintStmt).Ln)
}

func TestParseIfElifElse(t *testing.T) {
	prog := parseOrFail(t, `
if x == 1 then
  print "one"
elif x == 2 then
  print "two"
else
  print "other"
end
`)
	ifs := prog.Body[0].(*IfStmt)
	be.Equal(t, 1, len(ifs.ElifBranches))
	be.Equal(t, true, ifs.HasElse)
}

func TestParseWhile(t *testing.T) {
	prog := parseOrFail(t, "while x < 10 do\n  x := x + 1\nend")
	w := prog.Body[0].(*WhileStmt)
	be.Equal(t, 1, len(w.Body))
}

func TestParseForWithAndWithoutStep(t *testing.T) {
	prog := parseOrFail(t, "for i := 0, 10 do end\nfor j := 0, 10, 2 do end")
	f1 := prog.Body[0].(*ForStmt)
	be.True(t, f1.Step == nil)
	f2 := prog.Body[1].(*ForStmt)
	be.True(t, f2.Step != nil)
}

func TestParseFuncWithParamsAndReturn(t *testing.T) {
	prog := parseOrFail(t, "func add(a, b)\n  ret a + b\nend")
	fn := prog.Body[0].(*FunctionDecl)
	be.Equal(t, "add", fn.Name)
	be.Equal(t, []string{"a", "b"}, fn.Params)
	be.Equal(t, 1, len(fn.Body))
	_, ok := fn.Body[0].(*ReturnStmt)
	be.True(t, ok)
}

func TestParseCallExpression(t *testing.T) {
	prog := parseOrFail(t, "fact(5)")
	es := prog.Body[0].(*ExpressionStmt)
	call, ok := es.X.(*FunctionCall)
	be.True(t, ok)
	be.Equal(t, "fact", call.Name)
	be.Equal(t, 1, len(call.Args))
}

func TestOperatorPrecedenceOrAndComparisonAddMul(t *testing.T) {
	prog := parseOrFail(t, "a or b and c == d + e * f")
	es := prog.Body[0].(*ExpressionStmt)
	top := es.X.(*Binary)
	be.Equal(t, "or", top.Op)
	rhs := top.Right.(*Binary)
	be.Equal(t, "and", rhs.Op)
	eq := rhs.Right.(*Binary)
	be.Equal(t, "==", eq.Op)
	add := eq.Right.(*Binary)
	be.Equal(t, "+", add.Op)
	mul := add.Right.(*Binary)
	be.Equal(t, "*", mul.Op)
}

func TestPowIsLeftAssociative(t *testing.T) {
	prog := parseOrFail(t, "2^3^2")
	es := prog.Body[0].(*ExpressionStmt)
	top := es.X.(*Binary)
	be.Equal(t, "^", top.Op)
	left := top.Left.(*Binary)
	be.Equal(t, "^", left.Op)
}

func TestUnaryIsRightAssociativeAndStacks(t *testing.T) {
	prog := parseOrFail(t, "- - x")
	es := prog.Body[0].(*ExpressionStmt)
	outer := es.X.(*Unary)
	be.Equal(t, "-", outer.Op)
	_, ok := outer.Operand.(*Unary)
	be.True(t, ok)
}

func TestModIsNonAssociative(t *testing.T) {
	_, errs := ParseProgram(append([]byte("a % b % c\n"), 0))
	be.True(t, errs.HasErrors())
}

func TestGroupingOverridesPrecedence(t *testing.T) {
	prog := parseOrFail(t, "(a + b) * c")
	es := prog.Body[0].(*ExpressionStmt)
	top := es.X.(*Binary)
	be.Equal(t, "*", top.Op)
	_, ok := top.Left.(*Grouping)
	be.True(t, ok)
}

func TestParseErrorOnUnexpectedToken(t *testing.T) {
	_, errs := ParseProgram(append([]byte("if then end"), 0))
	be.True(t, errs.HasErrors())
}

func TestParseErrorOnMissingEnd(t *testing.T) {
	_, errs := ParseProgram(append([]byte("if x == 1 then\n print \"hi\"\n"), 0))
	be.True(t, errs.HasErrors())
}
