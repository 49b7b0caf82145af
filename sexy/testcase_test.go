package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestExtractTestCases_BasicTest(t *testing.T) {
	markdown := `# Binary expressions

## Test: +
` + "```wick-expr" + `
1 + 2
` + "```" + `
` + "```ast" + `
(binary "+" 1 2)
` + "```" + `

## Test: -
` + "```wick-expr" + `
1 - 2
` + "```" + `
` + "```ast" + `
(binary "-" 1 2)
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 2)

	tc1 := testCases[0]
	be.Equal(t, tc1.Name, "+")
	be.Equal(t, tc1.Input, "1 + 2")
	be.Equal(t, tc1.InputType, InputTypeWickExpr)
	be.Equal(t, len(tc1.Assertions), 1)
	be.Equal(t, tc1.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc1.Assertions[0].Content, `(binary "+" 1 2)`)
	be.Equal(t, tc1.Assertions[0].ParsedSexy.String(), `(binary "+" 1 2)`)

	tc2 := testCases[1]
	be.Equal(t, tc2.Name, "-")
	be.Equal(t, tc2.Input, "1 - 2")
	be.Equal(t, tc2.InputType, InputTypeWickExpr)
	be.Equal(t, len(tc2.Assertions), 1)
	be.Equal(t, tc2.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc2.Assertions[0].Content, `(binary "-" 1 2)`)
}

func TestExtractTestCases_MultipleAssertions(t *testing.T) {
	markdown := `## Test: multiple assertions
` + "```wick-expr" + `
x + y
` + "```" + `
` + "```ast" + `
(binary "+" (ident "x") (ident "y"))
` + "```" + `
` + "```execute" + `
error: unknown identifier 'x'
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, tc.Name, "multiple assertions")
	be.Equal(t, tc.Input, "x + y")
	be.Equal(t, tc.InputType, InputTypeWickExpr)
	be.Equal(t, len(tc.Assertions), 2)

	be.Equal(t, tc.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc.Assertions[0].Content, `(binary "+" (ident "x") (ident "y"))`)

	be.Equal(t, tc.Assertions[1].Type, AssertionTypeExecute)
	be.Equal(t, tc.Assertions[1].Content, "error: unknown identifier 'x'")
}

func TestExtractTestCases_DifferentInputTypes(t *testing.T) {
	markdown := `## Test: wick-program input
` + "```wick-program" + `
println 42
` + "```" + `
` + "```ast" + `
(program (print 42 true))
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, tc.Name, "wick-program input")
	be.Equal(t, tc.Input, "println 42")
	be.Equal(t, tc.InputType, InputTypeWickProgram)
	be.Equal(t, len(tc.Assertions), 1)
	be.Equal(t, tc.Assertions[0].Type, AssertionTypeAST)
}

func TestExtractTestCases_DifferentAssertionTypes(t *testing.T) {
	markdown := `## Test: different assertions
` + "```wick-expr" + `
x
` + "```" + `
` + "```ast" + `
(ident "x")
` + "```" + `
` + "```compile-error" + `
unknown identifier 'x'
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, len(tc.Assertions), 2)

	be.Equal(t, tc.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc.Assertions[1].Type, AssertionTypeCompileError)
}

func TestExtractTestCases_EmptyFile(t *testing.T) {
	markdown := ""

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_NoTestCases(t *testing.T) {
	markdown := `# Some document

This is just regular markdown content.

## Regular heading

No test cases here.`

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_NoTestCasesWithUnknownFence(t *testing.T) {
	markdown := `# Some document

This is just regular markdown content.

` + "```go" + `
func main() {
    fmt.Println("Hello")
}
` + "```" + `

## Regular heading

No test cases here.`

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown fence language 'go' found outside of test case"))
}

func TestExtractTestCases_InvalidSexyAssertion(t *testing.T) {
	markdown := `## Test: invalid sexy
` + "```wick-expr" + `
1 + 2
` + "```" + `
` + "```ast" + `
(unclosed list
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "failed to parse Sexy assertion"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

// Error condition tests

func TestExtractTestCases_FenceOutsideTestCase(t *testing.T) {
	tests := []struct {
		name      string
		markdown  string
		fenceType string
	}{
		{
			"wick-expr fence outside test",
			"# Document\n\n```wick-expr\n1 + 2\n```\n",
			"wick-expr",
		},
		{
			"wick-program fence outside test",
			"# Document\n\n```wick-program\nprintln 1\n```\n",
			"wick-program",
		},
		{
			"ast fence outside test",
			"# Document\n\n```ast\n(binary \"+\" 1 2)\n```\n",
			"ast",
		},
		{
			"compile-error fence outside test",
			"# Document\n\n```compile-error\nboom\n```\n",
			"compile-error",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ExtractTestCases(test.markdown)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), test.fenceType+" fence found outside of test case"))
			be.True(t, strings.Contains(err.Error(), "line"))
		})
	}
}

func TestExtractTestCases_UnknownFenceLanguageInTest(t *testing.T) {
	markdown := `## Test: with unknown fence
` + "```python" + `
print("hello")
` + "```" + `
` + "```wick-expr" + `
1 + 2
` + "```" + `
` + "```ast" + `
(binary "+" 1 2)
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown fence language 'python'"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

func TestExtractTestCases_TestMissingInputFence(t *testing.T) {
	markdown := `## Test: no input
` + "```ast" + `
(binary "+" 1 2)
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'no input' has no input fence"))
}

func TestExtractTestCases_TestMissingAssertionFence(t *testing.T) {
	markdown := `## Test: no assertions
` + "```wick-expr" + `
1 + 2
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'no assertions' has no assertion fences"))
}

func TestExtractTestCases_MultipleInputFences(t *testing.T) {
	markdown := `## Test: multiple inputs
` + "```wick-expr" + `
1 + 2
` + "```" + `
` + "```wick-expr" + `
3 + 4
` + "```" + `
` + "```ast" + `
(binary "+" 1 2)
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "multiple input fences found"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

func TestExtractTestCases_UnknownFenceInTest(t *testing.T) {
	markdown := `## Test: test with unknown fence
` + "```wick-expr" + `
1 + 2
` + "```" + `
` + "```ast" + `
(binary "+" 1 2)
` + "```" + `

` + "```shell" + `
echo "more code"
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown fence language 'shell'"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

func TestExtractTestCases_AllowFencesWithoutLanguage(t *testing.T) {
	markdown := `# Document with generic code block

` + "```" + `
some code without language
` + "```" + `

## Test: valid test
` + "```wick-expr" + `
1 + 2
` + "```" + `
` + "```ast" + `
(binary "+" 1 2)
` + "```" + `

` + "```" + `
more code without language in test
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	be.Equal(t, testCases[0].Name, "valid test")
	be.Equal(t, testCases[0].Input, "1 + 2")
	be.Equal(t, len(testCases[0].Assertions), 1)
}

func TestExtractTestCases_LineNumberAccuracy(t *testing.T) {
	markdown := `# Title
Line 2
Line 3

` + "```wick-expr" + `
this should fail - fence outside any test
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "fence found outside"))
	be.True(t, strings.Contains(err.Error(), "line"))
	// The fence's first content line is line 6 of the document.
	be.True(t, strings.Contains(err.Error(), "line 6:"))
}

func TestExtractTestCases_ErrorInSecondTest(t *testing.T) {
	markdown := `## Test: first test
` + "```wick-expr" + `
1 + 2
` + "```" + `
` + "```ast" + `
(binary "+" 1 2)
` + "```" + `

## Test: second test missing input
` + "```ast" + `
(binary "-" 1 2)
` + "```"

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'second test missing input' has no input fence"))
}

func TestExtractTestCases_InputFence(t *testing.T) {
	markdown := `## Test: input fence test
` + "```wick-program" + `
println "hello world"
` + "```" + `
` + "```input" + `
hello world

` + "```" + `
` + "```execute" + `
hello world
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, tc.Name, "input fence test")
	be.Equal(t, tc.Input, `println "hello world"`)
	be.Equal(t, tc.InputType, InputTypeWickProgram)
	be.Equal(t, tc.InputData, "hello world\n\n")
	be.Equal(t, len(tc.Assertions), 1)

	be.Equal(t, tc.Assertions[0].Type, AssertionTypeExecute)
	be.Equal(t, tc.Assertions[0].Content, "hello world")
}

func TestExtractTestCases_ComplexSexyExpressions(t *testing.T) {
	markdown := `## Test: complex expression
` + "```wick-expr" + `
x + yyy * 2
` + "```" + `
` + "```ast" + `
(binary "+"
 (ident "x")
 (binary "*"
  (ident "yyy")
  (number 2)))
` + "```"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, len(tc.Assertions), 1)

	assertion := tc.Assertions[0]
	be.Equal(t, assertion.Type, AssertionTypeAST)

	be.Equal(t, assertion.ParsedSexy.Type, NodeList)
	be.Equal(t, len(assertion.ParsedSexy.Items), 4)

	be.Equal(t, assertion.ParsedSexy.Items[0].Type, NodeSymbol)
	be.Equal(t, assertion.ParsedSexy.Items[0].Text, "binary")

	be.Equal(t, assertion.ParsedSexy.Items[1].Type, NodeString)
	be.Equal(t, assertion.ParsedSexy.Items[1].Text, "+")

	be.Equal(t, assertion.ParsedSexy.Items[2].Type, NodeList)
	be.Equal(t, assertion.ParsedSexy.Items[3].Type, NodeList)
}
