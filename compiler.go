package main

// Compile runs the full pipeline — lex, parse, generate — over source text
// and returns a complete binary WebAssembly module plus the raw string
// literal bytes (spec.md §4.3's `compile(program) → (bytes, error?,
// stringData)`, collapsed here since this language has no separate
// type-checking stage: it is dynamically typed, and the only compile-time
// checks (unknown identifier, unknown function, argument count, duplicate
// local, function redefinition) run during code generation, per §7).
//
// There is no recovery: the first stage to report an error stops the
// pipeline. There is no separate symbol-table or type-checking stage.
func Compile(source string) (bytes []byte, stringData []byte, err error) {
	buf := append([]byte(source), 0)
	prog, parseErrs := ParseProgram(buf)
	if parseErrs.HasErrors() {
		return nil, nil, parseErrs.First()
	}

	cg := NewCodeGen()
	mod, genErrs := cg.Compile(prog)
	if genErrs != nil && genErrs.HasErrors() {
		return nil, nil, genErrs.First()
	}

	return mod.Assemble(), cg.strings.Data(), nil
}

// Tokenize exposes the lexer stage alone, consuming source fully and
// returning the tokens produced or the first lex error (spec.md §4.1's
// `tokenize(source) → (tokens, error?)` contract).
func Tokenize(source string) ([]Token, error) {
	buf := append([]byte(source), 0)
	l := NewLexer(buf)
	var tokens []Token
	for {
		l.NextToken()
		tokens = append(tokens, Token{
			Type:    l.CurrTokenType,
			Literal: l.CurrLiteral,
			NumVal:  l.CurrNumVal,
			Start:   l.CurrStart,
			End:     l.CurrEnd,
		})
		if l.CurrTokenType == EOF {
			break
		}
		if l.Errors.HasErrors() {
			tokens = append(tokens, Token{Type: EOF, Start: l.CurrEnd, End: l.CurrEnd})
			return tokens, l.Errors.First()
		}
	}
	if l.Errors.HasErrors() {
		return tokens, l.Errors.First()
	}
	return tokens, nil
}
