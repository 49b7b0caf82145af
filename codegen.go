package main

import "fmt"

// CodeGen walks a Program once and assembles a complete WebAssembly module,
// switching on node kind to compile statements and expressions over boxed
// values, with multi-function modules, and a local-index counter saved/restored per function (spec.md
// §4.3, §9 "Scope and local-index allocator across function boundaries").
type CodeGen struct {
	types   []FuncType
	typeIdx map[string]uint32
	funcs   []FuncDef // funcs[i] is absolute function index i+2 (2 imports precede it)

	strings *StringTable
	rt      runtimeIndices

	userFuncIdx    map[string]int
	userFuncHasRet map[string]bool
	userFuncParams map[string][]string

	errs *ErrorList
}

func NewCodeGen() *CodeGen {
	return &CodeGen{
		typeIdx:        make(map[string]uint32),
		strings:        NewStringTable(),
		userFuncIdx:    make(map[string]int),
		userFuncHasRet: make(map[string]bool),
		userFuncParams: make(map[string][]string),
		errs:           NewErrorList(),
	}
}

func (cg *CodeGen) getType(params, results []byte) uint32 {
	key := string(params) + "->" + string(results)
	if idx, ok := cg.typeIdx[key]; ok {
		return idx
	}
	idx := uint32(len(cg.types))
	cg.types = append(cg.types, FuncType{
		Params:  append([]byte(nil), params...),
		Results: append([]byte(nil), results...),
	})
	cg.typeIdx[key] = idx
	return idx
}

// addFunc reserves the next function-index slot, returning its absolute
// index (2 imports always precede module-defined functions).
func (cg *CodeGen) addFunc(fd FuncDef) int {
	cg.funcs = append(cg.funcs, fd)
	return len(cg.funcs) - 1 + 2
}

type funcInfo struct {
	decl   *FunctionDecl
	hasRet bool
	idx    int
}

// collectFunctions walks the statement tree looking for top-level function
// declarations, in source order, descending into if/while/for bodies but
// not into another function's body — this language has no nested function
// declarations or closures (spec.md §1 Non-goals).
func (cg *CodeGen) collectFunctions(stmts []Stmt) []*funcInfo {
	var out []*funcInfo
	var walk func(stmts []Stmt)
	walk = func(stmts []Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *FunctionDecl:
				out = append(out, &funcInfo{decl: n, hasRet: containsReturn(n.Body)})
			case *IfStmt:
				walk(n.Then)
				for _, el := range n.ElifBranches {
					walk(el.Body)
				}
				if n.HasElse {
					walk(n.Else)
				}
			case *WhileStmt:
				walk(n.Body)
			case *ForStmt:
				walk(n.Body)
			}
		}
	}
	walk(stmts)
	return out
}

func containsReturn(stmts []Stmt) bool {
	for _, s := range stmts {
		switch n := s.(type) {
		case *ReturnStmt:
			return true
		case *IfStmt:
			if containsReturn(n.Then) {
				return true
			}
			for _, el := range n.ElifBranches {
				if containsReturn(el.Body) {
					return true
				}
			}
			if n.HasElse && containsReturn(n.Else) {
				return true
			}
		case *WhileStmt:
			if containsReturn(n.Body) {
				return true
			}
		case *ForStmt:
			if containsReturn(n.Body) {
				return true
			}
		}
	}
	return false
}

// Compile walks prog and produces a complete binary WebAssembly module
// (spec.md §4.3).
func (cg *CodeGen) Compile(prog *Program) (*Module, *ErrorList) {
	mainIdx := cg.addFunc(FuncDef{})
	cg.installRuntimeHelpers()

	funcInfos := cg.collectFunctions(prog.Body)
	for _, fi := range funcInfos {
		name := fi.decl.Name
		if _, dup := cg.userFuncIdx[name]; dup {
			cg.errs.Addf(fi.decl.Location().Start, "function '%s' redefined", name)
			continue
		}
		idx := cg.addFunc(FuncDef{})
		cg.userFuncIdx[name] = idx
		cg.userFuncHasRet[name] = fi.hasRet
		cg.userFuncParams[name] = fi.decl.Params
		fi.idx = idx
	}
	if cg.errs.HasErrors() {
		return nil, cg.errs
	}

	mainScope := NewScope()
	mainEnc := NewEncoder()
	cg.compileBlock(mainEnc, mainScope, prog.Body)
	mainLocals := make([]byte, mainScope.LocalCount())
	for i := range mainLocals {
		mainLocals[i] = ValI32
	}
	voidType := cg.getType(nil, nil)
	cg.funcs[mainIdx-2] = FuncDef{TypeIdx: voidType, Locals: mainLocals, Body: mainEnc.Bytes()}

	for _, fi := range funcInfos {
		if fi.idx == 0 {
			continue // duplicate name, already reported
		}
		fd := cg.compileFunctionBody(fi.decl.Params, fi.decl.Body, fi.hasRet)
		cg.funcs[fi.idx-2] = fd
	}

	if cg.errs.HasErrors() {
		return nil, cg.errs
	}

	ioType := cg.getType([]byte{ValI32}, nil)
	mod := &Module{
		Types: cg.types,
		Imports: []Import{
			{Module: "env", Name: "print", TypeIdx: ioType},
			{Module: "env", Name: "println", TypeIdx: ioType},
		},
		Funcs:     cg.funcs,
		MemoryMin: 1,
		Globals: []Global{
			{Type: ValI32, Mutable: true, Init: int32(cg.strings.Size() + 1)},
			{Type: ValI32, Mutable: true, Init: 0}, // scratch_len
		},
		Exports: []Export{
			{Name: "main", Kind: ExportKindFunc, Idx: uint32(mainIdx)},
			{Name: "memory", Kind: ExportKindMemory, Idx: 0},
		},
		Data: cg.strings.Data(),
	}
	return mod, nil
}

const importPrint = 0
const importPrintln = 1

func (cg *CodeGen) compileFunctionBody(params []string, body []Stmt, hasRet bool) FuncDef {
	scope := NewScope()
	for _, p := range params {
		scope.DeclareLocal(p)
	}
	enc := NewEncoder()
	cg.compileBlock(enc, scope, body)
	if hasRet {
		// Guarantees the fall-through path (if any path doesn't explicitly
		// `ret`) still leaves a value of the declared result type; dead
		// code when every path already returned.
		enc.Call(cg.rt.boxNil)
	}

	paramTypes := make([]byte, len(params))
	for i := range paramTypes {
		paramTypes[i] = ValI32
	}
	var resultTypes []byte
	if hasRet {
		resultTypes = []byte{ValI32}
	}
	typ := cg.getType(paramTypes, resultTypes)

	numAdditional := scope.LocalCount() - len(params)
	locals := make([]byte, numAdditional)
	for i := range locals {
		locals[i] = ValI32
	}
	return FuncDef{TypeIdx: typ, Locals: locals, Body: enc.Bytes()}
}

// compileBlock compiles a statement sequence into enc. FunctionDecl nodes
// contribute nothing inline — they were already registered and compiled as
// their own top-level function.
func (cg *CodeGen) compileBlock(enc *Encoder, scope *Scope, stmts []Stmt) {
	for _, s := range stmts {
		cg.compileStmt(enc, scope, s)
	}
}

func (cg *CodeGen) compileStmt(enc *Encoder, scope *Scope, stmt Stmt) {
	switch s := stmt.(type) {
	case *FunctionDecl:
		// compiled separately; nothing inline here.

	case *PrintStmt:
		cg.compileExprValue(enc, scope, s.Value)
		if s.Ln {
			enc.Call(importPrintln)
		} else {
			enc.Call(importPrint)
		}

	case *AssignStmt:
		cg.compileExprValue(enc, scope, s.Value)
		var slot int
		if s.Local {
			var err error
			slot, err = scope.DeclareLocal(s.Name)
			if err != nil {
				cg.errs.Add(s.Location().Start, err.Error())
				return
			}
		} else {
			slot, _ = scope.Assign(s.Name)
		}
		enc.LocalSet(slot)

	case *IfStmt:
		cg.compileIf(enc, scope, s.Cond, s.Then, s.ElifBranches, s.Else, s.HasElse)

	case *WhileStmt:
		enc.Block(blockTypeVoid)
		enc.Loop(blockTypeVoid)
		cg.compileExprValue(enc, scope, s.Cond)
		enc.Call(cg.rt.isTruthy)
		enc.Op(OpI32Eqz)
		enc.BrIf(1)
		cg.compileBlock(enc, scope, s.Body)
		enc.Br(0)
		enc.End()
		enc.End()

	case *ForStmt:
		cg.compileFor(enc, scope, s)

	case *ReturnStmt:
		cg.compileExprValue(enc, scope, s.Value)
		enc.Op(OpReturn)

	case *ExpressionStmt:
		cg.compileExprStmt(enc, scope, s.X)

	default:
		cg.errs.Addf(stmt.Location().Start, "internal: unhandled statement kind %T", stmt)
	}
}

func (cg *CodeGen) compileIf(enc *Encoder, scope *Scope, cond Expr, then []Stmt, elifs []ElifBranch, els []Stmt, hasElse bool) {
	cg.compileExprValue(enc, scope, cond)
	enc.Call(cg.rt.isTruthy)
	enc.If(blockTypeVoid)
	cg.compileBlock(enc, scope, then)
	switch {
	case len(elifs) > 0:
		enc.Else()
		cg.compileIf(enc, scope, elifs[0].Cond, elifs[0].Body, elifs[1:], els, hasElse)
	case hasElse:
		enc.Else()
		cg.compileBlock(enc, scope, els)
	}
	enc.End()
}

func (cg *CodeGen) compileFor(enc *Encoder, scope *Scope, s *ForStmt) {
	scope.Push()
	defer scope.Pop()

	iSlot, err := scope.DeclareLocal(s.Var)
	if err != nil {
		cg.errs.Add(s.Location().Start, err.Error())
		return
	}
	cg.compileExprValue(enc, scope, s.Start)
	enc.LocalSet(iSlot)

	// end, step and direction stay live across the body, where a nested
	// loop or an `and`/`or` would overwrite a shared slot, so each loop gets
	// slots of its own.
	endSlot := scope.allocSlot()
	cg.compileExprValue(enc, scope, s.End)
	enc.LocalSet(endSlot)

	stepSlot := scope.allocSlot()
	if s.Step != nil {
		cg.compileExprValue(enc, scope, s.Step)
	} else {
		enc.F64Const(1)
		enc.Call(cg.rt.boxNumber)
	}
	enc.LocalSet(stepSlot)

	descSlot := scope.allocSlot()
	enc.LocalGet(stepSlot)
	enc.Call(cg.rt.unboxNumber)
	enc.F64Const(0)
	enc.Op(OpF64Lt)
	enc.LocalSet(descSlot)

	enc.Block(blockTypeVoid)
	enc.Loop(blockTypeVoid)

	// Exit condition: descending ? i<end : i>end (spec.md §4.3).
	enc.LocalGet(descSlot)
	enc.If(blockTypeI32)
	enc.LocalGet(iSlot)
	enc.Call(cg.rt.unboxNumber)
	enc.LocalGet(endSlot)
	enc.Call(cg.rt.unboxNumber)
	enc.Op(OpF64Lt)
	enc.Else()
	enc.LocalGet(iSlot)
	enc.Call(cg.rt.unboxNumber)
	enc.LocalGet(endSlot)
	enc.Call(cg.rt.unboxNumber)
	enc.Op(OpF64Gt)
	enc.End()
	enc.BrIf(1)

	cg.compileBlock(enc, scope, s.Body)

	enc.LocalGet(iSlot)
	enc.Call(cg.rt.unboxNumber)
	enc.LocalGet(stepSlot)
	enc.Call(cg.rt.unboxNumber)
	enc.Op(OpF64Add)
	enc.Call(cg.rt.boxNumber)
	enc.LocalSet(iSlot)

	enc.Br(0)
	enc.End()
	enc.End()
}

// compileExprStmt compiles an expression used as a full statement. A call
// to a void user function leaves nothing to drop; everything else leaves
// exactly one boxed value that must be dropped (spec.md §4.3).
func (cg *CodeGen) compileExprStmt(enc *Encoder, scope *Scope, e Expr) {
	if call, ok := e.(*FunctionCall); ok {
		if idx, known := cg.userFuncIdx[call.Name]; known && !cg.userFuncHasRet[call.Name] {
			cg.compileCallArgs(enc, scope, call)
			enc.Call(idx)
			return
		}
	}
	cg.compileExprValue(enc, scope, e)
	enc.Op(OpDrop)
}

func (cg *CodeGen) compileCallArgs(enc *Encoder, scope *Scope, call *FunctionCall) {
	params, ok := cg.userFuncParams[call.Name]
	if !ok {
		cg.errs.Addf(call.Location().Start, "unknown function '%s'", call.Name)
		return
	}
	if len(params) != len(call.Args) {
		cg.errs.Addf(call.Location().Start, "function '%s' expects %d argument(s), got %d", call.Name, len(params), len(call.Args))
	}
	for _, a := range call.Args {
		cg.compileExprValue(enc, scope, a)
	}
}

// compileExprValue compiles e so it leaves exactly one boxed i32 on the
// stack (spec.md §4.3's per-kind expression rules).
func (cg *CodeGen) compileExprValue(enc *Encoder, scope *Scope, expr Expr) {
	switch e := expr.(type) {
	case *NumberLiteral:
		enc.F64Const(e.Value)
		enc.Call(cg.rt.boxNumber)

	case *StringLiteral:
		off, length := cg.strings.Intern(e.Value)
		enc.I32Const(int32(off))
		enc.I32Const(int32(length))
		enc.Call(cg.rt.boxString)

	case *BooleanLiteral:
		if e.Value {
			enc.I32Const(1)
		} else {
			enc.I32Const(0)
		}
		enc.Call(cg.rt.boxBool)

	case *Identifier:
		slot, ok := scope.Lookup(e.Name)
		if !ok {
			cg.errs.Addf(e.Location().Start, "unknown identifier '%s'", e.Name)
			return
		}
		enc.LocalGet(slot)

	case *Grouping:
		cg.compileExprValue(enc, scope, e.Inner)

	case *Unary:
		cg.compileUnary(enc, scope, e)

	case *Binary:
		cg.compileBinary(enc, scope, e)

	case *FunctionCall:
		idx, ok := cg.userFuncIdx[e.Name]
		if !ok {
			cg.errs.Addf(e.Location().Start, "unknown function '%s'", e.Name)
			return
		}
		cg.compileCallArgs(enc, scope, e)
		enc.Call(idx)
		if !cg.userFuncHasRet[e.Name] {
			enc.Call(cg.rt.boxNil)
		}

	default:
		cg.errs.Addf(expr.Location().Start, "internal: unhandled expression kind %T", expr)
	}
}

func (cg *CodeGen) compileUnary(enc *Encoder, scope *Scope, e *Unary) {
	switch e.Op {
	case "+":
		cg.compileExprValue(enc, scope, e.Operand)

	case "-":
		if lit, ok := e.Operand.(*NumberLiteral); ok {
			enc.F64Const(-lit.Value)
			enc.Call(cg.rt.boxNumber)
			return
		}
		cg.compileExprValue(enc, scope, e.Operand)
		enc.Call(cg.rt.unboxNumber)
		enc.Op(OpF64Neg)
		enc.Call(cg.rt.boxNumber)

	case "~":
		cg.compileExprValue(enc, scope, e.Operand)
		enc.Call(cg.rt.unboxNumber)
		enc.F64Const(0)
		enc.Op(OpF64Eq)
		enc.Call(cg.rt.boxBool)

	default:
		cg.errs.Addf(e.Location().Start, "internal: unhandled unary operator %q", e.Op)
	}
}

func (cg *CodeGen) compileBinary(enc *Encoder, scope *Scope, e *Binary) {
	switch e.Op {
	case "and":
		scratch := scope.Scratch()
		cg.compileExprValue(enc, scope, e.Left)
		enc.LocalTee(scratch)
		enc.Call(cg.rt.isTruthy)
		enc.If(blockTypeI32)
		cg.compileExprValue(enc, scope, e.Right)
		enc.Else()
		enc.LocalGet(scratch)
		enc.End()
		return

	case "or":
		scratch := scope.Scratch()
		cg.compileExprValue(enc, scope, e.Left)
		enc.LocalTee(scratch)
		enc.Call(cg.rt.isTruthy)
		enc.Op(OpI32Eqz)
		enc.If(blockTypeI32)
		cg.compileExprValue(enc, scope, e.Right)
		enc.Else()
		enc.LocalGet(scratch)
		enc.End()
		return

	case "+":
		// Concatenation triggers specifically on a string operand; a bool or
		// nil operand instead coerces to a number via to_number (spec.md §9
		// "Boolean arithmetic": `true + 1` adds, it doesn't concatenate).
		lSlot := scope.NamedScratch("$plusL")
		rSlot := scope.NamedScratch("$plusR")
		// Both operands are evaluated before either slot is written, so a
		// nested `+` in the right operand cannot overwrite the left one.
		cg.compileExprValue(enc, scope, e.Left)
		cg.compileExprValue(enc, scope, e.Right)
		enc.LocalSet(rSlot)
		enc.LocalSet(lSlot)

		enc.LocalGet(lSlot)
		enc.I32Load(2, 0)
		enc.I32Const(2) // string
		enc.Op(OpI32Eq)
		enc.LocalGet(rSlot)
		enc.I32Load(2, 0)
		enc.I32Const(2)
		enc.Op(OpI32Eq)
		enc.Op(OpI32Or)
		enc.If(blockTypeI32)
		enc.LocalGet(lSlot)
		enc.LocalGet(rSlot)
		enc.Call(cg.rt.concat)
		enc.Else()
		enc.LocalGet(lSlot)
		enc.Call(cg.rt.toNumber)
		enc.LocalGet(rSlot)
		enc.Call(cg.rt.toNumber)
		enc.Op(OpF64Add)
		enc.Call(cg.rt.boxNumber)
		enc.End()
		return

	case "%":
		cg.compileExprValue(enc, scope, e.Left)
		enc.Call(cg.rt.toNumber)
		cg.compileExprValue(enc, scope, e.Right)
		enc.Call(cg.rt.toNumber)
		enc.Call(cg.rt.mod)
		enc.Call(cg.rt.boxNumber)
		return

	case "^":
		cg.compileExprValue(enc, scope, e.Left)
		enc.Call(cg.rt.toNumber)
		cg.compileExprValue(enc, scope, e.Right)
		enc.Call(cg.rt.toNumber)
		enc.Call(cg.rt.pow)
		enc.Call(cg.rt.boxNumber)
		return
	}

	var f64Op byte
	boxResult := cg.rt.boxNumber
	switch e.Op {
	case "-":
		f64Op = OpF64Sub
	case "*":
		f64Op = OpF64Mul
	case "/":
		f64Op = OpF64Div
	case "==":
		f64Op, boxResult = OpF64Eq, cg.rt.boxBool
	case "~=":
		f64Op, boxResult = OpF64Ne, cg.rt.boxBool
	case "<":
		f64Op, boxResult = OpF64Lt, cg.rt.boxBool
	case ">":
		f64Op, boxResult = OpF64Gt, cg.rt.boxBool
	case "<=":
		f64Op, boxResult = OpF64Le, cg.rt.boxBool
	case ">=":
		f64Op, boxResult = OpF64Ge, cg.rt.boxBool
	default:
		cg.errs.Add(e.Location().Start, fmt.Sprintf("internal: unhandled binary operator %q", e.Op))
		return
	}
	cg.compileExprValue(enc, scope, e.Left)
	enc.Call(cg.rt.toNumber)
	cg.compileExprValue(enc, scope, e.Right)
	enc.Call(cg.rt.toNumber)
	enc.Op(f64Op)
	enc.Call(boxResult)
}
