package main

// Runtime helper bodies — the fixed library of WebAssembly functions
// compiled into every module (spec.md §4.3's helper table), hand-assembled
// with wasmutil.go's Encoder, one fixed function body per helper. Like the
// functions codegen.go compiles from source, every helper here operates on
// the boxed-value ABI (§3): a 16-byte tagged cell, accessed through the
// mutable i32 global `heap_ptr` (global 0).
//
// WebAssembly 1.0 (MVP) functions return at most one value, so the two
// helpers that conceptually return (offset, length) pairs — num_to_string
// and to_string_repr — return the offset and stash the length in a second
// mutable global, `scratch_len` (global 1). Callers read it immediately
// after the call.

const heapPtrGlobal = 0
const scratchLenGlobal = 1

type runtimeIndices struct {
	boxNumber, unboxNumber, boxBool, boxString, boxNil int
	isTruthy, mod, pow, ensureSpace                     int
	toNumber, copyBytes, numToString, toStringRepr, concat int
}

// installRuntimeHelpers appends the fixed helper set to cg.funcs, recording
// each one's absolute function index. A helper's body is built before its
// own index is recorded, so every helper it calls must already be
// installed: ensure_space therefore comes first, since the box_* helpers
// call it.
func (cg *CodeGen) installRuntimeHelpers() {
	cg.rt.ensureSpace = cg.addFunc(cg.buildEnsureSpace())
	cg.rt.boxNumber = cg.addFunc(cg.buildBoxNumber())
	cg.rt.unboxNumber = cg.addFunc(cg.buildUnboxNumber())
	cg.rt.boxBool = cg.addFunc(cg.buildBoxBool())
	cg.rt.boxString = cg.addFunc(cg.buildBoxString())
	cg.rt.boxNil = cg.addFunc(cg.buildBoxNil())
	cg.rt.isTruthy = cg.addFunc(cg.buildIsTruthy())
	cg.rt.mod = cg.addFunc(cg.buildMod())
	cg.rt.pow = cg.addFunc(cg.buildPow())
	cg.rt.toNumber = cg.addFunc(cg.buildToNumber())
	cg.rt.copyBytes = cg.addFunc(cg.buildCopyBytes())
	cg.rt.numToString = cg.addFunc(cg.buildNumToString())
	cg.rt.toStringRepr = cg.addFunc(cg.buildToStringRepr())
	cg.rt.concat = cg.addFunc(cg.buildConcat())
}

// ensure_space(n i32) -> (): grow memory by whole pages if the next n bytes
// would not fit (spec.md §3/§9).
func (cg *CodeGen) buildEnsureSpace() FuncDef {
	typ := cg.getType([]byte{ValI32}, nil)
	e := NewEncoder()
	e.GlobalGet(heapPtrGlobal)
	e.LocalGet(0)
	e.Op(OpI32Add)
	e.Op(OpMemorySize)
	e.I32Const(65536)
	e.Op(OpI32Mul)
	e.Op(OpI32GtS)
	e.If(blockTypeVoid)
	e.LocalGet(0)
	e.I32Const(65535)
	e.Op(OpI32Add)
	e.I32Const(65536)
	e.Op(OpI32DivS)
	e.Op(OpMemoryGrow)
	e.Op(OpDrop) // discard memory.grow's result (previous page count, or -1 on failure)
	e.End()
	return FuncDef{TypeIdx: typ, Body: e.Bytes()}
}

// box_number(v f64) -> i32
func (cg *CodeGen) buildBoxNumber() FuncDef {
	typ := cg.getType([]byte{ValF64}, []byte{ValI32})
	e := NewEncoder()
	const ptr = 1
	e.I32Const(16)
	e.Call(cg.rt.ensureSpace)
	e.GlobalGet(heapPtrGlobal)
	e.LocalSet(ptr)
	e.LocalGet(ptr)
	e.I32Const(1) // tag = number
	e.I32Store(2, 0)
	e.LocalGet(ptr)
	e.LocalGet(0)
	e.F64Store(8)
	e.LocalGet(ptr)
	e.I32Const(16)
	e.Op(OpI32Add)
	e.GlobalSet(heapPtrGlobal)
	e.LocalGet(ptr)
	return FuncDef{TypeIdx: typ, Locals: []byte{ValI32}, Body: e.Bytes()}
}

// unbox_number(ptr i32) -> f64
func (cg *CodeGen) buildUnboxNumber() FuncDef {
	typ := cg.getType([]byte{ValI32}, []byte{ValF64})
	e := NewEncoder()
	e.LocalGet(0)
	e.F64Load(8)
	return FuncDef{TypeIdx: typ, Body: e.Bytes()}
}

// box_bool(v i32) -> i32
func (cg *CodeGen) buildBoxBool() FuncDef {
	typ := cg.getType([]byte{ValI32}, []byte{ValI32})
	e := NewEncoder()
	const ptr = 1
	e.I32Const(16)
	e.Call(cg.rt.ensureSpace)
	e.GlobalGet(heapPtrGlobal)
	e.LocalSet(ptr)
	e.LocalGet(ptr)
	e.I32Const(3) // tag = bool
	e.I32Store(2, 0)
	e.LocalGet(ptr)
	e.LocalGet(0)
	e.I32Store(2, 4)
	e.LocalGet(ptr)
	e.I32Const(16)
	e.Op(OpI32Add)
	e.GlobalSet(heapPtrGlobal)
	e.LocalGet(ptr)
	return FuncDef{TypeIdx: typ, Locals: []byte{ValI32}, Body: e.Bytes()}
}

// box_string(offset i32, length i32) -> i32
func (cg *CodeGen) buildBoxString() FuncDef {
	typ := cg.getType([]byte{ValI32, ValI32}, []byte{ValI32})
	e := NewEncoder()
	const ptr = 2
	e.I32Const(16)
	e.Call(cg.rt.ensureSpace)
	e.GlobalGet(heapPtrGlobal)
	e.LocalSet(ptr)
	e.LocalGet(ptr)
	e.I32Const(2) // tag = string
	e.I32Store(2, 0)
	e.LocalGet(ptr)
	e.LocalGet(0) // offset
	e.I32Store(2, 4)
	e.LocalGet(ptr)
	e.LocalGet(1) // length
	e.I32Store(2, 8)
	e.LocalGet(ptr)
	e.I32Const(16)
	e.Op(OpI32Add)
	e.GlobalSet(heapPtrGlobal)
	e.LocalGet(ptr)
	return FuncDef{TypeIdx: typ, Locals: []byte{ValI32}, Body: e.Bytes()}
}

// box_nil() -> i32
func (cg *CodeGen) buildBoxNil() FuncDef {
	typ := cg.getType(nil, []byte{ValI32})
	e := NewEncoder()
	const ptr = 0
	e.I32Const(16)
	e.Call(cg.rt.ensureSpace)
	e.GlobalGet(heapPtrGlobal)
	e.LocalSet(ptr)
	e.LocalGet(ptr)
	e.I32Const(0) // tag = nil
	e.I32Store(2, 0)
	e.LocalGet(ptr)
	e.I32Const(16)
	e.Op(OpI32Add)
	e.GlobalSet(heapPtrGlobal)
	e.LocalGet(ptr)
	return FuncDef{TypeIdx: typ, Locals: []byte{ValI32}, Body: e.Bytes()}
}

// is_truthy(ptr i32) -> i32: nil/0/""/false -> 0, everything else -> 1
// (spec.md §4.3, §8's truth table).
func (cg *CodeGen) buildIsTruthy() FuncDef {
	typ := cg.getType([]byte{ValI32}, []byte{ValI32})
	e := NewEncoder()
	const tag = 1
	e.LocalGet(0)
	e.I32Load(2, 0)
	e.LocalSet(tag)

	e.LocalGet(tag)
	e.I32Const(0) // nil
	e.Op(OpI32Eq)
	e.If(blockTypeI32)
	e.I32Const(0)
	e.Else()
	e.LocalGet(tag)
	e.I32Const(2) // string
	e.Op(OpI32Eq)
	e.If(blockTypeI32)
	e.LocalGet(0)
	e.I32Load(2, 8) // length
	e.I32Const(0)
	e.Op(OpI32GtS)
	e.Else()
	e.LocalGet(tag)
	e.I32Const(1) // number
	e.Op(OpI32Eq)
	e.If(blockTypeI32)
	e.LocalGet(0)
	e.F64Load(8)
	e.F64Const(0)
	e.Op(OpF64Ne)
	e.Else()
	e.LocalGet(0) // bool: the stored 0/1 is already the answer
	e.I32Load(2, 4)
	e.End()
	e.End()
	e.End()
	return FuncDef{TypeIdx: typ, Locals: []byte{ValI32}, Body: e.Bytes()}
}

// mod(a f64, b f64) -> f64: a - trunc(a/b)*b. Division by zero propagates
// IEEE NaN with no special-casing needed.
func (cg *CodeGen) buildMod() FuncDef {
	typ := cg.getType([]byte{ValF64, ValF64}, []byte{ValF64})
	e := NewEncoder()
	e.LocalGet(0)
	e.LocalGet(0)
	e.LocalGet(1)
	e.Op(OpF64Div)
	e.Op(OpF64Trunc)
	e.LocalGet(1)
	e.Op(OpF64Mul)
	e.Op(OpF64Sub)
	return FuncDef{TypeIdx: typ, Body: e.Bytes()}
}

// pow(base f64, exp f64) -> f64: iterative multiplication over the
// truncated integer exponent; a negative exponent inverts the base and
// negates the exponent (spec.md §4.3/§9's in-module fallback — this
// compiler never wires a host math_pow, see DESIGN.md).
func (cg *CodeGen) buildPow() FuncDef {
	typ := cg.getType([]byte{ValF64, ValF64}, []byte{ValF64})
	e := NewEncoder()
	const (
		b      = 2 // f64: working base (possibly inverted)
		result = 3 // f64: accumulator
		n      = 4 // i32: remaining iterations
	)
	// n = trunc(exp) as i32, possibly negative
	e.LocalGet(1)
	e.Op(OpF64Trunc)
	e.Op(OpI32TruncF64S)
	e.LocalSet(n)

	// b = n < 0 ? 1/base : base
	e.LocalGet(n)
	e.I32Const(0)
	e.Op(OpI32LtS)
	e.If(blockTypeVoid)
	e.F64Const(1)
	e.LocalGet(0)
	e.Op(OpF64Div)
	e.LocalSet(b)
	e.I32Const(0)
	e.LocalGet(n)
	e.Op(OpI32Sub)
	e.LocalSet(n)
	e.Else()
	e.LocalGet(0)
	e.LocalSet(b)
	e.End()

	e.F64Const(1)
	e.LocalSet(result)

	e.Block(blockTypeVoid)
	e.Loop(blockTypeVoid)
	e.LocalGet(n)
	e.I32Const(0)
	e.Op(OpI32LeS)
	e.BrIf(1)
	e.LocalGet(result)
	e.LocalGet(b)
	e.Op(OpF64Mul)
	e.LocalSet(result)
	e.LocalGet(n)
	e.I32Const(1)
	e.Op(OpI32Sub)
	e.LocalSet(n)
	e.Br(0)
	e.End()
	e.End()

	e.LocalGet(result)
	return FuncDef{TypeIdx: typ, Locals: []byte{ValF64, ValF64, ValI32}, Body: e.Bytes()}
}

// to_number(ptr i32) -> f64: unbox a number directly; coerce a bool to its
// 0.0/1.0 value (spec.md §9 "Boolean arithmetic"); anything else (nil,
// string) yields 0.0.
func (cg *CodeGen) buildToNumber() FuncDef {
	typ := cg.getType([]byte{ValI32}, []byte{ValF64})
	e := NewEncoder()
	const tag = 1
	e.LocalGet(0)
	e.I32Load(2, 0)
	e.LocalSet(tag)

	e.LocalGet(tag)
	e.I32Const(1) // number
	e.Op(OpI32Eq)
	e.If(blockTypeF64)
	e.LocalGet(0)
	e.F64Load(8)
	e.Else()
	e.LocalGet(tag)
	e.I32Const(3) // bool
	e.Op(OpI32Eq)
	e.If(blockTypeF64)
	e.LocalGet(0)
	e.I32Load(2, 4)
	e.Op(OpF64ConvertI32S)
	e.Else()
	e.F64Const(0)
	e.End()
	e.End()
	return FuncDef{TypeIdx: typ, Locals: []byte{ValI32}, Body: e.Bytes()}
}

// copy_bytes(dst i32, src i32, len i32) -> (): the byte-at-a-time copy loop
// concat uses to assemble a new string, since WebAssembly 1.0 has no bulk
// memory-copy instruction.
func (cg *CodeGen) buildCopyBytes() FuncDef {
	typ := cg.getType([]byte{ValI32, ValI32, ValI32}, nil)
	e := NewEncoder()
	const i = 3
	e.I32Const(0)
	e.LocalSet(i)
	e.Block(blockTypeVoid)
	e.Loop(blockTypeVoid)
	e.LocalGet(i)
	e.LocalGet(2)
	e.Op(OpI32GeS)
	e.BrIf(1)

	e.LocalGet(0) // dst + i
	e.LocalGet(i)
	e.Op(OpI32Add)
	e.LocalGet(1) // load8u(src + i)
	e.LocalGet(i)
	e.Op(OpI32Add)
	e.I32Load8U(0, 0)
	e.I32Store8(0, 0)

	e.LocalGet(i)
	e.I32Const(1)
	e.Op(OpI32Add)
	e.LocalSet(i)
	e.Br(0)
	e.End()
	e.End()
	return FuncDef{TypeIdx: typ, Locals: []byte{ValI32}, Body: e.Bytes()}
}

// num_to_string(v f64) -> i32 offset (length in scratch_len): renders the
// truncated integer part as decimal digits, written backward into a
// reserved scratch region so no separate reversal pass is needed, with at
// most one fractional digit appended when the value isn't whole. This is a
// deliberately simplified renderer (spec.md §4.3's "platform's default
// double-precision string form" is otherwise host-specific); see
// DESIGN.md.
func (cg *CodeGen) buildNumToString() FuncDef {
	typ := cg.getType([]byte{ValF64}, []byte{ValI32})
	e := NewEncoder()
	const (
		neg      = 1 // i32
		av       = 2 // f64
		ip       = 3 // i32
		bufStart = 4 // i32
		pos      = 5 // i32
		tmp      = 6 // i32
		fracDig  = 7 // i32
	)
	const bufSize = 40
	const intEnd = 32 // digits are written backward, ending at relative offset 31

	e.I32Const(bufSize)
	e.Call(cg.rt.ensureSpace)
	e.GlobalGet(heapPtrGlobal)
	e.LocalSet(bufStart)

	// neg = v < 0; av = |v|
	e.LocalGet(0)
	e.F64Const(0)
	e.Op(OpF64Lt)
	e.LocalSet(neg)
	e.LocalGet(neg)
	e.If(blockTypeVoid)
	e.F64Const(0)
	e.LocalGet(0)
	e.Op(OpF64Sub)
	e.LocalSet(av)
	e.Else()
	e.LocalGet(0)
	e.LocalSet(av)
	e.End()

	e.LocalGet(av)
	e.Op(OpF64Trunc)
	e.Op(OpI32TruncF64S)
	e.LocalSet(ip)

	// pos starts one past the last digit slot; decremented before each write.
	e.I32Const(intEnd)
	e.LocalSet(pos)
	e.LocalGet(ip)
	e.LocalSet(tmp)

	e.LocalGet(tmp)
	e.I32Const(0)
	e.Op(OpI32Eq)
	e.If(blockTypeVoid)
	e.LocalGet(pos)
	e.I32Const(1)
	e.Op(OpI32Sub)
	e.LocalSet(pos)
	e.LocalGet(bufStart)
	e.LocalGet(pos)
	e.Op(OpI32Add)
	e.I32Const('0')
	e.I32Store8(0, 0)
	e.Else()
	e.Block(blockTypeVoid)
	e.Loop(blockTypeVoid)
	e.LocalGet(tmp)
	e.I32Const(0)
	e.Op(OpI32LeS)
	e.BrIf(1)

	e.LocalGet(pos)
	e.I32Const(1)
	e.Op(OpI32Sub)
	e.LocalSet(pos)
	e.LocalGet(bufStart)
	e.LocalGet(pos)
	e.Op(OpI32Add)
	e.I32Const('0')
	e.LocalGet(tmp)
	e.I32Const(10)
	e.Op(OpI32RemS)
	e.Op(OpI32Add)
	e.I32Store8(0, 0)

	e.LocalGet(tmp)
	e.I32Const(10)
	e.Op(OpI32DivS)
	e.LocalSet(tmp)
	e.Br(0)
	e.End()
	e.End()
	e.End()

	// sign
	e.LocalGet(neg)
	e.If(blockTypeVoid)
	e.LocalGet(pos)
	e.I32Const(1)
	e.Op(OpI32Sub)
	e.LocalSet(pos)
	e.LocalGet(bufStart)
	e.LocalGet(pos)
	e.Op(OpI32Add)
	e.I32Const('-')
	e.I32Store8(0, 0)
	e.End()

	// single fractional digit, only when the value isn't whole
	e.LocalGet(av)
	e.LocalGet(ip)
	e.Op(OpF64ConvertI32S)
	e.Op(OpF64Sub)
	e.F64Const(10)
	e.Op(OpF64Mul)
	e.Op(OpI32TruncF64S)
	e.LocalSet(fracDig)

	e.LocalGet(fracDig)
	e.I32Const(0)
	e.Op(OpI32Ne)
	e.If(blockTypeVoid)
	e.LocalGet(bufStart)
	e.I32Const(intEnd)
	e.Op(OpI32Add)
	e.I32Const('.')
	e.I32Store8(0, 0)
	e.LocalGet(bufStart)
	e.I32Const(intEnd + 1)
	e.Op(OpI32Add)
	e.I32Const('0')
	e.LocalGet(fracDig)
	e.Op(OpI32Add)
	e.I32Store8(0, 0)

	e.LocalGet(bufStart)
	e.I32Const(bufSize)
	e.Op(OpI32Add)
	e.GlobalSet(heapPtrGlobal)
	e.I32Const(intEnd + 2)
	e.LocalGet(pos)
	e.Op(OpI32Sub)
	e.GlobalSet(scratchLenGlobal)
	e.Else()
	e.LocalGet(bufStart)
	e.I32Const(bufSize)
	e.Op(OpI32Add)
	e.GlobalSet(heapPtrGlobal)
	e.I32Const(intEnd)
	e.LocalGet(pos)
	e.Op(OpI32Sub)
	e.GlobalSet(scratchLenGlobal)
	e.End()

	e.LocalGet(bufStart)
	e.LocalGet(pos)
	e.Op(OpI32Add)
	return FuncDef{
		TypeIdx: typ,
		Locals:  []byte{ValI32, ValF64, ValI32, ValI32, ValI32, ValI32, ValI32},
		Body:    e.Bytes(),
	}
}

// to_string_repr(ptr i32) -> i32 offset (length in scratch_len): dispatches
// on tag to produce the textual rendering the `+` concatenation operator
// and `print`/`println` rely on (spec.md §4.3, open question #1 in
// DESIGN.md).
func (cg *CodeGen) buildToStringRepr() FuncDef {
	typ := cg.getType([]byte{ValI32}, []byte{ValI32})
	trueOff, trueLen := cg.strings.Intern("true")
	falseOff, falseLen := cg.strings.Intern("false")

	e := NewEncoder()
	const tag = 1
	e.LocalGet(0)
	e.I32Load(2, 0)
	e.LocalSet(tag)

	e.LocalGet(tag)
	e.I32Const(2) // string: already has a representation
	e.Op(OpI32Eq)
	e.If(blockTypeI32)
	e.LocalGet(0)
	e.I32Load(2, 8)
	e.GlobalSet(scratchLenGlobal)
	e.LocalGet(0)
	e.I32Load(2, 4)
	e.Else()
	e.LocalGet(tag)
	e.I32Const(1) // number
	e.Op(OpI32Eq)
	e.If(blockTypeI32)
	e.LocalGet(0)
	e.F64Load(8)
	e.Call(cg.rt.numToString)
	e.Else()
	e.LocalGet(tag)
	e.I32Const(3) // bool
	e.Op(OpI32Eq)
	e.If(blockTypeI32)
	e.LocalGet(0)
	e.I32Load(2, 4)
	e.If(blockTypeI32)
	e.I32Const(int32(trueLen))
	e.GlobalSet(scratchLenGlobal)
	e.I32Const(int32(trueOff))
	e.Else()
	e.I32Const(int32(falseLen))
	e.GlobalSet(scratchLenGlobal)
	e.I32Const(int32(falseOff))
	e.End()
	e.Else()
	e.I32Const(0) // nil: empty string
	e.GlobalSet(scratchLenGlobal)
	e.I32Const(0)
	e.End()
	e.End()
	e.End()
	return FuncDef{TypeIdx: typ, Locals: []byte{ValI32}, Body: e.Bytes()}
}

// concat(aPtr i32, bPtr i32) -> i32: stringifies both operands via
// to_string_repr, copies their bytes end-to-end into a fresh heap region,
// and boxes the result (spec.md §4.3's `+` concatenation rule).
func (cg *CodeGen) buildConcat() FuncDef {
	typ := cg.getType([]byte{ValI32, ValI32}, []byte{ValI32})
	e := NewEncoder()
	const (
		aOff = 2
		aLen = 3
		bOff = 4
		bLen = 5
		dst  = 6
	)
	e.LocalGet(0)
	e.Call(cg.rt.toStringRepr)
	e.LocalSet(aOff)
	e.GlobalGet(scratchLenGlobal)
	e.LocalSet(aLen)

	e.LocalGet(1)
	e.Call(cg.rt.toStringRepr)
	e.LocalSet(bOff)
	e.GlobalGet(scratchLenGlobal)
	e.LocalSet(bLen)

	e.LocalGet(aLen)
	e.LocalGet(bLen)
	e.Op(OpI32Add)
	e.Call(cg.rt.ensureSpace)

	e.GlobalGet(heapPtrGlobal)
	e.LocalSet(dst)

	e.LocalGet(dst)
	e.LocalGet(aOff)
	e.LocalGet(aLen)
	e.Call(cg.rt.copyBytes)

	e.LocalGet(dst)
	e.LocalGet(aLen)
	e.Op(OpI32Add)
	e.LocalGet(bOff)
	e.LocalGet(bLen)
	e.Call(cg.rt.copyBytes)

	e.LocalGet(dst)
	e.LocalGet(aLen)
	e.LocalGet(bLen)
	e.Op(OpI32Add)
	e.Op(OpI32Add)
	e.GlobalSet(heapPtrGlobal)

	e.LocalGet(dst)
	e.LocalGet(aLen)
	e.LocalGet(bLen)
	e.Op(OpI32Add)
	e.Call(cg.rt.boxString)
	return FuncDef{TypeIdx: typ, Locals: []byte{ValI32, ValI32, ValI32, ValI32, ValI32}, Body: e.Bytes()}
}
