package main

import (
	"bytes"
	"math"
)

// WASM Binary Encoding Utilities — LEB128 writers, section framing, and a
// small bytecode Encoder, generalized from a fixed one-function
// emitters (main.go: writeByte/writeBytes/writeLEB128/writeLEB128Signed,
// EmitWASMHeader/EmitTypeSection/EmitImportSection/EmitFunctionSection/
// EmitExportSection) into a multi-type, multi-function module assembler
// that also carries memory, global, and data sections.

func writeByte(buf *bytes.Buffer, b byte) {
	buf.WriteByte(b)
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	buf.Write(data)
}

func writeLEB128(buf *bytes.Buffer, val uint32) {
	for val >= 0x80 {
		buf.WriteByte(byte(val&0x7F) | 0x80)
		val >>= 7
	}
	buf.WriteByte(byte(val & 0x7F))
}

func writeLEB128Signed(buf *bytes.Buffer, val int64) {
	for {
		b := byte(val & 0x7F)
		val >>= 7
		if (val == 0 && (b&0x40) == 0) || (val == -1 && (b&0x40) != 0) {
			buf.WriteByte(b)
			break
		}
		buf.WriteByte(b | 0x80)
	}
}

func writeName(buf *bytes.Buffer, name string) {
	writeLEB128(buf, uint32(len(name)))
	writeBytes(buf, []byte(name))
}

// writeSection wraps content (already fully built) with its section id and
// LEB128-encoded byte length, the framing every section shares.
func writeSection(out *bytes.Buffer, id byte, content *bytes.Buffer) {
	writeByte(out, id)
	writeLEB128(out, uint32(content.Len()))
	writeBytes(out, content.Bytes())
}

// Value types.
const (
	ValI32 byte = 0x7F
	ValI64 byte = 0x7E
	ValF32 byte = 0x7D
	ValF64 byte = 0x7C
)

const blockTypeVoid byte = 0x40
const blockTypeI32 byte = ValI32
const blockTypeF64 byte = ValF64

// Control & variable instructions.
const (
	OpUnreachable = 0x00
	OpBlock       = 0x02
	OpLoop        = 0x03
	OpIf          = 0x04
	OpElse        = 0x05
	OpEnd         = 0x0B
	OpBr          = 0x0C
	OpBrIf        = 0x0D
	OpReturn      = 0x0F
	OpCall        = 0x10
	OpDrop        = 0x1A

	OpLocalGet  = 0x20
	OpLocalSet  = 0x21
	OpLocalTee  = 0x22
	OpGlobalGet = 0x23
	OpGlobalSet = 0x24

	OpI32Load    = 0x28
	OpF64Load    = 0x2B
	OpI32Load8U  = 0x2D
	OpI32Store   = 0x36
	OpF64Store   = 0x39
	OpI32Store8  = 0x3A
	OpMemorySize = 0x3F
	OpMemoryGrow = 0x40

	OpI32Const = 0x41
	OpF64Const = 0x44

	OpI32Eqz  = 0x45
	OpI32Eq   = 0x46
	OpI32Ne   = 0x47
	OpI32LtS  = 0x48
	OpI32GtS  = 0x4A
	OpI32LeS  = 0x4C
	OpI32GeS  = 0x4E

	OpF64Eq = 0x61
	OpF64Ne = 0x62
	OpF64Lt = 0x63
	OpF64Gt = 0x64
	OpF64Le = 0x65
	OpF64Ge = 0x66

	OpI32Add  = 0x6A
	OpI32Sub  = 0x6B
	OpI32Mul  = 0x6C
	OpI32DivS = 0x6D
	OpI32RemS = 0x6F
	OpI32And  = 0x71
	OpI32Or   = 0x72

	OpF64Neg   = 0x9A
	OpF64Trunc = 0x9D
	OpF64Add   = 0xA0
	OpF64Sub   = 0xA1
	OpF64Mul   = 0xA2
	OpF64Div   = 0xA3

	OpI32TruncF64S   = 0xAA
	OpF64ConvertI32S = 0xB7
)

// Encoder accumulates a single function body's bytecode. It is a thin
// convenience wrapper over the raw byte/LEB128 writers above, used by
// codegen.go so expression/statement compilation reads as a sequence of
// instruction-emitting calls rather than raw buffer writes.
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

func (e *Encoder) Op(op byte)          { e.buf.WriteByte(op) }
func (e *Encoder) U32(v uint32)        { writeLEB128(&e.buf, v) }
func (e *Encoder) S64(v int64)         { writeLEB128Signed(&e.buf, v) }

func (e *Encoder) I32Const(v int32) {
	e.Op(OpI32Const)
	e.S64(int64(v))
}

func (e *Encoder) F64Const(v float64) {
	e.Op(OpF64Const)
	var bits [8]byte
	u := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		bits[i] = byte(u >> (8 * i))
	}
	e.buf.Write(bits[:])
}

func (e *Encoder) LocalGet(idx int)  { e.Op(OpLocalGet); e.U32(uint32(idx)) }
func (e *Encoder) LocalSet(idx int)  { e.Op(OpLocalSet); e.U32(uint32(idx)) }
func (e *Encoder) LocalTee(idx int)  { e.Op(OpLocalTee); e.U32(uint32(idx)) }
func (e *Encoder) GlobalGet(idx int) { e.Op(OpGlobalGet); e.U32(uint32(idx)) }
func (e *Encoder) GlobalSet(idx int) { e.Op(OpGlobalSet); e.U32(uint32(idx)) }
func (e *Encoder) Call(fnIdx int)    { e.Op(OpCall); e.U32(uint32(fnIdx)) }

func (e *Encoder) Block(blockType byte) { e.Op(OpBlock); e.buf.WriteByte(blockType) }
func (e *Encoder) Loop(blockType byte)  { e.Op(OpLoop); e.buf.WriteByte(blockType) }
func (e *Encoder) If(blockType byte)    { e.Op(OpIf); e.buf.WriteByte(blockType) }
func (e *Encoder) Else()                { e.Op(OpElse) }
func (e *Encoder) End()                 { e.Op(OpEnd) }
func (e *Encoder) Br(depth uint32)      { e.Op(OpBr); e.U32(depth) }
func (e *Encoder) BrIf(depth uint32)    { e.Op(OpBrIf); e.U32(depth) }

// i32 memory access, used for box tags and pointer-sized fields.
func (e *Encoder) I32Load(align, offset uint32) {
	e.Op(OpI32Load)
	e.U32(align)
	e.U32(offset)
}
func (e *Encoder) I32Store(align, offset uint32) {
	e.Op(OpI32Store)
	e.U32(align)
	e.U32(offset)
}
func (e *Encoder) I32Load8U(align, offset uint32) {
	e.Op(OpI32Load8U)
	e.U32(align)
	e.U32(offset)
}
func (e *Encoder) I32Store8(align, offset uint32) {
	e.Op(OpI32Store8)
	e.U32(align)
	e.U32(offset)
}
func (e *Encoder) F64Load(offset uint32) {
	e.Op(OpF64Load)
	e.U32(3) // natural alignment, 2^3 = 8 bytes
	e.U32(offset)
}
func (e *Encoder) F64Store(offset uint32) {
	e.Op(OpF64Store)
	e.U32(3)
	e.U32(offset)
}

// --- Module-level structures ---

type FuncType struct {
	Params  []byte
	Results []byte
}

type Import struct {
	Module, Name string
	TypeIdx      uint32
}

type FuncDef struct {
	TypeIdx uint32
	Locals  []byte // declared-local value types, in index order, beyond the function's parameters
	Body    []byte
}

type Global struct {
	Type    byte
	Mutable bool
	Init    int32
}

type Export struct {
	Name string
	Kind byte // 0x00 = function, 0x02 = memory
	Idx  uint32
}

const (
	ExportKindFunc   = 0x00
	ExportKindMemory = 0x02
)

// Module holds everything needed to assemble a complete binary WASM module
// in the section order spec.md §4.3 requires.
type Module struct {
	Types      []FuncType
	Imports    []Import
	Funcs      []FuncDef
	MemoryMin  uint32
	Globals    []Global
	Exports    []Export
	Data       []byte
	DataOffset uint32
}

func (m *Module) typeSection() *bytes.Buffer {
	var b bytes.Buffer
	writeLEB128(&b, uint32(len(m.Types)))
	for _, t := range m.Types {
		writeByte(&b, 0x60)
		writeLEB128(&b, uint32(len(t.Params)))
		writeBytes(&b, t.Params)
		writeLEB128(&b, uint32(len(t.Results)))
		writeBytes(&b, t.Results)
	}
	return &b
}

func (m *Module) importSection() *bytes.Buffer {
	var b bytes.Buffer
	writeLEB128(&b, uint32(len(m.Imports)))
	for _, im := range m.Imports {
		writeName(&b, im.Module)
		writeName(&b, im.Name)
		writeByte(&b, 0x00) // import kind: function
		writeLEB128(&b, im.TypeIdx)
	}
	return &b
}

func (m *Module) functionSection() *bytes.Buffer {
	var b bytes.Buffer
	writeLEB128(&b, uint32(len(m.Funcs)))
	for _, f := range m.Funcs {
		writeLEB128(&b, f.TypeIdx)
	}
	return &b
}

func (m *Module) memorySection() *bytes.Buffer {
	var b bytes.Buffer
	writeLEB128(&b, 1) // one memory
	writeByte(&b, 0x00) // flags: no maximum
	writeLEB128(&b, m.MemoryMin)
	return &b
}

func (m *Module) globalSection() *bytes.Buffer {
	var b bytes.Buffer
	writeLEB128(&b, uint32(len(m.Globals)))
	for _, g := range m.Globals {
		writeByte(&b, g.Type)
		if g.Mutable {
			writeByte(&b, 0x01)
		} else {
			writeByte(&b, 0x00)
		}
		writeByte(&b, OpI32Const)
		writeLEB128Signed(&b, int64(g.Init))
		writeByte(&b, OpEnd)
	}
	return &b
}

func (m *Module) exportSection() *bytes.Buffer {
	var b bytes.Buffer
	writeLEB128(&b, uint32(len(m.Exports)))
	for _, ex := range m.Exports {
		writeName(&b, ex.Name)
		writeByte(&b, ex.Kind)
		writeLEB128(&b, ex.Idx)
	}
	return &b
}

func (m *Module) codeSection() *bytes.Buffer {
	var b bytes.Buffer
	writeLEB128(&b, uint32(len(m.Funcs)))
	for _, f := range m.Funcs {
		var fb bytes.Buffer
		// One group per local keeps this straightforward to emit correctly;
		// the module's local counts are small enough that the slightly
		// larger encoding doesn't matter.
		writeLEB128(&fb, uint32(len(f.Locals)))
		for _, lt := range f.Locals {
			writeLEB128(&fb, 1)
			writeByte(&fb, lt)
		}
		writeBytes(&fb, f.Body)
		writeByte(&fb, OpEnd)

		writeLEB128(&b, uint32(fb.Len()))
		writeBytes(&b, fb.Bytes())
	}
	return &b
}

func (m *Module) dataSection() *bytes.Buffer {
	var b bytes.Buffer
	writeLEB128(&b, 1) // one segment
	writeLEB128(&b, 0) // memory index 0
	writeByte(&b, OpI32Const)
	writeLEB128Signed(&b, int64(m.DataOffset))
	writeByte(&b, OpEnd)
	writeLEB128(&b, uint32(len(m.Data)))
	writeBytes(&b, m.Data)
	return &b
}

// Assemble produces the complete binary module, in spec.md §4.3's fixed
// section order: header, type, import, function, memory, global, export,
// code, data.
func (m *Module) Assemble() []byte {
	var out bytes.Buffer
	writeBytes(&out, []byte{0x00, 0x61, 0x73, 0x6D}) // magic
	writeBytes(&out, []byte{0x01, 0x00, 0x00, 0x00}) // version

	writeSection(&out, 0x01, m.typeSection())
	writeSection(&out, 0x02, m.importSection())
	writeSection(&out, 0x03, m.functionSection())
	writeSection(&out, 0x05, m.memorySection())
	writeSection(&out, 0x06, m.globalSection())
	writeSection(&out, 0x07, m.exportSection())
	writeSection(&out, 0x0A, m.codeSection())
	writeSection(&out, 0x0B, m.dataSection())

	return out.Bytes()
}
