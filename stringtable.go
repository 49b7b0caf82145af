package main

// StringTable interns literal string content into the module's data
// segment. First encounter of a distinct literal assigns offset =
// current table size; later lookups of the same content return that same
// offset, so duplicate literals share storage (spec.md §3, §8: "a program
// using the string \"hi\" twice emits one \"hi\\0\" sequence").
type StringTable struct {
	offsets map[string]int
	data    []byte
}

func NewStringTable() *StringTable {
	return &StringTable{offsets: make(map[string]int)}
}

// Intern returns the (offset, length) of s within the data segment,
// allocating new storage if s hasn't been seen before. length excludes the
// terminating zero byte; box_string stores only the content length, per
// spec.md §4.3's box_string signature `(i32,i32)→i32`.
func (t *StringTable) Intern(s string) (offset, length int) {
	if off, ok := t.offsets[s]; ok {
		return off, len(s)
	}
	off := len(t.data)
	t.offsets[s] = off
	t.data = append(t.data, s...)
	t.data = append(t.data, 0)
	return off, len(s)
}

// Data returns the concatenated, zero-terminated literal bytes in
// first-encounter order — the module's single data segment (spec.md §4.3
// item 9, §6 "Data segment").
func (t *StringTable) Data() []byte {
	return t.data
}

// Size is the current byte length of the data segment, used to seed
// heap_ptr's initial value (spec.md §3: "initialised to (size of string
// literal data + 1)").
func (t *StringTable) Size() int {
	return len(t.data)
}
