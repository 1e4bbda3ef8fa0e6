package abi

import "unsafe"

// inlineStringCapacity bounds the fixed-capacity inline string layout
// some ABI variants expect in place of a heap-owning string.
const inlineStringCapacity = 128

// inlineString is the stack-allocated, null-terminated, bounded-length
// string layout spec.md §4.1 calls out as one of the two platform
// string representations a trampoline must construct. Variants A-C
// take this form.
type inlineString struct {
	data [inlineStringCapacity]byte
	len  uint32
}

func newInlineString(s string) *inlineString {
	is := &inlineString{}
	n := copy(is.data[:inlineStringCapacity-1], s)
	is.len = uint32(n)
	return is
}

func (is *inlineString) ptr() uintptr {
	return uintptr(unsafe.Pointer(&is.data[0]))
}

// ownedString is the standard heap-owning string layout (pointer +
// length + capacity, mirroring the platform's std::string ABI) that
// variant D expects in place of inlineString. Constructing the wrong
// one for a given variant corrupts the callee's stack frame, so each
// trampoline in display_variants.go picks explicitly rather than
// sharing a helper between the two.
type ownedString struct {
	data []byte
}

func newOwnedString(s string) *ownedString {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return &ownedString{data: buf}
}

func (os *ownedString) ptr() uintptr {
	return uintptr(unsafe.Pointer(&os.data[0]))
}
