// Package abi provides the native calling trampolines the symbol
// resolver's discovered addresses are invoked through. Calls go
// through github.com/ebitengine/purego's raw-address invocation
// (purego.SyscallN) rather than cgo, the same no-cgo dynamic-call
// story the teacher's Windows DXGI code gets for free from COM vtable
// calls (comCall in internal/remote/desktop/dxgi_windows.go) but that
// an ELF/.so target has to reach for a library to get on Linux.
package abi

import "unsafe"

// OwnedToken models the platform's smart-pointer display-token return
// value (spec.md §4.1's "owned-reference return-value rule"). Go has
// no sret calling convention and no C++-style non-trivial-destructor
// trick to force one, so the rule is honored explicitly instead: every
// trampoline that resolves to a variant whose calling convention
// returns an owned reference indirectly allocates a zeroed OwnedToken
// and passes &token.words[0] as a hidden first argument, exactly
// mirroring what the compiler would do automatically in C++. The
// non-empty method set (Release, Valid) and the noCopy marker are the
// Go analogue of "a destructor the compiler cannot elide": callers
// must route teardown through Release rather than letting the value
// go out of scope silently.
type OwnedToken struct {
	noCopy noCopy
	words  [2]uintptr // platform smart-pointer ABI: control word + data pointer
}

// noCopy causes `go vet`'s copylocks-style analysis to flag accidental
// value copies of OwnedToken; it carries no state.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// newOwnedToken returns a zeroed token ready to receive a hidden
// sret-style pointer argument.
func newOwnedToken() *OwnedToken {
	return &OwnedToken{}
}

// sretPtr returns the address a trampoline passes as the hidden first
// argument when the resolved variant's calling rule returns owned
// references indirectly.
func (t *OwnedToken) sretPtr() uintptr {
	return uintptr(unsafe.Pointer(&t.words[0]))
}

// Valid reports whether the token carries a non-null control word.
// A null token after a successful-looking call indicates the callee
// refused the request (spec.md §4.1: "typically permission/compositor-
// policy refusal"), which callers surface as corerr.KindInternal.
func (t *OwnedToken) Valid() bool {
	return t.words[0] != 0
}

// Release clears the token's two words, so Valid reports false
// afterwards. It makes no call into the compositor, and no finalizer
// runs it: callers call Release explicitly once the display is torn
// down.
func (t *OwnedToken) Release() {
	t.words[0] = 0
	t.words[1] = 0
}
