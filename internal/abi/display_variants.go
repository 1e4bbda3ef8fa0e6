package abi

import (
	"math"

	"github.com/ebitengine/purego"

	"github.com/capturecore/daemon/internal/corerr"
)

// DisplayCreateArgs carries the parameters every create_display
// variant needs, regardless of which subset its calling convention
// actually uses.
type DisplayCreateArgs struct {
	Name      string
	Secure    bool
	DisplayID uint64
	Exclusive bool
	UniqueID  string
	RefreshHz float32
}

// floatWord reinterprets a float32 as the uintptr purego.SyscallN
// expects for a float-typed argument: the ABI passes it in a float
// register, keyed off the argument's bit pattern rather than an
// integer conversion (spec.md §4.1 variant D: requested_refresh_rate_hz
// is f32, not an integer word).
func floatWord(f float32) uintptr {
	return uintptr(math.Float32bits(f))
}

func boolWord(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}

// CreateDisplayVariantA calls the oldest create_display entry point:
// token = fn(platform_string(name), secure_flag), with the token's
// owned-reference sret pointer passed as the hidden first argument.
func CreateDisplayVariantA(addr uintptr, args DisplayCreateArgs) (*OwnedToken, error) {
	name := newInlineString(args.Name)
	token := newOwnedToken()

	_, _, errno := purego.SyscallN(addr, token.sretPtr(), name.ptr(), boolWord(args.Secure))
	if errno != 0 {
		return nil, corerr.Wrap(corerr.KindInternal, "abi.create_display_a", errno)
	}
	if !token.Valid() {
		return nil, corerr.New(corerr.KindInternal, "abi.create_display_a", "compositor returned a null display token")
	}
	return token, nil
}

// CreateDisplayVariantB has the identical signature to A; the two are
// differentiated purely by the platform-version range they resolve
// under (spec.md §4.1: "identical signature as A; differentiated by
// platform version only").
func CreateDisplayVariantB(addr uintptr, args DisplayCreateArgs) (*OwnedToken, error) {
	return CreateDisplayVariantA(addr, args)
}

// CreateDisplayVariantC calls: token = fn(platform_string(name),
// secure_flag, display_id).
func CreateDisplayVariantC(addr uintptr, args DisplayCreateArgs) (*OwnedToken, error) {
	name := newInlineString(args.Name)
	token := newOwnedToken()

	_, _, errno := purego.SyscallN(addr, token.sretPtr(), name.ptr(), boolWord(args.Secure), uintptr(args.DisplayID))
	if errno != 0 {
		return nil, corerr.Wrap(corerr.KindInternal, "abi.create_display_c", errno)
	}
	if !token.Valid() {
		return nil, corerr.New(corerr.KindInternal, "abi.create_display_c", "compositor returned a null display token")
	}
	return token, nil
}

// CreateDisplayVariantD calls the newest entry point: token =
// fn(std_string(name), secure_flag, exclusive_flag, std_string(unique_id),
// refresh_rate_hz). It takes the heap-owning string layout, not the
// inline one the older variants use.
func CreateDisplayVariantD(addr uintptr, args DisplayCreateArgs) (*OwnedToken, error) {
	name := newOwnedString(args.Name)
	uniqueID := newOwnedString(args.UniqueID)
	token := newOwnedToken()

	_, _, errno := purego.SyscallN(addr, token.sretPtr(),
		name.ptr(), boolWord(args.Secure), boolWord(args.Exclusive),
		uniqueID.ptr(), floatWord(args.RefreshHz))
	if errno != 0 {
		return nil, corerr.Wrap(corerr.KindInternal, "abi.create_display_d", errno)
	}
	if !token.Valid() {
		return nil, corerr.New(corerr.KindInternal, "abi.create_display_d", "compositor returned a null display token")
	}
	return token, nil
}

// DestroyDisplay releases a previously created display token through
// the resolved destroy_display entry point, then releases the token's
// local handle regardless of the call outcome.
func DestroyDisplay(addr uintptr, token *OwnedToken) error {
	defer token.Release()

	_, _, errno := purego.SyscallN(addr, token.sretPtr())
	if errno != 0 {
		return corerr.Wrap(corerr.KindInternal, "abi.destroy_display", errno)
	}
	return nil
}
