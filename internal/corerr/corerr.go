// Package corerr defines the capture core's error taxonomy: one Kind per
// failure mode named in the design, wrapped in an Error that carries the
// operation and underlying cause. Unlike a flat set of sentinel errors
// (the style internal/config and the broader daemon use for simple
// fixed conditions), the IPC transport that sits above this core needs
// to translate failures into a stable numeric code per kind, so the
// error value itself has to carry a classification, not just an
// identity.
package corerr

import (
	"errors"
	"fmt"
)

// Kind classifies a core failure into one of the taxonomy's buckets.
type Kind int

const (
	// KindUnknown is never intentionally returned; seeing it means a
	// failure path forgot to classify its error.
	KindUnknown Kind = iota
	KindPermissionDenied
	KindDeviceNotFound
	KindResourceExhausted
	KindInvalidArgument
	KindNotInitialized
	KindTimeout
	KindFenceTimeout
	KindPrivateAPIUnavailable
	KindNotSupported
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindPermissionDenied:      "permission_denied",
	KindDeviceNotFound:        "device_not_found",
	KindResourceExhausted:     "resource_exhausted",
	KindInvalidArgument:       "invalid_argument",
	KindNotInitialized:        "not_initialized",
	KindTimeout:               "timeout",
	KindFenceTimeout:          "fence_timeout",
	KindPrivateAPIUnavailable: "private_api_unavailable",
	KindNotSupported:          "not_supported",
	KindInternal:              "internal_error",
}

// kindCodes holds the stable 16-bit value the IPC transport surfaces to callers
// (spec §7: "a stable numeric code distinct per kind"). Values are
// assigned once and must never be renumbered — they are a wire contract.
var kindCodes = map[Kind]uint16{
	KindUnknown:               0,
	KindPermissionDenied:      1,
	KindDeviceNotFound:        2,
	KindResourceExhausted:     3,
	KindInvalidArgument:       4,
	KindNotInitialized:        5,
	KindTimeout:               6,
	KindFenceTimeout:          7,
	KindPrivateAPIUnavailable: 8,
	KindNotSupported:          9,
	KindInternal:              10,
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Code returns the stable numeric code for this kind.
func (k Kind) Code() uint16 {
	return kindCodes[k]
}

// Error wraps a classified failure with the operation that produced it
// and, when available, the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a classified error with no wrapped cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap classifies an existing error under kind, attaching op.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err, returning KindUnknown if err is nil
// or is not (or does not wrap) a *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
