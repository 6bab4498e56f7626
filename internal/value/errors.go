package value

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldNotFound is returned when a child is requested by a name the
	// type does not declare.
	ErrFieldNotFound = errors.New("field not found")

	// ErrIndexOutOfRange is returned when a child index is outside the
	// valid range for the value.
	ErrIndexOutOfRange = errors.New("child index out of range")

	// ErrNoAddress is returned when an address-based operation is applied
	// to a synthetic value that is backed by bytes rather than memory.
	ErrNoAddress = errors.New("value has no address")

	// ErrNotPointer is returned when a dereference is applied to a
	// non-pointer value.
	ErrNotPointer = errors.New("value is not a pointer")
)

// ReadError reports a failed memory read delegated to the host. It is
// propagated verbatim so the failure is visible in place of a value, never
// substituted with zeroes.
type ReadError struct {
	Addr uint64
	Len  int
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %d bytes at %#x: %v", e.Len, e.Addr, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
