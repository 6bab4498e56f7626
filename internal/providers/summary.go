package providers

import (
	"fmt"

	"github.com/rustlens/rustlens/internal/value"
)

// Summary formatters produce the one-line description shown next to a
// value. An empty string means "no special summary"; the host falls back
// to its default rendering.

func sizeSummary(n int) string {
	return fmt.Sprintf("size=%d", n)
}

// stringSummary renders alloc::string::String by decoding the wrapped
// Vec<u8> buffer as UTF-8.
func stringSummary(v *value.Value) (string, error) {
	vec, err := v.Field("vec")
	if err != nil {
		return "", layoutErr(v.Type(), "vec field", err)
	}
	layout, err := decodeVec(vec)
	if err != nil {
		return "", err
	}
	if layout.length == 0 {
		return `""`, nil
	}
	data, err := v.Process().ReadMemory(layout.base, int(layout.length))
	if err != nil {
		return "", &value.ReadError{Addr: layout.base, Len: int(layout.length), Err: err}
	}
	return fmt.Sprintf("%q", string(data)), nil
}

// strSummary renders a &str slice from its raw length and data pointer.
// A failed read is reported in place of the contents, never hidden.
func strSummary(v *value.Value) (string, error) {
	length, err := fieldUint(v, "length")
	if err != nil {
		return "", layoutErr(v.Type(), "length field", err)
	}
	dataPtr, err := v.Field("data_ptr")
	if err != nil {
		return "", layoutErr(v.Type(), "data_ptr field", err)
	}
	start, err := dataPtr.Uint()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return `""`, nil
	}
	data, err := v.Process().ReadMemory(start, int(length))
	if err != nil {
		return fmt.Sprintf("<error: %v>", err), nil
	}
	return fmt.Sprintf("%q", string(data)), nil
}

// rcSummary renders both reference counts of an Rc or Arc.
func rcSummary(v *value.Value, isAtomic bool) (string, error) {
	state, err := decodeRc(v, isAtomic)
	if err != nil {
		return "", err
	}
	strong, err := state.strong.Uint()
	if err != nil {
		return "", err
	}
	weak, err := state.weak.Uint()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("strong=%d, weak=%d", strong, weak), nil
}

// refSummary renders the borrow state of Ref, RefMut, or RefCell. The flag
// is positive for shared borrows and negative for a mutable borrow.
func refSummary(v *value.Value, isCell bool) (string, error) {
	borrow, err := refBorrow(v, isCell)
	if err != nil {
		return "", layoutErr(v.Type(), "borrow flag", err)
	}
	count, err := borrow.Int()
	if err != nil {
		return "", err
	}
	if count >= 0 {
		return fmt.Sprintf("borrow=%d", count), nil
	}
	return fmt.Sprintf("borrow_mut=%d", -count), nil
}
