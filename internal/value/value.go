package value

import (
	"encoding/binary"
	"fmt"
)

// Process is the memory and type access capability this system consumes
// from the host debugger. Implementations wrap a live debuggee (Delve) or
// a test fixture. All calls are synchronous; a read either returns bytes
// or fails.
type Process interface {
	// ReadMemory reads size bytes at addr from the debuggee.
	ReadMemory(addr uint64, size int) ([]byte, error)

	// PointerSize returns the debuggee's address width in bytes.
	PointerSize() int

	// ByteOrder returns the debuggee's byte order.
	ByteOrder() binary.ByteOrder

	// FindType resolves a type by its fully qualified name. Needed for
	// node-type punning where a richer layout shares a prefix with the
	// declared one.
	FindType(name string) (*Type, error)
}

// Value is a handle to a located value in the debuggee: a display name, a
// type, and either a memory address or (for synthetic presentation values)
// cached bytes. Values are cheap to copy and derive; this package never
// writes to debuggee memory.
type Value struct {
	name string
	typ  *Type
	addr uint64
	data []byte // non-nil for synthetic values
	proc Process
}

// New returns a value located at addr in the debuggee.
func New(proc Process, name string, typ *Type, addr uint64) *Value {
	return &Value{name: name, typ: typ, addr: addr, proc: proc}
}

// NewFromBytes returns a synthetic value backed by the given bytes instead
// of debuggee memory.
func NewFromBytes(proc Process, name string, typ *Type, data []byte) *Value {
	return &Value{name: name, typ: typ, data: data, proc: proc}
}

// Name returns the display name of the value.
func (v *Value) Name() string { return v.name }

// Type returns the value's type descriptor.
func (v *Value) Type() *Type { return v.typ }

// Addr returns the value's address. Synthetic values have none.
func (v *Value) Addr() (uint64, bool) {
	if v.data != nil {
		return 0, false
	}
	return v.addr, true
}

// Process returns the facade this value reads through.
func (v *Value) Process() Process { return v.proc }

// WithName returns a copy of the value under a different display name.
func (v *Value) WithName(name string) *Value {
	c := *v
	c.name = name
	return &c
}

// Cast reinterprets the value's location as the given type.
func (v *Value) Cast(typ *Type) *Value {
	c := *v
	c.typ = typ
	return &c
}

// ValueAt derives a new value of the given type at an arbitrary address,
// through the same process facade.
func (v *Value) ValueAt(name string, addr uint64, typ *Type) *Value {
	return New(v.proc, name, typ, addr)
}

// Bytes returns the value's raw bytes, reading them from the debuggee if
// the value is memory-backed.
func (v *Value) Bytes() ([]byte, error) {
	if v.data != nil {
		return v.data, nil
	}
	b, err := v.proc.ReadMemory(v.addr, int(v.typ.Size))
	if err != nil {
		return nil, &ReadError{Addr: v.addr, Len: int(v.typ.Size), Err: err}
	}
	return b, nil
}

// Field returns the child value at the named field. Pointer values are
// dereferenced first, mirroring how debugger hosts resolve members through
// a pointer.
func (v *Value) Field(name string) (*Value, error) {
	if v.typ.Kind == KindPointer {
		deref, err := v.Deref()
		if err != nil {
			return nil, err
		}
		return deref.Field(name)
	}
	f, ok := v.typ.FieldByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrFieldNotFound, name, v.typ.Name)
	}
	return v.fieldValue(f)
}

// FieldAt returns the child value at the given index: the i-th declared
// field for structs and unions, the i-th element for arrays, and the
// pointee (index 0 only) for pointers.
func (v *Value) FieldAt(index int) (*Value, error) {
	switch v.typ.Kind {
	case KindStruct, KindUnion:
		if index < 0 || index >= len(v.typ.Fields) {
			return nil, fmt.Errorf("%w: %d in %s", ErrIndexOutOfRange, index, v.typ.Name)
		}
		return v.fieldValue(v.typ.Fields[index])
	case KindArray:
		if v.typ.Elem == nil || v.typ.Elem.Size == 0 {
			return nil, fmt.Errorf("array %s has no element layout", v.typ.Name)
		}
		n := int(v.typ.Size / v.typ.Elem.Size)
		if index < 0 || index >= n {
			return nil, fmt.Errorf("%w: %d in %s", ErrIndexOutOfRange, index, v.typ.Name)
		}
		return v.childAtOffset(fmt.Sprintf("[%d]", index), uint64(index)*v.typ.Elem.Size, v.typ.Elem)
	case KindPointer:
		if index != 0 {
			return nil, fmt.Errorf("%w: %d in %s", ErrIndexOutOfRange, index, v.typ.Name)
		}
		return v.Deref()
	default:
		return nil, fmt.Errorf("%w: %d in %s", ErrIndexOutOfRange, index, v.typ.Name)
	}
}

func (v *Value) fieldValue(f Field) (*Value, error) {
	return v.childAtOffset(f.Name, f.Offset, f.Type)
}

func (v *Value) childAtOffset(name string, off uint64, typ *Type) (*Value, error) {
	if v.data != nil {
		if off+typ.Size > uint64(len(v.data)) {
			return nil, fmt.Errorf("field %q extends past cached bytes of %s", name, v.typ.Name)
		}
		return NewFromBytes(v.proc, name, typ, v.data[off:off+typ.Size]), nil
	}
	return New(v.proc, name, typ, v.addr+off), nil
}

// Deref reads the pointer and returns the pointed-to value.
func (v *Value) Deref() (*Value, error) {
	if v.typ.Kind != KindPointer {
		return nil, fmt.Errorf("%w: %s", ErrNotPointer, v.typ.Name)
	}
	target, err := v.Uint()
	if err != nil {
		return nil, err
	}
	name := v.name
	if name != "" {
		name = "*" + name
	}
	return New(v.proc, name, v.typ.Elem, target), nil
}

// Uint decodes the value as an unsigned integer of its declared size.
func (v *Value) Uint() (uint64, error) {
	b, err := v.Bytes()
	if err != nil {
		return 0, err
	}
	return decodeUint(b, v.proc.ByteOrder())
}

// Int decodes the value as a signed integer of its declared size.
func (v *Value) Int() (int64, error) {
	b, err := v.Bytes()
	if err != nil {
		return 0, err
	}
	u, err := decodeUint(b, v.proc.ByteOrder())
	if err != nil {
		return 0, err
	}
	// Sign-extend from the declared width.
	shift := 64 - uint(len(b))*8
	if shift >= 64 {
		return int64(u), nil
	}
	return int64(u<<shift) >> shift, nil
}

func decodeUint(b []byte, order binary.ByteOrder) (uint64, error) {
	switch len(b) {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(order.Uint16(b)), nil
	case 4:
		return uint64(order.Uint32(b)), nil
	case 8:
		return order.Uint64(b), nil
	default:
		return 0, fmt.Errorf("cannot decode %d-byte integer", len(b))
	}
}
