// Package target provides a fake debuggee for tests: a sparse memory
// image plus a type registry, implementing the same facade a live Delve
// session does. Tests lay out container internals at chosen addresses and
// assert on what the decoders reconstruct.
package target

import (
	"encoding/binary"
	"fmt"

	"github.com/rustlens/rustlens/internal/value"
)

// Target is an in-memory stand-in for a stopped debuggee process.
type Target struct {
	mem     map[uint64]byte
	types   map[string]*value.Type
	order   binary.ByteOrder
	ptrSize int
}

// New returns an empty little-endian target with 8-byte pointers.
func New() *Target {
	return &Target{
		mem:     make(map[uint64]byte),
		types:   make(map[string]*value.Type),
		order:   binary.LittleEndian,
		ptrSize: 8,
	}
}

// SetBytes writes raw bytes into the fake memory image.
func (t *Target) SetBytes(addr uint64, b []byte) {
	for i, c := range b {
		t.mem[addr+uint64(i)] = c
	}
}

// SetUint writes an integer of the given byte width.
func (t *Target) SetUint(addr uint64, size int, v uint64) {
	buf := make([]byte, 8)
	t.order.PutUint64(buf, v)
	t.SetBytes(addr, buf[:size])
}

// SetPointer writes a pointer-sized address.
func (t *Target) SetPointer(addr, target uint64) {
	t.SetUint(addr, t.ptrSize, target)
}

// ReadMemory implements value.Process. Unmapped addresses fail, like a
// read from a detached or stepped-past debuggee.
func (t *Target) ReadMemory(addr uint64, size int) ([]byte, error) {
	b := make([]byte, size)
	for i := range b {
		c, ok := t.mem[addr+uint64(i)]
		if !ok {
			return nil, fmt.Errorf("unmapped address %#x", addr+uint64(i))
		}
		b[i] = c
	}
	return b, nil
}

// PointerSize implements value.Process.
func (t *Target) PointerSize() int { return t.ptrSize }

// ByteOrder implements value.Process.
func (t *Target) ByteOrder() binary.ByteOrder { return t.order }

// FindType implements value.Process.
func (t *Target) FindType(name string) (*value.Type, error) {
	typ, ok := t.types[name]
	if !ok {
		return nil, fmt.Errorf("type %q not found", name)
	}
	return typ, nil
}

// AddType registers a type for FindType lookup.
func (t *Target) AddType(typ *value.Type) *value.Type {
	t.types[typ.Name] = typ
	return typ
}

// Value locates a value of the given type at addr.
func (t *Target) Value(name string, typ *value.Type, addr uint64) *value.Value {
	return value.New(t, name, typ, addr)
}

// Usize returns the debuggee's usize type.
func (t *Target) Usize() *value.Type {
	return &value.Type{Name: "usize", Kind: value.KindBase, Size: uint64(t.ptrSize)}
}

// U8 returns the u8 type.
func (t *Target) U8() *value.Type {
	return &value.Type{Name: "u8", Kind: value.KindBase, Size: 1}
}

// I32 returns the i32 type.
func (t *Target) I32() *value.Type {
	return &value.Type{Name: "i32", Kind: value.KindBase, Size: 4, Signed: true}
}

// PointerTo returns a pointer type to elem.
func (t *Target) PointerTo(elem *value.Type) *value.Type {
	return value.PointerTo(elem, t.ptrSize)
}

// Struct builds a struct type with the given packed fields; offsets are
// assigned sequentially without padding, which is what the fixtures lay
// out in memory.
func (t *Target) Struct(name string, fields ...value.Field) *value.Type {
	var off uint64
	packed := make([]value.Field, len(fields))
	for i, f := range fields {
		f.Offset = off
		packed[i] = f
		off += f.Type.Size
	}
	return &value.Type{Name: name, Kind: value.KindStruct, Size: off, Fields: packed}
}

// UnionType builds a union type with all members at offset zero.
func (t *Target) UnionType(name string, fields ...value.Field) *value.Type {
	var size uint64
	for i := range fields {
		fields[i].Offset = 0
		if fields[i].Type.Size > size {
			size = fields[i].Type.Size
		}
	}
	return &value.Type{Name: name, Kind: value.KindUnion, Size: size, Fields: fields}
}

// Array builds a fixed-size array type.
func (t *Target) Array(elem *value.Type, n int) *value.Type {
	return &value.Type{
		Name: fmt.Sprintf("[%s; %d]", elem.Name, n),
		Kind: value.KindArray,
		Size: elem.Size * uint64(n),
		Elem: elem,
	}
}
