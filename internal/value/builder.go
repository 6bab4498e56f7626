package value

import "encoding/binary"

// Builder synthesizes plain integer values for display, using the
// debuggee's address size and byte order. Reference counts and borrow
// flags are presentation-only values that do not exist as raw values in
// the type system, so they are rebuilt from scratch here.
type Builder struct {
	proc  Process
	order binary.ByteOrder
	size  int
}

// NewBuilder returns a builder bound to the given process facade.
func NewBuilder(proc Process) *Builder {
	return &Builder{
		proc:  proc,
		order: proc.ByteOrder(),
		size:  proc.PointerSize(),
	}
}

// Uint synthesizes an unsigned pointer-sized integer value.
func (b *Builder) Uint(name string, v uint64) *Value {
	return NewFromBytes(b.proc, name, b.uintType(), b.encode(v))
}

// Int synthesizes a signed pointer-sized integer value.
func (b *Builder) Int(name string, v int64) *Value {
	typ := &Type{Name: "long", Kind: KindBase, Size: uint64(b.size), Signed: true}
	return NewFromBytes(b.proc, name, typ, b.encode(uint64(v)))
}

func (b *Builder) uintType() *Type {
	return &Type{Name: "unsigned long", Kind: KindBase, Size: uint64(b.size)}
}

func (b *Builder) encode(v uint64) []byte {
	buf := make([]byte, 8)
	b.order.PutUint64(buf, v)
	if b.order == binary.BigEndian {
		return buf[8-b.size:]
	}
	return buf[:b.size]
}
