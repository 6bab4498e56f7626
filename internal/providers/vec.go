package providers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rustlens/rustlens/internal/value"
)

// bracketIndex parses an array-style child name ("[3]") into its numeric
// index, returning -1 for anything else.
func bracketIndex(name string) int {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
	i, err := strconv.Atoi(trimmed)
	if err != nil || i < 0 {
		return -1
	}
	return i
}

// vecLayout is the decoded state of a Vec-shaped buffer:
//
//	struct Vec<T> { buf: RawVec<T>, len: usize }
//	struct RawVec<T> { ptr: Unique<T>, cap: usize, ... }
//	struct Unique<T: ?Sized> { pointer: NonZero<*const T>, ... }
//	struct NonZero<T>(T)
//
// The raw data pointer sits two wrapper levels below the allocation
// handle; the unwrap sequence is a fixed layout fact, not recursion.
type vecLayout struct {
	length   uint64
	base     uint64
	elemType *value.Type
	elemSize uint64
}

func decodeVec(v *value.Value) (*vecLayout, error) {
	length, err := fieldUint(v, "len")
	if err != nil {
		return nil, layoutErr(v.Type(), "len field", err)
	}
	buf, err := v.Field("buf")
	if err != nil {
		return nil, layoutErr(v.Type(), "buf field", err)
	}
	dataPtr, err := unwrapChain(buf, 0, 0, 0)
	if err != nil {
		return nil, layoutErr(v.Type(), "buf.ptr.pointer unwrap", err)
	}
	return layoutFromPtr(v, dataPtr, length)
}

func layoutFromPtr(v, dataPtr *value.Value, length uint64) (*vecLayout, error) {
	elemType := dataPtr.Type().Pointee()
	if elemType == nil {
		return nil, layoutErr(v.Type(), "data pointer is not a pointer type", nil)
	}
	base, err := dataPtr.Uint()
	if err != nil {
		return nil, layoutErr(v.Type(), "data pointer read", err)
	}
	return &vecLayout{
		length:   length,
		base:     base,
		elemType: elemType,
		elemSize: elemType.Size,
	}, nil
}

// elementAt derives the value of element i at base + i*size.
func (l *vecLayout) elementAt(v *value.Value, index int) *value.Value {
	addr := l.base + uint64(index)*l.elemSize
	return v.ValueAt(fmt.Sprintf("[%d]", index), addr, l.elemType)
}

func fieldUint(v *value.Value, name string) (uint64, error) {
	f, err := v.Field(name)
	if err != nil {
		return 0, err
	}
	return f.Uint()
}

// unwrapChain follows a fixed sequence of positional children.
func unwrapChain(v *value.Value, indexes ...int) (*value.Value, error) {
	cur := v
	for _, i := range indexes {
		next, err := cur.FieldAt(i)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// VecProvider reconstructs the elements of alloc::vec::Vec<T>.
type VecProvider struct {
	v      *value.Value
	layout *vecLayout
	err    error
}

// NewVecProvider decodes v as a Vec and returns its provider. A layout
// mismatch is not fatal: the provider reports no children until a later
// Update succeeds.
func NewVecProvider(v *value.Value) *VecProvider {
	p := &VecProvider{v: v}
	p.err = p.Update()
	return p
}

// Update re-reads the length field and the buffer pointer chain.
func (p *VecProvider) Update() error {
	layout, err := decodeVec(p.v)
	if err != nil {
		p.layout = nil
		p.err = err
		return err
	}
	p.layout = layout
	p.err = nil
	return nil
}

func (p *VecProvider) NumChildren() int {
	if p.layout == nil {
		return 0
	}
	return int(p.layout.length)
}

func (p *VecProvider) ChildIndex(name string) int {
	return bracketIndex(name)
}

func (p *VecProvider) ChildAt(index int) (*value.Value, error) {
	if p.layout == nil {
		return nil, p.err
	}
	if index < 0 || uint64(index) >= p.layout.length {
		return nil, fmt.Errorf("%w: %d of %d", value.ErrIndexOutOfRange, index, p.layout.length)
	}
	return p.layout.elementAt(p.v, index), nil
}

func (p *VecProvider) HasChildren() bool { return true }
