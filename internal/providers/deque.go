package providers

import (
	"fmt"

	"github.com/rustlens/rustlens/internal/value"
)

// VecDequeProvider reconstructs the elements of
// alloc::collections::vec_deque::VecDeque<T>:
//
//	struct VecDeque<T> { tail: usize, head: usize, buf: RawVec<T> }
//
// The buffer is circular: logical index i lives in physical slot
// (tail + i) mod cap, and the logical size wraps around the capacity.
type VecDequeProvider struct {
	v      *value.Value
	layout *vecLayout
	head   uint64
	tail   uint64
	cap    uint64
	size   uint64
	err    error
}

// NewVecDequeProvider decodes v as a VecDeque and returns its provider.
func NewVecDequeProvider(v *value.Value) *VecDequeProvider {
	p := &VecDequeProvider{v: v}
	p.err = p.Update()
	return p
}

// Update re-reads head, tail, and the backing buffer state.
func (p *VecDequeProvider) Update() error {
	p.layout = nil
	if err := p.update(); err != nil {
		p.err = err
		return err
	}
	p.err = nil
	return nil
}

func (p *VecDequeProvider) update() error {
	head, err := fieldUint(p.v, "head")
	if err != nil {
		return layoutErr(p.v.Type(), "head field", err)
	}
	tail, err := fieldUint(p.v, "tail")
	if err != nil {
		return layoutErr(p.v.Type(), "tail field", err)
	}
	buf, err := p.v.Field("buf")
	if err != nil {
		return layoutErr(p.v.Type(), "buf field", err)
	}
	capacity, err := fieldUint(buf, "cap")
	if err != nil {
		return layoutErr(p.v.Type(), "buf.cap field", err)
	}
	if capacity == 0 {
		return layoutErr(p.v.Type(), "zero capacity", nil)
	}
	ptr, err := buf.Field("ptr")
	if err != nil {
		return layoutErr(p.v.Type(), "buf.ptr field", err)
	}
	dataPtr, err := unwrapChain(ptr, 0, 0)
	if err != nil {
		return layoutErr(p.v.Type(), "ptr.pointer unwrap", err)
	}

	size := head - tail
	if head < tail {
		size = capacity + head - tail
	}
	layout, err := layoutFromPtr(p.v, dataPtr, size)
	if err != nil {
		return err
	}
	p.layout = layout
	p.head = head
	p.tail = tail
	p.cap = capacity
	p.size = size
	return nil
}

func (p *VecDequeProvider) NumChildren() int {
	if p.layout == nil {
		return 0
	}
	return int(p.size)
}

// ChildIndex applies the wraparound-aware range test: an index resolves
// only when tail <= i and (tail+i) mod cap < head. Anything looser would
// alias unrelated slots of the circular buffer.
func (p *VecDequeProvider) ChildIndex(name string) int {
	i := bracketIndex(name)
	if i < 0 || p.layout == nil {
		return -1
	}
	index := uint64(i)
	if p.tail <= index && (p.tail+index)%p.cap < p.head {
		return i
	}
	return -1
}

func (p *VecDequeProvider) ChildAt(index int) (*value.Value, error) {
	if p.layout == nil {
		return nil, p.err
	}
	if index < 0 || uint64(index) >= p.size {
		return nil, fmt.Errorf("%w: %d of %d", value.ErrIndexOutOfRange, index, p.size)
	}
	slot := (uint64(index) + p.tail) % p.cap
	addr := p.layout.base + slot*p.layout.elemSize
	return p.v.ValueAt(fmt.Sprintf("[%d]", index), addr, p.layout.elemType), nil
}

func (p *VecDequeProvider) HasChildren() bool { return true }
