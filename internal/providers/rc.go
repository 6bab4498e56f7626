package providers

import (
	"fmt"

	"github.com/rustlens/rustlens/internal/value"
)

// rcState is the decoded layout shared by Rc and Arc:
//
//	struct Rc<T> { ptr: NonNull<RcBox<T>>, ... }
//	struct RcBox<T> { strong: Cell<usize>, weak: Cell<usize>, value: T }
//
//	struct Arc<T> { ptr: NonNull<ArcInner<T>>, ... }
//	struct ArcInner<T> { strong: AtomicUsize, weak: AtomicUsize, data: T }
//
// Both pointers reach the refcount block through NonNull -> NonZero, and
// both counters sit under a single-field cell wrapper; only the payload
// field name differs between the variants.
type rcState struct {
	payload *value.Value
	strong  *value.Value
	weak    *value.Value
}

func decodeRc(v *value.Value, isAtomic bool) (*rcState, error) {
	ptr, err := v.Field("ptr")
	if err != nil {
		return nil, layoutErr(v.Type(), "ptr field", err)
	}
	pointer, err := ptr.Field("pointer")
	if err != nil {
		return nil, layoutErr(v.Type(), "ptr.pointer field", err)
	}
	block, err := pointer.FieldAt(0)
	if err != nil {
		return nil, layoutErr(v.Type(), "pointer unwrap", err)
	}

	payloadName := "value"
	if isAtomic {
		payloadName = "data"
	}
	payload, err := block.Field(payloadName)
	if err != nil {
		return nil, layoutErr(v.Type(), payloadName+" field", err)
	}
	strong, err := unwrapCounter(block, "strong")
	if err != nil {
		return nil, layoutErr(v.Type(), "strong counter", err)
	}
	weak, err := unwrapCounter(block, "weak")
	if err != nil {
		return nil, layoutErr(v.Type(), "weak counter", err)
	}
	return &rcState{payload: payload, strong: strong, weak: weak}, nil
}

// unwrapCounter peels Cell<usize> or AtomicUsize down to the raw count:
// one positional hop into the cell, then the inner "value" member.
func unwrapCounter(block *value.Value, name string) (*value.Value, error) {
	cell, err := block.Field(name)
	if err != nil {
		return nil, err
	}
	inner, err := cell.FieldAt(0)
	if err != nil {
		return nil, err
	}
	return inner.Field("value")
}

// RcProvider exposes the contents of Rc<T> and Arc<T>.
//
// Only `value` counts as a visible child; `strong` and `weak` remain
// reachable by name lookup and are synthesized as plain integers at
// display time. This mirrors the summary already showing both counts.
type RcProvider struct {
	v       *value.Value
	builder *value.Builder
	state   *rcState
	strong  uint64
	weak    uint64
	err     error
}

// NewRcProvider decodes v as an Rc (or Arc when isAtomic) and returns its
// provider.
func NewRcProvider(v *value.Value, isAtomic bool) *RcProvider {
	p := &RcProvider{v: v, builder: value.NewBuilder(v.Process())}
	state, err := decodeRc(v, isAtomic)
	if err != nil {
		p.err = err
		return p
	}
	p.state = state
	p.err = p.Update()
	return p
}

// Update re-reads both reference counts.
func (p *RcProvider) Update() error {
	if p.state == nil {
		return p.err
	}
	strong, err := p.state.strong.Uint()
	if err != nil {
		p.err = err
		return err
	}
	weak, err := p.state.weak.Uint()
	if err != nil {
		p.err = err
		return err
	}
	p.strong = strong
	p.weak = weak
	p.err = nil
	return nil
}

func (p *RcProvider) NumChildren() int {
	if p.state == nil {
		return 0
	}
	return 1
}

func (p *RcProvider) ChildIndex(name string) int {
	switch name {
	case "value":
		return 0
	case "strong":
		return 1
	case "weak":
		return 2
	}
	return -1
}

func (p *RcProvider) ChildAt(index int) (*value.Value, error) {
	if p.state == nil {
		return nil, p.err
	}
	switch index {
	case 0:
		return p.state.payload, nil
	case 1:
		return p.builder.Uint("strong", p.strong), nil
	case 2:
		return p.builder.Uint("weak", p.weak), nil
	}
	return nil, fmt.Errorf("%w: %d", value.ErrIndexOutOfRange, index)
}

func (p *RcProvider) HasChildren() bool { return true }

// CellProvider exposes the wrapped value of core::cell::Cell<T>.
type CellProvider struct {
	v     *value.Value
	inner *value.Value
	err   error
}

// NewCellProvider unwraps Cell<T> down to the stored value.
func NewCellProvider(v *value.Value) *CellProvider {
	p := &CellProvider{v: v}
	cell, err := v.Field("value")
	if err != nil {
		p.err = layoutErr(v.Type(), "value field", err)
		return p
	}
	inner, err := cell.FieldAt(0)
	if err != nil {
		p.err = layoutErr(v.Type(), "unsafe-cell unwrap", err)
		return p
	}
	p.inner = inner
	return p
}

func (p *CellProvider) NumChildren() int {
	if p.inner == nil {
		return 0
	}
	return 1
}

func (p *CellProvider) ChildIndex(name string) int {
	if name == "value" {
		return 0
	}
	return -1
}

func (p *CellProvider) ChildAt(index int) (*value.Value, error) {
	if p.inner == nil {
		return nil, p.err
	}
	if index != 0 {
		return nil, fmt.Errorf("%w: %d", value.ErrIndexOutOfRange, index)
	}
	return p.inner.WithName("value"), nil
}

func (p *CellProvider) Update() error { return p.err }

func (p *CellProvider) HasChildren() bool { return true }

// refBorrow unwraps the borrow flag of Ref, RefMut, or RefCell. RefCell
// holds the flag one wrapper level closer than the guard types.
func refBorrow(v *value.Value, isCell bool) (*value.Value, error) {
	borrow, err := v.Field("borrow")
	if err != nil {
		return nil, err
	}
	borrow, err = unwrapChain(borrow, 0, 0)
	if err != nil {
		return nil, err
	}
	if !isCell {
		return borrow.FieldAt(0)
	}
	return borrow, nil
}

// RefProvider exposes the guarded value of std::cell::Ref, RefMut, and
// RefCell. As with Rc, only `value` is a visible child; the borrow flag
// stays reachable by name.
type RefProvider struct {
	v       *value.Value
	builder *value.Builder
	inner   *value.Value
	borrow  *value.Value
	count   int64
	err     error
}

// NewRefProvider decodes v as a borrow-tracked cell; isCell selects the
// RefCell layout.
func NewRefProvider(v *value.Value, isCell bool) *RefProvider {
	p := &RefProvider{v: v, builder: value.NewBuilder(v.Process())}
	borrow, err := refBorrow(v, isCell)
	if err != nil {
		p.err = layoutErr(v.Type(), "borrow flag", err)
		return p
	}
	inner, err := v.Field("value")
	if err != nil {
		p.err = layoutErr(v.Type(), "value field", err)
		return p
	}
	inner, err = inner.FieldAt(0)
	if err != nil {
		p.err = layoutErr(v.Type(), "value unwrap", err)
		return p
	}
	p.borrow = borrow
	p.inner = inner
	p.err = p.Update()
	return p
}

// Update re-reads the borrow flag.
func (p *RefProvider) Update() error {
	if p.borrow == nil {
		return p.err
	}
	count, err := p.borrow.Int()
	if err != nil {
		p.err = err
		return err
	}
	p.count = count
	p.err = nil
	return nil
}

func (p *RefProvider) NumChildren() int {
	if p.inner == nil {
		return 0
	}
	return 1
}

func (p *RefProvider) ChildIndex(name string) int {
	switch name {
	case "value":
		return 0
	case "borrow":
		return 1
	}
	return -1
}

func (p *RefProvider) ChildAt(index int) (*value.Value, error) {
	if p.inner == nil {
		return nil, p.err
	}
	switch index {
	case 0:
		return p.inner.WithName("value"), nil
	case 1:
		return p.builder.Int("borrow", p.count), nil
	}
	return nil, fmt.Errorf("%w: %d", value.ErrIndexOutOfRange, index)
}

func (p *RefProvider) HasChildren() bool { return true }
