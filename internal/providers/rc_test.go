package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustlens/rustlens/internal/testing/target"
	"github.com/rustlens/rustlens/internal/value"
)

// makeCellType lays out Cell<T> { value: UnsafeCell<T> { value: T } }.
func makeCellType(tgt *target.Target, name string, inner *value.Type) *value.Type {
	unsafeCell := tgt.Struct("core::cell::UnsafeCell<"+inner.Name+">",
		value.Field{Name: "value", Type: inner})
	return tgt.Struct(name, value.Field{Name: "value", Type: unsafeCell})
}

// makeRcType lays out Rc/Arc and its refcount block. The payload field is
// "value" for Rc and "data" for Arc; the counter wrappers differ in name
// only, both being a single-field cell around usize.
func makeRcType(tgt *target.Target, name, payloadField string, payload *value.Type) (*value.Type, *value.Type) {
	counter := makeCellType(tgt, "core::cell::Cell<usize>", tgt.Usize())
	block := tgt.Struct("alloc::rc::RcBox<"+payload.Name+">",
		value.Field{Name: "strong", Type: counter},
		value.Field{Name: "weak", Type: counter},
		value.Field{Name: payloadField, Type: payload})
	nonZero := tgt.Struct("core::nonzero::NonZero<*const RcBox>",
		value.Field{Name: "__0", Type: tgt.PointerTo(block)})
	nonNull := tgt.Struct("core::ptr::NonNull<RcBox>",
		value.Field{Name: "pointer", Type: nonZero})
	rc := tgt.Struct(name, value.Field{Name: "ptr", Type: nonNull})
	return rc, block
}

// writeRcBlock writes strong, weak, and a 4-byte payload at blockAddr and
// points the handle at it.
func writeRcBlock(tgt *target.Target, handleAddr, blockAddr, strong, weak uint64, payload uint64) {
	tgt.SetPointer(handleAddr, blockAddr)
	tgt.SetUint(blockAddr, 8, strong)
	tgt.SetUint(blockAddr+8, 8, weak)
	tgt.SetUint(blockAddr+16, 4, payload)
}

func TestRcProvider_Children(t *testing.T) {
	tgt := target.New()
	rcType, _ := makeRcType(tgt, "alloc::rc::Rc<i32>", "value", tgt.I32())
	writeRcBlock(tgt, 0x100, 0x2000, 3, 1, 42)

	p := NewRcProvider(tgt.Value("rc", rcType, 0x100), false)
	require.NoError(t, p.Update())

	// Only `value` is a visible child; the counters stay reachable by
	// name and are synthesized integers.
	assert.Equal(t, 1, p.NumChildren())
	assert.Equal(t, 0, p.ChildIndex("value"))
	assert.Equal(t, 1, p.ChildIndex("strong"))
	assert.Equal(t, 2, p.ChildIndex("weak"))
	assert.Equal(t, -1, p.ChildIndex("count"))

	payload, err := p.ChildAt(0)
	require.NoError(t, err)
	n, err := payload.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	strong, err := p.ChildAt(1)
	require.NoError(t, err)
	count, err := strong.Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
	_, hasAddr := strong.Addr()
	assert.False(t, hasAddr, "counters are synthesized, not raw memory")

	_, err = p.ChildAt(3)
	assert.ErrorIs(t, err, value.ErrIndexOutOfRange)
}

func TestRcProvider_ArcLayout(t *testing.T) {
	tgt := target.New()
	arcType, _ := makeRcType(tgt, "alloc::sync::Arc<i32>", "data", tgt.I32())
	writeRcBlock(tgt, 0x100, 0x2000, 7, 2, 9)

	p := NewRcProvider(tgt.Value("arc", arcType, 0x100), true)
	payload, err := p.ChildAt(0)
	require.NoError(t, err)
	n, err := payload.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
}

func TestRcProvider_RefreshRereadsCounts(t *testing.T) {
	tgt := target.New()
	rcType, _ := makeRcType(tgt, "alloc::rc::Rc<i32>", "value", tgt.I32())
	writeRcBlock(tgt, 0x100, 0x2000, 1, 0, 5)

	p := NewRcProvider(tgt.Value("rc", rcType, 0x100), false)

	tgt.SetUint(0x2000, 8, 4)
	require.NoError(t, p.Update())
	strong, err := p.ChildAt(1)
	require.NoError(t, err)
	count, err := strong.Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
}

func TestCellProvider(t *testing.T) {
	tgt := target.New()
	cellType := makeCellType(tgt, "core::cell::Cell<i32>", tgt.I32())
	tgt.SetUint(0x300, 4, 17)

	p := NewCellProvider(tgt.Value("c", cellType, 0x300))
	assert.Equal(t, 1, p.NumChildren())
	assert.Equal(t, 0, p.ChildIndex("value"))

	inner, err := p.ChildAt(0)
	require.NoError(t, err)
	n, err := inner.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)
}

// makeRefCellType lays out RefCell<T> { borrow: Cell<isize>, value:
// UnsafeCell<T> }.
func makeRefCellType(tgt *target.Target, inner *value.Type) *value.Type {
	isize := &value.Type{Name: "isize", Kind: value.KindBase, Size: 8, Signed: true}
	borrow := makeCellType(tgt, "core::cell::Cell<isize>", isize)
	unsafeCell := tgt.Struct("core::cell::UnsafeCell<"+inner.Name+">",
		value.Field{Name: "value", Type: inner})
	return tgt.Struct("core::cell::RefCell<"+inner.Name+">",
		value.Field{Name: "borrow", Type: borrow},
		value.Field{Name: "value", Type: unsafeCell})
}

func TestRefProvider_RefCell(t *testing.T) {
	tgt := target.New()
	refCellType := makeRefCellType(tgt, tgt.I32())
	tgt.SetUint(0x400, 8, 2) // two shared borrows
	tgt.SetUint(0x408, 4, 23)

	p := NewRefProvider(tgt.Value("rc", refCellType, 0x400), true)
	require.NoError(t, p.Update())

	assert.Equal(t, 1, p.NumChildren())
	inner, err := p.ChildAt(0)
	require.NoError(t, err)
	n, err := inner.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(23), n)

	borrow, err := p.ChildAt(1)
	require.NoError(t, err)
	flag, err := borrow.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(2), flag)
}
