package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustlens/rustlens/internal/testing/target"
	"github.com/rustlens/rustlens/internal/value"
)

// makeVecType lays out the Vec wrapper chain for a given element type:
// Vec { buf: RawVec { ptr: Unique { pointer: NonZero(__0: *T) }, cap }, len }.
func makeVecType(tgt *target.Target, name string, elem *value.Type) *value.Type {
	nonZero := tgt.Struct("core::nonzero::NonZero<*const "+elem.Name+">",
		value.Field{Name: "__0", Type: tgt.PointerTo(elem)})
	unique := tgt.Struct("core::ptr::Unique<"+elem.Name+">",
		value.Field{Name: "pointer", Type: nonZero})
	rawVec := tgt.Struct("alloc::raw_vec::RawVec<"+elem.Name+">",
		value.Field{Name: "ptr", Type: unique},
		value.Field{Name: "cap", Type: tgt.Usize()})
	return tgt.Struct(name,
		value.Field{Name: "buf", Type: rawVec},
		value.Field{Name: "len", Type: tgt.Usize()})
}

// writeVec writes the Vec header fields at addr: data pointer, capacity,
// length.
func writeVec(tgt *target.Target, addr, base, capacity, length uint64) {
	tgt.SetPointer(addr, base)
	tgt.SetUint(addr+8, 8, capacity)
	tgt.SetUint(addr+16, 8, length)
}

func TestVecProvider_Children(t *testing.T) {
	tgt := target.New()
	vecType := makeVecType(tgt, "alloc::vec::Vec<i32>", tgt.I32())

	const headerAddr, dataAddr = 0x1000, 0x2000
	writeVec(tgt, headerAddr, dataAddr, 8, 5)
	for i := uint64(0); i < 5; i++ {
		tgt.SetUint(dataAddr+i*4, 4, 10+i)
	}

	p := NewVecProvider(tgt.Value("v", vecType, headerAddr))
	require.NoError(t, p.Update())

	assert.Equal(t, 5, p.NumChildren())
	assert.True(t, p.HasChildren())

	last, err := p.ChildAt(4)
	require.NoError(t, err)
	assert.Equal(t, "[4]", last.Name())
	n, err := last.Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(14), n)

	_, err = p.ChildAt(5)
	assert.ErrorIs(t, err, value.ErrIndexOutOfRange)

	assert.Equal(t, 3, p.ChildIndex("[3]"))
	assert.Equal(t, -1, p.ChildIndex("len"))
}

func TestVecProvider_RefreshReflectsMutation(t *testing.T) {
	tgt := target.New()
	vecType := makeVecType(tgt, "alloc::vec::Vec<i32>", tgt.I32())

	const headerAddr, dataAddr = 0x1000, 0x2000
	writeVec(tgt, headerAddr, dataAddr, 8, 5)
	for i := uint64(0); i < 5; i++ {
		tgt.SetUint(dataAddr+i*4, 4, i)
	}

	p := NewVecProvider(tgt.Value("v", vecType, headerAddr))
	require.Equal(t, 5, p.NumChildren())

	// The debuggee truncates the vector, then the host refreshes.
	tgt.SetUint(headerAddr+16, 8, 3)
	require.NoError(t, p.Update())
	assert.Equal(t, 3, p.NumChildren())

	_, err := p.ChildAt(3)
	assert.ErrorIs(t, err, value.ErrIndexOutOfRange)
}

func TestVecProvider_LayoutMismatchFailsClosed(t *testing.T) {
	tgt := target.New()
	// Name matches Vec but the fields do not: a future layout change.
	bogus := tgt.Struct("alloc::vec::Vec<i32>",
		value.Field{Name: "inner", Type: tgt.Usize()})

	p := NewVecProvider(tgt.Value("v", bogus, 0x1000))
	assert.Equal(t, 0, p.NumChildren())

	_, err := p.ChildAt(0)
	require.Error(t, err)
	var layoutError *LayoutError
	assert.ErrorAs(t, err, &layoutError)
}

func TestVecProvider_ReadFailureSurvivesUntilRetry(t *testing.T) {
	tgt := target.New()
	vecType := makeVecType(tgt, "alloc::vec::Vec<u8>", tgt.U8())

	p := NewVecProvider(tgt.Value("v", vecType, 0x7000))
	assert.Equal(t, 0, p.NumChildren())

	// The memory becomes readable (e.g. the frame is live again).
	writeVec(tgt, 0x7000, 0x8000, 4, 2)
	tgt.SetBytes(0x8000, []byte{1, 2})
	require.NoError(t, p.Update())
	assert.Equal(t, 2, p.NumChildren())
}
