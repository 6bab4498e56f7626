package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustlens/rustlens/internal/testing/target"
	"github.com/rustlens/rustlens/internal/value"
)

func TestValue_FieldDerivation(t *testing.T) {
	tgt := target.New()
	point := tgt.Struct("Point",
		value.Field{Name: "x", Type: tgt.I32()},
		value.Field{Name: "y", Type: tgt.I32()},
	)
	tgt.SetUint(0x1000, 4, 7)
	tgt.SetUint(0x1004, 4, 9)

	v := tgt.Value("p", point, 0x1000)

	x, err := v.Field("x")
	require.NoError(t, err)
	n, err := x.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	y, err := v.FieldAt(1)
	require.NoError(t, err)
	addr, ok := y.Addr()
	require.True(t, ok)
	assert.Equal(t, uint64(0x1004), addr)

	_, err = v.Field("z")
	assert.ErrorIs(t, err, value.ErrFieldNotFound)

	_, err = v.FieldAt(2)
	assert.ErrorIs(t, err, value.ErrIndexOutOfRange)
}

func TestValue_PointerDeref(t *testing.T) {
	tgt := target.New()
	ptrType := tgt.PointerTo(tgt.I32())
	tgt.SetPointer(0x1000, 0x2000)
	tgt.SetUint(0x2000, 4, 41)

	p := tgt.Value("p", ptrType, 0x1000)
	pointee, err := p.Deref()
	require.NoError(t, err)
	n, err := pointee.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(41), n)

	// Member access through a pointer dereferences first.
	inner := tgt.Struct("Inner", value.Field{Name: "n", Type: tgt.I32()})
	sp := tgt.Value("sp", tgt.PointerTo(inner), 0x1000)
	n2, err := sp.Field("n")
	require.NoError(t, err)
	got, err := n2.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(41), got)
}

func TestValue_SignExtension(t *testing.T) {
	tgt := target.New()
	tgt.SetBytes(0x1000, []byte{0xff, 0xff, 0xff, 0xff})

	v := tgt.Value("n", tgt.I32(), 0x1000)
	n, err := v.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)

	u, err := v.Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xffffffff), u)
}

func TestValue_ReadFailure(t *testing.T) {
	tgt := target.New()
	v := tgt.Value("n", tgt.I32(), 0xdead)

	_, err := v.Uint()
	require.Error(t, err)
	var readErr *value.ReadError
	assert.ErrorAs(t, err, &readErr)
	assert.Equal(t, uint64(0xdead), readErr.Addr)
}

func TestValue_SyntheticBytes(t *testing.T) {
	tgt := target.New()
	pair := tgt.Struct("Pair",
		value.Field{Name: "a", Type: tgt.I32()},
		value.Field{Name: "b", Type: tgt.I32()},
	)
	v := value.NewFromBytes(tgt, "pair", pair, []byte{1, 0, 0, 0, 2, 0, 0, 0})

	_, ok := v.Addr()
	assert.False(t, ok)

	b, err := v.Field("b")
	require.NoError(t, err)
	n, err := b.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBuilder_SynthesizesCounters(t *testing.T) {
	tgt := target.New()
	builder := value.NewBuilder(tgt)

	strong := builder.Uint("strong", 3)
	assert.Equal(t, "strong", strong.Name())
	n, err := strong.Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	borrow := builder.Int("borrow", -2)
	got, err := borrow.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(-2), got)
}

func TestValue_ArrayIndexing(t *testing.T) {
	tgt := target.New()
	arr := tgt.Array(tgt.I32(), 3)
	for i := 0; i < 3; i++ {
		tgt.SetUint(0x1000+uint64(i)*4, 4, uint64(10*i))
	}

	v := tgt.Value("arr", arr, 0x1000)
	elem, err := v.FieldAt(2)
	require.NoError(t, err)
	assert.Equal(t, "[2]", elem.Name())
	n, err := elem.Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(20), n)

	_, err = v.FieldAt(3)
	assert.ErrorIs(t, err, value.ErrIndexOutOfRange)
}
