package debug

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustlens/rustlens/internal/value"
)

// memFake serves reads from a flat byte map.
type memFake map[uint64]byte

func (m memFake) ReadMemory(addr uint64, size int) ([]byte, error) {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		b, ok := m[addr+uint64(i)]
		if !ok {
			return nil, fmt.Errorf("unmapped address %#x", addr+uint64(i))
		}
		out[i] = b
	}
	return out, nil
}

func TestTargetProcess_Defaults(t *testing.T) {
	tp := NewTargetProcess(memFake{}, NewTypeTable())

	assert.Equal(t, 8, tp.PointerSize())
	assert.Equal(t, binary.ByteOrder(binary.LittleEndian), tp.ByteOrder())
}

func TestTargetProcess_Options(t *testing.T) {
	tp := NewTargetProcess(memFake{}, NewTypeTable(),
		WithByteOrder(binary.BigEndian), WithPointerSize(4))

	assert.Equal(t, 4, tp.PointerSize())
	assert.Equal(t, binary.ByteOrder(binary.BigEndian), tp.ByteOrder())
}

func TestTargetProcess_ReadThroughValue(t *testing.T) {
	mem := memFake{0x10: 0x2a, 0x11: 0, 0x12: 0, 0x13: 0}
	types := NewTypeTable()
	i32 := &value.Type{Name: "i32", Kind: value.KindBase, Size: 4, Signed: true}
	types.Register(i32)

	tp := NewTargetProcess(mem, types)

	v := value.New(tp, "x", i32, 0x10)
	n, err := v.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = value.New(tp, "y", i32, 0x100).Int()
	assert.Error(t, err, "unmapped memory must surface, never zero-fill")
}

func TestTargetProcess_FindType(t *testing.T) {
	types := NewTypeTable()
	types.Register(&value.Type{Name: "usize", Kind: value.KindBase, Size: 8})

	tp := NewTargetProcess(memFake{}, types)

	got, err := tp.FindType("usize")
	require.NoError(t, err)
	assert.Equal(t, "usize", got.Name)

	_, err = tp.FindType("alloc::vec::Vec<i32>")
	assert.ErrorContains(t, err, "not found")
}
