package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustlens/rustlens/internal/testing/target"
	"github.com/rustlens/rustlens/internal/value"
)

// makeHashbrownMapType lays out the std wrapper over hashbrown with the
// RawTableInner split: base.table.table.items.
func makeHashbrownMapType(tgt *target.Target) *value.Type {
	inner := tgt.Struct("hashbrown::raw::RawTableInner",
		value.Field{Name: "bucket_mask", Type: tgt.Usize()},
		value.Field{Name: "ctrl", Type: tgt.PointerTo(tgt.U8())},
		value.Field{Name: "growth_left", Type: tgt.Usize()},
		value.Field{Name: "items", Type: tgt.Usize()})
	rawTable := tgt.Struct("hashbrown::raw::RawTable<(i32, i32)>",
		value.Field{Name: "table", Type: inner})
	base := tgt.Struct("hashbrown::map::HashMap<i32, i32>",
		value.Field{Name: "hash_builder", Type: tgt.Usize()},
		value.Field{Name: "table", Type: rawTable})
	return tgt.Struct("std::collections::hash::map::HashMap<i32, i32>",
		value.Field{Name: "base", Type: base})
}

func TestHashMapProvider_CountFromHashbrownLayout(t *testing.T) {
	tgt := target.New()
	mapType := makeHashbrownMapType(tgt)

	// base @0, hash_builder @0, table @8, inner table @8: bucket_mask,
	// ctrl, growth_left, items.
	tgt.SetUint(0x100+8, 8, 15)       // bucket_mask
	tgt.SetPointer(0x100+16, 0x9000)  // ctrl
	tgt.SetUint(0x100+24, 8, 8)       // growth_left
	tgt.SetUint(0x100+32, 8, 7)       // items

	p := NewHashMapProvider(tgt.Value("m", mapType, 0x100))
	count, err := p.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), count)

	// Count-only: entries are never enumerated.
	assert.Equal(t, 0, p.NumChildren())
	assert.False(t, p.HasChildren())
	assert.Equal(t, -1, p.ChildIndex("[0]"))
}

func TestHashMapProvider_CountFromLegacyTable(t *testing.T) {
	tgt := target.New()
	rawTable := tgt.Struct("std::collections::hash::table::RawTable<i32, i32>",
		value.Field{Name: "capacity_mask", Type: tgt.Usize()},
		value.Field{Name: "size", Type: tgt.Usize()})
	mapType := tgt.Struct("std::collections::hash::map::HashMap<i32, i32>",
		value.Field{Name: "hash_builder", Type: tgt.Usize()},
		value.Field{Name: "table", Type: rawTable})

	tgt.SetUint(0x200+16, 8, 3) // size, behind hash_builder and capacity_mask

	p := NewHashMapProvider(tgt.Value("m", mapType, 0x200))
	count, err := p.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestHashMapProvider_UnknownLayoutFailsClosed(t *testing.T) {
	tgt := target.New()
	mapType := tgt.Struct("std::collections::hash::map::HashMap<i32, i32>",
		value.Field{Name: "entirely", Type: tgt.Usize()},
		value.Field{Name: "different", Type: tgt.Usize()})
	tgt.SetUint(0x300, 8, 99)
	tgt.SetUint(0x308, 8, 98)

	p := NewHashMapProvider(tgt.Value("m", mapType, 0x300))
	_, err := p.Count()
	require.Error(t, err)
	var layoutError *LayoutError
	assert.ErrorAs(t, err, &layoutError)

	// Wrong answers are worse than none: zero children, no summary.
	assert.Equal(t, 0, p.NumChildren())
}
