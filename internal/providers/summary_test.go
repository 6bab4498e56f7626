package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustlens/rustlens/internal/testing/target"
	"github.com/rustlens/rustlens/internal/value"
)

func TestSummary_Vec(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)
	vecType := makeVecType(tgt, "alloc::vec::Vec<i32>", tgt.I32())
	writeVec(tgt, 0x1000, 0x2000, 8, 5)

	assert.Equal(t, "size=5", d.Summary(tgt.Value("v", vecType, 0x1000)))
}

func TestSummary_VecDeque(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)
	dequeType := makeDequeType(tgt, tgt.I32())
	writeDeque(tgt, 0x1000, 3, 1, 0x4000, 4)

	assert.Equal(t, "size=2", d.Summary(tgt.Value("dq", dequeType, 0x1000)))
}

func TestSummary_String(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)

	vecU8 := makeVecType(tgt, "alloc::vec::Vec<u8>", tgt.U8())
	stringType := tgt.Struct("alloc::string::String",
		value.Field{Name: "vec", Type: vecU8})

	const headerAddr, dataAddr = 0x1000, 0x2000
	writeVec(tgt, headerAddr, dataAddr, 8, 5)
	tgt.SetBytes(dataAddr, []byte("hello"))

	assert.Equal(t, `"hello"`, d.Summary(tgt.Value("s", stringType, headerAddr)))
}

func TestSummary_StrSlice(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)

	strType := tgt.Struct("&str",
		value.Field{Name: "data_ptr", Type: tgt.PointerTo(tgt.U8())},
		value.Field{Name: "length", Type: tgt.Usize()})

	tgt.SetPointer(0x100, 0x2000)
	tgt.SetUint(0x108, 8, 3)
	tgt.SetBytes(0x2000, []byte("abc"))

	assert.Equal(t, `"abc"`, d.Summary(tgt.Value("s", strType, 0x100)))
}

func TestSummary_StrSliceReadErrorIsVisible(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)

	strType := tgt.Struct("&str",
		value.Field{Name: "data_ptr", Type: tgt.PointerTo(tgt.U8())},
		value.Field{Name: "length", Type: tgt.Usize()})

	// Header is readable but the data pointer leads nowhere: the failure
	// must be shown, not replaced with an empty string value.
	tgt.SetPointer(0x100, 0xdead)
	tgt.SetUint(0x108, 8, 4)

	summary := d.Summary(tgt.Value("s", strType, 0x100))
	assert.Contains(t, summary, "<error:")
}

func TestSummary_Rc(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)
	rcType, _ := makeRcType(tgt, "alloc::rc::Rc<i32>", "value", tgt.I32())
	writeRcBlock(tgt, 0x100, 0x2000, 3, 1, 0)

	assert.Equal(t, "strong=3, weak=1", d.Summary(tgt.Value("rc", rcType, 0x100)))
}

func TestSummary_Arc(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)
	arcType, _ := makeRcType(tgt, "alloc::sync::Arc<i32>", "data", tgt.I32())
	writeRcBlock(tgt, 0x100, 0x2000, 5, 2, 0)

	assert.Equal(t, "strong=5, weak=2", d.Summary(tgt.Value("arc", arcType, 0x100)))
}

func TestSummary_RefCellBorrowStates(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)
	refCellType := makeRefCellType(tgt, tgt.I32())

	tgt.SetUint(0x400, 8, 2)
	assert.Equal(t, "borrow=2", d.Summary(tgt.Value("rc", refCellType, 0x400)))

	// A negative flag is an exclusive borrow.
	tgt.SetBytes(0x500, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	assert.Equal(t, "borrow_mut=1", d.Summary(tgt.Value("rc", refCellType, 0x500)))
}

func TestSummary_HashMap(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)
	mapType := makeHashbrownMapType(tgt)
	tgt.SetUint(0x100+32, 8, 7)

	assert.Equal(t, "size=7", d.Summary(tgt.Value("m", mapType, 0x100)))
}

func TestSummary_DegradesToEmptyOnLayoutMismatch(t *testing.T) {
	tgt := target.New()
	d := NewDispatcher(nil)

	bogus := tgt.Struct("alloc::vec::Vec<i32>",
		value.Field{Name: "inner", Type: tgt.Usize()})
	assert.Equal(t, "", d.Summary(tgt.Value("v", bogus, 0x100)))

	plain := tgt.Struct("Point", value.Field{Name: "x", Type: tgt.I32()})
	assert.Equal(t, "", d.Summary(tgt.Value("p", plain, 0x100)), "no special summary for plain structs")
}
