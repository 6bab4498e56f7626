// Package rusttypes classifies raw type descriptors into the closed set of
// structural shapes the Rust compiler emits into debug info. Classification
// is pure: the same name and field list always produce the same shape, and
// no debuggee memory is touched.
package rusttypes

// Shape is the structural classification of a type: a plain struct or
// tuple, one of the enum variant encodings, or one of the recognized
// standard-library container layouts. Exactly one shape applies per type.
type Shape int

const (
	// Other is anything this system does not recognize; the host's
	// generic display takes over.
	Other Shape = iota
	// Struct is a plain struct with named fields.
	Struct
	// Tuple is a struct whose fields are all positional (__0, __1, ...).
	Tuple
	// CStyleVariant is an enum variant carrying only the discriminant.
	CStyleVariant
	// TupleVariant is an enum variant with positional payload fields.
	TupleVariant
	// StructVariant is an enum variant with named payload fields.
	StructVariant
	// Empty is a zero-field struct or union; there is nothing to decode.
	Empty
	// SingletonEnum is a union holding a single unnamed variant and no
	// discriminant.
	SingletonEnum
	// RegularEnum is a tagged union; the discriminant is read from the
	// first variant's first field at runtime.
	RegularEnum
	// CompressedEnum is a niche-encoded enum: the discriminant is folded
	// into an unused bit pattern of a data field and flagged by a
	// reserved name prefix on the single variant.
	CompressedEnum
	// RegularUnion is a genuine user-written union.
	RegularUnion

	// StdVec is alloc::vec::Vec<T>.
	StdVec
	// StdVecDeque is alloc::collections::vec_deque::VecDeque<T>.
	StdVecDeque
	// StdString is alloc::string::String.
	StdString
	// StdStr is the &str slice.
	StdStr
	// StdRc is alloc::rc::Rc<T>.
	StdRc
	// StdArc is alloc::sync::Arc<T>.
	StdArc
	// StdCell is core::cell::Cell<T>.
	StdCell
	// StdRef is core::cell::Ref<T>.
	StdRef
	// StdRefMut is core::cell::RefMut<T>.
	StdRefMut
	// StdRefCell is core::cell::RefCell<T>.
	StdRefCell
	// StdBTreeMap is alloc::collections::btree::map::BTreeMap<K, V>.
	StdBTreeMap
	// StdHashMap is std::collections::HashMap<K, V>.
	StdHashMap
)

var shapeNames = map[Shape]string{
	Other:          "Other",
	Struct:         "Struct",
	Tuple:          "Tuple",
	CStyleVariant:  "CStyleVariant",
	TupleVariant:   "TupleVariant",
	StructVariant:  "StructVariant",
	Empty:          "Empty",
	SingletonEnum:  "SingletonEnum",
	RegularEnum:    "RegularEnum",
	CompressedEnum: "CompressedEnum",
	RegularUnion:   "RegularUnion",
	StdVec:         "StdVec",
	StdVecDeque:    "StdVecDeque",
	StdString:      "StdString",
	StdStr:         "StdStr",
	StdRc:          "StdRc",
	StdArc:         "StdArc",
	StdCell:        "StdCell",
	StdRef:         "StdRef",
	StdRefMut:      "StdRefMut",
	StdRefCell:     "StdRefCell",
	StdBTreeMap:    "StdBTreeMap",
	StdHashMap:     "StdHashMap",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "Unknown"
}
