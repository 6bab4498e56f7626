package rusttypes

import (
	"regexp"
	"strings"

	"github.com/rustlens/rustlens/internal/value"
)

// Reserved names the compiler emits into debug info for enum encodings.
const (
	// enumDisrFieldName marks the discriminant field of an enum variant
	// struct.
	enumDisrFieldName = "RUST$ENUM$DISR"

	// encodedEnumPrefix marks a niche-encoded enum variant. The sentinel
	// that selects the dataless variant is described by the rest of the
	// name and decoded elsewhere.
	encodedEnumPrefix = "RUST$ENCODED$ENUM$"
)

// Anchored patterns for the recognized standard-library containers. The
// full crate-qualified name must match; user types that merely embed or
// suffix a std name must not classify as containers, since a wrong match
// means reading unrelated memory.
var (
	stdStringRegex   = regexp.MustCompile(`^(alloc::([a-zA-Z_]+::)+)String$`)
	stdStrRegex      = regexp.MustCompile(`^&str$`)
	stdVecRegex      = regexp.MustCompile(`^(alloc::([a-zA-Z_]+::)+)Vec<.+>$`)
	stdVecDequeRegex = regexp.MustCompile(`^(alloc::([a-zA-Z_]+::)+)VecDeque<.+>$`)
	stdRcRegex       = regexp.MustCompile(`^(alloc::([a-zA-Z_]+::)+)Rc<.+>$`)
	stdArcRegex      = regexp.MustCompile(`^(alloc::([a-zA-Z_]+::)+)Arc<.+>$`)
	stdCellRegex     = regexp.MustCompile(`^(core::([a-zA-Z_]+::)+)Cell<.+>$`)
	stdRefRegex      = regexp.MustCompile(`^(core::([a-zA-Z_]+::)+)Ref<.+>$`)
	stdRefMutRegex   = regexp.MustCompile(`^(core::([a-zA-Z_]+::)+)RefMut<.+>$`)
	stdRefCellRegex  = regexp.MustCompile(`^(core::([a-zA-Z_]+::)+)RefCell<.+>$`)
	stdBTreeMapRegex = regexp.MustCompile(`^(alloc::([a-zA-Z_]+::)+)BTreeMap<.+>$`)
	stdHashMapRegex  = regexp.MustCompile(`^(std::collections::([a-zA-Z_]+::)*)HashMap<.+>$`)

	tupleFieldRegex = regexp.MustCompile(`^__\d+$`)
)

// containerPatterns is checked in order; the first match wins. Container
// matching deliberately runs before structural checks, because container
// internals can themselves look like tuples or structs.
var containerPatterns = []struct {
	re    *regexp.Regexp
	shape Shape
}{
	{stdStringRegex, StdString},
	{stdStrRegex, StdStr},
	{stdVecDequeRegex, StdVecDeque},
	{stdVecRegex, StdVec},
	{stdRcRegex, StdRc},
	{stdArcRegex, StdArc},
	{stdRefCellRegex, StdRefCell},
	{stdRefMutRegex, StdRefMut},
	{stdRefRegex, StdRef},
	{stdCellRegex, StdCell},
	{stdBTreeMapRegex, StdBTreeMap},
	{stdHashMapRegex, StdHashMap},
}

// Classify maps a type descriptor to its structural shape. Types that are
// neither structs nor unions are Other.
func Classify(t *value.Type) Shape {
	switch t.Kind {
	case value.KindStruct:
		return classifyStruct(t.Name, t.Fields)
	case value.KindUnion:
		return classifyUnion(t.Fields)
	default:
		return Other
	}
}

func classifyStruct(name string, fields []value.Field) Shape {
	if len(fields) == 0 {
		return Empty
	}

	for _, p := range containerPatterns {
		if p.re.MatchString(name) {
			return p.shape
		}
	}

	if fields[0].Name == enumDisrFieldName {
		if len(fields) == 1 {
			return CStyleVariant
		}
		if isTupleFields(fields[1:]) {
			return TupleVariant
		}
		return StructVariant
	}

	if isTupleFields(fields) {
		return Tuple
	}
	return Struct
}

func classifyUnion(fields []value.Field) Shape {
	if len(fields) == 0 {
		return Empty
	}

	first := fields[0].Name
	switch {
	case first == "":
		if len(fields) == 1 {
			return SingletonEnum
		}
		return RegularEnum
	case strings.HasPrefix(first, encodedEnumPrefix):
		// The compiler emits exactly one variant for this encoding.
		return CompressedEnum
	default:
		return RegularUnion
	}
}

func isTupleFields(fields []value.Field) bool {
	for _, f := range fields {
		if !tupleFieldRegex.MatchString(f.Name) {
			return false
		}
	}
	return true
}
