package value

// Kind describes the structural class of a type as reported by the
// debugger's type metadata.
type Kind int

const (
	// KindBase is a scalar type (integer, float, bool, char).
	KindBase Kind = iota
	// KindStruct is a struct type with named or positional fields.
	KindStruct
	// KindUnion is a union type; all members share offset zero.
	KindUnion
	// KindPointer is a raw or reference pointer type.
	KindPointer
	// KindArray is a fixed-size array type.
	KindArray
)

// Field is a single member of a struct or union type. Offset is the byte
// offset of the field within its parent, taken from debug info.
type Field struct {
	Name   string
	Type   *Type
	Offset uint64
}

// Type is a read-only view onto the debugger's type metadata. It is owned
// by whoever produced it (the host, or a test fixture) and is never mutated
// by this package.
type Type struct {
	Name   string
	Kind   Kind
	Size   uint64
	Fields []Field // struct/union members, in declaration order
	Elem   *Type   // pointee for pointers, element for arrays
	Signed bool    // meaningful for KindBase integers only
}

// FieldByName returns the field with the given name, if present.
func (t *Type) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// NumFields returns the number of declared fields.
func (t *Type) NumFields() int {
	return len(t.Fields)
}

// IsStruct reports whether the type is a struct.
func (t *Type) IsStruct() bool {
	return t.Kind == KindStruct
}

// IsUnion reports whether the type is a union.
func (t *Type) IsUnion() bool {
	return t.Kind == KindUnion
}

// Pointee returns the pointed-to type for pointer types, nil otherwise.
func (t *Type) Pointee() *Type {
	if t.Kind != KindPointer {
		return nil
	}
	return t.Elem
}

// PointerTo constructs a pointer type to t with the given address width.
func PointerTo(t *Type, ptrSize int) *Type {
	return &Type{
		Name: "*" + t.Name,
		Kind: KindPointer,
		Size: uint64(ptrSize),
		Elem: t,
	}
}
