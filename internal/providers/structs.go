package providers

import (
	"fmt"
	"strconv"

	"github.com/rustlens/rustlens/internal/value"
)

// StructProvider enumerates the named fields of a struct or struct enum
// variant. In variant mode the leading discriminant field is dropped.
type StructProvider struct {
	v         *value.Value
	isVariant bool
	fields    map[string]int // field name -> child index
}

// NewStructProvider returns a provider over v's named fields.
func NewStructProvider(v *value.Value, isVariant bool) *StructProvider {
	p := &StructProvider{v: v, isVariant: isVariant, fields: make(map[string]int)}
	for i, f := range p.realFields() {
		p.fields[f.Name] = i
	}
	return p
}

func (p *StructProvider) realFields() []value.Field {
	fields := p.v.Type().Fields
	if p.isVariant && len(fields) > 0 {
		return fields[1:]
	}
	return fields
}

func (p *StructProvider) NumChildren() int {
	return len(p.realFields())
}

func (p *StructProvider) ChildIndex(name string) int {
	if i, ok := p.fields[name]; ok {
		return i
	}
	return -1
}

func (p *StructProvider) ChildAt(index int) (*value.Value, error) {
	fields := p.realFields()
	if index < 0 || index >= len(fields) {
		return nil, fmt.Errorf("%w: %d in %s", value.ErrIndexOutOfRange, index, p.v.Type().Name)
	}
	return p.v.Field(fields[index].Name)
}

func (p *StructProvider) Update() error { return nil }

func (p *StructProvider) HasChildren() bool { return true }

// TupleProvider enumerates positional fields of a tuple or tuple enum
// variant, renaming each child to its numeric position.
type TupleProvider struct {
	v         *value.Value
	isVariant bool
}

// NewTupleProvider returns a provider over v's positional fields.
func NewTupleProvider(v *value.Value, isVariant bool) *TupleProvider {
	return &TupleProvider{v: v, isVariant: isVariant}
}

func (p *TupleProvider) size() int {
	n := p.v.Type().NumFields()
	if p.isVariant {
		n--
	}
	if n < 0 {
		n = 0
	}
	return n
}

func (p *TupleProvider) NumChildren() int { return p.size() }

func (p *TupleProvider) ChildIndex(name string) int {
	if i, err := strconv.Atoi(name); err == nil {
		return i
	}
	return -1
}

func (p *TupleProvider) ChildAt(index int) (*value.Value, error) {
	if index < 0 || index >= p.size() {
		return nil, fmt.Errorf("%w: %d in %s", value.ErrIndexOutOfRange, index, p.v.Type().Name)
	}
	fieldIndex := index
	if p.isVariant {
		fieldIndex++
	}
	element, err := p.v.FieldAt(fieldIndex)
	if err != nil {
		return nil, err
	}
	return element.WithName(strconv.Itoa(index)), nil
}

func (p *TupleProvider) Update() error { return nil }

func (p *TupleProvider) HasChildren() bool { return true }
