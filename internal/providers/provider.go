// Package providers implements summary formatting and synthetic child
// trees for Rust values. Each recognized standard-library container has a
// decoder that reconstructs the container's logical contents from its raw
// memory layout; everything else falls back to plain field enumeration.
//
// Providers are single-threaded: the host invokes one call at a time per
// instance. Cached layout state is recomputed in full by Update, which the
// host calls whenever debuggee memory may have changed.
package providers

import (
	"fmt"

	"github.com/rustlens/rustlens/internal/value"
)

// Provider exposes a value's synthetic children to the host debugger.
//
// NumChildren and ChildIndex never fail: unresolvable lookups report zero
// children or the -1 sentinel. ChildAt fails with a visible error rather
// than returning garbage. Update recomputes all cached addresses from
// scratch; a provider must never serve stale layout state after Update.
type Provider interface {
	NumChildren() int
	ChildIndex(name string) int
	ChildAt(index int) (*value.Value, error)
	Update() error
	HasChildren() bool
}

// LayoutError reports that a type matched a known container by name but
// its field layout did not match the expected shape, e.g. because the
// compiler version changed the internals. Decoders fail closed on it.
type LayoutError struct {
	TypeName string
	Detail   string
	Err      error
}

func (e *LayoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("layout of %s: %s: %v", e.TypeName, e.Detail, e.Err)
	}
	return fmt.Sprintf("layout of %s: %s", e.TypeName, e.Detail)
}

func (e *LayoutError) Unwrap() error { return e.Err }

func layoutErr(t *value.Type, detail string, err error) *LayoutError {
	return &LayoutError{TypeName: t.Name, Detail: detail, Err: err}
}

// DefaultProvider defers entirely to generic field enumeration, so
// unrecognized types still display something.
type DefaultProvider struct {
	v *value.Value
}

// NewDefaultProvider returns the fallback provider for v.
func NewDefaultProvider(v *value.Value) *DefaultProvider {
	return &DefaultProvider{v: v}
}

func (p *DefaultProvider) NumChildren() int {
	return p.v.Type().NumFields()
}

func (p *DefaultProvider) ChildIndex(name string) int {
	for i, f := range p.v.Type().Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (p *DefaultProvider) ChildAt(index int) (*value.Value, error) {
	return p.v.FieldAt(index)
}

func (p *DefaultProvider) Update() error { return nil }

func (p *DefaultProvider) HasChildren() bool {
	return p.v.Type().NumFields() > 0
}

// EmptyProvider is used for zero-field structs and unions.
type EmptyProvider struct {
	v *value.Value
}

// NewEmptyProvider returns a provider with no children.
func NewEmptyProvider(v *value.Value) *EmptyProvider {
	return &EmptyProvider{v: v}
}

func (p *EmptyProvider) NumChildren() int { return 0 }

func (p *EmptyProvider) ChildIndex(name string) int { return -1 }

func (p *EmptyProvider) ChildAt(index int) (*value.Value, error) {
	return nil, fmt.Errorf("%w: %d in empty %s", value.ErrIndexOutOfRange, index, p.v.Type().Name)
}

func (p *EmptyProvider) Update() error { return nil }

func (p *EmptyProvider) HasChildren() bool { return false }
