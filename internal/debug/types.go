package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rustlens/rustlens/internal/value"
)

// TypeTable holds the debug-info type descriptors for a debuggee, keyed
// by fully qualified type name. The BTreeMap decoder also looks types up
// here when punning leaf nodes to internal nodes.
type TypeTable struct {
	mu    sync.RWMutex
	types map[string]*value.Type
}

// NewTypeTable returns an empty table.
func NewTypeTable() *TypeTable {
	return &TypeTable{types: make(map[string]*value.Type)}
}

// Register adds a type descriptor, replacing any previous entry with the
// same name.
func (tt *TypeTable) Register(t *value.Type) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.types[t.Name] = t
}

// Lookup returns the descriptor for name, or nil when unknown.
func (tt *TypeTable) Lookup(name string) *value.Type {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.types[name]
}

// Merge copies every type from other into the table.
func (tt *TypeTable) Merge(other *TypeTable) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	tt.mu.Lock()
	defer tt.mu.Unlock()
	for name, t := range other.types {
		tt.types[name] = t
	}
}

// Len returns the number of registered types.
func (tt *TypeTable) Len() int {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return len(tt.types)
}

// typeSpec is the JSON form of one type descriptor in a manifest. Field
// and element types are referenced by name and resolved after all specs
// are read, so a manifest may list types in any order.
type typeSpec struct {
	Name   string      `json:"name"`
	Kind   string      `json:"kind"`
	Size   uint64      `json:"size"`
	Signed bool        `json:"signed,omitempty"`
	Elem   string      `json:"elem,omitempty"`
	Fields []fieldSpec `json:"fields,omitempty"`
}

type fieldSpec struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset uint64 `json:"offset"`
}

type manifest struct {
	Types []typeSpec `json:"types"`
}

// LoadManifest reads a type manifest file into a new table.
func LoadManifest(path string) (*TypeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read type manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest JSON into a new table. Every field and
// element reference must resolve to a type declared in the same manifest.
func ParseManifest(data []byte) (*TypeTable, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid type manifest: %w", err)
	}

	table := NewTypeTable()

	// First pass: allocate every descriptor so references can be linked
	// regardless of declaration order.
	shells := make(map[string]*value.Type, len(m.Types))
	for _, spec := range m.Types {
		if spec.Name == "" {
			return nil, fmt.Errorf("type manifest entry without a name")
		}
		if _, dup := shells[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate type %q in manifest", spec.Name)
		}
		kind, err := parseKind(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", spec.Name, err)
		}
		shells[spec.Name] = &value.Type{
			Name:   spec.Name,
			Kind:   kind,
			Size:   spec.Size,
			Signed: spec.Signed,
		}
	}

	// Second pass: link fields and element types.
	for _, spec := range m.Types {
		t := shells[spec.Name]
		if spec.Elem != "" {
			elem, ok := shells[spec.Elem]
			if !ok {
				return nil, fmt.Errorf("type %q: unknown element type %q", spec.Name, spec.Elem)
			}
			t.Elem = elem
		}
		for _, f := range spec.Fields {
			ft, ok := shells[f.Type]
			if !ok {
				return nil, fmt.Errorf("type %q: field %q has unknown type %q", spec.Name, f.Name, f.Type)
			}
			t.Fields = append(t.Fields, value.Field{
				Name:   f.Name,
				Type:   ft,
				Offset: f.Offset,
			})
		}
		table.Register(t)
	}

	return table, nil
}

func parseKind(s string) (value.Kind, error) {
	switch s {
	case "base", "":
		return value.KindBase, nil
	case "struct":
		return value.KindStruct, nil
	case "union":
		return value.KindUnion, nil
	case "pointer":
		return value.KindPointer, nil
	case "array":
		return value.KindArray, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}
