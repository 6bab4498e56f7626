package providers

import (
	"fmt"

	"github.com/rustlens/rustlens/internal/value"
)

// hashMapCountChains are the known paths to the element count across the
// layouts shipped by different compiler versions: hashbrown behind the std
// wrapper (with and without the inner RawTableInner split) and the older
// open-addressed std table. The first chain that resolves wins.
var hashMapCountChains = [][]string{
	{"base", "table", "table", "items"},
	{"base", "table", "items"},
	{"table", "items"},
	{"table", "size"},
}

// HashMapProvider reports the element count of std::collections::HashMap.
//
// Bucket metadata of the open-addressed layouts (control-byte tags packed
// next to the bucket array) is too version-fragile to walk confidently, so
// entries are not enumerated: when the count cannot be resolved the
// provider fails closed with zero children rather than decoding garbage.
type HashMapProvider struct {
	v     *value.Value
	count uint64
	err   error
}

// NewHashMapProvider decodes v as a HashMap and returns its provider.
func NewHashMapProvider(v *value.Value) *HashMapProvider {
	p := &HashMapProvider{v: v}
	p.err = p.Update()
	return p
}

// Update re-resolves the element count.
func (p *HashMapProvider) Update() error {
	count, err := hashMapCount(p.v)
	if err != nil {
		p.err = err
		return err
	}
	p.count = count
	p.err = nil
	return nil
}

// Count returns the decoded element count.
func (p *HashMapProvider) Count() (uint64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.count, nil
}

func hashMapCount(v *value.Value) (uint64, error) {
	for _, chain := range hashMapCountChains {
		cur := v
		ok := true
		for _, name := range chain {
			next, err := cur.Field(name)
			if err != nil {
				ok = false
				break
			}
			cur = next
		}
		if !ok {
			continue
		}
		count, err := cur.Uint()
		if err != nil {
			return 0, err
		}
		return count, nil
	}
	return 0, layoutErr(v.Type(), "no known count field chain matched", nil)
}

func (p *HashMapProvider) NumChildren() int { return 0 }

func (p *HashMapProvider) ChildIndex(name string) int { return -1 }

func (p *HashMapProvider) ChildAt(index int) (*value.Value, error) {
	return nil, fmt.Errorf("%w: hash map entries are not enumerated", value.ErrIndexOutOfRange)
}

func (p *HashMapProvider) HasChildren() bool { return false }
