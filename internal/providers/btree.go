package providers

import (
	"fmt"
	"strings"

	"github.com/rustlens/rustlens/internal/value"
)

// btreePair is one key/value entry located during traversal.
type btreePair struct {
	key *value.Value
	val *value.Value
}

// BTreeMapProvider reconstructs the entries of
// alloc::collections::btree::map::BTreeMap<K, V> by in-order traversal.
//
// A node holds up to len keys and parallel values; internal nodes carry
// len+1 child edges. Leaf and internal nodes share a prefix layout, so a
// node pointer is reinterpreted as the internal-node type (extra trailing
// edge array) only while height > 0. Visiting edge i before key i yields
// keys in ascending order by the tree's own ordering invariant.
type BTreeMapProvider struct {
	v     *value.Value
	pairs []btreePair
	err   error
}

// NewBTreeMapProvider decodes v as a BTreeMap and returns its provider.
func NewBTreeMapProvider(v *value.Value) *BTreeMapProvider {
	p := &BTreeMapProvider{v: v}
	p.err = p.Update()
	return p
}

// Update re-walks the whole tree from the root. Flattened entries are the
// cached state; nothing is partially reused across refreshes.
func (p *BTreeMapProvider) Update() error {
	p.pairs = nil
	root, err := p.v.Field("root")
	if err != nil {
		p.err = layoutErr(p.v.Type(), "root field", err)
		return p.err
	}
	node, err := root.Field("node")
	if err != nil {
		p.err = layoutErr(p.v.Type(), "root.node field", err)
		return p.err
	}
	height, err := fieldUint(root, "height")
	if err != nil {
		p.err = layoutErr(p.v.Type(), "root.height field", err)
		return p.err
	}
	if err := p.walk(node, height); err != nil {
		p.pairs = nil
		p.err = layoutErr(p.v.Type(), "node traversal", err)
		return p.err
	}
	p.err = nil
	return nil
}

func (p *BTreeMapProvider) walk(node *value.Value, height uint64) error {
	ptr, err := node.Field("ptr")
	if err != nil {
		return err
	}
	pointer, err := ptr.Field("pointer")
	if err != nil {
		return err
	}
	nodePtr, err := pointer.FieldAt(0)
	if err != nil {
		return err
	}

	var leaf *value.Value
	if height > 0 {
		pointee := nodePtr.Type().Pointee()
		if pointee == nil {
			return fmt.Errorf("node handle is not a pointer: %s", nodePtr.Type().Name)
		}
		internalName := strings.Replace(pointee.Name, "LeafNode", "InternalNode", 1)
		internalType, err := p.v.Process().FindType(internalName)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", internalName, err)
		}
		nodePtr = nodePtr.Cast(value.PointerTo(internalType, p.v.Process().PointerSize()))
		leaf, err = nodePtr.Field("data")
		if err != nil {
			return err
		}
	} else {
		leaf, err = nodePtr.Deref()
		if err != nil {
			return err
		}
	}

	keys, err := nodeArray(leaf, "keys")
	if err != nil {
		return err
	}
	vals, err := nodeArray(leaf, "vals")
	if err != nil {
		return err
	}
	length, err := fieldUint(leaf, "len")
	if err != nil {
		return err
	}

	for i := uint64(0); i <= length; i++ {
		if height > 0 {
			edges, err := nodePtr.Field("edges")
			if err != nil {
				return err
			}
			edge, err := edges.FieldAt(int(i))
			if err != nil {
				return err
			}
			if err := p.walk(edge, height-1); err != nil {
				return err
			}
		}
		if i < length {
			key, err := keys.FieldAt(int(i))
			if err != nil {
				return err
			}
			val, err := vals.FieldAt(int(i))
			if err != nil {
				return err
			}
			p.pairs = append(p.pairs, btreePair{
				key: key.WithName(fmt.Sprintf("key[%d]", i)),
				val: val.WithName(fmt.Sprintf("val[%d]", i)),
			})
		}
	}
	return nil
}

// nodeArray unwraps a key or value storage array out of its MaybeUninit
// and ManuallyDrop wrappers (two nested "value" members).
func nodeArray(leaf *value.Value, name string) (*value.Value, error) {
	arr, err := leaf.Field(name)
	if err != nil {
		return nil, err
	}
	for i := 0; i < 2; i++ {
		inner, err := arr.Field("value")
		if err != nil {
			return nil, err
		}
		arr = inner
	}
	if arr.Type().Kind != value.KindArray {
		return nil, fmt.Errorf("%s storage is not an array: %s", name, arr.Type().Name)
	}
	return arr, nil
}

func (p *BTreeMapProvider) NumChildren() int {
	return len(p.pairs)
}

func (p *BTreeMapProvider) ChildIndex(name string) int {
	i := bracketIndex(name)
	if i < 0 || i >= len(p.pairs) {
		return -1
	}
	return i
}

// ChildAt returns entry i as a single pair-shaped child: a synthesized
// two-field value holding the key bytes followed by the value bytes. A map
// entry is one logical child, not two independent ones.
func (p *BTreeMapProvider) ChildAt(index int) (*value.Value, error) {
	if p.err != nil {
		return nil, p.err
	}
	if index < 0 || index >= len(p.pairs) {
		return nil, fmt.Errorf("%w: %d of %d", value.ErrIndexOutOfRange, index, len(p.pairs))
	}
	pair := p.pairs[index]
	keyBytes, err := pair.key.Bytes()
	if err != nil {
		return nil, err
	}
	valBytes, err := pair.val.Bytes()
	if err != nil {
		return nil, err
	}

	keyType := pair.key.Type()
	valType := pair.val.Type()
	pairType := &value.Type{
		Name: fmt.Sprintf("(%s, %s)", keyType.Name, valType.Name),
		Kind: value.KindStruct,
		Size: keyType.Size + valType.Size,
		Fields: []value.Field{
			{Name: "key", Type: keyType, Offset: 0},
			{Name: "val", Type: valType, Offset: keyType.Size},
		},
	}
	data := make([]byte, 0, pairType.Size)
	data = append(data, keyBytes...)
	data = append(data, valBytes...)
	return value.NewFromBytes(p.v.Process(), fmt.Sprintf("[%d]", index), pairType, data), nil
}

func (p *BTreeMapProvider) HasChildren() bool { return true }
