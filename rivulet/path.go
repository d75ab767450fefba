package rivulet

import "fmt"

// Key is one hop of addressing into a Value: a field name (string) for a
// KindMap, or a non-negative index (int) for a KindSeq. sub(k)'s
// addressing mode is picked from the dynamic type of k — it does not
// need to introspect the value eagerly.
type Key any

// Path is a canonical, ordered sequence of keys from the root to a node.
// The empty path addresses the root itself. Paths are plain slices, not
// interned.
type Path []Key

// Equal reports whether p and q address the same location.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Append returns a new Path with key appended, never aliasing p's
// backing array.
func (p Path) Append(key Key) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}

func (p Path) String() string {
	s := "$"
	for _, k := range p {
		switch kk := k.(type) {
		case string:
			s += "." + kk
		case int:
			s += fmt.Sprintf("[%d]", kk)
		default:
			s += fmt.Sprintf(".%v", kk)
		}
	}
	return s
}

// pluck reads the value addressed by path within root. A missing map
// field, an out-of-range sequence index, or a hop through an already-
// Undefined value all just read as Undefined() — the adopted behavior
// for a currently-missing address. Only a hop that tries to descend
// through an actual leaf is reported as an *AddressingError.
func pluck(root Value, path Path) (Value, error) {
	cur := root
	for i, key := range path {
		if cur.Kind() == KindLeaf {
			return Undefined(), newAddressingError(path[:i], key, KindLeaf)
		}
		switch k := key.(type) {
		case string:
			if f, ok := cur.Field(k); ok {
				cur = f
			} else {
				cur = Undefined()
			}
		case int:
			if item, ok := cur.Index(k); ok {
				cur = item
			} else {
				cur = Undefined()
			}
		default:
			cur = Undefined()
		}
	}
	return cur, nil
}

// replace returns a new root where the value addressed by path has been
// set to to, shallow-copying every ancestor container along path. An
// empty path replaces the whole root with to. Addressing a sequence gap
// (an index more than one past the current length) is reported as an
// *AddressingError instead of padding or panicking, the same way pluck
// reports descending through a leaf.
func replace(root Value, path Path, to Value) (Value, error) {
	return replaceAt(root, path, 0, to)
}

func replaceAt(root Value, path Path, i int, to Value) (Value, error) {
	if i == len(path) {
		return to, nil
	}
	switch k := path[i].(type) {
	case string:
		child, _ := root.Field(k)
		newChild, err := replaceAt(child, path, i+1, to)
		if err != nil {
			return Undefined(), err
		}
		return root.withField(k, newChild), nil
	case int:
		child, _ := root.Index(k)
		newChild, err := replaceAt(child, path, i+1, to)
		if err != nil {
			return Undefined(), err
		}
		updated, ok := root.withIndex(k, newChild)
		if !ok {
			return Undefined(), newAddressingError(path[:i], k, KindSeq)
		}
		return updated, nil
	default:
		panic(fmt.Sprintf("rivulet: path key %v is neither a field name nor an index", path[i]))
	}
}
