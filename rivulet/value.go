package rivulet

import "fmt"

// Kind tags the shape of a Value: leaf, mapping, or sequence. This is the
// Go rendering of a tagged variant of {leaf, mapping, sequence}, for a
// language with no native structural-union type.
type Kind int

const (
	// KindUndefined marks the absence of a value, observed when Sub
	// addresses a currently-missing field, or KeyedState.Key addresses a
	// key that is not present.
	KindUndefined Kind = iota
	KindLeaf
	KindMap
	KindSeq
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindLeaf:
		return "leaf"
	case KindMap:
		return "map"
	case KindSeq:
		return "seq"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is the closed set of shapes a node in the tree can hold: an atom
// (leaf), a mapping from field name to Value, or an ordered sequence of
// Value. It is constructed only through Leaf, Map, Seq and Undefined, and
// is immutable once built — every mutation described by this package
// produces a new Value rather than editing one in place, per the
// immutability contract callers must also honor for their own leaves.
type Value struct {
	kind Kind
	leaf any
	m    map[string]Value
	s    []Value
}

// Undefined is the zero Value; it reports Kind() == KindUndefined.
func Undefined() Value { return Value{} }

// Leaf wraps an atomic payload as a Value.
func Leaf(v any) Value { return Value{kind: KindLeaf, leaf: v} }

// Map builds a mapping Value. The supplied map is copied shallowly.
func Map(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

// Seq builds a sequence Value. The supplied slice is copied shallowly.
func Seq(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindSeq, s: cp}
}

// Kind reports which of the tagged shapes v holds.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is the absent/undefined value.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// LeafValue returns the payload of a leaf Value. It panics if v is not a leaf;
// callers address via Kind() first, the same way a caller must check a
// tagged union's discriminant before unwrapping it.
func (v Value) LeafValue() any {
	if v.kind != KindLeaf {
		panic(fmt.Sprintf("rivulet: LeafValue on a %s value", v.kind))
	}
	return v.leaf
}

// Field returns the value at field name, and whether it was present. Only
// valid on a KindMap value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindMap {
		return Undefined(), false
	}
	f, ok := v.m[name]
	return f, ok
}

// Fields returns the field names of a KindMap value, in no particular
// order.
func (v Value) Fields() []string {
	if v.kind != KindMap {
		return nil
	}
	names := make([]string, 0, len(v.m))
	for k := range v.m {
		names = append(names, k)
	}
	return names
}

// Len returns the number of items in a KindSeq value, or 0 otherwise.
func (v Value) Len() int {
	if v.kind != KindSeq {
		return 0
	}
	return len(v.s)
}

// Index returns the item at position i of a KindSeq value, and whether i
// was in range.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindSeq || i < 0 || i >= len(v.s) {
		return Undefined(), false
	}
	return v.s[i], true
}

// Items returns a shallow copy of a KindSeq value's items.
func (v Value) Items() []Value {
	if v.kind != KindSeq {
		return nil
	}
	cp := make([]Value, len(v.s))
	copy(cp, v.s)
	return cp
}

// withField returns a copy of v (which must be KindMap, or undefined —
// treated as an empty map) with field name set to val.
func (v Value) withField(name string, val Value) Value {
	m := make(map[string]Value, len(v.m)+1)
	for k, f := range v.m {
		m[k] = f
	}
	m[name] = val
	return Value{kind: KindMap, m: m}
}

// withIndex returns a copy of v (which must be KindSeq, or undefined —
// treated as empty) with index i set to val, and whether i was
// writable. If i == Len(v), the sequence grows by one; any larger gap
// returns ok=false instead of padding or panicking — addressing a gap is
// the caller's job to turn into an addressing error, not a replace.
func (v Value) withIndex(i int, val Value) (result Value, ok bool) {
	n := len(v.s)
	switch {
	case i < n:
		s := make([]Value, n)
		copy(s, v.s)
		s[i] = val
		return Value{kind: KindSeq, s: s}, true
	case i == n:
		s := make([]Value, n+1)
		copy(s, v.s)
		s[n] = val
		return Value{kind: KindSeq, s: s}, true
	default:
		return Undefined(), false
	}
}
