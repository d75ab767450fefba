package rivulet

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Equality decides whether two Values should be treated as the same for
// the purposes of distinctUntilChanged dedup. Root construction picks
// one and every node inherits it.
type Equality func(a, b Value) bool

// ReferenceEquality is the default: a pragmatic choice under the
// caller's immutability discipline. Maps and sequences are compared
// by the identity of their backing storage — meaningful because replace
// always allocates fresh storage for anything it touches and reuses
// everything it doesn't, so two Values sharing backing storage really do
// mean "nothing changed here". Leaves are compared with Go's == where
// possible; an uncomparable leaf payload is conservatively reported as
// unequal rather than panicking the engine.
func ReferenceEquality() Equality {
	return referenceEqual
}

// StructuralEquality compares Values field-by-field / element-by-element
// recursively, using go-cmp for leaf payloads. Callers with aliasing
// concerns inject this (or a custom Equality) to trade dedup precision
// for the cost of a deep comparison.
func StructuralEquality() Equality {
	return structuralEqual
}

func referenceEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined:
		return true
	case KindLeaf:
		return safeEqual(a.leaf, b.leaf)
	case KindMap:
		return reflect.ValueOf(a.m).Pointer() == reflect.ValueOf(b.m).Pointer()
	case KindSeq:
		pa, oka := slicePointer(a.s)
		pb, okb := slicePointer(b.s)
		if oka != okb {
			return false
		}
		if !oka {
			// both empty/nil: equal only if both nil or both len==0
			return len(a.s) == len(b.s)
		}
		return pa == pb && len(a.s) == len(b.s)
	default:
		return false
	}
}

func slicePointer(s []Value) (uintptr, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return reflect.ValueOf(s).Pointer(), true
}

func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

func structuralEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined:
		return true
	case KindLeaf:
		return cmp.Equal(a.leaf, b.leaf)
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !structuralEqual(av, bv) {
				return false
			}
		}
		return true
	case KindSeq:
		if len(a.s) != len(b.s) {
			return false
		}
		for i := range a.s {
			if !structuralEqual(a.s[i], b.s[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
