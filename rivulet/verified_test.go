package rivulet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifiedAcceptsAndForwards(t *testing.T) {
	root := Root(Leaf(1))
	verified := Verified(root, func(Change) bool { return true })

	verified.SetValue(Leaf(2))
	assert.Equal(t, 2, root.Value().LeafValue())
	assert.Equal(t, 2, verified.Value().LeafValue())
}

func TestVerifiedRejectsSilently(t *testing.T) {
	root := Root(Leaf(1))
	verified := Verified(root, func(Change) bool { return false })

	verified.SetValue(Leaf(2))
	assert.Equal(t, 1, root.Value().LeafValue())
}

func TestVerifiedRejectionEmitsDiagnostic(t *testing.T) {
	root := Root(Leaf(1))
	verified := Verified(root, func(Change) bool { return false })

	var diags []Diagnostic
	root.Diagnostics(context.Background(), func(d Diagnostic) { diags = append(diags, d) })

	verified.SetValue(Leaf(2))

	if assert.Len(t, diags, 1) {
		assert.Equal(t, DiagnosticVerificationRejected, diags[0].Kind)
	}
}

func TestVerifiedSubscribersSeeNothingAfterRejection(t *testing.T) {
	root := Root(Leaf(1))
	verified := Verified(root, func(c Change) bool {
		return c.To.LeafValue().(int) < 10
	})

	var got []int
	verified.State().Subscribe(context.Background(), func(v Value) {
		got = append(got, v.LeafValue().(int))
	})

	verified.SetValue(Leaf(20)) // rejected
	verified.SetValue(Leaf(5))  // accepted

	assert.Equal(t, []int{1, 5}, got)
}

func TestVerifiedOnDescendantNode(t *testing.T) {
	root := Root(Map(map[string]Value{"age": Leaf(30)}))
	age := root.Sub("age")
	verified := Verified(age, func(c Change) bool {
		return c.To.LeafValue().(int) >= 0
	})

	verified.SetValue(Leaf(-1))
	assert.Equal(t, 30, age.Value().LeafValue())

	verified.SetValue(Leaf(31))
	assert.Equal(t, 31, age.Value().LeafValue())
}
