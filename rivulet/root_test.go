package rivulet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootValueGetSet(t *testing.T) {
	root := Root(Leaf(1))
	assert.Equal(t, 1, root.Value().LeafValue())

	root.SetValue(Leaf(2))
	assert.Equal(t, 2, root.Value().LeafValue())
}

func TestSubReadsNestedValue(t *testing.T) {
	root := Root(Map(map[string]Value{
		"user": Map(map[string]Value{"name": Leaf("Jack")}),
	}))
	name := root.Sub("user").Sub("name")
	assert.Equal(t, "Jack", name.Value().LeafValue())
}

func TestSubWriteReachesRoot(t *testing.T) {
	root := Root(Map(map[string]Value{
		"user": Map(map[string]Value{"name": Leaf("Jack")}),
	}))
	root.Sub("user").Sub("name").SetValue(Leaf("Josef"))

	user, _ := root.Value().Field("user")
	name, _ := user.Field("name")
	assert.Equal(t, "Josef", name.LeafValue())
}

func TestSubOnMissingFieldReadsUndefined(t *testing.T) {
	root := Root(Map(nil))
	assert.True(t, root.Sub("missing").Value().IsUndefined())
}

func TestSubOnMissingFieldWriteCreatesIt(t *testing.T) {
	root := Root(Map(nil))
	root.Sub("fresh").SetValue(Leaf(7))
	got, ok := root.Value().Field("fresh")
	require.True(t, ok)
	assert.Equal(t, 7, got.LeafValue())
}

func TestSubscribeReplaysCurrentValueImmediately(t *testing.T) {
	root := Root(Leaf("hello"))
	var got []string
	root.Subscribe(context.Background(), func(v Value) {
		got = append(got, v.LeafValue().(string))
	})
	assert.Equal(t, []string{"hello"}, got)
}

func TestSubscribeFiresOnExactAndRootReplacementWrites(t *testing.T) {
	root := Root(Map(map[string]Value{
		"user": Map(map[string]Value{"name": Leaf("Jack")}),
	}))
	node := root.Sub("user").Sub("name")

	var got []string
	node.Subscribe(context.Background(), func(v Value) {
		got = append(got, v.LeafValue().(string))
	})

	root.Sub("user").Sub("name").SetValue(Leaf("Josef")) // exact address
	root.SetValue(Map(map[string]Value{                  // root-origin replacement
		"user": Map(map[string]Value{"name": Leaf("Julia")}),
	}))

	assert.Equal(t, []string{"Jack", "Josef", "Julia"}, got)
}

func TestSubscribeDoesNotFireOnDisjointSiblingWrite(t *testing.T) {
	root := Root(Map(map[string]Value{
		"a": Leaf(1),
		"b": Leaf(2),
	}))
	node := root.Sub("a")

	calls := 0
	node.Subscribe(context.Background(), func(Value) { calls++ })
	assert.Equal(t, 1, calls) // initial replay only

	root.Sub("b").SetValue(Leaf(99))
	assert.Equal(t, 1, calls)
}

func TestSubscribeDedupsEqualValues(t *testing.T) {
	root := Root(Leaf(1))
	calls := 0
	root.Subscribe(context.Background(), func(Value) { calls++ })

	root.SetValue(Leaf(1)) // same under reference equality
	assert.Equal(t, 1, calls)

	root.SetValue(Leaf(2))
	assert.Equal(t, 2, calls)
}

func TestCancelStopsSubscription(t *testing.T) {
	root := Root(Leaf(1))
	calls := 0
	sub := root.Subscribe(context.Background(), func(Value) { calls++ })
	sub.Cancel()

	root.SetValue(Leaf(2))
	assert.Equal(t, 1, calls)
}

func TestDownstreamBridgesToChannel(t *testing.T) {
	root := Root(Leaf(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := root.Downstream(ctx, 4)
	initial := <-ch
	assert.Equal(t, 1, initial.Value.LeafValue())

	root.SetValue(Leaf(2))
	next := <-ch
	assert.Equal(t, 2, next.Value.LeafValue())
}

func TestUpstreamBridgesExternalWrite(t *testing.T) {
	root := Root(Leaf(1))
	root.Upstream().Push(Change{Value: Leaf(5), From: Leaf(1), To: Leaf(5), Trace: nil})
	assert.Equal(t, 5, root.Value().LeafValue())
}

func TestReentrantWriteFromSubscriberIsOrderedFIFO(t *testing.T) {
	root := Root(Leaf(0))
	var order []int
	root.Subscribe(context.Background(), func(v Value) {
		n := v.LeafValue().(int)
		order = append(order, n)
		if n == 1 {
			root.SetValue(Leaf(2))
			root.SetValue(Leaf(3))
		}
	})

	root.SetValue(Leaf(1))
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestStructuralEqualityRootOption(t *testing.T) {
	root := Root(Map(map[string]Value{"x": Leaf(1)}), WithEquality(StructuralEquality()))
	calls := 0
	root.Subscribe(context.Background(), func(Value) { calls++ })

	// A structurally-identical but freshly-allocated map must dedup under
	// structural equality even though it is a different backing map.
	root.SetValue(Map(map[string]Value{"x": Leaf(1)}))
	assert.Equal(t, 1, calls)
}

func TestWriteThroughSequenceGapIsGracefulAddressingError(t *testing.T) {
	root := Root(Seq(Leaf(1), Leaf(2)))

	var diags []Diagnostic
	root.Diagnostics(context.Background(), func(d Diagnostic) { diags = append(diags, d) })

	assert.NotPanics(t, func() {
		root.Sub(5).SetValue(Leaf(99)) // index 5 is three past the current length of 2
	})

	assert.Equal(t, 2, root.Value().Len(), "the gapped write must be dropped, not applied")
	if assert.Len(t, diags, 1) {
		assert.Equal(t, DiagnosticAddressingError, diags[0].Kind)
		ae, ok := AsAddressingError(diags[0].Err)
		require.True(t, ok)
		assert.Equal(t, KindSeq, ae.Kind)
		assert.Equal(t, 5, ae.Key)
	}
}

func TestWithDiagnosticsRelaysEvents(t *testing.T) {
	diags := make(chan Diagnostic, 4)
	root := Root(Leaf(1), WithDiagnostics(diags))

	_, err := pluck(Leaf(1), Path{"x"})
	require.Error(t, err)
	root.tree.diagnostics.Publish(Diagnostic{Kind: DiagnosticAddressingError, Err: err})

	select {
	case d := <-diags:
		assert.Equal(t, DiagnosticAddressingError, d.Kind)
	default:
		t.Fatal("expected a diagnostic to be relayed")
	}
}
