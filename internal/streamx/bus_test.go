package streamx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/rivulet/internal/streamx"
)

func TestSubscribeReplaysLatest(t *testing.T) {
	ctx := context.Background()
	bus := streamx.NewWithInitial(1)

	var got []int
	bus.Subscribe(ctx, func(v int) { got = append(got, v) })

	assert.Equal(t, []int{1}, got)

	bus.Publish(2)
	assert.Equal(t, []int{1, 2}, got)
}

func TestSubscribeWithNoLatestDoesNotFire(t *testing.T) {
	ctx := context.Background()
	bus := streamx.New[int]()

	fired := false
	bus.Subscribe(ctx, func(int) { fired = true })

	assert.False(t, fired)
}

func TestPublishFanOut(t *testing.T) {
	ctx := context.Background()
	bus := streamx.New[string]()

	var a, b []string
	bus.Subscribe(ctx, func(v string) { a = append(a, v) })
	bus.Subscribe(ctx, func(v string) { b = append(b, v) })

	bus.Publish("x")
	bus.Publish("y")

	assert.Equal(t, []string{"x", "y"}, a)
	assert.Equal(t, []string{"x", "y"}, b)
}

func TestCancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	bus := streamx.New[int]()

	var got []int
	sub := bus.Subscribe(ctx, func(v int) { got = append(got, v) })
	bus.Publish(1)
	sub.Cancel()
	bus.Publish(2)

	assert.Equal(t, []int{1}, got)
}

func TestReentrantPublishIsQueuedFIFO(t *testing.T) {
	ctx := context.Background()
	bus := streamx.New[int]()

	var order []int
	bus.Subscribe(ctx, func(v int) {
		order = append(order, v)
		if v == 1 {
			// Reentrant publish from inside a subscriber: must not
			// interleave into this broadcast, must run after it.
			bus.Publish(2)
			bus.Publish(3)
		}
	})

	bus.Publish(1)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestContextCancelUnsubscribes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := streamx.New[int]()

	var got []int
	bus.Subscribe(ctx, func(v int) { got = append(got, v) })
	cancel()

	require.Eventually(t, func() bool {
		bus.Publish(1)
		return len(got) == 0
	}, shortTimeout, shortTick)
}

func TestDistinctUntilChanged(t *testing.T) {
	ctx := context.Background()
	src := streamx.New[int]()
	dst := streamx.DistinctUntilChanged(ctx, src, func(a, b int) bool { return a == b })

	var got []int
	dst.Subscribe(ctx, func(v int) { got = append(got, v) })

	src.Publish(1)
	src.Publish(1)
	src.Publish(2)
	src.Publish(2)
	src.Publish(1)

	assert.Equal(t, []int{1, 2, 1}, got)
}

func TestMapAndFilter(t *testing.T) {
	ctx := context.Background()
	src := streamx.New[int]()
	doubled := streamx.Map(ctx, src, func(v int) int { return v * 2 })
	evens := streamx.Filter(ctx, doubled, func(v int) bool { return v%4 == 0 })

	var got []int
	evens.Subscribe(ctx, func(v int) { got = append(got, v) })

	src.Publish(1)
	src.Publish(2)
	src.Publish(3)
	src.Publish(4)

	assert.Equal(t, []int{4, 8}, got)
}
