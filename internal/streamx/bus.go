// Package streamx implements the "hot latest-value stream" primitive that
// rivulet's change-propagation engine is built on top of: multicast
// subscription, replay of the latest published value on subscribe, and
// map/filter/distinct composition. State.Subscribe and KeyedIndex.Subscribe
// are themselves built out of these combinators rather than reimplementing
// dedup by hand; a bare merge/takeUntil idiom has no use here since every
// node filters the one shared per-tree bus instead of composing several
// independent source buses.
//
// It is grounded on the subscribe/coalesce goroutine in watchable.Map: a
// mutex-guarded set of subscriber callbacks plus a cached latest value,
// context-scoped subscription lifetime, and a broadcast loop that never
// leaves a publish half delivered. Unlike that implementation, delivery
// here is a direct synchronous callback rather than a buffered channel
// per subscriber — rivulet's engine requires emissions to happen on the
// publishing goroutine's own stack (see rivulet.Root), and a Bus is the
// thing both the engine and any bridging code subscribe to.
package streamx

import (
	"context"
	"sync"
)

// Subscription is the cancellation handle returned by Bus.Subscribe.
// Cancelling removes the subscriber from the multicast set immediately;
// it will not observe any later Publish, even one already in flight for
// other subscribers (an in-progress broadcast still finishes delivering
// to the other subscribers it snapshotted).
type Subscription interface {
	Cancel()
}

type subscription[T any] struct {
	bus  *Bus[T]
	sink func(T)
}

func (s *subscription[T]) Cancel() {
	s.bus.mu.Lock()
	delete(s.bus.subscribers, s)
	s.bus.mu.Unlock()
}

// Bus is a hot, replay-latest, multicast stream of values of type T.
type Bus[T any] struct {
	mu          sync.Mutex
	latest      T
	hasLatest   bool
	subscribers map[*subscription[T]]struct{}
	dispatching bool
	queue       []T
}

// New returns an empty Bus with no latest value yet.
func New[T any]() *Bus[T] {
	return &Bus[T]{subscribers: make(map[*subscription[T]]struct{})}
}

// NewWithInitial returns a Bus whose latest value is already v, so the
// very first subscriber replays v without anybody having called Publish.
func NewWithInitial[T any](v T) *Bus[T] {
	b := New[T]()
	b.latest = v
	b.hasLatest = true
	return b
}

// Latest returns the most recently published value, if any.
func (b *Bus[T]) Latest() (v T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.hasLatest
}

// Subscribe registers sink and, if the bus already has a latest value,
// immediately invokes sink with it (synchronously, before Subscribe
// returns). sink is then invoked once per subsequent Publish until the
// returned Subscription is cancelled or ctx is done. ctx may be nil, in
// which case the subscription only ends via an explicit Cancel.
func (b *Bus[T]) Subscribe(ctx context.Context, sink func(T)) Subscription {
	b.mu.Lock()
	sub := &subscription[T]{bus: b, sink: sink}
	b.subscribers[sub] = struct{}{}
	latest, hasLatest := b.latest, b.hasLatest
	b.mu.Unlock()

	if hasLatest {
		sink(latest)
	}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			sub.Cancel()
		}()
	}
	return sub
}

// Publish delivers v to every subscriber currently registered, calling
// each sink synchronously in turn on the calling goroutine.
//
// If a subscriber's sink calls Publish again on the same bus (a write
// triggered from inside a change notification), that nested Publish does
// not recurse into a second broadcast; it is queued and drained by this,
// the outermost, call once the current broadcast has finished. This is
// what gives rivulet's root binding its FIFO reentrancy guarantee without
// unbounded stack growth.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	if b.dispatching {
		b.queue = append(b.queue, v)
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	b.latest = v
	b.hasLatest = true
	b.mu.Unlock()

	b.broadcast(v)

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.dispatching = false
			b.mu.Unlock()
			return
		}
		next := b.queue[0]
		b.queue = b.queue[1:]
		b.latest = next
		b.mu.Unlock()
		b.broadcast(next)
	}
}

func (b *Bus[T]) broadcast(v T) {
	b.mu.Lock()
	subs := make([]*subscription[T], 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		b.mu.Lock()
		_, live := b.subscribers[s]
		b.mu.Unlock()
		if live {
			s.sink(v)
		}
	}
}

// Chan bridges this bus onto a plain Go channel of the given buffer size,
// for callers that want a channel to read rather than a callback, the
// way node.Downstream()/node.Upstream() are meant to be used. The channel
// is never closed; it is intended to be read for as long as ctx is alive.
func (b *Bus[T]) Chan(ctx context.Context, buffer int) <-chan T {
	ch := make(chan T, buffer)
	b.Subscribe(ctx, func(v T) {
		select {
		case ch <- v:
		case <-ctx.Done():
		}
	})
	return ch
}
