package streamx

import "context"

// Map subscribes to src and republishes f(v) on a new Bus for every v
// src publishes, for as long as ctx is alive.
func Map[T, U any](ctx context.Context, src *Bus[T], f func(T) U) *Bus[U] {
	dst := New[U]()
	src.Subscribe(ctx, func(v T) {
		dst.Publish(f(v))
	})
	return dst
}

// Filter republishes only the values from src that satisfy pred.
func Filter[T any](ctx context.Context, src *Bus[T], pred func(T) bool) *Bus[T] {
	dst := New[T]()
	src.Subscribe(ctx, func(v T) {
		if pred(v) {
			dst.Publish(v)
		}
	})
	return dst
}

// DistinctUntilChanged suppresses republishing a value equal (per eq) to
// the immediately preceding one.
func DistinctUntilChanged[T any](ctx context.Context, src *Bus[T], eq func(a, b T) bool) *Bus[T] {
	dst := New[T]()
	var (
		prev     T
		havePrev bool
	)
	src.Subscribe(ctx, func(v T) {
		if havePrev && eq(prev, v) {
			return
		}
		prev, havePrev = v, true
		dst.Publish(v)
	})
	return dst
}

