package rivulet

import (
	"context"

	"github.com/datawire/rivulet/internal/streamx"
)

// State is one node of the tree: a live view over the value addressed by
// resolve against whatever the root currently holds. For an ordinary
// Sub(key) chain resolve ignores its argument and always returns the
// same static Path; KeyedState's Key(k) instead gives it a resolver that
// rescans the parent sequence for k on every root, so a single State can
// keep tracking an item across reorders. Every other operation is
// written against resolve alone, which is what lets static and keyed
// nodes share one implementation.
type State struct {
	tree    *tree
	resolve func(root Value) (Path, bool)

	// traceForPath overrides how SetValue builds the outgoing Change's
	// Trace from the resolved path. nil means traceFromPath, the default
	// for every node except a KeyedState's Key(k) and the Sub nodes below
	// it (Sub inherits it), which attach a keys snapshot to the
	// sequence-addressing hop.
	traceForPath func(path Path) *Trace
}

// currentPath best-effort resolves this node's path against the root as
// it stands right now. For keyed items this is a snapshot, not a
// standing identity — it is used only to scope Diagnostics filtering.
func (s *State) currentPath() Path {
	p, ok := s.resolve(s.tree.currentRoot())
	if !ok {
		return nil
	}
	return p
}

// Sub addresses a child of this node by map field name or sequence
// index. Sub never validates key against the current shape — an
// addressing error, if any, surfaces lazily the first time the node's
// value is read or observed, not at Sub's call site.
func (s *State) Sub(key Key) *State {
	parent := s.resolve
	return &State{
		tree: s.tree,
		resolve: func(root Value) (Path, bool) {
			p, ok := parent(root)
			if !ok {
				return nil, false
			}
			return p.Append(key), true
		},
		traceForPath: s.traceForPath,
	}
}

// Value reads this node's current value by plucking its resolved path
// out of the retained root. A node whose address is currently absent
// (a missing field, an out-of-range index, or a keyed item that isn't
// in the sequence right now) reads as Undefined, not an error.
func (s *State) Value() Value {
	root := s.tree.currentRoot()
	path, ok := s.resolve(root)
	if !ok {
		return Undefined()
	}
	v, err := pluck(root, path)
	if err != nil {
		s.tree.diagnostics.Publish(Diagnostic{Kind: DiagnosticAddressingError, Path: path, Err: err})
		return Undefined()
	}
	return v
}

// SetValue writes to through this node: it computes a
// Change{From: current, To: to, Value: to} addressed by this node's
// current path and publishes it on the shared upstream, where the root
// binding applies it. A keyed item whose key is not currently present in
// the sequence has no address to write through, so SetValue on it is a
// no-op.
func (s *State) SetValue(to Value) {
	root := s.tree.currentRoot()
	path, ok := s.resolve(root)
	if !ok {
		return
	}
	from, err := pluck(root, path)
	if err != nil {
		s.tree.diagnostics.Publish(Diagnostic{Kind: DiagnosticAddressingError, Path: path, Err: err})
		return
	}
	buildTrace := traceFromPath
	if s.traceForPath != nil {
		buildTrace = s.traceForPath
	}
	s.tree.upstream.Publish(Change{
		Value: to,
		From:  from,
		To:    to,
		Trace: buildTrace(path),
	})
}

// resolution is one downstream Change narrowed to what this node cares
// about: whether to emit at all, and if so, the freshly plucked value.
type resolution struct {
	value Value
	emit  bool
}

// Subscribe registers sink to be called, synchronously and on the
// publishing goroutine's own stack, with this node's value: once
// immediately with the current value, and again every time a change on
// the shared downstream addresses this node, after the tree's equality
// has filtered out a value equal to the last one sent to this
// particular subscription. It never fires for a change whose trace
// proves it touched an unrelated sibling.
//
// Built out of streamx's Map/Filter/DistinctUntilChanged rather than a
// hand-rolled dedup: one Map narrows each Change to a resolution, Filter
// drops the ones this node has nothing to say about, a second Map
// unwraps the value, and DistinctUntilChanged applies the tree's
// equality — matching §3's "each node applies distinctUntilChanged"
// wording directly.
func (s *State) Subscribe(ctx context.Context, sink func(Value)) streamx.Subscription {
	resolved := streamx.Map(ctx, s.tree.downstream, func(c Change) resolution {
		path, ok := s.resolve(c.Value)
		if !ok {
			return resolution{value: Undefined(), emit: true}
		}
		if matches(path, c.Trace) == MatchNone {
			return resolution{emit: false}
		}
		v, err := pluck(c.Value, path)
		if err != nil {
			s.tree.diagnostics.Publish(Diagnostic{Kind: DiagnosticAddressingError, Path: path, Err: err})
			return resolution{emit: false}
		}
		return resolution{value: v, emit: true}
	})
	relevant := streamx.Filter(ctx, resolved, func(r resolution) bool { return r.emit })
	values := streamx.Map(ctx, relevant, func(r resolution) Value { return r.value })
	distinct := streamx.DistinctUntilChanged(ctx, values, s.tree.eq)
	return distinct.Subscribe(ctx, sink)
}

// UpstreamSink accepts changes already addressed with a full trace,
// letting an external source write into the tree without going through
// Sub/SetValue. Root.Upstream returns one scoped to the whole tree.
type UpstreamSink interface {
	Push(Change)
}

type upstreamSink struct{ t *tree }

func (u upstreamSink) Push(c Change) { u.t.upstream.Publish(c) }

// Upstream exposes the change sink every node ultimately writes
// through, for bridging from a source outside the tree that already
// knows how to construct full traces.
func (s *State) Upstream() UpstreamSink {
	return upstreamSink{t: s.tree}
}

// Downstream bridges the shared broadcast of applied changes onto a Go
// channel, for introspection, logging, or bridging into another stream
// framework. The channel is never closed by rivulet; cancel ctx to stop
// delivery and let it be garbage collected.
func (s *State) Downstream(ctx context.Context, buffer int) <-chan Change {
	return s.tree.downstream.Chan(ctx, buffer)
}

// DownstreamDefault is Downstream sized by rivuletconfig.Config's
// DownstreamBuffer (or its default, if the tree was built without
// WithConfig).
func (s *State) DownstreamDefault(ctx context.Context) <-chan Change {
	return s.Downstream(ctx, s.tree.downstreamBuf)
}

// DiagnosticsChan bridges this node's diagnostics (see Diagnostics) onto
// a plain Go channel, sized by buffer — ordinarily
// rivuletconfig.Config.DiagnosticsBuffer.
func (s *State) DiagnosticsChan(ctx context.Context, buffer int) <-chan Diagnostic {
	ch := make(chan Diagnostic, buffer)
	s.Diagnostics(ctx, func(d Diagnostic) {
		select {
		case ch <- d:
		case <-ctx.Done():
		}
	})
	return ch
}

// DiagnosticsDefault is DiagnosticsChan sized by
// rivuletconfig.Config's DiagnosticsBuffer.
func (s *State) DiagnosticsDefault(ctx context.Context) <-chan Diagnostic {
	return s.DiagnosticsChan(ctx, s.tree.diagnosticsBuf)
}
