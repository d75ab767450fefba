package rivulet

import (
	"context"
	"sync"

	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"

	"github.com/datawire/rivulet/internal/streamx"
	"github.com/datawire/rivulet/rivuletconfig"
)

// tree is the plumbing shared by every node of one rivulet instance: the
// two buses nodes are views over (children hold the shared root
// downstream and upstream instead of parent pointers), the retained root
// value only the root binding mutates, and the equality strategy every
// node inherits.
type tree struct {
	mu          sync.Mutex
	root        Value
	downstream  *streamx.Bus[Change]
	upstream    *streamx.Bus[Change]
	diagnostics *diagnosticsBus
	eq          Equality
	logCtx      context.Context

	downstreamBuf  int
	diagnosticsBuf int
}

func (t *tree) currentRoot() Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// rootConfig accumulates RootOption settings before Root builds the tree.
type rootConfig struct {
	eq       Equality
	logCtx   context.Context
	diagSink chan<- Diagnostic
	tuning   rivuletconfig.Config
}

// RootOption configures a tree at construction time.
type RootOption func(*rootConfig)

// WithEquality overrides the default ReferenceEquality used for the
// dedup every node applies to its emissions.
func WithEquality(eq Equality) RootOption {
	return func(c *rootConfig) { c.eq = eq }
}

// WithLogContext supplies the context (and whatever dlog.Logger it
// carries, via dlog.WithLogger) that the engine logs applied changes and
// addressing errors through. Without this, dlog's fallback logger is used.
func WithLogContext(ctx context.Context) RootOption {
	return func(c *rootConfig) { c.logCtx = ctx }
}

// WithDiagnostics relays every Diagnostic raised anywhere in the tree to
// sink. Sends are non-blocking; a full sink drops the diagnostic and
// logs that it did, rather than stalling the engine's dispatch loop.
func WithDiagnostics(sink chan<- Diagnostic) RootOption {
	return func(c *rootConfig) { c.diagSink = sink }
}

// WithConfig supplies the buffer-size tuning ordinarily loaded with
// rivuletconfig.FromEnv. Without this, rivuletconfig's defaults apply.
func WithConfig(cfg rivuletconfig.Config) RootOption {
	return func(c *rootConfig) { c.tuning = cfg }
}

// Root constructs the top-level State from an initial value. Equality
// defaults to ReferenceEquality; see WithEquality to override.
func Root(initial Value, opts ...RootOption) *State {
	cfg := rootConfig{
		eq:     ReferenceEquality(),
		logCtx: context.Background(),
		tuning: rivuletconfig.Config{DownstreamBuffer: 1, DiagnosticsBuffer: 16},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logCtx := dlog.WithField(cfg.logCtx, "rivulet_root", uuid.New().String())

	t := &tree{
		root: initial,
		downstream: streamx.NewWithInitial(Change{
			Value: initial,
			From:  Undefined(),
			To:    initial,
			Trace: nil,
		}),
		upstream:       streamx.New[Change](),
		diagnostics:    newDiagnosticsBus(),
		eq:             cfg.eq,
		logCtx:         logCtx,
		downstreamBuf:  cfg.tuning.DownstreamBuffer,
		diagnosticsBuf: cfg.tuning.DiagnosticsBuffer,
	}

	// The root binding: the sole subscriber to upstream, applying each
	// accepted change to the retained root value and rebroadcasting it
	// on downstream with Value set to the whole new root.
	t.upstream.Subscribe(nil, func(c Change) {
		path := pathFromTrace(c.Trace)

		t.mu.Lock()
		newRoot, err := replace(t.root, path, c.To)
		if err != nil {
			t.mu.Unlock()
			dlog.Errorf(t.logCtx, "rivulet: dropping write at %s: %v", path, err)
			t.diagnostics.Publish(Diagnostic{Kind: DiagnosticAddressingError, Path: path, Err: err})
			return
		}
		t.root = newRoot
		t.mu.Unlock()

		dlog.Debugf(t.logCtx, "rivulet: applied change at %s", path)
		t.downstream.Publish(Change{
			Value: newRoot,
			From:  c.From,
			To:    c.To,
			Trace: c.Trace,
		})
	})

	if cfg.diagSink != nil {
		t.diagnostics.Subscribe(nil, func(d Diagnostic) {
			select {
			case cfg.diagSink <- d:
			default:
				dlog.Errorf(t.logCtx, "rivulet: dropping diagnostic (sink full): %s at %s", d.Kind, d.Path)
			}
		})
	}

	return &State{
		tree:    t,
		resolve: func(Value) (Path, bool) { return Path{}, true },
	}
}
