package rivulet

import (
	"github.com/pkg/errors"
)

// Predicate decides whether a write through a VerifiedState may proceed.
// It sees the same Change the node itself would have published.
type Predicate func(Change) bool

// VerifiedState gates writes to base behind predicate. An accepted write
// is forwarded unchanged; a rejected one is dropped silently — never
// optimistically applied and then rolled back — and reported only as a
// DiagnosticVerificationRejected. Callers that need to know whether
// their own write was accepted should watch base's own downstream value
// and compare, rather than expect an error return from SetValue: the
// engine's root round-trip is the source of eventual consistency here.
type VerifiedState struct {
	base      *State
	predicate Predicate
}

// Verified wraps base so every write must satisfy predicate before it
// reaches the shared upstream.
func Verified(base *State, predicate Predicate) *VerifiedState {
	return &VerifiedState{base: base, predicate: predicate}
}

// State exposes the read side unchanged: verification only gates
// writes, so subscribing through the wrapped base observes every
// applied change exactly as any other view of the same address would.
func (vs *VerifiedState) State() *State {
	return vs.base
}

// Value reads through to the wrapped node.
func (vs *VerifiedState) Value() Value {
	return vs.base.Value()
}

// SetValue builds the same Change base.SetValue would and, if predicate
// accepts it, publishes it. A rejected change is dropped on the floor
// and reported as a DiagnosticVerificationRejected instead.
func (vs *VerifiedState) SetValue(to Value) {
	root := vs.base.tree.currentRoot()
	path, ok := vs.base.resolve(root)
	if !ok {
		return
	}
	from, err := pluck(root, path)
	if err != nil {
		vs.base.tree.diagnostics.Publish(Diagnostic{Kind: DiagnosticAddressingError, Path: path, Err: err})
		return
	}
	buildTrace := traceFromPath
	if vs.base.traceForPath != nil {
		buildTrace = vs.base.traceForPath
	}
	change := Change{Value: to, From: from, To: to, Trace: buildTrace(path)}
	if !vs.predicate(change) {
		vs.base.tree.diagnostics.Publish(Diagnostic{
			Kind: DiagnosticVerificationRejected,
			Path: path,
			Err:  errors.Errorf("rivulet: verification rejected write at %s", path),
		})
		return
	}
	vs.base.tree.upstream.Publish(change)
}
