package rivulet

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/datawire/rivulet/internal/streamx"
)

// DiagnosticKind classifies a non-fatal, out-of-band event raised by the
// engine: errors that are local to one stream and must not propagate to
// siblings or ancestors.
type DiagnosticKind int

const (
	// DiagnosticAddressingError: Sub(k) on a leaf, or Key(k)/Index(k)
	// on a non-sequence, discovered while replaying an already-arrived
	// change rather than at the call that would return it directly.
	DiagnosticAddressingError DiagnosticKind = iota
	// DiagnosticDuplicateKey: a KeyedState's diff found two items with
	// the same key in the new sequence; the first occurrence won, and
	// the diff proceeded regardless.
	DiagnosticDuplicateKey
	// DiagnosticVerificationRejected: a VerifiedState's predicate
	// rejected a change; it was not forwarded, and the rejection is
	// reported here rather than as an error returned to the writer.
	DiagnosticVerificationRejected
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagnosticAddressingError:
		return "addressing-error"
	case DiagnosticDuplicateKey:
		return "duplicate-key"
	case DiagnosticVerificationRejected:
		return "verification-rejected"
	default:
		return "unknown"
	}
}

// Diagnostic is one event on a node's diagnostics side channel.
type Diagnostic struct {
	Kind DiagnosticKind
	Path Path
	Err  error
}

// diagnosticsBus is shared by an entire tree, exactly like the change
// bus: every node is a filter over the same broadcast rather than owning
// its own.
type diagnosticsBus = streamx.Bus[Diagnostic]

func newDiagnosticsBus() *diagnosticsBus {
	return streamx.New[Diagnostic]()
}

// emitDuplicateKeys collects every duplicate-key finding from a single
// diff pass into one Diagnostic, aggregated with go-multierror so a
// listener sees "N duplicates in this emission" as one event rather than
// N separate ones.
func emitDuplicateKeys(bus *diagnosticsBus, path Path, dups []error) {
	if len(dups) == 0 {
		return
	}
	var merr *multierror.Error
	for _, d := range dups {
		merr = multierror.Append(merr, d)
	}
	bus.Publish(Diagnostic{
		Kind: DiagnosticDuplicateKey,
		Path: path,
		Err:  merr.ErrorOrNil(),
	})
}

// Diagnostics returns the stream of non-fatal events whose Path is at or
// below node's own path. The filter is a plain path-prefix check, not the
// matches walk the change downstream uses: a diagnostic addressed to an
// ancestor of the node is not delivered.
func (s *State) Diagnostics(ctx context.Context, sink func(Diagnostic)) streamx.Subscription {
	path := s.currentPath()
	return s.tree.diagnostics.Subscribe(ctx, func(d Diagnostic) {
		if len(d.Path) < len(path) {
			return
		}
		for i, k := range path {
			if d.Path[i] != k {
				return
			}
		}
		sink(d)
	})
}
