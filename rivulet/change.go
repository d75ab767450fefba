package rivulet

// Change carries one mutation through the engine, from the node that
// wrote it, up through the root binding, and back down to every node
// whose subtree the write touches.
type Change struct {
	// Value is the post-change value of the node emitting or observing
	// the change — from that node's own perspective, not the origin's.
	Value Value
	// From and To are the pre- and post-change values at the change's
	// origin point, the deepest addressed location. They are absent
	// (IsUndefined) when the change's origin is the same node that is
	// emitting or observing it, or when the origin itself had no prior
	// value.
	From, To Value
	// Trace addresses the change's origin from the root, or is nil for
	// a root-origin change (a wholesale replacement of the root value).
	Trace *Trace
}
