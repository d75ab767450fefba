package rivulet

import (
	"context"

	"github.com/pkg/errors"

	"github.com/datawire/rivulet/internal/streamx"
)

// KeyFunc extracts the identity of a sequence item, the way an item's id
// field usually does. Its result is compared with ==, so it must return
// a comparable value.
type KeyFunc func(Value) any

// KeyedState wraps a State whose value is expected to be a KindSeq and
// diffs it by identity rather than by position: additions, deletions,
// and moves are told apart from in-place edits, and Key(k) keeps
// following one item across reorders instead of freezing to whatever
// index it started at.
//
// Grounded the way watchable.Map.Subscribe turns a raw before/after pair
// into a Snapshot's Updates list — here the "key" that ties an old entry
// to a new one is caller-supplied instead of being the map's own key,
// since the wrapped value is a sequence, not a map.
type KeyedState struct {
	base *State
	key  KeyFunc
}

// Keyed wraps base for identity-based diffing. base's current and future
// values are expected to be KindSeq (or KindUndefined, treated as
// empty); anything else is reported as an addressing error on read.
func Keyed(base *State, key KeyFunc) *KeyedState {
	return &KeyedState{base: base, key: key}
}

// seqAt plucks root's value at basePath and confirms it addresses a
// sequence (or Undefined, treated as empty). A leaf or map there is not
// a shape Key/Index/Changes can diff, so it is reported through the same
// *AddressingError channel as a failed Sub: the caller decides whether
// to return it synchronously (construction time) or as a Diagnostic
// (discovered while replaying a later change).
func seqAt(root Value, basePath Path, key any) (Value, error) {
	v, err := pluck(root, basePath)
	if err != nil {
		return Undefined(), err
	}
	switch v.Kind() {
	case KindSeq, KindUndefined:
		return v, nil
	default:
		return Undefined(), newAddressingError(basePath, key, v.Kind())
	}
}

// Key returns a State that keeps tracking the item identified by k,
// wherever it currently sits in the sequence. Reading it while no
// current item has that key yields Undefined, and it comes back to life
// automatically the moment an item with that key reappears.
//
// Key fails synchronously with an *AddressingError if the wrapped
// state's value is currently addressable but is not a sequence (a leaf
// or a map). If the wrapped value becomes non-sequence later, that is
// instead reported as a Diagnostic on each affected resolution, and the
// node simply reads as Undefined in the meantime.
func (ks *KeyedState) Key(k any) (*State, error) {
	parent := ks.base.resolve
	keyFn := ks.key
	tree := ks.base.tree

	root := tree.currentRoot()
	if basePath, ok := parent(root); ok {
		if _, err := seqAt(root, basePath, k); err != nil {
			return nil, err
		}
	}

	return &State{
		tree: tree,
		resolve: func(root Value) (Path, bool) {
			basePath, ok := parent(root)
			if !ok {
				return nil, false
			}
			seq, err := seqAt(root, basePath, k)
			if err != nil {
				tree.diagnostics.Publish(Diagnostic{Kind: DiagnosticAddressingError, Path: basePath, Err: err})
				return nil, false
			}
			for i, item := range seq.Items() {
				if keyFn(item) == k {
					return basePath.Append(i), true
				}
			}
			return nil, false
		},
		// Per the trace-enrichment contract: the hop addressing the
		// sequence index carries a keys snapshot (mapB as of this write)
		// so an external Downstream listener can correlate index to key
		// without rescanning.
		traceForPath: func(path Path) *Trace {
			t := traceFromPath(path)
			root := tree.currentRoot()
			basePath, ok := parent(root)
			if !ok || len(basePath) >= len(path) {
				return t
			}
			seq, err := seqAt(root, basePath, k)
			if err != nil {
				return t
			}
			indexed, ok := indexSeq(keyFn, seq)
			if !ok {
				return t
			}
			snapshot := make(map[any]int, len(indexed))
			for key, it := range indexed {
				snapshot[key] = it.index
			}
			return withKeysAt(t, len(basePath), snapshot)
		},
	}, nil
}

// Index returns a handle that tracks the current position of the item
// identified by k within the sequence, rather than its value: it emits
// the item's index whenever that index changes, and Undefined while no
// item carries key k.
//
// Index fails synchronously with an *AddressingError under the same
// condition as Key: the wrapped state's current value is addressable
// but not a sequence.
func (ks *KeyedState) Index(k any) (*KeyedIndex, error) {
	root := ks.base.tree.currentRoot()
	if basePath, ok := ks.base.resolve(root); ok {
		if _, err := seqAt(root, basePath, k); err != nil {
			return nil, err
		}
	}
	return &KeyedIndex{ks: ks, key: k}, nil
}

// KeyedIndex is the index(k) view of a KeyedState: a stream of where key
// k currently sits, as opposed to Key(k)'s stream of what it holds.
type KeyedIndex struct {
	ks  *KeyedState
	key any
}

func (ki *KeyedIndex) indexIn(root Value) (int, bool) {
	basePath, ok := ki.ks.base.resolve(root)
	if !ok {
		return 0, false
	}
	seq, err := seqAt(root, basePath, ki.key)
	if err != nil {
		ki.ks.base.tree.diagnostics.Publish(Diagnostic{Kind: DiagnosticAddressingError, Path: basePath, Err: err})
		return 0, false
	}
	for i, item := range seq.Items() {
		if ki.ks.key(item) == ki.key {
			return i, true
		}
	}
	return 0, false
}

// Value reads the current index of this key, or Undefined if absent.
func (ki *KeyedIndex) Value() Value {
	root := ki.ks.base.tree.currentRoot()
	if i, ok := ki.indexIn(root); ok {
		return Leaf(i)
	}
	return Undefined()
}

// Subscribe delivers this key's index, deduped the same way State.Subscribe
// dedupes a value stream, including the initial replay. Built out of the
// same Map/Filter/Map/DistinctUntilChanged chain as State.Subscribe.
func (ki *KeyedIndex) Subscribe(ctx context.Context, sink func(Value)) streamx.Subscription {
	resolved := streamx.Map(ctx, ki.ks.base.tree.downstream, func(c Change) resolution {
		basePath, ok := ki.ks.base.resolve(c.Value)
		if !ok {
			return resolution{value: Undefined(), emit: true}
		}
		if matches(basePath, c.Trace) == MatchNone {
			return resolution{emit: false}
		}
		if i, found := ki.indexIn(c.Value); found {
			return resolution{value: Leaf(i), emit: true}
		}
		return resolution{value: Undefined(), emit: true}
	})
	relevant := streamx.Filter(ctx, resolved, func(r resolution) bool { return r.emit })
	values := streamx.Map(ctx, relevant, func(r resolution) Value { return r.value })
	distinct := streamx.DistinctUntilChanged(ctx, values, ki.ks.base.tree.eq)
	return distinct.Subscribe(ctx, sink)
}

// Addition is one entry of ListChanges.Additions: an item, keyed by a
// value not present in the previous sequence, at its index in the new one.
type Addition struct {
	Index int
	Item  Value
}

// Deletion is one entry of ListChanges.Deletions: an item whose key was
// in the previous sequence but not the new one, at its old index.
type Deletion struct {
	Index int
	Item  Value
}

// Move is one entry of ListChanges.Moves: an item present in both
// sequences whose index changed. Its Item is the post-change value.
type Move struct {
	OldIndex, NewIndex int
	Item               Value
}

// ListChanges is the diff between a KeyedState's previous and current
// sequence. An item present in both sequences at the same index, even
// if its value changed, appears in none of these three lists — that
// edit surfaces only as an emission on Key(k).
type ListChanges struct {
	Additions []Addition
	Deletions []Deletion
	Moves     []Move
}

// Changes subscribes to the keyed diff itself. The first call to sink
// lists every item of the current sequence as an addition (it is skipped
// when that sequence is empty); after that, sink is called once per
// applied change to the base sequence whose diff is non-empty, carrying
// every addition, deletion, and move since the previous value, via two
// key-to-(index,item) maps built in one O(n) pass each and compared in a
// second O(n) pass. A change that produces an empty diff (such as an
// in-place edit of an item) does not call sink. All duplicate keys in
// each new sequence are reported together as one DiagnosticDuplicateKey,
// and resolved by first-occurrence-wins.
func (ks *KeyedState) Changes(ctx context.Context, sink func(ListChanges)) streamx.Subscription {
	var prev map[any]indexedItem
	first := true

	return ks.base.Subscribe(ctx, func(v Value) {
		cur, ok := indexSeq(ks.key, v)
		if !ok {
			err := newAddressingError(ks.base.currentPath(), nil, v.Kind())
			ks.base.tree.diagnostics.Publish(Diagnostic{Kind: DiagnosticAddressingError, Path: ks.base.currentPath(), Err: err})
			return
		}

		var dups []error
		for k, idxs := range dupesOf(ks.key, v) {
			for _, dupIdx := range idxs {
				dups = append(dups, duplicateKeyError(k, dupIdx))
			}
		}
		emitDuplicateKeys(ks.base.tree.diagnostics, ks.base.currentPath(), dups)

		if first {
			first = false
			prev = cur
			if len(cur) == 0 {
				return
			}
			var lc ListChanges
			for _, it := range cur {
				lc.Additions = append(lc.Additions, Addition{Index: it.index, Item: it.item})
			}
			sink(lc)
			return
		}

		var lc ListChanges
		for k, newIt := range cur {
			oldIt, existed := prev[k]
			if !existed {
				lc.Additions = append(lc.Additions, Addition{Index: newIt.index, Item: newIt.item})
				continue
			}
			if oldIt.index != newIt.index {
				lc.Moves = append(lc.Moves, Move{OldIndex: oldIt.index, NewIndex: newIt.index, Item: newIt.item})
			}
		}
		for k, oldIt := range prev {
			if _, stillThere := cur[k]; !stillThere {
				lc.Deletions = append(lc.Deletions, Deletion{Index: oldIt.index, Item: oldIt.item})
			}
		}
		prev = cur
		if len(lc.Additions) > 0 || len(lc.Deletions) > 0 || len(lc.Moves) > 0 {
			sink(lc)
		}
	})
}

type indexedItem struct {
	index int
	item  Value
}

// indexSeq builds the key -> (index, item) map for one side of a diff,
// first-occurrence-wins on a duplicate key. ok is false when v is
// neither a sequence nor Undefined, in which case the map is empty and
// must not be mistaken for an empty sequence.
func indexSeq(key KeyFunc, v Value) (out map[any]indexedItem, ok bool) {
	if v.Kind() == KindUndefined {
		return map[any]indexedItem{}, true
	}
	if v.Kind() != KindSeq {
		return map[any]indexedItem{}, false
	}
	items := v.Items()
	out = make(map[any]indexedItem, len(items))
	for i, item := range items {
		k := key(item)
		if _, exists := out[k]; exists {
			continue
		}
		out[k] = indexedItem{index: i, item: item}
	}
	return out, true
}

// dupesOf reports, for diagnostics only, every index beyond the first
// that shares a key with an earlier item.
func dupesOf(key KeyFunc, v Value) map[any][]int {
	if v.Kind() != KindSeq {
		return nil
	}
	seen := map[any]bool{}
	dups := map[any][]int{}
	for i, item := range v.Items() {
		k := key(item)
		if seen[k] {
			dups[k] = append(dups[k], i)
		}
		seen[k] = true
	}
	return dups
}

func duplicateKeyError(key any, index int) error {
	return errors.Errorf("rivulet: duplicate key %v at index %d; first occurrence wins", key, index)
}
