package syncstore

// EditState discriminates the overlay union: a value is either in sync with
// the last delivered snapshot or shadowed by an uncommitted local draft.
type EditState int

const (
	StateSynced EditState = iota
	StatePendingLocalEdit
)

// Overlay is the optimistic-overlay union for one edited value:
// Synced(snapshot) or PendingLocalEdit(snapshot, draft). Every new snapshot
// resolves it back to Synced; the draft exists only for the duration of an
// active edit.
type Overlay[T any] struct {
	state  EditState
	synced T
	draft  T
}

// NewOverlay returns a synced overlay holding the snapshot value.
func NewOverlay[T any](synced T) Overlay[T] {
	return Overlay[T]{state: StateSynced, synced: synced}
}

func (o Overlay[T]) State() EditState { return o.state }

// Value returns what the UI should display: the draft while an edit is
// pending, the synced value otherwise.
func (o Overlay[T]) Value() T {
	if o.state == StatePendingLocalEdit {
		return o.draft
	}
	return o.synced
}

// SyncedValue returns the last authoritative value regardless of drafts.
func (o Overlay[T]) SyncedValue() T { return o.synced }

// Begin starts (or replaces) a pending edit with the given draft.
func (o Overlay[T]) Begin(draft T) Overlay[T] {
	return Overlay[T]{state: StatePendingLocalEdit, synced: o.synced, draft: draft}
}

// Resolve folds in a newly delivered snapshot value, discarding any draft.
func (o Overlay[T]) Resolve(synced T) Overlay[T] {
	return NewOverlay(synced)
}
