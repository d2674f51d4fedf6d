// Package desk binds the sync store to the pointer and stacking machinery,
// giving an embedding surface one place to route workspace gestures: grab,
// drag, resize and focus.
package desk

import (
	"context"
	"sync"
	"time"

	"github.com/akarpov/deskpad/internal/drag"
	"github.com/akarpov/deskpad/internal/logging"
	"github.com/akarpov/deskpad/internal/models"
	"github.com/akarpov/deskpad/internal/syncstore"
	"github.com/akarpov/deskpad/internal/zorder"
)

// commitTimeout bounds the write-through of a released drag.
const commitTimeout = 10 * time.Second

// Widget ids of the singleton floating windows in the stacking map. Notes
// stack under their document id.
const (
	WidgetTimeBox = "timebox"
	WidgetTodoBox = "todo-box"
)

// Desk owns the client-side stacking orders and a drag controller whose
// commits write through the store.
type Desk struct {
	store *syncstore.Store
	log   logging.Logger
	drag  *drag.Controller

	mu     sync.Mutex
	orders map[string]int
}

func New(store *syncstore.Store, log logging.Logger) *Desk {
	d := &Desk{
		store:  store,
		log:    log,
		orders: make(map[string]int),
	}
	d.drag = drag.NewController(drag.Callbacks{
		BringToFront:   d.raiseNote,
		CommitPosition: d.commitPosition,
		CommitSize:     d.commitSize,
	})
	return d
}

// raiseNote handles a note grab: topmost locally, recency refreshed
// remotely so the stacking survives a restart.
func (d *Desk) raiseNote(id string) {
	d.Focus(id)

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if err := d.store.BringNoteToFront(ctx, id); err != nil {
		d.log.Error(ctx, "bringing note to front", "id", id, "error", err)
	}
}

// Drag returns the pointer controller; the embedding surface feeds it
// Start/Move/Release events.
func (d *Desk) Drag() *drag.Controller {
	return d.drag
}

// Focus raises one widget above everything else.
func (d *Desk) Focus(id string) {
	d.mu.Lock()
	d.orders = zorder.Focus(d.orders, id)
	d.mu.Unlock()
}

// Order returns the stacking order of a widget; unknown widgets sit at the
// baseline.
func (d *Desk) Order(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.orders[id]; ok {
		return o
	}
	return zorder.Baseline
}

// Prune drops stacking entries for widgets that no longer exist, keeping
// the ids passed in.
func (d *Desk) Prune(keep []string) {
	alive := make(map[string]struct{}, len(keep)+2)
	for _, id := range keep {
		alive[id] = struct{}{}
	}
	alive[WidgetTimeBox] = struct{}{}
	alive[WidgetTodoBox] = struct{}{}

	d.mu.Lock()
	for id := range d.orders {
		if _, ok := alive[id]; !ok {
			delete(d.orders, id)
		}
	}
	d.mu.Unlock()
}

func (d *Desk) commitPosition(kind drag.Kind, entityID string, pos models.Position) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	var err error
	switch kind {
	case drag.KindNoteMove:
		err = d.store.UpdateNotePosition(ctx, entityID, pos)
	case drag.KindTimeBoxMove:
		err = d.store.UpdateTimeBoxPosition(ctx, pos)
	case drag.KindTodoBoxMove:
		err = d.store.UpdateTodoBoxPosition(ctx, pos)
	}
	if err != nil {
		d.log.Error(ctx, "committing drag position", "kind", int(kind), "id", entityID, "error", err)
	}
}

func (d *Desk) commitSize(kind drag.Kind, entityID string, size models.Size) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	var err error
	switch kind {
	case drag.KindNoteResize:
		err = d.store.UpdateNoteSize(ctx, entityID, size)
	case drag.KindTodoBoxResize:
		err = d.store.UpdateTodoBoxHeight(ctx, size.Height)
	}
	if err != nil {
		d.log.Error(ctx, "committing drag size", "kind", int(kind), "id", entityID, "error", err)
	}
}
