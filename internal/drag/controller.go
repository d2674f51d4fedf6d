// Package drag tracks a pointer drag session over one floating widget and
// commits the final geometry exactly once on release. Intermediate motion
// only changes the visual geometry; nothing is persisted until the pointer
// goes up, and releasing always commits (there is no revert).
package drag

import (
	"errors"
	"sync"

	"github.com/akarpov/deskpad/internal/models"
)

// Kind identifies what a session drags and whether it moves or resizes.
type Kind int

const (
	KindNoteMove Kind = iota
	KindNoteResize
	KindTimeBoxMove
	KindTodoBoxMove
	KindTodoBoxResize
)

// Minimum widget extents applied while resizing.
const (
	MinWidth  = 120
	MinHeight = 80
)

var (
	ErrDragActive = errors.New("a drag session is already active")
	ErrNoDrag     = errors.New("no active drag session")
)

// isResize reports whether the kind changes size rather than position.
func (k Kind) isResize() bool {
	return k == KindNoteResize || k == KindTodoBoxResize
}

// isEntityScoped reports whether the target is an addressable entity that
// should be raised on grab (notes; the singleton boxes manage their own
// stacking through focus).
func (k Kind) isEntityScoped() bool {
	return k == KindNoteMove || k == KindNoteResize
}

// Point is a pointer coordinate.
type Point struct {
	X float64
	Y float64
}

// Callbacks receive the session lifecycle results. CommitPosition or
// CommitSize fires exactly once per session, on release. The kind tells the
// receiver which widget's geometry to persist.
type Callbacks struct {
	BringToFront   func(entityID string)
	CommitPosition func(kind Kind, entityID string, pos models.Position)
	CommitSize     func(kind Kind, entityID string, size models.Size)
}

// session is the owned record of one active drag.
type session struct {
	kind     Kind
	entityID string
	origin   Point
	pos      models.Position
	size     models.Size
}

// Controller is the two-state (idle/dragging) pointer machine. At most one
// session exists at a time.
type Controller struct {
	mu        sync.Mutex
	callbacks Callbacks
	active    *session
}

func NewController(cb Callbacks) *Controller {
	return &Controller{callbacks: cb}
}

// Dragging reports whether a session is active.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Start transitions idle -> dragging, capturing the pointer origin and the
// target's current geometry. Entity-scoped kinds are raised immediately so
// the grabbed widget is on top for the whole drag.
func (c *Controller) Start(kind Kind, entityID string, at Point, pos models.Position, size models.Size) error {
	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return ErrDragActive
	}
	c.active = &session{kind: kind, entityID: entityID, origin: at, pos: pos, size: size}
	bringToFront := c.callbacks.BringToFront
	c.mu.Unlock()

	if kind.isEntityScoped() && bringToFront != nil {
		bringToFront(entityID)
	}
	return nil
}

// Move applies the pointer delta to the visual geometry: position for move
// kinds, clamped width/height for resize kinds. The returned values are the
// uncommitted geometry to render.
func (c *Controller) Move(at Point) (models.Position, models.Size, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return models.Position{}, models.Size{}, ErrNoDrag
	}

	s := c.active
	dx := at.X - s.origin.X
	dy := at.Y - s.origin.Y
	s.origin = at

	if s.kind.isResize() {
		s.size.Width += dx
		s.size.Height += dy
		if s.size.Width < MinWidth {
			s.size.Width = MinWidth
		}
		if s.size.Height < MinHeight {
			s.size.Height = MinHeight
		}
	} else {
		s.pos.X += dx
		s.pos.Y += dy
	}
	return s.pos, s.size, nil
}

// Release reads back the visual geometry, commits it exactly once and
// returns to idle. A release without motion still commits: the caller gets
// the unchanged geometry.
func (c *Controller) Release(at Point) error {
	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return ErrNoDrag
	}
	s := c.active
	c.active = nil
	cb := c.callbacks
	c.mu.Unlock()

	if s.kind.isResize() {
		if cb.CommitSize != nil {
			cb.CommitSize(s.kind, s.entityID, s.size)
		}
	} else {
		if cb.CommitPosition != nil {
			cb.CommitPosition(s.kind, s.entityID, s.pos)
		}
	}
	return nil
}
