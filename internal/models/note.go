// Package models defines the document shapes persisted to the remote store.
// Every type carries JSON tags matching the stored field names; document ids
// live outside the payload and are attached by the data layer.
package models

import "time"

// NoteStatus is the lifecycle state of a sticky note. A note is in exactly
// one state at a time; only active notes render as floating windows.
type NoteStatus string

const (
	NoteStatusActive    NoteStatus = "active"
	NoteStatusMinimized NoteStatus = "minimized"
	NoteStatusArchived  NoteStatus = "archived"
)

// Position is a screen coordinate in logical pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a widget extent in logical pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Note is one sticky note. LastEdited drives recency ordering (and with it
// z-order restoration), so position-only updates must not refresh it.
type Note struct {
	ID         string     `json:"-"`
	Owner      string     `json:"owner"`
	Content    string     `json:"content"`
	Background string     `json:"background"`
	Foreground string     `json:"foreground"`
	Position   Position   `json:"position"`
	Size       *Size      `json:"size,omitempty"`
	Status     NoteStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	LastEdited time.Time  `json:"last_edited"`
}
