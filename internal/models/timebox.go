package models

import (
	"fmt"
	"strconv"
)

// Planner hours covered by the time-box widget, inclusive.
const (
	TimeBoxFirstHour = 7
	TimeBoxLastHour  = 23
)

// SlotPair holds the two free-text entries of one planner hour.
type SlotPair struct {
	Slot1 string `json:"slot1"`
	Slot2 string `json:"slot2"`
}

// TimeBoxData is the planner document for one calendar day, keyed by the
// date string. Entries is keyed by hour ("7".."23"), Colors by the
// "hour-slot" composite key (e.g. "9-2").
type TimeBoxData struct {
	ID       string              `json:"-"`
	Owner    string              `json:"owner"`
	Date     string              `json:"date"`
	Entries  map[string]SlotPair `json:"entries"`
	Colors   map[string]string   `json:"colors"`
	Position *Position           `json:"position,omitempty"`
}

// NewTimeBoxData synthesizes an empty planner document for a day that has
// no stored document yet.
func NewTimeBoxData(owner, date string) *TimeBoxData {
	return &TimeBoxData{
		Owner:    owner,
		Date:     date,
		Entries:  make(map[string]SlotPair),
		Colors:   make(map[string]string),
		Position: &Position{X: 40, Y: 40},
	}
}

// HourKey returns the Entries key for an hour.
func HourKey(hour int) string {
	return strconv.Itoa(hour)
}

// SlotColorKey returns the Colors key for an (hour, slot) pair.
func SlotColorKey(hour, slot int) string {
	return fmt.Sprintf("%d-%d", hour, slot)
}

// Clone returns a deep copy. Mutation paths merge against a clone so a
// failed write never corrupts the cached snapshot.
func (t *TimeBoxData) Clone() *TimeBoxData {
	c := *t
	c.Entries = make(map[string]SlotPair, len(t.Entries))
	for k, v := range t.Entries {
		c.Entries[k] = v
	}
	c.Colors = make(map[string]string, len(t.Colors))
	for k, v := range t.Colors {
		c.Colors[k] = v
	}
	if t.Position != nil {
		p := *t.Position
		c.Position = &p
	}
	return &c
}
