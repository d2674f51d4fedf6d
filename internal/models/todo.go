package models

import "time"

// Todo is one to-do item. Fixed items recur daily: the rollover resets them
// to incomplete each day boundary. LastDate is the date key ("2006-01-02")
// of the day the item was last carried to; an item is visible only while
// LastDate equals today or the item is fixed.
type Todo struct {
	ID        string    `json:"-"`
	Owner     string    `json:"owner"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Fixed     bool      `json:"fixed"`
	LastDate  string    `json:"last_date"`
	Order     int       `json:"order"`
	Position  *Position `json:"position,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
