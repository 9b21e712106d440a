package models

import "time"

// Note is a user-owned note.
type Note struct {
	ID        string
	OwnerID   string
	Title     string
	Content   string
	Color     int64
	CreatedAt time.Time
}
