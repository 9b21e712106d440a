package models

import "time"

// User is an identity record. Created at registration and immutable
// afterwards; email is unique (case-sensitive, as stored).
type User struct {
	ID             string
	Name           string
	Email          string
	HashedPassword string
	CreatedAt      time.Time
}
