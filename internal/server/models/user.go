package models

import "time"

// User is a registered account. Email is stored normalised (trimmed,
// lower-case) and is unique across the store.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
