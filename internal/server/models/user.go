package models

import "time"

// User is a registered account. PasswordHash holds the bcrypt hash and is
// never serialized.
type User struct {
	ID           int64
	Email        string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string `json:"-"`
	IsActive     bool
	CreatedAt    time.Time
}
