// Package common contains shared constants and sentinel errors used across
// gotodo components.
package common

// AccessTokenCookieName is the cookie that carries the signed session token
// between the browser and the server.
const AccessTokenCookieName = "access_token"

// Todo priority bounds, inclusive.
const (
	MinTodoPriority = 1
	MaxTodoPriority = 5
)

// Column limits, in characters, matching the VARCHAR sizes in migrations.
const (
	MaxEmailLength     = 255
	MaxUsernameLength  = 100
	MaxNameLength      = 100
	MaxTodoTitleLength = 255
)
