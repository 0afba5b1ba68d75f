// Package gameerr declares the error kinds the party server reports to
// clients. Operations wrap these sentinels with context; the HTTP layer only
// cares which sentinel an error matches.
package gameerr

import "errors"

// User profile errors.
var (
	ErrUnverifiedUser      = errors.New("user could not be verified")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExisting = errors.New("user already exists")
	ErrIdenticalUser       = errors.New("identical user")
)

// Room errors.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrNoRoomAvailable = errors.New("no room for rooms")
)

// Session errors.
var (
	ErrIllegalTransition      = errors.New("illegal game state transition")
	ErrInsufficientPermission = errors.New("insufficient permission")
	ErrNotEnoughPlayers       = errors.New("not enough players")
)

// Persistence errors.
var (
	ErrDatabaseInsert = errors.New("database insert failed")
)
