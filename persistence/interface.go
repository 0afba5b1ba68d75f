// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/partyserver/models"
)

// ErrRecordNotFound is returned by lookups that matched nothing.
var ErrRecordNotFound = errors.New("record not found")

// UserDirectory is the narrow read-side view the game core depends on: it
// only ever verifies that a user exists and resolves ids to display names.
type UserDirectory interface {
	Exists(userID string) (bool, error)
	UsernameOf(userID string) (string, error)
}

// Database is the full user profile document store.
type Database interface {
	UserDirectory

	InsertProfile(profile *models.UserProfile) error
	UpdateProfile(profile *models.UserProfile) error
	FindProfile(userID string) (*models.UserProfile, error)
	FindProfileByName(username string) (*models.UserProfile, error)
	Close() error
}
