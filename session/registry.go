// session/registry.go
package session

import (
	"fmt"
	"sync"

	"github.com/wfunc/partyserver/gameerr"
	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/room"
)

// Registry holds at most one session per room id, parallel to the room
// registry's slots. Sessions are created and torn down in lockstep with room
// allocation.
type Registry struct {
	mutex    sync.RWMutex
	sessions [room.MaxRooms + 1]*Session // slot 0 unused
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Occupy binds a fresh session to the given room id and moves it to the
// lobby. The slot must be free or hold an unoccupied session.
func (reg *Registry) Occupy(roomID int) error {
	if roomID < 1 || roomID > room.MaxRooms {
		return fmt.Errorf("room id %d outside [1,%d]: %w", roomID, room.MaxRooms, gameerr.ErrRoomNotFound)
	}

	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	logger.Log.Infof("Occupying session slot %d", roomID)

	sess := reg.sessions[roomID]
	if sess == nil {
		sess = New()
		reg.sessions[roomID] = sess
	}
	return sess.Occupy()
}

// Unoccupy tears down the session bound to the room id.
func (reg *Registry) Unoccupy(roomID int) {
	if roomID < 1 || roomID > room.MaxRooms {
		return
	}

	reg.mutex.Lock()
	defer reg.mutex.Unlock()
	reg.sessions[roomID] = nil
}

// Get returns the session bound to the room id.
func (reg *Registry) Get(roomID int) (*Session, error) {
	if roomID < 1 || roomID > room.MaxRooms {
		return nil, fmt.Errorf("room id %d outside [1,%d]: %w", roomID, room.MaxRooms, gameerr.ErrRoomNotFound)
	}

	reg.mutex.RLock()
	defer reg.mutex.RUnlock()

	sess := reg.sessions[roomID]
	if sess == nil {
		return nil, fmt.Errorf("no session bound to room %d: %w", roomID, gameerr.ErrRoomNotFound)
	}
	return sess, nil
}

// Count returns the number of bound sessions.
func (reg *Registry) Count() int {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()

	count := 0
	for _, sess := range reg.sessions {
		if sess != nil {
			count++
		}
	}
	return count
}
