// room/room.go
package room

import (
	"fmt"
	"sync"

	"github.com/wfunc/partyserver/gameerr"
	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/notify"
)

const (
	// MaxRooms is the size of the room pool. Room ids run from 1 to MaxRooms.
	MaxRooms = 99

	// MinPlayers and MaxPlayers bound the per-room player cap.
	MinPlayers = 2
	MaxPlayers = 4
)

// Room holds the membership of one allocated game room. The member at index 0
// is the room owner. A Room is never shared outside the Registry; all access
// goes through Registry methods.
type Room struct {
	ID         int
	MaxPlayers int
	Cheated    bool

	members []string
	dirty   notify.Flags
}

func (r *Room) isFull() bool {
	return len(r.members) >= r.MaxPlayers
}

func (r *Room) contains(userID string) bool {
	for _, id := range r.members {
		if id == userID {
			return true
		}
	}
	return false
}

// Registry is the fixed-capacity pool of rooms. Slot i of rooms holds room id
// i; a nil slot is free. The registry only tracks membership; session state
// lives in the session registry under the same room id.
type Registry struct {
	mutex         sync.RWMutex
	rooms         [MaxRooms + 1]*Room // slot 0 unused
	occupiedCount int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Request allocates the lowest-numbered free room with the given player cap
// and joins the requesting user as its owner.
func (reg *Registry) Request(userID string, maxPlayers int, cheated bool) (int, error) {
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return 0, fmt.Errorf("max players must be between %d and %d, got %d", MinPlayers, MaxPlayers, maxPlayers)
	}

	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	if reg.occupiedCount >= MaxRooms {
		return 0, fmt.Errorf("all %d rooms are occupied: %w", MaxRooms, gameerr.ErrNoRoomAvailable)
	}
	if reg.inAnyRoom(userID) {
		return 0, fmt.Errorf("user %s is already in a room: %w", userID, gameerr.ErrIdenticalUser)
	}

	id := 0
	for i := 1; i <= MaxRooms; i++ {
		if reg.rooms[i] == nil {
			id = i
			break
		}
	}
	if id == 0 {
		return 0, fmt.Errorf("all %d rooms are occupied: %w", MaxRooms, gameerr.ErrNoRoomAvailable)
	}

	room := &Room{
		ID:         id,
		MaxPlayers: maxPlayers,
		Cheated:    cheated,
		dirty:      notify.New(),
	}
	if err := join(room, userID); err != nil {
		return 0, err
	}

	reg.rooms[id] = room
	reg.occupiedCount++

	logger.Log.Infof("Room %d allocated by %s (max players %d)", id, userID, maxPlayers)
	return id, nil
}

// Join adds a user to the room and raises every other member's dirty flag.
func (reg *Registry) Join(roomID int, userID string) error {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	room, err := reg.lookup(roomID)
	if err != nil {
		return err
	}
	if reg.inAnyRoom(userID) {
		return fmt.Errorf("user %s is already in a room: %w", userID, gameerr.ErrIdenticalUser)
	}
	return join(room, userID)
}

func join(room *Room, userID string) error {
	if room.isFull() {
		return fmt.Errorf("room %d already holds %d players: %w", room.ID, room.MaxPlayers, gameerr.ErrRoomFull)
	}
	if room.contains(userID) {
		return fmt.Errorf("user %s is already in room %d: %w", userID, room.ID, gameerr.ErrIdenticalUser)
	}

	room.dirty.SetAll()
	room.members = append(room.members, userID)
	room.dirty.Add(userID)
	return nil
}

// Leave removes a user from the room. The returned bool reports whether the
// departure emptied the room, in which case the slot has been freed and the
// caller must tear down the bound session.
func (reg *Registry) Leave(roomID int, userID string) (bool, error) {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	room, err := reg.lookup(roomID)
	if err != nil {
		return false, err
	}

	index := -1
	for i, id := range room.members {
		if id == userID {
			index = i
			break
		}
	}
	if index < 0 {
		return false, fmt.Errorf("user %s is not in room %d: %w", userID, roomID, gameerr.ErrUserNotFound)
	}

	room.members = append(room.members[:index], room.members[index+1:]...)
	room.dirty.Remove(userID)

	if len(room.members) == 0 {
		reg.free(roomID)
		return true, nil
	}

	// members[0] after removal is the new owner; no explicit handover.
	room.dirty.SetAll()
	return false, nil
}

// ConsumeDirty returns the user's dirty flag and lowers it. A raised flag is
// observed by exactly one caller.
func (reg *Registry) ConsumeDirty(roomID int, userID string) (bool, error) {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	room, err := reg.lookup(roomID)
	if err != nil {
		return false, err
	}
	if !room.dirty.Has(userID) {
		return false, fmt.Errorf("user %s is not in room %d: %w", userID, roomID, gameerr.ErrUserNotFound)
	}
	return room.dirty.Consume(userID), nil
}

// Members returns the room's member ids in join order, owner first.
func (reg *Registry) Members(roomID int) ([]string, error) {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()

	room, err := reg.lookup(roomID)
	if err != nil {
		return nil, err
	}

	members := make([]string, len(room.members))
	copy(members, room.members)
	return members, nil
}

// PlayerCap returns the room's fixed maximum number of players.
func (reg *Registry) PlayerCap(roomID int) (int, error) {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()

	room, err := reg.lookup(roomID)
	if err != nil {
		return 0, err
	}
	return room.MaxPlayers, nil
}

// Snapshot returns everything a game start needs in one read: the member
// list, the player cap and the cheated flag.
func (reg *Registry) Snapshot(roomID int) (members []string, maxPlayers int, cheated bool, err error) {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()

	room, err := reg.lookup(roomID)
	if err != nil {
		return nil, 0, false, err
	}

	members = make([]string, len(room.members))
	copy(members, room.members)
	return members, room.MaxPlayers, room.Cheated, nil
}

// ForceFlush clears a room unconditionally. Debug operation.
func (reg *Registry) ForceFlush(roomID int) error {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	if _, err := reg.lookup(roomID); err != nil {
		return err
	}
	reg.free(roomID)
	return nil
}

// OccupiedCount returns the number of currently allocated rooms.
func (reg *Registry) OccupiedCount() int {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	return reg.occupiedCount
}

// inAnyRoom reports whether the user is already a member somewhere in the
// pool. A user id lives in at most one room at a time.
func (reg *Registry) inAnyRoom(userID string) bool {
	for i := 1; i <= MaxRooms; i++ {
		if reg.rooms[i] != nil && reg.rooms[i].contains(userID) {
			return true
		}
	}
	return false
}

func (reg *Registry) lookup(roomID int) (*Room, error) {
	if roomID < 1 || roomID > MaxRooms || reg.rooms[roomID] == nil {
		return nil, fmt.Errorf("room %d could not be found: %w", roomID, gameerr.ErrRoomNotFound)
	}
	return reg.rooms[roomID], nil
}

func (reg *Registry) free(roomID int) {
	logger.Log.Infof("Room %d empty, freeing slot", roomID)
	reg.rooms[roomID] = nil
	reg.occupiedCount--
}
