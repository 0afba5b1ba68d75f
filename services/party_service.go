// services/party_service.go
package services

import (
	"fmt"
	"sync"

	"github.com/wfunc/partyserver/gameerr"
	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/persistence"
	"github.com/wfunc/partyserver/room"
	"github.com/wfunc/partyserver/session"
)

// PartyService is the facade over the room and session registries. Every
// operation that touches a room and its bound session runs under one mutex
// keyed by room id, so per-room operations are serialized and linearizable.
// User directory lookups happen before the room lock is taken.
type PartyService struct {
	rooms     *room.Registry
	sessions  *session.Registry
	directory persistence.UserDirectory

	locks [room.MaxRooms + 1]sync.Mutex
}

func NewPartyService(rooms *room.Registry, sessions *session.Registry, directory persistence.UserDirectory) *PartyService {
	return &PartyService{
		rooms:     rooms,
		sessions:  sessions,
		directory: directory,
	}
}

// lockRoom serializes access to one room id. Out-of-range ids are not locked;
// the registries reject them with ErrRoomNotFound.
func (s *PartyService) lockRoom(roomID int) func() {
	if roomID < 1 || roomID > room.MaxRooms {
		return func() {}
	}
	s.locks[roomID].Lock()
	return s.locks[roomID].Unlock
}

// verify rejects operations from users the directory does not know.
func (s *PartyService) verify(userID string) error {
	exists, err := s.directory.Exists(userID)
	if err != nil {
		return fmt.Errorf("verifying user %s: %w", userID, gameerr.ErrUnverifiedUser)
	}
	if !exists {
		return fmt.Errorf("user %s does not exist: %w", userID, gameerr.ErrUnverifiedUser)
	}
	return nil
}

// RequestRoom allocates a room for the user, joins them as owner and binds a
// fresh session in the lobby.
func (s *PartyService) RequestRoom(userID string, maxPlayers int, cheated bool) (int, error) {
	if err := s.verify(userID); err != nil {
		return 0, err
	}

	roomID, err := s.rooms.Request(userID, maxPlayers, cheated)
	if err != nil {
		return 0, err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	if err := s.sessions.Occupy(roomID); err != nil {
		// The slot was allocated a heartbeat ago; a bound session here means
		// the registries diverged.
		logger.Log.Errorf("Session occupy failed for fresh room %d: %v", roomID, err)
		return 0, err
	}
	return roomID, nil
}

// JoinRoom adds a verified user to an existing room.
func (s *PartyService) JoinRoom(userID string, roomID int) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	return s.rooms.Join(roomID, userID)
}

// LeaveRoom removes a user from a room; when the last member leaves, the
// room and its session are torn down together.
func (s *PartyService) LeaveRoom(userID string, roomID int) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	empty, err := s.rooms.Leave(roomID, userID)
	if err != nil {
		return err
	}
	if empty {
		s.sessions.Unoccupy(roomID)
	}
	return nil
}

// RoomUpdated returns and lowers the user's room dirty flag.
func (s *PartyService) RoomUpdated(userID string, roomID int) (bool, error) {
	if err := s.verify(userID); err != nil {
		return false, err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	return s.rooms.ConsumeDirty(roomID, userID)
}

// CurrentPlayers returns the room's member usernames in join order, owner
// first. Ids the directory cannot resolve render as the unknown-name literal.
// Name resolution happens after the room lock is released.
func (s *PartyService) CurrentPlayers(roomID int) ([]string, error) {
	unlock := s.lockRoom(roomID)
	members, err := s.rooms.Members(roomID)
	unlock()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(members))
	for _, id := range members {
		name, err := s.directory.UsernameOf(id)
		if err != nil {
			// Members are verified on join, so an unresolvable id means the
			// profile was deleted since.
			names = append(names, models.UnknownName)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// MaxPlayersOfRoom returns the room's fixed player cap.
func (s *PartyService) MaxPlayersOfRoom(roomID int) (int, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	return s.rooms.PlayerCap(roomID)
}

// StartGame freezes the room's membership into the session and starts the
// party. Owner only.
func (s *PartyService) StartGame(userID string, roomID int) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	members, maxPlayers, cheated, err := s.rooms.Snapshot(roomID)
	if err != nil {
		return err
	}
	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return err
	}
	return sess.Start(userID, members, maxPlayers, cheated)
}

// AskState returns the session's current state.
func (s *PartyService) AskState(roomID int) (session.State, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return 0, err
	}
	return sess.State(), nil
}

// GMIndex returns the Gamemaster's position in the frozen player list.
func (s *PartyService) GMIndex(roomID int) (int, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return 0, err
	}
	return sess.GMIndex(), nil
}

// SetMinigame records the GM's choice for the round.
func (s *PartyService) SetMinigame(userID string, roomID, minigameID, sociality int, initialValues string) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return err
	}
	return sess.SetMinigame(userID, minigameID, sociality, initialValues)
}

// GetMinigame returns the round's minigame id and marks the caller Playing.
func (s *PartyService) GetMinigame(userID string, roomID int) (int, error) {
	if err := s.verify(userID); err != nil {
		return 0, err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return 0, err
	}
	return sess.Minigame(userID)
}

// GetInitValues returns the GM's opaque initial values.
func (s *PartyService) GetInitValues(roomID int) (string, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return "", err
	}
	return sess.InitialValues(), nil
}

// GetSociality returns the GM's sociality parameter.
func (s *PartyService) GetSociality(roomID int) (int, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return 0, err
	}
	return sess.Sociality(), nil
}

// PostPlayerData stores a player's synchronization data.
func (s *PartyService) PostPlayerData(userID string, roomID int, data string) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return err
	}
	sess.PostPlayerData(userID, data)
	return nil
}

// GetPlayerData returns the synchronization data of the player at the given
// index.
func (s *PartyService) GetPlayerData(roomID, playerIndex int) (string, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return "", err
	}
	return sess.PlayerData(playerIndex)
}

// PostResult posts a player's round result.
func (s *PartyService) PostResult(userID string, roomID int, result string) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return err
	}
	sess.Sync(userID, result)
	return nil
}

// HasChanged returns and lowers the player's session changed flag.
func (s *PartyService) HasChanged(userID string, roomID int) (bool, error) {
	if err := s.verify(userID); err != nil {
		return false, err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return false, err
	}
	return sess.HasChanged(userID), nil
}

// AskPlayerStates returns every player's sub-state in player order.
func (s *PartyService) AskPlayerStates(roomID int) ([]session.PlayerState, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return nil, err
	}
	return sess.PlayerStates(), nil
}

// GetResults returns the round's result snapshot.
func (s *PartyService) GetResults(roomID int) ([]string, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return nil, err
	}
	return sess.Results(), nil
}

// PostReady marks a player as ready for the next round.
func (s *PartyService) PostReady(userID string, roomID int) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return err
	}
	sess.PostReady(userID)
	return nil
}

// NextRound advances the party to the next round. GM only.
func (s *PartyService) NextRound(userID string, roomID int) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return err
	}
	return sess.NextRound(userID)
}

// GameOver ends the party. GM only.
func (s *PartyService) GameOver(userID string, roomID int) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return err
	}
	return sess.GameOver(userID)
}

// BackToLobby returns the party to the lobby. GM only.
func (s *PartyService) BackToLobby(userID string, roomID int) error {
	if err := s.verify(userID); err != nil {
		return err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return err
	}
	return sess.BackToLobby(userID)
}

// PlayersInState reports whether every player is in the named sub-state.
func (s *PartyService) PlayersInState(roomID int, stateName string) (bool, error) {
	state, err := session.ParsePlayerState(stateName)
	if err != nil {
		return false, err
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return false, err
	}
	return sess.AreInState(state), nil
}

// FlushRoom clears a room and its session unconditionally. Debug operation.
func (s *PartyService) FlushRoom(roomID int) error {
	unlock := s.lockRoom(roomID)
	defer unlock()

	if err := s.rooms.ForceFlush(roomID); err != nil {
		return err
	}
	s.sessions.Unoccupy(roomID)
	return nil
}

// SessionInfo renders the bound session's debug dump.
func (s *PartyService) SessionInfo(roomID int) (string, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return "", err
	}
	return sess.Info(), nil
}

// OccupiedRooms returns the number of allocated rooms.
func (s *PartyService) OccupiedRooms() int {
	return s.rooms.OccupiedCount()
}
