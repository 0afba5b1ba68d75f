// services/party_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/partyserver/gameerr"
	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/room"
	"github.com/wfunc/partyserver/session"
)

func newParty(db *memoryDB) *PartyService {
	return NewPartyService(room.NewRegistry(), session.NewRegistry(), db)
}

func registered(names ...string) *memoryDB {
	profiles := make([]*models.UserProfile, 0, len(names))
	for _, name := range names {
		profiles = append(profiles, models.NewUserProfile(name, name))
	}
	return newMemoryDB(profiles...)
}

func TestRequestRoomBindsSession(t *testing.T) {
	party := newParty(registered("alice"))

	roomID, err := party.RequestRoom("alice", 2, false)
	require.NoError(t, err)
	assert.Equal(t, 1, roomID)

	state, err := party.AskState(roomID)
	require.NoError(t, err)
	assert.Equal(t, session.Lobby, state)

	names, err := party.CurrentPlayers(roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)
}

func TestRequestRoomUnverified(t *testing.T) {
	party := newParty(registered("alice"))

	_, err := party.RequestRoom("ghost", 2, false)
	assert.ErrorIs(t, err, gameerr.ErrUnverifiedUser)
}

func TestJoinRoomVerification(t *testing.T) {
	party := newParty(registered("alice", "bob"))

	roomID, err := party.RequestRoom("alice", 2, false)
	require.NoError(t, err)

	assert.ErrorIs(t, party.JoinRoom("ghost", roomID), gameerr.ErrUnverifiedUser)
	require.NoError(t, party.JoinRoom("bob", roomID))

	names, err := party.CurrentPlayers(roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names)
}

func TestLeaveLastMemberTearsDownSession(t *testing.T) {
	party := newParty(registered("alice"))

	roomID, err := party.RequestRoom("alice", 2, false)
	require.NoError(t, err)
	require.NoError(t, party.LeaveRoom("alice", roomID))

	_, err = party.AskState(roomID)
	assert.ErrorIs(t, err, gameerr.ErrRoomNotFound)

	_, err = party.CurrentPlayers(roomID)
	assert.ErrorIs(t, err, gameerr.ErrRoomNotFound)
}

func TestRoomUpdatedFlags(t *testing.T) {
	party := newParty(registered("alice", "bob"))

	roomID, err := party.RequestRoom("alice", 2, false)
	require.NoError(t, err)
	require.NoError(t, party.JoinRoom("bob", roomID))

	dirty, err := party.RoomUpdated("alice", roomID)
	require.NoError(t, err)
	assert.True(t, dirty)

	dirty, err = party.RoomUpdated("alice", roomID)
	require.NoError(t, err)
	assert.False(t, dirty)

	dirty, err = party.RoomUpdated("bob", roomID)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestCurrentPlayersUnknownFallback(t *testing.T) {
	db := registered("alice", "bob")
	party := newParty(db)

	roomID, err := party.RequestRoom("alice", 2, false)
	require.NoError(t, err)
	require.NoError(t, party.JoinRoom("bob", roomID))

	delete(db.profiles, "bob")

	names, err := party.CurrentPlayers(roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", models.UnknownName}, names)
}

func TestMaxPlayersOfRoom(t *testing.T) {
	party := newParty(registered("alice"))

	roomID, err := party.RequestRoom("alice", 3, false)
	require.NoError(t, err)

	playerCap, err := party.MaxPlayersOfRoom(roomID)
	require.NoError(t, err)
	assert.Equal(t, 3, playerCap)
}

// fullRound walks one party through lobby, round setup, play and sync.
func TestFullRoundThroughFacade(t *testing.T) {
	party := newParty(registered("alice", "bob"))

	roomID, err := party.RequestRoom("alice", 2, true)
	require.NoError(t, err)
	require.NoError(t, party.JoinRoom("bob", roomID))

	require.NoError(t, party.StartGame("alice", roomID))

	state, err := party.AskState(roomID)
	require.NoError(t, err)
	assert.Equal(t, session.GMChoosing, state)

	gm, err := party.GMIndex(roomID)
	require.NoError(t, err)
	assert.Equal(t, 0, gm)

	require.NoError(t, party.SetMinigame("alice", roomID, 5, 1, "seed=42"))

	values, err := party.GetInitValues(roomID)
	require.NoError(t, err)
	assert.Equal(t, "seed=42", values)

	sociality, err := party.GetSociality(roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, sociality)

	for _, id := range []string{"alice", "bob"} {
		minigameID, err := party.GetMinigame(id, roomID)
		require.NoError(t, err)
		assert.Equal(t, 5, minigameID)
	}

	state, err = party.AskState(roomID)
	require.NoError(t, err)
	assert.Equal(t, session.Running, state)

	require.NoError(t, party.PostPlayerData("alice", roomID, "x=3"))
	data, err := party.GetPlayerData(roomID, 0)
	require.NoError(t, err)
	assert.Equal(t, "x=3", data)

	require.NoError(t, party.PostResult("alice", roomID, "10"))
	require.NoError(t, party.PostResult("bob", roomID, "20"))

	state, err = party.AskState(roomID)
	require.NoError(t, err)
	assert.Equal(t, session.MinigameEnd, state)

	results, err := party.GetResults(roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20"}, results)

	require.NoError(t, party.PostReady("alice", roomID))
	require.NoError(t, party.PostReady("bob", roomID))

	all, err := party.PlayersInState(roomID, "READY")
	require.NoError(t, err)
	assert.True(t, all)

	require.NoError(t, party.GameOver("alice", roomID))
	require.NoError(t, party.BackToLobby("alice", roomID))

	state, err = party.AskState(roomID)
	require.NoError(t, err)
	assert.Equal(t, session.Lobby, state)
}

func TestStartGameGuards(t *testing.T) {
	party := newParty(registered("alice", "bob"))

	roomID, err := party.RequestRoom("alice", 2, false)
	require.NoError(t, err)

	assert.ErrorIs(t, party.StartGame("alice", roomID), gameerr.ErrNotEnoughPlayers)

	require.NoError(t, party.JoinRoom("bob", roomID))
	assert.ErrorIs(t, party.StartGame("bob", roomID), gameerr.ErrInsufficientPermission)
}

func TestHasChangedThroughFacade(t *testing.T) {
	party := newParty(registered("alice", "bob"))

	roomID, err := party.RequestRoom("alice", 2, true)
	require.NoError(t, err)
	require.NoError(t, party.JoinRoom("bob", roomID))
	require.NoError(t, party.StartGame("alice", roomID))

	changed, err := party.HasChanged("bob", roomID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = party.HasChanged("bob", roomID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestInGameOpsRejectUnverified(t *testing.T) {
	party := newParty(registered("alice", "bob"))

	roomID, err := party.RequestRoom("alice", 2, true)
	require.NoError(t, err)
	require.NoError(t, party.JoinRoom("bob", roomID))
	require.NoError(t, party.StartGame("alice", roomID))

	assert.ErrorIs(t, party.SetMinigame("ghost", roomID, 1, 0, ""), gameerr.ErrUnverifiedUser)
	assert.ErrorIs(t, party.PostResult("ghost", roomID, "1"), gameerr.ErrUnverifiedUser)
	assert.ErrorIs(t, party.PostReady("ghost", roomID), gameerr.ErrUnverifiedUser)

	_, err = party.HasChanged("ghost", roomID)
	assert.ErrorIs(t, err, gameerr.ErrUnverifiedUser)
}

func TestPlayersInStateUnknownName(t *testing.T) {
	party := newParty(registered("alice"))

	roomID, err := party.RequestRoom("alice", 2, false)
	require.NoError(t, err)

	_, err = party.PlayersInState(roomID, "DANCING")
	assert.Error(t, err)
}

func TestAskPlayerStates(t *testing.T) {
	party := newParty(registered("alice", "bob"))

	roomID, err := party.RequestRoom("alice", 2, true)
	require.NoError(t, err)
	require.NoError(t, party.JoinRoom("bob", roomID))
	require.NoError(t, party.StartGame("alice", roomID))

	states, err := party.AskPlayerStates(roomID)
	require.NoError(t, err)
	assert.Equal(t, []session.PlayerState{session.Notified, session.Notified}, states)
}

func TestFlushRoom(t *testing.T) {
	party := newParty(registered("alice"))

	roomID, err := party.RequestRoom("alice", 2, false)
	require.NoError(t, err)
	require.NoError(t, party.FlushRoom(roomID))

	_, err = party.AskState(roomID)
	assert.ErrorIs(t, err, gameerr.ErrRoomNotFound)
	assert.Equal(t, 0, party.OccupiedRooms())
}

func TestSessionInfo(t *testing.T) {
	party := newParty(registered("alice"))

	roomID, err := party.RequestRoom("alice", 2, false)
	require.NoError(t, err)

	info, err := party.SessionInfo(roomID)
	require.NoError(t, err)
	assert.Contains(t, info, "LOBBY")
}

func TestOperationsOnUnknownRoom(t *testing.T) {
	party := newParty(registered("alice"))

	_, err := party.AskState(42)
	assert.ErrorIs(t, err, gameerr.ErrRoomNotFound)

	assert.ErrorIs(t, party.JoinRoom("alice", 42), gameerr.ErrRoomNotFound)
	assert.ErrorIs(t, party.StartGame("alice", 42), gameerr.ErrRoomNotFound)

	_, err = party.GetResults(0)
	assert.ErrorIs(t, err, gameerr.ErrRoomNotFound)

	_, err = party.AskState(100)
	assert.ErrorIs(t, err, gameerr.ErrRoomNotFound)
}
