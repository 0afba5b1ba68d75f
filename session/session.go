// session/session.go
package session

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/wfunc/partyserver/gameerr"
	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/notify"
)

// playerRecord bundles everything the session tracks for one player in the
// current round.
type playerRecord struct {
	data   string
	result string
	state  PlayerState
}

// Session is the GM-mediated state machine for one room's party. The player
// list is a frozen snapshot of the room membership taken at Start; room
// membership changes during a party do not reach the session.
//
// A Session is not safe for concurrent use; the facade serializes all access
// per room.
type Session struct {
	state   State
	players []string
	records map[string]*playerRecord
	changed notify.Flags

	gmIndex       int
	minigameID    int
	sociality     int
	initialValues string

	minigameResults []string
	// resultsPending gates the one-time results snapshot per round.
	resultsPending bool

	ownerAlwaysGM bool
}

// New returns a session in the Unoccupied state.
func New() *Session {
	return &Session{
		state:      Unoccupied,
		records:    make(map[string]*playerRecord),
		changed:    notify.New(),
		gmIndex:    -1,
		minigameID: -1,
		sociality:  -1,
	}
}

// Occupy binds the session to a freshly allocated room and enters the lobby.
func (s *Session) Occupy() error {
	if s.state != Unoccupied {
		return fmt.Errorf("session is %s, not UNOCCUPIED: %w", s.state, gameerr.ErrIllegalTransition)
	}
	s.state = Lobby
	return nil
}

// Start begins the party. Only the room owner (members[0]) may start, the
// room must be full, and the session must be in the lobby. The member list is
// frozen as the party's player list and the Gamemaster is picked: the owner
// if the room is cheated, a uniformly random player otherwise.
func (s *Session) Start(userID string, members []string, maxPlayers int, cheated bool) error {
	if s.state != Lobby {
		return fmt.Errorf("cannot start the game in %s state: %w", s.state, gameerr.ErrIllegalTransition)
	}
	if len(members) == 0 || members[0] != userID {
		return fmt.Errorf("only the room owner can start the game: %w", gameerr.ErrInsufficientPermission)
	}
	if len(members) < maxPlayers {
		return fmt.Errorf("%d of %d players in room: %w", len(members), maxPlayers, gameerr.ErrNotEnoughPlayers)
	}

	s.players = make([]string, len(members))
	copy(s.players, members)
	s.ownerAlwaysGM = cheated

	if s.ownerAlwaysGM {
		s.gmIndex = 0
	} else {
		s.gmIndex = rand.Intn(len(s.players))
	}

	s.records = make(map[string]*playerRecord, len(s.players))
	s.changed = notify.New()
	for _, id := range s.players {
		s.records[id] = &playerRecord{state: Notified}
		s.changed.Add(id)
	}
	// A previous party may have left round values behind.
	s.resetRoundValues()

	logger.Log.Infof("Party started with %d players, GM index %d", len(s.players), s.gmIndex)
	s.transit()
	return nil
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// GMIndex returns the Gamemaster's position in the player list, -1 before the
// first start.
func (s *Session) GMIndex() int {
	return s.gmIndex
}

// InitialValues returns the opaque initial values the GM posted for the round.
func (s *Session) InitialValues() string {
	return s.initialValues
}

// Sociality returns the sociality parameter the GM posted for the round.
func (s *Session) Sociality() int {
	return s.sociality
}

// SetMinigame records the GM's choice for the round and moves to Starting.
func (s *Session) SetMinigame(userID string, minigameID, sociality int, initialValues string) error {
	if !s.isGM(userID) {
		return fmt.Errorf("only the Gamemaster can choose a minigame: %w", gameerr.ErrInsufficientPermission)
	}
	if s.state != GMChoosing {
		return fmt.Errorf("cannot set a minigame in %s state: %w", s.state, gameerr.ErrIllegalTransition)
	}

	s.minigameID = minigameID
	s.sociality = sociality
	s.initialValues = initialValues

	logger.Log.Infof("Minigame %d chosen (sociality %d)", minigameID, sociality)
	s.transit()
	return nil
}

// Minigame returns the chosen minigame id and marks the asking player as
// Playing. The call that makes the last player Playing moves the session to
// Running.
func (s *Session) Minigame(userID string) (int, error) {
	if s.state != Starting {
		return 0, fmt.Errorf("asking for the minigame in %s state: %w", s.state, gameerr.ErrIllegalTransition)
	}

	if rec, ok := s.records[userID]; ok {
		rec.state = Playing
		if s.allInState(Playing) {
			s.transit()
		}
	}
	return s.minigameID, nil
}

// PostPlayerData stores a player's opaque synchronization data. Last writer
// wins; unknown users are ignored. Not state-guarded.
func (s *Session) PostPlayerData(userID, data string) {
	if rec, ok := s.records[userID]; ok {
		rec.data = data
	}
}

// PlayerData returns the synchronization data of the player at the given
// position in the player list.
func (s *Session) PlayerData(index int) (string, error) {
	if index < 0 || index >= len(s.players) {
		return "", fmt.Errorf("player index %d outside [0,%d)", index, len(s.players))
	}
	return s.records[s.players[index]].data, nil
}

// Sync posts a player's result for the round, at most once: a player already
// Waiting is ignored, as is an unknown user. Every player's changed flag is
// raised. The sync that makes the last player Waiting while Running moves the
// session to MinigameEnd.
func (s *Session) Sync(userID, result string) {
	rec, ok := s.records[userID]
	if !ok {
		return
	}
	if rec.state == Waiting {
		return
	}

	rec.result = result
	rec.state = Waiting
	s.changed.SetAll()

	if s.allInState(Waiting) && s.state == Running {
		s.transit()
	}
}

// Results returns the round's result list in player order. The first call
// after every player is Waiting freezes the snapshot and moves all players to
// the Results sub-state; earlier calls return the current (possibly empty)
// snapshot.
func (s *Session) Results() []string {
	if len(s.players) > 0 && s.allInState(Waiting) {
		s.initResults()
	}

	results := make([]string, len(s.minigameResults))
	copy(results, s.minigameResults)
	return results
}

// PostReady marks a player as ready for the next round and raises every other
// player's changed flag. Unknown users are ignored.
func (s *Session) PostReady(userID string) {
	rec, ok := s.records[userID]
	if !ok {
		return
	}

	s.changed.SetOthers(userID)
	rec.state = Ready
}

// NextRound starts a new round. Only the GM may advance, only from
// MinigameEnd, and only once every player is Ready. All round values are
// reset and the session returns to GMChoosing.
func (s *Session) NextRound(userID string) error {
	if !s.isGM(userID) {
		return fmt.Errorf("only the Gamemaster can advance the round: %w", gameerr.ErrInsufficientPermission)
	}
	if s.state != MinigameEnd || !s.allInState(Ready) {
		return fmt.Errorf("wrong state or not all players ready: %w", gameerr.ErrIllegalTransition)
	}

	s.resetRoundValues()
	s.transit()
	return nil
}

// GameOver ends the party. Only the GM may end it, and only from MinigameEnd.
func (s *Session) GameOver(userID string) error {
	if !s.isGM(userID) {
		return fmt.Errorf("only the Gamemaster can end the game: %w", gameerr.ErrInsufficientPermission)
	}
	if s.state != MinigameEnd {
		return fmt.Errorf("cannot end the party mid-round: %w", gameerr.ErrIllegalTransition)
	}

	s.changed.SetAll()
	s.state = PartyEnd
	return nil
}

// BackToLobby returns the session to the lobby after the party ended. GM only.
func (s *Session) BackToLobby(userID string) error {
	if !s.isGM(userID) {
		return fmt.Errorf("only the Gamemaster can return to the lobby: %w", gameerr.ErrInsufficientPermission)
	}
	if s.state != PartyEnd {
		return fmt.Errorf("cannot go back to lobby in %s state: %w", s.state, gameerr.ErrIllegalTransition)
	}

	s.transit()
	return nil
}

// PlayerStates returns every player's sub-state in player order.
func (s *Session) PlayerStates() []PlayerState {
	states := make([]PlayerState, 0, len(s.players))
	for _, id := range s.players {
		states = append(states, s.records[id].state)
	}
	return states
}

// HasChanged returns the player's changed flag and lowers it. A raised flag
// is observed by exactly one caller. Unknown users read as false.
func (s *Session) HasChanged(userID string) bool {
	return s.changed.Consume(userID)
}

// AreInState reports whether every player is in the given sub-state.
func (s *Session) AreInState(state PlayerState) bool {
	return s.allInState(state)
}

// Info renders a human-readable dump of the session for debugging.
func (s *Session) Info() string {
	var b strings.Builder

	fmt.Fprintf(&b, "SESSION INFO\n")
	fmt.Fprintf(&b, "Current game state: %s\n", s.state)
	if s.gmIndex < 0 {
		fmt.Fprintf(&b, "Gamemaster not established\n")
	} else {
		fmt.Fprintf(&b, "Gamemaster: %s at index %d\n", s.players[s.gmIndex], s.gmIndex)
	}
	fmt.Fprintf(&b, "Selected minigame: %d\n", s.minigameID)
	fmt.Fprintf(&b, "Initial values: %s\n", s.initialValues)
	fmt.Fprintf(&b, "Sociality: %d\n", s.sociality)
	for _, id := range s.players {
		rec := s.records[id]
		fmt.Fprintf(&b, "PLAYER: %s\tSTATE: %s\tRESULT: %s\n", id, rec.state, rec.result)
	}
	return b.String()
}

func (s *Session) isGM(userID string) bool {
	if s.gmIndex < 0 || s.gmIndex >= len(s.players) {
		return false
	}
	return s.players[s.gmIndex] == userID
}

func (s *Session) allInState(state PlayerState) bool {
	for _, id := range s.players {
		if s.records[id].state != state {
			return false
		}
	}
	return true
}

// transit follows the transition table and raises every player's changed flag
// so pollers observe the edge.
func (s *Session) transit() {
	s.changed.SetAll()
	s.state = transitions[s.state]
}

// initResults freezes the round's result snapshot once and moves all players
// to the Results sub-state.
func (s *Session) initResults() {
	if !s.resultsPending {
		return
	}
	s.resultsPending = false

	logger.Log.Infof("Initializing round results")
	for _, id := range s.players {
		rec := s.records[id]
		s.minigameResults = append(s.minigameResults, rec.result)
		rec.state = Results
	}
}

// resetRoundValues clears everything that belongs to a single round.
func (s *Session) resetRoundValues() {
	s.minigameID = -1
	s.sociality = -1
	s.initialValues = ""
	s.minigameResults = nil
	s.resultsPending = true

	for _, id := range s.players {
		rec := s.records[id]
		rec.result = ""
		rec.state = Notified
	}
	s.changed.ClearAll()
}
