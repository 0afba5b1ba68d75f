// session/states.go
package session

import (
	"fmt"
)

// State is the session-level game state.
type State int

const (
	// Unoccupied means the session's room slot is not in use.
	Unoccupied State = iota

	// Lobby gathers players before the party starts.
	Lobby

	// GMChoosing waits for the Gamemaster to pick the round's minigame.
	GMChoosing

	// Starting lets every player pull the chosen minigame and initial values.
	Starting

	// Running means the minigame is being played.
	Running

	// MinigameEnd means every player has posted a result; results are shown.
	MinigameEnd

	// PartyEnd means the Gamemaster ended the party.
	PartyEnd
)

var stateNames = map[State]string{
	Unoccupied:  "UNOCCUPIED",
	Lobby:       "LOBBY",
	GMChoosing:  "GM_CHOOSING",
	Starting:    "STARTING",
	Running:     "RUNNING",
	MinigameEnd: "MINIGAME_END",
	PartyEnd:    "PARTY_END",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions is the immutable table of legal state edges driven by transit.
// MinigameEnd -> PartyEnd is the one edge outside the table; GameOver takes it
// explicitly.
var transitions = map[State]State{
	Lobby:       GMChoosing,
	GMChoosing:  Starting,
	Starting:    Running,
	Running:     MinigameEnd,
	MinigameEnd: GMChoosing,
	PartyEnd:    Lobby,
}

// PlayerState is the per-player sub-state within a round.
type PlayerState int

const (
	// Notified is the default on entering a round.
	Notified PlayerState = iota

	// Playing means the player has pulled the round's minigame.
	Playing

	// Waiting means the player posted a result and waits for the others.
	Waiting

	// Results means the player has pulled the round's results.
	Results

	// Ready means the player is ready for the next round.
	Ready
)

var playerStateNames = map[PlayerState]string{
	Notified: "NOTIFIED",
	Playing:  "PLAYING",
	Waiting:  "WAITING",
	Results:  "RESULTS",
	Ready:    "READY",
}

func (s PlayerState) String() string {
	if name, ok := playerStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PlayerState(%d)", int(s))
}

// ParsePlayerState maps an uppercase sub-state name back to its value.
func ParsePlayerState(name string) (PlayerState, error) {
	for state, n := range playerStateNames {
		if n == name {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown player state %q", name)
}
