// models/models.go
package models

// UnknownName is rendered in place of a username that cannot be resolved.
// Existing clients match on this literal.
const UnknownName = "##UNKNOWN"

// DefaultTickets is the ticket balance a freshly registered user starts with.
const DefaultTickets = 100

// UserProfile is the durable per-user document: display name, ticket balance
// and the social graph. Users are identified by the external user id; two
// profiles are the same user iff their ids are equal.
type UserProfile struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Tickets  int       `json:"tickets"`
	Friends  []string  `json:"friends"` // user ids
	Rivals   []Rivalry `json:"rivals"`
}

// Rivalry pairs a rival with the running streak against them. A loss streak
// is encoded as a negative count.
type Rivalry struct {
	UserID string `json:"user_id"`
	Streak int    `json:"streak"`
}

// NewUserProfile returns a default-initialized profile for a registering user.
func NewUserProfile(userID, username string) *UserProfile {
	return &UserProfile{
		UserID:   userID,
		Username: username,
		Tickets:  DefaultTickets,
		Friends:  []string{},
		Rivals:   []Rivalry{},
	}
}

// HasFriend reports whether the given user id is already a friend.
func (p *UserProfile) HasFriend(userID string) bool {
	for _, id := range p.Friends {
		if id == userID {
			return true
		}
	}
	return false
}

// RivalIndex returns the position of the rivalry with the given user id,
// or -1 if there is none.
func (p *UserProfile) RivalIndex(userID string) int {
	for i, r := range p.Rivals {
		if r.UserID == userID {
			return i
		}
	}
	return -1
}

// ProfileView is the client-facing rendering of a profile: ids resolved to
// usernames, rivalries split into the parallel rivals/streaks arrays the
// clients expect.
type ProfileView struct {
	Username string   `json:"username"`
	Tickets  int      `json:"tickets"`
	Friends  []string `json:"friends"`
	Rivals   []string `json:"rivals"`
	Streaks  []int    `json:"streaks"`
}
