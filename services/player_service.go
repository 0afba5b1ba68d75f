// services/player_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/wfunc/partyserver/gameerr"
	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/persistence"
)

// PlayerService manages user profiles on top of the persistence layer.
type PlayerService struct {
	db persistence.Database
}

func NewPlayerService(db persistence.Database) *PlayerService {
	return &PlayerService{db: db}
}

// Register creates a fresh profile with the default ticket balance. Fails
// when the id is already taken.
func (s *PlayerService) Register(userID, username string) error {
	_, err := s.db.FindProfile(userID)
	if err == nil {
		return fmt.Errorf("user %s: %w", userID, gameerr.ErrUserAlreadyExisting)
	}
	if !errors.Is(err, persistence.ErrRecordNotFound) {
		return err
	}

	profile := models.NewUserProfile(userID, username)
	if err := s.db.InsertProfile(profile); err != nil {
		logger.Log.Errorf("Inserting profile for %s failed: %v", userID, err)
		return fmt.Errorf("registering %s: %w", userID, gameerr.ErrDatabaseInsert)
	}
	logger.Log.Infof("Registered user %s (%s)", userID, username)
	return nil
}

// Info returns the profile view for a user id.
func (s *PlayerService) Info(userID string) (models.ProfileView, error) {
	profile, err := s.db.FindProfile(userID)
	if err != nil {
		return models.ProfileView{}, s.notFound(err, userID)
	}
	return s.view(profile), nil
}

// SearchFriend returns the profile view for a username.
func (s *PlayerService) SearchFriend(username string) (models.ProfileView, error) {
	profile, err := s.db.FindProfileByName(username)
	if err != nil {
		return models.ProfileView{}, s.notFound(err, username)
	}
	return s.view(profile), nil
}

// AddFriend adds the named user to the caller's friend list. Adding yourself
// or an existing friend fails.
func (s *PlayerService) AddFriend(userID, friendName string) error {
	profile, err := s.db.FindProfile(userID)
	if err != nil {
		return s.notFound(err, userID)
	}
	friend, err := s.db.FindProfileByName(friendName)
	if err != nil {
		return s.notFound(err, friendName)
	}

	if friend.UserID == profile.UserID {
		return gameerr.ErrIdenticalUser
	}
	if profile.HasFriend(friend.UserID) {
		return fmt.Errorf("friend %s: %w", friendName, gameerr.ErrUserAlreadyExisting)
	}

	profile.Friends = append(profile.Friends, friend.UserID)
	return s.db.UpdateProfile(profile)
}

// AddStreak starts a rivalry with the named user at the given streak.
func (s *PlayerService) AddStreak(userID, rivalName string, streak int) error {
	profile, err := s.db.FindProfile(userID)
	if err != nil {
		return s.notFound(err, userID)
	}
	rival, err := s.db.FindProfileByName(rivalName)
	if err != nil {
		return s.notFound(err, rivalName)
	}

	if rival.UserID == profile.UserID {
		return gameerr.ErrIdenticalUser
	}
	if profile.RivalIndex(rival.UserID) >= 0 {
		return fmt.Errorf("rival %s: %w", rivalName, gameerr.ErrUserAlreadyExisting)
	}

	profile.Rivals = append(profile.Rivals, models.Rivalry{UserID: rival.UserID, Streak: streak})
	return s.db.UpdateProfile(profile)
}

// UpdateStreak overwrites the streak of an existing rivalry.
func (s *PlayerService) UpdateStreak(userID, rivalName string, streak int) error {
	profile, err := s.db.FindProfile(userID)
	if err != nil {
		return s.notFound(err, userID)
	}
	rival, err := s.db.FindProfileByName(rivalName)
	if err != nil {
		return s.notFound(err, rivalName)
	}

	idx := profile.RivalIndex(rival.UserID)
	if idx < 0 {
		return fmt.Errorf("no rivalry with %s: %w", rivalName, gameerr.ErrUserNotFound)
	}
	profile.Rivals[idx].Streak = streak
	return s.db.UpdateProfile(profile)
}

// RemoveStreak deletes a rivalry.
func (s *PlayerService) RemoveStreak(userID, rivalName string) error {
	profile, err := s.db.FindProfile(userID)
	if err != nil {
		return s.notFound(err, userID)
	}
	rival, err := s.db.FindProfileByName(rivalName)
	if err != nil {
		return s.notFound(err, rivalName)
	}

	idx := profile.RivalIndex(rival.UserID)
	if idx < 0 {
		return fmt.Errorf("no rivalry with %s: %w", rivalName, gameerr.ErrUserNotFound)
	}
	profile.Rivals = append(profile.Rivals[:idx], profile.Rivals[idx+1:]...)
	return s.db.UpdateProfile(profile)
}

// view resolves friend and rival ids to names for the client-facing shape.
// Ids that no longer resolve render as the unknown-name literal.
func (s *PlayerService) view(profile *models.UserProfile) models.ProfileView {
	view := models.ProfileView{
		Username: profile.Username,
		Tickets:  profile.Tickets,
		Friends:  make([]string, 0, len(profile.Friends)),
		Rivals:   make([]string, 0, len(profile.Rivals)),
		Streaks:  make([]int, 0, len(profile.Rivals)),
	}
	for _, id := range profile.Friends {
		view.Friends = append(view.Friends, s.nameOf(id))
	}
	for _, rivalry := range profile.Rivals {
		view.Rivals = append(view.Rivals, s.nameOf(rivalry.UserID))
		view.Streaks = append(view.Streaks, rivalry.Streak)
	}
	return view
}

func (s *PlayerService) nameOf(userID string) string {
	name, err := s.db.UsernameOf(userID)
	if err != nil {
		return models.UnknownName
	}
	return name
}

func (s *PlayerService) notFound(err error, who string) error {
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", who, gameerr.ErrUserNotFound)
	}
	return err
}
