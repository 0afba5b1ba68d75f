// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/wfunc/partyserver/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL stores user profiles through database/sql and lib/pq. It is the
// driver-level alternative to the GORM implementation, selected by config.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL opens the database connection and ensures the profile table
// exists.
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS profiles (
            id SERIAL PRIMARY KEY,
            user_id TEXT UNIQUE NOT NULL,
            username TEXT NOT NULL,
            tickets INT NOT NULL DEFAULT 100,
            friends JSONB NOT NULL DEFAULT '[]',
            rivals JSONB NOT NULL DEFAULT '[]',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_profiles_user_id ON profiles(user_id);
        CREATE INDEX IF NOT EXISTS idx_profiles_username ON profiles(username);
    `)

	return err
}

// Exists reports whether a profile with the given user id is stored.
func (p *PostgreSQL) Exists(userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM profiles WHERE user_id = $1)`
	if err := p.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UsernameOf resolves a user id to the stored display name.
func (p *PostgreSQL) UsernameOf(userID string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var username string
	query := `SELECT username FROM profiles WHERE user_id = $1`
	err := p.db.QueryRowContext(ctx, query, userID).Scan(&username)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrRecordNotFound
		}
		return "", err
	}
	return username, nil
}

// InsertProfile writes a new profile document.
func (p *PostgreSQL) InsertProfile(profile *models.UserProfile) error {
	friends, rivals, err := marshalSocial(profile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := `
        INSERT INTO profiles (user_id, username, tickets, friends, rivals)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err = p.db.ExecContext(ctx, query,
		profile.UserID, profile.Username, profile.Tickets, friends, rivals)
	return err
}

// UpdateProfile overwrites the stored document for the profile's user id.
func (p *PostgreSQL) UpdateProfile(profile *models.UserProfile) error {
	friends, rivals, err := marshalSocial(profile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := `
        UPDATE profiles
        SET username = $2, tickets = $3, friends = $4, rivals = $5,
            updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $1
    `
	result, err := p.db.ExecContext(ctx, query,
		profile.UserID, profile.Username, profile.Tickets, friends, rivals)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// FindProfile loads the profile stored under the given user id.
func (p *PostgreSQL) FindProfile(userID string) (*models.UserProfile, error) {
	query := `SELECT user_id, username, tickets, friends, rivals FROM profiles WHERE user_id = $1`
	return p.findOne(query, userID)
}

// FindProfileByName loads a profile by display name.
func (p *PostgreSQL) FindProfileByName(username string) (*models.UserProfile, error) {
	query := `SELECT user_id, username, tickets, friends, rivals FROM profiles WHERE username = $1`
	return p.findOne(query, username)
}

// Close closes the connection pool.
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

func (p *PostgreSQL) findOne(query string, arg string) (*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var profile models.UserProfile
	var friends, rivals []byte

	err := p.db.QueryRowContext(ctx, query, arg).Scan(
		&profile.UserID, &profile.Username, &profile.Tickets, &friends, &rivals)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(friends, &profile.Friends); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rivals, &profile.Rivals); err != nil {
		return nil, err
	}
	return &profile, nil
}

func marshalSocial(profile *models.UserProfile) (friends, rivals []byte, err error) {
	friends, err = json.Marshal(profile.Friends)
	if err != nil {
		return nil, nil, err
	}
	rivals, err = json.Marshal(profile.Rivals)
	if err != nil {
		return nil, nil, err
	}
	return friends, rivals, nil
}
