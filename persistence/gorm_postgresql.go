// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/partyserver/models"
)

// GormPostgreSQL stores user profiles in PostgreSQL through GORM.
type GormPostgreSQL struct {
	db *gorm.DB
}

// ProfileModel is the GORM mapping of a user profile document.
type ProfileModel struct {
	ID        uint             `gorm:"primaryKey"`
	UserID    string           `gorm:"uniqueIndex;not null"`
	Username  string           `gorm:"index;not null"`
	Tickets   int              `gorm:"default:100"`
	Friends   []string         `gorm:"type:jsonb;serializer:json"`
	Rivals    []models.Rivalry `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGormPostgreSQL opens the database connection and migrates the profile
// table.
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&ProfileModel{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// Exists reports whether a profile with the given user id is stored.
func (p *GormPostgreSQL) Exists(userID string) (bool, error) {
	var count int64
	err := p.db.Model(&ProfileModel{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UsernameOf resolves a user id to the stored display name.
func (p *GormPostgreSQL) UsernameOf(userID string) (string, error) {
	var row ProfileModel
	err := p.db.Select("username").Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrRecordNotFound
		}
		return "", err
	}
	return row.Username, nil
}

// InsertProfile writes a new profile document.
func (p *GormPostgreSQL) InsertProfile(profile *models.UserProfile) error {
	row := toModel(profile)
	return p.db.Create(row).Error
}

// UpdateProfile overwrites the stored document for the profile's user id.
func (p *GormPostgreSQL) UpdateProfile(profile *models.UserProfile) error {
	// Struct update with an explicit Select so the jsonb serializer applies
	// and zero values are still written.
	row := toModel(profile)
	result := p.db.Model(&ProfileModel{}).
		Where("user_id = ?", profile.UserID).
		Select("username", "tickets", "friends", "rivals").
		Updates(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// FindProfile loads the profile stored under the given user id.
func (p *GormPostgreSQL) FindProfile(userID string) (*models.UserProfile, error) {
	var row ProfileModel
	err := p.db.Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return fromModel(&row), nil
}

// FindProfileByName loads a profile by display name.
func (p *GormPostgreSQL) FindProfileByName(username string) (*models.UserProfile, error) {
	var row ProfileModel
	err := p.db.Where("username = ?", username).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return fromModel(&row), nil
}

// Close closes the underlying connection pool.
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModel(profile *models.UserProfile) *ProfileModel {
	return &ProfileModel{
		UserID:   profile.UserID,
		Username: profile.Username,
		Tickets:  profile.Tickets,
		Friends:  profile.Friends,
		Rivals:   profile.Rivals,
	}
}

func fromModel(row *ProfileModel) *models.UserProfile {
	profile := &models.UserProfile{
		UserID:   row.UserID,
		Username: row.Username,
		Tickets:  row.Tickets,
		Friends:  row.Friends,
		Rivals:   row.Rivals,
	}
	if profile.Friends == nil {
		profile.Friends = []string{}
	}
	if profile.Rivals == nil {
		profile.Rivals = []models.Rivalry{}
	}
	return profile
}
