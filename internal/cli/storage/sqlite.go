package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

// sessionEntry is one durable key/value entry, scoped by server.
type sessionEntry struct {
	Server    string    `gorm:"primaryKey;type:varchar(255)"`
	Key       string    `gorm:"primaryKey;type:varchar(32)"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (sessionEntry) TableName() string {
	return "session_entries"
}

// migrate brings the session schema up to date
var migrate = func(db *gorm.DB) error {
	return db.AutoMigrate(&sessionEntry{})
}

// SQLite keeps sessions for any number of servers in one database file.
// The pair is written inside a single transaction.
type SQLite struct {
	db     *gorm.DB
	server string
}

// OpenSQLite opens (creating if needed) the database at path
func OpenSQLite(path, server string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	store := &SQLite{db: db, server: server}
	if err := migrate(db); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	return store, nil
}

func (s *SQLite) Load(ctx context.Context) (string, []byte, error) {
	var entries []sessionEntry
	if err := s.db.WithContext(ctx).Where("server = ?", s.server).Find(&entries).Error; err != nil {
		return "", nil, fmt.Errorf("failed to load session entries: %w", err)
	}

	var token string
	var user []byte
	for _, e := range entries {
		switch e.Key {
		case tokenKey:
			token = e.Value
		case userKey:
			user = []byte(e.Value)
		}
	}
	return token, user, nil
}

func (s *SQLite) Save(ctx context.Context, credential string, identity []byte) error {
	entries := []sessionEntry{
		{Server: s.server, Key: tokenKey, Value: credential},
		{Server: s.server, Key: userKey, Value: string(identity)},
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "server"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entries).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save session entries: %w", err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("server = ?", s.server).Delete(&sessionEntry{}).Error; err != nil {
		return fmt.Errorf("failed to clear session entries: %w", err)
	}
	return nil
}

// Close releases the database handle
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
