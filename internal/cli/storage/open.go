package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/seap-dev/seap/internal/cli/auth"
	"github.com/seap-dev/seap/internal/cli/config"
	"github.com/seap-dev/seap/internal/cli/session"
)

// Open returns the storage backend selected by cfg for serverURL. The close
// func releases any handle the backend holds and is always non-nil.
func Open(cfg config.StorageConfig, serverURL string) (session.Storage, func() error, error) {
	key := config.StorageKey(serverURL)
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.StorageKeyring, "":
		return auth.NewKeyringStorage(key), noop, nil

	case config.StorageFile:
		dir := cfg.Path
		if dir == "" {
			userDir, err := config.UserConfigDir()
			if err != nil {
				return nil, nil, err
			}
			dir = filepath.Join(userDir, "sessions")
		}
		return NewFile(filepath.Join(dir, fileName(key))), noop, nil

	case config.StorageSQLite:
		path := cfg.Path
		if path == "" {
			userDir, err := config.UserConfigDir()
			if err != nil {
				return nil, nil, err
			}
			path = filepath.Join(userDir, "sessions.db")
		}
		db, err := OpenSQLite(path, key)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil

	case config.StorageMemory:
		return NewMemory(), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend '%s'", cfg.Backend)
	}
}

// fileName maps a server key to a safe file name
func fileName(key string) string {
	r := strings.NewReplacer("/", "_", ":", "_", "\\", "_")
	return r.Replace(key) + ".json"
}
