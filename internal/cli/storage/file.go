package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seap-dev/seap/internal/cli/session"
)

// fileDocument is the on-disk layout. The identity is kept as the serialized
// record string, exactly as it is handed to Save.
type fileDocument struct {
	Token string `json:"token"`
	User  string `json:"user"`
}

// File keeps the session in a single JSON file. Both entries live in one
// document that is replaced atomically, so the pair can never be half written.
type File struct {
	path string
}

// NewFile returns file storage at path
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the session file location
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(ctx context.Context) (string, []byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("%w: %v", session.ErrCorrupt, err)
	}
	if doc.User == "" {
		return doc.Token, nil, nil
	}
	return doc.Token, []byte(doc.User), nil
}

func (f *File) Save(ctx context.Context, credential string, identity []byte) error {
	data, err := json.MarshalIndent(fileDocument{Token: credential, User: string(identity)}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set session file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (f *File) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
