package storage

import (
	"context"
	"sync"
)

// Memory keeps the session in process memory. It backs the "memory" storage
// setting and doubles as a test fake: the *Err fields make the matching call fail.
type Memory struct {
	mu         sync.Mutex
	credential string
	identity   []byte

	LoadErr  error
	SaveErr  error
	ClearErr error
}

// NewMemory returns empty in-memory storage
func NewMemory() *Memory {
	return &Memory{}
}

// Seed writes raw entries without pairing rules, to simulate what another
// process (or a corrupted disk) left behind.
func (m *Memory) Seed(credential string, identity []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = credential
	m.identity = append([]byte(nil), identity...)
}

// Entries returns what is currently stored.
func (m *Memory) Entries() (string, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential, append([]byte(nil), m.identity...)
}

// Empty reports whether neither entry is stored.
func (m *Memory) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential == "" && len(m.identity) == 0
}

func (m *Memory) Load(ctx context.Context) (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return "", nil, m.LoadErr
	}
	if len(m.identity) == 0 {
		return m.credential, nil, nil
	}
	return m.credential, append([]byte(nil), m.identity...), nil
}

func (m *Memory) Save(ctx context.Context, credential string, identity []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.credential = credential
	m.identity = append([]byte(nil), identity...)
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.credential = ""
	m.identity = nil
	return nil
}
