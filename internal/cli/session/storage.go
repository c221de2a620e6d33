package session

import (
	"context"
	"errors"
)

// Storage persists the credential/identity pair across process restarts.
//
// Implementations must treat the pair as a unit: Save writes both entries or
// neither, and Clear removes both. Load returns an empty credential and nil
// identity when nothing is stored; a half-written pair is returned as-is so
// the store can detect and discard it.
type Storage interface {
	Load(ctx context.Context) (credential string, identity []byte, err error)
	Save(ctx context.Context, credential string, identity []byte) error
	Clear(ctx context.Context) error
}

// ErrCorrupt is wrapped by storages whose backing data cannot be parsed at
// all. Initialize treats it like an unparseable identity: clear and continue.
var ErrCorrupt = errors.New("persisted session is corrupt")
