// Package session holds the single source of truth for who is logged in.
//
// A Store starts in StateUnknown, moves to StateAuthenticated or
// StateUnauthenticated once Initialize has read durable storage, and after
// that only changes through Login, VerifyOTP, Logout or an invalidation.
// Views read it through Current/State or Subscribe and never mutate it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/seap-dev/seap/internal/cli/client"
)

// State is the authorization state of a Store.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// ErrMissingCredential is returned when the backend answers 2xx but hands
// back no usable credential.
var ErrMissingCredential = errors.New("backend response carried no credential")

// MissingCredentialError carries the backend's message (or a fallback) for a
// 2xx response without a credential. It matches ErrMissingCredential.
type MissingCredentialError struct {
	Message string
}

func (e *MissingCredentialError) Error() string {
	return e.Message
}

func (e *MissingCredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

// Authenticator is the subset of the API client that produces credentials.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*client.AuthResponse, error)
	Register(ctx context.Context, email, password, role string) (*client.AuthResponse, error)
	VerifyOTP(ctx context.Context, email, code string) (*client.AuthResponse, error)
}

// Snapshot is what subscribers receive on every transition.
type Snapshot struct {
	State    State
	Identity *Identity
}

// LoginResult describes a successful login call. When OTPRequired is set no
// session was established and the caller should collect a passcode.
type LoginResult struct {
	Identity    *Identity
	OTPRequired bool
	// DevOTP is the passcode echoed by development backends.
	DevOTP  string
	Message string
}

// RegisterResult is the backend's answer to a registration.
type RegisterResult struct {
	Message string
	DevOTP  string
}

// Store owns the credential and identity.
type Store struct {
	auth    Authenticator
	storage Storage
	logger  zerolog.Logger

	invalidateOnUnauthorized bool

	// opMu serializes mutations so a storage write and the matching memory
	// switch happen as one step. Never taken while holding mu.
	opMu sync.Mutex

	mu          sync.RWMutex
	state       State
	credential  string
	identity    *Identity
	subscribers map[int]chan Snapshot
	nextSubID   int
	closed      bool

	readyOnce sync.Once
	ready     chan struct{}
}

// New creates a store in StateUnknown. Call Initialize before relying on it.
func New(auth Authenticator, storage Storage, logger zerolog.Logger) *Store {
	return &Store{
		auth:        auth,
		storage:     storage,
		logger:      logger,
		state:       StateUnknown,
		subscribers: make(map[int]chan Snapshot),
		ready:       make(chan struct{}),
	}
}

// SetInvalidateOnUnauthorized controls whether a 401 from an authorized call
// logs the user out.
func (s *Store) SetInvalidateOnUnauthorized(enabled bool) {
	s.invalidateOnUnauthorized = enabled
}

// Initialize loads a previously persisted session. It never fails the
// application: corrupt or half-written data is cleared and the store reports
// StateUnauthenticated. The returned error is only a storage read failure,
// which also leaves the store unauthenticated.
func (s *Store) Initialize(ctx context.Context) error {
	defer s.markReady()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	credential, rawIdentity, err := s.storage.Load(ctx)
	if errors.Is(err, ErrCorrupt) {
		s.logger.Warn().Err(err).Msg("Persisted session is corrupt, clearing it")
		s.discardPersisted(ctx)
		return nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load persisted session")
		s.setUnauthenticated()
		return fmt.Errorf("failed to load session: %w", err)
	}

	if credential == "" && len(rawIdentity) == 0 {
		s.setUnauthenticated()
		return nil
	}

	if credential == "" || len(rawIdentity) == 0 {
		s.logger.Warn().Msg("Persisted session is incomplete, clearing it")
		s.discardPersisted(ctx)
		return nil
	}

	identity, err := decodeIdentity(rawIdentity)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Persisted identity is corrupt, clearing session")
		s.discardPersisted(ctx)
		return nil
	}

	s.mu.Lock()
	s.credential = credential
	s.identity = identity
	s.state = StateAuthenticated
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Debug().Str("email", identity.Email).Str("role", string(identity.Role)).Msg("Restored session")
	return nil
}

// Login sends credentials to the backend. On a credential it persists and
// adopts the session; on a pending passcode it returns OTPRequired without
// touching state; on rejection it returns the backend error unchanged.
func (s *Store) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if resp.OTPPending() {
		return &LoginResult{OTPRequired: true, DevOTP: resp.OTP, Message: resp.Message}, nil
	}

	if !resp.HasCredential() {
		return nil, &MissingCredentialError{Message: messageOr(resp.Message, "Login failed")}
	}

	identity, err := s.adopt(ctx, resp.Token, resp.User)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Identity: identity, Message: resp.Message}, nil
}

// Register creates an account. It never establishes a session, even when the
// backend returns a credential; the caller routes to verification or login.
func (s *Store) Register(ctx context.Context, email, password string, role Role) (*RegisterResult, error) {
	if role == "" {
		role = RoleUser
	}
	resp, err := s.auth.Register(ctx, email, password, string(role))
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Message: resp.Message, DevOTP: resp.OTP}, nil
}

// VerifyOTP exchanges a passcode for a credential and adopts it like Login.
// On failure the session is untouched.
func (s *Store) VerifyOTP(ctx context.Context, email, code string) (*Identity, error) {
	resp, err := s.auth.VerifyOTP(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if !resp.HasCredential() {
		return nil, &MissingCredentialError{Message: messageOr(resp.Message, "OTP verification failed")}
	}
	return s.adopt(ctx, resp.Token, resp.User)
}

// Logout clears memory and durable storage. It never fails and is idempotent.
func (s *Store) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setUnauthenticated()
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear persisted session")
	}
}

// InvalidateOnUnauthorized logs the user out when err is a 401 from an
// authorized call and invalidation is enabled. It reports whether it did.
func (s *Store) InvalidateOnUnauthorized(ctx context.Context, err error) bool {
	if !s.invalidateOnUnauthorized || !errors.Is(err, client.ErrUnauthorized) {
		return false
	}
	if s.State() != StateAuthenticated {
		return false
	}
	s.logger.Info().Msg("Credential rejected by backend, ending session")
	s.Logout(ctx)
	return true
}

// Current returns a copy of the identity, or nil when nobody is logged in.
func (s *Store) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Credential returns the bearer token, or "" when nobody is logged in.
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// State returns the current authorization state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns the current state and identity together.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Ready is closed once the first load has completed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until the first load has completed or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel carrying the latest snapshot. The current
// snapshot is delivered immediately; a slow reader only ever sees the newest
// value. The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close tears the store down, closing every subscriber channel. The session
// itself stays persisted.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

// adopt persists the pair first and only then switches memory over, so a
// failed write leaves the previous state intact.
func (s *Store) adopt(ctx context.Context, token string, user *client.User) (*Identity, error) {
	identity := identityFromUser(user)
	raw, err := encodeIdentity(identity)
	if err != nil {
		return nil, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.storage.Save(ctx, token, raw); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	s.credential = token
	s.identity = &identity
	s.state = StateAuthenticated
	s.publishLocked()
	s.mu.Unlock()
	s.markReady()

	s.logger.Debug().Str("email", identity.Email).Str("role", string(identity.Role)).Msg("Session established")
	out := identity
	return &out, nil
}

func (s *Store) setUnauthenticated() {
	s.mu.Lock()
	s.credential = ""
	s.identity = nil
	s.state = StateUnauthenticated
	s.publishLocked()
	s.mu.Unlock()
	s.markReady()
}

// discardPersisted clears storage and memory. Callers hold s.opMu.
func (s *Store) discardPersisted(ctx context.Context) {
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear corrupt session")
	}
	s.setUnauthenticated()
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

// publishLocked replaces whatever is buffered for each subscriber with the
// current snapshot. Callers hold s.mu.
func (s *Store) publishLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
