package session

import (
	"context"
	"errors"
)

var (
	// ErrNotAuthenticated means no session is active.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAdminRequired means the view needs an administrator. It is returned
	// both for a missing identity and for a non-admin role.
	ErrAdminRequired = errors.New("admin access required")
)

// Viewer is the read side of a Store, which is all a gated view needs.
type Viewer interface {
	WaitReady(ctx context.Context) error
	Current() *Identity
}

// RequireAuth waits for the first load to finish and then returns the
// identity, or ErrNotAuthenticated. It never decides while the state is unknown.
func RequireAuth(ctx context.Context, v Viewer) (*Identity, error) {
	if err := v.WaitReady(ctx); err != nil {
		return nil, err
	}
	identity := v.Current()
	if identity == nil {
		return nil, ErrNotAuthenticated
	}
	return identity, nil
}

// RequireAdmin is RequireAuth for administrator views.
func RequireAdmin(ctx context.Context, v Viewer) (*Identity, error) {
	if err := v.WaitReady(ctx); err != nil {
		return nil, err
	}
	identity := v.Current()
	if identity == nil || !identity.Role.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return identity, nil
}
