package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seap-dev/seap/internal/cli/client"
)

// Role is the authorization level of an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsAdmin reports whether r grants access to administrator views.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Identity is the authenticated user as seen by every view.
type Identity struct {
	ID    client.ID `json:"id"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

var errEmptyIdentity = errors.New("identity record is empty")

func identityFromUser(u *client.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: Role(u.Role)}
}

func encodeIdentity(id Identity) ([]byte, error) {
	data, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity: %w", err)
	}
	return data, nil
}

// decodeIdentity parses a persisted identity record. A record that decodes
// to nothing identifiable counts as corrupt.
func decodeIdentity(data []byte) (*Identity, error) {
	var id *Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("failed to parse identity: %w", err)
	}
	if id == nil || (id.ID == "" && id.Email == "") {
		return nil, errEmptyIdentity
	}
	return id, nil
}
