package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seap-dev/seap/internal/cli/session"
	"github.com/seap-dev/seap/internal/devserver"
)

func TestAdmin_GateRedirects(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{})

	_, err := env.run("admin", "users", "ls")
	assert.EqualError(t, err, "Admin access required. Please run 'seap login' with an admin account")
	assert.ErrorIs(t, err, session.ErrAdminRequired)

	env.login(userEmail)

	_, err = env.run("admin", "users", "ls")
	assert.EqualError(t, err, "Admin access required. Use 'seap dashboard' to see your own campaigns")
	assert.ErrorIs(t, err, session.ErrAdminRequired)

	_, err = env.run("admin", "users", "delete", "1", "--yes")
	assert.ErrorIs(t, err, session.ErrAdminRequired)

	assert.Zero(t, env.hitCount("/api/admin/users"), "non-admins must be stopped before any admin request")
	assert.Zero(t, env.hitCount("/api/admin/users/1"))
}

func TestAdmin_Users(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{})
	env.login(adminEmail)

	out, err := env.run("admin", "users", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, adminEmail)
	assert.Contains(t, out, userEmail)

	_, err = env.run("admin", "users", "delete", "1", "--yes")
	assert.EqualError(t, err, "you cannot delete your own account")

	out, err = env.run("admin", "users", "delete", "2", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "User deleted")

	out, err = env.run("admin", "users", "ls")
	require.NoError(t, err)
	assert.NotContains(t, out, userEmail)

	_, err = env.run("admin", "users", "delete", "2", "--yes")
	assert.EqualError(t, err, "User not found")

	// Still signed in after a 404
	assert.True(t, env.sessionPersisted())
}
