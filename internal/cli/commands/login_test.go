package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seap-dev/seap/internal/cli/client"
	"github.com/seap-dev/seap/internal/cli/userconfig"
	"github.com/seap-dev/seap/internal/devserver"
)

func TestLogin_WhoamiLogout(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{})

	out, err := env.run("login", "--email", userEmail, "--password", password)
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful!")
	assert.Contains(t, out, "User:   "+userEmail)
	assert.Contains(t, out, "Role:   user")
	assert.True(t, env.sessionPersisted())

	// A new process restores the session from disk
	out, err = env.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, userEmail)
	assert.Contains(t, out, "ID:     2")

	out, err = env.run("whoami", "--remote")
	require.NoError(t, err)
	assert.Contains(t, out, userEmail)

	last, err := userconfig.Load()
	require.NoError(t, err)
	assert.Equal(t, userEmail, last.LastEmail)

	out, err = env.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out of test")
	assert.False(t, env.sessionPersisted())

	_, err = env.run("whoami")
	assert.EqualError(t, err, "Not logged in. Please run 'seap login' first")

	// Logging out again is harmless
	_, err = env.run("logout")
	assert.NoError(t, err)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{})

	_, err := env.run("login", "--email", userEmail, "--password", "wrong-password")
	assert.EqualError(t, err, "Invalid credentials")
	assert.False(t, env.sessionPersisted())
}

func TestLogin_ValidationBeforeNetwork(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{})

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "bad email",
			args:    []string{"login", "--email", "not-an-email", "--password", password},
			wantErr: "Please enter a valid email address",
		},
		{
			name:    "short password on register",
			args:    []string{"register", "--email", "new@seap.test", "--password", "12345", "--otp", "123456"},
			wantErr: "Password must be at least 6 characters",
		},
		{
			name:    "bad role",
			args:    []string{"register", "--email", "new@seap.test", "--password", password, "--role", "root"},
			wantErr: "invalid role 'root', must be one of: user, admin",
		},
		{
			name:    "malformed passcode",
			args:    []string{"verify", "--email", userEmail, "--otp", "12ab"},
			wantErr: "Passcode must be exactly 6 digits",
		},
		{
			name:    "resend with bad email",
			args:    []string{"resend-otp", "--email", "nope"},
			wantErr: "Please enter a valid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(tt.args...)
			assert.EqualError(t, err, tt.wantErr)
		})
	}

	assert.Zero(t, env.totalHits(), "validation failures must not reach the server")
}

func TestLogin_OTPFlow(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{OTPOnLogin: true})

	// Codes are never 000000, so this login stops at the passcode step
	out, err := env.run("login", "--email", userEmail, "--password", password, "--otp", "000000")
	assert.EqualError(t, err, "Invalid OTP")
	assert.Contains(t, out, "A passcode was sent to "+userEmail)
	assert.False(t, env.sessionPersisted(), "a pending passcode must not establish a session")

	code := passcodeFrom(t, out)

	out, err = env.run("verify", "--email", userEmail, "--otp", code)
	require.NoError(t, err)
	assert.Contains(t, out, "Email verified, you are now logged in")
	assert.True(t, env.sessionPersisted())

	_, err = env.run("verify", "--email", userEmail, "--otp", code)
	assert.EqualError(t, err, "OTP already used")
	assert.True(t, env.sessionPersisted(), "a failed verification keeps the session")

	out, err = env.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, userEmail)
}

func TestRegister_NeedsVerification(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{RequireVerification: true})

	out, err := env.run("register", "--email", "new@seap.test", "--password", password, "--otp", "000000")
	assert.EqualError(t, err, "Invalid OTP")
	assert.Contains(t, out, "Development passcode:")
	assert.False(t, env.sessionPersisted(), "registering must not log in")

	_, err = env.run("register", "--email", "new@seap.test", "--password", password, "--otp", "000000")
	assert.Error(t, err, "email already registered")

	code := passcodeFrom(t, out)
	out, err = env.run("verify", "--email", "new@seap.test", "--otp", code)
	require.NoError(t, err)
	assert.Contains(t, out, "User:   new@seap.test")
	assert.Contains(t, out, "Role:   user")
}

func TestResendOTP(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{})

	out, err := env.run("resend-otp", "--email", userEmail)
	require.NoError(t, err)
	code := passcodeFrom(t, out)

	out, err = env.run("verify", "--email", userEmail, "--otp", code)
	require.NoError(t, err)
	assert.Contains(t, out, userEmail)

	_, err = env.run("resend-otp", "--email", "ghost@seap.test")
	assert.Error(t, err)
}

func TestUnauthorizedEndsSession(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{})
	env.login(userEmail)

	deleteUser(t, env, "2")

	_, err := env.run("whoami", "--remote")
	assert.EqualError(t, err, "Your session has expired. Please run 'seap login' again")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.False(t, env.sessionPersisted())

	_, err = env.run("whoami")
	assert.EqualError(t, err, "Not logged in. Please run 'seap login' first")
}

func TestUnauthorizedKeepsSessionWhenDisabled(t *testing.T) {
	env := setupTestEnvironment(t, devserver.Options{})
	t.Setenv("SEAP_INVALIDATE_ON_UNAUTHORIZED", "false")
	env.login(userEmail)

	deleteUser(t, env, "2")

	_, err := env.run("whoami", "--remote")
	assert.EqualError(t, err, "User not found")
	assert.True(t, env.sessionPersisted())
}

type staticCredential string

func (s staticCredential) Credential() string { return string(s) }

// deleteUser removes a user behind the CLI's back, using the admin account
func deleteUser(t *testing.T, env *testEnv, id string) {
	t.Helper()
	ctx := context.Background()

	api := client.New(env.server.URL)
	resp, err := api.Login(ctx, adminEmail, password)
	require.NoError(t, err)
	require.True(t, resp.HasCredential())

	api.SetCredentialSource(staticCredential(resp.Token))
	require.NoError(t, api.DeleteUser(ctx, id))
}
