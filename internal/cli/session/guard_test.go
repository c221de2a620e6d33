package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seap-dev/seap/internal/cli/client"
	"github.com/seap-dev/seap/internal/cli/session"
	"github.com/seap-dev/seap/internal/cli/storage"
)

func seeded(t *testing.T, role string) *session.Store {
	t.Helper()
	mem := storage.NewMemory()
	if role != "" {
		mem.Seed("t1", []byte(`{"id":"1","email":"a@b.com","role":"`+role+`"}`))
	}
	s := session.New(&fakeAuth{}, mem, zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

func TestRequireAdmin_WaitsForInitialize(t *testing.T) {
	s := seeded(t, "admin")

	type decision struct {
		identity *session.Identity
		err      error
	}
	done := make(chan decision, 1)
	go func() {
		identity, err := session.RequireAdmin(context.Background(), s)
		done <- decision{identity, err}
	}()

	select {
	case d := <-done:
		t.Fatalf("gate decided while state was unknown: %+v", d)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, s.Initialize(context.Background()))

	select {
	case d := <-done:
		require.NoError(t, d.err)
		assert.Equal(t, session.RoleAdmin, d.identity.Role)
	case <-time.After(time.Second):
		t.Fatal("gate never decided after Initialize")
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		wantErr error
	}{
		{name: "admin", role: "admin"},
		{name: "user", role: "user", wantErr: session.ErrAdminRequired},
		{name: "unrecognised role", role: "auditor", wantErr: session.ErrAdminRequired},
		{name: "signed out", role: "", wantErr: session.ErrAdminRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seeded(t, tt.role)
			require.NoError(t, s.Initialize(context.Background()))

			identity, err := session.RequireAdmin(context.Background(), s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, identity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@b.com", identity.Email)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	t.Run("signed in", func(t *testing.T) {
		s := seeded(t, "user")
		require.NoError(t, s.Initialize(context.Background()))

		identity, err := session.RequireAuth(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, client.ID("1"), identity.ID)
	})

	t.Run("signed out", func(t *testing.T) {
		s := seeded(t, "")
		require.NoError(t, s.Initialize(context.Background()))

		_, err := session.RequireAuth(context.Background(), s)
		assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	})

	t.Run("cancelled while unknown", func(t *testing.T) {
		s := seeded(t, "user")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := session.RequireAuth(ctx, s)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRequireAdmin_FollowsLogout(t *testing.T) {
	s := seeded(t, "admin")
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	_, err := session.RequireAdmin(ctx, s)
	require.NoError(t, err)

	s.Logout(ctx)

	_, err = session.RequireAdmin(ctx, s)
	assert.ErrorIs(t, err, session.ErrAdminRequired)
}
