package session_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seap-dev/seap/internal/cli/client"
	"github.com/seap-dev/seap/internal/cli/session"
	"github.com/seap-dev/seap/internal/cli/storage"
)

// fakeAuth answers like the backend would, one canned response per call
type fakeAuth struct {
	mu sync.Mutex

	loginResp  *client.AuthResponse
	loginErr   error
	verifyResp *client.AuthResponse
	verifyErr  error
	regResp    *client.AuthResponse
	regErr     error

	lastRole string
	calls    int
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*client.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Register(ctx context.Context, email, password, role string) (*client.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastRole = role
	return f.regResp, f.regErr
}

func (f *fakeAuth) VerifyOTP(ctx context.Context, email, code string) (*client.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.verifyResp, f.verifyErr
}

func exampleLogin() *client.AuthResponse {
	return &client.AuthResponse{
		Token: "t1",
		User:  &client.User{ID: "1", Email: "a@b.com", Role: "user"},
	}
}

func newStore(t *testing.T, auth session.Authenticator, mem *storage.Memory) *session.Store {
	t.Helper()
	s := session.New(auth, mem, zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

func TestInitialize_Empty(t *testing.T) {
	mem := storage.NewMemory()
	s := newStore(t, &fakeAuth{}, mem)

	assert.Equal(t, session.StateUnknown, s.State())
	select {
	case <-s.Ready():
		t.Fatal("store must not be ready before Initialize")
	default:
	}

	require.NoError(t, s.Initialize(context.Background()))

	assert.Equal(t, session.StateUnauthenticated, s.State())
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Credential())
	select {
	case <-s.Ready():
	default:
		t.Fatal("store must be ready after Initialize")
	}
}

func TestLogin_ExampleAndLogout(t *testing.T) {
	mem := storage.NewMemory()
	s := newStore(t, &fakeAuth{loginResp: exampleLogin()}, mem)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	result, err := s.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.False(t, result.OTPRequired)

	want := &session.Identity{ID: "1", Email: "a@b.com", Role: session.RoleUser}
	assert.Equal(t, want, result.Identity)
	assert.Equal(t, want, s.Current())
	assert.Equal(t, "t1", s.Credential())
	assert.Equal(t, session.StateAuthenticated, s.State())

	credential, identity := mem.Entries()
	assert.Equal(t, "t1", credential)
	assert.JSONEq(t, `{"id":"1","email":"a@b.com","role":"user"}`, string(identity))

	s.Logout(ctx)

	assert.Nil(t, s.Current())
	assert.Empty(t, s.Credential())
	assert.Equal(t, session.StateUnauthenticated, s.State())
	assert.True(t, mem.Empty())
}

func TestLogin_PersistenceRoundTrip(t *testing.T) {
	mem := storage.NewMemory()
	ctx := context.Background()

	first := newStore(t, &fakeAuth{loginResp: &client.AuthResponse{
		Token: "tok",
		User:  &client.User{ID: "65f1c0ffee", Email: "admin@b.com", Role: "admin"},
	}}, mem)
	require.NoError(t, first.Initialize(ctx))
	_, err := first.Login(ctx, "admin@b.com", "secret1")
	require.NoError(t, err)
	before := first.Current()

	// A fresh process reading the same storage
	second := newStore(t, &fakeAuth{}, mem)
	require.NoError(t, second.Initialize(ctx))

	assert.Equal(t, before, second.Current())
	assert.Equal(t, "tok", second.Credential())
	assert.Equal(t, session.StateAuthenticated, second.State())
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()

	t.Run("never logged in", func(t *testing.T) {
		mem := storage.NewMemory()
		s := newStore(t, &fakeAuth{}, mem)
		require.NoError(t, s.Initialize(ctx))

		s.Logout(ctx)
		s.Logout(ctx)

		assert.Nil(t, s.Current())
		assert.True(t, mem.Empty())
	})

	t.Run("before initialize", func(t *testing.T) {
		mem := storage.NewMemory()
		mem.Seed("stale", []byte(`{"id":"9","email":"x@y.com","role":"user"}`))
		s := newStore(t, &fakeAuth{}, mem)

		s.Logout(ctx)

		assert.Equal(t, session.StateUnauthenticated, s.State())
		assert.True(t, mem.Empty())
	})

	t.Run("storage failure is swallowed", func(t *testing.T) {
		mem := storage.NewMemory()
		s := newStore(t, &fakeAuth{loginResp: exampleLogin()}, mem)
		require.NoError(t, s.Initialize(ctx))
		_, err := s.Login(ctx, "a@b.com", "secret1")
		require.NoError(t, err)

		mem.ClearErr = errors.New("keychain locked")
		s.Logout(ctx)

		assert.Nil(t, s.Current())
		assert.Empty(t, s.Credential())
	})
}

func TestInitialize_CorruptIdentity(t *testing.T) {
	tests := []struct {
		name     string
		identity string
	}{
		{name: "not json", identity: "{not json"},
		{name: "json null", identity: "null"},
		{name: "wrong shape", identity: `["a@b.com"]`},
		{name: "empty record", identity: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storage.NewMemory()
			mem.Seed("t1", []byte(tt.identity))
			s := newStore(t, &fakeAuth{}, mem)

			require.NoError(t, s.Initialize(context.Background()))

			assert.Nil(t, s.Current())
			assert.Empty(t, s.Credential())
			assert.Equal(t, session.StateUnauthenticated, s.State())
			assert.True(t, mem.Empty(), "corrupt session must be cleared")
		})
	}
}

func TestInitialize_HalfWrittenPair(t *testing.T) {
	t.Run("credential only", func(t *testing.T) {
		mem := storage.NewMemory()
		mem.Seed("t1", nil)
		s := newStore(t, &fakeAuth{}, mem)

		require.NoError(t, s.Initialize(context.Background()))
		assert.Nil(t, s.Current())
		assert.True(t, mem.Empty())
	})

	t.Run("identity only", func(t *testing.T) {
		mem := storage.NewMemory()
		mem.Seed("", []byte(`{"id":"1","email":"a@b.com","role":"user"}`))
		s := newStore(t, &fakeAuth{}, mem)

		require.NoError(t, s.Initialize(context.Background()))
		assert.Nil(t, s.Current())
		assert.Empty(t, s.Credential())
		assert.True(t, mem.Empty())
	})
}

func TestInitialize_StorageErrors(t *testing.T) {
	t.Run("read failure", func(t *testing.T) {
		mem := storage.NewMemory()
		mem.LoadErr = errors.New("permission denied")
		s := newStore(t, &fakeAuth{}, mem)

		err := s.Initialize(context.Background())
		require.Error(t, err)
		assert.Equal(t, session.StateUnauthenticated, s.State())
		assert.Nil(t, s.Current())
	})

	t.Run("corrupt container", func(t *testing.T) {
		mem := storage.NewMemory()
		mem.LoadErr = session.ErrCorrupt
		s := newStore(t, &fakeAuth{}, mem)

		require.NoError(t, s.Initialize(context.Background()))
		assert.Equal(t, session.StateUnauthenticated, s.State())
	})
}

func TestLogin_OTPPending(t *testing.T) {
	tests := []struct {
		name string
		resp *client.AuthResponse
	}{
		{name: "otp_required flag", resp: &client.AuthResponse{OTPRequired: true, Message: "Passcode sent"}},
		{name: "echoed otp", resp: &client.AuthResponse{OTP: "123456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storage.NewMemory()
			s := newStore(t, &fakeAuth{loginResp: tt.resp}, mem)
			ctx := context.Background()
			require.NoError(t, s.Initialize(ctx))

			result, err := s.Login(ctx, "a@b.com", "secret1")
			require.NoError(t, err)

			assert.True(t, result.OTPRequired)
			assert.Nil(t, result.Identity)
			assert.Equal(t, tt.resp.OTP, result.DevOTP)
			assert.Nil(t, s.Current())
			assert.Equal(t, session.StateUnauthenticated, s.State())
			assert.True(t, mem.Empty())
		})
	}
}

func TestLogin_RejectedLeavesSessionUntouched(t *testing.T) {
	mem := storage.NewMemory()
	auth := &fakeAuth{loginResp: exampleLogin()}
	s := newStore(t, auth, mem)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))
	_, err := s.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	auth.loginResp = nil
	auth.loginErr = &client.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}

	_, err = s.Login(ctx, "a@b.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", client.Message(err, "Login failed"))

	assert.Equal(t, "a@b.com", s.Current().Email)
	assert.Equal(t, "t1", s.Credential())
}

func TestLogin_MissingCredential(t *testing.T) {
	tests := []struct {
		name    string
		resp    *client.AuthResponse
		wantMsg string
	}{
		{name: "empty body", resp: &client.AuthResponse{}, wantMsg: "Login failed"},
		{name: "token without user", resp: &client.AuthResponse{Token: "t1", Message: "odd"}, wantMsg: "odd"},
		{name: "user without token", resp: &client.AuthResponse{User: &client.User{ID: "1"}}, wantMsg: "Login failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storage.NewMemory()
			s := newStore(t, &fakeAuth{loginResp: tt.resp}, mem)
			ctx := context.Background()
			require.NoError(t, s.Initialize(ctx))

			_, err := s.Login(ctx, "a@b.com", "secret1")
			require.Error(t, err)
			assert.ErrorIs(t, err, session.ErrMissingCredential)
			assert.EqualError(t, err, tt.wantMsg)
			assert.Nil(t, s.Current())
			assert.True(t, mem.Empty())
		})
	}
}

func TestLogin_SaveFailureKeepsPreviousState(t *testing.T) {
	mem := storage.NewMemory()
	mem.SaveErr = errors.New("disk full")
	s := newStore(t, &fakeAuth{loginResp: exampleLogin()}, mem)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	_, err := s.Login(ctx, "a@b.com", "secret1")
	require.Error(t, err)

	assert.Nil(t, s.Current())
	assert.Empty(t, s.Credential())
	assert.Equal(t, session.StateUnauthenticated, s.State())
}

func TestRegister_NeverAdoptsCredential(t *testing.T) {
	mem := storage.NewMemory()
	auth := &fakeAuth{regResp: &client.AuthResponse{
		Message: "User registered successfully",
		Token:   "t-register",
		User:    &client.User{ID: "3", Email: "n@b.com", Role: "user"},
		OTP:     "654321",
	}}
	s := newStore(t, auth, mem)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	result, err := s.Register(ctx, "n@b.com", "secret1", "")
	require.NoError(t, err)

	assert.Equal(t, "user", auth.lastRole)
	assert.Equal(t, "User registered successfully", result.Message)
	assert.Equal(t, "654321", result.DevOTP)
	assert.Nil(t, s.Current())
	assert.True(t, mem.Empty())
}

func TestVerifyOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("success adopts session", func(t *testing.T) {
		mem := storage.NewMemory()
		s := newStore(t, &fakeAuth{verifyResp: &client.AuthResponse{
			Message: "Email verified successfully",
			Token:   "t2",
			User:    &client.User{ID: "2", Email: "v@b.com", Role: "admin"},
		}}, mem)
		require.NoError(t, s.Initialize(ctx))

		identity, err := s.VerifyOTP(ctx, "v@b.com", "123456")
		require.NoError(t, err)
		assert.Equal(t, session.RoleAdmin, identity.Role)
		assert.Equal(t, "t2", s.Credential())
		assert.False(t, mem.Empty())
	})

	t.Run("failure leaves session untouched", func(t *testing.T) {
		mem := storage.NewMemory()
		s := newStore(t, &fakeAuth{
			loginResp: exampleLogin(),
			verifyErr: &client.APIError{Status: http.StatusBadRequest, Message: "Invalid OTP"},
		}, mem)
		require.NoError(t, s.Initialize(ctx))
		_, err := s.Login(ctx, "a@b.com", "secret1")
		require.NoError(t, err)

		_, err = s.VerifyOTP(ctx, "a@b.com", "000000")
		require.Error(t, err)
		assert.Equal(t, "Invalid OTP", client.Message(err, "OTP verification failed"))
		assert.Equal(t, "t1", s.Credential())
	})

	t.Run("2xx without token", func(t *testing.T) {
		mem := storage.NewMemory()
		s := newStore(t, &fakeAuth{verifyResp: &client.AuthResponse{}}, mem)
		require.NoError(t, s.Initialize(ctx))

		_, err := s.VerifyOTP(ctx, "a@b.com", "123456")
		assert.EqualError(t, err, "OTP verification failed")
		assert.Nil(t, s.Current())
	})
}

func TestInvalidateOnUnauthorized(t *testing.T) {
	ctx := context.Background()
	unauthorized := &client.APIError{Status: http.StatusUnauthorized, Message: "Invalid or expired token"}
	forbidden := &client.APIError{Status: http.StatusForbidden, Message: "Admin access required"}

	login := func(t *testing.T, enabled bool) (*session.Store, *storage.Memory) {
		mem := storage.NewMemory()
		s := newStore(t, &fakeAuth{loginResp: exampleLogin()}, mem)
		s.SetInvalidateOnUnauthorized(enabled)
		require.NoError(t, s.Initialize(ctx))
		_, err := s.Login(ctx, "a@b.com", "secret1")
		require.NoError(t, err)
		return s, mem
	}

	t.Run("enabled", func(t *testing.T) {
		s, mem := login(t, true)

		assert.False(t, s.InvalidateOnUnauthorized(ctx, forbidden))
		assert.False(t, s.InvalidateOnUnauthorized(ctx, errors.New("boom")))
		assert.NotNil(t, s.Current())

		assert.True(t, s.InvalidateOnUnauthorized(ctx, unauthorized))
		assert.Nil(t, s.Current())
		assert.True(t, mem.Empty())

		// Already logged out
		assert.False(t, s.InvalidateOnUnauthorized(ctx, unauthorized))
	})

	t.Run("disabled", func(t *testing.T) {
		s, _ := login(t, false)
		assert.False(t, s.InvalidateOnUnauthorized(ctx, unauthorized))
		assert.NotNil(t, s.Current())
	})
}

func TestSubscribe(t *testing.T) {
	mem := storage.NewMemory()
	s := newStore(t, &fakeAuth{loginResp: exampleLogin()}, mem)
	ctx := context.Background()

	updates, cancel := s.Subscribe()
	defer cancel()

	first := <-updates
	assert.Equal(t, session.StateUnknown, first.State)
	assert.Nil(t, first.Identity)

	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, session.StateUnauthenticated, (<-updates).State)

	_, err := s.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	snap := <-updates
	assert.Equal(t, session.StateAuthenticated, snap.State)
	assert.Equal(t, "a@b.com", snap.Identity.Email)

	// Subscribers get copies
	snap.Identity.Email = "mutated@b.com"
	assert.Equal(t, "a@b.com", s.Current().Email)
}

func TestSubscribe_SlowReaderSeesLatest(t *testing.T) {
	mem := storage.NewMemory()
	s := newStore(t, &fakeAuth{loginResp: exampleLogin()}, mem)
	ctx := context.Background()

	updates, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Initialize(ctx))
	_, err := s.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	s.Logout(ctx)

	snap := <-updates
	assert.Equal(t, session.StateUnauthenticated, snap.State)
	assert.Nil(t, snap.Identity)

	select {
	case extra := <-updates:
		t.Fatalf("unexpected buffered snapshot: %+v", extra)
	default:
	}
}

func TestSubscribe_CancelAndClose(t *testing.T) {
	s := session.New(&fakeAuth{}, storage.NewMemory(), zerolog.Nop())

	updates, cancel := s.Subscribe()
	<-updates
	cancel()
	cancel() // safe to call twice

	_, ok := <-updates
	assert.False(t, ok, "channel closed after cancel")

	other, otherCancel := s.Subscribe()
	<-other
	s.Close()
	_, ok = <-other
	assert.False(t, ok, "channel closed by Close")
	otherCancel()

	late, _ := s.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing to a closed store yields a closed channel")
}

func TestConcurrentReaders(t *testing.T) {
	mem := storage.NewMemory()
	s := newStore(t, &fakeAuth{loginResp: exampleLogin()}, mem)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Current()
				_ = s.Snapshot()
			}
		}()
	}

	for i := 0; i < 10; i++ {
		_, err := s.Login(ctx, "a@b.com", "secret1")
		require.NoError(t, err)
		s.Logout(ctx)
	}
	wg.Wait()

	assert.Equal(t, session.StateUnauthenticated, s.State())
}

func TestWaitReady_RespectsContext(t *testing.T) {
	s := newStore(t, &fakeAuth{}, storage.NewMemory())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitReady(ctx), context.DeadlineExceeded)
}

// gatedStorage holds Save open after the write lands, until release is closed
type gatedStorage struct {
	*storage.Memory
	saved   chan struct{}
	release chan struct{}
}

func (g *gatedStorage) Save(ctx context.Context, credential string, identity []byte) error {
	err := g.Memory.Save(ctx, credential, identity)
	close(g.saved)
	<-g.release
	return err
}

func TestLogoutDuringLoginKeepsPairTogether(t *testing.T) {
	mem := storage.NewMemory()
	gated := &gatedStorage{Memory: mem, saved: make(chan struct{}), release: make(chan struct{})}
	s := session.New(&fakeAuth{loginResp: exampleLogin()}, gated, zerolog.Nop())
	t.Cleanup(s.Close)
	require.NoError(t, s.Initialize(context.Background()))

	loginDone := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), "a@b.com", "secret1")
		loginDone <- err
	}()
	<-gated.saved

	logoutDone := make(chan struct{})
	go func() {
		s.Logout(context.Background())
		close(logoutDone)
	}()

	select {
	case <-logoutDone:
		t.Fatal("logout finished while the login write was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gated.release)
	require.NoError(t, <-loginDone)
	<-logoutDone

	assert.Equal(t, session.StateUnauthenticated, s.State())
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Credential())
	assert.True(t, mem.Empty())
}

// perEmailAuth hands every email its own credential
type perEmailAuth struct{}

func (perEmailAuth) Login(ctx context.Context, email, password string) (*client.AuthResponse, error) {
	return &client.AuthResponse{
		Token: "token-" + email,
		User:  &client.User{ID: client.ID(email), Email: email, Role: "user"},
	}, nil
}

func (perEmailAuth) Register(ctx context.Context, email, password, role string) (*client.AuthResponse, error) {
	return &client.AuthResponse{}, nil
}

func (perEmailAuth) VerifyOTP(ctx context.Context, email, code string) (*client.AuthResponse, error) {
	return nil, errors.New("not used")
}

func TestConcurrentLoginsKeepPairTogether(t *testing.T) {
	mem := storage.NewMemory()
	s := newStore(t, perEmailAuth{}, mem)
	require.NoError(t, s.Initialize(context.Background()))

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		for _, email := range []string{"a@b.com", "c@d.com"} {
			wg.Add(1)
			go func(email string) {
				defer wg.Done()
				_, err := s.Login(context.Background(), email, "secret1")
				assert.NoError(t, err)
			}(email)
		}
		wg.Wait()

		current := s.Current()
		require.NotNil(t, current)
		credential, identity := mem.Entries()
		assert.Equal(t, s.Credential(), credential)
		assert.Equal(t, "token-"+current.Email, credential)
		assert.Contains(t, string(identity), current.Email)
	}
}
