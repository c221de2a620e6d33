package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/seap-dev/seap/internal/cli/config"
	"github.com/seap-dev/seap/internal/devserver"
)

const (
	adminEmail = "admin@seap.test"
	userEmail  = "user@seap.test"
	password   = "secret1"
)

// testEnv is a devserver plus an isolated HOME and project dir
type testEnv struct {
	t          *testing.T
	server     *httptest.Server
	dir        string
	sessionDir string

	// hits counts requests per path
	hits sync.Map
}

var seapEnv = []string{
	"SEAP_SERVER_URL",
	"SEAP_EMAIL",
	"SEAP_PASSWORD",
	"SEAP_STORAGE",
	"SEAP_LOG_LEVEL",
	"SEAP_LOG_FORMAT",
	"SEAP_HTTP_TIMEOUT",
	"SEAP_INVALIDATE_ON_UNAUTHORIZED",
}

// isolate points HOME and the working directory at fresh temp dirs and
// blanks every SEAP_* variable.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range seapEnv {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// setupTestEnvironment starts a devserver seeded with one admin and one
// user (ids 1 and 2) and writes a seap.yaml pointing at it.
func setupTestEnvironment(t *testing.T, opts devserver.Options) *testEnv {
	t.Helper()
	dir := isolate(t)

	opts.Secret = "test-secret"
	opts.EchoOTP = true
	opts.Users = append([]devserver.SeedUser{
		{Email: adminEmail, Password: password, Role: "admin"},
		{Email: userEmail, Password: password, Role: "user"},
	}, opts.Users...)

	srv, err := devserver.New(opts, zerolog.Nop())
	require.NoError(t, err)

	return newTestEnv(t, dir, srv.Handler())
}

// newTestEnv serves handler and writes a seap.yaml for it into dir. Sessions
// are kept in files under dir so tests can inspect them.
func newTestEnv(t *testing.T, dir string, handler http.Handler) *testEnv {
	t.Helper()
	env := &testEnv{t: t, dir: dir, sessionDir: filepath.Join(dir, "sessions")}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter, _ := env.hits.LoadOrStore(r.URL.Path, new(atomic.Int64))
		counter.(*atomic.Int64).Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(env.server.Close)

	cfg := config.DefaultConfig()
	cfg.Servers = []config.Server{{URL: env.server.URL, Alias: "test"}}
	cfg.Storage = config.StorageConfig{Backend: config.StorageFile, Path: env.sessionDir}
	cfg.Logging.Level = "disabled"
	require.NoError(t, config.Save(filepath.Join(dir, config.ConfigFileName), cfg))

	return env
}

// run executes the CLI with args and returns everything it printed
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	return runCLI(args...)
}

func runCLI(args ...string) (string, error) {
	root := &cobra.Command{
		Use:           "seap",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	AddCommands(root, &Globals{})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) login(email string) {
	e.t.Helper()
	_, err := e.run("login", "--email", email, "--password", password)
	require.NoError(e.t, err)
}

func (e *testEnv) hitCount(path string) int64 {
	counter, ok := e.hits.Load(path)
	if !ok {
		return 0
	}
	return counter.(*atomic.Int64).Load()
}

func (e *testEnv) totalHits() int64 {
	var total int64
	e.hits.Range(func(_, v any) bool {
		total += v.(*atomic.Int64).Load()
		return true
	})
	return total
}

// sessionPersisted reports whether a session file exists for the server
func (e *testEnv) sessionPersisted() bool {
	entries, err := os.ReadDir(e.sessionDir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".json") {
			return true
		}
	}
	return false
}

var devPasscode = regexp.MustCompile(`Development passcode: (\d{6})`)

// passcodeFrom pulls the echoed passcode out of command output
func passcodeFrom(t *testing.T, output string) string {
	t.Helper()
	m := devPasscode.FindStringSubmatch(output)
	require.NotNil(t, m, "no passcode in output: %s", output)
	return m[1]
}
