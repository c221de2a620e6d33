package serverselect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seap-dev/seap/internal/cli/config"
	"github.com/seap-dev/seap/internal/cli/userconfig"
)

func twoServers() *config.Config {
	return &config.Config{Servers: []config.Server{
		{Alias: "prod", URL: "https://seap.example.com"},
		{Alias: "staging", URL: "https://staging.example.com"},
	}}
}

func TestResolveServer_Alias(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	server, err := ResolveServer(twoServers(), "staging")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", server.URL)

	server, err = ResolveServer(twoServers(), "https://seap.example.com")
	require.NoError(t, err)
	assert.Equal(t, "prod", server.Alias)

	_, err = ResolveServer(twoServers(), "nope")
	assert.Error(t, err)
}

func TestResolveServer_SelectedServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SEAP_SERVER_URL", "")
	require.NoError(t, userconfig.SetSelectedServer("https://staging.example.com"))

	server, err := ResolveServer(twoServers(), "")
	require.NoError(t, err)
	assert.Equal(t, "staging", server.Alias)
}

func TestResolveServer_SingleServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SEAP_SERVER_URL", "")
	require.NoError(t, userconfig.SetSelectedServer("https://gone.example.com"))

	cfg := &config.Config{Servers: []config.Server{{Alias: "only", URL: "http://localhost:8080"}}}
	server, err := ResolveServer(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "only", server.Alias)

	// stale selection is cleared
	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestResolveServer_EnvWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SEAP_SERVER_URL", "https://env.example.com")

	cfg := twoServers()
	cfg.Servers = append([]config.Server{{Alias: "env", URL: "https://env.example.com"}}, cfg.Servers...)

	server, err := ResolveServer(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "env", server.Alias)
}
