package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/seap-dev/seap/internal/cli/client"
	"github.com/seap-dev/seap/internal/cli/config"
	"github.com/seap-dev/seap/internal/cli/notify"
	"github.com/seap-dev/seap/internal/cli/serverselect"
	"github.com/seap-dev/seap/internal/cli/session"
	"github.com/seap-dev/seap/internal/cli/storage"
	"github.com/seap-dev/seap/internal/cli/validate"
	"github.com/seap-dev/seap/internal/logger"
)

// Globals holds the persistent root flags shared by every command
type Globals struct {
	ServerAlias string
	Plain       bool
}

// app is everything a command needs to talk to one SEAP server
type app struct {
	cmd    *cobra.Command
	cfg    *config.Config
	server *config.Server
	api    *client.Client
	store  *session.Store
	note   *notify.Notifier
	out    io.Writer
	log    zerolog.Logger

	closeStorage func() error
}

// newApp loads config, resolves the server and restores the persisted session.
// Callers must defer close.
func newApp(cmd *cobra.Command, g *Globals) (*app, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	server, err := serverselect.ResolveServer(cfg, g.ServerAlias)
	if err != nil {
		return nil, err
	}
	if server.URL == "" {
		return nil, fmt.Errorf("server URL is empty. Please edit %s and add a valid url", config.ConfigFileName)
	}
	log = log.With().Str("server", server.Alias).Logger()

	sessionStorage, closeStorage, err := storage.Open(cfg.Storage, server.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	api := client.New(server.URL)
	api.SetLogger(log)
	if cfg.HTTP.Timeout > 0 {
		api.SetHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout})
	}

	store := session.New(api, sessionStorage, log)
	store.SetInvalidateOnUnauthorized(cfg.Session.InvalidateOnUnauthorized)
	api.SetCredentialSource(store)

	if err := store.Initialize(commandContext(cmd)); err != nil {
		// Not fatal: the store is unauthenticated and commands can still log in
		log.Warn().Err(err).Msg("Could not restore session")
	}

	out := cmd.OutOrStdout()
	return &app{
		cmd:          cmd,
		cfg:          cfg,
		server:       server,
		api:          api,
		store:        store,
		note:         notify.New(out, g.Plain || !isTerminal(out)),
		out:          out,
		log:          log,
		closeStorage: closeStorage,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	if err := a.closeStorage(); err != nil {
		a.log.Debug().Err(err).Msg("Failed to close session storage")
	}
}

// failure is an error whose text is meant for the user; the cause stays
// reachable for errors.Is.
type failure struct {
	msg string
	err error
}

func (f *failure) Error() string { return f.msg }
func (f *failure) Unwrap() error { return f.err }

// fail converts an error from an authorized call to a user-facing one. A
// rejected credential ends the session first.
func (a *app) fail(ctx context.Context, err error, fallback string) error {
	if a.store.InvalidateOnUnauthorized(ctx, err) {
		return &failure{msg: "Your session has expired. Please run 'seap login' again", err: err}
	}
	return explain(err, fallback)
}

// explain converts errors from the public auth endpoints, where a 401 means
// bad input rather than a stale session.
func explain(err error, fallback string) error {
	var missing *session.MissingCredentialError
	if errors.As(err, &missing) {
		return &failure{msg: missing.Message, err: err}
	}
	var fieldErrs validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		return err
	}
	return &failure{msg: client.Message(err, fallback), err: err}
}

// requireAuth is the gate for signed-in views
func (a *app) requireAuth(ctx context.Context) (*session.Identity, error) {
	identity, err := session.RequireAuth(ctx, a.store)
	if err != nil {
		return nil, &failure{msg: "Not logged in. Please run 'seap login' first", err: err}
	}
	return identity, nil
}

// requireAdmin is the gate for administrator views. Anyone else is sent
// back: to login when signed out, to their dashboard otherwise.
func (a *app) requireAdmin(ctx context.Context) (*session.Identity, error) {
	identity, err := session.RequireAdmin(ctx, a.store)
	if err == nil {
		return identity, nil
	}
	if a.store.Current() == nil {
		return nil, &failure{msg: "Admin access required. Please run 'seap login' with an admin account", err: err}
	}
	return nil, &failure{msg: "Admin access required. Use 'seap dashboard' to see your own campaigns", err: err}
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// withApp adapts a run function that needs an app into a cobra RunE
func withApp(g *Globals, run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, g)
		if err != nil {
			return err
		}
		defer a.close()
		return run(commandContext(cmd), a, args)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
