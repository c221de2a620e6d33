// Package devserver is a small in-memory stand-in for the SEAP auth and
// profile endpoints. It backs local development of the CLI and its
// integration tests. Campaigns and analytics are not served. Passcode email
// goes through an optional Mailer, usually the asynq queue drained by
// cmd/worker.
package devserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/seap-dev/seap/internal/workers"
)

// SeedUser is an account created at startup
type SeedUser struct {
	Email    string
	Password string
	Role     string
}

// Options configures a Server
type Options struct {
	// Secret signs tokens. A random one is generated when empty.
	Secret string
	// TokenTTL bounds token lifetime. Defaults to 24h.
	TokenTTL time.Duration
	// OTPOnLogin makes every login answer with a passcode instead of a token.
	OTPOnLogin bool
	// RequireVerification makes registration issue a passcode and withhold
	// the token until it is verified.
	RequireVerification bool
	// EchoOTP includes passcodes in responses, as development backends do.
	EchoOTP bool
	// AllowOrigins lists CORS origins for browser clients.
	AllowOrigins []string
	Users        []SeedUser
	// Mailer delivers passcodes out of band. Nil keeps them in responses
	// and logs only.
	Mailer Mailer
	// SweepSchedule is the cron schedule for purging expired passcodes.
	// Empty disables the sweeper.
	SweepSchedule string
}

// Server is the dev stand-in
type Server struct {
	router *gin.Engine
	logger zerolog.Logger
	opts   Options
	users  *userStore
	tokens *tokenIssuer
}

// New builds a Server with its routes
func New(opts Options, logger zerolog.Logger) (*Server, error) {
	secret := opts.Secret
	if secret == "" {
		// 64 hex characters = 32 bytes of randomness
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = hex.EncodeToString(b)
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}

	s := &Server{
		logger: logger,
		opts:   opts,
		users:  newUserStore(),
		tokens: &tokenIssuer{secret: []byte(secret), ttl: opts.TokenTTL},
	}

	for _, seed := range opts.Users {
		role := seed.Role
		if role == "" {
			role = roleUser
		}
		if _, err := s.users.create(seed.Email, seed.Password, role, true); err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", seed.Email, err)
		}
	}

	s.setupRouter()
	return s, nil
}

// PurgeExpiredPasscodes drops passcodes that expired before now
func (s *Server) PurgeExpiredPasscodes(now time.Time) int {
	return s.users.purgeExpired(now)
}

// Handler exposes the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	if len(s.opts.AllowOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	api := s.router.Group("/api")
	api.GET("/health", s.healthCheck)

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", s.register)
		authRoutes.POST("/login", s.login)
		authRoutes.POST("/verify-otp", s.verifyOTP)
		authRoutes.POST("/resend-otp", s.resendOTP)
	}

	userRoutes := api.Group("/user")
	userRoutes.Use(s.jwtAuthMiddleware())
	{
		userRoutes.GET("/profile", s.getProfile)
		userRoutes.PUT("/profile", s.updateProfile)
	}

	adminRoutes := api.Group("/admin")
	adminRoutes.Use(s.jwtAuthMiddleware(), s.adminOnlyMiddleware())
	{
		adminRoutes.GET("/users", s.listUsers)
		adminRoutes.DELETE("/users/:id", s.deleteUser)
	}
}

// loggingMiddleware logs each request using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.opts.SweepSchedule != "" {
		schedule, err := workers.ParseSchedule(s.opts.SweepSchedule)
		if err != nil {
			return err
		}
		go workers.RunPasscodeSweeper(ctx, schedule, s, s.logger)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting dev server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down dev server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
