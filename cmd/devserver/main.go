package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/devserver"
	"github.com/seap-dev/seap/internal/logger"
)

func main() {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	var (
		addr                string
		opts                devserver.Options
		adminEmail          string
		adminPassword       string
		allowOrigins        string
		redisAddr           string
		logLevel, logFormat string
	)

	cmd := &cobra.Command{
		Use:           "seap-devserver",
		Short:         "In-memory stand-in for the SEAP auth endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(logLevel, logFormat)
			log := logger.GetLogger()

			if adminEmail != "" {
				opts.Users = append(opts.Users, devserver.SeedUser{Email: adminEmail, Password: adminPassword, Role: "admin"})
			}
			if allowOrigins != "" {
				opts.AllowOrigins = strings.Split(allowOrigins, ",")
			}

			if redisAddr != "" {
				asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
				defer asynqClient.Close()
				opts.Mailer = devserver.NewQueueMailer(asynqClient)
				log.Info().Str("redis", redisAddr).Msg("Passcode emails go to the worker queue")
			}

			srv, err := devserver.New(opts, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", envOr("SEAP_DEV_ADDR", ":8080"), "Listen address")
	flags.StringVar(&opts.Secret, "secret", os.Getenv("SEAP_DEV_SECRET"), "JWT signing secret (random when empty)")
	flags.BoolVar(&opts.OTPOnLogin, "otp-on-login", false, "Require a passcode on every login")
	flags.BoolVar(&opts.RequireVerification, "require-verification", false, "Require email verification after registering")
	flags.BoolVar(&opts.EchoOTP, "echo-otp", true, "Return passcodes in responses")
	flags.StringVar(&adminEmail, "admin-email", os.Getenv("SEAP_DEV_ADMIN_EMAIL"), "Seed an admin account with this email")
	flags.StringVar(&adminPassword, "admin-password", envOr("SEAP_DEV_ADMIN_PASSWORD", "admin123"), "Password of the seeded admin")
	flags.StringVar(&redisAddr, "redis-addr", os.Getenv("SEAP_REDIS_ADDR"), "Redis address for queueing passcode emails (disabled when empty)")
	flags.StringVar(&opts.SweepSchedule, "sweep-schedule", envOr("SEAP_DEV_SWEEP_SCHEDULE", "*/5 * * * *"), "Cron schedule for purging expired passcodes")
	flags.StringVar(&allowOrigins, "cors", "http://localhost:3000", "Comma-separated CORS origins")
	flags.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level")
	flags.StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "console"), "Log format (console, json)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
