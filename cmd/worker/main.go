package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/logger"
	"github.com/seap-dev/seap/internal/tasks"
	"github.com/seap-dev/seap/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	var (
		redisAddr           string
		concurrency         int
		logLevel, logFormat string
	)

	cmd := &cobra.Command{
		Use:           "seap-worker",
		Short:         "Deliver queued passcode emails",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(logLevel, logFormat)
			log := logger.GetLogger()
			log.Info().Str("version", version).Msg("Starting SEAP worker")

			asynqServer := asynq.NewServer(
				asynq.RedisClientOpt{Addr: redisAddr},
				asynq.Config{
					Concurrency: concurrency,
					Queues: map[string]int{
						tasks.QueueMail: 1,
					},
					Logger: &asynqLogger{log: log},
				},
			)

			sender := workers.LogSender{Logger: log}

			mux := asynq.NewServeMux()
			mux.HandleFunc(tasks.TypeSendPasscode, func(ctx context.Context, t *asynq.Task) error {
				return workers.HandleSendPasscode(ctx, t, sender, log)
			})

			if err := asynqServer.Start(mux); err != nil {
				return fmt.Errorf("failed to start worker: %w", err)
			}

			// Handle graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan

			log.Info().Msg("Stopping worker - waiting for tasks to finish...")
			asynqServer.Shutdown()
			log.Info().Msg("Worker shutdown complete")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&redisAddr, "redis-addr", envOr("SEAP_REDIS_ADDR", "localhost:6379"), "Redis address")
	flags.IntVar(&concurrency, "concurrency", 4, "Number of concurrent deliveries")
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

// asynqLogger makes zerolog satisfy asynq's logger interface
type asynqLogger struct {
	log zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.log.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Fatal().Msg(fmt.Sprint(args...))
}
