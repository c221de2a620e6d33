package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"

	"github.com/seap-dev/seap/internal/logger"
)

// Serves the asynq dashboard for the passcode email queue
func main() {
	logger.Init(envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "console"))
	log := logger.GetLogger()

	redisAddr := envOr("SEAP_REDIS_ADDR", "localhost:6379")
	addr := ":" + envOr("ASYNQMON_PORT", "8090")

	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/asynqmon",
		RedisConnOpt: asynq.RedisClientOpt{Addr: redisAddr},
		ReadOnly:     os.Getenv("ASYNQMON_READ_ONLY") == "true",
	})
	defer h.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", addr).Str("redis", redisAddr).Msg("Starting Asynqmon")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Asynqmon failed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
