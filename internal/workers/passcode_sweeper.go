package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Purger drops passcodes that expired before now and reports how many
type Purger interface {
	PurgeExpiredPasscodes(now time.Time) int
}

// ParseSchedule parses a standard 5-field cron expression or a descriptor
// such as "@every 5m".
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule '%s': %w", expr, err)
	}
	return schedule, nil
}

// RunPasscodeSweeper purges expired passcodes on schedule until ctx is done
// or the schedule has no next run.
func RunPasscodeSweeper(ctx context.Context, schedule cron.Schedule, purger Purger, logger zerolog.Logger) {
	for {
		now := time.Now()
		next := schedule.Next(now)
		if next.IsZero() {
			logger.Warn().Msg("Sweep schedule has no upcoming run, stopping passcode sweeper")
			return
		}
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case fired := <-timer.C:
			if n := purger.PurgeExpiredPasscodes(fired); n > 0 {
				logger.Info().Int("purged", n).Msg("Purged expired passcodes")
			} else {
				logger.Debug().Msg("No expired passcodes to purge")
			}
		}
	}
}
