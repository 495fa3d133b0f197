// Package scheduler runs periodic maintenance jobs for the test engine.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Expirer closes live sessions whose deadline has passed.
type Expirer interface {
	ExpireStaleSessions(ctx context.Context) (int, error)
}

// StartSessionSweeper schedules Expirer on schedule (standard 5-field cron
// syntax or a descriptor such as "@every 1m"). Stop the returned cron on
// shutdown.
func StartSessionSweeper(schedule string, expirer Expirer, logger *log.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := expirer.ExpireStaleSessions(ctx); err != nil {
			logger.Printf("[SESSION-SWEEPER] error: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("add session sweeper %q: %w", schedule, err)
	}

	logger.Printf("[SESSION-SWEEPER] started schedule=%q", schedule)
	c.Start()
	return c, nil
}
