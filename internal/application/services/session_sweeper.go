package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pakkapols/techfinder/internal/infrastructure/observability"
	"github.com/rs/zerolog/log"
)

// SessionSweeper expires idle sessions on its own schedule, independent of
// request handling. It stops cleanly on context cancellation; a failing
// sweep logs and backs off but never terminates the loop.
type SessionSweeper struct {
	memory   *ConversationMemoryService
	metrics  *observability.Metrics
	timeout  time.Duration
	interval time.Duration
}

// NewSessionSweeper creates a sweeper for the given session timeout and
// sweep interval.
func NewSessionSweeper(memory *ConversationMemoryService, metrics *observability.Metrics, timeout, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		memory:   memory,
		metrics:  metrics,
		timeout:  timeout,
		interval: interval,
	}
}

// Start launches the sweep loop in a background goroutine. Cancel ctx to
// stop it.
func (s *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		failures := 0
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopping session sweeper")
				return
			case <-ticker.C:
				if err := s.sweepOnce(ctx); err != nil {
					failures++
					backoff := s.backoffFor(failures)
					log.Warn().Err(err).Dur("backoff", backoff).Msg("session sweep failed")
					ticker.Reset(backoff)
					continue
				}
				if failures > 0 {
					failures = 0
					ticker.Reset(s.interval)
				}
			}
		}
	}()
	log.Info().Dur("interval", s.interval).Dur("timeout", s.timeout).Msg("started session sweeper")
}

func (s *SessionSweeper) sweepOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
		}
	}()

	removed := s.memory.SweepExpired(s.timeout)
	if removed > 0 {
		observability.RecordSessionsSwept(ctx, s.metrics, removed)
		log.Debug().Int("removed", removed).Msg("swept expired sessions")
	}
	return nil
}

// backoffFor doubles the interval per consecutive failure, capped at
// eight times the configured interval.
func (s *SessionSweeper) backoffFor(failures int) time.Duration {
	backoff := s.interval
	for i := 1; i < failures && backoff < 8*s.interval; i++ {
		backoff *= 2
	}
	if backoff > 8*s.interval {
		backoff = 8 * s.interval
	}
	return backoff
}
