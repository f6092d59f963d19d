package ops

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
	"github.com/porystore/porystore/internal/metrics"
)

// Scheduler runs the delayed purge checks behind soft deletion. A soft
// delete flips the pending flag synchronously and schedules a purge check
// after the grace period; undelete clears the flag. There is no cancel
// token: the purge check is a conditional DELETE that re-reads the flag at
// fire time, so a timer for an undeleted creature fires as a no-op instead
// of racing a cancellation signal.
type Scheduler struct {
	db      *sql.DB
	delay   time.Duration
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler with the configured grace period.
func NewScheduler(database *sql.DB, delay time.Duration, log zerolog.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		db:      database,
		delay:   delay,
		log:     log.With().Str("component", "scheduler").Logger(),
		metrics: m,
		stop:    make(chan struct{}),
	}
}

// Schedule queues a purge check for a creature after the grace period, or
// immediately when immediate is true. It never blocks the caller; the
// soft-delete request is acknowledged before the grace period elapses.
func (s *Scheduler) Schedule(id string, immediate bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	delay := s.delay
	if immediate {
		delay = 0
	}

	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-s.stop:
			// Shutdown abandons the timer. The creature stays pending and the
			// sweep (or the next start-up sweep) finishes the purge.
			return
		}

		s.runPurge(id)
	}()
}

// runPurge performs the purge check for one creature. The conditional DELETE
// re-reads pending_deletion at fire time: still true means purge, false or
// already gone means no-op. Failures are logged and counted but never
// propagate; each creature's purge is isolated and the row stays pending for
// the sweep to retry.
func (s *Scheduler) runPurge(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := db.PurgeIfPending(ctx, s.db, id)
	if err != nil {
		s.metrics.PurgeFailures.Inc()
		purgeErr := errors.NewPurgeFailed(id, err)
		s.log.Error().Str("creature", id).Msg(purgeErr.Message)
		return
	}
	if purged {
		s.metrics.Purges.Inc()
		s.log.Info().Str("creature", id).Msg("purged creature after grace period")
	}
}

// Sweep purges every creature whose pending state predates the grace period.
// It reconciles creatures stranded by a failed purge or a restart that
// dropped their timers. Returns the number purged.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.delay).Unix()
	stale, err := db.ListPendingSince(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, c := range stale {
		ok, err := db.PurgeIfPending(ctx, s.db, c.ID)
		if err != nil {
			s.metrics.PurgeFailures.Inc()
			s.log.Error().Str("creature", c.ID).Err(err).Msg("sweep purge failed")
			continue
		}
		if ok {
			purged++
			s.metrics.Purges.Inc()
		}
	}
	if purged > 0 {
		s.log.Info().Int("purged", purged).Msg("sweep reconciled stale pending deletions")
	}
	return purged, nil
}

// RunSweeper periodically runs Sweep until the context is canceled or the
// scheduler is closed. A zero or negative interval disables it.
func (s *Scheduler) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error().Err(err).Msg("sweep failed")
			}
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		}
	}
}

// Close stops accepting new purge checks and abandons waiting timers.
// In-flight purges finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.stop)
}

// Wait blocks until all scheduled purge checks have completed or been
// abandoned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
