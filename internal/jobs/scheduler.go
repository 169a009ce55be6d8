package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SessionPurger drops refresh sessions past their expiry.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	sessions SessionPurger
	spec     string
	log      zerolog.Logger
}

// NewScheduler runs the session purge on spec, a six-field cron expression
// with seconds. An empty spec disables the job.
func NewScheduler(sessions SessionPurger, spec string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		spec:     spec,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.sessions == nil || s.spec == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.purgeSessions); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule. The returned context is done once a running
// purge has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired sessions failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("removed", n).Msg("expired sessions purged")
	}
}
