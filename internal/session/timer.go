package session

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"affconsole/internal/notify"
)

func (m *Manager) startTimerLocked() {
	m.stopTimerLocked()
	if m.closed || m.interval <= 0 {
		return
	}

	logger := cronLogger{log: m.log}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	c.Schedule(cron.Every(m.interval), cron.FuncJob(m.tick))
	c.Start()
	m.timer = c
	m.log.Debug().Dur("interval", m.interval).Msg("refresh timer started")
}

// stopTimerLocked does not wait for a running tick, which may be blocked on
// m.mu. Close waits outside the lock instead.
func (m *Manager) stopTimerLocked() {
	if m.timer == nil {
		return
	}
	m.timer.Stop()
	m.timer = nil
}

func (m *Manager) tick() {
	if m.isClosed() {
		return
	}
	switch m.State() {
	case Unauthenticated, Authenticating:
		return
	}

	ctx := context.Background()
	if m.sharedRefresh(ctx) != refreshFailed {
		return
	}
	// Close may have run while the exchange was in flight.
	if m.isClosed() {
		m.log.Debug().Msg("refresh failed after close, keeping notifier quiet")
		return
	}
	m.logout(ctx, notify.LevelError, "auth.sessionExpired")
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// cronLogger routes cron's own messages into zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
