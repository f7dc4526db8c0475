// Package scheduler runs the server's periodic background tasks:
// keepalive pings, stale connection sweeps, and daily statistics.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hexhaven-project/hexhaven/internal/config"
	"github.com/hexhaven-project/hexhaven/internal/db"
	"github.com/hexhaven-project/hexhaven/internal/dispatch"
	"github.com/hexhaven-project/hexhaven/internal/game"
	"github.com/hexhaven-project/hexhaven/internal/registry"
)

// Scheduler manages periodic background tasks.
type Scheduler struct {
	cfg   *config.Config
	reg   *registry.Registry
	table *game.Table
	disp  *dispatch.Dispatcher
	store *db.Store // nil when the server runs without accounts
}

// New creates a task scheduler. store may be nil.
func New(cfg *config.Config, reg *registry.Registry, table *game.Table, disp *dispatch.Dispatcher, store *db.Store) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		reg:   reg,
		table: table,
		disp:  disp,
		store: store,
	}
}

// Start begins running all scheduled tasks and blocks until the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().Msg("scheduler started")

	go s.runPingLoop(ctx)
	go s.runStaleSweepLoop(ctx)
	go s.runStatsLoop(ctx)

	<-ctx.Done()
	log.Info().Msg("scheduler stopped")
}

// runPingLoop sends the keepalive probe to every handshaken
// connection at the configured interval.
func (s *Scheduler) runPingLoop(ctx context.Context) {
	interval := time.Duration(s.cfg.GetServerData().PingIntervalSec) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.disp.PingAll(int(interval.Seconds()))
		}
	}
}

// runStaleSweepLoop closes connections that have been silent longer
// than the sweep window. The read loop's own timeout handles most
// cases; the sweep catches sockets that died without an error.
func (s *Scheduler) runStaleSweepLoop(ctx context.Context) {
	sweepSec := s.cfg.GetServerData().StaleConnectionSweepSec
	if sweepSec <= 0 {
		return
	}
	window := time.Duration(sweepSec) * time.Second

	ticker := time.NewTicker(window / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale := s.reg.Stale(window)
			for _, c := range stale {
				log.Info().
					Str("conn_id", c.ID).
					Str("nickname", c.Nickname).
					Dur("idle", time.Since(c.LastActive())).
					Msg("closing stale connection")
				c.Conn.Close()
			}
			if len(stale) > 0 {
				log.Info().Int("count", len(stale)).Msg("stale connection sweep completed")
			}
		}
	}
}

// runStatsLoop logs daily server statistics.
func (s *Scheduler) runStatsLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectStats()
		}
	}
}

// collectStats gathers and logs daily statistics.
func (s *Scheduler) collectStats() {
	ev := log.Info().
		Int("games", s.table.Count()).
		Int("connections", s.reg.Count())

	if s.store != nil {
		if accounts, err := s.store.Count(); err == nil {
			ev = ev.Int("accounts", accounts)
		}
	}
	ev.Msg("daily stats collected")
}
