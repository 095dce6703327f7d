// SPDX-License-Identifier: Apache-2.0

// Package worker runs the periodic maintenance pass over live recording
// sessions: flushing unsaved changes, probing browsers and evicting
// finished sessions from memory.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultInterval = 15 * time.Second

// Maintainer is the part of the session manager the janitor drives.
type Maintainer interface {
	PersistDirty(ctx context.Context) int
	CheckLiveness(ctx context.Context) []uuid.UUID
	Evict(ctx context.Context) []uuid.UUID
}

type Deps struct {
	Sessions Maintainer
	Logger   *slog.Logger
	Interval time.Duration
}

type Worker struct {
	sessions Maintainer
	logger   *slog.Logger
	interval time.Duration
}

// Pass summarizes one maintenance pass.
type Pass struct {
	Persisted int
	Unhealthy []uuid.UUID
	Evicted   []uuid.UUID
}

func New(deps Deps) *Worker {
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}

	interval := deps.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Worker{
		sessions: deps.Sessions,
		logger:   l,
		interval: interval,
	}
}

// ProcessOnce runs a single pass. Dirty sessions are saved before eviction
// so a session is never dropped with unsaved events.
func (w *Worker) ProcessOnce(ctx context.Context) (Pass, error) {
	if err := ctx.Err(); err != nil {
		return Pass{}, err
	}

	var p Pass
	p.Persisted = w.sessions.PersistDirty(ctx)
	p.Unhealthy = w.sessions.CheckLiveness(ctx)
	p.Evicted = w.sessions.Evict(ctx)

	if p.Persisted > 0 || len(p.Unhealthy) > 0 || len(p.Evicted) > 0 {
		w.logger.Info("maintenance pass completed",
			"persisted", p.Persisted,
			"unhealthy", len(p.Unhealthy),
			"evicted", len(p.Evicted),
		)
	} else {
		w.logger.Debug("maintenance pass completed")
	}
	return p, nil
}

// Run repeats ProcessOnce every interval until ctx is done. A final flush
// runs on shutdown with a fresh context.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("janitor started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			n := w.sessions.PersistDirty(flushCtx)
			cancel()
			w.logger.Info("janitor stopped", "flushed", n)
			return nil
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("maintenance pass failed", "error", err)
			}
		}
	}
}
