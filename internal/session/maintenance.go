// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/metrics"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
)

// View is a consistent read of one session: the descriptor and an
// immutable snapshot of its tree taken under the same read lock.
type View struct {
	Session domain.RecordingSession
	Tree    *model.Snapshot
	done    context.Context
}

// Bind derives a context from parent that is also canceled when the
// session fails or completes.
func (v View) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if v.done == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(v.done, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Snapshot waits for in-flight writes and returns a View. Terminal sessions
// are still readable; their View is not bound to a live context.
func (m *Manager) Snapshot(id uuid.UUID) (View, error) {
	r, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := View{Session: r.descriptorLocked(), Tree: r.tree.Snapshot()}
	if !r.session.Status.Terminal() {
		v.done = r.ctx
	}
	return v, nil
}

// SnapshotStored builds a View from the store for sessions no longer in
// memory.
func (m *Manager) SnapshotStored(ctx context.Context, id uuid.UUID) (View, error) {
	if v, err := m.Snapshot(id); err == nil {
		return v, nil
	}
	if m.store == nil {
		return View{}, domain.NotFoundf("session %s not found", id)
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	tree, err := model.FromEvents(s.Events)
	if err != nil {
		return View{}, err
	}
	s.Events = nil
	return View{Session: s, Tree: tree.Snapshot()}, nil
}

// Evict drops terminal sessions that ended more than EvictAfter ago. Dirty
// sessions are persisted first; one whose save fails stays in memory until a
// later pass succeeds.
func (m *Manager) Evict(ctx context.Context) []uuid.UUID {
	cutoff := m.clock().Add(-m.evictAfter)
	var evicted []uuid.UUID

	for _, r := range m.snapshotRecords() {
		r.mu.Lock()
		ended := r.session.EndedAt
		expired := r.session.Status.Terminal() && ended != nil && ended.Before(cutoff)
		var desc domain.RecordingSession
		flush := false
		if expired && r.dirty {
			desc = r.exportLocked()
			r.dirty = false
			flush = true
		}
		r.mu.Unlock()
		if !expired {
			continue
		}
		if flush {
			if err := m.persist(ctx, r, desc); err != nil {
				continue
			}
		}

		m.mu.Lock()
		delete(m.byID, r.session.ID)
		delete(m.byKey, r.session.SessionKey)
		m.mu.Unlock()
		evicted = append(evicted, r.session.ID)
	}

	m.mu.RLock()
	n := len(m.byID)
	m.mu.RUnlock()
	metrics.SetRegisteredSessions(n)
	return evicted
}

// CheckLiveness asks the browser of every live session whether it still
// responds. A failing check is audited and reported on the session topic;
// it does not change the session status.
func (m *Manager) CheckLiveness(ctx context.Context) []uuid.UUID {
	var unhealthy []uuid.UUID
	for _, r := range m.snapshotRecords() {
		r.mu.RLock()
		status := r.session.Status
		capability := r.capability
		r.mu.RUnlock()
		if capability == nil || (status != domain.StatusActive && status != domain.StatusPaused) {
			continue
		}
		if capability.IsActive(ctx) {
			continue
		}

		unhealthy = append(unhealthy, r.id())
		r.mu.Lock()
		r.auditLocked(m.clock(), domain.AuditHeartbeatGap, "browser did not answer liveness check")
		m.publish(r, realtime.SessionError, ErrorNotice{
			SessionID: r.id(),
			Error:     "browser did not answer liveness check",
			Fatal:     false,
		})
		r.mu.Unlock()
		m.logger.Warn("session liveness check failed", "session_id", r.id(), "status", status)
	}
	return unhealthy
}

// PersistDirty saves every session changed since its last save.
func (m *Manager) PersistDirty(ctx context.Context) int {
	if m.store == nil {
		return 0
	}
	saved := 0
	for _, r := range m.snapshotRecords() {
		r.mu.Lock()
		if !r.dirty {
			r.mu.Unlock()
			continue
		}
		desc := r.exportLocked()
		r.dirty = false
		r.mu.Unlock()

		if err := m.store.Save(ctx, desc); err != nil {
			m.logger.Error("persist session failed", "session_id", desc.ID, "error", err)
			r.mu.Lock()
			r.dirty = true
			r.mu.Unlock()
			continue
		}
		saved++
	}
	return saved
}

// Idle reports how long ago the session was last seen by either intake
// channel.
func (m *Manager) Idle(id uuid.UUID) (time.Duration, error) {
	r, err := m.lookup(id)
	if err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return m.clock().Sub(r.session.LastSeenAt), nil
}
