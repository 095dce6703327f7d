// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/browser"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/processor"
)

// record is the session-scoped context every operation runs against. mu
// serializes writers on the event tree and lets readers share it.
type record struct {
	mu         sync.RWMutex
	session    domain.RecordingSession
	tree       *model.Tree
	state      processor.State
	capability browser.Capability
	dirty      bool

	// ctx is canceled once the session reaches a terminal status so
	// long-running readers such as code generation can stop early.
	ctx    context.Context
	cancel context.CancelFunc
}

func newRecord(s domain.RecordingSession) *record {
	ctx, cancel := context.WithCancel(context.Background())
	return &record{
		session: s,
		tree:    model.New(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// exportLocked copies the descriptor with the flattened event tree. The
// caller holds at least a read lock.
func (r *record) exportLocked() domain.RecordingSession {
	out := r.descriptorLocked()
	out.Events = r.tree.Snapshot().Events()
	return out
}

// descriptorLocked copies the descriptor without events.
func (r *record) descriptorLocked() domain.RecordingSession {
	out := r.session
	out.Events = nil
	out.Metadata = copyStrings(r.session.Metadata)
	out.Audit = append([]domain.AuditEntry(nil), r.session.Audit...)
	if r.session.EndedAt != nil {
		t := *r.session.EndedAt
		out.EndedAt = &t
	}
	return out
}

func (r *record) auditLocked(at time.Time, kind, detail string) {
	r.session.Audit = append(r.session.Audit, domain.AuditEntry{At: at, Kind: kind, Detail: detail})
	r.dirty = true
}

func (r *record) id() uuid.UUID { return r.session.ID }

// StatusChange is the payload of SESSION_STATUS_CHANGED notifications.
type StatusChange struct {
	SessionID uuid.UUID              `json:"session_id"`
	From      domain.RecordingStatus `json:"from,omitempty"`
	Status    domain.RecordingStatus `json:"status"`
	Reason    string                 `json:"reason,omitempty"`
	At        time.Time              `json:"at"`
}

// ErrorNotice is the payload of SESSION_ERROR notifications.
type ErrorNotice struct {
	SessionID uuid.UUID `json:"session_id"`
	Error     string    `json:"error"`
	Fatal     bool      `json:"fatal"`
}

// Transition is returned by pause and resume. Changed is false when the
// session was already in the requested state.
type Transition struct {
	Session domain.RecordingSession `json:"session"`
	Changed bool                    `json:"changed"`
}

var allowed = map[domain.RecordingStatus][]domain.RecordingStatus{
	domain.StatusInitializing: {domain.StatusActive, domain.StatusStopping, domain.StatusError},
	domain.StatusActive:       {domain.StatusPaused, domain.StatusStopping, domain.StatusError},
	domain.StatusPaused:       {domain.StatusActive, domain.StatusStopping, domain.StatusError},
	domain.StatusStopping:     {domain.StatusCompleted, domain.StatusError},
	domain.StatusCompleted:    nil,
	domain.StatusError:        nil,
}

func canTransition(from, to domain.RecordingStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

func copyStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
