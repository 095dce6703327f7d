// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/processor"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
)

// IngestResult describes what happened to one captured event.
type IngestResult struct {
	Outcome processor.Outcome
	Reason  string
	Event   domain.RecordedEvent
	Status  domain.RecordingStatus
}

// Ingest runs a raw captured event through normalization, the processor
// and the event tree. Both intake channels end up here, so dedup and
// ordering hold regardless of how the event arrived.
func (m *Manager) Ingest(ctx context.Context, id uuid.UUID, raw normalizer.RawEvent) (IngestResult, error) {
	r, err := m.lookup(id)
	if err != nil {
		return IngestResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return IngestResult{}, err
	}

	ev, err := m.normalizer.Normalize(raw)
	if err != nil {
		return IngestResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	status := r.session.Status
	if status != domain.StatusActive {
		return IngestResult{Status: status}, domain.Conflictf("session %s is %s and not accepting events", id, status)
	}
	r.session.LastSeenAt = m.clock()

	decision := m.processor.Decide(&r.state, ev)
	switch decision.Outcome {
	case processor.Filtered:
		return IngestResult{Outcome: processor.Filtered, Reason: decision.Reason, Status: status}, nil
	case processor.Merged:
		merged, err := r.tree.Update(decision.Into, mergePatch(ev))
		switch {
		case err == nil:
			r.state.Observe(merged)
			r.dirty = true
			m.publish(r, realtime.EventUpdated, merged)
			return IngestResult{Outcome: processor.Merged, Reason: decision.Reason, Event: merged, Status: status}, nil
		case errors.Is(err, domain.ErrNotFound):
			// the event we would merge into was deleted meanwhile
			r.state.Forget(decision.Into)
		default:
			return IngestResult{}, err
		}
	case processor.Accepted:
	}

	added, err := r.tree.Append(ev)
	if err != nil {
		return IngestResult{}, err
	}
	r.state.Observe(added)
	r.dirty = true
	m.publish(r, realtime.EventAdded, added)
	return IngestResult{Outcome: processor.Accepted, Event: added, Status: status}, nil
}

// mergePatch keeps the latest values of a collapsed duplicate.
func mergePatch(ev domain.RecordedEvent) model.Patch {
	p := model.Patch{
		Timestamp: &ev.Timestamp,
		Metadata:  ev.Metadata,
	}
	if ev.Value != "" {
		p.Value = &ev.Value
	}
	if ev.URL != "" {
		p.URL = &ev.URL
	}
	if ev.Element != nil {
		p.Element = ev.Element
	}
	return p
}
