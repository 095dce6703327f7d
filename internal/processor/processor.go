// SPDX-License-Identifier: Apache-2.0

// Package processor decides what happens to a normalized event before it
// reaches the event model: accept it, collapse it into the previous event,
// or drop it as noise.
package processor

import (
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

const DefaultWindow = 300 * time.Millisecond

type Outcome string

const (
	Accepted Outcome = "accepted"
	Merged   Outcome = "merged"
	Filtered Outcome = "filtered"
)

type Decision struct {
	Outcome Outcome
	Reason  string
	// Into is the event a merged event collapses into.
	Into uuid.UUID
}

// State is the per-session memory of the last event that made it into the
// model. It is owned by the session and guarded by the session's lock.
type State struct {
	last *seen
}

type seen struct {
	id     uuid.UUID
	typ    domain.EventType
	key    string
	parent *uuid.UUID
	at     time.Time
}

type Processor struct {
	window time.Duration
}

func New(window time.Duration) *Processor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Processor{window: window}
}

func (p *Processor) Window() time.Duration { return p.window }

// Decide classifies ev against the session state without changing it.
func (p *Processor) Decide(state *State, ev domain.RecordedEvent) Decision {
	if reason, noisy := noise(ev); noisy {
		return Decision{Outcome: Filtered, Reason: reason}
	}
	if state == nil || state.last == nil {
		return Decision{Outcome: Accepted}
	}

	last := state.last
	if last.typ != ev.Type || !domain.SameParent(last.parent, ev.ParentID) {
		return Decision{Outcome: Accepted}
	}
	if dedupKey(ev) != last.key || last.key == "" {
		return Decision{Outcome: Accepted}
	}
	gap := ev.Timestamp.Sub(last.at)
	if gap < 0 {
		gap = -gap
	}
	if gap > p.window {
		return Decision{Outcome: Accepted}
	}
	return Decision{Outcome: Merged, Into: last.id, Reason: "duplicate within dedup window"}
}

// Observe records ev as the latest event in the model.
func (s *State) Observe(ev domain.RecordedEvent) {
	s.last = &seen{
		id:     ev.ID,
		typ:    ev.Type,
		key:    dedupKey(ev),
		parent: ev.ParentID,
		at:     ev.Timestamp,
	}
}

// Forget drops the memory of id so later events never merge into an event
// that is gone.
func (s *State) Forget(id uuid.UUID) {
	if s.last != nil && s.last.id == id {
		s.last = nil
	}
}

func (s *State) Last() (uuid.UUID, bool) {
	if s.last == nil {
		return uuid.Nil, false
	}
	return s.last.id, true
}

func dedupKey(ev domain.RecordedEvent) string {
	switch ev.Type {
	case domain.EventNavigation:
		if ev.URL == "" {
			return ""
		}
		return "url:" + ev.URL
	case domain.EventClick, domain.EventInput, domain.EventCustom, domain.EventAssertion, domain.EventCapture:
		if key := ev.Element.Key(); key != "" {
			return ev.Action + "|" + key
		}
		return ""
	case domain.EventLoop, domain.EventConditional, domain.EventDataSource, domain.EventGroup:
		return ""
	}
	return ""
}

// noise reports whether ev carries nothing a generated test could use.
func noise(ev domain.RecordedEvent) (string, bool) {
	switch ev.Type {
	case domain.EventNavigation:
		if ev.URL == "" {
			return "navigation without url", true
		}
		return "", false
	case domain.EventCustom:
		switch ev.Action {
		case "focus", "blur", "focusin", "focusout", "mouseover", "hover":
			return "focus change without interaction", true
		}
	case domain.EventClick, domain.EventInput, domain.EventAssertion, domain.EventCapture,
		domain.EventLoop, domain.EventConditional, domain.EventDataSource, domain.EventGroup:
	}
	if !ev.Element.HasLocator() && ev.Value == "" && ev.Type != domain.EventCapture {
		return "no actionable locator and no value", true
	}
	return "", false
}
