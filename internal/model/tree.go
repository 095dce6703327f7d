// SPDX-License-Identifier: Apache-2.0

// Package model holds the hierarchical event model of a recording.
//
// The tree is an arena of events keyed by id. Events only store a reference
// to their parent; children are always derived by lookup so there is no
// second structure that can drift. A Tree is not safe for concurrent use:
// the session layer serializes writers and snapshots for readers.
package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

type Tree struct {
	events map[uuid.UUID]*domain.RecordedEvent
	now    func() time.Time
}

func New() *Tree {
	return &Tree{
		events: make(map[uuid.UUID]*domain.RecordedEvent, 64),
		now:    time.Now,
	}
}

// FromEvents rebuilds a tree from an exported event list. Sibling orders are
// renumbered contiguously, keeping the exported relative order.
func FromEvents(events []domain.RecordedEvent) (*Tree, error) {
	t := New()
	for _, ev := range events {
		if ev.ID == uuid.Nil {
			return nil, domain.Validationf("event without id")
		}
		if err := ValidateEvent(ev); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		if _, dup := t.events[ev.ID]; dup {
			return nil, domain.Validationf("duplicate event id %s", ev.ID)
		}
		c := ev.Clone()
		t.events[ev.ID] = &c
	}

	for id, ev := range t.events {
		if ev.ParentID == nil {
			continue
		}
		parent, ok := t.events[*ev.ParentID]
		if !ok {
			return nil, domain.Validationf("event %s references missing parent %s", id, *ev.ParentID)
		}
		if !parent.Type.Container() {
			return nil, domain.Validationf("event %s is nested under non-container %s", id, parent.ID)
		}
		if t.isAncestor(id, *ev.ParentID) {
			return nil, domain.Validationf("event %s is part of a parent cycle", id)
		}
	}

	parents := map[uuid.UUID]bool{}
	t.renumber(nil)
	for _, ev := range t.events {
		if ev.ParentID != nil && !parents[*ev.ParentID] {
			parents[*ev.ParentID] = true
			t.renumber(ev.ParentID)
		}
	}
	return t, nil
}

func (t *Tree) Len() int { return len(t.events) }

func (t *Tree) Get(id uuid.UUID) (domain.RecordedEvent, bool) {
	ev, ok := t.events[id]
	if !ok {
		return domain.RecordedEvent{}, false
	}
	return ev.Clone(), true
}

// Children returns copies of the children of parent (nil for root) in order.
func (t *Tree) Children(parent *uuid.UUID) []domain.RecordedEvent {
	ids := t.childIDs(parent)
	out := make([]domain.RecordedEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.events[id].Clone())
	}
	return out
}

// LastChild returns the most recently ordered child of parent.
func (t *Tree) LastChild(parent *uuid.UUID) (domain.RecordedEvent, bool) {
	ids := t.childIDs(parent)
	if len(ids) == 0 {
		return domain.RecordedEvent{}, false
	}
	return t.events[ids[len(ids)-1]].Clone(), true
}

func (t *Tree) childIDs(parent *uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, 0, 8)
	for id, ev := range t.events {
		if domain.SameParent(ev.ParentID, parent) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := t.events[ids[i]], t.events[ids[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID.String() < b.ID.String()
	})
	return ids
}

func (t *Tree) hasChildren(id uuid.UUID) bool {
	for _, ev := range t.events {
		if ev.ParentID != nil && *ev.ParentID == id {
			return true
		}
	}
	return false
}

// renumber assigns 1..n to the children of parent in their current order.
func (t *Tree) renumber(parent *uuid.UUID) {
	for i, id := range t.childIDs(parent) {
		t.events[id].Order = i + 1
	}
}

// isAncestor reports whether candidate is id itself or one of id's ancestors
// when walking up from start.
func (t *Tree) isAncestor(candidate, start uuid.UUID) bool {
	seen := make(map[uuid.UUID]bool, 8)
	cur := start
	for {
		if cur == candidate {
			return true
		}
		if seen[cur] {
			return true
		}
		seen[cur] = true
		ev, ok := t.events[cur]
		if !ok || ev.ParentID == nil {
			return false
		}
		cur = *ev.ParentID
	}
}

func (t *Tree) checkParent(parent *uuid.UUID) error {
	if parent == nil {
		return nil
	}
	p, ok := t.events[*parent]
	if !ok {
		return domain.NotFoundf("parent event %s not found", *parent)
	}
	if !p.Type.Container() {
		return domain.Validationf("event %s (%s) cannot have children", p.ID, p.Type)
	}
	return nil
}

func copyParent(parent *uuid.UUID) *uuid.UUID {
	if parent == nil {
		return nil
	}
	p := *parent
	return &p
}
