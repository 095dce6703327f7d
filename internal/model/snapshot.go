// SPDX-License-Identifier: Apache-2.0

package model

import (
	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

// Snapshot is an immutable copy of a tree. The child index is built once
// per snapshot, so readers can traverse without touching the live arena.
type Snapshot struct {
	events   map[uuid.UUID]domain.RecordedEvent
	children map[uuid.UUID][]uuid.UUID
	roots    []uuid.UUID
}

// Node is the nested export view of an event.
type Node struct {
	domain.RecordedEvent
	Children []Node `json:"children,omitempty"`
}

func (t *Tree) Snapshot() *Snapshot {
	s := &Snapshot{
		events:   make(map[uuid.UUID]domain.RecordedEvent, len(t.events)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for id := range t.events {
		s.events[id] = t.decorated(id)
	}
	s.roots = t.childIDs(nil)
	for id, ev := range t.events {
		if ev.Type.Container() {
			if kids := t.childIDs(&id); len(kids) > 0 {
				s.children[id] = kids
			}
		}
	}
	return s
}

func (s *Snapshot) Len() int { return len(s.events) }

func (s *Snapshot) Get(id uuid.UUID) (domain.RecordedEvent, bool) {
	ev, ok := s.events[id]
	if !ok {
		return domain.RecordedEvent{}, false
	}
	return ev.Clone(), true
}

func (s *Snapshot) Roots() []domain.RecordedEvent {
	return s.collect(s.roots)
}

func (s *Snapshot) Children(id uuid.UUID) []domain.RecordedEvent {
	return s.collect(s.children[id])
}

func (s *Snapshot) collect(ids []uuid.UUID) []domain.RecordedEvent {
	out := make([]domain.RecordedEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.events[id].Clone())
	}
	return out
}

// Events flattens the tree depth first, parents before their children.
func (s *Snapshot) Events() []domain.RecordedEvent {
	out := make([]domain.RecordedEvent, 0, len(s.events))
	var walk func(ids []uuid.UUID)
	walk = func(ids []uuid.UUID) {
		for _, id := range ids {
			out = append(out, s.events[id].Clone())
			walk(s.children[id])
		}
	}
	walk(s.roots)
	return out
}

func (s *Snapshot) Nested() []Node {
	var build func(ids []uuid.UUID) []Node
	build = func(ids []uuid.UUID) []Node {
		if len(ids) == 0 {
			return nil
		}
		nodes := make([]Node, 0, len(ids))
		for _, id := range ids {
			nodes = append(nodes, Node{
				RecordedEvent: s.events[id].Clone(),
				Children:      build(s.children[id]),
			})
		}
		return nodes
	}
	out := build(s.roots)
	if out == nil {
		out = []Node{}
	}
	return out
}
