// SPDX-License-Identifier: Apache-2.0

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

// Patch is a partial update of an event. Nil fields are left untouched.
// Structural payloads are replaced whole, never merged field by field.
type Patch struct {
	Action       *string                   `json:"action,omitempty"`
	URL          *string                   `json:"url,omitempty"`
	Value        *string                   `json:"value,omitempty"`
	Timestamp    *time.Time                `json:"timestamp,omitempty"`
	Element      *domain.ElementInfo       `json:"element,omitempty"`
	Loop         *domain.LoopConfig        `json:"loop,omitempty"`
	Condition    *domain.Condition         `json:"condition,omitempty"`
	DataSource   *domain.DataSource        `json:"data_source,omitempty"`
	Binding      *domain.VariableBinding   `json:"binding,omitempty"`
	ClearBinding bool                      `json:"clear_binding,omitempty"`
	Assertions   *[]domain.AssertionConfig `json:"assertions,omitempty"`
	Group        *domain.StepGroup         `json:"group,omitempty"`
	Metadata     map[string]string         `json:"metadata,omitempty"`
	Parent       *ParentRef                `json:"parent,omitempty"`
}

// ParentRef asks Update to move the event. A nil ID moves it to the root.
type ParentRef struct {
	ID *uuid.UUID `json:"id"`
}

type DeleteOptions struct {
	// Cascade deletes the whole subtree of a populated loop or conditional
	// instead of rejecting the delete.
	Cascade bool
}

// Removal reports what a delete touched.
type Removal struct {
	Deleted  []uuid.UUID `json:"deleted"`
	Detached []uuid.UUID `json:"detached,omitempty"`
}

// Append inserts ev as the last child of ev.ParentID (or the root).
func (t *Tree) Append(ev domain.RecordedEvent) (domain.RecordedEvent, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if _, exists := t.events[ev.ID]; exists {
		return domain.RecordedEvent{}, domain.Conflictf("event %s already exists", ev.ID)
	}
	if err := ValidateEvent(ev); err != nil {
		return domain.RecordedEvent{}, err
	}
	if err := t.checkParent(ev.ParentID); err != nil {
		return domain.RecordedEvent{}, err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = t.now().UTC()
	}
	if ev.Type == domain.EventGroup && ev.Group != nil {
		ev.Group.MemberIDs = nil
	}

	stored := ev.Clone()
	stored.Order = len(t.childIDs(stored.ParentID)) + 1
	t.events[stored.ID] = &stored
	return stored.Clone(), nil
}

// Update applies p to the event. Validation happens on a copy so a rejected
// patch leaves the stored event untouched.
func (t *Tree) Update(id uuid.UUID, p Patch) (domain.RecordedEvent, error) {
	cur, ok := t.events[id]
	if !ok {
		return domain.RecordedEvent{}, domain.NotFoundf("event %s not found", id)
	}

	next := cur.Clone()
	if p.Action != nil {
		next.Action = *p.Action
	}
	if p.URL != nil {
		next.URL = *p.URL
	}
	if p.Value != nil {
		next.Value = *p.Value
	}
	if p.Timestamp != nil {
		next.Timestamp = p.Timestamp.UTC()
	}
	if p.Element != nil {
		next.Element = p.Element.Clone()
	}
	if p.Loop != nil {
		l := cloneEvent(domain.RecordedEvent{Loop: p.Loop}).Loop
		next.Loop = l
	}
	if p.Condition != nil {
		next.Condition = p.Condition.Clone()
	}
	if p.DataSource != nil {
		next.DataSource = cloneEvent(domain.RecordedEvent{DataSource: p.DataSource}).DataSource
	}
	if p.ClearBinding {
		next.Binding = nil
	}
	if p.Binding != nil {
		next.Binding = cloneEvent(domain.RecordedEvent{Binding: p.Binding}).Binding
	}
	if p.Assertions != nil {
		next.Assertions = cloneEvent(domain.RecordedEvent{Assertions: *p.Assertions}).Assertions
		for i := range next.Assertions {
			if next.Assertions[i].ID == uuid.Nil {
				next.Assertions[i].ID = uuid.New()
			}
		}
	}
	if p.Group != nil {
		g := *p.Group
		g.MemberIDs = nil
		next.Group = &g
	}
	if len(p.Metadata) > 0 {
		if next.Metadata == nil {
			next.Metadata = make(map[string]string, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			if v == "" {
				delete(next.Metadata, k)
				continue
			}
			next.Metadata[k] = v
		}
	}

	if err := ValidateEvent(next); err != nil {
		return domain.RecordedEvent{}, err
	}

	if p.Parent != nil && !domain.SameParent(p.Parent.ID, cur.ParentID) {
		if err := t.canMove(id, p.Parent.ID); err != nil {
			return domain.RecordedEvent{}, err
		}
		*cur = next
		t.move(id, p.Parent.ID)
		return cur.Clone(), nil
	}

	*cur = next
	return cur.Clone(), nil
}

// Move re-parents id as the last child of parent, renumbering both sibling
// sets.
func (t *Tree) Move(id uuid.UUID, parent *uuid.UUID) (domain.RecordedEvent, error) {
	ev, ok := t.events[id]
	if !ok {
		return domain.RecordedEvent{}, domain.NotFoundf("event %s not found", id)
	}
	if domain.SameParent(ev.ParentID, parent) {
		return ev.Clone(), nil
	}
	if err := t.canMove(id, parent); err != nil {
		return domain.RecordedEvent{}, err
	}
	t.move(id, parent)
	return t.events[id].Clone(), nil
}

func (t *Tree) canMove(id uuid.UUID, parent *uuid.UUID) error {
	if err := t.checkParent(parent); err != nil {
		return err
	}
	if parent != nil && t.isAncestor(id, *parent) {
		return domain.Conflictf("moving %s under %s would create a cycle", id, *parent)
	}
	return nil
}

func (t *Tree) move(id uuid.UUID, parent *uuid.UUID) {
	ev := t.events[id]
	old := ev.ParentID
	ev.ParentID = copyParent(parent)
	ev.Order = len(t.childIDs(parent)) + 1
	t.renumber(old)
	t.renumber(parent)
}

// Delete removes an event. Deleting a group detaches its members to the
// root in the group's place. Populated loops and conditionals are rejected
// with a conflict unless opts.Cascade is set.
func (t *Tree) Delete(id uuid.UUID, opts DeleteOptions) (Removal, error) {
	ev, ok := t.events[id]
	if !ok {
		return Removal{}, domain.NotFoundf("event %s not found", id)
	}

	switch ev.Type {
	case domain.EventGroup:
		detached, err := t.Ungroup(id)
		if err != nil {
			return Removal{}, err
		}
		return Removal{Deleted: []uuid.UUID{id}, Detached: detached}, nil
	case domain.EventLoop, domain.EventConditional:
		if t.hasChildren(id) && !opts.Cascade {
			return Removal{}, domain.Conflictf("%s %s still has nested events; reassign them or delete with cascade", ev.Type, id)
		}
	case domain.EventNavigation, domain.EventClick, domain.EventInput, domain.EventAssertion,
		domain.EventDataSource, domain.EventCapture, domain.EventCustom:
	}

	parent := copyParent(ev.ParentID)
	deleted := t.subtree(id)
	for _, d := range deleted {
		delete(t.events, d)
	}
	t.renumber(parent)
	return Removal{Deleted: deleted}, nil
}

// subtree lists id and all of its descendants, parents before children.
func (t *Tree) subtree(id uuid.UUID) []uuid.UUID {
	out := []uuid.UUID{id}
	for i := 0; i < len(out); i++ {
		cur := out[i]
		out = append(out, t.childIDs(&cur)...)
	}
	return out
}

// Reorder assigns orders 1..n to the children of parent following ids,
// which must be an exact permutation of the current children.
func (t *Tree) Reorder(parent *uuid.UUID, ids []uuid.UUID) ([]domain.RecordedEvent, error) {
	if parent != nil {
		if _, ok := t.events[*parent]; !ok {
			return nil, domain.NotFoundf("parent event %s not found", *parent)
		}
	}

	current := t.childIDs(parent)
	if len(ids) != len(current) {
		return nil, domain.Validationf("reorder lists %d ids but the parent has %d children", len(ids), len(current))
	}
	members := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		members[id] = true
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !members[id] {
			return nil, domain.Validationf("event %s is not a child of this parent", id)
		}
		if seen[id] {
			return nil, domain.Validationf("event %s listed twice", id)
		}
		seen[id] = true
	}

	for i, id := range ids {
		t.events[id].Order = i + 1
	}
	return t.Children(parent), nil
}

// Group wraps sibling events into a new group event that takes the slot of
// the first member. Members keep their relative order inside the group.
func (t *Tree) Group(name string, ids []uuid.UUID) (domain.RecordedEvent, error) {
	if name == "" {
		return domain.RecordedEvent{}, domain.Validationf("group name is required")
	}
	if len(ids) == 0 {
		return domain.RecordedEvent{}, domain.Validationf("group needs at least one member")
	}

	var parent *uuid.UUID
	seen := make(map[uuid.UUID]bool, len(ids))
	for i, id := range ids {
		ev, ok := t.events[id]
		if !ok {
			return domain.RecordedEvent{}, domain.NotFoundf("event %s not found", id)
		}
		if seen[id] {
			return domain.RecordedEvent{}, domain.Validationf("event %s listed twice", id)
		}
		seen[id] = true
		if i == 0 {
			parent = copyParent(ev.ParentID)
			continue
		}
		if !domain.SameParent(parent, ev.ParentID) {
			return domain.RecordedEvent{}, domain.Conflictf("group members must share the same parent")
		}
	}

	siblings := t.childIDs(parent)
	group := &domain.RecordedEvent{
		ID:        uuid.New(),
		Type:      domain.EventGroup,
		Timestamp: t.now().UTC(),
		ParentID:  copyParent(parent),
		Group:     &domain.StepGroup{Name: name},
	}

	slot := make([]uuid.UUID, 0, len(siblings)-len(ids)+1)
	inner := make([]uuid.UUID, 0, len(ids))
	placed := false
	for _, sid := range siblings {
		if !seen[sid] {
			slot = append(slot, sid)
			continue
		}
		inner = append(inner, sid)
		if !placed {
			slot = append(slot, group.ID)
			placed = true
		}
	}

	t.events[group.ID] = group
	for i, sid := range slot {
		t.events[sid].Order = i + 1
	}
	for i, mid := range inner {
		m := t.events[mid]
		gid := group.ID
		m.ParentID = &gid
		m.Order = i + 1
	}
	return t.decorated(group.ID), nil
}

// Ungroup deletes a group event and detaches its members. The members move
// to the root; when the group itself sat at the root they take its slot.
func (t *Tree) Ungroup(id uuid.UUID) ([]uuid.UUID, error) {
	g, ok := t.events[id]
	if !ok {
		return nil, domain.NotFoundf("group %s not found", id)
	}
	if g.Type != domain.EventGroup {
		return nil, domain.Validationf("event %s is a %s, not a group", id, g.Type)
	}

	members := t.childIDs(&id)
	roots := t.childIDs(nil)
	order := make([]uuid.UUID, 0, len(roots)+len(members))
	if g.ParentID == nil {
		for _, rid := range roots {
			if rid == id {
				order = append(order, members...)
				continue
			}
			order = append(order, rid)
		}
	} else {
		order = append(order, roots...)
		order = append(order, members...)
	}

	oldParent := copyParent(g.ParentID)
	delete(t.events, id)
	for _, mid := range members {
		t.events[mid].ParentID = nil
	}
	for i, rid := range order {
		t.events[rid].Order = i + 1
	}
	if oldParent != nil {
		t.renumber(oldParent)
	}
	return members, nil
}

// decorated returns a copy of the event with derived group membership.
func (t *Tree) decorated(id uuid.UUID) domain.RecordedEvent {
	ev := t.events[id].Clone()
	if ev.Type == domain.EventGroup && ev.Group != nil {
		ev.Group.MemberIDs = t.childIDs(&id)
	}
	return ev
}

// Decorated is Get with group membership filled in.
func (t *Tree) Decorated(id uuid.UUID) (domain.RecordedEvent, bool) {
	if _, ok := t.events[id]; !ok {
		return domain.RecordedEvent{}, false
	}
	return t.decorated(id), true
}

func cloneEvent(ev domain.RecordedEvent) domain.RecordedEvent { return ev.Clone() }
