// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
)

// ReorderResult is the payload of a reorder notification.
type ReorderResult struct {
	ParentID *uuid.UUID             `json:"parent_id,omitempty"`
	Events   []domain.RecordedEvent `json:"events"`
}

// mutate runs fn under the session write lock and publishes its result as
// a typ notification. Terminal sessions are read only.
func mutate[T any](ctx context.Context, m *Manager, id uuid.UUID, typ realtime.MessageType, fn func(r *record) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	r, err := m.lookup(id)
	if err != nil {
		return zero, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.Status.Terminal() {
		return zero, domain.Conflictf("session %s is %s; its recording is read-only", id, r.session.Status)
	}

	out, err := fn(r)
	if err != nil {
		return zero, err
	}
	r.dirty = true
	m.publish(r, typ, out)
	return out, nil
}

func (m *Manager) appendEvent(ctx context.Context, id uuid.UUID, ev domain.RecordedEvent) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventAdded, func(r *record) (domain.RecordedEvent, error) {
		ev.ID = uuid.Nil
		return r.tree.Append(ev)
	})
}

// requireType loads an event and checks its type before a typed update.
func requireType(r *record, eventID uuid.UUID, typ domain.EventType) (domain.RecordedEvent, error) {
	ev, ok := r.tree.Get(eventID)
	if !ok {
		return domain.RecordedEvent{}, domain.NotFoundf("event %s not found", eventID)
	}
	if ev.Type != typ {
		return domain.RecordedEvent{}, domain.Validationf("event %s is a %s, not a %s", eventID, ev.Type, typ)
	}
	return ev, nil
}

func (m *Manager) typedUpdate(ctx context.Context, id, eventID uuid.UUID, typ domain.EventType, p model.Patch) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (domain.RecordedEvent, error) {
		if _, err := requireType(r, eventID, typ); err != nil {
			return domain.RecordedEvent{}, err
		}
		return r.tree.Update(eventID, p)
	})
}

// ---------------- GENERIC EVENT OPERATIONS ----------------

func (m *Manager) UpdateEvent(ctx context.Context, id, eventID uuid.UUID, p model.Patch) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (domain.RecordedEvent, error) {
		out, err := r.tree.Update(eventID, p)
		if err != nil {
			return out, err
		}
		ev, _ := r.tree.Decorated(eventID)
		return ev, nil
	})
}

func (m *Manager) DeleteEvent(ctx context.Context, id, eventID uuid.UUID, opts model.DeleteOptions) (model.Removal, error) {
	return mutate(ctx, m, id, realtime.EventDeleted, func(r *record) (model.Removal, error) {
		removal, err := r.tree.Delete(eventID, opts)
		if err != nil {
			return removal, err
		}
		for _, d := range removal.Deleted {
			r.state.Forget(d)
		}
		return removal, nil
	})
}

func (m *Manager) Reorder(ctx context.Context, id uuid.UUID, parent *uuid.UUID, ids []uuid.UUID) (ReorderResult, error) {
	return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (ReorderResult, error) {
		events, err := r.tree.Reorder(parent, ids)
		if err != nil {
			return ReorderResult{}, err
		}
		return ReorderResult{ParentID: parent, Events: events}, nil
	})
}

func (m *Manager) Move(ctx context.Context, id, eventID uuid.UUID, parent *uuid.UUID) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (domain.RecordedEvent, error) {
		return r.tree.Move(eventID, parent)
	})
}

// ---------------- CONDITIONS ----------------

func (m *Manager) AddCondition(ctx context.Context, id uuid.UUID, parent *uuid.UUID, cond domain.Condition) (domain.RecordedEvent, error) {
	return m.appendEvent(ctx, id, domain.RecordedEvent{
		Type:      domain.EventConditional,
		ParentID:  parent,
		Condition: &cond,
	})
}

func (m *Manager) UpdateCondition(ctx context.Context, id, eventID uuid.UUID, cond domain.Condition) (domain.RecordedEvent, error) {
	return m.typedUpdate(ctx, id, eventID, domain.EventConditional, model.Patch{Condition: &cond})
}

// ---------------- LOOPS ----------------

func (m *Manager) AddLoop(ctx context.Context, id uuid.UUID, parent *uuid.UUID, loop domain.LoopConfig) (domain.RecordedEvent, error) {
	return m.appendEvent(ctx, id, domain.RecordedEvent{
		Type:     domain.EventLoop,
		ParentID: parent,
		Loop:     &loop,
	})
}

func (m *Manager) UpdateLoop(ctx context.Context, id, eventID uuid.UUID, loop domain.LoopConfig) (domain.RecordedEvent, error) {
	return m.typedUpdate(ctx, id, eventID, domain.EventLoop, model.Patch{Loop: &loop})
}

// ---------------- DATA SOURCES ----------------

func (m *Manager) AddDataSource(ctx context.Context, id uuid.UUID, parent *uuid.UUID, ds domain.DataSource) (domain.RecordedEvent, error) {
	return m.appendEvent(ctx, id, domain.RecordedEvent{
		Type:       domain.EventDataSource,
		ParentID:   parent,
		DataSource: &ds,
	})
}

func (m *Manager) UpdateDataSource(ctx context.Context, id, eventID uuid.UUID, ds domain.DataSource) (domain.RecordedEvent, error) {
	return m.typedUpdate(ctx, id, eventID, domain.EventDataSource, model.Patch{DataSource: &ds})
}

func (m *Manager) DeleteDataSource(ctx context.Context, id, eventID uuid.UUID) (model.Removal, error) {
	return mutate(ctx, m, id, realtime.EventDeleted, func(r *record) (model.Removal, error) {
		if _, err := requireType(r, eventID, domain.EventDataSource); err != nil {
			return model.Removal{}, err
		}
		return r.tree.Delete(eventID, model.DeleteOptions{})
	})
}

// ---------------- VARIABLE BINDINGS ----------------

// BindingTarget says where a binding goes: attached to an existing event as
// a companion, or as a new capture event under Parent.
type BindingTarget struct {
	EventID *uuid.UUID
	Parent  *uuid.UUID
}

func (m *Manager) AddVariableBinding(ctx context.Context, id uuid.UUID, target BindingTarget, b domain.VariableBinding) (domain.RecordedEvent, error) {
	if target.EventID != nil {
		eventID := *target.EventID
		return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (domain.RecordedEvent, error) {
			ev, ok := r.tree.Get(eventID)
			if !ok {
				return domain.RecordedEvent{}, domain.NotFoundf("event %s not found", eventID)
			}
			if ev.Binding != nil {
				return domain.RecordedEvent{}, domain.Conflictf("event %s already binds %q", eventID, ev.Binding.Name)
			}
			return r.tree.Update(eventID, model.Patch{Binding: &b})
		})
	}
	return m.appendEvent(ctx, id, domain.RecordedEvent{
		Type:     domain.EventCapture,
		ParentID: target.Parent,
		Element:  b.Element.Clone(),
		Binding:  &b,
	})
}

func (m *Manager) UpdateVariableBinding(ctx context.Context, id, eventID uuid.UUID, b domain.VariableBinding) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (domain.RecordedEvent, error) {
		ev, ok := r.tree.Get(eventID)
		if !ok {
			return domain.RecordedEvent{}, domain.NotFoundf("event %s not found", eventID)
		}
		if ev.Binding == nil {
			return domain.RecordedEvent{}, domain.NotFoundf("event %s has no variable binding", eventID)
		}
		return r.tree.Update(eventID, model.Patch{Binding: &b})
	})
}

// ---------------- ASSERTIONS ----------------

func (m *Manager) AddAssertion(ctx context.Context, id, eventID uuid.UUID, a domain.AssertionConfig) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (domain.RecordedEvent, error) {
		ev, ok := r.tree.Get(eventID)
		if !ok {
			return domain.RecordedEvent{}, domain.NotFoundf("event %s not found", eventID)
		}
		a.ID = uuid.New()
		list := append(ev.Assertions, a)
		return r.tree.Update(eventID, model.Patch{Assertions: &list})
	})
}

func (m *Manager) UpdateAssertion(ctx context.Context, id, eventID, assertionID uuid.UUID, a domain.AssertionConfig) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (domain.RecordedEvent, error) {
		list, idx, err := findAssertion(r, eventID, assertionID)
		if err != nil {
			return domain.RecordedEvent{}, err
		}
		a.ID = assertionID
		list[idx] = a
		return r.tree.Update(eventID, model.Patch{Assertions: &list})
	})
}

func (m *Manager) DeleteAssertion(ctx context.Context, id, eventID, assertionID uuid.UUID) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (domain.RecordedEvent, error) {
		list, idx, err := findAssertion(r, eventID, assertionID)
		if err != nil {
			return domain.RecordedEvent{}, err
		}
		list = append(list[:idx], list[idx+1:]...)
		return r.tree.Update(eventID, model.Patch{Assertions: &list})
	})
}

func findAssertion(r *record, eventID, assertionID uuid.UUID) ([]domain.AssertionConfig, int, error) {
	ev, ok := r.tree.Get(eventID)
	if !ok {
		return nil, 0, domain.NotFoundf("event %s not found", eventID)
	}
	for i, a := range ev.Assertions {
		if a.ID == assertionID {
			return ev.Assertions, i, nil
		}
	}
	return nil, 0, domain.NotFoundf("assertion %s not found on event %s", assertionID, eventID)
}

// ---------------- STEP GROUPS ----------------

func (m *Manager) CreateStepGroup(ctx context.Context, id uuid.UUID, name string, members []uuid.UUID) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventAdded, func(r *record) (domain.RecordedEvent, error) {
		return r.tree.Group(name, members)
	})
}

type GroupUpdate struct {
	Name      *string `json:"name,omitempty"`
	Collapsed *bool   `json:"collapsed,omitempty"`
}

func (m *Manager) UpdateStepGroup(ctx context.Context, id, groupID uuid.UUID, u GroupUpdate) (domain.RecordedEvent, error) {
	return mutate(ctx, m, id, realtime.EventUpdated, func(r *record) (domain.RecordedEvent, error) {
		ev, err := requireType(r, groupID, domain.EventGroup)
		if err != nil {
			return domain.RecordedEvent{}, err
		}
		g := *ev.Group
		if u.Name != nil {
			g.Name = *u.Name
		}
		if u.Collapsed != nil {
			g.Collapsed = *u.Collapsed
		}
		if _, err := r.tree.Update(groupID, model.Patch{Group: &g}); err != nil {
			return domain.RecordedEvent{}, err
		}
		out, _ := r.tree.Decorated(groupID)
		return out, nil
	})
}

// DeleteStepGroup removes the group and detaches its members; the members
// themselves are never deleted.
func (m *Manager) DeleteStepGroup(ctx context.Context, id, groupID uuid.UUID) (model.Removal, error) {
	return mutate(ctx, m, id, realtime.EventDeleted, func(r *record) (model.Removal, error) {
		members, err := r.tree.Ungroup(groupID)
		if err != nil {
			return model.Removal{}, err
		}
		return model.Removal{Deleted: []uuid.UUID{groupID}, Detached: members}, nil
	})
}
