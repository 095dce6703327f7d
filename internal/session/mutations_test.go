// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
)

func clickRaw(id string) domain.RecordedEvent {
	return domain.RecordedEvent{
		Type:    domain.EventClick,
		Action:  "click",
		Element: &domain.ElementInfo{Tag: "button", ID: id, CSSSelector: "#" + id},
	}
}

func addClick(t *testing.T, f *fixture, sessionID uuid.UUID, parent *uuid.UUID, id string) domain.RecordedEvent {
	t.Helper()
	ev := clickRaw(id)
	ev.ParentID = parent
	out, err := f.manager.appendEvent(context.Background(), sessionID, ev)
	require.NoError(t, err)
	return out
}

func TestMutationsPublishNotifications(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()

	loop, err := f.manager.AddLoop(ctx, s.ID, nil, domain.LoopConfig{Kind: domain.LoopCount, Count: 2})
	require.NoError(t, err)
	_, err = f.manager.UpdateLoop(ctx, s.ID, loop.ID, domain.LoopConfig{Kind: domain.LoopCount, Count: 5})
	require.NoError(t, err)
	_, err = f.manager.DeleteEvent(ctx, s.ID, loop.ID, model.DeleteOptions{})
	require.NoError(t, err)

	types := f.pub.types()
	require.GreaterOrEqual(t, len(types), 3)
	assert.Equal(t, []realtime.MessageType{realtime.EventAdded, realtime.EventUpdated, realtime.EventDeleted}, types[len(types)-3:])
}

func TestTypedUpdateChecksEventType(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()
	click := addClick(t, f, s.ID, nil, "buy")

	_, err := f.manager.UpdateLoop(ctx, s.ID, click.ID, domain.LoopConfig{Kind: domain.LoopCount, Count: 1})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.manager.UpdateCondition(ctx, s.ID, uuid.New(), domain.Condition{Kind: domain.ConditionURLContains, Value: "/cart"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTerminalSessionIsReadOnly(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()
	click := addClick(t, f, s.ID, nil, "buy")

	_, err := f.manager.Stop(ctx, s.ID)
	require.NoError(t, err)

	_, err = f.manager.AddLoop(ctx, s.ID, nil, domain.LoopConfig{Kind: domain.LoopCount, Count: 1})
	require.ErrorIs(t, err, domain.ErrConflict)
	_, err = f.manager.DeleteEvent(ctx, s.ID, click.ID, model.DeleteOptions{})
	require.ErrorIs(t, err, domain.ErrConflict)

	view, err := f.manager.Snapshot(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Tree.Len())
}

func TestConditionHoldsChildren(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()

	cond, err := f.manager.AddCondition(ctx, s.ID, nil, domain.Condition{
		Kind:    domain.ConditionElementVisible,
		Element: &domain.ElementInfo{CSSSelector: ".banner"},
	})
	require.NoError(t, err)
	addClick(t, f, s.ID, &cond.ID, "dismiss")

	_, err = f.manager.DeleteEvent(ctx, s.ID, cond.ID, model.DeleteOptions{})
	require.ErrorIs(t, err, domain.ErrConflict)

	removal, err := f.manager.DeleteEvent(ctx, s.ID, cond.ID, model.DeleteOptions{Cascade: true})
	require.NoError(t, err)
	assert.Len(t, removal.Deleted, 2)
}

func TestDataSourceLifecycle(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()

	ds, err := f.manager.AddDataSource(ctx, s.ID, nil, domain.DataSource{
		Name: "users",
		Kind: domain.DataSourceInline,
		Rows: []map[string]string{{"email": "a@b.test"}},
	})
	require.NoError(t, err)

	updated, err := f.manager.UpdateDataSource(ctx, s.ID, ds.ID, domain.DataSource{
		Name: "users",
		Kind: domain.DataSourceCSV,
		Path: "fixtures/users.csv",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DataSourceCSV, updated.DataSource.Kind)
	assert.Empty(t, updated.DataSource.Rows)

	click := addClick(t, f, s.ID, nil, "buy")
	_, err = f.manager.DeleteDataSource(ctx, s.ID, click.ID)
	require.ErrorIs(t, err, domain.ErrValidation)

	removal, err := f.manager.DeleteDataSource(ctx, s.ID, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ds.ID}, removal.Deleted)
}

func TestVariableBindings(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()
	click := addClick(t, f, s.ID, nil, "total")

	attached, err := f.manager.AddVariableBinding(ctx, s.ID, BindingTarget{EventID: &click.ID}, domain.VariableBinding{
		Name:   "orderTotal",
		Source: domain.BindElementText,
	})
	require.NoError(t, err)
	require.NotNil(t, attached.Binding)
	assert.Equal(t, "orderTotal", attached.Binding.Name)

	_, err = f.manager.AddVariableBinding(ctx, s.ID, BindingTarget{EventID: &click.ID}, domain.VariableBinding{
		Name:   "again",
		Source: domain.BindElementText,
	})
	require.ErrorIs(t, err, domain.ErrConflict)

	capture, err := f.manager.AddVariableBinding(ctx, s.ID, BindingTarget{}, domain.VariableBinding{
		Name:   "landing",
		Source: domain.BindURL,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventCapture, capture.Type)
	assert.Equal(t, 2, capture.Order)

	_, err = f.manager.AddVariableBinding(ctx, s.ID, BindingTarget{}, domain.VariableBinding{
		Name:   "not valid",
		Source: domain.BindURL,
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	renamed, err := f.manager.UpdateVariableBinding(ctx, s.ID, capture.ID, domain.VariableBinding{
		Name:   "landingURL",
		Source: domain.BindURL,
	})
	require.NoError(t, err)
	assert.Equal(t, "landingURL", renamed.Binding.Name)
}

func TestAssertionLifecycle(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()
	click := addClick(t, f, s.ID, nil, "buy")

	withOne, err := f.manager.AddAssertion(ctx, s.ID, click.ID, domain.AssertionConfig{Kind: domain.AssertVisible})
	require.NoError(t, err)
	require.Len(t, withOne.Assertions, 1)
	aid := withOne.Assertions[0].ID
	assert.NotEqual(t, uuid.Nil, aid)

	updated, err := f.manager.UpdateAssertion(ctx, s.ID, click.ID, aid, domain.AssertionConfig{
		Kind:     domain.AssertTextEquals,
		Expected: "Buy now",
	})
	require.NoError(t, err)
	assert.Equal(t, aid, updated.Assertions[0].ID)
	assert.Equal(t, domain.AssertTextEquals, updated.Assertions[0].Kind)

	_, err = f.manager.UpdateAssertion(ctx, s.ID, click.ID, uuid.New(), domain.AssertionConfig{Kind: domain.AssertVisible})
	require.ErrorIs(t, err, domain.ErrNotFound)

	cleared, err := f.manager.DeleteAssertion(ctx, s.ID, click.ID, aid)
	require.NoError(t, err)
	assert.Empty(t, cleared.Assertions)
}

func TestDeleteStepGroupKeepsMembers(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()

	a := addClick(t, f, s.ID, nil, "a")
	b := addClick(t, f, s.ID, nil, "b")
	c := addClick(t, f, s.ID, nil, "c")

	group, err := f.manager.CreateStepGroup(ctx, s.ID, "checkout", []uuid.UUID{b.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, group.Order)

	name := "pay"
	collapsed := true
	renamed, err := f.manager.UpdateStepGroup(ctx, s.ID, group.ID, GroupUpdate{Name: &name, Collapsed: &collapsed})
	require.NoError(t, err)
	assert.Equal(t, "pay", renamed.Group.Name)
	assert.True(t, renamed.Group.Collapsed)
	assert.ElementsMatch(t, []uuid.UUID{b.ID, c.ID}, renamed.Group.MemberIDs)

	removal, err := f.manager.DeleteStepGroup(ctx, s.ID, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{group.ID}, removal.Deleted)
	assert.ElementsMatch(t, []uuid.UUID{b.ID, c.ID}, removal.Detached)

	got, err := f.manager.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Events, 3)
	for i, ev := range got.Events {
		assert.Nil(t, ev.ParentID)
		assert.Equal(t, i+1, ev.Order)
	}
	assert.Equal(t, a.ID, got.Events[0].ID)
}

func TestReorderAndMove(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()

	a := addClick(t, f, s.ID, nil, "a")
	b := addClick(t, f, s.ID, nil, "b")
	loop, err := f.manager.AddLoop(ctx, s.ID, nil, domain.LoopConfig{Kind: domain.LoopCount, Count: 2})
	require.NoError(t, err)

	res, err := f.manager.Reorder(ctx, s.ID, nil, []uuid.UUID{loop.ID, b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, res.Events, 3)
	assert.Equal(t, loop.ID, res.Events[0].ID)

	_, err = f.manager.Reorder(ctx, s.ID, nil, []uuid.UUID{a.ID, b.ID})
	require.ErrorIs(t, err, domain.ErrValidation)

	moved, err := f.manager.Move(ctx, s.ID, a.ID, &loop.ID)
	require.NoError(t, err)
	assert.Equal(t, loop.ID, *moved.ParentID)
	assert.Equal(t, 1, moved.Order)

	_, err = f.manager.Move(ctx, s.ID, loop.ID, &loop.ID)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCanceledContextDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.manager.AddLoop(ctx, s.ID, nil, domain.LoopConfig{Kind: domain.LoopCount, Count: 1})
	require.ErrorIs(t, err, context.Canceled)

	got, _ := f.manager.Get(context.Background(), s.ID)
	assert.Empty(t, got.Events)
}
