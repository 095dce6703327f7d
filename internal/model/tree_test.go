// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

func click(css string) domain.RecordedEvent {
	return domain.RecordedEvent{
		Type:    domain.EventClick,
		Action:  "click",
		Element: &domain.ElementInfo{CSSSelector: css},
	}
}

func loop(count int) domain.RecordedEvent {
	return domain.RecordedEvent{
		Type: domain.EventLoop,
		Loop: &domain.LoopConfig{Kind: domain.LoopCount, Count: count},
	}
}

func under(ev domain.RecordedEvent, parent uuid.UUID) domain.RecordedEvent {
	p := parent
	ev.ParentID = &p
	return ev
}

func mustAppend(t *testing.T, tree *Tree, ev domain.RecordedEvent) domain.RecordedEvent {
	t.Helper()
	out, err := tree.Append(ev)
	require.NoError(t, err)
	return out
}

func ids(events []domain.RecordedEvent) []uuid.UUID {
	out := make([]uuid.UUID, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func requireContiguous(t *testing.T, events []domain.RecordedEvent) {
	t.Helper()
	for i, ev := range events {
		require.Equal(t, i+1, ev.Order, "event %s out of sequence", ev.ID)
	}
}

func TestAppendAssignsNextOrder(t *testing.T) {
	tree := New()
	a := mustAppend(t, tree, click("#a"))
	b := mustAppend(t, tree, click("#b"))
	l := mustAppend(t, tree, loop(2))
	inner := mustAppend(t, tree, under(click("#c"), l.ID))

	assert.Equal(t, 1, a.Order)
	assert.Equal(t, 2, b.Order)
	assert.Equal(t, 3, l.Order)
	assert.Equal(t, 1, inner.Order)
	assert.False(t, a.Timestamp.IsZero())
	assert.NotEqual(t, uuid.Nil, a.ID)
}

func TestAppendRejectsBadParents(t *testing.T) {
	tree := New()
	leaf := mustAppend(t, tree, click("#a"))

	_, err := tree.Append(under(click("#b"), leaf.ID))
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = tree.Append(under(click("#b"), uuid.New()))
	require.ErrorIs(t, err, domain.ErrNotFound)

	dup := click("#c")
	dup.ID = leaf.ID
	_, err = tree.Append(dup)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestAppendAndReorderKeepOrdersContiguous(t *testing.T) {
	tree := New()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 12; i++ {
		mustAppend(t, tree, click("#x"))
		current := ids(tree.Children(nil))
		rng.Shuffle(len(current), func(a, b int) { current[a], current[b] = current[b], current[a] })
		out, err := tree.Reorder(nil, current)
		require.NoError(t, err)
		require.Equal(t, current, ids(out))
		requireContiguous(t, tree.Children(nil))
	}
}

func TestReorderRejectsPartialPermutation(t *testing.T) {
	tree := New()
	a := mustAppend(t, tree, click("#a"))
	b := mustAppend(t, tree, click("#b"))
	c := mustAppend(t, tree, click("#c"))
	before := tree.Snapshot().Events()

	_, err := tree.Reorder(nil, []uuid.UUID{c.ID, a.ID})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = tree.Reorder(nil, []uuid.UUID{c.ID, a.ID, a.ID})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = tree.Reorder(nil, []uuid.UUID{c.ID, a.ID, uuid.New()})
	require.ErrorIs(t, err, domain.ErrValidation)

	if diff := cmp.Diff(before, tree.Snapshot().Events()); diff != "" {
		t.Fatalf("tree changed after rejected reorder (-before +after):\n%s", diff)
	}
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, ids(tree.Children(nil)))
}

func TestDeleteGroupDetachesMembers(t *testing.T) {
	tree := New()
	first := mustAppend(t, tree, click("#first"))
	a := mustAppend(t, tree, click("#a"))
	b := mustAppend(t, tree, click("#b"))
	last := mustAppend(t, tree, click("#last"))

	group, err := tree.Group("login", []uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, group.Group.MemberIDs)
	assert.Equal(t, []uuid.UUID{first.ID, group.ID, last.ID}, ids(tree.Children(nil)))

	removal, err := tree.Delete(group.ID, DeleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{group.ID}, removal.Deleted)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, removal.Detached)

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		ev, ok := tree.Get(id)
		require.True(t, ok, "member %s was deleted", id)
		assert.Nil(t, ev.ParentID)
	}
	roots := tree.Children(nil)
	assert.Equal(t, []uuid.UUID{first.ID, a.ID, b.ID, last.ID}, ids(roots))
	requireContiguous(t, roots)
}

func TestGroupRequiresSharedParent(t *testing.T) {
	tree := New()
	l := mustAppend(t, tree, loop(3))
	inner := mustAppend(t, tree, under(click("#in"), l.ID))
	outer := mustAppend(t, tree, click("#out"))

	_, err := tree.Group("mixed", []uuid.UUID{inner.ID, outer.ID})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = tree.Group("", []uuid.UUID{outer.ID})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = tree.Group("missing", []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUngroupNestedGroupAppendsMembersToRoot(t *testing.T) {
	tree := New()
	l := mustAppend(t, tree, loop(2))
	a := mustAppend(t, tree, under(click("#a"), l.ID))
	group, err := tree.Group("inner", []uuid.UUID{a.ID})
	require.NoError(t, err)
	tail := mustAppend(t, tree, click("#tail"))

	members, err := tree.Ungroup(group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, members)
	assert.Equal(t, []uuid.UUID{l.ID, tail.ID, a.ID}, ids(tree.Children(nil)))
	assert.Empty(t, tree.Children(&l.ID))

	_, err = tree.Ungroup(tail.ID)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeletePopulatedLoopNeedsCascade(t *testing.T) {
	tree := New()
	l := mustAppend(t, tree, loop(2))
	a := mustAppend(t, tree, under(click("#a"), l.ID))
	after := mustAppend(t, tree, click("#after"))

	_, err := tree.Delete(l.ID, DeleteOptions{})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 3, tree.Len())

	removal, err := tree.Delete(l.ID, DeleteOptions{Cascade: true})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{l.ID, a.ID}, removal.Deleted)
	assert.Equal(t, 1, tree.Len())

	ev, ok := tree.Get(after.ID)
	require.True(t, ok)
	assert.Equal(t, 1, ev.Order)
}

func TestDeleteEmptyLoopWithoutCascade(t *testing.T) {
	tree := New()
	l := mustAppend(t, tree, loop(2))
	_, err := tree.Delete(l.ID, DeleteOptions{})
	require.NoError(t, err)

	_, err = tree.Delete(l.ID, DeleteOptions{})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMoveRejectsCycles(t *testing.T) {
	tree := New()
	outer := mustAppend(t, tree, loop(2))
	inner := mustAppend(t, tree, under(loop(3), outer.ID))

	_, err := tree.Move(outer.ID, &inner.ID)
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = tree.Move(outer.ID, &outer.ID)
	require.ErrorIs(t, err, domain.ErrConflict)

	moved, err := tree.Move(inner.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
	assert.Equal(t, 2, moved.Order)
}

func TestUpdateReplacesPayloadAtomically(t *testing.T) {
	tree := New()
	cond := &domain.Condition{Kind: domain.ConditionExpression, Expression: "i < 3"}
	l, err := tree.Append(domain.RecordedEvent{
		Type: domain.EventLoop,
		Loop: &domain.LoopConfig{Kind: domain.LoopCondition, Condition: cond, MaxIterations: 10},
	})
	require.NoError(t, err)

	updated, err := tree.Update(l.ID, Patch{Loop: &domain.LoopConfig{Kind: domain.LoopCount, Count: 4}})
	require.NoError(t, err)
	assert.Equal(t, domain.LoopCount, updated.Loop.Kind)
	assert.Equal(t, 4, updated.Loop.Count)
	assert.Nil(t, updated.Loop.Condition)
	assert.Zero(t, updated.Loop.MaxIterations)
}

func TestUpdateRejectsMismatchedPayloadWithoutMutation(t *testing.T) {
	tree := New()
	c := mustAppend(t, tree, click("#a"))
	value := "typed"

	_, err := tree.Update(c.ID, Patch{Value: &value, Loop: &domain.LoopConfig{Kind: domain.LoopCount, Count: 1}})
	require.ErrorIs(t, err, domain.ErrValidation)

	got, _ := tree.Get(c.ID)
	assert.Empty(t, got.Value)
	assert.Nil(t, got.Loop)

	_, err = tree.Update(uuid.New(), Patch{Value: &value})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateWithParentMoves(t *testing.T) {
	tree := New()
	l := mustAppend(t, tree, loop(2))
	c := mustAppend(t, tree, click("#a"))

	moved, err := tree.Update(c.ID, Patch{Parent: &ParentRef{ID: &l.ID}})
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, l.ID, *moved.ParentID)
	assert.Equal(t, 1, moved.Order)
	requireContiguous(t, tree.Children(nil))
}

func TestUpdateAssignsAssertionIDs(t *testing.T) {
	tree := New()
	c := mustAppend(t, tree, click("#a"))
	assertions := []domain.AssertionConfig{{Kind: domain.AssertVisible}}

	out, err := tree.Update(c.ID, Patch{Assertions: &assertions})
	require.NoError(t, err)
	require.Len(t, out.Assertions, 1)
	assert.NotEqual(t, uuid.Nil, out.Assertions[0].ID)
}

func TestSnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	tree := New()
	l := mustAppend(t, tree, loop(2))
	a := mustAppend(t, tree, under(click("#a"), l.ID))

	snap := tree.Snapshot()
	_, err := tree.Delete(l.ID, DeleteOptions{Cascade: true})
	require.NoError(t, err)

	require.Equal(t, 2, snap.Len())
	kids := snap.Children(l.ID)
	require.Len(t, kids, 1)
	assert.Equal(t, a.ID, kids[0].ID)

	nested := snap.Nested()
	require.Len(t, nested, 1)
	require.Len(t, nested[0].Children, 1)
	assert.Equal(t, []uuid.UUID{l.ID, a.ID}, ids(snap.Events()))
}

func TestFromEventsRebuildsAndRenumbers(t *testing.T) {
	tree := New()
	l := mustAppend(t, tree, loop(2))
	mustAppend(t, tree, under(click("#a"), l.ID))
	mustAppend(t, tree, under(click("#b"), l.ID))
	mustAppend(t, tree, click("#c"))

	events := tree.Snapshot().Events()
	events[1].Order = 7
	events[2].Order = 9

	rebuilt, err := FromEvents(events)
	require.NoError(t, err)
	requireContiguous(t, rebuilt.Children(&l.ID))
	assert.Equal(t, 4, rebuilt.Len())

	orphan := click("#orphan")
	orphan.ID = uuid.New()
	missing := uuid.New()
	orphan.ParentID = &missing
	_, err = FromEvents([]domain.RecordedEvent{orphan})
	require.True(t, errors.Is(err, domain.ErrValidation))
}

func TestFromEventsRejectsMissingPayload(t *testing.T) {
	for _, typ := range []domain.EventType{domain.EventConditional, domain.EventLoop, domain.EventGroup} {
		t.Run(string(typ), func(t *testing.T) {
			ev := domain.RecordedEvent{ID: uuid.New(), Type: typ}
			_, err := FromEvents([]domain.RecordedEvent{ev})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}
