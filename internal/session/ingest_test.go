// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/processor"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
)

func typing(value string, ms int64) normalizer.RawEvent {
	return normalizer.RawEvent{
		Type:      "input",
		Value:     value,
		Timestamp: ms,
		Target:    &normalizer.RawTarget{Tag: "input", ID: "email"},
	}
}

func TestIngestCollapsesDuplicatesInsideWindow(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()
	base := f.clock().UnixMilli()

	first, err := f.manager.Ingest(ctx, s.ID, typing("a", base))
	require.NoError(t, err)
	assert.Equal(t, processor.Accepted, first.Outcome)

	second, err := f.manager.Ingest(ctx, s.ID, typing("ab", base+100))
	require.NoError(t, err)
	assert.Equal(t, processor.Merged, second.Outcome)
	assert.Equal(t, first.Event.ID, second.Event.ID)
	assert.Equal(t, "ab", second.Event.Value)

	got, err := f.manager.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "ab", got.Events[0].Value)
	assert.Equal(t, "#email", got.Events[0].Element.CSSSelector)

	third, err := f.manager.Ingest(ctx, s.ID, typing("abc", base+5000))
	require.NoError(t, err)
	assert.Equal(t, processor.Accepted, third.Outcome)
	assert.Equal(t, 2, third.Event.Order)

	types := f.pub.types()
	assert.Contains(t, types, realtime.EventAdded)
	assert.Contains(t, types, realtime.EventUpdated)
}

func TestIngestFiltersNoise(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	res, err := f.manager.Ingest(context.Background(), s.ID, normalizer.RawEvent{
		Type:   "focus",
		Target: &normalizer.RawTarget{Tag: "input", ID: "email"},
	})
	require.NoError(t, err)
	assert.Equal(t, processor.Filtered, res.Outcome)
	assert.NotEmpty(t, res.Reason)

	got, _ := f.manager.Get(context.Background(), s.ID)
	assert.Empty(t, got.Events)
}

func TestIngestRejectsInactiveSessions(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()

	_, err := f.manager.Pause(ctx, s.ID)
	require.NoError(t, err)
	res, err := f.manager.Ingest(ctx, s.ID, typing("x", 0))
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.StatusPaused, res.Status)

	_, err = f.manager.Stop(ctx, s.ID)
	require.NoError(t, err)
	_, err = f.manager.Ingest(ctx, s.ID, typing("x", 0))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestIngestValidationAndUnknownSession(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	_, err := f.manager.Ingest(context.Background(), s.ID, normalizer.RawEvent{})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.manager.Ingest(context.Background(), s.ID, normalizer.RawEvent{Type: "loop"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestIngestAfterMergeTargetDeletedAppends(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()
	base := f.clock().UnixMilli()

	first, err := f.manager.Ingest(ctx, s.ID, typing("a", base))
	require.NoError(t, err)
	_, err = f.manager.DeleteEvent(ctx, s.ID, first.Event.ID, model.DeleteOptions{})
	require.NoError(t, err)

	again, err := f.manager.Ingest(ctx, s.ID, typing("ab", base+50))
	require.NoError(t, err)
	assert.Equal(t, processor.Accepted, again.Outcome)
	assert.NotEqual(t, first.Event.ID, again.Event.ID)
	assert.Equal(t, 1, again.Event.Order)
}

func TestIngestIntoContainer(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()

	loop, err := f.manager.AddLoop(ctx, s.ID, nil, domain.LoopConfig{Kind: domain.LoopCount, Count: 3})
	require.NoError(t, err)

	raw := typing("a", 0)
	raw.ParentID = loop.ID.String()
	res, err := f.manager.Ingest(ctx, s.ID, raw)
	require.NoError(t, err)
	require.NotNil(t, res.Event.ParentID)
	assert.Equal(t, loop.ID, *res.Event.ParentID)
}
