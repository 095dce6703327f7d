// SPDX-License-Identifier: Apache-2.0

package processor

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func input(id string, value string, at time.Time) domain.RecordedEvent {
	return domain.RecordedEvent{
		ID:        uuid.New(),
		Type:      domain.EventInput,
		Action:    "input",
		Element:   &domain.ElementInfo{ID: id},
		Value:     value,
		Timestamp: at,
	}
}

func TestDefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, New(0).Window())
	assert.Equal(t, time.Second, New(time.Second).Window())
}

func TestFirstEventIsAccepted(t *testing.T) {
	p := New(0)
	d := p.Decide(&State{}, input("email", "a", t0))
	assert.Equal(t, Accepted, d.Outcome)
	assert.Equal(t, Accepted, p.Decide(nil, input("email", "a", t0)).Outcome)
}

func TestDuplicateWithinWindowMerges(t *testing.T) {
	p := New(300 * time.Millisecond)
	state := &State{}
	first := input("email", "a", t0)
	state.Observe(first)

	d := p.Decide(state, input("email", "ab", t0.Add(120*time.Millisecond)))
	require.Equal(t, Merged, d.Outcome)
	assert.Equal(t, first.ID, d.Into)
}

func TestDedupBoundaries(t *testing.T) {
	p := New(300 * time.Millisecond)
	state := &State{}
	state.Observe(input("email", "a", t0))

	cases := []struct {
		name string
		ev   domain.RecordedEvent
		want Outcome
	}{
		{"outside window", input("email", "ab", t0.Add(301*time.Millisecond)), Accepted},
		{"other element", input("password", "x", t0.Add(10*time.Millisecond)), Accepted},
		{"same element other type", domain.RecordedEvent{
			Type: domain.EventClick, Action: "input", Element: &domain.ElementInfo{ID: "email"}, Timestamp: t0,
		}, Accepted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Decide(state, tc.ev).Outcome)
		})
	}
}

func TestDedupIgnoresDifferentParents(t *testing.T) {
	p := New(0)
	state := &State{}
	state.Observe(input("email", "a", t0))

	parent := uuid.New()
	nested := input("email", "a", t0)
	nested.ParentID = &parent
	assert.Equal(t, Accepted, p.Decide(state, nested).Outcome)
}

func TestNoiseIsFiltered(t *testing.T) {
	p := New(0)
	cases := []domain.RecordedEvent{
		{Type: domain.EventCustom, Action: "focus", Element: &domain.ElementInfo{ID: "email"}},
		{Type: domain.EventCustom, Action: "blur"},
		{Type: domain.EventClick, Action: "click"},
		{Type: domain.EventNavigation},
	}
	for _, ev := range cases {
		d := p.Decide(&State{}, ev)
		assert.Equal(t, Filtered, d.Outcome, "%s/%s", ev.Type, ev.Action)
		assert.NotEmpty(t, d.Reason)
	}

	kept := []domain.RecordedEvent{
		{Type: domain.EventCustom, Action: "scroll", Element: &domain.ElementInfo{CSSSelector: "main"}},
		{Type: domain.EventInput, Value: "typed without target"},
		{Type: domain.EventNavigation, URL: "https://app.test"},
	}
	for _, ev := range kept {
		assert.Equal(t, Accepted, p.Decide(&State{}, ev).Outcome, "%s/%s", ev.Type, ev.Action)
	}
}

func TestNavigationDedupByURL(t *testing.T) {
	p := New(0)
	state := &State{}
	nav := domain.RecordedEvent{ID: uuid.New(), Type: domain.EventNavigation, URL: "https://app.test", Timestamp: t0}
	state.Observe(nav)

	again := nav
	again.ID = uuid.New()
	again.Timestamp = t0.Add(50 * time.Millisecond)
	assert.Equal(t, Merged, p.Decide(state, again).Outcome)

	other := again
	other.URL = "https://app.test/next"
	assert.Equal(t, Accepted, p.Decide(state, other).Outcome)
}

func TestForgetDropsLast(t *testing.T) {
	state := &State{}
	first := input("email", "a", t0)
	state.Observe(first)

	id, ok := state.Last()
	require.True(t, ok)
	assert.Equal(t, first.ID, id)

	state.Forget(uuid.New())
	_, ok = state.Last()
	assert.True(t, ok)

	state.Forget(first.ID)
	_, ok = state.Last()
	assert.False(t, ok)
	assert.Equal(t, Accepted, New(0).Decide(state, input("email", "ab", t0)).Outcome)
}
