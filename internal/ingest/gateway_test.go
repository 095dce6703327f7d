// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/session"
)

type harness struct {
	hub     *realtime.Hub
	manager *session.Manager
	gateway *Gateway
}

func newHarness(t *testing.T, cacheSize int) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := realtime.NewHub(16, logger)
	manager := session.New(session.Deps{Publisher: hub, Logger: logger})
	gw, err := New(Deps{Engine: manager, Publisher: hub, CacheSize: cacheSize, Logger: logger})
	require.NoError(t, err)
	return &harness{hub: hub, manager: manager, gateway: gw}
}

func (h *harness) start(t *testing.T) domain.RecordingSession {
	t.Helper()
	s, err := h.manager.Start(context.Background(), domain.StartConfig{ProjectID: "proj"})
	require.NoError(t, err)
	return s
}

func clickEvent(clientID string) normalizer.RawEvent {
	return normalizer.RawEvent{
		ID:     clientID,
		Type:   "click",
		Target: &normalizer.RawTarget{Tag: "button", ID: "save"},
	}
}

func next(t *testing.T, sub *realtime.Subscription) realtime.Message {
	t.Helper()
	select {
	case msg := <-sub.Messages():
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for gateway echo")
		return realtime.Message{}
	}
}

func TestSubmitBySessionKeyAcknowledges(t *testing.T) {
	h := newHarness(t, 0)
	s := h.start(t)
	sub := h.hub.Subscribe(realtime.GatewayTopic(s.SessionKey))
	defer sub.Close()

	ack := h.gateway.Submit(context.Background(), Target{SessionKey: s.SessionKey}, clickEvent("c-1"), ChannelHTTP)
	assert.True(t, ack.Accepted)
	assert.Equal(t, AckAccepted, ack.Status)
	assert.Equal(t, "c-1", ack.ClientEventID)
	_, err := uuid.Parse(ack.EventID)
	require.NoError(t, err)

	msg := next(t, sub)
	assert.Equal(t, realtime.Ack, msg.Type)
	assert.Equal(t, s.ID.String(), msg.SessionID)
	assert.Equal(t, ack, msg.Payload)
}

func TestSubmitIsIdempotentPerClientEventID(t *testing.T) {
	h := newHarness(t, 0)
	s := h.start(t)
	ctx := context.Background()

	first := h.gateway.Submit(ctx, Target{SessionID: s.ID}, clickEvent("c-1"), ChannelPush)
	again := h.gateway.Submit(ctx, Target{SessionKey: s.SessionKey}, clickEvent("c-1"), ChannelHTTP)

	assert.False(t, first.Duplicate)
	assert.True(t, again.Duplicate)
	assert.Equal(t, first.EventID, again.EventID)

	got, err := h.manager.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Events, 1)
}

func TestSubmitConcurrentResendsProduceOneEvent(t *testing.T) {
	h := newHarness(t, 0)
	s := h.start(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	acks := make([]Ack, 8)
	for i := range acks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acks[i] = h.gateway.Submit(ctx, Target{SessionID: s.ID}, clickEvent("same"), ChannelPush)
		}(i)
	}
	wg.Wait()

	duplicates := 0
	for _, a := range acks {
		assert.Equal(t, acks[0].EventID, a.EventID)
		if a.Duplicate {
			duplicates++
		}
	}
	assert.Equal(t, len(acks)-1, duplicates)

	got, _ := h.manager.Get(ctx, s.ID)
	assert.Len(t, got.Events, 1)
}

func TestSubmitRejectsUnknownAndInactiveSessions(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	unknown := h.gateway.Submit(ctx, Target{SessionKey: "nope"}, clickEvent("c-1"), ChannelHTTP)
	assert.False(t, unknown.Accepted)
	assert.Equal(t, AckRejected, unknown.Status)
	assert.NotEmpty(t, unknown.Reason)

	missing := h.gateway.Submit(ctx, Target{}, clickEvent("c-1"), ChannelHTTP)
	assert.Equal(t, AckRejected, missing.Status)

	s := h.start(t)
	sub := h.hub.Subscribe(realtime.GatewayTopic(s.SessionKey))
	defer sub.Close()
	_, err := h.manager.Pause(ctx, s.ID)
	require.NoError(t, err)

	paused := h.gateway.Submit(ctx, Target{SessionKey: s.SessionKey}, clickEvent("c-2"), ChannelPush)
	assert.Equal(t, AckRejected, paused.Status)
	assert.Equal(t, realtime.Error, next(t, sub).Type)

	_, err = h.manager.Resume(ctx, s.ID)
	require.NoError(t, err)
	retried := h.gateway.Submit(ctx, Target{SessionKey: s.SessionKey}, clickEvent("c-2"), ChannelPush)
	assert.Equal(t, AckAccepted, retried.Status, "rejections must not be cached")
}

func TestSubmitReportsFilteredAndMerged(t *testing.T) {
	h := newHarness(t, 0)
	s := h.start(t)
	ctx := context.Background()
	target := Target{SessionID: s.ID}

	filtered := h.gateway.Submit(ctx, target, normalizer.RawEvent{ID: "f", Type: "blur", Target: &normalizer.RawTarget{ID: "x"}}, ChannelHTTP)
	assert.Equal(t, AckFiltered, filtered.Status)
	assert.False(t, filtered.Accepted)
	assert.Empty(t, filtered.EventID)

	now := time.Now().UnixMilli()
	a := clickEvent("m-1")
	a.Timestamp = now
	b := clickEvent("m-2")
	b.Timestamp = now + 20
	first := h.gateway.Submit(ctx, target, a, ChannelHTTP)
	merged := h.gateway.Submit(ctx, target, b, ChannelHTTP)
	assert.Equal(t, AckMerged, merged.Status)
	assert.True(t, merged.Accepted)
	assert.Equal(t, first.EventID, merged.EventID)
}

func TestSubmitMalformedIsRejectedNotFatal(t *testing.T) {
	h := newHarness(t, 0)
	s := h.start(t)

	ack := h.gateway.Submit(context.Background(), Target{SessionID: s.ID}, normalizer.RawEvent{ID: "bad"}, ChannelHTTP)
	assert.Equal(t, AckRejected, ack.Status)

	got, _ := h.manager.Get(context.Background(), s.ID)
	assert.Equal(t, domain.StatusActive, got.Status)
}

func TestSubmitCanceledIsRetryable(t *testing.T) {
	h := newHarness(t, 0)
	s := h.start(t)
	target := Target{SessionID: s.ID}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	canceled := h.gateway.Submit(ctx, target, clickEvent("r-1"), ChannelPush)
	assert.Equal(t, AckRejected, canceled.Status)
	assert.True(t, canceled.Retryable)

	malformed := h.gateway.Submit(context.Background(), target, normalizer.RawEvent{ID: "r-2"}, ChannelPush)
	assert.Equal(t, AckRejected, malformed.Status)
	assert.False(t, malformed.Retryable)

	again := h.gateway.Submit(context.Background(), target, clickEvent("r-1"), ChannelPush)
	assert.Equal(t, AckAccepted, again.Status)
	assert.False(t, again.Duplicate)
}

func TestHeartbeatAndBrowserClosed(t *testing.T) {
	h := newHarness(t, 0)
	s := h.start(t)
	sub := h.hub.Subscribe(realtime.GatewayTopic("tab-7"))
	defer sub.Close()

	hb, err := h.gateway.Heartbeat(s.SessionKey, "tab-7")
	require.NoError(t, err)
	assert.Equal(t, s.ID, hb.SessionID)
	assert.Equal(t, domain.StatusActive, hb.Status)
	assert.Equal(t, realtime.HeartbeatAck, next(t, sub).Type)

	_, err = h.gateway.Heartbeat("unknown", "")
	require.ErrorIs(t, err, domain.ErrNotFound)

	closed, err := h.gateway.BrowserClosed(context.Background(), s.SessionKey)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, closed.Status)

	hb, err = h.gateway.Heartbeat(s.SessionKey, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, hb.Status)
}

func TestAckCacheIsBounded(t *testing.T) {
	h := newHarness(t, 2)
	s := h.start(t)
	ctx := context.Background()
	target := Target{SessionID: s.ID}

	for i, id := range []string{"a", "b", "c"} {
		ev := clickEvent(id)
		ev.Target.ID = "btn-" + id
		ev.Timestamp = int64(1000 * (i + 1))
		require.Equal(t, AckAccepted, h.gateway.Submit(ctx, target, ev, ChannelHTTP).Status)
	}
	assert.Equal(t, 2, h.gateway.acks.Len())
	_, ok := h.gateway.acks.Get(ackKey{session: s.ID, client: "a"})
	assert.False(t, ok)
}
