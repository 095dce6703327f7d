// SPDX-License-Identifier: Apache-2.0

// Package ingest is the intake side of recording: both the request/response
// endpoints and the push channel hand captured events to a Gateway, which
// answers every submission with an acknowledgment instead of an error.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/metrics"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/processor"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/session"
)

const DefaultCacheSize = 4096

type Channel string

const (
	ChannelHTTP Channel = "http"
	ChannelPush Channel = "push"
)

type AckStatus string

const (
	AckAccepted AckStatus = "accepted"
	AckMerged   AckStatus = "merged"
	AckFiltered AckStatus = "filtered"
	AckRejected AckStatus = "rejected"
)

// Ack answers one submission. Rejections carry a reason and never surface as
// errors to the submitter.
type Ack struct {
	Accepted      bool      `json:"accepted"`
	EventID       string    `json:"event_id,omitempty"`
	Status        AckStatus `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	ClientEventID string    `json:"client_event_id,omitempty"`
	Duplicate     bool      `json:"duplicate,omitempty"`
	// Retryable marks a rejection caused by throttling or cancellation; the
	// event itself was not judged and may be submitted again.
	Retryable     bool      `json:"retryable,omitempty"`
}

// Target addresses a session either by id or by its session key. RoutingKey
// selects the gateway topic that receives the ack echo; it defaults to the
// session key.
type Target struct {
	SessionID  uuid.UUID
	SessionKey string
	RoutingKey string
}

type HeartbeatAck struct {
	SessionID  uuid.UUID              `json:"session_id"`
	Status     domain.RecordingStatus `json:"status"`
	ServerTime time.Time              `json:"server_time"`
}

// Engine is the slice of the session manager the gateway drives.
type Engine interface {
	Resolve(key string) (uuid.UUID, error)
	Ingest(ctx context.Context, id uuid.UUID, raw normalizer.RawEvent) (session.IngestResult, error)
	Touch(id uuid.UUID) (domain.RecordingSession, error)
	BrowserClosed(ctx context.Context, id uuid.UUID) (domain.RecordingSession, error)
}

type Deps struct {
	Engine    Engine
	Publisher session.Publisher
	CacheSize int
	Logger    *slog.Logger
	Now       func() time.Time
}

type ackKey struct {
	session uuid.UUID
	client  string
}

type Gateway struct {
	engine    Engine
	publisher session.Publisher
	logger    *slog.Logger
	now       func() time.Time
	acks      *lru.Cache[ackKey, Ack]

	mu       sync.Mutex
	inflight map[ackKey]chan struct{}
}

func New(deps Deps) (*Gateway, error) {
	size := deps.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	acks, err := lru.New[ackKey, Ack](size)
	if err != nil {
		return nil, err
	}
	g := &Gateway{
		engine:    deps.Engine,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       deps.Now,
		acks:      acks,
		inflight:  make(map[ackKey]chan struct{}),
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g, nil
}

// Submit ingests one raw event. Unknown or inactive sessions and malformed
// payloads produce a rejected ack; resubmitting an event id that was already
// acknowledged returns the original ack marked as duplicate.
func (g *Gateway) Submit(ctx context.Context, target Target, raw normalizer.RawEvent, channel Channel) Ack {
	id, routing, err := g.resolve(target)
	if err != nil {
		ack := Ack{Status: AckRejected, Reason: err.Error(), ClientEventID: raw.ID}
		g.finish(id, routing, ack, channel)
		return ack
	}

	if raw.ID == "" {
		ack := g.ingest(ctx, id, raw)
		g.finish(id, routing, ack, channel)
		return ack
	}

	key := ackKey{session: id, client: raw.ID}
	cached, found, err := g.claim(ctx, key)
	if err != nil {
		ack := Ack{Status: AckRejected, Reason: err.Error(), ClientEventID: raw.ID, Retryable: true}
		g.finish(id, routing, ack, channel)
		return ack
	}
	if found {
		cached.Duplicate = true
		metrics.IncIngest("duplicate", string(channel))
		g.echo(routing, id, cached)
		return cached
	}
	ack := g.ingest(ctx, id, raw)
	g.release(key, ack)
	g.finish(id, routing, ack, channel)
	return ack
}

// claim returns a cached ack for key, or marks key in flight and leaves the
// caller to release it. A concurrent submission of the same event id waits
// for the first one to finish.
func (g *Gateway) claim(ctx context.Context, key ackKey) (Ack, bool, error) {
	for {
		g.mu.Lock()
		if ack, ok := g.acks.Get(key); ok {
			g.mu.Unlock()
			return ack, true, nil
		}
		wait, busy := g.inflight[key]
		if !busy {
			g.inflight[key] = make(chan struct{})
			g.mu.Unlock()
			return Ack{}, false, nil
		}
		g.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return Ack{}, false, ctx.Err()
		}
	}
}

func (g *Gateway) release(key ackKey, ack Ack) {
	g.mu.Lock()
	if ack.Status != AckRejected {
		g.acks.Add(key, ack)
	}
	if ch, ok := g.inflight[key]; ok {
		close(ch)
		delete(g.inflight, key)
	}
	g.mu.Unlock()
}

func (g *Gateway) resolve(target Target) (uuid.UUID, string, error) {
	routing := target.RoutingKey
	if routing == "" {
		routing = target.SessionKey
	}
	if target.SessionID != uuid.Nil {
		if routing == "" {
			routing = target.SessionID.String()
		}
		return target.SessionID, routing, nil
	}
	if target.SessionKey == "" {
		return uuid.Nil, routing, domain.Validationf("session id or session key is required")
	}
	id, err := g.engine.Resolve(target.SessionKey)
	return id, routing, err
}

func (g *Gateway) ingest(ctx context.Context, id uuid.UUID, raw normalizer.RawEvent) Ack {
	res, err := g.engine.Ingest(ctx, id, raw)
	ack := Ack{ClientEventID: raw.ID}
	if err != nil {
		ack.Status = AckRejected
		ack.Reason = err.Error()
		ack.Retryable = errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		if domain.KindOf(err) == "" && !ack.Retryable {
			g.logger.Error("ingest failed", "session_id", id, "error", err)
		}
		return ack
	}

	switch res.Outcome {
	case processor.Accepted:
		ack.Accepted = true
		ack.Status = AckAccepted
	case processor.Merged:
		ack.Accepted = true
		ack.Status = AckMerged
	case processor.Filtered:
		ack.Status = AckFiltered
	}
	ack.Reason = res.Reason
	if res.Event.ID != uuid.Nil {
		ack.EventID = res.Event.ID.String()
	}
	return ack
}

func (g *Gateway) finish(id uuid.UUID, routing string, ack Ack, channel Channel) {
	metrics.IncIngest(string(ack.Status), string(channel))
	g.echo(routing, id, ack)
	if ack.Status == AckRejected {
		g.logger.Info("event rejected",
			"session_id", id,
			"routing_key", routing,
			"channel", channel,
			"reason", ack.Reason,
		)
	}
}

func (g *Gateway) echo(routing string, id uuid.UUID, ack Ack) {
	if g.publisher == nil || routing == "" {
		return
	}
	typ := realtime.Ack
	if ack.Status == AckRejected {
		typ = realtime.Error
	}
	msg := realtime.Message{Type: typ, Payload: ack, Timestamp: g.now().UTC()}
	if id != uuid.Nil {
		msg.SessionID = id.String()
	}
	g.publisher.Publish(realtime.GatewayTopic(routing), msg)
}

// Heartbeat records liveness for the session behind key. It never changes
// the session status.
func (g *Gateway) Heartbeat(key, routing string) (HeartbeatAck, error) {
	id, err := g.engine.Resolve(key)
	if err != nil {
		return HeartbeatAck{}, err
	}
	s, err := g.engine.Touch(id)
	if err != nil {
		return HeartbeatAck{}, err
	}
	hb := HeartbeatAck{SessionID: id, Status: s.Status, ServerTime: g.now().UTC()}
	if routing == "" {
		routing = key
	}
	if g.publisher != nil {
		g.publisher.Publish(realtime.GatewayTopic(routing), realtime.Message{
			Type:      realtime.HeartbeatAck,
			SessionID: id.String(),
			Payload:   hb,
			Timestamp: hb.ServerTime,
		})
	}
	return hb, nil
}

// BrowserClosed completes the session behind key after the user closed the
// browser window.
func (g *Gateway) BrowserClosed(ctx context.Context, key string) (domain.RecordingSession, error) {
	id, err := g.engine.Resolve(key)
	if err != nil {
		return domain.RecordingSession{}, err
	}
	g.logger.Info("browser closed signal received", "session_id", id, "routing_key", key)
	return g.engine.BrowserClosed(ctx, id)
}
