// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/ingest"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/metrics"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	keepAlive      = 15 * time.Second
	maxFrameBytes  = 1 << 20
	directQueueLen = 16
)

func statusMessage(id uuid.UUID, status domain.RecordingStatus) realtime.Message {
	now := time.Now().UTC()
	return realtime.Message{
		Type:      realtime.SessionStatusChanged,
		SessionID: id.String(),
		Payload:   session.StatusChange{SessionID: id, Status: status, At: now},
		Timestamp: now,
	}
}

func rejection(sessionID uuid.UUID, clientEventID, reason string) realtime.Message {
	return errorFrame(sessionID, ingest.Ack{
		Status:        ingest.AckRejected,
		Reason:        reason,
		ClientEventID: clientEventID,
	})
}

// throttled rejects an event the limiter refused. The recorder may resend it.
func throttled(sessionID uuid.UUID, clientEventID string) realtime.Message {
	return errorFrame(sessionID, ingest.Ack{
		Status:        ingest.AckRejected,
		Reason:        "rate limit exceeded",
		ClientEventID: clientEventID,
		Retryable:     true,
	})
}

func errorFrame(sessionID uuid.UUID, ack ingest.Ack) realtime.Message {
	msg := realtime.Message{
		Type:      realtime.Error,
		Payload:   ack,
		Timestamp: time.Now().UTC(),
	}
	if sessionID != uuid.Nil {
		msg.SessionID = sessionID.String()
	}
	return msg
}

func terminalChange(msg realtime.Message) bool {
	if msg.Type != realtime.SessionStatusChanged {
		return false
	}
	change, ok := msg.Payload.(session.StatusChange)
	return ok && change.Status.Terminal()
}

// ---------------- SSE ----------------

func (a *api) streamSession(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if a.hub == nil {
		http.Error(w, "realtime unavailable", http.StatusServiceUnavailable)
		return
	}

	// subscribe before the snapshot so no transition falls between them
	sub := a.hub.Subscribe(realtime.SessionTopic(id))
	defer sub.Close()

	view, err := a.sessions.SnapshotStored(r.Context(), id)
	if err != nil {
		writeError(w, a.logger, err, "failed to stream session", "session_id", id)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	writeEvent := func(msg realtime.Message) error {
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", strings.ToLower(string(msg.Type)), payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := writeEvent(statusMessage(id, view.Session.Status)); err != nil {
		a.logger.Error("sse initial write failed", "session_id", id, "error", err)
		return
	}
	if view.Session.Status.Terminal() {
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			if err := writeEvent(msg); err != nil {
				a.logger.Error("sse write failed", "session_id", id, "error", err)
				return
			}
			if terminalChange(msg) {
				return
			}
		}
	}
}

// ---------------- WEBSOCKETS ----------------

// recordSocket is the push channel of an injected recorder. Acks come back
// through the gateway topic, so the socket only forwards frames in and topic
// messages out.
func (a *api) recordSocket(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	routing := valueOrDefault(r.URL.Query().Get("routing_key"), key)
	if a.hub == nil {
		http.Error(w, "realtime unavailable", http.StatusServiceUnavailable)
		return
	}

	hb, err := a.intake.Heartbeat(key, routing)
	if err != nil {
		writeError(w, a.logger, err, "failed to open push channel", "routing_key", key)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("push channel upgrade failed", "routing_key", key, "error", err)
		return
	}
	metrics.AddPushConnections(1)
	defer metrics.AddPushConnections(-1)

	sub := a.hub.Subscribe(realtime.GatewayTopic(routing), realtime.SessionTopic(hb.SessionID))
	defer sub.Close()

	logger := a.logger.With("session_id", hb.SessionID, "routing_key", routing)
	logger.Info("push channel connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	direct := make(chan realtime.Message, directQueueLen)
	reply := func(msg realtime.Message) {
		select {
		case direct <- msg:
		case <-ctx.Done():
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		readLoop(conn, func(data []byte) {
			f, err := ingest.DecodeFrame(data)
			if err != nil {
				metrics.IncChannelErrors()
				reply(rejection(hb.SessionID, "", err.Error()))
				return
			}
			switch f.Type {
			case ingest.FrameEvent:
				if a.limiter != nil && !a.limiter.Allow(key).Allowed {
					reply(throttled(hb.SessionID, f.Data.ID))
					return
				}
				a.intake.Submit(ctx, ingest.Target{SessionKey: key, RoutingKey: routing}, *f.Data, ingest.ChannelPush)
			case ingest.FrameHeartbeat:
				if _, err := a.intake.Heartbeat(key, routing); err != nil {
					reply(rejection(hb.SessionID, "", err.Error()))
				}
			case ingest.FrameBrowserClosed:
				if _, err := a.intake.BrowserClosed(ctx, key); err != nil {
					reply(rejection(hb.SessionID, "", err.Error()))
				}
			}
		})
	}()

	if err := a.pump(ctx, conn, sub, direct, statusMessage(hb.SessionID, hb.Status)); err != nil {
		logger.Debug("push channel write stopped", "error", err)
	}
	_ = conn.Close()
	<-done
	logger.Info("push channel disconnected")
}

// sessionSocket streams a session topic to dashboards. Incoming frames are
// ignored.
func (a *api) sessionSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if a.hub == nil {
		http.Error(w, "realtime unavailable", http.StatusServiceUnavailable)
		return
	}
	sub := a.hub.Subscribe(realtime.SessionTopic(id))
	defer sub.Close()

	view, err := a.sessions.SnapshotStored(r.Context(), id)
	if err != nil {
		writeError(w, a.logger, err, "failed to subscribe", "session_id", id)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("subscriber upgrade failed", "session_id", id, "error", err)
		return
	}
	metrics.AddPushConnections(1)
	defer metrics.AddPushConnections(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		readLoop(conn, func([]byte) {})
	}()

	if err := a.pump(ctx, conn, sub, nil, statusMessage(id, view.Session.Status)); err != nil {
		a.logger.Debug("subscriber write stopped", "session_id", id, "error", err)
	}
	_ = conn.Close()
	<-done
}

func readLoop(conn *websocket.Conn, handle func([]byte)) {
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(data)
	}
}

// pump is the only writer on conn.
func (a *api) pump(ctx context.Context, conn *websocket.Conn, sub *realtime.Subscription, direct <-chan realtime.Message, first realtime.Message) error {
	write := func(msg realtime.Message) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}
	if err := write(first); err != nil {
		return err
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			if err := write(msg); err != nil {
				return err
			}
		case msg := <-direct:
			if err := write(msg); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}
