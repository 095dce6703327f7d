// SPDX-License-Identifier: Apache-2.0

// Package pushclient is a recorder-side client for the push channel. It
// keeps a connection open while the session is live, reconnects with
// exponential backoff when the connection drops, and resends every event
// the server has not acknowledged yet.
package pushclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/ingest"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
)

const (
	defaultBaseDelay = 250 * time.Millisecond
	defaultMaxDelay  = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

var errNotConnected = errors.New("push channel not connected")

// Message is a server frame with its payload left undecoded.
type Message struct {
	Type      realtime.MessageType `json:"type"`
	SessionID string               `json:"session_id,omitempty"`
	Payload   json.RawMessage      `json:"payload,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

type Options struct {
	// URL of the push endpoint, e.g. ws://host/ws/record/KEY?routing_key=tab-1.
	URL         string
	Dialer      *websocket.Dialer
	Logger      *slog.Logger
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	// OnReconnect runs before every redial with the 1-based attempt number.
	OnReconnect func(attempt int)
	OnMessage   func(Message)
}

type Client struct {
	url         string
	dialer      *websocket.Dialer
	logger      *slog.Logger
	base        time.Duration
	max         time.Duration
	maxAttempts int
	onReconnect func(int)
	onMessage   func(Message)

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	status  domain.RecordingStatus
	pending map[string]normalizer.RawEvent
	order   []string
}

func New(opts Options) *Client {
	c := &Client{
		url:         opts.URL,
		dialer:      opts.Dialer,
		logger:      opts.Logger,
		base:        opts.BaseDelay,
		max:         opts.MaxDelay,
		maxAttempts: opts.MaxAttempts,
		onReconnect: opts.OnReconnect,
		onMessage:   opts.OnMessage,
		status:      domain.StatusActive,
		pending:     make(map[string]normalizer.RawEvent),
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.base <= 0 {
		c.base = defaultBaseDelay
	}
	if c.max <= 0 {
		c.max = defaultMaxDelay
	}
	return c
}

// Run holds the connection until ctx is canceled or the session reaches a
// terminal status. A dropped connection is redialed for as long as the
// session is live; the status itself is never changed by the client.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err == nil {
			attempt = 0
			c.logger.Info("push channel connected", "url", c.url)
			c.attach(conn)
			c.resend()
			err = c.read(ctx, conn)
			c.detach(conn)
		}

		if ctx.Err() != nil {
			return nil
		}
		if c.Status().Terminal() {
			c.logger.Info("push channel closed after session ended", "status", c.Status())
			return nil
		}

		attempt++
		if c.maxAttempts > 0 && attempt > c.maxAttempts {
			return domain.ChannelError("push channel reconnect attempts exhausted", err)
		}
		delay := c.backoff(attempt)
		c.logger.Warn("push channel lost; reconnecting",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		if c.onReconnect != nil {
			c.onReconnect(attempt)
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt > 30 {
		return c.max
	}
	d := c.base * time.Duration(1<<(attempt-1))
	if d <= 0 || d > c.max {
		return c.max
	}
	return d
}

func (c *Client) attach(conn *websocket.Conn) {
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
}

func (c *Client) detach(conn *websocket.Conn) {
	c.writeMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.writeMu.Unlock()
	_ = conn.Close()
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	switch msg.Type {
	case realtime.Ack, realtime.Error:
		var ack ingest.Ack
		if err := json.Unmarshal(msg.Payload, &ack); err != nil {
			c.logger.Warn("undecodable ack", "error", err)
			break
		}
		switch {
		case ack.ClientEventID == "":
		case msg.Type == realtime.Error && ack.Retryable:
			c.retryLater(ack.ClientEventID)
		default:
			c.settle(ack.ClientEventID)
		}
	case realtime.SessionStatusChanged:
		var change struct {
			Status domain.RecordingStatus `json:"status"`
		}
		if err := json.Unmarshal(msg.Payload, &change); err == nil && change.Status != "" {
			c.mu.Lock()
			c.status = change.Status
			c.mu.Unlock()
		}
	case realtime.EventAdded, realtime.EventUpdated, realtime.EventDeleted,
		realtime.SessionError, realtime.HeartbeatAck:
	}
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

func (c *Client) settle(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[clientID]; !ok {
		return
	}
	delete(c.pending, clientID)
	for i, id := range c.order {
		if id == clientID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// retryLater rewrites a throttled event after the base delay. An event that
// was settled in the meantime is skipped; a failed write leaves it queued for
// the next connection.
func (c *Client) retryLater(clientID string) {
	time.AfterFunc(c.base, func() {
		c.mu.Lock()
		raw, ok := c.pending[clientID]
		c.mu.Unlock()
		if !ok {
			return
		}
		if err := c.write(ingest.Frame{Type: ingest.FrameEvent, Data: &raw}); err != nil {
			c.logger.Debug("retry deferred to next connection", "client_event_id", clientID, "error", err)
		}
	})
}

func (c *Client) resend() {
	c.mu.Lock()
	queued := make([]normalizer.RawEvent, 0, len(c.order))
	for _, id := range c.order {
		queued = append(queued, c.pending[id])
	}
	c.mu.Unlock()

	for _, raw := range queued {
		if err := c.write(ingest.Frame{Type: ingest.FrameEvent, Data: &raw}); err != nil {
			c.logger.Warn("resend failed; will retry on next connection", "client_event_id", raw.ID, "error", err)
			return
		}
	}
	if len(queued) > 0 {
		c.logger.Info("resent unacknowledged events", "count", len(queued))
	}
}

func (c *Client) write(f ingest.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(f)
}

// Send queues raw until the server acknowledges it and writes it if the
// channel is up. An event without a client id gets one. A write failure is
// returned as a channel error; the event stays queued for the next
// connection.
func (c *Client) Send(raw normalizer.RawEvent) (string, error) {
	if raw.ID == "" {
		raw.ID = uuid.NewString()
	}
	c.mu.Lock()
	if _, ok := c.pending[raw.ID]; !ok {
		c.order = append(c.order, raw.ID)
	}
	c.pending[raw.ID] = raw
	c.mu.Unlock()

	err := c.write(ingest.Frame{Type: ingest.FrameEvent, Data: &raw})
	switch {
	case err == nil, errors.Is(err, errNotConnected):
		return raw.ID, nil
	default:
		return raw.ID, domain.ChannelError("send event", err)
	}
}

func (c *Client) Heartbeat() error {
	if err := c.write(ingest.Frame{Type: ingest.FrameHeartbeat}); err != nil {
		return domain.ChannelError("send heartbeat", err)
	}
	return nil
}

func (c *Client) BrowserClosed() error {
	if err := c.write(ingest.Frame{Type: ingest.FrameBrowserClosed}); err != nil {
		return domain.ChannelError("send browser closed", err)
	}
	return nil
}

func (c *Client) Connected() bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn != nil
}

// Status is the last session status the server reported.
func (c *Client) Status() domain.RecordingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Pending returns the client ids of unacknowledged events in send order.
func (c *Client) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}
