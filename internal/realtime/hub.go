// SPDX-License-Identifier: Apache-2.0

// Package realtime fans session notifications out to subscribers. Every
// message published on a topic reaches every subscriber of that topic;
// a slow subscriber loses its oldest queued messages instead of blocking
// the publisher.
package realtime

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/metrics"
)

type MessageType string

const (
	EventAdded           MessageType = "EVENT_ADDED"
	EventUpdated         MessageType = "EVENT_UPDATED"
	EventDeleted         MessageType = "EVENT_DELETED"
	SessionStatusChanged MessageType = "SESSION_STATUS_CHANGED"
	SessionError         MessageType = "SESSION_ERROR"

	// gateway echoes
	Ack          MessageType = "ACK"
	Error        MessageType = "ERROR"
	HeartbeatAck MessageType = "HEARTBEAT_ACK"
)

const DefaultBuffer = 64

type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SessionTopic(id uuid.UUID) string { return "session:" + id.String() }

func GatewayTopic(routingKey string) string { return "gateway:" + routingKey }

func topicKind(topic string) string {
	if i := strings.IndexByte(topic, ':'); i > 0 {
		return topic[:i]
	}
	return "other"
}

// Forwarder receives every published message, for example to mirror topics
// onto an external bus.
type Forwarder interface {
	Forward(topic string, msg Message)
}

type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[*Subscription]struct{}
	forwarders []Forwarder
	buffer     int
	logger     *slog.Logger
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (h *Hub) AddForwarder(f Forwarder) {
	h.mu.Lock()
	h.forwarders = append(h.forwarders, f)
	h.mu.Unlock()
}

// Subscribe registers a subscriber on one or more topics.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	s := &Subscription{
		hub:    h,
		topics: append([]string(nil), topics...),
		ch:     make(chan Message, h.buffer),
	}
	h.mu.Lock()
	for _, topic := range topics {
		subs, ok := h.topics[topic]
		if !ok {
			subs = make(map[*Subscription]struct{})
			h.topics[topic] = subs
		}
		subs[s] = struct{}{}
	}
	h.mu.Unlock()
	return s
}

// Publish delivers msg to every subscriber of topic and to the forwarders.
// It never blocks on a subscriber.
func (h *Hub) Publish(topic string, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.topics[topic]))
	for s := range h.topics[topic] {
		subs = append(subs, s)
	}
	forwarders := h.forwarders
	h.mu.RUnlock()

	for _, s := range subs {
		if s.deliver(msg) {
			metrics.IncRealtimeDropped(topicKind(topic))
		}
	}
	for _, f := range forwarders {
		f.Forward(topic, msg)
	}
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	for _, topic := range s.topics {
		subs := h.topics[topic]
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()
}

type Subscription struct {
	hub     *Hub
	topics  []string
	mu      sync.Mutex
	ch      chan Message
	closed  bool
	dropped atomic.Uint64
}

// Messages is closed once the subscription is closed.
func (s *Subscription) Messages() <-chan Message { return s.ch }

func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unsubscribes and closes the message channel. Safe to call twice.
func (s *Subscription) Close() {
	s.hub.remove(s)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// deliver enqueues msg, evicting the oldest queued message when the buffer
// is full. It reports whether a message was dropped.
func (s *Subscription) deliver(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	dropped := false
	for {
		select {
		case s.ch <- msg:
			return dropped
		default:
		}
		select {
		case <-s.ch:
			dropped = true
			s.dropped.Add(1)
		default:
		}
	}
}
