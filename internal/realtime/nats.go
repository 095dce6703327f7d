// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/metrics"
)

const (
	subjectPrefix        = "recorder."
	forwardRetryAttempts = 3
	forwardRetryBase     = 100 * time.Millisecond
	forwardQueueSize     = 1024
)

// Publisher is the part of *nats.Conn the forwarder needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// DialNATS connects with unlimited reconnects so a bus outage never
// requires a restart.
func DialNATS(url, name string, timeout time.Duration) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// Subject maps a hub topic to a NATS subject, e.g. "session:<id>" becomes
// "recorder.session.<id>".
func Subject(topic string) string {
	return subjectPrefix + strings.ReplaceAll(topic, ":", ".")
}

type envelope struct {
	topic string
	msg   Message
}

// NATSForwarder mirrors hub messages onto NATS. Forward only enqueues;
// Run drains the queue and retries failed publishes with backoff. Send
// failures are logged and counted, never returned to the publisher.
type NATSForwarder struct {
	pub    Publisher
	logger *slog.Logger
	queue  chan envelope
	base   time.Duration
}

func NewNATSForwarder(pub Publisher, logger *slog.Logger) *NATSForwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSForwarder{
		pub:    pub,
		logger: logger,
		queue:  make(chan envelope, forwardQueueSize),
		base:   forwardRetryBase,
	}
}

func (f *NATSForwarder) Forward(topic string, msg Message) {
	select {
	case f.queue <- envelope{topic: topic, msg: msg}:
	default:
		metrics.IncChannelErrors()
		f.logger.Warn("nats forward queue full, dropping message",
			"topic", topic,
			"type", msg.Type,
		)
	}
}

// Run publishes queued messages until ctx is canceled.
func (f *NATSForwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-f.queue:
			if err := f.publish(ctx, env); err != nil {
				metrics.IncChannelErrors()
				f.logger.Error("nats forward failed",
					"topic", env.topic,
					"type", env.msg.Type,
					"error", err,
				)
			}
		}
	}
}

func (f *NATSForwarder) publish(ctx context.Context, env envelope) error {
	body, err := json.Marshal(env.msg)
	if err != nil {
		return domain.ChannelError("marshal realtime message", err)
	}
	subject := Subject(env.topic)

	var lastErr error
	for attempt := 1; attempt <= forwardRetryAttempts; attempt++ {
		if lastErr = f.pub.Publish(subject, body); lastErr == nil {
			return nil
		}
		f.logger.Warn("nats publish failure",
			"subject", subject,
			"attempt", attempt,
			"error", lastErr,
		)

		if attempt < forwardRetryAttempts {
			wait := f.base * time.Duration(1<<(attempt-1))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return domain.ChannelError("nats publish canceled", ctx.Err())
			case <-timer.C:
			}
		}
	}
	return domain.ChannelError("nats publish retries exhausted", lastErr)
}
