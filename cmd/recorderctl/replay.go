// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/logging"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/pushclient"
)

const settlePoll = 50 * time.Millisecond

func readRawEvents(path string) ([]normalizer.RawEvent, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	var events []normalizer.RawEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode events file: %w", err)
	}
	return events, nil
}

// waitSettled blocks until every sent event has been acknowledged.
func waitSettled(ctx context.Context, client *pushclient.Client) error {
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for len(client.Pending()) > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d events unacknowledged: %w", len(client.Pending()), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

func newReplayCmd() *cobra.Command {
	var (
		server  string
		file    string
		routing string
		closeAt bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay SESSION_KEY",
		Short: "Push captured raw events into a live session",
		Long: `Sends a JSON array of raw recorder payloads over the push channel of
the session identified by SESSION_KEY and waits for every acknowledgement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			events, err := readRawEvents(file)
			if err != nil {
				return err
			}

			path := "/ws/record/" + url.PathEscape(args[0])
			if routing != "" {
				path += "?routing_key=" + url.QueryEscape(routing)
			}
			client := pushclient.New(pushclient.Options{
				URL:         socketURL(server, path),
				Logger:      logging.Component(logger, "replay"),
				MaxAttempts: 5,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			runErr := make(chan error, 1)
			go func() { runErr <- client.Run(ctx) }()

			for _, raw := range events {
				if _, err := client.Send(raw); err != nil {
					logger.Warn("send failed; event stays queued", "error", err)
				}
			}
			if err := waitSettled(ctx, client); err != nil {
				return err
			}
			logger.Info("events acknowledged", "count", len(events))

			if closeAt {
				if err := client.BrowserClosed(); err != nil {
					return err
				}
			}
			cancel()
			return <-runErr
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&server, "server", "http://localhost:8080", "base URL of the recorder API")
	flags.StringVarP(&file, "file", "f", "", "JSON array of raw event payloads")
	flags.StringVar(&routing, "routing-key", "", "routing key of the replaying tab; defaults to the session key")
	flags.BoolVar(&closeAt, "close", false, "report the browser closed once every event is acknowledged")
	flags.DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for the replay")
	return cmd
}
