// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/logging"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/pushclient"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
)

// socketURL turns an http(s) base URL into its ws(s) equivalent.
func socketURL(server, path string) string {
	base := strings.TrimRight(server, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + path
}

func printMessage(w io.Writer, msg pushclient.Message) {
	line, err := json.Marshal(msg)
	if err != nil {
		logger.Warn("unprintable message", "type", msg.Type, "error", err)
		return
	}
	_, _ = fmt.Fprintln(w, string(line))
}

func newWatchCmd() *cobra.Command {
	var (
		server      string
		maxAttempts int
	)
	cmd := &cobra.Command{
		Use:   "watch SESSION_ID",
		Short: "Follow a session's live updates until it ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var client *pushclient.Client
			client = pushclient.New(pushclient.Options{
				URL:         socketURL(server, "/ws/sessions/"+args[0]),
				Logger:      logging.Component(logger, "watch"),
				MaxAttempts: maxAttempts,
				OnMessage: func(msg pushclient.Message) {
					printMessage(out, msg)
					// The subscriber socket stays open after the session ends.
					if msg.Type == realtime.SessionStatusChanged && client.Status().Terminal() {
						cancel()
					}
				},
			})
			if err := client.Run(ctx); err != nil {
				return err
			}
			logger.Info("watch finished", "session_id", args[0], "status", client.Status())
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "base URL of the recorder API")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 10, "reconnect attempts before giving up; 0 retries forever")
	return cmd
}
