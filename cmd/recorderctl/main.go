// SPDX-License-Identifier: Apache-2.0

// Command recorderctl is the operator tool for the recorder service: it
// renders exported sessions offline, follows live sessions and replays
// captured events into a session.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/logging"
)

var logger *slog.Logger

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recorderctl",
		Short:         "Operate recording sessions from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if logger == nil {
				logger = logging.NewLoggerTo(cmd.ErrOrStderr(), os.Getenv("ENV"))
			}
		},
	}
	root.AddCommand(
		newValidateCmd(),
		newGenerateCmd(),
		newWatchCmd(),
		newReplayCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if logger == nil {
			logger = logging.NewLoggerTo(os.Stderr, os.Getenv("ENV"))
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
