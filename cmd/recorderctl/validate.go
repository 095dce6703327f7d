// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/codegen"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/logging"
)

type validateFlags struct {
	strict bool
}

func newValidateCmd() *cobra.Command {
	var f validateFlags
	cmd := &cobra.Command{
		Use:   "validate PATH...",
		Short: "Check exported session documents before they are archived or rendered",
		Long: `Loads every session document (or bare event list) under the given
files and directories, rebuilds its event tree and checks each event payload.
With --strict the document is also rendered with its own framework and any
generation warning counts as a failure.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), args, f)
		},
	}
	cmd.Flags().BoolVar(&f.strict, "strict", false, "treat generation warnings as failures")
	return cmd
}

func runValidate(ctx context.Context, out io.Writer, paths []string, f validateFlags) error {
	started := time.Now()

	var files []string
	for _, p := range paths {
		found, err := listDocuments(p)
		if err != nil {
			return fmt.Errorf("list session documents: %w", err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no session documents found under %s", strings.Join(paths, ", "))
	}

	failed := 0
	for _, path := range files {
		n, err := validateDocument(ctx, path, f)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d events)\n", path, n)
	}

	logger.Info("validation complete",
		"documents", len(files),
		"failed", failed,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d session documents invalid", failed, len(files))
	}
	return nil
}

func validateDocument(ctx context.Context, path string, f validateFlags) (int, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	snap, doc, err := loadSnapshot(body)
	if err != nil {
		return 0, err
	}
	if !f.strict {
		return snap.Len(), nil
	}

	res, err := codegen.New(logging.Component(logger, "codegen")).Generate(ctx, snap, codegen.Options{
		Framework: doc.Framework,
		Language:  doc.Language,
		TestName:  doc.Name,
	})
	if err != nil {
		return 0, err
	}
	if len(res.Warnings) > 0 {
		w := res.Warnings[0]
		return 0, fmt.Errorf("%d generation warnings, first on event %s: %s", len(res.Warnings), w.EventID, w.Message)
	}
	return snap.Len(), nil
}

// listDocuments returns root itself when it is a file, otherwise every JSON
// file below it. Underscore and dot directories are skipped.
func listDocuments(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) != ".json" {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
