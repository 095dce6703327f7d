// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/codegen"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/logging"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
)

type generateFlags struct {
	file      string
	server    string
	sessionID string
	outDir    string
	opts      codegen.Options
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a recorded session as test source",
		Long: `Renders either an exported session document (--file) or a live
session on a running server (--server and --session). Output goes to stdout
unless --out names a directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				res codegen.Result
				err error
			)
			switch {
			case f.file != "":
				res, err = generateFromFile(cmd.Context(), f.file, f.opts)
			case f.server != "" && f.sessionID != "":
				res, err = generateRemote(cmd.Context(), f.server, f.sessionID, f.opts)
			default:
				return errors.New("either --file or --server with --session is required")
			}
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				logger.Warn("generation warning", "event_id", w.EventID, "message", w.Message)
			}
			return writeResult(cmd.OutOrStdout(), f.outDir, res)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "exported session document or event list (JSON)")
	flags.StringVar(&f.server, "server", "", "base URL of a running recorder API")
	flags.StringVar(&f.sessionID, "session", "", "session id to render from --server")
	flags.StringVarP(&f.outDir, "out", "o", "", "directory to write generated files into")
	flags.StringVar(&f.opts.Framework, "framework", "", "playwright, cypress or selenium")
	flags.StringVar(&f.opts.Language, "language", "", "typescript, javascript, java or python")
	flags.BoolVar(&f.opts.IncludePageObjects, "page-objects", false, "emit a page object alongside the test")
	flags.BoolVar(&f.opts.ExtractGroups, "extract-groups", false, "emit step groups as helper functions")
	flags.StringVar(&f.opts.TestName, "name", "", "test name; defaults to the session name")
	return cmd
}

// loadSnapshot accepts a session document or a bare event array.
func loadSnapshot(body []byte) (*model.Snapshot, domain.RecordingSession, error) {
	var doc domain.RecordingSession
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &doc.Events); err != nil {
			return nil, doc, fmt.Errorf("decode event list: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, doc, fmt.Errorf("decode session document: %w", err)
	}

	tree, err := model.FromEvents(doc.Events)
	if err != nil {
		return nil, doc, err
	}
	return tree.Snapshot(), doc, nil
}

func generateFromFile(ctx context.Context, path string, opts codegen.Options) (codegen.Result, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return codegen.Result{}, fmt.Errorf("read session file: %w", err)
	}
	snap, doc, err := loadSnapshot(body)
	if err != nil {
		return codegen.Result{}, err
	}

	if opts.Framework == "" {
		opts.Framework = doc.Framework
		if opts.Language == "" {
			opts.Language = doc.Language
		}
	}
	if opts.TestName == "" {
		opts.TestName = doc.Name
	}

	logger.Info("rendering session file", "file", path, "events", snap.Len())
	return codegen.New(logging.Component(logger, "codegen")).Generate(ctx, snap, opts)
}

type remoteError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func generateRemote(ctx context.Context, server, sessionID string, opts codegen.Options) (codegen.Result, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return codegen.Result{}, err
	}
	url := strings.TrimRight(server, "/") + "/sessions/" + sessionID + "/generate"

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return codegen.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return codegen.Result{}, fmt.Errorf("call %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return codegen.Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		var re remoteError
		if json.Unmarshal(payload, &re) == nil && re.Error != "" {
			return codegen.Result{}, fmt.Errorf("server answered %d (%s): %s", resp.StatusCode, re.Kind, re.Error)
		}
		return codegen.Result{}, fmt.Errorf("server answered %d", resp.StatusCode)
	}

	var res codegen.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return codegen.Result{}, fmt.Errorf("decode generate response: %w", err)
	}
	return res, nil
}

func writeResult(stdout io.Writer, dir string, res codegen.Result) error {
	if dir == "" {
		if _, err := io.WriteString(stdout, res.SourceCode); err != nil {
			return err
		}
		if res.PageObjectCode != "" {
			_, err := fmt.Fprintf(stdout, "\n// ---- %s ----\n%s", res.PageObjectFilename, res.PageObjectCode)
			return err
		}
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	target := filepath.Join(dir, res.Filename)
	if err := os.WriteFile(target, []byte(res.SourceCode), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	logger.Info("test written", "file", target)

	if res.PageObjectCode != "" {
		po := filepath.Join(dir, res.PageObjectFilename)
		if err := os.WriteFile(po, []byte(res.PageObjectCode), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", po, err)
		}
		logger.Info("page object written", "file", po)
	}
	return nil
}
