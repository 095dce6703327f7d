// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/codegen"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/logging"
)

func init() {
	logger = logging.Discard()
}

func sampleEvents() []domain.RecordedEvent {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []domain.RecordedEvent{
		{ID: uuid.New(), Type: domain.EventNavigation, URL: "https://shop.test/cart", Timestamp: at, Order: 0},
		{
			ID:        uuid.New(),
			Type:      domain.EventClick,
			Timestamp: at.Add(time.Second),
			Order:     1,
			Element:   &domain.ElementInfo{ID: "checkout", Tag: "button"},
		},
	}
}

func writeJSONFile(t *testing.T, v any) string {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestSocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080/": "ws://localhost:8080/ws/sessions/x",
		"https://rec.example":    "wss://rec.example/ws/sessions/x",
		"ws://already":           "ws://already/ws/sessions/x",
	}
	for in, want := range cases {
		if got := socketURL(in, "/ws/sessions/x"); got != want {
			t.Fatalf("socketURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadSnapshotAcceptsEventList(t *testing.T) {
	body, err := json.Marshal(sampleEvents())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	snap, doc, err := loadSnapshot(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", snap.Len())
	}
	if doc.Framework != "" {
		t.Fatalf("expected no framework from a bare list, got %q", doc.Framework)
	}
}

func TestLoadSnapshotRejectsBrokenDocument(t *testing.T) {
	if _, _, err := loadSnapshot([]byte(`{"events": [{"type": "click"}]}`)); err == nil {
		t.Fatal("expected error for event without id")
	}
	if _, _, err := loadSnapshot([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
	cond := `{"events": [{"id": "` + uuid.NewString() + `", "type": "conditional"}]}`
	if _, _, err := loadSnapshot([]byte(cond)); err == nil {
		t.Fatal("expected error for conditional without condition")
	}
}

func TestGenerateFromFileUsesSessionDefaults(t *testing.T) {
	path := writeJSONFile(t, domain.RecordingSession{
		ID:        uuid.New(),
		Name:      "Checkout flow",
		Framework: codegen.FrameworkSelenium,
		Language:  codegen.LangPython,
		Events:    sampleEvents(),
	})

	res, err := generateFromFile(context.Background(), path, codegen.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Filename != "test_checkout_flow.py" {
		t.Fatalf("unexpected filename %q", res.Filename)
	}
	if !strings.Contains(res.SourceCode, "https://shop.test/cart") {
		t.Fatalf("expected navigation in source, got:\n%s", res.SourceCode)
	}
}

func TestGenerateFromFileExplicitFrameworkWins(t *testing.T) {
	path := writeJSONFile(t, domain.RecordingSession{
		Name:      "Checkout flow",
		Framework: codegen.FrameworkSelenium,
		Language:  codegen.LangPython,
		Events:    sampleEvents(),
	})

	res, err := generateFromFile(context.Background(), path, codegen.Options{Framework: codegen.FrameworkPlaywright})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Filename != "checkout-flow.spec.ts" {
		t.Fatalf("unexpected filename %q", res.Filename)
	}
}

func TestWriteResultToDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := codegen.Result{
		SourceCode:         "test body",
		Filename:           "a.spec.ts",
		PageObjectCode:     "page body",
		PageObjectFilename: "a-page.ts",
	}
	var stdout bytes.Buffer
	if err := writeResult(&stdout, dir, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected nothing on stdout, got %q", stdout.String())
	}
	for name, want := range map[string]string{"a.spec.ts": "test body", "a-page.ts": "page body"} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != want {
			t.Fatalf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestGenerateCommandWritesStdout(t *testing.T) {
	path := writeJSONFile(t, sampleEvents())

	root := newRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"generate", "--file", path, "--framework", "cypress", "--name", "cart"})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "describe(") {
		t.Fatalf("expected cypress source, got:\n%s", stdout.String())
	}
}

func TestGenerateCommandRequiresInput(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"generate"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error without --file or --server")
	}
}

func TestReadRawEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, []byte(`[{"type":"click","id":"c-1"},{"type":"navigation","url":"https://a.test"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	events, err := readRawEvents(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].ID != "c-1" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestValidateReportsEachDocument(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, body string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	good, err := json.Marshal(domain.RecordingSession{ID: uuid.New(), Name: "ok", Events: sampleEvents()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	write("good.json", string(good))
	write("nested/bad.json", `[{"id": "`+uuid.NewString()+`", "type": "loop"}]`)
	write("_drafts/ignored.json", `not json`)
	write("notes.txt", `not json`)

	var out strings.Builder
	err = runValidate(context.Background(), &out, []string{dir}, validateFlags{})
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected one invalid document, got %v", err)
	}
	report := out.String()
	if !strings.Contains(report, "ok   "+filepath.Join(dir, "good.json")+" (2 events)") {
		t.Fatalf("missing ok line:\n%s", report)
	}
	if !strings.Contains(report, "FAIL "+filepath.Join(dir, "nested", "bad.json")) {
		t.Fatalf("missing fail line:\n%s", report)
	}
	if strings.Contains(report, "ignored.json") {
		t.Fatalf("underscore directory should be skipped:\n%s", report)
	}
}

func TestValidateStrictFailsOnGenerationWarnings(t *testing.T) {
	path := writeJSONFile(t, domain.RecordingSession{
		ID:   uuid.New(),
		Name: "no url",
		Events: []domain.RecordedEvent{
			{ID: uuid.New(), Type: domain.EventNavigation, Timestamp: time.Now()},
		},
	})

	var out strings.Builder
	if err := runValidate(context.Background(), &out, []string{path}, validateFlags{}); err != nil {
		t.Fatalf("structural check should pass: %v\n%s", err, out.String())
	}
	out.Reset()
	if err := runValidate(context.Background(), &out, []string{path}, validateFlags{strict: true}); err == nil {
		t.Fatalf("expected strict failure, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "navigation event has no url") {
		t.Fatalf("expected warning in report:\n%s", out.String())
	}
}

func TestValidateWithoutDocuments(t *testing.T) {
	if err := runValidate(context.Background(), io.Discard, []string{t.TempDir()}, validateFlags{}); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
