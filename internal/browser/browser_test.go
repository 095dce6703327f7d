// SPDX-License-Identifier: Apache-2.0

package browser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRecorderScriptSubstitutesParams(t *testing.T) {
	script := RecorderScript(ScriptParams{
		BaseURL:    "http://localhost:8080/",
		SessionKey: "01HZX",
	})

	if strings.Contains(script, "__BASE_URL__") || strings.Contains(script, "__SESSION_KEY__") || strings.Contains(script, "__ROUTING_KEY__") {
		t.Fatal("expected every placeholder to be replaced")
	}
	if !strings.Contains(script, `const BASE = "http://localhost:8080";`) {
		t.Fatalf("expected trimmed base url literal, got script head:\n%s", script[:300])
	}
	if !strings.Contains(script, `const ROUTING = "01HZX";`) {
		t.Fatal("expected routing key to default to the session key")
	}
	if !strings.HasPrefix(strings.TrimSpace(script), "() =>") {
		t.Fatal("expected a function expression")
	}
}

func TestRecorderScriptEscapesValues(t *testing.T) {
	script := RecorderScript(ScriptParams{BaseURL: "http://x", SessionKey: `k"; alert(1); "`, RoutingKey: "rk"})
	if !strings.Contains(script, `const KEY = "k\"; alert(1); \"";`) {
		t.Fatal("expected session key to be quoted as a JSON string")
	}
}

func TestNoopLifecycle(t *testing.T) {
	ctx := context.Background()
	n := NewNoop()
	if n.IsActive(ctx) {
		t.Fatal("expected inactive before start")
	}
	if err := n.Start(ctx, LaunchConfig{SessionID: uuid.New(), StartURL: "about:blank"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !n.IsActive(ctx) {
		t.Fatal("expected active after start")
	}
	if _, err := n.ExecuteScript(ctx, PauseScript); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := n.Scripts(); len(got) != 1 || got[0] != PauseScript {
		t.Fatalf("unexpected scripts: %v", got)
	}
	if err := n.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := n.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	started, stopped := n.Calls()
	if started != 1 || stopped != 2 {
		t.Fatalf("unexpected call counts: %d %d", started, stopped)
	}
}

func TestNoopFailures(t *testing.T) {
	n := NewNoop()
	n.FailStart = errors.New("no chrome")
	if err := n.Start(context.Background(), LaunchConfig{}); err == nil {
		t.Fatal("expected start failure")
	}
	if n.IsActive(context.Background()) {
		t.Fatal("failed start must not be active")
	}
}

func TestNewFactory(t *testing.T) {
	f, err := NewFactory(Options{Driver: DriverNoop})
	if err != nil {
		t.Fatalf("noop factory: %v", err)
	}
	if _, ok := f().(*Noop); !ok {
		t.Fatal("expected noop capability")
	}

	f, err = NewFactory(Options{Driver: DriverRod})
	if err != nil {
		t.Fatalf("rod factory: %v", err)
	}
	if _, ok := f().(*Rod); !ok {
		t.Fatal("expected rod capability")
	}

	if _, err := NewFactory(Options{Driver: "selenium-grid"}); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestRodBeforeStart(t *testing.T) {
	r := NewRod("", 0, nil)
	if r.IsActive(context.Background()) {
		t.Fatal("expected inactive")
	}
	if _, err := r.ExecuteScript(context.Background(), "() => 1"); !errors.Is(err, errNotStarted) {
		t.Fatalf("expected errNotStarted, got %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
}
