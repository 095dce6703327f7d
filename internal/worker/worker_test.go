// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeMaintainer struct {
	mu        sync.Mutex
	calls     []string
	persisted int
	unhealthy []uuid.UUID
	evicted   []uuid.UUID
}

func (f *fakeMaintainer) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeMaintainer) PersistDirty(context.Context) int {
	f.record("persist")
	return f.persisted
}

func (f *fakeMaintainer) CheckLiveness(context.Context) []uuid.UUID {
	f.record("liveness")
	return f.unhealthy
}

func (f *fakeMaintainer) Evict(context.Context) []uuid.UUID {
	f.record("evict")
	return f.evicted
}

func (f *fakeMaintainer) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDefaults(t *testing.T) {
	w := New(Deps{})

	if w.logger == nil {
		t.Fatal("expected default logger to be set")
	}
	if w.interval != 15*time.Second {
		t.Fatalf("expected default interval=15s, got %s", w.interval)
	}
}

func TestNewCustomValues(t *testing.T) {
	logger := discardLogger()
	w := New(Deps{Logger: logger, Interval: 2 * time.Second})

	if w.logger != logger {
		t.Fatal("expected provided logger to be used")
	}
	if w.interval != 2*time.Second {
		t.Fatalf("expected interval=2s, got %s", w.interval)
	}
}

func TestProcessOncePersistsBeforeEvicting(t *testing.T) {
	evicted := uuid.New()
	unhealthy := uuid.New()
	m := &fakeMaintainer{
		persisted: 2,
		unhealthy: []uuid.UUID{unhealthy},
		evicted:   []uuid.UUID{evicted},
	}
	w := New(Deps{Sessions: m, Logger: discardLogger()})

	pass, err := w.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pass.Persisted != 2 {
		t.Fatalf("expected 2 persisted, got %d", pass.Persisted)
	}
	if len(pass.Unhealthy) != 1 || pass.Unhealthy[0] != unhealthy {
		t.Fatalf("unexpected unhealthy list %v", pass.Unhealthy)
	}
	if len(pass.Evicted) != 1 || pass.Evicted[0] != evicted {
		t.Fatalf("unexpected evicted list %v", pass.Evicted)
	}

	calls := m.snapshot()
	want := []string{"persist", "liveness", "evict"}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, calls)
		}
	}
}

func TestProcessOnceCanceled(t *testing.T) {
	m := &fakeMaintainer{}
	w := New(Deps{Sessions: m, Logger: discardLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.ProcessOnce(ctx); err == nil {
		t.Fatal("expected canceled context error")
	}
	if calls := m.snapshot(); len(calls) != 0 {
		t.Fatalf("expected no maintenance calls, got %v", calls)
	}
}

func TestRunTicksAndFlushesOnShutdown(t *testing.T) {
	m := &fakeMaintainer{}
	w := New(Deps{Sessions: m, Logger: discardLogger(), Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		evicts := 0
		for _, c := range m.snapshot() {
			if c == "evict" {
				evicts++
			}
		}
		if evicts >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("janitor did not run two passes")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}

	calls := m.snapshot()
	if calls[len(calls)-1] != "persist" {
		t.Fatalf("expected final flush, got %v", calls)
	}
}
