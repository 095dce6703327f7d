// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/browser"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (p *recordingPublisher) Publish(_ string, msg realtime.Message) {
	p.mu.Lock()
	p.msgs = append(p.msgs, msg)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []realtime.MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.MessageType, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Type
	}
	return out
}

func (p *recordingPublisher) statuses() []domain.RecordingStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.RecordingStatus
	for _, m := range p.msgs {
		if change, ok := m.Payload.(StatusChange); ok {
			out = append(out, change.Status)
		}
	}
	return out
}

type memoryStore struct {
	mu    sync.Mutex
	saved map[uuid.UUID]domain.RecordingSession
	saves int
	err   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: map[uuid.UUID]domain.RecordingSession{}}
}

func (s *memoryStore) Save(_ context.Context, rs domain.RecordingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves++
	s.saved[rs.ID] = rs
	return nil
}

func (s *memoryStore) failSaves(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *memoryStore) Get(_ context.Context, id uuid.UUID) (domain.RecordingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.saved[id]
	if !ok {
		return domain.RecordingSession{}, domain.NotFoundf("session %s not found", id)
	}
	return rs, nil
}

func (s *memoryStore) List(_ context.Context, filter domain.SessionFilter) ([]domain.RecordingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RecordingSession
	for _, rs := range s.saved {
		if filter.Match(rs) {
			out = append(out, rs)
		}
	}
	return out, nil
}

type fixture struct {
	manager *Manager
	pub     *recordingPublisher
	store   *memoryStore
	drivers []*browser.Noop
	now     time.Time
	mu      sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		pub:   &recordingPublisher{},
		store: newMemoryStore(),
		now:   time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	f.manager = New(Deps{
		Capabilities: func() browser.Capability {
			n := browser.NewNoop()
			f.mu.Lock()
			f.drivers = append(f.drivers, n)
			f.mu.Unlock()
			return n
		},
		Publisher:     f.pub,
		Store:         f.store,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		PublicBaseURL: "http://recorder.test",
		EvictAfter:    time.Minute,
		Now:           f.clock,
	})
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fixture) driver(i int) *browser.Noop {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drivers[i]
}

func (f *fixture) start(t *testing.T) domain.RecordingSession {
	t.Helper()
	s, err := f.manager.Start(context.Background(), domain.StartConfig{ProjectID: "proj-1"})
	require.NoError(t, err)
	return s
}

func TestStartBlankPageBecomesActive(t *testing.T) {
	f := newFixture(t)
	s, err := f.manager.Start(context.Background(), domain.StartConfig{ProjectID: "proj-1", BaseURL: "about:blank"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, s.Status)
	assert.Equal(t, domain.BlankPage, s.BaseURL)
	assert.Equal(t, domain.DefaultFramework, s.Framework)
	assert.NotEmpty(t, s.SessionKey)
	assert.Equal(t, []domain.RecordingStatus{domain.StatusInitializing, domain.StatusActive}, f.pub.statuses())

	scripts := f.driver(0).Scripts()
	require.Len(t, scripts, 1)
	assert.Contains(t, scripts[0], `"http://recorder.test"`)
	assert.Contains(t, scripts[0], s.SessionKey)

	id, err := f.manager.Resolve(s.SessionKey)
	require.NoError(t, err)
	assert.Equal(t, s.ID, id)
}

func TestStartDefaultsMissingURL(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	assert.Equal(t, domain.BlankPage, s.BaseURL)
	assert.Equal(t, domain.BlankPage, s.Metadata["initial_url"])
}

func TestStartValidation(t *testing.T) {
	f := newFixture(t)
	cases := []domain.StartConfig{
		{BaseURL: "https://shop.test"},
		{ProjectID: "p", BaseURL: "https://"},
		{ProjectID: "p", BaseURL: "ftp://files.test"},
		{ProjectID: "p", BaseURL: "://broken"},
	}
	for _, cfg := range cases {
		_, err := f.manager.Start(context.Background(), cfg)
		require.ErrorIs(t, err, domain.ErrValidation, "%+v", cfg)
	}
	sessions, err := f.manager.List(context.Background(), domain.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestStartCapabilityFailureMarksError(t *testing.T) {
	f := newFixture(t)
	f.manager.capabilities = func() browser.Capability {
		n := browser.NewNoop()
		n.FailStart = errors.New("chromium not found")
		return n
	}

	s, err := f.manager.Start(context.Background(), domain.StartConfig{ProjectID: "p"})
	require.ErrorIs(t, err, domain.ErrCapability)
	assert.Equal(t, domain.StatusError, s.Status)
	assert.Contains(t, s.LastError, "chromium not found")
	assert.Contains(t, f.pub.types(), realtime.SessionError)

	got, err := f.manager.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, got.Status)
}

func TestScriptFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.manager.capabilities = func() browser.Capability {
		n := browser.NewNoop()
		n.FailScript = errors.New("execution context destroyed")
		return n
	}
	s := f.start(t)
	assert.Equal(t, domain.StatusActive, s.Status)

	var kinds []string
	for _, a := range s.Audit {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, domain.AuditScriptFailed)
}

func TestPauseResumeNoOps(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	ctx := context.Background()

	tr, err := f.manager.Resume(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, tr.Changed)
	assert.Equal(t, domain.StatusActive, tr.Session.Status)

	tr, err = f.manager.Pause(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.Equal(t, domain.StatusPaused, tr.Session.Status)

	tr, err = f.manager.Pause(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, tr.Changed)

	tr, err = f.manager.Resume(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, tr.Changed)

	scripts := f.driver(0).Scripts()
	assert.Equal(t, browser.PauseScript, scripts[1])
	assert.Equal(t, browser.ResumeScript, scripts[2])
}

func TestPauseAfterStopIsValidationError(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	_, err := f.manager.Stop(context.Background(), s.ID)
	require.NoError(t, err)

	_, err = f.manager.Pause(context.Background(), s.ID)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.manager.Pause(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStopIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	first, err := f.manager.Stop(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, first.Status)
	require.NotNil(t, first.EndedAt)

	second, err := f.manager.Stop(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, second.Status)

	_, stopped := f.driver(0).Calls()
	assert.Equal(t, 1, stopped)
	assert.Equal(t, domain.StatusCompleted, f.store.saved[s.ID].Status)
}

func TestStopCompletesEvenWhenTeardownFails(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	f.driver(0).FailStop = errors.New("target closed")

	out, err := f.manager.Stop(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, out.Status)

	found := false
	for _, a := range out.Audit {
		if a.Kind == domain.AuditTeardownFailed && strings.Contains(a.Detail, "target closed") {
			found = true
		}
	}
	assert.True(t, found, "expected teardown failure in audit trail")
}

func TestBrowserClosedCompletesSession(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	out, err := f.manager.BrowserClosed(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, out.Status)

	statuses := f.pub.statuses()
	assert.Equal(t, domain.StatusCompleted, statuses[len(statuses)-1])
}

func TestFailCancelsBoundContexts(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	view, err := f.manager.Snapshot(s.ID)
	require.NoError(t, err)
	ctx, cancel := view.Bind(context.Background())
	defer cancel()

	_, err = f.manager.Fail(context.Background(), s.ID, errors.New("renderer crashed"))
	require.NoError(t, err)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected bound context to be canceled on failure")
	}

	got, _ := f.manager.Get(context.Background(), s.ID)
	assert.Equal(t, domain.StatusError, got.Status)
	assert.Equal(t, "renderer crashed", got.LastError)
}

func TestTouchDoesNotChangeStatus(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	f.advance(5 * time.Second)

	out, err := f.manager.Touch(s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, out.Status)
	assert.Equal(t, f.clock(), out.LastSeenAt)

	idle, err := f.manager.Idle(s.ID)
	require.NoError(t, err)
	assert.Zero(t, idle)
}

func TestListFiltersAndMergesStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	live := f.start(t)
	done := f.start(t)
	_, err := f.manager.Stop(ctx, done.ID)
	require.NoError(t, err)

	archived := domain.RecordingSession{ID: uuid.New(), ProjectID: "proj-1", Status: domain.StatusCompleted}
	require.NoError(t, f.store.Save(ctx, archived))
	other := domain.RecordingSession{ID: uuid.New(), ProjectID: "proj-2", Status: domain.StatusActive}
	require.NoError(t, f.store.Save(ctx, other))

	all, err := f.manager.List(ctx, domain.SessionFilter{ProjectID: "proj-1"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := f.manager.List(ctx, domain.SessionFilter{ProjectID: "proj-1", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, live.ID, active[0].ID)
}

func TestEvictDropsOldTerminalSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	live := f.start(t)
	done := f.start(t)
	_, err := f.manager.Stop(ctx, done.ID)
	require.NoError(t, err)

	assert.Empty(t, f.manager.Evict(ctx))
	f.advance(2 * time.Minute)
	evicted := f.manager.Evict(ctx)
	assert.Equal(t, []uuid.UUID{done.ID}, evicted)

	_, err = f.manager.Resolve(done.SessionKey)
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.manager.Get(ctx, done.ID)
	require.NoError(t, err, "evicted session should be served from the store")
	assert.Equal(t, domain.StatusCompleted, got.Status)

	_, err = f.manager.Get(ctx, live.ID)
	require.NoError(t, err)
}

func TestCheckLivenessReportsWithoutFailing(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	f.driver(0).SetActive(false)

	unhealthy := f.manager.CheckLiveness(context.Background())
	assert.Equal(t, []uuid.UUID{s.ID}, unhealthy)

	got, _ := f.manager.Get(context.Background(), s.ID)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Contains(t, f.pub.types(), realtime.SessionError)
}

func TestPersistDirty(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	saves := f.store.saves

	_, err := f.manager.AddLoop(context.Background(), s.ID, nil, domain.LoopConfig{Kind: domain.LoopCount, Count: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, f.manager.PersistDirty(context.Background()))
	assert.Equal(t, saves+1, f.store.saves)
	assert.Len(t, f.store.saved[s.ID].Events, 1)
	assert.Zero(t, f.manager.PersistDirty(context.Background()))
}

func TestFailedSaveOnStopIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.start(t)
	_, err := f.manager.AddLoop(ctx, s.ID, nil, domain.LoopConfig{Kind: domain.LoopCount, Count: 3})
	require.NoError(t, err)

	f.store.failSaves(errors.New("connection reset"))
	stopped, err := f.manager.Stop(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stopped.Status)

	f.advance(2 * time.Minute)
	assert.Empty(t, f.manager.Evict(ctx), "unsaved session must stay in memory")
	assert.Zero(t, f.manager.PersistDirty(ctx))

	f.store.failSaves(nil)
	assert.Equal(t, 1, f.manager.PersistDirty(ctx))
	assert.Equal(t, []uuid.UUID{s.ID}, f.manager.Evict(ctx))

	got, err := f.manager.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Len(t, got.Events, 1)
}

func TestEvictFlushesFailedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.start(t)

	f.store.failSaves(errors.New("disk full"))
	_, err := f.manager.Fail(ctx, s.ID, errors.New("browser crashed"))
	require.NoError(t, err)

	f.advance(2 * time.Minute)
	assert.Empty(t, f.manager.Evict(ctx))

	f.store.failSaves(nil)
	assert.Equal(t, []uuid.UUID{s.ID}, f.manager.Evict(ctx))

	got, err := f.manager.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, got.Status)
	assert.Equal(t, "browser crashed", got.LastError)
}
