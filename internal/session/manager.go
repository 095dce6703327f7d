// SPDX-License-Identifier: Apache-2.0

// Package session owns the lifecycle of recording sessions and every
// operation against their event trees. Each session is an independent unit
// of concurrency; the process-wide state is only the registry that maps ids
// and session keys to session contexts.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/browser"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/metrics"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/processor"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/realtime"
)

const defaultEvictAfter = 10 * time.Minute

// Store persists session documents. It is optional; without it sessions
// live only in memory.
type Store interface {
	Save(ctx context.Context, s domain.RecordingSession) error
	Get(ctx context.Context, id uuid.UUID) (domain.RecordingSession, error)
	List(ctx context.Context, filter domain.SessionFilter) ([]domain.RecordingSession, error)
}

type Publisher interface {
	Publish(topic string, msg realtime.Message)
}

type Deps struct {
	Capabilities  browser.Factory
	Publisher     Publisher
	Store         Store
	Normalizer    *normalizer.Normalizer
	Processor     *processor.Processor
	Logger        *slog.Logger
	PublicBaseURL string
	EvictAfter    time.Duration
	Now           func() time.Time
}

type Manager struct {
	capabilities  browser.Factory
	publisher     Publisher
	store         Store
	normalizer    *normalizer.Normalizer
	processor     *processor.Processor
	logger        *slog.Logger
	publicBaseURL string
	evictAfter    time.Duration
	now           func() time.Time

	mu    sync.RWMutex
	byID  map[uuid.UUID]*record
	byKey map[string]*record
}

func New(deps Deps) *Manager {
	m := &Manager{
		capabilities:  deps.Capabilities,
		publisher:     deps.Publisher,
		store:         deps.Store,
		normalizer:    deps.Normalizer,
		processor:     deps.Processor,
		logger:        deps.Logger,
		publicBaseURL: deps.PublicBaseURL,
		evictAfter:    deps.EvictAfter,
		now:           deps.Now,
		byID:          make(map[uuid.UUID]*record),
		byKey:         make(map[string]*record),
	}
	if m.capabilities == nil {
		m.capabilities = func() browser.Capability { return browser.NewNoop() }
	}
	if m.publisher == nil {
		m.publisher = realtime.NewHub(0, deps.Logger)
	}
	if m.normalizer == nil {
		m.normalizer = normalizer.New()
	}
	if m.processor == nil {
		m.processor = processor.New(0)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.evictAfter <= 0 {
		m.evictAfter = defaultEvictAfter
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Manager) clock() time.Time { return m.now().UTC() }

// ---------------- REGISTRY ----------------

func (m *Manager) register(r *record) {
	m.mu.Lock()
	m.byID[r.session.ID] = r
	m.byKey[r.session.SessionKey] = r
	n := len(m.byID)
	m.mu.Unlock()
	metrics.SetRegisteredSessions(n)
}

func (m *Manager) lookup(id uuid.UUID) (*record, error) {
	m.mu.RLock()
	r, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.NotFoundf("session %s not found", id)
	}
	return r, nil
}

// Resolve maps a session key (routing key of the recorder script) to a
// session id.
func (m *Manager) Resolve(key string) (uuid.UUID, error) {
	m.mu.RLock()
	r, ok := m.byKey[key]
	m.mu.RUnlock()
	if !ok {
		return uuid.Nil, domain.NotFoundf("no session for key %q", key)
	}
	return r.id(), nil
}

func (m *Manager) snapshotRecords() []*record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*record, 0, len(m.byID))
	for _, r := range m.byID {
		out = append(out, r)
	}
	return out
}

// Get returns the exported session including its event list. Sessions that
// were evicted from memory are read back from the store.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (domain.RecordingSession, error) {
	r, err := m.lookup(id)
	if err == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.exportLocked(), nil
	}
	if m.store == nil {
		return domain.RecordingSession{}, err
	}
	return m.store.Get(ctx, id)
}

// List merges live sessions with stored ones; the live copy wins.
func (m *Manager) List(ctx context.Context, filter domain.SessionFilter) ([]domain.RecordingSession, error) {
	seen := map[uuid.UUID]bool{}
	out := []domain.RecordingSession{}
	for _, r := range m.snapshotRecords() {
		r.mu.RLock()
		desc := r.descriptorLocked()
		r.mu.RUnlock()
		seen[desc.ID] = true
		if filter.Match(desc) {
			out = append(out, desc)
		}
	}

	if m.store != nil {
		stored, err := m.store.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list stored sessions: %w", err)
		}
		for _, s := range stored {
			if seen[s.ID] || !filter.Match(s) {
				continue
			}
			s.Events = nil
			out = append(out, s)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// ---------------- LIFECYCLE ----------------

func validateStart(cfg domain.StartConfig) (domain.StartConfig, error) {
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	if cfg.ProjectID == "" {
		return cfg, domain.Validationf("project_id is required")
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.BlankPage
	}
	if cfg.BaseURL != domain.BlankPage {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return cfg, domain.Validationf("base_url %q is malformed: %v", cfg.BaseURL, err)
		}
		switch u.Scheme {
		case "http", "https":
			if u.Host == "" {
				return cfg, domain.Validationf("base_url %q has no host", cfg.BaseURL)
			}
		case "file":
		default:
			return cfg, domain.Validationf("base_url %q must be http, https or file", cfg.BaseURL)
		}
	}
	if cfg.Browser == "" {
		cfg.Browser = domain.DefaultBrowser
	}
	if cfg.Framework == "" {
		cfg.Framework = domain.DefaultFramework
	}
	if cfg.Language == "" {
		cfg.Language = domain.DefaultLanguage
	}
	return cfg, nil
}

// Start creates a session, launches its browser and injects the recorder
// script. A launch failure leaves the session registered in ERROR and is
// returned as a capability error.
func (m *Manager) Start(ctx context.Context, cfg domain.StartConfig) (domain.RecordingSession, error) {
	cfg, err := validateStart(cfg)
	if err != nil {
		return domain.RecordingSession{}, err
	}

	now := m.clock()
	r := newRecord(domain.RecordingSession{
		ID:         uuid.New(),
		ProjectID:  cfg.ProjectID,
		Name:       cfg.Name,
		SessionKey: ulid.Make().String(),
		Browser:    cfg.Browser,
		Framework:  cfg.Framework,
		Language:   cfg.Language,
		BaseURL:    cfg.BaseURL,
		Headless:   cfg.Headless,
		Status:     domain.StatusInitializing,
		StartedAt:  now,
		LastSeenAt: now,
		Metadata:   copyStrings(cfg.Metadata),
	})
	if r.session.Metadata == nil {
		r.session.Metadata = map[string]string{}
	}
	r.session.Metadata["initial_url"] = cfg.BaseURL

	capability := m.capabilities()
	r.mu.Lock()
	r.capability = capability
	m.transitionLocked(r, domain.StatusInitializing, "session created")
	r.mu.Unlock()
	m.register(r)

	logger := m.logger.With("session_id", r.id(), "project_id", cfg.ProjectID)
	logger.Info("starting recording session", "browser", cfg.Browser, "base_url", cfg.BaseURL)

	startErr := capability.Start(ctx, browser.LaunchConfig{
		SessionID: r.id(),
		Browser:   cfg.Browser,
		StartURL:  cfg.BaseURL,
		Headless:  cfg.Headless,
	})

	r.mu.Lock()
	if r.session.Status != domain.StatusInitializing {
		// stopped or failed while the browser was launching
		status := r.session.Status
		desc := r.exportLocked()
		r.mu.Unlock()
		if startErr == nil {
			if err := capability.Stop(context.Background()); err != nil {
				logger.Warn("late teardown after concurrent stop failed", "error", err)
			}
		}
		logger.Info("session left INITIALIZING during launch", "status", status)
		return desc, nil
	}
	if startErr != nil {
		capErr := domain.CapabilityError("browser start failed", startErr)
		m.failLocked(r, capErr)
		desc := r.exportLocked()
		r.mu.Unlock()
		logger.Error("browser start failed", "error", startErr)
		_ = m.persist(context.Background(), r, desc)
		return desc, capErr
	}
	m.transitionLocked(r, domain.StatusActive, "browser started")
	key := r.session.SessionKey
	r.mu.Unlock()

	m.runScript(ctx, r, browser.RecorderScript(browser.ScriptParams{
		BaseURL:    m.publicBaseURL,
		SessionKey: key,
	}), "inject recorder")

	r.mu.RLock()
	desc := r.exportLocked()
	r.mu.RUnlock()
	_ = m.persist(ctx, r, desc)
	logger.Info("recording session active")
	return desc, nil
}

// Pause stops capture. Pausing a paused session is reported as unchanged.
func (m *Manager) Pause(ctx context.Context, id uuid.UUID) (Transition, error) {
	return m.toggle(ctx, id, domain.StatusActive, domain.StatusPaused, browser.PauseScript)
}

// Resume restarts capture. Resuming an active session is reported as
// unchanged.
func (m *Manager) Resume(ctx context.Context, id uuid.UUID) (Transition, error) {
	return m.toggle(ctx, id, domain.StatusPaused, domain.StatusActive, browser.ResumeScript)
}

func (m *Manager) toggle(ctx context.Context, id uuid.UUID, from, to domain.RecordingStatus, script string) (Transition, error) {
	r, err := m.lookup(id)
	if err != nil {
		return Transition{}, err
	}

	r.mu.Lock()
	switch r.session.Status {
	case to:
		desc := r.exportLocked()
		r.mu.Unlock()
		m.logger.Info("transition request was a no-op", "session_id", id, "status", to)
		return Transition{Session: desc, Changed: false}, nil
	case from:
		m.transitionLocked(r, to, "requested")
	default:
		status := r.session.Status
		r.mu.Unlock()
		return Transition{}, domain.Validationf("cannot move session from %s to %s", status, to)
	}
	r.mu.Unlock()

	m.runScript(ctx, r, script, "toggle capture")

	r.mu.RLock()
	desc := r.exportLocked()
	r.mu.RUnlock()
	return Transition{Session: desc, Changed: true}, nil
}

// Stop tears the browser down and completes the session. Teardown failures
// are logged and audited; the session still completes. Stopping a terminal
// session returns it unchanged.
func (m *Manager) Stop(ctx context.Context, id uuid.UUID) (domain.RecordingSession, error) {
	return m.stop(ctx, id, "stop requested")
}

// BrowserClosed records that the user closed the browser and completes the
// session.
func (m *Manager) BrowserClosed(ctx context.Context, id uuid.UUID) (domain.RecordingSession, error) {
	r, err := m.lookup(id)
	if err != nil {
		return domain.RecordingSession{}, err
	}
	r.mu.Lock()
	if !r.session.Status.Terminal() {
		r.auditLocked(m.clock(), domain.AuditBrowserClosed, "browser closed by user")
	}
	r.mu.Unlock()
	return m.stop(ctx, id, "browser closed")
}

func (m *Manager) stop(ctx context.Context, id uuid.UUID, reason string) (domain.RecordingSession, error) {
	r, err := m.lookup(id)
	if err != nil {
		return domain.RecordingSession{}, err
	}

	r.mu.Lock()
	switch r.session.Status {
	case domain.StatusCompleted, domain.StatusError, domain.StatusStopping:
		desc := r.exportLocked()
		r.mu.Unlock()
		return desc, nil
	case domain.StatusInitializing, domain.StatusActive, domain.StatusPaused:
	}
	m.transitionLocked(r, domain.StatusStopping, reason)
	capability := r.capability
	r.mu.Unlock()

	var teardownErr error
	if capability != nil {
		teardownErr = capability.Stop(ctx)
	}

	r.mu.Lock()
	if teardownErr != nil {
		metrics.IncTeardownFailures()
		r.auditLocked(m.clock(), domain.AuditTeardownFailed, teardownErr.Error())
		m.logger.Warn("browser teardown failed; completing session anyway",
			"session_id", id,
			"error", teardownErr,
		)
	}
	m.transitionLocked(r, domain.StatusCompleted, reason)
	desc := r.exportLocked()
	r.dirty = false
	r.mu.Unlock()

	_ = m.persist(ctx, r, desc)
	return desc, nil
}

// Fail moves a non-terminal session to ERROR and tears its browser down.
func (m *Manager) Fail(ctx context.Context, id uuid.UUID, cause error) (domain.RecordingSession, error) {
	r, err := m.lookup(id)
	if err != nil {
		return domain.RecordingSession{}, err
	}

	r.mu.Lock()
	if r.session.Status.Terminal() {
		desc := r.exportLocked()
		r.mu.Unlock()
		return desc, nil
	}
	m.failLocked(r, cause)
	capability := r.capability
	desc := r.exportLocked()
	r.dirty = false
	r.mu.Unlock()

	if capability != nil {
		if err := capability.Stop(ctx); err != nil {
			m.logger.Warn("browser teardown after failure failed", "session_id", id, "error", err)
		}
	}
	_ = m.persist(ctx, r, desc)
	return desc, nil
}

func (m *Manager) failLocked(r *record, cause error) {
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	r.session.LastError = msg
	m.transitionLocked(r, domain.StatusError, msg)
	m.publish(r, realtime.SessionError, ErrorNotice{SessionID: r.id(), Error: msg, Fatal: true})
}

// Touch records a heartbeat. It never changes the session status.
func (m *Manager) Touch(id uuid.UUID) (domain.RecordingSession, error) {
	r, err := m.lookup(id)
	if err != nil {
		return domain.RecordingSession{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.LastSeenAt = m.clock()
	return r.descriptorLocked(), nil
}

// transitionLocked moves r to status and notifies subscribers. Creating a
// session passes its initial status.
func (m *Manager) transitionLocked(r *record, to domain.RecordingStatus, reason string) {
	from := r.session.Status
	if from != to && !canTransition(from, to) {
		m.logger.Error("illegal session transition ignored",
			"session_id", r.id(),
			"from", from,
			"to", to,
		)
		return
	}

	now := m.clock()
	r.session.Status = to
	if to.Terminal() {
		r.session.EndedAt = &now
		r.cancel()
	}
	r.auditLocked(now, domain.AuditTransition, fmt.Sprintf("%s -> %s: %s", from, to, reason))
	metrics.IncSessionTransition(to)

	change := StatusChange{SessionID: r.id(), Status: to, Reason: reason, At: now}
	if from != to {
		change.From = from
	}
	m.publish(r, realtime.SessionStatusChanged, change)
	m.logger.Info("session status changed",
		"session_id", r.id(),
		"from", from,
		"to", to,
		"reason", reason,
	)
}

func (m *Manager) publish(r *record, typ realtime.MessageType, payload any) {
	m.publisher.Publish(realtime.SessionTopic(r.id()), realtime.Message{
		Type:      typ,
		SessionID: r.id().String(),
		Payload:   payload,
		Timestamp: m.clock(),
	})
}

// runScript executes a script on the session browser. Failures are audited
// and logged but never change the session status.
func (m *Manager) runScript(ctx context.Context, r *record, script, what string) {
	r.mu.RLock()
	capability := r.capability
	r.mu.RUnlock()
	if capability == nil {
		return
	}
	if _, err := capability.ExecuteScript(ctx, script); err != nil {
		r.mu.Lock()
		r.auditLocked(m.clock(), domain.AuditScriptFailed, fmt.Sprintf("%s: %v", what, err))
		r.mu.Unlock()
		m.logger.Warn("browser script failed",
			"session_id", r.id(),
			"script", what,
			"error", err,
		)
	}
}

// persist saves s. On failure r is marked dirty again so the next
// PersistDirty or Evict pass retries the save.
func (m *Manager) persist(ctx context.Context, r *record, s domain.RecordingSession) error {
	if m.store == nil {
		return nil
	}
	err := m.store.Save(context.WithoutCancel(ctx), s)
	if err != nil {
		m.logger.Error("persist session failed", "session_id", s.ID, "error", err)
		r.mu.Lock()
		r.dirty = true
		r.mu.Unlock()
	}
	return err
}
