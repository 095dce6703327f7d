// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"time"

	"github.com/google/uuid"
)

type RecordingStatus string

const (
	StatusInitializing RecordingStatus = "INITIALIZING"
	StatusActive       RecordingStatus = "ACTIVE"
	StatusPaused       RecordingStatus = "PAUSED"
	StatusStopping     RecordingStatus = "STOPPING"
	StatusCompleted    RecordingStatus = "COMPLETED"
	StatusError        RecordingStatus = "ERROR"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []RecordingStatus{
	StatusInitializing,
	StatusActive,
	StatusPaused,
	StatusStopping,
	StatusCompleted,
	StatusError,
}

func (s RecordingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// BlankPage is the start URL used when a session is started without one.
const BlankPage = "about:blank"

const (
	DefaultBrowser   = "chromium"
	DefaultFramework = "playwright"
	DefaultLanguage  = "typescript"
)

type StartConfig struct {
	ProjectID string            `json:"project_id"`
	Name      string            `json:"name,omitempty"`
	Browser   string            `json:"browser,omitempty"`
	Framework string            `json:"framework,omitempty"`
	Language  string            `json:"language,omitempty"`
	BaseURL   string            `json:"base_url,omitempty"`
	Headless  bool              `json:"headless,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditEntry is an append-only note on a session. Audit entries are the only
// thing that may change once a session is terminal.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

const (
	AuditTransition     = "transition"
	AuditTeardownFailed = "teardown_failed"
	AuditBrowserClosed  = "browser_closed"
	AuditHeartbeatGap   = "heartbeat_gap"
	AuditScriptFailed   = "script_failed"
)

// RecordingSession is the exported descriptor of a session. Events are the
// flat arena in sibling order; parent references rebuild the tree.
type RecordingSession struct {
	ID         uuid.UUID         `json:"id"`
	ProjectID  string            `json:"project_id"`
	Name       string            `json:"name,omitempty"`
	SessionKey string            `json:"session_key"`
	Browser    string            `json:"browser"`
	Framework  string            `json:"framework"`
	Language   string            `json:"language"`
	BaseURL    string            `json:"base_url"`
	Headless   bool              `json:"headless"`
	Status     RecordingStatus   `json:"status"`
	StartedAt  time.Time         `json:"started_at"`
	EndedAt    *time.Time        `json:"ended_at,omitempty"`
	LastSeenAt time.Time         `json:"last_seen_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Events     []RecordedEvent   `json:"events,omitempty"`
	Audit      []AuditEntry      `json:"audit,omitempty"`
	LastError  string            `json:"last_error,omitempty"`
}

// SessionFilter selects sessions for listing. Zero value lists everything.
type SessionFilter struct {
	ProjectID  string
	ActiveOnly bool
}

func (f SessionFilter) Match(s RecordingSession) bool {
	if f.ProjectID != "" && s.ProjectID != f.ProjectID {
		return false
	}
	if f.ActiveOnly && s.Status.Terminal() {
		return false
	}
	return true
}
