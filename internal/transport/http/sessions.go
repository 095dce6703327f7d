// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/session"
)

func (a *api) startSession(w http.ResponseWriter, r *http.Request) {
	var cfg domain.StartConfig
	if err := decodeJSON(r, &cfg, false); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", domain.KindValidation)
		return
	}

	s, err := a.sessions.Start(r.Context(), cfg)
	if err != nil {
		writeError(w, a.logger, err, "failed to start session", "project_id", cfg.ProjectID, "session_id", s.ID)
		return
	}

	a.logger.Info("session started via API", "session_id", s.ID, "project_id", s.ProjectID)
	writeJSON(w, http.StatusCreated, s)
}

func (a *api) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.SessionFilter{ProjectID: strings.TrimSpace(q.Get("project_id"))}
	if raw := strings.TrimSpace(q.Get("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid active flag", domain.KindValidation)
			return
		}
		filter.ActiveOnly = active
	}

	sessions, err := a.sessions.List(r.Context(), filter)
	if err != nil {
		writeError(w, a.logger, err, "failed to list sessions", "project_id", filter.ProjectID)
		return
	}
	if sessions == nil {
		sessions = []domain.RecordingSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
	})
}

func (a *api) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	s, err := a.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, a.logger, err, "failed to get session", "session_id", id)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *api) stopSession(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	prior, err := a.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, a.logger, err, "failed to stop session", "session_id", id)
		return
	}

	s, err := a.sessions.Stop(r.Context(), id)
	if err != nil {
		writeError(w, a.logger, err, "failed to stop session", "session_id", id)
		return
	}

	changed := !prior.Status.Terminal() && prior.Status != domain.StatusStopping
	if changed {
		a.logger.Info("session stopped via API", "session_id", id)
	}
	writeJSON(w, http.StatusOK, session.Transition{Session: s, Changed: changed})
}

func (a *api) pauseSession(w http.ResponseWriter, r *http.Request) {
	a.toggle(w, r, "pause", a.sessions.Pause)
}

func (a *api) resumeSession(w http.ResponseWriter, r *http.Request) {
	a.toggle(w, r, "resume", a.sessions.Resume)
}

func (a *api) toggle(w http.ResponseWriter, r *http.Request, what string, fn func(context.Context, uuid.UUID) (session.Transition, error)) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	tr, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, a.logger, err, "failed to "+what+" session", "session_id", id)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (a *api) eventTree(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	view, err := a.sessions.SnapshotStored(r.Context(), id)
	if err != nil {
		writeError(w, a.logger, err, "failed to read events", "session_id", id)
		return
	}
	nodes := view.Tree.Nested()
	if nodes == nil {
		nodes = []model.Node{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"status":     view.Session.Status,
		"count":      view.Tree.Len(),
		"events":     nodes,
	})
}
