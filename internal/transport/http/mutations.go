// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/session"
)

type reorderRequest struct {
	ParentID *uuid.UUID  `json:"parent_id"`
	IDs      []uuid.UUID `json:"ids"`
}

type moveRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

type conditionRequest struct {
	ParentID  *uuid.UUID       `json:"parent_id"`
	Condition domain.Condition `json:"condition"`
}

type loopRequest struct {
	ParentID *uuid.UUID        `json:"parent_id"`
	Loop     domain.LoopConfig `json:"loop"`
}

type dataSourceRequest struct {
	ParentID   *uuid.UUID        `json:"parent_id"`
	DataSource domain.DataSource `json:"data_source"`
}

type bindingRequest struct {
	EventID  *uuid.UUID             `json:"event_id"`
	ParentID *uuid.UUID             `json:"parent_id"`
	Binding  domain.VariableBinding `json:"binding"`
}

type groupRequest struct {
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"member_ids"`
}

// pathIDs parses the session id plus any further path parameters.
func pathIDs(w http.ResponseWriter, r *http.Request, names ...string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(names)+1)
	for _, name := range append([]string{"id"}, names...) {
		id, ok := uuidParam(w, r, name)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func (a *api) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst, false); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body: "+err.Error(), domain.KindValidation)
		return false
	}
	return true
}

func (a *api) respond(w http.ResponseWriter, status int, v any, err error, what string, sessionID uuid.UUID) {
	if err != nil {
		writeError(w, a.logger, err, "failed to "+what, "session_id", sessionID)
		return
	}
	writeJSON(w, status, v)
}

// ---------------- EVENTS ----------------

func (a *api) updateEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	var p model.Patch
	if !a.decodeBody(w, r, &p) {
		return
	}
	ev, err := a.sessions.UpdateEvent(r.Context(), ids[0], ids[1], p)
	a.respond(w, http.StatusOK, ev, err, "update event", ids[0])
}

func (a *api) deleteEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	var opts model.DeleteOptions
	if raw := strings.TrimSpace(r.URL.Query().Get("cascade")); raw != "" {
		cascade, err := strconv.ParseBool(raw)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid cascade flag", domain.KindValidation)
			return
		}
		opts.Cascade = cascade
	}
	removal, err := a.sessions.DeleteEvent(r.Context(), ids[0], ids[1], opts)
	a.respond(w, http.StatusOK, removal, err, "delete event", ids[0])
}

func (a *api) reorderEvents(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	res, err := a.sessions.Reorder(r.Context(), ids[0], req.ParentID, req.IDs)
	a.respond(w, http.StatusOK, res, err, "reorder events", ids[0])
}

func (a *api) moveEvent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	var req moveRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.Move(r.Context(), ids[0], ids[1], req.ParentID)
	a.respond(w, http.StatusOK, ev, err, "move event", ids[0])
}

// ---------------- ASSERTIONS ----------------

func (a *api) addAssertion(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	var req domain.AssertionConfig
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.AddAssertion(r.Context(), ids[0], ids[1], req)
	a.respond(w, http.StatusCreated, ev, err, "add assertion", ids[0])
}

func (a *api) updateAssertion(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId", "assertionId")
	if !ok {
		return
	}
	var req domain.AssertionConfig
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.UpdateAssertion(r.Context(), ids[0], ids[1], ids[2], req)
	a.respond(w, http.StatusOK, ev, err, "update assertion", ids[0])
}

func (a *api) deleteAssertion(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId", "assertionId")
	if !ok {
		return
	}
	ev, err := a.sessions.DeleteAssertion(r.Context(), ids[0], ids[1], ids[2])
	a.respond(w, http.StatusOK, ev, err, "delete assertion", ids[0])
}

// ---------------- CONDITIONS AND LOOPS ----------------

func (a *api) addCondition(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req conditionRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.AddCondition(r.Context(), ids[0], req.ParentID, req.Condition)
	a.respond(w, http.StatusCreated, ev, err, "add condition", ids[0])
}

func (a *api) updateCondition(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	var req domain.Condition
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.UpdateCondition(r.Context(), ids[0], ids[1], req)
	a.respond(w, http.StatusOK, ev, err, "update condition", ids[0])
}

func (a *api) addLoop(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req loopRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.AddLoop(r.Context(), ids[0], req.ParentID, req.Loop)
	a.respond(w, http.StatusCreated, ev, err, "add loop", ids[0])
}

func (a *api) updateLoop(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	var req domain.LoopConfig
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.UpdateLoop(r.Context(), ids[0], ids[1], req)
	a.respond(w, http.StatusOK, ev, err, "update loop", ids[0])
}

// ---------------- DATA SOURCES AND BINDINGS ----------------

func (a *api) addDataSource(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req dataSourceRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.AddDataSource(r.Context(), ids[0], req.ParentID, req.DataSource)
	a.respond(w, http.StatusCreated, ev, err, "add data source", ids[0])
}

func (a *api) updateDataSource(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	var req domain.DataSource
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.UpdateDataSource(r.Context(), ids[0], ids[1], req)
	a.respond(w, http.StatusOK, ev, err, "update data source", ids[0])
}

func (a *api) deleteDataSource(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	removal, err := a.sessions.DeleteDataSource(r.Context(), ids[0], ids[1])
	a.respond(w, http.StatusOK, removal, err, "delete data source", ids[0])
}

func (a *api) addVariableBinding(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req bindingRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	target := session.BindingTarget{EventID: req.EventID, Parent: req.ParentID}
	ev, err := a.sessions.AddVariableBinding(r.Context(), ids[0], target, req.Binding)
	a.respond(w, http.StatusCreated, ev, err, "add variable binding", ids[0])
}

func (a *api) updateVariableBinding(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "eventId")
	if !ok {
		return
	}
	var req domain.VariableBinding
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.UpdateVariableBinding(r.Context(), ids[0], ids[1], req)
	a.respond(w, http.StatusOK, ev, err, "update variable binding", ids[0])
}

// ---------------- GROUPS ----------------

func (a *api) createGroup(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r)
	if !ok {
		return
	}
	var req groupRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.CreateStepGroup(r.Context(), ids[0], req.Name, req.MemberIDs)
	a.respond(w, http.StatusCreated, ev, err, "create step group", ids[0])
}

func (a *api) updateGroup(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "groupId")
	if !ok {
		return
	}
	var req session.GroupUpdate
	if !a.decodeBody(w, r, &req) {
		return
	}
	ev, err := a.sessions.UpdateStepGroup(r.Context(), ids[0], ids[1], req)
	a.respond(w, http.StatusOK, ev, err, "update step group", ids[0])
}

func (a *api) deleteGroup(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "groupId")
	if !ok {
		return
	}
	removal, err := a.sessions.DeleteStepGroup(r.Context(), ids[0], ids[1])
	a.respond(w, http.StatusOK, removal, err, "delete step group", ids[0])
}
