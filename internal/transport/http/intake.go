// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/ingest"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
)

// Every processed submission answers 200 with its ack, rejected or not.
// Only bodies that are not JSON at all fail the request.
func (a *api) submitToSession(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	a.submit(w, r, ingest.Target{
		SessionID:  id,
		RoutingKey: strings.TrimSpace(r.URL.Query().Get("routing_key")),
	})
}

func (a *api) submitToKey(w http.ResponseWriter, r *http.Request) {
	a.submit(w, r, ingest.Target{
		SessionKey: chi.URLParam(r, "key"),
		RoutingKey: strings.TrimSpace(r.URL.Query().Get("routing_key")),
	})
}

func (a *api) submit(w http.ResponseWriter, r *http.Request, target ingest.Target) {
	var raw normalizer.RawEvent
	if err := decodeLoose(r, &raw); err != nil {
		writeProblem(w, http.StatusBadRequest, "malformed event payload", domain.KindValidation)
		return
	}
	ack := a.intake.Submit(r.Context(), target, raw, ingest.ChannelHTTP)
	writeJSON(w, http.StatusOK, ack)
}

func (a *api) heartbeat(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	hb, err := a.intake.Heartbeat(key, strings.TrimSpace(r.URL.Query().Get("routing_key")))
	if err != nil {
		writeError(w, a.logger, err, "failed to record heartbeat", "routing_key", key)
		return
	}
	writeJSON(w, http.StatusOK, hb)
}

func (a *api) browserClosed(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	s, err := a.intake.BrowserClosed(r.Context(), key)
	if err != nil {
		writeError(w, a.logger, err, "failed to close session", "routing_key", key)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
