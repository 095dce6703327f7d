// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

const maxBodyBytes = 4 << 20

var errMalformedBody = errors.New("request body must contain exactly one JSON object")

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, msg string, kind domain.ErrorKind) {
	writeJSON(w, status, errorBody{Error: msg, Kind: string(kind)})
}

// writeError maps the engine's error kinds onto status codes. Untyped
// errors are logged and hidden behind fallback.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string, attrs ...any) {
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindValidation:
		writeProblem(w, http.StatusBadRequest, err.Error(), kind)
		return
	case domain.KindNotFound:
		writeProblem(w, http.StatusNotFound, err.Error(), kind)
		return
	case domain.KindConflict:
		writeProblem(w, http.StatusConflict, err.Error(), kind)
		return
	case domain.KindCapability, domain.KindChannel:
		logger.Warn(fallback, append(attrs, "error", err)...)
		writeProblem(w, http.StatusBadGateway, err.Error(), kind)
		return
	}
	if errors.Is(err, context.Canceled) {
		writeProblem(w, http.StatusConflict, "operation canceled", domain.KindConflict)
		return
	}
	logger.Error(fallback, append(attrs, "error", err)...)
	writeProblem(w, http.StatusInternalServerError, fallback, "")
}

// decodeJSON reads exactly one JSON object into dst. An empty body leaves
// dst untouched when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		if allowEmpty {
			return nil
		}
		return errMalformedBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errMalformedBody
	}
	return nil
}

// decodeLoose is decodeJSON for capture payloads, whose fields vary by
// recorder version.
func decodeLoose(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errMalformedBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errMalformedBody
	}
	return nil
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid "+name, domain.KindValidation)
		return uuid.Nil, false
	}
	return id, true
}

func valueOrDefault(value, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue
	}
	return trimmed
}
