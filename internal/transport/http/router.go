// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/metrics"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/transport/middleware"
)

type Deps struct {
	Sessions      Sessions
	Intake        Intake
	Generator     Generator
	Hub           Subscriber
	Health        HealthChecker
	IngestLimiter *middleware.KeyedLimiter
	Logger        *slog.Logger
	Version       string
	Commit        string
	BuildDate     string
}

type api struct {
	sessions  Sessions
	intake    Intake
	generator Generator
	hub       Subscriber
	limiter   *middleware.KeyedLimiter
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics.Init()
	version := valueOrDefault(deps.Version, "dev")
	commit := valueOrDefault(deps.Commit, "none")
	buildDate := valueOrDefault(deps.BuildDate, "unknown")

	a := &api{
		sessions:  deps.Sessions,
		intake:    deps.Intake,
		generator: deps.Generator,
		hub:       deps.Hub,
		limiter:   deps.IngestLimiter,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// recorder scripts post from whatever origin is being recorded
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(requestLoggingMiddleware(logger))

	// ---------------- HEALTH ----------------

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("health check hit")
		if deps.Health != nil {
			if err := deps.Health.Check(r.Context()); err != nil {
				logger.Warn("health check failed", "error", err)
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// ---------------- METRICS ----------------

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// ---------------- VERSION ----------------

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"commit":     commit,
			"build_date": buildDate,
		})
	})

	bySession := middleware.RateLimit(a.limiter, func(r *http.Request) string {
		return "session:" + chi.URLParam(r, "id")
	}, logger)
	byKey := middleware.RateLimit(a.limiter, func(r *http.Request) string {
		return chi.URLParam(r, "key")
	}, logger)

	// ---------------- SESSIONS ----------------

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", a.startSession)
		r.Get("/", a.listSessions)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getSession)
			r.Post("/stop", a.stopSession)
			r.Post("/pause", a.pauseSession)
			r.Post("/resume", a.resumeSession)
			r.Get("/stream", a.streamSession)
			r.Post("/generate", a.generate)

			// ---------------- EVENTS ----------------

			r.Get("/events", a.eventTree)
			r.With(bySession).Post("/events:submit", a.submitToSession)
			r.Post("/events/reorder", a.reorderEvents)
			r.Patch("/events/{eventId}", a.updateEvent)
			r.Delete("/events/{eventId}", a.deleteEvent)
			r.Post("/events/{eventId}/move", a.moveEvent)
			r.Post("/events/{eventId}/assertions", a.addAssertion)
			r.Put("/events/{eventId}/assertions/{assertionId}", a.updateAssertion)
			r.Delete("/events/{eventId}/assertions/{assertionId}", a.deleteAssertion)

			// ---------------- STRUCTURE ----------------

			r.Post("/conditions", a.addCondition)
			r.Put("/conditions/{eventId}", a.updateCondition)
			r.Post("/loops", a.addLoop)
			r.Put("/loops/{eventId}", a.updateLoop)
			r.Post("/data-sources", a.addDataSource)
			r.Put("/data-sources/{eventId}", a.updateDataSource)
			r.Delete("/data-sources/{eventId}", a.deleteDataSource)
			r.Post("/variable-bindings", a.addVariableBinding)
			r.Put("/variable-bindings/{eventId}", a.updateVariableBinding)
			r.Post("/groups", a.createGroup)
			r.Put("/groups/{groupId}", a.updateGroup)
			r.Delete("/groups/{groupId}", a.deleteGroup)
		})
	})

	// ---------------- RECORDER INTAKE ----------------

	r.Route("/ingest/{key}", func(r chi.Router) {
		r.With(byKey).Post("/events", a.submitToKey)
		r.Post("/heartbeat", a.heartbeat)
		r.Post("/browser-closed", a.browserClosed)
	})

	// ---------------- SOCKETS ----------------

	r.Get("/ws/record/{key}", a.recordSocket)
	r.Get("/ws/sessions/{id}", a.sessionSocket)

	return r
}
