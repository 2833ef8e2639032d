// Package api provides HTTP handlers for inspecting and controlling the
// job engine: dispatching jobs, querying status and attempt history,
// cancellation, metrics, and dead letter queue management.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/engine"
)

// API serves the engine's HTTP surface.
type API struct {
	eng *engine.Engine
}

// New creates an API over an engine.
func New(eng *engine.Engine) *API {
	return &API{eng: eng}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)

	r.Get("/health", a.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", a.dispatchJob)
		r.Get("/jobs", a.listJobs)
		r.Get("/jobs/{jobID}", a.getJob)
		r.Get("/jobs/{jobID}/attempts", a.listAttempts)
		r.Post("/jobs/{jobID}/cancel", a.cancelJob)
		r.Get("/metrics", a.metrics)

		r.Get("/dlq", a.listDLQ)
		r.Get("/dlq/count", a.dlqCount)
		r.Get("/dlq/{entryID}", a.getDLQ)
		r.Post("/dlq/{entryID}/replay", a.replayDLQ)
		r.Delete("/dlq", a.purgeDLQ)
	})

	return r
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine sentinels onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, copilot.ErrJobNotFound), errors.Is(err, copilot.ErrDLQNotFound):
		code = http.StatusNotFound
	case errors.Is(err, copilot.ErrUnknownJobType):
		code = http.StatusBadRequest
	case errors.Is(err, copilot.ErrDuplicateJob), errors.Is(err, copilot.ErrJobTerminal):
		code = http.StatusConflict
	case errors.Is(err, copilot.ErrQueueFull), errors.Is(err, copilot.ErrQueueClosed):
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
