package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

type dispatchRequest struct {
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	Priority      int             `json:"priority"`
	MaxRetries    *int            `json:"max_retries"`
	DedupKey      string          `json:"dedup_key"`
	ScheduledFor  *time.Time      `json:"scheduled_for"`
	TimeoutMs     int64           `json:"timeout_ms"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id"`
}

type dispatchResponse struct {
	ID string `json:"id"`
}

func (a *API) dispatchJob(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}

	opts := []job.Option{
		job.WithPriority(req.Priority),
		job.WithDedupKey(req.DedupKey),
		job.WithSource(req.Source),
		job.WithCorrelationID(req.CorrelationID),
	}
	if req.MaxRetries != nil {
		opts = append(opts, job.WithMaxRetries(*req.MaxRetries))
	}
	if req.ScheduledFor != nil {
		opts = append(opts, job.WithScheduledFor(*req.ScheduledFor))
	}
	if req.TimeoutMs > 0 {
		opts = append(opts, job.WithTimeout(time.Duration(req.TimeoutMs)*time.Millisecond))
	}

	j := job.New(req.Type, req.Payload, opts...)
	if err := a.eng.Dispatch(r.Context(), j); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, dispatchResponse{ID: j.ID.String()})
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := job.Filter{
		Status: job.Status(q.Get("status")),
		Type:   q.Get("type"),
		Source: q.Get("source"),
	}
	f.Limit = intParam(q.Get("limit"), 50)
	f.Offset = intParam(q.Get("offset"), 0)

	infos, err := a.eng.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, infos)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		http.Error(w, "invalid job ID: "+err.Error(), http.StatusBadRequest)
		return
	}

	info, err := a.eng.Status(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (a *API) listAttempts(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		http.Error(w, "invalid job ID: "+err.Error(), http.StatusBadRequest)
		return
	}

	atts, err := a.eng.Attempts(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, atts)
}

func (a *API) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		http.Error(w, "invalid job ID: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := a.eng.Cancel(r.Context(), jobID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) metrics(w http.ResponseWriter, r *http.Request) {
	m, err := a.eng.Metrics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
