package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dlq"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
)

// defaultPurgeAge is how old an entry must be for an unqualified purge.
const defaultPurgeAge = 30 * 24 * time.Hour

func (a *API) listDLQ(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := dlq.ListOpts{
		JobType: q.Get("type"),
		Limit:   intParam(q.Get("limit"), 50),
		Offset:  intParam(q.Get("offset"), 0),
	}

	entries, err := a.eng.ListDLQ(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (a *API) getDLQ(w http.ResponseWriter, r *http.Request) {
	entryID, err := id.ParseDLQID(chi.URLParam(r, "entryID"))
	if err != nil {
		http.Error(w, "invalid DLQ entry ID: "+err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := a.eng.DLQService().Get(r.Context(), entryID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (a *API) replayDLQ(w http.ResponseWriter, r *http.Request) {
	entryID, err := id.ParseDLQID(chi.URLParam(r, "entryID"))
	if err != nil {
		http.Error(w, "invalid DLQ entry ID: "+err.Error(), http.StatusBadRequest)
		return
	}

	j, err := a.eng.ReplayDLQ(r.Context(), entryID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dispatchResponse{ID: j.ID.String()})
}

func (a *API) purgeDLQ(w http.ResponseWriter, r *http.Request) {
	before := time.Now().UTC().Add(-defaultPurgeAge)
	if s := r.URL.Query().Get("before"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "invalid before timestamp: "+err.Error(), http.StatusBadRequest)
			return
		}
		before = t
	}

	purged, err := a.eng.PurgeDLQ(r.Context(), before)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"purged": purged})
}

func (a *API) dlqCount(w http.ResponseWriter, r *http.Request) {
	count, err := a.eng.CountDLQ(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}
