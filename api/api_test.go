package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/api"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/backoff"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/engine"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

type reviewInput struct {
	PR int `json:"pr"`
}

// newServer builds an engine with a single handler and wraps it in a
// test HTTP server. start controls whether workers run.
func newServer(t *testing.T, start bool, fn func(ctx context.Context, in reviewInput) error) (*httptest.Server, *engine.Engine) {
	t.Helper()

	cfg := copilot.DefaultConfig()
	cfg.Retry = backoff.Policy{
		Enabled:    true,
		MaxRetries: 1,
		Strategy:   backoff.StrategyConstant,
		BaseDelay:  10 * time.Millisecond,
	}
	eng, err := engine.New(engine.WithConfig(cfg))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if fn == nil {
		fn = func(context.Context, reviewInput) error { return nil }
	}
	def := job.NewDefinition("code_review", fn, job.WithMaxRetries(1))
	if err := engine.Register(eng, def); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if start {
		if err := eng.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = eng.Stop(ctx)
		})
	}

	srv := httptest.NewServer(api.New(eng).Handler())
	t.Cleanup(srv.Close)

	return srv, eng
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAPI_Health(t *testing.T) {
	srv, _ := newServer(t, false, nil)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAPI_DispatchAndGet(t *testing.T) {
	srv, _ := newServer(t, false, nil)

	resp := postJSON(t, srv.URL+"/api/jobs", map[string]any{
		"type":     "code_review",
		"payload":  reviewInput{PR: 17},
		"priority": 5,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	created := decode[map[string]string](t, resp)
	jobID := created["id"]
	if _, err := id.ParseJobID(jobID); err != nil {
		t.Fatalf("returned ID %q not a job ID: %v", jobID, err)
	}

	get, err := http.Get(srv.URL + "/api/jobs/" + jobID)
	if err != nil {
		t.Fatalf("GET job: %v", err)
	}
	if get.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", get.StatusCode)
	}
	info := decode[map[string]any](t, get)
	if info["status"] != string(job.StatusQueued) {
		t.Errorf("status = %v, want queued", info["status"])
	}
	if info["type"] != "code_review" {
		t.Errorf("type = %v", info["type"])
	}
}

func TestAPI_DispatchValidation(t *testing.T) {
	srv, _ := newServer(t, false, nil)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing type", map[string]any{"payload": "{}"}, http.StatusBadRequest},
		{"unknown type", map[string]any{"type": "nope"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/jobs", tt.body)
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestAPI_DuplicateDedupKeyConflicts(t *testing.T) {
	srv, _ := newServer(t, false, nil)

	body := map[string]any{"type": "code_review", "dedup_key": "pr-17"}
	first := postJSON(t, srv.URL+"/api/jobs", body)
	first.Body.Close()
	if first.StatusCode != http.StatusAccepted {
		t.Fatalf("first status = %d, want 202", first.StatusCode)
	}

	second := postJSON(t, srv.URL+"/api/jobs", body)
	second.Body.Close()
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("second status = %d, want 409", second.StatusCode)
	}
}

func TestAPI_GetJobNotFound(t *testing.T) {
	srv, _ := newServer(t, false, nil)

	resp, err := http.Get(srv.URL + "/api/jobs/" + id.NewJobID().String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	bad, err := http.Get(srv.URL + "/api/jobs/not-an-id")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", bad.StatusCode)
	}
}

func TestAPI_CancelQueuedJob(t *testing.T) {
	srv, eng := newServer(t, false, nil)

	resp := postJSON(t, srv.URL+"/api/jobs", map[string]any{"type": "code_review"})
	created := decode[map[string]string](t, resp)

	cancel, err := http.Post(srv.URL+"/api/jobs/"+created["id"]+"/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("POST cancel: %v", err)
	}
	cancel.Body.Close()
	if cancel.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel status = %d, want 204", cancel.StatusCode)
	}

	// The record still reads queued; the cancel takes effect at dequeue.
	jobID, _ := id.ParseJobID(created["id"])
	if _, err := eng.Status(context.Background(), jobID); err != nil {
		t.Fatalf("Status: %v", err)
	}
}

func TestAPI_ListJobsFilter(t *testing.T) {
	srv, _ := newServer(t, false, nil)

	for range 3 {
		resp := postJSON(t, srv.URL+"/api/jobs", map[string]any{"type": "code_review"})
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/jobs?status=queued&limit=2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	infos := decode[[]map[string]any](t, resp)
	if len(infos) != 2 {
		t.Fatalf("got %d records, want 2 (limit)", len(infos))
	}
}

func TestAPI_MetricsAndDLQFlow(t *testing.T) {
	srv, eng := newServer(t, true, func(_ context.Context, _ reviewInput) error {
		return errors.New("lint failure")
	})

	resp := postJSON(t, srv.URL+"/api/jobs", map[string]any{"type": "code_review"})
	created := decode[map[string]string](t, resp)
	jobID, _ := id.ParseJobID(created["id"])

	// Wait for the retry budget to burn down into the DLQ.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		info, err := eng.Status(context.Background(), jobID)
		if err == nil && info.Status == job.StatusDeadLetter {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	countResp, err := http.Get(srv.URL + "/api/dlq/count")
	if err != nil {
		t.Fatalf("GET dlq count: %v", err)
	}
	count := decode[map[string]int64](t, countResp)
	if count["count"] != 1 {
		t.Fatalf("dlq count = %d, want 1", count["count"])
	}

	listResp, err := http.Get(srv.URL + "/api/dlq")
	if err != nil {
		t.Fatalf("GET dlq: %v", err)
	}
	entries := decode[[]map[string]any](t, listResp)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entryID := entries[0]["id"].(string)

	metricsResp, err := http.Get(srv.URL + "/api/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	m := decode[map[string]any](t, metricsResp)
	if m["total"].(float64) != 1 {
		t.Errorf("metrics total = %v, want 1", m["total"])
	}

	replayResp, err := http.Post(srv.URL+"/api/dlq/"+entryID+"/replay", "application/json", nil)
	if err != nil {
		t.Fatalf("POST replay: %v", err)
	}
	defer replayResp.Body.Close()
	if replayResp.StatusCode != http.StatusCreated {
		t.Fatalf("replay status = %d, want 201", replayResp.StatusCode)
	}

	purgeReq, _ := http.NewRequest(http.MethodDelete,
		srv.URL+"/api/dlq?before="+time.Now().UTC().Add(time.Hour).Format(time.RFC3339), nil)
	purgeResp, err := http.DefaultClient.Do(purgeReq)
	if err != nil {
		t.Fatalf("DELETE dlq: %v", err)
	}
	purged := decode[map[string]int64](t, purgeResp)
	if purged["purged"] < 1 {
		t.Errorf("purged = %d, want at least 1", purged["purged"])
	}
}
