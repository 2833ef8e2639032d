package job_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status   job.Status
		terminal bool
	}{
		{job.StatusQueued, false},
		{job.StatusProcessing, false},
		{job.StatusRetried, false},
		{job.StatusCompleted, true},
		{job.StatusFailed, true},
		{job.StatusCancelled, true},
		{job.StatusDeadLetter, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestNewJobDefaults(t *testing.T) {
	j := job.New("plan_generation", []byte(`{"issue":42}`))

	if j.ID.IsNil() {
		t.Error("expected generated job ID")
	}
	if j.MaxRetries != job.InheritMaxRetries {
		t.Errorf("expected MaxRetries %d (inherit engine budget), got %d", job.InheritMaxRetries, j.MaxRetries)
	}
	if j.Priority != 0 {
		t.Errorf("expected default priority 0, got %d", j.Priority)
	}
	if !j.Ready(time.Now()) {
		t.Error("job without ScheduledFor should be immediately ready")
	}
}

func TestJobReady(t *testing.T) {
	now := time.Now()
	j := job.New("x", nil, job.WithScheduledFor(now.Add(time.Hour)))

	if j.Ready(now) {
		t.Error("job scheduled in the future should not be ready")
	}
	if !j.Ready(now.Add(2 * time.Hour)) {
		t.Error("job should be ready once ScheduledFor has passed")
	}
}

func TestNewStatusInfo(t *testing.T) {
	j := job.New("plan_execution", nil,
		job.WithSource("webhook"),
		job.WithCorrelationID("task-7"),
		job.WithMaxRetries(5),
	)

	info := job.NewStatusInfo(j)
	if info.Status != job.StatusQueued {
		t.Errorf("expected queued, got %s", info.Status)
	}
	if info.JobID != j.ID {
		t.Error("status record must reference the job ID")
	}
	if info.MaxRetries != 5 || info.RetryCount != 0 {
		t.Errorf("retry bookkeeping mismatch: count=%d max=%d", info.RetryCount, info.MaxRetries)
	}
	if info.Source != "webhook" || info.CorrelationID != "task-7" {
		t.Error("correlation fields not carried over")
	}
}

func TestStatusInfoDerivedTimings(t *testing.T) {
	created := time.Now()
	started := created.Add(250 * time.Millisecond)
	completed := started.Add(2 * time.Second)

	info := &job.StatusInfo{
		CreatedAt:   created,
		StartedAt:   &started,
		CompletedAt: &completed,
	}

	if got := info.QueueWait(); got != 250*time.Millisecond {
		t.Errorf("QueueWait = %v, want 250ms", got)
	}
	if got := info.ProcessingDuration(); got != 2*time.Second {
		t.Errorf("ProcessingDuration = %v, want 2s", got)
	}

	// Unstarted records report zero.
	empty := &job.StatusInfo{CreatedAt: created}
	if empty.QueueWait() != 0 || empty.ProcessingDuration() != 0 {
		t.Error("unstarted record should report zero timings")
	}
}

func TestDefinitionHandle(t *testing.T) {
	type payload struct {
		Issue int `json:"issue"`
	}

	var got payload
	def := job.NewDefinition("plan_generation", func(_ context.Context, p payload) error {
		got = p
		return nil
	})

	j, err := def.NewJob(payload{Issue: 42})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	res := def.Handle(context.Background(), j)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if got.Issue != 42 {
		t.Errorf("payload not decoded: %+v", got)
	}
}

func TestDefinitionErrorMapping(t *testing.T) {
	retryable := job.NewDefinition("a", func(context.Context, struct{}) error {
		return errors.New("transient")
	})
	res := retryable.Handle(context.Background(), job.New("a", nil))
	if res.Success || !res.ShouldRetry {
		t.Errorf("plain errors should be retryable, got %+v", res)
	}

	permanent := job.NewDefinition("b", func(context.Context, struct{}) error {
		return job.Permanent(errors.New("bad input"))
	})
	res = permanent.Handle(context.Background(), job.New("b", nil))
	if res.Success || res.ShouldRetry {
		t.Errorf("permanent errors must not retry, got %+v", res)
	}
}

func TestDefinitionBadPayload(t *testing.T) {
	def := job.NewDefinition("c", func(context.Context, struct{ N int }) error {
		t.Error("handler must not run on undecodable payload")
		return nil
	})

	res := def.Handle(context.Background(), job.New("c", []byte("{not json")))
	if res.Success || res.ShouldRetry {
		t.Errorf("undecodable payload should fail permanently, got %+v", res)
	}
}

func TestPermanentUnwrap(t *testing.T) {
	base := errors.New("root cause")
	wrapped := job.Permanent(base)

	if !job.IsPermanent(wrapped) {
		t.Error("IsPermanent(Permanent(err)) = false")
	}
	if !errors.Is(wrapped, base) {
		t.Error("Permanent must preserve the error chain")
	}
	if job.IsPermanent(base) {
		t.Error("plain error reported as permanent")
	}
	if job.Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestComputeMetrics(t *testing.T) {
	now := time.Now()
	started := now.Add(100 * time.Millisecond)
	done := started.Add(time.Second)

	infos := []*job.StatusInfo{
		{Type: "a", Status: job.StatusCompleted, CreatedAt: now, StartedAt: &started, CompletedAt: &done},
		{Type: "a", Status: job.StatusFailed, CreatedAt: now, StartedAt: &started, CompletedAt: &done},
		{Type: "b", Status: job.StatusDeadLetter, CreatedAt: now, StartedAt: &started, CompletedAt: &done},
		{Type: "b", Status: job.StatusQueued, CreatedAt: now},
	}

	m := job.ComputeMetrics(infos)

	if m.Total != 4 {
		t.Errorf("Total = %d, want 4", m.Total)
	}
	if m.ByStatus[job.StatusCompleted] != 1 || m.ByStatus[job.StatusFailed] != 1 {
		t.Errorf("ByStatus counts wrong: %v", m.ByStatus)
	}
	if m.FailureRate != 0.5 {
		t.Errorf("FailureRate = %v, want 0.5", m.FailureRate)
	}
	if m.AvgProcessing != time.Second {
		t.Errorf("AvgProcessing = %v, want 1s", m.AvgProcessing)
	}
	if m.AvgQueueWait != 100*time.Millisecond {
		t.Errorf("AvgQueueWait = %v, want 100ms", m.AvgQueueWait)
	}

	ta := m.ByType["a"]
	if ta == nil || ta.Total != 2 || ta.FailureRate != 0.5 {
		t.Errorf("type a metrics wrong: %+v", ta)
	}
	tb := m.ByType["b"]
	if tb == nil || tb.Total != 2 || tb.FailureRate != 0.5 {
		t.Errorf("type b metrics wrong: %+v", tb)
	}
}

func TestFilterMatches(t *testing.T) {
	s := &job.StatusInfo{Type: "a", Status: job.StatusQueued, Source: "webhook"}

	tests := []struct {
		name string
		f    job.Filter
		want bool
	}{
		{"empty matches all", job.Filter{}, true},
		{"status match", job.Filter{Status: job.StatusQueued}, true},
		{"status mismatch", job.Filter{Status: job.StatusFailed}, false},
		{"type match", job.Filter{Type: "a"}, true},
		{"type mismatch", job.Filter{Type: "b"}, false},
		{"source match", job.Filter{Source: "webhook"}, true},
		{"combined", job.Filter{Status: job.StatusQueued, Type: "a", Source: "webhook"}, true},
		{"combined mismatch", job.Filter{Status: job.StatusQueued, Type: "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Matches(s); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
