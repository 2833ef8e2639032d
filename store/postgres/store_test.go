//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dlq"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/store/postgres"
)

// setupTestStore creates a Postgres container and returns a connected,
// migrated Store.
func setupTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("copilot_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	store, err := postgres.New(ctx, connStr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if migErr := store.Migrate(ctx); migErr != nil {
		t.Fatalf("migrate: %v", migErr)
	}

	return store
}

func newStatus(jobType string, status job.Status) *job.StatusInfo {
	j := job.New(jobType, []byte(`{"issue":1}`))
	info := job.NewStatusInfo(j)
	info.Status = status
	return info
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestStore_Ping(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestStore_MigrateIdempotent(t *testing.T) {
	s := setupTestStore(t)
	// Second migrate should be a no-op.
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

// ──────────────────────────────────────────────────
// Status records
// ──────────────────────────────────────────────────

func TestStore_SetGetStatus(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	info := newStatus("plan_generation", job.StatusQueued)
	info.Metadata = map[string]string{"repo": "octo/hello"}
	if err := s.SetStatus(ctx, info); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, err := s.GetStatus(ctx, info.JobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if got.Type != "plan_generation" || got.Status != job.StatusQueued {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Metadata["repo"] != "octo/hello" {
		t.Errorf("metadata not persisted: %v", got.Metadata)
	}
}

func TestStore_GetStatus_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetStatus(context.Background(), id.NewJobID())
	if !errors.Is(err, copilot.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestStore_SetStatus_TerminalIsWriteProtected(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	info := newStatus("a", job.StatusCompleted)
	if err := s.SetStatus(ctx, info); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	late := *info
	late.Status = job.StatusProcessing
	if err := s.SetStatus(ctx, &late); err != nil {
		t.Fatalf("SetStatus (late write): %v", err)
	}

	got, err := s.GetStatus(ctx, info.JobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if got.Status != job.StatusCompleted {
		t.Errorf("terminal record overwritten: got %s", got.Status)
	}
}

func TestStore_DeleteStatus(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	info := newStatus("a", job.StatusQueued)
	if err := s.SetStatus(ctx, info); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := s.DeleteStatus(ctx, info.JobID); err != nil {
		t.Fatalf("DeleteStatus: %v", err)
	}
	if _, err := s.GetStatus(ctx, info.JobID); !errors.Is(err, copilot.ErrJobNotFound) {
		t.Error("record should be gone after delete")
	}
	if err := s.DeleteStatus(ctx, info.JobID); !errors.Is(err, copilot.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound on double delete, got %v", err)
	}
}

func TestStore_ListFilters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := newStatus("plan_generation", job.StatusQueued)
	a.Source = "webhook"
	b := newStatus("plan_generation", job.StatusCompleted)
	c := newStatus("plan_execution", job.StatusQueued)
	for _, info := range []*job.StatusInfo{a, b, c} {
		if err := s.SetStatus(ctx, info); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}

	queued, err := s.ListByStatus(ctx, job.StatusQueued, job.ListOpts{})
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(queued) != 2 {
		t.Errorf("ListByStatus(queued) = %d records, want 2", len(queued))
	}

	bySource, err := s.ListBySource(ctx, "webhook", job.ListOpts{})
	if err != nil {
		t.Fatalf("ListBySource: %v", err)
	}
	if len(bySource) != 1 || bySource[0].JobID != a.JobID {
		t.Errorf("ListBySource wrong: %v", bySource)
	}

	limited, err := s.List(ctx, job.Filter{ListOpts: job.ListOpts{Limit: 2}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Limit not applied, got %d records", len(limited))
	}
}

func TestStore_Attempts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	jobID := id.NewJobID()

	now := time.Now().UTC()
	for n := 1; n <= 3; n++ {
		att := &job.Attempt{
			ID:         id.NewAttemptID(),
			JobID:      jobID,
			Number:     n,
			StartedAt:  now,
			FinishedAt: now.Add(time.Second),
			Success:    n == 3,
			Error:      "transient",
			Delay:      5 * time.Second,
			Strategy:   "exponential",
		}
		if err := s.AppendAttempt(ctx, att); err != nil {
			t.Fatalf("AppendAttempt: %v", err)
		}
	}

	atts, err := s.ListAttempts(ctx, jobID)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(atts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(atts))
	}
	for i, att := range atts {
		if att.Number != i+1 {
			t.Errorf("attempt %d has number %d", i, att.Number)
		}
	}
	if !atts[2].Success || atts[2].Delay != 5*time.Second {
		t.Errorf("attempt fields not persisted: %+v", atts[2])
	}
}

func TestStore_Metrics(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, st := range []job.Status{job.StatusCompleted, job.StatusFailed} {
		if err := s.SetStatus(ctx, newStatus("a", st)); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}

	m, err := s.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.Total != 2 {
		t.Errorf("Total = %d, want 2", m.Total)
	}
	if m.FailureRate != 0.5 {
		t.Errorf("FailureRate = %f, want 0.5", m.FailureRate)
	}
	if m.ByType["a"] == nil || m.ByType["a"].Total != 2 {
		t.Errorf("per-type metrics wrong: %+v", m.ByType)
	}
}

// ──────────────────────────────────────────────────
// DLQ
// ──────────────────────────────────────────────────

func newEntry(jobType string, failedAt time.Time) *dlq.Entry {
	return &dlq.Entry{
		ID:         id.NewDLQID(),
		JobID:      id.NewJobID(),
		JobType:    jobType,
		Payload:    []byte(`{"issue":1}`),
		Error:      "boom",
		RetryCount: 3,
		MaxRetries: 3,
		FailedAt:   failedAt,
		CreatedAt:  failedAt,
	}
}

func TestStore_DLQRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	e := newEntry("plan_generation", time.Now().UTC())
	if err := s.PushDLQ(ctx, e); err != nil {
		t.Fatalf("PushDLQ: %v", err)
	}

	got, err := s.GetDLQ(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetDLQ: %v", err)
	}
	if got.JobID != e.JobID || got.Error != "boom" || got.RetryCount != 3 {
		t.Errorf("unexpected entry: %+v", got)
	}

	if _, err := s.GetDLQ(ctx, id.NewDLQID()); !errors.Is(err, copilot.ErrDLQNotFound) {
		t.Errorf("expected ErrDLQNotFound, got %v", err)
	}
}

func TestStore_DLQListOrderAndFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	old := newEntry("a", time.Now().UTC().Add(-time.Hour))
	recent := newEntry("b", time.Now().UTC())
	for _, e := range []*dlq.Entry{recent, old} {
		if err := s.PushDLQ(ctx, e); err != nil {
			t.Fatalf("PushDLQ: %v", err)
		}
	}

	entries, err := s.ListDLQ(ctx, dlq.ListOpts{})
	if err != nil {
		t.Fatalf("ListDLQ: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != old.ID {
		t.Errorf("expected oldest-first listing, got %v", entries)
	}

	filtered, err := s.ListDLQ(ctx, dlq.ListOpts{JobType: "b"})
	if err != nil {
		t.Fatalf("ListDLQ: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != recent.ID {
		t.Errorf("type filter wrong: %v", filtered)
	}
}

func TestStore_DLQReplayPurgeCount(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	e := newEntry("a", time.Now().UTC().Add(-time.Hour))
	if err := s.PushDLQ(ctx, e); err != nil {
		t.Fatalf("PushDLQ: %v", err)
	}

	if err := s.ReplayDLQ(ctx, e.ID); err != nil {
		t.Fatalf("ReplayDLQ: %v", err)
	}
	got, _ := s.GetDLQ(ctx, e.ID)
	if got.ReplayedAt == nil {
		t.Error("expected ReplayedAt to be set")
	}
	if err := s.ReplayDLQ(ctx, id.NewDLQID()); !errors.Is(err, copilot.ErrDLQNotFound) {
		t.Errorf("expected ErrDLQNotFound, got %v", err)
	}

	purged, err := s.PurgeDLQ(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("PurgeDLQ: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	count, err := s.CountDLQ(ctx)
	if err != nil {
		t.Fatalf("CountDLQ: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
