package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/dlq"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/store/memory"
)

func newStatus(jobType string, status job.Status) *job.StatusInfo {
	j := job.New(jobType, nil)
	info := job.NewStatusInfo(j)
	info.Status = status

	return info
}

func TestSetGetStatus(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	info := newStatus("plan_generation", job.StatusQueued)
	if err := s.SetStatus(ctx, info); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, err := s.GetStatus(ctx, info.JobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if got.Status != job.StatusQueued || got.Type != "plan_generation" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestGetStatus_NotFound(t *testing.T) {
	s := memory.New()

	_, err := s.GetStatus(context.Background(), id.NewJobID())
	if !errors.Is(err, copilot.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestGetStatus_ReturnsCopy(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	info := newStatus("a", job.StatusQueued)
	if err := s.SetStatus(ctx, info); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, _ := s.GetStatus(ctx, info.JobID)
	got.Status = job.StatusProcessing

	again, _ := s.GetStatus(ctx, info.JobID)
	if again.Status != job.StatusQueued {
		t.Error("mutating a returned record must not affect the store")
	}
}

func TestSetStatus_TerminalIsWriteProtected(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	terminals := []job.Status{
		job.StatusCompleted,
		job.StatusFailed,
		job.StatusCancelled,
		job.StatusDeadLetter,
	}

	for _, terminal := range terminals {
		t.Run(string(terminal), func(t *testing.T) {
			info := newStatus("a", terminal)
			if err := s.SetStatus(ctx, info); err != nil {
				t.Fatalf("SetStatus: %v", err)
			}

			// An attempt to move the record out of a terminal state is
			// silently ignored.
			late := *info
			late.Status = job.StatusProcessing
			if err := s.SetStatus(ctx, &late); err != nil {
				t.Fatalf("SetStatus (late write): %v", err)
			}

			got, err := s.GetStatus(ctx, info.JobID)
			if err != nil {
				t.Fatalf("GetStatus: %v", err)
			}
			if got.Status != terminal {
				t.Errorf("terminal record overwritten: %s → %s", terminal, got.Status)
			}
		})
	}
}

func TestSetStatus_NonTerminalIsLastWriteWins(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	info := newStatus("a", job.StatusQueued)
	if err := s.SetStatus(ctx, info); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	info.Status = job.StatusProcessing
	if err := s.SetStatus(ctx, info); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, _ := s.GetStatus(ctx, info.JobID)
	if got.Status != job.StatusProcessing {
		t.Errorf("expected processing, got %s", got.Status)
	}
}

func TestDeleteStatus(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	info := newStatus("a", job.StatusQueued)
	if err := s.SetStatus(ctx, info); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := s.AppendAttempt(ctx, &job.Attempt{ID: id.NewAttemptID(), JobID: info.JobID, Number: 1}); err != nil {
		t.Fatalf("AppendAttempt: %v", err)
	}

	if err := s.DeleteStatus(ctx, info.JobID); err != nil {
		t.Fatalf("DeleteStatus: %v", err)
	}

	if _, err := s.GetStatus(ctx, info.JobID); !errors.Is(err, copilot.ErrJobNotFound) {
		t.Error("record should be gone after delete")
	}
	atts, err := s.ListAttempts(ctx, info.JobID)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(atts) != 0 {
		t.Error("attempts should be deleted with the record")
	}

	if err := s.DeleteStatus(ctx, info.JobID); !errors.Is(err, copilot.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound on double delete, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	s := memory.New()
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

	byStatus, err := s.ListByStatus(ctx, job.StatusQueued, job.ListOpts{})
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(byStatus) != 2 {
		t.Errorf("ListByStatus(queued) = %d records, want 2", len(byStatus))
	}

	byType, err := s.ListByType(ctx, "plan_execution", job.ListOpts{})
	if err != nil {
		t.Fatalf("ListByType: %v", err)
	}
	if len(byType) != 1 || byType[0].JobID != c.JobID {
		t.Errorf("ListByType(plan_execution) wrong: %v", byType)
	}

	bySource, err := s.ListBySource(ctx, "webhook", job.ListOpts{})
	if err != nil {
		t.Fatalf("ListBySource: %v", err)
	}
	if len(bySource) != 1 || bySource[0].JobID != a.JobID {
		t.Errorf("ListBySource(webhook) wrong: %v", bySource)
	}

	combined, err := s.List(ctx, job.Filter{Status: job.StatusQueued, Type: "plan_generation"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(combined) != 1 || combined[0].JobID != a.JobID {
		t.Errorf("combined filter wrong: %v", combined)
	}
}

func TestListPagination(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		info := newStatus("a", job.StatusQueued)
		info.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if err := s.SetStatus(ctx, info); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}

	page, err := s.List(ctx, job.Filter{ListOpts: job.ListOpts{Limit: 2, Offset: 1}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page))
	}
	// Newest first: offset 1 skips the newest.
	if !page[0].CreatedAt.After(page[1].CreatedAt) {
		t.Error("expected newest-first ordering")
	}

	empty, err := s.List(ctx, job.Filter{ListOpts: job.ListOpts{Offset: 10}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("offset past end should return nothing, got %d", len(empty))
	}
}

func TestAttempts(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	jobID := id.NewJobID()

	// Append out of order; ListAttempts sorts by number.
	for _, n := range []int{2, 1, 3} {
		att := &job.Attempt{
			ID:     id.NewAttemptID(),
			JobID:  jobID,
			Number: n,
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
}

func TestMetrics(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	completed := newStatus("a", job.StatusCompleted)
	failed := newStatus("a", job.StatusFailed)
	queued := newStatus("b", job.StatusQueued)

	for _, info := range []*job.StatusInfo{completed, failed, queued} {
		if err := s.SetStatus(ctx, info); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}

	m, err := s.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.Total != 3 {
		t.Errorf("Total = %d, want 3", m.Total)
	}
	if m.ByStatus[job.StatusFailed] != 1 {
		t.Errorf("failed count = %d, want 1", m.ByStatus[job.StatusFailed])
	}
	if len(m.ByType) != 2 {
		t.Errorf("expected 2 types, got %d", len(m.ByType))
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
		Error:      "boom",
		RetryCount: 3,
		MaxRetries: 3,
		FailedAt:   failedAt,
		CreatedAt:  failedAt,
	}
}

func TestDLQPushListGet(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	old := newEntry("a", time.Now().Add(-time.Hour))
	recent := newEntry("b", time.Now())
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

	got, err := s.GetDLQ(ctx, old.ID)
	if err != nil {
		t.Fatalf("GetDLQ: %v", err)
	}
	if got.JobID != old.JobID {
		t.Error("GetDLQ returned wrong entry")
	}

	if _, err := s.GetDLQ(ctx, id.NewDLQID()); !errors.Is(err, copilot.ErrDLQNotFound) {
		t.Errorf("expected ErrDLQNotFound, got %v", err)
	}
}

func TestDLQReplayMark(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	e := newEntry("a", time.Now())
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
}

func TestDLQPurgeAndCount(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	cutoff := time.Now()
	for i := 0; i < 3; i++ {
		if err := s.PushDLQ(ctx, newEntry("a", cutoff.Add(-time.Hour))); err != nil {
			t.Fatalf("PushDLQ: %v", err)
		}
	}
	keep := newEntry("a", cutoff.Add(time.Hour))
	if err := s.PushDLQ(ctx, keep); err != nil {
		t.Fatalf("PushDLQ: %v", err)
	}

	purged, err := s.PurgeDLQ(ctx, cutoff)
	if err != nil {
		t.Fatalf("PurgeDLQ: %v", err)
	}
	if purged != 3 {
		t.Errorf("purged = %d, want 3", purged)
	}

	count, err := s.CountDLQ(ctx)
	if err != nil {
		t.Fatalf("CountDLQ: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
