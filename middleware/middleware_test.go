package middleware_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/middleware"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/scope"
)

func ok() job.Result {
	return job.Result{Success: true}
}

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string

	mw1 := func(ctx context.Context, _ *job.Job, next middleware.Handler) job.Result {
		order = append(order, "mw1-before")
		res := next(ctx)
		order = append(order, "mw1-after")
		return res
	}

	mw2 := func(ctx context.Context, _ *job.Job, next middleware.Handler) job.Result {
		order = append(order, "mw2-before")
		res := next(ctx)
		order = append(order, "mw2-after")
		return res
	}

	chain := middleware.Chain(mw1, mw2)
	j := &job.Job{Type: "test", ID: id.NewJobID()}
	handler := func(_ context.Context) job.Result {
		order = append(order, "handler")
		return ok()
	}

	res := chain(context.Background(), j, handler)
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.ErrorMessage)
	}

	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, want := range expected {
		if order[i] != want {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := middleware.Chain()
	called := false
	handler := func(_ context.Context) job.Result {
		called = true
		return ok()
	}

	res := chain(context.Background(), &job.Job{ID: id.NewJobID()}, handler)
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.ErrorMessage)
	}
	if !called {
		t.Fatal("handler not called with empty chain")
	}
}

func TestChain_PropagatesFailure(t *testing.T) {
	mw := func(ctx context.Context, _ *job.Job, next middleware.Handler) job.Result {
		return next(ctx)
	}
	chain := middleware.Chain(mw)

	res := chain(context.Background(), &job.Job{ID: id.NewJobID()}, func(_ context.Context) job.Result {
		return job.Result{ErrorMessage: "handler error", ShouldRetry: true}
	})
	if res.Success || res.ErrorMessage != "handler error" || !res.ShouldRetry {
		t.Fatalf("failure result not propagated: %+v", res)
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	logger := slog.Default()
	mw := middleware.Recover(logger)
	j := &job.Job{Type: "panicky", ID: id.NewJobID()}

	res := mw(context.Background(), j, func(_ context.Context) job.Result {
		panic("test panic")
	})
	if res.Success {
		t.Fatal("expected failure from panic recovery")
	}
	if got := res.ErrorMessage; got != "panic in job panicky: test panic" {
		t.Errorf("unexpected error message: %q", got)
	}
	if !res.ShouldRetry {
		t.Error("panics should be retryable")
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	logger := slog.Default()
	mw := middleware.Recover(logger)
	j := &job.Job{Type: "normal", ID: id.NewJobID()}

	called := false
	res := mw(context.Background(), j, func(_ context.Context) job.Result {
		called = true
		return ok()
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.ErrorMessage)
	}
	if !called {
		t.Fatal("handler not called")
	}
}

func TestLogging_Success(t *testing.T) {
	logger := slog.Default()
	mw := middleware.Logging(logger)
	j := &job.Job{Type: "log-test", ID: id.NewJobID()}

	called := false
	res := mw(context.Background(), j, func(_ context.Context) job.Result {
		called = true
		return ok()
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.ErrorMessage)
	}
	if !called {
		t.Fatal("handler not called")
	}
}

func TestLogging_Failure(t *testing.T) {
	logger := slog.Default()
	mw := middleware.Logging(logger)
	j := &job.Job{Type: "log-test", ID: id.NewJobID()}

	res := mw(context.Background(), j, func(_ context.Context) job.Result {
		return job.Result{ErrorMessage: "fail"}
	})
	if res.Success || res.ErrorMessage != "fail" {
		t.Fatalf("failure result not propagated: %+v", res)
	}
}

func TestTimeout_CancelsContext(t *testing.T) {
	logger := slog.Default()
	mw := middleware.Timeout(logger)
	j := &job.Job{Type: "slow", ID: id.NewJobID(), Timeout: 20 * time.Millisecond}

	res := mw(context.Background(), j, func(ctx context.Context) job.Result {
		select {
		case <-ctx.Done():
			return job.Result{ErrorMessage: ctx.Err().Error(), ShouldRetry: true}
		case <-time.After(2 * time.Second):
			return ok()
		}
	})
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.ErrorMessage != context.DeadlineExceeded.Error() {
		t.Errorf("unexpected error message: %q", res.ErrorMessage)
	}
}

func TestTimeout_NoDeadlineWhenZero(t *testing.T) {
	logger := slog.Default()
	mw := middleware.Timeout(logger)
	j := &job.Job{Type: "fast", ID: id.NewJobID()}

	res := mw(context.Background(), j, func(ctx context.Context) job.Result {
		if _, has := ctx.Deadline(); has {
			t.Error("expected no deadline for zero Timeout")
		}
		return ok()
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.ErrorMessage)
	}
}

func TestScope_RestoresFromJob(t *testing.T) {
	mw := middleware.Scope()
	j := &job.Job{
		Type:          "scoped",
		ID:            id.NewJobID(),
		Source:        "webhook",
		CorrelationID: "corr-1",
	}

	res := mw(context.Background(), j, func(ctx context.Context) job.Result {
		p := scope.Capture(ctx)
		if p.Source != "webhook" {
			t.Errorf("Source = %q, want %q", p.Source, "webhook")
		}
		if p.CorrelationID != "corr-1" {
			t.Errorf("CorrelationID = %q, want %q", p.CorrelationID, "corr-1")
		}
		if p.ParentID != j.ID {
			t.Errorf("ParentID = %s, want %s", p.ParentID, j.ID)
		}
		return ok()
	})
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.ErrorMessage)
	}
}
