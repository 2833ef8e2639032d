package scope_test

import (
	"context"
	"testing"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/scope"
)

func TestCaptureEmpty(t *testing.T) {
	p := scope.Capture(context.Background())
	if p.Source != "" || p.CorrelationID != "" || !p.ParentID.IsNil() {
		t.Errorf("expected zero provenance, got %+v", p)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	want := scope.Provenance{
		Source:        "webhook",
		CorrelationID: "corr-1",
		ParentID:      id.NewJobID(),
	}
	ctx := scope.Restore(context.Background(), want)

	if got := scope.Capture(ctx); got != want {
		t.Errorf("Capture = %+v, want %+v", got, want)
	}
}

func TestRestoreEmptyIsNoOp(t *testing.T) {
	ctx := context.Background()
	if got := scope.Restore(ctx, scope.Provenance{}); got != ctx {
		t.Error("empty provenance must not allocate a new context")
	}
}
