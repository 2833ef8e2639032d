package job_test

import (
	"context"
	"errors"
	"testing"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

func handlerFor(jobType string) job.Handler {
	return job.HandlerFunc{
		Type: jobType,
		Fn:   func(context.Context, *job.Job) job.Result { return job.Result{Success: true} },
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := job.NewRegistry()

	if err := r.Register(handlerFor("plan_generation")); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	h, ok := r.Get("plan_generation")
	if !ok {
		t.Fatal("expected handler for plan_generation")
	}
	if h.JobType() != "plan_generation" {
		t.Errorf("expected type plan_generation, got %q", h.JobType())
	}

	if _, ok := r.Get("unknown"); ok {
		t.Error("expected no handler for unknown type")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := job.NewRegistry()

	if err := r.Register(handlerFor("plan_execution")); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	err := r.Register(handlerFor("plan_execution"))
	if !errors.Is(err, copilot.ErrDuplicateHandler) {
		t.Errorf("expected ErrDuplicateHandler, got %v", err)
	}
}

func TestRegistryFrozen(t *testing.T) {
	r := job.NewRegistry()
	r.Freeze()

	err := r.Register(handlerFor("plan_generation"))
	if !errors.Is(err, copilot.ErrRegistryFrozen) {
		t.Errorf("expected ErrRegistryFrozen, got %v", err)
	}
}

func TestRegistryTypes(t *testing.T) {
	r := job.NewRegistry()

	for _, jobType := range []string{"a", "b", "c"} {
		if err := r.Register(handlerFor(jobType)); err != nil {
			t.Fatalf("register %q failed: %v", jobType, err)
		}
	}

	types := r.Types()
	if len(types) != 3 {
		t.Errorf("expected 3 types, got %d: %v", len(types), types)
	}
}
