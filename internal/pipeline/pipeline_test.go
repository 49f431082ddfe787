package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/knowater521/doctor/internal/model"
)

// recordingStep appends its name to a shared trace when executed.
type recordingStep struct {
	name  string
	trace *[]string
	err   error
}

func (s *recordingStep) Do(_ context.Context, _ *model.CheckRun) error {
	*s.trace = append(*s.trace, s.name)
	return s.err
}

func (s *recordingStep) Name() string { return s.name }

// TestPipelineExecutesInOrder verifies sequential execution and the step
// introspection helpers.
func TestPipelineExecutesInOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	p := New()
	p.AddSteps(
		&recordingStep{name: "first", trace: &trace},
		&recordingStep{name: "second", trace: &trace},
		&recordingStep{name: "third", trace: &trace},
	)

	if p.StepCount() != 3 {
		t.Errorf("StepCount = %d, want 3", p.StepCount())
	}
	if names := p.StepNames(); len(names) != 3 || names[0] != "first" || names[2] != "third" {
		t.Errorf("StepNames = %v", names)
	}

	run := &model.CheckRun{}
	if err := p.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(trace) != 3 || trace[0] != "first" || trace[1] != "second" || trace[2] != "third" {
		t.Errorf("execution order = %v", trace)
	}
}

// TestPipelineErrorHandling covers both stop-on-error and continue-on-error.
func TestPipelineErrorHandling(t *testing.T) {
	t.Parallel()

	stepErr := errors.New("step broke")

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()
		var trace []string
		p := New()
		p.AddSteps(
			&recordingStep{name: "boom", trace: &trace, err: stepErr},
			&recordingStep{name: "after", trace: &trace},
		)

		run := &model.CheckRun{}
		if err := p.Execute(context.Background(), run); !errors.Is(err, stepErr) {
			t.Fatalf("Execute error = %v, want %v", err, stepErr)
		}
		if len(trace) != 1 {
			t.Errorf("steps executed = %v, want only the failing one", trace)
		}
	})

	t.Run("continues when configured", func(t *testing.T) {
		t.Parallel()
		var trace []string
		p := New(WithContinueOnError(true))
		p.AddSteps(
			&recordingStep{name: "boom", trace: &trace, err: stepErr},
			&recordingStep{name: "after", trace: &trace},
		)

		run := &model.CheckRun{}
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("Execute returned error: %v", err)
		}
		if len(trace) != 2 {
			t.Errorf("steps executed = %v, want both", trace)
		}
		if len(run.Errors) != 1 {
			t.Errorf("run.Errors = %v, want the recorded failure", run.Errors)
		}
	})
}

// TestPipelineCancellation verifies that a cancelled context stops the run
// between steps.
func TestPipelineCancellation(t *testing.T) {
	t.Parallel()

	var trace []string
	p := New()
	p.AddStep(&recordingStep{name: "never", trace: &trace})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := &model.CheckRun{}
	if err := p.Execute(ctx, run); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute error = %v, want context.Canceled", err)
	}
	if len(trace) != 0 {
		t.Errorf("no step should run after cancellation, got %v", trace)
	}
}
