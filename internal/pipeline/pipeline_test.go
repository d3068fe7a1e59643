package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/urlsentry/urlsentry/internal/model"
)

// recordingStep is a test double that records when it runs and can be
// configured to fail or to mutate the result.
type recordingStep struct {
	name string
	err  error
	fn   func(result *model.ScanResult)

	mu    sync.Mutex
	calls int
	order *[]string
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Do(_ context.Context, result *model.ScanResult) error {
	s.mu.Lock()
	s.calls++
	if s.order != nil {
		*s.order = append(*s.order, s.name)
	}
	s.mu.Unlock()

	if s.fn != nil {
		s.fn(result)
	}
	return s.err
}

func (s *recordingStep) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order and records them", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New(WithLogger(slog.New(slog.DiscardHandler)))
		p.AddSteps(
			&recordingStep{name: "first", order: &order},
			&recordingStep{name: "second", order: &order},
			&recordingStep{name: "third", order: &order},
		)

		result := model.NewScanResult("https://example.com/", "example.com")
		if err := p.Execute(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"first", "second", "third"}
		if len(order) != len(want) {
			t.Fatalf("expected %d steps executed, got %d", len(want), len(order))
		}
		for i, name := range want {
			if order[i] != name {
				t.Errorf("step %d: expected %q, got %q", i, name, order[i])
			}
		}

		if len(result.PerformedChecks) != 3 {
			t.Errorf("expected 3 performed checks, got %v", result.PerformedChecks)
		}
	})

	t.Run("step mutations accumulate on the result", func(t *testing.T) {
		t.Parallel()

		p := New(WithLogger(slog.New(slog.DiscardHandler)))
		p.AddStep(&recordingStep{name: "whois", fn: func(r *model.ScanResult) {
			r.Checks.Whois = &model.WhoisResult{AgeInDays: 12}
		}})
		p.AddStep(&recordingStep{name: "tls", fn: func(r *model.ScanResult) {
			r.Checks.TLS = &model.TLSResult{Present: true, Valid: true}
		}})

		result := model.NewScanResult("https://example.com/", "example.com")
		if err := p.Execute(context.Background(), result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Checks.Whois == nil || result.Checks.Whois.AgeInDays != 12 {
			t.Errorf("whois check not accumulated: %+v", result.Checks.Whois)
		}
		if result.Checks.TLS == nil || !result.Checks.TLS.Valid {
			t.Errorf("tls check not accumulated: %+v", result.Checks.TLS)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		stepErr := errors.New("target unusable")
		later := &recordingStep{name: "later"}

		p := New(WithLogger(slog.New(slog.DiscardHandler)))
		p.AddSteps(
			&recordingStep{name: "failing", err: stepErr},
			later,
		)

		result := model.NewScanResult("https://example.com/", "example.com")
		err := p.Execute(context.Background(), result)
		if !errors.Is(err, stepErr) {
			t.Fatalf("expected step error, got %v", err)
		}

		if later.callCount() != 0 {
			t.Error("expected later step to be skipped after failure")
		}
		if result.ErrorMessage != stepErr.Error() {
			t.Errorf("expected error recorded on result, got %q", result.ErrorMessage)
		}
	})

	t.Run("continues past errors when configured", func(t *testing.T) {
		t.Parallel()

		later := &recordingStep{name: "later"}

		p := New(
			WithLogger(slog.New(slog.DiscardHandler)),
			WithContinueOnError(true),
		)
		p.AddSteps(
			&recordingStep{name: "failing", err: errors.New("boom")},
			later,
		)

		result := model.NewScanResult("https://example.com/", "example.com")
		if err := p.Execute(context.Background(), result); err != nil {
			t.Fatalf("expected nil error with continueOnError, got %v", err)
		}

		if later.callCount() != 1 {
			t.Error("expected later step to run despite earlier failure")
		}
		if len(result.PerformedChecks) != 2 {
			t.Errorf("expected both steps recorded, got %v", result.PerformedChecks)
		}
	})

	t.Run("cancelled context marks the scan timed out", func(t *testing.T) {
		t.Parallel()

		step := &recordingStep{name: "never"}
		p := New(WithLogger(slog.New(slog.DiscardHandler)))
		p.AddStep(step)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := model.NewScanResult("https://example.com/", "example.com")
		err := p.Execute(ctx, result)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}

		if !result.TimedOut {
			t.Error("expected result to be marked timed out")
		}
		if step.callCount() != 0 {
			t.Error("expected no steps to run after cancellation")
		}
	})
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New(WithLogger(slog.New(slog.DiscardHandler)))
	if p.StepCount() != 0 {
		t.Errorf("expected empty pipeline, got %d steps", p.StepCount())
	}

	p.AddSteps(
		&recordingStep{name: "a"},
		&recordingStep{name: "b"},
	)

	if p.StepCount() != 2 {
		t.Errorf("expected 2 steps, got %d", p.StepCount())
	}

	names := p.StepNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected step names: %v", names)
	}
}
