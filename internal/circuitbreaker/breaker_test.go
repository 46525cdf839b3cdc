package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

func newTestBreaker(max int, reset time.Duration) (*CircuitBreaker, *time.Time) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New(Settings{Name: "test", MaxFailures: max, ResetTimeout: reset})
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Call(ctx, fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want errBoom", i, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	called := false
	err := cb.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn must not run while circuit is open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	_ = cb.Call(ctx, fail)
	_ = cb.Call(ctx, succeed)
	_ = cb.Call(ctx, fail)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
	if cb.Failures() != 1 {
		t.Errorf("failures = %d, want 1", cb.Failures())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	var transitions []State
	cb.onStateChange = func(_ string, _, to State) { transitions = append(transitions, to) }

	_ = cb.Call(ctx, fail)
	*clock = clock.Add(2 * time.Minute)

	if err := cb.Call(ctx, succeed); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	_ = cb.Call(ctx, fail)
	*clock = clock.Add(2 * time.Minute)
	_ = cb.Call(ctx, fail)

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_CallerCancellationNotCounted(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("cancellation counted as failure: state=%v failures=%d", cb.State(), cb.Failures())
	}
}

func TestCircuitBreaker_Name(t *testing.T) {
	cb := New(Settings{Name: "weather"})
	if cb.Name() != "weather" {
		t.Errorf("name = %q", cb.Name())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateHalfOpen: "half-open",
		StateOpen:     "open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
