package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/reserve-relayer/internal/apperror"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour

	var transitions []gobreaker.State
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}

	cb := New[int](cfg)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	called := false
	_, err := cb.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	if called {
		t.Error("fn must not run while open")
	}
	if !apperror.IsCode(err, apperror.CodeCircuitOpen) {
		t.Errorf("err = %v, want CodeCircuitOpen", err)
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("transitions = %v", transitions)
	}
}

func TestCircuitBreaker_IsSuccessfulIgnoresClientErrors(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 1
	notFound := errors.New("not found")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, notFound)
	}

	cb := New[string](cfg)
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (string, error) { return "", notFound })
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
	if cb.Name() != "test" {
		t.Errorf("name = %q", cb.Name())
	}
}
