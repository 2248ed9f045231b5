package policy

import (
	"errors"
	"testing"
	"time"
)

func TestClassifyCancellation(t *testing.T) {
	t.Parallel()

	sessionStart := time.Date(2024, time.March, 4, 18, 0, 0, 0, time.UTC)

	t.Run("before the deadline is on time", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, time.March, 4, 15, 59, 0, 0, time.UTC)
		late, err := ClassifyCancellation(sessionStart, 2, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if late {
			t.Fatal("expected cancellation at 15:59 to be on time")
		}
	})

	t.Run("after the deadline is late but accepted", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, time.March, 4, 16, 1, 0, 0, time.UTC)
		late, err := ClassifyCancellation(sessionStart, 2, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !late {
			t.Fatal("expected cancellation at 16:01 to be late")
		}
	})

	t.Run("exactly at the deadline is on time", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, time.March, 4, 16, 0, 0, 0, time.UTC)
		late, err := ClassifyCancellation(sessionStart, 2, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if late {
			t.Fatal("expected cancellation exactly at the deadline to be on time")
		}
	})

	t.Run("after the session started is rejected", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, time.March, 4, 18, 30, 0, 0, time.UTC)
		if _, err := ClassifyCancellation(sessionStart, 2, now); !errors.Is(err, ErrSessionStarted) {
			t.Fatalf("expected ErrSessionStarted, got %v", err)
		}
	})

	t.Run("non-positive deadline is rejected", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
		if _, err := ClassifyCancellation(sessionStart, 0, now); !errors.Is(err, ErrInvalidSettings) {
			t.Fatalf("expected ErrInvalidSettings, got %v", err)
		}
	})
}

func TestEvaluateAbsenceAlert(t *testing.T) {
	t.Parallel()

	settings := AbsenceSettings{Threshold: 3, WindowDays: 30, CooldownDays: 14, Enabled: true}
	now := time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)

	t.Run("triggers when the threshold is crossed", func(t *testing.T) {
		t.Parallel()

		decision, err := EvaluateAbsenceAlert(settings, AbsenceInput{UnexcusedCount: 3}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !decision.Triggered {
			t.Fatalf("expected alert to trigger, got %+v", decision)
		}
		if decision.Count != 3 || decision.WindowDays != 30 {
			t.Fatalf("unexpected payload data: %+v", decision)
		}
	})

	t.Run("suppresses below the threshold", func(t *testing.T) {
		t.Parallel()

		decision, err := EvaluateAbsenceAlert(settings, AbsenceInput{UnexcusedCount: 2}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Triggered || decision.Suppressed != SuppressBelowThreshold {
			t.Fatalf("expected below-threshold suppression, got %+v", decision)
		}
	})

	t.Run("suppresses inside the cooldown window", func(t *testing.T) {
		t.Parallel()

		lastAlert := now.AddDate(0, 0, -2)
		decision, err := EvaluateAbsenceAlert(settings, AbsenceInput{UnexcusedCount: 4, LastAlertAt: &lastAlert}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Triggered || decision.Suppressed != SuppressCooldown {
			t.Fatalf("expected cooldown suppression, got %+v", decision)
		}
	})

	t.Run("triggers again once the cooldown elapsed", func(t *testing.T) {
		t.Parallel()

		lastAlert := now.AddDate(0, 0, -20)
		decision, err := EvaluateAbsenceAlert(settings, AbsenceInput{UnexcusedCount: 4, LastAlertAt: &lastAlert}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !decision.Triggered {
			t.Fatalf("expected a new alert after the cooldown, got %+v", decision)
		}
	})

	t.Run("suppresses when alerting is disabled", func(t *testing.T) {
		t.Parallel()

		disabled := settings
		disabled.Enabled = false
		decision, err := EvaluateAbsenceAlert(disabled, AbsenceInput{UnexcusedCount: 10}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Triggered || decision.Suppressed != SuppressDisabled {
			t.Fatalf("expected disabled suppression, got %+v", decision)
		}
	})

	t.Run("rejects non-positive settings", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []AbsenceSettings{
			{Threshold: 0, WindowDays: 30, CooldownDays: 14, Enabled: true},
			{Threshold: 3, WindowDays: 0, CooldownDays: 14, Enabled: true},
			{Threshold: 3, WindowDays: 30, CooldownDays: -1, Enabled: true},
		} {
			if _, err := EvaluateAbsenceAlert(bad, AbsenceInput{}, now); !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("expected ErrInvalidSettings for %+v, got %v", bad, err)
			}
		}
	})
}
