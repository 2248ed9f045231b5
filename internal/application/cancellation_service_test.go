package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/policy"
	"github.com/example/club-scheduler/internal/testfixtures"
)

func testSettings() policy.Settings {
	return policy.Settings{
		CancelDeadlineHours: 2,
		Absence: policy.AbsenceSettings{
			Threshold:    3,
			WindowDays:   30,
			CooldownDays: 14,
			Enabled:      true,
		},
	}
}

type cancellationHarness struct {
	store   *testfixtures.MemoryStore
	clock   *testfixtures.Clock
	service *CancellationService
}

// newCancellationHarness wires the full service graph around one in-memory
// store. The rule runs Mondays 18:00; the clock starts Monday 2024-01-08 at
// 10:00 UTC, well before the 16:00 deadline.
func newCancellationHarness(t *testing.T) *cancellationHarness {
	t.Helper()

	store := testfixtures.NewMemoryStore()
	clock := testfixtures.NewClock(time.Date(2024, time.January, 8, 10, 0, 0, 0, time.UTC))
	ids := testfixtures.NewIDGenerator("gen")
	settings := testSettings()

	store.SeedRule(testfixtures.NewRule(
		testfixtures.WithRuleID("rule-swim"),
		testfixtures.WithRuleValidity(day(2024, time.January, 1), time.Time{}),
	))

	sessions := NewSessionService(store, store, nil, ids.NextFunc(), clock.NowFunc())
	attendance := NewAttendanceService(store, store, store, store, nil, settings.Absence, nil, ids.NextFunc(), clock.NowFunc())
	service := NewCancellationService(sessions, store, store, attendance, settings, nil, ids.NextFunc(), clock.NowFunc())

	return &cancellationHarness{store: store, clock: clock, service: service}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("materializes the occurrence and cancels it", func(t *testing.T) {
		h := newCancellationHarness(t)

		result, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1", Reason: "sick"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		if result.Record.Late {
			t.Error("cancellation before the deadline must not be late")
		}
		if !result.Session.Cancelled || result.Session.CancelReason != "sick" {
			t.Errorf("unexpected session state: %+v", result.Session)
		}
	})

	t.Run("flags late cancellations and books the absence", func(t *testing.T) {
		h := newCancellationHarness(t)
		// 17:00, one hour before start, inside the two hour deadline.
		h.clock.Set(time.Date(2024, time.January, 8, 17, 0, 0, 0, time.UTC))

		result, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1", Reason: "overslept"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		if !result.Record.Late {
			t.Error("expected a late cancellation")
		}

		records, err := h.store.ListAttendanceForSession(ctx, result.Session.ID)
		if err != nil {
			t.Fatalf("ListAttendanceForSession failed: %v", err)
		}
		if len(records) != 1 || records[0].Status != persistence.AttendanceAbsentUnexcused {
			t.Errorf("expected an unexcused absence, got %+v", records)
		}
	})

	t.Run("exactly at the deadline is on time", func(t *testing.T) {
		h := newCancellationHarness(t)
		h.clock.Set(time.Date(2024, time.January, 8, 16, 0, 0, 0, time.UTC))

		result, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		if result.Record.Late {
			t.Error("cancellation exactly at the deadline must not be late")
		}
	})

	t.Run("rejects cancellations after the session started", func(t *testing.T) {
		h := newCancellationHarness(t)
		h.clock.Set(time.Date(2024, time.January, 8, 18, 0, 0, 0, time.UTC))

		_, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1"})
		if !errors.Is(err, ErrSessionStarted) {
			t.Errorf("error = %v, want ErrSessionStarted", err)
		}
	})

	t.Run("rejects a second active cancellation by the same actor", func(t *testing.T) {
		h := newCancellationHarness(t)

		if _, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1"}); err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		_, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1"})
		if !errors.Is(err, ErrAlreadyCancelled) {
			t.Errorf("error = %v, want ErrAlreadyCancelled", err)
		}
	})

	t.Run("requires an actor", func(t *testing.T) {
		h := newCancellationHarness(t)

		_, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})
}

func TestUndoCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivates the record and clears the session", func(t *testing.T) {
		h := newCancellationHarness(t)

		result, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1", Reason: "sick"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}

		undone, err := h.service.UndoCancel(ctx, UndoCancelParams{CancellationID: result.Record.ID, ActorID: "athlete-1"})
		if err != nil {
			t.Fatalf("UndoCancel failed: %v", err)
		}
		if undone.Active || undone.UndoneAt == nil {
			t.Errorf("unexpected record: %+v", undone)
		}

		session, err := h.store.GetSession(ctx, result.Session.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if session.Cancelled {
			t.Error("session should no longer be cancelled")
		}
	})

	t.Run("rejects undo after the session started", func(t *testing.T) {
		h := newCancellationHarness(t)

		result, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}

		h.clock.Set(time.Date(2024, time.January, 8, 18, 30, 0, 0, time.UTC))
		_, err = h.service.UndoCancel(ctx, UndoCancelParams{CancellationID: result.Record.ID, ActorID: "athlete-1"})
		if !errors.Is(err, ErrSessionStarted) {
			t.Errorf("error = %v, want ErrSessionStarted", err)
		}
	})
}

func TestReactivateCancellation(t *testing.T) {
	ctx := context.Background()

	t.Run("re-evaluates lateness at reactivation time", func(t *testing.T) {
		h := newCancellationHarness(t)

		result, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		if result.Record.Late {
			t.Fatal("setup: cancellation should be on time")
		}

		if _, err := h.service.UndoCancel(ctx, UndoCancelParams{CancellationID: result.Record.ID, ActorID: "athlete-1"}); err != nil {
			t.Fatalf("UndoCancel failed: %v", err)
		}

		// Past the 16:00 deadline but before the 18:00 start.
		h.clock.Set(time.Date(2024, time.January, 8, 17, 15, 0, 0, time.UTC))

		reactivated, err := h.service.ReactivateCancellation(ctx, result.Record.ID, "athlete-1")
		if err != nil {
			t.Fatalf("ReactivateCancellation failed: %v", err)
		}
		if !reactivated.Late {
			t.Error("reactivation after the deadline must be late")
		}
		if !reactivated.Active || reactivated.UndoneAt != nil {
			t.Errorf("unexpected record: %+v", reactivated)
		}
	})

	t.Run("rejects reactivating an active record", func(t *testing.T) {
		h := newCancellationHarness(t)

		result, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		_, err = h.service.ReactivateCancellation(ctx, result.Record.ID, "athlete-1")
		if !errors.Is(err, ErrAlreadyCancelled) {
			t.Errorf("error = %v, want ErrAlreadyCancelled", err)
		}
	})
}

func TestEditReason(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the reason before the deadline", func(t *testing.T) {
		h := newCancellationHarness(t)

		result, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1", Reason: "sick"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}

		updated, err := h.service.EditReason(ctx, EditReasonParams{CancellationID: result.Record.ID, ActorID: "athlete-1", Reason: "family visit"})
		if err != nil {
			t.Fatalf("EditReason failed: %v", err)
		}
		if updated.Reason != "family visit" {
			t.Errorf("reason = %q", updated.Reason)
		}
	})

	t.Run("rejects edits after the deadline", func(t *testing.T) {
		h := newCancellationHarness(t)

		result, err := h.service.Cancel(ctx, CancelParams{Ref: "rule-swim:2024-01-08", ActorID: "athlete-1", Reason: "sick"})
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}

		h.clock.Set(time.Date(2024, time.January, 8, 17, 0, 0, 0, time.UTC))
		_, err = h.service.EditReason(ctx, EditReasonParams{CancellationID: result.Record.ID, ActorID: "athlete-1", Reason: "other"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})

	t.Run("unknown record reports not found", func(t *testing.T) {
		h := newCancellationHarness(t)

		_, err := h.service.EditReason(ctx, EditReasonParams{CancellationID: "missing", ActorID: "athlete-1"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}
