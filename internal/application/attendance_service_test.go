package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/club-scheduler/internal/notify"
	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/testfixtures"
)

type captureNotifier struct {
	alerts []notify.Alert
	err    error
}

func (n *captureNotifier) NotifyAbsenceAlert(_ context.Context, alert notify.Alert) error {
	n.alerts = append(n.alerts, alert)
	return n.err
}

type attendanceHarness struct {
	store    *testfixtures.MemoryStore
	clock    *testfixtures.Clock
	notifier *captureNotifier
	service  *AttendanceService
}

func newAttendanceHarness(t *testing.T, settingsChange func(*AttendanceService)) *attendanceHarness {
	t.Helper()

	store := testfixtures.NewMemoryStore()
	clock := testfixtures.NewClock(time.Date(2024, time.June, 3, 20, 0, 0, 0, time.UTC))
	notifier := &captureNotifier{}

	service := NewAttendanceService(store, store, store, store, notifier, testSettings().Absence, nil,
		testfixtures.NewIDGenerator("gen").NextFunc(), clock.NowFunc())
	if settingsChange != nil {
		settingsChange(service)
	}

	for i, date := range []time.Time{
		day(2024, time.June, 3), day(2024, time.June, 10), day(2024, time.June, 17), day(2024, time.June, 24),
	} {
		store.SeedSession(testfixtures.NewSession(
			testfixtures.WithSessionID([]string{"sess-1", "sess-2", "sess-3", "sess-4"}[i]),
			testfixtures.WithSessionDate(date),
		))
	}

	return &attendanceHarness{store: store, clock: clock, notifier: notifier, service: service}
}

func (h *attendanceHarness) markAbsent(t *testing.T, sessionID string) AttendanceResult {
	t.Helper()
	result, err := h.service.RecordAttendance(context.Background(), AttendanceParams{
		SessionID: sessionID,
		AthleteID: "athlete-1",
		Status:    persistence.AttendanceAbsentUnexcused,
		MarkedBy:  "trainer-1",
	})
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	return result
}

func TestRecordAttendance(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the record without alerting on present", func(t *testing.T) {
		h := newAttendanceHarness(t, nil)

		result, err := h.service.RecordAttendance(ctx, AttendanceParams{
			SessionID: "sess-1", AthleteID: "athlete-1", Status: persistence.AttendancePresent, MarkedBy: "trainer-1",
		})
		if err != nil {
			t.Fatalf("RecordAttendance failed: %v", err)
		}
		if result.Alert != nil {
			t.Error("presence must not trigger an alert")
		}
		if len(h.notifier.alerts) != 0 {
			t.Errorf("unexpected notifications: %+v", h.notifier.alerts)
		}
	})

	t.Run("third unexcused absence in the window raises one alert", func(t *testing.T) {
		h := newAttendanceHarness(t, nil)

		if result := h.markAbsent(t, "sess-1"); result.Alert != nil {
			t.Error("first absence must not alert")
		}
		h.clock.Advance(7 * 24 * time.Hour)
		if result := h.markAbsent(t, "sess-2"); result.Alert != nil {
			t.Error("second absence must not alert")
		}
		h.clock.Advance(7 * 24 * time.Hour)

		result := h.markAbsent(t, "sess-3")
		if result.Alert == nil {
			t.Fatal("third absence must alert")
		}
		if result.Alert.AbsenceCount != 3 || result.Alert.WindowDays != 30 {
			t.Errorf("unexpected alert: %+v", result.Alert)
		}
		if len(h.notifier.alerts) != 1 || h.notifier.alerts[0].AthleteID != "athlete-1" {
			t.Errorf("unexpected notifications: %+v", h.notifier.alerts)
		}
	})

	t.Run("cooldown suppresses a repeat alert", func(t *testing.T) {
		h := newAttendanceHarness(t, nil)

		h.markAbsent(t, "sess-1")
		h.markAbsent(t, "sess-2")
		if result := h.markAbsent(t, "sess-3"); result.Alert == nil {
			t.Fatal("third absence must alert")
		}

		// One week later: count is above threshold but the cooldown holds.
		h.clock.Advance(7 * 24 * time.Hour)
		if result := h.markAbsent(t, "sess-4"); result.Alert != nil {
			t.Error("alert inside the cooldown must be suppressed")
		}
		if len(h.notifier.alerts) != 1 {
			t.Errorf("expected 1 notification, got %d", len(h.notifier.alerts))
		}
	})

	t.Run("disabled alerting records attendance silently", func(t *testing.T) {
		h := newAttendanceHarness(t, func(s *AttendanceService) { s.settings.Enabled = false })

		h.markAbsent(t, "sess-1")
		h.markAbsent(t, "sess-2")
		if result := h.markAbsent(t, "sess-3"); result.Alert != nil {
			t.Error("disabled policy must not alert")
		}
	})

	t.Run("notifier failure does not fail the booking", func(t *testing.T) {
		h := newAttendanceHarness(t, nil)
		h.notifier.err = errors.New("smtp down")

		h.markAbsent(t, "sess-1")
		h.markAbsent(t, "sess-2")
		result := h.markAbsent(t, "sess-3")
		if result.Alert == nil {
			t.Fatal("alert must still be stored")
		}
	})

	t.Run("unknown session reports not found", func(t *testing.T) {
		h := newAttendanceHarness(t, nil)

		_, err := h.service.RecordAttendance(ctx, AttendanceParams{
			SessionID: "missing", AthleteID: "athlete-1", Status: persistence.AttendancePresent,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("rejects unknown statuses", func(t *testing.T) {
		h := newAttendanceHarness(t, nil)

		_, err := h.service.RecordAttendance(ctx, AttendanceParams{
			SessionID: "sess-1", AthleteID: "athlete-1", Status: "asleep",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})
}

func TestAcknowledgeAlert(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the alert handled exactly once", func(t *testing.T) {
		h := newAttendanceHarness(t, nil)

		h.markAbsent(t, "sess-1")
		h.markAbsent(t, "sess-2")
		result := h.markAbsent(t, "sess-3")
		if result.Alert == nil {
			t.Fatal("setup: expected an alert")
		}

		acked, err := h.service.AcknowledgeAlert(ctx, result.Alert.ID, "trainer-1")
		if err != nil {
			t.Fatalf("AcknowledgeAlert failed: %v", err)
		}
		if !acked.Acknowledged || acked.AcknowledgedBy != "trainer-1" {
			t.Errorf("unexpected alert: %+v", acked)
		}

		if _, err := h.service.AcknowledgeAlert(ctx, result.Alert.ID, "trainer-2"); !errors.Is(err, ErrAlreadyAcknowledged) {
			t.Errorf("error = %v, want ErrAlreadyAcknowledged", err)
		}

		open, err := h.service.ListOpenAlerts(ctx)
		if err != nil {
			t.Fatalf("ListOpenAlerts failed: %v", err)
		}
		if len(open) != 0 {
			t.Errorf("expected no open alerts, got %d", len(open))
		}
	})

	t.Run("unknown alert reports not found", func(t *testing.T) {
		h := newAttendanceHarness(t, nil)

		if _, err := h.service.AcknowledgeAlert(ctx, "missing", "trainer-1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}
