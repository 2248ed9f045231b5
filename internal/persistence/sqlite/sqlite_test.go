package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/club-scheduler/internal/occurrence"
	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/recurrence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := NewConnectionPool(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := Migrate(context.Background(), pool); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return pool
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("failed to parse time %q: %v", value, err)
	}
	return parsed
}

func testRule(id string) persistence.TrainingRule {
	return persistence.TrainingRule{
		ID:        id,
		Name:      "Monday swim",
		DayOfWeek: time.Monday,
		StartTime: occurrence.TimeOfDay{Hour: 18, Minute: 0},
		EndTime:   occurrence.TimeOfDay{Hour: 19, Minute: 30},
		Interval:  recurrence.IntervalWeekly,
		Active:    true,
		Groups: []persistence.RuleGroup{
			{ID: id + "-g1", Name: "Beginners", Position: 0, TrainerID: "trainer-1"},
			{ID: id + "-g2", Name: "Advanced", Position: 1, TrainerID: "trainer-2"},
		},
	}
}

func testSession(id, ruleID string, date time.Time) persistence.TrainingSession {
	return persistence.TrainingSession{
		ID:        id,
		RuleID:    ruleID,
		RuleName:  "Monday swim",
		Date:      date,
		DayOfWeek: date.Weekday(),
		StartTime: occurrence.TimeOfDay{Hour: 18, Minute: 0},
		EndTime:   occurrence.TimeOfDay{Hour: 19, Minute: 30},
	}
}

func TestRuleRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get round trip", func(t *testing.T) {
		repo := NewRuleRepository(newTestPool(t))

		created, err := repo.CreateRule(ctx, testRule("rule-1"))
		if err != nil {
			t.Fatalf("CreateRule failed: %v", err)
		}

		got, err := repo.GetRule(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if got.Name != "Monday swim" || got.DayOfWeek != time.Monday {
			t.Errorf("unexpected rule: %+v", got)
		}
		if got.Interval != recurrence.IntervalWeekly {
			t.Errorf("interval = %v, want weekly", got.Interval)
		}
		if len(got.Groups) != 2 || got.Groups[0].Name != "Beginners" || got.Groups[1].Name != "Advanced" {
			t.Errorf("unexpected groups: %+v", got.Groups)
		}
	})

	t.Run("get missing rule returns not found", func(t *testing.T) {
		repo := NewRuleRepository(newTestPool(t))

		_, err := repo.GetRule(ctx, "nope")
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list filters on validity overlap", func(t *testing.T) {
		repo := NewRuleRepository(newTestPool(t))

		until := mustTime(t, "2024-03-31T00:00:00Z")
		expired := testRule("rule-expired")
		expired.Name = "Expired"
		expired.ValidUntil = &until
		if _, err := repo.CreateRule(ctx, expired); err != nil {
			t.Fatalf("CreateRule failed: %v", err)
		}

		open := testRule("rule-open")
		open.Name = "Open"
		open.Groups = nil
		if _, err := repo.CreateRule(ctx, open); err != nil {
			t.Fatalf("CreateRule failed: %v", err)
		}

		rules, err := repo.ListRules(ctx, mustTime(t, "2024-06-01T00:00:00Z"), mustTime(t, "2024-06-30T00:00:00Z"), false)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(rules) != 1 || rules[0].ID != "rule-open" {
			t.Errorf("unexpected rules: %+v", rules)
		}
	})

	t.Run("list can exclude inactive rules", func(t *testing.T) {
		repo := NewRuleRepository(newTestPool(t))

		active := testRule("rule-active")
		active.Groups = nil
		inactive := testRule("rule-inactive")
		inactive.Groups = nil
		inactive.Active = false
		for _, rule := range []persistence.TrainingRule{active, inactive} {
			if _, err := repo.CreateRule(ctx, rule); err != nil {
				t.Fatalf("CreateRule failed: %v", err)
			}
		}

		from := mustTime(t, "2024-01-01T00:00:00Z")
		to := mustTime(t, "2024-12-31T00:00:00Z")

		rules, err := repo.ListRules(ctx, from, to, true)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(rules) != 1 || rules[0].ID != "rule-active" {
			t.Errorf("unexpected rules: %+v", rules)
		}

		rules, err = repo.ListRules(ctx, from, to, false)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(rules) != 2 {
			t.Errorf("expected 2 rules, got %d", len(rules))
		}
	})

	t.Run("set active on missing rule returns not found", func(t *testing.T) {
		repo := NewRuleRepository(newTestPool(t))

		if err := repo.SetRuleActive(ctx, "nope", false); !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	date := mustTime(t, "2024-06-03T00:00:00Z")

	t.Run("create and get round trip", func(t *testing.T) {
		repo := NewSessionRepository(newTestPool(t))

		groups := []persistence.SessionGroup{
			{ID: "sg-1", GroupID: "g-1", Name: "Beginners", Position: 0, TrainerID: "trainer-1"},
		}
		created, err := repo.CreateSession(ctx, testSession("sess-1", "rule-1", date), groups)
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		got, err := repo.GetSession(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if !got.Date.Equal(date) || got.StartTime.String() != "18:00" {
			t.Errorf("unexpected session: %+v", got)
		}
		if got.AttendanceCount != 0 {
			t.Errorf("attendance count = %d, want 0", got.AttendanceCount)
		}

		snaps, err := repo.ListSessionGroups(ctx, created.ID)
		if err != nil {
			t.Fatalf("ListSessionGroups failed: %v", err)
		}
		if len(snaps) != 1 || snaps[0].Name != "Beginners" {
			t.Errorf("unexpected group snapshots: %+v", snaps)
		}
	})

	t.Run("second session for same rule and date is a duplicate", func(t *testing.T) {
		repo := NewSessionRepository(newTestPool(t))

		if _, err := repo.CreateSession(ctx, testSession("sess-1", "rule-1", date), nil); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		_, err := repo.CreateSession(ctx, testSession("sess-2", "rule-1", date), nil)
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Errorf("error = %v, want ErrDuplicate", err)
		}

		got, err := repo.GetSessionByRuleAndDate(ctx, "rule-1", date)
		if err != nil {
			t.Fatalf("GetSessionByRuleAndDate failed: %v", err)
		}
		if got.ID != "sess-1" {
			t.Errorf("session ID = %q, want sess-1", got.ID)
		}
	})

	t.Run("same date under another rule is allowed", func(t *testing.T) {
		repo := NewSessionRepository(newTestPool(t))

		if _, err := repo.CreateSession(ctx, testSession("sess-1", "rule-1", date), nil); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if _, err := repo.CreateSession(ctx, testSession("sess-2", "rule-2", date), nil); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	})

	t.Run("list orders by date then start time", func(t *testing.T) {
		repo := NewSessionRepository(newTestPool(t))

		later := testSession("sess-late", "rule-1", mustTime(t, "2024-06-10T00:00:00Z"))
		earlier := testSession("sess-early", "rule-2", date)
		earlier.StartTime = occurrence.TimeOfDay{Hour: 7, Minute: 0}
		sameDay := testSession("sess-evening", "rule-3", date)

		for _, session := range []persistence.TrainingSession{later, sameDay, earlier} {
			if _, err := repo.CreateSession(ctx, session, nil); err != nil {
				t.Fatalf("CreateSession failed: %v", err)
			}
		}

		sessions, err := repo.ListSessions(ctx, date, mustTime(t, "2024-06-30T00:00:00Z"))
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(sessions) != 3 {
			t.Fatalf("expected 3 sessions, got %d", len(sessions))
		}
		if sessions[0].ID != "sess-early" || sessions[1].ID != "sess-evening" || sessions[2].ID != "sess-late" {
			t.Errorf("unexpected order: %s, %s, %s", sessions[0].ID, sessions[1].ID, sessions[2].ID)
		}
	})

	t.Run("update note", func(t *testing.T) {
		repo := NewSessionRepository(newTestPool(t))

		if _, err := repo.CreateSession(ctx, testSession("sess-1", "rule-1", date), nil); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if err := repo.UpdateSessionNote(ctx, "sess-1", "bring cones"); err != nil {
			t.Fatalf("UpdateSessionNote failed: %v", err)
		}

		got, err := repo.GetSession(ctx, "sess-1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.Note != "bring cones" {
			t.Errorf("note = %q, want %q", got.Note, "bring cones")
		}

		if err := repo.UpdateSessionNote(ctx, "nope", "x"); !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestCancellationRepository(t *testing.T) {
	ctx := context.Background()
	date := mustTime(t, "2024-06-03T00:00:00Z")

	setup := func(t *testing.T) (*CancellationRepository, *SessionRepository) {
		pool := newTestPool(t)
		sessions := NewSessionRepository(pool)
		if _, err := sessions.CreateSession(ctx, testSession("sess-1", "rule-1", date), nil); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		return NewCancellationRepository(pool), sessions
	}

	t.Run("create marks the session cancelled", func(t *testing.T) {
		repo, sessions := setup(t)

		record := persistence.CancellationRecord{
			ID: "cxl-1", SessionID: "sess-1", ActorID: "trainer-1", Reason: "pool closed",
		}
		if _, err := repo.CreateCancellation(ctx, record); err != nil {
			t.Fatalf("CreateCancellation failed: %v", err)
		}

		session, err := sessions.GetSession(ctx, "sess-1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if !session.Cancelled || session.CancelReason != "pool closed" || session.CancelledBy != "trainer-1" {
			t.Errorf("unexpected session state: %+v", session)
		}
		if session.CancelledAt == nil {
			t.Error("expected cancelled_at to be set")
		}
	})

	t.Run("second active record for same actor is a duplicate", func(t *testing.T) {
		repo, _ := setup(t)

		record := persistence.CancellationRecord{ID: "cxl-1", SessionID: "sess-1", ActorID: "trainer-1"}
		if _, err := repo.CreateCancellation(ctx, record); err != nil {
			t.Fatalf("CreateCancellation failed: %v", err)
		}

		record.ID = "cxl-2"
		if _, err := repo.CreateCancellation(ctx, record); !errors.Is(err, persistence.ErrDuplicate) {
			t.Errorf("error = %v, want ErrDuplicate", err)
		}
	})

	t.Run("undo clears the session state", func(t *testing.T) {
		repo, sessions := setup(t)

		record := persistence.CancellationRecord{ID: "cxl-1", SessionID: "sess-1", ActorID: "trainer-1", Reason: "storm"}
		created, err := repo.CreateCancellation(ctx, record)
		if err != nil {
			t.Fatalf("CreateCancellation failed: %v", err)
		}

		undoneAt := time.Now().UTC()
		created.Active = false
		created.UndoneAt = &undoneAt
		if _, err := repo.UpdateCancellation(ctx, created); err != nil {
			t.Fatalf("UpdateCancellation failed: %v", err)
		}

		session, err := sessions.GetSession(ctx, "sess-1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if session.Cancelled || session.CancelReason != "" || session.CancelledAt != nil {
			t.Errorf("session state not cleared: %+v", session)
		}

		// The audit record survives the undo.
		history, err := repo.ListCancellationsForSession(ctx, "sess-1")
		if err != nil {
			t.Fatalf("ListCancellationsForSession failed: %v", err)
		}
		if len(history) != 1 || history[0].Active || history[0].UndoneAt == nil {
			t.Errorf("unexpected history: %+v", history)
		}
	})

	t.Run("reactivation restores the session state", func(t *testing.T) {
		repo, sessions := setup(t)

		created, err := repo.CreateCancellation(ctx, persistence.CancellationRecord{
			ID: "cxl-1", SessionID: "sess-1", ActorID: "trainer-1", Reason: "storm",
		})
		if err != nil {
			t.Fatalf("CreateCancellation failed: %v", err)
		}

		undoneAt := time.Now().UTC()
		created.Active = false
		created.UndoneAt = &undoneAt
		updated, err := repo.UpdateCancellation(ctx, created)
		if err != nil {
			t.Fatalf("UpdateCancellation failed: %v", err)
		}

		updated.Active = true
		updated.UndoneAt = nil
		if _, err := repo.UpdateCancellation(ctx, updated); err != nil {
			t.Fatalf("UpdateCancellation failed: %v", err)
		}

		session, err := sessions.GetSession(ctx, "sess-1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if !session.Cancelled || session.CancelReason != "storm" {
			t.Errorf("session state not restored: %+v", session)
		}
	})

	t.Run("update missing record returns not found", func(t *testing.T) {
		repo, _ := setup(t)

		_, err := repo.UpdateCancellation(ctx, persistence.CancellationRecord{ID: "nope", SessionID: "sess-1"})
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	ctx := context.Background()
	date := mustTime(t, "2024-06-03T00:00:00Z")

	setup := func(t *testing.T) *AttendanceRepository {
		pool := newTestPool(t)
		sessions := NewSessionRepository(pool)
		if _, err := sessions.CreateSession(ctx, testSession("sess-1", "rule-1", date), nil); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		return NewAttendanceRepository(pool)
	}

	t.Run("upsert replaces the previous status", func(t *testing.T) {
		repo := setup(t)

		first := persistence.AttendanceRecord{
			ID: "att-1", SessionID: "sess-1", AthleteID: "athlete-1",
			Status: persistence.AttendancePresent, MarkedBy: "trainer-1",
		}
		if _, err := repo.UpsertAttendance(ctx, first); err != nil {
			t.Fatalf("UpsertAttendance failed: %v", err)
		}

		second := first
		second.ID = "att-2"
		second.Status = persistence.AttendanceAbsentUnexcused
		stored, err := repo.UpsertAttendance(ctx, second)
		if err != nil {
			t.Fatalf("UpsertAttendance failed: %v", err)
		}
		if stored.ID != "att-1" {
			t.Errorf("stored ID = %q, want att-1", stored.ID)
		}
		if stored.Status != persistence.AttendanceAbsentUnexcused {
			t.Errorf("status = %q, want absent_unexcused", stored.Status)
		}

		records, err := repo.ListAttendanceForSession(ctx, "sess-1")
		if err != nil {
			t.Fatalf("ListAttendanceForSession failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 record, got %d", len(records))
		}
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		repo := setup(t)

		_, err := repo.UpsertAttendance(ctx, persistence.AttendanceRecord{
			ID: "att-1", SessionID: "sess-1", AthleteID: "athlete-1", Status: "asleep",
		})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Errorf("error = %v, want ErrConstraintViolation", err)
		}
	})

	t.Run("count respects status and window", func(t *testing.T) {
		pool := newTestPool(t)
		sessions := NewSessionRepository(pool)
		repo := NewAttendanceRepository(pool)

		marks := []struct {
			session string
			date    string
			status  persistence.AttendanceStatus
			marked  string
		}{
			{"sess-1", "2024-06-03T00:00:00Z", persistence.AttendanceAbsentUnexcused, "2024-06-03T20:00:00Z"},
			{"sess-2", "2024-06-10T00:00:00Z", persistence.AttendanceAbsentUnexcused, "2024-06-10T20:00:00Z"},
			{"sess-3", "2024-06-17T00:00:00Z", persistence.AttendanceExcused, "2024-06-17T20:00:00Z"},
			{"sess-4", "2024-04-01T00:00:00Z", persistence.AttendanceAbsentUnexcused, "2024-04-01T20:00:00Z"},
		}
		for i, m := range marks {
			if _, err := sessions.CreateSession(ctx, testSession(m.session, m.session+"-rule", mustTime(t, m.date)), nil); err != nil {
				t.Fatalf("CreateSession failed: %v", err)
			}
			record := persistence.AttendanceRecord{
				ID: m.session + "-att", SessionID: m.session, AthleteID: "athlete-1",
				Status: m.status, MarkedAt: mustTime(t, m.marked),
			}
			if _, err := repo.UpsertAttendance(ctx, record); err != nil {
				t.Fatalf("UpsertAttendance %d failed: %v", i, err)
			}
		}

		count, err := repo.CountAttendance(ctx, "athlete-1", persistence.AttendanceAbsentUnexcused,
			mustTime(t, "2024-06-01T00:00:00Z"), mustTime(t, "2024-06-30T23:59:59Z"))
		if err != nil {
			t.Fatalf("CountAttendance failed: %v", err)
		}
		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
	})

	t.Run("sub-second marks inside the window are counted", func(t *testing.T) {
		repo := setup(t)

		record := persistence.AttendanceRecord{
			ID: "att-1", SessionID: "sess-1", AthleteID: "athlete-1",
			Status:   persistence.AttendanceAbsentUnexcused,
			MarkedAt: mustTime(t, "2024-06-03T10:00:00.52Z"),
		}
		if _, err := repo.UpsertAttendance(ctx, record); err != nil {
			t.Fatalf("UpsertAttendance failed: %v", err)
		}

		count, err := repo.CountAttendance(ctx, "athlete-1", persistence.AttendanceAbsentUnexcused,
			mustTime(t, "2024-06-03T10:00:00.5Z"), mustTime(t, "2024-06-03T11:00:00Z"))
		if err != nil {
			t.Fatalf("CountAttendance failed: %v", err)
		}
		if count != 1 {
			t.Errorf("count = %d, want 1", count)
		}
	})
}

func TestTimestampEncoding(t *testing.T) {
	t.Parallel()

	// The stored strings are compared by SQLite, so string order must match
	// time order across every fraction width.
	encoded := []string{
		"2024-06-03T10:00:00Z",
		"2024-06-03T10:00:00.5Z",
		"2024-06-03T10:00:00.52Z",
		"2024-06-03T10:00:01Z",
	}
	previous := ""
	for _, value := range encoded {
		ts := mustTime(t, value)
		stored := formatTimestamp(ts)

		if len(stored) != len("2024-06-03T10:00:00.000000000Z") {
			t.Errorf("formatTimestamp(%q) = %q, want fixed width", value, stored)
		}
		if previous != "" && stored <= previous {
			t.Errorf("%q should sort after %q", stored, previous)
		}
		previous = stored

		parsed, err := parseTimestamp(stored)
		if err != nil {
			t.Fatalf("parseTimestamp(%q) failed: %v", stored, err)
		}
		if !parsed.Equal(ts) {
			t.Errorf("round trip of %q = %v, want %v", value, parsed, ts)
		}
	}
}

func TestAlertRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("second alert in same cooldown window is a duplicate", func(t *testing.T) {
		repo := NewAlertRepository(newTestPool(t))

		alert := persistence.AbsenceAlert{
			ID: "alert-1", AthleteID: "athlete-1", AbsenceCount: 3, WindowDays: 30,
			CreatedAt: mustTime(t, "2024-06-03T10:00:00Z"),
		}
		if _, err := repo.CreateAlert(ctx, alert, 14); err != nil {
			t.Fatalf("CreateAlert failed: %v", err)
		}

		alert.ID = "alert-2"
		alert.CreatedAt = alert.CreatedAt.Add(time.Hour)
		if _, err := repo.CreateAlert(ctx, alert, 14); !errors.Is(err, persistence.ErrDuplicate) {
			t.Errorf("error = %v, want ErrDuplicate", err)
		}
	})

	t.Run("alerts in different windows coexist", func(t *testing.T) {
		repo := NewAlertRepository(newTestPool(t))

		first := persistence.AbsenceAlert{
			ID: "alert-1", AthleteID: "athlete-1", AbsenceCount: 3, WindowDays: 30,
			CreatedAt: mustTime(t, "2024-06-03T10:00:00Z"),
		}
		if _, err := repo.CreateAlert(ctx, first, 14); err != nil {
			t.Fatalf("CreateAlert failed: %v", err)
		}

		second := first
		second.ID = "alert-2"
		second.CreatedAt = first.CreatedAt.AddDate(0, 0, 28)
		if _, err := repo.CreateAlert(ctx, second, 14); err != nil {
			t.Fatalf("CreateAlert failed: %v", err)
		}

		latest, err := repo.LatestAlertForAthlete(ctx, "athlete-1")
		if err != nil {
			t.Fatalf("LatestAlertForAthlete failed: %v", err)
		}
		if latest.ID != "alert-2" {
			t.Errorf("latest alert = %q, want alert-2", latest.ID)
		}
	})

	t.Run("acknowledge is once only", func(t *testing.T) {
		repo := NewAlertRepository(newTestPool(t))

		alert := persistence.AbsenceAlert{
			ID: "alert-1", AthleteID: "athlete-1", AbsenceCount: 3, WindowDays: 30,
			CreatedAt: mustTime(t, "2024-06-03T10:00:00Z"),
		}
		if _, err := repo.CreateAlert(ctx, alert, 14); err != nil {
			t.Fatalf("CreateAlert failed: %v", err)
		}

		ackAt := mustTime(t, "2024-06-04T09:00:00Z")
		acked, err := repo.AcknowledgeAlert(ctx, "alert-1", "trainer-1", ackAt)
		if err != nil {
			t.Fatalf("AcknowledgeAlert failed: %v", err)
		}
		if !acked.Acknowledged || acked.AcknowledgedBy != "trainer-1" {
			t.Errorf("unexpected alert: %+v", acked)
		}

		if _, err := repo.AcknowledgeAlert(ctx, "alert-1", "trainer-2", ackAt); !errors.Is(err, persistence.ErrDuplicate) {
			t.Errorf("error = %v, want ErrDuplicate", err)
		}

		open, err := repo.ListOpenAlerts(ctx)
		if err != nil {
			t.Fatalf("ListOpenAlerts failed: %v", err)
		}
		if len(open) != 0 {
			t.Errorf("expected no open alerts, got %d", len(open))
		}
	})

	t.Run("latest for unknown athlete returns not found", func(t *testing.T) {
		repo := NewAlertRepository(newTestPool(t))

		if _, err := repo.LatestAlertForAthlete(ctx, "nope"); !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestMemberRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create and list", func(t *testing.T) {
		repo := NewMemberRepository(newTestPool(t))

		members := []persistence.Member{
			{ID: "m-1", DisplayName: "Zoe", Role: persistence.RoleAthlete},
			{ID: "m-2", DisplayName: "Alex", Email: "alex@example.com", Role: persistence.RoleTrainer},
		}
		for _, member := range members {
			if _, err := repo.CreateMember(ctx, member); err != nil {
				t.Fatalf("CreateMember failed: %v", err)
			}
		}

		listed, err := repo.ListMembers(ctx)
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		if len(listed) != 2 || listed[0].DisplayName != "Alex" || listed[1].DisplayName != "Zoe" {
			t.Errorf("unexpected members: %+v", listed)
		}
	})

	t.Run("duplicate ID is rejected", func(t *testing.T) {
		repo := NewMemberRepository(newTestPool(t))

		member := persistence.Member{ID: "m-1", DisplayName: "Zoe", Role: persistence.RoleAthlete}
		if _, err := repo.CreateMember(ctx, member); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
		if _, err := repo.CreateMember(ctx, member); !errors.Is(err, persistence.ErrDuplicate) {
			t.Errorf("error = %v, want ErrDuplicate", err)
		}
	})

	t.Run("invalid role violates a constraint", func(t *testing.T) {
		repo := NewMemberRepository(newTestPool(t))

		_, err := repo.CreateMember(ctx, persistence.Member{ID: "m-1", DisplayName: "Zoe", Role: "mascot"})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Errorf("error = %v, want ErrConstraintViolation", err)
		}
	})
}
