package testfixtures

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/recurrence"
)

// MemoryStore is an in-memory implementation of the persistence repository
// interfaces with the same constraint semantics as the SQLite storage:
// unique (rule, date) sessions, one active cancellation per (session, actor)
// and one alert per athlete per cooldown bucket.
type MemoryStore struct {
	mu            sync.Mutex
	rules         map[string]persistence.TrainingRule
	sessions      map[string]persistence.TrainingSession
	sessionGroups map[string][]persistence.SessionGroup
	cancellations map[string]persistence.CancellationRecord
	attendance    map[string]persistence.AttendanceRecord
	alerts        map[string]persistence.AbsenceAlert
	alertBuckets  map[string]bool
	members       map[string]persistence.Member
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:         make(map[string]persistence.TrainingRule),
		sessions:      make(map[string]persistence.TrainingSession),
		sessionGroups: make(map[string][]persistence.SessionGroup),
		cancellations: make(map[string]persistence.CancellationRecord),
		attendance:    make(map[string]persistence.AttendanceRecord),
		alerts:        make(map[string]persistence.AbsenceAlert),
		alertBuckets:  make(map[string]bool),
		members:       make(map[string]persistence.Member),
	}
}

// SeedRule inserts a rule without going through CreateRule validation.
func (m *MemoryStore) SeedRule(rule persistence.TrainingRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
}

// SeedSession inserts a session row directly.
func (m *MemoryStore) SeedSession(session persistence.TrainingSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
}

// ------------------------------ RuleRepository ----------------------------

func (m *MemoryStore) CreateRule(_ context.Context, rule persistence.TrainingRule) (persistence.TrainingRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; ok {
		return persistence.TrainingRule{}, persistence.ErrDuplicate
	}
	m.rules[rule.ID] = rule
	return rule, nil
}

func (m *MemoryStore) GetRule(_ context.Context, id string) (persistence.TrainingRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return persistence.TrainingRule{}, persistence.ErrNotFound
	}
	return rule, nil
}

func (m *MemoryStore) ListRules(_ context.Context, from, to time.Time, activeOnly bool) ([]persistence.TrainingRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from = recurrence.Date(from)
	to = recurrence.Date(to)

	rules := make([]persistence.TrainingRule, 0, len(m.rules))
	for _, rule := range m.rules {
		if activeOnly && !rule.Active {
			continue
		}
		if rule.ValidFrom != nil && recurrence.Date(*rule.ValidFrom).After(to) {
			continue
		}
		if rule.ValidUntil != nil && recurrence.Date(*rule.ValidUntil).Before(from) {
			continue
		}
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Name != rules[j].Name {
			return rules[i].Name < rules[j].Name
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

func (m *MemoryStore) SetRuleActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return persistence.ErrNotFound
	}
	rule.Active = active
	m.rules[id] = rule
	return nil
}

// ---------------------------- SessionRepository ---------------------------

func (m *MemoryStore) CreateSession(_ context.Context, session persistence.TrainingSession, groups []persistence.SessionGroup) (persistence.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session.Date = recurrence.Date(session.Date)
	for _, existing := range m.sessions {
		if existing.RuleID == session.RuleID && existing.Date.Equal(session.Date) {
			return persistence.TrainingSession{}, persistence.ErrDuplicate
		}
	}
	if _, ok := m.sessions[session.ID]; ok {
		return persistence.TrainingSession{}, persistence.ErrDuplicate
	}

	m.sessions[session.ID] = session
	m.sessionGroups[session.ID] = append([]persistence.SessionGroup(nil), groups...)
	return session, nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (persistence.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return persistence.TrainingSession{}, persistence.ErrNotFound
	}
	return session, nil
}

func (m *MemoryStore) GetSessionByRuleAndDate(_ context.Context, ruleID string, date time.Time) (persistence.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	date = recurrence.Date(date)
	for _, session := range m.sessions {
		if session.RuleID == ruleID && session.Date.Equal(date) {
			return session, nil
		}
	}
	return persistence.TrainingSession{}, persistence.ErrNotFound
}

func (m *MemoryStore) ListSessions(_ context.Context, from, to time.Time) ([]persistence.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from = recurrence.Date(from)
	to = recurrence.Date(to)

	sessions := make([]persistence.TrainingSession, 0)
	for _, session := range m.sessions {
		if session.Date.Before(from) || session.Date.After(to) {
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Date.Equal(sessions[j].Date) {
			return sessions[i].Date.Before(sessions[j].Date)
		}
		if sessions[i].StartTime != sessions[j].StartTime {
			return sessions[i].StartTime.Before(sessions[j].StartTime)
		}
		return sessions[i].RuleName < sessions[j].RuleName
	})
	return sessions, nil
}

func (m *MemoryStore) ListSessionGroups(_ context.Context, sessionID string) ([]persistence.SessionGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]persistence.SessionGroup(nil), m.sessionGroups[sessionID]...), nil
}

func (m *MemoryStore) UpdateSessionNote(_ context.Context, id, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return persistence.ErrNotFound
	}
	session.Note = note
	m.sessions[id] = session
	return nil
}

// ------------------------- CancellationRepository -------------------------

func (m *MemoryStore) CreateCancellation(_ context.Context, record persistence.CancellationRecord) (persistence.CancellationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.cancellations {
		if existing.SessionID == record.SessionID && existing.ActorID == record.ActorID && existing.Active {
			return persistence.CancellationRecord{}, persistence.ErrDuplicate
		}
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.UpdatedAt = record.CreatedAt
	record.Active = true
	record.UndoneAt = nil

	m.cancellations[record.ID] = record
	m.refreshSessionStateLocked(record.SessionID)
	return record, nil
}

func (m *MemoryStore) GetCancellation(_ context.Context, id string) (persistence.CancellationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.cancellations[id]
	if !ok {
		return persistence.CancellationRecord{}, persistence.ErrNotFound
	}
	return record, nil
}

func (m *MemoryStore) UpdateCancellation(_ context.Context, record persistence.CancellationRecord) (persistence.CancellationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.cancellations[record.ID]
	if !ok {
		return persistence.CancellationRecord{}, persistence.ErrNotFound
	}
	if record.Active && !existing.Active {
		for _, other := range m.cancellations {
			if other.ID != record.ID && other.SessionID == record.SessionID && other.ActorID == record.ActorID && other.Active {
				return persistence.CancellationRecord{}, persistence.ErrDuplicate
			}
		}
	}

	record.UpdatedAt = time.Now().UTC()
	m.cancellations[record.ID] = record
	m.refreshSessionStateLocked(record.SessionID)
	return record, nil
}

func (m *MemoryStore) ListCancellationsForSession(_ context.Context, sessionID string) ([]persistence.CancellationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]persistence.CancellationRecord, 0)
	for _, record := range m.cancellations {
		if record.SessionID == sessionID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

func (m *MemoryStore) refreshSessionStateLocked(sessionID string) {
	session, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	var earliest *persistence.CancellationRecord
	for id := range m.cancellations {
		record := m.cancellations[id]
		if record.SessionID != sessionID || !record.Active {
			continue
		}
		if earliest == nil || record.CreatedAt.Before(earliest.CreatedAt) {
			earliest = &record
		}
	}

	if earliest == nil {
		session.Cancelled = false
		session.CancelReason = ""
		session.CancelledBy = ""
		session.CancelledAt = nil
	} else {
		session.Cancelled = true
		session.CancelReason = earliest.Reason
		session.CancelledBy = earliest.ActorID
		at := earliest.CreatedAt
		session.CancelledAt = &at
	}
	m.sessions[sessionID] = session
}

// -------------------------- AttendanceRepository --------------------------

func (m *MemoryStore) UpsertAttendance(_ context.Context, record persistence.AttendanceRecord) (persistence.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !persistence.ValidAttendanceStatus(record.Status) {
		return persistence.AttendanceRecord{}, persistence.ErrConstraintViolation
	}
	if record.MarkedAt.IsZero() {
		record.MarkedAt = time.Now().UTC()
	}

	for id, existing := range m.attendance {
		if existing.SessionID == record.SessionID && existing.AthleteID == record.AthleteID {
			existing.Status = record.Status
			existing.MarkedAt = record.MarkedAt
			existing.MarkedBy = record.MarkedBy
			m.attendance[id] = existing
			return existing, nil
		}
	}

	m.attendance[record.ID] = record
	return record, nil
}

func (m *MemoryStore) CountAttendance(_ context.Context, athleteID string, status persistence.AttendanceStatus, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, record := range m.attendance {
		if record.AthleteID != athleteID || record.Status != status {
			continue
		}
		if record.MarkedAt.Before(from) || record.MarkedAt.After(to) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *MemoryStore) ListAttendanceForSession(_ context.Context, sessionID string) ([]persistence.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]persistence.AttendanceRecord, 0)
	for _, record := range m.attendance {
		if record.SessionID == sessionID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].AthleteID < records[j].AthleteID })
	return records, nil
}

// ----------------------------- AlertRepository ----------------------------

func alertBucketKey(athleteID string, at time.Time, cooldownDays int) string {
	if cooldownDays < 1 {
		cooldownDays = 1
	}
	bucket := at.UTC().Unix() / (int64(cooldownDays) * 86400)
	return athleteID + "/" + time.Unix(bucket, 0).UTC().Format(time.RFC3339)
}

func (m *MemoryStore) CreateAlert(_ context.Context, alert persistence.AbsenceAlert, cooldownDays int) (persistence.AbsenceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	key := alertBucketKey(alert.AthleteID, alert.CreatedAt, cooldownDays)
	if m.alertBuckets[key] {
		return persistence.AbsenceAlert{}, persistence.ErrDuplicate
	}

	alert.Acknowledged = false
	alert.AcknowledgedBy = ""
	alert.AcknowledgedAt = nil
	m.alertBuckets[key] = true
	m.alerts[alert.ID] = alert
	return alert, nil
}

func (m *MemoryStore) GetAlert(_ context.Context, id string) (persistence.AbsenceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[id]
	if !ok {
		return persistence.AbsenceAlert{}, persistence.ErrNotFound
	}
	return alert, nil
}

func (m *MemoryStore) LatestAlertForAthlete(_ context.Context, athleteID string) (persistence.AbsenceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *persistence.AbsenceAlert
	for id := range m.alerts {
		alert := m.alerts[id]
		if alert.AthleteID != athleteID {
			continue
		}
		if latest == nil || alert.CreatedAt.After(latest.CreatedAt) {
			latest = &alert
		}
	}
	if latest == nil {
		return persistence.AbsenceAlert{}, persistence.ErrNotFound
	}
	return *latest, nil
}

func (m *MemoryStore) AcknowledgeAlert(_ context.Context, id, actorID string, at time.Time) (persistence.AbsenceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[id]
	if !ok {
		return persistence.AbsenceAlert{}, persistence.ErrNotFound
	}
	if alert.Acknowledged {
		return persistence.AbsenceAlert{}, persistence.ErrDuplicate
	}

	alert.Acknowledged = true
	alert.AcknowledgedBy = actorID
	t := at
	alert.AcknowledgedAt = &t
	m.alerts[id] = alert
	return alert, nil
}

func (m *MemoryStore) ListOpenAlerts(_ context.Context) ([]persistence.AbsenceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts := make([]persistence.AbsenceAlert, 0)
	for _, alert := range m.alerts {
		if !alert.Acknowledged {
			alerts = append(alerts, alert)
		}
	}
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts, nil
}

// ---------------------------- MemberRepository ----------------------------

func (m *MemoryStore) CreateMember(_ context.Context, member persistence.Member) (persistence.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[member.ID]; ok {
		return persistence.Member{}, persistence.ErrDuplicate
	}
	m.members[member.ID] = member
	return member, nil
}

func (m *MemoryStore) GetMember(_ context.Context, id string) (persistence.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return persistence.Member{}, persistence.ErrNotFound
	}
	return member, nil
}

func (m *MemoryStore) ListMembers(_ context.Context) ([]persistence.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := make([]persistence.Member, 0, len(m.members))
	for _, member := range m.members {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].DisplayName < members[j].DisplayName })
	return members, nil
}
