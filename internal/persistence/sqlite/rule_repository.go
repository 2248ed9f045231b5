package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
	"github.com/example/club-scheduler/internal/recurrence"
)

// RuleRepository implements persistence.RuleRepository using SQLite.
type RuleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRuleRepository creates a new SQLite rule repository.
func NewRuleRepository(pool *ConnectionPool) *RuleRepository {
	return &RuleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRule inserts a rule and its sub-groups in one transaction.
func (r *RuleRepository) CreateRule(ctx context.Context, rule persistence.TrainingRule) (persistence.TrainingRule, error) {
	if rule.ID == "" {
		return persistence.TrainingRule{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx, `
			INSERT INTO training_rules (id, name, day_of_week, start_time, end_time, recur_interval, valid_from, valid_until, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rule.ID,
			rule.Name,
			int(rule.DayOfWeek),
			rule.StartTime.String(),
			rule.EndTime.String(),
			rule.Interval.String(),
			nullableDate(rule.ValidFrom),
			nullableDate(rule.ValidUntil),
			boolToInt(rule.Active),
			formatTimestamp(rule.CreatedAt),
			formatTimestamp(rule.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		for i, group := range rule.Groups {
			group.RuleID = rule.ID
			if group.Position == 0 {
				group.Position = i
			}
			_, err := r.helper.ExecTx(tx, `
				INSERT INTO rule_groups (id, rule_id, name, position, trainer_id)
				VALUES (?, ?, ?, ?, ?)
			`, group.ID, group.RuleID, group.Name, group.Position, group.TrainerID)
			if err != nil {
				return r.mapper.MapError(err)
			}
			rule.Groups[i] = group
		}

		return nil
	})
	if err != nil {
		return persistence.TrainingRule{}, err
	}

	return rule, nil
}

// GetRule retrieves a rule with its sub-groups.
func (r *RuleRepository) GetRule(ctx context.Context, id string) (persistence.TrainingRule, error) {
	if id == "" {
		return persistence.TrainingRule{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `
		SELECT id, name, day_of_week, start_time, end_time, recur_interval, valid_from, valid_until, active, created_at, updated_at
		FROM training_rules
		WHERE id = ?
	`, id)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.TrainingRule{}, persistence.ErrNotFound
		}
		return persistence.TrainingRule{}, r.mapper.MapError(err)
	}

	groups, err := r.listGroups(ctx, id)
	if err != nil {
		return persistence.TrainingRule{}, err
	}
	rule.Groups = groups

	return rule, nil
}

// ListRules returns rules whose validity window overlaps [from, to],
// ordered by name. Unbounded validity edges overlap every window.
func (r *RuleRepository) ListRules(ctx context.Context, from, to time.Time, activeOnly bool) ([]persistence.TrainingRule, error) {
	query := `
		SELECT id, name, day_of_week, start_time, end_time, recur_interval, valid_from, valid_until, active, created_at, updated_at
		FROM training_rules
		WHERE (valid_from IS NULL OR valid_from <= ?)
		  AND (valid_until IS NULL OR valid_until >= ?)
	`
	args := []any{formatDate(to), formatDate(from)}
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY name, id"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	rules := make([]persistence.TrainingRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range rules {
		groups, err := r.listGroups(ctx, rules[i].ID)
		if err != nil {
			return nil, err
		}
		rules[i].Groups = groups
	}

	return rules, nil
}

// SetRuleActive toggles a rule's active flag.
func (r *RuleRepository) SetRuleActive(ctx context.Context, id string, active bool) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE training_rules SET active = ?, updated_at = ? WHERE id = ?
	`, boolToInt(active), formatTimestamp(time.Now().UTC()), id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *RuleRepository) listGroups(ctx context.Context, ruleID string) ([]persistence.RuleGroup, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, rule_id, name, position, trainer_id
		FROM rule_groups
		WHERE rule_id = ?
		ORDER BY position, id
	`, ruleID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	groups := make([]persistence.RuleGroup, 0)
	for rows.Next() {
		var group persistence.RuleGroup
		if err := rows.Scan(&group.ID, &group.RuleID, &group.Name, &group.Position, &group.TrainerID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (persistence.TrainingRule, error) {
	var (
		rule                 persistence.TrainingRule
		dayOfWeek, active    int
		startStr, endStr     string
		intervalStr          string
		validFrom, validTill sql.NullString
		createdStr, updated  string
	)

	if err := row.Scan(&rule.ID, &rule.Name, &dayOfWeek, &startStr, &endStr, &intervalStr, &validFrom, &validTill, &active, &createdStr, &updated); err != nil {
		return persistence.TrainingRule{}, err
	}

	rule.DayOfWeek = time.Weekday(dayOfWeek)
	rule.Active = active != 0

	var err error
	if rule.StartTime, err = parseTimeOfDay(startStr); err != nil {
		return persistence.TrainingRule{}, err
	}
	if rule.EndTime, err = parseTimeOfDay(endStr); err != nil {
		return persistence.TrainingRule{}, err
	}
	if rule.Interval, err = recurrence.ParseInterval(intervalStr); err != nil {
		return persistence.TrainingRule{}, err
	}
	if rule.ValidFrom, err = scanNullableDate(validFrom); err != nil {
		return persistence.TrainingRule{}, err
	}
	if rule.ValidUntil, err = scanNullableDate(validTill); err != nil {
		return persistence.TrainingRule{}, err
	}
	if rule.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.TrainingRule{}, err
	}
	if rule.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return persistence.TrainingRule{}, err
	}

	return rule, nil
}
