package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
)

// MemberRepository implements persistence.MemberRepository using SQLite.
type MemberRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMemberRepository creates a new SQLite member repository.
func NewMemberRepository(pool *ConnectionPool) *MemberRepository {
	return &MemberRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateMember inserts a member.
func (r *MemberRepository) CreateMember(ctx context.Context, member persistence.Member) (persistence.Member, error) {
	if member.ID == "" {
		return persistence.Member{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	_, err := r.helper.Exec(ctx, `
		INSERT INTO members (id, display_name, email, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		member.ID,
		member.DisplayName,
		member.Email,
		string(member.Role),
		formatTimestamp(member.CreatedAt),
		formatTimestamp(member.UpdatedAt),
	)
	if err != nil {
		return persistence.Member{}, r.mapper.MapError(err)
	}

	return member, nil
}

// GetMember retrieves a member by ID.
func (r *MemberRepository) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	if id == "" {
		return persistence.Member{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `
		SELECT id, display_name, email, role, created_at, updated_at
		FROM members
		WHERE id = ?
	`, id)
	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Member{}, persistence.ErrNotFound
		}
		return persistence.Member{}, r.mapper.MapError(err)
	}
	return member, nil
}

// ListMembers returns all members ordered by display name.
func (r *MemberRepository) ListMembers(ctx context.Context) ([]persistence.Member, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, display_name, email, role, created_at, updated_at
		FROM members
		ORDER BY display_name, id
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	members := make([]persistence.Member, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func scanMember(row rowScanner) (persistence.Member, error) {
	var (
		member             persistence.Member
		role               string
		createdStr, updStr string
	)

	if err := row.Scan(&member.ID, &member.DisplayName, &member.Email, &role, &createdStr, &updStr); err != nil {
		return persistence.Member{}, err
	}

	member.Role = persistence.MemberRole(role)

	var err error
	if member.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.Member{}, err
	}
	if member.UpdatedAt, err = parseTimestamp(updStr); err != nil {
		return persistence.Member{}, err
	}
	return member, nil
}
