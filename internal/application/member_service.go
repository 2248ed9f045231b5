package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/club-scheduler/internal/persistence"
)

// MemberInput carries the fields of a new club member.
type MemberInput struct {
	DisplayName string
	Email       string
	Role        persistence.MemberRole
}

// MemberService manages the club member directory.
type MemberService struct {
	members     persistence.MemberRepository
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

// NewMemberService wires dependencies for member operations.
func NewMemberService(members persistence.MemberRepository, logger *slog.Logger, idGenerator func() string, now func() time.Time) *MemberService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MemberService{
		members:     members,
		logger:      defaultLogger(logger),
		idGenerator: idGenerator,
		now:         now,
	}
}

// CreateMember validates and stores a new member.
func (s *MemberService) CreateMember(ctx context.Context, input MemberInput) (persistence.Member, error) {
	logger := serviceLogger(ctx, s.logger, "members", "create")

	vErr := &ValidationError{}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	switch input.Role {
	case persistence.RoleAthlete, persistence.RoleTrainer, persistence.RoleAdmin:
	default:
		vErr.add("role", "unknown member role")
	}
	if vErr.HasErrors() {
		logger.WarnContext(ctx, "member rejected", "error_kind", ErrorKind(vErr))
		return persistence.Member{}, vErr
	}

	member := persistence.Member{
		ID:          s.idGenerator(),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Email:       strings.TrimSpace(input.Email),
		Role:        input.Role,
	}
	created, err := s.members.CreateMember(ctx, member)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Member{}, ErrConflict
		}
		logger.ErrorContext(ctx, "failed to create member", "error", err)
		return persistence.Member{}, err
	}

	logger.InfoContext(ctx, "member created", "member_id", created.ID, "role", string(created.Role))
	return created, nil
}

// GetMember retrieves a member by ID.
func (s *MemberService) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	member, err := s.members.GetMember(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Member{}, ErrNotFound
		}
		return persistence.Member{}, err
	}
	return member, nil
}

// ListMembers returns the directory ordered by display name.
func (s *MemberService) ListMembers(ctx context.Context) ([]persistence.Member, error) {
	return s.members.ListMembers(ctx)
}
