// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/insighta/internal/auth"
	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core"
)

type Service struct {
	repo          Repository
	defaultAvatar string
	defaultBio    string
}

func NewService(repo Repository, defaults config.UserConfig) *Service {
	return &Service{
		repo:          repo,
		defaultAvatar: defaults.DefaultAvatar,
		defaultBio:    defaults.DefaultBio,
	}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	username, email, passwordHash string,
) (*auth.UserInfo, error) {
	user := &User{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Avatar:       s.defaultAvatar,
		Bio:          s.defaultBio,
		Role:         RoleUser,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	_, err := s.repo.Update(ctx, userID, Patch{PasswordHash: &passwordHash}, Guard{})
	return err
}

// Transition writes an auth state change as one guarded update. Each state
// is stored as its field pair and both halves are always written together.
func (s *Service) Transition(
	ctx context.Context,
	userID string,
	t auth.Transition,
) (*auth.UserInfo, error) {
	var patch Patch

	if v := t.Verification; v != nil {
		verified := v.Status == auth.Verified
		patch.Verified = &verified

		pair := OTPPair{}
		if v.Status == auth.CodePending {
			expires := v.ExpiresAt
			pair = OTPPair{Value: v.Code, ExpiresAt: &expires}
		}
		patch.VerifyOTP = &pair
	}

	if rs := t.Reset; rs != nil {
		pair := OTPPair{}
		if rs.Status == auth.ResetPending {
			expires := rs.ExpiresAt
			pair = OTPPair{Value: rs.TokenHash, ExpiresAt: &expires}
		}
		patch.Reset = &pair
	}

	if t.PasswordHash != "" {
		patch.PasswordHash = &t.PasswordHash
	}

	user, err := s.repo.Update(ctx, userID, patch, Guard{
		VerifyOTP:      t.RequireCode,
		ResetTokenHash: t.RequireResetHash,
		Unverified:     t.RequireUnverified,
	})
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile changes username and bio. Empty values are ignored, so a
// request cannot blank either field.
func (s *Service) UpdateProfile(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update profile: %w", core.ErrUnauthorized)
	}

	var patch Patch
	if req.Username != nil {
		if name := strings.TrimSpace(*req.Username); name != "" {
			patch.Username = &name
		}
	}
	if req.Bio != nil {
		if bio := strings.TrimSpace(*req.Bio); bio != "" {
			patch.Bio = &bio
		}
	}

	if patch.IsEmpty() {
		return s.repo.GetByID(ctx, userID)
	}

	return s.repo.Update(ctx, userID, patch, Guard{})
}

func (s *Service) ResetAvatar(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("reset avatar: %w", core.ErrUnauthorized)
	}

	avatar := s.defaultAvatar
	return s.repo.Update(ctx, userID, Patch{Avatar: &avatar}, Guard{})
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.repo.Delete(ctx, userID)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

// CountUsers returns how many accounts hold role, or all accounts when role
// is empty.
func (s *Service) CountUsers(ctx context.Context, role string) (int, error) {
	_, total, err := s.repo.List(ctx, ListUsersParams{Page: 1, PageSize: 1, Role: role})
	return total, err
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	id, role string,
) (*User, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	return s.repo.Update(ctx, id, Patch{Role: &role}, Guard{})
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// CanDeleteUser allows self deletion and lets admins delete regular users.
// Admin accounts can only be removed by their owner.
func (s *Service) CanDeleteUser(
	ctx context.Context,
	requesterID, targetID string,
) error {
	if requesterID == targetID {
		return nil
	}

	requester, err := s.repo.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}

	if !requester.IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if target.IsAdmin() {
		return fmt.Errorf("cannot delete admin users: %w", core.ErrForbidden)
	}

	return nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Verification: auth.VerificationFromFields(u.Verified, u.VerifyOTP, u.VerifyOTPExpires),
		Reset:        auth.ResetFromFields(u.ResetTokenHash, u.ResetExpires),
		CreatedAt:    u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
