// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/insighta/internal/core"
)

// Repository is the credential store. Missing records and failed update
// guards are both reported as core.ErrNotFound; a taken email as
// core.ErrDuplicateKey.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, patch Patch, guard Guard) (*User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
}

const userColumns = `id, username, email, password, profile_avatar, bio, role,
		       is_active, is_account_verified, verify_otp, verify_otp_expires,
		       reset_password_otp, reset_password_expires, created_at, updated_at`

type postgresRepository struct {
	db core.DBTX
}

func NewPostgresRepository(db core.DBTX) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, username, email, password, profile_avatar, bio,
		                   role, is_active, is_account_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Avatar,
		user.Bio,
		user.Role,
		user.IsActive,
		user.Verified,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	if !validUUID(id) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *postgresRepository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

// Update applies patch in a single statement. The guard is part of the WHERE
// clause so a concurrent writer that already consumed the code or reset
// token makes this call match no row.
func (r *postgresRepository) Update(
	ctx context.Context,
	id string,
	patch Patch,
	guard Guard,
) (*User, error) {
	if !validUUID(id) {
		return nil, fmt.Errorf("update user: %w", core.ErrNotFound)
	}

	args := []any{id}
	sets := []string{"updated_at = NOW()"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Username != nil {
		set("username", *patch.Username)
	}
	if patch.Bio != nil {
		set("bio", *patch.Bio)
	}
	if patch.Avatar != nil {
		set("profile_avatar", *patch.Avatar)
	}
	if patch.Role != nil {
		set("role", *patch.Role)
	}
	if patch.PasswordHash != nil {
		set("password", *patch.PasswordHash)
	}
	if patch.Verified != nil {
		set("is_account_verified", *patch.Verified)
	}
	if patch.VerifyOTP != nil {
		value, expires := pairValues(*patch.VerifyOTP)
		set("verify_otp", value)
		set("verify_otp_expires", expires)
	}
	if patch.Reset != nil {
		value, expires := pairValues(*patch.Reset)
		set("reset_password_otp", value)
		set("reset_password_expires", expires)
	}

	conditions := []string{"id = $1"}
	if guard.VerifyOTP != "" {
		args = append(args, guard.VerifyOTP)
		conditions = append(conditions, fmt.Sprintf("verify_otp = $%d", len(args)))
	}
	if guard.ResetTokenHash != "" {
		args = append(args, guard.ResetTokenHash)
		conditions = append(conditions, fmt.Sprintf("reset_password_otp = $%d", len(args)))
	}
	if guard.Unverified {
		conditions = append(conditions, "is_account_verified = FALSE")
	}

	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE %s
		RETURNING %s`,
		strings.Join(sets, ", "),
		strings.Join(conditions, " AND "),
		userColumns,
	)

	var user User
	err := r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return &user, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *postgresRepository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR username ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func pairValues(p OTPPair) (string, *time.Time) {
	if p.IsZero() {
		return "", nil
	}
	return p.Value, p.ExpiresAt
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
