// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrNotVerified        = errors.New("account not verified")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidResetToken  = errors.New("invalid or used reset token")
	ErrResetExpired       = errors.New("reset token expired")
)

type UserInfo struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Verification Verification
	Reset        ResetState
	CreatedAt    time.Time
}

func (u *UserInfo) Verified() bool {
	return u.Verification.IsVerified()
}

// UserProvider is the credential store as seen by the auth flows. Missing
// users are reported as core.ErrNotFound and a failed Transition guard is
// reported the same way.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		username, email, passwordHash string,
	) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	Transition(ctx context.Context, userID string, t Transition) (*UserInfo, error)
}

type Mailer interface {
	SendWelcome(ctx context.Context, to, username string) error
	SendVerificationCode(
		ctx context.Context,
		to, username, code string,
		validFor time.Duration,
	) error
	SendPasswordReset(
		ctx context.Context,
		to, username, token string,
		validFor time.Duration,
	) error
}

type RegisterResult struct {
	User             *UserInfo
	WelcomeEmailSent bool
}

// Session holds the tokens issued by Login or Refresh. Refresh is nil when
// only a new access token was issued.
type Session struct {
	User    *UserInfo
	Access  *IssuedToken
	Refresh *IssuedToken
}

type Service struct {
	repo      Repository
	jwt       *JWTManager
	users     UserProvider
	mailer    Mailer
	logger    *slog.Logger
	otpLength int
	otpTTL    time.Duration
	now       func() time.Time
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	users UserProvider,
	mailer Mailer,
	otp config.OTPConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		jwt:       jwt,
		users:     users,
		mailer:    mailer,
		logger:    logger,
		otpLength: otp.Length,
		otpTTL:    otp.TTL,
		now:       time.Now,
	}
}

func (s *Service) Register(
	ctx context.Context,
	username, email, password string,
) (*RegisterResult, error) {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailExists
	case !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	passwordHash, err := core.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, email, passwordHash)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	core.AddSpanEvent(ctx, "auth.registered", attribute.String("user.id", user.ID))

	result := &RegisterResult{User: user, WelcomeEmailSent: true}
	if err := s.mailer.SendWelcome(ctx, user.Email, user.Username); err != nil {
		result.WelcomeEmailSent = false
		s.logger.WarnContext(ctx, "welcome email failed",
			"user_id", user.ID,
			"error", err,
		)
	}

	return result, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(password, "")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
			s.logger.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	if !user.Verified() {
		return nil, ErrNotVerified
	}

	access, err := s.issueAccess(user)
	if err != nil {
		return nil, err
	}

	refresh, err := s.jwt.Issue(PurposeRefresh, Claims{UserID: user.ID}, 0)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	core.AddSpanEvent(ctx, "auth.login", attribute.String("user.id", user.ID))

	return &Session{User: user, Access: access, Refresh: refresh}, nil
}

// Logout revokes whichever of the given tokens are still valid. Missing or
// unparseable tokens are skipped.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	tokens := []struct {
		purpose Purpose
		value   string
	}{
		{PurposeAccess, accessToken},
		{PurposeRefresh, refreshToken},
	}

	for _, t := range tokens {
		if t.value == "" {
			continue
		}

		claims, err := s.jwt.Verify(t.purpose, t.value)
		if err != nil {
			continue
		}

		if err := s.repo.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}

	return nil
}

// Refresh issues a new access token from a refresh token. The user is read
// again so the new snapshot matches the stored record.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.jwt.Verify(PurposeRefresh, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	revoked, err := s.repo.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("refresh: get user: %w", err)
	}

	access, err := s.issueAccess(user)
	if err != nil {
		return nil, err
	}

	return &Session{User: user, Access: access}, nil
}

// VerifyAccessToken implements middleware.TokenVerifier on top of the JWT
// check by also rejecting revoked token ids. A revocation lookup failure
// rejects the token.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.Verify(PurposeAccess, token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.repo.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		s.logger.ErrorContext(ctx, "revocation lookup failed", "error", err)
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims.toMiddleware(), nil
}

func (s *Service) SendVerificationCode(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if user.Verified() {
		return ErrAlreadyVerified
	}

	code, err := core.GenerateNumericCode(s.otpLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	pending := Verification{
		Status:    CodePending,
		Code:      code,
		ExpiresAt: s.now().Add(s.otpTTL),
	}

	_, err = s.users.Transition(ctx, userID, Transition{
		Verification:      &pending,
		RequireUnverified: true,
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return s.sendGuardFailed(ctx, userID)
		}
		return fmt.Errorf("store verification code: %w", err)
	}

	core.AddSpanEvent(ctx, "auth.verification.code_issued",
		attribute.String("user.id", userID),
	)

	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.Username, code, s.otpTTL); err != nil {
		s.logger.WarnContext(ctx, "verification email failed",
			"user_id", userID,
			"error", err,
		)
		return fmt.Errorf("send verification code: %w", err)
	}

	return nil
}

func (s *Service) VerifyAccount(ctx context.Context, userID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	v := user.Verification
	if v.IsVerified() {
		return ErrAlreadyVerified
	}

	if v.Status != CodePending || !core.ConstantTimeEqual(code, v.Code) {
		return ErrInvalidCode
	}

	if v.Expired(s.now()) {
		return ErrCodeExpired
	}

	_, err = s.users.Transition(ctx, userID, Transition{
		Verification: &Verification{Status: Verified},
		RequireCode:  code,
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return s.verifyGuardFailed(ctx, userID)
		}
		return fmt.Errorf("verify account: %w", err)
	}

	core.AddSpanEvent(ctx, "auth.verification.verified",
		attribute.String("user.id", userID),
	)

	return nil
}

// verifyGuardFailed reports why a guarded verify write matched nothing: a
// concurrent verify already won, or the code was replaced.
func (s *Service) verifyGuardFailed(ctx context.Context, userID string) error {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if current.Verified() {
		return ErrAlreadyVerified
	}
	return ErrInvalidCode
}

// sendGuardFailed reports why storing a new code matched nothing: the account
// was verified after it was read, or it no longer exists.
func (s *Service) sendGuardFailed(ctx context.Context, userID string) error {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if current.Verified() {
		return ErrAlreadyVerified
	}
	return fmt.Errorf("store verification code: %w", core.ErrNotFound)
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	token, err := s.jwt.Issue(PurposeReset, Claims{UserID: user.ID}, 0)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	pending := ResetState{
		Status:    ResetPending,
		TokenHash: core.HashToken(token.Token),
		ExpiresAt: token.ExpiresAt,
	}

	if _, err := s.users.Transition(ctx, user.ID, Transition{Reset: &pending}); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	core.AddSpanEvent(ctx, "auth.reset.requested", attribute.String("user.id", user.ID))

	ttl := s.jwt.TTL(PurposeReset)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, token.Token, ttl); err != nil {
		s.logger.WarnContext(ctx, "password reset email failed",
			"user_id", user.ID,
			"error", err,
		)
		return fmt.Errorf("send reset email: %w", err)
	}

	return nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.jwt.Verify(PurposeReset, token)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			return ErrResetExpired
		}
		return ErrInvalidResetToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("get user: %w", err)
	}

	reset := user.Reset
	if reset.Status != ResetPending || !core.CompareTokenHash(token, reset.TokenHash) {
		return ErrInvalidResetToken
	}

	if reset.Expired(s.now()) {
		return ErrResetExpired
	}

	passwordHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.users.Transition(ctx, user.ID, Transition{
		PasswordHash:     passwordHash,
		Reset:            &ResetState{Status: ResetNone},
		RequireResetHash: reset.TokenHash,
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("reset password: %w", err)
	}

	core.AddSpanEvent(ctx, "auth.reset.completed", attribute.String("user.id", user.ID))

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*UserInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Service) issueAccess(user *UserInfo) (*IssuedToken, error) {
	access, err := s.jwt.Issue(PurposeAccess, Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Verified: user.Verified(),
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}
