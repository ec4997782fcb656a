// AngelaMos | 2026
// jwt.go

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/middleware"
)

type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
	PurposeReset   Purpose = "reset"
)

// Claims is the payload of an issued token. Only access tokens carry the
// user snapshot fields; refresh and reset tokens carry just the user id.
type Claims struct {
	UserID    string
	Username  string
	Email     string
	Role      string
	Verified  bool
	Purpose   Purpose
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

type signingKey struct {
	key jwk.Key
	ttl time.Duration
}

type JWTManager struct {
	keys     map[Purpose]signingKey
	issuer   string
	audience string
	now      func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	specs := []struct {
		purpose Purpose
		secret  string
		ttl     time.Duration
	}{
		{PurposeAccess, cfg.AccessSecret, cfg.AccessTokenExpire},
		{PurposeRefresh, cfg.RefreshSecret, cfg.RefreshTokenExpire},
		{PurposeReset, cfg.ResetSecret, cfg.ResetTokenExpire},
	}

	keys := make(map[Purpose]signingKey, len(specs))
	for _, s := range specs {
		if s.secret == "" {
			return nil, fmt.Errorf("%s token secret is empty", s.purpose)
		}

		key, err := jwk.Import([]byte(s.secret))
		if err != nil {
			return nil, fmt.Errorf("import %s secret: %w", s.purpose, err)
		}

		keys[s.purpose] = signingKey{key: key, ttl: s.ttl}
	}

	return &JWTManager{
		keys:     keys,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and validating.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

func (m *JWTManager) TTL(purpose Purpose) time.Duration {
	return m.keys[purpose].ttl
}

// Issue signs a token for purpose. A non-positive ttl uses the purpose
// default.
func (m *JWTManager) Issue(
	purpose Purpose,
	claims Claims,
	ttl time.Duration,
) (*IssuedToken, error) {
	sk, ok := m.keys[purpose]
	if !ok {
		return nil, fmt.Errorf("issue token: unknown purpose %q", purpose)
	}

	if ttl <= 0 {
		ttl = sk.ttl
	}

	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	tokenID := uuid.New().String()

	builder := jwt.NewBuilder().
		JwtID(tokenID).
		Issuer(m.issuer).
		Audience([]string{m.audience}).
		Subject(claims.UserID).
		IssuedAt(now).
		Expiration(expiresAt).
		NotBefore(now).
		Claim("type", string(purpose))

	if purpose == PurposeAccess {
		builder = builder.
			Claim("username", claims.Username).
			Claim("email", claims.Email).
			Claim("role", claims.Role).
			Claim("verified", claims.Verified)
	}

	token, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), sk.key))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{
		Token:     string(signed),
		ID:        tokenID,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature, purpose, issuer, audience and lifetime. Any
// failure other than expiry is reported as core.ErrTokenInvalid.
func (m *JWTManager) Verify(purpose Purpose, tokenString string) (*Claims, error) {
	sk, ok := m.keys[purpose]
	if !ok {
		return nil, fmt.Errorf("verify token: unknown purpose: %w", core.ErrTokenInvalid)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), sk.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var tokenType string
	if err := token.Get("type", &tokenType); err != nil ||
		tokenType != string(purpose) {
		return nil, fmt.Errorf(
			"verify token: invalid token type: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	tokenID, _ := token.JwtID()
	issuedAt, _ := token.IssuedAt()
	expiresAt, _ := token.Expiration()

	claims := &Claims{
		UserID:    subject,
		Purpose:   purpose,
		TokenID:   tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}

	if purpose == PurposeAccess {
		if err := token.Get("role", &claims.Role); err != nil {
			return nil, fmt.Errorf(
				"verify token: missing role claim: %w",
				core.ErrTokenInvalid,
			)
		}
		//nolint:errcheck // optional snapshot fields
		_ = token.Get("username", &claims.Username)
		//nolint:errcheck // optional snapshot fields
		_ = token.Get("email", &claims.Email)
		//nolint:errcheck // optional snapshot fields
		_ = token.Get("verified", &claims.Verified)
	}

	return claims, nil
}

func (c *Claims) toMiddleware() *middleware.AccessTokenClaims {
	return &middleware.AccessTokenClaims{
		UserID:    c.UserID,
		Username:  c.Username,
		Email:     c.Email,
		Role:      c.Role,
		Verified:  c.Verified,
		TokenID:   c.TokenID,
		ExpiresAt: c.ExpiresAt,
	}
}
