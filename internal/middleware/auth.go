// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/insighta/internal/core"
)

const claimsKey contextKey = "access_claims"

const RoleAdmin = "admin"

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*AccessTokenClaims, error)
}

// AccessTokenClaims is the user snapshot carried by an access token. It
// reflects the user at issue time, not the current record.
type AccessTokenClaims struct {
	UserID    string
	Username  string
	Email     string
	Role      string
	Verified  bool
	TokenID   string
	ExpiresAt time.Time
}

// Authenticator rejects requests without a valid access token. cookieName
// names the cookie consulted when no Authorization header is sent.
func Authenticator(verifier TokenVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := resolveClaims(r, verifier, cookieName)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches claims when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(verifier TokenVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := resolveClaims(r, verifier, cookieName); err == nil {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

var errNoToken = errors.New("no access token")

func resolveClaims(r *http.Request, verifier TokenVerifier, cookieName string) (*AccessTokenClaims, error) {
	token := ExtractToken(r, cookieName)
	if token == "" {
		return nil, errNoToken
	}
	return verifier.VerifyAccessToken(r.Context(), token)
}

// RequireAdmin must run after Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		switch {
		case claims == nil:
			core.JSONError(w, core.UnauthorizedError(""))
		case claims.Role != RoleAdmin:
			core.JSONError(w, core.ForbiddenError("admin access required"))
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// ExtractToken reads a bearer token from the Authorization header and falls
// back to the named cookie. A non-bearer Authorization header yields "".
func ExtractToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}

	if cookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNoToken):
		core.JSONError(w, core.UnauthorizedError("missing authorization token"))
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func WithClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	claims, _ := ctx.Value(claimsKey).(*AccessTokenClaims)
	return claims
}

func GetUserID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}

func IsAdmin(ctx context.Context) bool {
	claims := GetClaims(ctx)
	return claims != nil && claims.Role == RoleAdmin
}
