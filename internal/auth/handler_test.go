// AngelaMos | 2026
// handler_test.go

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/middleware"
)

func newTestRouter(t *testing.T, env *testEnv, production bool) http.Handler {
	t.Helper()

	cookies := NewCookieSettings(config.CookieConfig{
		AccessName:    "access_token",
		RefreshName:   "refresh_token",
		AccessMaxAge:  time.Hour,
		RefreshMaxAge: 7 * 24 * time.Hour,
	}, production)

	h := NewHandler(env.svc, cookies)
	r := chi.NewRouter()
	h.RegisterRoutes(r, middleware.Authenticator(env.svc, cookies.AccessName))
	return r
}

func doJSON(
	t *testing.T,
	h http.Handler,
	method, path string,
	body any,
	cookies ...*http.Cookie,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) core.Response {
	t.Helper()
	var resp core.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandlerRegister(t *testing.T) {
	env := newTestEnv(t)
	h := newTestRouter(t, env, false)

	rec := doJSON(t, h, http.MethodPost, "/auth/register", RegisterRequest{
		Username: "ada",
		Email:    "ada@example.com",
		Password: "password123",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/auth/register", RegisterRequest{
		Username: "ada",
		Email:    "ada@example.com",
		Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
}

func TestHandlerRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	h := newTestRouter(t, env, false)

	rec := doJSON(t, h, http.MethodPost, "/auth/register", RegisterRequest{
		Username: "ada",
		Email:    "not-an-email",
		Password: "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.users.count())
}

func TestHandlerLoginUnverifiedSetsNoCookies(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada@example.com", "password123")
	h := newTestRouter(t, env, false)

	rec := doJSON(t, h, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "ada@example.com",
		Password: "password123",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_VERIFIED", resp.Error.Code)
}

func TestHandlerLoginSetsCookies(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "ada@example.com", "password123")
	h := newTestRouter(t, env, true)

	rec := doJSON(t, h, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "ada@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	access := cookieNamed(rec, "access_token")
	require.NotNil(t, access)
	assert.Equal(t, 3600, access.MaxAge)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteNoneMode, access.SameSite)

	refresh := cookieNamed(rec, "refresh_token")
	require.NotNil(t, refresh)
	assert.Equal(t, 604800, refresh.MaxAge)
}

func TestHandlerDevelopmentCookiesAreStrict(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "ada@example.com", "password123")
	h := newTestRouter(t, env, false)

	rec := doJSON(t, h, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "ada@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	access := cookieNamed(rec, "access_token")
	require.NotNil(t, access)
	assert.False(t, access.Secure)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
}

func TestHandlerMeUsesAccessCookie(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "ada@example.com", "password123")
	h := newTestRouter(t, env, false)

	login := doJSON(t, h, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "ada@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, login.Code)

	rec := doJSON(t, h, http.MethodGet, "/auth/me", nil, cookieNamed(login, "access_token"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data UserResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ada@example.com", body.Data.Email)
	assert.True(t, body.Data.IsAccountVerified)
}

func TestHandlerMeWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	h := newTestRouter(t, env, false)

	rec := doJSON(t, h, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerLogoutClearsCookiesAndRevokes(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "ada@example.com", "password123")
	h := newTestRouter(t, env, false)

	login := doJSON(t, h, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "ada@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, login.Code)
	access := cookieNamed(login, "access_token")
	refresh := cookieNamed(login, "refresh_token")

	rec := doJSON(t, h, http.MethodPost, "/auth/logout", nil, access, refresh)
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := cookieNamed(rec, "access_token")
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	rec = doJSON(t, h, http.MethodPost, "/auth/refresh-token", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TOKEN_REVOKED", resp.Error.Code)
}

func TestHandlerRefreshFromBody(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "ada@example.com", "password123")
	h := newTestRouter(t, env, false)

	session, err := env.svc.Login(context.Background(), "ada@example.com", "password123")
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodPost, "/auth/refresh-token", RefreshRequest{
		RefreshToken: session.Refresh.Token,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, cookieNamed(rec, "access_token"))
}

func TestHandlerVerifyAccount(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "ada@example.com", "password123")
	h := newTestRouter(t, env, false)

	token, err := env.svc.jwt.Issue(PurposeAccess, Claims{UserID: u.ID, Role: "user"}, 0)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: "access_token", Value: token.Token}

	rec := doJSON(t, h, http.MethodPost, "/auth/send-verification-email", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/auth/verify-account", VerifyAccountRequest{
		Code: env.mailer.codes["ada@example.com"],
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/auth/verify-account", VerifyAccountRequest{
		Code: "123456",
	}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	h := newTestRouter(t, env, false)

	rec := doJSON(t, h, http.MethodPost, "/auth/forgot-password", ForgotPasswordRequest{
		Email: "nobody@example.com",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerResetPasswordInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	h := newTestRouter(t, env, false)

	rec := doJSON(t, h, http.MethodPost, "/auth/reset-password", ResetPasswordRequest{
		Token:       "garbage",
		NewPassword: "brand-new-pass",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_RESET_TOKEN", resp.Error.Code)
}
