// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/middleware"
	"github.com/carterperez-dev/insighta/internal/user"
)

type fakeBackend struct {
	pingErr error
	stats   any
}

func (f fakeBackend) Ping(context.Context) error { return f.pingErr }

func (f fakeBackend) Stats(context.Context) (any, error) { return f.stats, nil }

type fakeCounts struct{}

func (fakeCounts) CountUsers(_ context.Context, role string) (int, error) {
	if role == user.RoleAdmin {
		return 1, nil
	}
	return 7, nil
}

func (fakeCounts) CountBlogs(_ context.Context, publishedOnly bool) (int, error) {
	if publishedOnly {
		return 3, nil
	}
	return 5, nil
}

type stubVerifier map[string]*middleware.AccessTokenClaims

func (s stubVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, core.ErrTokenInvalid
}

func newRouter(cfg HandlerConfig) http.Handler {
	verifier := stubVerifier{
		"root":   {UserID: "a-1", Role: middleware.RoleAdmin},
		"member": {UserID: "u-1", Role: user.RoleUser},
	}

	r := chi.NewRouter()
	NewHandler(cfg).RegisterRoutes(r,
		middleware.Authenticator(verifier, "access_token"),
		middleware.RequireAdmin,
	)
	return r
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSystemStats(t *testing.T) {
	h := newRouter(HandlerConfig{
		Store:       fakeBackend{stats: map[string]int{"collections": 2}},
		StoreDriver: "mongo",
		Redis:       fakeBackend{pingErr: errors.New("down")},
		Users:       fakeCounts{},
		Blogs:       fakeCounts{},
	})

	rec := get(h, "/admin/stats", "root")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, "mongo", body.Data.Database.Name)
	assert.True(t, body.Data.Database.Healthy)
	assert.NotNil(t, body.Data.Database.Stats)
	assert.False(t, body.Data.Redis.Healthy)
	assert.Nil(t, body.Data.Redis.Stats)
	assert.Equal(t, ContentStats{Users: 7, Admins: 1, Blogs: 5, PublishedBlogs: 3}, body.Data.Content)
	assert.NotEmpty(t, body.Data.Runtime.GoVersion)
}

func TestStatsRequireAdmin(t *testing.T) {
	h := newRouter(HandlerConfig{})

	assert.Equal(t, http.StatusForbidden, get(h, "/admin/stats/runtime", "member").Code)
	assert.Equal(t, http.StatusUnauthorized, get(h, "/admin/stats/runtime", "nobody").Code)
	assert.Equal(t, http.StatusOK, get(h, "/admin/stats/runtime", "root").Code)
}

func TestBackendStatsEndpoints(t *testing.T) {
	h := newRouter(HandlerConfig{
		Store:       fakeBackend{stats: map[string]int{"open_connections": 4}},
		StoreDriver: "postgres",
	})

	rec := get(h, "/admin/stats/db", "root")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data BackendStatus `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "postgres", body.Data.Name)
	assert.True(t, body.Data.Healthy)

	rec = get(h, "/admin/stats/redis", "root")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "redis", body.Data.Name)
	assert.False(t, body.Data.Healthy)
}
