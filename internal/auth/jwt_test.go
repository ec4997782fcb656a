// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core"
)

type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessSecret:       "access-secret-for-tests-0123456789",
		RefreshSecret:      "refresh-secret-for-tests-0123456789",
		ResetSecret:        "reset-secret-for-tests-0123456789",
		AccessTokenExpire:  time.Hour,
		RefreshTokenExpire: 7 * 24 * time.Hour,
		ResetTokenExpire:   15 * time.Minute,
		Issuer:             "insighta-test",
		Audience:           "insighta-test-api",
	}
}

func newTestJWT(t *testing.T, clock *testClock) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testJWTConfig())
	require.NoError(t, err)
	return m.WithClock(clock.Now)
}

func TestNewJWTManagerRequiresSecrets(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ResetSecret = ""

	_, err := NewJWTManager(cfg)
	require.Error(t, err)
}

func TestIssueVerifyAccessRoundTrip(t *testing.T) {
	clock := newTestClock()
	m := newTestJWT(t, clock)

	issued, err := m.Issue(PurposeAccess, Claims{
		UserID:   "user-1",
		Username: "ada",
		Email:    "ada@example.com",
		Role:     "admin",
		Verified: true,
	}, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, clock.Now().Add(time.Hour), issued.ExpiresAt)

	claims, err := m.Verify(PurposeAccess, issued.Token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, claims.Verified)
	assert.Equal(t, issued.ID, claims.TokenID)
	assert.True(t, issued.ExpiresAt.Equal(claims.ExpiresAt))
}

func TestVerifyAfterTTLIsExpired(t *testing.T) {
	clock := newTestClock()
	m := newTestJWT(t, clock)

	issued, err := m.Issue(PurposeRefresh, Claims{UserID: "user-1"}, time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = m.Verify(PurposeRefresh, issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestVerifyRejectsWrongPurpose(t *testing.T) {
	clock := newTestClock()
	m := newTestJWT(t, clock)

	issued, err := m.Issue(PurposeAccess, Claims{UserID: "user-1", Role: "user"}, 0)
	require.NoError(t, err)

	_, err = m.Verify(PurposeRefresh, issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = m.Verify(PurposeReset, issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	clock := newTestClock()
	m := newTestJWT(t, clock)

	issued, err := m.Issue(PurposeAccess, Claims{UserID: "user-1", Role: "user"}, 0)
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = m.Verify(PurposeAccess, tampered)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = m.Verify(PurposeAccess, "not-a-token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	clock := newTestClock()
	m := newTestJWT(t, clock)

	cfg := testJWTConfig()
	cfg.Issuer = "someone-else"
	other, err := NewJWTManager(cfg)
	require.NoError(t, err)
	other.WithClock(clock.Now)

	issued, err := other.Issue(PurposeAccess, Claims{UserID: "user-1", Role: "user"}, 0)
	require.NoError(t, err)

	_, err = m.Verify(PurposeAccess, issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
	assert.NotErrorIs(t, err, core.ErrTokenExpired)

	reset, err := other.Issue(PurposeReset, Claims{UserID: "user-1"}, 0)
	require.NoError(t, err)

	_, err = m.Verify(PurposeReset, reset.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
	assert.NotErrorIs(t, err, core.ErrTokenExpired)
}

func TestRefreshTokenCarriesOnlyUserID(t *testing.T) {
	clock := newTestClock()
	m := newTestJWT(t, clock)

	issued, err := m.Issue(PurposeRefresh, Claims{
		UserID: "user-1",
		Email:  "ada@example.com",
		Role:   "admin",
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour), issued.ExpiresAt)

	claims, err := m.Verify(PurposeRefresh, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.Role)
}
