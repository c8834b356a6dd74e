package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedHandler(t *testing.T, wantSubject string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := Subject(r.Context())
		assert.True(t, ok)
		assert.Equal(t, wantSubject, subject)
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuth_AllowsIssuedToken(t *testing.T) {
	auth, err := NewBearerAuth("secret", time.Hour)
	require.NoError(t, err)

	token, err := auth.Issue("1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/accounts/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	auth.Middleware(protectedHandler(t, "1")).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBearerAuth_RejectsMissingHeader(t *testing.T) {
	auth, err := NewBearerAuth("secret", time.Hour)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	auth.Middleware(protectedHandler(t, "")).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "AUTHENTICATION_FAILED")
}

func TestBearerAuth_RejectsForeignSignature(t *testing.T) {
	auth, err := NewBearerAuth("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewBearerAuth("other-secret", time.Hour)
	require.NoError(t, err)

	token, err := other.Issue("1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	auth.Middleware(protectedHandler(t, "")).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerAuth_RejectsExpiredToken(t *testing.T) {
	auth, err := NewBearerAuth("secret", time.Minute)
	require.NoError(t, err)
	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := auth.Issue("1")
	require.NoError(t, err)
	auth.now = time.Now

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	auth.Middleware(protectedHandler(t, "")).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerAuth_RejectsUnsignedToken(t *testing.T) {
	auth, err := NewBearerAuth("secret", time.Hour)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	auth.Middleware(protectedHandler(t, "")).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewBearerAuth_RequiresSecret(t *testing.T) {
	_, err := NewBearerAuth("  ", time.Hour)
	assert.Error(t, err)
}
