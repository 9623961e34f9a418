package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *TokenManager {
	return NewTokenManager(TokenConfig{
		Secret: []byte("test-secret"),
		Issuer: "quizdoc-test",
		TTL:    time.Minute,
	})
}

func TestIssueAndVerify(t *testing.T) {
	mgr := testManager()

	token, err := mgr.Issue("ci-lesson-sync")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ci-lesson-sync", subject)
}

func TestIssueRejectsEmptySubject(t *testing.T) {
	_, err := testManager().Issue("")
	assert.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := testManager().Issue("ci-lesson-sync")
	require.NoError(t, err)

	other := NewTokenManager(TokenConfig{Secret: []byte("other"), Issuer: "quizdoc-test", TTL: time.Minute})
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	mgr := testManager()
	mgr.cfg.TTL = -time.Minute // constructor would reset a non-positive TTL
	token, err := mgr.Issue("ci-lesson-sync")
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issued := NewTokenManager(TokenConfig{Secret: []byte("test-secret"), Issuer: "someone-else", TTL: time.Minute})
	token, err := issued.Issue("ci-lesson-sync")
	require.NoError(t, err)

	_, err = testManager().Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAdminKeyRoundTrip(t *testing.T) {
	hash, err := HashAdminKey("operator-key-123")
	require.NoError(t, err)

	assert.NoError(t, VerifyAdminKey(hash, "operator-key-123"))
	assert.ErrorIs(t, VerifyAdminKey(hash, "wrong"), ErrAdminKeyMismatch)
}

func TestRequireTokenMiddleware(t *testing.T) {
	mgr := testManager()
	token, err := mgr.Issue("ci-lesson-sync")
	require.NoError(t, err)

	var gotSubject string
	handler := RequireToken(mgr, zerolog.Nop(), func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	// no header
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// wrong scheme
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid token
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ci-lesson-sync", gotSubject)
}
