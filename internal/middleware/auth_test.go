package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func withRequestID(req *http.Request) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-1")
	return req.WithContext(ctx)
}

func TestAdminAuth_Require_RejectsMissingHeader(t *testing.T) {
	a := NewAdminAuth("s3cret", "")
	called := false
	h := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := withRequestID(httptest.NewRequest(http.MethodPost, "/admin/ingest/arxiv", nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAuth_Require_AcceptsValidToken(t *testing.T) {
	a := NewAdminAuth("s3cret", "")
	token, err := a.IssueToken("operator", time.Hour)
	require.NoError(t, err)

	var gotSubject string
	h := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = AdminSubject(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := withRequestID(httptest.NewRequest(http.MethodPost, "/admin/ingest/arxiv", nil))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "operator", gotSubject)
}

func TestAdminAuth_Require_RejectsTokenSignedWithWrongSecret(t *testing.T) {
	issuer := NewAdminAuth("correct-secret", "")
	token, err := issuer.IssueToken("operator", time.Hour)
	require.NoError(t, err)

	verifier := NewAdminAuth("wrong-secret", "")
	h := verifier.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for a badly signed token")
	}))

	req := withRequestID(httptest.NewRequest(http.MethodPost, "/admin/ingest/arxiv", nil))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAuth_VerifyPassword_AcceptsMatchingPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)

	a := NewAdminAuth("s3cret", string(hash))
	assert.True(t, a.VerifyPassword("correct-horse"))
	assert.False(t, a.VerifyPassword("wrong-password"))
}

func TestAdminAuth_VerifyPassword_RejectsWhenNoHashConfigured(t *testing.T) {
	a := NewAdminAuth("s3cret", "")
	assert.False(t, a.VerifyPassword("anything"))
}
