package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	app, _, _ := newTestApp(t)

	var gotIdentity Identity
	var called bool
	handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = CallerIdentity(r.Context())
		called = true
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, called)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		called = false
		r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "bogus"})

		w := httptest.NewRecorder()
		handler(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, called)
	})

	t.Run("valid token reaches the handler with identity", func(t *testing.T) {
		called = false
		token, err := app.createSessionToken(7, "alice", time.Minute)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})

		w := httptest.NewRecorder()
		handler(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
		assert.Equal(t, Identity{UserId: 7, Username: "alice"}, gotIdentity)
		assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	})
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	app, _, _ := newTestApp(t)

	handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("boom"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"status_code": 500, "message": "internal server error"}`, w.Body.String())
}
