package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"pixelboard/internal/database"
	"pixelboard/internal/types"
)

func Test_authMiddleware(t *testing.T) {
	app, _ := newTestApp(t, &database.MockPixelBoardRepository{}, clockwork.NewRealClock())

	handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		assert.True(t, ok, "expected user id on the request context")
		assert.Equal(t, 42, userId, "expected user id to match the token")
		w.WriteHeader(http.StatusOK)
	})

	t.Run("no cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code, "expected status code 401")
	})

	t.Run("invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "not-a-token"})
		handler(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "expected status code 401")
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := app.createJwtForSession(types.User{Id: 42}, time.Hour)
		assert.NoError(t, err, "expected no error signing the token")

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})
		handler(w, r)

		assert.Equal(t, http.StatusOK, w.Code, "expected status code 200")
		assert.Contains(t, w.Header().Get("Cache-Control"), "no-store", "expected session responses to be uncacheable")
	})
}

func Test_errorHandler(t *testing.T) {
	app, _ := newTestApp(t, &database.MockPixelBoardRepository{}, clockwork.NewRealClock())

	t.Run("passes through", func(t *testing.T) {
		handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusTeapot, w.Code, "expected the wrapped handler's status code")
	})

	t.Run("recovers from panic", func(t *testing.T) {
		handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code, "expected status code 500")
		assert.Equal(t, "close", w.Header().Get("Connection"), "expected the connection to be closed")
	})
}
