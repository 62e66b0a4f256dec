package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cppla/chirp/identity"
)

type stubVerifier struct {
	tokens map[string]string
}

func (s stubVerifier) Verify(ctx context.Context, raw string) (*identity.SessionClaims, error) {
	sub, ok := s.tokens[raw]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &identity.SessionClaims{SessionID: "sess_1", RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}, nil
}

func whoami(ctx *gin.Context) {
	uid, ok := CurrentUserID(ctx)
	if !ok {
		ctx.String(http.StatusOK, "anonymous")
		return
	}
	ctx.String(http.StatusOK, uid)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/whoami", whoami)
	return r
}

func request(r http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionAuth(t *testing.T) {
	r := newEngine(SessionAuth(stubVerifier{tokens: map[string]string{"good": "user_1"}}))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous", "", http.StatusOK, "anonymous"},
		{"valid", "Bearer good", http.StatusOK, "user_1"},
		{"case insensitive scheme", "bearer good", http.StatusOK, "user_1"},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"empty token", "Bearer  ", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := request(r, tc.header)
			require.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				require.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestSessionAuthDisabled(t *testing.T) {
	r := newEngine(SessionAuth(nil))
	w := request(r, "Bearer anything")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "anonymous", w.Body.String())
}

func TestSessionRequired(t *testing.T) {
	r := newEngine(SessionAuth(stubVerifier{tokens: map[string]string{"good": "user_1"}}), SessionRequired())

	require.Equal(t, http.StatusUnauthorized, request(r, "").Code)
	w := request(r, "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user_1", w.Body.String())
}

func TestIPThrottle(t *testing.T) {
	th := NewIPThrottle(4) // burst of 2
	r := newEngine(th.Middleware())

	require.Equal(t, http.StatusOK, request(r, "").Code)
	require.Equal(t, http.StatusOK, request(r, "").Code)
	w := request(r, "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "15", w.Header().Get("Retry-After"))

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGinzapLogsRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newEngine(Ginzap(zap.New(core), "2006-01-02T15:04:05Z07:00", true))

	w := request(r, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("/whoami").All()
	require.Len(t, entries, 1)
	require.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
}

func TestRecoveryWithZap(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryWithZap(zap.New(core), true))
	r.GET("/panic", func(ctx *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), `"code":50000`)
	entries := logs.All()
	require.Len(t, entries, 1)
	require.NotContains(t, entries[0].ContextMap()["request"], "secret-token")
}
