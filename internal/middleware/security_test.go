package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcliqseX/vetsim/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	return r
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	w := do(newRouter(SecurityHeaders()), http.MethodGet, "/ping", nil)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "HSTS only in release mode")
}

func TestCorrelationID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.incoming != "" {
				header["X-Correlation-ID"] = tt.incoming
			}

			w := do(newRouter(CorrelationID()), http.MethodGet, "/ping", header)

			got := w.Header().Get("X-Correlation-ID")
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS([]string{"http://clinic.local"}))

	allowed := do(r, http.MethodGet, "/ping", map[string]string{"Origin": "http://clinic.local"})
	assert.Equal(t, "http://clinic.local", allowed.Header().Get("Access-Control-Allow-Origin"))

	denied := do(r, http.MethodGet, "/ping", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, denied.Header().Get("Access-Control-Allow-Origin"))

	preflight := do(r, http.MethodOptions, "/ping", map[string]string{"Origin": "http://clinic.local"})
	assert.Equal(t, http.StatusNoContent, preflight.Code)
}

func TestCORS_Wildcard(t *testing.T) {
	w := do(newRouter(CORS([]string{"*"})), http.MethodGet, "/ping", map[string]string{"Origin": "http://any.example"})

	assert.Equal(t, "http://any.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	r := newRouter(CorrelationID(), RateLimit(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", nil).Code)

	w := do(r, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrRateLimit)
}

func TestRateLimit_Disabled(t *testing.T) {
	r := newRouter(RateLimit(domain.RateLimitConfig{Enabled: false, RequestsPerSecond: 0.001, Burst: 1}))

	for range 5 {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", nil).Code)
	}
}

func TestAuditLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newRouter(CorrelationID(), AuditLogger(logger))

	do(r, http.MethodGet, "/ping", map[string]string{"X-Correlation-ID": "req-1"})
	do(r, http.MethodGet, "/missing", nil)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-1", entries[0].Data["correlation_id"])
	assert.Equal(t, http.StatusOK, entries[0].Data["status"])
	assert.Equal(t, "/ping", entries[0].Data["route"])
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
}

func TestRecovery(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newRouter(CorrelationID(), Recovery(logger))

	w := do(r, http.MethodGet, "/boom", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrInternalServer)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "kaboom", hook.LastEntry().Data["panic"])
}

type requestLog struct {
	routes   []string
	statuses []int
}

func (l *requestLog) ObserveRequest(_ string, route string, status int, _ time.Duration) {
	l.routes = append(l.routes, route)
	l.statuses = append(l.statuses, status)
}

func TestMetrics(t *testing.T) {
	obs := &requestLog{}
	r := newRouter(Metrics(obs))

	do(r, http.MethodGet, "/ping", nil)
	do(r, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, []string{"/ping", "unmatched"}, obs.routes)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, obs.statuses)
}
