package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotentRouter(t *testing.T, calls *int32) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger, _ := test.NewNullLogger()

	r := gin.New()
	r.Use(RequestID())
	r.Use(IdempotencyMiddleware(client, logger))
	r.POST("/v1/trips/:id/start", func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "call": n})
	})
	r.POST("/v1/trips/:id/cancel", func(c *gin.Context) {
		atomic.AddInt32(calls, 1)
		c.JSON(http.StatusConflict, gin.H{"error": "INVALID_STATUS"})
	})
	return r, mr
}

func post(r http.Handler, path, key string) *httptest.ResponseRecorder {
	return postBody(r, path, key, "{}")
}

func postBody(r http.Handler, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var calls int32
	r, _ := newIdempotentRouter(t, &calls)

	first := post(r, "/v1/trips/t1/start", "key-1")
	second := post(r, "/v1/trips/t1/start", "key-1")

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotency_KeyReusedWithDifferentBody(t *testing.T) {
	var calls int32
	r, _ := newIdempotentRouter(t, &calls)

	first := postBody(r, "/v1/trips/t1/start", "key-4", `{"trailer_id":"trailer-1"}`)
	require.Equal(t, http.StatusOK, first.Code)

	reused := postBody(r, "/v1/trips/t1/start", "key-4", `{"trailer_id":"trailer-2"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)
	assert.Contains(t, reused.Body.String(), CodeIdempotencyKeyReused)
	assert.Empty(t, reused.Header().Get("Idempotent-Replay"))

	// The original body still replays.
	again := postBody(r, "/v1/trips/t1/start", "key-4", `{"trailer_id":"trailer-1"}`)
	assert.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, first.Body.String(), again.Body.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotency_HandlerSeesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger, _ := test.NewNullLogger()

	r := gin.New()
	r.Use(IdempotencyMiddleware(client, logger))
	r.POST("/v1/trips/:id/pause", func(c *gin.Context) {
		var body struct {
			Location string `json:"location"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"location": body.Location})
	})

	w := postBody(r, "/v1/trips/t1/pause", "key-5", `{"location":"Warehouse"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"location":"Warehouse"}`, w.Body.String())
}

func TestIdempotency_KeyScopedByPath(t *testing.T) {
	var calls int32
	r, _ := newIdempotentRouter(t, &calls)

	post(r, "/v1/trips/t1/start", "key-1")
	post(r, "/v1/trips/t2/start", "key-1")

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_ReplaysClientErrors(t *testing.T) {
	var calls int32
	r, _ := newIdempotentRouter(t, &calls)

	first := post(r, "/v1/trips/t1/cancel", "key-2")
	second := post(r, "/v1/trips/t1/cancel", "key-2")

	assert.Equal(t, http.StatusConflict, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotency_WithoutKeyOrRedis(t *testing.T) {
	var calls int32
	r, mr := newIdempotentRouter(t, &calls)

	post(r, "/v1/trips/t1/start", "")
	post(r, "/v1/trips/t1/start", "")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	mr.Close()
	w := post(r, "/v1/trips/t1/start", "key-3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	r := gin.New()
	r.Use(RequestID())
	r.Use(RequestLogger(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "req-42", entry.Data["request_id"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
