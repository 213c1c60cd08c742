package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(mw echo.MiddlewareFunc, hdr map[string]string) (*httptest.ResponseRecorder, int) {
	e := echo.New()
	hits := 0
	e.GET("/x", func(c echo.Context) error {
		hits++
		return c.NoContent(http.StatusNoContent)
	}, mw)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, hits
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		status int
	}{
		{"disabled", "", "", http.StatusNoContent},
		{"missing", "secret", "", http.StatusUnauthorized},
		{"wrong", "secret", "secreT", http.StatusUnauthorized},
		{"ok", "secret", "secret", http.StatusNoContent},
		{"ok padded", "secret", "  secret ", http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hdr := map[string]string{}
			if tc.header != "" {
				hdr["X-API-Key"] = tc.header
			}
			rec, hits := serve(APIKeyMiddleware(tc.key), hdr)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.status == http.StatusNoContent, hits == 1)
		})
	}
}

func TestRateLimitPassesThroughWhenUnconfigured(t *testing.T) {
	for name, cfg := range map[string]RateLimitConfig{
		"zero rps": {RPS: 0},
		"no redis": {RPS: 5},
		"negative": {RPS: -1},
	} {
		t.Run(name, func(t *testing.T) {
			rec, hits := serve(RateLimitMiddleware(cfg), nil)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, 1, hits)
		})
	}
}

func TestRateLimitFailsOpenWhenRedisUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	rec, hits := serve(RateLimitMiddleware(RateLimitConfig{Redis: rdb, RPS: 1}), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, hits)
}

// liveRedis connects to SQLPERF_TEST_REDIS_ADDR and skips the test when it is unset or down.
func liveRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("SQLPERF_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SQLPERF_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis at %s unavailable: %v", addr, err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	rdb := liveRedis(t)

	e := echo.New()
	hits := 0
	e.GET("/x", func(c echo.Context) error {
		hits++
		return c.NoContent(http.StatusNoContent)
	}, RateLimitMiddleware(RateLimitConfig{
		Redis:          rdb,
		RPS:            2,
		KeyPrefix:      "rl:test:" + strconv.FormatInt(time.Now().UnixNano(), 10) + ":",
		Window:         time.Minute,
		RetryAfterHint: true,
	}))

	get := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":4242"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, get("192.0.2.1").Code)
	assert.Equal(t, http.StatusNoContent, get("192.0.2.1").Code)

	rec := get("192.0.2.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.LessOrEqual(t, retry, 60)
	assert.JSONEq(t, `{"error": "rate limited"}`, rec.Body.String())

	// other clients have their own window
	assert.Equal(t, http.StatusNoContent, get("192.0.2.2").Code)
	assert.Equal(t, 3, hits)
}
