package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMemoryRateStoreFixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryRateStore(WithRateClock(func() time.Time { return now }))

	for i := 1; i <= 3; i++ {
		count, ttl, err := store.Increment(context.Background(), "k", time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, count)
		require.Equal(t, time.Minute, ttl)
	}

	// a new window starts once the old one ends
	now = now.Add(61 * time.Second)
	count, _, err := store.Increment(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	router := gin.New()
	store := NewMemoryRateStore()
	router.GET("/ping", RateLimit(store, "test", 2, time.Minute, KeyByClientIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitRejectsWithResetTime(t *testing.T) {
	router := gin.New()
	store := NewMemoryRateStore()
	router.GET("/ping", RateLimit(store, "test", 1, time.Hour, KeyByClientIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body struct {
		Error     string `json:"error"`
		ResetTime string `json:"resetTime"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Error)

	reset, err := time.Parse(time.RFC3339, body.ResetTime)
	require.NoError(t, err)
	require.True(t, reset.After(time.Now()))
}

func TestRateLimitSeparateKeysSeparateBudgets(t *testing.T) {
	router := gin.New()
	store := NewMemoryRateStore()
	router.GET("/ping", RateLimit(store, "test", 1, time.Hour, KeyByClientIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	first := httptest.NewRequest(http.MethodGet, "/ping", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	second := httptest.NewRequest(http.MethodGet, "/ping", nil)
	second.RemoteAddr = "10.0.0.2:1234"

	w := httptest.NewRecorder()
	router.ServeHTTP(w, first)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, second)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitDisabledWithoutStore(t *testing.T) {
	router := gin.New()
	router.GET("/ping", RateLimit(nil, "test", 1, time.Minute, KeyByClientIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
