package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowPerWorkspace(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()

	// Burst of 2, then refused.
	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	// Each workspace has its own bucket.
	assert.True(t, rl.Allow(2))
}

func rateLimitedRequest(t *testing.T, rl *RateLimiter, workspaceID int32) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if workspaceID != 0 {
		req = req.WithContext(context.WithValue(req.Context(), WorkspaceIDKey, workspaceID))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RateLimitMiddleware(rl)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	rec := rateLimitedRequest(t, rl, 1)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = rateLimitedRequest(t, rl, 1)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate-limit")
}

func TestRateLimitMiddleware_SkipsUnauthenticated(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	// Requests without a workspace pass through untouched however many
	// arrive.
	for i := 0; i < 5; i++ {
		rec := rateLimitedRequest(t, rl, 0)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
