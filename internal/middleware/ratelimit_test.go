package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripchat/backend/internal/middleware"
)

func chatRequest(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/trips/1/chat", nil)
	req.RemoteAddr = remote
	return req
}

// TestRateLimiter_AllowsBurstThenRejects verifies that a client gets its burst
// and is then told to back off.
func TestRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	h := middleware.NewRateLimiter(0.1, 2).Handler(trivialHandler)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, chatRequest("10.0.0.1:4000"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, chatRequest("10.0.0.1:4000"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"rate_limited"`)
}

// TestRateLimiter_ClientsAreIndependent verifies that one noisy client does
// not consume another client's budget. The port is ignored.
func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	h := middleware.NewRateLimiter(0.01, 1).Handler(trivialHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, chatRequest("10.0.0.1:4000"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, chatRequest("10.0.0.1:4001"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, chatRequest("10.0.0.2:4000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestRateLimiter_NonPositiveRateIsClamped verifies that a zero rate still
// yields a finite Retry-After.
func TestRateLimiter_NonPositiveRateIsClamped(t *testing.T) {
	for _, perSecond := range []float64{0, -1} {
		h := middleware.NewRateLimiter(perSecond, 1).Handler(trivialHandler)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, chatRequest("10.0.0.1:4000"))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, chatRequest("10.0.0.1:4000"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	}
}
