package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_SlidingWindow(t *testing.T) {
	l := NewIPRateLimiter(2, time.Minute)
	t0 := time.Now()

	assert.False(t, l.recordAndCheck("1.1.1.1", t0, t0.Add(-time.Minute)))
	assert.False(t, l.recordAndCheck("1.1.1.1", t0.Add(time.Second), t0.Add(time.Second-time.Minute)))
	assert.True(t, l.recordAndCheck("1.1.1.1", t0.Add(2*time.Second), t0.Add(2*time.Second-time.Minute)))
	assert.False(t, l.recordAndCheck("2.2.2.2", t0, t0.Add(-time.Minute)), "limits are per client")

	later := t0.Add(time.Minute + time.Millisecond)
	assert.False(t, l.recordAndCheck("1.1.1.1", later, later.Add(-time.Minute)), "first hit left the window")
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	l := NewIPRateLimiter(5, time.Minute)
	t0 := time.Now()

	l.recordAndCheck("old", t0, t0.Add(-time.Minute))
	l.recordAndCheck("fresh", t0.Add(50*time.Second), t0)

	l.Sweep(t0.Add(70 * time.Second))

	assert.NotContains(t, l.hits, "old")
	assert.Contains(t, l.hits, "fresh")
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1, 30*time.Second)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(remote, xff string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1234", "").Code)

	rec := send("10.0.0.1:5678", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	// forwarded header is ignored unless trusted
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1", "9.9.9.9").Code)

	l.TrustForwardedFor = true
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1", "9.9.9.9, 10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2:1", " 9.9.9.9 ").Code)
}
