package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimit_Burst(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("192.168.1.1:12345"))

		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(4-i), w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.1:9999"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retry)
	assert.LessOrEqual(t, retry, 30)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "rate_limited", body["error"])
}

func TestRateLimit_RejectedDoesNotConsume(t *testing.T) {
	s := newLimiterSet(RateLimitConfig{Max: 1, Window: time.Minute})
	handler := s.middleware()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.9:1"))
	require.Equal(t, http.StatusOK, w.Code)

	for range 3 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("10.0.0.9:1"))
		require.Equal(t, http.StatusTooManyRequests, w.Code)
	}

	l := s.get("10.0.0.9", time.Now())
	// One token is owed; rejected requests must not deepen the debt.
	assert.Greater(t, l.TokensAt(time.Now()), -0.5)
}

func TestRateLimit_SeparateClients(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom(addr))
		assert.Equal(t, http.StatusOK, w.Code, addr)
	}
}

func TestRateLimit_CustomKey(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-Client") },
	})(okHandler())

	req := func(client string) int {
		r := requestFrom("10.0.0.1:1")
		r.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, req("a"))
	assert.Equal(t, http.StatusTooManyRequests, req("a"))
	assert.Equal(t, http.StatusOK, req("b"))
}

func TestLimiterSet_Evict(t *testing.T) {
	s := newLimiterSet(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()

	s.get("stale", now.Add(-2*time.Minute))
	s.get("fresh", now)
	s.evict(now)

	assert.NotContains(t, s.clients, "stale")
	assert.Contains(t, s.clients, "fresh")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted bool
		header  map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "1.2.3.4:5678", want: "1.2.3.4"},
		{name: "remote without port", remote: "1.2.3.4", want: "1.2.3.4"},
		{name: "forwarded ignored", header: map[string]string{"X-Forwarded-For": "9.9.9.9"}, remote: "1.2.3.4:1", want: "1.2.3.4"},
		{name: "real ip ignored", header: map[string]string{"X-Real-IP": "8.8.8.8"}, remote: "1.2.3.4:1", want: "1.2.3.4"},
		{name: "trusted forwarded list", trusted: true, header: map[string]string{"X-Forwarded-For": " 9.9.9.9 , 10.0.0.1"}, remote: "1.2.3.4:1", want: "9.9.9.9"},
		{name: "trusted real ip", trusted: true, header: map[string]string{"X-Real-IP": "8.8.8.8"}, remote: "1.2.3.4:1", want: "8.8.8.8"},
		{name: "trusted without headers", trusted: true, remote: "1.2.3.4:1", want: "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := requestFrom(tt.remote)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			s := newLimiterSet(RateLimitConfig{Max: 1, Window: time.Minute, TrustForwarded: tt.trusted})
			assert.Equal(t, tt.want, s.cfg.KeyFunc(r))
		})
	}
}

func TestRateLimit_SpoofedForwardedFor(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		r := requestFrom("1.2.3.4:1")
		r.Header.Set("X-Forwarded-For", strconv.Itoa(i)+".0.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, want, w.Code)
	}
}
