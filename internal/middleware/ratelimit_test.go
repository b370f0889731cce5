package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestLimiterStore_AllowAndBurst(t *testing.T) {
	// allow 5 events immediately then the 6th should be rejected
	s := NewLimiterStore(5, 5, 100*time.Millisecond)
	defer s.Stop()

	key := "203.0.113.9"
	for i := 0; i < 5; i++ {
		if !s.Allow(key) {
			t.Fatalf("expected allow at iteration %d", i)
		}
	}

	if s.Allow(key) {
		t.Fatalf("expected limiter to block after burst consumed")
	}

	// a different key has its own budget
	if !s.Allow("198.51.100.1") {
		t.Fatal("expected independent key to be allowed")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	s := NewLimiterStore(1, 2, time.Minute)
	defer s.Stop()

	r := gin.New()
	r.POST("/login", RateLimit(s), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", code)
	}
	if code := do(); code != http.StatusOK {
		t.Fatalf("second request should pass (burst), got %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited, got %d", code)
	}
}
