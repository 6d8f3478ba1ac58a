package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTokenBucketAllowsUpToCapacity(t *testing.T) {
	l := NewTokenBucket(3, 60)
	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d denied under capacity", i+1)
		}
	}
	if l.allow("1.2.3.4") {
		t.Fatal("request over capacity allowed")
	}
}

func TestTokenBucketIsPerKey(t *testing.T) {
	l := NewTokenBucket(1, 60)
	if !l.allow("a") {
		t.Fatal("first key denied")
	}
	if !l.allow("b") {
		t.Fatal("second key should have its own bucket")
	}
	if l.allow("a") {
		t.Fatal("first key exhausted but allowed")
	}
}

func TestGinMiddlewareRejectsWith429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewTokenBucket(1, 60)
	r := gin.New()
	r.Use(l.GinMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if code := do(); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d, want 429", code)
	}
}
