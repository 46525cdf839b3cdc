package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/themobileprof/commandbot/internal/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"no origin", nil, "", http.MethodGet, "*", http.StatusOK},
		{"reflect any", nil, "http://localhost:3000", http.MethodGet, "http://localhost:3000", http.StatusOK},
		{"allow listed", []string{"https://bot.example"}, "https://bot.example", http.MethodGet, "https://bot.example", http.StatusOK},
		{"not listed", []string{"https://bot.example"}, "https://evil.example", http.MethodGet, "", http.StatusOK},
		{"preflight", nil, "http://localhost:3000", http.MethodOptions, "http://localhost:3000", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.allowed...))
			r.Any("/command", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/command", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://app.example"}
	if !OriginAllowed(allowed, "https://app.example") {
		t.Error("listed origin rejected")
	}
	if OriginAllowed(allowed, "https://evil.example") {
		t.Error("foreign origin allowed")
	}
	if !OriginAllowed(nil, "https://anything.example") {
		t.Error("empty list must allow any origin")
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "connect-src 'self' ws: wss:") {
		t.Errorf("CSP missing websocket source: %q", csp)
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS set on plain HTTP: %q", got)
	}
}

func TestPerIP(t *testing.T) {
	r := gin.New()
	r.Use(PerIP(2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("second client status = %d", w.Code)
	}
}

func TestWebSocketLimiter(t *testing.T) {
	l := NewWebSocketLimiter(2)
	if !l.Allow() || !l.Allow() {
		t.Fatal("burst should allow two messages")
	}
	if l.Allow() {
		t.Error("third message should be throttled")
	}
}

func TestRequestID(t *testing.T) {
	var fromContext string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		fromContext = router.RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("response id %q is not a UUID", id)
		}
		if fromContext != id {
			t.Errorf("context id = %q, header id = %q", fromContext, id)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		const id = "6f1c1a52-2d0b-4a4e-9a53-1d2b3c4d5e6f"
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, id)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != id {
			t.Errorf("header id = %q, want %q", got, id)
		}
	})

	t.Run("garbage replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got == "<script>" {
			t.Error("invalid request id echoed back")
		}
	})
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Message != "request handled" || entries[1].Message != "request rejected" {
		t.Errorf("messages = %q, %q", entries[0].Message, entries[1].Message)
	}
	if entries[0].ContextMap()["request_id"] == "" {
		t.Error("request_id not logged")
	}
}
