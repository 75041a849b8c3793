package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		cfg    CORSConfig
		want   bool
	}{
		{name: "allow all", origin: "https://x.test", cfg: CORSConfig{AllowAllOrigins: true}, want: true},
		{name: "listed", origin: "https://App.test", cfg: CORSConfig{AllowedOrigins: []string{"https://app.test"}}, want: true},
		{name: "not listed", origin: "https://evil.test", cfg: CORSConfig{AllowedOrigins: []string{"https://app.test"}}, want: false},
		{name: "wildcard entry", origin: "https://x.test", cfg: CORSConfig{AllowedOrigins: []string{"*"}}, want: true},
		{name: "empty list", origin: "https://x.test", cfg: CORSConfig{}, want: true},
		{name: "no origin", origin: "", cfg: CORSConfig{AllowedOrigins: []string{"https://app.test"}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOriginAllowed(tt.origin, tt.cfg); got != tt.want {
				t.Errorf("IsOriginAllowed(%q) = %t, want %t", tt.origin, got, tt.want)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(CORSConfig{AllowedOrigins: []string{"https://app.test"}}))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.test" {
		t.Errorf("Allow-Origin = %q, want https://app.test", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for a disallowed origin, want empty", got)
	}
}

func TestRequestLogger_RequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = logger.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(RequestIDHeader)
	if generated == "" || generated != seen {
		t.Errorf("header %q and context %q, want the same generated id", generated, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if seen != "given-id" || w.Header().Get(RequestIDHeader) != "given-id" {
		t.Errorf("request id = %q, want the incoming header", seen)
	}
}
