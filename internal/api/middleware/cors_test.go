package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCORSEngine(cfg CORSConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(), CORS(cfg))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{name: "allow all", cfg: CORSConfig{AllowAllOrigins: true}, method: http.MethodGet, origin: "https://a.example", wantOrigin: "*", wantStatus: http.StatusOK},
		{name: "listed origin", cfg: CORSConfig{AllowedOrigins: []string{"https://a.example"}}, method: http.MethodGet, origin: "https://A.example", wantOrigin: "https://A.example", wantStatus: http.StatusOK},
		{name: "unlisted origin", cfg: CORSConfig{AllowedOrigins: []string{"https://a.example"}}, method: http.MethodGet, origin: "https://b.example", wantOrigin: "", wantStatus: http.StatusOK},
		{name: "preflight", cfg: CORSConfig{AllowAllOrigins: true}, method: http.MethodOptions, origin: "https://a.example", wantOrigin: "*", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/ping", nil)
			req.Header.Set("Origin", tt.origin)
			newCORSEngine(tt.cfg).ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.method == http.MethodGet && w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.method == http.MethodOptions && w.Code != tt.wantStatus {
				t.Errorf("preflight status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestLogger_RequestID(t *testing.T) {
	r := newCORSEngine(CORSConfig{AllowAllOrigins: true})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get(HeaderRequestID); got != "req-123" {
		t.Errorf("request id = %q, want req-123", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if got := w.Header().Get(HeaderRequestID); len(got) != 36 {
		t.Errorf("generated request id = %q", got)
	}
}
