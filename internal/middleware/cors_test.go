package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(origins ...string) *gin.Engine {
	r := gin.New()
	r.Use(CORS(origins...))
	r.GET("/api/projects", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/projects", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func corsRequest(r *gin.Engine, method, origin string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/api/projects", nil)
	req.Header.Set("Origin", origin)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCORS_AnyOriginByDefault(t *testing.T) {
	w := corsRequest(corsRouter(), http.MethodGet, "http://localhost:5173", nil)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing Access-Control-Allow-Origin")
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
	if exposed := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(strings.ToLower(exposed), strings.ToLower(HeaderRequestID)) {
		t.Errorf("Expose-Headers = %q, want %s", exposed, HeaderRequestID)
	}
}

func TestCORS_Preflight(t *testing.T) {
	w := corsRequest(corsRouter(), http.MethodOptions, "http://localhost:5173", map[string]string{
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "Authorization, Content-Type, " + HeaderRequestID,
	})

	if w.Code != http.StatusNoContent && w.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", w.Code)
	}
	allowed := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
	for _, h := range []string{"authorization", "content-type", strings.ToLower(HeaderRequestID)} {
		if !strings.Contains(allowed, h) {
			t.Errorf("Allow-Headers %q missing %s", allowed, h)
		}
	}
}

func TestCORS_ConfiguredOrigins(t *testing.T) {
	r := corsRouter("https://app.example.com")

	w := corsRequest(r, http.MethodGet, "https://app.example.com", nil)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("listed origin: Allow-Origin = %q", got)
	}

	w = corsRequest(r, http.MethodGet, "https://evil.example.com", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("unlisted origin: status %d, want %d", w.Code, http.StatusForbidden)
	}
}
