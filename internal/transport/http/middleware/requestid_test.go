package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ErlanBelekov/sultan-shell/internal/requestid"
	"github.com/ErlanBelekov/sultan-shell/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Security(false))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "%s", requestid.FromContext(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	r.ServeHTTP(w, req)
	if w.Body.String() != "abc" || w.Header().Get("X-Request-ID") != "abc" {
		t.Errorf("incoming request id not preserved: body=%q header=%q", w.Body.String(), w.Header().Get("X-Request-ID"))
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Body.String() == "" || w.Body.String() != w.Header().Get("X-Request-ID") {
		t.Errorf("generated request id mismatch: body=%q header=%q", w.Body.String(), w.Header().Get("X-Request-ID"))
	}
}

func TestRequestID_ReplacesMalformedID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "has spaces\tand tabs")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got == "has spaces\tand tabs" || !requestid.Valid(got) {
		t.Errorf("malformed id echoed: %q", got)
	}
}
