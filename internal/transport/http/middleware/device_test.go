package middleware_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/device"
	"github.com/ErlanBelekov/sultan-shell/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

const testKey = "middleware-test-secret-32-chars!!"

func init() {
	gin.SetMode(gin.TestMode)
}

// newEngine builds a minimal gin engine with the Device middleware guarding
// GET /protected. The handler echoes the device id from both contexts.
func newEngine(tokens *device.Tokens) *gin.Engine {
	r := gin.New()
	r.GET("/protected", middleware.Device(tokens, false, slog.Default()), func(c *gin.Context) {
		if device.FromContext(c.Request.Context()) != c.GetString("deviceID") {
			c.String(http.StatusInternalServerError, "context mismatch")
			return
		}
		c.String(http.StatusOK, "%s", c.GetString("deviceID"))
	})
	return r
}

func TestDevice_NoToken_ProvisionsDevice(t *testing.T) {
	tokens := device.NewTokens([]byte(testKey), time.Hour)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	newEngine(tokens).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	issued := w.Header().Get(middleware.DeviceTokenHeader)
	if issued == "" {
		t.Fatal("expected a device token header")
	}
	id, err := tokens.Verify(issued)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if w.Body.String() != id {
		t.Errorf("body = %q, want %q", w.Body.String(), id)
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.DeviceCookie && c.Value == issued && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("expected an http-only device cookie")
	}
}

func TestDevice_InvalidToken_Returns401(t *testing.T) {
	tokens := device.NewTokens([]byte(testKey), time.Hour)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Device not.a.jwt")
	newEngine(tokens).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestDevice_WrongKey_Returns401(t *testing.T) {
	other := device.NewTokens([]byte("different-key-that-is-32-chars!!"), time.Hour)
	_, tok, err := other.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: middleware.DeviceCookie, Value: tok})
	newEngine(device.NewTokens([]byte(testKey), time.Hour)).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestDevice_ValidToken_SetsDeviceID(t *testing.T) {
	tokens := device.NewTokens([]byte(testKey), time.Hour)
	id, tok, err := tokens.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for name, set := range map[string]func(*http.Request){
		"header": func(r *http.Request) { r.Header.Set("Authorization", "Device "+tok) },
		"cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: middleware.DeviceCookie, Value: tok}) },
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			set(req)
			newEngine(tokens).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if w.Body.String() != id {
				t.Errorf("body = %q, want %q", w.Body.String(), id)
			}
			if w.Header().Get(middleware.DeviceTokenHeader) != "" {
				t.Error("known device must not be re-issued a token")
			}
		})
	}
}
