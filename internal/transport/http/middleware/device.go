package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/sultan-shell/internal/device"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized = "Unauthorized"

	// DeviceCookie carries the device token for browser renderers.
	DeviceCookie = "sultan_device"
	// DeviceTokenHeader returns a freshly issued token to non-browser renderers.
	DeviceTokenHeader = "X-Device-Token"

	deviceScheme = "Device "
)

type TokenIssuer interface {
	Issue() (id, token string, err error)
	Verify(raw string) (string, error)
}

// Device identifies the calling device and sets "deviceID" in the gin
// context and the request context. A request without a token is a new
// device: one is issued and returned as a cookie and a header. A token
// that does not verify is rejected.
func Device(tokens TokenIssuer, secureCookie bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := deviceToken(c)

		var id string
		if raw == "" {
			newID, token, err := tokens.Issue()
			if err != nil {
				logger.ErrorContext(c.Request.Context(), "issue device token", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			id = newID
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(DeviceCookie, token, 0, "/", "", secureCookie, true)
			c.Header(DeviceTokenHeader, token)
			logger.InfoContext(c.Request.Context(), "device provisioned", "device_id", id)
		} else {
			verified, err := tokens.Verify(raw)
			if err != nil {
				if !errors.Is(err, device.ErrInvalidToken) {
					logger.WarnContext(c.Request.Context(), "verify device token", "error", err)
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
				return
			}
			id = verified
		}

		c.Request = c.Request.WithContext(device.WithID(c.Request.Context(), id))
		c.Set("deviceID", id)
		c.Next()
	}
}

func deviceToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, deviceScheme) {
		return strings.TrimSpace(strings.TrimPrefix(h, deviceScheme))
	}
	if cookie, err := c.Cookie(DeviceCookie); err == nil {
		return cookie
	}
	// websocket upgrades from browsers cannot set headers
	return c.Query("device_token")
}
