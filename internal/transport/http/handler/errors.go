package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/shell"
	"github.com/ErlanBelekov/sultan-shell/internal/usecase"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer    = "Internal server error"
	errInvalidBody       = "Invalid request body"
	errValidation        = "The given data was invalid."
	errSessionExpired    = "Your session has expired. Please sign in again."
	errLoginRequired     = "Please sign in to continue."
	errStale             = "The screen changed while loading"
	errUpstream          = "Something went wrong"
	errStateRequired     = "Please select a state."
	errUnsupportedUpload = "Please upload a JPEG, PNG, WEBP or HEIC image."
	errInvalidView       = "Unknown view"
	errBidRefused        = "The vault refused your bid."
	errAddressFailed     = "Failed to update address."
	errWishlistFailed    = "Could not update your wishlist."

	msgBidPlaced       = "Bid placed successfully!"
	msgAddressUpdated  = "Address updated with distinction."
	msgEntrySubmitted  = "Your entry has been submitted."
	msgOTPSent         = "OTP sent."
	msgCartUpdated     = "Cart updated."
	msgAddedToCart     = "Added to cart."
	msgCartCleared     = "Cart cleared."
	msgWishlistAdded   = "Added to wishlist."
	msgWishlistRemoved = "Removed from wishlist."
)

// writeError maps err onto a status code and an {"error": ...} body.
// Anything unrecognised is logged and reported as a 500.
func writeError(c *gin.Context, logger *slog.Logger, op string, err error) {
	var (
		ve     *domain.ValidationError
		bidErr *usecase.MinimumBidError
		apiErr *customerapi.Error
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": errValidation, "fields": ve.Fields})
	case errors.As(err, &bidErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": bidErr.Error()})
	case errors.Is(err, domain.ErrStateRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": errStateRequired})
	case errors.Is(err, domain.ErrUnsupportedUpload):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": errUnsupportedUpload})
	case errors.Is(err, domain.ErrInvalidView):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidView})
	case errors.Is(err, domain.ErrTokenInvalid):
		logger.WarnContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": errUpstream})
	case errors.Is(err, shell.ErrStaleResponse):
		c.JSON(http.StatusConflict, gin.H{"error": errStale})
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		body := gin.H{"error": apiErr.Message}
		if apiErr.Message == "" {
			body["error"] = errUpstream
		}
		if len(apiErr.Fields) > 0 {
			body["fields"] = apiErr.Fields
		}
		c.JSON(apiErr.Status, body)
	case errors.As(err, &apiErr):
		logger.WarnContext(c.Request.Context(), op, "status", apiErr.Status, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": errUpstream, "retry": true})
	case errors.Is(err, context.Canceled):
		logger.DebugContext(c.Request.Context(), op+" cancelled")
		c.Status(http.StatusServiceUnavailable)
	default:
		logger.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
