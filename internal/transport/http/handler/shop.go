package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/navigation"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
	"github.com/gin-gonic/gin"
)

// MaxUploadBytes caps a contest entry image.
const MaxUploadBytes = 10 << 20

type shopUsecaser interface {
	AddToCart(ctx context.Context, token string, in domain.AddToCartInput) error
	UpdateCartItem(ctx context.Context, token string, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, token string, itemID int64) error
	ClearCart(ctx context.Context, token string) error
	PlaceOrder(ctx context.Context, token string, store repository.SessionStore, in domain.CreateOrderInput) (*domain.Order, error)
	PlaceBid(ctx context.Context, token string, auctionID int64, amount domain.Amount) error
	Participate(ctx context.Context, token string, contestID int64, caption string, img customerapi.Upload) error
	SetWishlisted(ctx context.Context, token string, productID int64, on bool) error
	UpdateAddress(ctx context.Context, token string, in customerapi.ProfileInput) (*domain.UserProfile, error)
}

type ShopHandler struct {
	shop   shopUsecaser
	shell  Shell
	logger *slog.Logger
}

func NewShopHandler(shop shopUsecaser, sh Shell, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{shop: shop, shell: sh, logger: logger.With("component", "shop_handler")}
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type bidRequest struct {
	Amount domain.Amount `json:"amount" binding:"required"`
}

func (h *ShopHandler) AddToCart(c *gin.Context) {
	var req domain.AddToCartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	sess, ok := requireSession(c, h.shell, h.logger)
	if !ok {
		return
	}
	if err := h.shop.AddToCart(c.Request.Context(), sess.Token, req); err != nil {
		actionFailed(c, h.shell, h.logger, "add to cart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgAddedToCart})
}

func (h *ShopHandler) UpdateCartItem(c *gin.Context) {
	itemID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	sess, ok := requireSession(c, h.shell, h.logger)
	if !ok {
		return
	}
	if err := h.shop.UpdateCartItem(c.Request.Context(), sess.Token, itemID, *req.Quantity); err != nil {
		actionFailed(c, h.shell, h.logger, "update cart item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgCartUpdated})
}

func (h *ShopHandler) RemoveCartItem(c *gin.Context) {
	itemID, ok := idParam(c, "id")
	if !ok {
		return
	}
	sess, ok := requireSession(c, h.shell, h.logger)
	if !ok {
		return
	}
	if err := h.shop.RemoveCartItem(c.Request.Context(), sess.Token, itemID); err != nil {
		actionFailed(c, h.shell, h.logger, "remove cart item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgCartUpdated})
}

func (h *ShopHandler) ClearCart(c *gin.Context) {
	sess, ok := requireSession(c, h.shell, h.logger)
	if !ok {
		return
	}
	if err := h.shop.ClearCart(c.Request.Context(), sess.Token); err != nil {
		actionFailed(c, h.shell, h.logger, "clear cart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgCartCleared})
}

// Checkout places the order and moves the device to the confirmation
// screen.
func (h *ShopHandler) Checkout(c *gin.Context) {
	var req domain.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	sess, ok := requireSession(c, h.shell, h.logger)
	if !ok {
		return
	}
	order, err := h.shop.PlaceOrder(c.Request.Context(), sess.Token, sess.Store, req)
	if err != nil {
		actionFailed(c, h.shell, h.logger, "place order", err)
		return
	}
	snap, err := h.shell.Do(c.Request.Context(), c.GetString("deviceID"), func(ctx context.Context, ctrl *navigation.Controller) error {
		return ctrl.NavigateTo(ctx, domain.ViewOrderSuccess, navigation.Params{OrderID: order.ID})
	})
	if err != nil {
		// the order exists; only the confirmation screen is lost
		h.logger.ErrorContext(c.Request.Context(), "show order success", "order_id", order.ID, "error", err)
	}
	c.JSON(http.StatusCreated, gin.H{"order": order, "shell": snap})
}

func (h *ShopHandler) PlaceBid(c *gin.Context) {
	auctionID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	sess, ok := requireSession(c, h.shell, h.logger)
	if !ok {
		return
	}
	err := h.shop.PlaceBid(c.Request.Context(), sess.Token, auctionID, req.Amount)
	var apiErr *customerapi.Error
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": msgBidPlaced})
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusUnauthorized:
		msg := apiErr.Message
		if msg == "" {
			msg = errBidRefused
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
	default:
		actionFailed(c, h.shell, h.logger, "place bid", err)
	}
}

// Participate accepts a multipart contest entry: a "caption" field and an
// "image" file.
func (h *ShopHandler) Participate(c *gin.Context) {
	contestID, ok := idParam(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An image is required"})
		return
	}
	if fh.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, h.logger, "open upload", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes))
	if err != nil {
		writeError(c, h.logger, "read upload", err)
		return
	}

	sess, ok := requireSession(c, h.shell, h.logger)
	if !ok {
		return
	}
	img := customerapi.Upload{Filename: fh.Filename, Data: data}
	if err := h.shop.Participate(c.Request.Context(), sess.Token, contestID, c.PostForm("caption"), img); err != nil {
		actionFailed(c, h.shell, h.logger, "participate", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msgEntrySubmitted})
}

func (h *ShopHandler) AddToWishlist(c *gin.Context) {
	h.wishlist(c, true)
}

func (h *ShopHandler) RemoveFromWishlist(c *gin.Context) {
	h.wishlist(c, false)
}

// wishlist failures are advisory: the product screen keeps working and the
// renderer shows a toast.
func (h *ShopHandler) wishlist(c *gin.Context, on bool) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	sess, ok := requireSession(c, h.shell, h.logger)
	if !ok {
		return
	}
	if err := h.shop.SetWishlisted(c.Request.Context(), sess.Token, productID, on); err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			actionFailed(c, h.shell, h.logger, "wishlist", err)
			return
		}
		h.logger.WarnContext(c.Request.Context(), "wishlist", "product_id", productID, "error", err)
		c.JSON(http.StatusOK, gin.H{"wishlisted": !on, "toast": errWishlistFailed})
		return
	}
	msg := msgWishlistAdded
	if !on {
		msg = msgWishlistRemoved
	}
	c.JSON(http.StatusOK, gin.H{"wishlisted": on, "toast": msg})
}

// UpdateAddress saves the address and refreshes the stored profile.
func (h *ShopHandler) UpdateAddress(c *gin.Context) {
	var req customerapi.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	sess, ok := requireSession(c, h.shell, h.logger)
	if !ok {
		return
	}
	user, err := h.shop.UpdateAddress(c.Request.Context(), sess.Token, req)
	var apiErr *customerapi.Error
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStateRequired), errors.Is(err, domain.ErrUnauthenticated):
		actionFailed(c, h.shell, h.logger, "update address", err)
		return
	case errors.As(err, &apiErr) && len(apiErr.Fields) > 0:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": errAddressFailed, "fields": apiErr.Fields})
		return
	default:
		h.logger.WarnContext(c.Request.Context(), "update address", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": errAddressFailed})
		return
	}

	snap, err := h.shell.Do(c.Request.Context(), c.GetString("deviceID"), func(ctx context.Context, ctrl *navigation.Controller) error {
		return ctrl.UpdateProfile(ctx, user)
	})
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "store profile", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": msgAddressUpdated, "shell": snap})
}
