package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/sultan-shell/internal/transport/http/handler"
	"github.com/ErlanBelekov/sultan-shell/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Shell  *handler.ShellHandler
	Auth   *handler.AuthHandler
	Shop   *handler.ShopHandler
	Studio *handler.StudioHandler
}

func NewRouter(logger *slog.Logger, h Handlers, tokens middleware.TokenIssuer, tls bool) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = handler.MaxUploadBytes
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(tls))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	deviceMW := middleware.Device(tokens, tls, logger)

	// Frame and navigation intents
	sh := r.Group("/shell", deviceMW)
	sh.GET("", h.Shell.Get)
	sh.GET("/ws", h.Shell.Stream)
	sh.POST("/navigate", h.Shell.Navigate)
	sh.POST("/back", h.Shell.Back)
	sh.POST("/popstate", h.Shell.PopState)
	sh.POST("/menu/open", h.Shell.OpenMenu)
	sh.POST("/menu/close", h.Shell.CloseMenu)
	sh.POST("/auth-view", h.Shell.AuthView)
	sh.POST("/logout", h.Shell.Logout)
	sh.POST("/splash/finish", h.Shell.FinishSplash)
	sh.POST("/onboarding/finish", h.Shell.FinishOnboarding)

	r.GET("/screen", deviceMW, h.Shell.Screen)

	auth := r.Group("/auth", deviceMW)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/otp/send", h.Auth.SendOTP)
	auth.POST("/otp/login", h.Auth.LoginWithOTP)

	actions := r.Group("/actions", deviceMW)
	actions.POST("/cart/items", h.Shop.AddToCart)
	actions.PATCH("/cart/items/:id", h.Shop.UpdateCartItem)
	actions.DELETE("/cart/items/:id", h.Shop.RemoveCartItem)
	actions.DELETE("/cart", h.Shop.ClearCart)
	actions.POST("/checkout", h.Shop.Checkout)
	actions.POST("/auctions/:id/bids", h.Shop.PlaceBid)
	actions.POST("/contests/:id/entries", h.Shop.Participate)
	actions.PUT("/wishlist/:id", h.Shop.AddToWishlist)
	actions.DELETE("/wishlist/:id", h.Shop.RemoveFromWishlist)
	actions.PUT("/address", h.Shop.UpdateAddress)
	actions.POST("/concierge", h.Studio.Ask)
	actions.POST("/studio/designs", h.Studio.Design)

	return r
}
