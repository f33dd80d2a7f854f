package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
)

// ShopAPI is the customer API bound to one customer's token.
type ShopAPI interface {
	AddToCart(ctx context.Context, in domain.AddToCartInput) error
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
	CreateOrder(ctx context.Context, in domain.CreateOrderInput) (*domain.Order, error)
	Auction(ctx context.Context, id int64) (*domain.Auction, error)
	PlaceBid(ctx context.Context, auctionID int64, amount domain.Amount) error
	Participate(ctx context.Context, contestID int64, caption string, img customerapi.Upload) error
	AddToWishlist(ctx context.Context, productID int64) error
	RemoveFromWishlist(ctx context.Context, productID int64) error
	UpdateProfile(ctx context.Context, in customerapi.ProfileInput) (*domain.UserProfile, error)
}

// MinimumBidError rejects a bid below the auction's current minimum.
type MinimumBidError struct {
	Minimum domain.Amount
}

func (e *MinimumBidError) Error() string {
	return "Minimum bid required is " + e.Minimum.Format()
}

func (e *MinimumBidError) Is(target error) bool { return target == domain.ErrBidTooLow }

type ShopUsecase struct {
	apiFor func(token string) ShopAPI
	logger *slog.Logger
}

func NewShopUsecase(apiFor func(token string) ShopAPI, logger *slog.Logger) *ShopUsecase {
	return &ShopUsecase{apiFor: apiFor, logger: logger.With("component", "shop")}
}

func (u *ShopUsecase) AddToCart(ctx context.Context, token string, in domain.AddToCartInput) error {
	if err := check(&in); err != nil {
		return err
	}
	if err := u.apiFor(token).AddToCart(ctx, in); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

type quantityInput struct {
	ItemID   int64 `json:"item_id" validate:"required"`
	Quantity int   `json:"quantity" validate:"min=0,max=10"`
}

// UpdateCartItem sets an item's quantity; zero removes it.
func (u *ShopUsecase) UpdateCartItem(ctx context.Context, token string, itemID int64, quantity int) error {
	if err := check(&quantityInput{ItemID: itemID, Quantity: quantity}); err != nil {
		return err
	}
	api := u.apiFor(token)
	if quantity == 0 {
		if err := api.RemoveCartItem(ctx, itemID); err != nil {
			return fmt.Errorf("remove cart item: %w", err)
		}
		return nil
	}
	if err := api.UpdateCartItem(ctx, itemID, quantity); err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (u *ShopUsecase) RemoveCartItem(ctx context.Context, token string, itemID int64) error {
	if err := u.apiFor(token).RemoveCartItem(ctx, itemID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (u *ShopUsecase) ClearCart(ctx context.Context, token string) error {
	if err := u.apiFor(token).ClearCart(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// PlaceOrder creates the order and remembers it as the device's last order
// for the confirmation screen.
func (u *ShopUsecase) PlaceOrder(ctx context.Context, token string, store repository.SessionStore, in domain.CreateOrderInput) (*domain.Order, error) {
	if err := check(&in); err != nil {
		return nil, err
	}
	order, err := u.apiFor(token).CreateOrder(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := store.SetSelection(ctx, domain.KeyLastOrderID, strconv.FormatInt(order.ID, 10)); err != nil {
		return nil, fmt.Errorf("store last order: %w", err)
	}
	u.logger.InfoContext(ctx, "order placed", "order_id", order.ID, "total", float64(order.Total))
	return order, nil
}

// PlaceBid checks amount against the auction's live minimum before
// sending it.
func (u *ShopUsecase) PlaceBid(ctx context.Context, token string, auctionID int64, amount domain.Amount) error {
	api := u.apiFor(token)
	a, err := api.Auction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("get auction: %w", err)
	}
	if minBid := a.MinimumBid(); amount < minBid {
		return &MinimumBidError{Minimum: minBid}
	}
	if err := api.PlaceBid(ctx, auctionID, amount); err != nil {
		return fmt.Errorf("place bid: %w", err)
	}
	u.logger.InfoContext(ctx, "bid placed", "auction_id", auctionID, "amount", float64(amount))
	return nil
}

func (u *ShopUsecase) Participate(ctx context.Context, token string, contestID int64, caption string, img customerapi.Upload) error {
	if _, err := customerapi.SniffImage(img.Data); err != nil {
		return err
	}
	if err := u.apiFor(token).Participate(ctx, contestID, strings.TrimSpace(caption), img); err != nil {
		return fmt.Errorf("participate: %w", err)
	}
	return nil
}

func (u *ShopUsecase) SetWishlisted(ctx context.Context, token string, productID int64, on bool) error {
	api := u.apiFor(token)
	var err error
	if on {
		err = api.AddToWishlist(ctx, productID)
	} else {
		err = api.RemoveFromWishlist(ctx, productID)
	}
	if err != nil {
		return fmt.Errorf("update wishlist: %w", err)
	}
	return nil
}

// UpdateAddress saves the customer's address. State is mandatory.
func (u *ShopUsecase) UpdateAddress(ctx context.Context, token string, in customerapi.ProfileInput) (*domain.UserProfile, error) {
	if strings.TrimSpace(in.State) == "" {
		return nil, domain.ErrStateRequired
	}
	if in.Country == "" {
		in.Country = "India"
	}
	user, err := u.apiFor(token).UpdateProfile(ctx, in)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}
