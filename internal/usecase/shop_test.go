package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/memory"
	"github.com/ErlanBelekov/sultan-shell/internal/usecase"
)

type fakeShopAPI struct {
	addToCart          func(ctx context.Context, in domain.AddToCartInput) error
	updateCartItem     func(ctx context.Context, itemID int64, quantity int) error
	removeCartItem     func(ctx context.Context, itemID int64) error
	clearCart          func(ctx context.Context) error
	createOrder        func(ctx context.Context, in domain.CreateOrderInput) (*domain.Order, error)
	auction            func(ctx context.Context, id int64) (*domain.Auction, error)
	placeBid           func(ctx context.Context, auctionID int64, amount domain.Amount) error
	participate        func(ctx context.Context, contestID int64, caption string, img customerapi.Upload) error
	addToWishlist      func(ctx context.Context, productID int64) error
	removeFromWishlist func(ctx context.Context, productID int64) error
	updateProfile      func(ctx context.Context, in customerapi.ProfileInput) (*domain.UserProfile, error)
}

func (f *fakeShopAPI) AddToCart(ctx context.Context, in domain.AddToCartInput) error {
	return f.addToCart(ctx, in)
}

func (f *fakeShopAPI) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	return f.updateCartItem(ctx, itemID, quantity)
}

func (f *fakeShopAPI) RemoveCartItem(ctx context.Context, itemID int64) error {
	return f.removeCartItem(ctx, itemID)
}

func (f *fakeShopAPI) ClearCart(ctx context.Context) error { return f.clearCart(ctx) }

func (f *fakeShopAPI) CreateOrder(ctx context.Context, in domain.CreateOrderInput) (*domain.Order, error) {
	return f.createOrder(ctx, in)
}

func (f *fakeShopAPI) Auction(ctx context.Context, id int64) (*domain.Auction, error) {
	return f.auction(ctx, id)
}

func (f *fakeShopAPI) PlaceBid(ctx context.Context, auctionID int64, amount domain.Amount) error {
	return f.placeBid(ctx, auctionID, amount)
}

func (f *fakeShopAPI) Participate(ctx context.Context, contestID int64, caption string, img customerapi.Upload) error {
	return f.participate(ctx, contestID, caption, img)
}

func (f *fakeShopAPI) AddToWishlist(ctx context.Context, productID int64) error {
	return f.addToWishlist(ctx, productID)
}

func (f *fakeShopAPI) RemoveFromWishlist(ctx context.Context, productID int64) error {
	return f.removeFromWishlist(ctx, productID)
}

func (f *fakeShopAPI) UpdateProfile(ctx context.Context, in customerapi.ProfileInput) (*domain.UserProfile, error) {
	return f.updateProfile(ctx, in)
}

func newShop(t *testing.T, api *fakeShopAPI) *usecase.ShopUsecase {
	t.Helper()
	return usecase.NewShopUsecase(func(token string) usecase.ShopAPI {
		if token != "tok" {
			t.Errorf("token = %q, want tok", token)
		}
		return api
	}, discard)
}

// ---- PlaceBid ----

func TestPlaceBid_BelowMinimumIsRejectedLocally(t *testing.T) {
	api := &fakeShopAPI{
		auction: func(context.Context, int64) (*domain.Auction, error) {
			return &domain.Auction{ID: 1, StartingBid: 50000}, nil
		},
		placeBid: func(context.Context, int64, domain.Amount) error {
			t.Fatal("bid below minimum must not be sent")
			return nil
		},
	}

	err := newShop(t, api).PlaceBid(context.Background(), "tok", 1, 50049)
	if !errors.Is(err, domain.ErrBidTooLow) {
		t.Fatalf("err = %v, want ErrBidTooLow", err)
	}
	if want := "Minimum bid required is ₹50,050"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestPlaceBid_AtMinimumIsSent(t *testing.T) {
	var sent domain.Amount
	api := &fakeShopAPI{
		auction: func(context.Context, int64) (*domain.Auction, error) {
			return &domain.Auction{ID: 1, StartingBid: 1000, CurrentBid: 2000, BidIncrement: 500}, nil
		},
		placeBid: func(_ context.Context, _ int64, amount domain.Amount) error {
			sent = amount
			return nil
		},
	}

	if err := newShop(t, api).PlaceBid(context.Background(), "tok", 1, 2500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 2500 {
		t.Errorf("sent = %v, want 2500", sent)
	}
}

// ---- PlaceOrder ----

func TestPlaceOrder_RemembersLastOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := memory.NewDeviceStore().Open(ctx, "d1")
	api := &fakeShopAPI{
		createOrder: func(_ context.Context, in domain.CreateOrderInput) (*domain.Order, error) {
			if in.PaymentGateway != "razorpay" {
				t.Errorf("gateway = %q", in.PaymentGateway)
			}
			return &domain.Order{ID: 77, Total: 10}, nil
		},
	}

	order, err := newShop(t, api).PlaceOrder(ctx, "tok", store, domain.CreateOrderInput{PaymentGateway: "razorpay"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, _ := store.Selection(ctx, domain.KeyLastOrderID)
	if !ok || got != "77" || order.ID != 77 {
		t.Errorf("last_order_id = %q (ok=%v), want 77", got, ok)
	}
}

func TestPlaceOrder_RequiresGateway(t *testing.T) {
	ctx := context.Background()
	store, _ := memory.NewDeviceStore().Open(ctx, "d1")

	_, err := newShop(t, &fakeShopAPI{}).PlaceOrder(ctx, "tok", store, domain.CreateOrderInput{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

// ---- Cart ----

func TestUpdateCartItem_ZeroRemoves(t *testing.T) {
	var removed int64
	api := &fakeShopAPI{
		removeCartItem: func(_ context.Context, id int64) error {
			removed = id
			return nil
		},
		updateCartItem: func(context.Context, int64, int) error {
			t.Fatal("update must not be called for zero quantity")
			return nil
		},
	}

	if err := newShop(t, api).UpdateCartItem(context.Background(), "tok", 9, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 9 {
		t.Errorf("removed = %d, want 9", removed)
	}
}

func TestAddToCart_ValidatesQuantity(t *testing.T) {
	err := newShop(t, &fakeShopAPI{}).AddToCart(context.Background(), "tok", domain.AddToCartInput{ProductID: 1, Quantity: 0, UnitPrice: 100})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

// ---- Addresses ----

func TestUpdateAddress_StateRequired(t *testing.T) {
	_, err := newShop(t, &fakeShopAPI{}).UpdateAddress(context.Background(), "tok", customerapi.ProfileInput{City: "Jaipur"})
	if !errors.Is(err, domain.ErrStateRequired) {
		t.Errorf("err = %v, want ErrStateRequired", err)
	}
}

func TestUpdateAddress_DefaultsCountry(t *testing.T) {
	api := &fakeShopAPI{
		updateProfile: func(_ context.Context, in customerapi.ProfileInput) (*domain.UserProfile, error) {
			if in.Country != "India" {
				t.Errorf("country = %q, want India", in.Country)
			}
			return &domain.UserProfile{ID: 1, State: in.State}, nil
		},
	}

	user, err := newShop(t, api).UpdateAddress(context.Background(), "tok", customerapi.ProfileInput{State: "Rajasthan"})
	if err != nil || user.State != "Rajasthan" {
		t.Errorf("user = %+v, err = %v", user, err)
	}
}

// ---- Contests ----

func TestParticipate_RejectsNonImage(t *testing.T) {
	api := &fakeShopAPI{
		participate: func(context.Context, int64, string, customerapi.Upload) error {
			t.Fatal("must not upload")
			return nil
		},
	}

	err := newShop(t, api).Participate(context.Background(), "tok", 1, "", customerapi.Upload{Data: []byte("plain text")})
	if !errors.Is(err, domain.ErrUnsupportedUpload) {
		t.Errorf("err = %v, want ErrUnsupportedUpload", err)
	}
}
