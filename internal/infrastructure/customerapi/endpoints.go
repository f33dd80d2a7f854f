package customerapi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

// Auth

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterInput struct {
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	Mobile               string `json:"mobile" validate:"required"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type OTPLoginInput struct {
	Mobile string `json:"mobile" validate:"required"`
	OTP    string `json:"otp" validate:"required"`
}

func (c *Client) session(ctx context.Context, op, path string, in any) (*domain.Session, error) {
	p, err := jsonPayload(in)
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := c.do(ctx, op, http.MethodPost, path, p, &s); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("%s: invalid session: %w", op, err)
	}
	return &s, nil
}

func (c *Client) Login(ctx context.Context, in LoginInput) (*domain.Session, error) {
	return c.session(ctx, "login", "/auth/login", in)
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*domain.Session, error) {
	return c.session(ctx, "register", "/auth/register", in)
}

func (c *Client) LoginWithOTP(ctx context.Context, in OTPLoginInput) (*domain.Session, error) {
	return c.session(ctx, "login_otp", "/auth/login-otp", in)
}

func (c *Client) SendOTP(ctx context.Context, mobile string) error {
	p, err := jsonPayload(map[string]string{"mobile": mobile})
	if err != nil {
		return err
	}
	return c.do(ctx, "send_otp", http.MethodPost, "/auth/send-otp", p, nil)
}

// User

func (c *Client) User(ctx context.Context) (*domain.UserProfile, error) {
	return fetchOne[domain.UserProfile](ctx, c, "get_user", http.MethodGet, "/user", nil, "user")
}

// ProfileInput is the editable part of a profile, addresses included.
type ProfileInput struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (*domain.UserProfile, error) {
	p, err := jsonPayload(in)
	if err != nil {
		return nil, err
	}
	return fetchOne[domain.UserProfile](ctx, c, "update_user", http.MethodPut, "/user", p, "user")
}

// Catalog

// ProductFilter narrows the product listing. Zero fields are omitted.
type ProductFilter struct {
	CategoryID int64
	Page       int
}

func (f ProductFilter) query() string {
	q := url.Values{}
	if f.CategoryID != 0 {
		q.Set("category_id", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) Products(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	return fetchList[domain.Product](ctx, c, "list_products", "/products"+f.query(), "products")
}

func (c *Client) Product(ctx context.Context, id int64) (*domain.Product, error) {
	return fetchOne[domain.Product](ctx, c, "get_product", http.MethodGet, idPath("/products/%s", id), nil, "product")
}

func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return fetchList[domain.Product](ctx, c, "search_products", "/products/search?q="+url.QueryEscape(query), "products")
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	return fetchList[domain.Category](ctx, c, "list_categories", "/categories", "categories")
}

func (c *Client) Banners(ctx context.Context) ([]domain.Banner, error) {
	return fetchList[domain.Banner](ctx, c, "list_banners", "/banners", "banners")
}

// Cart

func (c *Client) Cart(ctx context.Context) (*domain.Cart, error) {
	return fetchOne[domain.Cart](ctx, c, "get_cart", http.MethodGet, "/cart", nil, "cart")
}

func (c *Client) AddToCart(ctx context.Context, in domain.AddToCartInput) error {
	if err := c.validate.Struct(&in); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	p, err := jsonPayload(in)
	if err != nil {
		return err
	}
	return c.do(ctx, "add_to_cart", http.MethodPost, "/cart", p, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	p, err := jsonPayload(map[string]int{"quantity": quantity})
	if err != nil {
		return err
	}
	return c.do(ctx, "update_cart_item", http.MethodPut, idPath("/cart/%s", itemID), p, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) error {
	return c.do(ctx, "remove_cart_item", http.MethodDelete, idPath("/cart/%s", itemID), nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, "clear_cart", http.MethodDelete, "/cart", nil, nil)
}

// Orders

func (c *Client) Orders(ctx context.Context) ([]domain.Order, error) {
	return fetchList[domain.Order](ctx, c, "list_orders", "/orders", "orders")
}

func (c *Client) Order(ctx context.Context, id int64) (*domain.Order, error) {
	return fetchOne[domain.Order](ctx, c, "get_order", http.MethodGet, idPath("/orders/%s", id), nil, "order")
}

func (c *Client) CreateOrder(ctx context.Context, in domain.CreateOrderInput) (*domain.Order, error) {
	if err := c.validate.Struct(&in); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	p, err := jsonPayload(in)
	if err != nil {
		return nil, err
	}
	return fetchOne[domain.Order](ctx, c, "create_order", http.MethodPost, "/orders", p, "order")
}

func (c *Client) PaymentGateways(ctx context.Context) ([]domain.PaymentGateway, error) {
	return fetchList[domain.PaymentGateway](ctx, c, "list_payment_gateways", "/payment-gateways", "gateways")
}

// Auctions

func (c *Client) Auctions(ctx context.Context, page int) ([]domain.Auction, error) {
	if page < 1 {
		page = 1
	}
	return fetchList[domain.Auction](ctx, c, "list_auctions", "/auctions?page="+strconv.Itoa(page), "auctions")
}

func (c *Client) Auction(ctx context.Context, id int64) (*domain.Auction, error) {
	return fetchOne[domain.Auction](ctx, c, "get_auction", http.MethodGet, idPath("/auctions/%s", id), nil, "auction")
}

func (c *Client) PlaceBid(ctx context.Context, auctionID int64, amount domain.Amount) error {
	p, err := jsonPayload(map[string]float64{"amount": float64(amount)})
	if err != nil {
		return err
	}
	return c.do(ctx, "place_bid", http.MethodPost, idPath("/auctions/%s/bid", auctionID), p, nil)
}

func (c *Client) MyBids(ctx context.Context) ([]domain.Bid, error) {
	return fetchList[domain.Bid](ctx, c, "my_bids", "/auctions/my-bids", "bids")
}

// Contests

func (c *Client) Contests(ctx context.Context) ([]domain.Contest, error) {
	return fetchList[domain.Contest](ctx, c, "list_contests", "/contests", "contests")
}

func (c *Client) Contest(ctx context.Context, id int64) (*domain.Contest, error) {
	return fetchOne[domain.Contest](ctx, c, "get_contest", http.MethodGet, idPath("/contests/%s", id), nil, "contest")
}

func (c *Client) MyEntries(ctx context.Context) ([]domain.ContestEntry, error) {
	return fetchList[domain.ContestEntry](ctx, c, "my_entries", "/contests/my-entries", "entries")
}

// Upload is a file posted with a contest entry.
type Upload struct {
	Filename string
	Data     []byte
}

var allowedImages = []string{"image/jpeg", "image/png", "image/webp", "image/heic"}

// SniffImage returns the detected MIME type of data, or
// domain.ErrUnsupportedUpload when it is not an accepted image.
func SniffImage(data []byte) (string, error) {
	m := mimetype.Detect(data)
	for _, allowed := range allowedImages {
		if m.Is(allowed) {
			return m.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedUpload, m.String())
}

func (c *Client) Participate(ctx context.Context, contestID int64, caption string, img Upload) error {
	contentType, err := SniffImage(img.Data)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("write caption: %w", err)
		}
	}
	part, err := w.CreatePart(map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Filename)},
		"Content-Type":        {contentType},
	})
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return fmt.Errorf("write image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	p := &payload{contentType: w.FormDataContentType(), body: buf.Bytes()}
	return c.do(ctx, "participate", http.MethodPost, idPath("/contests/%s/participate", contestID), p, nil)
}

// Wishlist

func (c *Client) Wishlist(ctx context.Context) ([]domain.WishlistItem, error) {
	return fetchList[domain.WishlistItem](ctx, c, "list_wishlist", "/wishlist", "wishlist")
}

func (c *Client) AddToWishlist(ctx context.Context, productID int64) error {
	p, err := jsonPayload(map[string]int64{"product_id": productID})
	if err != nil {
		return err
	}
	return c.do(ctx, "add_to_wishlist", http.MethodPost, "/wishlist", p, nil)
}

func (c *Client) RemoveFromWishlist(ctx context.Context, productID int64) error {
	return c.do(ctx, "remove_from_wishlist", http.MethodDelete, idPath("/wishlist/%s", productID), nil, nil)
}
