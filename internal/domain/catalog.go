package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrBidTooLow         = errors.New("bid is below the minimum")
	ErrUnsupportedUpload = errors.New("unsupported upload type")
	ErrStateRequired     = errors.New("state is required")
)

// Amount is a rupee value. The API sends prices either as numbers or as
// decimal strings, so both are accepted.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

var rupeeLocale = language.MustParse("en-IN")

// Format renders the amount the way the storefront shows prices:
// rounded, rupee sign, Indian digit grouping (₹1,23,456).
func (a Amount) Format() string {
	n := int64(math.Round(float64(a)))
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	return sign + "₹" + message.NewPrinter(rupeeLocale).Sprintf("%d", n)
}

type Category struct {
	ID    int64  `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Slug  string `json:"slug,omitempty"`
	Image string `json:"image,omitempty"`
}

type Banner struct {
	ID       int64  `json:"id" validate:"required"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Image    string `json:"image"`
	Link     string `json:"link,omitempty"`
}

type MetalOption struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price Amount `json:"price"`
}

type ShapeOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          int64         `json:"id" validate:"required"`
	Name        string        `json:"name" validate:"required"`
	Description string        `json:"description,omitempty"`
	CategoryID  int64         `json:"category_id,omitempty"`
	Price       Amount        `json:"price"`
	GSTAmount   Amount        `json:"gst_amount,omitempty"`
	Images      []string      `json:"images,omitempty"`
	Image       string        `json:"image,omitempty"`
	Tag         string        `json:"tag,omitempty"`
	Carat       string        `json:"carat,omitempty"`
	Sizes       []string      `json:"sizes,omitempty"`
	Metals      []MetalOption `json:"metals,omitempty"`
	Shapes      []ShapeOption `json:"shapes,omitempty"`
	InStock     bool          `json:"in_stock"`
}

type CartItem struct {
	ID                int64    `json:"id" validate:"required"`
	ProductID         int64    `json:"product_id" validate:"required"`
	Product           *Product `json:"product,omitempty"`
	Quantity          int      `json:"quantity" validate:"min=1"`
	UnitPrice         Amount   `json:"unit_price"`
	SelectedMetalName string   `json:"selected_metal_name,omitempty"`
	SelectedShapeName string   `json:"selected_shape_name,omitempty"`
	Size              string   `json:"size,omitempty"`
	GSTAmount         Amount   `json:"gst_amount,omitempty"`
}

type Cart struct {
	Items    []CartItem `json:"items" validate:"dive"`
	Subtotal Amount     `json:"subtotal"`
	GST      Amount     `json:"gst"`
	Total    Amount     `json:"total"`
}

// AddToCartInput mirrors the cart endpoint payload.
type AddToCartInput struct {
	ProductID          int64  `json:"product_id" validate:"required"`
	Quantity           int    `json:"quantity" validate:"min=1,max=10"`
	UnitPrice          Amount `json:"unit_price" validate:"gt=0"`
	SelectedMetalID    int64  `json:"selected_metal_id,omitempty"`
	SelectedMetalName  string `json:"selected_metal_name,omitempty"`
	SelectedMetalPrice Amount `json:"selected_metal_price,omitempty"`
	SelectedShapeID    int64  `json:"selected_shape_id,omitempty"`
	SelectedShapeName  string `json:"selected_shape_name,omitempty"`
	GSTAmount          Amount `json:"gst_amount,omitempty"`
	Size               string `json:"size,omitempty"`
}

type OrderItem struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"product_name"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     Amount `json:"price"`
}

type Order struct {
	ID                    int64       `json:"id" validate:"required"`
	OrderNumber           string      `json:"order_number"`
	Status                string      `json:"status"`
	OrderDate             string      `json:"order_date,omitempty"`
	ShippingAddress       string      `json:"shipping_address,omitempty"`
	Items                 []OrderItem `json:"items,omitempty"`
	Subtotal              Amount      `json:"subtotal"`
	B2BDiscountApplied    bool        `json:"b2b_discount_applied,omitempty"`
	B2BDiscountPercentage Amount      `json:"b2b_discount_percentage,omitempty"`
	Total                 Amount      `json:"total"`
}

type CreateOrderInput struct {
	PaymentGateway  string `json:"payment_gateway" validate:"required"`
	ShippingAddress string `json:"shipping_address,omitempty"`
	DeliveryMethod  string `json:"delivery_method,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type Auction struct {
	ID           int64     `json:"id" validate:"required"`
	Title        string    `json:"title"`
	Product      *Product  `json:"product,omitempty"`
	StartingBid  Amount    `json:"starting_bid"`
	CurrentBid   Amount    `json:"current_bid"`
	BidIncrement Amount    `json:"bid_increment"`
	BidCount     int       `json:"bid_count"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status,omitempty"`
}

// DefaultBidIncrement applies when an auction does not set its own.
const DefaultBidIncrement Amount = 50

// MinimumBid is the lowest amount the next bid may carry.
func (a *Auction) MinimumBid() Amount {
	base := a.CurrentBid
	if base == 0 {
		base = a.StartingBid
	}
	inc := a.BidIncrement
	if inc == 0 {
		inc = DefaultBidIncrement
	}
	return base + inc
}

// Remaining is the time left before the auction closes, never negative.
func (a *Auction) Remaining(now time.Time) time.Duration {
	d := a.EndTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

type Bid struct {
	ID        int64     `json:"id"`
	AuctionID int64     `json:"auction_id"`
	Amount    Amount    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type Contest struct {
	ID          int64     `json:"id" validate:"required"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Prize       string    `json:"prize,omitempty"`
	EndsAt      time.Time `json:"ends_at"`
	Status      string    `json:"status,omitempty"`
	EntryCount  int       `json:"entry_count"`
}

type ContestEntry struct {
	ID        int64     `json:"id"`
	ContestID int64     `json:"contest_id"`
	Image     string    `json:"image,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PaymentGateway struct {
	ID      int64  `json:"id"`
	Code    string `json:"code" validate:"required"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type WishlistItem struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"product_id" validate:"required"`
	Product   *Product `json:"product,omitempty"`
}
