// Package screen assembles the data each view renders. Loaders run outside
// the device lock; the shell decides whether a result is still wanted.
package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/metrics"
	"github.com/ErlanBelekov/sultan-shell/internal/navigation"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
)

// API is the part of the customer API the loaders read from, already
// bound to the device's token.
type API interface {
	User(ctx context.Context) (*domain.UserProfile, error)
	Products(ctx context.Context, f customerapi.ProductFilter) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Banners(ctx context.Context) ([]domain.Banner, error)
	Cart(ctx context.Context) (*domain.Cart, error)
	Orders(ctx context.Context) ([]domain.Order, error)
	PaymentGateways(ctx context.Context) ([]domain.PaymentGateway, error)
	Auctions(ctx context.Context, page int) ([]domain.Auction, error)
	Auction(ctx context.Context, id int64) (*domain.Auction, error)
	MyBids(ctx context.Context) ([]domain.Bid, error)
	Contests(ctx context.Context) ([]domain.Contest, error)
	Contest(ctx context.Context, id int64) (*domain.Contest, error)
	MyEntries(ctx context.Context) ([]domain.ContestEntry, error)
	Wishlist(ctx context.Context) ([]domain.WishlistItem, error)
}

type Request struct {
	View   domain.ViewID
	Params navigation.Params
	Store  repository.SessionStore
	API    API
	Page   int
}

// Result is a loaded screen. When Redirect is set the screen could not be
// shown (its selection is gone) and the caller should navigate there.
// Profile carries a fresh copy of the user for the caller to store if the
// result is still wanted.
type Result struct {
	View     domain.ViewID       `json:"view"`
	Data     any                 `json:"data,omitempty"`
	Redirect domain.ViewID       `json:"redirect,omitempty"`
	Profile  *domain.UserProfile `json:"-"`
}

type LoaderFunc func(ctx context.Context, req Request) (any, error)

type Loaders struct {
	byView map[domain.ViewID]LoaderFunc
	logger *slog.Logger
	now    func() time.Time
}

func NewLoaders(logger *slog.Logger) *Loaders {
	l := &Loaders{
		logger: logger.With("component", "screen"),
		now:    time.Now,
	}
	l.byView = map[domain.ViewID]LoaderFunc{
		domain.ViewHome:          loadHome,
		domain.ViewCollection:    loadCollection,
		domain.ViewSearch:        loadSearch,
		domain.ViewProductDetail: loadProduct,
		domain.ViewCart:          loadCart,
		domain.ViewCheckout:      loadCheckout,
		domain.ViewOrders:        loadOrders,
		domain.ViewOrderDetail:   loadOrder(domain.KeyCurrentOrderID, true),
		domain.ViewOrderSuccess:  loadOrder(domain.KeyLastOrderID, false),
		domain.ViewAuctions:      loadAuctions,
		domain.ViewAuctionDetail: l.loadAuction,
		domain.ViewSocial:        loadSocial,
		domain.ViewSocialDetail:  loadContest,
		domain.ViewProfile:       l.loadProfile,
		domain.ViewAddresses:     l.loadProfile,
		domain.ViewConcierge:     loadConcierge,
		domain.ViewStudio:        loadStudio,
	}
	return l
}

// Load runs the loader for req.View. Views without data (the auth forms)
// load as an empty result.
func (l *Loaders) Load(ctx context.Context, req Request) (Result, error) {
	res := Result{View: req.View}
	fn, ok := l.byView[req.View]
	if !ok {
		return res, nil
	}

	start := l.now()
	data, err := fn(ctx, req)
	metrics.ScreenLoadDuration.WithLabelValues(string(req.View)).Observe(l.now().Sub(start).Seconds())
	if errors.Is(err, domain.ErrMissingSelection) {
		target, _ := navigation.BackTarget(req.View)
		l.logger.InfoContext(ctx, "selection missing, redirecting", "view", string(req.View), "redirect", string(target))
		res.Redirect = target
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("load %s: %w", req.View, err)
	}
	res.Data = data
	if p, ok := data.(ProfileData); ok && !p.Stale {
		res.Profile = p.User
	}
	return res, nil
}
