package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/navigation"
	"github.com/sourcegraph/conc/pool"
)

const featuredCount = 6

type HomeData struct {
	Banners    []domain.Banner   `json:"banners"`
	Categories []domain.Category `json:"categories"`
	Featured   []domain.Product  `json:"featured"`
}

func loadHome(ctx context.Context, req Request) (any, error) {
	var d HomeData
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		d.Banners, err = req.API.Banners(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		d.Categories, err = req.API.Categories(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		d.Featured, err = req.API.Products(ctx, customerapi.ProductFilter{})
		if len(d.Featured) > featuredCount {
			d.Featured = d.Featured[:featuredCount]
		}
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

type CollectionData struct {
	CategoryID   int64             `json:"category_id,omitempty"`
	CategoryName string            `json:"category_name,omitempty"`
	Categories   []domain.Category `json:"categories"`
	Products     []domain.Product  `json:"products"`
}

func loadCollection(ctx context.Context, req Request) (any, error) {
	var d CollectionData
	// the category filter is optional; no stored filter means "all"
	if id, err := navigation.ResolveID(ctx, req.Store, req.Params, domain.KeyFilterCategoryID); err == nil {
		d.CategoryID = id
	} else if !errors.Is(err, domain.ErrMissingSelection) {
		return nil, err
	}
	if d.CategoryID != 0 {
		name, err := navigation.ResolveText(ctx, req.Store, req.Params, domain.KeyFilterCategoryName)
		if err != nil {
			return nil, err
		}
		d.CategoryName = name
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		d.Categories, err = req.API.Categories(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		d.Products, err = req.API.Products(ctx, customerapi.ProductFilter{CategoryID: d.CategoryID, Page: req.Page})
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

type SearchData struct {
	Query      string            `json:"query"`
	Products   []domain.Product  `json:"products"`
	Categories []domain.Category `json:"categories"`
}

func loadSearch(ctx context.Context, req Request) (any, error) {
	q, err := navigation.ResolveText(ctx, req.Store, req.Params, domain.KeySearchQuery)
	if err != nil {
		return nil, err
	}
	d := SearchData{Query: q, Products: []domain.Product{}}
	if d.Categories, err = req.API.Categories(ctx); err != nil {
		return nil, err
	}
	if q == "" {
		return d, nil
	}
	if d.Products, err = req.API.SearchProducts(ctx, q); err != nil {
		return nil, err
	}
	return d, nil
}

type ProductData struct {
	Product    *domain.Product `json:"product"`
	Wishlisted bool            `json:"wishlisted"`
}

func loadProduct(ctx context.Context, req Request) (any, error) {
	id, err := navigation.ResolveID(ctx, req.Store, req.Params, domain.KeyCurrentProductID)
	if err != nil {
		return nil, err
	}
	var d ProductData
	var wishlist []domain.WishlistItem
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		d.Product, err = req.API.Product(ctx, id)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		wishlist, err = req.API.Wishlist(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	for _, w := range wishlist {
		if w.ProductID == id {
			d.Wishlisted = true
			break
		}
	}
	return d, nil
}

type CartData struct {
	Cart          *domain.Cart `json:"cart"`
	SubtotalLabel string       `json:"subtotal_label"`
	TotalLabel    string       `json:"total_label"`
}

func loadCart(ctx context.Context, req Request) (any, error) {
	cart, err := req.API.Cart(ctx)
	if err != nil {
		return nil, err
	}
	return CartData{Cart: cart, SubtotalLabel: cart.Subtotal.Format(), TotalLabel: cart.Total.Format()}, nil
}

type CheckoutData struct {
	Cart     *domain.Cart            `json:"cart"`
	Gateways []domain.PaymentGateway `json:"gateways"`
	ShipTo   *domain.UserProfile     `json:"ship_to,omitempty"`
}

func loadCheckout(ctx context.Context, req Request) (any, error) {
	var d CheckoutData
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		d.Cart, err = req.API.Cart(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		d.Gateways, err = req.API.PaymentGateways(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	_, user, err := req.Store.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stored profile: %w", err)
	}
	d.ShipTo = user
	return d, nil
}

type OrdersData struct {
	Orders []domain.Order `json:"orders"`
}

func loadOrders(ctx context.Context, req Request) (any, error) {
	orders, err := req.API.Orders(ctx)
	if err != nil {
		return nil, err
	}
	return OrdersData{Orders: orders}, nil
}

type OrderData struct {
	Order *domain.Order `json:"order"`
}

// loadOrder finds the order named by key in the customer's order list.
// When required, an unknown id counts as a missing selection.
func loadOrder(key domain.SelectionKey, required bool) LoaderFunc {
	return func(ctx context.Context, req Request) (any, error) {
		id, err := navigation.ResolveID(ctx, req.Store, req.Params, key)
		if err != nil {
			if !required && errors.Is(err, domain.ErrMissingSelection) {
				return OrderData{}, nil
			}
			return nil, err
		}
		orders, err := req.API.Orders(ctx)
		if err != nil {
			return nil, err
		}
		for i := range orders {
			if orders[i].ID == id {
				return OrderData{Order: &orders[i]}, nil
			}
		}
		if required {
			return nil, domain.ErrMissingSelection
		}
		return OrderData{}, nil
	}
}

type AuctionsData struct {
	Page     int              `json:"page"`
	Auctions []domain.Auction `json:"auctions"`
	MyBids   []domain.Bid     `json:"my_bids"`
}

func loadAuctions(ctx context.Context, req Request) (any, error) {
	d := AuctionsData{Page: max(req.Page, 1)}
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		d.Auctions, err = req.API.Auctions(ctx, d.Page)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		d.MyBids, err = req.API.MyBids(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

type AuctionData struct {
	Auction          *domain.Auction `json:"auction"`
	MinimumBid       domain.Amount   `json:"minimum_bid"`
	MinimumBidLabel  string          `json:"minimum_bid_label"`
	RemainingSeconds int64           `json:"remaining_seconds"`
}

func (l *Loaders) loadAuction(ctx context.Context, req Request) (any, error) {
	id, err := navigation.ResolveID(ctx, req.Store, req.Params, domain.KeyCurrentAuctionID)
	if err != nil {
		return nil, err
	}
	a, err := req.API.Auction(ctx, id)
	if err != nil {
		return nil, err
	}
	minBid := a.MinimumBid()
	return AuctionData{
		Auction:          a,
		MinimumBid:       minBid,
		MinimumBidLabel:  minBid.Format(),
		RemainingSeconds: int64(a.Remaining(l.now()) / time.Second),
	}, nil
}

type SocialData struct {
	Contests  []domain.Contest      `json:"contests"`
	MyEntries []domain.ContestEntry `json:"my_entries"`
}

func loadSocial(ctx context.Context, req Request) (any, error) {
	var d SocialData
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		d.Contests, err = req.API.Contests(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		d.MyEntries, err = req.API.MyEntries(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

type ContestData struct {
	Contest *domain.Contest `json:"contest"`
}

func loadContest(ctx context.Context, req Request) (any, error) {
	id, err := navigation.ResolveID(ctx, req.Store, req.Params, domain.KeyCurrentContestID)
	if err != nil {
		return nil, err
	}
	c, err := req.API.Contest(ctx, id)
	if err != nil {
		return nil, err
	}
	return ContestData{Contest: c}, nil
}

type ProfileData struct {
	User  *domain.UserProfile `json:"user"`
	Stale bool                `json:"stale,omitempty"`
}

// loadProfile prefers the API's copy. If the API is unreachable the stored
// copy is shown instead.
func (l *Loaders) loadProfile(ctx context.Context, req Request) (any, error) {
	user, err := req.API.User(ctx)
	if err == nil {
		return ProfileData{User: user}, nil
	}
	if errors.Is(err, domain.ErrUnauthenticated) || ctx.Err() != nil {
		return nil, err
	}
	l.logger.WarnContext(ctx, "profile fetch failed, using stored copy", "error", err)
	_, stored, serr := req.Store.Session(ctx)
	if serr != nil || stored == nil {
		return nil, err
	}
	return ProfileData{User: stored, Stale: true}, nil
}

type ConciergeData struct {
	Transcript []domain.ChatMessage `json:"transcript"`
}

func loadConcierge(context.Context, Request) (any, error) {
	return ConciergeData{Transcript: []domain.ChatMessage{{Role: "model", Content: domain.ConciergeGreeting}}}, nil
}

type StudioData struct {
	Image string `json:"image,omitempty"`
	Brief string `json:"brief,omitempty"`
}

func loadStudio(context.Context, Request) (any, error) {
	return StudioData{}, nil
}
