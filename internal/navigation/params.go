package navigation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
)

// Params are the arguments a navigation carries to its destination screen.
type Params struct {
	ProductID    int64  `json:"product_id,omitempty"`
	OrderID      int64  `json:"order_id,omitempty"`
	AuctionID    int64  `json:"auction_id,omitempty"`
	ContestID    int64  `json:"contest_id,omitempty"`
	CategoryID   int64  `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	Query        string `json:"query,omitempty"`
}

func (p Params) IsZero() bool {
	return p == Params{}
}

// values maps the set fields onto their legacy storage keys.
func (p Params) values() map[domain.SelectionKey]string {
	out := make(map[domain.SelectionKey]string)
	if p.ProductID != 0 {
		out[domain.KeyCurrentProductID] = strconv.FormatInt(p.ProductID, 10)
	}
	if p.OrderID != 0 {
		out[domain.KeyCurrentOrderID] = strconv.FormatInt(p.OrderID, 10)
	}
	if p.AuctionID != 0 {
		out[domain.KeyCurrentAuctionID] = strconv.FormatInt(p.AuctionID, 10)
	}
	if p.ContestID != 0 {
		out[domain.KeyCurrentContestID] = strconv.FormatInt(p.ContestID, 10)
	}
	if p.CategoryID != 0 {
		out[domain.KeyFilterCategoryID] = strconv.FormatInt(p.CategoryID, 10)
	}
	if p.CategoryName != "" {
		out[domain.KeyFilterCategoryName] = p.CategoryName
	}
	if p.Query != "" {
		out[domain.KeySearchQuery] = p.Query
	}
	return out
}

// ID returns the identifier the params carry for key.
func (p Params) ID(key domain.SelectionKey) int64 {
	switch key {
	case domain.KeyCurrentProductID:
		return p.ProductID
	case domain.KeyCurrentOrderID:
		return p.OrderID
	case domain.KeyCurrentAuctionID:
		return p.AuctionID
	case domain.KeyCurrentContestID:
		return p.ContestID
	case domain.KeyFilterCategoryID:
		return p.CategoryID
	}
	return 0
}

// Mirror writes the set params into store under their legacy keys so a
// reloaded device can still find them.
func Mirror(ctx context.Context, store repository.SessionStore, p Params) error {
	for key, value := range p.values() {
		if err := store.SetSelection(ctx, key, value); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
	}
	return nil
}

// ResolveID returns the identifier for key, preferring the in-memory
// params and falling back to the stored value. It returns
// domain.ErrMissingSelection when neither has one.
func ResolveID(ctx context.Context, store repository.SessionStore, p Params, key domain.SelectionKey) (int64, error) {
	if id := p.ID(key); id != 0 {
		return id, nil
	}
	raw, ok, err := store.Selection(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return 0, domain.ErrMissingSelection
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrMissingSelection
	}
	return id, nil
}

// ResolveText is ResolveID for free-text keys (search query, category name).
func ResolveText(ctx context.Context, store repository.SessionStore, p Params, key domain.SelectionKey) (string, error) {
	switch key {
	case domain.KeySearchQuery:
		if p.Query != "" {
			return p.Query, nil
		}
	case domain.KeyFilterCategoryName:
		if p.CategoryName != "" {
			return p.CategoryName, nil
		}
	}
	raw, _, err := store.Selection(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return raw, nil
}
