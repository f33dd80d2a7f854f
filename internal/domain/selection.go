package domain

// SelectionKey names a transient value one screen leaves for the next
// (which product was tapped, what was searched). The key strings are the
// ones older clients wrote, so stored devices stay readable.
type SelectionKey string

const (
	KeyCurrentProductID   SelectionKey = "current_product_id"
	KeyCurrentOrderID     SelectionKey = "current_order_id"
	KeyCurrentAuctionID   SelectionKey = "current_auction_id"
	KeyCurrentContestID   SelectionKey = "current_contest_id"
	KeySearchQuery        SelectionKey = "search_query"
	KeyFilterCategoryID   SelectionKey = "filter_category_id"
	KeyFilterCategoryName SelectionKey = "filter_category_name"
	KeyLastOrderID        SelectionKey = "last_order_id"
)

var SelectionKeys = []SelectionKey{
	KeyCurrentProductID,
	KeyCurrentOrderID,
	KeyCurrentAuctionID,
	KeyCurrentContestID,
	KeySearchQuery,
	KeyFilterCategoryID,
	KeyFilterCategoryName,
	KeyLastOrderID,
}

func (k SelectionKey) Valid() bool {
	for _, known := range SelectionKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Storage keys that are not selections.
const (
	StorageKeyToken     = "customer_token"
	StorageKeyUser      = "customer_user"
	StorageKeyOnboarded = "sultan_onboarded"
)
