package domain

import "errors"

var (
	ErrInvalidView      = errors.New("invalid view")
	ErrMissingSelection = errors.New("selection is missing")
)

// ViewID identifies a screen the shell can render. The set is closed:
// anything that does not parse through ParseView is rejected.
type ViewID string

const (
	ViewHome          ViewID = "home"
	ViewSearch        ViewID = "search"
	ViewStudio        ViewID = "studio"
	ViewConcierge     ViewID = "concierge"
	ViewCollection    ViewID = "collection"
	ViewAuctions      ViewID = "auctions"
	ViewAuctionDetail ViewID = "auctionDetail"
	ViewCart          ViewID = "cart"
	ViewCheckout      ViewID = "checkout"
	ViewOrders        ViewID = "orders"
	ViewOrderDetail   ViewID = "orderDetail"
	ViewOrderSuccess  ViewID = "orderSuccess"
	ViewSocial        ViewID = "social"
	ViewSocialDetail  ViewID = "socialDetail"
	ViewProfile       ViewID = "profile"
	ViewProductDetail ViewID = "productDetail"
	ViewAddresses     ViewID = "addresses"
	ViewLogin         ViewID = "login"
	ViewRegister      ViewID = "register"
)

// AllViews lists every ViewID in declaration order.
var AllViews = []ViewID{
	ViewHome, ViewSearch, ViewStudio, ViewConcierge, ViewCollection,
	ViewAuctions, ViewAuctionDetail, ViewCart, ViewCheckout, ViewOrders,
	ViewOrderDetail, ViewOrderSuccess, ViewSocial, ViewSocialDetail,
	ViewProfile, ViewProductDetail, ViewAddresses, ViewLogin, ViewRegister,
}

// ParseView converts external input into a ViewID.
func ParseView(s string) (ViewID, bool) {
	v := ViewID(s)
	if _, ok := Routes[v]; !ok {
		return "", false
	}
	return v, true
}

// IsAuthView reports whether v is one of the unauthenticated sub-views.
func (v ViewID) IsAuthView() bool {
	return v == ViewLogin || v == ViewRegister
}

func (v ViewID) String() string { return string(v) }
