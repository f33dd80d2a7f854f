package domain

// Route describes how the shell presents a view. Header, back button,
// chrome and tab bar are all derived from this table.
type Route struct {
	Title string
	// Parent is the back target for detail views. Empty means home.
	Parent ViewID
	// Root views show the menu button instead of a back button.
	Root bool
	// FullBleed views hide the header and the tab bar.
	FullBleed bool
	// HideActions hides the search and cart header icons.
	HideActions bool
	// Accessory is the header-right icon shown instead of the actions.
	Accessory string
	// Tab is the bottom tab highlighted while the view is active.
	Tab          ViewID
	RequiresAuth bool
	// Selection is the key a detail view needs to know what to show.
	Selection SelectionKey
}

var Routes = map[ViewID]Route{
	ViewHome:          {Title: "Sultan", Root: true, Tab: ViewHome, RequiresAuth: true},
	ViewSearch:        {Title: "Discovery", Root: true, RequiresAuth: true},
	ViewStudio:        {Title: "Design Studio", Root: true, RequiresAuth: true},
	ViewConcierge:     {Title: "Concierge", RequiresAuth: true},
	ViewCollection:    {Title: "Heritage Shop", Root: true, Tab: ViewCollection, RequiresAuth: true},
	ViewAuctions:      {Title: "Live Auctions", Root: true, Tab: ViewAuctions, RequiresAuth: true},
	ViewAuctionDetail: {Title: "Auction Details", Parent: ViewAuctions, FullBleed: true, RequiresAuth: true, Selection: KeyCurrentAuctionID},
	ViewCart:          {Title: "Shopping Bag", FullBleed: true, RequiresAuth: true},
	ViewCheckout:      {Title: "Secure Checkout", FullBleed: true, HideActions: true, Accessory: "shield", RequiresAuth: true},
	ViewOrders:        {Title: "My Orders", RequiresAuth: true},
	ViewOrderDetail:   {Title: "Order Details", Parent: ViewOrders, FullBleed: true, RequiresAuth: true, Selection: KeyCurrentOrderID},
	ViewOrderSuccess:  {Title: "Order Confirmed", FullBleed: true, RequiresAuth: true, Selection: KeyLastOrderID},
	ViewSocial:        {Title: "Exquisite Contests", Root: true, Tab: ViewSocial, RequiresAuth: true},
	ViewSocialDetail:  {Title: "Contest Details", Parent: ViewSocial, FullBleed: true, HideActions: true, Accessory: "share", Tab: ViewSocial, RequiresAuth: true, Selection: KeyCurrentContestID},
	ViewProfile:       {Title: "My Profile", Root: true, RequiresAuth: true},
	ViewProductDetail: {Title: "The Imperial Collection", Parent: ViewCollection, FullBleed: true, HideActions: true, RequiresAuth: true, Selection: KeyCurrentProductID},
	ViewAddresses:     {Title: "My Addresses", FullBleed: true, HideActions: true, RequiresAuth: true},
	ViewLogin:         {Title: "Sultan Style"},
	ViewRegister:      {Title: "Registration"},
}

// Tab is an entry of the bottom tab bar.
type Tab struct {
	ID    ViewID
	Icon  string
	Label string
}

var TabBar = []Tab{
	{ID: ViewHome, Icon: "home", Label: "Home"},
	{ID: ViewCollection, Icon: "diamond", Label: "Shop"},
	{ID: ViewAuctions, Icon: "gavel", Label: "Auction"},
	{ID: ViewSocial, Icon: "emoji_events", Label: "Contest"},
}

// DrawerItem is an entry of the side menu. Items without a Target are
// shown but do nothing when tapped.
type DrawerItem struct {
	ID     string `json:"id"`
	Icon   string `json:"icon"`
	Label  string `json:"label"`
	Target ViewID `json:"target,omitempty"`
}

var Drawer = []DrawerItem{
	{ID: "collection", Icon: "diamond", Label: "Collections", Target: ViewCollection},
	{ID: "studio", Icon: "edit_note", Label: "Bespoke Services", Target: ViewStudio},
	{ID: "education", Icon: "school", Label: "Diamond Education"},
	{ID: "account", Icon: "person", Label: "My Account"},
	{ID: "concierge", Icon: "support_agent", Label: "Concierge", Target: ViewConcierge},
	{ID: "locator", Icon: "distance", Label: "Store Locator"},
}
