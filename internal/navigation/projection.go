package navigation

import "github.com/ErlanBelekov/sultan-shell/internal/domain"

// Everything here is a pure function of the current view, looked up in
// domain.Routes. Views missing from the table project as home.

func known(v domain.ViewID) domain.ViewID {
	if _, ok := domain.Routes[v]; ok {
		return v
	}
	return domain.ViewHome
}

func route(v domain.ViewID) domain.Route {
	return domain.Routes[known(v)]
}

func HeaderTitle(v domain.ViewID) string {
	return route(v).Title
}

// HeaderLeft is the header-left action: "menu" on root views, "back"
// everywhere else.
func HeaderLeft(v domain.ViewID) string {
	if route(v).Root {
		return "menu"
	}
	return "back"
}

// BackTarget is where the back button leads. ok is false on root views,
// whose header-left action opens the side menu instead.
func BackTarget(v domain.ViewID) (target domain.ViewID, ok bool) {
	r := route(v)
	if r.Root {
		return "", false
	}
	if r.Parent != "" {
		return r.Parent, true
	}
	return domain.ViewHome, true
}

// ChromeHidden reports whether the header and tab bar are suppressed.
func ChromeHidden(v domain.ViewID) bool {
	return route(v).FullBleed
}

// ActionsVisible reports whether the search and cart icons are shown.
func ActionsVisible(v domain.ViewID) bool {
	return !route(v).HideActions
}

func Accessory(v domain.ViewID) string {
	return route(v).Accessory
}

// TabHighlighted reports whether tab is lit while v is on screen.
func TabHighlighted(tab, v domain.ViewID) bool {
	v = known(v)
	return tab == v || route(v).Tab == tab
}

type TabState struct {
	ID          domain.ViewID `json:"id"`
	Icon        string        `json:"icon"`
	Label       string        `json:"label"`
	Highlighted bool          `json:"highlighted"`
}

func Tabs(v domain.ViewID) []TabState {
	out := make([]TabState, 0, len(domain.TabBar))
	for _, t := range domain.TabBar {
		out = append(out, TabState{
			ID:          t.ID,
			Icon:        t.Icon,
			Label:       t.Label,
			Highlighted: TabHighlighted(t.ID, v),
		})
	}
	return out
}

// Chrome bundles every projection the renderer needs for the frame.
type Chrome struct {
	Title          string        `json:"title"`
	HeaderLeft     string        `json:"header_left"`
	BackTarget     domain.ViewID `json:"back_target,omitempty"`
	HeaderHidden   bool          `json:"header_hidden"`
	TabBarHidden   bool          `json:"tab_bar_hidden"`
	ActionsVisible bool          `json:"actions_visible"`
	Accessory      string        `json:"accessory,omitempty"`
	Tabs           []TabState    `json:"tabs,omitempty"`
}

func Project(v domain.ViewID) Chrome {
	back, _ := BackTarget(v)
	hidden := ChromeHidden(v)
	c := Chrome{
		Title:          HeaderTitle(v),
		HeaderLeft:     HeaderLeft(v),
		BackTarget:     back,
		HeaderHidden:   hidden,
		TabBarHidden:   hidden,
		ActionsVisible: ActionsVisible(v),
		Accessory:      Accessory(v),
	}
	if !hidden {
		c.Tabs = Tabs(v)
	}
	return c
}
