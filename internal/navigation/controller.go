package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

type Phase string

const (
	PhaseSplash          Phase = "splash"
	PhaseOnboarding      Phase = "onboarding"
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticated   Phase = "authenticated"
)

// State is the controller's view of the frame at one instant.
type State struct {
	Phase       Phase               `json:"phase"`
	CurrentView domain.ViewID       `json:"current_view"`
	Params      Params              `json:"params"`
	AuthView    domain.ViewID       `json:"auth_view"`
	IsMenuOpen  bool                `json:"is_menu_open"`
	User        *domain.UserProfile `json:"user,omitempty"`
	// Generation changes whenever the active screen changes.
	Generation uint64 `json:"generation"`
}

func (s State) IsLoggedIn() bool {
	return s.Phase == PhaseAuthenticated
}

// Screen is the view actually on display: the auth sub-view while logged
// out, CurrentView while logged in, empty during splash and onboarding.
func (s State) Screen() domain.ViewID {
	switch s.Phase {
	case PhaseAuthenticated:
		return s.CurrentView
	case PhaseUnauthenticated:
		return s.AuthView
	}
	return ""
}

// Controller owns what is on screen, whether the device may see it, and
// how it got there. It is not safe for concurrent use; callers serialise
// access (see shell.Device).
type Controller struct {
	store   repository.SessionStore
	history History
	logger  *slog.Logger
	now     func() time.Time

	booted    bool
	onboarded bool
	token     string
	user      *domain.UserProfile

	state State
}

func NewController(store repository.SessionStore, history History, logger *slog.Logger) *Controller {
	return &Controller{
		store:   store,
		history: history,
		logger:  logger.With("component", "navigation"),
		now:     time.Now,
		state: State{
			Phase:       PhaseSplash,
			CurrentView: domain.ViewHome,
			AuthView:    domain.ViewLogin,
		},
	}
}

func (c *Controller) State() State {
	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Boot reads durable storage once. The phase stays splash until
// FinishSplash.
func (c *Controller) Boot(ctx context.Context) error {
	onboarded, err := c.store.Onboarded(ctx)
	if err != nil {
		return fmt.Errorf("read onboarding flag: %w", err)
	}
	token, user, err := c.store.Session(ctx)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	c.onboarded = onboarded
	c.token = token
	c.user = user
	c.booted = true
	return nil
}

// FinishSplash leaves the splash screen for onboarding, the stored
// session, or the login form.
func (c *Controller) FinishSplash(ctx context.Context) error {
	if c.state.Phase != PhaseSplash {
		return nil
	}
	if !c.booted {
		if err := c.Boot(ctx); err != nil {
			return err
		}
	}

	switch {
	case !c.onboarded:
		c.state.Phase = PhaseOnboarding
	case c.sessionValid(ctx):
		c.state.Phase = PhaseAuthenticated
		c.state.User = c.user
		c.setScreen(domain.ViewHome, Params{})
	default:
		c.state.Phase = PhaseUnauthenticated
		c.state.AuthView = domain.ViewLogin
	}
	c.logger.DebugContext(ctx, "splash finished", "phase", c.state.Phase)
	return nil
}

func (c *Controller) FinishOnboarding(ctx context.Context) error {
	if c.state.Phase != PhaseOnboarding {
		return nil
	}
	if err := c.store.SetOnboarded(ctx); err != nil {
		return fmt.Errorf("store onboarding flag: %w", err)
	}
	c.onboarded = true
	c.state.Phase = PhaseUnauthenticated
	c.state.AuthView = domain.ViewLogin
	c.state.Generation++
	return nil
}

func (c *Controller) ShowRegister() {
	if c.state.Phase != PhaseUnauthenticated || c.state.AuthView == domain.ViewRegister {
		return
	}
	c.state.AuthView = domain.ViewRegister
	c.state.Generation++
}

func (c *Controller) ShowLogin() {
	if c.state.Phase != PhaseUnauthenticated || c.state.AuthView == domain.ViewLogin {
		return
	}
	c.state.AuthView = domain.ViewLogin
	c.state.Generation++
}

// CompleteLogin records a successful credential exchange and opens home.
func (c *Controller) CompleteLogin(ctx context.Context, s domain.Session) error {
	if s.Token == "" || s.User == nil {
		return domain.ErrTokenInvalid
	}
	if err := c.store.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	c.token = s.Token
	c.user = s.User
	c.state.Phase = PhaseAuthenticated
	c.state.User = s.User
	c.state.IsMenuOpen = false
	c.state.AuthView = domain.ViewLogin
	c.setScreen(domain.ViewHome, Params{})
	c.logger.InfoContext(ctx, "logged in", "user_id", s.User.ID)
	return nil
}

// UpdateProfile replaces the profile of the signed-in user.
func (c *Controller) UpdateProfile(ctx context.Context, user *domain.UserProfile) error {
	if c.state.Phase != PhaseAuthenticated || user == nil {
		return nil
	}
	if err := c.store.SaveProfile(ctx, user); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	c.user = user
	c.state.User = user
	return nil
}

// Token is the stored bearer token, "" when logged out.
func (c *Controller) Token() string {
	if c.state.Phase != PhaseAuthenticated {
		return ""
	}
	return c.token
}

// NavigateTo is the single entry point for screen changes.
func (c *Controller) NavigateTo(ctx context.Context, view domain.ViewID, p Params) error {
	r, ok := domain.Routes[view]
	if !ok {
		c.logger.WarnContext(ctx, "navigation ignored", "target", string(view))
		return fmt.Errorf("%w: %q", domain.ErrInvalidView, view)
	}

	if view.IsAuthView() {
		if c.state.Phase == PhaseAuthenticated {
			if err := c.logout(ctx, "navigate to "+string(view)); err != nil {
				return err
			}
		} else if c.state.Phase != PhaseUnauthenticated {
			c.state.Phase = PhaseUnauthenticated
			c.state.Generation++
		}
		if c.state.AuthView != view {
			c.state.AuthView = view
			c.state.Generation++
		}
		return nil
	}

	if c.state.Phase != PhaseAuthenticated {
		if r.RequiresAuth {
			c.logger.InfoContext(ctx, "auth required, showing login", "target", string(view))
			if c.state.Phase != PhaseUnauthenticated || c.state.AuthView != domain.ViewLogin {
				c.state.Phase = PhaseUnauthenticated
				c.state.AuthView = domain.ViewLogin
				c.state.Generation++
			}
		}
		return nil
	}

	if err := Mirror(ctx, c.store, p); err != nil {
		// in-memory params stay authoritative
		c.logger.WarnContext(ctx, "mirror params", "view", string(view), "error", err)
	}
	c.state.IsMenuOpen = false
	c.setScreen(view, p)
	c.history.Push(NewEntry(view, p))
	return nil
}

// Back is the header-left action.
func (c *Controller) Back(ctx context.Context) error {
	switch c.state.Phase {
	case PhaseAuthenticated:
	case PhaseUnauthenticated:
		c.ShowLogin()
		return nil
	default:
		return nil
	}
	target, ok := BackTarget(c.state.CurrentView)
	if !ok {
		c.OpenMenu()
		return nil
	}
	return c.NavigateTo(ctx, target, Params{})
}

func (c *Controller) OpenMenu() {
	if c.state.Phase == PhaseAuthenticated {
		c.state.IsMenuOpen = true
	}
}

func (c *Controller) CloseMenu() {
	c.state.IsMenuOpen = false
}

func (c *Controller) Logout(ctx context.Context) error {
	return c.logout(ctx, "logout")
}

// SessionExpired reacts to the API rejecting the stored token.
func (c *Controller) SessionExpired(ctx context.Context) error {
	return c.logout(ctx, "session expired")
}

// PopState applies a browser back/forward. It never pushes.
func (c *Controller) PopState(ctx context.Context, e *Entry) {
	if c.state.Phase != PhaseAuthenticated {
		c.logger.DebugContext(ctx, "popstate ignored", "phase", c.state.Phase)
		return
	}
	view, p := domain.ViewHome, Params{}
	if e != nil {
		if r, ok := domain.Routes[e.View]; ok && r.RequiresAuth {
			view = e.View
			if e.Params != nil {
				p = *e.Params
			}
		}
	}
	c.state.IsMenuOpen = false
	if view == c.state.CurrentView && p == c.state.Params {
		return
	}
	c.setScreen(view, p)
}

func (c *Controller) logout(ctx context.Context, reason string) error {
	err := c.store.ClearSession(ctx)
	c.token = ""
	c.user = nil
	c.state.Phase = PhaseUnauthenticated
	c.state.User = nil
	c.state.IsMenuOpen = false
	c.state.AuthView = domain.ViewLogin
	c.setScreen(domain.ViewHome, Params{})
	c.logger.InfoContext(ctx, "logged out", "reason", reason)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (c *Controller) setScreen(view domain.ViewID, p Params) {
	c.state.CurrentView = view
	c.state.Params = p
	c.state.Generation++
}

// sessionValid checks the stored session. A JWT past its exp is dropped;
// opaque tokens are trusted until the API says otherwise.
func (c *Controller) sessionValid(ctx context.Context) bool {
	if c.token == "" || c.user == nil {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.After(c.now()) {
		return true
	}
	c.logger.InfoContext(ctx, "stored token expired", "expired_at", exp.Time)
	if err := c.store.ClearSession(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.WarnContext(ctx, "clear expired session", "error", err)
	}
	c.token = ""
	c.user = nil
	return false
}
