package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/device"
	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/memory"
	"github.com/ErlanBelekov/sultan-shell/internal/navigation"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
	"github.com/ErlanBelekov/sultan-shell/internal/screen"
	"github.com/ErlanBelekov/sultan-shell/internal/shell"
	httptransport "github.com/ErlanBelekov/sultan-shell/internal/transport/http"
	"github.com/ErlanBelekov/sultan-shell/internal/transport/http/handler"
	"github.com/ErlanBelekov/sultan-shell/internal/usecase"
	"github.com/gin-gonic/gin"
)

const testKey = "handler-test-secret-32-characters!"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func init() {
	gin.SetMode(gin.TestMode)
}

type loaderFunc func(ctx context.Context, req screen.Request) (screen.Result, error)

func (f loaderFunc) Load(ctx context.Context, req screen.Request) (screen.Result, error) {
	return f(ctx, req)
}

// fakeAuth implements the unexported authUsecaser interface via method matching.
type fakeAuth struct {
	login        func(ctx context.Context, in customerapi.LoginInput) (*domain.Session, error)
	register     func(ctx context.Context, in customerapi.RegisterInput) (*domain.Session, error)
	sendOTP      func(ctx context.Context, mobile string) error
	loginWithOTP func(ctx context.Context, in customerapi.OTPLoginInput) (*domain.Session, error)
}

func (f *fakeAuth) Login(ctx context.Context, in customerapi.LoginInput) (*domain.Session, error) {
	return f.login(ctx, in)
}

func (f *fakeAuth) Register(ctx context.Context, in customerapi.RegisterInput) (*domain.Session, error) {
	return f.register(ctx, in)
}

func (f *fakeAuth) SendOTP(ctx context.Context, mobile string) error {
	return f.sendOTP(ctx, mobile)
}

func (f *fakeAuth) LoginWithOTP(ctx context.Context, in customerapi.OTPLoginInput) (*domain.Session, error) {
	return f.loginWithOTP(ctx, in)
}

// fakeShop answers nil for every call it has no func for.
type fakeShop struct {
	addToCart     func(ctx context.Context, token string, in domain.AddToCartInput) error
	placeOrder    func(ctx context.Context, token string, store repository.SessionStore, in domain.CreateOrderInput) (*domain.Order, error)
	placeBid      func(ctx context.Context, token string, auctionID int64, amount domain.Amount) error
	participate   func(ctx context.Context, token string, contestID int64, caption string, img customerapi.Upload) error
	setWishlisted func(ctx context.Context, token string, productID int64, on bool) error
	updateAddress func(ctx context.Context, token string, in customerapi.ProfileInput) (*domain.UserProfile, error)
}

func (f *fakeShop) AddToCart(ctx context.Context, token string, in domain.AddToCartInput) error {
	if f.addToCart == nil {
		return nil
	}
	return f.addToCart(ctx, token, in)
}

func (f *fakeShop) UpdateCartItem(context.Context, string, int64, int) error { return nil }
func (f *fakeShop) RemoveCartItem(context.Context, string, int64) error      { return nil }
func (f *fakeShop) ClearCart(context.Context, string) error                  { return nil }

func (f *fakeShop) PlaceOrder(ctx context.Context, token string, store repository.SessionStore, in domain.CreateOrderInput) (*domain.Order, error) {
	return f.placeOrder(ctx, token, store, in)
}

func (f *fakeShop) PlaceBid(ctx context.Context, token string, auctionID int64, amount domain.Amount) error {
	if f.placeBid == nil {
		return nil
	}
	return f.placeBid(ctx, token, auctionID, amount)
}

func (f *fakeShop) Participate(ctx context.Context, token string, contestID int64, caption string, img customerapi.Upload) error {
	return f.participate(ctx, token, contestID, caption, img)
}

func (f *fakeShop) SetWishlisted(ctx context.Context, token string, productID int64, on bool) error {
	if f.setWishlisted == nil {
		return nil
	}
	return f.setWishlisted(ctx, token, productID, on)
}

func (f *fakeShop) UpdateAddress(ctx context.Context, token string, in customerapi.ProfileInput) (*domain.UserProfile, error) {
	return f.updateAddress(ctx, token, in)
}

type fakeStudio struct{}

func (fakeStudio) Ask(_ context.Context, _ []domain.ChatMessage, prompt string) (domain.ChatMessage, error) {
	return domain.ChatMessage{Role: "model", Content: "re: " + prompt}, nil
}

func (fakeStudio) Design(context.Context, string) (usecase.Design, error) {
	return usecase.Design{Message: domain.StudioApology}, nil
}

type harness struct {
	t        *testing.T
	registry *shell.Registry
	engine   *gin.Engine
	deviceID string
	token    string
}

func newHarness(t *testing.T, loader shell.Loader, auth *fakeAuth, shop *fakeShop) *harness {
	t.Helper()
	if loader == nil {
		loader = loaderFunc(func(_ context.Context, req screen.Request) (screen.Result, error) {
			return screen.Result{View: req.View, Data: "ok"}, nil
		})
	}
	if auth == nil {
		auth = &fakeAuth{}
	}
	if shop == nil {
		shop = &fakeShop{}
	}

	bus := shell.NewBus(discard)
	reg := shell.NewRegistry(memory.NewDeviceStore(), loader, func(string) screen.API { return nil }, bus, discard)
	tokens := device.NewTokens([]byte(testKey), time.Hour)
	id, tok, err := tokens.Issue()
	if err != nil {
		t.Fatalf("issue device token: %v", err)
	}

	engine := httptransport.NewRouter(discard, httptransport.Handlers{
		Shell:  handler.NewShellHandler(reg, bus, nil, discard),
		Auth:   handler.NewAuthHandler(auth, reg, discard),
		Shop:   handler.NewShopHandler(shop, reg, discard),
		Studio: handler.NewStudioHandler(fakeStudio{}, reg, discard),
	}, tokens, false)

	return &harness{t: t, registry: reg, engine: engine, deviceID: id, token: tok}
}

// signIn walks the device through splash, onboarding and login.
func (h *harness) signIn() {
	h.t.Helper()
	ctx := context.Background()
	steps := []func(ctx context.Context, c *navigation.Controller) error{
		func(ctx context.Context, c *navigation.Controller) error { return c.FinishSplash(ctx) },
		func(ctx context.Context, c *navigation.Controller) error { return c.FinishOnboarding(ctx) },
		func(ctx context.Context, c *navigation.Controller) error {
			return c.CompleteLogin(ctx, domain.Session{Token: "customer-token", User: &domain.UserProfile{ID: 7, Name: "Meera"}})
		},
	}
	for _, step := range steps {
		if _, err := h.registry.Do(ctx, h.deviceID, step); err != nil {
			h.t.Fatalf("sign in: %v", err)
		}
	}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			if err != nil {
				h.t.Fatalf("marshal body: %v", err)
			}
			raw = string(b)
		}
		r = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Device "+h.token)
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func (h *harness) send(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Authorization", "Device "+h.token)
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
	Retry  bool                `json:"retry"`
	Toast  string              `json:"toast"`
	Shell  *shell.Snapshot     `json:"shell"`
}
