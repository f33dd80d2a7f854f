package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/metrics"
	"github.com/ErlanBelekov/sultan-shell/internal/navigation"
	"github.com/ErlanBelekov/sultan-shell/internal/screen"
	"github.com/ErlanBelekov/sultan-shell/internal/shell"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Shell is the device registry as the handlers see it.
type Shell interface {
	Do(ctx context.Context, id string, fn func(ctx context.Context, c *navigation.Controller) error) (shell.Snapshot, error)
	Snapshot(ctx context.Context, id string) (shell.Snapshot, error)
	Session(ctx context.Context, id string) (shell.Session, error)
	Load(ctx context.Context, id string, page int) (screen.Result, shell.Snapshot, error)
}

type Subscriber interface {
	Subscribe(deviceID string) (<-chan shell.Snapshot, func())
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type ShellHandler struct {
	shell    Shell
	bus      Subscriber
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewShellHandler serves the frame and its navigation intents. Websocket
// upgrades are accepted from allowedOrigins and from same-origin pages.
func NewShellHandler(sh Shell, bus Subscriber, allowedOrigins []string, logger *slog.Logger) *ShellHandler {
	h := &ShellHandler{shell: sh, bus: bus, logger: logger.With("component", "shell_handler")}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, origin) {
				return true
			}
			h.logger.WarnContext(r.Context(), "websocket origin rejected", "origin", origin)
			return false
		},
	}
	return h
}

type navigateRequest struct {
	// Target stays raw: renderers have been seen passing click events here.
	Target json.RawMessage   `json:"target"`
	Params navigation.Params `json:"params"`
}

type popStateRequest struct {
	State json.RawMessage `json:"state"`
}

type authViewRequest struct {
	View json.RawMessage `json:"view"`
}

func (h *ShellHandler) Get(c *gin.Context) {
	h.transition(c, "get shell", func(context.Context, *navigation.Controller) error { return nil })
}

func (h *ShellHandler) Navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	view, err := navigation.ParseTarget(req.Target)
	if err != nil {
		metrics.NavigationsTotal.WithLabelValues("invalid", "rejected").Inc()
		h.logger.WarnContext(c.Request.Context(), "navigation target rejected", "target", string(req.Target), "error", err)
		h.Get(c)
		return
	}
	snap := h.transition(c, "navigate", func(ctx context.Context, ctrl *navigation.Controller) error {
		return ctrl.NavigateTo(ctx, view, req.Params)
	})
	outcome := "shown"
	if snap.Screen != view {
		outcome = "guarded"
	}
	metrics.NavigationsTotal.WithLabelValues(string(view), outcome).Inc()
}

func (h *ShellHandler) Back(c *gin.Context) {
	h.transition(c, "back", func(ctx context.Context, ctrl *navigation.Controller) error {
		return ctrl.Back(ctx)
	})
}

func (h *ShellHandler) PopState(c *gin.Context) {
	var req popStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	entry := navigation.DecodeEntry(req.State)
	h.transition(c, "popstate", func(ctx context.Context, ctrl *navigation.Controller) error {
		ctrl.PopState(ctx, entry)
		return nil
	})
}

func (h *ShellHandler) OpenMenu(c *gin.Context) {
	h.transition(c, "open menu", func(_ context.Context, ctrl *navigation.Controller) error {
		ctrl.OpenMenu()
		return nil
	})
}

func (h *ShellHandler) CloseMenu(c *gin.Context) {
	h.transition(c, "close menu", func(_ context.Context, ctrl *navigation.Controller) error {
		ctrl.CloseMenu()
		return nil
	})
}

// AuthView flips between the login and register forms.
func (h *ShellHandler) AuthView(c *gin.Context) {
	var req authViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	view, err := navigation.ParseTarget(req.View)
	if err != nil || !view.IsAuthView() {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidView})
		return
	}
	h.transition(c, "auth view", func(_ context.Context, ctrl *navigation.Controller) error {
		if view == domain.ViewRegister {
			ctrl.ShowRegister()
		} else {
			ctrl.ShowLogin()
		}
		return nil
	})
}

func (h *ShellHandler) Logout(c *gin.Context) {
	h.transition(c, "logout", func(ctx context.Context, ctrl *navigation.Controller) error {
		return ctrl.Logout(ctx)
	})
}

func (h *ShellHandler) FinishSplash(c *gin.Context) {
	h.transition(c, "finish splash", func(ctx context.Context, ctrl *navigation.Controller) error {
		return ctrl.FinishSplash(ctx)
	})
}

func (h *ShellHandler) FinishOnboarding(c *gin.Context) {
	h.transition(c, "finish onboarding", func(ctx context.Context, ctrl *navigation.Controller) error {
		return ctrl.FinishOnboarding(ctx)
	})
}

// transition applies fn and answers with the resulting frame. Once the
// controller has moved, a failed side effect (storage, say) is logged and
// the new frame is still returned.
func (h *ShellHandler) transition(c *gin.Context, op string, fn func(ctx context.Context, ctrl *navigation.Controller) error) shell.Snapshot {
	snap, err := h.shell.Do(c.Request.Context(), c.GetString("deviceID"), fn)
	if err != nil {
		if snap.DeviceID == "" {
			writeError(c, h.logger, op, err)
			return snap
		}
		if errors.Is(err, domain.ErrInvalidView) {
			h.logger.WarnContext(c.Request.Context(), op+" ignored", "error", err)
		} else {
			h.logger.ErrorContext(c.Request.Context(), op, "error", err)
		}
	}
	c.JSON(http.StatusOK, snap)
	return snap
}

type screenResponse struct {
	Screen screen.Result  `json:"screen"`
	Shell  shell.Snapshot `json:"shell"`
}

// Screen loads the data of whatever the device is looking at.
func (h *ShellHandler) Screen(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
			return
		}
		page = p
	}

	ctx := c.Request.Context()
	res, snap, err := h.shell.Load(ctx, c.GetString("deviceID"), page)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, screenResponse{Screen: res, Shell: snap})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": errSessionExpired, "shell": snap})
	case errors.Is(err, shell.ErrStaleResponse), errors.Is(err, context.Canceled):
		writeError(c, h.logger, "load screen", err)
	default:
		h.logger.WarnContext(ctx, "load screen", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": errUpstream, "retry": true})
	}
}

type streamMessage struct {
	Type    string         `json:"type"`
	Payload shell.Snapshot `json:"payload"`
}

// Stream upgrades to a websocket and pushes every frame the device
// reaches, starting with the current one.
func (h *ShellHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.GetString("deviceID")
	snap, err := h.shell.Snapshot(ctx, id)
	if err != nil {
		writeError(c, h.logger, "stream", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.bus.Subscribe(id)
	defer cancel()
	h.logger.DebugContext(ctx, "stream opened")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := writeFrame(conn, snap); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			h.logger.DebugContext(ctx, "stream closed")
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			if err := writeFrame(conn, s); err != nil {
				h.logger.DebugContext(ctx, "stream write", "error", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeFrame sends a snapshot without its history instructions; those
// travel only with the response to the request that caused them.
func writeFrame(conn *websocket.Conn, s shell.Snapshot) error {
	s.HistoryPush = nil
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(streamMessage{Type: "shell", Payload: s})
}

// requireSession returns the device's customer session. A logged-out
// device gets a 401 carrying its frame.
func requireSession(c *gin.Context, sh Shell, logger *slog.Logger) (shell.Session, bool) {
	ctx := c.Request.Context()
	id := c.GetString("deviceID")
	sess, err := sh.Session(ctx, id)
	if err != nil {
		writeError(c, logger, "session", err)
		return shell.Session{}, false
	}
	if !sess.LoggedIn {
		snap, _ := sh.Snapshot(ctx, id)
		c.JSON(http.StatusUnauthorized, gin.H{"error": errLoginRequired, "shell": snap})
		return shell.Session{}, false
	}
	return sess, true
}

// actionFailed reports a failed action. When the customer API rejected
// the token the device has already been logged out; the new frame goes
// back with the 401.
func actionFailed(c *gin.Context, sh Shell, logger *slog.Logger, op string, err error) {
	if errors.Is(err, domain.ErrUnauthenticated) {
		snap, _ := sh.Snapshot(c.Request.Context(), c.GetString("deviceID"))
		c.JSON(http.StatusUnauthorized, gin.H{"error": errSessionExpired, "shell": snap})
		return
	}
	writeError(c, logger, op, err)
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
