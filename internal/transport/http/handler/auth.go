package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/navigation"
	"github.com/gin-gonic/gin"
)

type authUsecaser interface {
	Login(ctx context.Context, in customerapi.LoginInput) (*domain.Session, error)
	Register(ctx context.Context, in customerapi.RegisterInput) (*domain.Session, error)
	SendOTP(ctx context.Context, mobile string) error
	LoginWithOTP(ctx context.Context, in customerapi.OTPLoginInput) (*domain.Session, error)
}

type AuthHandler struct {
	auth   authUsecaser
	shell  Shell
	logger *slog.Logger
}

func NewAuthHandler(auth authUsecaser, sh Shell, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, shell: sh, logger: logger.With("component", "auth_handler")}
}

type sendOTPRequest struct {
	Mobile string `json:"mobile"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req customerapi.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), req)
	h.complete(c, "login", sess, err)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req customerapi.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	sess, err := h.auth.Register(c.Request.Context(), req)
	h.complete(c, "register", sess, err)
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	if err := h.auth.SendOTP(c.Request.Context(), req.Mobile); err != nil {
		writeError(c, h.logger, "send otp", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgOTPSent})
}

func (h *AuthHandler) LoginWithOTP(c *gin.Context) {
	var req customerapi.OTPLoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	sess, err := h.auth.LoginWithOTP(c.Request.Context(), req)
	h.complete(c, "login with otp", sess, err)
}

// complete hands a fresh session to the device and answers with the
// signed-in frame.
func (h *AuthHandler) complete(c *gin.Context, op string, sess *domain.Session, err error) {
	if err != nil {
		writeError(c, h.logger, op, err)
		return
	}
	snap, err := h.shell.Do(c.Request.Context(), c.GetString("deviceID"), func(ctx context.Context, ctrl *navigation.Controller) error {
		return ctrl.CompleteLogin(ctx, *sess)
	})
	if err != nil {
		writeError(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
