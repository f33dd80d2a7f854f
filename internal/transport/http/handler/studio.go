package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/usecase"
	"github.com/gin-gonic/gin"
)

type studioUsecaser interface {
	Ask(ctx context.Context, history []domain.ChatMessage, prompt string) (domain.ChatMessage, error)
	Design(ctx context.Context, description string) (usecase.Design, error)
}

type StudioHandler struct {
	studio studioUsecaser
	shell  Shell
	logger *slog.Logger
}

func NewStudioHandler(studio studioUsecaser, sh Shell, logger *slog.Logger) *StudioHandler {
	return &StudioHandler{studio: studio, shell: sh, logger: logger.With("component", "studio_handler")}
}

// askRequest carries the transcript so far; the renderer owns it.
type askRequest struct {
	History []domain.ChatMessage `json:"history"`
	Prompt  string               `json:"prompt"`
}

type designRequest struct {
	Description string `json:"description"`
}

func (h *StudioHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	if _, ok := requireSession(c, h.shell, h.logger); !ok {
		return
	}
	msg, err := h.studio.Ask(c.Request.Context(), req.History, req.Prompt)
	if err != nil {
		writeError(c, h.logger, "concierge", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *StudioHandler) Design(c *gin.Context) {
	var req designRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}
	if _, ok := requireSession(c, h.shell, h.logger); !ok {
		return
	}
	d, err := h.studio.Design(c.Request.Context(), req.Description)
	if err != nil {
		writeError(c, h.logger, "design", err)
		return
	}
	c.JSON(http.StatusOK, d)
}
