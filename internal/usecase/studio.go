package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/genai"
	"github.com/sourcegraph/conc"
)

type Generator interface {
	Chat(ctx context.Context, history []genai.Turn, prompt string) (*genai.Reply, error)
	GenerateDesign(ctx context.Context, description string) (string, error)
	AnalyzeDesignRequest(ctx context.Context, description string) (string, error)
}

const maxHistory = 20

// StudioUsecase fronts the generative model. Model failures never surface
// as errors; the customer sees an apology instead.
type StudioUsecase struct {
	gen    Generator
	logger *slog.Logger
}

func NewStudioUsecase(gen Generator, logger *slog.Logger) *StudioUsecase {
	return &StudioUsecase{gen: gen, logger: logger.With("component", "studio")}
}

type promptInput struct {
	Prompt string `json:"prompt" validate:"required,max=4000"`
}

// Ask sends prompt to the concierge with up to the last maxHistory turns
// and returns the concierge's reply.
func (u *StudioUsecase) Ask(ctx context.Context, history []domain.ChatMessage, prompt string) (domain.ChatMessage, error) {
	prompt = strings.TrimSpace(prompt)
	if err := check(&promptInput{Prompt: prompt}); err != nil {
		return domain.ChatMessage{}, err
	}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	turns := make([]genai.Turn, 0, len(history))
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		turns = append(turns, genai.Turn{Role: genai.Role(m.Role), Text: m.Content})
	}

	reply, err := u.gen.Chat(ctx, turns, prompt)
	if err != nil {
		u.logFailure(ctx, "concierge", err)
		return domain.ChatMessage{Role: string(genai.RoleModel), Content: domain.ConciergeApology}, nil
	}
	msg := domain.ChatMessage{Role: string(genai.RoleModel), Content: reply.Text}
	for _, s := range reply.Sources {
		msg.Sources = append(msg.Sources, domain.Citation{Title: s.Title, URI: s.URI})
	}
	return msg, nil
}

type Design struct {
	Image string `json:"image,omitempty"`
	Brief string `json:"brief,omitempty"`
	// Message is set when the image could not be made.
	Message string `json:"message,omitempty"`
}

// Design renders the image and the brief concurrently. A failed brief is
// left empty; a failed image yields the studio apology.
func (u *StudioUsecase) Design(ctx context.Context, description string) (Design, error) {
	description = strings.TrimSpace(description)
	if err := check(&promptInput{Prompt: description}); err != nil {
		return Design{}, err
	}

	var d Design
	var imgErr, briefErr error
	var wg conc.WaitGroup
	wg.Go(func() {
		d.Image, imgErr = u.gen.GenerateDesign(ctx, description)
	})
	wg.Go(func() {
		d.Brief, briefErr = u.gen.AnalyzeDesignRequest(ctx, description)
	})
	wg.Wait()

	if briefErr != nil {
		u.logFailure(ctx, "design brief", briefErr)
		d.Brief = ""
	}
	if imgErr != nil {
		u.logFailure(ctx, "design image", imgErr)
		d.Image = ""
		d.Message = domain.StudioApology
	}
	return d, nil
}

func (u *StudioUsecase) logFailure(ctx context.Context, what string, err error) {
	if errors.Is(err, genai.ErrDisabled) {
		u.logger.DebugContext(ctx, what+" unavailable", "error", err)
		return
	}
	u.logger.WarnContext(ctx, what+" failed", "error", err)
}
