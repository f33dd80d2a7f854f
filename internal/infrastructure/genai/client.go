// Package genai wraps the Gemini SDK for the concierge chat and the design
// studio.
package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/metrics"
	"github.com/avast/retry-go/v4"
	gemini "google.golang.org/genai"
)

var (
	// ErrDisabled is returned by every call when no API key is configured.
	ErrDisabled = errors.New("generative model is not configured")
	ErrNoImage  = errors.New("model returned no image")
)

const (
	DefaultTextModel  = "gemini-3-flash-preview"
	DefaultImageModel = "gemini-2.5-flash-image"

	conciergeInstruction = "You are the Sultan Luxury Heritage Concierge. Your tone is refined, sophisticated, and deeply knowledgeable about Indian jewelry heritage (Kundan, Meenakari, Polki, Temple Jewelry). You help clients with heritage storytelling, choosing the right metals, and styling. You also use Google Search to find current luxury trends or specific heritage references. Always be polite and treat the user as a VIP guest."

	briefInstruction = "Extract the key elements of a jewelry design request into a poetic summary. Mention the materials, inspiration, and mood."

	designPrompt = "A hyper-realistic, high-fashion professional product photography of a luxury jewelry piece: %s. Set against a soft minimalist silk background with elegant studio lighting. Handcrafted Indian luxury aesthetic, detailed intricate gold work, precious gemstones."
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message of a concierge conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type Reply struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
}

// Config selects the models. BaseURL overrides the API host; the SDK adds
// the version path.
type Config struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

type Client struct {
	cfg    Config
	models *gemini.Models
	logger *slog.Logger
}

// New returns a client. Without an API key it is disabled and every call
// fails with ErrDisabled.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	c := &Client{cfg: cfg, logger: logger.With("component", "genai")}
	if cfg.APIKey == "" {
		return c, nil
	}

	sdk, err := gemini.NewClient(ctx, &gemini.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     gemini.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: gemini.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.models = sdk.Models
	return c, nil
}

func (c *Client) Enabled() bool { return c.models != nil }

// Chat sends prompt, after history, to the concierge. Citations come from
// the search grounding; ones without a URI are dropped.
func (c *Client) Chat(ctx context.Context, history []Turn, prompt string) (*Reply, error) {
	contents := make([]*gemini.Content, 0, len(history)+1)
	for _, t := range history {
		contents = append(contents, gemini.NewContentFromText(t.Text, gemini.Role(t.Role)))
	}
	contents = append(contents, gemini.NewContentFromText(prompt, gemini.RoleUser))

	resp, err := c.generate(ctx, "chat", c.cfg.TextModel, contents, &gemini.GenerateContentConfig{
		SystemInstruction: gemini.NewContentFromText(conciergeInstruction, gemini.RoleUser),
		Tools:             []*gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}},
	})
	if err != nil {
		return nil, err
	}

	reply := &Reply{Text: text(resp)}
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			title := chunk.Web.Title
			if title == "" {
				title = "Source"
			}
			reply.Sources = append(reply.Sources, Source{Title: title, URI: chunk.Web.URI})
		}
	}
	return reply, nil
}

// GenerateDesign renders a product photograph for a design description and
// returns it as a data URL.
func (c *Client) GenerateDesign(ctx context.Context, description string) (string, error) {
	contents := []*gemini.Content{gemini.NewContentFromText(fmt.Sprintf(designPrompt, description), gemini.RoleUser)}
	resp, err := c.generate(ctx, "generate_design", c.cfg.ImageModel, contents, &gemini.GenerateContentConfig{
		ImageConfig: &gemini.ImageConfig{AspectRatio: "1:1"},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			mime := p.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(p.InlineData.Data), nil
		}
	}
	return "", ErrNoImage
}

// AnalyzeDesignRequest turns a free-form request into a short brief.
func (c *Client) AnalyzeDesignRequest(ctx context.Context, description string) (string, error) {
	contents := []*gemini.Content{gemini.NewContentFromText(description, gemini.RoleUser)}
	resp, err := c.generate(ctx, "analyze_design", c.cfg.TextModel, contents, &gemini.GenerateContentConfig{
		SystemInstruction: gemini.NewContentFromText(briefInstruction, gemini.RoleUser),
	})
	if err != nil {
		return "", err
	}
	return text(resp), nil
}

func (c *Client) generate(ctx context.Context, op, model string, contents []*gemini.Content, cfg *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	var out *gemini.GenerateContentResponse
	err := retry.Do(func() error {
		start := time.Now()
		resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
		metrics.UpstreamRequestDuration.WithLabelValues("genai", op, statusLabel(err)).Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		out = resp
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
	)
	if err != nil {
		c.logger.WarnContext(ctx, "generate failed", "op", op, "model", model, "error", err)
		return nil, err
	}
	return out, nil
}

// apiStatus extracts the HTTP status of an SDK error, 0 when there is none.
func apiStatus(err error) int {
	var v gemini.APIError
	if errors.As(err, &v) {
		return v.Code
	}
	var p *gemini.APIError
	if errors.As(err, &p) && p != nil {
		return p.Code
	}
	return 0
}

func retryable(err error) bool {
	if status := apiStatus(err); status != 0 {
		return status == http.StatusTooManyRequests || status >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func statusLabel(err error) string {
	if err == nil {
		return strconv.Itoa(http.StatusOK)
	}
	if status := apiStatus(err); status != 0 {
		return strconv.Itoa(status)
	}
	return "error"
}

// text concatenates the text parts of the first candidate.
func text(r *gemini.GenerateContentResponse) string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
