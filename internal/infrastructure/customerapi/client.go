// Package customerapi talks to the storefront's REST API.
package customerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/metrics"
	"github.com/avast/retry-go/v4"
	"github.com/go-playground/validator/v10"
)

const DefaultBaseURL = "http://localhost:8000/api/v1"

// Error is a non-successful API response.
type Error struct {
	Status  int
	Message string
	// Fields holds per-field validation messages, when the API sent any.
	Fields map[string][]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("customer api: status %d", e.Status)
	}
	return fmt.Sprintf("customer api: status %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, domain.ErrUnauthenticated) match a 401.
func (e *Error) Is(target error) bool {
	return target == domain.ErrUnauthenticated && e.Status == http.StatusUnauthorized
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// Client is safe for concurrent use. WithToken returns a copy bound to one
// customer's bearer token.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	logger   *slog.Logger
	validate *validator.Validate

	onUnauthenticated func(ctx context.Context, token string)
	attempts          uint
	retryDelay        time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets how often idempotent reads are attempted.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.retryDelay = delay
	}
}

// OnUnauthenticated registers fn to run, with the request's context and
// the token the API rejected, whenever the API answers 401.
func OnUnauthenticated(fn func(ctx context.Context, token string)) Option {
	return func(c *Client) { c.onUnauthenticated = fn }
}

func New(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With("component", "customerapi"),
		validate:   validator.New(),
		attempts:   3,
		retryDelay: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type payload struct {
	contentType string
	body        []byte
}

func jsonPayload(v any) (*payload, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &payload{contentType: "application/json", body: b}, nil
}

// do sends one request and decodes the envelope's data into out (when
// non-nil). GETs are retried on transport errors and 5xx.
func (c *Client) do(ctx context.Context, op, method, path string, in *payload, out any) error {
	attempt := func() error {
		return c.once(ctx, op, method, path, in, out)
	}
	if method != http.MethodGet || c.attempts <= 1 {
		return attempt()
	}
	return retry.Do(attempt,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "retrying request", "op", op, "attempt", n+1, "error", err)
		}),
	)
}

func retryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (c *Client) once(ctx context.Context, op, method, path string, in *payload, out any) error {
	var body io.Reader
	if in != nil {
		body = bytes.NewReader(in.body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", in.contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues("customer_api", op, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequestDuration.WithLabelValues("customer_api", op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.InfoContext(ctx, "token rejected", "op", op)
		if c.onUnauthenticated != nil {
			c.onUnauthenticated(ctx, c.token)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || (decodeErr == nil && env.Success != nil && !*env.Success) {
		apiErr := &Error{Status: resp.StatusCode, Message: env.Message, Fields: fieldErrors(env.Errors)}
		if apiErr.Message == "" {
			apiErr.Message = "Something went wrong"
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decode response: %w", op, decodeErr)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}
	return nil
}

// fieldErrors accepts {"field": ["msg"]} and {"field": "msg"}.
func fieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	var many map[string][]string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one map[string]string
	if err := json.Unmarshal(raw, &one); err == nil {
		out := make(map[string][]string, len(one))
		for k, v := range one {
			out[k] = []string{v}
		}
		return out
	}
	return nil
}

// fetchOne reads data[key] into a T and validates it.
func fetchOne[T any](ctx context.Context, c *Client, op, method, path string, in *payload, key string) (*T, error) {
	var data map[string]json.RawMessage
	if err := c.do(ctx, op, method, path, in, &data); err != nil {
		return nil, err
	}
	raw, ok := data[key]
	if !ok || string(raw) == "null" {
		return nil, fmt.Errorf("%s: response has no %q", op, key)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", op, key, err)
	}
	if err := c.validate.Struct(&v); err != nil {
		return nil, fmt.Errorf("%s: invalid %s: %w", op, key, err)
	}
	return &v, nil
}

// fetchList reads data[key] into a []T, validating every element. A
// bare array in data is the list itself; a missing key is an empty list.
func fetchList[T any](ctx context.Context, c *Client, op, path, key string) ([]T, error) {
	var data json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] != '[' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("%s: decode data: %w", op, err)
		}
		raw = wrapped[key]
	}
	if len(raw) == 0 || string(raw) == "null" {
		return []T{}, nil
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", op, key, err)
	}
	for i := range list {
		if err := c.validate.Struct(&list[i]); err != nil {
			return nil, fmt.Errorf("%s: invalid %s[%d]: %w", op, key, i, err)
		}
	}
	return list, nil
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, url.PathEscape(strconv.FormatInt(id, 10)))
}
