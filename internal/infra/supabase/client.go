// Package supabase provides a client for Supabase (PostgREST + GoTrue).
// It is the persistence and auth backend of the hub: companies, tax
// entries and fee entries live in PostgREST tables, identities in GoTrue.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const (
	preferRepresentation = "return=representation"
	preferMerge          = "resolution=merge-duplicates,return=representation"
)

// Client wraps HTTP calls to the Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase PostgREST client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// doGet executes an authenticated read against PostgREST, with retry.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := c.execute(ctx, func() error {
		return resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var err error
			body, err = c.do(ctx, http.MethodGet, path, nil, "")
			return err
		})
	})
	return body, err
}

// doPost executes a write. Writes are not retried: only reads are safe to
// replay blindly, and upserts carry their own conflict resolution.
func (c *Client) doPost(ctx context.Context, path string, payload any, prefer string) ([]byte, error) {
	var body []byte
	err := c.execute(ctx, func() error {
		var err error
		body, err = c.do(ctx, http.MethodPost, path, payload, prefer)
		return err
	})
	return body, err
}

func (c *Client) doPatch(ctx context.Context, path string, data map[string]any) ([]byte, error) {
	var body []byte
	err := c.execute(ctx, func() error {
		var err error
		body, err = c.do(ctx, http.MethodPatch, path, data, preferRepresentation)
		return err
	})
	return body, err
}

func (c *Client) doDelete(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := c.execute(ctx, func() error {
		var err error
		body, err = c.do(ctx, http.MethodDelete, path, nil, preferRepresentation)
		return err
	})
	return body, err
}

// execute runs fn through the bulkhead and circuit breaker.
func (c *Client) execute(ctx context.Context, fn func() error) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "supabase"}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &domain.ErrUnavailable{Service: "supabase", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ErrUnavailable{Service: "supabase", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, mapStatus(path, resp.StatusCode, body)
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

// mapStatus turns a PostgREST failure into a distinct error kind so
// callers can pick differentiated recovery.
func mapStatus(path string, status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized:
		return &domain.ErrUnauthorized{Message: "backend rejected credentials"}
	case status == http.StatusForbidden:
		return &domain.ErrForbidden{Action: path}
	case status == http.StatusNotFound:
		return &domain.ErrNotFound{Resource: "resource", ID: path}
	case status == http.StatusConflict:
		return &domain.ErrConstraintViolation{Table: path, Detail: string(body)}
	case status >= 500:
		return &domain.ErrUnavailable{Service: "supabase", Err: fmt.Errorf("status %d: %s", status, body)}
	default:
		return fmt.Errorf("supabase returned status %d: %s", status, string(body))
	}
}
