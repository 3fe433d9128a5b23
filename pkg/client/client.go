// Package client talks to the kanban REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caesium-cloud/kanban/internal/models"
	"github.com/caesium-cloud/kanban/pkg/env"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultIdentityHeader = "X-User-ID"

// Config holds the connection settings for a Client.
type Config struct {
	BaseURL        string
	UserID         uuid.UUID
	IdentityHeader string
	Timeout        time.Duration
}

// FromEnv builds a Config from the processed environment.
func FromEnv() (Config, error) {
	vars := env.Variables()

	cfg := Config{
		BaseURL:        vars.BaseURL,
		IdentityHeader: vars.IdentityHeader,
		Timeout:        vars.HTTPTimeout,
	}

	if vars.UserID == "" {
		return cfg, errors.New("KANBAN_USERID is required")
	}

	id, err := uuid.Parse(vars.UserID)
	if err != nil {
		return cfg, errors.Wrap(err, "invalid KANBAN_USERID")
	}
	cfg.UserID = id

	return cfg, nil
}

// APIError is a non-success response other than a conflict.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("request failed: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client wraps HTTP interaction with the kanban REST API.
type Client struct {
	baseURL *url.URL
	cfg     Config
	// http serves request/response calls; stream has no timeout so
	// an event subscription can stay open.
	http   *http.Client
	stream *http.Client
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.IdentityHeader == "" {
		cfg.IdentityHeader = DefaultIdentityHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL: base,
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		stream:  &http.Client{},
	}, nil
}

func (c *Client) resolve(path string, queries ...string) string {
	raw := strings.TrimSuffix(c.baseURL.String(), "/") + path
	filtered := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.Trim(q, "?& ")
		if q != "" {
			filtered = append(filtered, q)
		}
	}

	if len(filtered) == 0 {
		return raw
	}

	return raw + "?" + strings.Join(filtered, "&")
}

func (c *Client) request(ctx context.Context, method, target string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(c.cfg.IdentityHeader, c.cfg.UserID.String())

	return req, nil
}

// do issues a request and decodes a successful response into v.
// A 409 carrying a server snapshot is returned as a
// *models.ConflictError; any other failure as an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, v any) error {
	req, err := c.request(ctx, method, c.resolve(path), body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		conflict := &models.Conflict{}
		if err := json.NewDecoder(resp.Body).Decode(conflict); err == nil && conflict.ServerVersion != nil {
			return &models.ConflictError{Current: conflict.ServerVersion}
		}
		return &APIError{Status: resp.StatusCode, Message: conflict.Message}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := &models.Message{}
		_ = json.NewDecoder(resp.Body).Decode(msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}

	if v == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
