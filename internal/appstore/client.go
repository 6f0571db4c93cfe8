// Package appstore holds both sides of the application store: the client
// the profile coordinator writes through and the backend handler that
// serves /api/users.
package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/domain"
)

const maxErrorBody = 64 << 10

// Client calls the application backend's user API with the caller's token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client bounded by the configured app store timeout.
func NewClient(cfg config.Provider, opts ...ClientOption) (*Client, error) {
	base := strings.TrimRight(cfg.GetAppStoreURL(), "/")
	if base == "" {
		return nil, fmt.Errorf("appstore client: %w: APP_STORE_URL is empty", domain.ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("appstore client: invalid APP_STORE_URL: %w", err)
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.GetAppStoreTimeout()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PatchUser writes the full merged record for userID.
func (c *Client) PatchUser(ctx context.Context, userID, token string, record domain.UserRecord) error {
	return c.do(ctx, http.MethodPatch, c.userPath(userID), token, record, nil)
}

// GetUser loads the current record for userID.
func (c *Client) GetUser(ctx context.Context, userID, token string) (*domain.UserRecord, error) {
	var rec domain.UserRecord
	if err := c.do(ctx, http.MethodGet, c.userPath(userID), token, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) userPath(userID string) string {
	return c.baseURL + "/api/users/" + url.PathEscape(userID)
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &domain.NetworkError{Message: "could not encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &domain.NetworkError{Message: "could not build request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "Application store request failed", "event", "appstore_transport_failure",
			"method", method, "error", err)
		msg := "application store unreachable"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "application store timed out"
		}
		return &domain.NetworkError{Message: msg, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.NetworkError{Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

// decodeError reads the backend's {"code","message"} body when present.
func decodeError(resp *http.Response) error {
	netErr := &domain.NetworkError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return netErr
	}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		netErr.Message = body.Message
	}
	return netErr
}
