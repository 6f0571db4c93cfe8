package identity

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
	"time"

	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/domain"
)

const (
	codeTransport = "transport_error"
	codeUnknown   = "unknown_error"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client talks to the identity provider's backend user API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client from configuration. Every call is bounded by
// the configured identity timeout.
func NewClient(cfg config.Provider, opts ...ClientOption) (*Client, error) {
	base := strings.TrimRight(cfg.GetIdentityURL(), "/")
	if base == "" {
		return nil, fmt.Errorf("identity client: %w: IDENTITY_URL is empty", domain.ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("identity client: invalid IDENTITY_URL: %w", err)
	}
	c := &Client{
		baseURL:    base,
		secretKey:  cfg.GetIdentitySecretKey(),
		httpClient: &http.Client{Timeout: cfg.GetIdentityTimeout()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UpdateProfileFields sends only the non-nil fields of update.
func (c *Client) UpdateProfileFields(ctx context.Context, userID string, update domain.IdentityUpdate) error {
	return c.do(ctx, http.MethodPatch, c.userPath(userID), update)
}

// SyncUsername mirrors a username change that was first written elsewhere.
func (c *Client) SyncUsername(ctx context.Context, userID, username string) error {
	return c.do(ctx, http.MethodPatch, c.userPath(userID), domain.IdentityUpdate{Username: &username})
}

// UpdateProfileImage uploads a data-URI encoded image.
func (c *Client) UpdateProfileImage(ctx context.Context, userID, dataURI string) error {
	body := struct {
		File string `json:"file"`
	}{File: dataURI}
	return c.do(ctx, http.MethodPost, c.userPath(userID)+"/profile_image", body)
}

func (c *Client) userPath(userID string) string {
	return c.baseURL + "/v1/users/" + url.PathEscape(userID)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &domain.IdentityError{Code: codeUnknown, Message: "could not encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &domain.IdentityError{Code: codeUnknown, Message: "could not build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "Identity provider request failed", "event", "identity_transport_failure",
			"method", method, "error", err)
		msg := "identity provider unreachable"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "identity provider timed out"
		}
		return &domain.IdentityError{Code: codeTransport, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "Identity provider responded", "event", "identity_response",
		"method", method, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeError(resp)
}

// errorResponse is the provider's error envelope.
type errorResponse struct {
	Errors []struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
	} `json:"errors"`
}

// decodeError maps a non-2xx response to a structured IdentityError. The
// first error in the envelope wins; its long message is preferred because it
// is the one meant for end users.
func decodeError(resp *http.Response) error {
	idErr := &domain.IdentityError{
		Status:  resp.StatusCode,
		Code:    codeUnknown,
		Message: http.StatusText(resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return idErr
	}
	var env errorResponse
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Errors) == 0 {
		return idErr
	}
	first := env.Errors[0]
	if first.Code != "" {
		idErr.Code = first.Code
	}
	switch {
	case first.LongMessage != "":
		idErr.Message = first.LongMessage
	case first.Message != "":
		idErr.Message = first.Message
	}
	return idErr
}
