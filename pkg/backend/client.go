// Package backend is the client of the Awn REST backend. It attaches bearer
// tokens per request and refreshes them once on a 401.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/awn-app/awn/pkg/metrics"
	"github.com/charmbracelet/log"
	"github.com/google/go-querystring/query"
)

// APIPrefix is prepended to every endpoint path.
const APIPrefix = "/api/v1"

const refreshPath = "/auth/refresh"

// Client talks to the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient gets a 15 second
// timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the configured base URL without the API prefix.
func (c *Client) BaseURL() string { return c.baseURL }

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	// Query is encoded with go-querystring `url` tags.
	Query any
	Body  any
}

// Do runs req and decodes a 2xx body into out when out is non-nil. With a
// non-nil tokens store the access token is attached, and a 401 triggers one
// refresh followed by one retry. A failed refresh or a second 401 clears the
// tokens and returns ErrSessionExpired.
func (c *Client) Do(ctx context.Context, tokens TokenStore, req Request, out any) error {
	status, body, err := c.send(ctx, tokens, req)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && tokens != nil && req.Path != refreshPath {
		if err := c.refresh(ctx, tokens); err != nil {
			tokens.Clear()
			return err
		}
		status, body, err = c.send(ctx, tokens, req)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			tokens.Clear()
			return ErrSessionExpired
		}
	}

	if status < 200 || status > 299 {
		return ParseError(status, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, tokens TokenStore, req Request) (int, []byte, error) {
	if c.baseURL == "" {
		return 0, nil, ErrNotConfigured
	}

	target := c.baseURL + APIPrefix + req.Path
	if req.Query != nil {
		values, err := query.Values(req.Query)
		if err != nil {
			return 0, nil, fmt.Errorf("encode query for %s: %w", req.Path, err)
		}
		if encoded := values.Encode(); encoded != "" {
			target += "?" + encoded
		}
	}

	var reader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s body: %w", req.Path, err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create %s request: %w", req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if tokens != nil {
		if access := tokens.AccessToken(); access != "" {
			httpReq.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(req.Method, "error").Inc()
		return 0, nil, fmt.Errorf("send %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", req.Path, err)
	}
	metrics.BackendRequests.WithLabelValues(req.Method, metrics.StatusClass(resp.StatusCode)).Inc()
	log.Debug("backend call", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// refresh exchanges the refresh token for a new access token.
func (c *Client) refresh(ctx context.Context, tokens TokenStore) error {
	refreshToken := tokens.RefreshToken()
	if refreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues("missing").Inc()
		return ErrSessionExpired
	}

	status, body, err := c.send(ctx, nil, Request{
		Method: http.MethodPost,
		Path:   refreshPath,
		Body:   refreshRequest{Refresh: refreshToken},
	})
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		log.Warn("token refresh failed", "err", err)
		return ErrSessionExpired
	}
	if status != http.StatusOK {
		metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
		return ErrSessionExpired
	}

	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := json.Unmarshal(body, &pair); err != nil || pair.Access == "" {
		metrics.TokenRefreshes.WithLabelValues("invalid").Inc()
		return ErrSessionExpired
	}
	tokens.SetTokens(pair.Access, pair.Refresh)
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	return nil
}
