// Package apiclient is a typed HTTP client for the optica API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/transport"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu             sync.RWMutex
	tokenSource    func() string
	onUnauthorized func()
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithHTTPClient replaces the transport, used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// SetTokenSource sets where resource calls read the bearer token from.
func (c *Client) SetTokenSource(fn func() string) {
	c.mu.Lock()
	c.tokenSource = fn
	c.mu.Unlock()
}

// OnUnauthorized registers a hook run when an authenticated call is rejected with 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokenSource == nil {
		return ""
	}
	return c.tokenSource()
}

type AuthResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	User        models.User
}

func toAuthResult(r transport.AuthResponse) *AuthResult {
	out := &AuthResult{
		AccessToken: r.AccessToken,
		ExpiresIn:   time.Duration(r.ExpiresIn) * time.Millisecond,
	}
	if r.User != nil {
		out.User = *r.User
	}
	return out
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res transport.AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", "", transport.LoginRequest{Email: email, Password: password}, &res)
	if IsUnauthorized(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return toAuthResult(res), nil
}

// Refresh trades a still valid token for a new one with the same identity.
func (c *Client) Refresh(ctx context.Context, token string) (*AuthResult, error) {
	var res transport.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", token, nil, &res); err != nil {
		return nil, err
	}
	return toAuthResult(res), nil
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.authed(ctx, http.MethodGet, "/auth/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) TokenInfo(ctx context.Context) (time.Duration, error) {
	var res transport.TokenInfoResponse
	if err := c.authed(ctx, http.MethodGet, "/auth/token-info", nil, &res); err != nil {
		return 0, err
	}
	return time.Duration(res.ExpiresIn) * time.Millisecond, nil
}

func (c *Client) authed(ctx context.Context, method, path string, body, out any) error {
	err := c.do(ctx, method, path, c.token(), body, out)
	if IsUnauthorized(err) {
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			hook()
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Message json.RawMessage   `json:"message"`
		Fields  map[string]string `json:"fields"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err == nil {
		var msg string
		if json.Unmarshal(payload.Message, &msg) == nil {
			apiErr.Message = msg
		} else {
			apiErr.Message = string(payload.Message)
		}
		apiErr.Fields = payload.Fields
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func query(path string, kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			v.Set(kv[i], kv[i+1])
		}
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
