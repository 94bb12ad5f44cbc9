package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the Copyleaks REST API. All outbound calls pass through a
// shared rate limiter so a burst of scan submissions cannot trip the vendor's
// throttling.
type Client struct {
	identityURL string
	apiURL      string
	email       string
	key         string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func New(identityURL, apiURL, email, key string, opts ...Option) *Client {
	c := &Client{
		identityURL: identityURL,
		apiURL:      apiURL,
		email:       email,
		key:         key,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token is the vendor login response.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in,omitempty"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("copyleaks api error: status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, url, token string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call copyleaks: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// Login exchanges the configured email/key pair for an access token.
func (c *Client) Login(ctx context.Context) (*Token, error) {
	body, err := json.Marshal(map[string]string{"email": c.email, "key": c.key})
	if err != nil {
		return nil, err
	}

	data, err := c.do(ctx, http.MethodPost, c.identityURL+"/v3/account/login/api", "", body)
	if err != nil {
		return nil, err
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &tok, nil
}

// Submit uploads a scan request body for the given scan id.
func (c *Client) Submit(ctx context.Context, token, scanID string, body []byte) error {
	url := fmt.Sprintf("%s/v3/scans/submit/file/%s", c.apiURL, scanID)
	_, err := c.do(ctx, http.MethodPut, url, token, body)
	return err
}

// SubmitURL uploads a URL-based scan request.
func (c *Client) SubmitURL(ctx context.Context, token, scanID string, body []byte) error {
	url := fmt.Sprintf("%s/v3/scans/submit/url/%s", c.apiURL, scanID)
	_, err := c.do(ctx, http.MethodPut, url, token, body)
	return err
}

// Start triggers scanning for previously submitted content.
func (c *Client) Start(ctx context.Context, token string, scanIDs []string) ([]byte, error) {
	body, err := json.Marshal(map[string]interface{}{"trigger": scanIDs})
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPatch, c.apiURL+"/v3/scans/start", token, body)
}

// Result fetches the finished scan report.
func (c *Client) Result(ctx context.Context, token, scanID string) ([]byte, error) {
	url := fmt.Sprintf("%s/v3/scans/%s/result", c.apiURL, scanID)
	return c.do(ctx, http.MethodGet, url, token, nil)
}
