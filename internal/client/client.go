// Package client is the Go front end of money42: an HTTP client for the
// server API, the session manager that mirrors the signed-in identity into
// local state, and the redemption workflow built on both.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"money42/internal/auth"
	"money42/internal/domain"
)

// DefaultTimeout bounds every API call so a hung request cannot leave the
// caller busy forever.
const DefaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Balance is the body of GET /wallet
type Balance struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
	Cached  bool   `json:"cached"`
}

// Redemption is the body of a successful POST /wallet/redeem
type Redemption struct {
	Message       string          `json:"message"`
	TransactionID uint            `json:"transaction_id"`
	Type          domain.CodeType `json:"type"`
	Amount        int64           `json:"amount"`
	Balance       int64           `json:"balance"`
}

// HistoryPage is one page of GET /wallet/transactions
type HistoryPage struct {
	Transactions []domain.Transaction `json:"transactions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	Total        int64                `json:"total"`
	TotalPages   int                  `json:"total_pages"`
}

// Client talks to the money42 HTTP API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a client for the server at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the bearer token sent with authenticated calls
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SignUp registers an email/password account
func (c *Client) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	var s auth.Session
	if err := c.do(ctx, http.MethodPost, "/auth/signup", credentials{email, password}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignIn exchanges email and password for a session
func (c *Client) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	var s auth.Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentials{email, password}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignOut revokes the current token on the server
func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Session returns the session behind the current token
func (c *Client) Session(ctx context.Context) (*auth.Session, error) {
	var s auth.Session
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// OAuthURL is the server URL that starts a provider sign-in and finally
// redirects the browser to redirectTo
func (c *Client) OAuthURL(provider, redirectTo string) string {
	q := url.Values{"redirect_to": {redirectTo}}
	return c.baseURL + "/auth/oauth/" + url.PathEscape(provider) + "?" + q.Encode()
}

// Balance fetches the signed-in user's balance
func (c *Client) Balance(ctx context.Context) (*Balance, error) {
	var b Balance
	if err := c.do(ctx, http.MethodGet, "/wallet", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Redeem submits a code. A nil Redemption with a nil error means the server
// had nothing to redeem.
func (c *Client) Redeem(ctx context.Context, code string) (*Redemption, error) {
	var r Redemption
	status, err := c.send(ctx, http.MethodPost, "/wallet/redeem", map[string]string{"code": code}, &r)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &r, nil
}

// History fetches one page of the user's redemptions
func (c *Client) History(ctx context.Context, page, pageSize int) (*HistoryPage, error) {
	q := url.Values{"page": {strconv.Itoa(page)}, "page_size": {strconv.Itoa(pageSize)}}
	var h HistoryPage
	if err := c.do(ctx, http.MethodGet, "/wallet/transactions?"+q.Encode(), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.send(ctx, method, path, body, out)
	return err
}

// send performs one request and decodes a 2xx body into out
func (c *Client) send(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, decodeError(resp.StatusCode, data)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return &APIError{Status: status, Message: body.Error}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}
