// Package supabase is a small client for a Supabase project's PostgREST and GoTrue endpoints.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
)

// Client is a Supabase REST API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint64
	backoff    time.Duration
}

// Config holds client configuration.
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	// MaxRetries bounds retries of 429 and 5xx responses and transport errors.
	MaxRetries int
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff time.Duration
}

// New creates a new Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		maxRetries: uint64(maxRetries),
		backoff:    backoff,
	}, nil
}

// =============================================================================
// Database Operations (PostgREST)
// =============================================================================

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client: c,
		table:  table,
	}
}

// QueryBuilder builds PostgREST queries.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	filters []string
	orders  []string
	limit   int
	offset  int
	single  bool
}

// Select specifies columns to select.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=eq.%v", column, value))
	return q
}

// ILike adds a case-insensitive LIKE filter. Use * as the wildcard.
func (q *QueryBuilder) ILike(column string, pattern string) *QueryBuilder {
	q.filters = append(q.filters, fmt.Sprintf("%s=ilike.%s", column, pattern))
	return q
}

// In adds an IN filter. Values are quoted so commas and parentheses survive.
func (q *QueryBuilder) In(column string, values []string) *QueryBuilder {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	q.filters = append(q.filters, fmt.Sprintf("%s=in.(%s)", column, strings.Join(quoted, ",")))
	return q
}

// OrILike matches rows where any of the columns contains substr, ignoring case.
func (q *QueryBuilder) OrILike(substr string, columns ...string) *QueryBuilder {
	pattern := quote("*" + substr + "*")
	conds := make([]string, len(columns))
	for i, col := range columns {
		conds[i] = col + ".ilike." + pattern
	}
	q.filters = append(q.filters, fmt.Sprintf("or=(%s)", strings.Join(conds, ",")))
	return q
}

// quote wraps a PostgREST filter value in double quotes, escaping embedded quotes and backslashes.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// Order adds an ORDER BY clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, fmt.Sprintf("%s.%s", column, dir))
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Offset sets the OFFSET.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offset = n
	return q
}

// Single expects a single result.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

func (q *QueryBuilder) filterParams() url.Values {
	params := url.Values{}
	for _, f := range q.filters {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) == 2 {
			params.Add(parts[0], parts[1])
		}
	}
	return params
}

func (q *QueryBuilder) path() string {
	return "/rest/v1/" + q.table
}

// Execute executes a SELECT query.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	params := q.filterParams()
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.limit))
	}
	if q.offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", q.offset))
	}

	headers := map[string]string{}
	if q.single {
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}
	return q.client.send(ctx, http.MethodGet, q.path(), params, nil, headers)
}

// ExecuteInsert executes an INSERT operation.
func (q *QueryBuilder) ExecuteInsert(ctx context.Context, data any) (*Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return q.client.send(ctx, http.MethodPost, q.path(), nil, body, map[string]string{
		"Content-Type": "application/json",
		"Prefer":       "return=representation",
	})
}

// ExecuteUpdate executes an UPDATE operation.
func (q *QueryBuilder) ExecuteUpdate(ctx context.Context, data any) (*Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return q.client.send(ctx, http.MethodPatch, q.path(), q.filterParams(), body, map[string]string{
		"Content-Type": "application/json",
		"Prefer":       "return=representation",
	})
}

// ExecuteDelete executes a DELETE operation.
func (q *QueryBuilder) ExecuteDelete(ctx context.Context) (*Response, error) {
	return q.client.send(ctx, http.MethodDelete, q.path(), q.filterParams(), nil, map[string]string{
		"Prefer": "return=representation",
	})
}

// =============================================================================
// Auth Operations
// =============================================================================

// Auth returns an auth client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// AuthClient handles GoTrue authentication operations.
type AuthClient struct {
	client *Client
}

// SignUp creates a new user.
func (a *AuthClient) SignUp(ctx context.Context, email, password string) (*AuthResponse, error) {
	return a.credentials(ctx, "/auth/v1/signup", nil, email, password)
}

// SignIn signs in a user with email and password.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	params := url.Values{"grant_type": {"password"}}
	return a.credentials(ctx, "/auth/v1/token", params, email, password)
}

func (a *AuthClient) credentials(ctx context.Context, path string, params url.Values, email, password string) (*AuthResponse, error) {
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	resp, err := a.client.send(ctx, http.MethodPost, path, params, body, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var authResp AuthResponse
	if err := json.Unmarshal(resp.Body, &authResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	// Sign up with email confirmation disabled returns the user at the top level.
	if authResp.User == nil {
		var user User
		if err := json.Unmarshal(resp.Body, &user); err == nil && user.ID != "" {
			authResp.User = &user
		}
	}
	return &authResp, nil
}

// GetUser gets the user owning accessToken.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := a.client.send(ctx, http.MethodGet, "/auth/v1/user", nil, nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &user, nil
}

// AuthResponse is the response from auth operations.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// User represents a Supabase auth user.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	CreatedAt    string         `json:"created_at"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// =============================================================================
// Response Types
// =============================================================================

// Response is a generic API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// StatusError is returned by Response.Error for failed requests.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase error: %s", e.Message)
	}
	return fmt.Sprintf("supabase error: status %d", e.StatusCode)
}

// Error returns an error if the response indicates failure.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	se := &StatusError{StatusCode: r.StatusCode}
	if !gjson.ValidBytes(r.Body) {
		return se
	}
	// PostgREST sends a string code, GoTrue a numeric one.
	body := gjson.ParseBytes(r.Body)
	se.Code = body.Get("code").String()
	for _, key := range []string{"message", "error_description", "msg", "error"} {
		if m := body.Get(key).String(); m != "" {
			se.Message = m
			break
		}
	}
	return se
}

// IsStatus reports whether err is a StatusError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == status
}

// =============================================================================
// Internal Methods
// =============================================================================

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// send performs the request, retrying transport failures and retryable statuses with exponential backoff.
// The last response is returned even when its status is still retryable.
func (c *Client) send(ctx context.Context, method, path string, params url.Values, body []byte, headers map[string]string) (*Response, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var resp *Response
	b := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		r, err := c.do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		resp = r
		if isRetryableStatus(r.StatusCode) {
			return retry.RetryableError(r.Error())
		}
		return nil
	})
	if err != nil && resp == nil {
		return nil, err
	}
	if err != nil && !isRetryableStatus(resp.StatusCode) {
		return nil, err
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
