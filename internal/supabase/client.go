// Package supabase is a small client for the hosted data platform: PostgREST
// table access and Realtime postgres_changes subscriptions.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds client configuration.
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// Client is a PostgREST client. It is safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	httpClient  *http.Client
}

// New creates a client authenticated with the project's anon key.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// WithAccessToken returns a copy of the client that sends the user's JWT,
// so row-level security applies to every request.
func (c *Client) WithAccessToken(token string) *Client {
	cp := *c
	cp.accessToken = token
	return &cp
}

// AccessToken returns the user token in use, or "" for the anon role.
func (c *Client) AccessToken() string {
	return c.accessToken
}

// From starts a query on table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

// QueryBuilder builds PostgREST requests.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	filters url.Values
	orders  []string
	limit   int
}

func (q *QueryBuilder) addFilter(column, expr string) *QueryBuilder {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, expr)
	return q
}

// Select specifies the columns to return.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds column = value.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.addFilter(column, fmt.Sprintf("eq.%v", value))
}

// In adds column IN (values).
func (q *QueryBuilder) In(column string, values []string) *QueryBuilder {
	return q.addFilter(column, "in."+quoteList(values))
}

// NotIn adds column NOT IN (values).
func (q *QueryBuilder) NotIn(column string, values []string) *QueryBuilder {
	return q.addFilter(column, "not.in."+quoteList(values))
}

// Order adds an ORDER BY clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Execute runs a SELECT.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	params := q.params()
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	return q.send(ctx, http.MethodGet, params, nil)
}

// ExecuteInsert inserts data (a struct, map or slice) and returns the
// inserted representation.
func (q *QueryBuilder) ExecuteInsert(ctx context.Context, data any) (*Response, error) {
	return q.send(ctx, http.MethodPost, url.Values{}, data)
}

// ExecuteUpdate patches every row matching the filters.
func (q *QueryBuilder) ExecuteUpdate(ctx context.Context, data any) (*Response, error) {
	return q.send(ctx, http.MethodPatch, q.params(), data)
}

// ExecuteDelete deletes every row matching the filters.
func (q *QueryBuilder) ExecuteDelete(ctx context.Context) (*Response, error) {
	return q.send(ctx, http.MethodDelete, q.params(), nil)
}

func (q *QueryBuilder) params() url.Values {
	params := url.Values{}
	for k, vs := range q.filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	return params
}

func (q *QueryBuilder) send(ctx context.Context, method string, params url.Values, data any) (*Response, error) {
	if q.table == "" {
		return nil, ErrMissingTable
	}

	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, url.PathEscape(q.table))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var body io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal data: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.client.setHeaders(req)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	return q.client.do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	token := c.apiKey
	if c.accessToken != "" {
		token = c.accessToken
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransient, err)
	}

	out := &Response{StatusCode: resp.StatusCode, Body: body, Headers: resp.Header}
	if apiErr := out.Error(); apiErr != nil {
		if transientStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: %w", ErrTransient, apiErr)
		}
		return nil, apiErr
	}
	return out, nil
}

// Response is a raw PostgREST response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Rows splits a JSON array body into raw rows so callers can decode each
// record on its own and skip the malformed ones.
func (r *Response) Rows() ([]json.RawMessage, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(r.Body, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

// Error returns an *APIError for non-2xx responses.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	apiErr := &APIError{StatusCode: r.StatusCode}
	if err := json.Unmarshal(r.Body, &errResp); err == nil {
		apiErr.Message = errResp.Message
		if apiErr.Message == "" {
			apiErr.Message = errResp.Error
		}
	}
	return apiErr
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "(" + strings.Join(quoted, ",") + ")"
}
