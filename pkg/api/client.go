package api

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

	goerrors "github.com/goliatone/go-errors"
)

// Record is an opaque entity as returned by the API.
type Record = map[string]any

// Pagination is the server-authoritative paging block.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// Envelope is the response shape shared by every endpoint.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// ListQuery carries filters, paging and sort as query parameters.
type ListQuery struct {
	Page    int
	Limit   int
	Filters map[string]string
	Sort    string
	Order   string
}

// Values encodes the query.
func (q ListQuery) Values() url.Values {
	values := url.Values{}
	for k, v := range q.Filters {
		if v != "" {
			values.Set(k, v)
		}
	}
	if q.Page > 0 {
		values.Set("page", fmt.Sprint(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", fmt.Sprint(q.Limit))
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
		if q.Order != "" {
			values.Set("order", q.Order)
		}
	}
	return values
}

// ListResult is one page of records.
type ListResult struct {
	Records    []Record
	Pagination Pagination
	Message    string
}

// Config configures the REST client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the agency REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client. The bearer token travels on the request context,
// see ContextWithToken.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
	}, nil
}

// List fetches one page of resource.
func (c *Client) List(ctx context.Context, resource string, q ListQuery) (ListResult, error) {
	path := "/" + strings.Trim(resource, "/")
	if encoded := q.Values().Encode(); encoded != "" {
		path += "?" + encoded
	}
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return ListResult{}, err
	}
	result := ListResult{Message: env.Message}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &result.Records); err != nil {
			return ListResult{}, fmt.Errorf("api: decode %s list: %w", resource, err)
		}
	}
	if env.Pagination != nil {
		result.Pagination = *env.Pagination
	} else {
		result.Pagination = Pagination{
			CurrentPage:  1,
			TotalPages:   1,
			TotalItems:   len(result.Records),
			ItemsPerPage: len(result.Records),
		}
	}
	return result, nil
}

// Get fetches a single record by id.
func (c *Client) Get(ctx context.Context, resource, id string) (Record, error) {
	return c.record(ctx, http.MethodGet, resourcePath(resource, id), nil)
}

// Create posts a new record.
func (c *Client) Create(ctx context.Context, resource string, payload Record) (Record, error) {
	return c.record(ctx, http.MethodPost, resourcePath(resource, ""), payload)
}

// Update replaces a record.
func (c *Client) Update(ctx context.Context, resource, id string, payload Record) (Record, error) {
	return c.record(ctx, http.MethodPut, resourcePath(resource, id), payload)
}

// Patch partially updates a record.
func (c *Client) Patch(ctx context.Context, resource, id string, payload Record) (Record, error) {
	return c.record(ctx, http.MethodPatch, resourcePath(resource, id), payload)
}

// Delete removes a record. The id travels as a query parameter.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	if id == "" {
		return goerrors.New("api: record id is required", goerrors.CategoryBadInput)
	}
	path := resourcePath(resource, "") + "?" + url.Values{"id": {id}}.Encode()
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

// Submit sends payload with method to endpoint and returns the record in the
// response data, if any.
func (c *Client) Submit(ctx context.Context, method, endpoint string, payload map[string]any) (map[string]any, error) {
	return c.record(ctx, method, "/"+strings.TrimLeft(endpoint, "/"), payload)
}

func (c *Client) record(ctx context.Context, method, path string, payload any) (Record, error) {
	env, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return Record{}, nil
	}
	var rec Record
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		// some endpoints answer with a scalar or list; keep it addressable
		var raw any
		if jsonErr := json.Unmarshal(env.Data, &raw); jsonErr != nil {
			return nil, fmt.Errorf("api: decode response: %w", err)
		}
		return Record{"data": raw}, nil
	}
	return rec, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (Envelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("api: encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Envelope{}, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Envelope{}, goerrors.Wrap(err, goerrors.CategoryExternal, "api: request failed").
			WithTextCode("API_UNREACHABLE")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Envelope{}, goerrors.Wrap(err, goerrors.CategoryExternal, "api: read response").
			WithTextCode("API_UNREACHABLE")
	}
	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= 300 || (decodeErr == nil && !env.Success) {
		return env, responseError(resp.StatusCode, env.Message)
	}
	if decodeErr != nil {
		return Envelope{}, fmt.Errorf("api: decode envelope: %w", decodeErr)
	}
	return env, nil
}

func resourcePath(resource, id string) string {
	path := "/" + strings.Trim(resource, "/")
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	return path
}

type tokenContextKey struct{}

// ContextWithToken attaches the bearer token used for outgoing requests.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFrom returns the bearer token on ctx.
func TokenFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}
