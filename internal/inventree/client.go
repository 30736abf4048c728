package inventree

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

	"github.com/epccs/parts-epccs/internal/config"
)

// Resource collection paths on the InvenTree API
const (
	PathParts             = "api/part/"
	PathCategories        = "api/part/category/"
	PathBOM               = "api/bom/"
	PathCompanies         = "api/company/"
	PathSupplierParts     = "api/company/part/"
	PathManufacturerParts = "api/company/part/manufacturer/"
	PathPriceBreaks       = "api/company/price-break/"
)

// ErrNotFound reports an expected absence (404), distinct from real failures
var ErrNotFound = errors.New("inventree: not found")

// APIError is a non-2xx response from the remote catalog. The full body is
// kept so validation rejections can be surfaced verbatim in diagnostics.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inventree: %s %s -> %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Transient reports whether the error is worth retrying (429 or 5xx)
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to an InvenTree-style REST catalog
type Client struct {
	baseURL       string
	token         string
	httpClient    *http.Client
	retryAttempts int
	retryBackoff  time.Duration
}

// NewClient creates a new InvenTree client
func NewClient(cfg config.InvenTreeConfig, syncCfg config.SyncConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	backoff := syncCfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		token:         cfg.Token,
		httpClient:    &http.Client{Timeout: timeout},
		retryAttempts: syncCfg.RetryAttempts,
		retryBackoff:  backoff,
	}
}

func (c *Client) absURL(path string, params url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// doRequest performs one HTTP call with bounded retry on network errors and
// transient (429/5xx) responses. 4xx responses are never retried.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, payload interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryBackoff << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Token "+c.token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("inventree: %s %s: %w", method, rawURL, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("inventree: read response: %w", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s %s: %w", method, rawURL, ErrNotFound)
		}

		apiErr := &APIError{
			Method:     method,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
		if !apiErr.Transient() {
			return nil, apiErr
		}
		lastErr = apiErr
	}
	return nil, lastErr
}

// pagedEnvelope is the {results, next} page wrapper. Some endpoints return
// a bare JSON array instead; decodePage handles both once at the boundary.
type pagedEnvelope struct {
	Results []json.RawMessage `json:"results"`
	Next    *string           `json:"next"`
}

func decodePage(data []byte) ([]json.RawMessage, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", fmt.Errorf("decode list page: %w", err)
		}
		return items, "", nil
	}

	var env pagedEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, "", fmt.Errorf("decode page envelope: %w", err)
	}
	if env.Results == nil {
		// Single object response
		return []json.RawMessage{json.RawMessage(trimmed)}, "", nil
	}
	next := ""
	if env.Next != nil {
		next = *env.Next
	}
	return env.Results, next, nil
}

// List fetches every record of a collection, following pagination until the
// server stops returning a next link. A next URL identical to the one just
// fetched is a protocol error, not an invitation to loop forever.
func (c *Client) List(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	pageURL := c.absURL(path, params)
	var items []json.RawMessage
	for pageURL != "" {
		data, err := c.doRequest(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		pageItems, next, err := decodePage(data)
		if err != nil {
			return nil, err
		}
		items = append(items, pageItems...)
		if next == pageURL {
			return nil, fmt.Errorf("inventree: pagination loop at %s", pageURL)
		}
		pageURL = next
	}
	return items, nil
}

// listAs fetches a full collection and decodes every record as T
func listAs[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	raw, err := c.List(ctx, path, params)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// create POSTs a record and decodes the created record (with server pk)
func create[T any](ctx context.Context, c *Client, path string, payload interface{}) (T, error) {
	var v T
	data, err := c.doRequest(ctx, http.MethodPost, c.absURL(path, nil), payload)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode created %s record: %w", path, err)
	}
	return v, nil
}

// patch PATCHes a partial payload onto one resource and decodes the result
func patch[T any](ctx context.Context, c *Client, path string, pk int, payload interface{}) (T, error) {
	var v T
	data, err := c.doRequest(ctx, http.MethodPatch, fmt.Sprintf("%s%d/", c.absURL(path, nil), pk), payload)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode updated %s record: %w", path, err)
	}
	return v, nil
}

// deleteResource removes one resource. ErrNotFound is returned as-is so
// callers can treat an already-gone record as success.
func (c *Client) deleteResource(ctx context.Context, path string, pk int) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("%s%d/", c.absURL(path, nil), pk), nil)
	return err
}
