package odoosync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmbizsuite/console_backend/models"
)

// Client talks to the Odoo adapter REST API. Requests are rate-limited with
// a shared ticker so a catalog sync cannot hammer the adapter.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	limiter <-chan time.Time
}

// NewClient builds a client from the tenant's connection row. The base URL
// can be overridden per deployment with ODOO_ADAPTER_BASE_URL; request rate
// with ODOO_SYNC_RPS (default 5 req/s).
func NewClient(conn *models.OdooConnection) *Client {
	baseURL := ""
	apiKey := ""
	if conn != nil {
		baseURL = conn.BaseUrl
		apiKey = conn.ApiKey
	}
	if v := os.Getenv("ODOO_ADAPTER_BASE_URL"); v != "" {
		baseURL = v
	}

	rps := 5
	if v := os.Getenv("ODOO_SYNC_RPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rps = n
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		limiter: time.Tick(time.Second / time.Duration(rps)),
	}
}

// APIError is a structured rejection from the adapter:
// HTTP status plus the {error: {code, message}} envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("odoo adapter error (status=%d code=%s): %s", e.Status, e.Code, e.Message)
}

type apiEnvelope struct {
	Id    string `json:"id"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IsNotFound reports whether err is the adapter's "entity does not exist"
// signal for the update step. The contract is HTTP 404 or error code
// "not_found"; text sniffing survives only as a fallback for older adapter
// builds and is isolated here.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusNotFound {
		return true
	}
	if apiErr.Code == "not_found" {
		return true
	}
	return legacyNotFoundText(apiErr.Message)
}

// legacyNotFoundText matches pre-envelope adapter builds that only reported
// not-found in free text. TODO: drop once every tenant runs adapter >= 2.3.
func legacyNotFoundText(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "not found") ||
		strings.Contains(m, "does not exist") ||
		strings.Contains(m, "unknown entity")
}

// IsRetryable classifies an upsert failure for the sync error log: network
// errors and adapter 5xx/429 may succeed on the next run; business
// rejections will not.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// Transport-level failure.
		return true
	}
	return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
}

// UpdateEntity updates a remote entity addressed by its natural key.
// Returns the remote-assigned id when the adapter reports one.
func (c *Client) UpdateEntity(ctx context.Context, resource string, naturalKey string, payload map[string]interface{}) (string, error) {
	path := fmt.Sprintf("/api/v1/%s/%s", resource, url.PathEscape(naturalKey))
	return c.do(ctx, http.MethodPut, path, payload)
}

// CreateEntity creates a remote entity. The payload must carry the natural
// key and any create-only fields.
func (c *Client) CreateEntity(ctx context.Context, resource string, payload map[string]interface{}) (string, error) {
	path := fmt.Sprintf("/api/v1/%s", resource)
	return c.do(ctx, http.MethodPost, path, payload)
}

func (c *Client) do(ctx context.Context, method string, path string, payload map[string]interface{}) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("odoo adapter base url is not configured")
	}

	// Rate limit every outbound call.
	select {
	case <-c.limiter:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var envelope apiEnvelope
	// Older adapter builds return plain-text errors; keep the raw body then.
	_ = json.Unmarshal(raw, &envelope)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return "", apiErr
	}
	return envelope.Id, nil
}
