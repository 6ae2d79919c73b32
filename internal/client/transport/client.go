// Package transport is the HTTP JSON client of the sync endpoint.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
)

var (
	ErrUnauthorized      = errors.New("sync unauthorized")
	ErrUnavailable       = errors.New("sync server unavailable")
	ErrMalformedResponse = errors.New("malformed sync response")
	ErrResponseTooLarge  = errors.New("sync response too large")
)

// DefaultMaxResponseBytes bounds how much of a response body is read.
const DefaultMaxResponseBytes = 64 << 20

// StatusError is a non-2xx answer that is neither an auth failure nor a
// server outage.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sync status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("sync status %d", e.StatusCode)
}

type Client struct {
	httpClient       *http.Client
	baseURL          string
	maxResponseBytes int64
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:       httpClient,
		baseURL:          strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		maxResponseBytes: DefaultMaxResponseBytes,
	}
}

// WithMaxResponseBytes overrides the response body limit. n <= 0 keeps the
// current limit.
func (c *Client) WithMaxResponseBytes(n int64) *Client {
	if n > 0 {
		c.maxResponseBytes = n
	}
	return c
}

// Sync sends one round. A nil error means the server committed the batch
// and the response is complete.
func (c *Client) Sync(ctx context.Context, token string, req *syncproto.Request) (*syncproto.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+common.SyncPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token = strings.TrimSpace(token); token != "" {
		if !strings.HasPrefix(strings.ToLower(token), strings.ToLower(common.BearerPrefix)) {
			token = common.BearerPrefix + token
		}
		httpReq.Header.Set(common.AuthorizationHeaderName, token)
	}

	raw, status, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	if err := statusError(status, raw); err != nil {
		return nil, err
	}

	var resp syncproto.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Status != syncproto.StatusSuccess {
		return nil, fmt.Errorf("%w: status %q", ErrMalformedResponse, resp.Status)
	}
	if resp.NewSyncTime.IsZero() {
		return nil, fmt.Errorf("%w: missing new_sync_time", ErrMalformedResponse)
	}
	return &resp, nil
}

// Ping checks that the server answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+common.HealthPath, nil)
	if err != nil {
		return err
	}
	raw, status, err := c.do(req)
	if err != nil {
		return err
	}
	return statusError(status, raw)
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if int64(len(raw)) > c.maxResponseBytes {
		return nil, 0, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxResponseBytes)
	}
	return raw, resp.StatusCode, nil
}

func statusError(status int, raw []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var eb syncproto.ErrorResponse
	_ = json.Unmarshal(raw, &eb)
	msg := strings.TrimSpace(eb.Error)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		}
		return ErrUnauthorized
	case status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	default:
		return &StatusError{StatusCode: status, Message: msg}
	}
}
