package remote

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
)

// DefaultTimeout bounds one HTTP round trip.
const DefaultTimeout = 10 * time.Second

// envelope is the response body of the document server.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client is a Remote backed by the document server's HTTP API.
type Client struct {
	base string
	http *http.Client
}

var _ Remote = (*Client)(nil)

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Fetch implements Remote.
func (c *Client) Fetch(ctx context.Context, id string) (Row, error) {
	body, err := c.do(ctx, http.MethodGet, "fetch", id, nil)
	if err != nil {
		return Row{}, err
	}
	var row Row
	if err := json.Unmarshal(body, &row); err != nil {
		return Row{}, &Error{Code: CodeNetworkFailure, Op: "fetch", ID: id, Err: fmt.Errorf("decode row: %w", err)}
	}
	return row, nil
}

// Upsert implements Remote.
func (c *Client) Upsert(ctx context.Context, row Row) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("remote upsert %s: encode row: %w", row.ID, err)
	}
	_, err = c.do(ctx, http.MethodPut, "upsert", row.ID, payload)
	return err
}

// do performs one request and returns the envelope's data on success.
func (c *Client) do(ctx context.Context, method, op, id string, payload []byte) ([]byte, error) {
	fail := func(code ErrorCode, err error) error {
		return &Error{Code: code, Op: op, ID: id, Err: err}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/v1/documents/"+url.PathEscape(id), body)
	if err != nil {
		return nil, fail(CodeRejected, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(CodeNetworkFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(CodeNetworkFailure, fmt.Errorf("read body: %w", err))
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fail(CodeNotFound, nil)
	case resp.StatusCode >= 500:
		return nil, fail(CodeNetworkFailure, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, fail(CodeRejected, fmt.Errorf("status %d: %s", resp.StatusCode, env.Error))
	case decodeErr != nil:
		return nil, fail(CodeNetworkFailure, fmt.Errorf("decode response: %w", decodeErr))
	case !env.Success:
		return nil, fail(CodeRejected, fmt.Errorf("server: %s", env.Error))
	}
	return env.Data, nil
}
