package zenmoney

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"finmirror/internal/domain/syncer"
	"finmirror/internal/domain/transaction"
)

const (
	DefaultBaseURL = "https://api.zenmoney.app/v8/"
	diffPath       = "diff"

	// maxBodySize caps the response we are willing to buffer. A full first
	// sync of a large ledger runs to tens of megabytes.
	maxBodySize = 256 << 20
)

// Client talks to the ZenMoney diff endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

// Ensure Client implements syncer.RemoteClient
var _ syncer.RemoteClient = (*Client)(nil)

// NewClient creates a client for baseURL; an empty baseURL selects
// DefaultBaseURL. Per-call deadlines come from the timeout arguments.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Fetch returns everything changed since cursor.
func (c *Client) Fetch(ctx context.Context, token string, cursor int64, timeout time.Duration) (*syncer.Diff, error) {
	return c.diff(ctx, token, diffRequest{
		ServerTimestamp:        cursor,
		CurrentClientTimestamp: c.now().Unix(),
	}, timeout)
}

// Push uploads txs and returns everything changed since cursor, including
// the server's copies of txs.
func (c *Client) Push(ctx context.Context, token string, cursor int64, txs []*transaction.Transaction, timeout time.Duration) (*syncer.Diff, error) {
	req := diffRequest{
		ServerTimestamp:        cursor,
		CurrentClientTimestamp: c.now().Unix(),
	}
	for _, tx := range txs {
		req.Transaction = append(req.Transaction, fromTransaction(tx))
	}
	return c.diff(ctx, token, req, timeout)
}

// Validate checks token with an empty diff anchored at the current time.
func (c *Client) Validate(ctx context.Context, token string, timeout time.Duration) error {
	_, err := c.Fetch(ctx, token, c.now().Unix(), timeout)
	return err
}

func (c *Client) diff(ctx context.Context, token string, payload diffRequest, timeout time.Duration) (*syncer.Diff, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ClientError{Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+diffPath, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Message: "failed to execute request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &ClientError{Status: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &AuthError{Status: resp.StatusCode}
		}
		msg := fmt.Sprintf("status code is %d", resp.StatusCode)
		if text := strings.TrimSpace(string(respBody)); text != "" {
			msg += " with response error: " + text
		}
		return nil, &ClientError{Status: resp.StatusCode, Message: msg}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return nil, &ClientError{Message: "Expected JSON object"}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &envelope); err != nil || envelope == nil {
		return nil, &ClientError{Message: "Expected JSON object"}
	}
	if raw, ok := envelope["error"]; ok && string(raw) != "null" {
		return nil, &ClientError{Message: fmt.Sprintf("Server method 'diff' returned error: %s", raw)}
	}

	var decoded DiffResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, &ClientError{Message: "failed to decode diff", Err: err}
	}

	diff, err := toDiff(&decoded)
	if err != nil {
		return nil, &ClientError{Message: "failed to convert diff", Err: err}
	}
	return diff, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
