// Package api is the inventory backend's REST client. Every response uses the
// {success, data | error} envelope.
package api

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

	"go.uber.org/zap"

	"inventory-mobile/client/internal/logging"
)

// ErrUnauthorized matches any *Error with status 401.
var ErrUnauthorized = errors.New("api: unauthorized")

// Error is a non-2xx response or a response with success=false.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// maxBody bounds how much of a response is read.
const maxBody = 4 << 20

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// Client calls the backend. Its transport is expected to be the interceptor chain,
// which attaches the bearer token and handles 401s.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New returns a Client for baseURL (e.g. https://inventory.example.com/api). A nil transport
// uses http.DefaultTransport; timeout <= 0 means none.
func New(baseURL string, transport http.RoundTripper, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout < 0 {
		timeout = 0
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: transport, Timeout: timeout},
		logger:  logging.OrNop(logger),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	return c.send(ctx, method, path, query, nil, in, out)
}

// send is do with extra request headers.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, header http.Header, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request %s %s: %w", method, path, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if decodeErr == nil {
			msg = env.message()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		// 204 and friends.
		return nil
	}
	if decodeErr != nil {
		c.logger.Warn("api: undecodable response", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Error(decodeErr))
		return fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	if !env.Success {
		return &Error{Status: resp.StatusCode, Message: env.message()}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

// message extracts the error text. The backend sends either "error": "text" or
// "error": {"message": "text"}, sometimes with a top-level "message".
func (e *envelope) message() string {
	if len(e.Error) > 0 {
		var s string
		if json.Unmarshal(e.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(e.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return e.Message
}

func idPath(prefix string, id int64, suffix string) string {
	return fmt.Sprintf("%s/%d%s", prefix, id, suffix)
}
