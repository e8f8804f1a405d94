// Package apiclient wraps the lab control API. Every method is a single
// request: no retries, no caching and no interpretation of the payload.
package apiclient

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

	"github.com/google/uuid"
	"github.com/jaxxstorm/dnsdash/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://localhost:5000"

	maxBodyBytes = 8 << 20
	// debugBodyBytes caps how much of a response body debug logging keeps.
	debugBodyBytes = 512
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	BaseURL    string
	HTTPClient Doer
	UserAgent  string
	Logger     *zap.Logger
	Metrics    metrics.Recorder
}

type Client struct {
	opts Options
	base string
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "dnsdash"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &Client{opts: opts, base: strings.TrimRight(opts.BaseURL, "/")}
}

// BaseURL returns the normalized control API address.
func (c *Client) BaseURL() string {
	return c.base
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.call(ctx, op, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, op, path string, query url.Values, body any, out any) error {
	if body == nil {
		body = struct{}{}
	}
	return c.call(ctx, op, http.MethodPost, path, query, body, out)
}

func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body any, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, op, method, c.endpoint(path, query), body, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.opts.Metrics.ObserveCall(op, outcome, time.Since(start))
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, target string, body any, out any) error {
	var reader io.Reader
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: fmt.Sprintf("%s: encode request", op), Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Op: op, Message: fmt.Sprintf("%s: build request", op), Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.opts.Logger.With(zap.String("op", op), zap.String("request_id", requestID))
	log.Debug("api request", zap.String("method", method), zap.String("url", target), zap.ByteString("body", payload))

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		log.Debug("api transport failure", zap.Error(err))
		return &Error{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("%s: read response", op), Err: err}
	}
	log.Debug("api response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.ByteString("body", raw[:min(len(raw), debugBodyBytes)]),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := backendMessage(raw)
		if message == "" {
			message = fmt.Sprintf("%s: backend returned %s", op, resp.Status)
		}
		return &Error{Op: op, Status: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("%s: malformed response", op), Err: err}
	}
	return nil
}

// backendMessage picks the human-readable text out of an error body.
func backendMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
