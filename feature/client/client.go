package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"engine-bridge/core/logger"
	"engine-bridge/core/response"
	"engine-bridge/core/session"

	"go.uber.org/zap"
)

// Client issues REST calls against an established session and returns every
// outcome as a normalized response.Result.
type Client struct {
	base        string
	http        *http.Client
	log         *zap.Logger
	jobInterval time.Duration
}

// Option adjusts a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithJobPollInterval sets how often long-running jobs are polled
// (default 2s).
func WithJobPollInterval(d time.Duration) Option {
	return func(c *Client) { c.jobInterval = d }
}

// New creates a client bound to one session.
func New(s *session.Session, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		base:        s.BaseURL,
		http:        &http.Client{},
		log:         logger.WithSession(log, s.ID),
		jobInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches a resource.
func (c *Client) Get(ctx context.Context, path string) response.Result {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post creates a resource. Accepted (202) responses are followed until the
// job behind them finishes.
func (c *Client) Post(ctx context.Context, path string, payload any) response.Result {
	return c.do(ctx, http.MethodPost, path, payload)
}

// Put updates a resource.
func (c *Client) Put(ctx context.Context, path string, payload any) response.Result {
	return c.do(ctx, http.MethodPut, path, payload)
}

// Delete removes a resource.
func (c *Client) Delete(ctx context.Context, path string) response.Result {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) response.Result {
	status, body, err := c.raw(ctx, method, path, payload)
	if err != nil {
		return transportFailure(ctx, err)
	}
	if status == http.StatusAccepted {
		return c.awaitJob(ctx, body)
	}
	return response.Normalize(status, body, nil)
}

// transportFailure keeps caller aborts out of the unreachable bucket.
func transportFailure(ctx context.Context, err error) response.Result {
	if ctx.Err() != nil {
		return response.Result{
			Outcome: response.OutcomeError,
			Err:     response.NewError(response.KindCancelled, "request cancelled: %v", ctx.Err()),
		}
	}
	return response.Normalize(0, nil, err)
}

func (c *Client) raw(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+normalizePath(path), reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json, text/plain")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// normalizePath accepts the loose path spellings automation scripts produce:
// leading slashes, a redundant ep/ prefix, backslashes and literal spaces.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimPrefix(p, "ep/")
	p = strings.ReplaceAll(p, " ", "%20")
	return p
}
