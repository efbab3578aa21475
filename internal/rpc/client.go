// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aplane-algo/zilstore/internal/util"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single call when no timeout is configured
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps how much of a response body is read (blocks with
// many microblocks can be large)
const maxResponseSize = 16 * 1024 * 1024

// Client sends JSON-RPC calls to one node over HTTP POST.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter

	requestID atomic.Uint64
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client entirely
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithRateLimit caps outgoing calls at rps per second with a burst of one.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a client for the node at url
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:  url,
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the node endpoint
func (c *Client) URL() string {
	return c.url
}

// Call sends method with params and decodes the result into result (if non-nil).
// A JSON-RPC error from the node is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params []any, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	request := NewRequest(method, params, c.requestID.Add(1))
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	util.Debug("rpc call", "method", method, "id", request.ID)
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status %d", httpResp.StatusCode)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.HasError() {
		return resp.Error
	}
	if result == nil {
		return nil
	}
	return resp.ParseResult(result)
}
