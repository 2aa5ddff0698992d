/*
Copyright 2026 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package fleet is a small client for the Fleet software-management REST API.
package fleet

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/gravitational/fleet-importer/pkg/logging"
)

const (
	// ClientTimeout bounds the read-only API calls.
	ClientTimeout = 30 * time.Second
	// UploadTimeout bounds a single installer upload.
	UploadTimeout = 15 * time.Minute

	apiPrefix = "/api/v1/fleet"

	// Error bodies are echoed back to the user, keep them bounded.
	maxErrorBody = 64 << 10
)

// Client talks to a single Fleet server.
type Client struct {
	baseURL string
	token   string
	retries int
	logger  *slog.Logger

	// api is used for idempotent reads and retries transient failures.
	api *retryablehttp.Client
	// upload is never retried.
	upload *http.Client
}

// Option configures a Client.
type Option func(c *Client)

// WithRetries sets how many times a failed read is retried.
func WithRetries(retries int) Option {
	return func(c *Client) {
		c.retries = retries
	}
}

// WithLogger configures the client with the provided logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger == nil {
			logger = logging.DiscardLogger
		}
		c.logger = logger
	}
}

// NewClient creates a client for the Fleet server at baseURL authenticating
// with an API token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logging.DiscardLogger,
	}
	for _, opt := range opts {
		opt(c)
	}

	api := retryablehttp.NewClient()
	api.RetryMax = c.retries
	api.RetryWaitMin = 500 * time.Millisecond
	api.RetryWaitMax = 5 * time.Second
	api.HTTPClient.Timeout = ClientTimeout
	api.Logger = c.logger
	// Hand the last response back instead of a generic "giving up" error so
	// the status and body can be reported.
	api.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.api = api

	c.upload = &http.Client{
		Transport: api.HTTPClient.Transport,
		Timeout:   UploadTimeout,
	}

	return c
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) authorize(h http.Header) {
	h.Set("Authorization", "Bearer "+c.token)
	h.Set("Accept", "application/json")
}

// getJSON performs a GET against the API and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return trace.Wrap(err)
	}
	c.authorize(req.Header)

	resp, err := c.api.Do(req)
	if err != nil {
		return trace.Wrap(err, "GET %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("Fleet request "+path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return trace.Wrap(err, "failed to decode response from %s", path)
	}
	return nil
}

// statusError converts a non-success response into a trace error carrying the
// status code and the response body verbatim.
func statusError(action string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return trace.AccessDenied("%s failed: %d %s", action, resp.StatusCode, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return trace.BadParameter("%s failed: %d %s", action, resp.StatusCode, msg)
	case http.StatusNotFound:
		return trace.NotFound("%s failed: %d %s", action, resp.StatusCode, msg)
	case http.StatusConflict:
		return trace.AlreadyExists("%s failed: %d %s", action, resp.StatusCode, msg)
	default:
		return trace.Errorf("%s failed: %d %s", action, resp.StatusCode, msg)
	}
}
