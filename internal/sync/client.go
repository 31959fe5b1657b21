// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/logging"
	"github.com/tomtom215/groovesync/internal/models"
)

// maxErrorBodySize limits how much of an error response is read.
const maxErrorBodySize = 64 * 1024

// API is the server surface the client needs. Implemented by APIClient
// and CircuitBreakerClient.
type API interface {
	LastModified(ctx context.Context) (map[models.EntityType]models.Timestamp, error)
	Changes(ctx context.Context, w models.ChangeWindow) (*models.EntityChangeResponse[json.RawMessage], error)
	MarkListened(ctx context.Context, req models.MarkListenedRequest) error
}

// APIClient talks to the groovesync REST API.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a client from the agent configuration.
func NewAPIClient(cfg *config.ClientConfig) *APIClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &APIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// LastModified returns the newest change time per entity type.
func (c *APIClient) LastModified(ctx context.Context) (map[models.EntityType]models.Timestamp, error) {
	var body models.LastModifiedResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/sync/last-modified", nil, nil, &body); err != nil {
		return nil, err
	}
	if body.LastModifiedTimestamps == nil {
		return nil, fmt.Errorf("%w: missing lastModifiedTimestamps", ErrMalformedResponse)
	}
	return body.LastModifiedTimestamps, nil
}

// Changes fetches one page of the change feed. Rows are left undecoded;
// the applier knows their concrete type.
func (c *APIClient) Changes(ctx context.Context, w models.ChangeWindow) (*models.EntityChangeResponse[json.RawMessage], error) {
	path := fmt.Sprintf("/api/v1/sync/entity-type/%s/minimum/%d/maximum/%d",
		url.PathEscape(string(w.EntityType)), w.Minimum.Millis(), w.Maximum.Millis())
	query := url.Values{}
	query.Set("size", strconv.Itoa(w.PageSize))
	query.Set("page", strconv.Itoa(w.Page))
	if w.AfterID > 0 {
		query.Set("afterId", strconv.FormatInt(w.AfterID, 10))
	}

	var body models.EntityChangeResponse[json.RawMessage]
	if err := c.do(ctx, http.MethodGet, path, query, nil, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// MarkListened reports one completed play.
func (c *APIClient) MarkListened(ctx context.Context, req models.MarkListenedRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/track/mark-listened", nil, req, nil)
}

func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, payload, result any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.doWithRateLimit(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeHTTPError(resp)
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// doWithRateLimit retries HTTP 429 with exponential backoff, honoring
// Retry-After when the server sends one.
func (c *APIClient) doWithRateLimit(req *http.Request) (*http.Response, error) {
	const maxRetries = 3
	baseDelay := time.Second

	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt == maxRetries {
			return resp, nil
		}
		_ = resp.Body.Close()

		delay := baseDelay * (1 << attempt)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				delay = time.Duration(seconds) * time.Second
			}
		}
		logging.Warn().Dur("retry_delay", delay).Int("attempt", attempt+1).Msg("Server rate limited request, retrying")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
		if req.GetBody != nil {
			if req.Body, err = req.GetBody(); err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
		}
	}
}

func decodeHTTPError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}

	var envelope models.APIResponse
	if json.Unmarshal(data, &envelope) == nil && envelope.Error != nil {
		httpErr.Code = envelope.Error.Code
		httpErr.Message = envelope.Error.Message
	}
	return httpErr
}
