// internal/client/client.go

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
)

// DefaultRadius is used when FetchMessages is called without a radius
const DefaultRadius = geo.MinVisibleRadius

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	degradedHeader = "X-Wall-Degraded"
)

var (
	// ErrDegraded is returned alongside an empty list when the server
	// could not run the nearby query
	ErrDegraded = errors.New("server answered without nearby results")

	// ErrUnexpectedResponse is returned when a list response is not a JSON array
	ErrUnexpectedResponse = errors.New("unexpected response shape")
)

// StatusError is a non-2xx reply
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Client talks to the wall HTTP API
type Client struct {
	baseURL string
	session *http.Client
	logger  logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.session = hc }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: &http.Client{Timeout: 10 * time.Second},
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMessages lists messages within radius meters of center. A radius of
// zero or less uses DefaultRadius. The returned slice is never nil; on any
// failure it is empty and the error says why.
func (c *Client) FetchMessages(ctx context.Context, center geo.Point, radius float64) ([]message.Message, error) {
	if radius <= 0 || math.IsNaN(radius) {
		radius = DefaultRadius
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(center.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(center.Lng, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(int(math.Round(radius))))
	endpoint := c.baseURL + "/messages?" + q.Encode()

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return []message.Message{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []message.Message{}, fmt.Errorf("read response: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return []message.Message{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	messages := make([]message.Message, 0, len(raw))
	for _, item := range raw {
		var m message.Message
		if err := json.Unmarshal(item, &m); err != nil {
			c.logger.WithError(err).Warn("skipping message without a usable location")
			continue
		}
		messages = append(messages, m)
	}

	if resp.Header.Get(degradedHeader) != "" {
		return messages, ErrDegraded
	}

	return messages, nil
}

// PostMessage creates a message at point. It is never retried.
func (c *Client) PostMessage(ctx context.Context, content string, point geo.Point) (*message.Message, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"content": content,
		"lat":     point.Lat,
		"lng":     point.Lng,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var m message.Message
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &m, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var body struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &body) != nil {
			body.Error = strings.TrimSpace(string(b))
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: body.Error}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 5xx responses)
// with exponential backoff while respecting context cancellation
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := initialBackoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == maxAttempts {
			return nil, lastErr
		}

		c.logger.WithError(err).WithField("attempt", attempt).Debug("retrying request")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
