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
	"strconv"
	"strings"
	"time"

	"github.com/codepulse/codepulse/internal/model"
)

const defaultUnaryTimeout = 10 * time.Second

// Client talks to the aggregation service. All calls are bearer
// authorized and bounded by a per-call timeout so a hung connection
// cannot stall a flush cycle.
type Client struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	userAgent    string
	unaryTimeout time.Duration
}

func New(baseURL, apiKey string) *Client {
	return NewWithClient(baseURL, apiKey, &http.Client{})
}

func NewWithClient(baseURL, apiKey string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		client:       client,
		userAgent:    "codepulse/1.0",
		unaryTimeout: defaultUnaryTimeout,
	}
}

func (c *Client) WithUnaryTimeout(timeout time.Duration) *Client {
	if c == nil {
		return nil
	}
	clone := *c
	if timeout > 0 {
		clone.unaryTimeout = timeout
	}
	return &clone
}

// RequestError is a non-2xx response from the server. Transport
// failures stay plain errors; only an HTTP status produces one of these.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	message := strings.TrimSpace(e.Message)
	if message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, message)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// Auth reports whether the failure means the API key was rejected.
func (e *RequestError) Auth() bool {
	return e != nil && e.StatusCode == http.StatusUnauthorized
}

// IsAuthError reports whether err is a credential failure (HTTP 401).
func IsAuthError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Auth()
}

// SendHeartbeat delivers a single heartbeat.
func (c *Client) SendHeartbeat(ctx context.Context, hb model.Heartbeat) error {
	_, err := c.request(ctx, http.MethodPost, "/heartbeat", nil, hb)
	return err
}

// SendBatch delivers queued heartbeats in enqueue order. The server is
// assumed to apply the batch atomically; callers keep the whole batch on
// any failure.
func (c *Client) SendBatch(ctx context.Context, hbs []model.Heartbeat) error {
	if len(hbs) == 0 {
		return nil
	}
	_, err := c.request(ctx, http.MethodPost, "/batch", nil, hbs)
	return err
}

// FetchDailySummary returns the server's total for "today" in the
// client's local calendar day. midnightOffsetSeconds is the client's UTC
// offset; without it the server would cut the day at its own midnight.
func (c *Client) FetchDailySummary(ctx context.Context, midnightOffsetSeconds int) (model.DailySummary, error) {
	query := url.Values{}
	query.Set("timeRange", "today")
	query.Set("midnightOffsetSeconds", strconv.Itoa(midnightOffsetSeconds))
	body, err := c.request(ctx, http.MethodGet, "/stats", query, nil)
	if err != nil {
		return model.DailySummary{}, err
	}
	var stats model.StatsResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		return model.DailySummary{}, fmt.Errorf("decode stats response: %w", err)
	}
	if len(stats.Days) == 0 {
		return model.DailySummary{}, fmt.Errorf("stats response has no days")
	}
	return stats.Days[0], nil
}

// FetchUserSettings returns the remote per-user settings.
func (c *Client) FetchUserSettings(ctx context.Context) (model.UserSettings, error) {
	body, err := c.request(ctx, http.MethodGet, "/user", nil, nil)
	if err != nil {
		return model.UserSettings{}, err
	}
	var settings model.UserSettings
	if err := json.Unmarshal(body, &settings); err != nil {
		return model.UserSettings{}, fmt.Errorf("decode user settings: %w", err)
	}
	return settings, nil
}

func (c *Client) request(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if c.unaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.unaryTimeout)
		defer cancel()
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return data, nil
}
