package client

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

	"github.com/sony/gobreaker/v2"
	"shoplist-go/pkg/logger"
)

const (
	defaultTimeout           = 10 * time.Second
	defaultReconnectDelay    = time.Second
	defaultReconnectAttempts = 5
)

var ErrCircuitOpen = errors.New("shoplist api: circuit open, server unavailable")

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithReconnect sets how Subscribe retries a dropped stream.
func WithReconnect(delay time.Duration, attempts int) Option {
	return func(c *Client) {
		if delay > 0 {
			c.reconnectDelay = delay
		}
		if attempts > 0 {
			c.reconnectAttempts = attempts
		}
	}
}

// Client talks to the shopping list REST API and its WebSocket stream.
// Server-side failures feed a circuit breaker; 4xx responses do not.
type Client struct {
	baseURL           *url.URL
	http              *http.Client
	breaker           *gobreaker.CircuitBreaker[[]byte]
	log               logger.Logger
	reconnectDelay    time.Duration
	reconnectAttempts int
}

func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL:           parsed,
		http:              &http.Client{Timeout: defaultTimeout},
		log:               logger.NewNop(),
		reconnectDelay:    defaultReconnectDelay,
		reconnectAttempts: defaultReconnectAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "shoplist-api",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("client: circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

func (c *Client) ActiveList(ctx context.Context) (*ActiveList, error) {
	var list ActiveList
	if err := c.do(ctx, http.MethodGet, "/list/active", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var history []HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/list/history", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *Client) AddItem(ctx context.Context, item NewItem) (*ActiveList, error) {
	return c.listCall(ctx, http.MethodPost, "/list/active/items", item)
}

func (c *Client) UpdateItem(ctx context.Context, itemID string, patch ItemPatch) (*ActiveList, error) {
	return c.listCall(ctx, http.MethodPatch, "/list/active/items/"+url.PathEscape(itemID), patch)
}

// MarkPurchased archives the item on the server and removes it from the list.
func (c *Client) MarkPurchased(ctx context.Context, itemID string) (*ActiveList, error) {
	purchased := true
	return c.UpdateItem(ctx, itemID, ItemPatch{Purchased: &purchased})
}

func (c *Client) DeleteItem(ctx context.Context, itemID string) (*ActiveList, error) {
	return c.listCall(ctx, http.MethodDelete, "/list/active/items/"+url.PathEscape(itemID), nil)
}

func (c *Client) CopyFromHistory(ctx context.Context, historyID string) (*ActiveList, error) {
	return c.listCall(ctx, http.MethodPost, "/list/copy-from-history/"+url.PathEscape(historyID), nil)
}

func (c *Client) ArchiveList(ctx context.Context) (*HistoryEntry, error) {
	var resp struct {
		Message string        `json:"message"`
		Entry   *HistoryEntry `json:"entry"`
	}
	if err := c.do(ctx, http.MethodPost, "/list/archive", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

func (c *Client) ClearList(ctx context.Context) (*ActiveList, error) {
	return c.listCall(ctx, http.MethodPost, "/list/clear", nil)
}

func (c *Client) RestoreItem(ctx context.Context, item NewItem) (*ActiveList, error) {
	return c.listCall(ctx, http.MethodPost, "/list/restore-item", item)
}

func (c *Client) DeleteHistoryEntry(ctx context.Context, historyID string) ([]HistoryEntry, error) {
	var history []HistoryEntry
	if err := c.do(ctx, http.MethodDelete, "/list/history/"+url.PathEscape(historyID), nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *Client) DeleteHistoryItem(ctx context.Context, historyID, itemID string) ([]HistoryEntry, error) {
	path := "/list/history/" + url.PathEscape(historyID) + "/items/" + url.PathEscape(itemID)
	var history []HistoryEntry
	if err := c.do(ctx, http.MethodDelete, path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *Client) ClearHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/list/history", nil, nil)
}

func (c *Client) listCall(ctx context.Context, method, path string, body any) (*ActiveList, error) {
	var list ActiveList
	if err := c.do(ctx, method, path, body, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = encoded
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrCircuitOpen
		}
		return err
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope errorEnvelope
		if json.Unmarshal(data, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return nil, apiErr
	}
	return data, nil
}

func (c *Client) streamURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
