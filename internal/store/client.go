package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shoal-chat/shoal/internal/retry"
)

// ErrNotFound is returned when the store has no conversation for the
// requested identifier.
var ErrNotFound = errors.New("conversation not found")

// StatusError reports a non-2xx response from the store.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the conversation store API.
//
// Reads (List, Get) are retried with bounded exponential backoff since they
// are idempotent. Mutations are issued once; the coordinator layer retries
// them on the next state mutation instead.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
	retry   retry.Config
}

// NewClient creates a store client. baseURL is the API root, e.g.
// http://localhost:8000/api. timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "store").Logger(),
		retry: retry.Config{
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		},
	}
}

// List returns all conversations.
func (c *Client) List(ctx context.Context) ([]Conversation, error) {
	var conversations []Conversation
	err := retry.Do(ctx, c.retry, func() error {
		return c.do(ctx, http.MethodGet, "/conversations", nil, &conversations)
	}, isTransient)
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

// Get returns a single conversation, or ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (*Conversation, error) {
	var conversation Conversation
	err := retry.Do(ctx, c.retry, func() error {
		return c.do(ctx, http.MethodGet, "/conversations/"+id, nil, &conversation)
	}, isTransient)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Create creates a new conversation. The store assigns the identifier and
// timestamps.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Conversation, error) {
	var conversation Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", req, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Update replaces the messages (and optionally the title) of an existing
// conversation.
func (c *Client) Update(ctx context.Context, id string, req UpdateRequest) (*Conversation, error) {
	var conversation Conversation
	if err := c.do(ctx, http.MethodPut, "/conversations/"+id, req, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ResolveID expands an identifier prefix to a full conversation ID. An
// exact match wins; otherwise the prefix must match exactly one stored
// conversation.
func (c *Client) ResolveID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("empty conversation ID")
	}

	conversations, err := c.List(ctx)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, conv := range conversations {
		if conv.ID == prefix {
			return conv.ID, nil
		}
		if strings.HasPrefix(conv.ID, prefix) {
			matches = append(matches, conv.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("conversation %q: %w", prefix, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("conversation ID %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

// Delete removes a conversation.
func (c *Client) Delete(ctx context.Context, id string) (*DeleteResponse, error) {
	var result DeleteResponse
	if err := c.do(ctx, http.MethodDelete, "/conversations/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do issues one request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call store at %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("store request")

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: snippet(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// isTransient reports whether a GET failure is worth retrying. Not-found is
// final; 5xx and network errors are transient.
func isTransient(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func snippet(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
