package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a request when the caller sets no deadline.
const DefaultTimeout = 5 * time.Second

// Transport delivers a request and returns the raw response body.
type Transport interface {
	RoundTrip(ctx context.Context, req Request) (json.RawMessage, error)
}

// Sender is what surfaces use to talk to the coordinator.
type Sender interface {
	Send(ctx context.Context, t Type, data any, out any) error
}

// Client sends typed requests over a Transport.
type Client struct {
	transport Transport
	timeout   time.Duration
}

// NewClient wraps transport. A non-positive timeout uses DefaultTimeout.
func NewClient(transport Transport, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{transport: transport, timeout: timeout}
}

// Send encodes data, waits for the response and decodes it into out (which
// may be nil). No response within the timeout yields ErrChannelClosed.
func (c *Client) Send(ctx context.Context, t Type, data any, out any) error {
	req := Request{ID: uuid.NewString(), Type: t}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", t, err)
		}
		req.Data = raw
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.transport.RoundTrip(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			if !errors.Is(err, ErrChannelClosed) {
				return fmt.Errorf("%w: %v", ErrChannelClosed, err)
			}
		}
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", t, err)
	}
	return nil
}

// LocalTransport dispatches into an in-process Router.
type LocalTransport struct {
	Router *Router
}

func (l LocalTransport) RoundTrip(ctx context.Context, req Request) (json.RawMessage, error) {
	return l.Router.Dispatch(ctx, req).Wait(ctx)
}

// HTTPTransport posts requests to a running daemon's /message endpoint.
type HTTPTransport struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func (h HTTPTransport) RoundTrip(ctx context.Context, req Request) (json.RawMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/message", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.Token)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrChannelClosed, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return body, ErrUnrecognizedRequest
	default:
		return body, fmt.Errorf("daemon returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}
}
