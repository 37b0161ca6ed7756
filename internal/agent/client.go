// ABOUTME: HTTP client for the remote agent endpoint
// ABOUTME: One request per turn; every failure mode normalizes to a classified error

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/coven-chat/internal/store"
)

// ErrUnavailable wraps transport-level failures (dial, timeout, reset).
// The remote endpoint was never reached or never answered.
var ErrUnavailable = errors.New("agent unavailable")

// ProtocolError is returned when the endpoint answered but the payload was
// not a well-formed success envelope. Message carries the server-supplied
// error text when one was present.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("agent protocol error: %s", e.Message)
}

// User-visible fallback texts for failed turns
const (
	transportFallback = "I'm sorry, I couldn't reach the assistant. Please check your connection and try again."
	protocolFallback  = "I'm sorry, something went wrong while generating a response. Please try again."
)

// statusSuccess is the only envelope status treated as a successful answer
const statusSuccess = "success"

// Config holds the adapter's endpoint settings
type Config struct {
	// Endpoint is the full URL of the remote agent inference API
	Endpoint string

	// AgentID is the fixed agent identifier sent with every query
	AgentID string

	// Timeout bounds the whole request-response round trip
	Timeout time.Duration
}

// Client performs single-shot calls against the remote agent endpoint
type Client struct {
	httpClient *http.Client
	endpoint   string
	agentID    string
	logger     *slog.Logger
}

// NewClient creates an adapter for the configured endpoint
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		agentID:    cfg.AgentID,
		logger:     logger.With("component", "agent"),
	}
}

// askRequest is the outbound request body
type askRequest struct {
	Query   string `json:"query"`
	AgentID string `json:"agent_id"`
}

// envelope is the expected response shape from the remote endpoint
type envelope struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Result  *store.AgentResult `json:"result"`
	Meta    *envelopeMeta      `json:"metadata"`
}

type envelopeMeta struct {
	AgentName string `json:"agent_name"`
	Timestamp string `json:"timestamp"`
}

// Ask sends one query to the remote agent and returns its structured answer.
// Exactly one request is made per invocation: no retries, no streaming.
// Failures come back as ErrUnavailable (transport) or *ProtocolError (bad
// status or payload); Ask never panics past its boundary.
func (c *Client) Ask(ctx context.Context, query string) (*store.AgentResult, error) {
	body, err := json.Marshal(askRequest{Query: query, AgentID: c.agentID})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("agent request failed",
			"error", err,
			"endpoint", c.endpoint)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Bound how much of a misbehaving response we buffer
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		c.logger.Warn("agent response not decodable",
			"status_code", resp.StatusCode,
			"error", err)
		return nil, &ProtocolError{Message: protocolFallback}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Status != statusSuccess {
		msg := env.Message
		if msg == "" {
			msg = protocolFallback
		}
		c.logger.Warn("agent returned error status",
			"status_code", resp.StatusCode,
			"status", env.Status)
		return nil, &ProtocolError{Message: msg}
	}

	if env.Result == nil {
		return nil, &ProtocolError{Message: protocolFallback}
	}

	// Keep confidence within [0,1] so persisted documents stay valid even
	// when the remote misreports it
	if env.Result.Confidence < 0 {
		env.Result.Confidence = 0
	} else if env.Result.Confidence > 1 {
		env.Result.Confidence = 1
	}

	c.logger.Debug("agent answered",
		"agent_id", c.agentID,
		"confidence", env.Result.Confidence,
		"duration", time.Since(start))

	return env.Result, nil
}

// FallbackText maps an Ask error to the text shown in the chat as the
// agent's reply. Transport failures get a fixed apology; protocol failures
// surface the server-supplied message when present.
func FallbackText(err error) string {
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return protoErr.Message
	}
	if errors.Is(err, ErrUnavailable) {
		return transportFallback
	}
	return protocolFallback
}
