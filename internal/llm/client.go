// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Default client tuning. MaxTokens covers the largest structured reply
// we ask for (a 12-pair comparison batch).
const (
	defaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.2
	defaultMaxTokens   = 2048
	defaultRPS         = 4.0
	defaultBurst       = 8

	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// BaseURL is the provider root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey is sent as a bearer token. Empty is allowed for local
	// endpoints.
	APIKey string

	// Model is the completion model name.
	Model string

	// Temperature and MaxTokens are request defaults; a Request can
	// override temperature per call.
	Temperature float64
	MaxTokens   int

	// RatePerSecond and Burst tune the shared token bucket.
	RatePerSecond float64
	Burst         int

	// HTTPClient overrides the transport, mainly for tests. Callers
	// control deadlines through ctx, so no client timeout is set here.
	HTTPClient *http.Client
}

// Request is a single chat completion.
type Request struct {
	// System primes the model; User carries the task.
	System string
	User   string

	// Temperature overrides the client default when > 0.
	Temperature float64

	// MaxTokens overrides the client default when > 0.
	MaxTokens int
}

// Client is a chat-completions client safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[string]
	logger     zerolog.Logger
}

// NewClient builds a Client with the shared limiter and breaker.
func NewClient(opts Options) *Client {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	logger := logging.With().Str("component", "llm").Logger()

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "llm-completions",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("LLM circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  opts.HTTPClient,
		limiter:     rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		breaker:     breaker,
		logger:      logger,
	}
}

// chatMessage, chatRequest and chatResponse mirror the wire protocol.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete runs one chat completion and returns the raw assistant
// reply. Deadlines come from ctx; the client never retries on its own.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	const op = "llm.Complete"

	if err := c.limiter.Wait(ctx); err != nil {
		return "", recerr.Transient(op, err)
	}

	start := time.Now()
	reply, err := c.breaker.Execute(func() (string, error) {
		return c.complete(ctx, req)
	})
	if err != nil {
		c.logger.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("completion failed")
		var rerr *recerr.Error
		if errors.As(err, &rerr) {
			return "", err
		}
		// Breaker-open errors are transient by nature.
		return "", recerr.Transient(op, err)
	}

	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("reply_len", len(reply)).
		Msg("completion ok")
	return reply, nil
}

func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	const op = "llm.Complete"

	temperature := c.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", recerr.Internal(op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", recerr.Internal(op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", recerr.Transient(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", recerr.Transient(op, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", recerr.E(recerr.KindAuth, op, fmt.Sprintf("provider rejected credentials (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", recerr.Transient(op, fmt.Errorf("provider status %d: %s", resp.StatusCode, truncate(raw, 200)))
	case resp.StatusCode != http.StatusOK:
		return "", recerr.Internal(op, fmt.Errorf("provider status %d: %s", resp.StatusCode, truncate(raw, 200)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", recerr.Internal(op, fmt.Errorf("decoding completion response: %w", err))
	}
	if parsed.Error != nil {
		return "", recerr.Transient(op, fmt.Errorf("provider error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", recerr.Internal(op, fmt.Errorf("completion response has no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
