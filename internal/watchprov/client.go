// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package watchprov

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultPageSize = 100

	breakerFailures = 5
	breakerOpen     = 30 * time.Second

	apiVersion = "2"

	// maxErrorBody bounds how much of an error response gets logged.
	maxErrorBody = 512
)

// Client is the watch-history provider client. It serves the user the
// access token belongs to; multi-user deployments derive one client
// per user with WithToken.
type Client struct {
	baseURL     string
	clientID    string
	accessToken string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	logger      zerolog.Logger
}

// NewClient builds a Client from config.
func NewClient(cfg config.WatchProviderConfig) (*Client, error) {
	const op = "watchprov.NewClient"
	if cfg.BaseURL == "" {
		return nil, recerr.Input(op, "watch provider base URL is required")
	}
	if cfg.ClientID == "" {
		return nil, recerr.Input(op, "watch provider client id is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := logging.With().Str("component", "watchprov").Logger()
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "watch-provider",
		Timeout: breakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("watch provider circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		clientID:    cfg.ClientID,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
		breaker:     breaker,
		logger:      logger,
	}, nil
}

// WithToken returns a copy of the client bound to another user's
// access token. The breaker and transport are shared.
func (c *Client) WithToken(token string) *Client {
	derived := *c
	derived.accessToken = token
	return &derived
}

// GetWatched returns the user's full watched summary for one media
// type.
func (c *Client) GetWatched(ctx context.Context, mediaType models.MediaType) ([]WatchedItem, error) {
	const op = "watchprov.GetWatched"
	var items []WatchedItem
	err := c.get(ctx, op, "/sync/watched/"+pathType(mediaType), &items)
	return items, err
}

// GetHistory returns one page of the user's viewing history, newest
// first. Page numbering starts at 1; size 0 takes the default.
func (c *Client) GetHistory(ctx context.Context, mediaType models.MediaType, page, size int) ([]HistoryItem, error) {
	const op = "watchprov.GetHistory"
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	path := fmt.Sprintf("/sync/history/%s?page=%d&limit=%d", pathType(mediaType), page, size)
	var items []HistoryItem
	err := c.get(ctx, op, path, &items)
	return items, err
}

// GetRatings returns the user's explicit ratings for one media type.
func (c *Client) GetRatings(ctx context.Context, mediaType models.MediaType) ([]RatingItem, error) {
	const op = "watchprov.GetRatings"
	var items []RatingItem
	err := c.get(ctx, op, "/sync/ratings/"+pathType(mediaType), &items)
	return items, err
}

// get issues an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	body, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return recerr.Internal(op, err)
	}
	return nil
}

// do runs one request through the token check and the breaker, and
// classifies the response.
func (c *Client) do(ctx context.Context, op, method, path string, payload interface{}) ([]byte, error) {
	if err := c.checkToken(op); err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, recerr.Internal(op, err)
		}
		body = strings.NewReader(string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, recerr.Internal(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.clientID)
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, recerr.Transient(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, recerr.Transient(op, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).
			Msg("watch provider rejected credentials")
		return nil, recerr.E(recerr.KindAuth, op, fmt.Sprintf("provider returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return nil, recerr.NotFound(op, "provider resource")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, recerr.E(recerr.KindTransientExternal, op,
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, clipBody(raw)))
	default:
		return nil, recerr.E(recerr.KindInternal, op,
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, clipBody(raw)))
	}
}

// checkToken rejects tokens that parse as JWTs with a past expiry,
// saving the round trip. Opaque tokens pass through; the server is the
// authority on those.
func (c *Client) checkToken(op string) error {
	if c.accessToken == "" || strings.Count(c.accessToken, ".") != 2 {
		return nil
	}
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(c.accessToken, claims)
	if err != nil {
		return nil // not a JWT after all
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(time.Now()) {
		return recerr.E(recerr.KindAuth, op, "access token expired")
	}
	return nil
}

func pathType(t models.MediaType) string {
	if t == models.MediaTypeShow {
		return "shows"
	}
	return "movies"
}

func clipBody(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
