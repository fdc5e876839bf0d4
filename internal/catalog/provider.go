// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tmdb "github.com/cyruzin/golang-tmdb"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/curatus/internal/config"
	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Provider fetches catalog metadata. Implementations must be safe for
// concurrent use.
type Provider interface {
	// FetchMovie returns the full movie record for a TMDB id.
	FetchMovie(ctx context.Context, tmdbID int64) (*models.Candidate, error)

	// FetchShow returns the full show record for a TMDB id.
	FetchShow(ctx context.Context, tmdbID int64) (*models.Candidate, error)

	// CollectionName resolves a franchise collection id to its display
	// name.
	CollectionName(ctx context.Context, collectionID int64) (string, error)
}

// Provider tuning. The breaker mirrors the LLM client: both guard a
// single upstream whose failures arrive in bursts.
const (
	defaultCatalogRPS     = 4.0
	defaultCatalogBurst   = 8
	defaultCatalogTimeout = 15 * time.Second

	catalogBreakerFailures = 5
	catalogBreakerOpen     = 30 * time.Second

	// maxCastStored bounds the billing list persisted per candidate.
	maxCastStored = 15
)

// Sub-resources fetched in the same round trip as the details call.
const (
	movieAppend = "credits,keywords,release_dates"
	tvAppend    = "credits,keywords,content_ratings"
)

// TMDBProvider is the production Provider over the TMDB v3 API.
//
// The underlying client carries no per-call context, so cancellation
// is honored at the limiter and the HTTP timeout bounds each request.
type TMDBProvider struct {
	api     *tmdb.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
	lang    string
	region  string
	logger  zerolog.Logger
}

// NewTMDBProvider builds a provider with the shared limiter and
// breaker.
func NewTMDBProvider(cfg config.CatalogConfig) (*TMDBProvider, error) {
	const op = "catalog.NewTMDBProvider"

	if cfg.TMDBAPIKey == "" {
		return nil, recerr.Input(op, "TMDB API key is required")
	}
	api, err := tmdb.Init(cfg.TMDBAPIKey)
	if err != nil {
		return nil, recerr.Internal(op, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCatalogTimeout
	}
	api.SetClientConfig(http.Client{Timeout: timeout})

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = defaultCatalogRPS
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultCatalogBurst
	}

	logger := logging.With().Str("component", "catalog").Logger()

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "tmdb-metadata",
		Timeout: catalogBreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= catalogBreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("TMDB circuit breaker state changed")
		},
	})

	return &TMDBProvider{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: breaker,
		lang:    cfg.Language,
		region:  certRegion(cfg.Language),
		logger:  logger,
	}, nil
}

// FetchMovie returns the movie with credits, keywords and release
// certifications mapped onto a Candidate.
func (p *TMDBProvider) FetchMovie(ctx context.Context, tmdbID int64) (*models.Candidate, error) {
	const op = "catalog.FetchMovie"

	v, err := p.call(ctx, op, func() (any, error) {
		return p.api.GetMovieDetails(int(tmdbID), p.options(movieAppend))
	})
	if err != nil {
		return nil, err
	}
	return movieCandidate(v.(*tmdb.MovieDetails), p.region), nil
}

// FetchShow returns the show with credits, keywords and content
// ratings mapped onto a Candidate.
func (p *TMDBProvider) FetchShow(ctx context.Context, tmdbID int64) (*models.Candidate, error) {
	const op = "catalog.FetchShow"

	v, err := p.call(ctx, op, func() (any, error) {
		return p.api.GetTVDetails(int(tmdbID), p.options(tvAppend))
	})
	if err != nil {
		return nil, err
	}
	return tvCandidate(v.(*tmdb.TVDetails), p.region), nil
}

// CollectionName resolves a franchise collection id to its display
// name.
func (p *TMDBProvider) CollectionName(ctx context.Context, collectionID int64) (string, error) {
	const op = "catalog.CollectionName"

	v, err := p.call(ctx, op, func() (any, error) {
		return p.api.GetCollectionDetails(int(collectionID), p.options(""))
	})
	if err != nil {
		return "", err
	}
	return v.(*tmdb.CollectionDetails).Name, nil
}

// call runs one API request through the limiter and breaker.
func (p *TMDBProvider) call(ctx context.Context, op string, fn func() (any, error)) (any, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, recerr.Transient(op, err)
	}

	start := time.Now()
	v, err := p.breaker.Execute(fn)
	if err != nil {
		p.logger.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("catalog fetch failed")
		return nil, classify(op, err)
	}
	return v, nil
}

// options assembles the url options for one details call.
func (p *TMDBProvider) options(appendTo string) map[string]string {
	opts := make(map[string]string, 2)
	if appendTo != "" {
		opts["append_to_response"] = appendTo
	}
	if p.lang != "" {
		opts["language"] = p.lang
	}
	return opts
}

// classify maps TMDB API failures onto error kinds. The upstream
// client surfaces status messages as plain error strings, so matching
// is textual: status 34 carries "could not be found", status 7
// "Invalid API key".
func classify(op string, err error) error {
	var rerr *recerr.Error
	if errors.As(err, &rerr) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "could not be found"):
		return recerr.NotFound(op, "catalog item")
	case strings.Contains(msg, "Invalid API key") || strings.Contains(msg, "denied"):
		return recerr.E(recerr.KindAuth, op, err)
	default:
		return recerr.Transient(op, err)
	}
}

// certRegion derives the certification region from the configured
// language tag: "en-US" selects US certifications.
func certRegion(language string) string {
	if i := strings.IndexByte(language, '-'); i >= 0 && i+1 < len(language) {
		return strings.ToUpper(language[i+1:])
	}
	return "US"
}
