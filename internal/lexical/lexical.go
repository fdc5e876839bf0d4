// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package lexical

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curatus/internal/logging"
	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Defaults applied when Options fields are zero.
const (
	defaultIndexName    = "curatus-candidates"
	defaultTimeout      = 5 * time.Second
	defaultRetryTimeout = 15 * time.Second
)

// Doc is one indexed candidate document.
type Doc struct {
	CandidateID         int64    `json:"candidate_id"`
	MediaType           string   `json:"media_type"`
	Title               string   `json:"title"`
	OriginalTitle       string   `json:"original_title,omitempty"`
	Overview            string   `json:"overview,omitempty"`
	Cast                []string `json:"cast,omitempty"`
	CreatedBy           []string `json:"created_by,omitempty"`
	ProductionCompanies []string `json:"production_companies,omitempty"`
	Networks            []string `json:"networks,omitempty"`
	Genres              []string `json:"genres,omitempty"`
	Countries           []string `json:"countries,omitempty"`
	SpokenLanguages     []string `json:"spoken_languages,omitempty"`
	MoodTags            []string `json:"mood_tags,omitempty"`
	ToneTags            []string `json:"tone_tags,omitempty"`
	Themes              []string `json:"themes,omitempty"`
	Active              bool     `json:"active"`
}

// NewDoc builds the indexed document for a candidate. profile may be
// nil when LLM enrichment has not run yet.
func NewDoc(c *models.Candidate, profile *models.ItemLLMProfile) Doc {
	d := Doc{
		CandidateID:         c.ID,
		MediaType:           string(c.MediaType),
		Title:               c.Title,
		OriginalTitle:       c.OriginalTitle,
		Overview:            c.Overview,
		Cast:                c.Cast,
		CreatedBy:           c.CreatedBy,
		ProductionCompanies: c.ProductionCompanies,
		Networks:            c.Networks,
		Genres:              c.Genres,
		Countries:           c.ProductionCountries,
		SpokenLanguages:     c.SpokenLanguages,
		Active:              c.Active,
	}
	if profile != nil {
		d.MoodTags = profile.MoodTags
		d.ToneTags = profile.ToneTags
		d.Themes = profile.Themes
	}
	return d
}

// Hit is one lexical search result. Score is max-normalized to [0,1]
// within its query.
type Hit struct {
	ID    int64   `json:"candidate_id"`
	Score float64 `json:"score"`
}

// SearchOptions narrows a query.
type SearchOptions struct {
	// StrictTitle disables fuzziness and restricts fields to titles,
	// people and organizations. Used for seed title resolution.
	StrictTitle bool

	// MediaType filters to one media type when set.
	MediaType models.MediaType

	// Moods, Tones and Themes add optional boost clauses against the
	// enrichment tags.
	Moods  []string
	Tones  []string
	Themes []string
}

// Options configures the index client.
type Options struct {
	// Addresses lists the cluster endpoints.
	Addresses []string

	// Username and Password enable basic auth when non-empty.
	Username string
	Password string

	// IndexName overrides the default index name.
	IndexName string

	// Timeout bounds the first attempt of each call.
	Timeout time.Duration

	// RetryTimeout bounds the single retry after a transient failure.
	RetryTimeout time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Index talks to the OpenSearch candidate index. Safe for concurrent
// use.
type Index struct {
	client       *opensearch.Client
	name         string
	timeout      time.Duration
	retryTimeout time.Duration
	logger       zerolog.Logger
}

// NewIndex builds the client. The cluster is not contacted; the first
// call does that.
func NewIndex(opts Options) (*Index, error) {
	const op = "lexical.NewIndex"
	if opts.IndexName == "" {
		opts.IndexName = defaultIndexName
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryTimeout <= 0 {
		opts.RetryTimeout = defaultRetryTimeout
	}

	// Retry policy is one explicit retry with a longer timeout, driven
	// by this package. The transport-level loop is disabled.
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    opts.Addresses,
		Username:     opts.Username,
		Password:     opts.Password,
		DisableRetry: true,
		Transport:    opts.Transport,
	})
	if err != nil {
		return nil, recerr.Internal(op, err)
	}
	return &Index{
		client:       client,
		name:         opts.IndexName,
		timeout:      opts.Timeout,
		retryTimeout: opts.RetryTimeout,
		logger:       logging.With().Str("component", "lexical").Logger(),
	}, nil
}

// indexMapping is the index schema: analyzed text for matching fields,
// keywords for tags and filters.
const indexMapping = `{
  "settings": {"index": {"number_of_shards": 1, "number_of_replicas": 0}},
  "mappings": {
    "properties": {
      "candidate_id":         {"type": "long"},
      "media_type":           {"type": "keyword"},
      "title":                {"type": "text"},
      "original_title":       {"type": "text"},
      "overview":             {"type": "text"},
      "cast":                 {"type": "text"},
      "created_by":           {"type": "text"},
      "production_companies": {"type": "text"},
      "networks":             {"type": "text"},
      "genres":               {"type": "text"},
      "countries":            {"type": "text"},
      "spoken_languages":     {"type": "text"},
      "mood_tags":            {"type": "keyword"},
      "tone_tags":            {"type": "keyword"},
      "themes":               {"type": "keyword"},
      "active":               {"type": "boolean"}
    }
  }
}`

// EnsureIndex creates the index with its mapping when missing.
func (x *Index) EnsureIndex(ctx context.Context) error {
	const op = "lexical.EnsureIndex"
	res, err := x.do(ctx, op, func(ctx context.Context) (*opensearchapi.Response, error) {
		req := opensearchapi.IndicesExistsRequest{Index: []string{x.name}}
		return req.Do(ctx, x.client)
	})
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return recerr.Internal(op, fmt.Errorf("index existence check: status %d", res.StatusCode))
	}

	res, err = x.do(ctx, op, func(ctx context.Context) (*opensearchapi.Response, error) {
		req := opensearchapi.IndicesCreateRequest{Index: x.name, Body: strings.NewReader(indexMapping)}
		return req.Do(ctx, x.client)
	})
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return recerr.Internal(op, fmt.Errorf("create index: %s", res.String()))
	}
	x.logger.Info().Str("index", x.name).Msg("lexical index created")
	return nil
}

// IndexCandidates bulk-upserts documents, keyed by candidate id.
func (x *Index) IndexCandidates(ctx context.Context, docs []Doc) error {
	const op = "lexical.IndexCandidates"
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, d := range docs {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, x.name, strconv.FormatInt(d.CandidateID, 10))
		buf.WriteString(meta)
		buf.WriteByte('\n')
		line, err := json.Marshal(d)
		if err != nil {
			return recerr.Internal(op, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	res, err := x.do(ctx, op, func(ctx context.Context) (*opensearchapi.Response, error) {
		req := opensearchapi.BulkRequest{Body: bytes.NewReader(buf.Bytes())}
		return req.Do(ctx, x.client)
	})
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return recerr.Internal(op, fmt.Errorf("bulk index: %s", res.String()))
	}

	var bulk struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return recerr.Internal(op, err)
	}
	if bulk.Errors {
		failed := 0
		reason := ""
		for _, item := range bulk.Items {
			for _, action := range item {
				if action.Error != nil {
					failed++
					if reason == "" {
						reason = action.Error.Reason
					}
				}
			}
		}
		return recerr.Internal(op, fmt.Errorf("bulk index: %d of %d documents failed: %s", failed, len(docs), reason))
	}
	x.logger.Debug().Int("docs", len(docs)).Msg("candidates indexed")
	return nil
}

// Delete removes documents by candidate id. Missing ids are ignored.
func (x *Index) Delete(ctx context.Context, ids []int64) error {
	const op = "lexical.Delete"
	if len(ids) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, id := range ids {
		fmt.Fprintf(&buf, `{"delete":{"_index":%q,"_id":%q}}`, x.name, strconv.FormatInt(id, 10))
		buf.WriteByte('\n')
	}
	res, err := x.do(ctx, op, func(ctx context.Context) (*opensearchapi.Response, error) {
		req := opensearchapi.BulkRequest{Body: bytes.NewReader(buf.Bytes())}
		return req.Do(ctx, x.client)
	})
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return recerr.Internal(op, fmt.Errorf("bulk delete: %s", res.String()))
	}
	return nil
}

// Search runs a lexical query and returns up to k hits with scores
// max-normalized to [0,1], descending.
func (x *Index) Search(ctx context.Context, query string, k int, opts SearchOptions) ([]Hit, error) {
	const op = "lexical.Search"
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return nil, nil
	}

	body, err := json.Marshal(buildQuery(query, k, opts))
	if err != nil {
		return nil, recerr.Internal(op, err)
	}

	res, err := x.do(ctx, op, func(ctx context.Context) (*opensearchapi.Response, error) {
		req := opensearchapi.SearchRequest{
			Index: []string{x.name},
			Body:  bytes.NewReader(body),
		}
		return req.Do(ctx, x.client)
	})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		if res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests {
			return nil, recerr.Transient(op, fmt.Errorf("search: %s", res.String()))
		}
		return nil, recerr.Internal(op, fmt.Errorf("search: %s", res.String()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					CandidateID int64 `json:"candidate_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, recerr.Internal(op, err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	maxScore := 0.0
	for _, h := range parsed.Hits.Hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
		hits = append(hits, Hit{ID: h.Source.CandidateID, Score: h.Score})
	}
	if maxScore > 0 {
		for i := range hits {
			hits[i].Score /= maxScore
		}
	}
	return hits, nil
}

// do runs one call with the standard timeout and retries exactly once
// with the longer retry timeout when the failure is transient: a
// transport error, 429 or a 5xx status.
func (x *Index) do(ctx context.Context, op string, call func(ctx context.Context) (*opensearchapi.Response, error)) (*opensearchapi.Response, error) {
	res, err := x.attempt(ctx, x.timeout, call)
	if !shouldRetry(res, err) {
		if err != nil {
			return nil, recerr.Transient(op, err)
		}
		return res, nil
	}
	if res != nil {
		res.Body.Close()
	}
	if ctx.Err() != nil {
		return nil, recerr.Transient(op, ctx.Err())
	}
	x.logger.Warn().Err(err).Str("op", op).Msg("lexical call failed, retrying with longer timeout")

	res, err = x.attempt(ctx, x.retryTimeout, call)
	if err != nil {
		return nil, recerr.Transient(op, err)
	}
	return res, nil
}

// attempt runs one bounded call and buffers the response body so it
// stays readable after the attempt context is released.
func (x *Index) attempt(ctx context.Context, timeout time.Duration, call func(ctx context.Context) (*opensearchapi.Response, error)) (*opensearchapi.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := call(attemptCtx)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, err
	}
	res.Body = io.NopCloser(bytes.NewReader(body))
	return res, nil
}

func shouldRetry(res *opensearchapi.Response, err error) bool {
	if err != nil {
		return true
	}
	return res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests
}
