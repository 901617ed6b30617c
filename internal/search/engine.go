// Package search implements the free-text query engine: whitespace
// tokenization, IDF weighting over the corpus, one scored SQL retrieval
// with host/time filters and pagination, and per-session cancellation of
// superseded queries.
package search

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"time"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
	"github.com/hpungsan/retrace/internal/errors"
	"github.com/hpungsan/retrace/internal/rank"
	"github.com/hpungsan/retrace/internal/tags"
)

const defaultLimit = 20

// Request holds one free-text query. Host lists take plain hostnames;
// the engine converts them to reverse-host keys.
type Request struct {
	Query               string   `json:"query"`
	PreferredHosts      []string `json:"preferred_hosts,omitempty"`
	ExcludedHosts       []string `json:"excluded_hosts,omitempty"`
	TimeRangeDays       int      `json:"time_range_days,omitempty"`
	Limit               int      `json:"limit,omitempty"`
	Skip                int      `json:"skip,omitempty"`
	PrioritizeBookmarks bool     `json:"prioritize_bookmarks,omitempty"`
}

// Response is one delivered result set.
type Response struct {
	Results []corpus.SearchRow `json:"results"`

	// Appended is true when the caller asked for a further page of an
	// existing result list (skip > 0).
	Appended bool `json:"appended"`

	RequestID string `json:"request_id"`
}

// Engine executes scored queries over the corpus. IDF weights are cached
// per token for the engine's lifetime: they are idempotently recomputable
// and never invalidated, a deliberate staleness trade-off.
type Engine struct {
	db  *sql.DB
	cfg *config.Config

	mu  sync.Mutex
	idf map[string]float64
}

// NewEngine creates an engine over db.
func NewEngine(db *sql.DB, cfg *config.Config) *Engine {
	return &Engine{db: db, cfg: cfg, idf: map[string]float64{}}
}

// Run executes one query. An empty or whitespace-only query short-circuits
// to an empty result with no store access. Store failures come back as
// QUERY_FAILED; a cancelled ctx surfaces as context.Canceled for the
// session layer to classify.
func (e *Engine) Run(ctx context.Context, req Request) ([]corpus.SearchRow, error) {
	toks := tags.QueryTokens(req.Query)
	if len(toks) == 0 {
		return nil, nil
	}
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}

	weights, err := e.tokenWeights(ctx, toks)
	if err != nil {
		return nil, err
	}

	rows, err := corpus.ScoredSearch(ctx, e.db, corpus.ScoredQuery{
		Tokens:              weights,
		PreferredHosts:      revHostKeys(req.PreferredHosts),
		ExcludedHosts:       revHostKeys(req.ExcludedHosts),
		SinceMicros:         sinceMicros(req.TimeRangeDays, time.Now()),
		PrioritizeBookmarks: req.PrioritizeBookmarks,
		Limit:               req.Limit,
		Offset:              req.Skip,
	})
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errors.NewQueryFailed(err)
	}
	return rows, nil
}

// tokenWeights resolves each token's IDF, hitting the store only for
// tokens not yet cached.
func (e *Engine) tokenWeights(ctx context.Context, toks []string) ([]corpus.TokenWeight, error) {
	out := make([]corpus.TokenWeight, 0, len(toks))

	var total int
	var haveTotal bool
	for _, tok := range toks {
		e.mu.Lock()
		w, cached := e.idf[tok]
		e.mu.Unlock()
		if cached {
			out = append(out, corpus.TokenWeight{Token: tok, IDF: w})
			continue
		}

		if !haveTotal {
			n, err := corpus.CorpusSize(ctx, e.db)
			if err != nil {
				if stderrors.Is(err, context.Canceled) {
					return nil, err
				}
				return nil, errors.NewQueryFailed(err)
			}
			total = n
			haveTotal = true
		}

		n, err := corpus.TitleWordCount(ctx, e.db, tok)
		if err != nil {
			if stderrors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, errors.NewQueryFailed(err)
		}
		w = rank.IDF(n, total, e.cfg.IDFSmoothing)

		e.mu.Lock()
		e.idf[tok] = w
		e.mu.Unlock()
		out = append(out, corpus.TokenWeight{Token: tok, IDF: w})
	}
	return out, nil
}

func revHostKeys(hosts []string) []string {
	if len(hosts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if k := corpus.ReverseHost(h); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// sinceMicros converts a day range to the store's microsecond timestamps.
func sinceMicros(days int, now time.Time) int64 {
	if days <= 0 {
		return 0
	}
	return now.AddDate(0, 0, -days).UnixMicro()
}
