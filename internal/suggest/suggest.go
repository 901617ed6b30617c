// Package suggest runs the full suggestion pipeline: resolve the current
// pages, walk recent history for candidates, extract tags, score them with
// both strategies, annotate hub pages, and mix into one ranked list.
package suggest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
	"github.com/hpungsan/retrace/internal/errors"
	"github.com/hpungsan/retrace/internal/hub"
	"github.com/hpungsan/retrace/internal/rank"
	"github.com/hpungsan/retrace/internal/tags"
)

// Input describes one suggestion request. CurrentURLs stand in for the
// open tabs; ExcludedTitles are titles already on display that must not be
// suggested back.
type Input struct {
	CurrentURLs    []string `json:"current_urls"`
	ExcludedTitles []string `json:"excluded_titles,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
}

// Output is the ranked suggestion list plus the tags that produced it.
type Output struct {
	Results []*rank.ScoreEntry `json:"results"`
	Tags    []string           `json:"tags"`
}

// Suggest runs the pipeline. A cold corpus (no history, no bookmarks, or
// no tag overlap) yields an empty output, not an error.
func Suggest(ctx context.Context, db *sql.DB, cfg *config.Config, in Input) (*Output, error) {
	current, err := loadPages(ctx, db, in.CurrentURLs)
	if err != nil {
		return nil, err
	}

	recent, err := corpus.RecentPages(ctx, db, cfg.CandidatePages)
	if err != nil {
		return nil, errors.NewQueryFailed(fmt.Errorf("recent pages: %w", err))
	}
	candidates, err := toTagPages(ctx, db, recent)
	if err != nil {
		return nil, err
	}

	extractor := tags.NewExtractor(tags.NewStopwords(cfg.ExtraStopwords), nil)
	extracted := extractor.Extract(current, candidates)

	scorer := rank.NewScorer(db, cfg)
	bookmark, err := scorer.Bookmarks(ctx, extracted.Tags)
	if err != nil {
		return nil, err
	}
	global, err := scorer.Global(ctx, extracted.Tags)
	if err != nil {
		return nil, err
	}

	if err := annotateHubs(ctx, db, cfg, bookmark, global); err != nil {
		return nil, err
	}

	excluded := map[string]bool{}
	for _, t := range in.ExcludedTitles {
		excluded[t] = true
	}
	for _, p := range current {
		if p.Title != "" {
			excluded[p.Title] = true
		}
	}

	results := rank.Mix(rank.MixInput{
		Bookmark:       bookmark,
		Global:         global,
		ExcludedTitles: excluded,
	})
	if in.MaxResults > 0 && len(results) > in.MaxResults {
		results = results[:in.MaxResults]
	}

	return &Output{Results: results, Tags: tagList(extracted.Tags)}, nil
}

// loadPages resolves the current URLs against the corpus. URLs the store
// has never seen are dropped silently.
func loadPages(ctx context.Context, db *sql.DB, urls []string) ([]tags.Page, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	pages, err := corpus.PagesByURLs(ctx, db, urls)
	if err != nil {
		return nil, errors.NewQueryFailed(fmt.Errorf("current pages: %w", err))
	}
	return toTagPages(ctx, db, pages)
}

// toTagPages converts store pages to the extractor's view, preloading
// each page's bookmark tags.
func toTagPages(ctx context.Context, db *sql.DB, pages []corpus.Page) ([]tags.Page, error) {
	out := make([]tags.Page, 0, len(pages))
	for i := range pages {
		p := &pages[i]
		var bmTags []string
		if p.Bookmarked {
			var err error
			bmTags, err = corpus.TagsForPlace(ctx, db, p.ID)
			if err != nil {
				return nil, errors.NewQueryFailed(fmt.Errorf("tags for place %d: %w", p.ID, err))
			}
		}
		out = append(out, tags.Page{
			URL:          p.URL,
			Title:        p.Title,
			RevHost:      p.RevHost,
			Bookmarked:   p.Bookmarked,
			BookmarkTags: bmTags,
		})
	}
	return out, nil
}

// annotateHubs classifies the hosts appearing in scorer output and copies
// each terminal node's flag onto its entry.
func annotateHubs(ctx context.Context, db *sql.DB, cfg *config.Config, lists ...[]*rank.ScoreEntry) error {
	hosts := map[string][]*rank.ScoreEntry{}
	for _, list := range lists {
		for _, e := range list {
			if e.RevHost != "" {
				hosts[e.RevHost] = append(hosts[e.RevHost], e)
			}
		}
	}

	for revHost, entries := range hosts {
		pages, err := corpus.PagesForHost(ctx, db, revHost)
		if err != nil {
			return errors.NewQueryFailed(fmt.Errorf("host pages: %w", err))
		}
		flags := hub.ClassifyPages(pages, cfg.HubRatio)
		for _, e := range entries {
			e.Hub = flags[e.PageID]
		}
	}
	return nil
}

// tagList flattens the tag map into a sorted list for the response.
func tagList(tm tags.Map) []string {
	out := make([]string, 0, len(tm))
	for t := range tm {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
