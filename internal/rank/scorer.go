package rank

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
	"github.com/hpungsan/retrace/internal/errors"
	"github.com/hpungsan/retrace/internal/tags"
)

// ScoreEntry is one ranked result, keyed by page id. At most one entry
// exists per page per scorer pass; matching a page through a second tag
// adds to Score rather than producing a duplicate.
type ScoreEntry struct {
	PageID   int64   `json:"id"`
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	RevHost  string  `json:"rev_host"`
	Score    float64 `json:"score"`
	Frecency int64   `json:"frecency"`

	Bookmarked bool `json:"bookmarked"`
	Hub        bool `json:"hub"`

	// Tags lists the matched tag strings in match order.
	Tags []string `json:"tags"`

	// BookmarkTitle is the bookmark's own title, when the entry came from
	// the bookmark scorer. The mixer prefers it for display.
	BookmarkTitle *string `json:"-"`

	// BMEngine and DisplayTitle are set by the mixer.
	BMEngine     bool   `json:"bm_engine"`
	DisplayTitle string `json:"display_title"`
}

// Scorer runs the two relevance strategies over the corpus. Both share
// the formula score = Σ idf(tag) × (TFScale·tf)/(TFSaturation+tf) and
// differ only in candidate population and IDF corpus size.
type Scorer struct {
	db  *sql.DB
	cfg *config.Config
}

// NewScorer creates a scorer over db with cfg's ranking constants.
func NewScorer(db *sql.DB, cfg *config.Config) *Scorer {
	return &Scorer{db: db, cfg: cfg}
}

// Global scores the whole corpus against the tag map: pages with a
// non-empty title, visit_count above the configured floor, and a positive
// final score, truncated to the top ScorerLimit. An empty tag map or an
// empty corpus returns no results and issues no queries.
func (s *Scorer) Global(ctx context.Context, tm tags.Map) ([]*ScoreEntry, error) {
	if len(tm) == 0 {
		return nil, nil
	}
	total, err := corpus.CorpusSize(ctx, s.db)
	if err != nil {
		return nil, errors.NewQueryFailed(fmt.Errorf("corpus size: %w", err))
	}
	if total == 0 {
		return nil, nil
	}

	entries := map[int64]*ScoreEntry{}
	for _, tag := range sortedTags(tm) {
		weight, err := s.tagWeight(ctx, tag, tm[tag], total)
		if err != nil {
			return nil, err
		}
		pages, err := corpus.PagesMatchingTitleWord(ctx, s.db, tag, s.cfg.MinVisitCount)
		if err != nil {
			return nil, errors.NewQueryFailed(fmt.Errorf("match tag %q: %w", tag, err))
		}
		for i := range pages {
			accumulate(entries, &pages[i], nil, tag, weight)
		}
	}

	return s.finalize(entries), nil
}

// Bookmarks scores pages filed under bookmark folders named after the
// extracted tags, with N = total bookmark count. With no bookmarks the
// scorer is inert: empty results, no error.
func (s *Scorer) Bookmarks(ctx context.Context, tm tags.Map) ([]*ScoreEntry, error) {
	if len(tm) == 0 {
		return nil, nil
	}
	total, err := corpus.BookmarkCount(ctx, s.db)
	if err != nil {
		return nil, errors.NewQueryFailed(fmt.Errorf("bookmark count: %w", err))
	}
	if total == 0 {
		return nil, nil
	}

	entries := map[int64]*ScoreEntry{}
	for _, tag := range sortedTags(tm) {
		weight, err := s.tagWeight(ctx, tag, tm[tag], total)
		if err != nil {
			return nil, err
		}
		folderPages, err := corpus.PagesInFolder(ctx, s.db, tag)
		if err != nil {
			return nil, errors.NewQueryFailed(fmt.Errorf("folder %q: %w", tag, err))
		}
		for i := range folderPages {
			fp := &folderPages[i]
			accumulate(entries, &fp.Page, fp.BookmarkTitle, tag, weight)
		}
	}

	return s.finalize(entries), nil
}

// tagWeight is the per-tag score contribution: idf × saturated tf, with
// tf the distinct-host count from extraction. tf deliberately ignores
// document length so long titles are not penalized and single-host
// repetition cannot inflate a tag.
func (s *Scorer) tagWeight(ctx context.Context, tag string, info *tags.Info, total int) (float64, error) {
	n, err := corpus.TitleWordCount(ctx, s.db, tag)
	if err != nil {
		return 0, errors.NewQueryFailed(fmt.Errorf("document frequency for %q: %w", tag, err))
	}
	tf := float64(len(info.Hosts))
	den := s.cfg.TFSaturation + tf
	if den == 0 {
		return 0, nil
	}
	return IDF(n, total, s.cfg.IDFSmoothing) * (s.cfg.TFScale * tf / den), nil
}

// accumulate upserts a page into the entry map and adds one tag's
// contribution.
func accumulate(entries map[int64]*ScoreEntry, p *corpus.Page, bmTitle *string, tag string, weight float64) {
	e := entries[p.ID]
	if e == nil {
		e = &ScoreEntry{
			PageID:     p.ID,
			URL:        p.URL,
			Title:      p.Title,
			RevHost:    p.RevHost,
			Frecency:   p.Frecency,
			Bookmarked: p.Bookmarked,
		}
		entries[p.ID] = e
	}
	if bmTitle != nil && e.BookmarkTitle == nil {
		e.BookmarkTitle = bmTitle
	}
	e.Score += weight
	e.Tags = append(e.Tags, tag)
}

// finalize drops unscored entries and truncates to the configured top-K.
func (s *Scorer) finalize(entries map[int64]*ScoreEntry) []*ScoreEntry {
	out := make([]*ScoreEntry, 0, len(entries))
	for _, e := range entries {
		if e.Score > 0 && e.Title != "" {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Frecency != b.Frecency {
			return a.Frecency > b.Frecency
		}
		return a.PageID < b.PageID
	})
	if s.cfg.ScorerLimit > 0 && len(out) > s.cfg.ScorerLimit {
		out = out[:s.cfg.ScorerLimit]
	}
	return out
}

// sortedTags returns the tag map's keys in lexical order so scoring is
// deterministic for a fixed input.
func sortedTags(tm tags.Map) []string {
	keys := make([]string, 0, len(tm))
	for k := range tm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
