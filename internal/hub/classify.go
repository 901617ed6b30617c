package hub

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/retrace/internal/corpus"
	"github.com/hpungsan/retrace/internal/errors"
)

// ClassifyPages builds a trie from one host's pages, in the order given,
// and returns the hub flag per page ID. Pages with unparseable URLs are
// skipped. All pages are assumed to share a host; callers group by host
// before calling.
func ClassifyPages(pages []corpus.Page, ratio float64) map[int64]bool {
	t := NewTrie()
	terminals := make(map[int64]int, len(pages))
	for _, p := range pages {
		segments, ok := PathSegments(p.URL)
		if !ok {
			continue
		}
		terminals[p.ID] = t.Insert(segments, p.VisitCount)
	}
	t.Classify(ratio)

	flags := make(map[int64]bool, len(terminals))
	for id, idx := range terminals {
		flags[id] = t.IsHub(idx)
	}
	return flags
}

// HubsForHost returns the pages of one host classified as hubs, in
// insertion order.
func HubsForHost(ctx context.Context, db *sql.DB, revHost string, ratio float64) ([]corpus.Page, error) {
	pages, err := corpus.PagesForHost(ctx, db, revHost)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages for host: %w", err)
	}
	flags := ClassifyPages(pages, ratio)

	var hubs []corpus.Page
	for _, p := range pages {
		if flags[p.ID] {
			hubs = append(hubs, p)
		}
	}
	return hubs, nil
}

// HostHubs is the classification result for one host.
type HostHubs struct {
	Host  string        `json:"host"`
	Pages []corpus.Page `json:"pages"`
}

// ClassifyAll walks every known host and returns the ones that have at
// least one hub page. The walk checks ctx between hosts so a large corpus
// can be interrupted.
func ClassifyAll(ctx context.Context, db *sql.DB, ratio float64) ([]HostHubs, error) {
	revHosts, err := corpus.AllHosts(ctx, db)
	if err != nil {
		return nil, errors.NewQueryFailed(fmt.Errorf("failed to list hosts: %w", err))
	}

	var out []HostHubs
	for _, rh := range revHosts {
		select {
		case <-ctx.Done():
			return nil, errors.NewQueryCancelled("hubs")
		default:
		}

		hubs, err := HubsForHost(ctx, db, rh, ratio)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.NewQueryCancelled("hubs")
			}
			return nil, errors.NewQueryFailed(fmt.Errorf("failed to classify host %s: %w", corpus.UnreverseHost(rh), err))
		}
		if len(hubs) > 0 {
			out = append(out, HostHubs{Host: corpus.UnreverseHost(rh), Pages: hubs})
		}
	}
	return out, nil
}
