// Package tags derives weighted keyword sets from pages: bookmark tags and
// filtered title tokens, merged across a recency-ordered candidate window
// with an early-termination rule that keeps unrelated old history out.
package tags

import (
	"github.com/hpungsan/retrace/internal/corpus"
)

// Page is the extractor's view of a history entry. BookmarkTags must be
// preloaded by the caller; the extractor itself never touches the store.
type Page struct {
	URL          string
	Title        string
	RevHost      string
	Bookmarked   bool
	BookmarkTags []string
}

// Info accumulates observations for one tag across pages.
type Info struct {
	// Hosts is the set of reverse-host keys the tag was observed on.
	Hosts map[string]bool
	// Bookmarked is true if any observation came from a bookmark tag or a
	// bookmarked page.
	Bookmarked bool
	// Count is the total occurrence count.
	Count int
}

// Map is the accumulated tag map, keyed by lower-cased tag text.
type Map map[string]*Info

// Result is the extractor output: the merged tag map plus the distinct
// reverse-host keys of the current (not candidate) pages.
type Result struct {
	Tags         Map
	CurrentHosts map[string]bool
}

// Extractor derives tag maps from candidate pages.
type Extractor struct {
	stop   *Stopwords
	filter WordFilter
}

// NewExtractor creates an extractor with the given stop-word set and
// word-class filter (nil filter accepts all words).
func NewExtractor(stop *Stopwords, filter WordFilter) *Extractor {
	if filter == nil {
		filter = AcceptAllWords
	}
	return &Extractor{stop: stop, filter: filter}
}

// Extract walks candidates (which must be ordered most-recently-visited
// first) and merges each page's tag buffer into a running map.
//
// Termination: the first processed page is merged unconditionally; after
// that, the walk stops at the first page whose buffer shares no tag with
// the accumulated map; that page is not merged. Pages without a real
// http(s) URL are skipped entirely and do not count as processed.
func (e *Extractor) Extract(current, candidates []Page) *Result {
	res := &Result{
		Tags:         Map{},
		CurrentHosts: map[string]bool{},
	}

	for _, p := range current {
		if p.RevHost != "" {
			res.CurrentHosts[p.RevHost] = true
		}
	}

	first := true
	for _, p := range candidates {
		if _, ok := corpus.ParseWebURL(p.URL); !ok {
			continue
		}

		buf := e.bufferFor(p)
		if first {
			mergeBuffer(res.Tags, buf)
			first = false
			continue
		}
		if !overlaps(res.Tags, buf) {
			break
		}
		mergeBuffer(res.Tags, buf)
	}

	return res
}

// bufferFor builds one page's tag buffer: bookmark tags plus filtered
// title tokens, each observation carrying the page's reverse-host key.
func (e *Extractor) bufferFor(p Page) Map {
	buf := Map{}

	for _, bt := range p.BookmarkTags {
		if bt = normalizeWord(bt); bt != "" {
			addObservation(buf, bt, p.RevHost, true)
		}
	}
	for _, tok := range TitleTokens(p.Title, e.stop, e.filter) {
		addObservation(buf, tok, p.RevHost, p.Bookmarked)
	}

	return buf
}

// addObservation records one tag sighting in a buffer.
func addObservation(m Map, tag, revHost string, bookmarked bool) {
	info := m[tag]
	if info == nil {
		info = &Info{Hosts: map[string]bool{}}
		m[tag] = info
	}
	if revHost != "" {
		info.Hosts[revHost] = true
	}
	info.Bookmarked = info.Bookmarked || bookmarked
	info.Count++
}

// mergeBuffer folds a page buffer into the accumulated map: host sets are
// unioned, bookmarked flags ORed, counts summed.
func mergeBuffer(dst, src Map) {
	for tag, info := range src {
		existing := dst[tag]
		if existing == nil {
			dst[tag] = &Info{
				Hosts:      info.Hosts,
				Bookmarked: info.Bookmarked,
				Count:      info.Count,
			}
			continue
		}
		for h := range info.Hosts {
			existing.Hosts[h] = true
		}
		existing.Bookmarked = existing.Bookmarked || info.Bookmarked
		existing.Count += info.Count
	}
}

// overlaps reports whether any tag in buf is already accumulated.
func overlaps(accumulated, buf Map) bool {
	for tag := range buf {
		if _, ok := accumulated[tag]; ok {
			return true
		}
	}
	return false
}
