package rank

import "sort"

// MixInput carries the two scorer result lists plus titles that are
// already on display (open tabs) and must not be echoed back.
type MixInput struct {
	Bookmark []*ScoreEntry
	Global   []*ScoreEntry

	ExcludedTitles map[string]bool
}

// Mix merges bookmark-scorer results ahead of global ones, de-duplicating
// by page id and by title (both the resolved display title and the raw
// stored title) against the output so far and the excluded set. Multiple
// pages from the same host are allowed to co-exist.
//
// The final order is a strict tie-break chain: bookmark-engine entries
// first, then bookmarked pages, then higher score, then higher frecency.
// The ordering is deterministic for a fixed input.
func Mix(in MixInput) []*ScoreEntry {
	seenIDs := map[int64]bool{}
	seenTitles := map[string]bool{}
	for t := range in.ExcludedTitles {
		if t != "" {
			seenTitles[t] = true
		}
	}

	var out []*ScoreEntry
	take := func(entries []*ScoreEntry, bmEngine bool) {
		for _, e := range entries {
			if seenIDs[e.PageID] {
				continue
			}
			display := e.Title
			if bmEngine && e.BookmarkTitle != nil && *e.BookmarkTitle != "" {
				display = *e.BookmarkTitle
			}
			if seenTitles[display] || seenTitles[e.Title] {
				continue
			}

			c := *e
			c.BMEngine = bmEngine
			c.DisplayTitle = display
			out = append(out, &c)

			seenIDs[e.PageID] = true
			if display != "" {
				seenTitles[display] = true
			}
			if e.Title != "" {
				seenTitles[e.Title] = true
			}
		}
	}
	take(in.Bookmark, true)
	take(in.Global, false)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BMEngine != b.BMEngine {
			return a.BMEngine
		}
		if a.Bookmarked != b.Bookmarked {
			return a.Bookmarked
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Frecency > b.Frecency
	})
	return out
}
