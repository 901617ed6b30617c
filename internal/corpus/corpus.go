// Package corpus is the browsing-history store: places, bookmarks and
// bookmark tags in SQLite. The ranking packages only ever read from it;
// derived fields (Bookmarked, Tags) are filled in on the way out of a query
// and never written back.
package corpus

import (
	"net/url"
	"strings"
)

// Page is one browsing-history entry (a "place").
type Page struct {
	// ID is a stable opaque integer for the lifetime of the corpus.
	ID int64 `json:"id"`

	URL   string `json:"url"`
	Title string `json:"title"`

	// RevHost is the host reversed and dot-terminated
	// ("www.google.com" → "moc.elgoog.www."), used for host-prefix grouping.
	RevHost string `json:"rev_host"`

	VisitCount int64 `json:"visit_count"`

	// Frecency is the store's frequency+recency composite ranking signal.
	Frecency int64 `json:"frecency"`

	// LastVisitDate is microseconds since epoch.
	LastVisitDate int64 `json:"last_visit_date"`

	// Bookmarked is derived by a join against the bookmark table.
	Bookmarked bool `json:"bookmarked"`
}

// Bookmark is a bookmark row pointing at a place.
type Bookmark struct {
	ID      int64   `json:"id"`
	PlaceID int64   `json:"place_id"`
	Title   *string `json:"title,omitempty"`
	Folder  string  `json:"folder"`
}

// Stats summarizes the corpus.
type Stats struct {
	Places    int `json:"places"`
	Bookmarks int `json:"bookmarks"`
	Tags      int `json:"tags"`
	Hosts     int `json:"hosts"`
}

// ReverseHost converts a host name to its reverse-host key: the whole
// string reversed, dot-terminated. Empty input yields "".
func ReverseHost(host string) string {
	if host == "" {
		return ""
	}
	runes := []rune(strings.ToLower(host))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes) + "."
}

// UnreverseHost undoes ReverseHost for display.
func UnreverseHost(revHost string) string {
	s := strings.TrimSuffix(revHost, ".")
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// ParseWebURL parses s and reports whether it is a real http(s) URL with a
// host. Pages failing this check are skipped by the extractor and the trie
// builder rather than aborting the batch.
func ParseWebURL(s string) (*url.URL, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if u.Host == "" {
		return nil, false
	}
	return u, true
}
