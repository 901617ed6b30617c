package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// frecencyVisitBonus is the flat per-visit frecency increment. Frecency is
// the store's composite signal; consumers treat it as opaque.
const frecencyVisitBonus = 100

// RecordVisit upserts a place for url and bumps its counters.
// An empty title never overwrites a previously recorded one.
func RecordVisit(ctx context.Context, db *sql.DB, pageURL, title string, at time.Time) (*Page, error) {
	revHost := ""
	if u, ok := ParseWebURL(pageURL); ok {
		revHost = ReverseHost(u.Hostname())
	}

	query := `
		INSERT INTO places (url, title, rev_host, visit_count, frecency, last_visit_date)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title           = CASE WHEN excluded.title != '' THEN excluded.title ELSE places.title END,
			visit_count     = places.visit_count + 1,
			frecency        = places.frecency + excluded.frecency,
			last_visit_date = excluded.last_visit_date
	`

	micros := at.UnixMicro()
	if _, err := db.ExecContext(ctx, query, pageURL, title, revHost, frecencyVisitBonus, micros); err != nil {
		return nil, fmt.Errorf("record visit: %w", err)
	}

	return GetPageByURL(ctx, db, pageURL)
}

// AddBookmark upserts a place for url and attaches a bookmark row plus tags.
// The place is created with zero visits if it was never visited.
func AddBookmark(ctx context.Context, db *sql.DB, pageURL string, title *string, folder string, tags []string) (*Bookmark, error) {
	revHost := ""
	if u, ok := ParseWebURL(pageURL); ok {
		revHost = ReverseHost(u.Hostname())
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO places (url, title, rev_host)
		VALUES (?, COALESCE(?, ''), ?)
		ON CONFLICT(url) DO NOTHING
	`, pageURL, title, revHost); err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}

	var placeID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM places WHERE url = ?`, pageURL).Scan(&placeID); err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookmarks (place_id, title, folder, created_at)
		VALUES (?, ?, ?, ?)
	`, placeID, toNullString(title), folder, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}
	bookmarkID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO bookmark_tags (place_id, tag) VALUES (?, ?)
		`, placeID, tag); err != nil {
			return nil, fmt.Errorf("add bookmark: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}

	return &Bookmark{ID: bookmarkID, PlaceID: placeID, Title: title, Folder: folder}, nil
}

// pageColumns is the SELECT list shared by every page query. The bookmark
// join produces the derived Bookmarked flag.
const pageColumns = `
	p.id, p.url, p.title, p.rev_host, p.visit_count, p.frecency, p.last_visit_date,
	EXISTS(SELECT 1 FROM bookmarks b WHERE b.place_id = p.id) AS bookmarked
`

// GetPageByURL retrieves a single page, or sql.ErrNoRows wrapped if absent.
func GetPageByURL(ctx context.Context, db *sql.DB, pageURL string) (*Page, error) {
	row := db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM places p WHERE p.url = ?`, pageURL)
	p, err := scanPage(row)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

// PagesByURLs retrieves the pages for the given URLs. URLs with no history
// entry are silently absent from the result.
func PagesByURLs(ctx context.Context, db *sql.DB, urls []string) ([]Page, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(urls))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+pageColumns+` FROM places p WHERE p.url IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("pages by urls: %w", err)
	}
	defer rows.Close()

	return collectPages(rows)
}

// RecentPages returns up to limit pages, most-recent history id first.
// This ordering is what the tag extractor's early-termination rule assumes.
func RecentPages(ctx context.Context, db *sql.DB, limit int) ([]Page, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+pageColumns+` FROM places p
		WHERE p.visit_count > 0
		ORDER BY p.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent pages: %w", err)
	}
	defer rows.Close()

	return collectPages(rows)
}

// PagesForHost returns all visited pages for one reverse-host key in
// insertion (history id) order. The trie builder relies on that order.
func PagesForHost(ctx context.Context, db *sql.DB, revHost string) ([]Page, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+pageColumns+` FROM places p
		WHERE p.rev_host = ? AND p.visit_count > 0
		ORDER BY p.id
	`, revHost)
	if err != nil {
		return nil, fmt.Errorf("pages for host: %w", err)
	}
	defer rows.Close()

	return collectPages(rows)
}

// AllHosts returns the distinct reverse-host keys of visited pages.
func AllHosts(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT rev_host FROM places
		WHERE rev_host != '' AND visit_count > 0
		ORDER BY rev_host
	`)
	if err != nil {
		return nil, fmt.Errorf("all hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("all hosts: %w", err)
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// CorpusSize returns the number of places.
func CorpusSize(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM places`).Scan(&n); err != nil {
		return 0, fmt.Errorf("corpus size: %w", err)
	}
	return n, nil
}

// BookmarkCount returns the number of bookmark rows.
func BookmarkCount(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("bookmark count: %w", err)
	}
	return n, nil
}

// TagsForPlace returns the bookmark tags attached to one place.
func TagsForPlace(ctx context.Context, db *sql.DB, placeID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tag FROM bookmark_tags WHERE place_id = ? ORDER BY tag
	`, placeID)
	if err != nil {
		return nil, fmt.Errorf("tags for place: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("tags for place: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TitleWordCount returns the document frequency of word: how many places
// contain it in the title as a space-delimited token prefix or suffix.
// Matching is case-insensitive over a space-padded title.
func TitleWordCount(ctx context.Context, db *sql.DB, word string) (int, error) {
	esc := EscapeLike(strings.ToLower(word))
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM places
		WHERE ' ' || lower(title) || ' ' LIKE '% ' || ? || '%' ESCAPE '\'
		   OR ' ' || lower(title) || ' ' LIKE '%' || ? || ' %' ESCAPE '\'
	`, esc, esc).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("title word count: %w", err)
	}
	return n, nil
}

// PagesMatchingTitleWord returns pages whose title matches word (same
// word-boundary-ish rule as TitleWordCount) with a non-empty title and
// visit_count strictly above minVisits.
func PagesMatchingTitleWord(ctx context.Context, db *sql.DB, word string, minVisits int) ([]Page, error) {
	esc := EscapeLike(strings.ToLower(word))
	rows, err := db.QueryContext(ctx, `
		SELECT `+pageColumns+` FROM places p
		WHERE p.title != ''
		  AND p.visit_count > ?
		  AND (' ' || lower(p.title) || ' ' LIKE '% ' || ? || '%' ESCAPE '\'
		    OR ' ' || lower(p.title) || ' ' LIKE '%' || ? || ' %' ESCAPE '\')
	`, minVisits, esc, esc)
	if err != nil {
		return nil, fmt.Errorf("pages matching title word: %w", err)
	}
	defer rows.Close()

	return collectPages(rows)
}

// FolderPage is a bookmarked page together with the bookmark's own title.
type FolderPage struct {
	Page
	BookmarkTitle *string
}

// PagesInFolder returns the bookmarked pages filed under folder
// (case-insensitive folder match).
func PagesInFolder(ctx context.Context, db *sql.DB, folder string) ([]FolderPage, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.url, p.title, p.rev_host, p.visit_count, p.frecency, p.last_visit_date,
		       1 AS bookmarked, b.title
		FROM places p
		JOIN bookmarks b ON b.place_id = p.id
		WHERE lower(b.folder) = lower(?)
	`, folder)
	if err != nil {
		return nil, fmt.Errorf("pages in folder: %w", err)
	}
	defer rows.Close()

	var out []FolderPage
	for rows.Next() {
		var fp FolderPage
		var bookmarked int64
		var bmTitle sql.NullString
		if err := rows.Scan(&fp.ID, &fp.URL, &fp.Title, &fp.RevHost, &fp.VisitCount,
			&fp.Frecency, &fp.LastVisitDate, &bookmarked, &bmTitle); err != nil {
			return nil, fmt.Errorf("pages in folder: %w", err)
		}
		fp.Bookmarked = true
		if bmTitle.Valid {
			fp.BookmarkTitle = &bmTitle.String
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// GetStats summarizes the corpus.
func GetStats(ctx context.Context, db *sql.DB) (*Stats, error) {
	var s Stats
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM places),
			(SELECT COUNT(*) FROM bookmarks),
			(SELECT COUNT(DISTINCT tag) FROM bookmark_tags),
			(SELECT COUNT(DISTINCT rev_host) FROM places WHERE rev_host != '')
	`).Scan(&s.Places, &s.Bookmarks, &s.Tags, &s.Hosts)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &s, nil
}

// EscapeLike escapes %, _ and \ for use in a LIKE pattern with ESCAPE '\'.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPage scans one page row using the pageColumns select list.
func scanPage(row rowScanner) (*Page, error) {
	var p Page
	var bookmarked int64
	if err := row.Scan(&p.ID, &p.URL, &p.Title, &p.RevHost, &p.VisitCount,
		&p.Frecency, &p.LastVisitDate, &bookmarked); err != nil {
		return nil, err
	}
	p.Bookmarked = bookmarked != 0
	return &p, nil
}

// collectPages drains rows into a slice.
func collectPages(rows *sql.Rows) ([]Page, error) {
	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
