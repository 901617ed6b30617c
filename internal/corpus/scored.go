package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// TokenWeight is one query token with its precomputed IDF weight.
type TokenWeight struct {
	Token string
	IDF   float64
}

// ScoredQuery describes one scored retrieval over the combined
// places+bookmarks+tags universe. Each token contributes three binary match
// indicators (title, url, tag list), each multiplied by the token's IDF and
// summed into the row score.
type ScoredQuery struct {
	Tokens              []TokenWeight
	PreferredHosts      []string
	ExcludedHosts       []string
	SinceMicros         int64 // 0 = no time-range filter
	PrioritizeBookmarks bool
	Limit               int
	Offset              int
}

// SearchRow is one scored result row.
type SearchRow struct {
	Page
	Tags      []string `json:"tags"`
	Score     float64  `json:"score"`
	Preferred bool     `json:"preferred"`
}

// ScoredSearch executes one scored retrieval. Rows matching no token are
// dropped; a token common enough to carry a negative IDF still matches, its
// rows just sort below the positive scores and fall through to the frecency
// tiebreak. Ordering is is_pref (when preferred hosts are given) →
// is_bookmark (when prioritized) → score → frecency, then LIMIT/OFFSET.
func ScoredSearch(ctx context.Context, db *sql.DB, q ScoredQuery) ([]SearchRow, error) {
	if len(q.Tokens) == 0 {
		return nil, nil
	}

	var args []any

	// One additive score term per token: idf × (title + url + tags matches).
	scoreTerms := make([]string, 0, len(q.Tokens))
	for _, tw := range q.Tokens {
		scoreTerms = append(scoreTerms, `
			? * (
				(' ' || lower(p.title) || ' ' LIKE ? ESCAPE '\'
				  OR ' ' || lower(p.title) || ' ' LIKE ? ESCAPE '\')
				+ (lower(p.url) LIKE ? ESCAPE '\')
				+ (' ' || COALESCE(t.tags, '') || ' ' LIKE ? ESCAPE '\')
			)`)
		esc := EscapeLike(strings.ToLower(tw.Token))
		args = append(args,
			tw.IDF,
			"% "+esc+"%",
			"%"+esc+" %",
			"%"+esc+"%",
			"%"+esc+"%",
		)
	}

	// The same indicators again without the idf factor. Filtering on the raw
	// match count rather than the score keeps rows whose only matching tokens
	// carry negative weights.
	matchTerms := make([]string, 0, len(q.Tokens))
	for _, tw := range q.Tokens {
		matchTerms = append(matchTerms, `
			(
				(' ' || lower(p.title) || ' ' LIKE ? ESCAPE '\'
				  OR ' ' || lower(p.title) || ' ' LIKE ? ESCAPE '\')
				+ (lower(p.url) LIKE ? ESCAPE '\')
				+ (' ' || COALESCE(t.tags, '') || ' ' LIKE ? ESCAPE '\')
			)`)
		esc := EscapeLike(strings.ToLower(tw.Token))
		args = append(args,
			"% "+esc+"%",
			"%"+esc+" %",
			"%"+esc+"%",
			"%"+esc+"%",
		)
	}

	prefExpr := "0"
	if len(q.PreferredHosts) > 0 {
		prefExpr = `CASE WHEN p.rev_host IN (` + placeholders(len(q.PreferredHosts)) + `) THEN 1 ELSE 0 END`
		for _, h := range q.PreferredHosts {
			args = append(args, h)
		}
	}

	inner := `
		SELECT p.id, p.url, p.title, p.rev_host, p.visit_count, p.frecency, p.last_visit_date,
		       (b.place_id IS NOT NULL) AS bookmarked,
		       COALESCE(t.tags, '') AS tags,
		       (` + strings.Join(scoreTerms, " + ") + `) AS score,
		       (` + strings.Join(matchTerms, " + ") + `) AS matches,
		       ` + prefExpr + ` AS is_pref
		FROM places p
		LEFT JOIN (SELECT DISTINCT place_id FROM bookmarks) b ON b.place_id = p.id
		LEFT JOIN (SELECT place_id, GROUP_CONCAT(tag, ' ') AS tags
		           FROM bookmark_tags GROUP BY place_id) t ON t.place_id = p.id
	`

	where := []string{"matches > 0"}
	if q.SinceMicros > 0 {
		where = append(where, "last_visit_date >= ?")
		args = append(args, q.SinceMicros)
	}
	if len(q.ExcludedHosts) > 0 {
		where = append(where, "rev_host NOT IN ("+placeholders(len(q.ExcludedHosts))+")")
		for _, h := range q.ExcludedHosts {
			args = append(args, h)
		}
	}

	order := []string{}
	if len(q.PreferredHosts) > 0 {
		order = append(order, "is_pref DESC")
	}
	if q.PrioritizeBookmarks {
		order = append(order, "bookmarked DESC")
	}
	// Final id tiebreak keeps pagination coherent across queries.
	order = append(order, "score DESC", "frecency DESC", "id ASC")

	query := `SELECT * FROM (` + inner + `)
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + strings.Join(order, ", ") + `
		LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scored search: %w", err)
	}
	defer rows.Close()

	var out []SearchRow
	for rows.Next() {
		var r SearchRow
		var bookmarked, matches, isPref int64
		var tags string
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.RevHost, &r.VisitCount,
			&r.Frecency, &r.LastVisitDate, &bookmarked, &tags, &r.Score, &matches, &isPref); err != nil {
			return nil, fmt.Errorf("scored search: %w", err)
		}
		r.Bookmarked = bookmarked != 0
		r.Preferred = isPref != 0
		if tags != "" {
			r.Tags = strings.Fields(tags)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scored search: %w", err)
	}
	return out, nil
}

// placeholders returns "?,?,...,?" with n slots.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
