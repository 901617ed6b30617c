package suggest

import (
	"context"
	"database/sql"
	"strconv"
	"testing"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := corpus.Init(t.TempDir())
	if err != nil {
		t.Fatalf("corpus.Init: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPage(t *testing.T, db *sql.DB, url, title, host string, visits int64) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO places (url, title, rev_host, visit_count, frecency, last_visit_date) VALUES (?, ?, ?, ?, ?, 0)`,
		url, title, corpus.ReverseHost(host), visits, visits*10,
	)
	if err != nil {
		t.Fatalf("seed page %s: %v", url, err)
	}
}

func seedFiller(t *testing.T, db *sql.DB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		seedPage(t, db, "https://filler.test/p"+strconv.Itoa(i), "unrelated filler entry", "filler.test", 5)
	}
}

func TestSuggest_RelatedPages(t *testing.T) {
	db := testDB(t)
	cfg := config.DefaultConfig()

	// Insertion order doubles as recency: the current tab goes in last so
	// the extractor sees it first.
	seedFiller(t, db, 10)
	seedPage(t, db, "https://theory.test/", "music theory reference", "theory.test", 5)
	seedPage(t, db, "https://club.test/", "jazz club schedule", "club.test", 5)
	seedPage(t, db, "https://music.test/", "jazz theory lessons", "music.test", 5)

	out, err := Suggest(context.Background(), db, cfg, Input{
		CurrentURLs: []string{"https://music.test/"},
	})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	urls := map[string]bool{}
	for _, e := range out.Results {
		urls[e.URL] = true
	}
	if !urls["https://club.test/"] || !urls["https://theory.test/"] {
		t.Errorf("results = %v, want the related jazz and theory pages", urls)
	}
	if urls["https://music.test/"] {
		t.Error("the currently open page was suggested back")
	}
	if urls["https://filler.test/p0"] {
		t.Error("unrelated history leaked into suggestions")
	}

	hasJazz := false
	for _, tag := range out.Tags {
		if tag == "jazz" {
			hasJazz = true
		}
	}
	if !hasJazz {
		t.Errorf("extracted tags = %v, want to include \"jazz\"", out.Tags)
	}
}

func TestSuggest_HubAnnotation(t *testing.T) {
	db := testDB(t)
	cfg := config.DefaultConfig()

	seedFiller(t, db, 10)
	seedPage(t, db, "https://club.test/events/", "jazz events calendar", "club.test", 50)
	seedPage(t, db, "https://club.test/events/1", "gig one", "club.test", 2)
	seedPage(t, db, "https://club.test/events/2", "gig two", "club.test", 3)
	seedPage(t, db, "https://music.test/", "jazz theory lessons", "music.test", 5)

	out, err := Suggest(context.Background(), db, cfg, Input{
		CurrentURLs: []string{"https://music.test/"},
	})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(out.Results) != 1 {
		t.Fatalf("got %d results, want just the events index: %+v", len(out.Results), out.Results)
	}
	e := out.Results[0]
	if e.URL != "https://club.test/events/" {
		t.Fatalf("result = %s, want the events index", e.URL)
	}
	if !e.Hub {
		t.Error("events index not annotated as a hub")
	}
}

func TestSuggest_MaxResults(t *testing.T) {
	db := testDB(t)
	cfg := config.DefaultConfig()

	seedFiller(t, db, 10)
	for i := 0; i < 5; i++ {
		seedPage(t, db, "https://archive.test/jazz/"+strconv.Itoa(i), "jazz recording "+strconv.Itoa(i), "archive.test", 5)
	}
	seedPage(t, db, "https://music.test/", "jazz theory lessons", "music.test", 5)

	out, err := Suggest(context.Background(), db, cfg, Input{
		CurrentURLs: []string{"https://music.test/"},
		MaxResults:  2,
	})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(out.Results) > 2 {
		t.Errorf("got %d results, want at most 2", len(out.Results))
	}
}

func TestSuggest_ColdStart(t *testing.T) {
	db := testDB(t)
	out, err := Suggest(context.Background(), db, config.DefaultConfig(), Input{
		CurrentURLs: []string{"https://never-seen.test/"},
	})
	if err != nil {
		t.Fatalf("cold start must not error: %v", err)
	}
	if len(out.Results) != 0 {
		t.Errorf("got %d results from an empty corpus, want none", len(out.Results))
	}
}

func TestSuggest_ExcludedTitles(t *testing.T) {
	db := testDB(t)
	cfg := config.DefaultConfig()

	seedFiller(t, db, 10)
	seedPage(t, db, "https://club.test/", "jazz club schedule", "club.test", 5)
	seedPage(t, db, "https://music.test/", "jazz theory lessons", "music.test", 5)

	out, err := Suggest(context.Background(), db, cfg, Input{
		CurrentURLs:    []string{"https://music.test/"},
		ExcludedTitles: []string{"jazz club schedule"},
	})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	for _, e := range out.Results {
		if e.Title == "jazz club schedule" {
			t.Error("explicitly excluded title was suggested")
		}
	}
}
