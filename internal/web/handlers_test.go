package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
)

func testServer(t *testing.T) (*http.Server, *sql.DB) {
	t.Helper()
	db, err := corpus.Init(t.TempDir())
	if err != nil {
		t.Fatalf("corpus.Init: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewServer(db, config.DefaultConfig(), "test", "127.0.0.1", 0), db
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

func get(t *testing.T, srv *http.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleSearch(t *testing.T) {
	srv, db := testServer(t)
	seedPage(t, db, "https://a.test/", "sailing knots guide", "a.test", 5)
	for i := 0; i < 8; i++ {
		seedPage(t, db, "https://filler.test/p"+strconv.Itoa(i), "unrelated filler entry", "filler.test", 5)
	}

	rec := get(t, srv, "/search?q=sailing")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
		RequestID string `json:"request_id"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://a.test/" {
		t.Errorf("results = %+v, want the sailing page", resp.Results)
	}
	if resp.RequestID == "" {
		t.Error("missing request id")
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	srv, _ := testServer(t)

	rec := get(t, srv, "/search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &body)
	if body.Error.Code != "INVALID_REQUEST" {
		t.Errorf("error code = %q, want INVALID_REQUEST", body.Error.Code)
	}
}

func TestHandleSearch_ExcludeHosts(t *testing.T) {
	srv, db := testServer(t)
	seedPage(t, db, "https://noisy.test/news", "weather news", "noisy.test", 5)
	seedPage(t, db, "https://calm.test/news", "weather outlook", "calm.test", 5)
	for i := 0; i < 8; i++ {
		seedPage(t, db, "https://filler.test/p"+strconv.Itoa(i), "unrelated filler entry", "filler.test", 5)
	}

	rec := get(t, srv, "/search?q=weather&exclude=noisy.test")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://calm.test/news" {
		t.Errorf("results = %+v, want only the non-excluded host", resp.Results)
	}
}

func TestHandleSuggest(t *testing.T) {
	srv, db := testServer(t)
	for i := 0; i < 8; i++ {
		seedPage(t, db, "https://filler.test/p"+strconv.Itoa(i), "unrelated filler entry", "filler.test", 5)
	}
	seedPage(t, db, "https://club.test/", "jazz club schedule", "club.test", 5)
	seedPage(t, db, "https://music.test/", "jazz theory lessons", "music.test", 5)

	rec := get(t, srv, "/suggest?current=https://music.test/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
		Tags []string `json:"tags"`
	}
	decodeBody(t, rec, &out)
	found := false
	for _, r := range out.Results {
		if r.URL == "https://club.test/" {
			found = true
		}
		if r.URL == "https://music.test/" {
			t.Error("current page suggested back")
		}
	}
	if !found {
		t.Errorf("results = %+v, want the related jazz page", out.Results)
	}
}

func TestHandleSuggest_MissingCurrent(t *testing.T) {
	srv, _ := testServer(t)
	if rec := get(t, srv, "/suggest"); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHubs(t *testing.T) {
	srv, db := testServer(t)
	seedPage(t, db, "https://news.test/", "front page", "news.test", 300)
	seedPage(t, db, "https://news.test/reader/", "reader", "news.test", 210)
	seedPage(t, db, "https://news.test/reader/23", "article 23", "news.test", 10)
	seedPage(t, db, "https://news.test/reader/22", "article 22", "news.test", 15)

	rec := get(t, srv, "/hubs?host=news.test")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Host  string `json:"host"`
		Pages []struct {
			URL string `json:"url"`
		} `json:"pages"`
	}
	decodeBody(t, rec, &out)
	if out.Host != "news.test" || len(out.Pages) != 1 || out.Pages[0].URL != "https://news.test/reader/" {
		t.Errorf("hubs = %+v, want exactly the reader index", out)
	}
}

func TestHandleStats(t *testing.T) {
	srv, db := testServer(t)
	seedPage(t, db, "https://a.test/", "some page", "a.test", 1)
	if _, err := corpus.AddBookmark(context.Background(), db, "https://a.test/", nil, "folder", []string{"tag"}); err != nil {
		t.Fatalf("AddBookmark: %v", err)
	}

	rec := get(t, srv, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Version   string `json:"version"`
		Places    int    `json:"places"`
		Bookmarks int    `json:"bookmarks"`
	}
	decodeBody(t, rec, &out)
	if out.Version != "test" || out.Places != 1 || out.Bookmarks != 1 {
		t.Errorf("stats = %+v, want version=test places=1 bookmarks=1", out)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/stats")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestHandleSearch_ConcurrentClients(t *testing.T) {
	srv, db := testServer(t)
	seedPage(t, db, "https://a.test/", "sailing knots guide", "a.test", 5)
	for i := 0; i < 8; i++ {
		seedPage(t, db, "https://filler.test/p"+strconv.Itoa(i), "unrelated filler entry", "filler.test", 5)
	}

	// Unrelated clients hitting /search at once must never supersede each
	// other: every request carries its own session.
	const clients = 8
	codes := make(chan int, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/search?q=sailing", nil)
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK {
			t.Errorf("status = %d, want 200 for every concurrent client", code)
		}
	}
}
