package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
	"github.com/hpungsan/retrace/internal/errors"
)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()

	db, err := corpus.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests
	return db, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// decodeResult unmarshals a tool result's JSON payload into v.
func decodeResult(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), v); err != nil {
		t.Fatalf("decode result: %v\npayload: %s", err, text.Text)
	}
}

// errorCode extracts the error code from an error result.
func errorCode(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if !result.IsError {
		t.Fatal("expected an error result")
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeResult(t, result, &body)
	return body.Error.Code
}

func TestHandleVisit(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)
	ctx := context.Background()

	result, err := h.HandleVisit(ctx, makeRequest(map[string]any{
		"url":   "https://example.com/docs",
		"title": "Example Docs",
	}))
	if err != nil {
		t.Fatalf("HandleVisit: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}

	var page struct {
		URL        string `json:"url"`
		Title      string `json:"title"`
		VisitCount int64  `json:"visit_count"`
	}
	decodeResult(t, result, &page)
	if page.URL != "https://example.com/docs" || page.Title != "Example Docs" || page.VisitCount != 1 {
		t.Errorf("page = %+v", page)
	}
}

func TestHandleVisit_InvalidURL(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)

	result, err := h.HandleVisit(context.Background(), makeRequest(map[string]any{
		"url": "file:///etc/passwd",
	}))
	if err != nil {
		t.Fatalf("HandleVisit: %v", err)
	}
	if code := errorCode(t, result); code != "INVALID_REQUEST" {
		t.Errorf("code = %q, want INVALID_REQUEST", code)
	}
}

func TestHandleBookmarkAndStats(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)
	ctx := context.Background()

	result, err := h.HandleBookmark(ctx, makeRequest(map[string]any{
		"url":   "https://example.com/ref",
		"title": "Reference",
		"tags":  []string{"docs", "Go"},
	}))
	if err != nil {
		t.Fatalf("HandleBookmark: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}
	var bm struct {
		Folder string `json:"folder"`
	}
	decodeResult(t, result, &bm)
	if bm.Folder != "unsorted" {
		t.Errorf("folder = %q, want default", bm.Folder)
	}

	result, err = h.HandleStats(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleStats: %v", err)
	}
	var stats struct {
		Places    int `json:"places"`
		Bookmarks int `json:"bookmarks"`
		Tags      int `json:"tags"`
	}
	decodeResult(t, result, &stats)
	if stats.Places != 1 || stats.Bookmarks != 1 || stats.Tags != 2 {
		t.Errorf("stats = %+v, want 1 place, 1 bookmark, 2 tags", stats)
	}
}

func TestHandleSearch(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)
	ctx := context.Background()

	for _, p := range []struct{ url, title string }{
		{"https://a.test/", "sailing knots guide"},
		{"https://b.test/1", "unrelated one"},
		{"https://b.test/2", "unrelated two"},
		{"https://b.test/3", "unrelated three"},
	} {
		if _, err := h.HandleVisit(ctx, makeRequest(map[string]any{"url": p.url, "title": p.title})); err != nil {
			t.Fatalf("seed visit: %v", err)
		}
	}

	result, err := h.HandleSearch(ctx, makeRequest(map[string]any{"query": "sailing"}))
	if err != nil {
		t.Fatalf("HandleSearch: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}
	var resp struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
		RequestID string `json:"request_id"`
	}
	decodeResult(t, result, &resp)
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://a.test/" {
		t.Errorf("results = %+v, want the sailing page", resp.Results)
	}
	if resp.RequestID == "" {
		t.Error("missing request id")
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)

	result, err := h.HandleSearch(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleSearch: %v", err)
	}
	if code := errorCode(t, result); code != "INVALID_REQUEST" {
		t.Errorf("code = %q, want INVALID_REQUEST", code)
	}
}

func TestHandleSuggest_RequiresCurrentURLs(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)

	result, err := h.HandleSuggest(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleSuggest: %v", err)
	}
	if code := errorCode(t, result); code != "INVALID_REQUEST" {
		t.Errorf("code = %q, want INVALID_REQUEST", code)
	}
}

func TestHandleSuggest_ColdStart(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)

	result, err := h.HandleSuggest(context.Background(), makeRequest(map[string]any{
		"current_urls": []string{"https://never-seen.test/"},
	}))
	if err != nil {
		t.Fatalf("HandleSuggest: %v", err)
	}
	if result.IsError {
		t.Fatalf("cold start must not be an error: %+v", result)
	}
	var out struct {
		Results []any `json:"results"`
	}
	decodeResult(t, result, &out)
	if len(out.Results) != 0 {
		t.Errorf("got %d results from an empty corpus", len(out.Results))
	}
}

func TestHandleHubs(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)
	ctx := context.Background()

	seed := []struct {
		url    string
		visits int64
	}{
		{"https://news.test/", 300},
		{"https://news.test/reader/", 210},
		{"https://news.test/reader/23", 10},
		{"https://news.test/reader/22", 15},
	}
	for _, s := range seed {
		if _, err := db.Exec(
			`INSERT INTO places (url, title, rev_host, visit_count, frecency, last_visit_date) VALUES (?, 'seed', ?, ?, 0, 0)`,
			s.url, corpus.ReverseHost("news.test"), s.visits,
		); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	result, err := h.HandleHubs(ctx, makeRequest(map[string]any{"host": "news.test"}))
	if err != nil {
		t.Fatalf("HandleHubs: %v", err)
	}
	var out struct {
		Pages []struct {
			URL string `json:"url"`
		} `json:"pages"`
	}
	decodeResult(t, result, &out)
	if len(out.Pages) != 1 || out.Pages[0].URL != "https://news.test/reader/" {
		t.Errorf("hubs = %+v, want exactly the reader index", out.Pages)
	}
}

func TestHandleImport(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)

	path := filepath.Join(t.TempDir(), "links.md")
	content := "# Reading\n\n- [Go spec](https://go.dev/ref/spec)\n- [Effective Go](https://go.dev/doc/effective_go)\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write import file: %v", err)
	}

	result, err := h.HandleImport(context.Background(), makeRequest(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("HandleImport: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}
	var out struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	decodeResult(t, result, &out)
	if out.Imported != 2 || out.Skipped != 0 {
		t.Errorf("import = %+v, want 2 imported", out)
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"history_search", "bogus_tool"})
	if len(unknown) != 1 || unknown[0] != "bogus_tool" {
		t.Errorf("unknown = %v, want only bogus_tool", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Fatalf("got %d names, want %d", len(names), len(toolRegistry))
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	for want := range toolRegistry {
		if !seen[want] {
			t.Errorf("missing tool %q", want)
		}
	}
}

func TestErrorResult_HidesInternalDetails(t *testing.T) {
	db, cfg := testSetup(t)
	db.Close() // force a store failure

	h := NewHandlers(db, cfg)
	result, err := h.HandleStats(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleStats: %v", err)
	}
	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	decodeResult(t, result, &body)
	if body.Error.Code != "INTERNAL" {
		t.Fatalf("code = %q, want INTERNAL", body.Error.Code)
	}
	if body.Error.Message != "an internal error occurred" {
		t.Errorf("message = %q, internals must not leak", body.Error.Message)
	}
	if body.Error.Details != nil {
		t.Errorf("details leaked: %v", body.Error.Details)
	}
}

func TestHandleSearch_MistypedArguments(t *testing.T) {
	db, cfg := testSetup(t)
	h := NewHandlers(db, cfg)

	// A query that is not a string fails argument decoding and reports the
	// invalid-request code, not an internal error.
	result, err := h.HandleSearch(context.Background(), makeRequest(map[string]any{
		"query": 42,
	}))
	if err != nil {
		t.Fatalf("HandleSearch: %v", err)
	}
	if code := errorCode(t, result); code != string(errors.ErrInvalidRequest) {
		t.Errorf("code = %q, want INVALID_REQUEST", code)
	}
}
