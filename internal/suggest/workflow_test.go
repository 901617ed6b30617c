package suggest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
	"github.com/hpungsan/retrace/internal/hub"
	"github.com/hpungsan/retrace/internal/search"
)

// TestFullWorkflow exercises the complete history lifecycle:
// visit → bookmark → import → search → suggest → hubs → stats
func TestFullWorkflow(t *testing.T) {
	db, err := corpus.Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	ctx := context.Background()

	// 1. Visit: unrelated filler history first, then the diving cluster,
	// so the extractor's recency walk starts inside the cluster.
	filler := []struct{ url, title string }{
		{"https://one.test/", "quartz ledger entries"},
		{"https://two.test/", "sourdough starter log"},
		{"https://three.test/", "velvet worm taxonomy"},
		{"https://four.test/", "analog synth patches"},
		{"https://five.test/", "timber frame joinery"},
		{"https://six.test/", "glacier melt charts"},
		{"https://seven.test/", "ballroom footwork drills"},
		{"https://eight.test/", "orchid repotting calendar"},
	}
	for _, f := range filler {
		_, err = corpus.RecordVisit(ctx, db, f.url, f.title, time.Now())
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		_, err = corpus.RecordVisit(ctx, db, "https://dive.test/guide", "deep sea diving guide", time.Now())
		require.NoError(t, err)
	}
	current, err := corpus.RecordVisit(ctx, db, "https://photo.test/reefs", "coral reef diving photos", time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), current.VisitCount)

	// 2. Bookmark the guide into a folder named after its topic, so the
	// folder itself matches the extracted tag.
	bmTitle := "Deep Sea Diving Guide"
	bm, err := corpus.AddBookmark(ctx, db, "https://dive.test/guide", &bmTitle, "diving", []string{"diving", "ocean"})
	require.NoError(t, err)
	require.Equal(t, "diving", bm.Folder)

	// 3. Import a markdown reading list.
	mdPath := filepath.Join(t.TempDir(), "links.md")
	md := "# Reading\n\n- [Tides](https://tides.test/tables)\n- [Wrecks](https://wrecks.test/map)\n"
	require.NoError(t, os.WriteFile(mdPath, []byte(md), 0o600))

	imported, err := corpus.ImportBookmarks(ctx, db, cfg, corpus.ImportInput{Path: mdPath, Folder: "imported"})
	require.NoError(t, err)
	require.Equal(t, 2, imported.Imported)
	require.Zero(t, imported.Skipped)

	// 4. Search with bookmark prioritization: the bookmarked guide ranks
	// above the more recent photo page.
	session := search.NewSession(db, cfg)
	resp, err := session.Search(ctx, search.Request{Query: "diving", PrioritizeBookmarks: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.RequestID)
	require.Len(t, resp.Results, 2)
	require.Equal(t, "https://dive.test/guide", resp.Results[0].URL)
	require.True(t, resp.Results[0].Bookmarked)

	// 5. Suggest against the photo page: the guide comes back under its
	// bookmark title, and the current page is never suggested back.
	out, err := Suggest(ctx, db, cfg, Input{CurrentURLs: []string{"https://photo.test/reefs"}})
	require.NoError(t, err)
	require.Contains(t, out.Tags, "diving")
	require.Len(t, out.Results, 1)

	top := out.Results[0]
	require.Equal(t, "https://dive.test/guide", top.URL)
	require.True(t, top.BMEngine)
	require.Equal(t, "Deep Sea Diving Guide", top.DisplayTitle)
	require.Positive(t, top.Score)

	// 6. Hubs: a reader index visited far more often than its children.
	for i := 0; i < 6; i++ {
		_, err = corpus.RecordVisit(ctx, db, "https://news.test/reader/", "reader index", time.Now())
		require.NoError(t, err)
	}
	_, err = corpus.RecordVisit(ctx, db, "https://news.test/reader/alpha", "story alpha", time.Now())
	require.NoError(t, err)
	_, err = corpus.RecordVisit(ctx, db, "https://news.test/reader/beta", "story beta", time.Now())
	require.NoError(t, err)

	hubs, err := hub.HubsForHost(ctx, db, corpus.ReverseHost("news.test"), cfg.HubRatio)
	require.NoError(t, err)
	require.Len(t, hubs, 1)
	require.Equal(t, "https://news.test/reader/", hubs[0].URL)

	// 7. Stats: 13 visited pages plus 2 imported; 1 manual bookmark plus 2
	// imported ones.
	stats, err := corpus.GetStats(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 15, stats.Places)
	require.Equal(t, 3, stats.Bookmarks)
}
