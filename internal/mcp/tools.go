package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = map[string]any{"type": "string"}

var visitToolDef = mcp.NewTool("history_visit",
	mcp.WithDescription("Record a page visit in the browsing-history corpus."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Page URL (http or https)")),
	mcp.WithString("title", mcp.Description("Page title")),
)

var bookmarkToolDef = mcp.NewTool("history_bookmark",
	mcp.WithDescription("Bookmark a URL, optionally filing it under a folder with tags."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Page URL (http or https)")),
	mcp.WithString("title", mcp.Description("Bookmark title (shown instead of the page title)")),
	mcp.WithString("folder", mcp.Description("Bookmark folder (default: unsorted)")),
	mcp.WithArray("tags", mcp.Description("Tags to attach"), mcp.Items(stringItems)),
)

var searchToolDef = mcp.NewTool("history_search",
	mcp.WithDescription("Free-text search over browsing history with host and time filters."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Whitespace-separated search terms")),
	mcp.WithArray("preferred_hosts", mcp.Description("Hosts to rank first"), mcp.Items(stringItems)),
	mcp.WithArray("excluded_hosts", mcp.Description("Hosts to drop from results"), mcp.Items(stringItems)),
	mcp.WithNumber("time_range_days", mcp.Description("Only pages visited in the last N days (0 = all)")),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	mcp.WithNumber("skip", mcp.Description("Results to skip, for pagination")),
	mcp.WithBoolean("prioritize_bookmarks", mcp.Description("Rank bookmarked pages first")),
)

var suggestToolDef = mcp.NewTool("history_suggest",
	mcp.WithDescription("Suggest history pages related to the currently open pages."),
	mcp.WithArray("current_urls", mcp.Required(), mcp.Description("URLs of the pages currently open"), mcp.Items(stringItems)),
	mcp.WithArray("excluded_titles", mcp.Description("Titles already on display"), mcp.Items(stringItems)),
	mcp.WithNumber("max_results", mcp.Description("Maximum suggestions (default 10)")),
)

var hubsToolDef = mcp.NewTool("history_hubs",
	mcp.WithDescription("List hub (index-like) pages, for one host or the whole corpus."),
	mcp.WithString("host", mcp.Description("Limit to one host")),
)

var importToolDef = mcp.NewTool("history_import",
	mcp.WithDescription("Import bookmarks from a markdown link list; headings become folders."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Markdown file path")),
	mcp.WithString("folder", mcp.Description("Fallback folder for links outside any heading")),
)

var statsToolDef = mcp.NewTool("history_stats",
	mcp.WithDescription("Summarize the corpus: places, bookmarks, tags, hosts."),
)
