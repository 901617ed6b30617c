package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
	"github.com/hpungsan/retrace/internal/errors"
	"github.com/hpungsan/retrace/internal/hub"
	"github.com/hpungsan/retrace/internal/search"
	"github.com/hpungsan/retrace/internal/suggest"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config

	// session serializes searches across tool calls so a newer
	// history_search supersedes a still-running older one.
	session *search.Session
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg, session: search.NewSession(db, cfg)}
}

// Request types for each tool

// VisitRequest represents the arguments for visit.
type VisitRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// BookmarkRequest represents the arguments for bookmark.
type BookmarkRequest struct {
	URL    string   `json:"url"`
	Title  *string  `json:"title,omitempty"`
	Folder string   `json:"folder,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// SearchRequest represents the arguments for search.
type SearchRequest struct {
	Query               string   `json:"query"`
	PreferredHosts      []string `json:"preferred_hosts,omitempty"`
	ExcludedHosts       []string `json:"excluded_hosts,omitempty"`
	TimeRangeDays       int      `json:"time_range_days,omitempty"`
	Limit               int      `json:"limit,omitempty"`
	Skip                int      `json:"skip,omitempty"`
	PrioritizeBookmarks bool     `json:"prioritize_bookmarks,omitempty"`
}

// SuggestRequest represents the arguments for suggest.
type SuggestRequest struct {
	CurrentURLs    []string `json:"current_urls"`
	ExcludedTitles []string `json:"excluded_titles,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
}

// HubsRequest represents the arguments for hubs.
type HubsRequest struct {
	Host string `json:"host,omitempty"`
}

// ImportRequest represents the arguments for import.
type ImportRequest struct {
	Path   string `json:"path"`
	Folder string `json:"folder,omitempty"`
}

// Handler implementations

// HandleVisit handles the visit tool call.
func (h *Handlers) HandleVisit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VisitRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if _, ok := corpus.ParseWebURL(input.URL); !ok {
		return errorResult(errors.NewInvalidRequest(fmt.Sprintf("not an http(s) url: %s", input.URL))), nil
	}

	page, err := corpus.RecordVisit(ctx, h.db, input.URL, input.Title, time.Now())
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return successResult(page)
}

// HandleBookmark handles the bookmark tool call.
func (h *Handlers) HandleBookmark(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BookmarkRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if _, ok := corpus.ParseWebURL(input.URL); !ok {
		return errorResult(errors.NewInvalidRequest(fmt.Sprintf("not an http(s) url: %s", input.URL))), nil
	}
	if input.Folder == "" {
		input.Folder = "unsorted"
	}

	bm, err := corpus.AddBookmark(ctx, h.db, input.URL, input.Title, input.Folder, input.Tags)
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return successResult(bm)
}

// HandleSearch handles the search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Query == "" {
		return errorResult(errors.NewInvalidRequest("query is required")), nil
	}

	resp, err := h.session.Search(ctx, search.Request{
		Query:               input.Query,
		PreferredHosts:      input.PreferredHosts,
		ExcludedHosts:       input.ExcludedHosts,
		TimeRangeDays:       input.TimeRangeDays,
		Limit:               input.Limit,
		Skip:                input.Skip,
		PrioritizeBookmarks: input.PrioritizeBookmarks,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(resp)
}

// HandleSuggest handles the suggest tool call.
func (h *Handlers) HandleSuggest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SuggestRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if len(input.CurrentURLs) == 0 {
		return errorResult(errors.NewInvalidRequest("current_urls is required")), nil
	}

	out, err := suggest.Suggest(ctx, h.db, h.cfg, suggest.Input{
		CurrentURLs:    input.CurrentURLs,
		ExcludedTitles: input.ExcludedTitles,
		MaxResults:     input.MaxResults,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleHubs handles the hubs tool call.
func (h *Handlers) HandleHubs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HubsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	if input.Host != "" {
		pages, err := hub.HubsForHost(ctx, h.db, corpus.ReverseHost(input.Host), h.cfg.HubRatio)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(hub.HostHubs{Host: input.Host, Pages: pages})
	}

	all, err := hub.ClassifyAll(ctx, h.db, h.cfg.HubRatio)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(all)
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Folder == "" {
		input.Folder = "imported"
	}

	out, err := corpus.ImportBookmarks(ctx, h.db, h.cfg, corpus.ImportInput{
		Path:   input.Path,
		Folder: input.Folder,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleStats handles the stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := corpus.GetStats(ctx, h.db)
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return successResult(stats)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if rErr, ok := err.(*errors.RetraceError); ok {
		errorObj := map[string]any{
			"code":    rErr.Code,
			"message": rErr.Message,
			"status":  rErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if rErr.Code != errors.ErrInternal && rErr.Details != nil {
			errorObj["details"] = rErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
