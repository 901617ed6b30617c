package web

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
	"github.com/hpungsan/retrace/internal/errors"
	"github.com/hpungsan/retrace/internal/hub"
	"github.com/hpungsan/retrace/internal/search"
	"github.com/hpungsan/retrace/internal/suggest"
)

// Handlers contains the JSON API route handlers.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	version string
}

// HandleSearch handles GET /search?q=...
//
// HTTP carries no client identity, so each request gets its own session:
// concurrent clients never supersede each other, and a client that stops
// caring cancels its own query by closing the connection (r.Context()).
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, errors.NewInvalidRequest("q is required"))
		return
	}

	resp, err := search.NewSession(h.db, h.cfg).Search(r.Context(), search.Request{
		Query:               q,
		PreferredHosts:      splitParam(r, "prefer"),
		ExcludedHosts:       splitParam(r, "exclude"),
		TimeRangeDays:       parseIntParam(r, "days", 0),
		Limit:               parseIntParam(r, "limit", 20),
		Skip:                parseIntParam(r, "skip", 0),
		PrioritizeBookmarks: parseBoolParam(r, "bookmarks_first"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSuggest handles GET /suggest?current=url1,url2
func (h *Handlers) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	current := splitParam(r, "current")
	if len(current) == 0 {
		writeError(w, errors.NewInvalidRequest("current is required"))
		return
	}

	out, err := suggest.Suggest(r.Context(), h.db, h.cfg, suggest.Input{
		CurrentURLs:    current,
		ExcludedTitles: splitParam(r, "exclude_titles"),
		MaxResults:     parseIntParam(r, "max", 10),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleHubs handles GET /hubs[?host=...]
func (h *Handlers) HandleHubs(w http.ResponseWriter, r *http.Request) {
	if host := r.URL.Query().Get("host"); host != "" {
		pages, err := hub.HubsForHost(r.Context(), h.db, corpus.ReverseHost(host), h.cfg.HubRatio)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, hub.HostHubs{Host: host, Pages: pages})
		return
	}

	all, err := hub.ClassifyAll(r.Context(), h.db, h.cfg.HubRatio)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// HandleStats handles GET /stats
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := corpus.GetStats(r.Context(), h.db)
	if err != nil {
		writeError(w, errors.NewInternal(err))
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Version string `json:"version"`
		*corpus.Stats
	}{h.version, stats})
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var body errorBody
	status := http.StatusInternalServerError
	if rErr, ok := err.(*errors.RetraceError); ok {
		status = rErr.Status
		body.Error.Code = string(rErr.Code)
		body.Error.Message = rErr.Message
		body.Error.Details = rErr.Details
	} else {
		body.Error.Code = string(errors.ErrInternal)
		body.Error.Message = err.Error()
	}
	writeJSON(w, status, body)
}

func splitParam(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func parseBoolParam(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "1" || v == "true"
}
