package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/corpus"
	"github.com/hpungsan/retrace/internal/errors"
	"github.com/hpungsan/retrace/internal/hub"
	"github.com/hpungsan/retrace/internal/search"
	"github.com/hpungsan/retrace/internal/suggest"
	"github.com/hpungsan/retrace/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "retrace",
		Usage:   "Local browsing-history search and suggestions",
		Version: Version,
		Commands: []*cli.Command{
			visitCmd(db),
			bookmarkCmd(db),
			searchCmd(db, cfg),
			suggestCmd(db, cfg),
			hubsCmd(db, cfg),
			importCmd(db, cfg),
			statsCmd(db),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// visitCmd records a page visit.
func visitCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "visit",
		Usage:     "Record a page visit",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Page title"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("url is required"))
			}
			pageURL := c.Args().First()
			if _, ok := corpus.ParseWebURL(pageURL); !ok {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("not an http(s) url: %s", pageURL)))
			}

			page, err := corpus.RecordVisit(c.Context, db, pageURL, c.String("title"), time.Now())
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(page)
		},
	}
}

// bookmarkCmd adds a bookmark.
func bookmarkCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "bookmark",
		Usage:     "Bookmark a URL",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Bookmark title"},
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Value: "unsorted", Usage: "Bookmark folder"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("url is required"))
			}
			pageURL := c.Args().First()
			if _, ok := corpus.ParseWebURL(pageURL); !ok {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("not an http(s) url: %s", pageURL)))
			}

			var title *string
			if t := c.String("title"); t != "" {
				title = &t
			}

			bm, err := corpus.AddBookmark(c.Context, db, pageURL, title, c.String("folder"), parseTags(c.String("tags")))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(bm)
		},
	}
}

// searchCmd runs a free-text query.
func searchCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search browsing history",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prefer", Usage: "Comma-separated hosts to rank first"},
			&cli.StringFlag{Name: "exclude", Usage: "Comma-separated hosts to drop"},
			&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Usage: "Only pages visited in the last N days (0 = all)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "skip", Aliases: []string{"s"}, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "bookmarks-first", Aliases: []string{"b"}, Usage: "Rank bookmarked pages first"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("query is required"))
			}

			session := search.NewSession(db, cfg)
			resp, err := session.Search(c.Context, search.Request{
				Query:               strings.Join(c.Args().Slice(), " "),
				PreferredHosts:      parseTags(c.String("prefer")),
				ExcludedHosts:       parseTags(c.String("exclude")),
				TimeRangeDays:       c.Int("days"),
				Limit:               c.Int("limit"),
				Skip:                c.Int("skip"),
				PrioritizeBookmarks: c.Bool("bookmarks-first"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(resp)
		},
	}
}

// suggestCmd runs the suggestion pipeline against one or more current URLs.
func suggestCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "Suggest history pages related to the current pages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "current", Aliases: []string{"c"}, Required: true, Usage: "Comma-separated URLs of the pages currently open"},
			&cli.StringFlag{Name: "exclude-titles", Usage: "Comma-separated titles already on display"},
			&cli.IntFlag{Name: "max", Aliases: []string{"m"}, Value: 10, Usage: "Maximum suggestions"},
		},
		Action: func(c *cli.Context) error {
			out, err := suggest.Suggest(c.Context, db, cfg, suggest.Input{
				CurrentURLs:    parseTags(c.String("current")),
				ExcludedTitles: parseTags(c.String("exclude-titles")),
				MaxResults:     c.Int("max"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// hubsCmd classifies hub pages for one host or the whole corpus.
func hubsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "hubs",
		Usage: "List hub (index-like) pages per host",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Limit to one host"},
		},
		Action: func(c *cli.Context) error {
			if host := c.String("host"); host != "" {
				pages, err := hub.HubsForHost(c.Context, db, corpus.ReverseHost(host), cfg.HubRatio)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(hub.HostHubs{Host: host, Pages: pages})
			}

			all, err := hub.ClassifyAll(c.Context, db, cfg.HubRatio)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(all)
		},
	}
}

// importCmd imports bookmarks from a markdown link list.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import bookmarks from a markdown file (headings become folders)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Markdown file path"},
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Value: "imported", Usage: "Fallback folder for links outside any heading"},
		},
		Action: func(c *cli.Context) error {
			out, err := corpus.ImportBookmarks(c.Context, db, cfg, corpus.ImportInput{
				Path:   c.String("path"),
				Folder: c.String("folder"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// statsCmd summarizes the corpus.
func statsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show corpus statistics",
		Action: func(c *cli.Context) error {
			stats, err := corpus.GetStats(c.Context, db)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(stats)
		},
	}
}

// serveCmd starts the JSON API server.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 7040, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if rErr, ok := err.(*errors.RetraceError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", rErr.Code, rErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseTags splits a comma-separated string into a slice of values.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
