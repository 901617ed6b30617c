package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hpungsan/retrace/internal/config"
	"github.com/hpungsan/retrace/internal/errors"
)

// ImportInput contains parameters for a bookmark import.
type ImportInput struct {
	Path   string // required, .md file of link lists
	Folder string // fallback folder when the file has no headings
}

// ImportOutput contains the result of a bookmark import.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError records one link that could not be imported.
type ImportError struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// markdownLink is one extracted link with its heading context.
type markdownLink struct {
	url    string
	title  string
	folder string
}

// ImportBookmarks reads a markdown file of link lists and stores each link
// as a bookmark. The nearest preceding heading names the folder. Links that
// are not real http(s) URLs are skipped, not fatal.
func ImportBookmarks(ctx context.Context, db *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := validateImportPath(input.Path, cfg); err != nil {
		return nil, err
	}

	source, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}

	links := extractLinks(source, input.Folder)
	if len(links) == 0 {
		return nil, errors.NewImportFailed(input.Path, fmt.Errorf("no links found"))
	}

	out := &ImportOutput{}
	for _, l := range links {
		if _, ok := ParseWebURL(l.url); !ok {
			out.Skipped++
			out.Errors = append(out.Errors, ImportError{URL: l.url, Message: "not an http(s) URL"})
			continue
		}

		var title *string
		if l.title != "" {
			title = &l.title
		}
		if _, err := AddBookmark(ctx, db, l.url, title, l.folder, nil); err != nil {
			out.Skipped++
			out.Errors = append(out.Errors, ImportError{URL: l.url, Message: err.Error()})
			continue
		}
		out.Imported++
	}

	return out, nil
}

// extractLinks walks the goldmark AST collecting links, tracking the current
// heading as the folder context.
func extractLinks(source []byte, fallbackFolder string) []markdownLink {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var links []markdownLink
	folder := fallbackFolder

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			folder = nodeText(node, source)
		case *ast.Link:
			links = append(links, markdownLink{
				url:    string(node.Destination),
				title:  nodeText(node, source),
				folder: folder,
			})
		case *ast.AutoLink:
			links = append(links, markdownLink{
				url:    string(node.URL(source)),
				folder: folder,
			})
		}
		return ast.WalkContinue, nil
	})

	return links
}

// nodeText concatenates the text segments under a node.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
	}
	return strings.TrimSpace(sb.String())
}

// validateImportPath checks the import path: no traversal, .md extension,
// and unless AllowUnsafePaths is set, the file must sit directly in one of
// the allowed directories. Symlinks are rejected either way.
func validateImportPath(path string, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return errors.NewInvalidRequest("path must not contain directory traversal (..)")
		}
	}

	cleaned := filepath.Clean(path)
	if ext := filepath.Ext(cleaned); ext != ".md" && ext != ".markdown" {
		return errors.NewInvalidRequest("path must have .md extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return errors.NewNotFound(path)
	}

	// Symlink restrictions always apply, even with AllowUnsafePaths.
	if info, err := os.Lstat(absPath); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("path must not be a symlink")
		}
	}

	if cfg != nil && cfg.AllowUnsafePaths {
		return nil
	}

	allowedDirs, err := getAllowedDirs(cfg)
	if err != nil {
		return err
	}

	parentDir := filepath.Dir(absPath)
	for _, dir := range allowedDirs {
		if parentDir == dir {
			return nil
		}
	}
	return errors.NewInvalidRequest(
		fmt.Sprintf("file must be directly in an allowed directory; allowed: %v", allowedDirs))
}

// getAllowedDirs returns the import allow-list: ~/.retrace plus configured
// allowed_paths entries (absolute paths only).
func getAllowedDirs(cfg *config.Config) ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}

	dirs := []string{filepath.Join(homeDir, ".retrace")}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}
	return dirs, nil
}
