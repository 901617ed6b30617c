package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
// The ranking constants are empirical values carried over from the original
// tuning; they are configuration, not laws.
type Config struct {
	// IDFSmoothing is the BM25-style smoothing term added to document
	// frequencies in idf = ln((N-n+s)/(n+s)).
	IDFSmoothing float64 `json:"idf_smoothing"`

	// HubRatio is the dominance ratio for hub classification: a node is a
	// hub when its visit weight exceeds HubRatio times the relevant average.
	HubRatio float64 `json:"hub_ratio"`

	// TFScale and TFSaturation shape the term-frequency factor
	// (TFScale*tf)/(TFSaturation+tf). tf is a distinct-host count, not a
	// per-document count, so no document-length normalization applies.
	TFScale      float64 `json:"tf_scale"`
	TFSaturation float64 `json:"tf_saturation"`

	// MinVisitCount is the floor below which the global scorer ignores a
	// page (visit_count must be strictly greater).
	MinVisitCount int `json:"min_visit_count"`

	// ScorerLimit caps how many entries each scorer keeps, ordered by score.
	ScorerLimit int `json:"scorer_limit"`

	// CandidatePages is how many recent history entries the tag extractor
	// walks before its early-termination rule can stop it anyway.
	CandidatePages int `json:"candidate_pages"`

	// ExtraStopwords extends the built-in stop-word list.
	ExtraStopwords []string `json:"extra_stopwords,omitempty"`

	// AllowedPaths is an allowlist of directories for bookmark imports.
	// Paths outside the retrace base directory require either being in this
	// list or AllowUnsafePaths=true. Paths should be absolute.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for imports.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		IDFSmoothing:   0.5,
		HubRatio:       2.0,
		TFScale:        3,
		TFSaturation:   2,
		MinVisitCount:  2,
		ScorerLimit:    15,
		CandidatePages: 30,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.retrace.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.IDFSmoothing = overlay.IDFSmoothing
	if result.IDFSmoothing == 0 {
		result.IDFSmoothing = base.IDFSmoothing
	}

	result.HubRatio = overlay.HubRatio
	if result.HubRatio == 0 {
		result.HubRatio = base.HubRatio
	}

	result.TFScale = overlay.TFScale
	if result.TFScale == 0 {
		result.TFScale = base.TFScale
	}

	result.TFSaturation = overlay.TFSaturation
	if result.TFSaturation == 0 {
		result.TFSaturation = base.TFSaturation
	}

	result.MinVisitCount = overlay.MinVisitCount
	if result.MinVisitCount == 0 {
		result.MinVisitCount = base.MinVisitCount
	}

	result.ScorerLimit = overlay.ScorerLimit
	if result.ScorerLimit == 0 {
		result.ScorerLimit = base.ScorerLimit
	}

	result.CandidatePages = overlay.CandidatePages
	if result.CandidatePages == 0 {
		result.CandidatePages = base.CandidatePages
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.ExtraStopwords = mergeStringSlice(base.ExtraStopwords, overlay.ExtraStopwords)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
