// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pdfharvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retry attempts for transient HTTP
	// failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SearchConfig holds settings for the repository search transport.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// PageSize is the number of results fetched per search request (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// MaxResults caps the total number of results pulled for one journal.
	// Zero means no cap.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MinRequestSpacing is the minimum gap between consecutive search
	// requests, enforced by the request governor (default 334ms, which keeps
	// us under the repository's 3-requests-per-second cap).
	MinRequestSpacing time.Duration `json:"min_request_spacing" yaml:"min_request_spacing"`

	// OpenAccessOnly restricts searches to records whose full text is
	// freely retrievable.
	OpenAccessOnly bool `json:"open_access_only" yaml:"open_access_only"`

	// TopicClause is an extra query clause ANDed onto every journal search
	// (e.g. restricting to a species or subject term). Empty disables it.
	TopicClause string `json:"topic_clause,omitempty" yaml:"topic_clause,omitempty"`
}

// RetrievalConfig holds settings for the download stage.
type RetrievalConfig struct {
	// OutputDir is the directory PDFs are written to.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Workers is the bounded number of concurrent download jobs (default 5).
	Workers int `json:"workers" yaml:"workers"`

	// DownloadCommand is the external command that fetches one file:
	// it is invoked as DownloadCommand <url> <output-dir> <filename>.
	DownloadCommand string `json:"download_command" yaml:"download_command"`

	// DryRun skips scheduling downloads while still classifying and reporting.
	DryRun bool `json:"dry_run" yaml:"dry_run"`
}

// AuthorityConfig locates the authority store whose known identifiers must
// not be re-downloaded.
type AuthorityConfig struct {
	// DBPath is the path to the authority SQLite database.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// CacheConfig holds settings for the persistent lookup caches.
type CacheConfig struct {
	// Dir is the directory cache files live in. Empty selects the XDG
	// cache directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Reset discards existing cache contents at startup.
	Reset bool `json:"reset" yaml:"reset"`
}

// ReportConfig holds settings for run reporting.
type ReportConfig struct {
	// FailureFile is the path of the durable failure listing read at startup
	// (to recover prior attempt counts) and rewritten at the end of the run.
	FailureFile string `json:"failure_file" yaml:"failure_file"`
}

// HarvestConfig groups all stage configurations for one harvest run.
type HarvestConfig struct {
	Search    SearchConfig    `json:"search" yaml:"search"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Authority AuthorityConfig `json:"authority" yaml:"authority"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Report    ReportConfig    `json:"report" yaml:"report"`
}
