// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdfharvest CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jkotar/pdfharvest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultTimeout    = 60 * time.Second
	defaultUserAgent  = "pdfharvest/0.1"
	defaultMaxRetries = 3
	defaultPageSize   = 100
	defaultSpacing    = 334 * time.Millisecond
	defaultWorkers    = 5
)

// rootCmd is the base command for the pdfharvest CLI.
var rootCmd = &cobra.Command{
	Use:   "pdfharvest",
	Short: "Harvest journal articles and retrieve their PDFs",
	Long: `pdfharvest searches literature repositories journal by journal, filters the
results against a local inclusion policy, and downloads the PDFs of records
not yet held in the curation database.

Each run is incremental: identifier lookups are cached on disk, records
already in the curation database are skipped, and download failures are
written to a durable listing whose attempt counts accumulate across runs.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdfharvest.yaml or ~/.config/pdfharvest/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdfharvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdfharvest"))
		}
	}

	viper.SetEnvPrefix("PDFHARVEST")
	viper.AutomaticEnv()

	viper.SetDefault("search.timeout", defaultTimeout)
	viper.SetDefault("search.user_agent", defaultUserAgent)
	viper.SetDefault("search.max_retries", defaultMaxRetries)
	viper.SetDefault("search.page_size", defaultPageSize)
	viper.SetDefault("search.min_request_spacing", defaultSpacing)
	viper.SetDefault("search.open_access_only", true)
	viper.SetDefault("retrieval.output_dir", "pdfs")
	viper.SetDefault("retrieval.workers", defaultWorkers)
	viper.SetDefault("retrieval.download_command", "fetch-pdf")
	viper.SetDefault("report.failure_file", "failures.txt")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// harvestConfig assembles the stage configurations from viper.
func harvestConfig() types.HarvestConfig {
	return types.HarvestConfig{
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:    viper.GetDuration("search.timeout"),
				UserAgent:  viper.GetString("search.user_agent"),
				MaxRetries: viper.GetInt("search.max_retries"),
			},
			PageSize:          viper.GetInt("search.page_size"),
			MaxResults:        viper.GetInt("search.max_results"),
			MinRequestSpacing: viper.GetDuration("search.min_request_spacing"),
			OpenAccessOnly:    viper.GetBool("search.open_access_only"),
			TopicClause:       viper.GetString("search.topic_clause"),
		},
		Retrieval: types.RetrievalConfig{
			OutputDir:       viper.GetString("retrieval.output_dir"),
			Workers:         viper.GetInt("retrieval.workers"),
			DownloadCommand: viper.GetString("retrieval.download_command"),
			DryRun:          viper.GetBool("retrieval.dry_run"),
		},
		Authority: types.AuthorityConfig{
			DBPath: viper.GetString("authority.db_path"),
		},
		Cache: types.CacheConfig{
			Dir:   viper.GetString("cache.dir"),
			Reset: viper.GetBool("cache.reset"),
		},
		Report: types.ReportConfig{
			FailureFile: viper.GetString("report.failure_file"),
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
