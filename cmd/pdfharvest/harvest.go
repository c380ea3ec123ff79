package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jkotar/pdfharvest/internal/harvest"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Search configured journals and download new PDFs",
	Long: `Harvest searches each journal in the policy file over the given publication
window, classifies every result against the inclusion policy, and downloads
the PDFs of accepted records through the configured download command.

Records already held in the curation database, records of unwanted or
unreviewed article types, and records without a resolvable secondary
identifier are skipped and counted in the run summary. Failed downloads are
appended to the failure listing with their accumulated attempt counts.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("journals", "journals.yaml", "journal and article-type policy file")
	harvestCmd.Flags().String("from", "", "window start (YYYY-MM-DD, required)")
	harvestCmd.Flags().String("to", "", "window end (YYYY-MM-DD, required)")
	harvestCmd.Flags().String("output-dir", "", "directory PDFs are written to")
	harvestCmd.Flags().String("db", "", "curation SQLite database path")
	harvestCmd.Flags().Bool("dry-run", false, "classify and report without downloading")
	harvestCmd.Flags().Bool("reset-cache", false, "discard the identifier lookup cache")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	if from == "" || to == "" {
		return fmt.Errorf("both --from and --to are required")
	}
	window := harvest.Window{Start: from, End: to}

	policyPath, _ := cmd.Flags().GetString("journals")
	policy, err := harvest.ReadPolicy(policyPath)
	if err != nil {
		return err
	}

	cfg := harvestConfig()
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.Retrieval.OutputDir = dir
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Authority.DBPath = db
	}
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		cfg.Retrieval.DryRun = true
	}
	if reset, _ := cmd.Flags().GetBool("reset-cache"); reset {
		cfg.Cache.Reset = true
	}
	if cfg.Authority.DBPath == "" {
		return fmt.Errorf("no curation database configured: set --db or authority.db_path")
	}

	return harvest.Run(cmd.Context(), cfg, policy, window, os.Stdout)
}
