package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jkotar/pdfharvest/internal/eutils"
	"github.com/jkotar/pdfharvest/internal/harvest"
	"github.com/jkotar/pdfharvest/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [accessions...]",
	Short: "Download the PDFs for specific accessions",
	Long: `Fetch bypasses search and policy: it resolves each accession's file
location and downloads the PDF directly. Useful for working through the
failure listing by hand. Accessions may carry the PMC prefix or not.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("output-dir", "", "directory PDFs are written to")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more accessions (e.g. PMC8624356)")
	}

	cfg := harvestConfig()
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.Retrieval.OutputDir = dir
	}
	if err := os.MkdirAll(cfg.Retrieval.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	client := eutils.NewClient(cfg.Search)
	report := harvest.NewReport("")
	scheduler := harvest.NewScheduler(client, cfg.Retrieval, report, os.Stdout)

	articles := make([]*types.Article, 0, len(args))
	for _, arg := range args {
		sourceID := strings.TrimPrefix(arg, "PMC")
		article := &types.Article{SourceID: sourceID}
		// The secondary identifier only affects the destination filename here;
		// fetch proceeds without one.
		if pmid, err := client.ResolveSecondaryID(cmd.Context(), sourceID); err == nil && pmid != "" {
			article.SecondaryID = pmid
		}
		articles = append(articles, article)
	}

	outcomes := scheduler.Retrieve(cmd.Context(), "fetch", harvest.Window{}, articles)

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Succeeded {
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "fetched %s\n", outcome.Article.Filename())
	}
	if failed > 0 {
		return fmt.Errorf("%d accession(s) failed to fetch", failed)
	}
	return nil
}
