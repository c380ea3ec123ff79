// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jkotar/pdfharvest/internal/authority"
	"github.com/jkotar/pdfharvest/internal/eutils"
	"github.com/jkotar/pdfharvest/internal/mapcache"
	"github.com/jkotar/pdfharvest/pkg/types"
)

// secondaryIDCacheFile holds the sourceID→secondaryID lookups remembered
// between runs.
const secondaryIDCacheFile = "secondary-ids.cache"

// OpenSecondaryIDCache opens the persistent lookup cache per cfg, defaulting
// to the XDG cache directory when no directory is configured.
func OpenSecondaryIDCache(cfg types.CacheConfig) (*mapcache.Cache, error) {
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = mapcache.DefaultDir(); err != nil {
			return nil, err
		}
	}
	return mapcache.Open(filepath.Join(dir, secondaryIDCacheFile), cfg.Reset)
}

// Run executes one full harvest: every policy journal is searched,
// classified, and retrieved to completion before the next begins. A journal
// whose harvest fails is skipped with a note; its failure never disturbs the
// counts already accumulated for earlier journals. The lookup cache and the
// failure listing are written once, at the end.
func Run(ctx context.Context, cfg types.HarvestConfig, policy *Policy, window Window, progress io.Writer) error {
	if err := os.MkdirAll(cfg.Retrieval.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	ids, err := OpenSecondaryIDCache(cfg.Cache)
	if err != nil {
		return err
	}
	members, err := authority.Load(cfg.Authority)
	if err != nil {
		return err
	}

	client := eutils.NewClient(cfg.Search)
	report := NewReport(cfg.Report.FailureFile)
	session := NewSession(client, ids, members, policy, report, cfg.Search, progress)
	scheduler := NewScheduler(client, cfg.Retrieval, report, progress)

	for _, journal := range policy.Journals {
		accepted, err := session.Harvest(ctx, journal, window)
		if err != nil {
			fmt.Fprintf(progress, "%s: harvest aborted: %v\n", journal.Name, err)
			continue
		}
		scheduler.Retrieve(ctx, journal.Name, EffectiveWindow(window, journal.EmbargoMonths), accepted)
	}

	if err := ids.Save(); err != nil {
		return err
	}
	if cfg.Report.FailureFile != "" {
		if err := report.WriteFailures(cfg.Report.FailureFile, window); err != nil {
			return err
		}
	}
	report.Summarize(progress)
	return nil
}
