// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jkotar/pdfharvest/internal/dispatch"
	"github.com/jkotar/pdfharvest/pkg/types"
)

// stagingSuffix marks an in-flight download. The finished file is renamed to
// its final name only after the job reports success, so a crashed or failed
// download never leaves a plausible-looking PDF behind.
const stagingSuffix = ".part"

// noPDFMessage is printed by the download command when the fetched archive
// turns out to contain no PDF. The job exits zero in that case, so the
// message itself marks the failure.
const noPDFMessage = "no PDF found in gzip file"

// fileLocator resolves where a record's retrievable file lives. Satisfied by
// *eutils.Client.
type fileLocator interface {
	ResolveFileLocation(ctx context.Context, sourceID string) (string, error)
}

// jobPool is the dispatcher surface the scheduler uses. Satisfied by
// *dispatch.Pool.
type jobPool interface {
	Submit(job dispatch.Job)
	Wait() []dispatch.Result
}

// Scheduler turns accepted articles into download jobs, waits out the
// dispatcher barrier, and reconciles job results back onto articles and the
// run report.
type Scheduler struct {
	locator  fileLocator
	cfg      types.RetrievalConfig
	report   *Report
	progress io.Writer
	newPool  func(ctx context.Context) jobPool
}

// NewScheduler wires a scheduler over the production dispatcher.
func NewScheduler(locator fileLocator, cfg types.RetrievalConfig, report *Report, progress io.Writer) *Scheduler {
	return &Scheduler{
		locator:  locator,
		cfg:      cfg,
		report:   report,
		progress: progress,
		newPool: func(ctx context.Context) jobPool {
			return dispatch.NewPool(ctx, cfg.Workers)
		},
	}
}

// Retrieve downloads the PDFs for one journal's accepted articles. Every
// article yields exactly one outcome except in dry-run mode, where jobs are
// neither scheduled nor counted. All jobs are submitted before any result is
// read; the dispatcher barrier is the only synchronization point.
func (s *Scheduler) Retrieve(ctx context.Context, journal string, window Window, articles []*types.Article) []types.DownloadOutcome {
	pool := s.newPool(ctx)
	pending := map[string]*types.Article{}
	var outcomes []types.DownloadOutcome

	for _, article := range articles {
		filename := article.Filename()
		dest := filepath.Join(s.cfg.OutputDir, filename)
		if _, err := os.Stat(dest); err == nil {
			fmt.Fprintf(s.progress, "%s: already present\n", filename)
			article.PDFAvailable = true
			s.report.Downloaded(journal)
			outcomes = append(outcomes, types.DownloadOutcome{
				Article: article, Succeeded: true, Attempt: s.report.Attempts(article),
			})
			continue
		}

		location, err := s.locator.ResolveFileLocation(ctx, article.SourceID)
		if err != nil {
			fmt.Fprintf(s.progress, "%s: %v\n", filename, err)
			outcomes = append(outcomes, s.fail(journal, window, article))
			continue
		}

		if s.cfg.DryRun {
			fmt.Fprintf(s.progress, "%s: would download %s\n", filename, location)
			continue
		}

		pool.Submit(dispatch.Job{
			Tag:  article.SourceID,
			Argv: []string{s.cfg.DownloadCommand, location, s.cfg.OutputDir, filename + stagingSuffix},
		})
		pending[article.SourceID] = article
	}

	for _, result := range pool.Wait() {
		article := pending[result.Job.Tag]
		if article == nil {
			continue
		}
		if s.finish(result, article) {
			article.PDFAvailable = true
			s.report.Downloaded(journal)
			outcomes = append(outcomes, types.DownloadOutcome{
				Article: article, Succeeded: true, Attempt: s.report.Attempts(article),
			})
		} else {
			outcomes = append(outcomes, s.fail(journal, window, article))
		}
	}
	return outcomes
}

// finish decides whether one completed job succeeded and, when it did,
// promotes the staged file to its final name.
func (s *Scheduler) finish(result dispatch.Result, article *types.Article) bool {
	if result.Failed(rejectNoPDF) {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(result.Stdout)
		}
		fmt.Fprintf(s.progress, "%s: download failed (exit %d) %s\n",
			article.Filename(), result.ExitCode, detail)
		return false
	}

	staged := filepath.Join(s.cfg.OutputDir, article.Filename()+stagingSuffix)
	final := filepath.Join(s.cfg.OutputDir, article.Filename())
	if err := os.Rename(staged, final); err != nil {
		fmt.Fprintf(s.progress, "%s: staging rename failed: %v\n", article.Filename(), err)
		return false
	}
	return true
}

func (s *Scheduler) fail(journal string, window Window, article *types.Article) types.DownloadOutcome {
	outcome := types.DownloadOutcome{
		Article: article, Succeeded: false, Attempt: s.report.Attempts(article),
	}
	s.report.FailedDownload(journal, article, window)
	return outcome
}

func rejectNoPDF(stdout string) bool {
	return strings.Contains(stdout, noPDFMessage)
}
