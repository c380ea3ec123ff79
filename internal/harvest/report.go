// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jkotar/pdfharvest/pkg/types"
)

// Reason is one policy exclusion bucket. Each rejected record lands in
// exactly one.
type Reason int

const (
	ReasonWrongJournal Reason = iota
	ReasonNoSecondaryID
	ReasonAlreadyKnown
	ReasonUnwantedType
	ReasonNewType
	ReasonOutsideWindow
)

// TypeDetail is the per-article-type breakdown kept for unwanted and
// never-seen types, with one example accession for the operator to inspect.
type TypeDetail struct {
	Count     int
	ExampleID string
}

// JournalCounts accumulates one journal's outcome tallies.
type JournalCounts struct {
	Matched       int
	WrongJournal  int
	NoSecondaryID int
	AlreadyKnown  int
	UnwantedType  int
	NewType       int
	OutsideWindow int
	Downloaded    int
	Failed        int

	UnwantedTypes map[string]*TypeDetail
	NewTypes      map[string]*TypeDetail

	// EarliestUnresolved is the oldest record rejected for lacking a
	// secondary identifier, worth a manual look.
	EarliestUnresolved *types.Article
}

// FailureEntry is one row of the durable failure listing.
type FailureEntry struct {
	SecondaryID string
	SourceID    string
	Date        string
	Weeks       int
	Attempts    int
	Journal     string
}

// Report accumulates per-journal counts for one run and carries download
// attempt counts across runs via the failure listing: each identifier's
// prior count is recovered at construction and incremented when the
// identifier fails again.
type Report struct {
	order    []string
	journals map[string]*JournalCounts
	prior    map[string]int
	failures []FailureEntry
	now      time.Time
}

// failureRow matches one data row of a failure listing: secondary-id,
// source-id, normalized date, weeks, attempts, journal. Header and
// instruction lines simply fail to match and are skipped.
var failureRow = regexp.MustCompile(`^(\d+)\s+(\S+)\s+(\d{4}-\d{2}-\d{2})\s+(-?\d+)\s+(\d+)\s+(\S.*?)\s*$`)

// NewReport builds a report, recovering prior attempt counts from the
// previous run's failure listing at path. A missing or unreadable listing
// starts every identifier at zero prior attempts.
func NewReport(previousFailurePath string) *Report {
	r := &Report{
		journals: map[string]*JournalCounts{},
		prior:    map[string]int{},
		now:      time.Now(),
	}
	if previousFailurePath == "" {
		return r
	}
	f, err := os.Open(previousFailurePath)
	if err != nil {
		return r
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := failureRow.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		attempts, err := strconv.Atoi(m[5])
		if err != nil {
			continue
		}
		r.prior[m[1]] = attempts
	}
	return r
}

func (r *Report) journal(name string) *JournalCounts {
	jc, ok := r.journals[name]
	if !ok {
		jc = &JournalCounts{
			UnwantedTypes: map[string]*TypeDetail{},
			NewTypes:      map[string]*TypeDetail{},
		}
		r.journals[name] = jc
		r.order = append(r.order, name)
	}
	return jc
}

// Counts returns the accumulated tallies for one journal, or nil when the
// journal was never touched this run.
func (r *Report) Counts(name string) *JournalCounts {
	return r.journals[name]
}

// Matched counts one search result for the journal.
func (r *Report) Matched(journal string) {
	r.journal(journal).Matched++
}

// Exclude counts one rejected record in its exclusion bucket.
func (r *Report) Exclude(journal string, reason Reason, article *types.Article) {
	jc := r.journal(journal)
	switch reason {
	case ReasonWrongJournal:
		jc.WrongJournal++
	case ReasonNoSecondaryID:
		jc.NoSecondaryID++
		if jc.EarliestUnresolved == nil || article.Date < jc.EarliestUnresolved.Date {
			jc.EarliestUnresolved = article
		}
	case ReasonAlreadyKnown:
		jc.AlreadyKnown++
	case ReasonUnwantedType:
		jc.UnwantedType++
		countType(jc.UnwantedTypes, article)
	case ReasonNewType:
		jc.NewType++
		countType(jc.NewTypes, article)
	case ReasonOutsideWindow:
		jc.OutsideWindow++
	}
}

func countType(buckets map[string]*TypeDetail, article *types.Article) {
	detail, ok := buckets[article.ArticleType]
	if !ok {
		detail = &TypeDetail{ExampleID: article.SourceID}
		buckets[article.ArticleType] = detail
	}
	detail.Count++
}

// Attempts returns the attempt number the current run's try represents for
// an article: one more than the count carried in the previous failure
// listing.
func (r *Report) Attempts(article *types.Article) int {
	return r.prior[article.SecondaryID] + 1
}

// Downloaded counts one successful retrieval.
func (r *Report) Downloaded(journal string) {
	r.journal(journal).Downloaded++
}

// FailedDownload counts one failed retrieval and queues its row for the new
// failure listing, with the accumulated attempt count.
func (r *Report) FailedDownload(journal string, article *types.Article, window Window) {
	r.journal(journal).Failed++

	r.failures = append(r.failures, FailureEntry{
		SecondaryID: article.SecondaryID,
		SourceID:    article.SourceID,
		Date:        article.Date,
		Weeks:       weeksIntoWindow(article.Date, window.Start),
		Attempts:    r.Attempts(article),
		Journal:     journal,
	})
}

// weeksIntoWindow returns whole weeks from the window start to the record's
// date, telling the operator how far into the searched range the record
// sits. The unknown-date sentinel and unparseable dates yield zero.
func weeksIntoWindow(date, windowStart string) int {
	d, err := time.Parse(dateFmt, date)
	if err != nil {
		return 0
	}
	start, err := time.Parse(dateFmt, windowStart)
	if err != nil {
		return 0
	}
	return int(d.Sub(start).Hours()) / (24 * 7)
}

// Failures returns the rows queued for the new failure listing.
func (r *Report) Failures() []FailureEntry {
	return r.failures
}

var failureColumns = []string{"pmid", "pmcid", "date", "weeks", "tries", "journal"}

// WriteFailures writes the durable failure listing: a commented header
// describing the searched window and how to follow up, then one fixed-width
// row per failed record. Rows are aligned with display-width padding so the
// table stays readable with any identifier lengths.
func (r *Report) WriteFailures(path string, window Window) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Download failures for window %s : %s (written %s)\n",
		window.Start, window.End, r.now.Format(dateFmt))
	fmt.Fprintf(&b, "# Each row is one record whose PDF could not be retrieved.\n")
	fmt.Fprintf(&b, "# Fetch manually with: pdfharvest fetch <pmcid>. The tries column\n")
	fmt.Fprintf(&b, "# accumulates across runs; rows disappear once the PDF is retrieved.\n")

	rows := make([][]string, 0, len(r.failures)+1)
	rows = append(rows, failureColumns)
	for _, f := range r.failures {
		rows = append(rows, []string{
			f.SecondaryID,
			"PMC" + f.SourceID,
			f.Date,
			strconv.Itoa(f.Weeks),
			strconv.Itoa(f.Attempts),
			f.Journal,
		})
	}

	widths := make([]int, len(failureColumns))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing failure listing %s: %w", path, err)
	}
	return nil
}

// Summarize writes the human-readable per-journal run summary.
func (r *Report) Summarize(w io.Writer) {
	for _, name := range r.order {
		jc := r.journals[name]
		fmt.Fprintf(w, "\n%s\n", name)
		fmt.Fprintf(w, "  matched:            %d\n", jc.Matched)
		fmt.Fprintf(w, "  wrong journal:      %d\n", jc.WrongJournal)
		fmt.Fprintf(w, "  no secondary id:    %d\n", jc.NoSecondaryID)
		fmt.Fprintf(w, "  already known:      %d\n", jc.AlreadyKnown)
		fmt.Fprintf(w, "  unwanted type:      %d\n", jc.UnwantedType)
		fmt.Fprintf(w, "  new type:           %d\n", jc.NewType)
		fmt.Fprintf(w, "  outside window:     %d\n", jc.OutsideWindow)
		fmt.Fprintf(w, "  downloaded:         %d\n", jc.Downloaded)
		fmt.Fprintf(w, "  download failed:    %d\n", jc.Failed)

		writeTypeDetail(w, "unwanted types", jc.UnwantedTypes)
		writeTypeDetail(w, "new types", jc.NewTypes)
		if jc.EarliestUnresolved != nil {
			fmt.Fprintf(w, "  earliest record without a secondary id: PMC%s (%s)\n",
				jc.EarliestUnresolved.SourceID, jc.EarliestUnresolved.Date)
		}
	}
}

func writeTypeDetail(w io.Writer, label string, details map[string]*TypeDetail) {
	if len(details) == 0 {
		return
	}
	names := make([]string, 0, len(details))
	for name := range details {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "  %s:\n", label)
	for _, name := range names {
		d := details[name]
		fmt.Fprintf(w, "    %-24s %3d  (e.g. PMC%s)\n", name, d.Count, d.ExampleID)
	}
}
