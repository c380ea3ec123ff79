// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jkotar/pdfharvest/internal/authority"
	"github.com/jkotar/pdfharvest/internal/mapcache"
	"github.com/jkotar/pdfharvest/internal/pubdate"
	"github.com/jkotar/pdfharvest/internal/xmltree"
	"github.com/jkotar/pdfharvest/pkg/types"
)

// searchClient is the remote-service surface the session consumes.
// Satisfied by *eutils.Client.
type searchClient interface {
	Search(ctx context.Context, query string) ([]string, error)
	FetchRecord(ctx context.Context, sourceID string) (*xmltree.Element, error)
	ResolveSecondaryID(ctx context.Context, sourceID string) (string, error)
}

// Session harvests one journal at a time: search, per-record extraction,
// and classification against the inclusion policy. A session owns its
// caches for the duration of the run; nothing else mutates them.
type Session struct {
	client   searchClient
	ids      *mapcache.Cache
	members  *authority.Members
	policy   *Policy
	report   *Report
	cfg      types.SearchConfig
	progress io.Writer
}

// NewSession wires a session from its collaborators.
func NewSession(client searchClient, ids *mapcache.Cache, members *authority.Members,
	policy *Policy, report *Report, cfg types.SearchConfig, progress io.Writer) *Session {
	return &Session{
		client:   client,
		ids:      ids,
		members:  members,
		policy:   policy,
		report:   report,
		cfg:      cfg,
		progress: progress,
	}
}

// Harvest searches one journal over the window and returns the articles that
// pass every policy step, in result order. A transport or parse failure
// aborts this journal only; counts already recorded for earlier journals are
// untouched.
func (s *Session) Harvest(ctx context.Context, journal Journal, window Window) ([]*types.Article, error) {
	effective := EffectiveWindow(window, journal.EmbargoMonths)
	query := BuildQuery(journal, effective, s.cfg.OpenAccessOnly, s.cfg.TopicClause)

	sourceIDs, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching journal %q: %w", journal.Name, err)
	}
	fmt.Fprintf(s.progress, "%s: %d records match\n", journal.Name, len(sourceIDs))

	var accepted []*types.Article
	for _, sourceID := range sourceIDs {
		article, err := s.extract(ctx, sourceID)
		if err != nil {
			return nil, fmt.Errorf("journal %q: %w", journal.Name, err)
		}
		s.report.Matched(journal.Name)

		if s.classify(ctx, journal, effective, article) {
			accepted = append(accepted, article)
		}
	}
	fmt.Fprintf(s.progress, "%s: %d records accepted\n", journal.Name, len(accepted))
	return accepted, nil
}

// classify applies the policy steps in their fixed order and records exactly
// one exclusion for a rejected record: the first failing step wins even when
// later steps would also fail.
func (s *Session) classify(ctx context.Context, journal Journal, window Window, article *types.Article) bool {
	if article.Journal != journal.Name {
		s.report.Exclude(journal.Name, ReasonWrongJournal, article)
		return false
	}

	if !article.HasSecondaryID() {
		s.resolveSecondaryID(ctx, article)
	}
	if !article.HasSecondaryID() {
		s.report.Exclude(journal.Name, ReasonNoSecondaryID, article)
		return false
	}

	if s.members.Contains(article.SecondaryID) {
		s.report.Exclude(journal.Name, ReasonAlreadyKnown, article)
		return false
	}

	switch s.policy.Verdict(article.ArticleType) {
	case TypeUnwanted:
		s.report.Exclude(journal.Name, ReasonUnwantedType, article)
		return false
	case TypeNew:
		s.report.Exclude(journal.Name, ReasonNewType, article)
		return false
	}

	if !pubdate.InWindow(article.Date, window.Start, window.End) {
		s.report.Exclude(journal.Name, ReasonOutsideWindow, article)
		return false
	}
	return true
}

// resolveSecondaryID fills the article's secondary identifier from the
// lookup cache, falling back to one remote conversion on a miss. Successful
// lookups are cached; a record the converter cannot resolve stays
// unresolved and is asked again on the next run.
func (s *Session) resolveSecondaryID(ctx context.Context, article *types.Article) {
	if cached, ok := s.ids.Get(article.SourceID); ok {
		article.SecondaryID = cached
		return
	}
	resolved, err := s.client.ResolveSecondaryID(ctx, article.SourceID)
	if err != nil {
		fmt.Fprintf(s.progress, "PMC%s: identifier lookup failed: %v\n", article.SourceID, err)
		return
	}
	if resolved != "" {
		s.ids.Put(article.SourceID, resolved)
		article.SecondaryID = resolved
	}
}

// extract fetches one record and pulls the fields classification needs out
// of its article element.
func (s *Session) extract(ctx context.Context, sourceID string) (*types.Article, error) {
	record, err := s.client.FetchRecord(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	article := &types.Article{
		SourceID:    sourceID,
		ArticleType: record.Attrib["article-type"],
	}

	meta := findPath(record, "front", "article-meta")
	if journalMeta := findPath(record, "front", "journal-meta"); journalMeta != nil {
		article.Journal = journalMeta.FindText("journal-title")
		if article.Journal == "" {
			if group := journalMeta.Find("journal-title-group"); group != nil {
				article.Journal = group.FindText("journal-title")
			}
		}
	}
	if meta != nil {
		for _, id := range meta.FindAll("article-id") {
			if id.Attrib["pub-id-type"] == "pmid" && id.Text != "" {
				article.SecondaryID = id.Text
				s.ids.Put(article.SourceID, id.Text)
				break
			}
		}
		article.RawDate = rawPubDate(preferredPubDate(meta))
	}
	article.Date = pubdate.Normalize(article.RawDate).Normalized

	return article, nil
}

func findPath(e *xmltree.Element, tags ...string) *xmltree.Element {
	for _, tag := range tags {
		if e == nil {
			return nil
		}
		e = e.Find(tag)
	}
	return e
}

// preferredPubDate picks which of a record's pub-date elements to trust:
// the electronic publication date first, then the generic publication date,
// then whatever comes first. Records often lead with a month-less print or
// collection date that would normalize badly.
func preferredPubDate(meta *xmltree.Element) *xmltree.Element {
	dates := meta.FindAll("pub-date")
	for _, d := range dates {
		if d.Attrib["pub-type"] == "epub" {
			return d
		}
	}
	for _, d := range dates {
		if d.Attrib["date-type"] == "pub" {
			return d
		}
	}
	if len(dates) > 0 {
		return dates[0]
	}
	return nil
}

var monthAbbrevs = [13]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// rawPubDate reconstructs the source's date string from a pub-date element:
// an explicit string-date wins, otherwise year, month (numeric or
// abbreviated), and day fields are joined. Missing pieces yield a shorter
// string; normalization decides what it means.
func rawPubDate(pubDate *xmltree.Element) string {
	if pubDate == nil {
		return ""
	}
	if sd := pubDate.FindText("string-date"); sd != "" {
		return sd
	}

	year := pubDate.FindText("year")
	if year == "" {
		return ""
	}
	parts := []string{year}

	month := pubDate.FindText("month")
	if n, err := strconv.Atoi(month); err == nil && n >= 1 && n <= 12 {
		month = monthAbbrevs[n]
	}
	if month != "" {
		parts = append(parts, month)
		if day := pubDate.FindText("day"); day != "" {
			parts = append(parts, strings.TrimLeft(day, "0"))
		}
	}
	return strings.Join(parts, " ")
}
