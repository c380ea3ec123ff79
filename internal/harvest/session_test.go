// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkotar/pdfharvest/internal/authority"
	"github.com/jkotar/pdfharvest/internal/mapcache"
	"github.com/jkotar/pdfharvest/internal/xmltree"
	"github.com/jkotar/pdfharvest/pkg/types"
)

// fakeClient serves scripted search results and records.
type fakeClient struct {
	ids          []string
	records      map[string]string // sourceID -> record XML
	secondary    map[string]string // sourceID -> converter answer
	locations    map[string]string // sourceID -> file URL
	resolveCalls int
	searchQuery  string
}

func (f *fakeClient) Search(ctx context.Context, query string) ([]string, error) {
	f.searchQuery = query
	return f.ids, nil
}

func (f *fakeClient) FetchRecord(ctx context.Context, sourceID string) (*xmltree.Element, error) {
	doc, ok := f.records[sourceID]
	if !ok {
		return nil, fmt.Errorf("no record for %s", sourceID)
	}
	return xmltree.Parse(doc)
}

func (f *fakeClient) ResolveSecondaryID(ctx context.Context, sourceID string) (string, error) {
	f.resolveCalls++
	return f.secondary[sourceID], nil
}

func (f *fakeClient) ResolveFileLocation(ctx context.Context, sourceID string) (string, error) {
	if url, ok := f.locations[sourceID]; ok {
		return url, nil
	}
	return "", errors.New("no retrievable file for accession " + sourceID)
}

// recordXML builds a record in the shape the session extracts from. pmid ""
// omits the article-id element.
func recordXML(journal, articleType, pmid, year, month, day string) string {
	ids := ""
	if pmid != "" {
		ids = `<article-id pub-id-type="pmid">` + pmid + `</article-id>`
	}
	date := ""
	if year != "" {
		date = "<year>" + year + "</year>"
		if month != "" {
			date += "<month>" + month + "</month>"
		}
		if day != "" {
			date += "<day>" + day + "</day>"
		}
	}
	return `<article article-type="` + articleType + `">
		<front>
			<journal-meta><journal-title-group><journal-title>` + journal + `</journal-title></journal-title-group></journal-meta>
			<article-meta>` + ids + `<pub-date pub-type="epub">` + date + `</pub-date></article-meta>
		</front>
	</article>`
}

func emptyMembers(t *testing.T, ids ...string) *authority.Members {
	t.Helper()
	return membersWith(t, ids)
}

func newSessionForTest(t *testing.T, client *fakeClient, members *authority.Members, policy *Policy, report *Report) (*Session, *mapcache.Cache) {
	t.Helper()
	ids, err := mapcache.Open(t.TempDir()+"/ids.cache", false)
	require.NoError(t, err)
	return NewSession(client, ids, members, policy, report, types.SearchConfig{}, &bytes.Buffer{}), ids
}

var testPolicy = &Policy{
	Journals: []Journal{{Name: "Bone"}},
	ArticleTypes: map[string]bool{
		"research-article": true,
		"editorial":        false,
	},
}

func TestClassificationFirstRuleWins(t *testing.T) {
	// The record fails three rules at once: wrong journal, no secondary id,
	// unwanted type. Only the first in order may be counted.
	client := &fakeClient{
		ids: []string{"2001"},
		records: map[string]string{
			"2001": recordXML("Bone Reports", "editorial", "", "2021", "1", "7"),
		},
	}
	report := NewReport("")
	session, _ := newSessionForTest(t, client, emptyMembers(t), testPolicy, report)

	accepted, err := session.Harvest(context.Background(), Journal{Name: "Bone"},
		Window{Start: "2021-01-05", End: "2021-01-10"})
	require.NoError(t, err)
	assert.Empty(t, accepted)

	jc := report.Counts("Bone")
	assert.Equal(t, 1, jc.Matched)
	assert.Equal(t, 1, jc.WrongJournal)
	assert.Equal(t, 0, jc.NoSecondaryID)
	assert.Equal(t, 0, jc.UnwantedType)
	assert.Equal(t, 0, client.resolveCalls, "a wrong-journal record never triggers a remote lookup")
}

func TestClassificationOrderFull(t *testing.T) {
	window := Window{Start: "2021-01-05", End: "2021-01-10"}
	client := &fakeClient{
		ids: []string{"3001", "3002", "3003", "3004", "3005", "3006"},
		records: map[string]string{
			"3001": recordXML("Bone", "research-article", "40001", "2021", "1", "7"),           // accepted
			"3002": recordXML("Annals of Bone", "research-article", "40002", "2021", "1", "7"), // wrong journal
			"3003": recordXML("Bone", "research-article", "", "2021", "1", "7"),                // unresolvable
			"3004": recordXML("Bone", "research-article", "40004", "2021", "1", "7"),           // already known
			"3005": recordXML("Bone", "editorial", "40005", "2021", "1", "7"),                  // unwanted type
			"3006": recordXML("Bone", "research-article", "40006", "2021", "3", "1"),           // outside window
		},
	}
	report := NewReport("")
	session, _ := newSessionForTest(t, client, emptyMembers(t, "40004"), testPolicy, report)

	accepted, err := session.Harvest(context.Background(), Journal{Name: "Bone"}, window)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "3001", accepted[0].SourceID)
	assert.Equal(t, "40001", accepted[0].SecondaryID)
	assert.Equal(t, "2021-01-07", accepted[0].Date)

	jc := report.Counts("Bone")
	assert.Equal(t, 6, jc.Matched)
	assert.Equal(t, 1, jc.WrongJournal)
	assert.Equal(t, 1, jc.NoSecondaryID)
	assert.Equal(t, 1, jc.AlreadyKnown)
	assert.Equal(t, 1, jc.UnwantedType)
	assert.Equal(t, 1, jc.OutsideWindow)
	assert.Equal(t, 0, jc.NewType)
}

func TestNewTypeReportedSeparately(t *testing.T) {
	client := &fakeClient{
		ids: []string{"5001"},
		records: map[string]string{
			"5001": recordXML("Bone", "retraction", "50001", "2021", "1", "7"),
		},
	}
	report := NewReport("")
	session, _ := newSessionForTest(t, client, emptyMembers(t), testPolicy, report)

	_, err := session.Harvest(context.Background(), Journal{Name: "Bone"},
		Window{Start: "2021-01-05", End: "2021-01-10"})
	require.NoError(t, err)

	jc := report.Counts("Bone")
	assert.Equal(t, 1, jc.NewType)
	assert.Equal(t, 0, jc.UnwantedType)
	require.Contains(t, jc.NewTypes, "retraction")
	assert.Equal(t, "5001", jc.NewTypes["retraction"].ExampleID)
}

func TestSecondaryIDResolutionUsesCache(t *testing.T) {
	client := &fakeClient{
		ids: []string{"6001"},
		records: map[string]string{
			"6001": recordXML("Bone", "research-article", "", "2021", "1", "7"),
		},
	}
	report := NewReport("")
	session, ids := newSessionForTest(t, client, emptyMembers(t), testPolicy, report)
	ids.Put("6001", "60001")

	accepted, err := session.Harvest(context.Background(), Journal{Name: "Bone"},
		Window{Start: "2021-01-05", End: "2021-01-10"})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "60001", accepted[0].SecondaryID)
	assert.Equal(t, 0, client.resolveCalls, "a cache hit skips the converter")
}

func TestSecondaryIDResolutionCachesRemoteResult(t *testing.T) {
	client := &fakeClient{
		ids: []string{"7001"},
		records: map[string]string{
			"7001": recordXML("Bone", "research-article", "", "2021", "1", "7"),
		},
		secondary: map[string]string{"7001": "70001"},
	}
	report := NewReport("")
	session, ids := newSessionForTest(t, client, emptyMembers(t), testPolicy, report)

	accepted, err := session.Harvest(context.Background(), Journal{Name: "Bone"},
		Window{Start: "2021-01-05", End: "2021-01-10"})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, 1, client.resolveCalls)

	cached, ok := ids.Get("7001")
	require.True(t, ok)
	assert.Equal(t, "70001", cached)
}

func TestExtractStringDateAndMonthNames(t *testing.T) {
	client := &fakeClient{
		ids: []string{"8001", "8002"},
		records: map[string]string{
			"8001": `<article article-type="research-article"><front>
				<journal-meta><journal-title>Bone</journal-title></journal-meta>
				<article-meta><article-id pub-id-type="pmid">80001</article-id>
				<pub-date><string-date>2021 Jan-Jul</string-date></pub-date></article-meta>
			</front></article>`,
			"8002": recordXML("Bone", "research-article", "80002", "2021", "Jun", ""),
		},
	}
	report := NewReport("")
	session, _ := newSessionForTest(t, client, emptyMembers(t), testPolicy, report)

	accepted, err := session.Harvest(context.Background(), Journal{Name: "Bone"},
		Window{Start: "2021-01-01", End: "2021-12-31"})
	require.NoError(t, err)
	require.Len(t, accepted, 2)
	assert.Equal(t, "2021-07-31", accepted[0].Date, "month range takes the second month's last day")
	assert.Equal(t, "2021-06-30", accepted[1].Date, "month-only takes the month's last day")
}

func TestExtractPrefersElectronicPubDate(t *testing.T) {
	// Records commonly lead with a month-less print or collection date; the
	// electronic date is the one that places the record in its window.
	client := &fakeClient{
		ids: []string{"9001", "9002"},
		records: map[string]string{
			"9001": `<article article-type="research-article"><front>
				<journal-meta><journal-title>Bone</journal-title></journal-meta>
				<article-meta><article-id pub-id-type="pmid">90001</article-id>
				<pub-date pub-type="ppub"><year>2021</year></pub-date>
				<pub-date pub-type="epub"><year>2021</year><month>1</month><day>7</day></pub-date>
				</article-meta>
			</front></article>`,
			"9002": `<article article-type="research-article"><front>
				<journal-meta><journal-title>Bone</journal-title></journal-meta>
				<article-meta><article-id pub-id-type="pmid">90002</article-id>
				<pub-date pub-type="collection"><year>2021</year></pub-date>
				<pub-date date-type="pub"><year>2021</year><month>1</month><day>8</day></pub-date>
				</article-meta>
			</front></article>`,
		},
	}
	report := NewReport("")
	session, _ := newSessionForTest(t, client, emptyMembers(t), testPolicy, report)

	accepted, err := session.Harvest(context.Background(), Journal{Name: "Bone"},
		Window{Start: "2021-01-05", End: "2021-01-10"})
	require.NoError(t, err)
	require.Len(t, accepted, 2)
	assert.Equal(t, "2021-01-07", accepted[0].Date, "epub wins over an earlier month-less ppub")
	assert.Equal(t, "2021-01-08", accepted[1].Date, "date-type pub is the second choice")
	assert.Equal(t, 0, report.Counts("Bone").OutsideWindow)
}

func TestHarvestQueryIncludesWindow(t *testing.T) {
	client := &fakeClient{}
	report := NewReport("")
	session, _ := newSessionForTest(t, client, emptyMembers(t), testPolicy, report)

	_, err := session.Harvest(context.Background(), Journal{Name: "Bone"},
		Window{Start: "2021-01-05", End: "2021-01-10"})
	require.NoError(t, err)
	assert.Equal(t, `"Bone"[Journal] AND ("2021/01/05"[PubDate] : "2021/01/10"[PubDate])`, client.searchQuery)
}
