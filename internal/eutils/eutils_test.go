// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkotar/pdfharvest/pkg/types"
)

func testClient(cfg types.SearchConfig) *Client {
	return &Client{http: http.DefaultClient, cfg: cfg}
}

func TestSearchPagination(t *testing.T) {
	// Five matches served two per page.
	all := []string{"101", "102", "103", "104", "105"}
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset, _ := strconv.Atoi(r.URL.Query().Get("retstart"))
		retmax, _ := strconv.Atoi(r.URL.Query().Get("retmax"))
		assert.Equal(t, "pmc", r.URL.Query().Get("db"))

		end := offset + retmax
		if end > len(all) {
			end = len(all)
		}
		ids := ""
		for _, id := range all[offset:end] {
			ids += "<Id>" + id + "</Id>"
		}
		fmt.Fprintf(w, `<eSearchResult><Count>%d</Count><IdList>%s</IdList></eSearchResult>`, len(all), ids)
	}))
	defer server.Close()

	orig := searchBase
	searchBase = server.URL
	defer func() { searchBase = orig }()

	c := testClient(types.SearchConfig{PageSize: 2})
	ids, err := c.Search(context.Background(), `"Bone"[Journal]`)
	require.NoError(t, err)
	assert.Equal(t, all, ids)
	assert.Equal(t, 3, requests)
}

func TestSearchMaxResultsCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<eSearchResult><Count>100</Count><IdList><Id>1</Id><Id>2</Id><Id>3</Id></IdList></eSearchResult>`)
	}))
	defer server.Close()

	orig := searchBase
	searchBase = server.URL
	defer func() { searchBase = orig }()

	c := testClient(types.SearchConfig{PageSize: 3, MaxResults: 2})
	ids, err := c.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestSearchNoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<eSearchResult><Count>0</Count><IdList></IdList></eSearchResult>`)
	}))
	defer server.Close()

	orig := searchBase
	searchBase = server.URL
	defer func() { searchBase = orig }()

	c := testClient(types.SearchConfig{PageSize: 10})
	ids, err := c.Search(context.Background(), "nothing matches this")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFetchRecordUnwrapsArticleSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "8624356", r.URL.Query().Get("id"))
		fmt.Fprint(w, `<?xml version="1.0"?>
			<pmc-articleset>
				<article article-type="research-article">
					<front><journal-meta><journal-title-group><journal-title>Bone</journal-title></journal-title-group></journal-meta></front>
				</article>
			</pmc-articleset>`)
	}))
	defer server.Close()

	orig := fetchBase
	fetchBase = server.URL
	defer func() { fetchBase = orig }()

	c := testClient(types.SearchConfig{})
	article, err := c.FetchRecord(context.Background(), "8624356")
	require.NoError(t, err)
	assert.Equal(t, "article", article.Tag)
	assert.Equal(t, "research-article", article.Attrib["article-type"])
}

func TestResolveSecondaryID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("ids") {
		case "PMC8624356":
			fmt.Fprint(w, `<pmcids status="ok"><record requested-id="PMC8624356" pmcid="PMC8624356" pmid="34662340"/></pmcids>`)
		default:
			fmt.Fprint(w, `<pmcids status="ok"><record requested-id="PMC0" status="error"><errmsg>invalid article id</errmsg></record></pmcids>`)
		}
	}))
	defer server.Close()

	orig := idConvBase
	idConvBase = server.URL
	defer func() { idConvBase = orig }()

	c := testClient(types.SearchConfig{})

	pmid, err := c.ResolveSecondaryID(context.Background(), "8624356")
	require.NoError(t, err)
	assert.Equal(t, "34662340", pmid)

	pmid, err = c.ResolveSecondaryID(context.Background(), "0")
	require.NoError(t, err)
	assert.Empty(t, pmid)
}

func TestResolveFileLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "PMC1":
			fmt.Fprint(w, `<OA><records retmax="1"><record id="PMC1">
				<link format="tgz" href="ftp://host/pub/pmc1.tar.gz"/>
				<link format="pdf" href="ftp://host/pub/pmc1.pdf"/>
			</record></records></OA>`)
		case "PMC2":
			fmt.Fprint(w, `<OA><records retmax="1"><record id="PMC2">
				<link format="tgz" href="ftp://host/pub/pmc2.tar.gz"/>
			</record></records></OA>`)
		default:
			fmt.Fprint(w, `<OA><error code="idDoesNotExist">identifier is not available</error></OA>`)
		}
	}))
	defer server.Close()

	orig := fileLocationBase
	fileLocationBase = server.URL
	defer func() { fileLocationBase = orig }()

	c := testClient(types.SearchConfig{})

	href, err := c.ResolveFileLocation(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "ftp://host/pub/pmc1.pdf", href, "pdf wins over tgz")

	href, err = c.ResolveFileLocation(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "ftp://host/pub/pmc2.tar.gz", href)

	_, err = c.ResolveFileLocation(context.Background(), "3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRetrievableFile))
}

func TestGovernorSpacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<eSearchResult><Count>0</Count><IdList></IdList></eSearchResult>`)
	}))
	defer server.Close()

	orig := searchBase
	searchBase = server.URL
	defer func() { searchBase = orig }()

	c := testClient(types.SearchConfig{PageSize: 10, MinRequestSpacing: 50 * time.Millisecond})

	start := time.Now()
	for range 3 {
		_, err := c.Search(context.Background(), "q")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond,
		"third request must wait out two spacing intervals")
}

func TestGovernorHonorsContextCancellation(t *testing.T) {
	c := testClient(types.SearchConfig{MinRequestSpacing: time.Hour})
	require.NoError(t, c.wait(context.Background())) // first request goes through

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServiceErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	orig := searchBase
	searchBase = server.URL
	defer func() { searchBase = orig }()

	c := testClient(types.SearchConfig{})
	_, err := c.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}
