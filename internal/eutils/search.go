// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jkotar/pdfharvest/internal/xmltree"
)

// Search runs a paged identifier search and returns every matching source
// accession, in service order. Pages of PageSize are pulled until the
// service-reported total is covered or MaxResults caps the haul.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	pageSize := c.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	var ids []string
	for offset := 0; ; offset += pageSize {
		pageIDs, total, err := c.searchPage(ctx, query, offset, pageSize)
		if err != nil {
			return nil, err
		}
		ids = append(ids, pageIDs...)

		if c.cfg.MaxResults > 0 && len(ids) >= c.cfg.MaxResults {
			return ids[:c.cfg.MaxResults], nil
		}
		if len(pageIDs) == 0 || len(ids) >= total {
			return ids, nil
		}
	}
}

// searchPage fetches one result page and returns its identifiers plus the
// service-reported total match count.
func (c *Client) searchPage(ctx context.Context, query string, offset, pageSize int) ([]string, int, error) {
	params := url.Values{
		"db":       {"pmc"},
		"term":     {query},
		"retstart": {strconv.Itoa(offset)},
		"retmax":   {strconv.Itoa(pageSize)},
	}

	body, err := c.get(ctx, searchBase, params)
	if err != nil {
		return nil, 0, fmt.Errorf("searching %q at offset %d: %w", query, offset, err)
	}

	root, err := xmltree.Parse(body)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing search response at offset %d: %w", offset, err)
	}

	total, err := strconv.Atoi(root.FindText("Count"))
	if err != nil {
		return nil, 0, fmt.Errorf("search response has no result count")
	}

	var ids []string
	if list := root.Find("IdList"); list != nil {
		for _, id := range list.FindAll("Id") {
			if id.Text != "" {
				ids = append(ids, id.Text)
			}
		}
	}
	return ids, total, nil
}
