// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jkotar/pdfharvest/internal/xmltree"
)

// ErrNoRetrievableFile reports that the open-access service holds no
// downloadable rendition for an accession. This is a per-record condition,
// not a transport failure; the record is counted as failed and retried on a
// later run.
var ErrNoRetrievableFile = errors.New("no retrievable file for accession")

// FetchRecord pulls the full article record for one source accession and
// returns its parsed article element.
func (c *Client) FetchRecord(ctx context.Context, sourceID string) (*xmltree.Element, error) {
	params := url.Values{
		"db": {"pmc"},
		"id": {sourceID},
	}

	body, err := c.get(ctx, fetchBase, params)
	if err != nil {
		return nil, fmt.Errorf("fetching record %s: %w", sourceID, err)
	}

	root, err := xmltree.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing record %s: %w", sourceID, err)
	}

	if root.Tag == "article" {
		return root, nil
	}
	if article := root.Find("article"); article != nil {
		return article, nil
	}
	return nil, fmt.Errorf("record %s contains no article element", sourceID)
}

// ResolveSecondaryID converts a source accession to its secondary
// bibliographic identifier via the ID converter service. A record the
// converter does not know yields ("", nil); the caller decides what an
// unresolvable record means.
func (c *Client) ResolveSecondaryID(ctx context.Context, sourceID string) (string, error) {
	params := url.Values{
		"ids":    {"PMC" + sourceID},
		"format": {"xml"},
	}

	body, err := c.get(ctx, idConvBase, params)
	if err != nil {
		return "", fmt.Errorf("converting accession %s: %w", sourceID, err)
	}

	root, err := xmltree.Parse(body)
	if err != nil {
		return "", fmt.Errorf("parsing converter response for %s: %w", sourceID, err)
	}

	record := root.Find("record")
	if record == nil {
		return "", nil
	}
	if record.Attrib["status"] == "error" {
		return "", nil
	}
	return record.Attrib["pmid"], nil
}

// ResolveFileLocation asks the open-access service where the article's
// archive file lives, preferring a direct PDF over the tgz package. Returns
// ErrNoRetrievableFile when the service has nothing for the accession.
func (c *Client) ResolveFileLocation(ctx context.Context, sourceID string) (string, error) {
	params := url.Values{
		"id": {"PMC" + sourceID},
	}

	body, err := c.get(ctx, fileLocationBase, params)
	if err != nil {
		return "", fmt.Errorf("locating file for %s: %w", sourceID, err)
	}

	root, err := xmltree.Parse(body)
	if err != nil {
		return "", fmt.Errorf("parsing file location for %s: %w", sourceID, err)
	}

	if errElem := root.Find("error"); errElem != nil {
		return "", fmt.Errorf("accession %s (%s): %w", sourceID, errElem.Attrib["code"], ErrNoRetrievableFile)
	}

	records := root.Find("records")
	if records == nil {
		return "", fmt.Errorf("accession %s: %w", sourceID, ErrNoRetrievableFile)
	}

	var tgzHref string
	for _, record := range records.FindAll("record") {
		for _, link := range record.FindAll("link") {
			switch link.Attrib["format"] {
			case "pdf":
				if link.Attrib["href"] != "" {
					return link.Attrib["href"], nil
				}
			case "tgz":
				if tgzHref == "" {
					tgzHref = link.Attrib["href"]
				}
			}
		}
	}
	if tgzHref != "" {
		return tgzHref, nil
	}
	return "", fmt.Errorf("accession %s: %w", sourceID, ErrNoRetrievableFile)
}
