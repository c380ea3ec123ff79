// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pdfharvest pipeline.
package types

// Article is a single record extracted from a repository search result,
// carried through classification and retrieval. One Article belongs to
// exactly one harvest session and is never shared across journals.
type Article struct {
	// SourceID is the repository-internal accession (e.g. a PMC number
	// without the "PMC" prefix). Always present for a parsed result.
	SourceID string `json:"source_id" yaml:"source_id"`

	// SecondaryID is the cross-referenced bibliographic identifier (e.g. a
	// PubMed ID) used against the authority store and to name the downloaded
	// file. Empty until resolution succeeds; resolution failure leaves it
	// empty and excludes the record.
	SecondaryID string `json:"secondary_id,omitempty" yaml:"secondary_id,omitempty"`

	// Journal is the journal title as reported by the source.
	Journal string `json:"journal" yaml:"journal"`

	// ArticleType is the source's article-type label (e.g. "research-article").
	ArticleType string `json:"article_type" yaml:"article_type"`

	// RawDate is the publication date exactly as the source returned it.
	// Empty when the source supplied none.
	RawDate string `json:"raw_date,omitempty" yaml:"raw_date,omitempty"`

	// Date is the normalized YYYY-MM-DD form of RawDate. Records with an
	// absent or unparseable RawDate carry the 9999-99-99 sentinel, which
	// sorts after every real date.
	Date string `json:"date" yaml:"date"`

	// PDFAvailable is set after a retrieval attempt succeeds.
	PDFAvailable bool `json:"pdf_available" yaml:"pdf_available"`
}

// HasSecondaryID reports whether a secondary identifier has been resolved.
func (a *Article) HasSecondaryID() bool {
	return a.SecondaryID != ""
}

// Filename returns the destination PDF filename, derived from the secondary
// identifier when resolved, falling back to the source accession.
func (a *Article) Filename() string {
	if a.SecondaryID != "" {
		return "PMID_" + a.SecondaryID + ".pdf"
	}
	return "PMC" + a.SourceID + ".pdf"
}

// DownloadOutcome records the result of one scheduled download job.
// Immutable once the dispatcher has reported completion.
type DownloadOutcome struct {
	Article *Article

	// Succeeded is true when the job exited zero and produced a usable file.
	Succeeded bool

	// Attempt is 1 plus the failure count carried over from earlier runs'
	// failure reports for this record.
	Attempt int
}
