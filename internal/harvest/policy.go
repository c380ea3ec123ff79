// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives one run of the pipeline: per-journal search,
// record classification against the inclusion policy, download scheduling,
// and run reporting.
package harvest

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Window is an inclusive publication-date range in normalized YYYY-MM-DD
// form. Comparisons are lexicographic, which the fixed-width zero-padded
// format makes equivalent to date order.
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Journal is one harvested journal and its per-journal policy knobs.
type Journal struct {
	// Name is the exact journal title. Search results whose reported title
	// differs are rejected as false positives.
	Name string `yaml:"name"`

	// EmbargoMonths delays availability of this journal's content; the
	// effective search window start is shifted back accordingly. Zero means
	// no embargo.
	EmbargoMonths int `yaml:"embargo_months,omitempty"`
}

// Policy is the on-disk inclusion policy: which journals to harvest and
// which article types to keep.
type Policy struct {
	Journals []Journal `yaml:"journals"`

	// ArticleTypes is the type verdict table: true means wanted, false means
	// known and explicitly unwanted. A type absent from the table has never
	// been reviewed; such records are rejected and reported as new types so
	// an operator can extend the table.
	ArticleTypes map[string]bool `yaml:"article_types"`
}

// TypeVerdict classifies one article-type label against the policy table.
type TypeVerdict int

const (
	TypeWanted TypeVerdict = iota
	TypeUnwanted
	TypeNew
)

// Verdict returns the policy's decision for an article-type label.
func (p *Policy) Verdict(articleType string) TypeVerdict {
	wanted, known := p.ArticleTypes[articleType]
	switch {
	case !known:
		return TypeNew
	case wanted:
		return TypeWanted
	default:
		return TypeUnwanted
	}
}

// ReadPolicy loads a policy definition from a YAML file.
func ReadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	if len(p.Journals) == 0 {
		return nil, fmt.Errorf("policy file %s lists no journals", path)
	}
	return &p, nil
}

const dateFmt = "2006-01-02"

// EffectiveWindow applies a journal's embargo to the requested window: the
// start is shifted back by the embargo delay so content that became
// retrievable late is still picked up. Twelve- and six-month embargoes use
// calendar-year figures; anything else is months of thirty days.
func EffectiveWindow(w Window, embargoMonths int) Window {
	if embargoMonths <= 0 {
		return w
	}
	start, err := time.Parse(dateFmt, w.Start)
	if err != nil {
		return w
	}

	var days int
	switch embargoMonths {
	case 12:
		days = 365
	case 6:
		days = 183
	default:
		days = embargoMonths * 30
	}
	w.Start = start.AddDate(0, 0, -days).Format(dateFmt)
	return w
}

// openAccessClause restricts results to records with freely retrievable
// full text.
const openAccessClause = `"open access"[filter]`

// BuildQuery assembles the search term for one journal and window:
// journal restriction, inclusive publication-date range, and the configured
// open-access and topic clauses.
func BuildQuery(journal Journal, w Window, openAccessOnly bool, topicClause string) string {
	clauses := []string{
		fmt.Sprintf(`"%s"[Journal]`, journal.Name),
		fmt.Sprintf(`("%s"[PubDate] : "%s"[PubDate])`,
			strings.ReplaceAll(w.Start, "-", "/"),
			strings.ReplaceAll(w.End, "-", "/")),
	}
	if openAccessOnly {
		clauses = append(clauses, openAccessClause)
	}
	if topicClause != "" {
		clauses = append(clauses, topicClause)
	}
	return strings.Join(clauses, " AND ")
}
