// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubdate normalizes the publication-date strings repositories
// return into a single sortable YYYY-MM-DD form, and tests normalized dates
// against harvest windows.
package pubdate

import (
	"fmt"
	"strconv"
	"strings"
)

// Sentinel is the normalized form of an absent or unparseable date. It
// compares lexicographically after every real date, so unknown-date records
// land at the end of any sorted listing and outside every bounded window.
const Sentinel = "9999-99-99"

// Kind tags which of the source date shapes a parse recognized.
type Kind int

const (
	// Unknown is an empty or unrecognized date string.
	Unknown Kind = iota

	// Exact is "YYYY Mon D", a fully specified day.
	Exact

	// MonthOnly is "YYYY Mon", a month with no day.
	MonthOnly

	// MonthRange is "YYYY Mon-Mon", an issue spanning two months.
	MonthRange
)

// monthNumbers maps the three-letter month abbreviations the source emits.
var monthNumbers = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

// lastDayOfMonth gives the day used when the source omits one. February is
// kept at 28 in all years; the single-day slack never moves a record across
// a window boundary that matters.
var lastDayOfMonth = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Parsed is the outcome of normalizing one raw date string.
type Parsed struct {
	Kind Kind

	// Normalized is the YYYY-MM-DD form, or Sentinel when Kind is Unknown.
	Normalized string
}

// Normalize parses a raw source date ("2021 Jun 1", "2021 Jun",
// "2021 Jan-Jul") into its normalized form. When the month or day is absent
// the last covered day is substituted, so an issue dated only by month sorts
// with the records published at that month's end. Anything unrecognizable,
// including an empty string, yields the sentinel; a bad date never aborts a
// harvest.
func Normalize(raw string) Parsed {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) < 2 || len(fields) > 3 {
		return Parsed{Kind: Unknown, Normalized: Sentinel}
	}

	year, err := strconv.Atoi(fields[0])
	if err != nil || year < 1000 || year > 9998 {
		return Parsed{Kind: Unknown, Normalized: Sentinel}
	}

	monthField := fields[1]
	if first, second, isRange := strings.Cut(monthField, "-"); isRange {
		// A month range takes the second month's last day; the issue is not
		// complete until the range closes.
		if len(fields) != 2 {
			return Parsed{Kind: Unknown, Normalized: Sentinel}
		}
		if _, ok := monthNumbers[first]; !ok {
			return Parsed{Kind: Unknown, Normalized: Sentinel}
		}
		month, ok := monthNumbers[second]
		if !ok {
			return Parsed{Kind: Unknown, Normalized: Sentinel}
		}
		return Parsed{
			Kind:       MonthRange,
			Normalized: format(year, month, lastDayOfMonth[month]),
		}
	}

	month, ok := monthNumbers[monthField]
	if !ok {
		return Parsed{Kind: Unknown, Normalized: Sentinel}
	}

	if len(fields) == 2 {
		return Parsed{
			Kind:       MonthOnly,
			Normalized: format(year, month, lastDayOfMonth[month]),
		}
	}

	day, err := strconv.Atoi(fields[2])
	if err != nil || day < 1 || day > 31 {
		return Parsed{Kind: Unknown, Normalized: Sentinel}
	}
	return Parsed{Kind: Exact, Normalized: format(year, month, day)}
}

func format(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// InWindow reports whether a normalized date falls inside [start, end],
// inclusive on both ends. Normalized dates compare correctly as strings, so
// the test is plain lexicographic. The sentinel is outside every window with
// a real end date.
func InWindow(normalized, start, end string) bool {
	return normalized >= start && normalized <= end
}
