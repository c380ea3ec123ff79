// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package authority answers "do we already hold this article?" against the
// curation database. The full identifier set is read once at startup into an
// in-memory set, so per-record membership checks during a harvest never
// touch the database.
package authority

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jkotar/pdfharvest/pkg/types"
)

// Members is the bulk-loaded set of secondary identifiers already present in
// the curation database. Read-only after Load; safe for concurrent reads.
type Members struct {
	ids map[string]struct{}
}

// Load opens the curation database and reads every known secondary
// identifier. Unlike the lookup caches, a failure here is fatal: harvesting
// without the authority set would re-download the whole archive.
func Load(cfg types.AuthorityConfig) (*Members, error) {
	db, err := sql.Open("sqlite3", "file:"+cfg.DBPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening authority database: %w", err)
	}
	defer db.Close()

	return loadFrom(db)
}

func loadFrom(db *sql.DB) (*Members, error) {
	rows, err := db.Query(`SELECT secondary_id FROM bib_refs WHERE secondary_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("reading authority identifiers: %w", err)
	}
	defer rows.Close()

	m := &Members{ids: map[string]struct{}{}}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning authority identifier: %w", err)
		}
		if id != "" {
			m.ids[id] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading authority identifiers: %w", err)
	}
	return m, nil
}

// Contains reports whether the secondary identifier is already held.
func (m *Members) Contains(secondaryID string) bool {
	_, ok := m.ids[secondaryID]
	return ok
}

// Len returns the number of known identifiers.
func (m *Members) Len() int {
	return len(m.ids)
}
