// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/jkotar/pdfharvest/internal/authority"
	"github.com/jkotar/pdfharvest/internal/dispatch"
	"github.com/jkotar/pdfharvest/pkg/types"
)

// membersWith loads an authority set seeded with the given identifiers.
func membersWith(t *testing.T, ids []string) *authority.Members {
	t.Helper()
	path := filepath.Join(t.TempDir(), "curation.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE bib_refs (secondary_id TEXT)`)
	require.NoError(t, err)
	for _, id := range ids {
		_, err = db.Exec(`INSERT INTO bib_refs (secondary_id) VALUES (?)`, id)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	members, err := authority.Load(types.AuthorityConfig{DBPath: path})
	require.NoError(t, err)
	return members
}

// fakePool collects submitted jobs and runs a scripted handler for each at
// the barrier. The handler typically creates the staged file a successful
// download command would have produced.
type fakePool struct {
	jobs    []dispatch.Job
	handler func(dispatch.Job) dispatch.Result
	waited  bool
}

func (f *fakePool) Submit(job dispatch.Job) {
	if f.waited {
		panic("submit after wait")
	}
	f.jobs = append(f.jobs, job)
}

func (f *fakePool) Wait() []dispatch.Result {
	f.waited = true
	results := make([]dispatch.Result, 0, len(f.jobs))
	for _, job := range f.jobs {
		if f.handler != nil {
			results = append(results, f.handler(job))
		} else {
			results = append(results, dispatch.Result{Job: job})
		}
	}
	return results
}

// stageDownload simulates a download command writing its staged output file:
// argv is [command, url, outputDir, filename].
func stageDownload(t *testing.T, job dispatch.Job) {
	t.Helper()
	require.Len(t, job.Argv, 4)
	path := filepath.Join(job.Argv[2], job.Argv[3])
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644))
}
