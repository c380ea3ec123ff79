// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch runs external download commands through a bounded pool of
// workers. Jobs are submitted one at a time and executed by whichever worker
// is free; Wait closes submission and blocks until every accepted job has
// finished, so a caller observes all results after the barrier.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
)

// Job is one external command invocation: argv[0] is the program, the rest
// its arguments. Tag travels through untouched so callers can correlate
// results with their own records.
type Job struct {
	Tag  string
	Argv []string
}

// Result is the outcome of one finished job.
type Result struct {
	Job      Job
	ExitCode int
	Stdout   string
	Stderr   string

	// Err is set when the command could not run at all (not found, context
	// canceled). A command that ran and exited non-zero has Err nil and a
	// non-zero ExitCode.
	Err error
}

// Failed reports whether the job must be counted a failure: it could not
// run, exited non-zero, or produced output the matcher rejects.
func (r Result) Failed(rejectOutput func(string) bool) bool {
	if r.Err != nil || r.ExitCode != 0 {
		return true
	}
	return rejectOutput != nil && rejectOutput(r.Stdout)
}

// executor abstracts command execution for testing.
type executor interface {
	Run(ctx context.Context, argv []string) (exitCode int, stdout, stderr string, err error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) Run(ctx context.Context, argv []string) (int, string, string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, stdout.String(), stderr.String(), nil
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), stdout.String(), stderr.String(), nil
	default:
		return -1, stdout.String(), stderr.String(), err
	}
}

// Pool runs jobs on a fixed number of workers.
type Pool struct {
	jobs    chan Job
	results []Result

	mu   sync.Mutex
	wg   sync.WaitGroup
	once sync.Once
}

// NewPool starts workers goroutines draining the job channel. workers
// values below 1 are raised to 1.
func NewPool(ctx context.Context, workers int) *Pool {
	return newPool(ctx, workers, &osExecutor{})
}

func newPool(ctx context.Context, workers int, exec executor) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{jobs: make(chan Job)}
	p.wg.Add(workers)
	for range workers {
		go p.worker(ctx, exec)
	}
	return p
}

func (p *Pool) worker(ctx context.Context, exec executor) {
	defer p.wg.Done()
	for job := range p.jobs {
		code, stdout, stderr, err := exec.Run(ctx, job.Argv)
		p.mu.Lock()
		p.results = append(p.results, Result{
			Job:      job,
			ExitCode: code,
			Stdout:   stdout,
			Stderr:   stderr,
			Err:      err,
		})
		p.mu.Unlock()
	}
}

// Submit hands a job to the pool, blocking while all workers are busy and
// the handoff buffer is full. Must not be called after Wait.
func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// Wait closes submission and blocks until every accepted job has finished,
// then returns all results. Result order is completion order, not submission
// order. Wait is idempotent.
func (p *Pool) Wait() []Result {
	p.once.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}
