// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eutils talks to the PubMed Central E-utilities and open-access
// services: paged identifier search, full-record fetch, secondary-identifier
// conversion, and retrievable-file location. All requests go through a
// single client whose governor keeps us under the service rate cap.
package eutils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sethgrid/pester"

	"github.com/jkotar/pdfharvest/pkg/types"
)

// Service endpoints. Declared as vars so tests can substitute an httptest
// server.
var (
	searchBase       = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	fetchBase        = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
	idConvBase       = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"
	fileLocationBase = "https://www.ncbi.nlm.nih.gov/pmc/utils/oa/oa.fcgi"
)

// Doer issues one HTTP request. Satisfied by *pester.Client and *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a rate-governed E-utilities client. Safe for concurrent use;
// concurrent callers serialize on the governor.
type Client struct {
	http Doer
	cfg  types.SearchConfig

	mu          sync.Mutex
	nextAllowed time.Time
}

// NewClient builds a client with retrying transport per cfg.
func NewClient(cfg types.SearchConfig) *Client {
	p := pester.New()
	p.Timeout = cfg.Timeout
	p.MaxRetries = cfg.MaxRetries
	p.Backoff = pester.ExponentialBackoff
	p.SetRetryOnHTTP429(true)
	return &Client{http: p, cfg: cfg}
}

// wait blocks until the governor allows the next request. Each admitted
// request pushes the next slot MinRequestSpacing into the future, so the
// steady-state request rate never exceeds 1/MinRequestSpacing regardless of
// how many goroutines call in.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	delay := c.nextAllowed.Sub(now)
	if delay < 0 {
		delay = 0
	}
	c.nextAllowed = now.Add(delay + c.cfg.MinRequestSpacing)
	c.mu.Unlock()

	if delay == 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// get performs one governed GET and returns the response body.
func (c *Client) get(ctx context.Context, base string, params url.Values) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	reqURL := base
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("service returned HTTP %d for %s", resp.StatusCode, base)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(body), nil
}
