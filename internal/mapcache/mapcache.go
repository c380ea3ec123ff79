// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mapcache implements a durable string-to-string cache with manual
// load/save, used to remember expensive remote lookups between runs.
//
// File format: the first line is a delimiter string chosen so that it is not
// a substring of any stored key or value; every following line is one
// key/value pair joined by that delimiter. The delimiter choice makes
// re-splitting on load unambiguous regardless of cache contents.
package mapcache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// delimiterAlphabet is the ordered set of candidate delimiter characters.
const delimiterAlphabet = " ,.;:-_=+[]{}|!@#$%^&*()0123456789abcdefghijklmnoprstuvwxyz"

// Cache is a persistent string-to-string map. Not safe for concurrent use;
// a run owns its caches and mutates them from a single goroutine.
type Cache struct {
	path     string
	contents map[string]string
}

// DefaultDir returns the XDG cache directory for pdfharvest map files,
// creating it if needed.
func DefaultDir() (string, error) {
	dir := filepath.Join(xdg.CacheHome, "pdfharvest")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}
	return dir, nil
}

// Open loads the cache backed by the file at path. A missing file yields an
// empty cache, as does a file that does not parse as delimiter-line plus
// pairs (corruption trades a re-lookup cost for availability, never an
// abort). When replace is true any existing file content is ignored.
func Open(path string, replace bool) (*Cache, error) {
	c := &Cache{path: path, contents: map[string]string{}}
	if replace {
		return c, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return c, nil // empty file
	}
	delimiter := scanner.Text()
	if delimiter == "" {
		return c, nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, delimiter)
		if !ok {
			continue
		}
		c.contents[key] = value
	}
	return c, nil
}

// Get returns the value for key and whether it was present.
func (c *Cache) Get(key string) (string, bool) {
	v, ok := c.contents[key]
	return v, ok
}

// Put stores value under key. The pair becomes durable at the next Save.
func (c *Cache) Put(key, value string) {
	c.contents[key] = value
}

// Contains reports whether key is present.
func (c *Cache) Contains(key string) bool {
	_, ok := c.contents[key]
	return ok
}

// Size returns the number of cached pairs.
func (c *Cache) Size() int {
	return len(c.contents)
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}

// Save writes the cache to its backing file in the delimiter-line format.
func (c *Cache) Save() error {
	var b strings.Builder
	delimiter := c.findDelimiter()
	b.WriteString(delimiter)
	b.WriteByte('\n')
	for key, value := range c.contents {
		b.WriteString(key)
		b.WriteString(delimiter)
		b.WriteString(value)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(c.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("saving cache %s: %w", c.path, err)
	}
	return nil
}

// findDelimiter picks a minimal-length string absent from every stored key
// and value. It grows a candidate one character at a time over the alphabet;
// if a whole round fails, the last alphabet character is appended and the
// round restarts at the longer length. Termination is guaranteed because the
// stored strings are finite.
func (c *Cache) findDelimiter() string {
	strs := make([]string, 0, 2*len(c.contents))
	for key, value := range c.contents {
		strs = append(strs, key, value)
	}

	delim := ""
	for {
		matched := false
		for _, ch := range delimiterAlphabet {
			trial := delim + string(ch)
			matched = false
			for _, s := range strs {
				if strings.Contains(s, trial) {
					matched = true
					break
				}
			}
			if !matched {
				return trial
			}
		}
		if matched {
			delim += string(delimiterAlphabet[len(delimiterAlphabet)-1])
		}
	}
}
