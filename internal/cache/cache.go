// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package cache memoizes raw geodata responses by their exact query text and persists them to a
// single zstd compressed file.
package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/wneessen/troncon/internal/logger"
)

// Cache is a concurrency safe query to response store. Responses for identical queries are
// equal, so concurrent writes to the same key are last-write-wins.
type Cache struct {
	path   string
	logger *logger.Logger
	store  *xsync.MapOf[string, []byte]
}

func New(path string, log *logger.Logger) *Cache {
	return &Cache{
		path:   path,
		logger: log,
		store:  xsync.NewMapOf[string, []byte](),
	}
}

func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) Get(query string) ([]byte, bool) {
	return c.store.Load(query)
}

func (c *Cache) Put(query string, response []byte) {
	c.store.Store(query, response)
}

func (c *Cache) Len() int {
	return c.store.Size()
}

// Load reads the cache file into the store and returns the number of loaded entries. A missing
// or unreadable file leaves the cache empty and is only logged.
func (c *Cache) Load() int {
	entries, err := c.read()
	if err != nil {
		c.logger.Warn("cache not loaded, starting with an empty cache", slog.String("file", c.path),
			logger.Err(err))
		return 0
	}
	for query, response := range entries {
		c.store.Store(query, response)
	}
	c.logger.Debug("cache loaded", slog.String("file", c.path), slog.Int("entries", len(entries)))
	return len(entries)
}

func (c *Cache) read() (map[string]json.RawMessage, error) {
	file, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			c.logger.Error("failed to close cache file", logger.Err(err))
		}
	}()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	entries := make(map[string]json.RawMessage)
	if err = json.NewDecoder(dec).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode cache file: %w", err)
	}
	return entries, nil
}

// Flush writes the whole store to the cache file. The file is replaced atomically.
func (c *Cache) Flush() error {
	entries := make(map[string]json.RawMessage, c.store.Size())
	c.store.Range(func(query string, response []byte) bool {
		entries[query] = response
		return true
	})

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err = write(tmp, entries); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary cache file: %w", err)
	}
	if err = os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	c.logger.Debug("cache flushed", slog.String("file", c.path), slog.Int("entries", len(entries)))
	return nil
}

func write(w io.Writer, entries map[string]json.RawMessage) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err = json.NewEncoder(enc).Encode(entries); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to encode cache entries: %w", err)
	}
	if err = enc.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return nil
}
