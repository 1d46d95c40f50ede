// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrKeyNotFound is returned when a blob key is not present in the
// local cache.
var ErrKeyNotFound = errors.New("cache key not found")

// Config holds configuration for the local cache.
type Config struct {
	// DataDir is the on-disk location for the cache. When empty, both
	// stores run in memory, which is useful for testing.
	DataDir      string
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Cache is the process-wide local store: a badger-backed
// content-addressed blob cache and a sqlite-backed identity cache.
// It is an optimization layer only, never authoritative. Concurrent
// writers to the same key are last-write-wins; blob values are
// content-addressed and therefore immutable, and identity rows are
// reconstructed wholesale on each sync, so staleness is the only risk.
type Cache struct {
	logger  *slog.Logger
	blobDb  *badger.DB
	metaDb  *gorm.DB
	metrics *cacheMetrics
}

// New creates a local cache. Uses in-memory stores if DataDir is empty.
func New(cfg Config) (*Cache, error) {
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var blobOpts badger.Options
	var metaDsn string
	if cfg.DataDir == "" {
		blobOpts = badger.DefaultOptions("").WithInMemory(true)
		// cache=shared allows multiple connections to share the same in-memory database
		metaDsn = "file::memory:?cache=shared"
	} else {
		if _, err := os.Stat(cfg.DataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading cache dir: %w", err)
			}
			if err := os.MkdirAll(cfg.DataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("creating cache dir: %w", err)
			}
		}
		blobOpts = badger.DefaultOptions(
			filepath.Join(cfg.DataDir, "blob"),
		)
		metaDsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)",
			filepath.Join(cfg.DataDir, "identity.sqlite"),
		)
	}
	blobOpts = blobOpts.WithLogger(newBadgerLogger(logger))
	blobDb, err := badger.Open(blobOpts)
	if err != nil {
		return nil, fmt.Errorf("opening blob cache: %w", err)
	}
	metaDb, err := gorm.Open(
		sqlite.Open(metaDsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		blobDb.Close()
		return nil, fmt.Errorf("opening identity cache: %w", err)
	}
	c := &Cache{
		logger: logger,
		blobDb: blobDb,
		metaDb: metaDb,
	}
	if cfg.PromRegistry != nil {
		c.initMetrics(cfg.PromRegistry)
	}
	if err := metaDb.AutoMigrate(&IdentityRow{}); err != nil {
		c.Close()
		return nil, fmt.Errorf("migrating identity cache: %w", err)
	}
	return c, nil
}

// GetBlob retrieves a cached blob by key. Returns ErrKeyNotFound when
// the key has never been stored on this device.
func (c *Cache) GetBlob(key string) ([]byte, error) {
	var ret []byte
	err := c.blobDb.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		ret, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			if c.metrics != nil {
				c.metrics.blobMisses.Inc()
			}
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.blobHits.Inc()
	}
	return ret, nil
}

// SetBlob stores a blob under the given key, replacing any existing
// value (last-write-wins).
func (c *Cache) SetBlob(key string, val []byte) error {
	return c.blobDb.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

// HasBlob reports whether the given key is present without copying the
// value.
func (c *Cache) HasBlob(key string) bool {
	err := c.blobDb.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	return err == nil
}

// Close releases both underlying stores.
func (c *Cache) Close() error {
	var errs []error
	if err := c.blobDb.Close(); err != nil {
		errs = append(errs, err)
	}
	if sqlDb, err := c.metaDb.DB(); err == nil {
		if err := sqlDb.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// badgerLogger adapts slog to badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.logger.Error(fmt.Sprintf(format, args...), "component", "cache")
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.logger.Warn(fmt.Sprintf(format, args...), "component", "cache")
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.logger.Debug(fmt.Sprintf(format, args...), "component", "cache")
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.logger.Debug(fmt.Sprintf(format, args...), "component", "cache")
}
