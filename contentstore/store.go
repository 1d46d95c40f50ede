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

package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/blinklabs-io/husky/cache"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultRequestTimeout = 10 * time.Second

	// maxBlobSize bounds a single gateway response body
	maxBlobSize = 512 << 20
)

// ErrNotFound is returned by Get when every gateway has failed and the
// reference was never stored on this device.
var ErrNotFound = errors.New("content not found")

// ErrNoGateways is returned by New when no gateway URLs are configured.
var ErrNoGateways = errors.New("no gateways configured")

// Config holds configuration for the content store.
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// Cache is the device-local blob cache consulted after total
	// gateway failure and populated on successful put/get.
	Cache *cache.Cache
	// Gateways is the fixed, ordered list of independent gateway base
	// URLs. Each gateway gets exactly one attempt per Get, in order.
	Gateways []string
	// PinningURL is the pinning provider's write endpoint.
	PinningURL string
	// PinningToken is the bearer token for the pinning provider.
	PinningToken string
	// RequestTimeout applies to each individual gateway or provider
	// request.
	RequestTimeout time.Duration
}

// Store uploads and downloads content-addressed blobs. Writes go
// through a pinning provider with a local fallback so callers are never
// blocked on write. Reads walk the gateway list in strict priority
// order; any gateway returning data for a given ref is equally
// trustworthy since the hash defines equality, so first success wins.
type Store struct {
	config     Config
	logger     *slog.Logger
	httpClient *http.Client
	metrics    *storeMetrics
}

// pinResponse is the pinning provider's response to a successful
// upload.
type pinResponse struct {
	Hash string `json:"hash"`
}

// New creates a content store from the given config.
func New(cfg Config) (*Store, error) {
	if len(cfg.Gateways) == 0 {
		return nil, ErrNoGateways
	}
	if cfg.Cache == nil {
		return nil, errors.New("no local cache provided")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	s := &Store{
		config: cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
	if cfg.PromRegistry != nil {
		s.initMetrics(cfg.PromRegistry)
	}
	return s, nil
}

// Put submits a blob to the pinning provider and returns its
// content-addressed reference. On provider failure it falls back to a
// device-scoped local reference so the caller is never blocked on
// write. The blob is cached locally under the returned reference in
// either case.
func (s *Store) Put(
	ctx context.Context,
	data []byte,
	mimeHint string,
) (BlobRef, error) {
	ref, err := s.pin(ctx, data, mimeHint)
	if err != nil {
		if ctx.Err() != nil {
			return BlobRef{}, ctx.Err()
		}
		s.logger.Warn(
			"pinning provider failed, using local fallback",
			"component", "contentstore",
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.putFallbacks.Inc()
		}
		ref = newLocalRef(data, mimeHint)
	}
	if err := s.config.Cache.SetBlob(ref.Hash, data); err != nil {
		// Cache population is best-effort; the reference is still
		// usable
		s.logger.Warn(
			"failed to cache blob",
			"component", "contentstore",
			"ref", ref.Hash,
			"error", err,
		)
	}
	return ref, nil
}

// PutJSON marshals a value and stores it via Put.
func (s *Store) PutJSON(ctx context.Context, v any) (BlobRef, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return BlobRef{}, fmt.Errorf("marshaling blob: %w", err)
	}
	return s.Put(ctx, data, "application/json")
}

func (s *Store) pin(
	ctx context.Context,
	data []byte,
	mimeHint string,
) (BlobRef, error) {
	if s.config.PinningURL == "" {
		return BlobRef{}, errors.New("no pinning provider configured")
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.config.PinningURL,
		bytes.NewReader(data),
	)
	if err != nil {
		return BlobRef{}, err
	}
	if mimeHint != "" {
		req.Header.Set("Content-Type", mimeHint)
	}
	if s.config.PinningToken != "" {
		req.Header.Set(
			"Authorization",
			"Bearer "+s.config.PinningToken,
		)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return BlobRef{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return BlobRef{}, fmt.Errorf(
			"pinning provider returned status %d",
			resp.StatusCode,
		)
	}
	var pinned pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return BlobRef{}, fmt.Errorf(
			"decoding pinning response: %w",
			err,
		)
	}
	if pinned.Hash == "" {
		return BlobRef{}, errors.New("pinning response missing hash")
	}
	return BlobRef{Hash: pinned.Hash, MimeHint: mimeHint}, nil
}

// Get resolves a reference through the ordered gateway list,
// short-circuiting on the first success. Each gateway gets exactly one
// attempt; the ordered list is the retry strategy. Only after every
// gateway has failed is the local cache consulted, and ErrNotFound is
// returned only when that also misses.
func (s *Store) Get(ctx context.Context, ref BlobRef) ([]byte, error) {
	if ref.IsZero() {
		return nil, errors.New("empty blob reference")
	}
	// Local references never left this device, so the gateways cannot
	// have them
	if ref.IsLocal() {
		return s.getCached(ref)
	}
	var lastErr error
	for i, gateway := range s.config.Gateways {
		data, err := s.fetch(ctx, gateway, ref.Hash)
		if err == nil {
			if s.metrics != nil {
				s.metrics.gatewayAttempts.WithLabelValues(
					gateway,
					"success",
				).Inc()
			}
			if cacheErr := s.config.Cache.SetBlob(ref.Hash, data); cacheErr != nil {
				s.logger.Warn(
					"failed to cache blob",
					"component", "contentstore",
					"ref", ref.Hash,
					"error", cacheErr,
				)
			}
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if s.metrics != nil {
			s.metrics.gatewayAttempts.WithLabelValues(
				gateway,
				"failure",
			).Inc()
		}
		s.logger.Warn(
			"gateway failed, trying next",
			"component", "contentstore",
			"gateway", i+1,
			"total", len(s.config.Gateways),
			"ref", ref.Hash,
			"error", err,
		)
	}
	data, err := s.getCached(ref)
	if err == nil {
		return data, nil
	}
	return nil, fmt.Errorf(
		"%w: all %d gateways failed: %w",
		ErrNotFound,
		len(s.config.Gateways),
		lastErr,
	)
}

// GetJSON resolves a reference and unmarshals it into v.
func (s *Store) GetJSON(ctx context.Context, ref BlobRef, v any) error {
	data, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling blob %s: %w", ref.Hash, err)
	}
	return nil
}

func (s *Store) getCached(ref BlobRef) ([]byte, error) {
	data, err := s.config.Cache.GetBlob(ref.Hash)
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.Hash)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.cacheFallbacks.Inc()
	}
	return data, nil
}

func (s *Store) fetch(
	ctx context.Context,
	gateway string,
	hash string,
) ([]byte, error) {
	blobUrl := strings.TrimRight(gateway, "/") + "/" + hash
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		blobUrl,
		nil,
	)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"gateway returned status %d",
			resp.StatusCode,
		)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize))
	if err != nil {
		return nil, err
	}
	return data, nil
}
