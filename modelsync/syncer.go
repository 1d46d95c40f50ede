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

package modelsync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/blinklabs-io/husky/contentstore"
	"github.com/blinklabs-io/husky/registry"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const defaultSyncConcurrency = 8

// SyncerConfig holds configuration for the model syncer.
type SyncerConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Content      *contentstore.Store
	// Concurrency bounds the in-flight per-index reads within one
	// sync pass. Completion order is irrelevant since each record is
	// keyed by its own id.
	Concurrency int
}

// Syncer enumerates on-chain model records and joins each with its
// off-chain metadata blob and current marketplace listing. The registry
// exposes only a count and indexed reads, so each pass is a sequential
// index scan; this is a known scalability ceiling of the external
// interface rather than a design choice here.
type Syncer struct {
	config  SyncerConfig
	logger  *slog.Logger
	metrics *syncerMetrics
}

// NewSyncer creates a model syncer.
func NewSyncer(cfg SyncerConfig) *Syncer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultSyncConcurrency
	}
	s := &Syncer{
		config: cfg,
		logger: logger,
	}
	if cfg.PromRegistry != nil {
		s.initMetrics(cfg.PromRegistry)
	}
	return s
}

// Sync rebuilds the full model view from source. A record whose
// registry read fails is skipped as structurally broken; a record whose
// metadata blob cannot be resolved is still included, populated from
// on-chain fields alone. A missing listing just means not for sale.
func (s *Syncer) Sync(
	ctx context.Context,
	models registry.ModelContract,
	market registry.MarketContract,
) ([]Model, error) {
	count, err := models.ModelCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading model count: %w", err)
	}
	results := make([]*Model, count)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i := uint64(0); i < count; i++ {
		i := i
		g.Go(func() error {
			entry, err := models.ModelAtIndex(gCtx, i)
			if err != nil {
				// Registry-read failure indicates a structurally
				// broken entry; exclude it rather than degrade it
				s.logger.Warn(
					"skipping unreadable model record",
					"component", "modelsync",
					"index", i,
					"error", err,
				)
				if s.metrics != nil {
					s.metrics.recordsSkipped.Inc()
				}
				return nil
			}
			results[i] = s.buildModel(gCtx, market, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	ret := make([]Model, 0, count)
	for _, m := range results {
		if m != nil {
			ret = append(ret, *m)
		}
	}
	if s.metrics != nil {
		s.metrics.syncPasses.Inc()
		s.metrics.modelCount.Set(float64(len(ret)))
	}
	s.logger.Info(
		"model sync complete",
		"component", "modelsync",
		"total", count,
		"included", len(ret),
	)
	return ret, nil
}

// buildModel joins one on-chain entry with its listing and metadata.
func (s *Syncer) buildModel(
	ctx context.Context,
	market registry.MarketContract,
	entry *registry.ModelEntry,
) *Model {
	m := &Model{
		Id:             entry.Id,
		Owner:          entry.Owner,
		Name:           entry.Name,
		Category:       entry.Category,
		Status:         entry.Status,
		PriceWei:       big.NewInt(0),
		MetadataRef:    entry.MetadataRef,
		Downloads:      entry.Downloads,
		Rating:         deriveRating(entry.RatingSum, entry.RatingCount),
		RatingCount:    entry.RatingCount,
		CreatedAtEpoch: entry.CreatedAtEpoch,
		UpdatedAtEpoch: entry.UpdatedAtEpoch,
	}
	listing, err := market.Listing(ctx, entry.Id)
	if err != nil {
		// Absence of a listing is modeled as nil without error; an
		// actual lookup failure degrades the same way
		s.logger.Warn(
			"listing lookup failed, treating as not for sale",
			"component", "modelsync",
			"model_id", entry.Id,
			"error", err,
		)
		listing = nil
	}
	if listing != nil {
		m.Listing = &Listing{
			BasePrice:            listing.BasePrice,
			CommercialMultiplier: listing.CommercialMultiplier,
			EnterpriseMultiplier: listing.EnterpriseMultiplier,
			Active:               listing.Active,
		}
		if listing.Active && listing.BasePrice != nil {
			m.PriceWei = new(big.Int).Set(listing.BasePrice)
		}
	}
	if entry.MetadataRef != "" {
		var meta Metadata
		err := s.config.Content.GetJSON(
			ctx,
			contentstore.BlobRef{Hash: entry.MetadataRef},
			&meta,
		)
		if err != nil {
			// Metadata-resolution failure never drops the record
			s.logger.Warn(
				"metadata blob unavailable, using on-chain fields only",
				"component", "modelsync",
				"model_id", entry.Id,
				"ref", entry.MetadataRef,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.metadataMisses.Inc()
			}
		} else {
			m.Metadata = meta
			m.HasMetadata = true
		}
	}
	return m
}

// UploadRequest describes a new model registration.
type UploadRequest struct {
	Owner    string
	Name     string
	Category string
	PriceWei *big.Int
	Metadata Metadata
	// Artifact is the optional binary model artifact.
	Artifact []byte
}

// Upload registers a new model: the binary artifact is stored first,
// then the metadata blob referencing it, then the on-chain registration
// referencing the metadata hash. The caller must trigger a full sync
// pass after confirmation rather than splicing the record in, since the
// authoritative id is only known once the transaction confirms.
func (s *Syncer) Upload(
	ctx context.Context,
	models registry.ModelContract,
	req UploadRequest,
) (string, error) {
	meta := req.Metadata
	if len(req.Artifact) > 0 {
		artifactRef, err := s.config.Content.Put(
			ctx,
			req.Artifact,
			"application/octet-stream",
		)
		if err != nil {
			return "", fmt.Errorf("storing artifact: %w", err)
		}
		meta.ArtifactRef = artifactRef.Hash
		meta.SizeBytes = int64(len(req.Artifact))
	}
	metaRef, err := s.config.Content.PutJSON(ctx, meta)
	if err != nil {
		return "", fmt.Errorf("storing metadata: %w", err)
	}
	tx, err := models.Mint(
		ctx,
		req.Owner,
		req.Name,
		req.Category,
		req.PriceWei,
		metaRef.Hash,
	)
	if err != nil {
		return "", fmt.Errorf("submitting registration: %w", err)
	}
	if err := tx.Wait(ctx); err != nil {
		return "", fmt.Errorf(
			"awaiting registration %s: %w",
			tx.Ref(),
			err,
		)
	}
	s.logger.Info(
		"model registered",
		"component", "modelsync",
		"name", req.Name,
		"tx", tx.Ref(),
	)
	return tx.Ref(), nil
}

// Purchase submits a purchase transaction and awaits confirmation.
// Failed financial transactions are never retried automatically.
func (s *Syncer) Purchase(
	ctx context.Context,
	market registry.MarketContract,
	buyer string,
	modelId uint64,
	priceWei *big.Int,
) (string, error) {
	tx, err := market.Purchase(ctx, buyer, modelId, priceWei)
	if err != nil {
		return "", fmt.Errorf("submitting purchase: %w", err)
	}
	if err := tx.Wait(ctx); err != nil {
		return "", fmt.Errorf("awaiting purchase %s: %w", tx.Ref(), err)
	}
	return tx.Ref(), nil
}

// Rate submits a rating transaction and awaits confirmation.
func (s *Syncer) Rate(
	ctx context.Context,
	models registry.ModelContract,
	rater string,
	modelId uint64,
	rating uint8,
) (string, error) {
	if rating < 1 || rating > 5 {
		return "", fmt.Errorf("rating %d out of range [1,5]", rating)
	}
	tx, err := models.Rate(ctx, rater, modelId, rating)
	if err != nil {
		return "", fmt.Errorf("submitting rating: %w", err)
	}
	if err := tx.Wait(ctx); err != nil {
		return "", fmt.Errorf("awaiting rating %s: %w", tx.Ref(), err)
	}
	return tx.Ref(), nil
}
