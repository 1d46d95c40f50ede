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

package identity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/husky/cache"
	"github.com/blinklabs-io/husky/contentstore"
	"github.com/blinklabs-io/husky/registry"
)

// SyncerConfig holds configuration for the identity syncer.
type SyncerConfig struct {
	Logger  *slog.Logger
	Cache   *cache.Cache
	Content *contentstore.Store
}

// Syncer reconciles a user's on-chain registration record with the
// off-chain profile blob it references. The local cache provides a
// provisional overlay for responsiveness and offline/same-device reads;
// every confirmed read supersedes it.
type Syncer struct {
	config SyncerConfig
	logger *slog.Logger
}

// NewSyncer creates an identity syncer.
func NewSyncer(cfg SyncerConfig) *Syncer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Syncer{
		config: cfg,
		logger: logger,
	}
}

// Sync resolves the identity for an address. A nil identity with nil
// error means the address is not registered, which is a normal outcome
// rather than an error. When the local cache holds a previous value it
// is delivered through the optional onProvisional callback before the
// authoritative path completes; the callback is per-call so the caller
// can bind it to the sync pass that requested it.
func (s *Syncer) Sync(
	ctx context.Context,
	contract registry.IdentityContract,
	address string,
	onProvisional func(*Identity),
) (*Identity, error) {
	// Serve a provisional value from cache first for responsiveness
	if row, err := s.config.Cache.GetIdentity(address); err == nil &&
		row != nil {
		if onProvisional != nil {
			onProvisional(identityFromCacheRow(row, TierProvisional))
		}
	}
	registered, err := contract.IsRegistered(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("checking registration: %w", err)
	}
	if !registered {
		// Identities are never hard-deleted, so a cached identity for
		// an address the registry reports as unregistered means the
		// registry read is lagging a recent local write. Serve the
		// overlay until a confirmed read supersedes it.
		if row, err := s.config.Cache.GetIdentity(address); err == nil &&
			row != nil {
			return identityFromCacheRow(row, TierProvisional), nil
		}
		return nil, nil
	}
	record, err := contract.Registration(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("reading registration record: %w", err)
	}
	var profile Profile
	if record.ProfileRef != "" {
		err := s.config.Content.GetJSON(
			ctx,
			contentstore.BlobRef{Hash: record.ProfileRef},
			&profile,
		)
		if err != nil {
			// A missing profile blob degrades to on-chain fields only
			s.logger.Warn(
				"profile blob unavailable, using on-chain fields only",
				"component", "identity",
				"address", address,
				"ref", record.ProfileRef,
				"error", err,
			)
			profile = Profile{}
		}
	}
	merged := merge(record, profile)
	// Persist the confirmed identity, superseding any provisional value
	if err := s.config.Cache.SetIdentity(
		merged.toCacheRow(time.Now().Unix()),
	); err != nil {
		s.logger.Warn(
			"failed to cache identity",
			"component", "identity",
			"address", address,
			"error", err,
		)
	}
	return merged, nil
}

// merge combines on-chain registration fields with off-chain profile
// fields. On-chain fields always win on conflict.
func merge(
	record *registry.RegistrationRecord,
	profile Profile,
) *Identity {
	return &Identity{
		WalletAddress:     cache.NormalizeAddress(record.Address),
		DisplayName:       profile.DisplayName,
		Bio:               profile.Bio,
		AvatarRef:         profile.AvatarRef,
		SocialLinks:       profile.SocialLinks,
		Role:              Role(record.Role),
		Reputation:        record.Reputation,
		StakedAmount:      record.StakedAmount,
		RegisteredAtEpoch: record.RegisteredAtEpoch,
		IsActive:          record.IsActive,
		Tier:              TierConfirmed,
	}
}

// Register writes the off-chain profile blob first, then submits the
// on-chain registration referencing the resulting hash. If the on-chain
// write fails after the blob write succeeded, the blob is orphaned but
// harmless (content-addressed, no dangling pointer) and the caller may
// retry just the on-chain step. A provisional identity is cached before
// the transaction confirms so same-device reads see the new profile
// immediately.
func (s *Syncer) Register(
	ctx context.Context,
	contract registry.IdentityContract,
	address string,
	role Role,
	profile Profile,
) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	ref, err := s.config.Content.PutJSON(ctx, profile)
	if err != nil {
		return fmt.Errorf("writing profile blob: %w", err)
	}
	s.cacheProvisional(address, role, profile)
	tx, err := contract.Register(ctx, address, string(role), ref.Hash)
	if err != nil {
		return fmt.Errorf("submitting registration: %w", err)
	}
	if err := tx.Wait(ctx); err != nil {
		return fmt.Errorf("awaiting registration %s: %w", tx.Ref(), err)
	}
	s.logger.Info(
		"identity registered",
		"component", "identity",
		"address", address,
		"tx", tx.Ref(),
	)
	return nil
}

// UpdateProfile follows the same write-blob-then-write-reference
// ordering as Register.
func (s *Syncer) UpdateProfile(
	ctx context.Context,
	contract registry.IdentityContract,
	address string,
	profile Profile,
) error {
	ref, err := s.config.Content.PutJSON(ctx, profile)
	if err != nil {
		return fmt.Errorf("writing profile blob: %w", err)
	}
	s.cacheProfileOverlay(address, profile)
	tx, err := contract.UpdateProfile(ctx, address, ref.Hash)
	if err != nil {
		return fmt.Errorf("submitting profile update: %w", err)
	}
	if err := tx.Wait(ctx); err != nil {
		return fmt.Errorf(
			"awaiting profile update %s: %w",
			tx.Ref(),
			err,
		)
	}
	return nil
}

// UpgradeRole submits an on-chain role change and awaits confirmation.
func (s *Syncer) UpgradeRole(
	ctx context.Context,
	contract registry.IdentityContract,
	address string,
	role Role,
) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	tx, err := contract.UpgradeRole(ctx, address, string(role))
	if err != nil {
		return fmt.Errorf("submitting role upgrade: %w", err)
	}
	if err := tx.Wait(ctx); err != nil {
		return fmt.Errorf(
			"awaiting role upgrade %s: %w",
			tx.Ref(),
			err,
		)
	}
	return nil
}

// cacheProvisional writes a locally-originated identity overlay for a
// just-submitted registration. It is superseded by the next confirmed
// read.
func (s *Syncer) cacheProvisional(
	address string,
	role Role,
	profile Profile,
) {
	provisional := &Identity{
		WalletAddress: address,
		DisplayName:   profile.DisplayName,
		Bio:           profile.Bio,
		AvatarRef:     profile.AvatarRef,
		SocialLinks:   profile.SocialLinks,
		Role:          role,
		IsActive:      true,
		Tier:          TierProvisional,
	}
	if err := s.config.Cache.SetIdentity(
		provisional.toCacheRow(time.Now().Unix()),
	); err != nil {
		s.logger.Warn(
			"failed to cache provisional identity",
			"component", "identity",
			"address", address,
			"error", err,
		)
	}
}

// cacheProfileOverlay merges updated profile fields over the cached
// identity, keeping existing on-chain fields.
func (s *Syncer) cacheProfileOverlay(address string, profile Profile) {
	row, err := s.config.Cache.GetIdentity(address)
	if err != nil || row == nil {
		s.cacheProvisional(address, RoleBuyer, profile)
		return
	}
	existing := identityFromCacheRow(row, TierProvisional)
	existing.DisplayName = profile.DisplayName
	existing.Bio = profile.Bio
	existing.AvatarRef = profile.AvatarRef
	existing.SocialLinks = profile.SocialLinks
	if err := s.config.Cache.SetIdentity(
		existing.toCacheRow(time.Now().Unix()),
	); err != nil {
		s.logger.Warn(
			"failed to cache profile overlay",
			"component", "identity",
			"address", address,
			"error", err,
		)
	}
}
