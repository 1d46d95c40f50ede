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

package registry

import (
	"context"
	"math/big"
)

// TxHandle represents a submitted on-chain transaction. Wait blocks
// until the transaction is confirmed or the context is cancelled.
// Syncs that depend on the write must not re-run until Wait returns.
type TxHandle interface {
	Ref() string
	Wait(ctx context.Context) error
}

// RegistrationRecord is the raw on-chain identity registration entry.
// ProfileRef points at the off-chain profile blob in the content store.
type RegistrationRecord struct {
	Address           string
	Role              string
	Reputation        uint64
	StakedAmount      *big.Int
	RegisteredAtEpoch int64
	IsActive          bool
	ProfileRef        string
}

// ModelEntry is the raw on-chain model registry entry at a given index.
// MetadataRef points at the off-chain metadata blob.
type ModelEntry struct {
	Id             uint64
	Owner          string
	Name           string
	Category       string
	Status         ModelStatus
	PriceWei       *big.Int
	MetadataRef    string
	Downloads      uint64
	RatingSum      uint64
	RatingCount    uint64
	CreatedAtEpoch int64
	UpdatedAtEpoch int64
}

// ListingEntry is the marketplace listing for a model. A model without
// a listing is simply not for sale.
type ListingEntry struct {
	ModelId              uint64
	BasePrice            *big.Int
	CommercialMultiplier uint64
	EnterpriseMultiplier uint64
	Active               bool
}

// LogEvent is a raw historical event record from a contract event log.
// BlockNumber must be resolved to a timestamp via LedgerLog.BlockTime.
type LogEvent struct {
	TxRef        string
	BlockNumber  uint64
	Actor        string
	Counterparty string
	ModelId      uint64
	Amount       *big.Int
}

// IdentityContract is the read/write surface of the on-chain identity
// registry. Implementations wrap an opaque chain transport.
type IdentityContract interface {
	IsRegistered(ctx context.Context, address string) (bool, error)
	Registration(
		ctx context.Context,
		address string,
	) (*RegistrationRecord, error)
	Register(
		ctx context.Context,
		address string,
		role string,
		profileRef string,
	) (TxHandle, error)
	UpdateProfile(
		ctx context.Context,
		address string,
		profileRef string,
	) (TxHandle, error)
	UpgradeRole(
		ctx context.Context,
		address string,
		role string,
	) (TxHandle, error)
}

// ModelContract is the read/write surface of the on-chain model
// registry. Records are reachable only via a count and indexed reads.
type ModelContract interface {
	ModelCount(ctx context.Context) (uint64, error)
	ModelAtIndex(ctx context.Context, index uint64) (*ModelEntry, error)
	Mint(
		ctx context.Context,
		owner string,
		name string,
		category string,
		priceWei *big.Int,
		metadataRef string,
	) (TxHandle, error)
	Rate(
		ctx context.Context,
		rater string,
		modelId uint64,
		rating uint8,
	) (TxHandle, error)
}

// MarketContract is the read/write surface of the marketplace listing
// contract. A listing has a lifecycle independent of its model record.
type MarketContract interface {
	// Listing returns nil with no error when the model has no listing.
	Listing(ctx context.Context, modelId uint64) (*ListingEntry, error)
	Purchase(
		ctx context.Context,
		buyer string,
		modelId uint64,
		priceWei *big.Int,
	) (TxHandle, error)
}

// LedgerLog provides retrospective queries over immutable historical
// events, scoped to a single address per query.
type LedgerLog interface {
	MintEvents(ctx context.Context, originator string) ([]LogEvent, error)
	PurchaseEvents(ctx context.Context, buyer string) ([]LogEvent, error)
	SaleEvents(ctx context.Context, seller string) ([]LogEvent, error)
	BlockTime(ctx context.Context, blockNumber uint64) (int64, error)
}

// Contracts bundles the per-network contract clients produced by a
// Dialer for one set of resolved addresses.
type Contracts struct {
	Identity IdentityContract
	Models   ModelContract
	Market   MarketContract
	Ledger   LedgerLog
}

// Dialer constructs contract clients for a set of resolved registry
// addresses. The chain transport behind the returned clients is opaque
// to this package.
type Dialer interface {
	Dial(
		ctx context.Context,
		networkId uint64,
		addrs Addresses,
	) (*Contracts, error)
}
