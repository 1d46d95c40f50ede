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
	"math/big"

	"github.com/blinklabs-io/husky/registry"
)

// Metadata is the off-chain model metadata blob. ArtifactRef points at
// the model's binary artifact in the content store.
type Metadata struct {
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	Framework   string   `json:"framework,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ArtifactRef string   `json:"artifactRef,omitempty"`
	SizeBytes   int64    `json:"sizeBytes,omitempty"`
}

// Listing is a model's current marketplace listing. A model without a
// listing is simply not for sale; the listing lifecycle is independent
// of the model record.
type Listing struct {
	BasePrice            *big.Int
	CommercialMultiplier uint64
	EnterpriseMultiplier uint64
	Active               bool
}

// Model is the normalized view of an on-chain model record joined with
// its off-chain metadata and current marketplace listing.
type Model struct {
	Id             uint64
	Owner          string
	Name           string
	Category       string
	Status         registry.ModelStatus
	// PriceWei is zero whenever the model has no active listing, even
	// if the on-chain record carries a nonzero price; an inactive
	// listing means not purchasable.
	PriceWei       *big.Int
	MetadataRef    string
	Metadata       Metadata
	// HasMetadata is false when metadata resolution failed and the
	// record was populated from on-chain fields alone.
	HasMetadata    bool
	Listing        *Listing
	Downloads      uint64
	Rating         float64
	RatingCount    uint64
	CreatedAtEpoch int64
	UpdatedAtEpoch int64
}

// ForSale reports whether the model is currently purchasable.
func (m *Model) ForSale() bool {
	return m.Listing != nil && m.Listing.Active
}

// deriveRating computes the average rating, or 0 when unrated.
func deriveRating(ratingSum, ratingCount uint64) float64 {
	if ratingCount == 0 {
		return 0
	}
	return float64(ratingSum) / float64(ratingCount)
}
