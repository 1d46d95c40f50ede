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
	"strings"

	"gorm.io/gorm"
)

// IdentityRow is the cached merged identity for a wallet address. It
// backs the provisional tier of identity sync and offline/same-device
// reads. Addresses are lowercase-normalized before use as keys.
type IdentityRow struct {
	ID                uint   `gorm:"primarykey"`
	Address           string `gorm:"uniqueIndex"`
	DisplayName       string
	Bio               string
	AvatarRef         string
	Role              string
	Reputation        uint64
	StakedAmount      string
	RegisteredAtEpoch int64
	IsActive          bool
	SocialLinks       string
	UpdatedAt         int64
}

func (IdentityRow) TableName() string {
	return "identity"
}

// NormalizeAddress lowercases a wallet address for use as a cache key.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// GetIdentity gets a cached identity row by address. Returns nil with
// no error when the address has never been cached.
func (c *Cache) GetIdentity(address string) (*IdentityRow, error) {
	ret := &IdentityRow{}
	result := c.metaDb.
		Where("address = ?", NormalizeAddress(address)).
		First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetIdentity saves an identity row, replacing any existing row for the
// same address (last-write-wins).
func (c *Cache) SetIdentity(row *IdentityRow) error {
	row.Address = NormalizeAddress(row.Address)
	// Find or create row for this address (identities are unique per address)
	existing := &IdentityRow{}
	result := c.metaDb.FirstOrCreate(
		existing,
		IdentityRow{Address: row.Address},
	)
	if result.Error != nil {
		return fmt.Errorf(
			"failed to find or create identity row: %w",
			result.Error,
		)
	}
	updates := map[string]any{
		"display_name":        row.DisplayName,
		"bio":                 row.Bio,
		"avatar_ref":          row.AvatarRef,
		"role":                row.Role,
		"reputation":          row.Reputation,
		"staked_amount":       row.StakedAmount,
		"registered_at_epoch": row.RegisteredAtEpoch,
		"is_active":           row.IsActive,
		"social_links":        row.SocialLinks,
		"updated_at":          row.UpdatedAt,
	}
	if err := c.metaDb.Model(existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update identity row: %w", err)
	}
	return nil
}
