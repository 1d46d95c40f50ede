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
	"encoding/json"
	"math/big"

	"github.com/blinklabs-io/husky/cache"
)

// Role is a registered identity's marketplace role.
type Role string

const (
	RoleBuyer     Role = "buyer"
	RoleDeveloper Role = "developer"
	RoleValidator Role = "validator"
	RoleAdmin     Role = "admin"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleDeveloper, RoleValidator, RoleAdmin:
		return true
	default:
		return false
	}
}

// Tier marks which trust tier an identity value came from. A
// provisional value is served from the local cache for responsiveness
// while the authoritative chain/blob read is still in flight; a
// confirmed value supersedes it.
type Tier string

const (
	TierProvisional Tier = "provisional"
	TierConfirmed   Tier = "confirmed"
)

// Profile is the off-chain profile blob referenced by an on-chain
// registration record.
type Profile struct {
	DisplayName string            `json:"displayName"`
	Bio         string            `json:"bio,omitempty"`
	AvatarRef   string            `json:"avatarRef,omitempty"`
	SocialLinks map[string]string `json:"socialLinks,omitempty"`
}

// Identity is the merged view of a user's on-chain registration record
// and off-chain profile blob. On-chain fields always win on conflict;
// the registry is authoritative for anything it stores. Identities are
// created once per address and never hard-deleted.
type Identity struct {
	WalletAddress     string
	DisplayName       string
	Bio               string
	AvatarRef         string
	SocialLinks       map[string]string
	Role              Role
	Reputation        uint64
	StakedAmount      *big.Int
	RegisteredAtEpoch int64
	IsActive          bool
	Tier              Tier
}

// toCacheRow converts an identity to its cache representation.
func (i *Identity) toCacheRow(updatedAt int64) *cache.IdentityRow {
	row := &cache.IdentityRow{
		Address:           cache.NormalizeAddress(i.WalletAddress),
		DisplayName:       i.DisplayName,
		Bio:               i.Bio,
		AvatarRef:         i.AvatarRef,
		Role:              string(i.Role),
		Reputation:        i.Reputation,
		RegisteredAtEpoch: i.RegisteredAtEpoch,
		IsActive:          i.IsActive,
		UpdatedAt:         updatedAt,
	}
	if i.StakedAmount != nil {
		row.StakedAmount = i.StakedAmount.String()
	}
	if len(i.SocialLinks) > 0 {
		if links, err := json.Marshal(i.SocialLinks); err == nil {
			row.SocialLinks = string(links)
		}
	}
	return row
}

// identityFromCacheRow converts a cache row back to an identity at the
// given tier.
func identityFromCacheRow(row *cache.IdentityRow, tier Tier) *Identity {
	ret := &Identity{
		WalletAddress:     row.Address,
		DisplayName:       row.DisplayName,
		Bio:               row.Bio,
		AvatarRef:         row.AvatarRef,
		Role:              Role(row.Role),
		Reputation:        row.Reputation,
		RegisteredAtEpoch: row.RegisteredAtEpoch,
		IsActive:          row.IsActive,
		Tier:              tier,
	}
	if row.StakedAmount != "" {
		if amount, ok := new(big.Int).SetString(row.StakedAmount, 10); ok {
			ret.StakedAmount = amount
		}
	}
	if row.SocialLinks != "" {
		var links map[string]string
		if err := json.Unmarshal([]byte(row.SocialLinks), &links); err == nil {
			ret.SocialLinks = links
		}
	}
	return ret
}
