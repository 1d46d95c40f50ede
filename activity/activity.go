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

package activity

import (
	"math/big"
)

// EventType categorizes a historical activity event.
type EventType string

const (
	EventTypeMint     EventType = "mint"
	EventTypePurchase EventType = "purchase"
	EventTypeSale     EventType = "sale"
)

// Event is one entry in an account's derived activity feed. Events are
// immutable once derived.
type Event struct {
	Id             string
	Type           EventType
	Actor          string
	Counterparty   string
	ModelId        uint64
	Amount         *big.Int
	TxRef          string
	TimestampEpoch int64
}

// EarningsSummary partitions sale proceeds into calendar buckets.
type EarningsSummary struct {
	ThisMonth *big.Int
	PrevMonth *big.Int
	AllTime   *big.Int
	SaleCount uint64
}

func newEarningsSummary() EarningsSummary {
	return EarningsSummary{
		ThisMonth: new(big.Int),
		PrevMonth: new(big.Int),
		AllTime:   new(big.Int),
	}
}

// Tier is an account's reward tier.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// TierStrategy derives a reward tier from an account's purchase count
// and all-time earnings in wei. The derivation is injectable because
// the current scoring is placeholder policy pending a real incentive
// contract.
type TierStrategy interface {
	Tier(purchaseCount uint64, totalEarningsWei *big.Int) Tier
}

var weiPerEther = new(big.Int).Exp(
	big.NewInt(10),
	big.NewInt(18),
	nil,
)

// ThresholdTierStrategy scores an account as
// purchaseCount*100 + floor(earningsEther*1000) and maps the score
// against fixed thresholds.
type ThresholdTierStrategy struct{}

func (ThresholdTierStrategy) Tier(
	purchaseCount uint64,
	totalEarningsWei *big.Int,
) Tier {
	score := new(big.Int).SetUint64(purchaseCount)
	score.Mul(score, big.NewInt(100))
	if totalEarningsWei != nil && totalEarningsWei.Sign() > 0 {
		earningsPoints := new(big.Int).Mul(
			totalEarningsWei,
			big.NewInt(1000),
		)
		earningsPoints.Div(earningsPoints, weiPerEther)
		score.Add(score, earningsPoints)
	}
	switch {
	case score.Cmp(big.NewInt(1000)) < 0:
		return TierBronze
	case score.Cmp(big.NewInt(5000)) < 0:
		return TierSilver
	case score.Cmp(big.NewInt(10000)) < 0:
		return TierGold
	default:
		return TierPlatinum
	}
}
