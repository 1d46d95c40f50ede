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
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/blinklabs-io/husky/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mints        []registry.LogEvent
	purchases    []registry.LogEvent
	sales        []registry.LogEvent
	mintErr      error
	purchaseErr  error
	saleErr      error
	blockTimes   map[uint64]int64
	blockTimeErr error
}

func (f *fakeLedger) MintEvents(
	ctx context.Context,
	originator string,
) ([]registry.LogEvent, error) {
	return f.mints, f.mintErr
}

func (f *fakeLedger) PurchaseEvents(
	ctx context.Context,
	buyer string,
) ([]registry.LogEvent, error) {
	return f.purchases, f.purchaseErr
}

func (f *fakeLedger) SaleEvents(
	ctx context.Context,
	seller string,
) ([]registry.LogEvent, error) {
	return f.sales, f.saleErr
}

func (f *fakeLedger) BlockTime(
	ctx context.Context,
	blockNumber uint64,
) (int64, error) {
	if f.blockTimeErr != nil {
		return 0, f.blockTimeErr
	}
	return f.blockTimes[blockNumber], nil
}

func fixedNow() time.Time {
	// 2026-08-15 12:00:00 UTC
	return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
}

func epochOf(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix()
}

func TestProjectSortedDescending(t *testing.T) {
	ledger := &fakeLedger{
		mints: []registry.LogEvent{
			{TxRef: "0xm1", BlockNumber: 10, Actor: "0xABC"},
			{TxRef: "0xm2", BlockNumber: 40, Actor: "0xABC"},
		},
		purchases: []registry.LogEvent{
			{TxRef: "0xp1", BlockNumber: 30, Actor: "0xABC", Amount: big.NewInt(5)},
		},
		sales: []registry.LogEvent{
			{TxRef: "0xs1", BlockNumber: 20, Actor: "0xABC", Amount: big.NewInt(7)},
			{TxRef: "0xs2", BlockNumber: 50, Actor: "0xABC", Amount: big.NewInt(9)},
		},
		blockTimes: map[uint64]int64{
			10: 1000,
			20: 2000,
			30: 3000,
			40: 4000,
			50: 5000,
		},
	}
	projector := NewProjector(ProjectorConfig{Now: fixedNow})
	got, err := projector.Project(context.Background(), ledger, "0xABC")
	require.NoError(t, err)
	require.Len(t, got.Events, 5)
	for i := 1; i < len(got.Events); i++ {
		assert.GreaterOrEqual(
			t,
			got.Events[i-1].TimestampEpoch,
			got.Events[i].TimestampEpoch,
		)
	}
	assert.Equal(t, "0xs2", got.Events[0].TxRef)
	assert.Equal(t, "0xm1", got.Events[4].TxRef)
}

func TestProjectCategoryFailureDegrades(t *testing.T) {
	ledger := &fakeLedger{
		mints: []registry.LogEvent{
			{TxRef: "0xm1", BlockNumber: 10},
		},
		purchases: []registry.LogEvent{
			{TxRef: "0xp1", BlockNumber: 20},
		},
		saleErr:    errors.New("log query timeout"),
		blockTimes: map[uint64]int64{10: 1000, 20: 2000},
	}
	projector := NewProjector(ProjectorConfig{Now: fixedNow})
	got, err := projector.Project(context.Background(), ledger, "0xABC")
	require.NoError(t, err)
	// The failed category degrades to empty; the others still project
	require.Len(t, got.Events, 2)
	assert.Equal(t, uint64(0), got.Earnings.SaleCount)
	assert.Equal(t, int64(0), got.Earnings.AllTime.Int64())
}

func TestProjectBlockTimeFailureKeepsEvent(t *testing.T) {
	ledger := &fakeLedger{
		mints: []registry.LogEvent{
			{TxRef: "0xm1", BlockNumber: 10},
		},
		blockTimeErr: errors.New("rpc unavailable"),
	}
	projector := NewProjector(ProjectorConfig{Now: fixedNow})
	got, err := projector.Project(context.Background(), ledger, "0xABC")
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, int64(0), got.Events[0].TimestampEpoch)
}

func TestEarningsCalendarBuckets(t *testing.T) {
	ledger := &fakeLedger{
		sales: []registry.LogEvent{
			{TxRef: "0xs1", BlockNumber: 1, Amount: big.NewInt(100)},
			{TxRef: "0xs2", BlockNumber: 2, Amount: big.NewInt(200)},
			{TxRef: "0xs3", BlockNumber: 3, Amount: big.NewInt(400)},
		},
		blockTimes: map[uint64]int64{
			1: epochOf(2026, time.August, 3),
			2: epochOf(2026, time.July, 20),
			3: epochOf(2025, time.December, 1),
		},
	}
	projector := NewProjector(ProjectorConfig{Now: fixedNow})
	got, err := projector.Project(context.Background(), ledger, "0xABC")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Earnings.SaleCount)
	assert.Equal(t, int64(100), got.Earnings.ThisMonth.Int64())
	assert.Equal(t, int64(200), got.Earnings.PrevMonth.Int64())
	assert.Equal(t, int64(700), got.Earnings.AllTime.Int64())
}

func TestProjectAmountsCopied(t *testing.T) {
	amount := big.NewInt(123)
	ledger := &fakeLedger{
		sales: []registry.LogEvent{
			{TxRef: "0xs1", BlockNumber: 1, Amount: amount},
		},
		blockTimes: map[uint64]int64{1: 1000},
	}
	projector := NewProjector(ProjectorConfig{Now: fixedNow})
	got, err := projector.Project(context.Background(), ledger, "0xABC")
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	// Mutating the source must not leak into the projection
	amount.SetInt64(999)
	assert.Equal(t, int64(123), got.Events[0].Amount.Int64())
}
