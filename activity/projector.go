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
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sort"
	"time"

	"github.com/blinklabs-io/husky/registry"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// ProjectorConfig holds configuration for the activity projector.
type ProjectorConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// Tiers derives the reward tier. Defaults to ThresholdTierStrategy.
	Tiers TierStrategy
	// Now supplies the current time for calendar-month bucketing.
	// Defaults to time.Now.
	Now func() time.Time
}

// Projector replays historical ledger events for an account into a
// derived activity feed, earnings summary, and reward tier.
type Projector struct {
	config  ProjectorConfig
	logger  *slog.Logger
	metrics *projectorMetrics
}

// Projection is the derived activity view for one account.
type Projection struct {
	Events     []Event
	Earnings   EarningsSummary
	RewardTier Tier
}

// NewProjector creates an activity projector.
func NewProjector(cfg ProjectorConfig) *Projector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Tiers == nil {
		cfg.Tiers = ThresholdTierStrategy{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	p := &Projector{
		config: cfg,
		logger: logger,
	}
	if cfg.PromRegistry != nil {
		p.initMetrics(cfg.PromRegistry)
	}
	return p
}

// Project builds the activity projection for an address. The three log
// queries run concurrently and a failed query degrades to an empty list
// for its category, so the projection is best-effort rather than
// guaranteed complete. The only returned error is context cancellation.
func (p *Projector) Project(
	ctx context.Context,
	ledger registry.LedgerLog,
	address string,
) (*Projection, error) {
	var mintEvents, purchaseEvents, saleEvents []registry.LogEvent
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mintEvents = p.queryLog(
			gCtx,
			"mint",
			func() ([]registry.LogEvent, error) {
				return ledger.MintEvents(gCtx, address)
			},
		)
		return nil
	})
	g.Go(func() error {
		purchaseEvents = p.queryLog(
			gCtx,
			"purchase",
			func() ([]registry.LogEvent, error) {
				return ledger.PurchaseEvents(gCtx, address)
			},
		)
		return nil
	})
	g.Go(func() error {
		saleEvents = p.queryLog(
			gCtx,
			"sale",
			func() ([]registry.LogEvent, error) {
				return ledger.SaleEvents(gCtx, address)
			},
		)
		return nil
	})
	// Worker funcs never return an error, so Wait only synchronizes
	_ = g.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	blockTimes := make(map[uint64]int64)
	events := make(
		[]Event,
		0,
		len(mintEvents)+len(purchaseEvents)+len(saleEvents),
	)
	events = append(
		events,
		p.mapEvents(ctx, ledger, EventTypeMint, mintEvents, blockTimes)...,
	)
	events = append(
		events,
		p.mapEvents(
			ctx,
			ledger,
			EventTypePurchase,
			purchaseEvents,
			blockTimes,
		)...,
	)
	events = append(
		events,
		p.mapEvents(ctx, ledger, EventTypeSale, saleEvents, blockTimes)...,
	)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimestampEpoch > events[j].TimestampEpoch
	})
	earnings := p.summarizeEarnings(events)
	ret := &Projection{
		Events:   events,
		Earnings: earnings,
		RewardTier: p.config.Tiers.Tier(
			uint64(len(purchaseEvents)),
			earnings.AllTime,
		),
	}
	if p.metrics != nil {
		p.metrics.projections.Inc()
	}
	p.logger.Debug(
		"activity projection complete",
		"component", "activity",
		"address", address,
		"events", len(events),
		"tier", string(ret.RewardTier),
	)
	return ret, nil
}

// queryLog runs one category query, degrading failure to an empty list.
func (p *Projector) queryLog(
	ctx context.Context,
	category string,
	query func() ([]registry.LogEvent, error),
) []registry.LogEvent {
	events, err := query()
	if err != nil {
		p.logger.Warn(
			"ledger query failed, degrading to empty",
			"component", "activity",
			"category", category,
			"error", err,
		)
		if p.metrics != nil {
			p.metrics.queryFailures.WithLabelValues(category).Inc()
		}
		return nil
	}
	return events
}

// mapEvents converts raw log events to activity events, resolving each
// block number to a timestamp once per block. An unresolvable block
// leaves the timestamp at zero rather than dropping the event.
func (p *Projector) mapEvents(
	ctx context.Context,
	ledger registry.LedgerLog,
	eventType EventType,
	raw []registry.LogEvent,
	blockTimes map[uint64]int64,
) []Event {
	ret := make([]Event, 0, len(raw))
	for i, logEvent := range raw {
		timestamp, ok := blockTimes[logEvent.BlockNumber]
		if !ok {
			var err error
			timestamp, err = ledger.BlockTime(ctx, logEvent.BlockNumber)
			if err != nil {
				p.logger.Warn(
					"block time lookup failed",
					"component", "activity",
					"block", logEvent.BlockNumber,
					"error", err,
				)
				timestamp = 0
			}
			blockTimes[logEvent.BlockNumber] = timestamp
		}
		amount := new(big.Int)
		if logEvent.Amount != nil {
			amount.Set(logEvent.Amount)
		}
		ret = append(ret, Event{
			Id:             fmt.Sprintf("%s-%s-%d", eventType, logEvent.TxRef, i),
			Type:           eventType,
			Actor:          logEvent.Actor,
			Counterparty:   logEvent.Counterparty,
			ModelId:        logEvent.ModelId,
			Amount:         amount,
			TxRef:          logEvent.TxRef,
			TimestampEpoch: timestamp,
		})
	}
	return ret
}

// summarizeEarnings buckets sale proceeds by calendar month.
func (p *Projector) summarizeEarnings(events []Event) EarningsSummary {
	summary := newEarningsSummary()
	now := p.config.Now().UTC()
	thisMonthStart := time.Date(
		now.Year(),
		now.Month(),
		1,
		0, 0, 0, 0,
		time.UTC,
	)
	prevMonthStart := thisMonthStart.AddDate(0, -1, 0)
	for _, event := range events {
		if event.Type != EventTypeSale {
			continue
		}
		summary.SaleCount++
		summary.AllTime.Add(summary.AllTime, event.Amount)
		eventTime := time.Unix(event.TimestampEpoch, 0).UTC()
		switch {
		case !eventTime.Before(thisMonthStart):
			summary.ThisMonth.Add(summary.ThisMonth, event.Amount)
		case !eventTime.Before(prevMonthStart):
			summary.PrevMonth.Add(summary.PrevMonth, event.Amount)
		}
	}
	return summary
}
