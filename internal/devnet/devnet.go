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

// Package devnet provides an in-memory wallet provider and chain
// transport for development mode. Transactions confirm instantly and
// all reads are served from process memory, so the full sync pipeline
// can run without any external chain.
package devnet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/blinklabs-io/husky/registry"
	"github.com/blinklabs-io/husky/wallet"
)

// DevnetNetworkId is the chain id of the local development network.
const DevnetNetworkId = uint64(31337)

// DefaultAccount is the pre-funded development account.
const DefaultAccount = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

// Provider is a wallet provider with a single pre-authorized account.
type Provider struct {
	mu      sync.Mutex
	account string
	balance *big.Int
}

// NewProvider creates a development wallet provider.
func NewProvider() *Provider {
	balance := new(big.Int).Mul(
		big.NewInt(10000),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
	)
	return &Provider{
		account: DefaultAccount,
		balance: balance,
	}
}

func (p *Provider) RequestAccounts(
	ctx context.Context,
) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return []string{p.account}, nil
}

func (p *Provider) Accounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return []string{p.account}, nil
}

func (p *Provider) Balance(
	ctx context.Context,
	address string,
) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.balance), nil
}

func (p *Provider) NetworkId(ctx context.Context) (uint64, error) {
	return DevnetNetworkId, nil
}

var _ wallet.Provider = (*Provider)(nil)

// instantTx is a transaction handle that is already confirmed.
type instantTx struct {
	ref string
}

func (t *instantTx) Ref() string                    { return t.ref }
func (t *instantTx) Wait(ctx context.Context) error { return ctx.Err() }

// chain is the shared in-memory chain state behind all contract
// surfaces.
type chain struct {
	mu         sync.Mutex
	nextTx     int
	blockNum   uint64
	identities map[string]*registry.RegistrationRecord
	models     []*registry.ModelEntry
	listings   map[uint64]*registry.ListingEntry
	events     []ledgerEvent
	blockTimes map[uint64]int64
}

type ledgerEvent struct {
	kind  string
	event registry.LogEvent
}

func (c *chain) submit() (*instantTx, uint64) {
	c.nextTx++
	c.blockNum++
	c.blockTimes[c.blockNum] = time.Now().Unix()
	return &instantTx{ref: fmt.Sprintf("0xdev%06d", c.nextTx)}, c.blockNum
}

// Dialer returns the in-memory contract set for the development
// network.
type Dialer struct {
	chain *chain
}

// NewDialer creates a dialer backed by a freshly seeded in-memory
// chain.
func NewDialer() *Dialer {
	c := &chain{
		identities: make(map[string]*registry.RegistrationRecord),
		listings:   make(map[uint64]*registry.ListingEntry),
		blockTimes: make(map[uint64]int64),
	}
	seedChain(c)
	return &Dialer{chain: c}
}

func (d *Dialer) Dial(
	ctx context.Context,
	networkId uint64,
	addrs registry.Addresses,
) (*registry.Contracts, error) {
	if networkId != DevnetNetworkId {
		return nil, fmt.Errorf(
			"devnet transport only serves network %d, got %d",
			DevnetNetworkId,
			networkId,
		)
	}
	return &registry.Contracts{
		Identity: &identityContract{chain: d.chain},
		Models:   &modelContract{chain: d.chain},
		Market:   &marketContract{chain: d.chain},
		Ledger:   &ledgerLog{chain: d.chain},
	}, nil
}

var _ registry.Dialer = (*Dialer)(nil)

// seedChain populates a small model catalog so a fresh dev session has
// something to browse.
func seedChain(c *chain) {
	now := time.Now().Unix()
	seedModels := []struct {
		name     string
		category string
		price    int64
	}{
		{"sentiment-distilbert", "nlp", 2500},
		{"yolo-traffic", "vision", 4000},
		{"wav2vec-asr", "audio", 0},
	}
	for i, seed := range seedModels {
		c.blockNum++
		c.blockTimes[c.blockNum] = now - int64(len(seedModels)-i)*3600
		entry := &registry.ModelEntry{
			Id:             uint64(i),
			Owner:          DefaultAccount,
			Name:           seed.name,
			Category:       seed.category,
			Status:         registry.ModelStatusValidated,
			PriceWei:       big.NewInt(seed.price),
			CreatedAtEpoch: c.blockTimes[c.blockNum],
			UpdatedAtEpoch: c.blockTimes[c.blockNum],
		}
		c.models = append(c.models, entry)
		if seed.price > 0 {
			c.listings[entry.Id] = &registry.ListingEntry{
				ModelId:              entry.Id,
				BasePrice:            big.NewInt(seed.price),
				CommercialMultiplier: 2,
				EnterpriseMultiplier: 5,
				Active:               true,
			}
		}
		c.events = append(c.events, ledgerEvent{
			kind: "mint",
			event: registry.LogEvent{
				TxRef:       fmt.Sprintf("0xseed%02d", i),
				BlockNumber: c.blockNum,
				Actor:       DefaultAccount,
				ModelId:     entry.Id,
			},
		})
	}
}

type identityContract struct {
	chain *chain
}

func (i *identityContract) IsRegistered(
	ctx context.Context,
	address string,
) (bool, error) {
	i.chain.mu.Lock()
	defer i.chain.mu.Unlock()
	_, ok := i.chain.identities[strings.ToLower(address)]
	return ok, nil
}

func (i *identityContract) Registration(
	ctx context.Context,
	address string,
) (*registry.RegistrationRecord, error) {
	i.chain.mu.Lock()
	defer i.chain.mu.Unlock()
	record, ok := i.chain.identities[strings.ToLower(address)]
	if !ok {
		return nil, errors.New("not registered")
	}
	ret := *record
	return &ret, nil
}

func (i *identityContract) Register(
	ctx context.Context,
	address string,
	role string,
	profileRef string,
) (registry.TxHandle, error) {
	i.chain.mu.Lock()
	defer i.chain.mu.Unlock()
	key := strings.ToLower(address)
	if _, ok := i.chain.identities[key]; ok {
		return nil, errors.New("already registered")
	}
	tx, _ := i.chain.submit()
	i.chain.identities[key] = &registry.RegistrationRecord{
		Address:           address,
		Role:              role,
		StakedAmount:      big.NewInt(0),
		RegisteredAtEpoch: time.Now().Unix(),
		IsActive:          true,
		ProfileRef:        profileRef,
	}
	return tx, nil
}

func (i *identityContract) UpdateProfile(
	ctx context.Context,
	address string,
	profileRef string,
) (registry.TxHandle, error) {
	i.chain.mu.Lock()
	defer i.chain.mu.Unlock()
	record, ok := i.chain.identities[strings.ToLower(address)]
	if !ok {
		return nil, errors.New("not registered")
	}
	tx, _ := i.chain.submit()
	record.ProfileRef = profileRef
	return tx, nil
}

func (i *identityContract) UpgradeRole(
	ctx context.Context,
	address string,
	role string,
) (registry.TxHandle, error) {
	i.chain.mu.Lock()
	defer i.chain.mu.Unlock()
	record, ok := i.chain.identities[strings.ToLower(address)]
	if !ok {
		return nil, errors.New("not registered")
	}
	tx, _ := i.chain.submit()
	record.Role = role
	return tx, nil
}

type modelContract struct {
	chain *chain
}

func (m *modelContract) ModelCount(ctx context.Context) (uint64, error) {
	m.chain.mu.Lock()
	defer m.chain.mu.Unlock()
	return uint64(len(m.chain.models)), nil
}

func (m *modelContract) ModelAtIndex(
	ctx context.Context,
	index uint64,
) (*registry.ModelEntry, error) {
	m.chain.mu.Lock()
	defer m.chain.mu.Unlock()
	if index >= uint64(len(m.chain.models)) {
		return nil, fmt.Errorf("model index %d out of range", index)
	}
	ret := *m.chain.models[index]
	return &ret, nil
}

func (m *modelContract) Mint(
	ctx context.Context,
	owner string,
	name string,
	category string,
	priceWei *big.Int,
	metadataRef string,
) (registry.TxHandle, error) {
	m.chain.mu.Lock()
	defer m.chain.mu.Unlock()
	tx, blockNum := m.chain.submit()
	now := time.Now().Unix()
	entry := &registry.ModelEntry{
		Id:             uint64(len(m.chain.models)),
		Owner:          owner,
		Name:           name,
		Category:       category,
		Status:         registry.ModelStatusPending,
		PriceWei:       big.NewInt(0),
		MetadataRef:    metadataRef,
		CreatedAtEpoch: now,
		UpdatedAtEpoch: now,
	}
	if priceWei != nil {
		entry.PriceWei = new(big.Int).Set(priceWei)
		m.chain.listings[entry.Id] = &registry.ListingEntry{
			ModelId:   entry.Id,
			BasePrice: new(big.Int).Set(priceWei),
			Active:    true,
		}
	}
	m.chain.models = append(m.chain.models, entry)
	m.chain.events = append(m.chain.events, ledgerEvent{
		kind: "mint",
		event: registry.LogEvent{
			TxRef:       tx.ref,
			BlockNumber: blockNum,
			Actor:       owner,
			ModelId:     entry.Id,
		},
	})
	return tx, nil
}

func (m *modelContract) Rate(
	ctx context.Context,
	rater string,
	modelId uint64,
	rating uint8,
) (registry.TxHandle, error) {
	m.chain.mu.Lock()
	defer m.chain.mu.Unlock()
	if modelId >= uint64(len(m.chain.models)) {
		return nil, fmt.Errorf("unknown model %d", modelId)
	}
	tx, _ := m.chain.submit()
	entry := m.chain.models[modelId]
	entry.RatingSum += uint64(rating)
	entry.RatingCount++
	entry.UpdatedAtEpoch = time.Now().Unix()
	return tx, nil
}

type marketContract struct {
	chain *chain
}

func (m *marketContract) Listing(
	ctx context.Context,
	modelId uint64,
) (*registry.ListingEntry, error) {
	m.chain.mu.Lock()
	defer m.chain.mu.Unlock()
	listing, ok := m.chain.listings[modelId]
	if !ok {
		return nil, nil
	}
	ret := *listing
	return &ret, nil
}

func (m *marketContract) Purchase(
	ctx context.Context,
	buyer string,
	modelId uint64,
	priceWei *big.Int,
) (registry.TxHandle, error) {
	m.chain.mu.Lock()
	defer m.chain.mu.Unlock()
	listing, ok := m.chain.listings[modelId]
	if !ok || !listing.Active {
		return nil, fmt.Errorf("model %d is not listed", modelId)
	}
	if priceWei == nil || priceWei.Cmp(listing.BasePrice) < 0 {
		return nil, errors.New("insufficient payment")
	}
	tx, blockNum := m.chain.submit()
	seller := m.chain.models[modelId].Owner
	m.chain.models[modelId].Downloads++
	amount := new(big.Int).Set(priceWei)
	m.chain.events = append(m.chain.events,
		ledgerEvent{
			kind: "purchase",
			event: registry.LogEvent{
				TxRef:        tx.ref,
				BlockNumber:  blockNum,
				Actor:        buyer,
				Counterparty: seller,
				ModelId:      modelId,
				Amount:       amount,
			},
		},
		ledgerEvent{
			kind: "sale",
			event: registry.LogEvent{
				TxRef:        tx.ref,
				BlockNumber:  blockNum,
				Actor:        seller,
				Counterparty: buyer,
				ModelId:      modelId,
				Amount:       amount,
			},
		},
	)
	return tx, nil
}

type ledgerLog struct {
	chain *chain
}

func (l *ledgerLog) query(kind, actor string) []registry.LogEvent {
	l.chain.mu.Lock()
	defer l.chain.mu.Unlock()
	var ret []registry.LogEvent
	for _, entry := range l.chain.events {
		if entry.kind != kind {
			continue
		}
		if !strings.EqualFold(entry.event.Actor, actor) {
			continue
		}
		ret = append(ret, entry.event)
	}
	return ret
}

func (l *ledgerLog) MintEvents(
	ctx context.Context,
	originator string,
) ([]registry.LogEvent, error) {
	return l.query("mint", originator), nil
}

func (l *ledgerLog) PurchaseEvents(
	ctx context.Context,
	buyer string,
) ([]registry.LogEvent, error) {
	return l.query("purchase", buyer), nil
}

func (l *ledgerLog) SaleEvents(
	ctx context.Context,
	seller string,
) ([]registry.LogEvent, error) {
	return l.query("sale", seller), nil
}

func (l *ledgerLog) BlockTime(
	ctx context.Context,
	blockNumber uint64,
) (int64, error) {
	l.chain.mu.Lock()
	defer l.chain.mu.Unlock()
	timestamp, ok := l.chain.blockTimes[blockNumber]
	if !ok {
		return 0, fmt.Errorf("unknown block %d", blockNumber)
	}
	return timestamp, nil
}
