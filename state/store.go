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

package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/blinklabs-io/husky/activity"
	"github.com/blinklabs-io/husky/event"
	"github.com/blinklabs-io/husky/identity"
	"github.com/blinklabs-io/husky/modelsync"
	"github.com/blinklabs-io/husky/registry"
	"github.com/blinklabs-io/husky/wallet"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const defaultSyncTimeout = 60 * time.Second

var errNotConnected = errors.New("wallet not connected")

// StoreConfig holds the collaborators behind the application state
// store.
type StoreConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Bus          *event.EventBus
	Session      *wallet.Session
	Dialer       registry.Dialer
	Identity     *identity.Syncer
	Models       *modelsync.Syncer
	Activity     *activity.Projector
	// SyncTimeout bounds one event-driven full sync pass.
	SyncTimeout time.Duration
}

// Store is the application state facade for the presentation layer. It
// holds four independent state slices, each maintained by a pure
// reducer, and exposes synchronous snapshot reads plus asynchronous
// mutation entry points. Wallet lifecycle events drive the sync
// pipeline: a connected event triggers registry resolution and a full
// sync, a network update re-resolves and re-syncs, and a disconnect
// invalidates all derived slices. Every dispatch of a sync result is
// guarded by the session generation captured when the sync began, so a
// late-arriving result from a previous account or network is discarded
// instead of applied.
type Store struct {
	config  StoreConfig
	logger  *slog.Logger
	metrics *storeMetrics

	mu               sync.Mutex
	walletState      WalletState
	identityState    IdentityState
	modelsState      ModelsState
	activityState    ActivityState
	contracts        *registry.Contracts
	contractsNetwork uint64
}

// NewStore creates the application state store and subscribes it to
// wallet lifecycle events.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = defaultSyncTimeout
	}
	s := &Store{
		config:        cfg,
		logger:        logger,
		walletState:   initialWalletState(),
		identityState: initialIdentityState(),
		modelsState:   initialModelsState(),
		activityState: initialActivityState(),
	}
	if cfg.PromRegistry != nil {
		s.initMetrics(cfg.PromRegistry)
	}
	if cfg.Bus != nil {
		cfg.Bus.SubscribeFunc(
			event.WalletConnectedEventType,
			s.handleWalletConnected,
		)
		cfg.Bus.SubscribeFunc(
			event.WalletDisconnectedEventType,
			s.handleWalletDisconnected,
		)
		cfg.Bus.SubscribeFunc(
			event.NetworkUpdatedEventType,
			s.handleNetworkUpdated,
		)
	}
	return s
}

// GetWalletState returns an immutable snapshot of the wallet slice.
func (s *Store) GetWalletState() WalletState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walletState.copy()
}

// GetIdentity returns an immutable snapshot of the identity slice.
func (s *Store) GetIdentity() IdentityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identityState.copy()
}

// GetModels returns an immutable snapshot of the model catalog slice.
func (s *Store) GetModels() ModelsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelsState.copy()
}

// GetActivity returns an immutable snapshot of the activity slice.
func (s *Store) GetActivity() ActivityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activityState.copy()
}

// dispatch helpers apply an action only while the session generation
// that produced it is still current

func (s *Store) dispatchWallet(gen uint64, action walletAction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.generationCurrent(gen) {
		s.recordDiscard()
		return false
	}
	s.walletState = reduceWallet(s.walletState, action)
	return true
}

func (s *Store) dispatchIdentity(gen uint64, action identityAction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.generationCurrent(gen) {
		s.recordDiscard()
		return false
	}
	s.identityState = reduceIdentity(s.identityState, action)
	return true
}

func (s *Store) dispatchModels(gen uint64, action modelsAction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.generationCurrent(gen) {
		s.recordDiscard()
		return false
	}
	s.modelsState = reduceModels(s.modelsState, action)
	return true
}

func (s *Store) dispatchActivity(gen uint64, action activityAction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.generationCurrent(gen) {
		s.recordDiscard()
		return false
	}
	s.activityState = reduceActivity(s.activityState, action)
	return true
}

func (s *Store) generationCurrent(gen uint64) bool {
	return s.config.Session.Generation() == gen
}

func (s *Store) recordDiscard() {
	if s.metrics != nil {
		s.metrics.staleDiscards.Inc()
	}
}

// contractsFor returns contract clients for a network, dialing on
// first use and after a network change. An unsupported network is a
// structural failure surfaced to the caller.
func (s *Store) contractsFor(
	ctx context.Context,
	networkId uint64,
) (*registry.Contracts, error) {
	s.mu.Lock()
	if s.contracts != nil && s.contractsNetwork == networkId {
		contracts := s.contracts
		s.mu.Unlock()
		return contracts, nil
	}
	s.mu.Unlock()
	addrs, err := registry.Resolve(networkId)
	if err != nil {
		return nil, err
	}
	contracts, err := s.config.Dialer.Dial(ctx, networkId, addrs)
	if err != nil {
		return nil, fmt.Errorf("dialing network %d: %w", networkId, err)
	}
	s.mu.Lock()
	s.contracts = contracts
	s.contractsNetwork = networkId
	s.mu.Unlock()
	networkName, _ := registry.NetworkName(networkId)
	s.logger.Info(
		"registry contracts resolved",
		"component", "state",
		"network", networkName,
	)
	return contracts, nil
}

func (s *Store) invalidateContracts() {
	s.mu.Lock()
	s.contracts = nil
	s.mu.Unlock()
}

// event handlers

func (s *Store) handleWalletConnected(evt event.Event) {
	e, ok := evt.Data.(event.WalletConnectedEvent)
	if !ok {
		return
	}
	s.dispatchWallet(e.Generation, walletConnectSuccess{
		Address:   e.Address,
		NetworkId: e.NetworkId,
		Balance:   e.Balance,
	})
	ctx, cancel := context.WithTimeout(
		context.Background(),
		s.config.SyncTimeout,
	)
	defer cancel()
	s.syncAll(ctx, e.Generation, e.Address, e.NetworkId)
}

func (s *Store) handleWalletDisconnected(evt event.Event) {
	e, ok := evt.Data.(event.WalletDisconnectedEvent)
	if !ok {
		return
	}
	s.invalidateContracts()
	s.dispatchWallet(e.Generation, walletDisconnected{})
	s.dispatchIdentity(e.Generation, identityInvalidate{})
	s.dispatchModels(e.Generation, modelsInvalidate{})
	s.dispatchActivity(e.Generation, activityInvalidate{})
}

func (s *Store) handleNetworkUpdated(evt event.Event) {
	e, ok := evt.Data.(event.NetworkChangedEvent)
	if !ok {
		return
	}
	// Contracts are network-scoped; force a fresh dial before the next
	// sync pass uses them
	s.invalidateContracts()
	s.dispatchWallet(e.Generation, walletNetworkChanged{
		NetworkId: e.NetworkId,
	})
	address := s.config.Session.Address()
	if address == "" {
		return
	}
	ctx, cancel := context.WithTimeout(
		context.Background(),
		s.config.SyncTimeout,
	)
	defer cancel()
	s.syncAll(ctx, e.Generation, address, e.NetworkId)
}

// syncAll runs the full sync pipeline for one session generation:
// identity and models concurrently, then activity, which reuses the
// same resolved registry addresses.
func (s *Store) syncAll(
	ctx context.Context,
	gen uint64,
	address string,
	networkId uint64,
) {
	contracts, err := s.contractsFor(ctx, networkId)
	if err != nil {
		s.logger.Warn(
			"sync aborted",
			"component", "state",
			"network_id", networkId,
			"error", err,
		)
		s.dispatchIdentity(gen, identitySyncFailure{Err: err})
		s.dispatchModels(gen, modelsSyncFailure{Err: err})
		s.dispatchActivity(gen, activitySyncFailure{Err: err})
		return
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.syncIdentity(gCtx, gen, contracts, address)
		return nil
	})
	g.Go(func() error {
		s.syncModels(gCtx, gen, contracts)
		return nil
	})
	_ = g.Wait()
	s.syncActivity(ctx, gen, contracts, address)
	if s.metrics != nil {
		s.metrics.fullSyncs.Inc()
	}
}

func (s *Store) syncIdentity(
	ctx context.Context,
	gen uint64,
	contracts *registry.Contracts,
	address string,
) {
	s.dispatchIdentity(gen, identitySyncStart{})
	// The provisional callback carries the generation captured at sync
	// start, so a cached identity from a superseded pass is discarded
	// just like any other stale result
	ident, err := s.config.Identity.Sync(
		ctx,
		contracts.Identity,
		address,
		func(ident *identity.Identity) {
			s.dispatchIdentity(gen, identityProvisional{Identity: ident})
		},
	)
	if err != nil {
		s.dispatchIdentity(gen, identitySyncFailure{Err: err})
		return
	}
	s.dispatchIdentity(gen, identitySyncSuccess{Identity: ident})
}

func (s *Store) syncModels(
	ctx context.Context,
	gen uint64,
	contracts *registry.Contracts,
) {
	s.dispatchModels(gen, modelsSyncStart{})
	models, err := s.config.Models.Sync(
		ctx,
		contracts.Models,
		contracts.Market,
	)
	if err != nil {
		s.dispatchModels(gen, modelsSyncFailure{Err: err})
		return
	}
	s.dispatchModels(gen, modelsSyncSuccess{
		Models:    models,
		SyncEpoch: time.Now().Unix(),
	})
}

func (s *Store) syncActivity(
	ctx context.Context,
	gen uint64,
	contracts *registry.Contracts,
	address string,
) {
	s.dispatchActivity(gen, activitySyncStart{})
	projection, err := s.config.Activity.Project(
		ctx,
		contracts.Ledger,
		address,
	)
	if err != nil {
		s.dispatchActivity(gen, activitySyncFailure{Err: err})
		return
	}
	s.dispatchActivity(gen, activitySyncSuccess{Projection: projection})
}

// mutation entry points

// Connect establishes a wallet session. The connected event then
// drives registry resolution and the initial full sync.
func (s *Store) Connect(ctx context.Context) Result {
	s.dispatchWallet(
		s.config.Session.Generation(),
		walletConnectStart{},
	)
	if err := s.config.Session.Connect(ctx); err != nil {
		// A reset mid-attempt means the user disconnected; the slice
		// already reflects that, so only a real failure lands as error
		if !errors.Is(err, wallet.ErrSessionReset) {
			s.dispatchWallet(
				s.config.Session.Generation(),
				walletConnectFailure{Err: err},
			)
		}
		return resultErr(err)
	}
	return resultOk("")
}

// Disconnect ends the wallet session and invalidates all derived
// state.
func (s *Store) Disconnect() Result {
	s.config.Session.Disconnect()
	return resultOk("")
}

// activeSession snapshots the connected session, or fails when no
// session is active.
func (s *Store) activeSession() (wallet.SessionSnapshot, error) {
	snap := s.config.Session.Snapshot()
	if snap.State != wallet.StateConnected {
		return snap, errNotConnected
	}
	return snap, nil
}

// RegisterIdentity registers the active account on-chain with a role
// and profile, then re-syncs the identity slice.
func (s *Store) RegisterIdentity(
	ctx context.Context,
	role identity.Role,
	profile identity.Profile,
) Result {
	snap, err := s.activeSession()
	if err != nil {
		return resultErr(err)
	}
	contracts, err := s.contractsFor(ctx, snap.NetworkId)
	if err != nil {
		return resultErr(err)
	}
	err = s.config.Identity.Register(
		ctx,
		contracts.Identity,
		snap.Address,
		role,
		profile,
	)
	if err != nil {
		return resultErr(err)
	}
	s.syncIdentity(ctx, snap.Generation, contracts, snap.Address)
	return resultOk("")
}

// UpdateProfile replaces the active account's profile blob, then
// re-syncs the identity slice.
func (s *Store) UpdateProfile(
	ctx context.Context,
	profile identity.Profile,
) Result {
	snap, err := s.activeSession()
	if err != nil {
		return resultErr(err)
	}
	contracts, err := s.contractsFor(ctx, snap.NetworkId)
	if err != nil {
		return resultErr(err)
	}
	err = s.config.Identity.UpdateProfile(
		ctx,
		contracts.Identity,
		snap.Address,
		profile,
	)
	if err != nil {
		return resultErr(err)
	}
	s.syncIdentity(ctx, snap.Generation, contracts, snap.Address)
	return resultOk("")
}

// UpgradeRole upgrades the active account's role, then re-syncs the
// identity slice.
func (s *Store) UpgradeRole(
	ctx context.Context,
	role identity.Role,
) Result {
	snap, err := s.activeSession()
	if err != nil {
		return resultErr(err)
	}
	contracts, err := s.contractsFor(ctx, snap.NetworkId)
	if err != nil {
		return resultErr(err)
	}
	err = s.config.Identity.UpgradeRole(
		ctx,
		contracts.Identity,
		snap.Address,
		role,
	)
	if err != nil {
		return resultErr(err)
	}
	s.syncIdentity(ctx, snap.Generation, contracts, snap.Address)
	return resultOk("")
}

// UploadRequest describes a model upload from the presentation layer.
// The owner is always the active account.
type UploadRequest struct {
	Name     string
	Category string
	PriceWei *big.Int
	Metadata modelsync.Metadata
	Artifact []byte
}

// UploadModel registers a new model owned by the active account, then
// re-runs a full model sync rather than splicing the record in, since
// the authoritative id is only known after confirmation.
func (s *Store) UploadModel(
	ctx context.Context,
	req UploadRequest,
) Result {
	snap, err := s.activeSession()
	if err != nil {
		return resultErr(err)
	}
	contracts, err := s.contractsFor(ctx, snap.NetworkId)
	if err != nil {
		return resultErr(err)
	}
	txRef, err := s.config.Models.Upload(
		ctx,
		contracts.Models,
		modelsync.UploadRequest{
			Owner:    snap.Address,
			Name:     req.Name,
			Category: req.Category,
			PriceWei: req.PriceWei,
			Metadata: req.Metadata,
			Artifact: req.Artifact,
		},
	)
	if err != nil {
		return resultErr(err)
	}
	s.syncModels(ctx, snap.Generation, contracts)
	return resultOk(txRef)
}

// PurchaseModel purchases a listed model at its current listing price,
// then re-syncs the model catalog, activity feed, and wallet balance.
// A failed purchase is surfaced verbatim and never retried.
func (s *Store) PurchaseModel(
	ctx context.Context,
	modelId uint64,
) Result {
	snap, err := s.activeSession()
	if err != nil {
		return resultErr(err)
	}
	s.mu.Lock()
	var target *modelsync.Model
	for i := range s.modelsState.Models {
		if s.modelsState.Models[i].Id == modelId {
			m := copyModel(s.modelsState.Models[i])
			target = &m
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return resultErr(fmt.Errorf("unknown model %d", modelId))
	}
	if !target.ForSale() {
		return resultErr(fmt.Errorf("model %d is not for sale", modelId))
	}
	contracts, err := s.contractsFor(ctx, snap.NetworkId)
	if err != nil {
		return resultErr(err)
	}
	txRef, err := s.config.Models.Purchase(
		ctx,
		contracts.Market,
		snap.Address,
		modelId,
		target.PriceWei,
	)
	if err != nil {
		return resultErr(err)
	}
	s.syncModels(ctx, snap.Generation, contracts)
	s.syncActivity(ctx, snap.Generation, contracts, snap.Address)
	if err := s.config.Session.RefreshBalance(ctx); err == nil {
		refreshed := s.config.Session.Snapshot()
		s.dispatchWallet(refreshed.Generation, walletBalanceUpdated{
			Balance: refreshed.Balance,
		})
	}
	return resultOk(txRef)
}

// RateModel submits a 1-5 rating for a model, then re-syncs the model
// catalog.
func (s *Store) RateModel(
	ctx context.Context,
	modelId uint64,
	rating uint8,
) Result {
	snap, err := s.activeSession()
	if err != nil {
		return resultErr(err)
	}
	contracts, err := s.contractsFor(ctx, snap.NetworkId)
	if err != nil {
		return resultErr(err)
	}
	txRef, err := s.config.Models.Rate(
		ctx,
		contracts.Models,
		snap.Address,
		modelId,
		rating,
	)
	if err != nil {
		return resultErr(err)
	}
	s.syncModels(ctx, snap.Generation, contracts)
	return resultOk(txRef)
}

// Refresh re-runs the full sync pipeline for the current session.
func (s *Store) Refresh(ctx context.Context) Result {
	snap, err := s.activeSession()
	if err != nil {
		return resultErr(err)
	}
	s.syncAll(ctx, snap.Generation, snap.Address, snap.NetworkId)
	return resultOk("")
}
