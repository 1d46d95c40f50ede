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

package wallet

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/blinklabs-io/husky/event"

	"github.com/google/uuid"
)

// SessionState is the wallet session lifecycle state.
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
	StateError        SessionState = "error"
)

const notificationTimeout = 30 * time.Second

var (
	// ErrConnectInProgress is returned by Connect while a previous
	// connect attempt has not finished.
	ErrConnectInProgress = errors.New("connect already in progress")

	// ErrNoAccounts is returned when the provider authorizes zero
	// accounts.
	ErrNoAccounts = errors.New("no authorized accounts")

	// ErrSessionReset is returned when the session was reset (by
	// disconnect, account switch, or network change) while a connect
	// attempt was waiting on the provider. The late result is discarded
	// rather than applied.
	ErrSessionReset = errors.New("session reset during connect")
)

// SessionConfig holds configuration for a wallet session.
type SessionConfig struct {
	Logger   *slog.Logger
	Bus      *event.EventBus
	Provider Provider
}

// SessionSnapshot is an immutable view of the session for the
// presentation layer.
type SessionSnapshot struct {
	State      SessionState
	SessionId  string
	Address    string
	NetworkId  uint64
	Balance    *big.Int
	LastError  string
	Generation uint64
}

// Session owns the wallet connect/disconnect lifecycle and tracks the
// active account, network, and balance. At most one session is active
// per process; it is an explicit object injected into every sync, never
// an ambient singleton. The generation counter increments on every
// session reset so that late-arriving sync results from a previous
// account or network are discarded instead of applied.
type Session struct {
	config   SessionConfig
	logger   *slog.Logger
	provider Provider
	bus      *event.EventBus

	mu         sync.Mutex
	state      SessionState
	sessionId  string
	address    string
	networkId  uint64
	balance    *big.Int
	lastError  error
	generation uint64
}

// NewSession creates a wallet session in the disconnected state and
// subscribes it to provider notifications on the event bus.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{
		config:   cfg,
		logger:   logger,
		provider: cfg.Provider,
		bus:      cfg.Bus,
		state:    StateDisconnected,
	}
	if s.bus != nil {
		s.bus.SubscribeFunc(
			event.AccountsChangedEventType,
			s.handleAccountsChanged,
		)
		s.bus.SubscribeFunc(
			event.NetworkChangedEventType,
			s.handleNetworkChanged,
		)
	}
	return s
}

// Connect transitions the session from disconnected (or error) to
// connected, prompting the provider for account authorization. A
// failed attempt lands in the error state; the next Connect resets to
// disconnected before retrying.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnecting:
		s.mu.Unlock()
		return ErrConnectInProgress
	case StateConnected:
		s.mu.Unlock()
		return nil
	case StateError:
		// Reset a prior failure before the new attempt
		s.state = StateDisconnected
		s.lastError = nil
	}
	s.state = StateConnecting
	gen := s.generation
	s.mu.Unlock()
	return s.establish(ctx, true, gen)
}

// Resume attempts a silent reconnect using any already-authorized
// account, without prompting. It returns true if a session was
// established. Intended to run in the background on process start.
func (s *Session) Resume(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return false
	}
	s.state = StateConnecting
	gen := s.generation
	s.mu.Unlock()
	if err := s.establish(ctx, false, gen); err != nil {
		s.logger.Debug(
			"silent reconnect unavailable",
			"component", "wallet",
			"error", err,
		)
		// Silent reconnect failure is not an error state
		s.mu.Lock()
		if s.state == StateConnecting {
			s.state = StateDisconnected
			s.lastError = nil
		}
		s.mu.Unlock()
		return false
	}
	return true
}

// establish performs the connecting -> connected transition. The
// session must already be in the connecting state, and gen must be the
// generation observed when the attempt started.
func (s *Session) establish(
	ctx context.Context,
	prompt bool,
	gen uint64,
) error {
	var accounts []string
	var err error
	if prompt {
		accounts, err = s.provider.RequestAccounts(ctx)
	} else {
		accounts, err = s.provider.Accounts(ctx)
	}
	if err == nil && len(accounts) == 0 {
		err = ErrNoAccounts
	}
	if err != nil {
		s.failConnect(gen, err)
		return err
	}
	return s.adoptAccount(ctx, accounts[0], gen)
}

// adoptAccount populates session details for an account and publishes
// the connected event. Also used when the provider switches accounts on
// an existing session. If the session was reset while the provider
// calls were in flight (gen no longer current), the result is discarded
// without publishing.
func (s *Session) adoptAccount(
	ctx context.Context,
	address string,
	gen uint64,
) error {
	networkId, err := s.provider.NetworkId(ctx)
	if err != nil {
		s.failConnect(gen, err)
		return err
	}
	balance, err := s.provider.Balance(ctx, address)
	if err != nil {
		s.failConnect(gen, err)
		return err
	}
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug(
			"discarding superseded connect result",
			"component", "wallet",
			"address", address,
		)
		return ErrSessionReset
	}
	s.state = StateConnected
	s.sessionId = uuid.NewString()
	s.address = address
	s.networkId = networkId
	s.balance = balance
	s.lastError = nil
	s.generation++
	generation := s.generation
	sessionId := s.sessionId
	s.mu.Unlock()
	s.logger.Info(
		"wallet connected",
		"component", "wallet",
		"session_id", sessionId,
		"address", address,
		"network_id", networkId,
	)
	if s.bus != nil {
		s.bus.Publish(
			event.WalletConnectedEventType,
			event.NewEvent(
				event.WalletConnectedEventType,
				event.WalletConnectedEvent{
					Address:    address,
					NetworkId:  networkId,
					Balance:    new(big.Int).Set(balance),
					Generation: generation,
				},
			),
		)
	}
	return nil
}

func (s *Session) failConnect(gen uint64, err error) {
	s.mu.Lock()
	if s.generation != gen {
		// The session was reset mid-attempt; the user's last action
		// wins over the failed attempt's error state
		s.mu.Unlock()
		return
	}
	s.state = StateError
	s.lastError = err
	s.sessionId = ""
	s.address = ""
	s.balance = nil
	s.mu.Unlock()
	s.logger.Warn(
		"wallet connect failed",
		"component", "wallet",
		"error", err,
	)
}

// Disconnect drops the session to disconnected from any state,
// synchronously, and bumps the generation so in-flight sync results are
// discarded on arrival.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.state = StateDisconnected
	s.sessionId = ""
	s.address = ""
	s.balance = nil
	s.lastError = nil
	s.generation++
	generation := s.generation
	s.mu.Unlock()
	s.logger.Info("wallet disconnected", "component", "wallet")
	if s.bus != nil {
		s.bus.Publish(
			event.WalletDisconnectedEventType,
			event.NewEvent(
				event.WalletDisconnectedEventType,
				event.WalletDisconnectedEvent{
					Generation: generation,
				},
			),
		)
	}
}

// handleAccountsChanged reacts to the provider's account-changed
// notification. An empty account list forces a full disconnect;
// otherwise the connected transition re-runs for the new account.
func (s *Session) handleAccountsChanged(evt event.Event) {
	e, ok := evt.Data.(event.AccountsChangedEvent)
	if !ok {
		return
	}
	if len(e.Accounts) == 0 {
		s.Disconnect()
		return
	}
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	if s.address == e.Accounts[0] {
		s.mu.Unlock()
		return
	}
	gen := s.generation
	s.mu.Unlock()
	ctx, cancel := context.WithTimeout(
		context.Background(),
		notificationTimeout,
	)
	defer cancel()
	if err := s.adoptAccount(ctx, e.Accounts[0], gen); err != nil {
		s.logger.Warn(
			"failed to switch account",
			"component", "wallet",
			"error", err,
		)
	}
}

// handleNetworkChanged updates the network id in place without
// dropping the connection. The generation still advances because
// registry addresses and balances are network-scoped, so results from
// the previous network must not land in current state.
func (s *Session) handleNetworkChanged(evt event.Event) {
	e, ok := evt.Data.(event.NetworkChangedEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	if s.state != StateConnected || s.networkId == e.NetworkId {
		s.mu.Unlock()
		return
	}
	s.networkId = e.NetworkId
	s.generation++
	generation := s.generation
	address := s.address
	s.mu.Unlock()
	s.logger.Info(
		"wallet network changed",
		"component", "wallet",
		"network_id", e.NetworkId,
	)
	// Balance is network-scoped; refresh it for the new network
	ctx, cancel := context.WithTimeout(
		context.Background(),
		notificationTimeout,
	)
	defer cancel()
	if balance, err := s.provider.Balance(ctx, address); err == nil {
		s.mu.Lock()
		if s.generation == generation {
			s.balance = balance
		}
		s.mu.Unlock()
	}
	if s.bus != nil {
		s.bus.Publish(
			event.NetworkUpdatedEventType,
			event.NewEvent(
				event.NetworkUpdatedEventType,
				event.NetworkChangedEvent{
					NetworkId:  e.NetworkId,
					Generation: generation,
				},
			),
		)
	}
}

// RefreshBalance re-reads the active account's balance from the
// provider.
func (s *Session) RefreshBalance(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return errors.New("not connected")
	}
	address := s.address
	generation := s.generation
	s.mu.Unlock()
	balance, err := s.provider.Balance(ctx, address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.generation == generation && s.state == StateConnected {
		s.balance = balance
	}
	s.mu.Unlock()
	return nil
}

// Snapshot returns an immutable copy of the session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SessionSnapshot{
		State:      s.state,
		SessionId:  s.sessionId,
		Address:    s.address,
		NetworkId:  s.networkId,
		Generation: s.generation,
	}
	if s.balance != nil {
		snap.Balance = new(big.Int).Set(s.balance)
	}
	if s.lastError != nil {
		snap.LastError = s.lastError.Error()
	}
	return snap
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Address returns the active account address, or empty when not
// connected.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// NetworkId returns the active network id.
func (s *Session) NetworkId() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.networkId
}

// Generation returns the current session generation. Sync results
// captured under an older generation must be discarded.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Connected reports whether the session is in the connected state.
func (s *Session) Connected() bool {
	return s.State() == StateConnected
}
