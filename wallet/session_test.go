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
	"math/big"
	"testing"
	"time"

	"github.com/blinklabs-io/husky/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	accounts      []string
	silent        []string
	networkId     uint64
	balances      map[string]*big.Int
	requestErr    error
	networkErr    error
	balanceErr    error
	requestCalled int
	silentCalled  int
	// requestGate, when set, blocks RequestAccounts until closed
	requestGate chan struct{}
}

func (m *mockProvider) RequestAccounts(
	ctx context.Context,
) ([]string, error) {
	m.requestCalled++
	if m.requestGate != nil {
		<-m.requestGate
	}
	if m.requestErr != nil {
		return nil, m.requestErr
	}
	return m.accounts, nil
}

func (m *mockProvider) Accounts(ctx context.Context) ([]string, error) {
	m.silentCalled++
	return m.silent, nil
}

func (m *mockProvider) Balance(
	ctx context.Context,
	address string,
) (*big.Int, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	if bal, ok := m.balances[address]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *mockProvider) NetworkId(ctx context.Context) (uint64, error) {
	if m.networkErr != nil {
		return 0, m.networkErr
	}
	return m.networkId, nil
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		accounts:  []string{"0xABC"},
		networkId: 31337,
		balances: map[string]*big.Int{
			"0xABC": big.NewInt(1000000),
		},
	}
}

func TestConnectSuccess(t *testing.T) {
	provider := newMockProvider()
	s := NewSession(SessionConfig{Provider: provider})
	require.Equal(t, StateDisconnected, s.State())
	err := s.Connect(context.Background())
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, "0xABC", snap.Address)
	assert.Equal(t, uint64(31337), snap.NetworkId)
	assert.Equal(t, int64(1000000), snap.Balance.Int64())
	assert.Equal(t, uint64(1), snap.Generation)
	assert.NotEmpty(t, snap.SessionId)
}

func TestConnectFailureThenRetry(t *testing.T) {
	provider := newMockProvider()
	provider.requestErr = errors.New("user rejected")
	s := NewSession(SessionConfig{Provider: provider})
	err := s.Connect(context.Background())
	require.Error(t, err)
	snap := s.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Contains(t, snap.LastError, "user rejected")
	assert.Empty(t, snap.Address)
	// Next attempt resets the error state and succeeds
	provider.requestErr = nil
	err = s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConnected, s.State())
	assert.Empty(t, s.Snapshot().LastError)
}

func TestConnectNoAccounts(t *testing.T) {
	provider := newMockProvider()
	provider.accounts = nil
	s := NewSession(SessionConfig{Provider: provider})
	err := s.Connect(context.Background())
	require.ErrorIs(t, err, ErrNoAccounts)
	assert.Equal(t, StateError, s.State())
}

func TestConnectWhileConnectedIsNoop(t *testing.T) {
	provider := newMockProvider()
	s := NewSession(SessionConfig{Provider: provider})
	require.NoError(t, s.Connect(context.Background()))
	gen := s.Generation()
	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, gen, s.Generation())
	assert.Equal(t, 1, provider.requestCalled)
}

func TestDisconnect(t *testing.T) {
	provider := newMockProvider()
	s := NewSession(SessionConfig{Provider: provider})
	require.NoError(t, s.Connect(context.Background()))
	gen := s.Generation()
	s.Disconnect()
	snap := s.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.Empty(t, snap.Address)
	assert.Empty(t, snap.SessionId)
	assert.Nil(t, snap.Balance)
	// Generation advances so stale sync results are discarded
	assert.Equal(t, gen+1, snap.Generation)
}

func TestDisconnectDuringConnectDiscardsResult(t *testing.T) {
	provider := newMockProvider()
	provider.requestGate = make(chan struct{})
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	_, connectedCh := bus.Subscribe(event.WalletConnectedEventType)
	s := NewSession(SessionConfig{Provider: provider, Bus: bus})
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Connect(context.Background())
	}()
	waitForState(t, s, StateConnecting)
	// The user disconnects while the provider prompt is still open
	s.Disconnect()
	gen := s.Generation()
	close(provider.requestGate)
	require.ErrorIs(t, <-errCh, ErrSessionReset)
	// The late completion must not resurrect the ended session
	snap := s.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.Empty(t, snap.Address)
	assert.Empty(t, snap.SessionId)
	assert.Equal(t, gen, snap.Generation)
	select {
	case <-connectedCh:
		t.Fatalf("connected event published for superseded attempt")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestResumeSilent(t *testing.T) {
	provider := newMockProvider()
	provider.silent = []string{"0xABC"}
	s := NewSession(SessionConfig{Provider: provider})
	ok := s.Resume(context.Background())
	require.True(t, ok)
	assert.Equal(t, StateConnected, s.State())
	// Resume must not prompt
	assert.Equal(t, 0, provider.requestCalled)
	assert.Equal(t, 1, provider.silentCalled)
}

func TestResumeNoAuthorizedAccount(t *testing.T) {
	provider := newMockProvider()
	provider.silent = nil
	s := NewSession(SessionConfig{Provider: provider})
	ok := s.Resume(context.Background())
	require.False(t, ok)
	// Failure to silently resume is not an error state
	assert.Equal(t, StateDisconnected, s.State())
	assert.Empty(t, s.Snapshot().LastError)
}

func waitForState(
	t *testing.T,
	s *Session,
	want SessionState,
) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf(
				"timeout waiting for state %q, still %q",
				want,
				s.State(),
			)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAccountsChangedEmptyForcesDisconnect(t *testing.T) {
	provider := newMockProvider()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	s := NewSession(SessionConfig{Provider: provider, Bus: bus})
	require.NoError(t, s.Connect(context.Background()))
	gen := s.Generation()
	bus.Publish(
		event.AccountsChangedEventType,
		event.NewEvent(
			event.AccountsChangedEventType,
			event.AccountsChangedEvent{Accounts: nil},
		),
	)
	waitForState(t, s, StateDisconnected)
	assert.Equal(t, gen+1, s.Generation())
}

func TestAccountsChangedSwitchesAccount(t *testing.T) {
	provider := newMockProvider()
	provider.balances["0xDEF"] = big.NewInt(555)
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	s := NewSession(SessionConfig{Provider: provider, Bus: bus})
	require.NoError(t, s.Connect(context.Background()))
	gen := s.Generation()
	bus.Publish(
		event.AccountsChangedEventType,
		event.NewEvent(
			event.AccountsChangedEventType,
			event.AccountsChangedEvent{Accounts: []string{"0xDEF"}},
		),
	)
	deadline := time.Now().Add(2 * time.Second)
	for s.Address() != "0xDEF" {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for account switch")
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap := s.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, int64(555), snap.Balance.Int64())
	assert.Equal(t, gen+1, snap.Generation)
}

func TestNetworkChangedKeepsConnected(t *testing.T) {
	provider := newMockProvider()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	s := NewSession(SessionConfig{Provider: provider, Bus: bus})
	require.NoError(t, s.Connect(context.Background()))
	gen := s.Generation()
	// Capture the applied notification published by the session
	_, updatedCh := bus.Subscribe(event.NetworkUpdatedEventType)
	bus.Publish(
		event.NetworkChangedEventType,
		event.NewEvent(
			event.NetworkChangedEventType,
			event.NetworkChangedEvent{NetworkId: 11155111},
		),
	)
	select {
	case evt := <-updatedCh:
		e, ok := evt.Data.(event.NetworkChangedEvent)
		require.True(t, ok)
		assert.Equal(t, uint64(11155111), e.NetworkId)
		assert.Equal(t, gen+1, e.Generation)
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for network updated event")
	}
	snap := s.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, "0xABC", snap.Address)
	assert.Equal(t, uint64(11155111), snap.NetworkId)
}

func TestRefreshBalance(t *testing.T) {
	provider := newMockProvider()
	s := NewSession(SessionConfig{Provider: provider})
	require.NoError(t, s.Connect(context.Background()))
	provider.balances["0xABC"] = big.NewInt(42)
	require.NoError(t, s.RefreshBalance(context.Background()))
	assert.Equal(t, int64(42), s.Snapshot().Balance.Int64())
}
