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

package event

import "math/big"

const (
	// WalletConnectedEventType is emitted when the wallet session
	// reaches the connected state with a populated account.
	WalletConnectedEventType EventType = "wallet.connected"

	// WalletDisconnectedEventType is emitted when the wallet session
	// drops to disconnected, whether by request or because the
	// provider revoked all accounts. Dependent derived state must be
	// invalidated on receipt.
	WalletDisconnectedEventType EventType = "wallet.disconnected"

	// AccountsChangedEventType carries the provider's account-changed
	// notification into the session state machine.
	AccountsChangedEventType EventType = "wallet.accounts_changed"

	// NetworkChangedEventType carries the provider's network-changed
	// notification. Downstream syncs must re-resolve registry
	// addresses before the next sync pass.
	NetworkChangedEventType EventType = "wallet.network_changed"

	// NetworkUpdatedEventType is emitted by the session after it has
	// applied a network change, carrying the new session generation.
	// Consumers re-resolve registry addresses and re-run full sync.
	NetworkUpdatedEventType EventType = "wallet.network_updated"
)

// WalletConnectedEvent contains the account details for a newly
// connected session. Generation identifies the session epoch that
// produced the event; consumers apply results only while the session
// generation still matches.
type WalletConnectedEvent struct {
	Address    string
	NetworkId  uint64
	Balance    *big.Int
	Generation uint64
}

// WalletDisconnectedEvent is published when a session ends.
type WalletDisconnectedEvent struct {
	Generation uint64
}

// AccountsChangedEvent is the provider's account list notification. An
// empty Accounts slice forces a full disconnect.
type AccountsChangedEvent struct {
	Accounts []string
}

// NetworkChangedEvent is the provider's network notification. The
// session stays connected; registry addresses are network-scoped and
// must be re-resolved.
type NetworkChangedEvent struct {
	NetworkId  uint64
	Generation uint64
}
