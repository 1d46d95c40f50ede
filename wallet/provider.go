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
	"math/big"
)

// Provider is the opaque wallet/session provider. Account and network
// change notifications do not surface here; the hosting process feeds
// them into the event bus as AccountsChangedEvent and
// NetworkChangedEvent, where the session state machine consumes them.
type Provider interface {
	// RequestAccounts prompts the user for account authorization and
	// returns the authorized account list.
	RequestAccounts(ctx context.Context) ([]string, error)
	// Accounts returns any already-authorized accounts without
	// prompting. Used for silent reconnect on process start.
	Accounts(ctx context.Context) ([]string, error)
	// Balance returns the current balance of an address in wei.
	Balance(ctx context.Context, address string) (*big.Int, error)
	// NetworkId returns the provider's active network id.
	NetworkId(ctx context.Context) (uint64, error)
}
