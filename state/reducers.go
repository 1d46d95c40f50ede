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
	"github.com/blinklabs-io/husky/wallet"
)

// The four reducers are pure functions over value-type states. Failure
// actions record the error but keep prior data, since stale-but-present
// beats blanked-on-error for the presentation layer.

func reduceWallet(s WalletState, action walletAction) WalletState {
	switch a := action.(type) {
	case walletConnectStart:
		s.Status = wallet.StateConnecting
		s.Loading = true
		s.Error = ""
	case walletConnectSuccess:
		s.Status = wallet.StateConnected
		s.Address = a.Address
		s.NetworkId = a.NetworkId
		s.Balance = a.Balance
		s.Loading = false
		s.Error = ""
	case walletConnectFailure:
		s.Status = wallet.StateError
		s.Address = ""
		s.Balance = nil
		s.Loading = false
		s.Error = a.Err.Error()
	case walletDisconnected:
		s = initialWalletState()
	case walletNetworkChanged:
		s.NetworkId = a.NetworkId
	case walletBalanceUpdated:
		s.Balance = a.Balance
	}
	return s
}

func reduceIdentity(s IdentityState, action identityAction) IdentityState {
	switch a := action.(type) {
	case identitySyncStart:
		s.Loading = true
		s.Error = ""
	case identityProvisional:
		// Cache-served value ahead of the confirmed read; the sync is
		// still in flight, so the loading flag stays as-is
		s.Identity = a.Identity
	case identitySyncSuccess:
		s.Identity = a.Identity
		s.Loading = false
		s.Error = ""
	case identitySyncFailure:
		s.Loading = false
		s.Error = a.Err.Error()
	case identityInvalidate:
		s = initialIdentityState()
	}
	return s
}

func reduceModels(s ModelsState, action modelsAction) ModelsState {
	switch a := action.(type) {
	case modelsSyncStart:
		s.Loading = true
		s.Error = ""
	case modelsSyncSuccess:
		s.Models = a.Models
		s.LastSyncEpoch = a.SyncEpoch
		s.Loading = false
		s.Error = ""
	case modelsSyncFailure:
		s.Loading = false
		s.Error = a.Err.Error()
	case modelsInvalidate:
		s = initialModelsState()
	}
	return s
}

func reduceActivity(s ActivityState, action activityAction) ActivityState {
	switch a := action.(type) {
	case activitySyncStart:
		s.Loading = true
		s.Error = ""
	case activitySyncSuccess:
		s.Events = a.Projection.Events
		s.Earnings = a.Projection.Earnings
		s.RewardTier = a.Projection.RewardTier
		s.Loading = false
		s.Error = ""
	case activitySyncFailure:
		s.Loading = false
		s.Error = a.Err.Error()
	case activityInvalidate:
		s = initialActivityState()
	}
	return s
}
