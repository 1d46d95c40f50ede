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
	"math/big"

	"github.com/blinklabs-io/husky/activity"
	"github.com/blinklabs-io/husky/identity"
	"github.com/blinklabs-io/husky/modelsync"
)

// Actions are typed per slice. Every async mutation follows the
// start/success/failure discipline: start sets the loading flag and
// clears the prior error, success replaces the slice's data, and
// failure records the error while leaving prior data in place.

type walletAction interface {
	isWalletAction()
}

type walletConnectStart struct{}

type walletConnectSuccess struct {
	Address   string
	NetworkId uint64
	Balance   *big.Int
}

type walletConnectFailure struct {
	Err error
}

type walletDisconnected struct{}

type walletNetworkChanged struct {
	NetworkId uint64
}

type walletBalanceUpdated struct {
	Balance *big.Int
}

func (walletConnectStart) isWalletAction()   {}
func (walletConnectSuccess) isWalletAction() {}
func (walletConnectFailure) isWalletAction() {}
func (walletDisconnected) isWalletAction()   {}
func (walletNetworkChanged) isWalletAction() {}
func (walletBalanceUpdated) isWalletAction() {}

type identityAction interface {
	isIdentityAction()
}

type identitySyncStart struct{}

// identityProvisional carries a cache-served identity delivered while
// the authoritative read is still in flight. It does not clear the
// loading flag, so the slice stays visibly mid-sync until the confirmed
// result or failure lands.
type identityProvisional struct {
	Identity *identity.Identity
}

type identitySyncSuccess struct {
	Identity *identity.Identity
}

type identitySyncFailure struct {
	Err error
}

type identityInvalidate struct{}

func (identitySyncStart) isIdentityAction()   {}
func (identityProvisional) isIdentityAction() {}
func (identitySyncSuccess) isIdentityAction() {}
func (identitySyncFailure) isIdentityAction() {}
func (identityInvalidate) isIdentityAction()  {}

type modelsAction interface {
	isModelsAction()
}

type modelsSyncStart struct{}

type modelsSyncSuccess struct {
	Models    []modelsync.Model
	SyncEpoch int64
}

type modelsSyncFailure struct {
	Err error
}

type modelsInvalidate struct{}

func (modelsSyncStart) isModelsAction()   {}
func (modelsSyncSuccess) isModelsAction() {}
func (modelsSyncFailure) isModelsAction() {}
func (modelsInvalidate) isModelsAction()  {}

type activityAction interface {
	isActivityAction()
}

type activitySyncStart struct{}

type activitySyncSuccess struct {
	Projection *activity.Projection
}

type activitySyncFailure struct {
	Err error
}

type activityInvalidate struct{}

func (activitySyncStart) isActivityAction()   {}
func (activitySyncSuccess) isActivityAction() {}
func (activitySyncFailure) isActivityAction() {}
func (activityInvalidate) isActivityAction()  {}
