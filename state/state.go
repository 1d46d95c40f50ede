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
	"github.com/blinklabs-io/husky/wallet"
)

// Result is the outcome of a mutation entry point. Entry points return
// a Result value and never panic past the store boundary.
type Result struct {
	Success bool
	Error   string
	// TxRef is populated for mutations that submitted an on-chain
	// transaction.
	TxRef string
}

func resultOk(txRef string) Result {
	return Result{Success: true, TxRef: txRef}
}

func resultErr(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// WalletState is the wallet slice of application state.
type WalletState struct {
	Status    wallet.SessionState
	Address   string
	NetworkId uint64
	Balance   *big.Int
	Loading   bool
	Error     string
}

// IdentityState is the identity slice of application state. Identity is
// nil when the active account has no registration.
type IdentityState struct {
	Identity *identity.Identity
	Loading  bool
	Error    string
}

// ModelsState is the model catalog slice of application state.
type ModelsState struct {
	Models        []modelsync.Model
	LastSyncEpoch int64
	Loading       bool
	Error         string
}

// ActivityState is the activity feed slice of application state.
type ActivityState struct {
	Events     []activity.Event
	Earnings   activity.EarningsSummary
	RewardTier activity.Tier
	Loading    bool
	Error      string
}

func initialWalletState() WalletState {
	return WalletState{Status: wallet.StateDisconnected}
}

func initialIdentityState() IdentityState {
	return IdentityState{}
}

func initialModelsState() ModelsState {
	return ModelsState{}
}

func initialActivityState() ActivityState {
	return ActivityState{}
}

// copy helpers produce detached snapshots so no entity is ever shared
// by reference across the store boundary

func (s WalletState) copy() WalletState {
	ret := s
	if s.Balance != nil {
		ret.Balance = new(big.Int).Set(s.Balance)
	}
	return ret
}

func copyIdentity(i *identity.Identity) *identity.Identity {
	if i == nil {
		return nil
	}
	ret := *i
	if i.StakedAmount != nil {
		ret.StakedAmount = new(big.Int).Set(i.StakedAmount)
	}
	if i.SocialLinks != nil {
		ret.SocialLinks = make(map[string]string, len(i.SocialLinks))
		for k, v := range i.SocialLinks {
			ret.SocialLinks[k] = v
		}
	}
	return &ret
}

func (s IdentityState) copy() IdentityState {
	ret := s
	ret.Identity = copyIdentity(s.Identity)
	return ret
}

func copyModel(m modelsync.Model) modelsync.Model {
	ret := m
	if m.PriceWei != nil {
		ret.PriceWei = new(big.Int).Set(m.PriceWei)
	}
	if m.Listing != nil {
		listing := *m.Listing
		if m.Listing.BasePrice != nil {
			listing.BasePrice = new(big.Int).Set(m.Listing.BasePrice)
		}
		ret.Listing = &listing
	}
	if m.Metadata.Tags != nil {
		ret.Metadata.Tags = append([]string{}, m.Metadata.Tags...)
	}
	return ret
}

func (s ModelsState) copy() ModelsState {
	ret := s
	if s.Models != nil {
		ret.Models = make([]modelsync.Model, len(s.Models))
		for i, m := range s.Models {
			ret.Models[i] = copyModel(m)
		}
	}
	return ret
}

func copyEarnings(e activity.EarningsSummary) activity.EarningsSummary {
	ret := e
	if e.ThisMonth != nil {
		ret.ThisMonth = new(big.Int).Set(e.ThisMonth)
	}
	if e.PrevMonth != nil {
		ret.PrevMonth = new(big.Int).Set(e.PrevMonth)
	}
	if e.AllTime != nil {
		ret.AllTime = new(big.Int).Set(e.AllTime)
	}
	return ret
}

func (s ActivityState) copy() ActivityState {
	ret := s
	if s.Events != nil {
		ret.Events = make([]activity.Event, len(s.Events))
		for i, evt := range s.Events {
			ret.Events[i] = evt
			if evt.Amount != nil {
				ret.Events[i].Amount = new(big.Int).Set(evt.Amount)
			}
		}
	}
	ret.Earnings = copyEarnings(s.Earnings)
	return ret
}
