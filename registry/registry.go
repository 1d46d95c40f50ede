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

package registry

import (
	"errors"
	"fmt"
)

// ErrUnsupportedNetwork is returned by Resolve for any network id that
// has no entry in the deployment table. Callers must treat this as a
// hard stop for the enclosing sync pass.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// Addresses holds the deployed registry contract addresses for a single
// network.
type Addresses struct {
	IdentityRegistry string
	ModelRegistry    string
	Marketplace      string
}

// networkEntry pairs a human-readable network name with its deployed
// addresses.
type networkEntry struct {
	Name      string
	Addresses Addresses
}

// networks is the explicit deployment table. Addresses are never
// inferred or derived; a network is supported if and only if it appears
// here.
var networks = map[uint64]networkEntry{
	// Local development network (hardhat/anvil default chain id)
	31337: {
		Name: "devnet",
		Addresses: Addresses{
			IdentityRegistry: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
			ModelRegistry:    "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
			Marketplace:      "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0",
		},
	},
	// Sepolia testnet
	11155111: {
		Name: "sepolia",
		Addresses: Addresses{
			IdentityRegistry: "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
			ModelRegistry:    "0x90F79bf6EB2c4f870365E785982E1f101E93b906",
			Marketplace:      "0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65",
		},
	},
	// Polygon Amoy testnet
	80002: {
		Name: "amoy",
		Addresses: Addresses{
			IdentityRegistry: "0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc",
			ModelRegistry:    "0x976EA74026E726554dB657fA54763abd0C3a0aa9",
			Marketplace:      "0x14dC79964da2C08b23698B3D3cc7Ca32193d9955",
		},
	},
	// Ethereum mainnet
	1: {
		Name: "mainnet",
		Addresses: Addresses{
			IdentityRegistry: "0x23618e81E3f5cdF7f54C3d65f7FBc0aBf5B21E8f",
			ModelRegistry:    "0xa0Ee7A142d267C1f36714E4a8F75612F20a79720",
			Marketplace:      "0xBcd4042DE499D14e55001CcbB24a551F3b954096",
		},
	},
	// Polygon mainnet
	137: {
		Name: "polygon",
		Addresses: Addresses{
			IdentityRegistry: "0x71bE63f3384f5fb98995898A86B02Fb2426c5788",
			ModelRegistry:    "0xFABB0ac9d68B0B445fB7357272Ff202C5651694a",
			Marketplace:      "0x1CBd3b2770909D4e10f157cABC84C7264073C9Ec",
		},
	},
}

// Resolve maps a network id to the set of deployed registry addresses
// for that network. It performs no I/O and has no failure modes besides
// an unknown network.
func Resolve(networkId uint64) (Addresses, error) {
	entry, ok := networks[networkId]
	if !ok {
		return Addresses{}, fmt.Errorf(
			"%w: %d",
			ErrUnsupportedNetwork,
			networkId,
		)
	}
	return entry.Addresses, nil
}

// NetworkName returns the human-readable name for a supported network
// id, or an error for an unknown network.
func NetworkName(networkId uint64) (string, error) {
	entry, ok := networks[networkId]
	if !ok {
		return "", fmt.Errorf(
			"%w: %d",
			ErrUnsupportedNetwork,
			networkId,
		)
	}
	return entry.Name, nil
}

// NetworkIdByName returns the network id for a supported network name,
// or an error for an unknown name.
func NetworkIdByName(name string) (uint64, error) {
	for id, entry := range networks {
		if entry.Name == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, name)
}

// SupportedNetworks returns the ids of all networks present in the
// deployment table.
func SupportedNetworks() []uint64 {
	ret := make([]uint64, 0, len(networks))
	for id := range networks {
		ret = append(ret, id)
	}
	return ret
}
