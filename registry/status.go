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

import "fmt"

// ModelStatus is the validation state of a model registry entry.
type ModelStatus string

const (
	ModelStatusPending   ModelStatus = "pending"
	ModelStatusValidated ModelStatus = "validated"
	ModelStatusRejected  ModelStatus = "rejected"
	ModelStatusSuspended ModelStatus = "suspended"
)

// Valid returns true if the status is a known value.
func (s ModelStatus) Valid() bool {
	switch s {
	case ModelStatusPending,
		ModelStatusValidated,
		ModelStatusRejected,
		ModelStatusSuspended:
		return true
	default:
		return false
	}
}

// validStatusEdges is the full set of allowed status transitions.
// pending may move to validated or rejected, and validated may move to
// suspended. Everything else is rejected.
var validStatusEdges = map[ModelStatus][]ModelStatus{
	ModelStatusPending: {
		ModelStatusValidated,
		ModelStatusRejected,
	},
	ModelStatusValidated: {
		ModelStatusSuspended,
	},
}

// CanTransition returns true if moving from one status to another is an
// allowed edge.
func CanTransition(from, to ModelStatus) bool {
	for _, next := range validStatusEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition validates a status transition, returning an error for
// any edge outside the allowed set.
func CheckTransition(from, to ModelStatus) error {
	if !from.Valid() {
		return fmt.Errorf("invalid model status %q", from)
	}
	if !to.Valid() {
		return fmt.Errorf("invalid model status %q", to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf(
			"invalid model status transition %q -> %q",
			from,
			to,
		)
	}
	return nil
}
