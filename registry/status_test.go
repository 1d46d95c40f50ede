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

import "testing"

func TestStatusTransitions(t *testing.T) {
	allStatuses := []ModelStatus{
		ModelStatusPending,
		ModelStatusValidated,
		ModelStatusRejected,
		ModelStatusSuspended,
	}
	allowed := map[ModelStatus]map[ModelStatus]bool{
		ModelStatusPending: {
			ModelStatusValidated: true,
			ModelStatusRejected:  true,
		},
		ModelStatusValidated: {
			ModelStatusSuspended: true,
		},
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[from][to]
			got := CanTransition(from, to)
			if got != want {
				t.Fatalf(
					"transition %q -> %q: expected %v, got %v",
					from,
					to,
					want,
					got,
				)
			}
			err := CheckTransition(from, to)
			if want && err != nil {
				t.Fatalf(
					"unexpected error for %q -> %q: %v",
					from,
					to,
					err,
				)
			}
			if !want && err == nil {
				t.Fatalf(
					"expected error for %q -> %q",
					from,
					to,
				)
			}
		}
	}
}

func TestCheckTransitionUnknownStatus(t *testing.T) {
	if err := CheckTransition("bogus", ModelStatusValidated); err == nil {
		t.Fatalf("expected error for unknown source status")
	}
	if err := CheckTransition(ModelStatusPending, "bogus"); err == nil {
		t.Fatalf("expected error for unknown target status")
	}
}
