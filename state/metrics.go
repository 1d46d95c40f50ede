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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type storeMetrics struct {
	fullSyncs     prometheus.Counter
	staleDiscards prometheus.Counter
}

func (s *Store) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	s.metrics = &storeMetrics{
		fullSyncs: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_state_full_syncs_total",
				Help: "total completed full sync passes",
			},
		),
		staleDiscards: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_state_stale_discards_total",
				Help: "total sync results discarded due to a stale session generation",
			},
		),
	}
}
