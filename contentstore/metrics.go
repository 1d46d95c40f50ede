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

package contentstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type storeMetrics struct {
	gatewayAttempts *prometheus.CounterVec
	putFallbacks    prometheus.Counter
	cacheFallbacks  prometheus.Counter
}

func (s *Store) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	s.metrics = &storeMetrics{
		gatewayAttempts: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "husky_contentstore_gateway_attempts_total",
				Help: "total gateway fetch attempts by gateway and result",
			},
			[]string{"gateway", "result"},
		),
		putFallbacks: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_contentstore_put_fallbacks_total",
				Help: "total puts that fell back to the local store",
			},
		),
		cacheFallbacks: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_contentstore_cache_fallbacks_total",
				Help: "total gets served from the local cache after gateway failure",
			},
		),
	}
}
