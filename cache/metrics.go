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

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type cacheMetrics struct {
	blobHits   prometheus.Counter
	blobMisses prometheus.Counter
}

func (c *Cache) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	c.metrics = &cacheMetrics{
		blobHits: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_cache_blob_hits_total",
				Help: "total blob cache hits",
			},
		),
		blobMisses: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_cache_blob_misses_total",
				Help: "total blob cache misses",
			},
		),
	}
}
