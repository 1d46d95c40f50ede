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

package modelsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type syncerMetrics struct {
	syncPasses     prometheus.Counter
	recordsSkipped prometheus.Counter
	metadataMisses prometheus.Counter
	modelCount     prometheus.Gauge
}

func (s *Syncer) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	s.metrics = &syncerMetrics{
		syncPasses: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_modelsync_passes_total",
				Help: "total completed model sync passes",
			},
		),
		recordsSkipped: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_modelsync_records_skipped_total",
				Help: "total model records skipped due to registry read failure",
			},
		),
		metadataMisses: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_modelsync_metadata_misses_total",
				Help: "total model records with unresolvable metadata",
			},
		),
		modelCount: promautoFactory.NewGauge(
			prometheus.GaugeOpts{
				Name: "husky_modelsync_models",
				Help: "model count from the most recent sync pass",
			},
		),
	}
}
