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

package activity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type projectorMetrics struct {
	projections   prometheus.Counter
	queryFailures *prometheus.CounterVec
}

func (p *Projector) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	p.metrics = &projectorMetrics{
		projections: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "husky_activity_projections_total",
				Help: "total completed activity projections",
			},
		),
		queryFailures: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "husky_activity_query_failures_total",
				Help: "total ledger log queries degraded to empty",
			},
			[]string{"category"},
		),
	}
}
