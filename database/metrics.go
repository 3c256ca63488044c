/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

var (
	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clientele",
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Latency of database statements by operation.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"operation"})

	queryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clientele",
		Subsystem: "db",
		Name:      "query_errors_total",
		Help:      "Failed database statements by operation and error kind.",
	}, []string{"operation", "kind"})
)

// RegisterMetrics registers the database collectors with reg, or the
// default registerer when reg is nil. Registering twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{queryDuration, queryErrors} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// MetricsHook records statement latency and failures.
type MetricsHook struct{}

var _ bun.QueryHook = (*MetricsHook)(nil)

func NewMetricsHook() *MetricsHook { return &MetricsHook{} }

func (h *MetricsHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	op := event.Operation()
	queryDuration.WithLabelValues(op).Observe(time.Since(event.StartTime).Seconds())
	if event.Err == nil {
		return
	}
	_, kind := IsSqlError(event.Err)
	if kind == NoRowsErr {
		return
	}
	queryErrors.WithLabelValues(op, kind.String()).Inc()
}
