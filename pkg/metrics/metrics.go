/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics declares the prometheus instruments of the scheduling core
// on a package-owned registry. The core only instruments; exposing the
// registry is the caller's concern.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "rostercore"

	schedulerSubsystem  = "scheduler"
	validatorSubsystem  = "validator"
	resilienceSubsystem = "resilience"

	BackendLabel    = "backend"
	ConstraintLabel = "constraint"
	StatusLabel     = "status"
	ViolationLabel  = "violation_type"
)

// Registry owns every instrument below. Callers may gather from it or
// re-register the collectors on their own registry.
var Registry = prometheus.NewRegistry()

var (
	SchedulingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: schedulerSubsystem,
			Name:      "duration_seconds",
			Help:      "Duration of one scheduling run in seconds. Labeled by backend and result status.",
			Buckets:   DurationBuckets(),
		},
		[]string{BackendLabel, StatusLabel},
	)
	CandidatesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: schedulerSubsystem,
			Name:      "candidates_dropped",
			Help:      "Number of candidate slots removed by hard-constraint propagation. Labeled by constraint.",
		},
		[]string{ConstraintLabel},
	)
	BackendFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: schedulerSubsystem,
			Name:      "backend_fallbacks",
			Help:      "Number of runs where the requested backend failed and the pipeline fell back to greedy. Labeled by the failed backend.",
		},
		[]string{BackendLabel},
	)
	AssignmentsProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: schedulerSubsystem,
			Name:      "assignments_produced",
			Help:      "Number of new assignments emitted. Labeled by backend.",
		},
		[]string{BackendLabel},
	)
	ViolationsFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: validatorSubsystem,
			Name:      "violations_found",
			Help:      "Number of compliance violations emitted. Labeled by violation type.",
		},
		[]string{ViolationLabel},
	)
	SinglePointsOfFailure = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: resilienceSubsystem,
			Name:      "single_points_of_failure",
			Help:      "Number of people whose removal leaves uncoverable blocks, per the latest contingency analysis.",
		},
	)
)

func init() {
	Registry.MustRegister(
		SchedulingDuration,
		CandidatesDropped,
		BackendFallbacks,
		AssignmentsProduced,
		ViolationsFound,
		SinglePointsOfFailure,
	)
}

// DurationBuckets returns the buckets used for scheduling latency histograms.
func DurationBuckets() []float64 {
	return []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
}

// Measure returns a deferrable that observes the elapsed duration reported by
// since.
func Measure(observer prometheus.Observer, since func() time.Duration) func() {
	return func() { observer.Observe(since().Seconds()) }
}
