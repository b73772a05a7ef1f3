// Package metrics exposes the Prometheus collectors shared by the
// generation cycle and the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generations counts generation cycle ticks by outcome:
	// published, failed, or skipped (exclusivity held).
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyriver_generations_total",
		Help: "Generation cycle ticks by outcome.",
	}, []string{"outcome"})

	// Contributions counts contribute requests by result:
	// accepted, rejected, or rate_limited.
	Contributions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyriver_contributions_total",
		Help: "Contribution attempts by result.",
	}, []string{"result"})

	// Sequence tracks the river's current sequence number.
	Sequence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storyriver_sequence",
		Help: "Current river sequence number.",
	})
)
