// Package metrics holds the Prometheus collectors of the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Request results.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics contains the ingest metrics, labelled by vehicle.
type Metrics struct {
	Requests           *prometheus.CounterVec
	EntitiesRegistered *prometheus.CounterVec
	ValuesUpdated      *prometheus.CounterVec
	ValuesDropped      *prometheus.CounterVec
	Sensors            *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vroom",
				Name:      "requests_total",
				Help:      "Torque requests received, by result",
			},
			[]string{"vehicle", "result"},
		),
		EntitiesRegistered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vroom",
				Name:      "entities_registered_total",
				Help:      "Sensors announced to the entity framework",
			},
			[]string{"vehicle"},
		),
		ValuesUpdated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vroom",
				Name:      "values_updated_total",
				Help:      "Values routed to registered sensors",
			},
			[]string{"vehicle"},
		),
		ValuesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vroom",
				Name:      "values_dropped_total",
				Help:      "Values received for sensors that had not been named yet",
			},
			[]string{"vehicle"},
		),
		Sensors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "vroom",
				Name:      "sensors",
				Help:      "Sensors currently in the registry",
			},
			[]string{"vehicle"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Requests, m.EntitiesRegistered, m.ValuesUpdated, m.ValuesDropped, m.Sensors)
	}
	return m
}

// Observe records one request outcome.
func (m *Metrics) Observe(vehicle, result string, registered, updated, dropped, sensors int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(vehicle, result).Inc()
	if result != ResultAccepted {
		return
	}
	m.EntitiesRegistered.WithLabelValues(vehicle).Add(float64(registered))
	m.ValuesUpdated.WithLabelValues(vehicle).Add(float64(updated))
	m.ValuesDropped.WithLabelValues(vehicle).Add(float64(dropped))
	m.Sensors.WithLabelValues(vehicle).Set(float64(sensors))
}
