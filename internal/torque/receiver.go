// Package torque handles requests from the Torque Pro app for one vehicle.
package torque

import (
	"fmt"
	"log/slog"
	"net/url"

	"vroom-gateway/internal/auth"
	"vroom-gateway/internal/data"
	"vroom-gateway/internal/entity"
	"vroom-gateway/internal/metrics"
	"vroom-gateway/internal/storage"
)

// Ack is the body Torque expects on success.
const Ack = "OK!"

// Outcome summarizes one request.
type Outcome struct {
	Accepted   bool
	Registered int
	Updated    int
	Dropped    int
}

// Receiver turns Torque requests into entity events for one vehicle.
type Receiver struct {
	vehicle  string
	secret   auth.SharedSecret
	registry *storage.Registry
	sink     entity.Sink
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewReceiver creates a receiver with its own registry. sink, m and logger may be nil.
func NewReceiver(email, vehicle string, sink entity.Sink, m *metrics.Metrics, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = entity.NewFanout()
	}
	r := &Receiver{
		vehicle:  vehicle,
		secret:   auth.NewSharedSecret(email),
		registry: storage.NewRegistry(),
		sink:     sink,
		metrics:  m,
		logger:   logger.With("vehicle", vehicle),
	}
	r.logger.Debug("torque receiver initialized",
		"email", email, "url", r.Path(), "name", "api:vroom:"+vehicle)
	return r
}

func (r *Receiver) Vehicle() string { return r.vehicle }

// Path is where Torque must be pointed for this vehicle.
func (r *Receiver) Path() string { return "/api/vroom/" + url.PathEscape(r.vehicle) }

// Registry exposes the sensor table for read-only views.
func (r *Receiver) Registry() *storage.Registry { return r.registry }

// Receive handles the query of one Torque request. A request with the wrong
// e-mail is not an error: it returns a not accepted Outcome and changes nothing.
// A decode error also leaves the registry untouched.
func (r *Receiver) Receive(query url.Values) (Outcome, error) {
	if !r.secret.Allow(query) {
		r.logger.Debug("torque request rejected: e-mail mismatch")
		r.metrics.Observe(r.vehicle, metrics.ResultRejected, 0, 0, 0, 0)
		return Outcome{}, nil
	}

	reading, err := data.Decode(query)
	if err != nil {
		r.metrics.Observe(r.vehicle, metrics.ResultError, 0, 0, 0, 0)
		return Outcome{}, fmt.Errorf("decode torque request: %w", err)
	}

	res := r.registry.Reconcile(reading, r.newRecord)

	for _, u := range res.Updates {
		r.sink.PublishValue(u.Identity, u.Value)
	}

	if len(res.Registered) > 0 {
		batch := make([]entity.Entity, 0, len(res.Registered))
		for _, rec := range res.Registered {
			batch = append(batch, entity.Entity{
				Identity: rec.Identity,
				Vehicle:  rec.Vehicle,
				Name:     rec.DisplayName,
				Unit:     rec.Unit,
				Icon:     entity.DefaultIcon,
			})
			r.logger.Info("new sensor", "id", rec.ID.String(), "name", rec.DisplayName, "identity", rec.Identity)
		}
		r.sink.RegisterEntities(batch)
	}

	if res.Dropped > 0 {
		r.logger.Debug("values for unknown sensors ignored", "count", res.Dropped)
	}

	out := Outcome{
		Accepted:   true,
		Registered: len(res.Registered),
		Updated:    len(res.Updates),
		Dropped:    res.Dropped,
	}
	r.metrics.Observe(r.vehicle, metrics.ResultAccepted, out.Registered, out.Updated, out.Dropped, r.registry.Len())
	return out, nil
}

func (r *Receiver) newRecord(id data.SensorID, name string, unit *string) *data.SensorRecord {
	displayName := EntityName(r.vehicle, name)
	return &data.SensorRecord{
		ID:          id,
		Identity:    EntityIdentity(r.vehicle, displayName, unit),
		Vehicle:     r.vehicle,
		DisplayName: displayName,
		Unit:        unit,
	}
}
