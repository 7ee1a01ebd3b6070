// internal/storage/registry.go
package storage

import (
	"sort"
	"sync"

	"vroom-gateway/internal/data"
)

// RecordFactory builds the record for a newly announced sensor. unit is nil
// when the request carried no unit for id.
type RecordFactory func(id data.SensorID, name string, unit *string) *data.SensorRecord

// Result is what one Reconcile call changed.
type Result struct {
	Updates    []data.ValueUpdate
	Registered []*data.SensorRecord
	Dropped    int
}

// Registry maps sensor ids to records for a single vehicle. It only grows.
type Registry struct {
	mu      sync.Mutex
	sensors map[data.SensorID]*data.SensorRecord
}

func NewRegistry() *Registry {
	return &Registry{
		sensors: make(map[data.SensorID]*data.SensorRecord),
	}
}

// Reconcile applies a decoded reading. Values are routed against the registry
// as it was before this reading's names are registered, so a value sent
// together with its sensor's first name is dropped.
// Returned records and updates are copies and safe to use after the lock is gone.
func (r *Registry) Reconcile(reading *data.Reading, newRecord RecordFactory) Result {
	var res Result

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range sortedIDs(reading.Values) {
		rec, ok := r.sensors[id]
		if !ok {
			res.Dropped++
			continue
		}
		value := reading.Values[id]
		rec.CurrentValue = &value
		res.Updates = append(res.Updates, data.ValueUpdate{ID: id, Identity: rec.Identity, Value: value})
	}

	for _, id := range sortedIDs(reading.Names) {
		if _, ok := r.sensors[id]; ok {
			continue
		}
		var unit *string
		if u, ok := reading.Units[id]; ok {
			unit = &u
		}
		rec := newRecord(id, reading.Names[id], unit)
		r.sensors[id] = rec
		res.Registered = append(res.Registered, rec.Clone())
	}

	return res
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id data.SensorID) (*data.SensorRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sensors[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sensors)
}

// Snapshot returns copies of all records ordered by id.
func (r *Registry) Snapshot() []*data.SensorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*data.SensorRecord, 0, len(r.sensors))
	for _, id := range sortedIDs(r.sensors) {
		result = append(result, r.sensors[id].Clone())
	}
	return result
}

func sortedIDs[V any](m map[data.SensorID]V) []data.SensorID {
	ids := make([]data.SensorID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
