// internal/entity/recorder.go
package entity

import "sync"

// Value is one recorded PublishValue call.
type Value struct {
	Identity string
	Value    string
}

// Recorder is a Sink that remembers what it was sent.
type Recorder struct {
	mu      sync.Mutex
	batches [][]Entity
	values  []Value
}

func (r *Recorder) RegisterEntities(batch []Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]Entity(nil), batch...))
}

func (r *Recorder) PublishValue(identity, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, Value{Identity: identity, Value: value})
}

// Batches returns every registration batch received so far.
func (r *Recorder) Batches() [][]Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Entity(nil), r.batches...)
}

// Values returns every published value received so far.
func (r *Recorder) Values() []Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Value(nil), r.values...)
}
