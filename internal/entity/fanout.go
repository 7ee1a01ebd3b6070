// internal/entity/fanout.go
package entity

// Fanout forwards every event to each of its sinks in order.
type Fanout []Sink

// NewFanout drops nil sinks so optional outputs can be passed unconditionally.
func NewFanout(sinks ...Sink) Fanout {
	f := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			f = append(f, s)
		}
	}
	return f
}

func (f Fanout) RegisterEntities(batch []Entity) {
	if len(batch) == 0 {
		return
	}
	for _, s := range f {
		s.RegisterEntities(batch)
	}
}

func (f Fanout) PublishValue(identity, value string) {
	for _, s := range f {
		s.PublishValue(identity, value)
	}
}
