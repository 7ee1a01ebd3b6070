// internal/data/models.go
package data

// SensorID identifies one diagnostic channel. Torque sends it as a hex suffix
// on the parameter name (kff1005, userUnitff1005).
type SensorID uint64

// Reading is one decoded Torque request.
type Reading struct {
	Names  map[SensorID]string // userFullName<hex>
	Units  map[SensorID]string // userUnit<hex>, degree sign already fixed up
	Values map[SensorID]string // k<hex>, opaque
}

// SensorRecord is the registry entry for one sensor. Only CurrentValue changes
// after creation.
type SensorRecord struct {
	ID           SensorID `json:"id"`
	Identity     string   `json:"identity"`
	Vehicle      string   `json:"vehicle"`
	DisplayName  string   `json:"name"`
	Unit         *string  `json:"unit,omitempty"`
	CurrentValue *string  `json:"value,omitempty"`
}

// Clone returns a copy that shares no pointers with r.
func (r *SensorRecord) Clone() *SensorRecord {
	c := *r
	if r.Unit != nil {
		u := *r.Unit
		c.Unit = &u
	}
	if r.CurrentValue != nil {
		v := *r.CurrentValue
		c.CurrentValue = &v
	}
	return &c
}

// ValueUpdate is a new value routed to an already registered sensor.
type ValueUpdate struct {
	ID       SensorID
	Identity string
	Value    string
}
