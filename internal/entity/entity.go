// Package entity describes the contract with the entity framework that
// presents sensors to users. The gateway only announces entities and pushes
// values; state storage and rendering belong to the framework.
package entity

// DefaultIcon is the icon every Torque sensor is shown with.
const DefaultIcon = "mdi:car"

// Entity is one sensor as announced to the framework.
type Entity struct {
	Identity string  `json:"identity"`
	Vehicle  string  `json:"vehicle"`
	Name     string  `json:"name"`
	Unit     *string `json:"unit,omitempty"`
	Icon     string  `json:"icon"`
}

// Sink receives registration and update events. Implementations must not call
// back into the sensor registry.
type Sink interface {
	// RegisterEntities announces a batch of new entities. Called at most once per request.
	RegisterEntities(batch []Entity)
	// PublishValue sets the current value of an already announced entity.
	PublishValue(identity, value string)
}
