// internal/torque/identity.go
package torque

import (
	"github.com/google/uuid"
)

// identityNamespace scopes entity ids generated by this gateway. Changing it
// renames every entity.
var identityNamespace = uuid.MustParse("5c3f6a0e-8a7b-4f1e-9a57-2f0d7f1b6e21")

// EntityName is the display name of a sensor of vehicle.
func EntityName(vehicle, name string) string {
	return vehicle + " " + name
}

// EntityIdentity derives the stable id of an entity, so the same sensor maps to
// the same entity after a restart. A missing unit is distinct from an empty one.
func EntityIdentity(vehicle, displayName string, unit *string) string {
	u := "None"
	if unit != nil {
		u = "'" + *unit + "'"
	}
	key := vehicle + "\x00" + displayName + "\x00" + u
	return uuid.NewSHA1(identityNamespace, []byte(key)).String()
}
