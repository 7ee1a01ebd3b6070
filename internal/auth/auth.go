// internal/auth/auth.go
package auth

import (
	"crypto/subtle"
	"net/url"

	"vroom-gateway/internal/data"
)

// SharedSecret is the e-mail a Torque client must send to be accepted.
type SharedSecret struct {
	email string
}

// NewSharedSecret returns a check for email. An empty email accepts everyone.
func NewSharedSecret(email string) SharedSecret {
	return SharedSecret{email: email}
}

func (s SharedSecret) Enabled() bool { return s.email != "" }

func (s SharedSecret) Email() string { return s.email }

// Allow reports whether query carries the configured e-mail. A missing field
// is a mismatch.
func (s SharedSecret) Allow(query url.Values) bool {
	if !s.Enabled() {
		return true
	}
	submitted, ok := query[data.EmailField]
	if !ok || len(submitted) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted[0]), []byte(s.email)) == 1
}
