package session

import "fmt"

// AuthMethod selects how the handshake authenticates the user on the
// target device.
type AuthMethod string

const (
	AuthPassword   AuthMethod = "password"
	AuthPrivateKey AuthMethod = "privateKey"
)

// Dimensions is a terminal size in character cells.
type Dimensions struct {
	Cols uint16
	Rows uint16
}

// Params carries everything needed for one connection attempt. It is built
// from login form state, consumed once by Open, and never persisted.
type Params struct {
	DeviceID   string
	Username   string
	AuthMethod AuthMethod
	// Secret is the password or the private key material, per AuthMethod.
	Secret string
	Dims   Dimensions
}

// ValidationError reports login fields that cannot form a handshake
// request. It is returned before any network call is made and is never
// retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks that the parameters can form a handshake request.
func (p Params) Validate() error {
	if p.DeviceID == "" {
		return &ValidationError{Field: "deviceId", Reason: "must not be empty"}
	}
	if p.Username == "" {
		return &ValidationError{Field: "username", Reason: "must not be empty"}
	}
	switch p.AuthMethod {
	case AuthPassword:
		if p.Secret == "" {
			return &ValidationError{Field: "secret", Reason: "password auth requires a password"}
		}
	case AuthPrivateKey:
		if p.Secret == "" {
			return &ValidationError{Field: "secret", Reason: "private key auth requires key material"}
		}
	default:
		return &ValidationError{Field: "authMethod", Reason: fmt.Sprintf("unknown method %q", p.AuthMethod)}
	}
	if p.Dims.Cols == 0 || p.Dims.Rows == 0 {
		return &ValidationError{Field: "dimensions", Reason: "cols and rows must be positive"}
	}
	return nil
}
