package config

import "errors"

// Validation errors returned by the config views when required configuration
// groups are incomplete or invalid.
var (
	// ErrInvalidIdentityConfigs indicates invalid identity service settings
	// (for example, missing address or zero request timeout).
	ErrInvalidIdentityConfigs = errors.New("invalid identity configuration")
	// ErrInvalidCoordinationConfigs indicates invalid coordination settings
	// (for example, a URL without a ws:// or wss:// scheme).
	ErrInvalidCoordinationConfigs = errors.New("invalid coordination configuration")
	// ErrInvalidClientConfigs indicates invalid console settings
	// (for example, an empty prompt or non-positive tick interval).
	ErrInvalidClientConfigs = errors.New("invalid client configuration")
	// ErrInvalidServerConfigs indicates invalid development server settings.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidAuthConfigs indicates invalid token issuance settings.
	ErrInvalidAuthConfigs = errors.New("invalid auth configuration")
)
