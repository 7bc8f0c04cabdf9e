package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for parley.
// It aggregates all sub-configurations and is populated by merging values
// from environment variables, command-line flags, an optional JSON file,
// and built-in defaults.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Identity holds settings for the identity (authentication) service the
	// client logs into before any coordination traffic is possible.
	Identity Identity `envPrefix:"IDENTITY_"`

	// Coordination holds settings for the room-coordination service.
	Coordination Coordination `envPrefix:"COORDINATION_"`

	// Client holds interactive-console settings (prompt text, tick cadence).
	Client Client `envPrefix:"CLIENT_"`

	// Auth holds token issuance settings used by the development server and
	// shared with the client for issuer validation.
	Auth Auth `envPrefix:"AUTH_"`

	// Server holds network settings for the development server (parleyd).
	Server Server `envPrefix:"SERVER_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged with the values already
	// loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Identity holds connection and credential settings for the identity service.
type Identity struct {
	// Address is the HTTP base URL of the identity service
	// (e.g. "http://127.0.0.1:27004").
	// Env: IDENTITY_ADDRESS
	Address string `env:"ADDRESS"`

	// Login is the account name used for the login request.
	// Env: IDENTITY_LOGIN
	Login string `env:"LOGIN"`

	// Secret is the account secret used for the login request.
	// Env: IDENTITY_SECRET
	Secret string `env:"SECRET"`

	// RequestTimeout bounds the login HTTP request.
	// Env: IDENTITY_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Coordination holds connection settings for the room-coordination service.
type Coordination struct {
	// URL is the websocket endpoint of the coordination service
	// (e.g. "ws://127.0.0.1:27004/ws").
	// Env: COORDINATION_URL
	URL string `env:"URL"`

	// DialTimeout bounds the websocket dial.
	// Env: COORDINATION_DIAL_TIMEOUT
	DialTimeout time.Duration `env:"DIAL_TIMEOUT"`
}

// Client holds interactive console settings.
type Client struct {
	// Prompt is the text shown before the editable input line.
	// Env: CLIENT_PROMPT
	Prompt string `env:"PROMPT"`

	// TickInterval is the cadence of the orchestrator polling loop.
	// Env: CLIENT_TICK_INTERVAL
	TickInterval time.Duration `env:"TICK_INTERVAL"`
}

// Auth holds JWT issuance settings.
type Auth struct {
	// TokenSignKey is the secret key used to sign and verify session tokens.
	// Env: AUTH_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim embedded in every issued token.
	// Env: AUTH_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration specifies how long a session token remains valid after
	// issuance (e.g. "1h", "30m").
	// Env: AUTH_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// AccountLogin and AccountSecretHash describe the single account the
	// development server authenticates. AccountSecretHash is a bcrypt hash;
	// when empty the server accepts any credentials (development mode).
	// Env: AUTH_ACCOUNT_LOGIN, AUTH_ACCOUNT_SECRET_HASH
	AccountLogin      string `env:"ACCOUNT_LOGIN"`
	AccountSecretHash string `env:"ACCOUNT_SECRET_HASH"`
}

// Server holds network and timeout settings for the development server.
type Server struct {
	// HTTPAddress is the TCP address on which the development server
	// listens, in "host:port" format (e.g. "127.0.0.1:27004").
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the maximum duration allowed for a single inbound
	// request before the server cancels it.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources. Sources are merged in order;
// the first non-zero value for a field wins, with built-in defaults filling
// whatever remains unset:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Defaults
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}
