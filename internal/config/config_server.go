package config

import (
	"fmt"
	"time"
)

// ServerAuth holds token issuance and account settings for the development
// server.
type ServerAuth struct {
	// TokenSignKey is the secret key used to sign session tokens.
	TokenSignKey string
	// TokenIssuer is the "iss" claim embedded in every issued token.
	TokenIssuer string
	// TokenDuration specifies how long a session token remains valid.
	TokenDuration time.Duration
	// AccountLogin is the login of the single configured dev account.
	AccountLogin string
	// AccountSecretHash is the bcrypt hash of the dev account secret.
	// Empty means any credentials are accepted.
	AccountSecretHash string
}

// ServerConfig is the top-level development server configuration assembled
// from [StructuredConfig].
type ServerConfig struct {
	// HTTPAddress is the listen address for the identity API and the
	// coordination websocket.
	HTTPAddress string
	// RequestTimeout bounds inbound HTTP requests.
	RequestTimeout time.Duration
	// Auth contains token issuance settings.
	Auth ServerAuth
}

// GetServerConfig builds and validates a server-specific config view from the
// merged structured configuration.
func GetServerConfig() (*ServerConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := &ServerConfig{
		HTTPAddress:    cfg.Server.HTTPAddress,
		RequestTimeout: cfg.Server.RequestTimeout,
		Auth: ServerAuth{
			TokenSignKey:      cfg.Auth.TokenSignKey,
			TokenIssuer:       cfg.Auth.TokenIssuer,
			TokenDuration:     cfg.Auth.TokenDuration,
			AccountLogin:      cfg.Auth.AccountLogin,
			AccountSecretHash: cfg.Auth.AccountSecretHash,
		},
	}

	return serverCfg, serverCfg.validate()
}
