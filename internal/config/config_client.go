package config

import (
	"fmt"
	"time"
)

// ClientIdentity holds the identity service settings used by the client.
type ClientIdentity struct {
	// Address is the HTTP base URL of the identity service.
	Address string
	// Login is the account name used for the login request.
	Login string
	// Secret is the account secret used for the login request.
	Secret string
	// RequestTimeout bounds the login HTTP request.
	RequestTimeout time.Duration
}

// ClientCoordination holds the coordination service settings used by the client.
type ClientCoordination struct {
	// URL is the coordination websocket endpoint.
	URL string
	// DialTimeout bounds the websocket dial.
	DialTimeout time.Duration
}

// ClientConsole holds the interactive console settings used by the client.
type ClientConsole struct {
	// Prompt is the text shown before the editable input line.
	Prompt string
	// TickInterval is the cadence of the orchestrator polling loop.
	TickInterval time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// Identity contains login settings for the identity service.
	Identity ClientIdentity
	// Coordination contains coordination transport settings.
	Coordination ClientCoordination
	// Console contains interactive console settings.
	Console ClientConsole
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, and validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		Identity: ClientIdentity{
			Address:        cfg.Identity.Address,
			Login:          cfg.Identity.Login,
			Secret:         cfg.Identity.Secret,
			RequestTimeout: cfg.Identity.RequestTimeout,
		},
		Coordination: ClientCoordination{
			URL:         cfg.Coordination.URL,
			DialTimeout: cfg.Coordination.DialTimeout,
		},
		Console: ClientConsole{
			Prompt:       cfg.Client.Prompt,
			TickInterval: cfg.Client.TickInterval,
		},
	}

	return clientCfg, clientCfg.validate()
}
