package config

import "time"

// Default endpoints mirror the local development server: parleyd serves the
// identity API and the coordination websocket on the same address.
const (
	DefaultServerAddress   = "127.0.0.1:27004"
	DefaultIdentityAddress = "http://127.0.0.1:27004"
	DefaultCoordinationURL = "ws://127.0.0.1:27004/ws"

	// DefaultTickInterval keeps the console responsive to keystrokes
	// without busy-spinning.
	DefaultTickInterval = 16 * time.Millisecond

	DefaultPrompt = "parley> "
)

func defaults() *StructuredConfig {
	return &StructuredConfig{
		Identity: Identity{
			Address:        DefaultIdentityAddress,
			Login:          "dev",
			Secret:         "dev",
			RequestTimeout: 15 * time.Second,
		},
		Coordination: Coordination{
			URL:         DefaultCoordinationURL,
			DialTimeout: 10 * time.Second,
		},
		Client: Client{
			Prompt:       DefaultPrompt,
			TickInterval: DefaultTickInterval,
		},
		Auth: Auth{
			TokenSignKey:  "dev-sign-key",
			TokenIssuer:   "parleyd",
			TokenDuration: time.Hour,
		},
		Server: Server{
			HTTPAddress:    DefaultServerAddress,
			RequestTimeout: 30 * time.Second,
		},
	}
}
