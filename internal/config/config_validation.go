package config

import "strings"

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
func (cfg *StructuredConfig) validate() error {
	if cfg.Client.TickInterval < 0 {
		return ErrInvalidClientConfigs
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Identity.Address == "" || cfg.Identity.RequestTimeout == 0 {
		return ErrInvalidIdentityConfigs
	}

	if cfg.Coordination.URL == "" || !hasWebsocketScheme(cfg.Coordination.URL) {
		return ErrInvalidCoordinationConfigs
	}

	if cfg.Console.Prompt == "" || cfg.Console.TickInterval <= 0 {
		return ErrInvalidClientConfigs
	}

	return nil
}

func (cfg *ServerConfig) validate() error {
	if cfg.HTTPAddress == "" || cfg.RequestTimeout == 0 {
		return ErrInvalidServerConfigs
	}

	if cfg.Auth.TokenSignKey == "" || cfg.Auth.TokenIssuer == "" || cfg.Auth.TokenDuration == 0 {
		return ErrInvalidAuthConfigs
	}

	return nil
}

func hasWebsocketScheme(url string) bool {
	return strings.HasPrefix(url, "ws://") || strings.HasPrefix(url, "wss://")
}
