package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] with JSON tags and a
// string-friendly Duration type so config files can use values like "16ms".
type StructuredJSONConfig struct {
	Identity struct {
		Address        string   `json:"address"`
		Login          string   `json:"login"`
		Secret         string   `json:"secret"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"identity,omitempty"`

	Coordination struct {
		URL         string   `json:"url"`
		DialTimeout Duration `json:"dial_timeout"`
	} `json:"coordination,omitempty"`

	Client struct {
		Prompt       string   `json:"prompt"`
		TickInterval Duration `json:"tick_interval"`
	} `json:"client,omitempty"`

	Auth struct {
		TokenSignKey      string   `json:"token_sign_key"`
		TokenIssuer       string   `json:"token_issuer"`
		TokenDuration     Duration `json:"token_duration"`
		AccountLogin      string   `json:"account_login"`
		AccountSecretHash string   `json:"account_secret_hash"`
	} `json:"auth,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Identity: Identity{
			Address:        jsonCfg.Identity.Address,
			Login:          jsonCfg.Identity.Login,
			Secret:         jsonCfg.Identity.Secret,
			RequestTimeout: time.Duration(jsonCfg.Identity.RequestTimeout),
		},
		Coordination: Coordination{
			URL:         jsonCfg.Coordination.URL,
			DialTimeout: time.Duration(jsonCfg.Coordination.DialTimeout),
		},
		Client: Client{
			Prompt:       jsonCfg.Client.Prompt,
			TickInterval: time.Duration(jsonCfg.Client.TickInterval),
		},
		Auth: Auth{
			TokenSignKey:      jsonCfg.Auth.TokenSignKey,
			TokenIssuer:       jsonCfg.Auth.TokenIssuer,
			TokenDuration:     time.Duration(jsonCfg.Auth.TokenDuration),
			AccountLogin:      jsonCfg.Auth.AccountLogin,
			AccountSecretHash: jsonCfg.Auth.AccountSecretHash,
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
