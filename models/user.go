package models

// LoginRequest is the credential payload sent to the identity service.
type LoginRequest struct {
	// Login is the account name.
	Login string `json:"login"`

	// Secret is the account secret. Never logged.
	Secret string `json:"secret"`
}
