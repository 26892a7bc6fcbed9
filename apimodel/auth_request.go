package apimodel

// LoginRequest is the body sent to POST /auth/login/.
type LoginRequest struct {
	// Email is the account identifier.
	// Required: Yes
	// Example: "a@x.com"
	Email string `json:"email"`

	// Password is the account secret.
	// Required: Yes
	// Security: Never log or expose this value
	Password string `json:"password"`
}

// RefreshRequest is the body sent to POST /auth/token/refresh/.
type RefreshRequest struct {
	// Refresh is the long-lived credential exchanged for a new access token.
	// Required: Yes
	// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."
	Refresh string `json:"refresh"`
}

// LogoutRequest is the body sent to POST /auth/logout/. The server blacklists the
// refresh credential; the call itself must carry the bearer access token.
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}
