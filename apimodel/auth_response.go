package apimodel

import "github.com/jrsteele09/weeb-client/users"

// LoginResponse is returned by POST /auth/login/.
type LoginResponse struct {
	// Access is the short-lived bearer token used to call protected endpoints.
	// Usage: Include in Authorization header: "Bearer <access>"
	// Lifespan: Short-lived, held in memory only
	Access string `json:"access"`

	// Refresh is exchanged for new access tokens at /auth/token/refresh/.
	// Lifespan: Long-lived, persisted in durable storage
	Refresh string `json:"refresh"`

	// User is the profile of the authenticated account.
	User *users.Profile `json:"user"`
}

// RefreshResponse is returned by POST /auth/token/refresh/.
type RefreshResponse struct {
	// Access is the renewed access token.
	Access string `json:"access"`

	// Refresh is only present when the server rotates refresh credentials.
	// Behavior: Optional; when empty the previous refresh credential stays valid
	Refresh string `json:"refresh,omitempty"`
}

// DetailResponse is the generic {"detail": "..."} body the API uses for errors and
// acknowledgements.
type DetailResponse struct {
	Detail string `json:"detail,omitempty"`
	Code   string `json:"code,omitempty"`
}
