package apimodel

import (
	"strings"
)

var registerMessages = Messages{
	"first_name.max": "first_name cannot exceed 50 characters.",
	"first_name":     "first_name must have at least 2 characters.",
	"last_name.max":  "last_name cannot exceed 50 characters.",
	"last_name":      "last_name must have at least 2 characters.",
	"email.required": "Email is required.",
	"email":          "Enter a valid email address.",
	"password.min":   "Password must be at least 6 characters long.",
	"password":       "Password is required.",
}

// RegisterRequest is the body sent to POST /auth/register/.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `json:"last_name" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

// Validate applies the same field rules as the API so obvious mistakes are reported
// without a round trip. It returns nil or a *FieldErrors.
func (r *RegisterRequest) Validate() error {
	trimmed := *r
	trimmed.FirstName = strings.TrimSpace(r.FirstName)
	trimmed.LastName = strings.TrimSpace(r.LastName)
	trimmed.Email = strings.TrimSpace(r.Email)
	return ValidateStruct(&trimmed, registerMessages)
}
