// This file contains the expected structure of incoming requests to the API. These structs are used to
// validate incoming requests, provide a consistent interface for handling requests, and to pass data to the
// appropriate handlers.

// Note that all structs are indepedent of the user email. This is because the email is extracted from the JWT token
// for every endpoint that requires authentication.

package common

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type DeleteUserRequest struct {
	Password string `json:"password" validate:"required"`
}

// UpdatePreferencesRequest replaces the stored preferences. A missing or null preferences field is rejected.
type UpdatePreferencesRequest struct {
	Preferences map[string]interface{} `json:"preferences" validate:"required"`
}

// UserInfo is the public view of a user returned by the API.
type UserInfo struct {
	Name        string                 `json:"name"`
	Email       string                 `json:"email"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AuthToken string   `json:"auth_token"`
	Info      UserInfo `json:"info"`
}
