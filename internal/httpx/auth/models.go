package auth

import "time"

// TokenResponse represents an access token response
// swagger:model TokenResponse
type TokenResponse struct {
	AccessToken string `json:"access_token" example:"<JWT>"`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int    `json:"expires_in" example:"900"`
	AccountID   string `json:"account_id" example:"8a0d1b7c-..."`
}

// LoginRequest represents the password login request body
// swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"Secretp@ssw0rd"`
}

// RegisterRequest represents the registration request body
// swagger:model RegisterRequest
type RegisterRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"Secretp@ssw0rd"`
	Name     string `json:"name" example:"Alice"`
}

// AccountResponse is the public view of an account
// swagger:model AccountResponse
type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status" example:"ACTIVE"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateAccountRequest is the body of an account update
// swagger:model UpdateAccountRequest
type UpdateAccountRequest struct {
	Name string `json:"name" example:"Alice"`
}
