package dto

import "time"

// Account is the transfer shape returned to callers of the account API.
type Account struct {
	ID        string    `json:"id"`
	Guest     bool      `json:"isGuest"`
	CreatedAt time.Time `json:"createdAt"`
}

// SignInRequest is the optional body of a guest sign-in call.
type SignInRequest struct {
	CorrelationToken string `json:"correlationToken,omitempty"`
}
