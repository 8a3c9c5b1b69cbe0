// Package models defines the API payloads the gophauth CLI exchanges with
// the server.
package models

import "time"

// Account is the account view returned by the server.
type Account struct {
	Token      string     `json:"token,omitempty"`
	Username   string     `json:"username"`
	IsVerified bool       `json:"isVerified"`
	IsActive   bool       `json:"isActive"`
	IsLoggedIn bool       `json:"isLoggedIn"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

// AccountInResponse pairs an account with its numeric id.
type AccountInResponse struct {
	ID                int64   `json:"id"`
	AuthorizedAccount Account `json:"authorizedAccount"`
}

// Session is the result of a successful signin.
type Session struct {
	AccessToken string            `json:"accessToken"`
	TokenType   string            `json:"tokenType"`
	Account     AccountInResponse `json:"account"`
}

// Notification carries a human readable confirmation.
type Notification struct {
	Notification string `json:"notification"`
}

// AccountUpdate lists the fields to change; nil fields are left as is.
type AccountUpdate struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}
