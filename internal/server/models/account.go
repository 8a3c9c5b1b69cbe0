// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a row of the account table. Nullable columns are pointers.
type Account struct {
	ID                  int64
	Username            string
	HashedPassword      string
	HashSalt            string
	IsVerified          bool
	IsActive            bool
	IsLoggedIn          bool
	FailedLoginAttempts int
	FailedOTPAttempts   int
	BanUntil            *time.Time
	DeviceUUID          *string
	Profile             Profile
	CreatedAt           time.Time
	UpdatedAt           *time.Time
}

// Profile holds pass-through attributes the service stores but never
// interprets.
type Profile struct {
	Email     *string
	FirstName *string
	LastName  *string
	County    *string
	Sex       *string
	FCMToken  *string
}

// IsBanned reports whether BanUntil lies after now.
func (a *Account) IsBanned(now time.Time) bool {
	return a.BanUntil != nil && a.BanUntil.After(now)
}

// Device returns the bound device id, or "" when none is bound.
func (a *Account) Device() string {
	if a.DeviceUUID == nil {
		return ""
	}
	return *a.DeviceUUID
}
