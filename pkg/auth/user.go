// Package auth implements account management: registration, login,
// email verification and password resets.
package auth

import (
	"time"

	"github.com/tester-platform/tester/pkg/authtoken"
)

// User is a registered account.
type User struct {
	ID                 string         `json:"id"`
	Username           string         `json:"username"`
	Email              string         `json:"email"`
	FirstName          string         `json:"firstName,omitempty"`
	LastName           string         `json:"lastName,omitempty"`
	Password           string         `json:"password,omitempty"`
	Role               authtoken.Role `json:"role"`
	Verified           bool           `json:"verified"`
	VerifyToken        string         `json:"verifyToken,omitempty"`
	PasswordResetToken string         `json:"passwordResetToken,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// SansPassword returns a copy of the user with the password hash removed,
// safe to return to clients.
func (u User) SansPassword() User {
	u.Password = ""
	return u
}

// TokenPayload builds the access token payload for the user.
func (u User) TokenPayload() authtoken.Payload {
	return authtoken.Payload{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Verified: u.Verified,
	}
}
