// Package authtoken signs and verifies the bearer tokens that carry a user's
// identity and role between requests. Tokens are HMAC-SHA256 JWTs; the
// cryptographic primitives are delegated to github.com/golang-jwt/jwt.
package authtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long a token stays valid unless it was issued with
// rememberMe, in which case it never expires.
const TokenTTL = 4 * time.Hour

// Role is the ordinal account role. Higher values grant strictly more access.
type Role int

const (
	RoleUser Role = iota
	RoleTeacher
	RoleModerator
	RoleAdmin
)

var roleNames = []string{"User", "Teacher", "Moderator", "Admin"}

// String returns the display name of the role.
func (r Role) String() string {
	if r < RoleUser || int(r) >= len(roleNames) {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// Payload is the identity encoded into an access token. It is produced by
// Codec.Verify and consumed read-only by the pipeline's authorization check
// and by endpoint logic.
type Payload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Verified bool   `json:"verified"`
}

// claims wraps Payload with the registered JWT claims used for expiry.
type claims struct {
	Payload
	jwt.RegisteredClaims
}

// ErrInvalidToken is returned by Verify for any token that fails
// verification: bad signature, malformed structure or expiry. The
// underlying cause is wrapped.
var ErrInvalidToken = errors.New("invalid access token")

// Codec signs and verifies access tokens with a server secret.
type Codec struct {
	secret []byte
}

// NewCodec creates a Codec signing with the given secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("authtoken: empty signing secret")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Generate signs the payload. The token expires after TokenTTL unless
// rememberMe is set, in which case no expiry claim is written.
func (c *Codec) Generate(payload Payload, rememberMe bool) (string, error) {
	now := time.Now()
	cl := claims{
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if !rememberMe {
		cl.ExpiresAt = jwt.NewNumericDate(now.Add(TokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("authtoken: signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns the decoded
// payload. Any failure is reported as ErrInvalidToken; callers translate it
// to an HTTP 401 and must not surface the wrapped cause to clients.
func (c *Codec) Verify(tokenString string) (Payload, error) {
	if tokenString == "" {
		return Payload{}, ErrInvalidToken
	}

	var cl claims
	_, err := jwt.ParseWithClaims(tokenString, &cl, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return cl.Payload, nil
}
