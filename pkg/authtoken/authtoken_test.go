package authtoken

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	c, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return c
}

func TestNewCodecRejectsEmptySecret(t *testing.T) {
	if _, err := NewCodec(""); err == nil {
		t.Fatal("expected an error for an empty secret")
	}
}

func TestGenerateVerifyRoundtrip(t *testing.T) {
	c := newTestCodec(t)

	payload := Payload{
		ID:       "user-1",
		Username: "bob",
		Email:    "bob@example.com",
		Role:     RoleTeacher,
		Verified: true,
	}

	token, err := c.Generate(payload, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	decoded, err := c.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if decoded != payload {
		t.Fatalf("payload mismatch: %+v != %+v", decoded, payload)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	c := newTestCodec(t)
	other, _ := NewCodec("other-secret")

	token, err := other.Generate(Payload{ID: "user-1"}, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := c.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	c := newTestCodec(t)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := c.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	c := newTestCodec(t)

	expired := claims{
		Payload: Payload{ID: "user-1"},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * TokenTTL)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString(c.secret)
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	if _, err := c.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsUnexpectedSigningMethod(t *testing.T) {
	c := newTestCodec(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{Payload: Payload{ID: "user-1"}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	if _, err := c.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}

func TestRememberMeTokenHasNoExpiry(t *testing.T) {
	c := newTestCodec(t)

	token, err := c.Generate(Payload{ID: "user-1"}, true)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var cl claims
	if _, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cl.ExpiresAt != nil {
		t.Fatal("rememberMe tokens must not carry an expiry claim")
	}
}

func TestRoleOrderingAndNames(t *testing.T) {
	if !(RoleUser < RoleTeacher && RoleTeacher < RoleModerator && RoleModerator < RoleAdmin) {
		t.Fatal("role ordinals must be strictly increasing")
	}

	names := map[Role]string{
		RoleUser:      "User",
		RoleTeacher:   "Teacher",
		RoleModerator: "Moderator",
		RoleAdmin:     "Admin",
	}
	for role, want := range names {
		if got := role.String(); got != want {
			t.Errorf("Role(%d).String(): expected %q, got %q", int(role), want, got)
		}
	}

	if got := Role(42).String(); got != "Role(42)" {
		t.Errorf("out-of-range role: got %q", got)
	}
}
