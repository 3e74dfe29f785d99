package auth

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tester-platform/tester/pkg/authtoken"
	"github.com/tester-platform/tester/pkg/store"
)

// capturingMailer records every message instead of delivering it.
type capturingMailer struct {
	mu       sync.Mutex
	messages []capturedMail
}

type capturedMail struct {
	To      string
	Subject string
	HTML    string
}

func (m *capturingMailer) Send(to, subject, _ string, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, capturedMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *capturingMailer) last(t *testing.T) capturedMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.messages, "expected at least one mail")
	return m.messages[len(m.messages)-1]
}

func newTestService(t *testing.T) (*Service, *capturingMailer) {
	t.Helper()

	tokens, err := authtoken.NewCodec("auth-test-secret")
	require.NoError(t, err)

	mailer := &capturingMailer{}
	return NewService(store.NewMemory[User](), tokens, mailer, zap.NewNop()), mailer
}

func register(t *testing.T, s *Service) User {
	t.Helper()

	user, err := s.Register(context.Background(), RegisterOptions{
		Email:          "bob@example.com",
		Username:       "bob",
		Password:       "hunter22",
		LocationOrigin: "https://tester.example",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	s, mailer := newTestService(t)

	user := register(t, s)

	assert.Len(t, user.ID, 24)
	assert.Equal(t, authtoken.RoleUser, user.Role)
	assert.False(t, user.Verified)
	assert.NotEmpty(t, user.VerifyToken)
	assert.NotEqual(t, "hunter22", user.Password, "password must be stored hashed")
	assert.False(t, user.CreatedAt.IsZero())

	mail := mailer.last(t)
	assert.Equal(t, "bob@example.com", mail.To)
	assert.Contains(t, mail.HTML, "/verifyEmail?token="+user.VerifyToken)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s, _ := newTestService(t)
	register(t, s)

	_, err := s.Register(context.Background(), RegisterOptions{
		Email:    "bob@example.com",
		Username: "somebody-else",
		Password: "hunter22",
	})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = s.Register(context.Background(), RegisterOptions{
		Email:    "other@example.com",
		Username: "bob",
		Password: "hunter22",
	})
	assert.ErrorIs(t, err, ErrUserExists, "usernames are unique too")
}

func TestLogin(t *testing.T) {
	s, _ := newTestService(t)
	user := register(t, s)

	// Login works regardless of verification; the endpoint decides what
	// an unverified account may do.
	result := s.Login(context.Background(), "bob@example.com", "hunter22", false)
	require.True(t, result.Status)
	assert.False(t, result.Errored)
	assert.NotEmpty(t, result.Token)
	require.NotNil(t, result.Payload)
	assert.Equal(t, user.ID, result.Payload.ID)
	assert.False(t, result.Payload.Verified)
}

func TestLoginWrongPassword(t *testing.T) {
	s, _ := newTestService(t)
	register(t, s)

	result := s.Login(context.Background(), "bob@example.com", "wrong", false)
	assert.False(t, result.Status)
	assert.False(t, result.Errored, "wrong password is not an internal error")
	assert.Empty(t, result.Token)
}

func TestLoginUnknownUser(t *testing.T) {
	s, _ := newTestService(t)

	result := s.Login(context.Background(), "nobody@example.com", "whatever", false)
	assert.False(t, result.Status)
	assert.False(t, result.Errored)
}

func TestVerifyUser(t *testing.T) {
	s, mailer := newTestService(t)
	user := register(t, s)

	ok, err := s.VerifyUser(context.Background(), user.VerifyToken, "https://tester.example")
	require.NoError(t, err)
	require.True(t, ok)

	stored, found, err := s.GetUser(context.Background(), func(u User) bool { return u.ID == user.ID })
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, stored.Verified)
	assert.Empty(t, stored.VerifyToken, "token must be single-use")

	mail := mailer.last(t)
	assert.Contains(t, mail.Subject, "activated")

	// The token cannot be replayed.
	ok, err = s.VerifyUser(context.Background(), user.VerifyToken, "https://tester.example")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyUserRejectsEmptyAndUnknownTokens(t *testing.T) {
	s, _ := newTestService(t)
	register(t, s)

	ok, err := s.VerifyUser(context.Background(), "", "https://tester.example")
	require.NoError(t, err)
	assert.False(t, ok, "an empty token must never match")

	ok, err = s.VerifyUser(context.Background(), "no-such-token", "https://tester.example")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRequestPasswordReset(t *testing.T) {
	s, mailer := newTestService(t)
	register(t, s)

	result, err := s.RequestPasswordReset(context.Background(), "bob@example.com", "https://tester.example")
	require.NoError(t, err)
	require.True(t, result.Status)
	assert.NotEmpty(t, result.Token)
	assert.False(t, result.AlreadySent)

	mail := mailer.last(t)
	assert.Contains(t, mail.HTML, "/resetPassword?token="+result.Token)

	// A repeat request returns the same token without another mail.
	sent := len(mailer.messages)
	again, err := s.RequestPasswordReset(context.Background(), "bob@example.com", "https://tester.example")
	require.NoError(t, err)
	assert.False(t, again.Status)
	assert.True(t, again.AlreadySent)
	assert.Equal(t, result.Token, again.Token)
	assert.Len(t, mailer.messages, sent)
}

func TestRequestPasswordResetUnknownUser(t *testing.T) {
	s, _ := newTestService(t)

	result, err := s.RequestPasswordReset(context.Background(), "nobody@example.com", "https://tester.example")
	require.NoError(t, err)
	assert.False(t, result.Status)
	assert.Empty(t, result.Token)
}

func TestResetPassword(t *testing.T) {
	s, mailer := newTestService(t)
	register(t, s)

	request, err := s.RequestPasswordReset(context.Background(), "bob@example.com", "https://tester.example")
	require.NoError(t, err)

	result, err := s.ResetPassword(context.Background(), request.Token, "new-password", "192.0.2.1", "curl/8.0")
	require.NoError(t, err)
	require.True(t, result.Status)

	mail := mailer.last(t)
	assert.Contains(t, mail.HTML, "192.0.2.1")
	assert.Contains(t, mail.HTML, "curl/8.0")

	// Old password no longer works, new one does.
	assert.False(t, s.Login(context.Background(), "bob@example.com", "hunter22", false).Status)
	assert.True(t, s.Login(context.Background(), "bob@example.com", "new-password", false).Status)

	// The token was consumed.
	again, err := s.ResetPassword(context.Background(), request.Token, "another", "192.0.2.1", "curl/8.0")
	require.NoError(t, err)
	assert.True(t, again.TokenInvalid)
}

func TestResetPasswordRejectsSamePassword(t *testing.T) {
	s, _ := newTestService(t)
	register(t, s)

	request, err := s.RequestPasswordReset(context.Background(), "bob@example.com", "https://tester.example")
	require.NoError(t, err)

	result, err := s.ResetPassword(context.Background(), request.Token, "hunter22", "192.0.2.1", "curl/8.0")
	require.NoError(t, err)
	assert.False(t, result.Status)
	assert.True(t, result.SamePassword)
	assert.False(t, result.TokenInvalid)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	s, _ := newTestService(t)

	for _, token := range []string{"", "bogus"} {
		result, err := s.ResetPassword(context.Background(), token, "whatever", "192.0.2.1", "curl/8.0")
		require.NoError(t, err)
		assert.True(t, result.TokenInvalid, "token %q", token)
	}
}

func TestGetUserSansPassword(t *testing.T) {
	s, _ := newTestService(t)
	user := register(t, s)

	got, found, err := s.GetUserSansPassword(context.Background(), func(u User) bool {
		return u.Email == "bob@example.com"
	})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, got.Password)
}

func TestUserSansPasswordDoesNotMutate(t *testing.T) {
	u := User{ID: "x", Password: "hash"}
	stripped := u.SansPassword()

	assert.Empty(t, stripped.Password)
	assert.Equal(t, "hash", u.Password)
	assert.True(t, strings.HasPrefix(u.ID, "x"))
}
