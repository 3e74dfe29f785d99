package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tester-platform/tester/pkg/authtoken"
	"github.com/tester-platform/tester/pkg/keygen"
	"github.com/tester-platform/tester/pkg/mail"
	"github.com/tester-platform/tester/pkg/store"
)

const (
	bcryptCost = 10
	userIDLen  = 24
	authKeyLen = 64
)

// ErrUserExists is returned by Register when the email or username is
// already taken.
var ErrUserExists = errors.New("auth: user already exists")

// Service implements the account operations on top of a user collection.
type Service struct {
	users  store.Collection[User]
	tokens *authtoken.Codec
	mailer mail.Sender
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an auth Service.
func NewService(users store.Collection[User], tokens *authtoken.Codec, mailer mail.Sender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		logger: logger.Named("auth"),
		now:    time.Now,
	}
}

// Users exposes the underlying collection, used by maintenance endpoints.
func (s *Service) Users() store.Collection[User] { return s.users }

// RegisterOptions are the inputs to Register.
type RegisterOptions struct {
	Email          string
	Username       string
	Password       string
	FirstName      string
	LastName       string
	LocationOrigin string
}

// Register creates a new unverified account and emails an activation link.
func (s *Service) Register(ctx context.Context, opts RegisterOptions) (User, error) {
	_, exists, err := s.users.FindOne(ctx, func(u User) bool {
		return u.Email == opts.Email || u.Username == opts.Username
	})
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcryptCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:          keygen.Sequence(userIDLen, keygen.Options{UseLetters: true}),
		Username:    opts.Username,
		Email:       opts.Email,
		FirstName:   opts.FirstName,
		LastName:    opts.LastName,
		Password:    string(hashed),
		Role:        authtoken.RoleUser,
		Verified:    false,
		VerifyToken: keygen.Sequence(authKeyLen, keygen.Options{UseLetters: true}),
		CreatedAt:   s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return User{}, err
	}

	verifyLink := fmt.Sprintf("%s/verifyEmail?token=%s", opts.LocationOrigin, user.VerifyToken)
	if err := s.mailer.Send(user.Email,
		fmt.Sprintf("Account activation %s [%s]", user.Username, user.Email),
		"Follow the instructions in this message to activate your account.",
		fmt.Sprintf(`<h1>Account activation</h1><br>
			<p>This email address was used to register the account <b>%s [%s]</b>
			at <a href="%s">%s</a>.</p><br><br>
			<p>To activate your account, follow the link below:</p><br>
			<b><a href="%s">%s</a></b><br><br>
			<footer style="font-size: 8px">
				If you did not register an account on this site, just ignore this message.
			</footer>`,
			user.Username, user.Email, opts.LocationOrigin, opts.LocationOrigin, verifyLink, verifyLink),
	); err != nil {
		s.logger.Error("failed to send activation mail",
			zap.String("email", user.Email),
			zap.Error(err),
		)
	}

	return user, nil
}

// LoginResult is the outcome of a login attempt. Errored distinguishes an
// internal failure from plain invalid credentials.
type LoginResult struct {
	Status  bool
	Errored bool
	Token   string
	Payload *authtoken.Payload
}

// Login checks the credentials and, on success, issues an access token.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) LoginResult {
	user, found, err := s.users.FindOne(ctx, func(u User) bool {
		return u.Email == email
	})
	if err != nil {
		s.logger.Error("login lookup failed", zap.Error(err))
		return LoginResult{Errored: true}
	}

	if !found {
		// Run the comparison anyway so existing and unknown accounts take
		// the same time to reject.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinv"), []byte(password))
		return LoginResult{}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return LoginResult{}
	}

	payload := user.TokenPayload()
	token, err := s.tokens.Generate(payload, rememberMe)
	if err != nil {
		s.logger.Error("token generation failed", zap.Error(err))
		return LoginResult{Errored: true}
	}

	return LoginResult{
		Status:  true,
		Token:   token,
		Payload: &payload,
	}
}

// GetUser returns the first user matching the filter.
func (s *Service) GetUser(ctx context.Context, filter store.Filter[User]) (User, bool, error) {
	return s.users.FindOne(ctx, filter)
}

// GetUserSansPassword returns the first matching user with the password
// hash removed.
func (s *Service) GetUserSansPassword(ctx context.Context, filter store.Filter[User]) (User, bool, error) {
	user, found, err := s.users.FindOne(ctx, filter)
	if err != nil || !found {
		return User{}, found, err
	}
	return user.SansPassword(), true, nil
}

// VerifyUser marks the account holding the verification token as verified
// and sends a confirmation mail. Returns false for an unknown token.
func (s *Service) VerifyUser(ctx context.Context, verifyToken, locationOrigin string) (bool, error) {
	if verifyToken == "" {
		return false, nil
	}

	user, found, err := s.users.UpdateOne(ctx, func(u User) bool {
		return u.VerifyToken == verifyToken
	}, func(u User) User {
		u.Verified = true
		u.VerifyToken = ""
		return u
	})
	if err != nil || !found {
		return false, err
	}

	if err := s.mailer.Send(user.Email,
		fmt.Sprintf("Account %s [%s] activated!", user.Username, user.Email),
		"Your account has been activated.",
		fmt.Sprintf(`<h1>Account activated!</h1><br>
			<p>Thank you for activating your account <b>%s [%s]</b> at <b>%s</b>.</p><br><br>
			<p>You can now <a href="%s/login">log in</a> and use all the services of the platform.</p><br><br>
			<footer style="font-size: 8px">
				This message was sent automatically. There is no need to reply.
			</footer>`,
			user.Username, user.Email, locationOrigin, locationOrigin),
	); err != nil {
		s.logger.Error("failed to send verification confirmation mail",
			zap.String("email", user.Email),
			zap.Error(err),
		)
	}

	return true, nil
}

// PasswordResetRequest is the outcome of RequestPasswordReset.
type PasswordResetRequest struct {
	Status      bool
	Token       string
	AlreadySent bool
}

// RequestPasswordReset issues a password reset token for the account and
// emails a reset link. A repeated request returns the existing token
// without sending another mail.
func (s *Service) RequestPasswordReset(ctx context.Context, email, locationOrigin string) (PasswordResetRequest, error) {
	user, found, err := s.users.FindOne(ctx, func(u User) bool {
		return u.Email == email
	})
	if err != nil {
		return PasswordResetRequest{}, err
	}
	if !found {
		return PasswordResetRequest{}, nil
	}

	if user.PasswordResetToken != "" {
		return PasswordResetRequest{
			Token:       user.PasswordResetToken,
			AlreadySent: true,
		}, nil
	}

	token := keygen.Sequence(authKeyLen, keygen.Options{UseLetters: true})
	if _, _, err := s.users.UpdateOne(ctx, func(u User) bool {
		return u.Email == email
	}, func(u User) User {
		u.PasswordResetToken = token
		return u
	}); err != nil {
		return PasswordResetRequest{}, err
	}

	resetLink := fmt.Sprintf("%s/resetPassword?token=%s", locationOrigin, token)
	if err := s.mailer.Send(email,
		fmt.Sprintf("Password reset %s [%s]", user.Username, email),
		"Follow the instructions in this message to reset your account password.",
		fmt.Sprintf(`<h1>Account password reset</h1><br>
			<p>This email address was used to request a password reset for the account
			<b>%s [%s]</b> at <a href="%s">%s</a>.</p><br><br>
			<p>To start the password reset procedure, follow the link below:</p><br>
			<b><a href="%s">%s</a></b><br><br>
			<footer style="font-size: 8px">
				If you did not request a password reset on this site, just ignore this message.
			</footer>`,
			user.Username, email, locationOrigin, locationOrigin, resetLink, resetLink),
	); err != nil {
		s.logger.Error("failed to send password reset mail",
			zap.String("email", email),
			zap.Error(err),
		)
	}

	return PasswordResetRequest{Status: true, Token: token}, nil
}

// PasswordResetResult is the outcome of ResetPassword.
type PasswordResetResult struct {
	Status       bool
	TokenInvalid bool
	SamePassword bool
}

// ResetPassword changes the password of the account holding the reset
// token and sends a notification mail naming the requesting client.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword, ip, userAgent string) (PasswordResetResult, error) {
	if resetToken == "" {
		return PasswordResetResult{TokenInvalid: true}, nil
	}

	user, found, err := s.users.FindOne(ctx, func(u User) bool {
		return u.PasswordResetToken == resetToken
	})
	if err != nil {
		return PasswordResetResult{}, err
	}
	if !found {
		return PasswordResetResult{TokenInvalid: true}, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(newPassword)) == nil {
		return PasswordResetResult{SamePassword: true}, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return PasswordResetResult{}, err
	}

	if _, _, err := s.users.UpdateOne(ctx, func(u User) bool {
		return u.PasswordResetToken == resetToken
	}, func(u User) User {
		u.Password = string(hashed)
		u.PasswordResetToken = ""
		return u
	}); err != nil {
		return PasswordResetResult{}, err
	}

	if err := s.mailer.Send(user.Email,
		fmt.Sprintf("Account password reset %s [%s]", user.Username, user.Email),
		"Your account password has been reset.",
		fmt.Sprintf(`<h1>Password changed</h1><br>
			<p>The password of the account <b>%s [%s]</b> has been <b>reset</b>.</p><br><br>
			<p>
				IP: <b>%s</b><br><br>
				User Agent: <b>%s</b>
			</p><br><br>
			<p>You can now use the new password to log in.</p><br><br>
			<footer style="font-size: 8px">
				This message was sent automatically. There is no need to reply.
			</footer>`,
			user.Username, user.Email, ip, userAgent),
	); err != nil {
		s.logger.Error("failed to send password change notification",
			zap.String("email", user.Email),
			zap.Error(err),
		)
	}

	return PasswordResetResult{Status: true}, nil
}
