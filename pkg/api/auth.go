package api

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tester-platform/tester/pkg/auth"
	"github.com/tester-platform/tester/pkg/common"
	"github.com/tester-platform/tester/pkg/pipeline"
	"github.com/tester-platform/tester/pkg/ratelimit"
	"github.com/tester-platform/tester/pkg/store"
)

const serviceErrorMessage = "service error."

var (
	passwordRules = pipeline.StringValidationOptions{MinLength: 6, MaxLength: 32}
	usernameRules = pipeline.StringValidationOptions{MinLength: 3, MaxLength: 32}
)

func validateCredentials(data map[string]any) *pipeline.ValidationError {
	if !pipeline.ValidateEmail(stringField(data, "email")) {
		return &pipeline.ValidationError{
			Message: "Incorrect email was specified.",
			Failed:  "email",
		}
	}

	if !pipeline.ValidateString(stringField(data, "password"), passwordRules) {
		return &pipeline.ValidationError{
			Message: fmt.Sprintf("Password length should be between %d and %d in length.",
				passwordRules.MinLength, passwordRules.MaxLength),
			Failed: "password",
		}
	}

	return nil
}

func stringField(data map[string]any, name string) string {
	s, _ := data[name].(string)
	return s
}

func (a *API) loginRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:               "/auth/login",
		Methods:            []common.HttpMethod{common.MethodPost},
		RequiredBodyFields: []string{"email", "password", "rememberMe"},
		RateLimit: ratelimit.Policy{
			Limit:    10,
			Window:   300 * time.Second,
			Cooldown: 100 * time.Second,
		},
		ValidateBody: validateCredentials,
		Handle:       a.handleLogin,
	}
}

func (a *API) handleLogin(c *pipeline.Context) {
	email := c.Body.StringField("email")
	password := c.Body.StringField("password")
	rememberMe := c.Body.BoolField("rememberMe")

	result := a.auth.Login(c.Request.Context(), email, password, rememberMe)

	if result.Errored {
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if !result.Status {
		c.Send(http.StatusForbidden, "Invalid username or password.", nil)
		return
	}

	if !result.Payload.Verified {
		c.Send(http.StatusNotAcceptable, "Account must be verified to perform the login.", nil)
		return
	}

	c.Send(http.StatusOK, fmt.Sprintf("Logged in as %q.", email), map[string]any{
		"accessToken": result.Token,
		"payload":     result.Payload,
	})
}

func (a *API) registerRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:               "/auth/register",
		Methods:            []common.HttpMethod{common.MethodPut},
		RequiredBodyFields: []string{"email", "username", "password", "locationOrigin"},
		RateLimit: ratelimit.Policy{
			Limit:    10,
			Window:   120 * time.Second,
			Cooldown: 1800 * time.Second,
		},
		ValidateBody: func(data map[string]any) *pipeline.ValidationError {
			if ve := validateCredentials(data); ve != nil {
				return ve
			}

			if !pipeline.ValidateString(stringField(data, "username"), usernameRules) {
				return &pipeline.ValidationError{
					Message: fmt.Sprintf("Username length should be between %d and %d in length.",
						usernameRules.MinLength, usernameRules.MaxLength),
					Failed: "username",
				}
			}

			return nil
		},
		Handle: a.handleRegister,
	}
}

func (a *API) handleRegister(c *pipeline.Context) {
	email := c.Body.StringField("email")
	username := c.Body.StringField("username")
	password := c.Body.StringField("password")
	locationOrigin := c.Body.StringField("locationOrigin")
	firstName := c.Body.StringField("firstName")
	lastName := c.Body.StringField("lastName")

	user, err := a.auth.Register(c.Request.Context(), auth.RegisterOptions{
		Email:          email,
		Username:       username,
		Password:       password,
		FirstName:      firstName,
		LastName:       lastName,
		LocationOrigin: locationOrigin,
	})
	if err == auth.ErrUserExists {
		c.Send(http.StatusConflict, "User with that email already exists.", nil)
		return
	}
	if err != nil {
		a.logger.Error("registration failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	c.Send(http.StatusCreated, "", map[string]any{
		"user": user.SansPassword(),
	})
}

func (a *API) verifyRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:                "/auth/verify",
		Methods:             []common.HttpMethod{common.MethodGet},
		RequiredQueryFields: []string{"token"},
		RateLimit: ratelimit.Policy{
			Limit:    20,
			Window:   300 * time.Second,
			Cooldown: 30 * time.Second,
		},
		Handle: a.handleVerify,
	}
}

func (a *API) handleVerify(c *pipeline.Context) {
	token := c.Query.StringField("token")

	payload, err := a.tokens.Verify(token)
	verified := err == nil

	var payloadBody any
	if verified {
		payloadBody = payload
	}

	word := "invalid"
	if verified {
		word = "valid"
	}

	c.Send(http.StatusOK, fmt.Sprintf("Specified token is %s.", word), map[string]any{
		"verified": verified,
		"payload":  payloadBody,
	})
}

func (a *API) verifyEmailRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:                "/auth/verification/verifyEmail",
		Methods:             []common.HttpMethod{common.MethodGet},
		RequiredQueryFields: []string{"token", "locationOrigin"},
		RateLimit: ratelimit.Policy{
			Limit:    10,
			Window:   100 * time.Second,
			Cooldown: 1200 * time.Second,
		},
		Handle: a.handleVerifyEmail,
	}
}

func (a *API) handleVerifyEmail(c *pipeline.Context) {
	token := c.Query.StringField("token")
	locationOrigin := c.Query.StringField("locationOrigin")

	verified, err := a.auth.VerifyUser(c.Request.Context(), token, locationOrigin)
	if err != nil {
		a.logger.Error("email verification failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if !verified {
		c.Send(http.StatusNotFound,
			"Email verification token is either invalid or not provided.", nil)
		return
	}

	c.Send(http.StatusOK, "Account verified!", nil)
}

func (a *API) verifyPasswordResetRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:    "/auth/verification/verifyPasswordReset",
		Methods: []common.HttpMethod{common.MethodGet},
		RateLimit: ratelimit.Policy{
			Limit:    10,
			Window:   100 * time.Second,
			Cooldown: 1200 * time.Second,
		},
		Handle: a.handleVerifyPasswordReset,
	}
}

func (a *API) handleVerifyPasswordReset(c *pipeline.Context) {
	token := c.Query.StringField("token")

	_, found, err := a.auth.GetUser(c.Request.Context(), func(u auth.User) bool {
		return u.PasswordResetToken == token
	})
	if err != nil {
		a.logger.Error("password reset verification failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if !found || token == "" {
		c.Send(http.StatusNotFound,
			"Password reset token is either invalid or not provided.", nil)
		return
	}

	c.Send(http.StatusOK, "", nil)
}

func (a *API) requestPasswordResetRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:               "/auth/password/requestReset",
		Methods:            []common.HttpMethod{common.MethodPost},
		RequiredBodyFields: []string{"email", "locationOrigin"},
		RateLimit: ratelimit.Policy{
			Limit:    15,
			Window:   60 * time.Second,
			Cooldown: 1200 * time.Second,
		},
		Handle: a.handleRequestPasswordReset,
	}
}

func (a *API) handleRequestPasswordReset(c *pipeline.Context) {
	email := c.Body.StringField("email")
	locationOrigin := c.Body.StringField("locationOrigin")

	result, err := a.auth.RequestPasswordReset(c.Request.Context(), email, locationOrigin)
	if err != nil {
		a.logger.Error("password reset request failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if result.Token == "" {
		c.Send(http.StatusNotFound, "Cannot reset password for non-existing user.", map[string]any{
			"token": nil,
		})
		return
	}

	if result.AlreadySent {
		c.Send(http.StatusConflict, "The user has already made a password reset request.", map[string]any{
			"token": result.Token,
		})
		return
	}

	c.Send(http.StatusOK, "Password reset token was generated successfully.", map[string]any{
		"token": result.Token,
	})
}

func (a *API) resetPasswordRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:               "/auth/password/reset",
		Methods:            []common.HttpMethod{common.MethodPatch},
		RequiredBodyFields: []string{"newPassword", "passwordResetToken", "userAgent"},
		RateLimit: ratelimit.Policy{
			Limit:    15,
			Window:   60 * time.Second,
			Cooldown: 1200 * time.Second,
		},
		Handle: a.handleResetPassword,
	}
}

func (a *API) handleResetPassword(c *pipeline.Context) {
	resetToken := c.Body.StringField("passwordResetToken")
	newPassword := c.Body.StringField("newPassword")
	userAgent := c.Body.StringField("userAgent")

	result, err := a.auth.ResetPassword(c.Request.Context(), resetToken, newPassword, c.IP, userAgent)
	if err != nil {
		a.logger.Error("password reset failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if result.TokenInvalid {
		c.Send(http.StatusBadRequest,
			"Password reset token is either invalid or not provided.", nil)
		return
	}

	if result.SamePassword {
		c.Send(http.StatusNotAcceptable,
			"New password should be different from old password.", nil)
		return
	}

	c.Send(http.StatusOK, "Password changed!", nil)
}

func (a *API) clearUsersRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:    "/auth/dev/clearUsers",
		Methods: []common.HttpMethod{common.MethodGet},
		RateLimit: ratelimit.Policy{
			Limit:    10,
			Window:   300 * time.Second,
			Cooldown: 100 * time.Second,
		},
		Handle: func(c *pipeline.Context) {
			if _, err := a.auth.Users().DeleteMany(c.Request.Context(), nil); err != nil {
				a.logger.Error("failed to clear users", zap.Error(err))
				c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
				return
			}
			c.Send(http.StatusOK, "Cleared users successfully.", nil)
		},
	}
}

func (a *API) clearTestsRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:    "/auth/dev/clearTests",
		Methods: []common.HttpMethod{common.MethodGet},
		RateLimit: ratelimit.Policy{
			Limit:    10,
			Window:   300 * time.Second,
			Cooldown: 100 * time.Second,
		},
		Handle: func(c *pipeline.Context) {
			if _, err := a.quiz.Tests().DeleteMany(c.Request.Context(), nil); err != nil {
				a.logger.Error("failed to clear tests", zap.Error(err))
				c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
				return
			}
			c.Send(http.StatusOK, "Cleared tests successfully.", nil)
		},
	}
}

func (a *API) userRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:    "/user",
		Methods: []common.HttpMethod{common.MethodGet},
		RateLimit: ratelimit.Policy{
			Limit:    100,
			Window:   3600 * time.Second,
			Cooldown: 1800 * time.Second,
		},
		ValidateQuery: func(data map[string]any) *pipeline.ValidationError {
			if stringField(data, "email") == "" && stringField(data, "id") == "" {
				return &pipeline.ValidationError{
					Message: `Either "email" or "id" search query params should be specified`,
					Failed:  "any",
				}
			}
			return nil
		},
		Handle: a.handleUser,
	}
}

func (a *API) handleUser(c *pipeline.Context) {
	email := c.Query.StringField("email")
	id := c.Query.StringField("id")

	var filter store.Filter[auth.User]
	switch {
	case email != "" && id != "":
		filter = func(u auth.User) bool { return u.Email == email && u.ID == id }
	case email != "":
		filter = func(u auth.User) bool { return u.Email == email }
	default:
		filter = func(u auth.User) bool { return u.ID == id }
	}

	user, found, err := a.auth.GetUserSansPassword(c.Request.Context(), filter)
	if err != nil {
		a.logger.Error("user lookup failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if !found {
		c.Send(http.StatusNotFound, "Specified user does not exist in database.", nil)
		return
	}

	c.Send(http.StatusOK, "", map[string]any{
		"user": user,
	})
}
