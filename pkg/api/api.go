// Package api defines the HTTP endpoints of the platform as route
// configurations consumed by the request pipeline.
package api

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/tester-platform/tester/pkg/auth"
	"github.com/tester-platform/tester/pkg/authtoken"
	"github.com/tester-platform/tester/pkg/pipeline"
	"github.com/tester-platform/tester/pkg/quiz"
)

// API holds the services the endpoint handlers call into.
type API struct {
	auth   *auth.Service
	quiz   *quiz.Service
	tokens *authtoken.Codec
	logger *zap.Logger
}

// New creates the API.
func New(authService *auth.Service, quizService *quiz.Service, tokens *authtoken.Codec, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		auth:   authService,
		quiz:   quizService,
		tokens: tokens,
		logger: logger.Named("api"),
	}
}

// Routes returns every endpoint configuration.
func (a *API) Routes() []pipeline.RouteOptions {
	return []pipeline.RouteOptions{
		a.loginRoute(),
		a.registerRoute(),
		a.verifyRoute(),
		a.verifyEmailRoute(),
		a.verifyPasswordResetRoute(),
		a.requestPasswordResetRoute(),
		a.resetPasswordRoute(),
		a.clearUsersRoute(),
		a.clearTestsRoute(),
		a.userRoute(),
		a.createTestRoute(),
		a.testRoute(),
		a.fullTestRoute(),
		a.publicTestsRoute(),
		a.createdTestsRoute(),
		a.saveDraftRoute(),
		a.publishTestRoute(),
		a.compareAnswersRoute(),
	}
}

// decode converts loosely-typed parsed request data into a concrete type
// by round-tripping through JSON.
func decode(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
