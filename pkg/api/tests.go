package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tester-platform/tester/pkg/common"
	"github.com/tester-platform/tester/pkg/pipeline"
	"github.com/tester-platform/tester/pkg/quiz"
	"github.com/tester-platform/tester/pkg/ratelimit"
)

func (a *API) createTestRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:               "/tests/create",
		Methods:            []common.HttpMethod{common.MethodPut},
		RequiredBodyFields: []string{"title", "description"},
		RequireAuth:        true,
		RequireVerified:    true,
		RateLimit: ratelimit.Policy{
			Limit:    5,
			Window:   30 * time.Second,
			Cooldown: 10 * time.Second,
		},
		Handle: a.handleCreateTest,
	}
}

func (a *API) handleCreateTest(c *pipeline.Context) {
	title := c.Body.StringField("title")
	description := c.Body.StringField("description")

	test, err := a.quiz.Create(c.Request.Context(),
		strings.TrimSpace(title), strings.TrimSpace(description), c.Auth.ID)
	if err != nil {
		a.logger.Error("test creation failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, "service unavailable", nil)
		return
	}

	c.Send(http.StatusCreated, "", map[string]any{
		"test": test,
	})
}

func (a *API) testRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:                "/tests/test",
		Methods:             []common.HttpMethod{common.MethodGet, common.MethodDelete},
		RequiredQueryFields: []string{"id"},
		RateLimit: ratelimit.Policy{
			Limit:    20,
			Window:   30 * time.Second,
			Cooldown: 30 * time.Second,
		},
		Handle: a.handleTest,
	}
}

func (a *API) handleTest(c *pipeline.Context) {
	testID := c.Query.StringField("id")
	getQuestions := c.Query.BoolField("getQuestions")

	var (
		test quiz.Test
		err  error
	)
	if getQuestions {
		test, err = a.quiz.GetWithoutAnswers(c.Request.Context(), testID)
	} else {
		test, err = a.quiz.GetWithoutQuestions(c.Request.Context(), testID)
	}

	if errors.Is(err, quiz.ErrTestNotFound) {
		c.Send(http.StatusNotFound, "Test not found.", nil)
		return
	}
	if err != nil {
		a.logger.Error("test lookup failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if c.Request.Method == http.MethodDelete {
		if err := a.quiz.Delete(c.Request.Context(), testID); err != nil {
			a.logger.Error("test deletion failed", zap.Error(err))
			c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
			return
		}

		c.Send(http.StatusOK, "Test deleted.", map[string]any{
			"test": test,
		})
		return
	}

	c.Send(http.StatusOK, "", map[string]any{
		"test": test,
	})
}

func (a *API) fullTestRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:                "/tests/fullTest",
		Methods:             []common.HttpMethod{common.MethodGet},
		RequiredQueryFields: []string{"id"},
		RequireAuth:         true,
		RequireVerified:     true,
		RateLimit: ratelimit.Policy{
			Limit:    10,
			Window:   30 * time.Second,
			Cooldown: 10 * time.Second,
		},
		Handle: a.handleFullTest,
	}
}

func (a *API) handleFullTest(c *pipeline.Context) {
	testID := c.Query.StringField("id")

	test, err := a.quiz.Get(c.Request.Context(), testID)
	if errors.Is(err, quiz.ErrTestNotFound) {
		c.Send(http.StatusNotFound, "Test not found.", nil)
		return
	}
	if err != nil {
		a.logger.Error("test lookup failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if test.Author.ID != c.Auth.ID {
		c.Send(http.StatusForbidden, "You don't have access to edit this test.", nil)
		return
	}

	c.Send(http.StatusOK, "", map[string]any{
		"test": test,
	})
}

func (a *API) publicTestsRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:    "/tests/public",
		Methods: []common.HttpMethod{common.MethodGet},
		RateLimit: ratelimit.Policy{
			Limit:    30,
			Window:   30 * time.Second,
			Cooldown: 15 * time.Second,
		},
		Handle: func(c *pipeline.Context) {
			tests, err := a.quiz.AllPublic(c.Request.Context())
			if err != nil {
				a.logger.Error("public tests lookup failed", zap.Error(err))
				c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
				return
			}

			c.Send(http.StatusOK, fmt.Sprintf("Found %d entries.", len(tests)), map[string]any{
				"tests": tests,
			})
		},
	}
}

func (a *API) createdTestsRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:            "/tests/created",
		Methods:         []common.HttpMethod{common.MethodGet},
		RequireAuth:     true,
		RequireVerified: true,
		RateLimit: ratelimit.Policy{
			Limit:    10,
			Window:   30 * time.Second,
			Cooldown: 15 * time.Second,
		},
		Handle: func(c *pipeline.Context) {
			tests, err := a.quiz.CreatedBy(c.Request.Context(), c.Auth.ID)
			if err != nil {
				a.logger.Error("created tests lookup failed", zap.Error(err))
				c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
				return
			}

			c.Send(http.StatusOK, fmt.Sprintf("Found %d entries.", len(tests)), map[string]any{
				"tests": tests,
			})
		},
	}
}

func (a *API) saveDraftRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:    "/tests/saveDraft",
		Methods: []common.HttpMethod{common.MethodPatch},
		RequiredBodyFields: []string{
			"id", "description", "questions", "totalQuestions", "subject", "title",
		},
		RequireAuth:     true,
		RequireVerified: true,
		RateLimit: ratelimit.Policy{
			Limit:    15,
			Window:   30 * time.Second,
			Cooldown: 10 * time.Second,
		},
		Handle: a.handleSaveDraft,
	}
}

func (a *API) handleSaveDraft(c *pipeline.Context) {
	testID := c.Body.StringField("id")

	test, err := a.quiz.Get(c.Request.Context(), testID)
	if errors.Is(err, quiz.ErrTestNotFound) {
		c.Send(http.StatusNotFound, "Test not found.", nil)
		return
	}
	if err != nil {
		a.logger.Error("test lookup failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if test.Author.ID != c.Auth.ID {
		c.Send(http.StatusForbidden, "You don't have access to edit this test.", nil)
		return
	}

	var draft quiz.Draft
	if err := decode(c.Body.Data, &draft); err != nil {
		c.Send(http.StatusBadRequest, "Invalid request JSON was provided.", nil)
		return
	}

	draft.Title = strings.TrimSpace(draft.Title)
	draft.Description = strings.TrimSpace(draft.Description)
	for i := range draft.Questions {
		draft.Questions[i].Text = strings.TrimSpace(draft.Questions[i].Text)
		for j := range draft.Questions[i].Answers {
			draft.Questions[i].Answers[j] = strings.TrimSpace(draft.Questions[i].Answers[j])
		}
	}

	if err := a.quiz.SaveDraft(c.Request.Context(), testID, draft); err != nil {
		a.logger.Error("draft save failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	c.Send(http.StatusOK, "Draft saved.", nil)
}

func (a *API) publishTestRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:               "/tests/publish",
		Methods:            []common.HttpMethod{common.MethodPatch},
		RequiredBodyFields: []string{"id"},
		RequireAuth:        true,
		RequireVerified:    true,
		RateLimit: ratelimit.Policy{
			Limit:    5,
			Window:   30 * time.Second,
			Cooldown: 10 * time.Second,
		},
		Handle: a.handlePublishTest,
	}
}

func (a *API) handlePublishTest(c *pipeline.Context) {
	testID := c.Body.StringField("id")

	test, err := a.quiz.Get(c.Request.Context(), testID)
	if errors.Is(err, quiz.ErrTestNotFound) {
		c.Send(http.StatusNotFound, "Test not found.", nil)
		return
	}
	if err != nil {
		a.logger.Error("test lookup failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	if test.Author.ID != c.Auth.ID {
		c.Send(http.StatusForbidden, "You don't have access to edit this test.", nil)
		return
	}

	if err := a.quiz.Publish(c.Request.Context(), testID); err != nil {
		a.logger.Error("test publishing failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	c.Send(http.StatusOK, "Test published.", nil)
}

func (a *API) compareAnswersRoute() pipeline.RouteOptions {
	return pipeline.RouteOptions{
		Path:               "/tests/compareAnswers",
		Methods:            []common.HttpMethod{common.MethodPost},
		RequiredBodyFields: []string{"id", "inputAnswers"},
		RateLimit: ratelimit.Policy{
			Limit:    20,
			Window:   30 * time.Second,
			Cooldown: 10 * time.Second,
		},
		Handle: a.handleCompareAnswers,
	}
}

func (a *API) handleCompareAnswers(c *pipeline.Context) {
	testID := c.Body.StringField("id")

	var inputAnswers [][]bool
	if err := decode(c.Body.Data["inputAnswers"], &inputAnswers); err != nil {
		c.Send(http.StatusBadRequest, "Invalid request JSON was provided.", nil)
		return
	}

	results, err := a.quiz.CompareAnswers(c.Request.Context(), testID, inputAnswers)
	if errors.Is(err, quiz.ErrTestNotFound) {
		c.Send(http.StatusNotFound, "Test not found.", nil)
		return
	}
	if err != nil {
		a.logger.Error("answer comparison failed", zap.Error(err))
		c.Send(http.StatusServiceUnavailable, serviceErrorMessage, nil)
		return
	}

	c.Send(http.StatusOK, "", map[string]any{
		"results": results,
	})
}
