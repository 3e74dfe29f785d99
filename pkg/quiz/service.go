package quiz

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tester-platform/tester/pkg/auth"
	"github.com/tester-platform/tester/pkg/keygen"
	"github.com/tester-platform/tester/pkg/store"
)

const testIDLen = 16

var (
	// ErrTestNotFound is returned when no test holds the requested ID.
	ErrTestNotFound = errors.New("quiz: test not found")

	// ErrAuthorNotFound is returned by Create when the author ID does not
	// resolve to a user.
	ErrAuthorNotFound = errors.New("quiz: author not found")
)

// Service implements the test operations on top of a test collection.
type Service struct {
	tests  store.Collection[Test]
	users  *auth.Service
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a quiz Service.
func NewService(tests store.Collection[Test], users *auth.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tests:  tests,
		users:  users,
		logger: logger.Named("quiz"),
		now:    time.Now,
	}
}

// Tests exposes the underlying collection, used by maintenance endpoints.
func (s *Service) Tests() store.Collection[Test] { return s.tests }

// publicAuthor strips the fields of an author that must never reach other
// clients.
func publicAuthor(u auth.User) auth.User {
	u.Email = ""
	u.Password = ""
	u.VerifyToken = ""
	u.PasswordResetToken = ""
	return u
}

// Create stores a new unpublished test with one placeholder question.
func (s *Service) Create(ctx context.Context, title, description, authorID string) (Test, error) {
	author, found, err := s.users.GetUserSansPassword(ctx, func(u auth.User) bool {
		return u.ID == authorID
	})
	if err != nil {
		return Test{}, err
	}
	if !found {
		return Test{}, ErrAuthorNotFound
	}

	now := s.now()
	test := Test{
		ID:          keygen.Sequence(testIDLen, keygen.Options{UseLetters: true}),
		Title:       title,
		Description: description,
		Subject:     SubjectEnglish,
		TimeMinutes: 10,
		Author:      publicAuthor(author),
		Questions: []Question{{
			ID:             1,
			Text:           "Question text",
			Type:           SingleChoice,
			Answers:        []string{"Answer 1", "Answer 2", "Answer 3", "Answer 4"},
			CorrectAnswers: []int{0},
		}},
		TotalQuestions:  1,
		UserCompletions: []UserCompletion{},
		CreatedAt:       now,
		LastEditedAt:    now,
	}

	if err := s.tests.Create(ctx, test); err != nil {
		return Test{}, err
	}
	return test, nil
}

// Get returns the test by ID with the author stripped of private fields.
func (s *Service) Get(ctx context.Context, testID string) (Test, error) {
	test, found, err := s.tests.FindOne(ctx, func(t Test) bool {
		return t.ID == testID
	})
	if err != nil {
		return Test{}, err
	}
	if !found {
		return Test{}, ErrTestNotFound
	}

	test.Author = publicAuthor(test.Author)
	return test, nil
}

// GetWithoutAnswers returns the test with the correct answer indexes
// removed from every question, the form served for taking the test.
func (s *Service) GetWithoutAnswers(ctx context.Context, testID string) (Test, error) {
	test, err := s.Get(ctx, testID)
	if err != nil {
		return Test{}, err
	}

	questions := make([]Question, len(test.Questions))
	for i, q := range test.Questions {
		q.CorrectAnswers = nil
		questions[i] = q
	}
	test.Questions = questions
	return test, nil
}

// GetWithoutQuestions returns the test metadata only.
func (s *Service) GetWithoutQuestions(ctx context.Context, testID string) (Test, error) {
	test, err := s.Get(ctx, testID)
	if err != nil {
		return Test{}, err
	}

	test.Questions = nil
	return test, nil
}

// SaveDraft stores unpublished edits on the test.
func (s *Service) SaveDraft(ctx context.Context, testID string, draft Draft) error {
	if _, err := s.Get(ctx, testID); err != nil {
		return err
	}

	now := s.now()
	_, _, err := s.tests.UpdateOne(ctx, func(t Test) bool {
		return t.ID == testID
	}, func(t Test) Test {
		t.Draft = &draft
		t.LastEditedAt = now
		return t
	})
	return err
}

// Publish merges the pending draft into the test, clears it and marks the
// test published. The publication timestamp is set on first publish only.
func (s *Service) Publish(ctx context.Context, testID string) error {
	if _, err := s.Get(ctx, testID); err != nil {
		return err
	}

	now := s.now()
	_, _, err := s.tests.UpdateOne(ctx, func(t Test) bool {
		return t.ID == testID
	}, func(t Test) Test {
		if draft := t.Draft; draft != nil {
			t.Title = draft.Title
			t.Description = draft.Description
			t.Subject = draft.Subject
			t.Questions = draft.Questions
			t.TotalQuestions = draft.TotalQuestions
			if draft.Settings != nil {
				t.Settings = draft.Settings
			}
		}

		t.Draft = nil
		if !t.Published {
			t.PublishedAt = &now
		}
		t.Published = true
		return t
	})
	return err
}

// Delete removes the test.
func (s *Service) Delete(ctx context.Context, testID string) error {
	if _, err := s.Get(ctx, testID); err != nil {
		return err
	}

	_, err := s.tests.DeleteOne(ctx, func(t Test) bool {
		return t.ID == testID
	})
	return err
}

// AllPublic returns every published test.
func (s *Service) AllPublic(ctx context.Context) ([]Test, error) {
	tests, err := s.tests.Find(ctx, func(t Test) bool {
		return t.Published
	})
	if err != nil {
		return nil, err
	}

	for i := range tests {
		tests[i].Author = publicAuthor(tests[i].Author)
	}
	return tests, nil
}

// CreatedBy returns every test authored by the user.
func (s *Service) CreatedBy(ctx context.Context, userID string) ([]Test, error) {
	tests, err := s.tests.Find(ctx, func(t Test) bool {
		return t.Author.ID == userID
	})
	if err != nil {
		return nil, err
	}

	for i := range tests {
		tests[i].Author = publicAuthor(tests[i].Author)
	}
	return tests, nil
}

// CompareAnswers scores a completed test. inputAnswers holds one boolean
// row per question, where a true value marks a chosen answer index. A
// question counts as correct when every chosen index is one of its correct
// answers.
func (s *Service) CompareAnswers(ctx context.Context, testID string, inputAnswers [][]bool) (ComparisonResult, error) {
	test, err := s.Get(ctx, testID)
	if err != nil {
		return ComparisonResult{}, err
	}

	correct := 0
	for i, row := range inputAnswers {
		if i >= len(test.Questions) {
			break
		}

		if chosenMatch(row, test.Questions[i].CorrectAnswers) {
			correct++
		}
	}

	total := test.TotalQuestions
	if total == 0 {
		return ComparisonResult{}, nil
	}

	incorrect := total - correct
	return ComparisonResult{
		CorrectAnswers:             correct,
		IncorrectAnswers:           incorrect,
		CorrectAnswersPercentage:   float64(correct) / float64(total) * 100,
		IncorrectAnswersPercentage: float64(incorrect) / float64(total) * 100,
	}, nil
}

func chosenMatch(row []bool, correctAnswers []int) bool {
	for index, chosen := range row {
		if !chosen {
			continue
		}

		found := false
		for _, c := range correctAnswers {
			if c == index {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
