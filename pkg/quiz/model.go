// Package quiz implements test management: creation, drafting, publishing
// and answer scoring.
package quiz

import (
	"time"

	"github.com/tester-platform/tester/pkg/auth"
)

// Subject categorizes a test.
type Subject int

const (
	SubjectEnglish Subject = iota
	SubjectAlgebra
	SubjectBiology
	SubjectGeometry
	SubjectGeography
	SubjectHistory
	SubjectInformatics
	SubjectMaths
	SubjectSocials
	SubjectRussian
	SubjectPhysics
	SubjectChemistry
	SubjectOther
)

// QuestionType distinguishes single-choice from multiple-choice questions.
type QuestionType int

const (
	SingleChoice QuestionType = iota
	MultipleChoice
)

// Question is one question of a test. CorrectAnswers holds indexes into
// Answers and is stripped before a test is served for taking.
type Question struct {
	ID             int          `json:"id"`
	Text           string       `json:"text"`
	Type           QuestionType `json:"type"`
	Answers        []string     `json:"answers"`
	CorrectAnswers []int        `json:"correctAnswers,omitempty"`
}

// Settings toggles per-test behavior.
type Settings struct {
	DisplayAnswers        bool `json:"displayAnswers"`
	DisplayCorrectAnswers bool `json:"displayCorrectAnswers"`
	RandomizeQuestions    bool `json:"randomizeQuestion"`
	RandomizeAnswers      bool `json:"randomizeAnswers"`
	SingleAttempt         bool `json:"singleAttempt"`
	RequireLogin          bool `json:"requireLogin"`
}

// Draft holds unpublished edits to a test. Publishing merges the draft
// into the test and clears it.
type Draft struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Subject        Subject    `json:"subject"`
	Questions      []Question `json:"questions"`
	TotalQuestions int        `json:"totalQuestions"`
	Settings       *Settings  `json:"settings,omitempty"`
}

// Attempt records one run through a test by a user.
type Attempt struct {
	Finished   bool              `json:"finished"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	TimeTaken  int               `json:"timeTaken"`
	Answered   int               `json:"answered"`
	Results    *ComparisonResult `json:"results,omitempty"`
}

// UserCompletion groups a user's attempts at a test.
type UserCompletion struct {
	Username string    `json:"username"`
	Attempts []Attempt `json:"attempts"`
}

// ComparisonResult is the score of a completed test.
type ComparisonResult struct {
	CorrectAnswers             int     `json:"correctAnswers"`
	IncorrectAnswers           int     `json:"incorrectAnswers"`
	CorrectAnswersPercentage   float64 `json:"correctAnswersPercentage"`
	IncorrectAnswersPercentage float64 `json:"incorrectAnswersPercentage"`
}

// Test is a quiz with its questions, author and completion history.
type Test struct {
	ID              string           `json:"id"`
	Draft           *Draft           `json:"draft,omitempty"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Subject         Subject          `json:"subject"`
	TimeMinutes     int              `json:"timeMinutes"`
	Author          auth.User        `json:"author"`
	Published       bool             `json:"published"`
	Questions       []Question       `json:"questions,omitempty"`
	TotalQuestions  int              `json:"totalQuestions"`
	UserCompletions []UserCompletion `json:"userCompletions"`
	CreatedAt       time.Time        `json:"createdAt"`
	LastEditedAt    time.Time        `json:"lastEditedAt"`
	PublishedAt     *time.Time       `json:"publishedAt,omitempty"`
	Settings        *Settings        `json:"settings,omitempty"`
}
