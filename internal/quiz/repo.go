package quiz

import (
	"context"

	"github.com/quizpulse/quizpulse-backend/internal/goals"
	"github.com/quizpulse/quizpulse-backend/internal/scoring"
)

type ListOpts struct {
	Q      string // substring match on title/subject
	Limit  int
	Offset int
}

type ResultListOpts struct {
	UserID string // empty: all users (admin views)
	QuizID string
	Limit  int
	Offset int
}

// Store is the persistence boundary. Results come back newest first; the
// engine packages depend on that ordering.
type Store interface {
	PutQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)      // student-safe, answers hidden
	GetQuizAdmin(ctx context.Context, id string) (Quiz, error) // full, for scoring and authoring
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Summary, error)
	DeleteQuiz(ctx context.Context, id string) error

	InsertResult(ctx context.Context, r scoring.Result) error
	ListResults(ctx context.Context, opts ResultListOpts) ([]scoring.Result, error)

	PutGoal(ctx context.Context, g goals.Goal) error
	ListGoals(ctx context.Context, userID string) ([]goals.Goal, error)
	DeleteGoal(ctx context.Context, id, userID string) error
}
