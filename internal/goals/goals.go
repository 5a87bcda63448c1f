// Package goals evaluates study goals against a user's attempt history.
// Status is a derived view: it is recomputed from the records on every
// evaluation and never stored, so a data correction can move a goal back
// from completed to active.
package goals

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/quizpulse/quizpulse-backend/internal/activity"
	"github.com/quizpulse/quizpulse-backend/internal/analytics"
	"github.com/quizpulse/quizpulse-backend/internal/scoring"
)

var (
	ErrUnknownGoalType      = errors.New("unknown goal type")
	ErrMissingSectionTarget = errors.New("section-score goal requires a section")
)

// Type enumerates the supported goal kinds.
type Type string

const (
	TypeAverageScore  Type = "average-score"
	TypeTotalAttempts Type = "total-attempts"
	TypeDailyStreak   Type = "daily-streak"
	TypeSectionScore  Type = "section-score"
)

// Status is the computed lifecycle state of a goal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Goal is a user-defined target. Section is required iff Type is
// section-score. Deadline has day granularity.
type Goal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        Type      `json:"type"`
	Target      int       `json:"target"`
	Section     string    `json:"section,omitempty"`
	Deadline    time.Time `json:"deadline"`
	CreatedAt   time.Time `json:"created_at"`
}

// Progress is one evaluation of a goal against the current history.
type Progress struct {
	Current int    `json:"current"`
	Target  int    `json:"target"`
	Status  Status `json:"status"`
}

// Evaluation pairs a goal with its progress, or with the reason it could
// not be evaluated. A batch reports failures per goal instead of aborting.
type Evaluation struct {
	Goal     Goal      `json:"goal"`
	Progress *Progress `json:"progress,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Validate rejects goal definitions the evaluator cannot handle. Called at
// creation so a bad goal never reaches the store.
func Validate(g Goal) error {
	switch g.Type {
	case TypeAverageScore, TypeTotalAttempts, TypeDailyStreak:
		return nil
	case TypeSectionScore:
		if g.Section == "" {
			return ErrMissingSectionTarget
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGoalType, g.Type)
	}
}

// Evaluate computes a goal's current value and status. The met-target check
// runs before the deadline check, so a goal met exactly on its deadline is
// completed, not expired.
func Evaluate(g Goal, records []scoring.Result, now time.Time) (Progress, error) {
	var current int
	switch g.Type {
	case TypeAverageScore:
		current = analytics.Summarize(records).AverageScore
	case TypeTotalAttempts:
		current = len(records)
	case TypeDailyStreak:
		current = activity.Track(submissionTimes(records), now).CurrentStreak
	case TypeSectionScore:
		if g.Section == "" {
			return Progress{}, ErrMissingSectionTarget
		}
		current = sectionAverage(records, g.Section)
	default:
		return Progress{}, fmt.Errorf("%w: %q", ErrUnknownGoalType, g.Type)
	}

	status := StatusActive
	switch {
	case current >= g.Target:
		status = StatusCompleted
	case pastDeadline(now, g.Deadline):
		status = StatusExpired
	}
	return Progress{Current: current, Target: g.Target, Status: status}, nil
}

// EvaluateAll evaluates every goal, isolating per-goal failures.
func EvaluateAll(gs []Goal, records []scoring.Result, now time.Time) []Evaluation {
	out := make([]Evaluation, 0, len(gs))
	for _, g := range gs {
		p, err := Evaluate(g, records, now)
		if err != nil {
			out = append(out, Evaluation{Goal: g, Error: err.Error()})
			continue
		}
		out = append(out, Evaluation{Goal: g, Progress: &p})
	}
	return out
}

// sectionAverage is the mean of the section's percentage over only the
// records that carry a non-zero score for it; 0 when no record does.
func sectionAverage(records []scoring.Result, section string) int {
	sum, n := 0, 0
	for _, r := range records {
		if score, ok := r.SectionScores[section]; ok && score > 0 {
			sum += score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(math.Floor(float64(sum)/float64(n) + 0.5))
}

func submissionTimes(records []scoring.Result) []time.Time {
	ts := make([]time.Time, len(records))
	for i, r := range records {
		ts[i] = r.SubmittedAt
	}
	return ts
}

// pastDeadline compares at day granularity: a goal expires the day after
// its deadline date, not at the deadline's stored instant.
func pastDeadline(now, deadline time.Time) bool {
	return now.UTC().Format("2006-01-02") > deadline.UTC().Format("2006-01-02")
}
