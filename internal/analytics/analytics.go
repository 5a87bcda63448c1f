// Package analytics reduces a user's scored-attempt history into the
// numbers the dashboard renders. Everything here degrades instead of
// failing: empty histories and missing display names produce zero values
// and placeholder labels, never errors or NaN.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/quizpulse/quizpulse-backend/internal/scoring"
)

const (
	// UnknownQuizLabel stands in for a record with no quiz name.
	UnknownQuizLabel = "Unknown Quiz"
	// GeneralLabel stands in for a missing subject or chapter name.
	GeneralLabel = "General"

	trendWindowDays = 30
)

// Summary is the headline stats block for a user.
type Summary struct {
	TotalAttempts int  `json:"total_attempts"`
	AverageScore  int  `json:"average_score"`
	BestScore     *int `json:"best_score,omitempty"` // nil when there are no attempts
}

// Summarize computes the headline stats over the full record list.
func Summarize(records []scoring.Result) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	sum, best := 0, 0
	for _, r := range records {
		sum += r.TotalScore
		if r.TotalScore > best {
			best = r.TotalScore
		}
	}
	return Summary{
		TotalAttempts: len(records),
		AverageScore:  roundHalfUp(float64(sum) / float64(len(records))),
		BestScore:     &best,
	}
}

// Recent returns the first n records of the date-descending input,
// preserving the caller's ordering as the tie-breaker.
func Recent(records []scoring.Result, n int) []scoring.Result {
	if n > len(records) {
		n = len(records)
	}
	out := make([]scoring.Result, n)
	copy(out, records[:n])
	return out
}

// Rollup is one group's aggregate in a subject or chapter breakdown.
type Rollup struct {
	Key          string `json:"key"`
	Attempts     int    `json:"attempts"`
	TotalScore   int    `json:"total_score"`
	BestScore    int    `json:"best_score"`
	AverageScore int    `json:"average_score"`
}

// RollupBySubject groups records by subject name. The average is
// total/count over the group's raw scores, not a mean of means.
func RollupBySubject(records []scoring.Result) []Rollup {
	return rollup(records, func(r scoring.Result) string {
		return subjectOf(r)
	})
}

// RollupByChapter groups records by "subject - chapter" composite key, so
// same-named chapters under different subjects stay separate.
func RollupByChapter(records []scoring.Result) []Rollup {
	return rollup(records, func(r scoring.Result) string {
		chapter := r.Chapter
		if chapter == "" {
			chapter = GeneralLabel
		}
		return subjectOf(r) + " - " + chapter
	})
}

func subjectOf(r scoring.Result) string {
	if r.Subject == "" {
		return GeneralLabel
	}
	return r.Subject
}

func rollup(records []scoring.Result, keyOf func(scoring.Result) string) []Rollup {
	groups := map[string]*Rollup{}
	for _, r := range records {
		key := keyOf(r)
		g := groups[key]
		if g == nil {
			g = &Rollup{Key: key}
			groups[key] = g
		}
		g.Attempts++
		g.TotalScore += r.TotalScore
		if r.TotalScore > g.BestScore {
			g.BestScore = r.TotalScore
		}
	}
	out := make([]Rollup, 0, len(groups))
	for _, g := range groups {
		g.AverageScore = roundHalfUp(float64(g.TotalScore) / float64(g.Attempts))
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TrendPoint is one attempt projected for the recent-performance chart.
type TrendPoint struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Score    int    `json:"score"`
	QuizName string `json:"quiz_name"`
}

// Trend filters records to the last 30 calendar days inclusive of today and
// returns them oldest first. Values for a given day depend only on the
// records, so re-running later extends the series without rewriting it.
func Trend(records []scoring.Result, now time.Time) []TrendPoint {
	today := dateOf(now)
	cutoff := dateOf(now.AddDate(0, 0, -trendWindowDays))

	filtered := make([]scoring.Result, 0, len(records))
	for _, r := range records {
		d := dateOf(r.SubmittedAt)
		if d >= cutoff && d <= today {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].SubmittedAt.Before(filtered[j].SubmittedAt)
	})

	out := make([]TrendPoint, 0, len(filtered))
	for _, r := range filtered {
		name := r.QuizName
		if name == "" {
			name = UnknownQuizLabel
		}
		out = append(out, TrendPoint{Date: dateOf(r.SubmittedAt), Score: r.TotalScore, QuizName: name})
	}
	return out
}

func dateOf(t time.Time) string { return t.UTC().Format("2006-01-02") }

func roundHalfUp(x float64) int { return int(math.Floor(x + 0.5)) }
