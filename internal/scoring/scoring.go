package scoring

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrMalformedInput is returned when a submitted answer references a
	// question that is not part of the quiz being scored.
	ErrMalformedInput = errors.New("malformed input")
	// ErrInvalidConfig is returned for a negative penalty value.
	ErrInvalidConfig = errors.New("invalid scoring config")
)

// Question is a minimal view of a quiz item needed for scoring.
type Question struct {
	ID           string   `json:"id"`
	Section      string   `json:"section"`
	Prompt       string   `json:"prompt,omitempty"`
	Options      []string `json:"options,omitempty"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// Selection is a student's choice for one question: either an option index
// or nothing. Source data represents "no answer" as null, a missing key, or
// an absent field; all three decode to the unanswered state.
type Selection struct {
	index    int
	answered bool
}

func Answered(index int) Selection { return Selection{index: index, answered: true} }
func Unanswered() Selection        { return Selection{} }

// Index returns the chosen option index; ok is false when unanswered.
func (s Selection) Index() (int, bool) { return s.index, s.answered }

func (s Selection) MarshalJSON() ([]byte, error) {
	if !s.answered {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%d", s.index)), nil
}

func (s *Selection) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Selection{}
		return nil
	}
	var idx int
	if _, err := fmt.Sscanf(string(b), "%d", &idx); err != nil {
		return fmt.Errorf("selection must be an option index or null: %w", err)
	}
	*s = Selection{index: idx, answered: true}
	return nil
}

// SubmittedAnswer is one student response. Section is denormalized from the
// question at submission time; scoring re-derives it from the question list
// and does not trust this copy.
type SubmittedAnswer struct {
	QuestionID string    `json:"question_id"`
	Section    string    `json:"section,omitempty"`
	Selected   Selection `json:"selected"`
}

// Config is the per-quiz scoring configuration. The range of
// NegativeMarkValue is a quiz-authoring concern; scoring only rejects
// negative values.
type Config struct {
	NegativeMarking   bool    `json:"negative_marking"`
	NegativeMarkValue float64 `json:"negative_mark_value,omitempty"`
}

// Attempt is one completed submission, before scoring.
type Attempt struct {
	UserID       string            `json:"user_id"`
	QuizID       string            `json:"quiz_id"`
	QuizName     string            `json:"quiz_name"`
	Subject      string            `json:"subject"`
	Chapter      string            `json:"chapter"`
	TimeTakenSec int               `json:"time_taken_sec"`
	Answers      []SubmittedAnswer `json:"answers"`
}

// Result is a scored attempt. Created once per submission and never
// mutated afterwards.
type Result struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	QuizID        string         `json:"quiz_id"`
	QuizName      string         `json:"quiz_name"`
	Subject       string         `json:"subject"`
	Chapter       string         `json:"chapter"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	TotalScore    int            `json:"total_score"`
	SectionScores map[string]int `json:"section_scores"`
	Correct       int            `json:"correct"`
	Wrong         int            `json:"wrong"`
	Unanswered    int            `json:"unanswered"`
	TimeTakenSec  int            `json:"time_taken_sec"`
	Config        Config         `json:"config"`
}

type tally struct {
	correct    int
	wrong      int
	unanswered int
}

func (t tally) total() int { return t.correct + t.wrong + t.unanswered }

// Score grades one attempt against the quiz's question list.
//
// One mark per correct answer; wrong answers cost NegativeMarkValue marks
// when negative marking is on; unanswered questions never incur a penalty.
// Net marks are floored at zero, rounded half-up to whole marks, and turned
// into a 0-100 percentage. Sections are scored the same way over their own
// questions; a section with no questions in the quiz does not appear in
// SectionScores.
func Score(a Attempt, questions []Question, cfg Config, now time.Time) (Result, error) {
	if cfg.NegativeMarkValue < 0 {
		return Result{}, fmt.Errorf("%w: negative mark value %v", ErrInvalidConfig, cfg.NegativeMarkValue)
	}

	known := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	// Last submission for a question wins when the client sends duplicates.
	selected := make(map[string]Selection, len(a.Answers))
	for _, ans := range a.Answers {
		if _, ok := known[ans.QuestionID]; !ok {
			return Result{}, fmt.Errorf("%w: answer references unknown question %q", ErrMalformedInput, ans.QuestionID)
		}
		selected[ans.QuestionID] = ans.Selected
	}

	var total tally
	sections := map[string]*tally{}
	for _, q := range questions {
		sec := sections[q.Section]
		if sec == nil {
			sec = &tally{}
			sections[q.Section] = sec
		}
		idx, ok := selected[q.ID].Index()
		switch {
		case !ok:
			total.unanswered++
			sec.unanswered++
		case idx == q.CorrectIndex:
			total.correct++
			sec.correct++
		default:
			total.wrong++
			sec.wrong++
		}
	}

	penalty := 0.0
	if cfg.NegativeMarking {
		penalty = cfg.NegativeMarkValue
	}

	secScores := make(map[string]int, len(sections))
	for name, sec := range sections {
		secScores[name] = percentage(*sec, penalty)
	}

	return Result{
		UserID:        a.UserID,
		QuizID:        a.QuizID,
		QuizName:      a.QuizName,
		Subject:       a.Subject,
		Chapter:       a.Chapter,
		SubmittedAt:   now.UTC(),
		TotalScore:    percentage(total, penalty),
		SectionScores: secScores,
		Correct:       total.correct,
		Wrong:         total.wrong,
		Unanswered:    total.unanswered,
		TimeTakenSec:  a.TimeTakenSec,
		Config:        cfg,
	}, nil
}

// percentage computes the 0-100 score for one tally. Fractional penalties
// are settled at the mark level first: net marks round half-up to a whole
// number before the percentage is taken, so 6 correct and 3 wrong at 0.25
// gives net 5.25 -> 5 marks -> 50% on a 10-question quiz.
func percentage(t tally, penalty float64) int {
	n := t.total()
	if n == 0 {
		return 0
	}
	net := float64(t.correct) - penalty*float64(t.wrong)
	if net < 0 {
		net = 0
	}
	marks := roundHalfUp(net)
	return roundHalfUp(float64(marks) / float64(n) * 100)
}

// roundHalfUp rounds a non-negative value to the nearest integer, halves up.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
