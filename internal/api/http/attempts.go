package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quizpulse/quizpulse-backend/internal/quiz"
	"github.com/quizpulse/quizpulse-backend/internal/rbac"
	"github.com/quizpulse/quizpulse-backend/internal/scoring"
)

// POST /attempts  { "quiz_id": "...", "time_taken_sec": 540, "answers": [ { "question_id": "...", "selected": 2 }, ... ] }
//
// Scores the submission against the quiz's answer key and persists the
// result; the scored record is returned to the caller. The user is always
// the authenticated subject.
func SubmitAttemptHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuizID       string                    `json:"quiz_id"`
			TimeTakenSec int                       `json:"time_taken_sec"`
			Answers      []scoring.SubmittedAnswer `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.QuizID == "" {
			http.Error(w, "quiz_id required", http.StatusBadRequest)
			return
		}

		q, err := store.GetQuizAdmin(r.Context(), req.QuizID)
		if err != nil {
			if errors.Is(err, quiz.ErrQuizNotFound) {
				http.Error(w, "quiz not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		attempt := scoring.Attempt{
			UserID:       rbac.SubjectFromContext(r.Context()),
			QuizID:       q.ID,
			QuizName:     q.Title,
			Subject:      q.Subject,
			Chapter:      q.Chapter,
			TimeTakenSec: req.TimeTakenSec,
			Answers:      req.Answers,
		}
		result, err := scoring.Score(attempt, q.Questions, q.Scoring, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, scoring.ErrMalformedInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, scoring.ErrInvalidConfig):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		result.ID = uuid.NewString()
		if err := store.InsertResult(r.Context(), result); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(result)
	}
}

// GET /results?quiz_id=...&user_id=...&limit=50&offset=0
//
// Students only ever see their own results; user_id is forced to the
// authenticated subject unless the caller has result:view-all.
func ListResultsHandler(store quiz.Store) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if !checker.Has(role, "result:view-all") {
			userID = rbac.SubjectFromContext(r.Context())
		}

		list, err := store.ListResults(r.Context(), quiz.ResultListOpts{
			UserID: userID,
			QuizID: strings.TrimSpace(r.URL.Query().Get("quiz_id")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}
