package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quizpulse/quizpulse-backend/internal/quiz"
	"github.com/quizpulse/quizpulse-backend/internal/rbac"
)

// POST /quizzes (admin)
func CreateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Quiz
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if q.Title == "" || len(q.Questions) == 0 {
			http.Error(w, "title and questions required", http.StatusBadRequest)
			return
		}
		for _, question := range q.Questions {
			if question.ID == "" {
				http.Error(w, "question without id", http.StatusBadRequest)
				return
			}
			if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
				http.Error(w, "correct_index out of range for question "+question.ID, http.StatusBadRequest)
				return
			}
		}
		// Penalty range is an authoring rule; 0.1-1.0 is what the product allows.
		if q.Scoring.NegativeMarking &&
			(q.Scoring.NegativeMarkValue < 0.1 || q.Scoring.NegativeMarkValue > 1.0) {
			http.Error(w, "negative_mark_value must be within 0.1-1.0", http.StatusBadRequest)
			return
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.CreatedBy = rbac.SubjectFromContext(r.Context())
		if err := store.PutQuiz(r.Context(), q); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": q.ID})
	}
}

// GET /quizzes/{quizID} — answers hidden unless the caller may author.
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		role := rbac.RoleFromContext(r.Context())

		var (
			q   quiz.Quiz
			err error
		)
		if checker.Has(role, "quiz:create") {
			q, err = store.GetQuizAdmin(r.Context(), id)
		} else {
			q, err = store.GetQuiz(r.Context(), id)
		}
		if err != nil {
			if errors.Is(err, quiz.ErrQuizNotFound) {
				http.Error(w, "quiz not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(q)
	}
}

// GET /quizzes?q=...&limit=50&offset=0
func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListQuizzes(r.Context(), quiz.ListOpts{
			Q:      strings.TrimSpace(r.URL.Query().Get("q")),
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

// DELETE /quizzes/{quizID} (admin)
func DeleteQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		if err := store.DeleteQuiz(r.Context(), id); err != nil {
			if errors.Is(err, quiz.ErrQuizNotFound) {
				http.Error(w, "quiz not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
