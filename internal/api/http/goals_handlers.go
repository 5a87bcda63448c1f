package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quizpulse/quizpulse-backend/internal/goals"
	"github.com/quizpulse/quizpulse-backend/internal/quiz"
	"github.com/quizpulse/quizpulse-backend/internal/rbac"
)

// POST /goals
func CreateGoalHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g goals.Goal
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if g.Title == "" || g.Deadline.IsZero() {
			http.Error(w, "title and deadline required", http.StatusBadRequest)
			return
		}
		if err := goals.Validate(g); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g.ID = uuid.NewString()
		g.UserID = rbac.SubjectFromContext(r.Context())
		g.CreatedAt = time.Now().UTC()
		if err := store.PutGoal(r.Context(), g); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(g)
	}
}

// GET /goals — every goal evaluated against the user's current history.
// A goal that cannot be evaluated is reported with its error; the rest of
// the batch still comes back.
func ListGoalsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		gs, err := store.ListGoals(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		records, err := store.ListResults(r.Context(), quiz.ResultListOpts{UserID: userID})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(goals.EvaluateAll(gs, records, time.Now()))
	}
}

// DELETE /goals/{goalID}
func DeleteGoalHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "goalID")
		userID := rbac.SubjectFromContext(r.Context())
		if err := store.DeleteGoal(r.Context(), id, userID); err != nil {
			if errors.Is(err, quiz.ErrGoalNotFound) {
				http.Error(w, "goal not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
