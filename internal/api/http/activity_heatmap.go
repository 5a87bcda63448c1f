package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quizpulse/quizpulse-backend/internal/activity"
	"github.com/quizpulse/quizpulse-backend/internal/quiz"
	"github.com/quizpulse/quizpulse-backend/internal/rbac"
)

// GET /analytics/activity — calendar heatmap buckets plus streaks for the
// authenticated user, over the last year of attempts.
func ActivityHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		records, err := store.ListResults(r.Context(), quiz.ResultListOpts{UserID: userID})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		timestamps := make([]time.Time, len(records))
		for i, rec := range records {
			timestamps[i] = rec.SubmittedAt
		}
		report := activity.Track(timestamps, time.Now())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}
