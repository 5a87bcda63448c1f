package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quizpulse/quizpulse-backend/internal/analytics"
	"github.com/quizpulse/quizpulse-backend/internal/quiz"
	"github.com/quizpulse/quizpulse-backend/internal/rbac"
	"github.com/quizpulse/quizpulse-backend/internal/scoring"
)

const recentAttemptsN = 5

type dashboardResponse struct {
	Summary  analytics.Summary      `json:"summary"`
	Recent   []scoring.Result       `json:"recent"`
	Subjects []analytics.Rollup     `json:"subjects"`
	Chapters []analytics.Rollup     `json:"chapters"`
	Trend    []analytics.TrendPoint `json:"trend"`
}

// GET /analytics/dashboard — the student's performance view, derived fresh
// from the full result history on every read.
func DashboardHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		records, err := store.ListResults(r.Context(), quiz.ResultListOpts{UserID: userID})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		now := time.Now()
		resp := dashboardResponse{
			Summary:  analytics.Summarize(records),
			Recent:   analytics.Recent(records, recentAttemptsN),
			Subjects: analytics.RollupBySubject(records),
			Chapters: analytics.RollupByChapter(records),
			Trend:    analytics.Trend(records, now),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type adminUserOverview struct {
	UserID  string            `json:"user_id"`
	Summary analytics.Summary `json:"summary"`
}

// GET /admin/analytics — per-user summaries across all records. Applies
// the same reductions per grouping key; a bad record set for one user
// cannot take down the whole report since the aggregator never fails.
func AdminOverviewHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.ListResults(r.Context(), quiz.ResultListOpts{
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 1000),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		byUser := map[string][]scoring.Result{}
		order := []string{}
		for _, rec := range records {
			if _, seen := byUser[rec.UserID]; !seen {
				order = append(order, rec.UserID)
			}
			byUser[rec.UserID] = append(byUser[rec.UserID], rec)
		}
		out := make([]adminUserOverview, 0, len(order))
		for _, uid := range order {
			out = append(out, adminUserOverview{UserID: uid, Summary: analytics.Summarize(byUser[uid])})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
