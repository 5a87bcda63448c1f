package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/quizpulse/quizpulse-backend/internal/quiz"
)

// -----------------------------
// Admin: account data export / erasure
// -----------------------------

// AdminExportUserDataHandler returns everything stored about a user as a
// downloadable JSON file: the account row, every result and every goal.
func AdminExportUserDataHandler(db *sql.DB, store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "user_id required", http.StatusBadRequest)
			return
		}

		row := db.QueryRowContext(r.Context(),
			`SELECT id, username, role, created_at FROM users WHERE id=$1 OR username=$1`,
			req.UserID)

		var id, username, role string
		var createdAt int64
		if err := row.Scan(&id, &username, &role, &createdAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "user not found", http.StatusNotFound)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		results, err := store.ListResults(r.Context(), quiz.ResultListOpts{UserID: id})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		goalList, err := store.ListGoals(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := map[string]any{
			"account": map[string]any{
				"id":         id,
				"username":   username,
				"role":       role,
				"created_at": createdAt,
			},
			"results": results,
			"goals":   goalList,
		}

		filename := fmt.Sprintf("userdata_%s.json", id)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// AdminDeleteUserDataHandler removes all data for a user: results, goals,
// then the account itself. One transaction so a partial erase never lands.
func AdminDeleteUserDataHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "user_id required", http.StatusBadRequest)
			return
		}

		tx, err := db.BeginTx(r.Context(), nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(r.Context(),
			`DELETE FROM results WHERE user_id=$1`, req.UserID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := tx.ExecContext(r.Context(),
			`DELETE FROM goals WHERE user_id=$1`, req.UserID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := tx.ExecContext(r.Context(),
			`DELETE FROM users WHERE id=$1 OR username=$1`, req.UserID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if err := tx.Commit(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
