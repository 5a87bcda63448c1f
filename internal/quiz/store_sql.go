package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quizpulse/quizpulse-backend/internal/goals"
	"github.com/quizpulse/quizpulse-backend/internal/scoring"
)

var (
	ErrQuizNotFound = errors.New("quiz not found")
	ErrGoalNotFound = errors.New("goal not found")
)

// SQLStore works against both sqlite and postgres; $1 placeholders are
// valid in both drivers.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	cj, err := json.Marshal(q.Scoring)
	if err != nil {
		return err
	}
	created := q.CreatedAt
	if created == 0 {
		created = time.Now().Unix()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,title,subject,chapter,time_limit_sec,questions_json,scoring_json,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, subject=EXCLUDED.subject, chapter=EXCLUDED.chapter,
			time_limit_sec=EXCLUDED.time_limit_sec, questions_json=EXCLUDED.questions_json, scoring_json=EXCLUDED.scoring_json`,
		q.ID, q.Title, q.Subject, q.Chapter, q.TimeLimitSec, string(qj), string(cj), q.CreatedBy, created)
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	q, err := s.GetQuizAdmin(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	q.HideAnswers()
	return q, nil
}

func (s *SQLStore) GetQuizAdmin(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,subject,chapter,time_limit_sec,questions_json,scoring_json,created_by,created_at
		FROM quizzes WHERE id=$1`, id)
	var q Quiz
	var qjson, cjson string
	if err := row.Scan(&q.ID, &q.Title, &q.Subject, &q.Chapter, &q.TimeLimitSec, &qjson, &cjson, &q.CreatedBy, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return Quiz{}, fmt.Errorf("decode questions for quiz %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(cjson), &q.Scoring); err != nil {
		return Quiz{}, fmt.Errorf("decode scoring config for quiz %s: %w", id, err)
	}
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args := []any{}
	where := ""
	if opts.Q != "" {
		where = `WHERE title LIKE $1 OR subject LIKE $1`
		args = append(args, "%"+opts.Q+"%")
	}
	args = append(args, limit, opts.Offset)
	query := fmt.Sprintf(`SELECT id,title,subject,chapter,time_limit_sec,questions_json,created_at
		FROM quizzes %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sm Summary
		var qjson string
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.Subject, &sm.Chapter, &sm.TimeLimitSec, &qjson, &sm.CreatedAt); err != nil {
			return nil, err
		}
		var qs []scoring.Question
		if err := json.Unmarshal([]byte(qjson), &qs); err == nil {
			sm.QuestionCount = len(qs)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuizNotFound
	}
	return nil
}

func (s *SQLStore) InsertResult(ctx context.Context, r scoring.Result) error {
	sj, err := json.Marshal(r.SectionScores)
	if err != nil {
		return err
	}
	cj, err := json.Marshal(r.Config)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO results
		(id,user_id,quiz_id,quiz_name,subject,chapter,submitted_at,total_score,section_scores_json,correct_count,wrong_count,unanswered_count,time_taken_sec,config_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		r.ID, r.UserID, r.QuizID, r.QuizName, r.Subject, r.Chapter, r.SubmittedAt.Unix(),
		r.TotalScore, string(sj), r.Correct, r.Wrong, r.Unanswered, r.TimeTakenSec, string(cj))
	return err
}

func (s *SQLStore) ListResults(ctx context.Context, opts ResultListOpts) ([]scoring.Result, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	where, args := "", []any{}
	add := func(cond, val string) {
		args = append(args, val)
		if where == "" {
			where = "WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(args))
	}
	if opts.UserID != "" {
		add("user_id=$%d", opts.UserID)
	}
	if opts.QuizID != "" {
		add("quiz_id=$%d", opts.QuizID)
	}
	args = append(args, limit, opts.Offset)
	query := fmt.Sprintf(`SELECT id,user_id,quiz_id,quiz_name,subject,chapter,submitted_at,total_score,section_scores_json,correct_count,wrong_count,unanswered_count,time_taken_sec,config_json
		FROM results %s ORDER BY submitted_at DESC, id LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []scoring.Result{}
	for rows.Next() {
		var r scoring.Result
		var submitted int64
		var sjson, cjson string
		if err := rows.Scan(&r.ID, &r.UserID, &r.QuizID, &r.QuizName, &r.Subject, &r.Chapter, &submitted,
			&r.TotalScore, &sjson, &r.Correct, &r.Wrong, &r.Unanswered, &r.TimeTakenSec, &cjson); err != nil {
			return nil, err
		}
		r.SubmittedAt = time.Unix(submitted, 0).UTC()
		// Tolerate decode failures on historical rows; analytics degrades
		// rather than blocking the whole listing.
		_ = json.Unmarshal([]byte(sjson), &r.SectionScores)
		_ = json.Unmarshal([]byte(cjson), &r.Config)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutGoal(ctx context.Context, g goals.Goal) error {
	created := g.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO goals (id,user_id,title,description,goal_type,target,section,deadline,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		g.ID, g.UserID, g.Title, g.Description, string(g.Type), g.Target, g.Section, g.Deadline.Unix(), created.Unix())
	return err
}

func (s *SQLStore) ListGoals(ctx context.Context, userID string) ([]goals.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,user_id,title,description,goal_type,target,section,deadline,created_at
		FROM goals WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []goals.Goal{}
	for rows.Next() {
		var g goals.Goal
		var typ string
		var deadline, created int64
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &typ, &g.Target, &g.Section, &deadline, &created); err != nil {
			return nil, err
		}
		g.Type = goals.Type(typ)
		g.Deadline = time.Unix(deadline, 0).UTC()
		g.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteGoal(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGoalNotFound
	}
	return nil
}
