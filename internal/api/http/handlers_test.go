package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	api "github.com/quizpulse/quizpulse-backend/internal/api/http"
	"github.com/quizpulse/quizpulse-backend/internal/goals"
	"github.com/quizpulse/quizpulse-backend/internal/quiz"
	"github.com/quizpulse/quizpulse-backend/internal/rbac"
	"github.com/quizpulse/quizpulse-backend/internal/scoring"
)

/* ---------------- In-memory fake satisfying quiz.Store ---------------- */

type fakeStore struct {
	mu      sync.Mutex
	quizzes map[string]quiz.Quiz
	results []scoring.Result
	goals   map[string]goals.Goal
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		quizzes: map[string]quiz.Quiz{},
		goals:   map[string]goals.Goal{},
	}
}

func (s *fakeStore) PutQuiz(_ context.Context, q quiz.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[q.ID] = q
	return nil
}

func (s *fakeStore) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	q, err := s.GetQuizAdmin(ctx, id)
	if err != nil {
		return quiz.Quiz{}, err
	}
	qs := make([]scoring.Question, len(q.Questions))
	copy(qs, q.Questions)
	q.Questions = qs
	q.HideAnswers()
	return q, nil
}

func (s *fakeStore) GetQuizAdmin(_ context.Context, id string) (quiz.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrQuizNotFound
	}
	return q, nil
}

func (s *fakeStore) ListQuizzes(_ context.Context, _ quiz.ListOpts) ([]quiz.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []quiz.Summary{}
	for _, q := range s.quizzes {
		out = append(out, quiz.Summary{ID: q.ID, Title: q.Title, QuestionCount: len(q.Questions)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) DeleteQuiz(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return quiz.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	return nil
}

func (s *fakeStore) InsertResult(_ context.Context, r scoring.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *fakeStore) ListResults(_ context.Context, opts quiz.ResultListOpts) ([]scoring.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []scoring.Result{}
	for _, r := range s.results {
		if opts.UserID != "" && r.UserID != opts.UserID {
			continue
		}
		if opts.QuizID != "" && r.QuizID != opts.QuizID {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (s *fakeStore) PutGoal(_ context.Context, g goals.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.ID] = g
	return nil
}

func (s *fakeStore) ListGoals(_ context.Context, userID string) ([]goals.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []goals.Goal{}
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) DeleteGoal(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.UserID != userID {
		return quiz.ErrGoalNotFound
	}
	delete(s.goals, id)
	return nil
}

var _ quiz.Store = (*fakeStore)(nil)

/* ---------------- helpers ---------------- */

func seedQuiz(t *testing.T, s *fakeStore) quiz.Quiz {
	t.Helper()
	q := quiz.Quiz{
		ID:      "quiz-1",
		Title:   "Mock Test 1",
		Subject: "Aptitude",
		Chapter: "Basics",
		Questions: []scoring.Question{
			{ID: "q1", Section: "Reasoning", Options: []string{"a", "b"}, CorrectIndex: 0},
			{ID: "q2", Section: "Reasoning", Options: []string{"a", "b"}, CorrectIndex: 1},
			{ID: "q3", Section: "Quantitative", Options: []string{"a", "b"}, CorrectIndex: 0},
			{ID: "q4", Section: "Quantitative", Options: []string{"a", "b"}, CorrectIndex: 1},
		},
		Scoring: scoring.Config{NegativeMarking: true, NegativeMarkValue: 0.25},
	}
	if err := s.PutQuiz(context.Background(), q); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return q
}

func asUser(r *http.Request, sub, role string) *http.Request {
	ctx := rbac.WithSubject(r.Context(), sub)
	ctx = rbac.WithRole(ctx, role)
	return r.WithContext(ctx)
}

/* ---------------- tests ---------------- */

func TestSubmitAttemptHandler(t *testing.T) {
	store := newFakeStore()
	seedQuiz(t, store)

	body := `{"quiz_id":"quiz-1","time_taken_sec":300,"answers":[
		{"question_id":"q1","selected":0},
		{"question_id":"q2","selected":0},
		{"question_id":"q3","selected":null},
		{"question_id":"q4"}
	]}`
	req := asUser(httptest.NewRequest("POST", "/attempts", strings.NewReader(body)), "stu-1", "student")
	rr := httptest.NewRecorder()
	api.SubmitAttemptHandler(store)(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var res scoring.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.UserID != "stu-1" {
		t.Errorf("UserID = %q, want stu-1 (from auth context)", res.UserID)
	}
	if res.Correct != 1 || res.Wrong != 1 || res.Unanswered != 2 {
		t.Errorf("counts = %d/%d/%d, want 1/1/2", res.Correct, res.Wrong, res.Unanswered)
	}
	// net 1 - 0.25 = 0.75 -> 1 mark -> 25%
	if res.TotalScore != 25 {
		t.Errorf("TotalScore = %d, want 25", res.TotalScore)
	}
	if res.QuizName != "Mock Test 1" || res.Subject != "Aptitude" {
		t.Errorf("denormalized names = %q/%q", res.QuizName, res.Subject)
	}
	if res.ID == "" {
		t.Error("result not assigned an ID")
	}
	if len(store.results) != 1 {
		t.Fatalf("stored %d results, want 1", len(store.results))
	}
}

func TestSubmitAttemptHandler_UnknownQuestion(t *testing.T) {
	store := newFakeStore()
	seedQuiz(t, store)

	body := `{"quiz_id":"quiz-1","answers":[{"question_id":"ghost","selected":0}]}`
	req := asUser(httptest.NewRequest("POST", "/attempts", strings.NewReader(body)), "stu-1", "student")
	rr := httptest.NewRecorder()
	api.SubmitAttemptHandler(store)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if len(store.results) != 0 {
		t.Error("malformed attempt must not be persisted")
	}
}

func TestSubmitAttemptHandler_QuizNotFound(t *testing.T) {
	store := newFakeStore()
	req := asUser(httptest.NewRequest("POST", "/attempts", strings.NewReader(`{"quiz_id":"nope"}`)), "stu-1", "student")
	rr := httptest.NewRecorder()
	api.SubmitAttemptHandler(store)(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestListResultsHandler_StudentScopedToOwn(t *testing.T) {
	store := newFakeStore()
	store.results = []scoring.Result{
		{ID: "r1", UserID: "stu-1", TotalScore: 50},
		{ID: "r2", UserID: "stu-2", TotalScore: 70},
	}

	// student asking for someone else's results still gets their own
	req := asUser(httptest.NewRequest("GET", "/results?user_id=stu-2", nil), "stu-1", "student")
	rr := httptest.NewRecorder()
	api.ListResultsHandler(store)(rr, req)

	var got []scoring.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "stu-1" {
		t.Fatalf("student saw %+v, want only own results", got)
	}

	// admin can view anyone
	req = asUser(httptest.NewRequest("GET", "/results?user_id=stu-2", nil), "adm-1", "admin")
	rr = httptest.NewRecorder()
	api.ListResultsHandler(store)(rr, req)
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "stu-2" {
		t.Fatalf("admin saw %+v, want stu-2's results", got)
	}
}

func TestGetQuizHandler_HidesAnswersFromStudents(t *testing.T) {
	store := newFakeStore()
	seedQuiz(t, store)

	r := chi.NewRouter()
	r.Get("/quizzes/{quizID}", api.GetQuizHandler(store))

	req := asUser(httptest.NewRequest("GET", "/quizzes/quiz-1", nil), "stu-1", "student")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var got quiz.Quiz
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, q := range got.Questions {
		if q.CorrectIndex != -1 {
			t.Fatalf("answer key leaked for question %s", q.ID)
		}
	}

	// admin sees the key
	req = asUser(httptest.NewRequest("GET", "/quizzes/quiz-1", nil), "adm-1", "admin")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Questions[1].CorrectIndex != 1 {
		t.Errorf("admin view CorrectIndex = %d, want 1", got.Questions[1].CorrectIndex)
	}
}

func TestGoalHandlers_CreateListDelete(t *testing.T) {
	store := newFakeStore()
	store.results = []scoring.Result{{UserID: "stu-1", TotalScore: 90}}

	body := `{"title":"Hit 80 average","type":"average-score","target":80,"deadline":"2030-01-01T00:00:00Z"}`
	req := asUser(httptest.NewRequest("POST", "/goals", strings.NewReader(body)), "stu-1", "student")
	rr := httptest.NewRecorder()
	api.CreateGoalHandler(store)(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	var created goals.Goal
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.UserID != "stu-1" || created.ID == "" {
		t.Fatalf("created = %+v", created)
	}

	req = asUser(httptest.NewRequest("GET", "/goals", nil), "stu-1", "student")
	rr = httptest.NewRecorder()
	api.ListGoalsHandler(store)(rr, req)
	var evals []goals.Evaluation
	if err := json.Unmarshal(rr.Body.Bytes(), &evals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(evals) != 1 || evals[0].Progress == nil {
		t.Fatalf("evaluations = %+v", evals)
	}
	if evals[0].Progress.Status != goals.StatusCompleted {
		t.Errorf("status = %s, want completed (avg 90 >= 80)", evals[0].Progress.Status)
	}

	r := chi.NewRouter()
	r.Delete("/goals/{goalID}", api.DeleteGoalHandler(store))
	req = asUser(httptest.NewRequest("DELETE", "/goals/"+created.ID, nil), "stu-1", "student")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if len(store.goals) != 0 {
		t.Error("goal not deleted")
	}
}

func TestCreateGoalHandler_RejectsBadDefinitions(t *testing.T) {
	store := newFakeStore()
	cases := []string{
		`{"title":"x","type":"bogus","target":1,"deadline":"2030-01-01T00:00:00Z"}`,
		`{"title":"x","type":"section-score","target":1,"deadline":"2030-01-01T00:00:00Z"}`,
		`{"type":"average-score","target":1,"deadline":"2030-01-01T00:00:00Z"}`,
	}
	for _, body := range cases {
		req := asUser(httptest.NewRequest("POST", "/goals", strings.NewReader(body)), "stu-1", "student")
		rr := httptest.NewRecorder()
		api.CreateGoalHandler(store)(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rr.Code)
		}
	}
	if len(store.goals) != 0 {
		t.Error("invalid goals must not be stored")
	}
}

func TestDashboardHandler(t *testing.T) {
	store := newFakeStore()
	seedQuiz(t, store)

	// two scored attempts through the real pipeline
	for _, body := range []string{
		`{"quiz_id":"quiz-1","answers":[{"question_id":"q1","selected":0},{"question_id":"q2","selected":1},{"question_id":"q3","selected":0},{"question_id":"q4","selected":1}]}`,
		`{"quiz_id":"quiz-1","answers":[{"question_id":"q1","selected":1},{"question_id":"q2","selected":0},{"question_id":"q3","selected":1},{"question_id":"q4","selected":0}]}`,
	} {
		req := asUser(httptest.NewRequest("POST", "/attempts", strings.NewReader(body)), "stu-1", "student")
		rr := httptest.NewRecorder()
		api.SubmitAttemptHandler(store)(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("submit status = %d", rr.Code)
		}
	}

	req := asUser(httptest.NewRequest("GET", "/analytics/dashboard", nil), "stu-1", "student")
	rr := httptest.NewRecorder()
	api.DashboardHandler(store)(rr, req)

	var resp struct {
		Summary struct {
			TotalAttempts int  `json:"total_attempts"`
			AverageScore  int  `json:"average_score"`
			BestScore     *int `json:"best_score"`
		} `json:"summary"`
		Subjects []struct {
			Key      string `json:"key"`
			Attempts int    `json:"attempts"`
		} `json:"subjects"`
		Trend []struct {
			Score int `json:"score"`
		} `json:"trend"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Summary.TotalAttempts != 2 {
		t.Errorf("TotalAttempts = %d, want 2", resp.Summary.TotalAttempts)
	}
	// first attempt: all correct = 100; second: all wrong = 0
	if resp.Summary.BestScore == nil || *resp.Summary.BestScore != 100 {
		t.Errorf("BestScore = %v, want 100", resp.Summary.BestScore)
	}
	if resp.Summary.AverageScore != 50 {
		t.Errorf("AverageScore = %d, want 50", resp.Summary.AverageScore)
	}
	if len(resp.Subjects) != 1 || resp.Subjects[0].Key != "Aptitude" || resp.Subjects[0].Attempts != 2 {
		t.Errorf("Subjects = %+v", resp.Subjects)
	}
	if len(resp.Trend) != 2 {
		t.Errorf("Trend has %d points, want 2", len(resp.Trend))
	}
}

func TestActivityHandler_EmptyHistory(t *testing.T) {
	store := newFakeStore()
	req := asUser(httptest.NewRequest("GET", "/analytics/activity", nil), "stu-1", "student")
	rr := httptest.NewRecorder()
	api.ActivityHandler(store)(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var rep struct {
		CurrentStreak int `json:"current_streak"`
		LongestStreak int `json:"longest_streak"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.CurrentStreak != 0 || rep.LongestStreak != 0 {
		t.Errorf("streaks = %d/%d, want 0/0", rep.CurrentStreak, rep.LongestStreak)
	}
}

func TestEvaluationError(t *testing.T) {
	// a goal that slipped into storage with a bad type must not break the listing
	store := newFakeStore()
	store.goals["g1"] = goals.Goal{ID: "g1", UserID: "stu-1", Type: "legacy-type"}
	store.goals["g2"] = goals.Goal{ID: "g2", UserID: "stu-1", Type: goals.TypeTotalAttempts, Target: 5}

	req := asUser(httptest.NewRequest("GET", "/goals", nil), "stu-1", "student")
	rr := httptest.NewRecorder()
	api.ListGoalsHandler(store)(rr, req)

	var evals []goals.Evaluation
	if err := json.Unmarshal(rr.Body.Bytes(), &evals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(evals) != 2 {
		t.Fatalf("got %d evaluations, want 2", len(evals))
	}
	var bad, ok bool
	for _, e := range evals {
		if e.Error != "" {
			bad = true
		}
		if e.Progress != nil {
			ok = true
		}
	}
	if !bad || !ok {
		t.Errorf("expected one failed and one evaluated goal, got %+v", evals)
	}
}
