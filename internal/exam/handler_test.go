package exam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"acadlms/internal/auth"
)

type mockExamService struct {
	createExamFn        func(ctx context.Context, in CreateExamInput) (*Exam, error)
	updateExamFn        func(ctx context.Context, id int64, in UpdateExamInput) (*Exam, error)
	deleteExamFn        func(ctx context.Context, id int64) error
	getExamFn           func(ctx context.Context, id int64) (*Exam, error)
	listExamsFn         func(ctx context.Context, offeredCourseID int64) ([]Exam, error)
	assignQuestionFn    func(ctx context.Context, examID, questionID int64, score float64) error
	removeQuestionFn    func(ctx context.Context, examID, questionID int64) error
	listExamQuestionsFn func(ctx context.Context, examID int64) ([]ExamQuestion, error)
	startAttemptFn      func(ctx context.Context, accountID, examID int64) (*Attempt, error)
	saveAnswerFn        func(ctx context.Context, accountID, attemptID, questionID int64, optionID *int64, text string) (*Answer, error)
	submitAttemptFn     func(ctx context.Context, accountID, attemptID int64) (*Attempt, error)
	gradeEssayFn        func(ctx context.Context, answerID int64, score float64) (*Answer, error)
	getAttemptFn        func(ctx context.Context, attemptID int64) (*Attempt, error)
	listAnswersFn       func(ctx context.Context, attemptID int64) ([]Answer, error)
	listAttemptsFn      func(ctx context.Context, examID int64) ([]Attempt, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockExamService) CreateExam(ctx context.Context, in CreateExamInput) (*Exam, error) {
	if m.createExamFn == nil {
		return nil, errNotImplemented
	}
	return m.createExamFn(ctx, in)
}

func (m *mockExamService) UpdateExam(ctx context.Context, id int64, in UpdateExamInput) (*Exam, error) {
	if m.updateExamFn == nil {
		return nil, errNotImplemented
	}
	return m.updateExamFn(ctx, id, in)
}

func (m *mockExamService) DeleteExam(ctx context.Context, id int64) error {
	if m.deleteExamFn == nil {
		return errNotImplemented
	}
	return m.deleteExamFn(ctx, id)
}

func (m *mockExamService) GetExam(ctx context.Context, id int64) (*Exam, error) {
	if m.getExamFn == nil {
		return nil, errNotImplemented
	}
	return m.getExamFn(ctx, id)
}

func (m *mockExamService) ListExamsByOffering(ctx context.Context, offeredCourseID int64) ([]Exam, error) {
	if m.listExamsFn == nil {
		return nil, errNotImplemented
	}
	return m.listExamsFn(ctx, offeredCourseID)
}

func (m *mockExamService) AssignQuestion(ctx context.Context, examID, questionID int64, score float64) error {
	if m.assignQuestionFn == nil {
		return errNotImplemented
	}
	return m.assignQuestionFn(ctx, examID, questionID, score)
}

func (m *mockExamService) RemoveQuestion(ctx context.Context, examID, questionID int64) error {
	if m.removeQuestionFn == nil {
		return errNotImplemented
	}
	return m.removeQuestionFn(ctx, examID, questionID)
}

func (m *mockExamService) ListExamQuestions(ctx context.Context, examID int64) ([]ExamQuestion, error) {
	if m.listExamQuestionsFn == nil {
		return nil, errNotImplemented
	}
	return m.listExamQuestionsFn(ctx, examID)
}

func (m *mockExamService) StartAttempt(ctx context.Context, accountID, examID int64) (*Attempt, error) {
	if m.startAttemptFn == nil {
		return nil, errNotImplemented
	}
	return m.startAttemptFn(ctx, accountID, examID)
}

func (m *mockExamService) SaveAnswer(ctx context.Context, accountID, attemptID, questionID int64, optionID *int64, text string) (*Answer, error) {
	if m.saveAnswerFn == nil {
		return nil, errNotImplemented
	}
	return m.saveAnswerFn(ctx, accountID, attemptID, questionID, optionID, text)
}

func (m *mockExamService) SubmitAttempt(ctx context.Context, accountID, attemptID int64) (*Attempt, error) {
	if m.submitAttemptFn == nil {
		return nil, errNotImplemented
	}
	return m.submitAttemptFn(ctx, accountID, attemptID)
}

func (m *mockExamService) GradeEssay(ctx context.Context, answerID int64, score float64) (*Answer, error) {
	if m.gradeEssayFn == nil {
		return nil, errNotImplemented
	}
	return m.gradeEssayFn(ctx, answerID, score)
}

func (m *mockExamService) GetAttempt(ctx context.Context, attemptID int64) (*Attempt, error) {
	if m.getAttemptFn == nil {
		return nil, errNotImplemented
	}
	return m.getAttemptFn(ctx, attemptID)
}

func (m *mockExamService) ListAttemptAnswers(ctx context.Context, attemptID int64) ([]Answer, error) {
	if m.listAnswersFn == nil {
		return nil, errNotImplemented
	}
	return m.listAnswersFn(ctx, attemptID)
}

func (m *mockExamService) ListAttemptsByExam(ctx context.Context, examID int64) ([]Attempt, error) {
	if m.listAttemptsFn == nil {
		return nil, errNotImplemented
	}
	return m.listAttemptsFn(ctx, examID)
}

func newTestRouter(svc examService) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Post("/exams/{id}/start", h.StartAttempt)
	r.Put("/attempts/{id}/answers", h.SaveAnswer)
	r.Post("/attempts/{id}/submit", h.SubmitAttempt)
	r.Post("/answers/{id}/grade", h.GradeEssay)
	r.Get("/attempts/{id}", h.GetAttempt)
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, user *auth.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != nil {
		req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func student() *auth.User {
	return &auth.User{ID: 10, PersonID: 100, Username: "sara", Roles: []string{"STUDENT"}}
}

func TestStartAttemptStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"account missing is a lookup failure", ErrAccountNotFound, http.StatusNotFound},
		{"exam missing", ErrExamNotFound, http.StatusNotFound},
		{"already completed blocks access", ErrAttemptCompleted, http.StatusForbidden},
		{"not enrolled blocks access", ErrNotEnrolled, http.StatusForbidden},
		{"too early is a state error", ErrExamNotStarted, http.StatusConflict},
		{"too late is a state error", ErrExamFinished, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockExamService{
				startAttemptFn: func(ctx context.Context, accountID, examID int64) (*Attempt, error) {
					return nil, tc.serviceErr
				},
			}
			rec := doRequest(t, newTestRouter(svc), http.MethodPost, "/exams/5/start", "", student())
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d body=%s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestStartAttemptRequiresUser(t *testing.T) {
	rec := doRequest(t, newTestRouter(&mockExamService{}), http.MethodPost, "/exams/5/start", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStartAttemptPassesAccountID(t *testing.T) {
	var gotAccount, gotExam int64
	svc := &mockExamService{
		startAttemptFn: func(ctx context.Context, accountID, examID int64) (*Attempt, error) {
			gotAccount, gotExam = accountID, examID
			return &Attempt{ID: 1, ExamID: examID, PersonID: 100, Status: AttemptInProgress}, nil
		},
	}
	rec := doRequest(t, newTestRouter(svc), http.MethodPost, "/exams/5/start", "", student())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if gotAccount != 10 || gotExam != 5 {
		t.Fatalf("expected account=10 exam=5, got account=%d exam=%d", gotAccount, gotExam)
	}
}

func TestSubmitAttemptUnknownAccountIsForbidden(t *testing.T) {
	svc := &mockExamService{
		submitAttemptFn: func(ctx context.Context, accountID, attemptID int64) (*Attempt, error) {
			return nil, ErrNoAccount
		},
	}
	rec := doRequest(t, newTestRouter(svc), http.MethodPost, "/attempts/3/submit", "", student())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSaveAnswerMapsQuestionNotInExam(t *testing.T) {
	svc := &mockExamService{
		saveAnswerFn: func(ctx context.Context, accountID, attemptID, questionID int64, optionID *int64, text string) (*Answer, error) {
			return nil, ErrQuestionNotInExam
		},
	}
	body := `{"question_id": 9, "text": "answer"}`
	rec := doRequest(t, newTestRouter(svc), http.MethodPut, "/attempts/3/answers", body, student())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSaveAnswerRequiresExactlyOnePayload(t *testing.T) {
	svc := &mockExamService{
		saveAnswerFn: func(ctx context.Context, accountID, attemptID, questionID int64, optionID *int64, text string) (*Answer, error) {
			t.Fatal("service must not be reached")
			return nil, nil
		},
	}
	router := newTestRouter(svc)

	cases := []struct {
		name string
		body string
	}{
		{"both set", `{"question_id": 9, "option_id": 2, "text": "also text"}`},
		{"neither set", `{"question_id": 9}`},
		{"blank text only", `{"question_id": 9, "text": "   "}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPut, "/attempts/3/answers", tc.body, student())
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGradeEssayRejectsNegativeScore(t *testing.T) {
	called := false
	svc := &mockExamService{
		gradeEssayFn: func(ctx context.Context, answerID int64, score float64) (*Answer, error) {
			called = true
			return nil, nil
		},
	}
	rec := doRequest(t, newTestRouter(svc), http.MethodPost, "/answers/7/grade", `{"score": -1}`, student())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if called {
		t.Fatalf("service must not be reached for a negative score")
	}
}

func TestGradeEssayMapsNotEssay(t *testing.T) {
	svc := &mockExamService{
		gradeEssayFn: func(ctx context.Context, answerID int64, score float64) (*Answer, error) {
			return nil, ErrNotEssay
		},
	}
	rec := doRequest(t, newTestRouter(svc), http.MethodPost, "/answers/7/grade", `{"score": 3}`, student())
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetAttemptOwnership(t *testing.T) {
	svc := &mockExamService{
		getAttemptFn: func(ctx context.Context, attemptID int64) (*Attempt, error) {
			return &Attempt{ID: attemptID, PersonID: 999, Status: AttemptCompleted}, nil
		},
		listAnswersFn: func(ctx context.Context, attemptID int64) ([]Answer, error) {
			return []Answer{}, nil
		},
	}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/attempts/3", "", student())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student reading a foreign attempt: expected 403, got %d", rec.Code)
	}

	teacher := &auth.User{ID: 20, PersonID: 200, Username: "omid", Roles: []string{"TEACHER"}}
	rec = doRequest(t, router, http.MethodGet, "/attempts/3", "", teacher)
	if rec.Code != http.StatusOK {
		t.Fatalf("teacher reading an attempt: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.OK {
		t.Fatalf("expected ok envelope, got %s", rec.Body.String())
	}
}
