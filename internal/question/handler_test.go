package question

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type mockQuestionService struct {
	createFn func(ctx context.Context, in CreateInput) (*Question, error)
	getFn    func(ctx context.Context, id int64) (*Question, error)
	listFn   func(ctx context.Context, courseID int64) ([]Question, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockQuestionService) Create(ctx context.Context, in CreateInput) (*Question, error) {
	if m.createFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createFn(ctx, in)
}

func (m *mockQuestionService) Get(ctx context.Context, id int64) (*Question, error) {
	if m.getFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getFn(ctx, id)
}

func (m *mockQuestionService) ListByCourse(ctx context.Context, courseID int64) ([]Question, error) {
	if m.listFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listFn(ctx, courseID)
}

func (m *mockQuestionService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteFn(ctx, id)
}

func newTestRouter(svc questionService) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Post("/questions", h.Create)
	r.Get("/questions", h.ListByCourse)
	r.Get("/questions/{id}", h.Get)
	r.Delete("/questions/{id}", h.Delete)
	return r
}

func TestCreateQuestionMapsFactoryErrors(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"unknown type", ErrUnknownType, http.StatusBadRequest},
		{"course missing", ErrCourseNotFound, http.StatusNotFound},
	}

	body := `{"course_id":1,"type":"ESSAY","title":"t","body":"b","default_score":2}`
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockQuestionService{
				createFn: func(ctx context.Context, in CreateInput) (*Question, error) {
					return nil, tc.serviceErr
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/questions", strings.NewReader(body))
			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateQuestionRejectsZeroScoreBeforeService(t *testing.T) {
	called := false
	svc := &mockQuestionService{
		createFn: func(ctx context.Context, in CreateInput) (*Question, error) {
			called = true
			return nil, nil
		},
	}
	body := `{"course_id":1,"type":"ESSAY","title":"t","body":"b","default_score":0}`
	req := httptest.NewRequest(http.MethodPost, "/questions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if called {
		t.Fatalf("service must not be reached for a zero score")
	}
}

func TestDeleteQuestionInUse(t *testing.T) {
	svc := &mockQuestionService{
		deleteFn: func(ctx context.Context, id int64) error { return ErrQuestionInUse },
	}
	req := httptest.NewRequest(http.MethodDelete, "/questions/4", nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestListQuestionsRequiresCourseID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/questions", nil)
	rec := httptest.NewRecorder()
	newTestRouter(&mockQuestionService{}).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}
