package exam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"acadlms/internal/app/apiresp"
	"acadlms/internal/auth"
)

type examService interface {
	CreateExam(ctx context.Context, in CreateExamInput) (*Exam, error)
	UpdateExam(ctx context.Context, id int64, in UpdateExamInput) (*Exam, error)
	DeleteExam(ctx context.Context, id int64) error
	GetExam(ctx context.Context, id int64) (*Exam, error)
	ListExamsByOffering(ctx context.Context, offeredCourseID int64) ([]Exam, error)
	AssignQuestion(ctx context.Context, examID, questionID int64, score float64) error
	RemoveQuestion(ctx context.Context, examID, questionID int64) error
	ListExamQuestions(ctx context.Context, examID int64) ([]ExamQuestion, error)
	StartAttempt(ctx context.Context, accountID, examID int64) (*Attempt, error)
	SaveAnswer(ctx context.Context, accountID, attemptID, questionID int64, optionID *int64, text string) (*Answer, error)
	SubmitAttempt(ctx context.Context, accountID, attemptID int64) (*Attempt, error)
	GradeEssay(ctx context.Context, answerID int64, score float64) (*Answer, error)
	GetAttempt(ctx context.Context, attemptID int64) (*Attempt, error)
	ListAttemptAnswers(ctx context.Context, attemptID int64) ([]Answer, error)
	ListAttemptsByExam(ctx context.Context, examID int64) ([]Attempt, error)
}

type Handler struct {
	svc      examService
	validate *validator.Validate
}

func NewHandler(svc examService) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

type examRequest struct {
	OfferedCourseID int64     `json:"offered_course_id" validate:"required,gt=0"`
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description"`
	StartAt         time.Time `json:"start_at" validate:"required"`
	EndAt           time.Time `json:"end_at" validate:"required"`
}

type assignQuestionRequest struct {
	QuestionID int64   `json:"question_id" validate:"required,gt=0"`
	Score      float64 `json:"score" validate:"gte=0"`
}

type saveAnswerRequest struct {
	QuestionID int64  `json:"question_id" validate:"required,gt=0"`
	OptionID   *int64 `json:"option_id"`
	Text       string `json:"text"`
}

type gradeEssayRequest struct {
	Score float64 `json:"score" validate:"gte=0,lte=100"`
}

func (h *Handler) CreateExam(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req examRequest
	if !h.decode(w, r, &req) {
		return
	}

	exam, err := h.svc.CreateExam(r.Context(), CreateExamInput{
		OfferedCourseID: req.OfferedCourseID,
		Title:           req.Title,
		Description:     req.Description,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		CreatedBy:       user.PersonID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, exam)
}

func (h *Handler) UpdateExam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req examRequest
	if !h.decode(w, r, &req) {
		return
	}
	exam, err := h.svc.UpdateExam(r.Context(), id, UpdateExamInput{
		Title:       req.Title,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, exam)
}

func (h *Handler) DeleteExam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteExam(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) GetExam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	exam, err := h.svc.GetExam(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, exam)
}

func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	offeringID, err := strconv.ParseInt(r.URL.Query().Get("offered_course_id"), 10, 64)
	if err != nil || offeringID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "offered_course_id is required")
		return
	}
	items, err := h.svc.ListExamsByOffering(r.Context(), offeringID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) AssignQuestion(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req assignQuestionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.AssignQuestion(r.Context(), examID, req.QuestionID, req.Score); err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "assigned"})
}

func (h *Handler) RemoveQuestion(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	if err := h.svc.RemoveQuestion(r.Context(), examID, questionID); err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) ListExamQuestions(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListExamQuestions(r.Context(), examID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	examID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	attempt, err := h.svc.StartAttempt(r.Context(), user.ID, examID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, attempt)
}

func (h *Handler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	attemptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req saveAnswerRequest
	if !h.decode(w, r, &req) {
		return
	}
	hasOption := req.OptionID != nil
	hasText := strings.TrimSpace(req.Text) != ""
	if hasOption == hasText {
		apiresp.WriteError(w, r, http.StatusBadRequest, "exactly one of option_id and text must be set")
		return
	}
	answer, err := h.svc.SaveAnswer(r.Context(), user.ID, attemptID, req.QuestionID, req.OptionID, req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, answer)
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	attemptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	attempt, err := h.svc.SubmitAttempt(r.Context(), user.ID, attemptID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, attempt)
}

func (h *Handler) GradeEssay(w http.ResponseWriter, r *http.Request) {
	answerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req gradeEssayRequest
	if !h.decode(w, r, &req) {
		return
	}
	answer, err := h.svc.GradeEssay(r.Context(), answerID, req.Score)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, answer)
}

// GetAttempt returns an attempt with its answers. Students can only read
// their own attempt; teachers and admins can read any.
func (h *Handler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	attemptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	attempt, err := h.svc.GetAttempt(r.Context(), attemptID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.canReadAttempt(user, attempt) {
		apiresp.WriteError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	answers, err := h.svc.ListAttemptAnswers(r.Context(), attemptID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	apiresp.WriteOK(w, r, http.StatusOK, map[string]interface{}{
		"attempt": attempt,
		"answers": answers,
	})
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListAttemptsByExam(r.Context(), examID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) canReadAttempt(user *auth.User, attempt *Attempt) bool {
	if user.HasRole("TEACHER") || user.HasRole("ADMIN") {
		return true
	}
	return attempt.PersonID == user.PersonID
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNegativeScore),
		errors.Is(err, ErrOptionNotInQuestion):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrExamNotFound),
		errors.Is(err, ErrOfferingNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrQuestionNotInExam),
		errors.Is(err, ErrAttemptNotFound),
		errors.Is(err, ErrAnswerNotFound),
		errors.Is(err, ErrAccountNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrExamLive),
		errors.Is(err, ErrExamNotStarted),
		errors.Is(err, ErrExamFinished),
		errors.Is(err, ErrNotEssay):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotEnrolled),
		errors.Is(err, ErrNoAccount),
		errors.Is(err, ErrAttemptCompleted),
		errors.Is(err, ErrAttemptForbidden):
		apiresp.WriteError(w, r, http.StatusForbidden, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
