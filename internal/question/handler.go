package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"acadlms/internal/app/apiresp"
)

type questionService interface {
	Create(ctx context.Context, in CreateInput) (*Question, error)
	Get(ctx context.Context, id int64) (*Question, error)
	ListByCourse(ctx context.Context, courseID int64) ([]Question, error)
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	svc      questionService
	validate *validator.Validate
}

func NewHandler(svc questionService) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

type optionRequest struct {
	Body      string `json:"body" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type createRequest struct {
	CourseID     int64           `json:"course_id" validate:"required,gt=0"`
	Type         string          `json:"type" validate:"required"`
	Title        string          `json:"title" validate:"required"`
	Body         string          `json:"body" validate:"required"`
	DefaultScore float64         `json:"default_score" validate:"required,gt=0"`
	Options      []optionRequest `json:"options" validate:"dive"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	in := CreateInput{
		CourseID:     req.CourseID,
		Type:         req.Type,
		Title:        req.Title,
		Body:         req.Body,
		DefaultScore: req.DefaultScore,
	}
	for _, opt := range req.Options {
		in.Options = append(in.Options, OptionInput{Body: opt.Body, IsCorrect: opt.IsCorrect})
	}

	q, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, q)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, q)
}

func (h *Handler) ListByCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(r.URL.Query().Get("course_id"), 10, 64)
	if err != nil || courseID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "course_id is required")
		return
	}
	items, err := h.svc.ListByCourse(r.Context(), courseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownType):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrQuestionNotFound), errors.Is(err, ErrCourseNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrQuestionInUse):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid question id")
		return 0, false
	}
	return id, true
}
