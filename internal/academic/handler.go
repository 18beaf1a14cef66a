package academic

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"acadlms/internal/app/apiresp"
	"acadlms/internal/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

type majorRequest struct {
	Name string `json:"name" validate:"required"`
}

type courseRequest struct {
	MajorID int64  `json:"major_id" validate:"required,gt=0"`
	Title   string `json:"title" validate:"required"`
	Units   int    `json:"units" validate:"required,gt=0"`
}

type termRequest struct {
	Title     string    `json:"title" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

type calendarRequest struct {
	RegistrationStart time.Time  `json:"registration_start" validate:"required"`
	RegistrationEnd   time.Time  `json:"registration_end" validate:"required"`
	AddDropStart      *time.Time `json:"add_drop_start"`
	AddDropEnd        *time.Time `json:"add_drop_end"`
}

type offeringRequest struct {
	CourseID  int64  `json:"course_id" validate:"required,gt=0"`
	TeacherID int64  `json:"teacher_id" validate:"required,gt=0"`
	TermID    int64  `json:"term_id" validate:"required,gt=0"`
	Capacity  int    `json:"capacity" validate:"required,gt=0"`
	WeekDay   int    `json:"week_day" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Location  string `json:"location"`
}

func (h *Handler) CreateMajor(w http.ResponseWriter, r *http.Request) {
	var req majorRequest
	if !h.decode(w, r, &req) {
		return
	}
	major, err := h.svc.CreateMajor(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, major)
}

func (h *Handler) ListMajors(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListMajors(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) UpdateMajor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req majorRequest
	if !h.decode(w, r, &req) {
		return
	}
	major, err := h.svc.UpdateMajor(r.Context(), id, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, major)
}

func (h *Handler) DeleteMajor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteMajor(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if !h.decode(w, r, &req) {
		return
	}
	course, err := h.svc.CreateCourse(r.Context(), CreateCourseInput{
		MajorID: req.MajorID,
		Title:   req.Title,
		Units:   req.Units,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, course)
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	var majorID int64
	if v := r.URL.Query().Get("major_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid major_id")
			return
		}
		majorID = n
	}
	items, err := h.svc.ListCourses(r.Context(), majorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req courseRequest
	if !h.decode(w, r, &req) {
		return
	}
	course, err := h.svc.UpdateCourse(r.Context(), id, CreateCourseInput{
		MajorID: req.MajorID,
		Title:   req.Title,
		Units:   req.Units,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, course)
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCourse(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) CreateTerm(w http.ResponseWriter, r *http.Request) {
	var req termRequest
	if !h.decode(w, r, &req) {
		return
	}
	term, err := h.svc.CreateTerm(r.Context(), CreateTermInput{
		Title:     req.Title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, term)
}

func (h *Handler) ListTerms(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListTerms(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) DeleteTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteTerm(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) SetCalendar(w http.ResponseWriter, r *http.Request) {
	termID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req calendarRequest
	if !h.decode(w, r, &req) {
		return
	}
	cal, err := h.svc.SetCalendar(r.Context(), termID, SetCalendarInput{
		RegistrationStart: req.RegistrationStart,
		RegistrationEnd:   req.RegistrationEnd,
		AddDropStart:      req.AddDropStart,
		AddDropEnd:        req.AddDropEnd,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, cal)
}

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	termID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cal, err := h.svc.GetCalendar(r.Context(), termID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, cal)
}

func (h *Handler) CreateOffering(w http.ResponseWriter, r *http.Request) {
	var req offeringRequest
	if !h.decode(w, r, &req) {
		return
	}
	oc, err := h.svc.CreateOffering(r.Context(), CreateOfferingInput{
		CourseID:  req.CourseID,
		TeacherID: req.TeacherID,
		TermID:    req.TermID,
		Capacity:  req.Capacity,
		WeekDay:   req.WeekDay,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Location:  req.Location,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, oc)
}

func (h *Handler) GetOffering(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	oc, err := h.svc.GetOffering(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, oc)
}

func (h *Handler) ListOfferingsByTerm(w http.ResponseWriter, r *http.Request) {
	termID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListOfferingsByTerm(r.Context(), termID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

// MyTaughtOfferings lists offerings taught by the authenticated teacher.
func (h *Handler) MyTaughtOfferings(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.ListOfferingsByTeacher(r.Context(), user.PersonID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

// MyEnrolledOfferings lists offerings the authenticated student is enrolled in.
func (h *Handler) MyEnrolledOfferings(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.ListOfferingsByStudent(r.Context(), user.PersonID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	offeringID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Enroll(r.Context(), user.PersonID, offeringID); err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "enrolled"})
}

func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	offeringID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Drop(r.Context(), user.PersonID, offeringID); err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "dropped"})
}

func (h *Handler) ListEnrolledStudents(w http.ResponseWriter, r *http.Request) {
	offeringID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListEnrolledStudents(r.Context(), offeringID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
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
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrMajorNotFound),
		errors.Is(err, ErrCourseNotFound),
		errors.Is(err, ErrTermNotFound),
		errors.Is(err, ErrOfferingNotFound),
		errors.Is(err, ErrCalendarNotFound),
		errors.Is(err, ErrPersonNotFound),
		errors.Is(err, ErrNotEnrolled):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTermInUse),
		errors.Is(err, ErrScheduleConflict),
		errors.Is(err, ErrCourseFull),
		errors.Is(err, ErrAlreadyEnrolled):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrRegistrationClosed):
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
