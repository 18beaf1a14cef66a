package academic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMajorNotFound      = errors.New("major not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrTermNotFound       = errors.New("term not found")
	ErrTermInUse          = errors.New("term already has registrations")
	ErrOfferingNotFound   = errors.New("offered course not found")
	ErrCalendarNotFound   = errors.New("academic calendar not found")
	ErrScheduleConflict   = errors.New("schedule conflict")
	ErrRegistrationClosed = errors.New("registration window is closed")
	ErrCourseFull         = errors.New("offered course is at capacity")
	ErrAlreadyEnrolled    = errors.New("student already enrolled")
	ErrNotEnrolled        = errors.New("student is not enrolled")
	ErrPersonNotFound     = errors.New("person not found")
)

type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// NewServiceWithClock is used by tests that need a fixed clock.
func NewServiceWithClock(db *sql.DB, now func() time.Time) *Service {
	return &Service{db: db, now: now}
}

type Major struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Course struct {
	ID      int64  `json:"id"`
	MajorID int64  `json:"major_id"`
	Title   string `json:"title"`
	Units   int    `json:"units"`
}

type Term struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type Calendar struct {
	TermID            int64      `json:"term_id"`
	RegistrationStart time.Time  `json:"registration_start"`
	RegistrationEnd   time.Time  `json:"registration_end"`
	AddDropStart      *time.Time `json:"add_drop_start,omitempty"`
	AddDropEnd        *time.Time `json:"add_drop_end,omitempty"`
}

type OfferedCourse struct {
	ID          int64  `json:"id"`
	CourseID    int64  `json:"course_id"`
	CourseTitle string `json:"course_title"`
	TeacherID   int64  `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	TermID      int64  `json:"term_id"`
	Capacity    int    `json:"capacity"`
	Enrolled    int    `json:"enrolled"`
	WeekDay     int    `json:"week_day"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location,omitempty"`
}

type EnrolledStudent struct {
	PersonID   int64     `json:"person_id"`
	FullName   string    `json:"full_name"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

type CreateCourseInput struct {
	MajorID int64
	Title   string
	Units   int
}

type CreateTermInput struct {
	Title     string
	StartDate time.Time
	EndDate   time.Time
}

type SetCalendarInput struct {
	RegistrationStart time.Time
	RegistrationEnd   time.Time
	AddDropStart      *time.Time
	AddDropEnd        *time.Time
}

type CreateOfferingInput struct {
	CourseID  int64
	TeacherID int64
	TermID    int64
	Capacity  int
	WeekDay   int
	StartTime string
	EndTime   string
	Location  string
}

func (s *Service) CreateMajor(ctx context.Context, name string) (*Major, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	var major Major
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO majors (name, created_at)
		VALUES ($1, now())
		RETURNING id, name
	`, name).Scan(&major.ID, &major.Name)
	if err != nil {
		return nil, fmt.Errorf("create major: %w", err)
	}
	return &major, nil
}

func (s *Service) ListMajors(ctx context.Context) ([]Major, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name
		FROM majors
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list majors: %w", err)
	}
	defer rows.Close()

	items := []Major{}
	for rows.Next() {
		var m Major
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan major: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *Service) UpdateMajor(ctx context.Context, id int64, name string) (*Major, error) {
	name = strings.TrimSpace(name)
	if id <= 0 || name == "" {
		return nil, ErrInvalidInput
	}

	var major Major
	err := s.db.QueryRowContext(ctx, `
		UPDATE majors
		SET name = $2
		WHERE id = $1
		RETURNING id, name
	`, id, name).Scan(&major.ID, &major.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMajorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update major: %w", err)
	}
	return &major, nil
}

func (s *Service) DeleteMajor(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	var hasCourses bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM courses WHERE major_id = $1)
	`, id).Scan(&hasCourses)
	if err != nil {
		return fmt.Errorf("check major courses: %w", err)
	}
	if hasCourses {
		return ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM majors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete major: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMajorNotFound
	}
	return nil
}

func (s *Service) CreateCourse(ctx context.Context, in CreateCourseInput) (*Course, error) {
	title := strings.TrimSpace(in.Title)
	if in.MajorID <= 0 || title == "" || in.Units <= 0 {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM majors WHERE id = $1)
	`, in.MajorID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check major: %w", err)
	}
	if !exists {
		return nil, ErrMajorNotFound
	}

	var course Course
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO courses (major_id, title, units, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, major_id, title, units
	`, in.MajorID, title, in.Units).Scan(&course.ID, &course.MajorID, &course.Title, &course.Units)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return &course, nil
}

func (s *Service) ListCourses(ctx context.Context, majorID int64) ([]Course, error) {
	query := `
		SELECT id, major_id, title, units
		FROM courses`
	args := []interface{}{}
	if majorID > 0 {
		query += ` WHERE major_id = $1`
		args = append(args, majorID)
	}
	query += ` ORDER BY title`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	items := []Course{}
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.MajorID, &c.Title, &c.Units); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *Service) UpdateCourse(ctx context.Context, id int64, in CreateCourseInput) (*Course, error) {
	title := strings.TrimSpace(in.Title)
	if id <= 0 || in.MajorID <= 0 || title == "" || in.Units <= 0 {
		return nil, ErrInvalidInput
	}

	var course Course
	err := s.db.QueryRowContext(ctx, `
		UPDATE courses
		SET major_id = $2, title = $3, units = $4
		WHERE id = $1
		RETURNING id, major_id, title, units
	`, id, in.MajorID, title, in.Units).Scan(&course.ID, &course.MajorID, &course.Title, &course.Units)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	return &course, nil
}

func (s *Service) DeleteCourse(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	var offered bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM offered_courses WHERE course_id = $1)
	`, id).Scan(&offered)
	if err != nil {
		return fmt.Errorf("check course offerings: %w", err)
	}
	if offered {
		return ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCourseNotFound
	}
	return nil
}

func (s *Service) CreateTerm(ctx context.Context, in CreateTermInput) (*Term, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, ErrInvalidInput
	}
	if !in.StartDate.Before(in.EndDate) {
		return nil, ErrInvalidInput
	}

	var term Term
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO terms (title, start_date, end_date, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, title, start_date, end_date
	`, title, in.StartDate, in.EndDate).Scan(&term.ID, &term.Title, &term.StartDate, &term.EndDate)
	if err != nil {
		return nil, fmt.Errorf("create term: %w", err)
	}
	return &term, nil
}

func (s *Service) ListTerms(ctx context.Context) ([]Term, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, start_date, end_date
		FROM terms
		ORDER BY start_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	items := []Term{}
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Title, &t.StartDate, &t.EndDate); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// DeleteTerm refuses to remove a term once its registration window has
// opened or any student has enrolled in one of its offerings.
func (s *Service) DeleteTerm(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	var registrationOpened bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM academic_calendars
			WHERE term_id = $1 AND registration_start <= $2
		)
	`, id, s.now()).Scan(&registrationOpened)
	if err != nil {
		return fmt.Errorf("check term calendar: %w", err)
	}
	if registrationOpened {
		return ErrTermInUse
	}

	var hasEnrollments bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM offered_course_students ocs
			JOIN offered_courses oc ON oc.id = ocs.offered_course_id
			WHERE oc.term_id = $1
		)
	`, id).Scan(&hasEnrollments)
	if err != nil {
		return fmt.Errorf("check term enrollments: %w", err)
	}
	if hasEnrollments {
		return ErrTermInUse
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete term: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM academic_calendars WHERE term_id = $1`, id); err != nil {
		return fmt.Errorf("delete term calendar: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM offered_courses WHERE term_id = $1`, id); err != nil {
		return fmt.Errorf("delete term offerings: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM terms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTermNotFound
	}
	return tx.Commit()
}

func (s *Service) SetCalendar(ctx context.Context, termID int64, in SetCalendarInput) (*Calendar, error) {
	if termID <= 0 || in.RegistrationStart.IsZero() || in.RegistrationEnd.IsZero() {
		return nil, ErrInvalidInput
	}
	if !in.RegistrationStart.Before(in.RegistrationEnd) {
		return nil, ErrInvalidInput
	}
	if (in.AddDropStart == nil) != (in.AddDropEnd == nil) {
		return nil, ErrInvalidInput
	}
	if in.AddDropStart != nil && !in.AddDropStart.Before(*in.AddDropEnd) {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM terms WHERE id = $1)
	`, termID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check term: %w", err)
	}
	if !exists {
		return nil, ErrTermNotFound
	}

	var cal Calendar
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO academic_calendars (term_id, registration_start, registration_end, add_drop_start, add_drop_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (term_id) DO UPDATE SET
			registration_start = EXCLUDED.registration_start,
			registration_end   = EXCLUDED.registration_end,
			add_drop_start     = EXCLUDED.add_drop_start,
			add_drop_end       = EXCLUDED.add_drop_end
		RETURNING term_id, registration_start, registration_end, add_drop_start, add_drop_end
	`, termID, in.RegistrationStart, in.RegistrationEnd, in.AddDropStart, in.AddDropEnd).
		Scan(&cal.TermID, &cal.RegistrationStart, &cal.RegistrationEnd, &cal.AddDropStart, &cal.AddDropEnd)
	if err != nil {
		return nil, fmt.Errorf("set calendar: %w", err)
	}
	return &cal, nil
}

func (s *Service) GetCalendar(ctx context.Context, termID int64) (*Calendar, error) {
	if termID <= 0 {
		return nil, ErrInvalidInput
	}

	var cal Calendar
	err := s.db.QueryRowContext(ctx, `
		SELECT term_id, registration_start, registration_end, add_drop_start, add_drop_end
		FROM academic_calendars
		WHERE term_id = $1
	`, termID).Scan(&cal.TermID, &cal.RegistrationStart, &cal.RegistrationEnd, &cal.AddDropStart, &cal.AddDropEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCalendarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	return &cal, nil
}

func (s *Service) CreateOffering(ctx context.Context, in CreateOfferingInput) (*OfferedCourse, error) {
	if in.CourseID <= 0 || in.TeacherID <= 0 || in.TermID <= 0 {
		return nil, ErrInvalidInput
	}
	if in.Capacity <= 0 || in.WeekDay < 0 || in.WeekDay > 6 {
		return nil, ErrInvalidInput
	}
	start, err := parseClock(in.StartTime)
	if err != nil {
		return nil, ErrInvalidInput
	}
	end, err := parseClock(in.EndTime)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if start >= end {
		return nil, ErrInvalidInput
	}

	var courseExists, teacherExists, termExists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM courses WHERE id = $1),
			EXISTS (SELECT 1 FROM persons p JOIN person_roles pr ON pr.person_id = p.id
				JOIN roles r ON r.id = pr.role_id WHERE p.id = $2 AND r.name = 'TEACHER'),
			EXISTS (SELECT 1 FROM terms WHERE id = $3)
	`, in.CourseID, in.TeacherID, in.TermID).Scan(&courseExists, &teacherExists, &termExists)
	if err != nil {
		return nil, fmt.Errorf("check offering refs: %w", err)
	}
	if !courseExists {
		return nil, ErrCourseNotFound
	}
	if !teacherExists {
		return nil, ErrPersonNotFound
	}
	if !termExists {
		return nil, ErrTermNotFound
	}

	var conflict bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM offered_courses
			WHERE teacher_id = $1
			  AND term_id = $2
			  AND week_day = $3
			  AND NOT ($5::time <= start_time OR $4::time >= end_time)
		)
	`, in.TeacherID, in.TermID, in.WeekDay, in.StartTime, in.EndTime).Scan(&conflict)
	if err != nil {
		return nil, fmt.Errorf("check teacher schedule: %w", err)
	}
	if conflict {
		return nil, ErrScheduleConflict
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO offered_courses (course_id, teacher_id, term_id, capacity, week_day, start_time, end_time, location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8,''), now())
		RETURNING id
	`, in.CourseID, in.TeacherID, in.TermID, in.Capacity, in.WeekDay, in.StartTime, in.EndTime, strings.TrimSpace(in.Location)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create offering: %w", err)
	}

	return s.GetOffering(ctx, id)
}

const offeringSelect = `
	SELECT
		oc.id,
		oc.course_id,
		c.title,
		oc.teacher_id,
		p.first_name || ' ' || p.last_name,
		oc.term_id,
		oc.capacity,
		(SELECT COUNT(*) FROM offered_course_students ocs WHERE ocs.offered_course_id = oc.id),
		oc.week_day,
		to_char(oc.start_time, 'HH24:MI'),
		to_char(oc.end_time, 'HH24:MI'),
		COALESCE(oc.location, '')
	FROM offered_courses oc
	JOIN courses c ON c.id = oc.course_id
	JOIN persons p ON p.id = oc.teacher_id`

func (s *Service) GetOffering(ctx context.Context, id int64) (*OfferedCourse, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}

	var oc OfferedCourse
	err := s.db.QueryRowContext(ctx, offeringSelect+` WHERE oc.id = $1`, id).Scan(
		&oc.ID, &oc.CourseID, &oc.CourseTitle, &oc.TeacherID, &oc.TeacherName,
		&oc.TermID, &oc.Capacity, &oc.Enrolled, &oc.WeekDay, &oc.StartTime, &oc.EndTime, &oc.Location,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get offering: %w", err)
	}
	return &oc, nil
}

func (s *Service) ListOfferingsByTerm(ctx context.Context, termID int64) ([]OfferedCourse, error) {
	if termID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.listOfferings(ctx, ` WHERE oc.term_id = $1 ORDER BY c.title`, termID)
}

func (s *Service) ListOfferingsByTeacher(ctx context.Context, teacherID int64) ([]OfferedCourse, error) {
	if teacherID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.listOfferings(ctx, ` WHERE oc.teacher_id = $1 ORDER BY oc.term_id DESC, c.title`, teacherID)
}

func (s *Service) ListOfferingsByStudent(ctx context.Context, studentID int64) ([]OfferedCourse, error) {
	if studentID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.listOfferings(ctx, `
		JOIN offered_course_students me ON me.offered_course_id = oc.id
		WHERE me.student_id = $1
		ORDER BY oc.term_id DESC, c.title`, studentID)
}

func (s *Service) listOfferings(ctx context.Context, suffix string, args ...interface{}) ([]OfferedCourse, error) {
	rows, err := s.db.QueryContext(ctx, offeringSelect+suffix, args...)
	if err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}
	defer rows.Close()

	items := []OfferedCourse{}
	for rows.Next() {
		var oc OfferedCourse
		if err := rows.Scan(
			&oc.ID, &oc.CourseID, &oc.CourseTitle, &oc.TeacherID, &oc.TeacherName,
			&oc.TermID, &oc.Capacity, &oc.Enrolled, &oc.WeekDay, &oc.StartTime, &oc.EndTime, &oc.Location,
		); err != nil {
			return nil, fmt.Errorf("scan offering: %w", err)
		}
		items = append(items, oc)
	}
	return items, rows.Err()
}

// Enroll registers a student into an offering. The offering row is locked
// so the capacity check and the insert are atomic under concurrent enrolls.
func (s *Service) Enroll(ctx context.Context, studentID, offeredCourseID int64) error {
	if studentID <= 0 || offeredCourseID <= 0 {
		return ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var termID int64
	var capacity int
	err = tx.QueryRowContext(ctx, `
		SELECT term_id, capacity
		FROM offered_courses
		WHERE id = $1
		FOR UPDATE
	`, offeredCourseID).Scan(&termID, &capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOfferingNotFound
	}
	if err != nil {
		return fmt.Errorf("lock offering: %w", err)
	}

	now := s.now()
	var windowOpen bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM academic_calendars
			WHERE term_id = $1
			  AND (
				($2 >= registration_start AND $2 < registration_end)
				OR (add_drop_start IS NOT NULL AND $2 >= add_drop_start AND $2 < add_drop_end)
			  )
		)
	`, termID, now).Scan(&windowOpen)
	if err != nil {
		return fmt.Errorf("check registration window: %w", err)
	}
	if !windowOpen {
		return ErrRegistrationClosed
	}

	var enrolled int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM offered_course_students WHERE offered_course_id = $1
	`, offeredCourseID).Scan(&enrolled)
	if err != nil {
		return fmt.Errorf("count enrollment: %w", err)
	}
	if enrolled >= capacity {
		return ErrCourseFull
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO offered_course_students (offered_course_id, student_id, enrolled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (offered_course_id, student_id) DO NOTHING
	`, offeredCourseID, studentID, now)
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyEnrolled
	}

	return tx.Commit()
}

// Drop removes an enrollment. Allowed while registration or add/drop
// windows are open.
func (s *Service) Drop(ctx context.Context, studentID, offeredCourseID int64) error {
	if studentID <= 0 || offeredCourseID <= 0 {
		return ErrInvalidInput
	}

	var termID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT term_id FROM offered_courses WHERE id = $1
	`, offeredCourseID).Scan(&termID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOfferingNotFound
	}
	if err != nil {
		return fmt.Errorf("load offering: %w", err)
	}

	now := s.now()
	var windowOpen bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM academic_calendars
			WHERE term_id = $1
			  AND (
				($2 >= registration_start AND $2 < registration_end)
				OR (add_drop_start IS NOT NULL AND $2 >= add_drop_start AND $2 < add_drop_end)
			  )
		)
	`, termID, now).Scan(&windowOpen)
	if err != nil {
		return fmt.Errorf("check drop window: %w", err)
	}
	if !windowOpen {
		return ErrRegistrationClosed
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM offered_course_students
		WHERE offered_course_id = $1 AND student_id = $2
	`, offeredCourseID, studentID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotEnrolled
	}
	return nil
}

func (s *Service) ListEnrolledStudents(ctx context.Context, offeredCourseID int64) ([]EnrolledStudent, error) {
	if offeredCourseID <= 0 {
		return nil, ErrInvalidInput
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.first_name || ' ' || p.last_name, ocs.enrolled_at
		FROM offered_course_students ocs
		JOIN persons p ON p.id = ocs.student_id
		WHERE ocs.offered_course_id = $1
		ORDER BY p.last_name, p.first_name
	`, offeredCourseID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	defer rows.Close()

	items := []EnrolledStudent{}
	for rows.Next() {
		var st EnrolledStudent
		if err := rows.Scan(&st.PersonID, &st.FullName, &st.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan enrolled student: %w", err)
		}
		items = append(items, st)
	}
	return items, rows.Err()
}

// parseClock validates an HH:MM value and returns minutes since midnight.
func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
