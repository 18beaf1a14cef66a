package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrExamNotFound        = errors.New("exam not found")
	ErrOfferingNotFound    = errors.New("offered course not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrExamLive            = errors.New("exam has already started")
	ErrAccountNotFound     = errors.New("account not found")
	ErrNoAccount           = errors.New("caller has no account")
	ErrNotEnrolled         = errors.New("student is not enrolled in the course")
	ErrExamNotStarted      = errors.New("exam has not started yet")
	ErrExamFinished        = errors.New("exam is already finished")
	ErrAttemptCompleted    = errors.New("exam attempt already completed")
	ErrAttemptNotFound     = errors.New("exam attempt not found")
	ErrAttemptForbidden    = errors.New("exam attempt belongs to another student")
	ErrQuestionNotInExam   = errors.New("question is not part of the exam")
	ErrAnswerNotFound      = errors.New("answer not found")
	ErrNotEssay            = errors.New("answer is not an essay")
	ErrNegativeScore       = errors.New("score must not be negative")
	ErrOptionNotInQuestion = errors.New("option does not belong to the question")
)

// queryable lets the same query helpers run on *sql.DB and *sql.Tx.
type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

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

type Exam struct {
	ID              int64     `json:"id"`
	OfferedCourseID int64     `json:"offered_course_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	TotalScore      float64   `json:"total_score"`
	State           State     `json:"state"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreateExamInput struct {
	OfferedCourseID int64
	Title           string
	Description     string
	StartAt         time.Time
	EndAt           time.Time
	CreatedBy       int64
}

type UpdateExamInput struct {
	Title       string
	Description string
	StartAt     time.Time
	EndAt       time.Time
}

type ExamQuestion struct {
	ExamID         int64   `json:"exam_id"`
	QuestionID     int64   `json:"question_id"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	EffectiveScore float64 `json:"effective_score"`
}

func (s *Service) CreateExam(ctx context.Context, in CreateExamInput) (*Exam, error) {
	title := strings.TrimSpace(in.Title)
	if in.OfferedCourseID <= 0 || title == "" {
		return nil, ErrInvalidInput
	}
	if in.StartAt.IsZero() || in.EndAt.IsZero() {
		return nil, ErrInvalidInput
	}
	if !in.StartAt.Before(in.EndAt) {
		return nil, ErrInvalidInput
	}
	if in.StartAt.Before(s.now()) || in.EndAt.Before(s.now()) {
		return nil, ErrInvalidInput
	}

	var offeringExists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM offered_courses WHERE id = $1)
	`, in.OfferedCourseID).Scan(&offeringExists); err != nil {
		return nil, fmt.Errorf("check offering: %w", err)
	}
	if !offeringExists {
		return nil, ErrOfferingNotFound
	}

	var exam Exam
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO exams (offered_course_id, title, description, start_at, end_at, created_by, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, NULLIF($6,0), now(), now())
		RETURNING id, offered_course_id, title, COALESCE(description,''), start_at, end_at, total_score, created_at
	`, in.OfferedCourseID, title, strings.TrimSpace(in.Description), in.StartAt, in.EndAt, in.CreatedBy).Scan(
		&exam.ID, &exam.OfferedCourseID, &exam.Title, &exam.Description, &exam.StartAt, &exam.EndAt, &exam.TotalScore, &exam.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exam: %w", err)
	}
	exam.State = StateAt(exam.StartAt, exam.EndAt, s.now())
	return &exam, nil
}

// UpdateExam rewrites schedule and metadata. Once the exam window has
// opened the exam is frozen and edits are rejected.
func (s *Service) UpdateExam(ctx context.Context, id int64, in UpdateExamInput) (*Exam, error) {
	title := strings.TrimSpace(in.Title)
	if id <= 0 || title == "" || in.StartAt.IsZero() || in.EndAt.IsZero() {
		return nil, ErrInvalidInput
	}
	if !in.StartAt.Before(in.EndAt) {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update exam: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := loadExam(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if StateAt(current.StartAt, current.EndAt, s.now()) != StateNotStarted {
		return nil, ErrExamLive
	}

	var exam Exam
	err = tx.QueryRowContext(ctx, `
		UPDATE exams
		SET title = $2,
			description = NULLIF($3,''),
			start_at = $4,
			end_at = $5,
			updated_at = now()
		WHERE id = $1 AND NOT deleted
		RETURNING id, offered_course_id, title, COALESCE(description,''), start_at, end_at, total_score, created_at
	`, id, title, strings.TrimSpace(in.Description), in.StartAt, in.EndAt).Scan(
		&exam.ID, &exam.OfferedCourseID, &exam.Title, &exam.Description, &exam.StartAt, &exam.EndAt, &exam.TotalScore, &exam.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update exam: %w", err)
	}
	exam.State = StateAt(exam.StartAt, exam.EndAt, s.now())
	return &exam, nil
}

// DeleteExam soft-deletes. An exam whose window is open stays live until
// it finishes; it cannot be pulled out from under students mid-attempt.
func (s *Service) DeleteExam(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	exam, err := loadExam(ctx, s.db, id, false)
	if err != nil {
		return err
	}
	if StateAt(exam.StartAt, exam.EndAt, s.now()) == StateStarted {
		return ErrExamLive
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE exams SET deleted = TRUE, updated_at = now()
		WHERE id = $1 AND NOT deleted
	`, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExamNotFound
	}
	return nil
}

func (s *Service) GetExam(ctx context.Context, id int64) (*Exam, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	exam, err := loadExam(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	exam.State = StateAt(exam.StartAt, exam.EndAt, s.now())
	return exam, nil
}

func (s *Service) ListExamsByOffering(ctx context.Context, offeredCourseID int64) ([]Exam, error) {
	if offeredCourseID <= 0 {
		return nil, ErrInvalidInput
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, offered_course_id, title, COALESCE(description,''), start_at, end_at, total_score, created_at
		FROM exams
		WHERE offered_course_id = $1 AND NOT deleted
		ORDER BY start_at
	`, offeredCourseID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	now := s.now()
	items := []Exam{}
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.OfferedCourseID, &e.Title, &e.Description, &e.StartAt, &e.EndAt, &e.TotalScore, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		e.State = StateAt(e.StartAt, e.EndAt, now)
		items = append(items, e)
	}
	return items, rows.Err()
}

// AssignQuestion attaches a question to an exam. A zero score means "use
// the question's default"; it is stored as NULL so later changes to the
// default flow through. The exam total is recomputed from scratch inside
// the same transaction.
func (s *Service) AssignQuestion(ctx context.Context, examID, questionID int64, score float64) error {
	if examID <= 0 || questionID <= 0 || score < 0 {
		return ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign question: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exam, err := loadExam(ctx, tx, examID, true)
	if err != nil {
		return err
	}
	if StateAt(exam.StartAt, exam.EndAt, s.now()) != StateNotStarted {
		return ErrExamLive
	}

	var questionExists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1)
	`, questionID).Scan(&questionExists); err != nil {
		return fmt.Errorf("check question: %w", err)
	}
	if !questionExists {
		return ErrQuestionNotFound
	}

	var override interface{}
	if score > 0 {
		override = score
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO exam_questions (exam_id, question_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (exam_id, question_id) DO UPDATE SET score = EXCLUDED.score
	`, examID, questionID, override)
	if err != nil {
		return fmt.Errorf("upsert exam question: %w", err)
	}

	if err := recomputeExamTotal(ctx, tx, examID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveQuestion detaches a question from an exam while it is still
// editable and recomputes the total.
func (s *Service) RemoveQuestion(ctx context.Context, examID, questionID int64) error {
	if examID <= 0 || questionID <= 0 {
		return ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove question: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exam, err := loadExam(ctx, tx, examID, true)
	if err != nil {
		return err
	}
	if StateAt(exam.StartAt, exam.EndAt, s.now()) != StateNotStarted {
		return ErrExamLive
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM exam_questions WHERE exam_id = $1 AND question_id = $2
	`, examID, questionID)
	if err != nil {
		return fmt.Errorf("delete exam question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotInExam
	}

	if err := recomputeExamTotal(ctx, tx, examID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListExamQuestions returns the questions on an exam with their resolved
// per-exam scores. Correct-option flags are not included here; graders and
// students fetch option bodies through the question endpoints.
func (s *Service) ListExamQuestions(ctx context.Context, examID int64) ([]ExamQuestion, error) {
	if examID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := loadExam(ctx, s.db, examID, false); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT eq.exam_id, eq.question_id, q.question_type, q.title, q.body,
			COALESCE(eq.score, q.default_score)
		FROM exam_questions eq
		JOIN questions q ON q.id = eq.question_id
		WHERE eq.exam_id = $1
		ORDER BY eq.id
	`, examID)
	if err != nil {
		return nil, fmt.Errorf("list exam questions: %w", err)
	}
	defer rows.Close()

	items := []ExamQuestion{}
	for rows.Next() {
		var eq ExamQuestion
		if err := rows.Scan(&eq.ExamID, &eq.QuestionID, &eq.Type, &eq.Title, &eq.Body, &eq.EffectiveScore); err != nil {
			return nil, fmt.Errorf("scan exam question: %w", err)
		}
		items = append(items, eq)
	}
	return items, rows.Err()
}

func loadExam(ctx context.Context, q queryable, id int64, forUpdate bool) (*Exam, error) {
	query := `
		SELECT id, offered_course_id, title, COALESCE(description,''), start_at, end_at, total_score, created_at
		FROM exams
		WHERE id = $1 AND NOT deleted`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var exam Exam
	err := q.QueryRowContext(ctx, query, id).Scan(
		&exam.ID, &exam.OfferedCourseID, &exam.Title, &exam.Description,
		&exam.StartAt, &exam.EndAt, &exam.TotalScore, &exam.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}
	return &exam, nil
}

// recomputeExamTotal rewrites exams.total_score as the sum of resolved
// question scores. Running it twice in a row is a no-op.
func recomputeExamTotal(ctx context.Context, q queryable, examID int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE exams
		SET total_score = (
			SELECT COALESCE(SUM(COALESCE(eq.score, qu.default_score)), 0)
			FROM exam_questions eq
			JOIN questions qu ON qu.id = eq.question_id
			WHERE eq.exam_id = exams.id
		),
		updated_at = now()
		WHERE id = $1
	`, examID)
	if err != nil {
		return fmt.Errorf("recompute exam total: %w", err)
	}
	return nil
}
