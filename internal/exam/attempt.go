package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	AttemptInProgress = "IN_PROGRESS"
	AttemptCompleted  = "COMPLETED"
)

type Attempt struct {
	ID         int64      `json:"id"`
	Reference  string     `json:"reference"`
	ExamID     int64      `json:"exam_id"`
	PersonID   int64      `json:"person_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	TotalScore float64    `json:"total_score"`
}

// StartAttempt opens (or resumes) a student's attempt at an exam.
//
// The caller is identified by account; an account that does not exist is a
// lookup failure here, unlike submission where it is treated as an access
// failure. A completed attempt blocks the student for good. The exam must
// be inside its window: too early and too late are both state errors, not
// access errors.
func (s *Service) StartAttempt(ctx context.Context, accountID, examID int64) (*Attempt, error) {
	if accountID <= 0 || examID <= 0 {
		return nil, ErrInvalidInput
	}

	personID, err := s.resolvePerson(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	exam, err := loadExam(ctx, s.db, examID, false)
	if err != nil {
		return nil, err
	}

	var enrolled bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM offered_course_students
			WHERE offered_course_id = $1 AND student_id = $2
		)
	`, exam.OfferedCourseID, personID).Scan(&enrolled)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	if existing, err := s.findAttempt(ctx, examID, personID); err != nil {
		return nil, err
	} else if existing != nil {
		if existing.Status == AttemptCompleted {
			return nil, ErrAttemptCompleted
		}
		return existing, nil
	}

	switch StateAt(exam.StartAt, exam.EndAt, s.now()) {
	case StateNotStarted:
		return nil, ErrExamNotStarted
	case StateFinished:
		return nil, ErrExamFinished
	}

	// One row per (exam, person): a concurrent start loses the insert race
	// and picks up the winner's attempt.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exam_instances (reference, exam_id, person_id, status, started_at, total_score)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (exam_id, person_id) DO NOTHING
	`, uuid.NewString(), examID, personID, AttemptInProgress, s.now())
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}

	attempt, err := s.findAttempt(ctx, examID, personID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, fmt.Errorf("attempt vanished after insert")
	}
	if attempt.Status == AttemptCompleted {
		return nil, ErrAttemptCompleted
	}
	return attempt, nil
}

// SaveAnswer records or replaces the student's answer to one exam
// question. Repeated saves overwrite; the last write wins.
func (s *Service) SaveAnswer(ctx context.Context, accountID, attemptID, questionID int64, optionID *int64, text string) (*Answer, error) {
	if accountID <= 0 || attemptID <= 0 || questionID <= 0 {
		return nil, ErrInvalidInput
	}

	personID, err := s.resolvePerson(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoAccount
		}
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save answer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	attempt, err := loadAttempt(ctx, tx, attemptID, true)
	if err != nil {
		return nil, err
	}
	if attempt.PersonID != personID {
		return nil, ErrAttemptForbidden
	}
	if attempt.Status != AttemptInProgress {
		return nil, ErrAttemptCompleted
	}

	exam, err := loadExam(ctx, tx, attempt.ExamID, false)
	if err != nil {
		return nil, err
	}
	switch StateAt(exam.StartAt, exam.EndAt, s.now()) {
	case StateNotStarted:
		return nil, ErrExamNotStarted
	case StateFinished:
		return nil, ErrExamFinished
	}

	var examQuestionID int64
	var questionType string
	err = tx.QueryRowContext(ctx, `
		SELECT eq.id, q.question_type
		FROM exam_questions eq
		JOIN questions q ON q.id = eq.question_id
		WHERE eq.exam_id = $1 AND eq.question_id = $2
	`, attempt.ExamID, questionID).Scan(&examQuestionID, &questionType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestionNotInExam
	}
	if err != nil {
		return nil, fmt.Errorf("load exam question: %w", err)
	}

	answer, err := NewAnswer(questionType, optionID, text)
	if err != nil {
		return nil, err
	}
	answer.ExamQuestionID = examQuestionID

	if answer.Type == AnswerTest {
		var belongs bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM question_options
				WHERE id = $1 AND question_id = $2
			)
		`, *answer.OptionID, questionID).Scan(&belongs)
		if err != nil {
			return nil, fmt.Errorf("check option: %w", err)
		}
		if !belongs {
			return nil, ErrOptionNotInQuestion
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO answers (exam_instance_id, exam_question_id, answer_type, option_id, answer_text, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), now())
		ON CONFLICT (exam_instance_id, exam_question_id) DO UPDATE SET
			answer_type = EXCLUDED.answer_type,
			option_id   = EXCLUDED.option_id,
			answer_text = EXCLUDED.answer_text,
			score       = NULL,
			updated_at  = now()
		RETURNING id, updated_at
	`, attempt.ID, examQuestionID, answer.Type, answer.OptionID, answer.Text).Scan(&answer.ID, &answer.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save answer: %w", err)
	}
	return answer, nil
}

// SubmitAttempt closes an attempt: multiple-choice answers are graded
// automatically, essays keep their current score (nil until a grader sets
// one), and the attempt total is recomputed as the sum over all answers.
//
// An unknown account is an access failure here. The attempt row is locked
// so a double submit sees COMPLETED and fails cleanly.
func (s *Service) SubmitAttempt(ctx context.Context, accountID, attemptID int64) (*Attempt, error) {
	if accountID <= 0 || attemptID <= 0 {
		return nil, ErrInvalidInput
	}

	personID, err := s.resolvePerson(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoAccount
		}
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	attempt, err := loadAttempt(ctx, tx, attemptID, true)
	if err != nil {
		return nil, err
	}
	if attempt.PersonID != personID {
		return nil, ErrAttemptForbidden
	}
	if attempt.Status != AttemptInProgress {
		return nil, ErrAttemptCompleted
	}

	if err := gradeChoiceAnswers(ctx, tx, attempt.ID); err != nil {
		return nil, err
	}

	now := s.now()
	err = tx.QueryRowContext(ctx, `
		UPDATE exam_instances
		SET status = $2,
			finished_at = $3,
			total_score = (
				SELECT COALESCE(SUM(COALESCE(a.score, 0)), 0)
				FROM answers a
				WHERE a.exam_instance_id = exam_instances.id
			)
		WHERE id = $1
		RETURNING status, finished_at, total_score
	`, attempt.ID, AttemptCompleted, now).Scan(&attempt.Status, &attempt.FinishedAt, &attempt.TotalScore)
	if err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit: %w", err)
	}
	return attempt, nil
}

// GradeEssay sets the score on one essay answer and refreshes the attempt
// total. Grading the same answer again simply replaces the score; the
// total is recomputed from scratch, never incremented.
func (s *Service) GradeEssay(ctx context.Context, answerID int64, score float64) (*Answer, error) {
	if answerID <= 0 {
		return nil, ErrInvalidInput
	}
	if score < 0 {
		return nil, ErrNegativeScore
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin grade essay: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var answer Answer
	var attemptID int64
	err = tx.QueryRowContext(ctx, `
		SELECT a.id, a.exam_question_id, a.answer_type, a.option_id, COALESCE(a.answer_text,''), a.exam_instance_id
		FROM answers a
		JOIN exam_instances ei ON ei.id = a.exam_instance_id
		WHERE a.id = $1
		FOR UPDATE OF a, ei
	`, answerID).Scan(&answer.ID, &answer.ExamQuestionID, &answer.Type, &answer.OptionID, &answer.Text, &attemptID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnswerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load answer: %w", err)
	}
	if answer.Type != AnswerEssay {
		return nil, ErrNotEssay
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE answers SET score = $2, updated_at = now()
		WHERE id = $1
		RETURNING score, updated_at
	`, answerID, score).Scan(&answer.Score, &answer.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update answer score: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE exam_instances
		SET total_score = (
			SELECT COALESCE(SUM(COALESCE(a.score, 0)), 0)
			FROM answers a
			WHERE a.exam_instance_id = exam_instances.id
		)
		WHERE id = $1
	`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("recompute attempt total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit grade essay: %w", err)
	}
	return &answer, nil
}

func (s *Service) GetAttempt(ctx context.Context, attemptID int64) (*Attempt, error) {
	if attemptID <= 0 {
		return nil, ErrInvalidInput
	}
	return loadAttempt(ctx, s.db, attemptID, false)
}

func (s *Service) ListAttemptAnswers(ctx context.Context, attemptID int64) ([]Answer, error) {
	if attemptID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := loadAttempt(ctx, s.db, attemptID, false); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exam_question_id, answer_type, option_id, COALESCE(answer_text,''), score, updated_at
		FROM answers
		WHERE exam_instance_id = $1
		ORDER BY exam_question_id
	`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	items := []Answer{}
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.ExamQuestionID, &a.Type, &a.OptionID, &a.Text, &a.Score, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (s *Service) ListAttemptsByExam(ctx context.Context, examID int64) ([]Attempt, error) {
	if examID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := loadExam(ctx, s.db, examID, false); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reference, exam_id, person_id, status, started_at, finished_at, total_score
		FROM exam_instances
		WHERE exam_id = $1
		ORDER BY started_at
	`, examID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	items := []Attempt{}
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.Reference, &a.ExamID, &a.PersonID, &a.Status, &a.StartedAt, &a.FinishedAt, &a.TotalScore); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// gradeChoiceAnswers scores every multiple-choice answer on the attempt:
// the question's resolved score when the chosen option is correct, zero
// otherwise. Essay scores are untouched.
func gradeChoiceAnswers(ctx context.Context, q queryable, attemptID int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE answers a
		SET score = CASE
				WHEN EXISTS (
					SELECT 1 FROM question_options qo
					WHERE qo.id = a.option_id AND qo.is_correct
				) THEN COALESCE(eq.score, qu.default_score)
				ELSE 0
			END,
			updated_at = now()
		FROM exam_questions eq
		JOIN questions qu ON qu.id = eq.question_id
		WHERE a.exam_question_id = eq.id
		  AND a.exam_instance_id = $1
		  AND a.answer_type = 'TEST'
	`, attemptID)
	if err != nil {
		return fmt.Errorf("grade choice answers: %w", err)
	}
	return nil
}

func (s *Service) resolvePerson(ctx context.Context, accountID int64) (int64, error) {
	var personID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT person_id FROM accounts WHERE id = $1 AND is_active
	`, accountID).Scan(&personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("resolve person: %w", err)
	}
	return personID, nil
}

func (s *Service) findAttempt(ctx context.Context, examID, personID int64) (*Attempt, error) {
	var a Attempt
	err := s.db.QueryRowContext(ctx, `
		SELECT id, reference, exam_id, person_id, status, started_at, finished_at, total_score
		FROM exam_instances
		WHERE exam_id = $1 AND person_id = $2
	`, examID, personID).Scan(&a.ID, &a.Reference, &a.ExamID, &a.PersonID, &a.Status, &a.StartedAt, &a.FinishedAt, &a.TotalScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return &a, nil
}

func loadAttempt(ctx context.Context, q queryable, id int64, forUpdate bool) (*Attempt, error) {
	query := `
		SELECT id, reference, exam_id, person_id, status, started_at, finished_at, total_score
		FROM exam_instances
		WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var a Attempt
	err := q.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Reference, &a.ExamID, &a.PersonID, &a.Status, &a.StartedAt, &a.FinishedAt, &a.TotalScore,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	return &a, nil
}
