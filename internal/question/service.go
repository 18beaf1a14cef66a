package question

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create validates through the factory and persists the question together
// with its options in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Question, error) {
	q, err := New(in)
	if err != nil {
		return nil, err
	}

	var courseExists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)
	`, q.CourseID).Scan(&courseExists); err != nil {
		return nil, fmt.Errorf("check course: %w", err)
	}
	if !courseExists {
		return nil, ErrCourseNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create question: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO questions (course_id, question_type, title, body, default_score, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at
	`, q.CourseID, q.Type, q.Title, q.Body, q.DefaultScore).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}

	for i := range q.Options {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO question_options (question_id, body, is_correct)
			VALUES ($1, $2, $3)
			RETURNING id
		`, q.ID, q.Options[i].Body, q.Options[i].IsCorrect).Scan(&q.Options[i].ID)
		if err != nil {
			return nil, fmt.Errorf("insert question option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create question: %w", err)
	}
	return q, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Question, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}

	var q Question
	err := s.db.QueryRowContext(ctx, `
		SELECT id, course_id, question_type, title, body, default_score, created_at
		FROM questions
		WHERE id = $1
	`, id).Scan(&q.ID, &q.CourseID, &q.Type, &q.Title, &q.Body, &q.DefaultScore, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	if q.Type == TypeTest {
		opts, err := s.loadOptions(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		q.Options = opts
	}
	return &q, nil
}

func (s *Service) ListByCourse(ctx context.Context, courseID int64) ([]Question, error) {
	if courseID <= 0 {
		return nil, ErrInvalidInput
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, course_id, question_type, title, body, default_score, created_at
		FROM questions
		WHERE course_id = $1
		ORDER BY id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	items := []Question{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.CourseID, &q.Type, &q.Title, &q.Body, &q.DefaultScore, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].Type != TypeTest {
			continue
		}
		opts, err := s.loadOptions(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Options = opts
	}
	return items, nil
}

// Delete removes a question that no exam references yet.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}

	var inUse bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM exam_questions WHERE question_id = $1)
	`, id).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("check question usage: %w", err)
	}
	if inUse {
		return ErrQuestionInUse
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete question: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM question_options WHERE question_id = $1`, id); err != nil {
		return fmt.Errorf("delete question options: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotFound
	}
	return tx.Commit()
}

func (s *Service) loadOptions(ctx context.Context, questionID int64) ([]Option, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body, is_correct
		FROM question_options
		WHERE question_id = $1
		ORDER BY id
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()

	opts := []Option{}
	for rows.Next() {
		var opt Option
		if err := rows.Scan(&opt.ID, &opt.Body, &opt.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		opts = append(opts, opt)
	}
	return opts, rows.Err()
}
