package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrExamNotFound = errors.New("exam not found")
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type ExamSummary struct {
	ExamID        int64   `json:"exam_id"`
	Title         string  `json:"title"`
	MaxScore      float64 `json:"max_score"`
	Participants  int     `json:"participants"`
	Completed     int     `json:"completed"`
	AverageScore  float64 `json:"average_score"`
	HighestScore  float64 `json:"highest_score"`
	LowestScore   float64 `json:"lowest_score"`
	PendingEssays int     `json:"pending_essays"`
}

type ParticipantResult struct {
	PersonID   int64   `json:"person_id"`
	FullName   string  `json:"full_name"`
	Status     string  `json:"status"`
	TotalScore float64 `json:"total_score"`
}

// SummaryByExam aggregates attempts for one exam. Averages and extremes
// cover completed attempts only; in-progress ones are counted but not
// scored.
func (s *Service) SummaryByExam(ctx context.Context, examID int64) (*ExamSummary, error) {
	if examID <= 0 {
		return nil, ErrInvalidInput
	}

	var out ExamSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, total_score
		FROM exams
		WHERE id = $1 AND NOT deleted
	`, examID).Scan(&out.ExamID, &out.Title, &out.MaxScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COALESCE(AVG(total_score) FILTER (WHERE status = 'COMPLETED'), 0),
			COALESCE(MAX(total_score) FILTER (WHERE status = 'COMPLETED'), 0),
			COALESCE(MIN(total_score) FILTER (WHERE status = 'COMPLETED'), 0)
		FROM exam_instances
		WHERE exam_id = $1
	`, examID).Scan(&out.Participants, &out.Completed, &out.AverageScore, &out.HighestScore, &out.LowestScore)
	if err != nil {
		return nil, fmt.Errorf("aggregate attempts: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM answers a
		JOIN exam_instances ei ON ei.id = a.exam_instance_id
		WHERE ei.exam_id = $1
		  AND ei.status = 'COMPLETED'
		  AND a.answer_type = 'ESSAY'
		  AND a.score IS NULL
	`, examID).Scan(&out.PendingEssays)
	if err != nil {
		return nil, fmt.Errorf("count pending essays: %w", err)
	}

	return &out, nil
}

// ResultsByExam lists per-student outcomes for the grade sheet.
func (s *Service) ResultsByExam(ctx context.Context, examID int64) ([]ParticipantResult, error) {
	if examID <= 0 {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM exams WHERE id = $1 AND NOT deleted)
	`, examID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check exam: %w", err)
	}
	if !exists {
		return nil, ErrExamNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.first_name || ' ' || p.last_name, ei.status, ei.total_score
		FROM exam_instances ei
		JOIN persons p ON p.id = ei.person_id
		WHERE ei.exam_id = $1
		ORDER BY ei.total_score DESC, p.last_name
	`, examID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	items := []ParticipantResult{}
	for rows.Next() {
		var pr ParticipantResult
		if err := rows.Scan(&pr.PersonID, &pr.FullName, &pr.Status, &pr.TotalScore); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		items = append(items, pr)
	}
	return items, rows.Err()
}
