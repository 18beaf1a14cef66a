package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Roster"

var rosterHeaders = []string{"username", "first_name", "last_name", "national_code", "role", "password"}

// RosterImportReport summarizes one bulk roster upload.
type RosterImportReport struct {
	TotalRows   int              `json:"total_rows"`
	SuccessRows int              `json:"success_rows"`
	FailedRows  int              `json:"failed_rows"`
	Errors      []RosterRowError `json:"errors,omitempty"`
}

type RosterRowError struct {
	Row      int    `json:"row"`
	Username string `json:"username"`
	Error    string `json:"error"`
}

// ExportRosterExcel renders the person directory as an xlsx workbook.
// The password column is left empty on export.
func (s *Service) ExportRosterExcel(ctx context.Context, role, q string) ([]byte, error) {
	var persons []PersonRecord
	for offset := 0; ; offset += 200 {
		page, err := s.ListPersons(ctx, role, q, 200, offset)
		if err != nil {
			return nil, fmt.Errorf("list persons for export: %w", err)
		}
		persons = append(persons, page...)
		if len(page) < 200 {
			break
		}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(rosterSheet)
	if err != nil {
		return nil, fmt.Errorf("create roster sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	for col, header := range rosterHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(rosterSheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header cell: %w", err)
		}
	}

	for row, p := range persons {
		values := []interface{}{p.Username, p.FirstName, p.LastName, p.NationalCode, strings.Join(p.Roles, ","), ""}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("data cell name: %w", err)
			}
			if err := f.SetCellValue(rosterSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write data cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportRosterExcel registers one person per data row. Rows are independent:
// a failed row is reported and skipped, the rest continue.
func (s *Service) ImportRosterExcel(ctx context.Context, r io.Reader) (*RosterImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := rosterSheet
	if mustSheetIndex(f, sheet) < 0 {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook has no rows")
	}

	colIndex := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		colIndex[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, required := range []string{"username", "first_name", "last_name", "national_code", "password"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	report := &RosterImportReport{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			continue
		}
		report.TotalRows++

		input := RegisterInput{
			Username:     cellAt(row, colIndex["username"]),
			Password:     cellAt(row, colIndex["password"]),
			FirstName:    cellAt(row, colIndex["first_name"]),
			LastName:     cellAt(row, colIndex["last_name"]),
			NationalCode: cellAt(row, colIndex["national_code"]),
		}
		if idx, ok := colIndex["role"]; ok {
			input.Role = cellAt(row, idx)
		}

		if _, err := s.Register(ctx, input); err != nil {
			report.FailedRows++
			report.Errors = append(report.Errors, RosterRowError{
				Row:      rowNum,
				Username: input.Username,
				Error:    err.Error(),
			})
			continue
		}
		report.SuccessRows++
	}

	return report, nil
}

func mustSheetIndex(f *excelize.File, name string) int {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return -1
	}
	return idx
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
