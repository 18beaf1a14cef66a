package auth

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, headers []string, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}
	for r, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestImportRosterExcelMissingColumn(t *testing.T) {
	svc := NewService(nil, ServiceConfig{JWTSecret: "test"})
	r := workbookBytes(t, []string{"username", "first_name", "last_name"}, nil)

	if _, err := svc.ImportRosterExcel(context.Background(), r); err == nil {
		t.Fatalf("expected error for missing required columns")
	}
}

func TestImportRosterExcelSkipsBlankRows(t *testing.T) {
	svc := NewService(nil, ServiceConfig{JWTSecret: "test"})
	r := workbookBytes(t,
		[]string{"username", "first_name", "last_name", "national_code", "role", "password"},
		[][]interface{}{{"", "", "", "", "", ""}},
	)

	report, err := svc.ImportRosterExcel(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalRows != 0 {
		t.Fatalf("blank rows must not be counted, got %d", report.TotalRows)
	}
}
