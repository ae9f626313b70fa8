package attendance

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Fixed column layout shared by the upload parser and the template download.
var sheetColumns = []string{
	"Roll Number",
	"Name",
	"Gender",
	"Attendance Days",
	"Total Days",
	"Attendance Percentage",
	"Student Email",
	"Parent Email",
}

const (
	sheetName = "Attendance"

	defaultTotalDays = 30
)

// ParseError indicates the uploaded file could not be decoded as a spreadsheet.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing spreadsheet: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseWorkbook reads the first sheet of an xlsx workbook into attendance
// rows, coercing cells by position. The first row is treated as the header.
// An empty sheet yields zero rows and no error; the caller must treat an
// empty result as invalid input.
func ParseWorkbook(r io.Reader) ([]AttendanceRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []AttendanceRow{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(rows) <= 1 { // header only, or nothing at all
		return []AttendanceRow{}, nil
	}

	out := make([]AttendanceRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, AttendanceRow{
			RollNumber:           textCell(row, 0),
			Name:                 textCell(row, 1),
			Gender:               textCell(row, 2),
			AttendanceDays:       intCell(row, 3, 0),
			TotalDays:            intCell(row, 4, defaultTotalDays),
			AttendancePercentage: floatCell(row, 5),
			StudentEmail:         textCell(row, 6),
			ParentEmail:          textCell(row, 7),
		})
	}
	return out, nil
}

// WriteTemplate emits a sample workbook with the fixed headers and two
// example rows for instructors to fill in.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	sample := [][]interface{}{
		toCells(sheetColumns),
		{"101", "John Doe", "Male", 28, 30, 93.33, "john.doe@student.edu", "parent.john@email.com"},
		{"102", "Jane Smith", "Female", 20, 30, 66.67, "jane.smith@student.edu", "parent.jane@email.com"},
	}
	for i, row := range sample {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err = f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	widths := []float64{12, 20, 10, 16, 12, 22, 30, 30}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err = f.SetColWidth(sheetName, col, col, width); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func toCells(ss []string) []interface{} {
	cells := make([]interface{}, len(ss))
	for i, s := range ss {
		cells[i] = s
	}
	return cells
}

func textCell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func intCell(row []string, i, fallback int) int {
	if i >= len(row) || row[i] == "" {
		return fallback
	}
	// sheets hand numeric cells back as strings, sometimes with decimals
	if n, err := strconv.Atoi(row[i]); err == nil {
		return n
	}
	if fl, err := strconv.ParseFloat(row[i], 64); err == nil {
		return int(fl)
	}
	return fallback
}

func floatCell(row []string, i int) float64 {
	if i >= len(row) {
		return 0
	}
	fl, err := strconv.ParseFloat(row[i], 64)
	if err != nil {
		return 0
	}
	return fl
}
