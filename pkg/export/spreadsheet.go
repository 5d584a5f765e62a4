package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	// MarksSheetName is the sheet written by SpreadsheetExporter.
	MarksSheetName = "Marks"

	studentHeader = "Student ID"
	totalHeader   = "Total"
)

// MarksRow is one student's marks in question order.
type MarksRow struct {
	StudentID string
	Marks     []float64
	Total     float64
}

// MarksTable is a student-by-question grid.
type MarksTable struct {
	Labels []string
	Rows   []MarksRow
}

// Headers returns the column headers: student, one per label, total.
func (t MarksTable) Headers() []string {
	headers := make([]string, 0, len(t.Labels)+2)
	headers = append(headers, studentHeader)
	headers = append(headers, t.Labels...)
	return append(headers, totalHeader)
}

// ReservedLabel reports whether label would collide with the student or total column.
func ReservedLabel(label string) bool {
	label = strings.TrimSpace(label)
	return strings.EqualFold(label, studentHeader) || strings.EqualFold(label, totalHeader)
}

// Dataset flattens the table for the CSV and PDF renderers.
func (t MarksTable) Dataset() Dataset {
	headers := t.Headers()
	rows := make([]map[string]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := map[string]string{studentHeader: r.StudentID, totalHeader: formatMark(r.Total)}
		for i, label := range t.Labels {
			if i < len(r.Marks) {
				row[label] = formatMark(r.Marks[i])
			}
		}
		rows = append(rows, row)
	}
	return Dataset{Headers: headers, Rows: rows}
}

// SpreadsheetExporter renders marks tables as xlsx workbooks.
type SpreadsheetExporter struct{}

// NewSpreadsheetExporter builds a spreadsheet exporter.
func NewSpreadsheetExporter() *SpreadsheetExporter {
	return &SpreadsheetExporter{}
}

// Render writes the table into a single-sheet workbook. Student IDs are stored as text.
func (e *SpreadsheetExporter) Render(t MarksTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", MarksSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := t.Headers()
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStr(MarksSheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(MarksSheetName, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for r, row := range t.Rows {
		line := r + 2
		cell, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetCellStr(MarksSheetName, cell, row.StudentID); err != nil {
			return nil, fmt.Errorf("write student id: %w", err)
		}
		for i := range t.Labels {
			value := 0.0
			if i < len(row.Marks) {
				value = row.Marks[i]
			}
			cell, _ = excelize.CoordinatesToCellName(i+2, line)
			if err := f.SetCellFloat(MarksSheetName, cell, value, -1, 64); err != nil {
				return nil, fmt.Errorf("write mark: %w", err)
			}
		}
		cell, _ = excelize.CoordinatesToCellName(len(t.Labels)+2, line)
		if err := f.SetCellFloat(MarksSheetName, cell, row.Total, -1, 64); err != nil {
			return nil, fmt.Errorf("write total: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadMarksSheet parses a workbook produced by Render (or laid out the same way).
// Rows without a student ID are skipped; blank mark cells read as 0.
func ReadMarksSheet(r io.Reader) (MarksTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return MarksTable{}, fmt.Errorf("read workbook: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return MarksTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return MarksTable{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return MarksTable{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return MarksTable{}, fmt.Errorf("sheet is empty")
	}

	header := rows[0]
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), studentHeader) {
		return MarksTable{}, fmt.Errorf("first column must be %q", studentHeader)
	}
	labelEnd := len(header)
	hasTotal := strings.EqualFold(strings.TrimSpace(header[len(header)-1]), totalHeader)
	if hasTotal {
		labelEnd--
	}
	table := MarksTable{Labels: make([]string, 0, labelEnd-1)}
	for _, h := range header[1:labelEnd] {
		table.Labels = append(table.Labels, strings.TrimSpace(h))
	}

	for i, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		out := MarksRow{StudentID: strings.TrimSpace(row[0]), Marks: make([]float64, len(table.Labels))}
		for j := range table.Labels {
			value, err := cellFloat(row, j+1)
			if err != nil {
				return MarksTable{}, fmt.Errorf("row %d column %q: %w", i+2, table.Labels[j], err)
			}
			out.Marks[j] = value
		}
		if hasTotal {
			total, err := cellFloat(row, labelEnd)
			if err != nil {
				return MarksTable{}, fmt.Errorf("row %d total: %w", i+2, err)
			}
			out.Total = total
		} else {
			for _, m := range out.Marks {
				out.Total += m
			}
		}
		table.Rows = append(table.Rows, out)
	}
	return table, nil
}

func cellFloat(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, nil
	}
	raw := strings.TrimSpace(row[idx])
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func formatMark(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
