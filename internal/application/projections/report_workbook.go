package projections

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"caretrack/internal/domain/report"
)

// maxSheetNameLength is the spreadsheet limit on sheet names.
const maxSheetNameLength = 31

// ReportSheet is one program's report to write into a workbook.
type ReportSheet struct {
	ProgramName string
	Window      report.Range
	Series      []report.Series
}

// BuildReportWorkbook renders report sheets into an XLSX workbook.
// Each sheet has a title row, a header row (Date then one column per series),
// one row per distinct date and a closing totals row.
// PRE: len(sheets) >= 1
// POST: Returns the encoded workbook; sheet names are unique and at most 31 characters
func BuildReportWorkbook(sheets ...ReportSheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("build report workbook: no sheets")
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("build report workbook: %w", err)
	}

	used := make(map[string]bool)
	for i, s := range sheets {
		name := uniqueSheetName(s.ProgramName, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("build report workbook: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("build report workbook: %w", err)
		}
		if err := writeReportSheet(f, name, s, bold); err != nil {
			return nil, fmt.Errorf("build report workbook: sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("build report workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeReportSheet(f *excelize.File, sheet string, s ReportSheet, bold int) error {
	title := []interface{}{s.ProgramName, fmt.Sprintf("%s to %s", s.Window.StartDate(), s.Window.EndDate())}
	if err := f.SetSheetRow(sheet, "A1", &title); err != nil {
		return err
	}

	header := []interface{}{"Date"}
	for _, series := range s.Series {
		header = append(header, series.Label)
	}
	if err := f.SetSheetRow(sheet, "A3", &header); err != nil {
		return err
	}

	// Series only carry points for dates that had rows, so the date axis is
	// the union across series.
	byDate := make(map[string]map[int]float64)
	for col, series := range s.Series {
		for _, pt := range series.Points {
			if byDate[pt.Date] == nil {
				byDate[pt.Date] = make(map[int]float64)
			}
			byDate[pt.Date][col] = pt.Value
		}
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	row := 4
	for _, d := range dates {
		values := []interface{}{d}
		for col := range s.Series {
			if v, ok := byDate[d][col]; ok {
				values = append(values, v)
			} else {
				values = append(values, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		row++
	}

	totals := []interface{}{"Total"}
	for _, series := range s.Series {
		totals = append(totals, series.Total)
	}
	totalsCell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, totalsCell, &totals); err != nil {
		return err
	}

	lastCol, err := excelize.CoordinatesToCellName(len(header), row)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return err
	}
	headerEnd, err := excelize.CoordinatesToCellName(len(header), 3)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A3", headerEnd, bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, totalsCell, lastCol, bold); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 12)
}

// uniqueSheetName strips characters spreadsheets reject, truncates to the
// name limit and de-duplicates with a numeric suffix.
func uniqueSheetName(programName string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(programName))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Report"
	}
	base = truncateRunes(base, maxSheetNameLength)

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncateRunes(base, maxSheetNameLength-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
