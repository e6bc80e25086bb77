package orchestrators

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"caretrack/internal/domain/program"
)

// Import file formats
const (
	ImportFormatCSV  = "csv"
	ImportFormatXLSX = "xlsx"
)

// ImportProgramDataInput carries the uploaded file and import options.
type ImportProgramDataInput struct {
	ProgramID string
	Reader    io.Reader
	Format    string // csv or xlsx
	CreatorID string
	DryRun    bool
}

// ImportProgramDataResult holds counts and per-row errors from an import run.
type ImportProgramDataResult struct {
	Total    int
	Imported int
	DryRun   bool
	Unknown  []string // header cells that matched no field
	Errors   []ImportRowError
}

// ImportRowError describes why a single spreadsheet row was rejected.
type ImportRowError struct {
	Row     int // 1-based, header is row 1
	Message string
}

// ExecuteImportProgramData coerces every row of a CSV or XLSX file exactly like SubmitData.
// PRE: the first row is a header naming fields by machine name or label
// POST: Either every row is inserted in one transaction, or none is and Errors lists every bad row
// INVARIANT: DryRun never writes; unknown columns are ignored and reported
func ExecuteImportProgramData(ctx context.Context, input ImportProgramDataInput, deps SubmitDataDeps) (ImportProgramDataResult, error) {
	p, err := deps.ProgramStore.GetByID(ctx, input.ProgramID)
	if err != nil {
		return ImportProgramDataResult{}, err
	}

	records, err := readImportRecords(input.Reader, input.Format)
	if err != nil {
		return ImportProgramDataResult{}, err
	}
	if len(records) == 0 {
		return ImportProgramDataResult{}, &program.ValidationError{Field: "File", Message: "file is empty"}
	}

	columns, unknown, err := mapImportColumns(p, records[0])
	if err != nil {
		return ImportProgramDataResult{}, err
	}

	result := ImportProgramDataResult{DryRun: input.DryRun, Unknown: unknown}
	now := deps.now()
	var rows []program.DataRow

	for i, record := range records[1:] {
		rowNum := i + 2
		if isBlankRecord(record) {
			continue
		}
		result.Total++

		raw := make(map[string]string, len(columns))
		for col, f := range columns {
			if col >= len(record) {
				continue
			}
			raw[f.Name] = normalizeImportCell(f, record[col], input.Format)
		}

		values, err := p.Coerce(raw, now)
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		rows = append(rows, program.DataRow{
			ID:        generateRowID(deps.GenerateRowID),
			ProgramID: p.ID,
			Values:    values,
			CreatedAt: now.UTC(),
			CreatedBy: input.CreatorID,
		})
	}

	if len(result.Errors) == 0 && !input.DryRun && len(rows) > 0 {
		if err := deps.ProgramStore.InsertData(ctx, rows...); err != nil {
			return ImportProgramDataResult{}, err
		}
		result.Imported = len(rows)
	}

	slog.Info("program_data_import",
		"program_id", p.ID,
		"by", input.CreatorID,
		"format", input.Format,
		"dry_run", input.DryRun,
		"total", result.Total,
		"imported", result.Imported,
		"errors", len(result.Errors),
		"unknown_columns", len(result.Unknown),
	)
	return result, nil
}

// readImportRecords returns every row of the file, header first.
func readImportRecords(r io.Reader, format string) ([][]string, error) {
	switch strings.ToLower(format) {
	case ImportFormatCSV, "":
		cr := csv.NewReader(r)
		cr.TrimLeadingSpace = true
		cr.FieldsPerRecord = -1
		records, err := cr.ReadAll()
		if err != nil {
			return nil, &program.ValidationError{Field: "File", Message: "could not read CSV: " + err.Error()}
		}
		return records, nil
	case ImportFormatXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, &program.ValidationError{Field: "File", Message: "could not read XLSX workbook"}
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
		}
		return records, nil
	default:
		return nil, &program.ValidationError{Field: "Format", Value: format, Message: "format must be csv or xlsx"}
	}
}

// mapImportColumns matches header cells to fields by machine name, then by label, ignoring case.
func mapImportColumns(p program.Program, header []string) (map[int]program.Field, []string, error) {
	byKey := make(map[string]program.Field, 2*len(p.Fields))
	for _, f := range p.Fields {
		byKey[strings.ToLower(f.Label)] = f
	}
	for _, f := range p.Fields {
		byKey[strings.ToLower(f.Name)] = f
	}

	columns := make(map[int]program.Field)
	seen := make(map[string]bool)
	var unknown []string
	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		f, ok := byKey[key]
		if !ok {
			if key != "" {
				unknown = append(unknown, strings.TrimSpace(cell))
			}
			continue
		}
		if seen[f.Name] {
			return nil, nil, &program.ValidationError{Field: f.Label, Value: cell, Message: "column appears more than once"}
		}
		seen[f.Name] = true
		columns[i] = f
	}
	if len(columns) == 0 {
		return nil, nil, &program.ValidationError{Field: "File", Message: "no column matches a field of this program"}
	}
	return columns, unknown, nil
}

// normalizeImportCell converts spreadsheet date serials to YYYY-MM-DD for date fields.
func normalizeImportCell(f program.Field, cell, format string) string {
	cell = strings.TrimSpace(cell)
	if f.Type != program.TypeDate || format != ImportFormatXLSX || cell == "" {
		return cell
	}
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return cell
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return cell
	}
	return t.Format(program.DateLayout)
}

func isBlankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Rejected reports whether any row failed validation, in which case nothing was written.
func (r ImportProgramDataResult) Rejected() bool {
	return len(r.Errors) > 0
}
