package program

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"caretrack/internal/adapters/storage"
	domain "caretrack/internal/domain/program"
)

// timeLayout is fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const fieldColumns = "id, program_id, name, label, field_type, required, field_order"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new program store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create persists a program and all of its fields in one transaction.
// PRE: p has been built by domain.NewProgram
// POST: program and fields are persisted, or nothing is
func (s *SQLiteStore) Create(ctx context.Context, p domain.Program) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "create program", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO program (id, name, description, created_at, created_by) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.Name, p.Description, p.CreatedAt.UTC().Format(timeLayout), p.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateName(p.Name)
		}
		return &domain.StorageError{Op: "create program", Err: err}
	}

	for _, f := range p.Fields {
		if err := insertField(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "create program", Err: err}
	}
	return nil
}

// GetByID retrieves a program with its fields in ascending order.
// PRE: id is non-empty
// POST: Returns the program or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Program, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at, created_by FROM program WHERE id = ?", id)
	p, err := scanProgram(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Program{}, fmt.Errorf("program %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Program{}, err
	}

	fields, err := s.fieldsFor(ctx, "WHERE program_id = ?", id)
	if err != nil {
		return domain.Program{}, err
	}
	p.Fields = fields[id]
	return p, nil
}

// List retrieves all programs ordered by creation time, each with its fields.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Program, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, created_at, created_by FROM program ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Program
	for rows.Next() {
		p, err := scanProgram(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	fields, err := s.fieldsFor(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Fields = fields[results[i].ID]
	}
	return results, nil
}

// UpdateDetails replaces a program's name and description. Last writer wins.
// PRE: name has been validated
// POST: Returns an error wrapping domain.ErrNotFound when the program is absent
func (s *SQLiteStore) UpdateDetails(ctx context.Context, id, name, description string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE program SET name = ?, description = ? WHERE id = ?", name, description, id)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateName(name)
		}
		return &domain.StorageError{Op: "update program", Err: err}
	}
	return requireAffected(res, "program "+id)
}

// AddField appends one field to an existing program.
// PRE: f was built by domain.Program.NewField
// POST: field persisted; a duplicate name surfaces as *domain.ValidationError
func (s *SQLiteStore) AddField(ctx context.Context, f domain.Field) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "add field", Err: err}
	}
	defer tx.Rollback()

	if err := programExists(ctx, tx, f.ProgramID); err != nil {
		return err
	}
	if err := insertField(ctx, tx, f); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "add field", Err: err}
	}
	return nil
}

// Delete removes a program's data rows, then its fields, then the program, in one transaction.
// PRE: id is non-empty
// POST: no rows reference the program; an absent program returns an error wrapping domain.ErrNotFound
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "delete program", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM program_data WHERE program_id = ?", id); err != nil {
		return &domain.StorageError{Op: "delete program", Err: err}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM program_field WHERE program_id = ?", id); err != nil {
		return &domain.StorageError{Op: "delete program", Err: err}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM program WHERE id = ?", id)
	if err != nil {
		return &domain.StorageError{Op: "delete program", Err: err}
	}
	if err := requireAffected(res, "program "+id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "delete program", Err: err}
	}
	return nil
}

// InsertData stores one or more coerced rows for the same program in one transaction.
// PRE: every row's Values came from Program.Coerce
// POST: all rows persisted, or none; an absent program returns an error wrapping domain.ErrNotFound
func (s *SQLiteStore) InsertData(ctx context.Context, rows ...domain.DataRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "insert data", Err: err}
	}
	defer tx.Rollback()

	checked := make(map[string]bool)
	for _, r := range rows {
		if !checked[r.ProgramID] {
			if err := programExists(ctx, tx, r.ProgramID); err != nil {
				return err
			}
			checked[r.ProgramID] = true
		}
		doc, err := json.Marshal(r.Values)
		if err != nil {
			return &domain.StorageError{Op: "insert data", Err: err}
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO program_data (id, program_id, data, created_at, created_by) VALUES (?, ?, ?, ?, ?)",
			r.ID, r.ProgramID, string(doc), r.CreatedAt.UTC().Format(timeLayout), r.CreatedBy,
		)
		if err != nil {
			return &domain.StorageError{Op: "insert data", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "insert data", Err: err}
	}
	return nil
}

// GetData retrieves one data row of a program.
// POST: Returns the row or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetData(ctx context.Context, programID, rowID string) (domain.DataRow, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, program_id, data, created_at, created_by FROM program_data WHERE id = ? AND program_id = ?",
		rowID, programID)
	r, err := scanDataRow(row.Scan)
	if err == sql.ErrNoRows {
		return domain.DataRow{}, fmt.Errorf("data row %s: %w", rowID, domain.ErrNotFound)
	}
	return r, err
}

// ListData retrieves a program's rows, newest first.
// PRE: filter.ProgramID is non-empty
// POST: Returns at most filter.Limit rows when Limit > 0
func (s *SQLiteStore) ListData(ctx context.Context, filter DataFilter) ([]domain.DataRow, error) {
	var queryBuilder strings.Builder
	args := []any{filter.ProgramID}

	queryBuilder.WriteString("SELECT id, program_id, data, created_at, created_by FROM program_data WHERE program_id = ?")
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.DataRow
	for rows.Next() {
		r, err := scanDataRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountData returns the number of rows stored for a program.
func (s *SQLiteStore) CountData(ctx context.Context, programID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM program_data WHERE program_id = ?", programID).Scan(&count)
	return count, err
}

// DeleteData removes one data row.
// POST: Returns an error wrapping domain.ErrNotFound when no such row exists for the program
func (s *SQLiteStore) DeleteData(ctx context.Context, programID, rowID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM program_data WHERE id = ? AND program_id = ?", rowID, programID)
	if err != nil {
		return &domain.StorageError{Op: "delete data", Err: err}
	}
	return requireAffected(res, "data row "+rowID)
}

// fieldsFor loads fields grouped by program id, each group in ascending order.
func (s *SQLiteStore) fieldsFor(ctx context.Context, where string, args ...any) (map[string][]domain.Field, error) {
	query := "SELECT " + fieldColumns + " FROM program_field " + where + " ORDER BY program_id, field_order"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Field)
	for rows.Next() {
		var f domain.Field
		var fieldType string
		if err := rows.Scan(&f.ID, &f.ProgramID, &f.Name, &f.Label, &fieldType, &f.Required, &f.Order); err != nil {
			return nil, err
		}
		f.Type = domain.FieldType(fieldType)
		out[f.ProgramID] = append(out[f.ProgramID], f)
	}
	return out, rows.Err()
}

func insertField(ctx context.Context, tx *sql.Tx, f domain.Field) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO program_field ("+fieldColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		f.ID, f.ProgramID, f.Name, f.Label, string(f.Type), f.Required, f.Order,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ValidationError{Field: f.Label, Value: f.Name, Message: "field name is already used in this program"}
		}
		return &domain.StorageError{Op: "insert field", Err: err}
	}
	return nil
}

func programExists(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM program WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("program %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return &domain.StorageError{Op: "lookup program", Err: err}
	}
	return nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "rows affected", Err: err}
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func duplicateName(name string) error {
	return &domain.ValidationError{Field: "Name", Value: name, Message: "a program with this name already exists"}
}

// scanProgram extracts a Program (without fields) from a row scanner function.
func scanProgram(scan func(dest ...any) error) (domain.Program, error) {
	var p domain.Program
	var createdAt string
	if err := scan(&p.ID, &p.Name, &p.Description, &createdAt, &p.CreatedBy); err != nil {
		return domain.Program{}, err
	}
	p.CreatedAt, _ = parseTime(createdAt)
	return p, nil
}

// scanDataRow extracts a DataRow and decodes its JSON document.
func scanDataRow(scan func(dest ...any) error) (domain.DataRow, error) {
	var r domain.DataRow
	var doc, createdAt string
	if err := scan(&r.ID, &r.ProgramID, &doc, &createdAt, &r.CreatedBy); err != nil {
		return domain.DataRow{}, err
	}
	r.Values = domain.Values{}
	if err := json.Unmarshal([]byte(doc), &r.Values); err != nil {
		return domain.DataRow{}, fmt.Errorf("decode data row %s: %w", r.ID, err)
	}
	r.CreatedAt, _ = parseTime(createdAt)
	return r, nil
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		t, err := time.Parse(f, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("cannot parse time: " + s)
}
