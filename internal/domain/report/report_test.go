package report_test

import (
	"fmt"
	"testing"
	"time"

	"caretrack/internal/domain/program"
	"caretrack/internal/domain/report"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestResolvePeriod tests named and custom period windows.
func TestResolvePeriod(t *testing.T) {
	now := time.Date(2024, 5, 17, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    string
		start     string
		end       string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{name: "default is this month", period: "", wantStart: date(2024, 5, 1), wantEnd: date(2024, 5, 17)},
		{name: "this month", period: report.PeriodThisMonth, wantStart: date(2024, 5, 1), wantEnd: date(2024, 5, 17)},
		{name: "last 3 months is 90 days", period: report.PeriodLast3Months, wantStart: date(2024, 2, 17), wantEnd: date(2024, 5, 17)},
		{name: "this year", period: report.PeriodThisYear, wantStart: date(2024, 1, 1), wantEnd: date(2024, 5, 17)},
		{name: "custom", period: report.PeriodCustom, start: "2024-01-01", end: "2024-01-31", wantStart: date(2024, 1, 1), wantEnd: date(2024, 1, 31)},
		{name: "custom single day", period: report.PeriodCustom, start: "2024-01-01", end: "2024-01-01", wantStart: date(2024, 1, 1), wantEnd: date(2024, 1, 1)},
		{name: "custom missing end", period: report.PeriodCustom, start: "2024-01-01", wantErr: true},
		{name: "custom missing both", period: report.PeriodCustom, wantErr: true},
		{name: "custom malformed start", period: report.PeriodCustom, start: "01/01/2024", end: "2024-01-31", wantErr: true},
		{name: "custom reversed", period: report.PeriodCustom, start: "2024-02-01", end: "2024-01-31", wantErr: true},
		{name: "unknown period", period: "last-week", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := report.ResolvePeriod(tt.period, tt.start, tt.end, now)
			if tt.wantErr {
				if !program.IsValidation(err) {
					t.Fatalf("ResolvePeriod() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePeriod() error = %v", err)
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("ResolvePeriod() = %s..%s, want %s..%s", got.StartDate(), got.EndDate(),
					tt.wantStart.Format("2006-01-02"), tt.wantEnd.Format("2006-01-02"))
			}
		})
	}
}

func scholarshipsProgram(t *testing.T) program.Program {
	t.Helper()
	n := 0
	p, err := program.NewProgram(program.NewProgramInput{
		ID:   "p1",
		Name: "Scholarships",
		Fields: []program.FieldSpec{
			{Name: "amount", Type: program.TypeNumber},
			{Name: "name", Type: program.TypeText},
		},
	}, func() string { n++; return fmt.Sprintf("f%d", n) })
	if err != nil {
		t.Fatalf("NewProgram() error = %v", err)
	}
	return p
}

// TestAggregate_Scholarships checks the January window excludes the February row.
func TestAggregate_Scholarships(t *testing.T) {
	p := scholarshipsProgram(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	var rows []program.DataRow
	for i, raw := range []map[string]string{
		{"date_column": "2024-01-05", "amount": "100", "name": "A"},
		{"date_column": "2024-02-10", "amount": "50", "name": "B"},
	} {
		vals, err := p.Coerce(raw, now)
		if err != nil {
			t.Fatalf("Coerce() error = %v", err)
		}
		rows = append(rows, program.DataRow{ID: fmt.Sprintf("r%d", i), ProgramID: p.ID, Values: vals, CreatedAt: now})
	}

	window, err := report.ResolvePeriod(report.PeriodCustom, "2024-01-01", "2024-01-31", now)
	if err != nil {
		t.Fatalf("ResolvePeriod() error = %v", err)
	}

	got := report.Aggregate(p, rows, window)
	if len(got) != 1 {
		t.Fatalf("len(series) = %d, want 1", len(got))
	}
	s := got[0]
	if s.Label != "amount" {
		t.Errorf("Label = %q, want amount", s.Label)
	}
	if len(s.Points) != 1 || s.Points[0].Date != "2024-01-05" || s.Points[0].Value != 100 {
		t.Errorf("Points = %+v, want [(2024-01-05, 100)]", s.Points)
	}
	if s.Total != 100 {
		t.Errorf("Total = %v, want 100", s.Total)
	}
}

// TestAggregate_Behaviour covers sorting, fallbacks and empty results.
func TestAggregate_Behaviour(t *testing.T) {
	p := scholarshipsProgram(t)
	window := report.Range{Start: date(2024, 1, 1), End: date(2024, 1, 31)}

	t.Run("no rows gives empty list", func(t *testing.T) {
		got := report.Aggregate(p, nil, window)
		if got == nil || len(got) != 0 {
			t.Errorf("Aggregate() = %v, want empty non-nil list", got)
		}
	})

	t.Run("no numeric fields gives empty list", func(t *testing.T) {
		n := 0
		textOnly, _ := program.NewProgram(program.NewProgramInput{
			ID: "p2", Name: "Notes", Fields: []program.FieldSpec{{Name: "note", Type: program.TypeText}},
		}, func() string { n++; return fmt.Sprint(n) })
		rows := []program.DataRow{{ID: "r", Values: program.Values{"note": program.Text("x")}, CreatedAt: date(2024, 1, 2)}}
		if got := report.Aggregate(textOnly, rows, window); len(got) != 0 {
			t.Errorf("Aggregate() = %v, want empty", got)
		}
	})

	t.Run("points sorted and summed per date with fallbacks", func(t *testing.T) {
		rows := []program.DataRow{
			{ID: "r1", Values: program.Values{"date_column": program.Date(date(2024, 1, 20)), "amount": program.Number(5)}},
			{ID: "r2", Values: program.Values{"date_column": program.Date(date(2024, 1, 3)), "amount": program.Number(7)}},
			{ID: "r3", Values: program.Values{"date_column": program.Date(date(2024, 1, 20)), "amount": program.Number(1.5)}},
			// legacy row: no date_column, amount stored as text
			{ID: "r4", Values: program.Values{"amount": program.Text("10")}, CreatedAt: time.Date(2024, 1, 10, 23, 0, 0, 0, time.UTC)},
			// unparsable legacy value contributes zero
			{ID: "r5", Values: program.Values{"date_column": program.Text("2024-01-10"), "amount": program.Text("ten")}},
			// outside window
			{ID: "r6", Values: program.Values{"date_column": program.Date(date(2024, 2, 1)), "amount": program.Number(99)}},
		}
		got := report.Aggregate(p, rows, window)
		if len(got) != 1 {
			t.Fatalf("len(series) = %d, want 1", len(got))
		}
		want := []report.Point{
			{Date: "2024-01-03", Value: 7},
			{Date: "2024-01-10", Value: 10},
			{Date: "2024-01-20", Value: 6.5},
		}
		if len(got[0].Points) != len(want) {
			t.Fatalf("Points = %+v, want %+v", got[0].Points, want)
		}
		for i := range want {
			if got[0].Points[i] != want[i] {
				t.Errorf("Points[%d] = %+v, want %+v", i, got[0].Points[i], want[i])
			}
		}
		if got[0].Total != 23.5 {
			t.Errorf("Total = %v, want 23.5", got[0].Total)
		}
	})

	t.Run("field without contributing rows is omitted", func(t *testing.T) {
		n := 0
		two, _ := program.NewProgram(program.NewProgramInput{
			ID: "p3", Name: "Two",
			Fields: []program.FieldSpec{{Name: "a", Type: program.TypeNumber}, {Name: "b", Type: program.TypeNumber}},
		}, func() string { n++; return fmt.Sprint(n) })
		rows := []program.DataRow{{ID: "r", Values: program.Values{"date_column": program.Date(date(2024, 1, 2)), "a": program.Number(1)}}}
		got := report.Aggregate(two, rows, window)
		if len(got) != 1 || got[0].Field != "a" {
			t.Errorf("Aggregate() = %+v, want only series a", got)
		}
	})
}
