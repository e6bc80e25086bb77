package report

import (
	"strings"
	"time"

	"caretrack/internal/domain/program"
)

// Period names accepted by ResolvePeriod.
const (
	PeriodThisMonth    = "this-month"
	PeriodLast3Months  = "last-3-months"
	PeriodThisYear     = "this-year"
	PeriodCustom       = "custom"
	last3MonthsDaysAgo = 90
)

// ValidPeriods lists the selectable period names in display order.
var ValidPeriods = []string{PeriodThisMonth, PeriodLast3Months, PeriodThisYear, PeriodCustom}

// Range is an inclusive window of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day d lies within the window, bounds included.
func (r Range) Contains(d time.Time) bool {
	d = day(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// StartDate formats the window start as YYYY-MM-DD.
func (r Range) StartDate() string { return r.Start.Format(program.DateLayout) }

// EndDate formats the window end as YYYY-MM-DD.
func (r Range) EndDate() string { return r.End.Format(program.DateLayout) }

// ResolvePeriod turns a period selector into a date window.
// An empty name selects this-month. custom requires both bounds.
// PRE: now is the caller's current time
// POST: Returns an inclusive Range with Start <= End, or *program.ValidationError
func ResolvePeriod(name, customStart, customEnd string, now time.Time) (Range, error) {
	today := day(now)

	switch strings.TrimSpace(name) {
	case "", PeriodThisMonth:
		return Range{Start: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), End: today}, nil
	case PeriodLast3Months:
		return Range{Start: today.AddDate(0, 0, -last3MonthsDaysAgo), End: today}, nil
	case PeriodThisYear:
		return Range{Start: time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), End: today}, nil
	case PeriodCustom:
		return customRange(customStart, customEnd)
	default:
		return Range{}, &program.ValidationError{Field: "Period", Value: name, Message: "period must be one of: this-month, last-3-months, this-year, custom"}
	}
}

func customRange(rawStart, rawEnd string) (Range, error) {
	rawStart = strings.TrimSpace(rawStart)
	rawEnd = strings.TrimSpace(rawEnd)
	if rawStart == "" || rawEnd == "" {
		return Range{}, &program.ValidationError{Field: "Period", Message: "custom period requires both start and end dates"}
	}
	start, err := time.Parse(program.DateLayout, rawStart)
	if err != nil {
		return Range{}, &program.ValidationError{Field: "Start date", Value: rawStart, Message: "must be a date in YYYY-MM-DD format"}
	}
	end, err := time.Parse(program.DateLayout, rawEnd)
	if err != nil {
		return Range{}, &program.ValidationError{Field: "End date", Value: rawEnd, Message: "must be a date in YYYY-MM-DD format"}
	}
	if end.Before(start) {
		return Range{}, &program.ValidationError{Field: "End date", Value: rawEnd, Message: "must not be before the start date"}
	}
	return Range{Start: start, End: end}, nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
