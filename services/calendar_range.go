package services

import "time"

// CalendarView is the granularity governing date-range computation.
type CalendarView string

const (
	ViewDay   CalendarView = "day"
	ViewWeek  CalendarView = "week"
	ViewMonth CalendarView = "month"
)

// Navigation directions.
const (
	DirectionNext     = "next"
	DirectionPrevious = "previous"
)

// DateRange is a half-open window [Start, End) derived from a selected date
// and a view. Ranges are always regenerated from their inputs, never mutated.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ParseView validates a view string from the API layer.
func ParseView(s string) (CalendarView, error) {
	switch CalendarView(s) {
	case ViewDay, ViewWeek, ViewMonth:
		return CalendarView(s), nil
	}
	return "", ErrInvalidView
}

// RangeForView returns the day/week/month window containing date. Week
// windows honour the configured first day of the week.
func RangeForView(date time.Time, view CalendarView, weekStart time.Weekday) (DateRange, error) {
	day := startOfDay(date)
	switch view {
	case ViewDay:
		return DateRange{Start: day, End: day.AddDate(0, 0, 1)}, nil
	case ViewWeek:
		offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
		start := day.AddDate(0, 0, -offset)
		return DateRange{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case ViewMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return DateRange{Start: start, End: start.AddDate(0, 1, 0)}, nil
	}
	return DateRange{}, ErrInvalidView
}

// Navigate shifts date by exactly one unit of view. Month stepping clamps the
// day-of-month so Jan 31 lands on the last day of February instead of rolling
// into March.
func Navigate(date time.Time, view CalendarView, direction string) time.Time {
	step := 1
	if direction == DirectionPrevious {
		step = -1
	}
	switch view {
	case ViewDay:
		return date.AddDate(0, 0, step)
	case ViewWeek:
		return date.AddDate(0, 0, 7*step)
	case ViewMonth:
		return addMonthClamped(date, step)
	}
	return date
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// addMonthClamped steps by whole calendar months. AddDate alone would let a
// day-of-month overflow spill into the following month.
func addMonthClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, months, 0)
	day := t.Day()
	if last := daysInMonth(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month, loc *time.Location) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
