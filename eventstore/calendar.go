package eventstore

import (
	"errors"
	"time"
)

const businessDateLayout = "2006-01-02"

var ErrInvalidBusinessDate = errors.New("business date must have the format YYYY-MM-DD")
var ErrInvalidDayStart = errors.New("business day start must be within [0h, 24h)")

// BusinessDate is a calendar-day bucket used for reporting, formatted as YYYY-MM-DD.
type BusinessDate string

// ParseBusinessDate validates and returns a BusinessDate.
func ParseBusinessDate(s string) (BusinessDate, error) {
	if _, err := time.Parse(businessDateLayout, s); err != nil {
		return "", errors.Join(ErrInvalidBusinessDate, err)
	}

	return BusinessDate(s), nil
}

func (d BusinessDate) String() string {
	return string(d)
}

// BusinessCalendar derives business dates from event timestamps.
//
// Restaurants often trade past midnight, so a business day starts at DayStart after local midnight:
// with DayStart = 4h, an event at 02:30 local time still belongs to the previous business date.
type BusinessCalendar struct {
	location *time.Location
	dayStart time.Duration
}

// NewBusinessCalendar creates a BusinessCalendar. A nil location means UTC.
func NewBusinessCalendar(location *time.Location, dayStart time.Duration) (BusinessCalendar, error) {
	if dayStart < 0 || dayStart >= 24*time.Hour {
		return BusinessCalendar{}, ErrInvalidDayStart
	}

	if location == nil {
		location = time.UTC
	}

	return BusinessCalendar{location: location, dayStart: dayStart}, nil
}

// DefaultBusinessCalendar uses UTC days starting at midnight.
func DefaultBusinessCalendar() BusinessCalendar {
	return BusinessCalendar{location: time.UTC}
}

func (c BusinessCalendar) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}

	return c.location
}

// DateOf returns the business date an instant belongs to.
func (c BusinessCalendar) DateOf(t time.Time) BusinessDate {
	local := t.In(c.Location()).Add(-c.dayStart)

	return BusinessDate(local.Format(businessDateLayout))
}

// Bounds returns the first and last millisecond of the business date, suitable for an inclusive range filter.
func (c BusinessCalendar) Bounds(date BusinessDate) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(businessDateLayout, string(date), c.Location())
	if err != nil {
		return time.Time{}, time.Time{}, errors.Join(ErrInvalidBusinessDate, err)
	}

	start := day.Add(c.dayStart)
	next := time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, c.Location()).Add(c.dayStart)

	return start.UTC(), next.Add(-time.Millisecond).UTC(), nil
}

// HourOf returns the local hour of day (0..23) of an instant, used for hourly breakdowns.
func (c BusinessCalendar) HourOf(t time.Time) int {
	return t.In(c.Location()).Hour()
}
