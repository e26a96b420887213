// Package date implements the calendar-day value used throughout mydays.
//
// A Day carries no time of day and no zone. Days are encoded as
// "YYYY-MM-DD" and parsed in local time; arithmetic between days goes
// through UTC epoch-day numbers so that DST transitions can never shift a
// difference by one.
package date

import (
	"fmt"
	"time"
)

// Layout is the wire and storage encoding of a Day.
const Layout = "2006-01-02"

const secondsPerDay = 86400

// Day is a civil calendar date. The zero value is "no date".
type Day struct {
	year  int
	month time.Month
	day   int
}

// New returns the Day for the given fields, normalising overflow the way
// time.Date does (e.g. January 32 becomes February 1).
func New(year int, month time.Month, day int) Day {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the calendar day of t in t's own location.
func FromTime(t time.Time) Day {
	y, m, d := t.Date()
	return Day{year: y, month: m, day: d}
}

// Today returns the current local calendar day.
func Today() Day {
	return FromTime(time.Now())
}

// Parse decodes "YYYY-MM-DD". The string is interpreted in local time,
// never as a UTC instant.
func Parse(s string) (Day, error) {
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return Day{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or with literal inputs.
func MustParse(s string) Day {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) Year() int { return d.year }
func (d Day) Month() time.Month { return d.month }
func (d Day) DayOfMonth() int { return d.day }
func (d Day) IsZero() bool { return d.year == 0 && d.month == 0 && d.day == 0 }
func (d Day) Weekday() time.Weekday { return d.utc().Weekday() }

// Time returns local midnight of d.
func (d Day) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.Local)
}

func (d Day) utc() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// epochDay is the number of days since 1970-01-01.
func (d Day) epochDay() int64 {
	return d.utc().Unix() / secondsPerDay
}

// AddDays returns d shifted by n calendar days.
func (d Day) AddDays(n int) Day {
	return New(d.year, d.month, d.day+n)
}

// AddDate adds years, months and days with time.Date normalisation, so
// January 31 plus one month is March 3 (or 2 in leap years).
func (d Day) AddDate(years, months, days int) Day {
	return New(d.year+years, d.month+time.Month(months), d.day+days)
}

// Between returns the number of calendar days from a to b (negative when b
// is before a).
func Between(a, b Day) int {
	return int(b.epochDay() - a.epochDay())
}

// Compare returns -1, 0 or +1.
func (d Day) Compare(o Day) int {
	switch a, b := d.epochDay(), o.epochDay(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d Day) Before(o Day) bool { return d.Compare(o) < 0 }
func (d Day) After(o Day) bool { return d.Compare(o) > 0 }
func (d Day) Equal(o Day) bool { return d == o }

// String returns the "YYYY-MM-DD" encoding, or "" for the zero Day.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string
// decodes to the zero Day.
func (d *Day) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
