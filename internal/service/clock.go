package service

import "time"

// Clock supplies the current instant. Tests replace it with a fixed time.
type Clock func() time.Time

// Calendar maps instants to calendar dates in the server time zone.
// Client clocks are never consulted.
type Calendar struct {
	loc *time.Location
	now Clock
}

// NewCalendar creates a Calendar for loc. A nil clock uses time.Now.
func NewCalendar(loc *time.Location, now Clock) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

// Now returns the current instant.
func (c *Calendar) Now() time.Time {
	return c.now()
}

// Today returns the current calendar date.
func (c *Calendar) Today() time.Time {
	return DateOf(c.now(), c.loc)
}

// Location returns the server time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// DateOf returns the calendar date of t in loc as midnight UTC, the form
// PostgreSQL DATE columns scan into, so dates compare with Equal.
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// sameDate reports whether the optional stored date equals day.
func sameDate(stored *time.Time, day time.Time) bool {
	return stored != nil && DateOf(*stored, time.UTC).Equal(day)
}

// formatDate renders a calendar date for logs and descriptions.
func formatDate(d time.Time) string {
	return d.Format(time.DateOnly)
}
