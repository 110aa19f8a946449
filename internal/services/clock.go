package services

import (
	"time"

	"wallet/internal/models"
)

// ReportingClock reports dates in a fixed reporting timezone.
type ReportingClock struct {
	loc *time.Location
	now func() time.Time
}

// NewReportingClock creates a clock for the given zone.
func NewReportingClock(loc *time.Location) *ReportingClock {
	return &ReportingClock{loc: loc, now: time.Now}
}

// Today returns the current date in the reporting zone as midnight UTC.
func (c *ReportingClock) Today() time.Time {
	return models.DateOf(c.now().In(c.loc))
}

// Location returns the reporting zone.
func (c *ReportingClock) Location() *time.Location {
	return c.loc
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Today calls f.
func (f ClockFunc) Today() time.Time {
	return models.DateOf(f())
}
