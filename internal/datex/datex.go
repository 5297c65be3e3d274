// Package datex implements the display-timezone contract: all timestamps are
// stored and compared in UTC, while presentation and date-range boundaries
// use a fixed reference timezone (America/Sao_Paulo) regardless of where the
// process runs.
package datex

import (
	"fmt"
	"sync"
	"time"
)

// ReferenceTimezone is the fixed display timezone.
const ReferenceTimezone = "America/Sao_Paulo"

// DayFormat is the calendar-date layout used for range filters and bucketing.
const DayFormat = "2006-01-02"

var (
	locOnce sync.Once
	loc     *time.Location
)

// Location returns the reference timezone. When tzdata is unavailable it
// falls back to the zone's standard offset (UTC-3).
func Location() *time.Location {
	locOnce.Do(func() {
		l, err := time.LoadLocation(ReferenceTimezone)
		if err != nil {
			l = time.FixedZone("-03", -3*60*60)
		}
		loc = l
	})
	return loc
}

var weekdays = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatDisplay renders a stored UTC instant for the user, e.g.
// "Lunes, 3 de marzo a las 15:04".
func FormatDisplay(t time.Time) string {
	local := t.In(Location())
	return fmt.Sprintf("%s, %d de %s a las %02d:%02d",
		weekdays[local.Weekday()], local.Day(), months[local.Month()-1], local.Hour(), local.Minute())
}

// FormatTime renders only the clock time in the reference timezone.
func FormatTime(t time.Time) string {
	local := t.In(Location())
	return fmt.Sprintf("%02d:%02d", local.Hour(), local.Minute())
}

// DayKey returns the reference-zone calendar date of a stored instant,
// formatted as DayFormat. Used to bucket entries into calendar cells.
func DayKey(t time.Time) string {
	return t.In(Location()).Format(DayFormat)
}

// RangeBounds converts calendar dates (DayFormat, reference zone) into UTC
// instants covering [start 00:00:00, end 23:59:59.999999999]. Either bound
// may be empty, in which case the corresponding time is zero.
func RangeBounds(startDate, endDate string) (start, end time.Time, err error) {
	if startDate != "" {
		d, err := time.ParseInLocation(DayFormat, startDate, Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startDate, err)
		}
		start = d.UTC()
	}
	if endDate != "" {
		d, err := time.ParseInLocation(DayFormat, endDate, Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endDate, err)
		}
		end = d.AddDate(0, 0, 1).Add(-time.Nanosecond).UTC()
	}
	return start, end, nil
}

// InRange reports whether a stored UTC instant falls inside the given
// reference-zone calendar-date range. Empty bounds are open.
func InRange(t time.Time, startDate, endDate string) (bool, error) {
	start, end, err := RangeBounds(startDate, endDate)
	if err != nil {
		return false, err
	}
	if !start.IsZero() && t.Before(start) {
		return false, nil
	}
	if !end.IsZero() && t.After(end) {
		return false, nil
	}
	return true, nil
}
