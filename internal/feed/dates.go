package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	instantLayout = "2006-01-02T15:04:05.000Z"
)

// ErrInvalidTimezone is returned when a timezone identifier is empty or unknown.
var ErrInvalidTimezone = errors.New("invalid timezone")

// Timed values as delivered by Notion, plus a few tolerated variants.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// DateRange is a date property value. Start and End are either a calendar
// date (YYYY-MM-DD) or a timestamp with a time component.
type DateRange struct {
	Start string
	End   string
}

// HasStart reports whether the range carries scheduling information.
func (d *DateRange) HasStart() bool {
	return d != nil && strings.TrimSpace(d.Start) != ""
}

// Effective returns End when present, otherwise Start.
func (d *DateRange) Effective() string {
	if d == nil {
		return ""
	}
	if d.End != "" {
		return d.End
	}
	return d.Start
}

// Span is a normalized, calendar-ready date range. For all-day spans End is
// exclusive.
type Span struct {
	Start  string
	End    string
	AllDay bool
}

// LoadTimezone resolves an IANA timezone identifier.
func LoadTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// TodayTomorrow returns the current and next calendar date observed in loc.
func TodayTomorrow(now time.Time, loc *time.Location) (today, tomorrow string) {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Format(dateLayout), midnight.AddDate(0, 0, 1).Format(dateLayout)
}

// IsAllDay reports whether value carries no time-of-day component.
func IsAllDay(value string) bool {
	return !strings.Contains(value, "T")
}

// Normalize converts a source date range into a Span.
func Normalize(r DateRange) (Span, error) {
	if !r.HasStart() {
		return Span{}, errors.New("date range has no start")
	}
	start := strings.TrimSpace(r.Start)
	end := strings.TrimSpace(r.End)

	if IsAllDay(start) {
		startDate, err := time.Parse(dateLayout, start)
		if err != nil {
			return Span{}, fmt.Errorf("parse start date %q: %w", start, err)
		}
		endDate := startDate
		if end != "" {
			// A timed end on an all-day start only contributes its date.
			if endDate, err = time.Parse(dateLayout, datePortion(end)); err != nil {
				return Span{}, fmt.Errorf("parse end date %q: %w", end, err)
			}
			if endDate.Before(startDate) {
				endDate = startDate
			}
		}
		return Span{
			Start:  start,
			End:    endDate.AddDate(0, 0, 1).Format(dateLayout),
			AllDay: true,
		}, nil
	}

	startAt, err := parseInstant(start)
	if err != nil {
		return Span{}, fmt.Errorf("parse start %q: %w", start, err)
	}
	endAt := startAt
	if end != "" {
		if endAt, err = parseInstant(end); err != nil {
			return Span{}, fmt.Errorf("parse end %q: %w", end, err)
		}
		if endAt.Before(startAt) {
			endAt = startAt
		}
	}
	return Span{
		Start: startAt.UTC().Format(instantLayout),
		End:   endAt.UTC().Format(instantLayout),
	}, nil
}

func parseInstant(value string) (time.Time, error) {
	if IsAllDay(value) {
		return time.Parse(dateLayout, value)
	}
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func datePortion(value string) string {
	if len(value) >= len(dateLayout) {
		return value[:len(dateLayout)]
	}
	return value
}

// dateBefore reports whether the date portion of value falls strictly before
// the YYYY-MM-DD day.
func dateBefore(value, day string) bool {
	v, errV := time.Parse(dateLayout, datePortion(value))
	d, errD := time.Parse(dateLayout, day)
	if errV != nil || errD != nil {
		// Fixed-width zero-padded dates still order correctly as strings.
		return datePortion(value) < day
	}
	return v.Before(d)
}
