package timewindow

import (
	"fmt"
	"regexp"
	"time"

	appErrors "github.com/fitsync/academia-api/pkg/errors"
)

// DateLayout is the calendar date format accepted on the wire.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Bounds is a half-open UTC interval [StartUTC, EndUTC).
type Bounds struct {
	StartUTC time.Time
	EndUTC   time.Time
}

// Contains reports whether t falls inside the interval.
func (b Bounds) Contains(t time.Time) bool {
	return !t.Before(b.StartUTC) && t.Before(b.EndUTC)
}

// LoadLocation resolves an IANA timezone identifier, falling back to UTC when
// the identifier is empty.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("invalid timezone %q", tz))
	}
	return loc, nil
}

// TodayBounds returns the UTC interval covering the current local day in loc.
func TodayBounds(loc *time.Location) Bounds {
	return dayBounds(time.Now().In(loc), loc)
}

// DayBounds parses a YYYY-MM-DD calendar date and returns the UTC interval
// covering that local day. field names the offending input on error.
func DayBounds(date string, loc *time.Location, field string) (Bounds, error) {
	day, err := ParseDate(date, field)
	if err != nil {
		return Bounds{}, err
	}
	return dayBounds(day.In(loc), loc), nil
}

// ParseDate validates a YYYY-MM-DD string, reporting the field name on error.
func ParseDate(date, field string) (time.Time, error) {
	if !datePattern.MatchString(date) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("parametro %s invalido, esperado YYYY-MM-DD", field))
	}
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("parametro %s invalido, esperado YYYY-MM-DD", field))
	}
	return parsed, nil
}

// RangeBounds resolves optional from/to local dates into a UTC interval.
// With both absent it defaults to today. A from after to is a validation
// error.
func RangeBounds(from, to string, loc *time.Location) (Bounds, error) {
	if from == "" && to == "" {
		return TodayBounds(loc), nil
	}

	bounds := Bounds{}
	if from != "" {
		b, err := DayBounds(from, loc, "from")
		if err != nil {
			return Bounds{}, err
		}
		bounds.StartUTC = b.StartUTC
	}
	if to != "" {
		b, err := DayBounds(to, loc, "to")
		if err != nil {
			return Bounds{}, err
		}
		bounds.EndUTC = b.EndUTC
	}

	if !bounds.StartUTC.IsZero() && !bounds.EndUTC.IsZero() && bounds.EndUTC.Before(bounds.StartUTC) {
		return Bounds{}, appErrors.Clone(appErrors.ErrValidation, "to deve ser maior ou igual a from")
	}
	return bounds, nil
}

// LocalStart combines a calendar day with an HH:MM clock time in loc and
// returns the UTC instant.
func LocalStart(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "horario invalido, esperado HH:MM")
	}
	local := time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)
	return local.UTC(), nil
}

func dayBounds(local time.Time, loc *time.Location) Bounds {
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Bounds{StartUTC: start.UTC(), EndUTC: start.AddDate(0, 0, 1).UTC()}
}
