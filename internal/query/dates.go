package query

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrInvalidDateExpression = errors.New("invalid date expression")

// DateRange is inclusive on both bounds. From and To are midnight-UTC dates;
// a single-day expression has From == To.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Slash dates are ambiguous (01/02/2025). Policy: day-first wins, month-first
// is tried only when day-first does not parse (day > 12). Documented to
// callers, not a guaranteed-correct parse.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"01/02/2006",
}

// ResolveDateExpression turns a relative phrase or an absolute date string
// into a concrete range. Deterministic given now; no clock reads here.
func ResolveDateExpression(phrase string, now time.Time) (DateRange, error) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	today := DateOf(now)

	switch p {
	case "today":
		return DateRange{From: today, To: today}, nil
	case "yesterday":
		d := today.AddDate(0, 0, -1)
		return DateRange{From: d, To: d}, nil
	case "this week":
		return DateRange{From: mostRecentMonday(today), To: today}, nil
	case "last week":
		mon := mostRecentMonday(today).AddDate(0, 0, -7)
		return DateRange{From: mon, To: mon.AddDate(0, 0, 6)}, nil
	}

	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, p, time.UTC); err == nil {
			return DateRange{From: d, To: d}, nil
		}
	}

	return DateRange{}, errors.Wrapf(ErrInvalidDateExpression, "%q", phrase)
}

// DateOf drops the time-of-day component, keeping a midnight-UTC date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mostRecentMonday(day time.Time) time.Time {
	wd := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -wd)
}
