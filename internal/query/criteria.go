package query

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultLimit = 100

// Criteria is the normalized, typed form of a caller's filter request.
// Built fresh per request, used once, never persisted.
type Criteria struct {
	DestinationContains  string
	TrackingNumberExact  string
	ReferenceNumberExact string
	StatusEquals         string

	// Inclusive bounds compared against the date component of LastUpdated.
	DateFrom *time.Time
	DateTo   *time.Time

	Limit int
}

// Params is the raw request shape after the HTTP boundary: query-string
// values arrive as strings, JSON body values keep their decoded types.
// Nothing past the normalizer ever branches on which shape it was.
type Params map[string]any

func ParamsFromValues(values url.Values) Params {
	p := make(Params, len(values))
	for k := range values {
		p[k] = values.Get(k)
	}
	return p
}

// Normalize builds Criteria from raw params. Unknown keys are ignored.
// Date expressions that do not resolve are dropped, with a human-readable
// note returned for the response message; a bad date never fails the request.
func Normalize(raw Params, now time.Time) (Criteria, []string) {
	c := Criteria{Limit: DefaultLimit}
	var notes []string

	c.DestinationContains = stringParam(raw, "destination")
	c.TrackingNumberExact = stringParam(raw, "tracking_number")
	c.ReferenceNumberExact = stringParam(raw, "reference_number")
	c.StatusEquals = stringParam(raw, "status")

	if n, ok := intParam(raw, "limit"); ok && n > 0 {
		c.Limit = n
	}

	// A range phrase ("this week") contributes only the side it was given as:
	// date_from takes the range start, date_to the range end. The other bound
	// stays open unless supplied explicitly.
	if s := stringParam(raw, "date_from"); s != "" {
		if r, err := ResolveDateExpression(s, now); err != nil {
			notes = append(notes, fmt.Sprintf("date_from %q was not understood, the filter was ignored", s))
		} else {
			from := r.From
			c.DateFrom = &from
		}
	}
	if s := stringParam(raw, "date_to"); s != "" {
		if r, err := ResolveDateExpression(s, now); err != nil {
			notes = append(notes, fmt.Sprintf("date_to %q was not understood, the filter was ignored", s))
		} else {
			to := r.To
			c.DateTo = &to
		}
	}

	return c, notes
}

func stringParam(raw Params, key string) string {
	s, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func intParam(raw Params, key string) (int, bool) {
	switch v := raw[key].(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
