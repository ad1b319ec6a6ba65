package query

import (
	"fmt"
	"strings"
)

// Result is the response payload; key names are part of the API contract.
type Result struct {
	Success         bool           `json:"success"`
	Count           int            `json:"count"`
	Message         string         `json:"message"`
	Query           string         `json:"query"`
	Shipments       []ShipmentView `json:"shipments"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
}

// Assemble builds the final result. Normalizer notes (dropped date bounds)
// are appended to the summary so the caller learns a filter was ignored.
func Assemble(c Criteria, agg Aggregation, notes []string) Result {
	msg := agg.Message
	for _, note := range notes {
		msg += "\nNote: " + note
	}

	breakdown := make(map[string]int, len(agg.Breakdown))
	for _, sc := range agg.Breakdown {
		breakdown[sc.Status] = sc.Count
	}

	return Result{
		Success:         true,
		Count:           len(agg.Shipments),
		Message:         msg,
		Query:           EchoQuery(c),
		Shipments:       agg.Shipments,
		StatusBreakdown: breakdown,
	}
}

// Failure is the shape for malformed input and upstream outages: the error
// rides in the body so an agent can read success=false and relay the message.
func Failure(message string) Result {
	return Result{
		Success:         false,
		Message:         message,
		Shipments:       []ShipmentView{},
		StatusBreakdown: map[string]int{},
	}
}

// EchoQuery renders only the supplied criteria, in a fixed field order.
func EchoQuery(c Criteria) string {
	var parts []string
	add := func(field, value string) {
		if value != "" {
			parts = append(parts, fmt.Sprintf("%s='%s'", field, value))
		}
	}
	add("destination", c.DestinationContains)
	add("tracking_number", c.TrackingNumberExact)
	add("reference_number", c.ReferenceNumberExact)
	add("status", c.StatusEquals)
	if c.DateFrom != nil {
		add("date_from", c.DateFrom.Format("2006-01-02"))
	}
	if c.DateTo != nil {
		add("date_to", c.DateTo.Format("2006-01-02"))
	}
	return strings.Join(parts, ", ")
}
