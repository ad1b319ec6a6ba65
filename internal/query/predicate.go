package query

import (
	"strings"

	"github.com/BearBump/ShipQuery/internal/models"
)

type Predicate func(*models.Shipment) bool

// BuildPredicate ANDs every supplied criteria field. An empty Criteria
// yields a predicate that accepts everything (full-scan semantics).
func BuildPredicate(c Criteria) Predicate {
	return func(s *models.Shipment) bool {
		if c.TrackingNumberExact != "" && s.TrackingNumber != c.TrackingNumberExact {
			return false
		}
		if c.ReferenceNumberExact != "" && !strings.EqualFold(s.ReferenceNumber, c.ReferenceNumberExact) {
			return false
		}
		if c.DestinationContains != "" &&
			!strings.Contains(strings.ToLower(s.Destination), strings.ToLower(c.DestinationContains)) {
			return false
		}
		// Either the internal status or the raw UPS text matching is enough.
		if c.StatusEquals != "" &&
			!strings.EqualFold(s.Status, c.StatusEquals) &&
			!strings.EqualFold(s.UPSStatus, c.StatusEquals) {
			return false
		}
		if c.DateFrom != nil || c.DateTo != nil {
			d := DateOf(s.LastUpdated)
			if c.DateFrom != nil && d.Before(*c.DateFrom) {
				return false
			}
			if c.DateTo != nil && d.After(*c.DateTo) {
				return false
			}
		}
		return true
	}
}

// Filter keeps source order; truncation happens later in Aggregate so that
// the status breakdown still sees the full matched set.
func Filter(all []*models.Shipment, c Criteria) []*models.Shipment {
	pred := BuildPredicate(c)
	matched := make([]*models.Shipment, 0, len(all))
	for _, s := range all {
		if pred(s) {
			matched = append(matched, s)
		}
	}
	return matched
}
