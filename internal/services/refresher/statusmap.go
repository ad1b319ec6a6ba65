package refresher

import (
	"strings"

	"github.com/BearBump/ShipQuery/internal/integrations/ups"
	"github.com/BearBump/ShipQuery/internal/models"
)

// MapStatus folds a raw UPS track result into the internal closed status set.
// Damage and return-to-sender outrank a plain delivered reading; the scan
// buckets come before the generic in-transit fallback.
func MapStatus(res ups.TrackResult) string {
	desc := strings.ToLower(res.StatusDescription)
	typ := strings.ToUpper(strings.TrimSpace(res.StatusType))

	switch {
	case strings.Contains(desc, "damage"):
		return models.StatusDeliveredDamaged
	case strings.Contains(desc, "return") && strings.Contains(desc, "sender"):
		return models.StatusReturnToSender
	case typ == "D" || strings.Contains(desc, "delivered"):
		return models.StatusDelivered
	case strings.Contains(desc, "out for delivery"):
		return models.StatusOutForDelivery
	case typ == "X" || strings.Contains(desc, "exception"):
		return models.StatusException
	case strings.Contains(desc, "held") || strings.Contains(desc, "hold"):
		return models.StatusHeldAtFacility
	case strings.Contains(desc, "pickup scan") || strings.Contains(desc, "picked up"):
		return models.StatusPickedUp
	case strings.Contains(desc, "origin"):
		return models.StatusOriginScan
	case strings.Contains(desc, "departure") || strings.Contains(desc, "departed"):
		return models.StatusDepartureScan
	case strings.Contains(desc, "destination"):
		return models.StatusDestinationScan
	case strings.Contains(desc, "arriv"):
		return models.StatusArrivalScan
	case strings.Contains(desc, "order") && strings.Contains(desc, "process"):
		return models.StatusOrderProcessed
	case typ == "M" || strings.Contains(desc, "label") || strings.Contains(desc, "shipper created"):
		return models.StatusLabelCreated
	case typ == "I" || strings.Contains(desc, "transit"):
		return models.StatusInTransit
	case desc == "":
		// Label exists but UPS returned no scan data yet.
		return models.StatusLabelCreated
	default:
		return models.StatusUnknown
	}
}
