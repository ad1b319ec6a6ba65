package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BearBump/ShipQuery/internal/models"
)

const noMatchMessage = "No shipments found matching your query."

type StatusCount struct {
	Status string
	Count  int
}

type Aggregation struct {
	// Total is the matched-set size before truncation.
	Total     int
	Breakdown []StatusCount
	Message   string
	Shipments []ShipmentView
}

// ShipmentView is the agent-facing record shape. Dates are rendered as
// strings with "N/A" placeholders so an agent can relay fields verbatim.
type ShipmentView struct {
	TrackingNumber        string `json:"tracking_number"`
	Destination           string `json:"destination"`
	Status                string `json:"status"`
	UPSStatus             string `json:"ups_status"`
	ReferenceNumber       string `json:"reference_number"`
	ShipperInfo           string `json:"shipper_info"`
	PlannedPickupDate     string `json:"planned_pickup_date"`
	EstimatedDeliveryDate string `json:"estimated_delivery_date"`
	ActualDeliveryDate    string `json:"actual_delivery_date"`
	ActualDeliveryTime    string `json:"actual_delivery_time"`
	LastUpdated           string `json:"last_updated"`
	DaysSincePickup       *int   `json:"days_since_pickup"`
	DaysUntilPickup       *int   `json:"days_until_pickup"`
}

// Aggregate computes the status breakdown and summary over the full matched
// set, then truncates the returned shipment list to the criteria limit.
// Breakdown counts and listed shipments therefore diverge when truncation
// kicks in; that is intentional and documented in the API contract.
func Aggregate(matched []*models.Shipment, c Criteria, now time.Time) Aggregation {
	counts := make(map[string]int, 8)
	for _, s := range matched {
		counts[s.Status]++
	}
	breakdown := sortBreakdown(counts)

	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	n := len(matched)
	if n > limit {
		n = limit
	}
	views := make([]ShipmentView, 0, n)
	for _, s := range matched[:n] {
		views = append(views, viewOf(s, now))
	}

	return Aggregation{
		Total:     len(matched),
		Breakdown: breakdown,
		Message:   summaryMessage(len(matched), breakdown),
		Shipments: views,
	}
}

// Deterministic order: count descending, ties by status name ascending.
func sortBreakdown(counts map[string]int) []StatusCount {
	out := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status < out[j].Status
	})
	return out
}

func summaryMessage(total int, breakdown []StatusCount) string {
	if total == 0 {
		return noMatchMessage
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d shipment(s) matching your query:", total)
	for _, sc := range breakdown {
		fmt.Fprintf(&b, "\n• %s: %d shipment(s)", sc.Status, sc.Count)
	}
	return b.String()
}

func viewOf(s *models.Shipment, now time.Time) ShipmentView {
	since, until := pickupDayCounts(s.PlannedPickupDate, now)
	return ShipmentView{
		TrackingNumber:        orNA(s.TrackingNumber),
		Destination:           orNA(s.Destination),
		Status:                orDefault(s.Status, models.StatusUnknown),
		UPSStatus:             orNA(s.UPSStatus),
		ReferenceNumber:       orNA(s.ReferenceNumber),
		ShipperInfo:           orNA(s.ShipperInfo),
		PlannedPickupDate:     dateString(s.PlannedPickupDate),
		EstimatedDeliveryDate: dateString(s.EstimatedDeliveryDate),
		ActualDeliveryDate:    dateString(s.ActualDeliveryDate),
		ActualDeliveryTime:    orNA(s.ActualDeliveryTime),
		LastUpdated:           s.LastUpdated.UTC().Format(time.RFC3339),
		DaysSincePickup:       since,
		DaysUntilPickup:       until,
	}
}

// At most one of (since, until) is non-nil. A pickup happening today counts
// as zero days since pickup, not as a pending pickup.
func pickupDayCounts(pickup *time.Time, now time.Time) (since, until *int) {
	if pickup == nil {
		return nil, nil
	}
	days := int(DateOf(now).Sub(DateOf(*pickup)).Hours() / 24)
	if days >= 0 {
		return &days, nil
	}
	ahead := -days
	return nil, &ahead
}

func dateString(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
