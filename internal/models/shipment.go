package models

import "time"

// Closed set of internal statuses produced by the refresher's status mapping.
// UPS raw text is kept separately in Shipment.UPSStatus.
const (
	StatusDelivered        = "Delivered"
	StatusInTransit        = "In Transit"
	StatusOutForDelivery   = "Out for Delivery"
	StatusException        = "Exception"
	StatusHeldAtFacility   = "Held at Facility"
	StatusPickedUp         = "Picked Up"
	StatusOriginScan       = "Origin Scan"
	StatusDepartureScan    = "Departure Scan"
	StatusArrivalScan      = "Arrival Scan"
	StatusDestinationScan  = "Destination Scan"
	StatusOrderProcessed   = "Order Processed"
	StatusLabelCreated     = "Label Created"
	StatusReturnToSender   = "Return to Sender"
	StatusDeliveredDamaged = "Delivered (Damaged)"
	StatusUnknown          = "Unknown"
)

type Shipment struct {
	TrackingNumber  string
	Destination     string
	Status          string
	UPSStatus       string
	ReferenceNumber string
	ShipperInfo     string

	PlannedPickupDate     *time.Time
	EstimatedDeliveryDate *time.Time
	ActualDeliveryDate    *time.Time
	// HH:MM:SS, meaningful only when ActualDeliveryDate is set.
	ActualDeliveryTime string

	LastUpdated  time.Time
	APICallCount int32
	CreatedAt    time.Time
}

type ShipmentImportInput struct {
	TrackingNumber    string
	PlannedPickupDate *time.Time
	Destination       string
	ReferenceNumber   string
	ShipperInfo       string
}
