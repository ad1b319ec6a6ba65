package messages

import "time"

// ShipmentUpdated is published by ship-worker after each UPS check and
// consumed by ship-api, which applies it to the store.
type ShipmentUpdated struct {
	TrackingNumber string    `json:"tracking_number"`
	CheckedAt      time.Time `json:"checked_at"`

	Status    string `json:"status,omitempty"`
	UPSStatus string `json:"ups_status,omitempty"`

	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date,omitempty"`
	ActualDeliveryDate    *time.Time `json:"actual_delivery_date,omitempty"`
	ActualDeliveryTime    string     `json:"actual_delivery_time,omitempty"`

	Error *string `json:"error,omitempty"`
}

// RefreshRequested asks the worker for an immediate refresh cycle
// (POST /trigger on ship-api).
type RefreshRequested struct {
	RequestedAt time.Time `json:"requested_at"`
	Source      string    `json:"source,omitempty"`
}
