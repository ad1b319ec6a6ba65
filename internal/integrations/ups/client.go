package ups

import (
	"context"
	"time"
)

// TrackResult is the carrier-side view of one tracking number: the raw UPS
// status triple plus whatever delivery dates the API reported. Mapping to
// the internal status set happens in the refresher, not here.
type TrackResult struct {
	StatusCode        string
	StatusType        string
	StatusDescription string

	EstimatedDeliveryDate *time.Time
	ActualDeliveryDate    *time.Time
	// HH:MM:SS, set only together with ActualDeliveryDate.
	ActualDeliveryTime string
}

type Client interface {
	Track(ctx context.Context, trackingNumber string) (TrackResult, error)
}
