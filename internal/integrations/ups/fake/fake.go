package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/BearBump/ShipQuery/internal/integrations/ups"
)

// FakeClient stands in for the UPS API in local runs and tests.
// Status is deterministic per tracking number: a fifth of the numbers come
// back delivered, the rest cycle through in-flight statuses.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Track(ctx context.Context, trackingNumber string) (ups.TrackResult, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(trackingNumber))
	v := h.Sum32()

	if v%5 == 0 {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		return ups.TrackResult{
			StatusType:         "D",
			StatusCode:         "011",
			StatusDescription:  "Delivered",
			ActualDeliveryDate: &yesterday,
			ActualDeliveryTime: "12:00:00",
		}, nil
	}

	inFlight := []ups.TrackResult{
		{StatusType: "I", StatusCode: "IT", StatusDescription: "In Transit"},
		{StatusType: "I", StatusCode: "OR", StatusDescription: "Origin Scan"},
		{StatusType: "I", StatusCode: "OD", StatusDescription: "Out For Delivery Today"},
		{StatusType: "I", StatusCode: "AR", StatusDescription: "Arrived at Facility"},
	}
	res := inFlight[v%uint32(len(inFlight))]

	eta := time.Now().UTC().AddDate(0, 0, int(v%4)+1)
	res.EstimatedDeliveryDate = &eta
	return res, nil
}
