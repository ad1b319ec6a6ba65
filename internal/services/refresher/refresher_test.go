package refresher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/ShipQuery/internal/broker/messages"
	"github.com/BearBump/ShipQuery/internal/integrations/ups"
	"github.com/BearBump/ShipQuery/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	addIn     []models.ShipmentImportInput
	addOut    int
	addErr    error
	listOut   []*models.Shipment
	listErr   error
	listCalls int
}

func (r *fakeRepo) AddNewShipments(ctx context.Context, items []models.ShipmentImportInput) (int, error) {
	r.addIn = items
	return r.addOut, r.addErr
}
func (r *fakeRepo) ListActiveShipments(ctx context.Context, maxPickupDate time.Time, limit, offset int) ([]*models.Shipment, error) {
	r.listCalls++
	if r.listCalls > 1 {
		return nil, r.listErr
	}
	return r.listOut, r.listErr
}

type fakeProducer struct {
	key   []byte
	value []byte
	calls int
	err   error
}

func (p *fakeProducer) Publish(ctx context.Context, key, value []byte) error {
	p.calls++
	p.key, p.value = key, value
	return p.err
}

type fakeRL struct {
	allowed bool
	count   int64
	err     error
}

func (r fakeRL) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return r.allowed, r.count, r.err
}

type fakeTracker struct {
	res ups.TrackResult
	err error
}

func (c fakeTracker) Track(ctx context.Context, trackingNumber string) (ups.TrackResult, error) {
	return c.res, c.err
}

type fakeSheet struct {
	rows []models.ShipmentImportInput
	err  error
}

func (s fakeSheet) Load(ctx context.Context) ([]models.ShipmentImportInput, error) {
	return s.rows, s.err
}

func TestRefresher_processOne_okPublishes(t *testing.T) {
	eta := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	fp := &fakeProducer{}
	r := New(nil, fakeTracker{
		res: ups.TrackResult{
			StatusType:            "I",
			StatusCode:            "IT",
			StatusDescription:     "In Transit",
			EstimatedDeliveryDate: &eta,
		},
	}, fp, fakeRL{allowed: true}, nil)

	sh := &models.Shipment{TrackingNumber: "1ZAAA"}
	require.NoError(t, r.processOne(context.Background(), sh))
	require.Equal(t, 1, fp.calls)
	require.Equal(t, []byte("1ZAAA"), fp.key)

	var msg messages.ShipmentUpdated
	require.NoError(t, json.Unmarshal(fp.value, &msg))
	require.Equal(t, models.StatusInTransit, msg.Status)
	require.Equal(t, "In Transit", msg.UPSStatus)
	require.NotNil(t, msg.EstimatedDeliveryDate)
	require.Nil(t, msg.Error)
}

func TestRefresher_processOne_trackErrorPublishesError(t *testing.T) {
	fp := &fakeProducer{}
	r := New(nil, fakeTracker{err: errors.New("ups track http 500")}, fp, nil, nil)

	sh := &models.Shipment{TrackingNumber: "1ZAAA", Status: models.StatusInTransit}
	require.NoError(t, r.processOne(context.Background(), sh))
	require.Equal(t, 1, fp.calls)

	var msg messages.ShipmentUpdated
	require.NoError(t, json.Unmarshal(fp.value, &msg))
	require.NotNil(t, msg.Error)
	require.Contains(t, *msg.Error, "ups track http 500")
	require.Empty(t, msg.Status) // status decision stays with the store
}

func TestRefresher_runOnce_importsAndChecks(t *testing.T) {
	repo := &fakeRepo{
		addOut:  1,
		listOut: []*models.Shipment{{TrackingNumber: "1ZAAA"}, {TrackingNumber: "1ZBBB"}},
	}
	fp := &fakeProducer{}
	sheet := fakeSheet{rows: []models.ShipmentImportInput{{TrackingNumber: "1ZCCC"}}}
	r := New(repo, fakeTracker{res: ups.TrackResult{StatusDescription: "In Transit"}}, fp, nil, sheet)

	r.runOnce(context.Background())

	require.Len(t, repo.addIn, 1)
	require.Equal(t, 2, fp.calls)

	st := r.Stats()
	require.Equal(t, int64(1), st.TotalImported)
	require.Equal(t, int64(2), st.TotalChecked)
	require.Zero(t, st.TotalErrors)
	require.NotNil(t, st.LastCycleAt)
}

func TestRefresher_runOnce_sheetFailureStillChecks(t *testing.T) {
	repo := &fakeRepo{listOut: []*models.Shipment{{TrackingNumber: "1ZAAA"}}}
	fp := &fakeProducer{}
	r := New(repo, fakeTracker{res: ups.TrackResult{StatusDescription: "Delivered"}}, fp, nil,
		fakeSheet{err: errors.New("no such file")})

	r.runOnce(context.Background())

	require.Equal(t, 1, fp.calls)
	require.Contains(t, r.Stats().LastError, "no such file")
}

func TestRefresher_WithSettings(t *testing.T) {
	r := New(nil, fakeTracker{}, &fakeProducer{}, nil, nil).
		WithSettings(5*time.Second, 7, 9, 13)
	require.Equal(t, 5*time.Second, r.refreshInterval)
	require.Equal(t, 7, r.batchSize)
	require.Equal(t, 9, r.concurrency)
	require.Equal(t, int64(13), r.rateLimitPerMinute)
}

func TestRefresher_Run_StopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	r := New(repo, fakeTracker{}, &fakeProducer{}, nil, nil).
		WithSettings(5*time.Millisecond, 1, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := r.Run(ctx)
	require.Error(t, err)
	require.GreaterOrEqual(t, repo.listCalls, 1)
}
