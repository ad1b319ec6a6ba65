package pgshipments

import (
	"context"
	"time"

	"github.com/BearBump/ShipQuery/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const initialStatus = models.StatusOrderProcessed

const shipmentColumns = `
  tracking_number, destination, reference_number, shipper_info,
  status, ups_status,
  planned_pickup_date, estimated_delivery_date, actual_delivery_date, actual_delivery_time,
  last_updated, api_call_count, created_at`

// ShipmentUpdate carries one refresh outcome from the worker. When Error is
// set the previous status is kept; we only record that the check happened.
type ShipmentUpdate struct {
	TrackingNumber string

	CheckedAt time.Time

	Status    string
	UPSStatus string

	EstimatedDeliveryDate *time.Time
	ActualDeliveryDate    *time.Time
	ActualDeliveryTime    string

	Error *string
}

type Stats struct {
	TotalRecords       int64      `json:"total_records"`
	ActiveShipments    int64      `json:"active_shipments"`
	DeliveredShipments int64      `json:"delivered_shipments"`
	LastUpdate         *time.Time `json:"last_update"`
}

// ListAll returns the full current snapshot. Filtering is done by the query
// engine, not pushed down; the store's contract is "everything we know".
func (s *Storage) ListAll(ctx context.Context) ([]*models.Shipment, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
ORDER BY created_at ASC, tracking_number ASC
`)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments")
	}
	defer rows.Close()

	return scanShipments(rows)
}

// AddNewShipments inserts sheet rows that are not yet known; existing
// tracking numbers are left untouched. Returns the number inserted.
func (s *Storage) AddNewShipments(ctx context.Context, items []models.ShipmentImportInput) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	added := 0
	for _, it := range items {
		tag, err := tx.Exec(ctx, `
INSERT INTO shipments (
  tracking_number, destination, reference_number, shipper_info,
  status, planned_pickup_date, last_updated, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
ON CONFLICT (tracking_number) DO NOTHING
`, it.TrackingNumber, it.Destination, it.ReferenceNumber, it.ShipperInfo,
			initialStatus, it.PlannedPickupDate, now)
		if err != nil {
			return 0, errors.Wrap(err, "insert shipment")
		}
		added += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return added, nil
}

// ListActiveShipments returns shipments still worth refreshing: not delivered
// and with a pickup date no later than maxPickupDate.
func (s *Storage) ListActiveShipments(ctx context.Context, maxPickupDate time.Time, limit, offset int) ([]*models.Shipment, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
WHERE status NOT IN ($1, $2)
  AND planned_pickup_date IS NOT NULL
  AND planned_pickup_date <= $3
ORDER BY planned_pickup_date ASC, tracking_number ASC
LIMIT $4 OFFSET $5
`, models.StatusDelivered, models.StatusDeliveredDamaged, maxPickupDate.UTC(), limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select active shipments")
	}
	defer rows.Close()

	return scanShipments(rows)
}

func (s *Storage) ApplyShipmentUpdate(ctx context.Context, upd ShipmentUpdate) error {
	if upd.Error != nil && *upd.Error != "" {
		_, err := s.db.Exec(ctx, `
UPDATE shipments
SET
  last_updated = $2,
  api_call_count = api_call_count + 1
WHERE tracking_number = $1
`, upd.TrackingNumber, upd.CheckedAt.UTC())
		return errors.Wrap(err, "update shipment (error)")
	}

	_, err := s.db.Exec(ctx, `
UPDATE shipments
SET
  status = $2,
  ups_status = $3,
  estimated_delivery_date = $4,
  actual_delivery_date = $5,
  actual_delivery_time = $6,
  last_updated = $7,
  api_call_count = api_call_count + 1
WHERE tracking_number = $1
`, upd.TrackingNumber, upd.Status, upd.UPSStatus,
		upd.EstimatedDeliveryDate, upd.ActualDeliveryDate, upd.ActualDeliveryTime,
		upd.CheckedAt.UTC())
	return errors.Wrap(err, "update shipment")
}

func (s *Storage) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx, `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE status NOT IN ($1, $2)),
  COUNT(*) FILTER (WHERE status IN ($1, $2)),
  MAX(last_updated)
FROM shipments
`, models.StatusDelivered, models.StatusDeliveredDamaged).
		Scan(&st.TotalRecords, &st.ActiveShipments, &st.DeliveredShipments, &st.LastUpdate)
	if err != nil {
		return Stats{}, errors.Wrap(err, "select stats")
	}
	return st, nil
}

func scanShipments(rows pgx.Rows) ([]*models.Shipment, error) {
	var out []*models.Shipment
	for rows.Next() {
		var sh models.Shipment
		var pickup, estimated, actual *time.Time
		if err := rows.Scan(
			&sh.TrackingNumber, &sh.Destination, &sh.ReferenceNumber, &sh.ShipperInfo,
			&sh.Status, &sh.UPSStatus,
			&pickup, &estimated, &actual, &sh.ActualDeliveryTime,
			&sh.LastUpdated, &sh.APICallCount, &sh.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		sh.PlannedPickupDate = pickup
		sh.EstimatedDeliveryDate = estimated
		sh.ActualDeliveryDate = actual
		out = append(out, &sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
