package pgshipments

import (
	"context"

	"github.com/pkg/errors"
)

// Derived day counts (days since/until pickup) are intentionally not stored;
// they are computed against "now" at response time.
func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS shipments (
  tracking_number TEXT PRIMARY KEY,
  destination TEXT NOT NULL DEFAULT '',
  reference_number TEXT NOT NULL DEFAULT '',
  shipper_info TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  ups_status TEXT NOT NULL DEFAULT '',
  planned_pickup_date DATE NULL,
  estimated_delivery_date DATE NULL,
  actual_delivery_date DATE NULL,
  actual_delivery_time TEXT NOT NULL DEFAULT '',
  last_updated TIMESTAMPTZ NOT NULL,
  api_call_count INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_planned_pickup ON shipments(planned_pickup_date)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_status ON shipments(status)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
