package agentquery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/ShipQuery/internal/broker/messages"
	"github.com/BearBump/ShipQuery/internal/cache"
	"github.com/BearBump/ShipQuery/internal/models"
	"github.com/BearBump/ShipQuery/internal/query"
	"github.com/BearBump/ShipQuery/internal/storage/pgshipments"
	"github.com/pkg/errors"
)

const snapshotKey = "shipments:snapshot"

type Source interface {
	ListAll(ctx context.Context) ([]*models.Shipment, error)
	Stats(ctx context.Context) (pgshipments.Stats, error)
	ApplyShipmentUpdate(ctx context.Context, upd pgshipments.ShipmentUpdate) error
}

// Service answers agent queries over the shipment snapshot and applies
// refresh results arriving from the worker.
type Service struct {
	source      Source
	cache       cache.BytesCache
	snapshotTTL time.Duration
}

func New(source Source, c cache.BytesCache, snapshotTTL time.Duration) *Service {
	return &Service{source: source, cache: c, snapshotTTL: snapshotTTL}
}

func (s *Service) Query(ctx context.Context, raw query.Params, now time.Time) (query.Result, error) {
	criteria, notes := query.Normalize(raw, now)

	shipments, err := s.snapshot(ctx)
	if err != nil {
		return query.Result{}, err
	}

	matched := query.Filter(shipments, criteria)
	agg := query.Aggregate(matched, criteria, now)
	return query.Assemble(criteria, agg, notes), nil
}

// Lookup is the single-shipment path behind GET /tracking/{trackingNumber}.
func (s *Service) Lookup(ctx context.Context, trackingNumber string, now time.Time) (query.Result, error) {
	return s.Query(ctx, query.Params{"tracking_number": trackingNumber, "limit": 1}, now)
}

type Health struct {
	Status        string             `json:"status"`
	Timestamp     string             `json:"timestamp"`
	DatabaseStats *pgshipments.Stats `json:"database_stats,omitempty"`
	Error         string             `json:"error,omitempty"`
}

func (s *Service) Health(ctx context.Context, now time.Time) Health {
	h := Health{Timestamp: now.UTC().Format(time.RFC3339)}

	st, err := s.source.Stats(ctx)
	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
		return h
	}
	h.Status = "healthy"
	h.DatabaseStats = &st
	return h
}

func (s *Service) ApplyKafkaUpdate(ctx context.Context, msg messages.ShipmentUpdated) error {
	if msg.TrackingNumber == "" {
		return errors.New("tracking_number is required")
	}
	if msg.CheckedAt.IsZero() {
		msg.CheckedAt = time.Now().UTC()
	}

	err := s.source.ApplyShipmentUpdate(ctx, pgshipments.ShipmentUpdate{
		TrackingNumber:        msg.TrackingNumber,
		CheckedAt:             msg.CheckedAt,
		Status:                msg.Status,
		UPSStatus:             msg.UPSStatus,
		EstimatedDeliveryDate: msg.EstimatedDeliveryDate,
		ActualDeliveryDate:    msg.ActualDeliveryDate,
		ActualDeliveryTime:    msg.ActualDeliveryTime,
		Error:                 msg.Error,
	})
	if err != nil {
		return err
	}

	// The snapshot is stale now; drop it and let the next query rebuild.
	if s.cache != nil && s.snapshotTTL > 0 {
		_ = s.cache.Del(ctx, snapshotKey)
	}
	return nil
}

// snapshot serves queries from a cached full listing when possible. The cache
// is best effort: any miss or decode problem falls through to the store.
func (s *Service) snapshot(ctx context.Context) ([]*models.Shipment, error) {
	if s.cache != nil && s.snapshotTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, snapshotKey); err == nil && ok {
			var out []*models.Shipment
			if json.Unmarshal(b, &out) == nil {
				return out, nil
			}
		}
	}

	out, err := s.source.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list shipments")
	}

	if s.cache != nil && s.snapshotTTL > 0 {
		b, _ := json.Marshal(out)
		_ = s.cache.Set(ctx, snapshotKey, b, s.snapshotTTL)
	}
	return out, nil
}
