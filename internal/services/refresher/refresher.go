package refresher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipQuery/internal/broker/messages"
	"github.com/BearBump/ShipQuery/internal/integrations/ups"
	"github.com/BearBump/ShipQuery/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	AddNewShipments(ctx context.Context, items []models.ShipmentImportInput) (int, error)
	ListActiveShipments(ctx context.Context, maxPickupDate time.Time, limit, offset int) ([]*models.Shipment, error)
}

type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Sheet supplies new shipments from the order-entry export.
type Sheet interface {
	Load(ctx context.Context) ([]models.ShipmentImportInput, error)
}

// Refresher runs the periodic UPS refresh cycle: import new sheet rows, walk
// the active shipments in batches, track each one against UPS, and publish the
// outcome for ship-api to apply.
type Refresher struct {
	repo     Repository
	tracker  ups.Client
	producer Producer
	rl       RateLimiter
	sheet    Sheet

	refreshInterval    time.Duration
	batchSize          int
	concurrency        int
	rateLimitPerMinute int64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalImported       atomic.Int64
	totalChecked        atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, tracker ups.Client, producer Producer, rl RateLimiter, sheet Sheet) *Refresher {
	return &Refresher{
		repo: repo, tracker: tracker, producer: producer, rl: rl, sheet: sheet,
		refreshInterval:    30 * time.Minute,
		batchSize:          100,
		concurrency:        5,
		rateLimitPerMinute: 60,
		triggerCh:          make(chan struct{}, 1),
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func (r *Refresher) WithSettings(refreshInterval time.Duration, batchSize, concurrency int, rlPerMin int64) *Refresher {
	if refreshInterval > 0 {
		r.refreshInterval = refreshInterval
	}
	if batchSize > 0 {
		r.batchSize = batchSize
	}
	if concurrency > 0 {
		r.concurrency = concurrency
	}
	if rlPerMin > 0 {
		r.rateLimitPerMinute = rlPerMin
	}
	return r
}

// Trigger forces an immediate refresh cycle (best-effort, non-blocking).
func (r *Refresher) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalImported int64      `json:"totalImported"`
	TotalChecked  int64      `json:"totalChecked"`
	TotalErrors   int64      `json:"totalErrors"`
	InFlight      int64      `json:"inFlight"`
	LastError     string     `json:"lastError,omitempty"`
}

func (r *Refresher) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalImported: r.totalImported.Load(),
		TotalChecked:  r.totalChecked.Load(),
		TotalErrors:   r.totalErrors.Load(),
		InFlight:      r.inFlight.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Refresher) Run(ctx context.Context) error {
	t := time.NewTicker(r.refreshInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	r.lastCycleUnixNano.Store(now.UnixNano())

	r.importSheet(ctx)

	offset := 0
	for {
		items, err := r.repo.ListActiveShipments(ctx, now, r.batchSize, offset)
		if err != nil {
			slog.Error("list active shipments", "error", err.Error())
			r.noteError(err)
			return
		}
		if len(items) == 0 {
			return
		}
		r.processBatch(ctx, items)
		if len(items) < r.batchSize {
			return
		}
		offset += r.batchSize
	}
}

// importSheet is best effort: a broken or missing export must not stop the
// refresh of shipments we already know about.
func (r *Refresher) importSheet(ctx context.Context) {
	if r.sheet == nil {
		return
	}
	rows, err := r.sheet.Load(ctx)
	if err != nil {
		slog.Warn("load order sheet", "error", err.Error())
		r.noteError(err)
		return
	}
	if len(rows) == 0 {
		return
	}
	added, err := r.repo.AddNewShipments(ctx, rows)
	if err != nil {
		slog.Error("add new shipments", "error", err.Error())
		r.noteError(err)
		return
	}
	if added > 0 {
		slog.Info("imported new shipments", "count", added)
	}
	r.totalImported.Add(int64(added))
}

func (r *Refresher) processBatch(ctx context.Context, items []*models.Shipment) {
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for _, sh := range items {
		sem <- struct{}{}
		wg.Add(1)
		shCopy := sh
		r.inFlight.Add(1)
		go func() {
			defer func() {
				r.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := r.processOne(ctx, shCopy); err != nil {
				r.totalErrors.Add(1)
				r.noteError(err)
				slog.Error("refresh shipment", "tracking_number", shCopy.TrackingNumber, "error", err.Error())
			}
			r.totalChecked.Add(1)
		}()
	}
	wg.Wait()
}

func (r *Refresher) processOne(ctx context.Context, sh *models.Shipment) error {
	now := time.Now().UTC()

	if r.rl != nil && r.rateLimitPerMinute > 0 {
		minuteKey := "rl:ups:" + now.Format("200601021504")
		allowed, n, err := r.rl.Allow(ctx, minuteKey, r.rateLimitPerMinute, 70*time.Second)
		if err != nil {
			return err
		}
		if !allowed {
			slog.Warn("ups rate limit exceeded", "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	res, err := r.tracker.Track(ctx, sh.TrackingNumber)
	msg := messages.ShipmentUpdated{
		TrackingNumber: sh.TrackingNumber,
		CheckedAt:      now,
	}

	if err != nil {
		e := err.Error()
		msg.Error = &e
	} else {
		msg.Status = MapStatus(res)
		msg.UPSStatus = res.StatusDescription
		msg.EstimatedDeliveryDate = res.EstimatedDeliveryDate
		msg.ActualDeliveryDate = res.ActualDeliveryDate
		msg.ActualDeliveryTime = res.ActualDeliveryTime
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal kafka msg")
	}

	// Kafka may lag the worker on a cold compose start, so publishing retries
	// a few times before giving up.
	var pubErr error
	for i := 0; i < 10; i++ {
		if pubErr = r.producer.Publish(ctx, []byte(sh.TrackingNumber), b); pubErr == nil {
			break
		}
		time.Sleep(time.Duration(150*(i+1)) * time.Millisecond)
	}
	return pubErr
}

func (r *Refresher) noteError(err error) {
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}
