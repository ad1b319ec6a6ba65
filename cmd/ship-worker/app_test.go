package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/BearBump/ShipQuery/config"
	"github.com/BearBump/ShipQuery/internal/integrations/ups"
	"github.com/BearBump/ShipQuery/internal/integrations/ups/fake"
	"github.com/BearBump/ShipQuery/internal/integrations/ups/upshttp"
	"github.com/BearBump/ShipQuery/internal/models"
	"github.com/BearBump/ShipQuery/internal/services/refresher"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct{}

func (r *fakeRepo) AddNewShipments(ctx context.Context, items []models.ShipmentImportInput) (int, error) {
	return 0, nil
}
func (r *fakeRepo) ListActiveShipments(ctx context.Context, maxPickupDate time.Time, limit, offset int) ([]*models.Shipment, error) {
	return []*models.Shipment{}, nil
}

type noopProducer struct{}

func (p noopProducer) Publish(ctx context.Context, key, value []byte) error { return nil }

func TestDefaultWorkerFactories_SelectTracker(t *testing.T) {
	f := defaultWorkerFactories()

	cfgFake := &config.Config{UPS: config.UPSConfig{Mode: "fake", ClientID: "id", ClientSecret: "s"}}
	c1 := f.newTracker(cfgFake)
	_, ok := c1.(*fake.FakeClient)
	require.True(t, ok)

	cfgNoCreds := &config.Config{UPS: config.UPSConfig{BaseURL: "https://example.com"}}
	c2 := f.newTracker(cfgNoCreds)
	_, ok = c2.(*fake.FakeClient)
	require.True(t, ok)

	cfgHTTP := &config.Config{UPS: config.UPSConfig{BaseURL: "https://example.com", ClientID: "id", ClientSecret: "s"}}
	c3 := f.newTracker(cfgHTTP)
	_, ok = c3.(*upshttp.Client)
	require.True(t, ok)
}

func TestDefaultWorkerFactories_SheetOptional(t *testing.T) {
	f := defaultWorkerFactories()

	require.Nil(t, f.newSheet(&config.Config{}))
	require.NotNil(t, f.newSheet(&config.Config{ShipQuery: config.ShipQueryConfig{SheetPath: "/data/orders.csv"}}))
}

func TestRunShipWorker_ContextCanceled(t *testing.T) {
	calledClose := false

	f := workerFactories{
		newStorage: func(cfg *config.Config) (refresher.Repository, func(), error) {
			return &fakeRepo{}, func() { calledClose = true }, nil
		},
		newProducer:    func(cfg *config.Config) refresher.Producer { return noopProducer{} },
		newRateLimiter: func(cfg *config.Config) refresher.RateLimiter { return nil },
		newTracker:     func(cfg *config.Config) ups.Client { return fake.New() },
		newSheet:       func(cfg *config.Config) refresher.Sheet { return nil },
	}

	cfg := &config.Config{
		ShipQuery: config.ShipQueryConfig{
			WorkerRefreshIntervalSeconds: 1,
			WorkerHTTPAddr:               "127.0.0.1:0",
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunShipWorker(ctx, cfg, f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
}

func TestWorkerHTTPServer_StatsAndTrigger(t *testing.T) {
	ref := refresher.New(&fakeRepo{}, fake.New(), noopProducer{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(addr string) { addrCh <- addr },
			ref:      ref,
			cfg:      &config.Config{},
		})
	}()

	addr := <-addrCh

	resp, err := http.Get("http://" + addr + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var st refresher.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.False(t, st.StartedAt.IsZero())

	tr, err := http.Post("http://"+addr+"/trigger", "application/json", nil)
	require.NoError(t, err)
	defer tr.Body.Close()
	body, _ := io.ReadAll(tr.Body)
	require.Contains(t, string(body), `"triggered":true`)

	cancel()
	select {
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting worker http server to stop")
	case <-errCh:
	}
}
