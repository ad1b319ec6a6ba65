package agentapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BearBump/ShipQuery/internal/broker/messages"
	"github.com/BearBump/ShipQuery/internal/query"
	"github.com/BearBump/ShipQuery/internal/services/agentquery"
	"github.com/go-chi/chi/v5"
)

const (
	unavailableMessage = "Shipment data is temporarily unavailable. Please try again later."
	malformedMessage   = "Invalid request format. Send query parameters or a JSON object."
)

type QueryService interface {
	Query(ctx context.Context, raw query.Params, now time.Time) (query.Result, error)
	Lookup(ctx context.Context, trackingNumber string, now time.Time) (query.Result, error)
	Health(ctx context.Context, now time.Time) agentquery.Health
}

// RefreshTrigger publishes a refresh request for the worker to pick up.
type RefreshTrigger interface {
	Publish(ctx context.Context, key, value []byte) error
}

type API struct {
	svc     QueryService
	trigger RefreshTrigger
	now     func() time.Time
}

func New(svc QueryService, trigger RefreshTrigger) *API {
	return &API{svc: svc, trigger: trigger, now: func() time.Time { return time.Now().UTC() }}
}

func (a *API) Routes(r chi.Router) {
	r.Get("/health", a.handleHealth)
	r.Get("/tracking/{trackingNumber}", a.handleTracking)
	r.Get("/agent/query", a.handleQueryGet)
	r.Post("/agent/query", a.handleQueryPost)
	r.Post("/trigger", a.handleTrigger)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := a.svc.Health(r.Context(), a.now())
	code := http.StatusOK
	if h.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, h)
}

func (a *API) handleTracking(w http.ResponseWriter, r *http.Request) {
	trackingNumber := chi.URLParam(r, "trackingNumber")

	res, err := a.svc.Lookup(r.Context(), trackingNumber, a.now())
	if err != nil {
		slog.Error("lookup shipment", "tracking_number", trackingNumber, "error", err.Error())
		writeJSON(w, http.StatusOK, query.Failure(unavailableMessage))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleQueryGet(w http.ResponseWriter, r *http.Request) {
	a.runQuery(w, r, query.ParamsFromValues(r.URL.Query()))
}

// POST accepts a flat JSON object of query fields. Anything that does not
// decode to an object is reported in-band: agents read success=false and the
// message rather than an HTTP error page.
func (a *API) handleQueryPost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusOK, query.Failure(malformedMessage))
		return
	}

	raw := query.Params{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			writeJSON(w, http.StatusOK, query.Failure(malformedMessage))
			return
		}
	}
	a.runQuery(w, r, raw)
}

func (a *API) runQuery(w http.ResponseWriter, r *http.Request, raw query.Params) {
	res, err := a.svc.Query(r.Context(), raw, a.now())
	if err != nil {
		slog.Error("agent query", "error", err.Error())
		writeJSON(w, http.StatusOK, query.Failure(unavailableMessage))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if a.trigger == nil {
		writeJSON(w, http.StatusOK, map[string]any{"triggered": false, "error": "trigger not wired"})
		return
	}

	msg := messages.RefreshRequested{RequestedAt: a.now(), Source: "api"}
	b, _ := json.Marshal(msg)
	if err := a.trigger.Publish(r.Context(), []byte("refresh"), b); err != nil {
		slog.Error("publish refresh request", "error", err.Error())
		writeJSON(w, http.StatusOK, map[string]any{"triggered": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"triggered": true})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
