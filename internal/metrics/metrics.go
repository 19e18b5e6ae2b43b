package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantrent_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plantrent_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	contractTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantrent_contract_transitions_total",
		Help: "Committed contract lifecycle operations by transition and resulting status",
	}, []string{"transition", "status"})

	stockUnitsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantrent_stock_units_moved_total",
		Help: "Plant units moved between available and rented stock",
	}, []string{"direction"})

	stockShortages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantrent_stock_shortages_total",
		Help: "Activation lines rejected for insufficient stock, by plant type",
	}, []string{"plant_type_id"})
)

func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Recorder turns committed contract events and rejected activations into
// Prometheus samples.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ContractChanged(_ context.Context, event model.ContractEvent) error {
	contractTransitions.WithLabelValues(string(event.Transition), string(event.To)).Inc()

	direction := ""
	switch event.Transition {
	case model.TransitionActivate:
		direction = "reserved"
	case model.TransitionCancel:
		direction = "released"
	}
	if direction == "" {
		return nil
	}
	units := 0
	for _, line := range event.Adjustments {
		units += line.Quantity
	}
	if units > 0 {
		stockUnitsMoved.WithLabelValues(direction).Add(float64(units))
	}
	return nil
}

func (r *Recorder) StockShortage(_ context.Context, _ uuid.UUID, shortages []model.Shortage) {
	for _, shortage := range shortages {
		stockShortages.WithLabelValues(shortage.PlantTypeID.String()).Inc()
	}
}
