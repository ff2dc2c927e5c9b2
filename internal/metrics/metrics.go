// Package metrics holds the Prometheus instruments shared by the viewer,
// the tile pipeline and the map proxy.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tile outcomes used as the "result" label.
const (
	ResultLoaded    = "loaded"
	ResultEmpty     = "empty"
	ResultCancelled = "cancelled"
	ResultFailed    = "failed"
)

var (
	// Tile pipeline
	TileLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bluemap_tile_loads_total",
			Help: "Finished tile loads by layer and result",
		},
		[]string{"layer", "result"},
	)

	TilesInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bluemap_tiles_in_flight",
			Help: "Tile fetches currently running per layer",
		},
		[]string{"layer"},
	)

	TilesLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bluemap_tiles_loaded",
			Help: "Tiles with attached content per layer",
		},
		[]string{"layer"},
	)

	// Fetch client
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bluemap_fetch_duration_seconds",
			Help:    "Duration of map data requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bluemap_fetch_errors_total",
			Help: "Failed map data requests",
		},
		[]string{"kind"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bluemap_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Proxy
	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bluemap_proxy_requests_total",
			Help: "Requests handled by the map proxy",
		},
		[]string{"server", "status"},
	)

	// Viewer
	FrameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bluemap_frame_duration_seconds",
			Help:    "Time spent per rendered frame",
			Buckets: []float64{0.004, 0.008, 0.016, 0.033, 0.066, 0.1, 0.25},
		},
	)
)

// RecordTileLoad counts a finished tile load. errEmpty and errCancelled
// are the sentinel errors that map to their own result labels.
func RecordTileLoad(layer string, err, errEmpty, errCancelled error) {
	result := ResultLoaded
	switch {
	case err == nil:
	case errors.Is(err, errCancelled):
		result = ResultCancelled
	case errors.Is(err, errEmpty):
		result = ResultEmpty
	default:
		result = ResultFailed
	}
	TileLoads.WithLabelValues(layer, result).Inc()
}

// RecordFetch records one map data request.
func RecordFetch(kind string, duration time.Duration, err error) {
	FetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		FetchErrors.WithLabelValues(kind).Inc()
	}
}
