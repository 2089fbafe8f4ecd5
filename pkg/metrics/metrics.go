package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RPCRequestsTotal counts façade RPCs by method and result ("ok"/"error").
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kari_rpc_requests_total",
			Help: "Total number of RPC façade calls by method and result",
		},
		[]string{"method", "result"},
	)

	// RPCRequestDuration tracks façade RPC latency by method.
	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kari_rpc_request_duration_seconds",
			Help:    "RPC façade call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// PeerRejectionsTotal counts connections refused at the boundary because
	// the peer uid did not match the configured expected uid (or root).
	PeerRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kari_peer_rejections_total",
			Help: "Total number of connections rejected for peer uid mismatch",
		},
	)

	// DeploymentsInFlight is the number of StreamDeployment pipelines
	// currently running (any stage before Done or Failed).
	DeploymentsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kari_deployments_in_flight",
			Help: "Number of streaming deployments currently in progress",
		},
	)

	// DeploymentsTotal counts completed deployments by terminal stage.
	DeploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kari_deployments_total",
			Help: "Total number of deployments by terminal stage",
		},
		[]string{"stage"},
	)

	// DeploymentDuration tracks wall-clock time from Fetching to a terminal stage.
	DeploymentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kari_deployment_duration_seconds",
			Help:    "Deployment pipeline duration in seconds, start to terminal stage",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	// ReleasesPrunedTotal counts release directories deleted by the pruner.
	ReleasesPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kari_releases_pruned_total",
			Help: "Total number of release directories deleted by the pruner",
		},
	)
)

func init() {
	prometheus.MustRegister(RPCRequestsTotal)
	prometheus.MustRegister(RPCRequestDuration)
	prometheus.MustRegister(PeerRejectionsTotal)
	prometheus.MustRegister(DeploymentsInFlight)
	prometheus.MustRegister(DeploymentsTotal)
	prometheus.MustRegister(DeploymentDuration)
	prometheus.MustRegister(ReleasesPrunedTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
