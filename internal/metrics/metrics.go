// Package metrics provides Prometheus metrics collection for the book
// popularity prediction service. It defines request, encoding and model
// inference metrics exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction service.
type Metrics struct {
	// Prediction metrics
	Predictions       prometheus.Counter     // Successful predictions
	PredictionErrors  *prometheus.CounterVec // Failed predictions by error kind
	PredictionLatency prometheus.Histogram   // End-to-end latency of a prediction
	PredictionValues  prometheus.Histogram   // Distribution of returned predictions

	// Model metrics
	ModelLatency  prometheus.Histogram // Model inference latency alone
	ModelTimeouts prometheus.Counter   // Model calls that hit the timeout
	ModelAge      prometheus.Gauge     // Age of the loaded model artifact in seconds

	// Feature alignment metrics
	SchemaColumns    prometheus.Gauge       // Columns in the loaded training schema
	UnseenCategories *prometheus.CounterVec // Categorical values with no schema indicator column, by field

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec // Requests by route and status code
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics on a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of successful predictions",
		}),
		PredictionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of failed predictions by error kind",
		}, []string{"kind"}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction latency in seconds (encode, align and infer)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),
		PredictionValues: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_values",
			Help:    "Distribution of predicted values",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ModelLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "model_latency_seconds",
			Help:    "Model inference latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		ModelTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_timeouts_total",
			Help: "Total number of model inference timeouts",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the loaded model artifact in seconds",
		}),
		SchemaColumns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "schema_columns",
			Help: "Number of columns in the training column schema",
		}),
		UnseenCategories: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unseen_categories_total",
			Help: "Categorical values with no indicator column in the training schema (drop-first reference or unseen), by field",
		}, []string{"field"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}
