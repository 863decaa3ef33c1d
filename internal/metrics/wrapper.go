package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow interfaces the ml package
// depends on, so it never imports Prometheus types.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc() {
	w.m.Predictions.Inc()
}

func (w *MetricsWrapper) PredictionErrorsInc(kind string) {
	w.m.PredictionErrors.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) PredictionLatencyObserve(seconds float64) {
	w.m.PredictionLatency.Observe(seconds)
}

func (w *MetricsWrapper) PredictionValueObserve(v float64) {
	w.m.PredictionValues.Observe(v)
}

func (w *MetricsWrapper) ModelLatencyObserve(seconds float64) {
	w.m.ModelLatency.Observe(seconds)
}

func (w *MetricsWrapper) ModelTimeoutsInc() {
	w.m.ModelTimeouts.Inc()
}

func (w *MetricsWrapper) ModelAgeSet(seconds float64) {
	w.m.ModelAge.Set(seconds)
}

func (w *MetricsWrapper) SchemaColumnsSet(n int) {
	w.m.SchemaColumns.Set(float64(n))
}

func (w *MetricsWrapper) UnseenCategoryInc(field string) {
	w.m.UnseenCategories.WithLabelValues(field).Inc()
}

func (w *MetricsWrapper) HTTPRequestInc(route string, code int) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
