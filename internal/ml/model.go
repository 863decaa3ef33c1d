// Package ml serves the book popularity model. It loads the model artifact,
// runs records through feature encoding and column alignment, and exposes
// predictions over HTTP.
//
// Models are opaque: anything that maps an aligned feature row to a scalar
// satisfies Model. Two implementations ship with the package, a JSON linear
// model evaluated in process and a script model that delegates to a Python
// interpreter for artifacts Go cannot load (pickled XGBoost, ONNX).
package ml

import (
	"context"

	"book-predictor/internal/features"
)

// Model is a trained model that scores one aligned row.
type Model interface {
	// Name identifies the model implementation in logs and /api/model/info.
	Name() string

	// Predict returns the model output for row. Implementations must be safe
	// for concurrent use and must not modify row.
	Predict(ctx context.Context, row features.AlignedRow) (float64, error)
}

// ColumnAware is implemented by models that know which input columns they
// were fit on, so the service can check them against the schema at startup.
type ColumnAware interface {
	Columns() []string
}

// MetricsInterface defines metrics methods needed by the prediction service.
type MetricsInterface interface {
	PredictionsInc()
	PredictionErrorsInc(kind string)
	PredictionLatencyObserve(seconds float64)
	PredictionValueObserve(v float64)
	ModelLatencyObserve(seconds float64)
	ModelTimeoutsInc()
	ModelAgeSet(seconds float64)
	SchemaColumnsSet(n int)
	UnseenCategoryInc(field string)
}
