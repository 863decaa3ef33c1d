package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"book-predictor/internal/features"

	"github.com/rs/zerolog/log"
)

// KindModel labels model failures in metrics and API responses.
const KindModel = "model_error"

// Service runs records through encoding, alignment and the model. Schema
// and model are fixed at construction, so a Service is safe for concurrent
// use without locking.
type Service struct {
	schema  *features.Schema
	model   Model
	metrics MetricsInterface
}

// NewService validates the startup state. A nil or empty schema, or a nil
// model, is a startup error rather than a per-request one.
func NewService(schema *features.Schema, model Model, metrics MetricsInterface) (*Service, error) {
	if schema.Len() == 0 {
		return nil, features.SchemaUnavailableError("no schema loaded")
	}
	if model == nil {
		return nil, errors.New("no model loaded")
	}

	if ca, ok := model.(ColumnAware); ok {
		var unknown []string
		for _, col := range ca.Columns() {
			if !schema.Has(col) {
				unknown = append(unknown, col)
			}
		}
		if len(unknown) > 0 {
			log.Warn().
				Strs("columns", unknown).
				Str("schema_version", schema.Version()).
				Msg("model weights reference columns missing from schema")
		}
	}

	if metrics != nil {
		metrics.SchemaColumnsSet(schema.Len())
	}

	return &Service{schema: schema, model: model, metrics: metrics}, nil
}

func (s *Service) Schema() *features.Schema { return s.schema }
func (s *Service) Model() Model             { return s.model }

// Predict returns the model output for rec, unchanged.
func (s *Service) Predict(ctx context.Context, rec features.RawRecord) (float64, error) {
	start := time.Now()

	res, err := features.EncodeAndAlign(rec, s.schema)
	if err != nil {
		s.recordError(string(features.KindOf(err)))
		return 0, err
	}

	// The drop-first reference category has no column either, so it is
	// counted alongside values never seen in training.
	if s.metrics != nil {
		for _, col := range res.Dropped {
			if f, ok := features.FieldOf(col); ok {
				s.metrics.UnseenCategoryInc(f.Key)
			}
		}
	}
	if len(res.Dropped) > 0 {
		log.Debug().Strs("dropped", res.Dropped).Msg("columns not in training schema")
	}

	modelStart := time.Now()
	prediction, err := s.model.Predict(ctx, res.Row)
	if s.metrics != nil {
		s.metrics.ModelLatencyObserve(time.Since(modelStart).Seconds())
	}
	if err != nil {
		s.recordError(KindModel)
		return 0, fmt.Errorf("model %s: %w", s.model.Name(), err)
	}

	if s.metrics != nil {
		s.metrics.PredictionsInc()
		s.metrics.PredictionValueObserve(prediction)
		s.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
	}
	return prediction, nil
}

// Warmup scores an all-zero row so a broken model fails at startup instead
// of on the first request.
func (s *Service) Warmup(ctx context.Context) error {
	row := features.AlignedRow{
		Columns: s.schema.Columns(),
		Values:  make([]float64, s.schema.Len()),
	}
	if _, err := s.model.Predict(ctx, row); err != nil {
		return fmt.Errorf("model warmup: %w", err)
	}
	return nil
}

func (s *Service) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.PredictionErrorsInc(kind)
	}
}
