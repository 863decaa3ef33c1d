package ml

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"book-predictor/internal/features"

	"github.com/goccy/go-json"
)

const (
	LinkIdentity = "identity"
	LinkLogistic = "logistic"
)

// LinearModel is a linear or logistic model with weights keyed by column
// name:
//
//	z = bias + sum(weights[col] * row[col])
//
// With the logistic link the output is sigmoid(z). A positive threshold
// turns the model into a classifier returning 1 when the output reaches it
// and 0 otherwise.
type LinearModel struct {
	ModelName string             `json:"name"`
	Bias      float64            `json:"bias"`
	Weights   map[string]float64 `json:"weights"`
	Link      string             `json:"link"`
	Threshold float64            `json:"threshold"`
}

// LoadLinearModel reads a LinearModel from a JSON file.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", path, err)
	}
	return &m, nil
}

func (m *LinearModel) validate() error {
	if len(m.Weights) == 0 {
		return fmt.Errorf("no weights")
	}
	switch m.Link {
	case "":
		m.Link = LinkIdentity
	case LinkIdentity, LinkLogistic:
	default:
		return fmt.Errorf("unknown link %q", m.Link)
	}
	if m.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative, got %f", m.Threshold)
	}
	for col, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weight for %q is not finite", col)
		}
	}
	return nil
}

func (m *LinearModel) Name() string {
	if m.ModelName != "" {
		return m.ModelName
	}
	return "linear"
}

// Columns returns the weighted columns, sorted.
func (m *LinearModel) Columns() []string {
	cols := make([]string, 0, len(m.Weights))
	for col := range m.Weights {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func (m *LinearModel) Predict(ctx context.Context, row features.AlignedRow) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(row.Columns) != len(row.Values) {
		return 0, fmt.Errorf("row has %d columns and %d values", len(row.Columns), len(row.Values))
	}

	z := m.Bias
	for i, col := range row.Columns {
		if w, ok := m.Weights[col]; ok {
			z += w * row.Values[i]
		}
	}

	out := z
	if m.Link == LinkLogistic {
		out = 1 / (1 + math.Exp(-z))
	}
	if m.Threshold > 0 {
		if out >= m.Threshold {
			return 1, nil
		}
		return 0, nil
	}
	return out, nil
}
