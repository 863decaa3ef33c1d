package ml

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"book-predictor/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLinearModel(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
		check   func(t *testing.T, m *LinearModel)
	}{
		{
			name:    "identity by default",
			content: `{"bias": 1.5, "weights": {"ano": 0.5}}`,
			check: func(t *testing.T, m *LinearModel) {
				assert.Equal(t, LinkIdentity, m.Link)
				assert.Equal(t, "linear", m.Name())
			},
		},
		{
			name:    "named logistic classifier",
			content: `{"name": "rating-lr", "bias": 0, "weights": {"ano": 1}, "link": "logistic", "threshold": 0.5}`,
			check: func(t *testing.T, m *LinearModel) {
				assert.Equal(t, LinkLogistic, m.Link)
				assert.Equal(t, "rating-lr", m.Name())
				assert.Equal(t, 0.5, m.Threshold)
			},
		},
		{name: "no weights", content: `{"bias": 1}`, wantErr: "no weights"},
		{name: "unknown link", content: `{"weights": {"ano": 1}, "link": "probit"}`, wantErr: "unknown link"},
		{name: "negative threshold", content: `{"weights": {"ano": 1}, "threshold": -1}`, wantErr: "threshold"},
		{name: "malformed", content: `{"weights": `, wantErr: "parse model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "model.json", tt.content)

			m, err := LoadLinearModel(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, m)
		})
	}
}

func TestLoadLinearModel_MissingFile(t *testing.T) {
	_, err := LoadLinearModel(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLinearModel_Predict(t *testing.T) {
	row := features.AlignedRow{
		Columns: []string{"ano", "paginas", "editora_Rocco"},
		Values:  []float64{2, 100, 1},
	}

	t.Run("identity", func(t *testing.T) {
		m := &LinearModel{Bias: 1, Weights: map[string]float64{"ano": 2, "editora_Rocco": -0.5, "autor_X": 10}, Link: LinkIdentity}
		got, err := m.Predict(context.Background(), row)
		require.NoError(t, err)
		assert.InDelta(t, 4.5, got, 1e-9)
	})

	t.Run("logistic", func(t *testing.T) {
		m := &LinearModel{Bias: 0, Weights: map[string]float64{"ano": 0}, Link: LinkLogistic}
		got, err := m.Predict(context.Background(), row)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, got, 1e-9)
	})

	t.Run("threshold", func(t *testing.T) {
		m := &LinearModel{Bias: -1, Weights: map[string]float64{"ano": 1}, Link: LinkLogistic, Threshold: 0.6}
		got, err := m.Predict(context.Background(), row)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got) // sigmoid(1) ~ 0.73

		m.Bias = -3
		got, err = m.Predict(context.Background(), row)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	})

	t.Run("mismatched row", func(t *testing.T) {
		m := &LinearModel{Weights: map[string]float64{"ano": 1}}
		_, err := m.Predict(context.Background(), features.AlignedRow{Columns: []string{"ano"}})
		require.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := &LinearModel{Weights: map[string]float64{"ano": 1}}
		_, err := m.Predict(ctx, row)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestLinearModel_Columns(t *testing.T) {
	m := &LinearModel{Weights: map[string]float64{"paginas": 1, "ano": 1, "autor_X": math.Pi}}
	assert.Equal(t, []string{"ano", "autor_X", "paginas"}, m.Columns())
}
