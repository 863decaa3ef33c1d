package ml

import (
	"context"
	"errors"
	"sync"
	"testing"

	"book-predictor/internal/features"
)

// MockMetrics implements MetricsInterface and HTTPMetrics for testing
type MockMetrics struct {
	mu            sync.Mutex
	predictions   int
	errors        map[string]int
	latencySum    float64
	values        []float64
	modelLatency  int
	timeouts      int
	modelAge      float64
	schemaColumns int
	unseen        map[string]int
	requests      map[string]int
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) PredictionErrorsInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}

func (m *MockMetrics) PredictionLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) PredictionValueObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = append(m.values, v)
}

func (m *MockMetrics) ModelLatencyObserve(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelLatency++
}

func (m *MockMetrics) ModelTimeoutsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts++
}

func (m *MockMetrics) ModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) SchemaColumnsSet(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemaColumns = n
}

func (m *MockMetrics) UnseenCategoryInc(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unseen == nil {
		m.unseen = make(map[string]int)
	}
	m.unseen[field]++
}

func (m *MockMetrics) HTTPRequestInc(route string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requests == nil {
		m.requests = make(map[string]int)
	}
	m.requests[route]++
}

func (m *MockMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func (m *MockMetrics) unseenCount(field string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unseen[field]
}

// stubModel returns a fixed value or error and remembers the last row.
type stubModel struct {
	mu    sync.Mutex
	value float64
	err   error
	last  features.AlignedRow
	calls int
}

func (s *stubModel) Name() string { return "stub" }

func (s *stubModel) Predict(ctx context.Context, row features.AlignedRow) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = row
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.value, s.err
}

var errStub = errors.New("stub failure")

var testColumns = []string{
	"ano", "paginas", "querem_ler",
	"autor_Machado de Assis",
	"editora_Companhia das Letras",
	"editora_Rocco",
	"genero_primario_Ficção",
	"subgenero_Romance",
}

func testSchema(t *testing.T) *features.Schema {
	t.Helper()
	s, err := features.NewSchema("test-v1", testColumns)
	if err != nil {
		t.Fatalf("failed to build schema: %v", err)
	}
	return s
}

func testRecord() features.RawRecord {
	return features.RawRecord{
		"ano":            2020,
		"paginas":        320,
		"queremLer":      150,
		"autor":          "Machado de Assis",
		"editora":        "Rocco",
		"generoPrimario": "Ficção",
		"subGenero":      "Romance",
	}
}

// testAligned is testRecord encoded and aligned against testColumns.
func testAligned() features.AlignedRow {
	return features.AlignedRow{
		Columns: append([]string(nil), testColumns...),
		Values:  []float64{2020, 320, 150, 1, 0, 1, 1, 1},
	}
}
