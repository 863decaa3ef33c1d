package cfg

import (
	"strings"
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		Port:           5000,
		ModelPaths:     []string{"models/xgb_rating_predictor.pkl"},
		SchemaPath:     "models/schema.json",
		PredictTimeout: 5 * time.Second,
		CORSOrigins:    []string{"*"},
		RateLimit:      0,
		LogLevel:       "info",
		LogFormat:      "json",
		MetricsEnabled: true,
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	settings := createValidSettings()

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantMsg string
	}{
		{"port zero", func(s *Settings) { s.Port = 0 }, "port"},
		{"port too large", func(s *Settings) { s.Port = 65536 }, "port"},
		{"no model paths", func(s *Settings) { s.ModelPaths = nil }, "model path"},
		{"blank model path", func(s *Settings) { s.ModelPaths = []string{"a.pkl", "  "} }, "model path 1"},
		{"no schema source", func(s *Settings) { s.SchemaPath = "" }, "schema path"},
		{"timeout too short", func(s *Settings) { s.PredictTimeout = 10 * time.Millisecond }, "predict timeout"},
		{"timeout too long", func(s *Settings) { s.PredictTimeout = 2 * time.Minute }, "predict timeout"},
		{"negative breaker failures", func(s *Settings) { s.BreakerFailures = -1 }, "breaker failures"},
		{"breaker without cooldown", func(s *Settings) { s.BreakerFailures = 3; s.BreakerCooldown = 0 }, "breaker cooldown"},
		{"negative rate limit", func(s *Settings) { s.RateLimit = -5 }, "rate limit"},
		{"no CORS origins", func(s *Settings) { s.CORSOrigins = nil }, "CORS"},
		{"bad log level", func(s *Settings) { s.LogLevel = "verbose" }, "log level"},
		{"bad log format", func(s *Settings) { s.LogFormat = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)

			err := validateSettings(settings)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateSettings_RegistryWithoutSchemaPath(t *testing.T) {
	settings := createValidSettings()
	settings.SchemaPath = ""
	settings.DataPath = "/var/lib/book-predictor"

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected registry config without schema path to pass, got: %v", err)
	}
}

func TestValidateSettings_TrimsModelPaths(t *testing.T) {
	settings := createValidSettings()
	settings.ModelPaths = []string{" models/a.pkl "}

	if err := validateSettings(settings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.ModelPaths[0] != "models/a.pkl" {
		t.Errorf("Expected trimmed path, got %q", settings.ModelPaths[0])
	}
}
