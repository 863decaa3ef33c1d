package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 5000 {
					t.Errorf("expected default Port 5000, got %d", settings.Port)
				}
				if len(settings.ModelPaths) != 2 ||
					settings.ModelPaths[0] != "models/xgb_rating_predictor.pkl" ||
					settings.ModelPaths[1] != "models/model.json" {
					t.Errorf("expected default model path, got %v", settings.ModelPaths)
				}
				if settings.SchemaPath != "models/schema.json" {
					t.Errorf("expected default SchemaPath, got %s", settings.SchemaPath)
				}
				if settings.PredictTimeout != 5*time.Second {
					t.Errorf("expected default PredictTimeout 5s, got %v", settings.PredictTimeout)
				}
				if len(settings.CORSOrigins) != 1 || settings.CORSOrigins[0] != "*" {
					t.Errorf("expected CORS origins [*], got %v", settings.CORSOrigins)
				}
				if settings.BreakerFailures != 5 || settings.BreakerCooldown != 30*time.Second {
					t.Errorf("expected breaker 5/30s, got %d/%v", settings.BreakerFailures, settings.BreakerCooldown)
				}
				if settings.UseRegistry() {
					t.Error("expected registry to be disabled without DATA_PATH")
				}
				if !settings.MetricsEnabled {
					t.Error("expected metrics enabled by default")
				}
				if settings.Addr() != ":5000" {
					t.Errorf("expected addr :5000, got %s", settings.Addr())
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"PORT":             "8081",
				"MODEL_PATH":       "a/model.pkl, b/model.json",
				"DATA_PATH":        "/var/lib/book-predictor",
				"SCHEMA_VERSION":   "2024-05-01",
				"PREDICT_TIMEOUT":  "2s",
				"BREAKER_FAILURES": "0",
				"CORS_ORIGINS":     "https://app.example.com,https://admin.example.com",
				"RATE_LIMIT":       "120",
				"LOG_LEVEL":        "debug",
				"LOG_FORMAT":       "console",
				"METRICS_ENABLED":  "false",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8081 {
					t.Errorf("expected Port 8081, got %d", settings.Port)
				}
				expected := []string{"a/model.pkl", "b/model.json"}
				if len(settings.ModelPaths) != len(expected) {
					t.Fatalf("expected %d model paths, got %v", len(expected), settings.ModelPaths)
				}
				for i, p := range expected {
					if settings.ModelPaths[i] != p {
						t.Errorf("expected model path %s at %d, got %s", p, i, settings.ModelPaths[i])
					}
				}
				if !settings.UseRegistry() || settings.SchemaVersion != "2024-05-01" {
					t.Errorf("expected registry with version 2024-05-01, got %q", settings.SchemaVersion)
				}
				if settings.PredictTimeout != 2*time.Second {
					t.Errorf("expected PredictTimeout 2s, got %v", settings.PredictTimeout)
				}
				if settings.BreakerFailures != 0 {
					t.Errorf("expected breaker disabled, got %d", settings.BreakerFailures)
				}
				if len(settings.CORSOrigins) != 2 {
					t.Errorf("expected 2 CORS origins, got %v", settings.CORSOrigins)
				}
				if settings.RateLimit != 120 {
					t.Errorf("expected RateLimit 120, got %d", settings.RateLimit)
				}
				if settings.LogFormat != "console" {
					t.Errorf("expected console log format, got %s", settings.LogFormat)
				}
				if settings.MetricsEnabled {
					t.Error("expected metrics disabled")
				}
			},
		},
		{
			name:    "invalid port",
			envVars: map[string]string{"PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			envVars: map[string]string{"LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "timeout too long",
			envVars: map[string]string{"PREDICT_TIMEOUT": "5m"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)

			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := loadFromEnv()

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "valid YAML config",
			yamlContent: `
server:
  port: 9000
  corsOrigins: ["https://app.example.com"]
  rateLimit: 60
  metricsEnabled: false

model:
  paths:
    - "models/xgb_rating_predictor.pkl"
    - "api/xgb_rating_predictor.pkl"
  schemaPath: "models/schema.yaml"
  python: "/usr/bin/python3"
  timeout: "3s"
  breakerFailures: 10
  breakerCooldown: "1m"

logging:
  level: "warn"
  format: "console"
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 9000 {
					t.Errorf("expected Port 9000, got %d", settings.Port)
				}
				if len(settings.ModelPaths) != 2 || settings.ModelPaths[1] != "api/xgb_rating_predictor.pkl" {
					t.Errorf("unexpected model paths %v", settings.ModelPaths)
				}
				if settings.SchemaPath != "models/schema.yaml" {
					t.Errorf("expected SchemaPath models/schema.yaml, got %s", settings.SchemaPath)
				}
				if settings.PythonPath != "/usr/bin/python3" {
					t.Errorf("expected PythonPath /usr/bin/python3, got %s", settings.PythonPath)
				}
				if settings.PredictTimeout != 3*time.Second {
					t.Errorf("expected PredictTimeout 3s, got %v", settings.PredictTimeout)
				}
				if settings.BreakerFailures != 10 || settings.BreakerCooldown != time.Minute {
					t.Errorf("expected breaker 10/1m, got %d/%v", settings.BreakerFailures, settings.BreakerCooldown)
				}
				if settings.RateLimit != 60 {
					t.Errorf("expected RateLimit 60, got %d", settings.RateLimit)
				}
				if settings.MetricsEnabled {
					t.Error("expected metrics disabled")
				}
				if settings.LogLevel != "warn" {
					t.Errorf("expected LogLevel warn, got %s", settings.LogLevel)
				}
			},
		},
		{
			name: "environment overrides",
			yamlContent: `
server:
  port: 9000
registry:
  dataPath: "/data"
  schemaVersion: "v1"
`,
			envOverrides: map[string]string{
				"PORT":           "9100",
				"SCHEMA_VERSION": "v2",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 9100 {
					t.Errorf("expected Port 9100, got %d", settings.Port)
				}
				if settings.DataPath != "/data" {
					t.Errorf("expected DataPath /data, got %s", settings.DataPath)
				}
				if settings.SchemaVersion != "v2" {
					t.Errorf("expected SchemaVersion v2, got %s", settings.SchemaVersion)
				}
				if settings.PredictTimeout != 5*time.Second {
					t.Errorf("expected default PredictTimeout, got %v", settings.PredictTimeout)
				}
			},
		},
		{
			name:        "invalid YAML",
			yamlContent: "server: [unclosed",
			wantErr:     true,
		},
		{
			name: "invalid values",
			yamlContent: `
server:
  rateLimit: -1
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)

			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644); err != nil {
				t.Fatalf("failed to write test config file: %v", err)
			}

			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			settings, err := loadFromYAML(configPath)

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	clearTestEnv(t)

	if _, err := loadFromYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad(t *testing.T) {
	t.Run("load from env when no config file", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("PORT", "7000")

		settings, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.Port != 7000 {
			t.Errorf("expected Port 7000, got %d", settings.Port)
		}
	})

	t.Run("load from YAML when config file specified", func(t *testing.T) {
		clearTestEnv(t)

		configPath := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(configPath, []byte("server:\n  port: 7100\n"), 0o644); err != nil {
			t.Fatalf("failed to write test config file: %v", err)
		}
		t.Setenv("CONFIG_FILE", configPath)

		settings, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.Port != 7100 {
			t.Errorf("expected Port 7100, got %d", settings.Port)
		}
	})
}

// clearTestEnv clears potentially conflicting environment variables
func clearTestEnv(t *testing.T) {
	envVars := []string{
		"CONFIG_FILE", "PORT", "MODEL_PATH", "SCHEMA_PATH", "DATA_PATH",
		"SCHEMA_VERSION", "PYTHON_PATH", "INFERENCE_SCRIPT", "PREDICT_TIMEOUT",
		"BREAKER_FAILURES", "BREAKER_COOLDOWN",
		"CORS_ORIGINS", "RATE_LIMIT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ENABLED",
	}

	for _, env := range envVars {
		t.Setenv(env, "")
	}
}
