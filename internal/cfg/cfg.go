package cfg

import (
	"fmt"
	"os"
	"strings"
	"time"

	"book-predictor/internal/common"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port            int
	ModelPaths      []string // candidates, first existing file wins
	SchemaPath      string
	DataPath        string // artifact registry directory, optional
	SchemaVersion   string // registry version to serve, empty for the active one
	PythonPath      string
	ScriptPath      string
	PredictTimeout  time.Duration
	BreakerFailures int // consecutive model failures that open the breaker, 0 disables
	BreakerCooldown time.Duration
	CORSOrigins     []string
	RateLimit       int // requests per minute per IP, 0 disables
	LogLevel        string
	LogFormat       string
	MetricsEnabled  bool
}

type ConfigFile struct {
	Server struct {
		Port           int      `yaml:"port"`
		CORSOrigins    []string `yaml:"corsOrigins"`
		RateLimit      int      `yaml:"rateLimit"`
		MetricsEnabled *bool    `yaml:"metricsEnabled"`
	} `yaml:"server"`

	Model struct {
		Paths           []string `yaml:"paths"`
		SchemaPath      string   `yaml:"schemaPath"`
		Python          string   `yaml:"python"`
		Script          string   `yaml:"script"`
		Timeout         string   `yaml:"timeout"`
		BreakerFailures *int     `yaml:"breakerFailures"`
		BreakerCooldown string   `yaml:"breakerCooldown"`
	} `yaml:"model"`

	Registry struct {
		DataPath      string `yaml:"dataPath"`
		SchemaVersion string `yaml:"schemaVersion"`
	} `yaml:"registry"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	timeout, err := time.ParseDuration(config.Model.Timeout)
	if err != nil {
		timeout = 5 * time.Second
	}

	cooldown, err := time.ParseDuration(config.Model.BreakerCooldown)
	if err != nil {
		cooldown = common.DefaultBreakerCooldown * time.Second
	}
	breakerFailures := common.DefaultBreakerFailures
	if config.Model.BreakerFailures != nil {
		breakerFailures = *config.Model.BreakerFailures
	}

	metricsEnabled := true
	if config.Server.MetricsEnabled != nil {
		metricsEnabled = *config.Server.MetricsEnabled
	}

	modelPaths := config.Model.Paths
	if len(modelPaths) == 0 {
		modelPaths = defaultModelPaths()
	}
	corsOrigins := config.Server.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{common.DefaultCORSOrigins}
	}
	port := config.Server.Port
	if port == 0 {
		port = common.DefaultPort
	}

	// Environment variables override the file
	settings := Settings{
		Port:            getIntOrDefault(common.EnvPort, port),
		ModelPaths:      splitOrDefault(os.Getenv(common.EnvModelPath), modelPaths),
		SchemaPath:      getEnvOrDefault(common.EnvSchemaPath, orDefault(config.Model.SchemaPath, common.DefaultSchemaPath)),
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.Registry.DataPath),
		SchemaVersion:   getEnvOrDefault(common.EnvSchemaVersion, config.Registry.SchemaVersion),
		PythonPath:      getEnvOrDefault(common.EnvPythonPath, config.Model.Python),
		ScriptPath:      getEnvOrDefault(common.EnvScriptPath, config.Model.Script),
		PredictTimeout:  getDurationOrDefault(common.EnvPredictTimeout, timeout),
		BreakerFailures: getIntOrDefault(common.EnvBreakerFailures, breakerFailures),
		BreakerCooldown: getDurationOrDefault(common.EnvBreakerCooldown, cooldown),
		CORSOrigins:     splitOrDefault(os.Getenv(common.EnvCORSOrigins), corsOrigins),
		RateLimit:       getIntOrDefault(common.EnvRateLimit, config.Server.RateLimit),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, orDefault(config.Logging.Level, common.DefaultLogLevel)),
		LogFormat:       getEnvOrDefault(common.EnvLogFormat, orDefault(config.Logging.Format, common.DefaultLogFormat)),
		MetricsEnabled:  getBoolOrDefault(common.EnvMetricsEnabled, metricsEnabled),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:            getIntOrDefault(common.EnvPort, common.DefaultPort),
		ModelPaths:      splitOrDefault(os.Getenv(common.EnvModelPath), defaultModelPaths()),
		SchemaPath:      getEnvOrDefault(common.EnvSchemaPath, common.DefaultSchemaPath),
		DataPath:        os.Getenv(common.EnvDataPath), // optional
		SchemaVersion:   os.Getenv(common.EnvSchemaVersion),
		PythonPath:      os.Getenv(common.EnvPythonPath),
		ScriptPath:      os.Getenv(common.EnvScriptPath),
		PredictTimeout:  getDurationOrDefault(common.EnvPredictTimeout, 5*time.Second),
		BreakerFailures: getIntOrDefault(common.EnvBreakerFailures, common.DefaultBreakerFailures),
		BreakerCooldown: getDurationOrDefault(common.EnvBreakerCooldown, common.DefaultBreakerCooldown*time.Second),
		CORSOrigins:     splitOrDefault(os.Getenv(common.EnvCORSOrigins), []string{common.DefaultCORSOrigins}),
		RateLimit:       getIntOrDefault(common.EnvRateLimit, common.DefaultRateLimit),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:       getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		MetricsEnabled:  getBoolOrDefault(common.EnvMetricsEnabled, true),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// defaultModelPaths lists the pickled model first, then the sample linear
// model, in lookup order.
func defaultModelPaths() []string {
	return []string{common.DefaultModelPath, common.DefaultLinearModelPath}
}

// Addr returns the listen address for the HTTP server.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// UseRegistry reports whether the schema comes from the artifact registry
// instead of SchemaPath.
func (s *Settings) UseRegistry() bool {
	return s.DataPath != ""
}

// validateSettings performs range checks on configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	if len(settings.ModelPaths) == 0 {
		return fmt.Errorf("at least one model path must be specified")
	}
	for i, p := range settings.ModelPaths {
		settings.ModelPaths[i] = strings.TrimSpace(p)
		if settings.ModelPaths[i] == "" {
			return fmt.Errorf("model path %d is empty", i)
		}
	}

	if !settings.UseRegistry() && settings.SchemaPath == "" {
		return fmt.Errorf("schema path cannot be empty without a registry data path")
	}

	if settings.PredictTimeout < common.MinPredictTimeout*time.Millisecond ||
		settings.PredictTimeout > common.MaxPredictTimeout*time.Second {
		return fmt.Errorf("predict timeout must be between 100ms and 60s, got %v", settings.PredictTimeout)
	}

	if settings.BreakerFailures < 0 || settings.BreakerFailures > common.MaxBreakerFailures {
		return fmt.Errorf("breaker failures must be between 0 and %d, got %d", common.MaxBreakerFailures, settings.BreakerFailures)
	}
	if settings.BreakerFailures > 0 && settings.BreakerCooldown <= 0 {
		return fmt.Errorf("breaker cooldown must be positive, got %v", settings.BreakerCooldown)
	}

	if settings.RateLimit < 0 || settings.RateLimit > common.MaxRateLimit {
		return fmt.Errorf("rate limit must be between 0 and %d, got %d", common.MaxRateLimit, settings.RateLimit)
	}

	if len(settings.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be specified")
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}
	if settings.LogFormat != "json" && settings.LogFormat != "console" {
		return fmt.Errorf("log format must be json or console, got %q", settings.LogFormat)
	}

	return nil
}
