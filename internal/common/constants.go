package common

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvPort            = "PORT"
	EnvModelPath       = "MODEL_PATH"
	EnvSchemaPath      = "SCHEMA_PATH"
	EnvDataPath        = "DATA_PATH"
	EnvSchemaVersion   = "SCHEMA_VERSION"
	EnvPythonPath      = "PYTHON_PATH"
	EnvScriptPath      = "INFERENCE_SCRIPT"
	EnvPredictTimeout  = "PREDICT_TIMEOUT"
	EnvBreakerFailures = "BREAKER_FAILURES"
	EnvBreakerCooldown = "BREAKER_COOLDOWN"
	EnvCORSOrigins     = "CORS_ORIGINS"
	EnvRateLimit       = "RATE_LIMIT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvMetricsEnabled  = "METRICS_ENABLED"
	EnvPredictorURL    = "PREDICTOR_URL"
)

// Configuration defaults
const (
	DefaultPort            = 5000
	DefaultModelPath       = "models/xgb_rating_predictor.pkl"
	DefaultLinearModelPath = "models/model.json" // written by scripts/generate_sample_model.go
	DefaultSchemaPath      = "models/schema.json"
	DefaultCORSOrigins     = "*"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultRateLimit       = 0 // disabled
	DefaultPredictorURL    = "http://localhost:5000"
	DefaultRegistryDBName  = "artifacts.db"
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 // seconds
)

// Validation constants
const (
	MinPort            = 1
	MaxPort            = 65535
	MaxRateLimit       = 100000
	MinPredictTimeout  = 100 // milliseconds
	MaxPredictTimeout  = 60  // seconds
	MaxBreakerFailures = 1000
)
