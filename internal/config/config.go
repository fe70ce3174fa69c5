package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/costlens/costlens/internal/domain/forecast"
	apperrors "github.com/costlens/costlens/internal/pkg/errors"
)

// Config holds all engine configuration
type Config struct {
	Detector DetectorConfig
	Forecast ForecastConfig
	Logging  LoggingConfig
}

// DetectorConfig contains anomaly detection configuration
type DetectorConfig struct {
	// Sensitivity scales the statistical z threshold: threshold = 2.0 / sensitivity.
	Sensitivity float64 `validate:"gt=0,lte=1"`
	// Contamination is the outlier fraction assumed by the ensemble scorer.
	Contamination float64 `validate:"gt=0,lte=0.5"`
	// Estimators is the number of trees in the ensemble scorer.
	Estimators int `validate:"gte=10"`
	// TrainingWindowDays is the history window the ensemble trains on.
	TrainingWindowDays int `validate:"gte=7"`
	// RollingWindow is the trailing sample count for rolling features.
	RollingWindow int `validate:"gte=2"`
	// MinObservations is the smallest group size worth analyzing.
	MinObservations int `validate:"gte=1"`
	// MinCostThreshold filters out negligible-spend rows and groups.
	MinCostThreshold float64 `validate:"gte=0"`
	// SpikeOverride flags rows with variance above +50% regardless of detectors.
	SpikeOverride bool
	// DriftOverride flags rows with absolute variance above 30%.
	DriftOverride bool
	// Seed fixes the ensemble scorer's randomness for reproducible runs.
	Seed int64
}

// ForecastConfig contains forecasting configuration
type ForecastConfig struct {
	// ForecastDays is the projection horizon.
	ForecastDays int `validate:"gte=1,lte=365"`
	// ModelType selects the forecasting strategy.
	ModelType string `validate:"oneof=auto additive linear exponential_smoothing"`
	// ConfidenceLevel governs interval width for the additive model.
	ConfidenceLevel float64 `validate:"gt=0,lt=1"`
	// MinObservations is the smallest history the forecaster accepts.
	MinObservations int `validate:"gte=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Detector: DetectorConfig{
			Sensitivity:        0.95,
			Contamination:      0.1,
			Estimators:         100,
			TrainingWindowDays: 30,
			RollingWindow:      7,
			MinObservations:    10,
			MinCostThreshold:   10.0,
			SpikeOverride:      true,
			DriftOverride:      true,
			Seed:               42,
		},
		Forecast: ForecastConfig{
			ForecastDays:    30,
			ModelType:       forecast.ModelAuto,
			ConfidenceLevel: 0.95,
			MinObservations: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from environment variables, applying defaults.
// Invalid values fail here, not at detect/forecast time.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	def := Default()
	cfg := &Config{
		Detector: DetectorConfig{
			Sensitivity:        getEnvAsFloat("DETECTOR_SENSITIVITY", def.Detector.Sensitivity),
			Contamination:      getEnvAsFloat("DETECTOR_CONTAMINATION", def.Detector.Contamination),
			Estimators:         getEnvAsInt("DETECTOR_ESTIMATORS", def.Detector.Estimators),
			TrainingWindowDays: getEnvAsInt("DETECTOR_TRAINING_WINDOW_DAYS", def.Detector.TrainingWindowDays),
			RollingWindow:      getEnvAsInt("DETECTOR_ROLLING_WINDOW", def.Detector.RollingWindow),
			MinObservations:    getEnvAsInt("DETECTOR_MIN_OBSERVATIONS", def.Detector.MinObservations),
			MinCostThreshold:   getEnvAsFloat("DETECTOR_MIN_COST_THRESHOLD", def.Detector.MinCostThreshold),
			SpikeOverride:      getEnvAsBool("DETECTOR_SPIKE_OVERRIDE", def.Detector.SpikeOverride),
			DriftOverride:      getEnvAsBool("DETECTOR_DRIFT_OVERRIDE", def.Detector.DriftOverride),
			Seed:               int64(getEnvAsInt("DETECTOR_SEED", int(def.Detector.Seed))),
		},
		Forecast: ForecastConfig{
			ForecastDays:    getEnvAsInt("FORECAST_DAYS", def.Forecast.ForecastDays),
			ModelType:       getEnv("FORECAST_MODEL", def.Forecast.ModelType),
			ConfidenceLevel: getEnvAsFloat("FORECAST_CONFIDENCE_LEVEL", def.Forecast.ConfidenceLevel),
			MinObservations: getEnvAsInt("FORECAST_MIN_OBSERVATIONS", def.Forecast.MinObservations),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", def.Logging.Level),
			Format: getEnv("LOG_FORMAT", def.Logging.Format),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate validates detector configuration.
func (c DetectorConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.InvalidConfig(fmt.Sprintf("detector config: %v", err))
	}
	return nil
}

// Validate validates forecast configuration.
func (c ForecastConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.InvalidConfig(fmt.Sprintf("forecast config: %v", err))
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return err
	}
	return c.Forecast.Validate()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
