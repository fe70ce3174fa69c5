package forecaster

import (
	"time"

	"github.com/costlens/costlens/internal/config"
	"github.com/costlens/costlens/internal/domain/cost"
	"github.com/costlens/costlens/internal/domain/forecast"
	apperrors "github.com/costlens/costlens/internal/pkg/errors"
	"github.com/costlens/costlens/internal/pkg/logger"
	"github.com/costlens/costlens/internal/pkg/metrics"
)

// Engine produces forward-looking cost forecasts with confidence bounds,
// trend and seasonality classification, and back-tested accuracy metrics.
// Each call is a pure function of its inputs and the engine configuration.
type Engine struct {
	cfg config.ForecastConfig
	log *logger.Logger
}

// NewEngine creates a forecast engine. Invalid configuration fails here,
// not at forecast time.
func NewEngine(cfg config.ForecastConfig, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// Forecast aggregates observations into a daily series and projects it
// over the configured horizon.
func (e *Engine) Forecast(obs []cost.Observation) (*forecast.Result, error) {
	dates, costs := cost.DailyTotals(obs)
	return e.ForecastSeries(dates, costs)
}

// ForecastSeries projects an already-aggregated daily cost series. It fails
// loudly with an insufficient-data error when the history is shorter than
// the configured minimum; a single point yields a flat projection.
func (e *Engine) ForecastSeries(dates []time.Time, costs []float64) (*forecast.Result, error) {
	start := time.Now()
	n := len(costs)

	if n < e.cfg.MinObservations {
		metrics.RecordForecastRun(e.cfg.ModelType, "insufficient_data", time.Since(start))
		return nil, apperrors.InsufficientData(n, e.cfg.MinObservations)
	}

	model := modelFor(e.cfg.ModelType, n, e.cfg.ConfidenceLevel)
	points, err := model.FitAndProject(dates, costs, e.cfg.ForecastDays)
	if err != nil {
		metrics.RecordForecastRun(model.Type(), "error", time.Since(start))
		return nil, apperrors.Forecasting("model fit failed", err)
	}

	total := 0.0
	for _, p := range points {
		total += p.PredictedCost
	}

	result := &forecast.Result{
		Forecasts:           points,
		TotalPredicted:      cost.Round2(total),
		Trend:               ClassifyTrend(costs),
		SeasonalityDetected: DetectSeasonality(costs),
		AccuracyMetrics:     Backtest(dates, costs, e.cfg.ModelType, e.cfg.ConfidenceLevel),
		HistoricalDays:      n,
		ModelType:           model.Type(),
	}

	metrics.RecordForecastRun(model.Type(), "ok", time.Since(start))
	e.log.WithFields(map[string]interface{}{
		"model":           result.ModelType,
		"historical_days": n,
		"horizon":         e.cfg.ForecastDays,
		"trend":           result.Trend,
		"total_predicted": result.TotalPredicted,
	}).Info("Forecast generated")

	return result, nil
}
