package detector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/costlens/costlens/internal/config"
	"github.com/costlens/costlens/internal/domain/anomaly"
	"github.com/costlens/costlens/internal/domain/cost"
	"github.com/costlens/costlens/internal/pkg/logger"
	"github.com/costlens/costlens/internal/pkg/metrics"
)

// minWeekdaySamples is the number of same-weekday historical samples needed
// before the weekday median is trusted over the overall median.
const minWeekdaySamples = 3

// Engine flags anomalous cost observations. Detection combines the
// statistical control-limit check, the ensemble scorer and the spike/drift
// overrides; any signal flags the row. The ensemble fit state is cached on
// the engine and reused across calls until Retrain; concurrent use requires
// one engine per goroutine or external locking.
type Engine struct {
	cfg      config.DetectorConfig
	log      *logger.Logger
	stat     *StatisticalDetector
	ensemble *EnsembleScorer
	rules    []RootCauseRule
}

// NewEngine creates a detection engine. Invalid configuration fails here,
// not at detect time.
func NewEngine(cfg config.DetectorConfig, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:  cfg,
		log:  log,
		stat: NewStatisticalDetector(cfg.MinObservations, cfg.Sensitivity),
		ensemble: NewEnsembleScorer(cfg.Contamination, cfg.Estimators, cfg.Seed,
			cfg.MinObservations, cfg.MinCostThreshold),
		rules: DefaultRootCauseRules(),
	}, nil
}

// Retrain drops the cached ensemble state; the next Detect call refits on
// its training window.
func (e *Engine) Retrain() {
	e.ensemble.Reset()
}

// Detect flags anomalies among the candidate observations using the
// historical observations as context. Detection is best effort: short
// history yields an empty list, and a failing group is logged and skipped
// rather than aborting the batch.
func (e *Engine) Detect(historical, candidates []cost.Observation) []anomaly.Anomaly {
	start := time.Now()
	defer func() { metrics.RecordDetectionRun(time.Since(start)) }()

	if len(candidates) == 0 {
		return []anomaly.Anomaly{}
	}

	hist := append([]cost.Observation(nil), historical...)
	cands := append([]cost.Observation(nil), candidates...)
	cost.SortByDate(hist)
	cost.SortByDate(cands)

	e.trainEnsemble(hist, cands[0].Date)

	// Candidate features need the trailing group history, so build over the
	// combined series and keep the candidate rows.
	combined := append(append([]cost.Observation(nil), hist...), cands...)
	features := BuildFeatures(combined, e.cfg.RollingWindow)
	candRows := features[len(hist):]

	histByKey := cost.GroupByKey(hist)
	rowsByKey := make(map[cost.GroupKey][]FeatureRow)
	for _, row := range candRows {
		k := row.Obs.Key()
		rowsByKey[k] = append(rowsByKey[k], row)
	}

	keys := make([]cost.GroupKey, 0, len(rowsByKey))
	for k := range rowsByKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Provider != keys[j].Provider {
			return keys[i].Provider < keys[j].Provider
		}
		return keys[i].Service < keys[j].Service
	})

	var anomalies []anomaly.Anomaly
	for _, k := range keys {
		groupAnomalies, err := e.detectGroup(k, histByKey[k], rowsByKey[k])
		if err != nil {
			e.log.WithFields(map[string]interface{}{
				"provider": k.Provider,
				"service":  k.Service,
			}).ErrorWithErr(err, "Skipping group after detection failure")
			metrics.RecordGroupSkipped()
			continue
		}
		anomalies = append(anomalies, groupAnomalies...)
	}

	for _, a := range anomalies {
		metrics.RecordAnomaly(a.Severity, a.Provider)
	}

	e.log.WithFields(map[string]interface{}{
		"candidates": len(cands),
		"anomalies":  len(anomalies),
	}).Info("Anomaly detection completed")

	if anomalies == nil {
		anomalies = []anomaly.Anomaly{}
	}
	return anomalies
}

// trainEnsemble fits the ensemble on the training window preceding the
// detection window, unless cached state already exists.
func (e *Engine) trainEnsemble(hist []cost.Observation, detectionStart time.Time) {
	if e.ensemble.Trained() {
		return
	}
	cutoff := detectionStart.AddDate(0, 0, -e.cfg.TrainingWindowDays)
	var window []cost.Observation
	for _, o := range hist {
		if !o.Date.Before(cutoff) && o.Date.Before(detectionStart) {
			window = append(window, o)
		}
	}
	e.ensemble.Train(BuildFeatures(window, e.cfg.RollingWindow))
}

// detectGroup classifies all candidate rows of one (provider, service)
// group. A panic in per-row computation is converted into an error so the
// caller can skip the group.
func (e *Engine) detectGroup(key cost.GroupKey, hist []cost.Observation, rows []FeatureRow) (anomalies []anomaly.Anomaly, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("group %s/%s: %v", key.Provider, key.Service, r)
		}
	}()

	all := make([]cost.Observation, 0, len(hist)+len(rows))
	all = append(all, hist...)
	for _, row := range rows {
		all = append(all, row.Obs)
	}

	// Groups with too little history or negligible recent spend are
	// cleared wholesale rather than scored on a weak baseline.
	if len(hist) < e.cfg.MinObservations {
		return nil, nil
	}
	if recentTotal(all, 7) < e.cfg.MinCostThreshold*7 {
		return nil, nil
	}

	histCosts := cost.Costs(hist)
	baseline := NewBaseline(histCosts)
	histMax := 0.0
	if len(histCosts) > 0 {
		histMax = histCosts[0]
		for _, c := range histCosts {
			if c > histMax {
				histMax = c
			}
		}
	}

	groupAvg := 0.0
	if len(all) > 0 {
		groupAvg = stat.Mean(cost.Costs(all), nil)
	}
	ctx := groupContext{
		regionAvgs:     regionAverages(all),
		resourceCounts: countBy(all, func(o cost.Observation) string { return o.ResourceID }),
		usageCounts:    countBy(hist, func(o cost.Observation) string { return o.UsageType }),
		weekdayCosts:   weekdayCosts(hist),
		allCosts:       histCosts,
	}

	for _, row := range rows {
		obs := row.Obs
		if obs.Cost < e.cfg.MinCostThreshold {
			continue
		}

		expected := e.expectedCost(ctx, obs.Date.Weekday())
		variance := 0.0
		if expected > 0 {
			variance = (obs.Cost - expected) / expected * 100
		}

		z, statHit := e.stat.Check(obs.Cost, baseline)
		mlScore, mlHit := e.ensemble.Score(row)
		spikeHit := e.cfg.SpikeOverride && variance > 50
		driftHit := e.cfg.DriftOverride && math.Abs(variance) > 30

		if !statHit && !mlHit && !spikeHit && !driftHit {
			continue
		}

		score := mlScore
		if !e.ensemble.Trained() {
			score = -math.Min(z/e.stat.Threshold(), 1)
		}
		score = math.Max(-1, math.Min(1, score))

		ruleCtx := RuleContext{
			Obs:             obs,
			Row:             row,
			VariancePercent: variance,
			HistoricalMean:  baseline.Mean,
			GroupAverage:    groupAvg,
			RegionAverages:  ctx.regionAvgs,
			ResourceCounts:  ctx.resourceCounts,
			UsageTypeCounts: ctx.usageCounts,
		}

		anomalies = append(anomalies, anomaly.Anomaly{
			Date:                obs.Date,
			Provider:            obs.Provider,
			Service:             obs.Service,
			Cost:                cost.Round2(obs.Cost),
			ExpectedCost:        cost.Round2(expected),
			VariancePercent:     cost.Round2(variance),
			AnomalyScore:        score,
			Severity:            anomaly.SeverityForVariance(variance),
			RootCause:           EvaluateRootCause(e.rules, ruleCtx),
			AffectedResources:   affectedResources(obs, all),
			ContributingFactors: contributingFactors(obs, row, baseline.Mean, histMax),
			Region:              obs.Region,
			UsageType:           obs.UsageType,
		})
	}

	return anomalies, nil
}

// groupContext carries the per-group lookups shared across candidate rows.
type groupContext struct {
	regionAvgs     map[string]float64
	resourceCounts map[string]int
	usageCounts    map[string]int
	weekdayCosts   map[time.Weekday][]float64
	allCosts       []float64
}

// expectedCost is the median same-weekday historical cost when enough such
// samples exist, else the median of all historical cost, else 0.
func (e *Engine) expectedCost(ctx groupContext, wd time.Weekday) float64 {
	if samples := ctx.weekdayCosts[wd]; len(samples) >= minWeekdaySamples {
		return median(samples)
	}
	if len(ctx.allCosts) > 0 {
		return median(ctx.allCosts)
	}
	return 0
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.LinInterp, sorted, nil)
}

// recentTotal sums group cost over the trailing days ending at the group's
// latest observation.
func recentTotal(obs []cost.Observation, days int) float64 {
	if len(obs) == 0 {
		return 0
	}
	latest := obs[0].Date
	for _, o := range obs {
		if o.Date.After(latest) {
			latest = o.Date
		}
	}
	cutoff := latest.AddDate(0, 0, -days)
	total := 0.0
	for _, o := range obs {
		if o.Date.After(cutoff) {
			total += o.Cost
		}
	}
	return total
}

func regionAverages(obs []cost.Observation) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, o := range obs {
		if o.Region == "" {
			continue
		}
		sums[o.Region] += o.Cost
		counts[o.Region]++
	}
	avgs := make(map[string]float64, len(sums))
	for r, s := range sums {
		avgs[r] = s / float64(counts[r])
	}
	return avgs
}

func countBy(obs []cost.Observation, keyFn func(cost.Observation) string) map[string]int {
	counts := make(map[string]int)
	for _, o := range obs {
		if k := keyFn(o); k != "" {
			counts[k]++
		}
	}
	return counts
}

func weekdayCosts(obs []cost.Observation) map[time.Weekday][]float64 {
	byDay := make(map[time.Weekday][]float64)
	for _, o := range obs {
		byDay[o.Date.Weekday()] = append(byDay[o.Date.Weekday()], o.Cost)
	}
	return byDay
}

// affectedResources returns the row's resource plus up to two of the
// highest-cost other resources billed on the same date, deduplicated and
// capped at five identifiers.
func affectedResources(obs cost.Observation, group []cost.Observation) []string {
	var resources []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] && len(resources) < 5 {
			seen[id] = true
			resources = append(resources, id)
		}
	}
	add(obs.ResourceID)

	var sameDay []cost.Observation
	for _, o := range group {
		if o.Date.Equal(obs.Date) && o.ResourceID != "" && o.ResourceID != obs.ResourceID {
			sameDay = append(sameDay, o)
		}
	}
	sort.SliceStable(sameDay, func(i, j int) bool { return sameDay[i].Cost > sameDay[j].Cost })
	for i := 0; i < len(sameDay) && i < 2; i++ {
		add(sameDay[i].ResourceID)
	}
	return resources
}

// contributingFactors records the observability context attached to a
// flagged row.
func contributingFactors(obs cost.Observation, row FeatureRow, histMean, histMax float64) map[string]interface{} {
	trend := 0.0
	if histMean > 0 {
		trend = (row.RollingMean7 - histMean) / histMean * 100
	}
	factors := map[string]interface{}{
		"current_cost":    cost.Round2(obs.Cost),
		"historical_mean": cost.Round2(histMean),
		"historical_max":  cost.Round2(histMax),
		"day_of_week":     obs.Date.Weekday().String(),
		"is_weekend":      row.IsWeekend,
		"7day_trend":      cost.Round2(trend),
	}
	if obs.UsageType != "" {
		factors["usage_type"] = obs.UsageType
	}
	if obs.Region != "" {
		factors["region"] = obs.Region
	}
	return factors
}
