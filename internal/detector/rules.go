package detector

import (
	"fmt"
	"strings"

	"github.com/costlens/costlens/internal/domain/cost"
)

// defaultRootCause is used when no heuristic matches.
const defaultRootCause = "Cost deviation from historical baseline"

// RuleContext is the read-only view of a flagged row that root-cause rules
// evaluate against.
type RuleContext struct {
	Obs             cost.Observation
	Row             FeatureRow
	VariancePercent float64
	HistoricalMean  float64
	GroupAverage    float64
	RegionAverages  map[string]float64
	ResourceCounts  map[string]int
	UsageTypeCounts map[string]int
}

// RootCauseRule is one independent heuristic: a predicate plus the message
// it contributes when it matches.
type RootCauseRule struct {
	Name     string
	Evaluate func(RuleContext) (bool, string)
}

// DefaultRootCauseRules returns the ordered heuristic list. Every matching
// rule contributes; messages are joined with "; ".
func DefaultRootCauseRules() []RootCauseRule {
	return []RootCauseRule{
		{
			Name: "sudden_spike",
			Evaluate: func(ctx RuleContext) (bool, string) {
				if ctx.VariancePercent > 100 {
					return true, fmt.Sprintf("Sudden cost spike of %.1f%% above expected baseline", ctx.VariancePercent)
				}
				return false, ""
			},
		},
		{
			Name: "new_resource",
			Evaluate: func(ctx RuleContext) (bool, string) {
				id := ctx.Obs.ResourceID
				if id != "" && ctx.ResourceCounts[id] == 1 {
					return true, fmt.Sprintf("New resource detected: %s", id)
				}
				return false, ""
			},
		},
		{
			Name: "unusual_usage_type",
			Evaluate: func(ctx RuleContext) (bool, string) {
				ut := ctx.Obs.UsageType
				if ut != "" && ctx.UsageTypeCounts[ut] < 3 {
					return true, fmt.Sprintf("Unusual usage type: %s", ut)
				}
				return false, ""
			},
		},
		{
			Name: "expensive_region",
			Evaluate: func(ctx RuleContext) (bool, string) {
				r := ctx.Obs.Region
				if r != "" && ctx.GroupAverage > 0 && ctx.RegionAverages[r] > 1.5*ctx.GroupAverage {
					return true, fmt.Sprintf("Higher costs in region %s than the service average", r)
				}
				return false, ""
			},
		},
		{
			Name: "sustained_increase",
			Evaluate: func(ctx RuleContext) (bool, string) {
				if ctx.HistoricalMean > 0 && ctx.Row.RollingMean7 > 1.3*ctx.HistoricalMean {
					return true, "Sustained cost increase over the last 7 days"
				}
				return false, ""
			},
		},
	}
}

// EvaluateRootCause runs the rules in order and joins all matching messages.
func EvaluateRootCause(rules []RootCauseRule, ctx RuleContext) string {
	var causes []string
	for _, rule := range rules {
		if ok, msg := rule.Evaluate(ctx); ok {
			causes = append(causes, msg)
		}
	}
	if len(causes) == 0 {
		return defaultRootCause
	}
	return strings.Join(causes, "; ")
}
