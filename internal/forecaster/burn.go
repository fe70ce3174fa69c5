package forecaster

import (
	"math"
	"time"

	"github.com/costlens/costlens/internal/domain/cost"
	"github.com/costlens/costlens/internal/domain/forecast"
)

const (
	budgetCriticalUsedRatio = 0.90
	budgetWarningUsedRatio  = 0.75
	budgetWarningDaysLeft   = 7

	alertCriticalRatio = 1.5
	alertWarningRatio  = 1.25
	alertCautionRatio  = 1.1
)

// ProjectBurn projects budget depletion from a historical daily spend
// series. DaysRemaining is +Inf (and the depletion date nil) when the daily
// average is zero.
func ProjectBurn(dates []time.Time, costs []float64, budget float64) *forecast.BudgetStatus {
	totalSpent := 0.0
	for _, c := range costs {
		totalSpent += c
	}

	dailyAverage := 0.0
	if len(costs) > 0 {
		dailyAverage = totalSpent / float64(len(costs))
	}

	remaining := budget - totalSpent

	daysRemaining := math.Inf(1)
	var depletion *time.Time
	if dailyAverage > 0 {
		daysRemaining = remaining / dailyAverage
		if len(dates) > 0 {
			d := dates[len(dates)-1].AddDate(0, 0, int(daysRemaining))
			depletion = &d
		}
	}

	status := forecast.BudgetHealthy
	usedRatio := 0.0
	if budget > 0 {
		usedRatio = totalSpent / budget
	}
	switch {
	case totalSpent >= budget:
		status = forecast.BudgetExceeded
	case usedRatio >= budgetCriticalUsedRatio:
		status = forecast.BudgetCritical
	case usedRatio >= budgetWarningUsedRatio || daysRemaining < budgetWarningDaysLeft:
		status = forecast.BudgetWarning
	}

	return &forecast.BudgetStatus{
		Budget:        cost.Round2(budget),
		TotalSpent:    cost.Round2(totalSpent),
		Remaining:     cost.Round2(remaining),
		DailyAverage:  cost.Round2(dailyAverage),
		DaysRemaining: daysRemaining,
		DepletionDate: depletion,
		Status:        status,
	}
}

// BudgetAlertFor compares actual spend against a linear consumption
// expectation over the budget period and grades how far ahead of pace the
// spend is running.
func BudgetAlertFor(actualSpend, budget float64, elapsedDays, totalDays int) *forecast.BudgetAlert {
	expected := 0.0
	if totalDays > 0 {
		expected = float64(elapsedDays) / float64(totalDays) * budget
	}

	ratio := 0.0
	if expected > 0 {
		ratio = actualSpend / expected
	}

	projected := 0.0
	if elapsedDays > 0 {
		projected = actualSpend / float64(elapsedDays) * float64(totalDays)
	}
	overspend := math.Max(0, projected-budget)

	level := forecast.AlertNormal
	switch {
	case ratio >= alertCriticalRatio:
		level = forecast.AlertCritical
	case ratio >= alertWarningRatio:
		level = forecast.AlertWarning
	case ratio >= alertCautionRatio:
		level = forecast.AlertCaution
	}

	return &forecast.BudgetAlert{
		Level:              level,
		SpendRatio:         cost.Round2(ratio),
		ExpectedSpend:      cost.Round2(expected),
		ActualSpend:        cost.Round2(actualSpend),
		ProjectedTotal:     cost.Round2(projected),
		ProjectedOverspend: cost.Round2(overspend),
	}
}
