package aggregation

import (
	"math"

	"scmdash/model"
)

// DaysPerMonth はカバー日数の換算に使う1か月の日数です。
const DaysPerMonth = 30

// AlertHorizonDays を超えるカバー日数はアラート対象外です。
const AlertHorizonDays = 30

// MinimumThresholdMonths は最低在庫の目安(需要の1.25か月分)です。
const MinimumThresholdMonths = 1.25

// DaysSupply は在庫カバー日数を返します。
// 保存値が有限ならそれを使い、なければ floor(在庫/月間需要*30) を導出します。
// 需要が0以下の場合は +Inf (補充の緊急性なし) です。結果は負になりません。
func DaysSupply(row model.DemandRow) float64 {
	if row.DaysSupply != nil && !math.IsNaN(*row.DaysSupply) && !math.IsInf(*row.DaysSupply, 0) {
		return math.Max(0, *row.DaysSupply)
	}
	if row.MonthlyDemandUnits <= 0 {
		return math.Inf(1)
	}
	days := math.Floor(row.CurrentStockUnits / row.MonthlyDemandUnits * DaysPerMonth)
	return math.Max(0, days)
}

// CoveragePercent はカバー日数を1か月=100%の割合に換算します。
func CoveragePercent(daysSupply float64) float64 {
	return daysSupply / DaysPerMonth * 100
}

// Severity はカバー日数から重要度を決める階段関数です。
func Severity(daysSupply float64) model.Severity {
	switch {
	case daysSupply <= 10:
		return model.SeverityCritical
	case daysSupply <= 20:
		return model.SeverityLow
	default:
		return model.SeverityWarning
	}
}

// MinimumThreshold は表示用の最低在庫目安です。
func MinimumThreshold(monthlyDemandUnits float64) float64 {
	return math.Round(monthlyDemandUnits * MinimumThresholdMonths)
}
