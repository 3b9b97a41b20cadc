package aggregation

import (
	"fmt"
	"math"
	"sort"

	"scmdash/model"
)

// AlertKey はアラートの安定キーです。品目コードがない行は月と行番号から合成します。
func AlertKey(row model.DemandRow) string {
	if row.PresentationCode != "" {
		return row.PresentationCode
	}
	return fmt.Sprintf("%s-%d", MonthKey(row), row.RowIndex)
}

// LowStockAlerts はカバー日数が有限かつ30日以下の行をアラートにし、緊急度の高い順(日数の昇順)に返します。
// 需要0(カバー無限大)の行は在庫量にかかわらず対象外です。
func LowStockAlerts(rows []model.DemandRow) []model.StockAlert {
	alerts := make([]model.StockAlert, 0)
	for _, row := range rows {
		ds := DaysSupply(row)
		if math.IsInf(ds, 0) || ds > AlertHorizonDays {
			continue
		}
		alerts = append(alerts, model.StockAlert{
			Key:                AlertKey(row),
			PresentationCode:   row.PresentationCode,
			ProductName:        row.ProductName,
			CurrentStockUnits:  row.CurrentStockUnits,
			MonthlyDemandUnits: row.MonthlyDemandUnits,
			DaysSupply:         ds,
			Severity:           Severity(ds),
			MinimumThreshold:   MinimumThreshold(row.MonthlyDemandUnits),
			MonthOfSupply:      MonthKey(row),
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DaysSupply < alerts[j].DaysSupply
	})
	return alerts
}

// LatestPerProduct は品目ごとに最新月の行だけを残します。品目コードのない行はそのまま残します。
// 同じ月の行が複数ある場合は後ろの行が優先されます。
func LatestPerProduct(rows []model.DemandRow) []model.DemandRow {
	latest := make(map[string]int)
	var order []string
	var out []model.DemandRow
	for i, row := range rows {
		if row.PresentationCode == "" {
			continue
		}
		j, ok := latest[row.PresentationCode]
		if !ok {
			latest[row.PresentationCode] = i
			order = append(order, row.PresentationCode)
			continue
		}
		if !monthBefore(MonthKey(row), MonthKey(rows[j])) {
			latest[row.PresentationCode] = i
		}
	}
	for _, code := range order {
		out = append(out, rows[latest[code]])
	}
	for _, row := range rows {
		if row.PresentationCode == "" {
			out = append(out, row)
		}
	}
	return out
}

func monthBefore(a, b string) bool {
	labels := []string{b, a}
	SortMonthLabels(labels)
	return labels[0] == a && a != b
}
