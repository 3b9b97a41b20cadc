package aggregation

import (
	"math"
	"sort"
	"time"

	"scmdash/mappers"
	"scmdash/model"
)

type monthBucket struct {
	label       string
	demand      float64
	forecast    float64
	coverageSum float64
	coverageN   int
}

// MonthKey は行の集計月を返します。monthOfSupply が空ならタイムスタンプの月を使います。
func MonthKey(row model.DemandRow) string {
	if row.MonthOfSupply != "" {
		return row.MonthOfSupply
	}
	return mappers.NormalizeMonth(row.Timestamp)
}

// MonthlyTrend は需要行を月ごとに集計します。
// 需要・予測は単純合計、カバー率は有限のカバー日数を持つ行の平均(該当なしは0)です。
// 出力は月の昇順で、解析できない月ラベルはその後ろに文字列順で並びます。
func MonthlyTrend(rows []model.DemandRow) []model.TrendPoint {
	buckets := make(map[string]*monthBucket)
	for _, row := range rows {
		key := MonthKey(row)
		b, ok := buckets[key]
		if !ok {
			b = &monthBucket{label: key}
			buckets[key] = b
		}
		b.demand += row.MonthlyDemandUnits
		b.forecast += row.ForecastUnits

		ds := DaysSupply(row)
		if !math.IsInf(ds, 0) {
			b.coverageSum += CoveragePercent(ds)
			b.coverageN++
		}
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	SortMonthLabels(labels)

	points := make([]model.TrendPoint, 0, len(labels))
	for _, label := range labels {
		b := buckets[label]
		coverage := 0.0
		if b.coverageN > 0 {
			coverage = b.coverageSum / float64(b.coverageN)
		}
		points = append(points, model.TrendPoint{
			MonthLabel:      b.label,
			Demand:          b.demand,
			Forecast:        b.forecast,
			CoveragePercent: coverage,
		})
	}
	return points
}

// SortMonthLabels は月ラベルを全順序で並べ替えます。
// 解析できるラベルを日付順(同じ月は文字列順)に、解析できないラベルをその後に文字列順で置きます。
func SortMonthLabels(labels []string) {
	type parsed struct {
		t  time.Time
		ok bool
	}
	cache := make(map[string]parsed, len(labels))
	for _, l := range labels {
		t, ok := mappers.ParseMonth(l)
		cache[l] = parsed{t, ok}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		pi, pj := cache[labels[i]], cache[labels[j]]
		if pi.ok != pj.ok {
			return pi.ok
		}
		if pi.ok && !pi.t.Equal(pj.t) {
			return pi.t.Before(pj.t)
		}
		return labels[i] < labels[j]
	})
}

// SummarizeTrend は月平均需要と直近の前月比(%)を返します。
// 2点未満または前月需要が0の場合、前月比は0です。
func SummarizeTrend(points []model.TrendPoint) model.TrendSummary {
	var summary model.TrendSummary
	if len(points) == 0 {
		return summary
	}
	var total float64
	for _, p := range points {
		total += p.Demand
	}
	summary.MonthlyAverageDemand = total / float64(len(points))

	if len(points) >= 2 {
		last := points[len(points)-1]
		prev := points[len(points)-2]
		if prev.Demand != 0 {
			summary.MonthOverMonthPercent = (last.Demand - prev.Demand) / prev.Demand * 100
		}
	}
	return summary
}
