// Package render はダッシュボードのカード・表・レポートをHTML文字列にします。
package render

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"

	"scmdash/model"
)

func esc(s string) string { return html.EscapeString(s) }

// FormatNumber は小数点以下を必要な桁だけ表示します。
func FormatNumber(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// RenderSummaryCardsHTML はカード群を描画します。
func RenderSummaryCardsHTML(s model.SummaryCards, lang Language) string {
	var sb strings.Builder
	card := func(key string, value int) {
		sb.WriteString(fmt.Sprintf(`<div class="card"><div class="card-label">%s</div><div class="card-value">%d</div></div>`,
			esc(Label(lang, key)), value))
	}
	sb.WriteString(`<div class="cards">`)
	card("totalTenders", s.TotalTenders)
	card("openPurchaseOrders", s.OpenPurchaseOrders)
	card("importsInTransit", s.ImportsInTransit)
	card("communications", s.Communications)
	card("lowStockAlerts", s.LowStockAlerts)
	card("criticalAlerts", s.CriticalAlerts)
	sb.WriteString(`</div>`)

	if len(s.TendersByStatus) > 0 {
		statuses := make([]string, 0, len(s.TendersByStatus))
		for st := range s.TendersByStatus {
			statuses = append(statuses, st)
		}
		sort.Strings(statuses)
		sb.WriteString(fmt.Sprintf(`<h3>%s</h3><ul class="status-list">`, esc(Label(lang, "tendersByStatus"))))
		for _, st := range statuses {
			sb.WriteString(fmt.Sprintf(`<li>%s: %d</li>`, esc(st), s.TendersByStatus[st]))
		}
		sb.WriteString(`</ul>`)
	}
	return sb.String()
}

// RenderDeliveriesTableHTML は今後の納品の表を描画します。
func RenderDeliveriesTableHTML(items []model.UpcomingDelivery, lang Language) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<table class="deliveries"><thead><tr><th>%s</th><th>%s</th><th>%s</th><th>%s</th><th class="right">%s</th></tr></thead><tbody>`,
		esc(Label(lang, "kind")), esc(Label(lang, "reference")), esc(Label(lang, "product")),
		esc(Label(lang, "date")), esc(Label(lang, "daysUntil"))))
	if len(items) == 0 {
		sb.WriteString(fmt.Sprintf(`<tr><td colspan="5">%s</td></tr>`, esc(Label(lang, "empty"))))
	}
	for _, d := range items {
		sb.WriteString(`<tr>`)
		sb.WriteString(fmt.Sprintf(`<td>%s</td>`, esc(Label(lang, d.Kind))))
		sb.WriteString(fmt.Sprintf(`<td>%s</td>`, esc(d.Reference)))
		sb.WriteString(fmt.Sprintf(`<td>%s</td>`, esc(d.ProductName)))
		sb.WriteString(fmt.Sprintf(`<td class="center">%s</td>`, esc(d.Date)))
		sb.WriteString(fmt.Sprintf(`<td class="right">%d</td>`, d.DaysUntil))
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)
	return sb.String()
}

// RenderTrendTableHTML は月別トレンドの表と要約を描画します。
func RenderTrendTableHTML(points []model.TrendPoint, summary model.TrendSummary, lang Language) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<p class="trend-summary">%s: %s &middot; %s: %s</p>`,
		esc(Label(lang, "monthlyAverage")), FormatNumber(summary.MonthlyAverageDemand),
		esc(Label(lang, "monthOverMonth")), FormatNumber(summary.MonthOverMonthPercent)))
	sb.WriteString(fmt.Sprintf(`<table class="trend"><thead><tr><th>%s</th><th class="right">%s</th><th class="right">%s</th><th class="right">%s</th></tr></thead><tbody>`,
		esc(Label(lang, "month")), esc(Label(lang, "demand")), esc(Label(lang, "forecast")), esc(Label(lang, "coverage"))))
	if len(points) == 0 {
		sb.WriteString(fmt.Sprintf(`<tr><td colspan="4">%s</td></tr>`, esc(Label(lang, "empty"))))
	}
	for _, p := range points {
		sb.WriteString(`<tr>`)
		sb.WriteString(fmt.Sprintf(`<td>%s</td>`, esc(p.MonthLabel)))
		sb.WriteString(fmt.Sprintf(`<td class="right">%s</td>`, FormatNumber(p.Demand)))
		sb.WriteString(fmt.Sprintf(`<td class="right">%s</td>`, FormatNumber(p.Forecast)))
		sb.WriteString(fmt.Sprintf(`<td class="right">%s</td>`, FormatNumber(p.CoveragePercent)))
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)
	return sb.String()
}

// RenderAlertTableHTML は在庫アラートの表を描画します。並び順は入力のままです。
func RenderAlertTableHTML(alerts []model.StockAlert, lang Language) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<table class="alerts"><thead><tr><th>%s</th><th>%s</th><th class="right">%s</th><th class="right">%s</th><th class="right">%s</th><th class="right">%s</th><th>%s</th></tr></thead><tbody>`,
		esc(Label(lang, "code")), esc(Label(lang, "product")), esc(Label(lang, "stock")), esc(Label(lang, "demand")),
		esc(Label(lang, "daysSupply")), esc(Label(lang, "minimum")), esc(Label(lang, "severity"))))
	if len(alerts) == 0 {
		sb.WriteString(fmt.Sprintf(`<tr><td colspan="7">%s</td></tr>`, esc(Label(lang, "empty"))))
	}
	for _, a := range alerts {
		sb.WriteString(fmt.Sprintf(`<tr class="severity-%s" data-key="%s">`, esc(string(a.Severity)), esc(a.Key)))
		sb.WriteString(fmt.Sprintf(`<td>%s</td>`, esc(a.PresentationCode)))
		sb.WriteString(fmt.Sprintf(`<td>%s</td>`, esc(a.ProductName)))
		sb.WriteString(fmt.Sprintf(`<td class="right">%s</td>`, FormatNumber(a.CurrentStockUnits)))
		sb.WriteString(fmt.Sprintf(`<td class="right">%s</td>`, FormatNumber(a.MonthlyDemandUnits)))
		sb.WriteString(fmt.Sprintf(`<td class="right">%s</td>`, FormatNumber(a.DaysSupply)))
		sb.WriteString(fmt.Sprintf(`<td class="right">%s</td>`, FormatNumber(a.MinimumThreshold)))
		sb.WriteString(fmt.Sprintf(`<td class="center">%s</td>`, esc(Label(lang, string(a.Severity)))))
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)
	return sb.String()
}

const reportStyle = `body{font-family:sans-serif;font-size:12px;margin:24px}
.cards{display:flex;gap:12px;flex-wrap:wrap}.card{border:1px solid #ccc;padding:8px 12px;min-width:120px}
.card-value{font-size:20px;font-weight:bold}table{border-collapse:collapse;width:100%;margin:8px 0 16px}
th,td{border:1px solid #ddd;padding:4px 6px}.right{text-align:right}.center{text-align:center}
.severity-critical{background:#fde2e2}.severity-low{background:#fff1d6}.severity-warning{background:#fffbe6}`

// RenderReportHTML は印刷・PDF用の完結したHTML文書を返します。
func RenderReportHTML(r model.Report, lang Language) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html lang="` + string(lang) + `"><head><meta charset="utf-8">`)
	sb.WriteString(fmt.Sprintf(`<title>%s</title><style>%s</style></head><body>`, esc(Label(lang, "title")), reportStyle))
	sb.WriteString(fmt.Sprintf(`<h1>%s</h1><p class="generated">%s: %s</p>`,
		esc(Label(lang, "title")), esc(Label(lang, "generatedAt")), esc(r.GeneratedAt)))
	sb.WriteString(RenderSummaryCardsHTML(r.Summary, lang))
	sb.WriteString(fmt.Sprintf(`<h2>%s</h2>`, esc(Label(lang, "upcomingDeliveries"))))
	sb.WriteString(RenderDeliveriesTableHTML(r.Summary.UpcomingDeliveries, lang))
	sb.WriteString(fmt.Sprintf(`<h2>%s</h2>`, esc(Label(lang, "trend"))))
	sb.WriteString(RenderTrendTableHTML(r.Demand.Trend, r.Demand.Summary, lang))
	sb.WriteString(fmt.Sprintf(`<h2>%s</h2>`, esc(Label(lang, "alerts"))))
	sb.WriteString(RenderAlertTableHTML(r.Demand.Alerts, lang))
	sb.WriteString(`</body></html>`)
	return sb.String()
}
