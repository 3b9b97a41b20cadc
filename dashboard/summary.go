package dashboard

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"scmdash/aggregation"
	"scmdash/mappers"
	"scmdash/model"
)

// UpcomingWindowDays は「今後の納品」に含める日数です。
const UpcomingWindowDays = 30

const noStatus = "-"

// 完了・取消とみなす状態 (Fold 後)
var closedStatuses = map[string]bool{
	"recibida": true, "recibido": true, "cerrada": true, "cerrado": true,
	"cancelada": true, "cancelado": true, "anulada": true, "anulado": true,
	"completada": true, "completado": true, "entregada": true, "entregado": true,
	"received": true, "closed": true, "cancelled": true, "canceled": true,
	"completed": true, "delivered": true,
}

// 輸送中とみなす状態に含まれる語 (Fold 後)
var inTransitMarkers = []string{"transito", "transit", "embarcad", "shipped", "en camino"}

func isClosed(status string) bool {
	return closedStatuses[mappers.Fold(status)]
}

func isInTransit(status string) bool {
	s := mappers.Fold(status)
	for _, m := range inTransitMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysUntil は today から date までの日数を返します。日付として読めなければ ok=false です。
func daysUntil(date string, today time.Time) (int, string, bool) {
	t, ok := mappers.ParseDate(date)
	if !ok {
		return 0, "", false
	}
	d := startOfDay(t)
	return int(d.Sub(startOfDay(today)).Hours() / 24), d.Format("2006-01-02"), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// SummaryInput はカード集計の入力です。
type SummaryInput struct {
	Tenders        []model.Tender
	PurchaseOrders []model.PurchaseOrder
	Imports        []model.ImportRecord
	Communications int
	Alerts         []model.StockAlert
}

// BuildSummary はダッシュボードのカードを集計します。
// 今後の納品は今日から UpcomingWindowDays 日以内で、完了・取消の発注と輸入は除きます。日付の昇順です。
func BuildSummary(in SummaryInput, today time.Time) model.SummaryCards {
	s := model.SummaryCards{
		TotalTenders:       len(in.Tenders),
		TendersByStatus:    make(map[string]int),
		UpcomingDeliveries: []model.UpcomingDelivery{},
		Communications:     in.Communications,
		LowStockAlerts:     len(in.Alerts),
	}

	addUpcoming := func(kind, ref, product, date string) {
		days, normalized, ok := daysUntil(date, today)
		if !ok || days < 0 || days > UpcomingWindowDays {
			return
		}
		s.UpcomingDeliveries = append(s.UpcomingDeliveries, model.UpcomingDelivery{
			Kind: kind, Reference: ref, ProductName: product, Date: normalized, DaysUntil: days,
		})
	}

	for _, t := range in.Tenders {
		status := strings.TrimSpace(t.Status)
		if status == "" {
			status = noStatus
		}
		s.TendersByStatus[status]++
		addUpcoming(model.LinkedTender, firstNonEmpty(t.TenderNumber, t.ID), t.ProductName, t.DeliveryDate)
	}
	for _, po := range in.PurchaseOrders {
		if isClosed(po.Status) {
			continue
		}
		s.OpenPurchaseOrders++
		addUpcoming(model.LinkedPurchaseOrder, firstNonEmpty(po.OCI, po.PONumber), po.ProductName, po.ETA)
	}
	for _, im := range in.Imports {
		if isInTransit(im.Status) {
			s.ImportsInTransit++
		}
		if !isClosed(im.Status) {
			addUpcoming(model.LinkedImport, firstNonEmpty(im.ImportNumber, im.ID), im.ProductName, im.ETA)
		}
	}
	for _, a := range in.Alerts {
		if a.Severity == model.SeverityCritical {
			s.CriticalAlerts++
		}
	}

	sort.SliceStable(s.UpcomingDeliveries, func(i, j int) bool {
		a, b := s.UpcomingDeliveries[i], s.UpcomingDeliveries[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Reference < b.Reference
	})
	return s
}

// BuildDemandView はトレンドを全行で、アラートを品目ごとの最新行で計算します。
func BuildDemandView(rows []model.DemandRow) model.DemandView {
	trend := aggregation.MonthlyTrend(rows)
	return model.DemandView{
		Trend:   trend,
		Summary: aggregation.SummarizeTrend(trend),
		Alerts:  aggregation.LowStockAlerts(aggregation.LatestPerProduct(rows)),
	}
}

// loadDashboard はカードと需要ビューに必要なテーブルを読み、両方を組み立てます。
func (s *Server) loadDashboard(ctx context.Context) (model.SummaryCards, model.DemandView, error) {
	tables, err := s.readTables(ctx,
		model.TableTenders, model.TablePurchaseOrders, model.TableImports,
		model.TableDemand, model.TableCommunications, model.TablePresentations)
	if err != nil {
		return model.SummaryCards{}, model.DemandView{}, err
	}
	summary, demand := s.assemble(tables)
	return summary, demand, nil
}

func (s *Server) assemble(tables map[string][]model.Row) (model.SummaryCards, model.DemandView) {
	cat := s.catalogFrom(tables[model.TablePresentations])

	in := SummaryInput{Communications: len(tables[model.TableCommunications])}
	for _, row := range cat.Enrich(tables[model.TableTenders]) {
		in.Tenders = append(in.Tenders, mappers.ToTender(row))
	}
	for _, row := range cat.Enrich(tables[model.TablePurchaseOrders]) {
		in.PurchaseOrders = append(in.PurchaseOrders, mappers.ToPurchaseOrder(row))
	}
	for _, row := range cat.Enrich(tables[model.TableImports]) {
		in.Imports = append(in.Imports, mappers.ToImport(row))
	}

	demand := BuildDemandView(cat.EnrichDemand(mappers.ToDemandRows(tables[model.TableDemand])))
	in.Alerts = demand.Alerts
	return BuildSummary(in, s.now()), demand
}

// SummaryHandler は GET /api/dashboard/summary です。
func (s *Server) SummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, _, err := s.loadDashboard(r.Context())
		if err != nil {
			s.writeBackendError(w, "summary", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "summary": summary})
	}
}

// DemandHandler は GET /api/dashboard/demand です。code を指定するとその品目の行だけで計算します。
func (s *Server) DemandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables, err := s.readTables(r.Context(), model.TableDemand, model.TablePresentations)
		if err != nil {
			s.writeBackendError(w, "demand", err)
			return
		}
		cat := s.catalogFrom(tables[model.TablePresentations])
		rows := cat.EnrichDemand(mappers.ToDemandRows(tables[model.TableDemand]))
		if code := strings.TrimSpace(r.URL.Query().Get("code")); code != "" {
			filtered := make([]model.DemandRow, 0, len(rows))
			for _, row := range rows {
				if row.PresentationCode == code {
					filtered = append(filtered, row)
				}
			}
			rows = filtered
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "demand": BuildDemandView(rows)})
	}
}
