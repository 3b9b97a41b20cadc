package model

// UpcomingDelivery はダッシュボードの「今後の納品」1件です。
type UpcomingDelivery struct {
	Kind        string `json:"kind"`
	Reference   string `json:"reference"`
	ProductName string `json:"productName"`
	Date        string `json:"date"`
	DaysUntil   int    `json:"daysUntil"`
}

// SummaryCards はダッシュボード上部のカード群です。
type SummaryCards struct {
	TotalTenders       int                `json:"totalTenders"`
	TendersByStatus    map[string]int     `json:"tendersByStatus"`
	OpenPurchaseOrders int                `json:"openPurchaseOrders"`
	ImportsInTransit   int                `json:"importsInTransit"`
	UpcomingDeliveries []UpcomingDelivery `json:"upcomingDeliveries"`
	Communications     int                `json:"communications"`
	LowStockAlerts     int                `json:"lowStockAlerts"`
	CriticalAlerts     int                `json:"criticalAlerts"`
}

// DemandView は需要画面のトレンドとアラートです。
type DemandView struct {
	Trend   []TrendPoint `json:"trend"`
	Summary TrendSummary `json:"summary"`
	Alerts  []StockAlert `json:"alerts"`
}

// Report は印刷用レポートの内容です。
type Report struct {
	GeneratedAt string       `json:"generatedAt"`
	Summary     SummaryCards `json:"summary"`
	Demand      DemandView   `json:"demand"`
}
