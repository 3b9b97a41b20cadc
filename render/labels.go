package render

import "strings"

// Language は表示言語です。
type Language string

const (
	Spanish Language = "es"
	English Language = "en"
)

// ParseLanguage は "es" / "en" を解釈します。それ以外はスペイン語です。
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(English)) {
		return English
	}
	return Spanish
}

var labels = map[Language]map[string]string{
	Spanish: {
		"title":              "Panel de abastecimiento",
		"generatedAt":        "Generado",
		"totalTenders":       "Licitaciones",
		"openPurchaseOrders": "Órdenes de compra abiertas",
		"importsInTransit":   "Importaciones en tránsito",
		"communications":     "Comunicaciones",
		"lowStockAlerts":     "Alertas de stock",
		"criticalAlerts":     "Críticas",
		"tendersByStatus":    "Licitaciones por estado",
		"upcomingDeliveries": "Próximas entregas",
		"kind":               "Tipo",
		"reference":          "Referencia",
		"product":            "Producto",
		"date":               "Fecha",
		"daysUntil":          "Días",
		"trend":              "Tendencia de demanda",
		"month":              "Mes",
		"demand":             "Demanda",
		"forecast":           "Pronóstico",
		"coverage":           "Cobertura %",
		"monthlyAverage":     "Demanda mensual promedio",
		"monthOverMonth":     "Variación mensual %",
		"alerts":             "Alertas de stock bajo",
		"code":               "Código",
		"stock":              "Stock",
		"daysSupply":         "Días de cobertura",
		"minimum":            "Mínimo",
		"severity":           "Severidad",
		"empty":              "Sin datos.",
		"critical":           "Crítico",
		"low":                "Bajo",
		"warning":            "Advertencia",
		"tender":             "Licitación",
		"purchase_order":     "Orden de compra",
		"import":             "Importación",
	},
	English: {
		"title":              "Supply dashboard",
		"generatedAt":        "Generated",
		"totalTenders":       "Tenders",
		"openPurchaseOrders": "Open purchase orders",
		"importsInTransit":   "Imports in transit",
		"communications":     "Communications",
		"lowStockAlerts":     "Stock alerts",
		"criticalAlerts":     "Critical",
		"tendersByStatus":    "Tenders by status",
		"upcomingDeliveries": "Upcoming deliveries",
		"kind":               "Kind",
		"reference":          "Reference",
		"product":            "Product",
		"date":               "Date",
		"daysUntil":          "Days",
		"trend":              "Demand trend",
		"month":              "Month",
		"demand":             "Demand",
		"forecast":           "Forecast",
		"coverage":           "Coverage %",
		"monthlyAverage":     "Average monthly demand",
		"monthOverMonth":     "Month over month %",
		"alerts":             "Low stock alerts",
		"code":               "Code",
		"stock":              "Stock",
		"daysSupply":         "Days of supply",
		"minimum":            "Minimum",
		"severity":           "Severity",
		"empty":              "No data.",
		"critical":           "Critical",
		"low":                "Low",
		"warning":            "Warning",
		"tender":             "Tender",
		"purchase_order":     "Purchase order",
		"import":             "Import",
	},
}

// Label は言語に応じた表示文字列を返します。未登録のキーはキーそのものを返します。
func Label(lang Language, key string) string {
	if s, ok := labels[lang][key]; ok {
		return s
	}
	if s, ok := labels[Spanish][key]; ok {
		return s
	}
	return key
}
