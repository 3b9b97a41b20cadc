package model

// DemandRow は品目×月の需要行です。DaysSupply が nil の場合は在庫と需要から導出します。
type DemandRow struct {
	PresentationCode   string   `json:"presentationCode"`
	ProductName        string   `json:"productName,omitempty"`
	CurrentStockUnits  float64  `json:"currentStockUnits"`
	MonthlyDemandUnits float64  `json:"monthlyDemandUnits"`
	ForecastUnits      float64  `json:"forecastUnits"`
	HistoricalUnits    float64  `json:"historicalUnits"`
	DaysSupply         *float64 `json:"daysSupply"`
	MonthOfSupply      string   `json:"monthOfSupply"`
	Timestamp          string   `json:"timestamp,omitempty"`
	RowIndex           int      `json:"-"`
}

// TrendPoint は月別の需要トレンド1点です。
type TrendPoint struct {
	MonthLabel      string  `json:"monthLabel"`
	Demand          float64 `json:"demand"`
	Forecast        float64 `json:"forecast"`
	CoveragePercent float64 `json:"coveragePercent"`
}

// TrendSummary はトレンド全体の要約です。
type TrendSummary struct {
	MonthlyAverageDemand  float64 `json:"monthlyAverageDemand"`
	MonthOverMonthPercent float64 `json:"monthOverMonthPercent"`
}

// Severity は在庫アラートの重要度です。
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityLow      Severity = "low"
	SeverityWarning  Severity = "warning"
)

// StockAlert は在庫カバー日数が閾値以下の品目です。
type StockAlert struct {
	Key                string   `json:"key"`
	PresentationCode   string   `json:"presentationCode"`
	ProductName        string   `json:"productName"`
	CurrentStockUnits  float64  `json:"currentStockUnits"`
	MonthlyDemandUnits float64  `json:"monthlyDemandUnits"`
	DaysSupply         float64  `json:"daysSupply"`
	Severity           Severity `json:"severity"`
	MinimumThreshold   float64  `json:"minimumThreshold"`
	MonthOfSupply      string   `json:"monthOfSupply"`
}
