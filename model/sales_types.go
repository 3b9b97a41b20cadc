package model

import (
	"encoding/json"
	"fmt"
)

// SalesSeriesPoint は (YYYY-MM, 符号付き数量) の組です。JSONでは2要素配列になります。
type SalesSeriesPoint struct {
	Month string
	Units float64
}

func (p SalesSeriesPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Month, p.Units})
}

func (p *SalesSeriesPoint) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("series point must have 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Month); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Units)
}

// FetchAttempt はデバッグ用の上流リクエスト記録です。
type FetchAttempt struct {
	URL     string `json:"url"`
	Scheme  string `json:"scheme"`
	Status  int    `json:"status"`
	Snippet string `json:"snippet,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MonthDebug は1か月分の試行記録です。
type MonthDebug struct {
	Month     string         `json:"month"`
	Attempts  []FetchAttempt `json:"attempts"`
	Winner    string         `json:"winner,omitempty"`
	Exhausted bool           `json:"exhausted"`
}

// SalesSeries は /api/mm-sales の応答です。
type SalesSeries struct {
	OK               bool               `json:"ok"`
	PresentationCode string             `json:"presentation_code"`
	From             string             `json:"from"`
	To               string             `json:"to"`
	Series           []SalesSeriesPoint `json:"series"`
	Debug            []MonthDebug       `json:"debug,omitempty"`
}
