package model

// CatalogEntry はプレゼンテーション(包装品目)マスタの1件です。
type CatalogEntry struct {
	PresentationCode string   `json:"presentationCode"`
	ProductName      string   `json:"productName"`
	PackageUnits     *float64 `json:"packageUnits"`
}
