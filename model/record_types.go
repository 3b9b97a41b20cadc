package model

// Tender は入札(licitación)レコードです。
type Tender struct {
	ID               string  `json:"id"`
	TenderNumber     string  `json:"tenderNumber"`
	Title            string  `json:"title"`
	Institution      string  `json:"institution"`
	Status           string  `json:"status"`
	DeliveryDate     string  `json:"deliveryDate"`
	PresentationCode string  `json:"presentationCode"`
	ProductName      string  `json:"productName"`
	Quantity         float64 `json:"quantity"`
	Amount           float64 `json:"amount"`
}

// PurchaseOrder は発注(OC)レコードです。OCI は社内の発注番号で、PONumber は仕入先向けの番号です。
type PurchaseOrder struct {
	OCI              string  `json:"oci"`
	PONumber         string  `json:"poNumber"`
	Supplier         string  `json:"supplier"`
	Status           string  `json:"status"`
	PresentationCode string  `json:"presentationCode"`
	ProductName      string  `json:"productName"`
	Quantity         float64 `json:"quantity"`
	OrderDate        string  `json:"orderDate"`
	ETA              string  `json:"eta"`
}

// ImportRecord は輸入(importación)レコードです。
type ImportRecord struct {
	ID               string  `json:"id"`
	ImportNumber     string  `json:"importNumber"`
	OCI              string  `json:"oci"`
	Status           string  `json:"status"`
	PresentationCode string  `json:"presentationCode"`
	ProductName      string  `json:"productName"`
	Quantity         float64 `json:"quantity"`
	ETA              string  `json:"eta"`
	Port             string  `json:"port"`
}

// Communication は連絡履歴です。LinkedType/LinkedID は入札・発注・輸入への弱参照で、参照先の存在は保証しません。
type Communication struct {
	ID           string   `json:"id"`
	LinkedType   string   `json:"linked_type"`
	LinkedID     string   `json:"linked_id"`
	Type         string   `json:"type"`
	Subject      string   `json:"subject"`
	Content      string   `json:"content"`
	Preview      string   `json:"preview"`
	Participants []string `json:"participants"`
	CreatedDate  string   `json:"createdDate"`
}

// Linked種別
const (
	LinkedTender        = "tender"
	LinkedPurchaseOrder = "purchase_order"
	LinkedImport        = "import"
)
