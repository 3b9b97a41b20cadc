package mappers

import (
	"strings"

	"scmdash/model"
)

var (
	tenderFields        = MustResolver(KindTender)
	purchaseOrderFields = MustResolver(KindPurchaseOrder)
	importFields        = MustResolver(KindImport)
	demandFields        = MustResolver(KindDemand)
	communicationFields = MustResolver(KindCommunication)
	presentationFields  = MustResolver(KindPresentation)
)

// ResolverForTable はテーブル名に対応する Resolver を返します。
func ResolverForTable(table string) (*Resolver, bool) {
	switch table {
	case model.TableTenders:
		return tenderFields, true
	case model.TablePurchaseOrders:
		return purchaseOrderFields, true
	case model.TableImports:
		return importFields, true
	case model.TableDemand:
		return demandFields, true
	case model.TableCommunications:
		return communicationFields, true
	case model.TablePresentations:
		return presentationFields, true
	}
	return nil, false
}

// ToTender は生の行を Tender に変換します。
func ToTender(row model.Row) model.Tender {
	f := tenderFields
	return model.Tender{
		ID:               f.String(row, "id"),
		TenderNumber:     f.String(row, "tenderNumber"),
		Title:            f.String(row, "title"),
		Institution:      f.String(row, "institution"),
		Status:           f.String(row, "status"),
		DeliveryDate:     NormalizeDate(f.String(row, "deliveryDate")),
		PresentationCode: f.String(row, "presentationCode"),
		ProductName:      f.String(row, "productName"),
		Quantity:         f.Number(row, "quantity"),
		Amount:           f.Number(row, "amount"),
	}
}

// ToPurchaseOrder は生の行を PurchaseOrder に変換します。
func ToPurchaseOrder(row model.Row) model.PurchaseOrder {
	f := purchaseOrderFields
	return model.PurchaseOrder{
		OCI:              f.String(row, "oci"),
		PONumber:         f.String(row, "poNumber"),
		Supplier:         f.String(row, "supplier"),
		Status:           f.String(row, "status"),
		PresentationCode: f.String(row, "presentationCode"),
		ProductName:      f.String(row, "productName"),
		Quantity:         f.Number(row, "quantity"),
		OrderDate:        NormalizeDate(f.String(row, "orderDate")),
		ETA:              NormalizeDate(f.String(row, "eta")),
	}
}

// ToImport は生の行を ImportRecord に変換します。
func ToImport(row model.Row) model.ImportRecord {
	f := importFields
	return model.ImportRecord{
		ID:               f.String(row, "id"),
		ImportNumber:     f.String(row, "importNumber"),
		OCI:              f.String(row, "oci"),
		Status:           f.String(row, "status"),
		PresentationCode: f.String(row, "presentationCode"),
		ProductName:      f.String(row, "productName"),
		Quantity:         f.Number(row, "quantity"),
		ETA:              NormalizeDate(f.String(row, "eta")),
		Port:             f.String(row, "port"),
	}
}

// ToDemandRow は生の行を DemandRow に変換します。index は合成キーに使う行番号です。
func ToDemandRow(row model.Row, index int) model.DemandRow {
	f := demandFields
	d := model.DemandRow{
		PresentationCode:   f.String(row, "presentationCode"),
		ProductName:        f.String(row, "productName"),
		CurrentStockUnits:  f.Number(row, "currentStockUnits"),
		MonthlyDemandUnits: f.Number(row, "monthlyDemandUnits"),
		ForecastUnits:      f.Number(row, "forecastUnits"),
		HistoricalUnits:    f.Number(row, "historicalUnits"),
		MonthOfSupply:      NormalizeMonth(f.String(row, "monthOfSupply")),
		Timestamp:          f.String(row, "timestamp"),
		RowIndex:           index,
	}
	if ds, ok := f.OptionalNumber(row, "daysSupply"); ok {
		d.DaysSupply = &ds
	}
	return d
}

// ToDemandRows はテーブル全体を変換します。
func ToDemandRows(rows []model.Row) []model.DemandRow {
	out := make([]model.DemandRow, 0, len(rows))
	for i, r := range rows {
		out = append(out, ToDemandRow(r, i))
	}
	return out
}

// ToCommunication は生の行を Communication に変換します。
func ToCommunication(row model.Row) model.Communication {
	f := communicationFields
	c := model.Communication{
		ID:          f.String(row, "id"),
		LinkedType:  strings.ToLower(f.String(row, "linked_type")),
		LinkedID:    f.String(row, "linked_id"),
		Type:        f.String(row, "type"),
		Subject:     f.String(row, "subject"),
		Content:     f.String(row, "content"),
		Preview:     f.String(row, "preview"),
		CreatedDate: f.String(row, "createdDate"),
	}
	if v, ok := f.Value(row, "participants"); ok {
		c.Participants = toStringList(v)
	}
	if c.Preview == "" {
		c.Preview = Preview(c.Content, PreviewRunes)
	}
	return c
}

// ToCatalogEntry は生の行を CatalogEntry に変換します。コードが空の場合は ok=false です。
func ToCatalogEntry(row model.Row) (model.CatalogEntry, bool) {
	f := presentationFields
	e := model.CatalogEntry{
		PresentationCode: f.String(row, "presentationCode"),
		ProductName:      f.String(row, "productName"),
	}
	if e.PresentationCode == "" {
		return e, false
	}
	if units, ok := f.OptionalNumber(row, "packageUnits"); ok {
		e.PackageUnits = &units
	}
	return e, true
}

// PresentationCodeOf は任意の種別の行から品目コードを取り出します。
func PresentationCodeOf(row model.Row) string {
	return presentationFields.String(row, "presentationCode")
}

// PreviewRunes はプレビュー文字数です。
const PreviewRunes = 120

// Preview は本文の先頭 n 文字を返します。
func Preview(content string, n int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "…"
}

func toStringList(v any) []string {
	var out []string
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s := ToString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	default:
		for _, s := range strings.FieldsFunc(ToString(v), func(r rune) bool { return r == ',' || r == ';' }) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
