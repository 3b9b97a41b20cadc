package model

// Row はスプレッドシートから取得した生の1行です。キー名も値の型も保証されません。
type Row map[string]any

// Clone は Row の浅いコピーを返します。
func (r Row) Clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// シート(テーブル)名
const (
	TableTenders        = "licitaciones"
	TablePurchaseOrders = "ordenes_compra"
	TableImports        = "importaciones"
	TableDemand         = "demanda"
	TableCommunications = "comunicaciones"
	TablePresentations  = "presentaciones"
)

// AllTables はダッシュボードが扱う全テーブルです。
var AllTables = []string{
	TableTenders,
	TablePurchaseOrders,
	TableImports,
	TableDemand,
	TableCommunications,
	TablePresentations,
}
