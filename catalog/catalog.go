package catalog

import (
	"sort"

	"go.uber.org/zap"

	"scmdash/mappers"
	"scmdash/model"
)

// Catalog は品目コード -> 品名・包装単位数の参照表です。構築後は変更しません。
type Catalog struct {
	entries    map[string]model.CatalogEntry
	duplicates []string
}

// Build はマスタ行を1回走査して参照表を作ります。
// コードのない行は読み飛ばし、同じコードが複数ある場合は後の行で上書きします(エラーにはしません)。
func Build(rows []model.Row) *Catalog {
	entries := make([]model.CatalogEntry, 0, len(rows))
	for _, row := range rows {
		if e, ok := mappers.ToCatalogEntry(row); ok {
			entries = append(entries, e)
		}
	}
	return FromEntries(entries)
}

// FromEntries は変換済みのエントリから参照表を作ります。
func FromEntries(entries []model.CatalogEntry) *Catalog {
	c := &Catalog{entries: make(map[string]model.CatalogEntry, len(entries))}
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.PresentationCode == "" {
			continue
		}
		if _, exists := c.entries[e.PresentationCode]; exists && !seen[e.PresentationCode] {
			seen[e.PresentationCode] = true
			c.duplicates = append(c.duplicates, e.PresentationCode)
		}
		c.entries[e.PresentationCode] = e
	}
	sort.Strings(c.duplicates)
	return c
}

// LogDuplicates は重複コードがあれば1回だけ警告を出します。
func (c *Catalog) LogDuplicates(logger *zap.Logger) {
	if len(c.duplicates) == 0 {
		return
	}
	logger.Warn("duplicate presentation codes in catalog, last row wins",
		zap.Strings("codes", c.duplicates))
}

// Duplicates は2回以上現れたコードを返します。
func (c *Catalog) Duplicates() []string {
	return append([]string(nil), c.duplicates...)
}

// Len は登録コード数です。
func (c *Catalog) Len() int { return len(c.entries) }

// Lookup はコードのエントリを返します。
func (c *Catalog) Lookup(code string) (model.CatalogEntry, bool) {
	if c == nil {
		return model.CatalogEntry{}, false
	}
	e, ok := c.entries[code]
	return e, ok
}

// Enrich は各行のコピーに productName と packageUnits を付けた新しいスライスを返します。
// 入力行は変更しません。コードが見つからない場合は productName="" / packageUnits=nil です。
func (c *Catalog) Enrich(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		enriched := row.Clone()
		e, ok := c.Lookup(mappers.PresentationCodeOf(row))
		if ok {
			enriched["productName"] = e.ProductName
			if e.PackageUnits != nil {
				enriched["packageUnits"] = *e.PackageUnits
			} else {
				enriched["packageUnits"] = nil
			}
		} else {
			enriched["productName"] = ""
			enriched["packageUnits"] = nil
		}
		out = append(out, enriched)
	}
	return out
}

// EnrichDemand は品名が空の需要行に参照表の品名を補います。
func (c *Catalog) EnrichDemand(rows []model.DemandRow) []model.DemandRow {
	out := make([]model.DemandRow, len(rows))
	copy(out, rows)
	for i := range out {
		if out[i].ProductName != "" {
			continue
		}
		if e, ok := c.Lookup(out[i].PresentationCode); ok {
			out[i].ProductName = e.ProductName
		}
	}
	return out
}
