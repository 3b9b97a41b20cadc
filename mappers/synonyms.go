package mappers

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"scmdash/model"
)

// レコード種別
const (
	KindTender        = "tender"
	KindPurchaseOrder = "purchase_order"
	KindImport        = "import"
	KindDemand        = "demand"
	KindCommunication = "communication"
	KindPresentation  = "presentation"

	KindSalesResponse = "sales_response"
	KindSalesDocument = "sales_document"
	KindSalesLine     = "sales_line"
	KindStockResponse = "stock_response"
)

//go:embed synonyms.yaml
var synonymsYAML []byte

var (
	synonymsOnce sync.Once
	synonyms     map[string]map[string][]string
	synonymsErr  error
)

func loadSynonyms() (map[string]map[string][]string, error) {
	synonymsOnce.Do(func() {
		var m map[string]map[string][]string
		if err := yaml.Unmarshal(synonymsYAML, &m); err != nil {
			synonymsErr = fmt.Errorf("failed to parse synonyms.yaml: %w", err)
			return
		}
		synonyms = m
	})
	return synonyms, synonymsErr
}

// Resolver は1種類のレコードについて、論理フィールド名から列名候補を引く表です。
// 候補は先頭から順に評価し、値が空でない最初の列を採用します。
type Resolver struct {
	kind   string
	fields map[string][]string
	lower  map[string][]string
}

// NewResolver は埋め込みの synonyms.yaml から指定種別の Resolver を生成します。
func NewResolver(kind string) (*Resolver, error) {
	all, err := loadSynonyms()
	if err != nil {
		return nil, err
	}
	fields, ok := all[kind]
	if !ok {
		return nil, fmt.Errorf("unknown record kind: %s", kind)
	}
	return newResolver(kind, fields), nil
}

// MustResolver は NewResolver のパニック版です。埋め込み定義に対してのみ使います。
func MustResolver(kind string) *Resolver {
	r, err := NewResolver(kind)
	if err != nil {
		panic(err)
	}
	return r
}

func newResolver(kind string, fields map[string][]string) *Resolver {
	lower := make(map[string][]string, len(fields))
	for field, keys := range fields {
		for _, k := range keys {
			lower[field] = append(lower[field], strings.ToLower(strings.TrimSpace(k)))
		}
	}
	return &Resolver{kind: kind, fields: fields, lower: lower}
}

// Kind はレコード種別を返します。
func (r *Resolver) Kind() string { return r.kind }

// Keys は論理フィールドの列名候補を返します。
func (r *Resolver) Keys(field string) []string { return r.fields[field] }

// Value は論理フィールドの値を返します。完全一致で見つからなければ大文字小文字を無視して探します。
func (r *Resolver) Value(row model.Row, field string) (any, bool) {
	for _, k := range r.fields[field] {
		if v, ok := row[k]; ok && !isBlank(v) {
			return v, true
		}
	}
	candidates := r.lower[field]
	if len(candidates) == 0 {
		return nil, false
	}
	for _, want := range candidates {
		for k, v := range row {
			if strings.ToLower(strings.TrimSpace(k)) == want && !isBlank(v) {
				return v, true
			}
		}
	}
	return nil, false
}

// String は論理フィールドを前後空白を除いた文字列として返します。
func (r *Resolver) String(row model.Row, field string) string {
	v, ok := r.Value(row, field)
	if !ok {
		return ""
	}
	return ToString(v)
}

// Number は論理フィールドを数値として返します。解析できなければ0です。
func (r *Resolver) Number(row model.Row, field string) float64 {
	v, _ := r.Value(row, field)
	return SafeNumber(v)
}

// OptionalNumber は値が存在し数値として解析できる場合のみ ok=true を返します。
func (r *Resolver) OptionalNumber(row model.Row, field string) (float64, bool) {
	v, ok := r.Value(row, field)
	if !ok {
		return 0, false
	}
	return ParseNumber(v)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
