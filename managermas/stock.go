package managermas

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scmdash/mappers"
	"scmdash/model"
	"scmdash/upstream"
)

const stockPath = "/api/stock/"

var stockFields = mappers.MustResolver(mappers.KindStockResponse)

func (c *Client) stockURL(code, dt string) string {
	q := url.Values{}
	if dt != "" {
		q.Set("dt", dt)
	}
	if c.rut != "" {
		q.Set("rut", c.rut)
	}
	u := c.baseURL + stockPath + url.PathEscape(strings.TrimSpace(code))
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// Stock は1品目の在庫数を取得します。上流の失敗はエラーとして返し、本文がJSONでない場合は0とします。
func (c *Client) Stock(ctx context.Context, code, dt string) (float64, error) {
	body, _, err := c.get(ctx, c.stockURL(code, dt))
	if err != nil {
		return 0, fmt.Errorf("stock %s: %w", code, err)
	}
	value, ok := upstream.DecodeSoft(body)
	if !ok {
		c.logger.Warn("stock response is not JSON, using 0", zap.String("code", code))
		return 0, nil
	}
	return StockValue(value), nil
}

// Stocks は複数品目の在庫を固定数の並列度で取得します。1件でも失敗すれば全体をエラーにします。
func (c *Client) Stocks(ctx context.Context, codes []string, dt string) (map[string]float64, error) {
	values := make([]float64, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanOut)
	for i, code := range codes {
		g.Go(func() error {
			v, err := c.Stock(gctx, code, dt)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(codes))
	for i, code := range codes {
		out[code] = values[i]
	}
	return out, nil
}

// StockValue は応答から在庫数を取り出します。宣言済みの形で見つからなければ legacyStockSearch に頼ります。
func StockValue(body any) float64 {
	if v, ok := declaredStock(body); ok {
		return v
	}
	if v, ok := legacyStockSearch(body, 0); ok {
		return v
	}
	return 0
}

// declaredStock は {stock: n} / {data: {stock: n}} / 数値そのもの の形だけを受け付けます。
func declaredStock(body any) (float64, bool) {
	if n, ok := mappers.ParseNumber(body); ok {
		return n, true
	}
	m, ok := body.(map[string]any)
	if !ok {
		return 0, false
	}
	if v, ok := stockFields.Value(model.Row(m), "stock"); ok {
		return mappers.ParseNumber(v)
	}
	if data, ok := stockFields.Value(model.Row(m), "data"); ok {
		if inner, ok := data.(map[string]any); ok {
			if v, ok := stockFields.Value(model.Row(inner), "stock"); ok {
				return mappers.ParseNumber(v)
			}
		}
	}
	return 0, false
}

const legacySearchDepth = 6

var legacyStockKeys = []string{"stock", "saldo", "existencia"}

// legacyStockSearch は旧形式の応答との互換のための best-effort な探索です。
// キー名に stock/saldo/existencia を含む最初の数値を、キーの辞書順・深さ優先で探します。
// 形が決まっていない応答に依存するため、結果は保証されません。
func legacyStockSearch(body any, depth int) (float64, bool) {
	if depth > legacySearchDepth {
		return 0, false
	}
	switch v := body.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lower := strings.ToLower(k)
			for _, want := range legacyStockKeys {
				if strings.Contains(lower, want) {
					if n, ok := mappers.ParseNumber(v[k]); ok {
						return n, true
					}
				}
			}
		}
		for _, k := range keys {
			if n, ok := legacyStockSearch(v[k], depth+1); ok {
				return n, true
			}
		}
	case []any:
		for _, item := range v {
			if n, ok := legacyStockSearch(item, depth+1); ok {
				return n, true
			}
		}
	}
	return 0, false
}
