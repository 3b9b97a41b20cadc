package managermas

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"scmdash/mappers"
	"scmdash/model"
	"scmdash/upstream"
)

const documentsPath = "/api/documentos"

// 売上として加算する DTE 種別 (請求書・ボレタ類)
var saleDocTypes = map[string]bool{
	"30": true, "32": true, "33": true, "34": true,
	"35": true, "38": true, "39": true, "41": true,
	"110": true,
}

// 差し引く DTE 種別 (クレジットノート)
var creditDocTypes = map[string]bool{
	"60": true, "61": true, "112": true,
}

var (
	responseFields = mappers.MustResolver(mappers.KindSalesResponse)
	documentFields = mappers.MustResolver(mappers.KindSalesDocument)
	lineFields     = mappers.MustResolver(mappers.KindSalesLine)
)

// SalesQuery は販売系列の取得条件です。
type SalesQuery struct {
	PresentationCode string
	From             string
	To               string
	RUT              string
	Debug            bool
}

// CandidateURLs はある月の文書一覧を取得するURL候補を優先順に返します。
// 基本のエンドポイントの後に、RUTが設定されていればパス埋め込み・rut・empresa_rut の3形を続けます。重複は除きます。
func CandidateURLs(base, rut string, start, end time.Time) []string {
	base = strings.TrimRight(base, "/")
	period := url.Values{}
	period.Set("desde", start.Format("2006-01-02"))
	period.Set("hasta", end.Format("2006-01-02"))

	candidates := []string{base + documentsPath + "?" + period.Encode()}
	if rut = strings.TrimSpace(rut); rut != "" {
		candidates = append(candidates, base+documentsPath+"/"+url.PathEscape(rut)+"?"+period.Encode())

		withRut := url.Values{}
		for k, v := range period {
			withRut[k] = v
		}
		withRut.Set("rut", rut)
		candidates = append(candidates, base+documentsPath+"?"+withRut.Encode())

		withEmpresa := url.Values{}
		for k, v := range period {
			withEmpresa[k] = v
		}
		withEmpresa.Set("empresa_rut", rut)
		candidates = append(candidates, base+documentsPath+"?"+withEmpresa.Encode())
	}

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// DocumentSign は DTE 種別から符号を返します。売上は+1、クレジットノートは-1、それ以外は0です。
func DocumentSign(doc map[string]any) int {
	code := strings.TrimSpace(documentFields.String(model.Row(doc), "docType"))
	switch {
	case saleDocTypes[code]:
		return 1
	case creditDocTypes[code]:
		return -1
	default:
		return 0
	}
}

// DocumentList は応答本文から文書の配列を取り出します。本文自体が配列ならそれを使います。
func DocumentList(body any) []any {
	switch v := body.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range responseFields.Keys("documents") {
			if list, ok := v[key].([]any); ok {
				return list
			}
		}
	}
	return nil
}

// SumDocuments は品目コードに一致する明細の 符号×数量 を合計します。
// 種別が売上でもクレジットノートでもない文書は明細ごと読み飛ばします。
func SumDocuments(docs []any, code string) decimal.Decimal {
	code = strings.TrimSpace(code)
	total := decimal.Zero
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}
		sign := DocumentSign(doc)
		if sign == 0 {
			continue
		}
		linesValue, _ := documentFields.Value(model.Row(doc), "lines")
		lines, ok := linesValue.([]any)
		if !ok {
			continue
		}
		for _, l := range lines {
			line, ok := l.(map[string]any)
			if !ok {
				continue
			}
			if strings.TrimSpace(lineFields.String(model.Row(line), "code")) != code {
				continue
			}
			qty, _ := lineFields.Value(model.Row(line), "quantity")
			total = total.Add(quantityOf(qty).Mul(decimal.NewFromInt(int64(sign))))
		}
	}
	return total
}

func quantityOf(v any) decimal.Decimal {
	switch q := v.(type) {
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(q), ",", "")
		if d, err := decimal.NewFromString(cleaned); err == nil {
			return d
		}
	case interface{ String() string }:
		if d, err := decimal.NewFromString(q.String()); err == nil {
			return d
		}
	}
	return decimal.NewFromFloat(mappers.SafeNumber(v))
}

type monthResult struct {
	units decimal.Decimal
	debug model.MonthDebug
}

// fetchMonth は候補URLを順に試し、最初に成功しJSONとして読めた応答で集計します。
// 全候補が失敗した場合はその月を0とし、Exhausted を立てます。
func (c *Client) fetchMonth(ctx context.Context, code, rut, month string) (monthResult, error) {
	res := monthResult{units: decimal.Zero, debug: model.MonthDebug{Month: month}}
	start, end, err := MonthBounds(month)
	if err != nil {
		return res, err
	}

	for _, candidate := range CandidateURLs(c.baseURL, rut, start, end) {
		body, attempts, err := c.get(ctx, candidate)
		res.debug.Attempts = append(res.debug.Attempts, attempts...)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			continue
		}
		value, ok := upstream.DecodeSoft(body)
		if !ok {
			if n := len(res.debug.Attempts); n > 0 {
				res.debug.Attempts[n-1].Error = "response is not valid JSON"
			}
			continue
		}
		res.debug.Winner = candidate
		res.units = SumDocuments(DocumentList(value), code)
		return res, nil
	}

	res.debug.Exhausted = true
	c.logger.Warn("all sales candidates failed, month counted as zero",
		zap.String("month", month), zap.String("code", code))
	return res, nil
}

// SalesSeries は期間内の各月について販売数量を集計し、欠けのない月次系列を返します。
// 1か月の失敗は0として扱い、全体は中断しません。呼び出し側のコンテキストが切れた場合のみエラーを返します。
func (c *Client) SalesSeries(ctx context.Context, q SalesQuery) (*model.SalesSeries, error) {
	months, err := ExpandMonths(q.From, q.To)
	if err != nil {
		return nil, err
	}
	rut := q.RUT
	if rut == "" {
		rut = c.rut
	}

	out := &model.SalesSeries{
		OK:               true,
		PresentationCode: q.PresentationCode,
		From:             q.From,
		To:               q.To,
		Series:           make([]model.SalesSeriesPoint, 0, len(months)),
	}
	for _, month := range months {
		res, err := c.fetchMonth(ctx, q.PresentationCode, rut, month)
		if err != nil {
			return nil, err
		}
		out.Series = append(out.Series, model.SalesSeriesPoint{Month: month, Units: res.units.InexactFloat64()})
		if q.Debug {
			out.Debug = append(out.Debug, res.debug)
		}
	}
	return out, nil
}
