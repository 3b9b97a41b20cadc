package mappers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SafeNumber は任意の値を数値に変換します。解析できない値や非有限値は0になり、パニックしません。
func SafeNumber(v any) float64 {
	f, ok := ParseNumber(v)
	if !ok {
		return 0
	}
	return f
}

// ParseNumber は数値として解釈できる場合に ok=true を返します。
// 文字列は前後の空白・通貨記号・桁区切りのカンマを取り除いてから解析します。
func ParseNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, " ", "")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToString はセル値を表示用の文字列にします。
func ToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
